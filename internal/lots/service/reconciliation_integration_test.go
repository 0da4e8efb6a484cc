package service_test

import (
	"context"
	"flag"
	"log"
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pharmadisti/pharmadisti-backend/internal/lots/repository"
	"github.com/pharmadisti/pharmadisti-backend/internal/lots/service"
	"github.com/pharmadisti/pharmadisti-backend/pkg/errors"
	"github.com/pharmadisti/pharmadisti-backend/pkg/testutil"
)

var suite *testutil.IntegrationSuite

func TestMain(m *testing.M) {
	flag.Parse()

	if testing.Short() {
		os.Exit(m.Run())
	}

	ctx := context.Background()
	var err error
	suite, err = testutil.NewIntegrationSuite(ctx)
	if err != nil {
		log.Fatalf("failed to set up integration suite: %v", err)
	}

	code := m.Run()
	testutil.TerminateContainer(ctx)
	os.Exit(code)
}

func newIntegrationServices() (*service.LotService, *service.ReceivingService, *service.StockCheckService) {
	lotRepo := repository.NewLotRepository(suite.DB)
	roomRepo := repository.NewRoomRepository(suite.DB)
	catalogRepo := repository.NewCatalogRepository(suite.DB)
	noteRepo := repository.NewReceivedNoteRepository(suite.DB)
	poRepo := repository.NewPurchaseOrderRepository(suite.DB)
	checkRepo := repository.NewNoteCheckRepository(suite.DB)

	lots := service.NewLotService(suite.DB, lotRepo, roomRepo, catalogRepo, nil, suite.Logger)
	receiving := service.NewReceivingService(suite.DB, noteRepo, poRepo, lotRepo, nil, suite.Logger)
	checks := service.NewStockCheckService(suite.DB, checkRepo, lotRepo, roomRepo, nil, suite.Logger)
	return lots, receiving, checks
}

func seedProduct(t *testing.T, ctx context.Context, p testutil.ProductFixture) {
	t.Helper()
	_, err := suite.RawDB.ExecContext(ctx,
		`INSERT INTO products (id, name, unit, volume_per_unit) VALUES ($1, $2, $3, $4)`,
		p.ID, p.Name, p.Unit, p.VolumePerUnit)
	require.NoError(t, err)
}

func seedLotBatch(t *testing.T, ctx context.Context, b testutil.LotBatchFixture) {
	t.Helper()
	_, err := suite.RawDB.ExecContext(ctx,
		`INSERT INTO lot_batches (id, lot_code) VALUES ($1, $2)`, b.ID, b.LotCode)
	require.NoError(t, err)
}

func seedStorageRoom(t *testing.T, ctx context.Context, r testutil.StorageRoomFixture) {
	t.Helper()
	_, err := suite.RawDB.ExecContext(ctx,
		`INSERT INTO storage_rooms (id, name, total_volume, remaining_volume) VALUES ($1, $2, $3, $4)`,
		r.ID, r.Name, r.TotalVolume, r.RemainingVolume)
	require.NoError(t, err)
}

func seedPurchaseOrder(t *testing.T, ctx context.Context, po testutil.PurchaseOrderFixture) {
	t.Helper()
	_, err := suite.RawDB.ExecContext(ctx,
		`INSERT INTO purchase_orders (id, po_code, status) VALUES ($1, $2, $3)`,
		po.ID, po.POCode, po.Status)
	require.NoError(t, err)
	for _, line := range po.Lines {
		_, err := suite.RawDB.ExecContext(ctx,
			`INSERT INTO purchase_order_lines (id, purchase_order_id, product_id, quantity) VALUES ($1, $2, $3, $4)`,
			line.ID, po.ID, line.ProductID, line.Quantity)
		require.NoError(t, err)
	}
}

func seedProductLot(t *testing.T, ctx context.Context, l testutil.ProductLotFixture) {
	t.Helper()
	_, err := suite.RawDB.ExecContext(ctx,
		`INSERT INTO product_lots (id, lot_batch_id, product_id, storage_room_id,
		 manufactured_date, expired_date, supply_price, quantity, status)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		l.ID, l.LotBatchID, l.ProductID, l.StorageRoomID,
		l.ManufacturedDate, l.ExpiredDate, l.SupplyPrice, l.Quantity, l.Status)
	require.NoError(t, err)
}

func lotQuantity(t *testing.T, ctx context.Context, lotID string) int {
	t.Helper()
	var quantity int
	require.NoError(t, suite.RawDB.GetContext(ctx, &quantity,
		`SELECT quantity FROM product_lots WHERE id = $1`, lotID))
	return quantity
}

// Receiving the same order in two partial deliveries: the first leaves a
// shortage, the second completes both the order and the lot quantity.
func TestIntegration_ReceivingReconciliation(t *testing.T) {
	if testing.Short() {
		t.Skip("integration test requires docker")
	}

	ctx := context.Background()
	_, receiving, _ := newIntegrationServices()

	product := suite.Fixtures.Product()
	batch := suite.Fixtures.LotBatch()
	room := suite.Fixtures.StorageRoom()
	po := suite.Fixtures.PurchaseOrder(testutil.WithLine(product.ID, 100))
	lot := suite.Fixtures.ProductLot(batch.ID, product.ID, room.ID)

	seedProduct(t, ctx, product)
	seedLotBatch(t, ctx, batch)
	seedStorageRoom(t, ctx, room)
	seedPurchaseOrder(t, ctx, po)
	seedProductLot(t, ctx, lot)

	creator := uuid.New().String()

	note, message, err := receiving.CreateReceivedNote(ctx, creator, service.CreateReceivedNoteInput{
		PurchaseOrderID: po.ID,
		Details:         []service.ReceivedDetailInput{{ProductLotID: lot.ID, ActualReceived: 40}},
	})
	require.NoError(t, err)
	assert.Equal(t, repository.NoteStatusShortage, note.Status)
	assert.Equal(t, service.MessageOrderShortage, message)
	assert.Equal(t, 40, lotQuantity(t, ctx, lot.ID))

	note, message, err = receiving.CreateReceivedNote(ctx, creator, service.CreateReceivedNoteInput{
		PurchaseOrderID: po.ID,
		Details:         []service.ReceivedDetailInput{{ProductLotID: lot.ID, ActualReceived: 60}},
	})
	require.NoError(t, err)
	assert.Equal(t, repository.NoteStatusComplete, note.Status)
	assert.Equal(t, service.MessageOrderComplete, message)
	assert.Equal(t, 100, lotQuantity(t, ctx, lot.ID))

	var poStatus string
	require.NoError(t, suite.RawDB.GetContext(ctx, &poStatus,
		`SELECT status FROM purchase_orders WHERE id = $1`, po.ID))
	assert.Equal(t, repository.POStatusComplete, poStatus)
}

// Creating lots deducts volume from the room; a lot that does not fit is
// refused and the room's remaining volume is untouched.
func TestIntegration_LotCreationCapacity(t *testing.T) {
	if testing.Short() {
		t.Skip("integration test requires docker")
	}

	ctx := context.Background()
	lots, _, _ := newIntegrationServices()

	product := suite.Fixtures.Product(testutil.WithVolumePerUnit(decimal.NewFromInt(2)))
	batch := suite.Fixtures.LotBatch()
	room := suite.Fixtures.StorageRoom(testutil.WithRemainingVolume(decimal.NewFromInt(25)))

	seedProduct(t, ctx, product)
	seedLotBatch(t, ctx, batch)
	seedStorageRoom(t, ctx, room)

	template := suite.Fixtures.ProductLot(batch.ID, product.ID, room.ID)

	created, err := lots.CreateLots(ctx, uuid.New().String(), []service.CreateLotInput{{
		LotBatchID:       batch.ID,
		ProductID:        product.ID,
		StorageRoomID:    room.ID,
		ManufacturedDate: template.ManufacturedDate,
		ExpiredDate:      template.ExpiredDate,
		SupplyPrice:      template.SupplyPrice,
		Quantity:         10,
	}})
	require.NoError(t, err)
	require.Len(t, created, 1)
	assert.Equal(t, product.Name, created[0].ProductName)
	assert.Equal(t, batch.LotCode, created[0].LotCode)

	// 25 - 10*2 = 5 left; another 10 units will not fit
	_, err = lots.CreateLots(ctx, uuid.New().String(), []service.CreateLotInput{{
		LotBatchID:       batch.ID,
		ProductID:        product.ID,
		StorageRoomID:    room.ID,
		ManufacturedDate: template.ManufacturedDate,
		ExpiredDate:      template.ExpiredDate,
		SupplyPrice:      template.SupplyPrice,
		Quantity:         10,
	}})
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrCapacityExceeded))

	var remaining decimal.Decimal
	require.NoError(t, suite.RawDB.GetContext(ctx, &remaining,
		`SELECT remaining_volume FROM storage_rooms WHERE id = $1`, room.ID))
	assert.True(t, remaining.Equal(decimal.NewFromInt(5)), "remaining volume is %s", remaining)
}

// A stock check that finds a shortage produces a damaged item that can be
// processed exactly once.
func TestIntegration_StockCheckDamageFlow(t *testing.T) {
	if testing.Short() {
		t.Skip("integration test requires docker")
	}

	ctx := context.Background()
	_, _, checks := newIntegrationServices()

	product := suite.Fixtures.Product()
	batch := suite.Fixtures.LotBatch()
	room := suite.Fixtures.StorageRoom()
	lot := suite.Fixtures.ProductLot(batch.ID, product.ID, room.ID, testutil.WithQuantity(50))

	seedProduct(t, ctx, product)
	seedLotBatch(t, ctx, batch)
	seedStorageRoom(t, ctx, room)
	seedProductLot(t, ctx, lot)

	check, err := checks.CreateNoteCheck(ctx, uuid.New().String(), service.CreateNoteCheckInput{
		StorageRoomID: room.ID,
		Reason:        "water damage in aisle 3",
		Details: []service.CheckDetailInput{
			{ProductLotID: lot.ID, StorageQuantity: 50, ActualQuantity: 42},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, repository.CheckResultShortage, check.Result)
	require.Len(t, check.Details, 1)
	assert.Equal(t, 8, check.Details[0].DifferenceQuantity)

	damaged, err := checks.GetUnprocessedDamagedItems(ctx, check.ID)
	require.NoError(t, err)
	require.Len(t, damaged, 1)

	detail, err := checks.MarkDamagedItemProcessed(ctx, damaged[0].ID)
	require.NoError(t, err)
	assert.True(t, detail.Processed)
	require.NotNil(t, detail.ProcessedAt)

	_, err = checks.MarkDamagedItemProcessed(ctx, damaged[0].ID)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrConflict))

	damaged, err = checks.GetUnprocessedDamagedItems(ctx, check.ID)
	require.NoError(t, err)
	assert.Empty(t, damaged)
}
