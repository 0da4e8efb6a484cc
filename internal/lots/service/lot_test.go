package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pharmadisti/pharmadisti-backend/internal/lots/repository"
	"github.com/pharmadisti/pharmadisti-backend/internal/lots/service"
	"github.com/pharmadisti/pharmadisti-backend/pkg/database"
	"github.com/pharmadisti/pharmadisti-backend/pkg/errors"
	"github.com/pharmadisti/pharmadisti-backend/pkg/logger"
	"github.com/pharmadisti/pharmadisti-backend/pkg/testutil"
)

// The publisher is nil in unit tests; all publish methods are nil-safe.
func newLotService(t *testing.T) (*testutil.MockDB, *service.LotService) {
	mockDB := testutil.NewMockDB(t)
	db := database.FromSqlx(mockDB.DB, logger.New("test", "test"))

	svc := service.NewLotService(
		db,
		repository.NewLotRepository(db),
		repository.NewRoomRepository(db),
		repository.NewCatalogRepository(db),
		nil,
		logger.New("test", "test"),
	)
	return mockDB, svc
}

func validLotInput(batchID, productID, roomID string, quantity int) service.CreateLotInput {
	return service.CreateLotInput{
		LotBatchID:       batchID,
		ProductID:        productID,
		StorageRoomID:    roomID,
		ManufacturedDate: time.Now().AddDate(0, -1, 0),
		ExpiredDate:      time.Now().AddDate(1, 0, 0),
		SupplyPrice:      decimal.NewFromFloat(9.90),
		Quantity:         quantity,
	}
}

func expectCatalogLookups(mockDB *testutil.MockDB, batchID, productID string, volumePerUnit string) {
	mockDB.ExpectQuery("SELECT id, lot_code FROM lot_batches").
		WithArgs(batchID).
		WillReturnRows(testutil.MockRows("id", "lot_code").AddRow(batchID, "LOT-0001"))
	mockDB.ExpectQuery("SELECT id, name, unit, volume_per_unit FROM products").
		WithArgs(productID).
		WillReturnRows(testutil.MockRows("id", "name", "unit", "volume_per_unit").
			AddRow(productID, "Paracetamol 500mg", "box", volumePerUnit))
}

func TestLotService_CreateLots_ManufacturedDateInFuture(t *testing.T) {
	mockDB, svc := newLotService(t)
	defer mockDB.Close()

	batchID := uuid.New().String()
	productID := uuid.New().String()

	mockDB.ExpectBegin()
	expectCatalogLookups(mockDB, batchID, productID, "0.5")
	mockDB.ExpectRollback()

	input := validLotInput(batchID, productID, uuid.New().String(), 10)
	input.ManufacturedDate = time.Now().AddDate(0, 0, 1)

	lots, err := svc.CreateLots(context.Background(), uuid.New().String(), []service.CreateLotInput{input})
	require.Error(t, err)
	assert.Nil(t, lots)

	var appErr *errors.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, "VALIDATION_ERROR", appErr.Code)
	assert.Contains(t, appErr.Details["manufactured_date"], "future")
	mockDB.ExpectationsWereMet(t)
}

func TestLotService_CreateLots_ExpiredBeforeManufactured(t *testing.T) {
	mockDB, svc := newLotService(t)
	defer mockDB.Close()

	batchID := uuid.New().String()
	productID := uuid.New().String()

	mockDB.ExpectBegin()
	expectCatalogLookups(mockDB, batchID, productID, "0.5")
	mockDB.ExpectRollback()

	input := validLotInput(batchID, productID, uuid.New().String(), 10)
	input.ExpiredDate = input.ManufacturedDate.AddDate(0, 0, -1)

	_, err := svc.CreateLots(context.Background(), uuid.New().String(), []service.CreateLotInput{input})
	require.Error(t, err)

	var appErr *errors.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, "VALIDATION_ERROR", appErr.Code)
	assert.Contains(t, appErr.Details["expired_date"], "after the manufactured date")
	mockDB.ExpectationsWereMet(t)
}

func TestLotService_CreateLots_CapacityExceeded(t *testing.T) {
	mockDB, svc := newLotService(t)
	defer mockDB.Close()

	batchID := uuid.New().String()
	productID := uuid.New().String()
	roomID := uuid.New().String()

	mockDB.ExpectBegin()
	// volume per unit 2.0, quantity 10 -> required 20 > remaining 5
	expectCatalogLookups(mockDB, batchID, productID, "2.0")
	mockDB.ExpectQuery("SELECT * FROM storage_rooms WHERE id = $1 FOR UPDATE").
		WithArgs(roomID).
		WillReturnRows(testutil.MockRows("id", "name", "total_volume", "remaining_volume").
			AddRow(roomID, "Cold Room B", "1000", "5"))
	mockDB.ExpectRollback()

	_, err := svc.CreateLots(context.Background(), uuid.New().String(),
		[]service.CreateLotInput{validLotInput(batchID, productID, roomID, 10)})
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrCapacityExceeded))
	assert.Contains(t, err.Error(), "Cold Room B")
	mockDB.ExpectationsWereMet(t)
}

func TestLotService_CreateLots_Success(t *testing.T) {
	mockDB, svc := newLotService(t)
	defer mockDB.Close()

	batchID := uuid.New().String()
	productID := uuid.New().String()
	roomID := uuid.New().String()

	mockDB.ExpectBegin()
	expectCatalogLookups(mockDB, batchID, productID, "0.5")
	mockDB.ExpectQuery("SELECT * FROM storage_rooms WHERE id = $1 FOR UPDATE").
		WithArgs(roomID).
		WillReturnRows(testutil.MockRows("id", "name", "total_volume", "remaining_volume").
			AddRow(roomID, "Main Warehouse", "1000", "100"))
	mockDB.ExpectQuery("INSERT INTO product_lots").
		WillReturnRows(testutil.MockRows("created_at", "updated_at").AddRow(time.Now(), time.Now()))
	// 20 units * 0.5 volume -> remaining drops from 100 to 90
	mockDB.ExpectExec("UPDATE storage_rooms SET remaining_volume").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mockDB.ExpectCommit()

	lots, err := svc.CreateLots(context.Background(), uuid.New().String(),
		[]service.CreateLotInput{validLotInput(batchID, productID, roomID, 20)})
	require.NoError(t, err)
	require.Len(t, lots, 1)

	assert.Equal(t, "Paracetamol 500mg", lots[0].ProductName)
	assert.Equal(t, "LOT-0001", lots[0].LotCode)
	assert.Equal(t, 20, lots[0].Quantity)
	assert.Equal(t, repository.LotStatusActive, lots[0].Status)
	mockDB.ExpectationsWereMet(t)
}

func TestLotService_CreateLots_MissingRoomID(t *testing.T) {
	mockDB, svc := newLotService(t)
	defer mockDB.Close()

	mockDB.ExpectBegin()
	mockDB.ExpectRollback()

	input := validLotInput(uuid.New().String(), uuid.New().String(), "", 10)

	_, err := svc.CreateLots(context.Background(), uuid.New().String(), []service.CreateLotInput{input})
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrBadRequest))
	mockDB.ExpectationsWereMet(t)
}

func TestLotService_UpdateLot_RejectsQuantityChange(t *testing.T) {
	mockDB, svc := newLotService(t)
	defer mockDB.Close()

	lotID := uuid.New().String()
	now := time.Now()

	mockDB.ExpectQuery("SELECT * FROM product_lots WHERE id = $1").
		WithArgs(lotID).
		WillReturnRows(testutil.MockRows(
			"id", "lot_batch_id", "product_id", "storage_room_id",
			"manufactured_date", "expired_date", "supply_price",
			"quantity", "status", "created_at", "updated_at",
		).AddRow(
			lotID, uuid.New().String(), uuid.New().String(), uuid.New().String(),
			now.AddDate(0, -1, 0), now.AddDate(1, 0, 0), "9.90",
			30, "active", now, now,
		))

	newQuantity := 35
	_, err := svc.UpdateLot(context.Background(), lotID, service.UpdateLotInput{
		ManufacturedDate: now.AddDate(0, -1, 0),
		ExpiredDate:      now.AddDate(1, 0, 0),
		SupplyPrice:      decimal.NewFromFloat(9.90),
		Quantity:         &newQuantity,
	})
	require.Error(t, err)

	var appErr *errors.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, "VALIDATION_ERROR", appErr.Code)
	assert.Contains(t, appErr.Details["quantity"], "cannot be changed directly")
	mockDB.ExpectationsWereMet(t)
}
