package repository_test

import (
	"context"
	"database/sql/driver"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pharmadisti/pharmadisti-backend/internal/lots/repository"
	"github.com/pharmadisti/pharmadisti-backend/pkg/database"
	"github.com/pharmadisti/pharmadisti-backend/pkg/errors"
	"github.com/pharmadisti/pharmadisti-backend/pkg/logger"
	"github.com/pharmadisti/pharmadisti-backend/pkg/testutil"
)

func newTestDB(t *testing.T) (*testutil.MockDB, *database.DB) {
	mockDB := testutil.NewMockDB(t)
	return mockDB, database.FromSqlx(mockDB.DB, logger.New("test", "test"))
}

func lotColumns() []string {
	return []string{
		"id", "lot_batch_id", "product_id", "storage_room_id",
		"manufactured_date", "expired_date", "supply_price",
		"quantity", "status", "created_at", "updated_at",
	}
}

func lotRow(id string, quantity int, status string) []driverValue {
	now := time.Now()
	return []driverValue{
		id, uuid.New().String(), uuid.New().String(), uuid.New().String(),
		now.AddDate(0, -1, 0), now.AddDate(1, 0, 0), "9.90",
		quantity, status, now, now,
	}
}

type driverValue = driver.Value

func TestLotRepository_Create_DefaultsStatus(t *testing.T) {
	tests := []struct {
		name       string
		quantity   int
		wantStatus string
	}{
		{"zero quantity starts pending", 0, repository.LotStatusPending},
		{"positive quantity starts active", 25, repository.LotStatusActive},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockDB, db := newTestDB(t)
			defer mockDB.Close()

			repo := repository.NewLotRepository(db)

			mockDB.ExpectQuery("INSERT INTO product_lots").
				WillReturnRows(testutil.MockRows("created_at", "updated_at").
					AddRow(time.Now(), time.Now()))

			lot := &repository.ProductLot{
				LotBatchID:       uuid.New().String(),
				ProductID:        uuid.New().String(),
				StorageRoomID:    uuid.New().String(),
				ManufacturedDate: time.Now().AddDate(0, -1, 0),
				ExpiredDate:      time.Now().AddDate(1, 0, 0),
				Quantity:         tt.quantity,
			}

			err := repo.Create(context.Background(), db, lot)
			require.NoError(t, err)

			assert.NotEmpty(t, lot.ID)
			assert.Equal(t, tt.wantStatus, lot.Status)
			mockDB.ExpectationsWereMet(t)
		})
	}
}

func TestLotRepository_GetByID_NotFound(t *testing.T) {
	mockDB, db := newTestDB(t)
	defer mockDB.Close()

	repo := repository.NewLotRepository(db)
	id := uuid.New().String()

	mockDB.ExpectQuery("SELECT * FROM product_lots WHERE id = $1").
		WithArgs(id).
		WillReturnRows(testutil.MockRows(lotColumns()...))

	lot, err := repo.GetByID(context.Background(), id)
	require.Error(t, err)
	assert.Nil(t, lot)
	assert.True(t, errors.Is(err, errors.ErrNotFound))
	assert.Contains(t, err.Error(), id)
	mockDB.ExpectationsWereMet(t)
}

func TestLotRepository_SetQuantity(t *testing.T) {
	mockDB, db := newTestDB(t)
	defer mockDB.Close()

	repo := repository.NewLotRepository(db)
	id := uuid.New().String()

	mockDB.ExpectExec("UPDATE product_lots SET").
		WithArgs(id, 70).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.SetQuantity(context.Background(), db, id, 70)
	require.NoError(t, err)
	mockDB.ExpectationsWereMet(t)
}

func TestLotRepository_SetQuantity_NoRowUpdated(t *testing.T) {
	mockDB, db := newTestDB(t)
	defer mockDB.Close()

	repo := repository.NewLotRepository(db)
	id := uuid.New().String()

	mockDB.ExpectExec("UPDATE product_lots SET").
		WithArgs(id, 10).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.SetQuantity(context.Background(), db, id, 10)
	require.Error(t, err)

	var appErr *errors.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, "SYSTEM_ERROR", appErr.Code)
	// The underlying message must survive to the caller verbatim
	assert.Contains(t, appErr.Message, "update returned no result")
	mockDB.ExpectationsWereMet(t)
}

func TestLotRepository_GetForUpdate_LocksRow(t *testing.T) {
	mockDB, db := newTestDB(t)
	defer mockDB.Close()

	repo := repository.NewLotRepository(db)
	id := uuid.New().String()

	mockDB.ExpectQuery("SELECT * FROM product_lots WHERE id = $1 FOR UPDATE").
		WithArgs(id).
		WillReturnRows(testutil.MockRows(lotColumns()...).AddRow(lotRow(id, 30, "active")...))

	lot, err := repo.GetForUpdate(context.Background(), db, id)
	require.NoError(t, err)
	assert.Equal(t, 30, lot.Quantity)
	assert.Equal(t, repository.LotStatusActive, lot.Status)
	mockDB.ExpectationsWereMet(t)
}

func TestLotRepository_MarkExpired(t *testing.T) {
	mockDB, db := newTestDB(t)
	defer mockDB.Close()

	repo := repository.NewLotRepository(db)

	mockDB.ExpectExec("UPDATE product_lots SET status = 'expired'").
		WithArgs(testutil.AnyTime{}).
		WillReturnResult(sqlmock.NewResult(0, 3))

	count, err := repo.MarkExpired(context.Background(), time.Now())
	require.NoError(t, err)
	assert.Equal(t, int64(3), count)
	mockDB.ExpectationsWereMet(t)
}
