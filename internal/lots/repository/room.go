package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/pharmadisti/pharmadisti-backend/pkg/database"
	"github.com/pharmadisti/pharmadisti-backend/pkg/errors"
	"github.com/shopspring/decimal"
)

// StorageRoom represents a storage room with a tracked remaining volume
type StorageRoom struct {
	ID              string          `db:"id" json:"id"`
	Name            string          `db:"name" json:"name"`
	TotalVolume     decimal.Decimal `db:"total_volume" json:"total_volume"`
	RemainingVolume decimal.Decimal `db:"remaining_volume" json:"remaining_volume"`
}

// RoomRepository handles storage room persistence
type RoomRepository struct {
	db *database.DB
}

// NewRoomRepository creates a new room repository
func NewRoomRepository(db *database.DB) *RoomRepository {
	return &RoomRepository{db: db}
}

// GetByID gets a storage room by ID
func (r *RoomRepository) GetByID(ctx context.Context, id string) (*StorageRoom, error) {
	var room StorageRoom
	query := `SELECT * FROM storage_rooms WHERE id = $1`
	if err := r.db.GetContext(ctx, &room, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.NotFound(fmt.Sprintf("storage room %s", id))
		}
		return nil, err
	}
	return &room, nil
}

// GetForUpdate locks the room row for the duration of the transaction.
// Volume consumption by concurrent lot creations serializes here.
func (r *RoomRepository) GetForUpdate(ctx context.Context, q sqlx.ExtContext, id string) (*StorageRoom, error) {
	var room StorageRoom
	query := `SELECT * FROM storage_rooms WHERE id = $1 FOR UPDATE`
	if err := sqlx.GetContext(ctx, q, &room, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.NotFound(fmt.Sprintf("storage room %s", id))
		}
		return nil, err
	}
	return &room, nil
}

// SetRemainingVolume writes a new remaining volume for a locked room row
func (r *RoomRepository) SetRemainingVolume(ctx context.Context, q sqlx.ExtContext, id string, remaining decimal.Decimal) error {
	query := `UPDATE storage_rooms SET remaining_volume = $2 WHERE id = $1`

	result, err := q.ExecContext(ctx, query, id, remaining)
	if err != nil {
		return errors.System(err)
	}

	affected, _ := result.RowsAffected()
	if affected == 0 {
		return errors.System(fmt.Errorf("storage room %s update returned no result", id))
	}

	return nil
}
