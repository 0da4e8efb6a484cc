package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pharmadisti/pharmadisti-backend/pkg/database"
	"github.com/pharmadisti/pharmadisti-backend/pkg/errors"
	"github.com/shopspring/decimal"
)

// Lot status values
const (
	LotStatusActive   = "active"
	LotStatusExpired  = "expired"
	LotStatusDepleted = "depleted"
	LotStatusPending  = "pending"
)

// ProductLot represents a quantity-tracked batch of one product stored in one room.
// Quantity is a ledger value: it is only moved by the receiving and stock flows,
// never written directly from the outside.
type ProductLot struct {
	ID               string          `db:"id" json:"id"`
	LotBatchID       string          `db:"lot_batch_id" json:"lot_batch_id"`
	ProductID        string          `db:"product_id" json:"product_id"`
	StorageRoomID    string          `db:"storage_room_id" json:"storage_room_id"`
	ManufacturedDate time.Time       `db:"manufactured_date" json:"manufactured_date"`
	ExpiredDate      time.Time       `db:"expired_date" json:"expired_date"`
	SupplyPrice      decimal.Decimal `db:"supply_price" json:"supply_price"`
	Quantity         int             `db:"quantity" json:"quantity"`
	Status           string          `db:"status" json:"status"`
	CreatedAt        time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time       `db:"updated_at" json:"updated_at"`
}

// LotView is a read-side projection of a lot with display fields joined in.
// Product name and lot code are never stored on the lot row.
type LotView struct {
	ProductLot
	ProductName string `db:"product_name" json:"product_name"`
	LotCode     string `db:"lot_code" json:"lot_code"`
}

// LotRepository handles product lot persistence
type LotRepository struct {
	db *database.DB
}

// NewLotRepository creates a new lot repository
func NewLotRepository(db *database.DB) *LotRepository {
	return &LotRepository{db: db}
}

// Create inserts a new product lot within the given transaction
func (r *LotRepository) Create(ctx context.Context, q sqlx.ExtContext, lot *ProductLot) error {
	if lot.ID == "" {
		lot.ID = uuid.New().String()
	}
	if lot.Status == "" {
		if lot.Quantity == 0 {
			lot.Status = LotStatusPending
		} else {
			lot.Status = LotStatusActive
		}
	}

	query := `
		INSERT INTO product_lots (
			id, lot_batch_id, product_id, storage_room_id,
			manufactured_date, expired_date, supply_price, quantity, status
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING created_at, updated_at
	`

	err := q.QueryRowxContext(ctx, query,
		lot.ID, lot.LotBatchID, lot.ProductID, lot.StorageRoomID,
		lot.ManufacturedDate, lot.ExpiredDate, lot.SupplyPrice, lot.Quantity, lot.Status,
	).Scan(&lot.CreatedAt, &lot.UpdatedAt)
	if err != nil {
		if mapped := database.MapPQError(err); mapped != nil {
			return mapped
		}
		return errors.System(err)
	}
	return nil
}

// GetByID gets a lot by ID
func (r *LotRepository) GetByID(ctx context.Context, id string) (*ProductLot, error) {
	var lot ProductLot
	query := `SELECT * FROM product_lots WHERE id = $1`
	if err := r.db.GetContext(ctx, &lot, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.NotFound(fmt.Sprintf("product lot %s", id))
		}
		return nil, err
	}
	return &lot, nil
}

// GetForUpdate locks the lot row for the duration of the transaction.
// Concurrent read-modify-write sequences on the same lot serialize here.
func (r *LotRepository) GetForUpdate(ctx context.Context, q sqlx.ExtContext, id string) (*ProductLot, error) {
	var lot ProductLot
	query := `SELECT * FROM product_lots WHERE id = $1 FOR UPDATE`
	if err := sqlx.GetContext(ctx, q, &lot, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.NotFound(fmt.Sprintf("product lot %s", id))
		}
		return nil, err
	}
	return &lot, nil
}

// SetQuantity writes a new ledger quantity for a locked lot row.
// A lot that reaches zero is marked depleted; a pending or depleted lot
// that receives stock becomes active.
func (r *LotRepository) SetQuantity(ctx context.Context, q sqlx.ExtContext, id string, quantity int) error {
	query := `
		UPDATE product_lots SET
			quantity = $2,
			status = CASE
				WHEN $2 = 0 THEN 'depleted'
				WHEN status IN ('pending', 'depleted') THEN 'active'
				ELSE status
			END,
			updated_at = NOW()
		WHERE id = $1
	`

	result, err := q.ExecContext(ctx, query, id, quantity)
	if err != nil {
		return errors.System(err)
	}

	affected, _ := result.RowsAffected()
	if affected == 0 {
		return errors.System(fmt.Errorf("product lot %s update returned no result", id))
	}

	return nil
}

// Update updates the mutable fields of a lot (price, dates, status).
// Quantity is deliberately not part of this statement.
func (r *LotRepository) Update(ctx context.Context, lot *ProductLot) error {
	query := `
		UPDATE product_lots SET
			manufactured_date = $2, expired_date = $3, supply_price = $4,
			status = $5, updated_at = NOW()
		WHERE id = $1
	`

	result, err := r.db.ExecContext(ctx, query,
		lot.ID, lot.ManufacturedDate, lot.ExpiredDate, lot.SupplyPrice, lot.Status,
	)
	if err != nil {
		return err
	}

	affected, _ := result.RowsAffected()
	if affected == 0 {
		return errors.NotFound(fmt.Sprintf("product lot %s", lot.ID))
	}

	return nil
}

const lotViewSelect = `
	SELECT pl.*, p.name AS product_name, lb.lot_code AS lot_code
	FROM product_lots pl
	JOIN products p ON p.id = pl.product_id
	JOIN lot_batches lb ON lb.id = pl.lot_batch_id
`

// GetView gets a lot with its display fields joined in
func (r *LotRepository) GetView(ctx context.Context, id string) (*LotView, error) {
	var view LotView
	query := lotViewSelect + ` WHERE pl.id = $1`
	if err := r.db.GetContext(ctx, &view, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.NotFound(fmt.Sprintf("product lot %s", id))
		}
		return nil, err
	}
	return &view, nil
}

// ListViewByRoom lists lots stored in a room, nearest expiry first
func (r *LotRepository) ListViewByRoom(ctx context.Context, roomID string) ([]*LotView, error) {
	var views []*LotView
	query := lotViewSelect + ` WHERE pl.storage_room_id = $1 ORDER BY pl.expired_date`
	if err := r.db.SelectContext(ctx, &views, query, roomID); err != nil {
		return nil, err
	}
	return views, nil
}

// MarkExpired flips active lots past their expiry date to expired.
// Returns the number of lots transitioned.
func (r *LotRepository) MarkExpired(ctx context.Context, now time.Time) (int64, error) {
	query := `
		UPDATE product_lots SET status = 'expired', updated_at = NOW()
		WHERE status = 'active' AND expired_date <= $1
	`

	result, err := r.db.ExecContext(ctx, query, now)
	if err != nil {
		return 0, err
	}

	affected, _ := result.RowsAffected()
	return affected, nil
}
