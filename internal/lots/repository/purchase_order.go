package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/pharmadisti/pharmadisti-backend/pkg/database"
	"github.com/pharmadisti/pharmadisti-backend/pkg/errors"
)

// Purchase order status values
const (
	POStatusOpen     = "open"
	POStatusComplete = "complete"
)

// PurchaseOrder is the order the receiving flow reconciles against.
// Order creation lives outside this service.
type PurchaseOrder struct {
	ID     string `db:"id" json:"id"`
	POCode string `db:"po_code" json:"po_code"`
	Status string `db:"status" json:"status"`

	Lines []PurchaseOrderLine `json:"lines"`
}

// PurchaseOrderLine is one ordered product and quantity
type PurchaseOrderLine struct {
	ID              string `db:"id" json:"id"`
	PurchaseOrderID string `db:"purchase_order_id" json:"purchase_order_id"`
	ProductID       string `db:"product_id" json:"product_id"`
	Quantity        int    `db:"quantity" json:"quantity"`
}

// PurchaseOrderRepository handles purchase order lookups and status updates
type PurchaseOrderRepository struct {
	db *database.DB
}

// NewPurchaseOrderRepository creates a new purchase order repository
func NewPurchaseOrderRepository(db *database.DB) *PurchaseOrderRepository {
	return &PurchaseOrderRepository{db: db}
}

// GetByID gets a purchase order with its lines
func (r *PurchaseOrderRepository) GetByID(ctx context.Context, id string) (*PurchaseOrder, error) {
	var po PurchaseOrder
	query := `SELECT id, po_code, status FROM purchase_orders WHERE id = $1`
	if err := r.db.GetContext(ctx, &po, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.NotFound(fmt.Sprintf("purchase order %s", id))
		}
		return nil, err
	}

	linesQuery := `
		SELECT id, purchase_order_id, product_id, quantity
		FROM purchase_order_lines
		WHERE purchase_order_id = $1
		ORDER BY id
	`
	if err := r.db.SelectContext(ctx, &po.Lines, linesQuery, id); err != nil {
		return nil, err
	}

	return &po, nil
}

// SetStatus updates the order status within the given transaction
func (r *PurchaseOrderRepository) SetStatus(ctx context.Context, q sqlx.ExtContext, id, status string) error {
	query := `UPDATE purchase_orders SET status = $2 WHERE id = $1`

	result, err := q.ExecContext(ctx, query, id, status)
	if err != nil {
		return errors.System(err)
	}

	affected, _ := result.RowsAffected()
	if affected == 0 {
		return errors.System(fmt.Errorf("purchase order %s update returned no result", id))
	}

	return nil
}
