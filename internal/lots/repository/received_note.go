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
)

// Received note status values
const (
	NoteStatusPending   = "pending"
	NoteStatusComplete  = "complete"
	NoteStatusShortage  = "shortage"
	NoteStatusCancelled = "cancelled"
)

// ReceivedNote records one goods-receipt event against a purchase order.
// Notes form an append-only ledger: cumulative fulfillment is always
// recomputed from the full history, never read from a running total.
type ReceivedNote struct {
	ID              string    `db:"id" json:"id"`
	Code            string    `db:"code" json:"code"`
	PurchaseOrderID string    `db:"purchase_order_id" json:"purchase_order_id"`
	Status          string    `db:"status" json:"status"`
	CreatedBy       string    `db:"created_by" json:"created_by"`
	CreatedAt       time.Time `db:"created_at" json:"created_at"`
}

// ReceivedNoteDetail is one lot-quantity increment within a note
type ReceivedNoteDetail struct {
	ID             string `db:"id" json:"id"`
	ReceivedNoteID string `db:"received_note_id" json:"received_note_id"`
	ProductLotID   string `db:"product_lot_id" json:"product_lot_id"`
	ActualReceived int    `db:"actual_received" json:"actual_received"`
}

// ReceivedNoteDetailView joins in lot and product display fields
type ReceivedNoteDetailView struct {
	ReceivedNoteDetail
	ProductName string `db:"product_name" json:"product_name"`
	LotCode     string `db:"lot_code" json:"lot_code"`
}

// ReceivedNoteView is the full note with details and the creator's display name
type ReceivedNoteView struct {
	ReceivedNote
	CreatedByName string                    `db:"created_by_name" json:"created_by_name"`
	Details       []*ReceivedNoteDetailView `json:"details"`
}

// ProductReceived is the cumulative received quantity for one product
type ProductReceived struct {
	ProductID string `db:"product_id"`
	Received  int    `db:"received"`
}

// ReceivedNoteRepository handles received note persistence
type ReceivedNoteRepository struct {
	db *database.DB
}

// NewReceivedNoteRepository creates a new received note repository
func NewReceivedNoteRepository(db *database.DB) *ReceivedNoteRepository {
	return &ReceivedNoteRepository{db: db}
}

// Create inserts the note header within the given transaction
func (r *ReceivedNoteRepository) Create(ctx context.Context, q sqlx.ExtContext, note *ReceivedNote) error {
	if note.ID == "" {
		note.ID = uuid.New().String()
	}
	if note.Status == "" {
		note.Status = NoteStatusPending
	}

	query := `
		INSERT INTO received_notes (id, code, purchase_order_id, status, created_by)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at
	`

	err := q.QueryRowxContext(ctx, query,
		note.ID, note.Code, note.PurchaseOrderID, note.Status, note.CreatedBy,
	).Scan(&note.CreatedAt)
	if err != nil {
		if mapped := database.MapPQError(err); mapped != nil {
			return mapped
		}
		return errors.System(err)
	}
	return nil
}

// InsertDetail inserts one detail row within the given transaction.
// The insert must hand back the generated row; an empty result is a
// persistence failure, not a silent no-op.
func (r *ReceivedNoteRepository) InsertDetail(ctx context.Context, q sqlx.ExtContext, detail *ReceivedNoteDetail) error {
	if detail.ID == "" {
		detail.ID = uuid.New().String()
	}

	query := `
		INSERT INTO received_note_details (id, received_note_id, product_lot_id, actual_received)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`

	err := q.QueryRowxContext(ctx, query,
		detail.ID, detail.ReceivedNoteID, detail.ProductLotID, detail.ActualReceived,
	).Scan(&detail.ID)
	if err != nil {
		if err == sql.ErrNoRows {
			return errors.System(fmt.Errorf("received note detail insert returned no result"))
		}
		if mapped := database.MapPQError(err); mapped != nil {
			return mapped
		}
		return errors.System(err)
	}
	return nil
}

// SetStatus updates the note status within the given transaction
func (r *ReceivedNoteRepository) SetStatus(ctx context.Context, q sqlx.ExtContext, id, status string) error {
	query := `UPDATE received_notes SET status = $2 WHERE id = $1`

	result, err := q.ExecContext(ctx, query, id, status)
	if err != nil {
		return errors.System(err)
	}

	affected, _ := result.RowsAffected()
	if affected == 0 {
		return errors.System(fmt.Errorf("received note %s update returned no result", id))
	}

	return nil
}

// CumulativeReceived aggregates the received quantity per product across
// every non-cancelled note ever issued against the purchase order.
// The receipt ledger is the source of truth for fulfillment.
func (r *ReceivedNoteRepository) CumulativeReceived(ctx context.Context, q sqlx.ExtContext, purchaseOrderID string) (map[string]int, error) {
	query := `
		SELECT pl.product_id AS product_id, COALESCE(SUM(d.actual_received), 0) AS received
		FROM received_note_details d
		JOIN received_notes n ON n.id = d.received_note_id
		JOIN product_lots pl ON pl.id = d.product_lot_id
		WHERE n.purchase_order_id = $1 AND n.status <> 'cancelled'
		GROUP BY pl.product_id
	`

	var rows []ProductReceived
	if err := sqlx.SelectContext(ctx, q, &rows, query, purchaseOrderID); err != nil {
		return nil, err
	}

	received := make(map[string]int, len(rows))
	for _, row := range rows {
		received[row.ProductID] = row.Received
	}
	return received, nil
}

// GetView gets a note with details and display fields joined in
func (r *ReceivedNoteRepository) GetView(ctx context.Context, id string) (*ReceivedNoteView, error) {
	var view ReceivedNoteView
	query := `
		SELECT n.*, COALESCE(u.first_name || ' ' || u.last_name, '') AS created_by_name
		FROM received_notes n
		LEFT JOIN user_cache u ON u.user_id = n.created_by
		WHERE n.id = $1
	`
	if err := r.db.GetContext(ctx, &view, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.NotFound(fmt.Sprintf("received note %s", id))
		}
		return nil, err
	}

	detailsQuery := `
		SELECT d.*, p.name AS product_name, lb.lot_code AS lot_code
		FROM received_note_details d
		JOIN product_lots pl ON pl.id = d.product_lot_id
		JOIN products p ON p.id = pl.product_id
		JOIN lot_batches lb ON lb.id = pl.lot_batch_id
		WHERE d.received_note_id = $1
		ORDER BY d.id
	`
	if err := r.db.SelectContext(ctx, &view.Details, detailsQuery, id); err != nil {
		return nil, err
	}

	return &view, nil
}
