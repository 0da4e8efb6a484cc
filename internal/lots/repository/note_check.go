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

// Note check result values
const (
	CheckResultOK       = "ok"
	CheckResultShortage = "shortage"
)

// NoteCheck is a physical stock audit of one storage room
type NoteCheck struct {
	ID            string    `db:"id" json:"id"`
	StorageRoomID string    `db:"storage_room_id" json:"storage_room_id"`
	Reason        string    `db:"reason" json:"reason"`
	Result        string    `db:"result" json:"result"`
	CreatedBy     string    `db:"created_by" json:"created_by"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
}

// NoteCheckDetail compares recorded quantity against a physical count for
// one lot. DifferenceQuantity is clamped at zero; the raw counted quantity
// stays on the row so an overcount remains reconstructible.
type NoteCheckDetail struct {
	ID                 string     `db:"id" json:"id"`
	NoteCheckID        string     `db:"note_check_id" json:"note_check_id"`
	ProductLotID       string     `db:"product_lot_id" json:"product_lot_id"`
	StorageQuantity    int        `db:"storage_quantity" json:"storage_quantity"`
	ActualQuantity     int        `db:"actual_quantity" json:"actual_quantity"`
	DifferenceQuantity int        `db:"difference_quantity" json:"difference_quantity"`
	Processed          bool       `db:"processed" json:"processed"`
	ProcessedAt        *time.Time `db:"processed_at" json:"processed_at,omitempty"`
}

// NoteCheckDetailView joins in lot and product display fields
type NoteCheckDetailView struct {
	NoteCheckDetail
	ProductName string `db:"product_name" json:"product_name"`
	LotCode     string `db:"lot_code" json:"lot_code"`
}

// NoteCheckView is the full check with details and the creator's display name
type NoteCheckView struct {
	NoteCheck
	CreatedByName string                 `db:"created_by_name" json:"created_by_name"`
	Details       []*NoteCheckDetailView `json:"details"`
}

// NoteCheckRepository handles note check persistence
type NoteCheckRepository struct {
	db *database.DB
}

// NewNoteCheckRepository creates a new note check repository
func NewNoteCheckRepository(db *database.DB) *NoteCheckRepository {
	return &NoteCheckRepository{db: db}
}

// Create inserts the check header within the given transaction
func (r *NoteCheckRepository) Create(ctx context.Context, q sqlx.ExtContext, check *NoteCheck) error {
	if check.ID == "" {
		check.ID = uuid.New().String()
	}

	query := `
		INSERT INTO note_checks (id, storage_room_id, reason, result, created_by)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at
	`

	err := q.QueryRowxContext(ctx, query,
		check.ID, check.StorageRoomID, check.Reason, check.Result, check.CreatedBy,
	).Scan(&check.CreatedAt)
	if err != nil {
		if mapped := database.MapPQError(err); mapped != nil {
			return mapped
		}
		return errors.System(err)
	}
	return nil
}

// InsertDetail inserts one detail row within the given transaction
func (r *NoteCheckRepository) InsertDetail(ctx context.Context, q sqlx.ExtContext, detail *NoteCheckDetail) error {
	if detail.ID == "" {
		detail.ID = uuid.New().String()
	}

	query := `
		INSERT INTO note_check_details (
			id, note_check_id, product_lot_id,
			storage_quantity, actual_quantity, difference_quantity, processed
		) VALUES ($1, $2, $3, $4, $5, $6, FALSE)
		RETURNING id
	`

	err := q.QueryRowxContext(ctx, query,
		detail.ID, detail.NoteCheckID, detail.ProductLotID,
		detail.StorageQuantity, detail.ActualQuantity, detail.DifferenceQuantity,
	).Scan(&detail.ID)
	if err != nil {
		if err == sql.ErrNoRows {
			return errors.System(fmt.Errorf("note check detail insert returned no result"))
		}
		if mapped := database.MapPQError(err); mapped != nil {
			return mapped
		}
		return errors.System(err)
	}
	return nil
}

// GetDetailByID gets a check detail by ID
func (r *NoteCheckRepository) GetDetailByID(ctx context.Context, id string) (*NoteCheckDetail, error) {
	var detail NoteCheckDetail
	query := `SELECT * FROM note_check_details WHERE id = $1`
	if err := r.db.GetContext(ctx, &detail, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.NotFound(fmt.Sprintf("note check detail %s", id))
		}
		return nil, err
	}
	return &detail, nil
}

// MarkProcessed sets the processed flag on an unprocessed detail.
// The processed guard in the WHERE clause keeps a concurrent second
// write-off from slipping through between read and update.
func (r *NoteCheckRepository) MarkProcessed(ctx context.Context, id string) error {
	query := `
		UPDATE note_check_details SET processed = TRUE, processed_at = NOW()
		WHERE id = $1 AND processed = FALSE
	`

	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return errors.System(err)
	}

	affected, _ := result.RowsAffected()
	if affected == 0 {
		return errors.Conflict(fmt.Sprintf("note check detail %s has already been processed", id))
	}

	return nil
}

const checkDetailViewSelect = `
	SELECT d.*, p.name AS product_name, lb.lot_code AS lot_code
	FROM note_check_details d
	JOIN product_lots pl ON pl.id = d.product_lot_id
	JOIN products p ON p.id = pl.product_id
	JOIN lot_batches lb ON lb.id = pl.lot_batch_id
`

// GetView gets a check with details and display fields joined in
func (r *NoteCheckRepository) GetView(ctx context.Context, id string) (*NoteCheckView, error) {
	var view NoteCheckView
	query := `
		SELECT c.*, COALESCE(u.first_name || ' ' || u.last_name, '') AS created_by_name
		FROM note_checks c
		LEFT JOIN user_cache u ON u.user_id = c.created_by
		WHERE c.id = $1
	`
	if err := r.db.GetContext(ctx, &view, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.NotFound(fmt.Sprintf("note check %s", id))
		}
		return nil, err
	}

	detailsQuery := checkDetailViewSelect + ` WHERE d.note_check_id = $1 ORDER BY d.id`
	if err := r.db.SelectContext(ctx, &view.Details, detailsQuery, id); err != nil {
		return nil, err
	}

	return &view, nil
}

// ListUnprocessedByCheck lists damaged items still awaiting write-off for one check
func (r *NoteCheckRepository) ListUnprocessedByCheck(ctx context.Context, checkID string) ([]*NoteCheckDetailView, error) {
	var details []*NoteCheckDetailView
	query := checkDetailViewSelect + `
		WHERE d.note_check_id = $1 AND d.difference_quantity > 0 AND d.processed = FALSE
		ORDER BY d.id
	`
	if err := r.db.SelectContext(ctx, &details, query, checkID); err != nil {
		return nil, err
	}
	return details, nil
}

// ListAllDamaged lists damaged items awaiting write-off across every check
func (r *NoteCheckRepository) ListAllDamaged(ctx context.Context) ([]*NoteCheckDetailView, error) {
	var details []*NoteCheckDetailView
	query := checkDetailViewSelect + `
		WHERE d.difference_quantity > 0 AND d.processed = FALSE
		ORDER BY d.id
	`
	if err := r.db.SelectContext(ctx, &details, query); err != nil {
		return nil, err
	}
	return details, nil
}
