package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/pharmadisti/pharmadisti-backend/internal/lots/events"
	"github.com/pharmadisti/pharmadisti-backend/internal/lots/repository"
	"github.com/pharmadisti/pharmadisti-backend/pkg/database"
	"github.com/pharmadisti/pharmadisti-backend/pkg/errors"
	"github.com/pharmadisti/pharmadisti-backend/pkg/logger"
)

// Receiving outcome messages, surfaced alongside the created note
const (
	MessageOrderComplete = "purchase order fully received"
	MessageOrderShortage = "purchase order partially received; shortage recorded"
)

// ReceivingService converts goods-receipt events into lot quantity
// increments and tracks purchase order fulfillment.
//
// Received notes form an append-only ledger per purchase order. Fulfillment
// is recomputed from the full ledger on every receipt instead of keeping a
// running total, so the counter can never drift from the receipts.
type ReceivingService struct {
	db        *database.DB
	noteRepo  *repository.ReceivedNoteRepository
	poRepo    *repository.PurchaseOrderRepository
	lotRepo   *repository.LotRepository
	publisher *events.LotEventPublisher
	logger    *logger.Logger
}

// NewReceivingService creates a new receiving service
func NewReceivingService(
	db *database.DB,
	noteRepo *repository.ReceivedNoteRepository,
	poRepo *repository.PurchaseOrderRepository,
	lotRepo *repository.LotRepository,
	publisher *events.LotEventPublisher,
	log *logger.Logger,
) *ReceivingService {
	return &ReceivingService{
		db:        db,
		noteRepo:  noteRepo,
		poRepo:    poRepo,
		lotRepo:   lotRepo,
		publisher: publisher,
		logger:    log,
	}
}

// ReceivedDetailInput is one lot-quantity increment within a receipt
type ReceivedDetailInput struct {
	ProductLotID   string
	ActualReceived int
}

// CreateReceivedNoteInput is one goods-receipt event
type CreateReceivedNoteInput struct {
	PurchaseOrderID string
	Details         []ReceivedDetailInput
}

// CreateReceivedNote registers a goods receipt against a purchase order.
//
// Every lot increment, the note with its details, and the resulting status
// classification commit together or not at all. A shortage is a valid
// terminal business state, not an error: the note comes back with status
// "shortage" and a distinguishing message, and the caller sees success.
func (s *ReceivingService) CreateReceivedNote(ctx context.Context, createdBy string, input CreateReceivedNoteInput) (*repository.ReceivedNoteView, string, error) {
	if len(input.Details) == 0 {
		return nil, "", errors.BadRequest("at least one detail is required")
	}
	for _, d := range input.Details {
		if d.ActualReceived < 1 {
			return nil, "", errors.Validation(map[string]string{
				"actual_received": fmt.Sprintf("must be at least 1 for lot %s", d.ProductLotID),
			})
		}
	}

	po, err := s.poRepo.GetByID(ctx, input.PurchaseOrderID)
	if err != nil {
		return nil, "", err
	}

	note := &repository.ReceivedNote{
		Code:            generateNoteCode(),
		PurchaseOrderID: po.ID,
		CreatedBy:       createdBy,
	}

	var message string

	err = s.db.Transaction(ctx, func(tx *sqlx.Tx) error {
		if err := s.noteRepo.Create(ctx, tx, note); err != nil {
			return err
		}

		for _, d := range input.Details {
			// Lock the lot row so a concurrent receipt against the same
			// lot cannot interleave its read-modify-write with ours.
			lot, err := s.lotRepo.GetForUpdate(ctx, tx, d.ProductLotID)
			if err != nil {
				return err
			}

			if err := s.lotRepo.SetQuantity(ctx, tx, lot.ID, lot.Quantity+d.ActualReceived); err != nil {
				return err
			}

			detail := &repository.ReceivedNoteDetail{
				ReceivedNoteID: note.ID,
				ProductLotID:   lot.ID,
				ActualReceived: d.ActualReceived,
			}
			if err := s.noteRepo.InsertDetail(ctx, tx, detail); err != nil {
				return err
			}
		}

		received, err := s.noteRepo.CumulativeReceived(ctx, tx, po.ID)
		if err != nil {
			return err
		}

		if orderFulfilled(po, received) {
			note.Status = repository.NoteStatusComplete
			message = MessageOrderComplete

			if po.Status != repository.POStatusComplete {
				if err := s.poRepo.SetStatus(ctx, tx, po.ID, repository.POStatusComplete); err != nil {
					return err
				}
			}
		} else {
			note.Status = repository.NoteStatusShortage
			message = MessageOrderShortage
		}

		return s.noteRepo.SetStatus(ctx, tx, note.ID, note.Status)
	})
	if err != nil {
		return nil, "", err
	}

	s.publisher.PublishNoteReceived(ctx, note)

	s.logger.Info().
		Str("note_id", note.ID).
		Str("purchase_order_id", po.ID).
		Str("status", note.Status).
		Msg("received note created")

	view, err := s.noteRepo.GetView(ctx, note.ID)
	if err != nil {
		return nil, "", err
	}

	return view, message, nil
}

// GetReceivedNote gets a note with its details and display fields
func (s *ReceivingService) GetReceivedNote(ctx context.Context, id string) (*repository.ReceivedNoteView, error) {
	return s.noteRepo.GetView(ctx, id)
}

// orderFulfilled reports whether every ordered line has been received in
// full across the order's entire receipt history.
func orderFulfilled(po *repository.PurchaseOrder, received map[string]int) bool {
	for _, line := range po.Lines {
		if received[line.ProductID] < line.Quantity {
			return false
		}
	}
	return true
}

func generateNoteCode() string {
	return "RN-" + strings.ToUpper(uuid.New().String()[:8])
}
