package service

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/pharmadisti/pharmadisti-backend/internal/lots/events"
	"github.com/pharmadisti/pharmadisti-backend/internal/lots/repository"
	"github.com/pharmadisti/pharmadisti-backend/pkg/database"
	"github.com/pharmadisti/pharmadisti-backend/pkg/errors"
	"github.com/pharmadisti/pharmadisti-backend/pkg/logger"
)

// StockCheckService reconciles recorded lot quantities against physical
// counts and tracks damaged stock awaiting write-off.
type StockCheckService struct {
	db        *database.DB
	checkRepo *repository.NoteCheckRepository
	lotRepo   *repository.LotRepository
	roomRepo  *repository.RoomRepository
	publisher *events.LotEventPublisher
	logger    *logger.Logger
}

// NewStockCheckService creates a new stock check service
func NewStockCheckService(
	db *database.DB,
	checkRepo *repository.NoteCheckRepository,
	lotRepo *repository.LotRepository,
	roomRepo *repository.RoomRepository,
	publisher *events.LotEventPublisher,
	log *logger.Logger,
) *StockCheckService {
	return &StockCheckService{
		db:        db,
		checkRepo: checkRepo,
		lotRepo:   lotRepo,
		roomRepo:  roomRepo,
		publisher: publisher,
		logger:    log,
	}
}

// CheckDetailInput is one counted lot within a stock check
type CheckDetailInput struct {
	ProductLotID    string
	StorageQuantity int
	ActualQuantity  int
}

// CreateNoteCheckInput is one stock audit of a storage room
type CreateNoteCheckInput struct {
	StorageRoomID string
	Reason        string
	Details       []CheckDetailInput
}

// CreateNoteCheck registers a stock audit of one room. Every counted lot
// must belong to that room. The difference is clamped at zero: a physical
// count above the recorded quantity is not reported as a negative shortage.
// Header and details are persisted atomically.
func (s *StockCheckService) CreateNoteCheck(ctx context.Context, createdBy string, input CreateNoteCheckInput) (*repository.NoteCheckView, error) {
	if len(input.Details) == 0 {
		return nil, errors.BadRequest("at least one detail is required")
	}

	room, err := s.roomRepo.GetByID(ctx, input.StorageRoomID)
	if err != nil {
		return nil, err
	}

	check := &repository.NoteCheck{
		StorageRoomID: room.ID,
		Reason:        input.Reason,
		Result:        repository.CheckResultOK,
		CreatedBy:     createdBy,
	}

	details := make([]*repository.NoteCheckDetail, 0, len(input.Details))
	for _, d := range input.Details {
		lot, err := s.lotRepo.GetByID(ctx, d.ProductLotID)
		if err != nil {
			return nil, err
		}
		if lot.StorageRoomID != room.ID {
			return nil, errors.Validation(map[string]string{
				"product_lot_id": fmt.Sprintf("lot %s does not belong to storage room %s", lot.ID, room.ID),
			})
		}

		difference := d.StorageQuantity - d.ActualQuantity
		if difference < 0 {
			difference = 0
		}
		if difference > 0 {
			check.Result = repository.CheckResultShortage
		}

		details = append(details, &repository.NoteCheckDetail{
			ProductLotID:       lot.ID,
			StorageQuantity:    d.StorageQuantity,
			ActualQuantity:     d.ActualQuantity,
			DifferenceQuantity: difference,
		})
	}

	err = s.db.Transaction(ctx, func(tx *sqlx.Tx) error {
		if err := s.checkRepo.Create(ctx, tx, check); err != nil {
			return err
		}
		for _, detail := range details {
			detail.NoteCheckID = check.ID
			if err := s.checkRepo.InsertDetail(ctx, tx, detail); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.publisher.PublishCheckCreated(ctx, check)

	s.logger.Info().
		Str("check_id", check.ID).
		Str("storage_room_id", room.ID).
		Str("result", check.Result).
		Msg("note check created")

	return s.checkRepo.GetView(ctx, check.ID)
}

// GetNoteCheck gets a check with its details and display fields
func (s *StockCheckService) GetNoteCheck(ctx context.Context, id string) (*repository.NoteCheckView, error) {
	return s.checkRepo.GetView(ctx, id)
}

// MarkDamagedItemProcessed executes the write-off of one damaged item.
// A detail that has already been processed is rejected so the audit trail
// keeps a single, unambiguous write-off timestamp.
func (s *StockCheckService) MarkDamagedItemProcessed(ctx context.Context, detailID string) (*repository.NoteCheckDetail, error) {
	detail, err := s.checkRepo.GetDetailByID(ctx, detailID)
	if err != nil {
		return nil, err
	}
	if detail.Processed {
		return nil, errors.Conflict(fmt.Sprintf("note check detail %s has already been processed", detailID))
	}

	if err := s.checkRepo.MarkProcessed(ctx, detailID); err != nil {
		return nil, err
	}

	detail, err = s.checkRepo.GetDetailByID(ctx, detailID)
	if err != nil {
		return nil, err
	}

	s.publisher.PublishDamageProcessed(ctx, detail)

	s.logger.Info().
		Str("detail_id", detail.ID).
		Str("product_lot_id", detail.ProductLotID).
		Int("difference_quantity", detail.DifferenceQuantity).
		Msg("damaged item processed")

	return detail, nil
}

// GetUnprocessedDamagedItems lists damaged items awaiting write-off for one check
func (s *StockCheckService) GetUnprocessedDamagedItems(ctx context.Context, checkID string) ([]*repository.NoteCheckDetailView, error) {
	return s.checkRepo.ListUnprocessedByCheck(ctx, checkID)
}

// GetAllDamagedItems lists damaged items awaiting write-off across every check
func (s *StockCheckService) GetAllDamagedItems(ctx context.Context) ([]*repository.NoteCheckDetailView, error) {
	return s.checkRepo.ListAllDamaged(ctx)
}
