package service

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"github.com/pharmadisti/pharmadisti-backend/internal/lots/events"
	"github.com/pharmadisti/pharmadisti-backend/internal/lots/repository"
	"github.com/pharmadisti/pharmadisti-backend/pkg/database"
	"github.com/pharmadisti/pharmadisti-backend/pkg/errors"
	"github.com/pharmadisti/pharmadisti-backend/pkg/logger"
)

// LotService handles product lot lifecycle logic
type LotService struct {
	db          *database.DB
	lotRepo     *repository.LotRepository
	roomRepo    *repository.RoomRepository
	catalogRepo *repository.CatalogRepository
	publisher   *events.LotEventPublisher
	logger      *logger.Logger
}

// NewLotService creates a new lot service
func NewLotService(
	db *database.DB,
	lotRepo *repository.LotRepository,
	roomRepo *repository.RoomRepository,
	catalogRepo *repository.CatalogRepository,
	publisher *events.LotEventPublisher,
	log *logger.Logger,
) *LotService {
	return &LotService{
		db:          db,
		lotRepo:     lotRepo,
		roomRepo:    roomRepo,
		catalogRepo: catalogRepo,
		publisher:   publisher,
		logger:      log,
	}
}

// CreateLotInput is one lot-creation request
type CreateLotInput struct {
	LotBatchID       string
	ProductID        string
	StorageRoomID    string
	ManufacturedDate time.Time
	ExpiredDate      time.Time
	SupplyPrice      decimal.Decimal
	Quantity         int
}

// UpdateLotInput carries the mutable fields of a lot. Quantity is carried
// only so direct changes can be detected and rejected.
type UpdateLotInput struct {
	ManufacturedDate time.Time
	ExpiredDate      time.Time
	SupplyPrice      decimal.Decimal
	Status           string
	Quantity         *int
}

// CreateLots registers a batch of product lots in a single transaction.
// Each lot consumes volume from its storage room; if any lot fails
// validation or the room runs out of volume, no lot from the batch is kept.
func (s *LotService) CreateLots(ctx context.Context, createdBy string, inputs []CreateLotInput) ([]*repository.LotView, error) {
	if len(inputs) == 0 {
		return nil, errors.BadRequest("at least one lot is required")
	}

	views := make([]*repository.LotView, 0, len(inputs))

	err := s.db.Transaction(ctx, func(tx *sqlx.Tx) error {
		for _, input := range inputs {
			view, err := s.createLot(ctx, tx, input)
			if err != nil {
				return err
			}
			views = append(views, view)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	for _, view := range views {
		s.publisher.PublishLotCreated(ctx, view, createdBy)
	}

	s.logger.Info().Int("count", len(views)).Msg("product lots created")
	return views, nil
}

func (s *LotService) createLot(ctx context.Context, tx *sqlx.Tx, input CreateLotInput) (*repository.LotView, error) {
	if input.StorageRoomID == "" {
		return nil, errors.BadRequest("storage room id is required")
	}
	if input.Quantity < 0 {
		return nil, errors.Validation(map[string]string{
			"quantity": "must not be negative",
		})
	}

	batch, err := s.catalogRepo.GetLotBatchByID(ctx, input.LotBatchID)
	if err != nil {
		return nil, err
	}

	product, err := s.catalogRepo.GetProductByID(ctx, input.ProductID)
	if err != nil {
		return nil, err
	}

	if input.ManufacturedDate.After(time.Now()) {
		return nil, errors.Validation(map[string]string{
			"manufactured_date": "must not be in the future",
		})
	}
	if !input.ExpiredDate.After(input.ManufacturedDate) {
		return nil, errors.Validation(map[string]string{
			"expired_date": "must be after the manufactured date",
		})
	}

	// Lock the room row so concurrent creations cannot both pass the
	// capacity check against the same remaining volume.
	room, err := s.roomRepo.GetForUpdate(ctx, tx, input.StorageRoomID)
	if err != nil {
		return nil, err
	}

	required := decimal.NewFromInt(int64(input.Quantity)).Mul(product.VolumePerUnit)
	if required.GreaterThan(room.RemainingVolume) {
		return nil, errors.CapacityExceeded(room.Name)
	}

	lot := &repository.ProductLot{
		LotBatchID:       batch.ID,
		ProductID:        product.ID,
		StorageRoomID:    room.ID,
		ManufacturedDate: input.ManufacturedDate,
		ExpiredDate:      input.ExpiredDate,
		SupplyPrice:      input.SupplyPrice,
		Quantity:         input.Quantity,
	}

	if err := s.lotRepo.Create(ctx, tx, lot); err != nil {
		return nil, err
	}

	if err := s.roomRepo.SetRemainingVolume(ctx, tx, room.ID, room.RemainingVolume.Sub(required)); err != nil {
		return nil, err
	}

	return &repository.LotView{
		ProductLot:  *lot,
		ProductName: product.Name,
		LotCode:     batch.LotCode,
	}, nil
}

// UpdateLot updates the mutable fields of a lot. Quantity is a ledger value
// moved only by the receiving and stock flows; a payload that tries to change
// it directly is rejected.
func (s *LotService) UpdateLot(ctx context.Context, id string, input UpdateLotInput) (*repository.LotView, error) {
	lot, err := s.lotRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if input.Quantity != nil && *input.Quantity != lot.Quantity {
		return nil, errors.Validation(map[string]string{
			"quantity": "quantity cannot be changed directly; it is maintained by receiving and stock check flows",
		})
	}

	if input.ManufacturedDate.After(time.Now()) {
		return nil, errors.Validation(map[string]string{
			"manufactured_date": "must not be in the future",
		})
	}
	if !input.ExpiredDate.After(input.ManufacturedDate) {
		return nil, errors.Validation(map[string]string{
			"expired_date": "must be after the manufactured date",
		})
	}

	lot.ManufacturedDate = input.ManufacturedDate
	lot.ExpiredDate = input.ExpiredDate
	lot.SupplyPrice = input.SupplyPrice
	if input.Status != "" {
		lot.Status = input.Status
	}

	if err := s.lotRepo.Update(ctx, lot); err != nil {
		return nil, err
	}

	return s.lotRepo.GetView(ctx, id)
}

// GetLot gets a lot with display fields
func (s *LotService) GetLot(ctx context.Context, id string) (*repository.LotView, error) {
	return s.lotRepo.GetView(ctx, id)
}

// ListLotsByRoom lists the lots stored in a room, nearest expiry first
func (s *LotService) ListLotsByRoom(ctx context.Context, roomID string) ([]*repository.LotView, error) {
	if _, err := s.roomRepo.GetByID(ctx, roomID); err != nil {
		return nil, err
	}
	return s.lotRepo.ListViewByRoom(ctx, roomID)
}

// MarkExpiredLots transitions active lots past their expiry date to expired
// and reports how many were affected. Driven by the expiry scheduler.
func (s *LotService) MarkExpiredLots(ctx context.Context) (int64, error) {
	count, err := s.lotRepo.MarkExpired(ctx, time.Now())
	if err != nil {
		return 0, err
	}

	if count > 0 {
		s.logger.Info().Int64("count", count).Msg("lots transitioned to expired")
		s.publisher.PublishLotsExpired(ctx, count)
	}

	return count, nil
}
