package events

import (
	"context"
	"time"

	"github.com/pharmadisti/pharmadisti-backend/internal/lots/repository"
	"github.com/pharmadisti/pharmadisti-backend/pkg/logger"
	"github.com/pharmadisti/pharmadisti-backend/pkg/messaging"
)

// LotEventPublisher publishes lot-related events. All methods are nil-safe
// and log-and-continue: a broker outage never fails the business operation.
type LotEventPublisher struct {
	publisher *messaging.Publisher
	logger    *logger.Logger
}

// NewLotEventPublisher creates a new lot event publisher
func NewLotEventPublisher(rmq *messaging.RabbitMQ, log *logger.Logger) (*LotEventPublisher, error) {
	publisher, err := messaging.NewPublisher(rmq, messaging.ExchangeLotEvents, "lot-service", log)
	if err != nil {
		return nil, err
	}

	return &LotEventPublisher{
		publisher: publisher,
		logger:    log,
	}, nil
}

// PublishLotCreated publishes a lot created event
func (p *LotEventPublisher) PublishLotCreated(ctx context.Context, lot *repository.LotView, createdBy string) {
	if p == nil {
		return
	}

	data := messaging.LotCreatedEvent{
		LotID:         lot.ID,
		LotCode:       lot.LotCode,
		ProductID:     lot.ProductID,
		StorageRoomID: lot.StorageRoomID,
		Quantity:      lot.Quantity,
		CreatedBy:     createdBy,
	}

	if err := p.publisher.Publish(ctx, messaging.EventLotCreated, data); err != nil {
		p.logger.Error().Err(err).Str("lot_id", lot.ID).Msg("failed to publish lot created event")
	}
}

// PublishNoteReceived publishes a note received event
func (p *LotEventPublisher) PublishNoteReceived(ctx context.Context, note *repository.ReceivedNote) {
	if p == nil {
		return
	}

	data := messaging.NoteReceivedEvent{
		NoteID:          note.ID,
		NoteCode:        note.Code,
		PurchaseOrderID: note.PurchaseOrderID,
		Status:          note.Status,
		CreatedBy:       note.CreatedBy,
	}

	if err := p.publisher.Publish(ctx, messaging.EventNoteReceived, data); err != nil {
		p.logger.Error().Err(err).Str("note_id", note.ID).Msg("failed to publish note received event")
	}
}

// PublishCheckCreated publishes a check created event
func (p *LotEventPublisher) PublishCheckCreated(ctx context.Context, check *repository.NoteCheck) {
	if p == nil {
		return
	}

	data := messaging.CheckCreatedEvent{
		CheckID:       check.ID,
		StorageRoomID: check.StorageRoomID,
		Result:        check.Result,
		CreatedBy:     check.CreatedBy,
	}

	if err := p.publisher.Publish(ctx, messaging.EventCheckCreated, data); err != nil {
		p.logger.Error().Err(err).Str("check_id", check.ID).Msg("failed to publish check created event")
	}
}

// PublishDamageProcessed publishes a damage processed event
func (p *LotEventPublisher) PublishDamageProcessed(ctx context.Context, detail *repository.NoteCheckDetail) {
	if p == nil {
		return
	}

	data := messaging.DamageProcessedEvent{
		DetailID:           detail.ID,
		ProductLotID:       detail.ProductLotID,
		DifferenceQuantity: detail.DifferenceQuantity,
	}

	if err := p.publisher.Publish(ctx, messaging.EventDamageProcessed, data); err != nil {
		p.logger.Error().Err(err).Str("detail_id", detail.ID).Msg("failed to publish damage processed event")
	}
}

// PublishLotsExpired publishes the outcome of an expiry sweep
func (p *LotEventPublisher) PublishLotsExpired(ctx context.Context, count int64) {
	if p == nil {
		return
	}

	data := messaging.LotsExpiredEvent{
		Count:   count,
		SweptAt: time.Now().UTC(),
	}

	if err := p.publisher.Publish(ctx, messaging.EventLotsExpired, data); err != nil {
		p.logger.Error().Err(err).Int64("count", count).Msg("failed to publish lots expired event")
	}
}
