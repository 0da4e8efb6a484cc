package messaging

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Event types
const (
	// Lot events
	EventLotCreated      = "lots.lot.created"
	EventLotsExpired     = "lots.lot.expired"
	EventNoteReceived    = "lots.note.received"
	EventCheckCreated    = "lots.check.created"
	EventDamageProcessed = "lots.damage.processed"

	// User events (consumed; published by the user service)
	EventUserCreated = "user.created"
	EventUserUpdated = "user.updated"
	EventUserDeleted = "user.deleted"
)

// Exchange names
const (
	ExchangeLotEvents  = "lots.events"
	ExchangeUserEvents = "user.events"
)

// Event is the base event structure
type Event struct {
	ID            string          `json:"id"`
	Type          string          `json:"type"`
	Source        string          `json:"source"`
	Timestamp     time.Time       `json:"timestamp"`
	CorrelationID string          `json:"correlation_id"`
	Data          json.RawMessage `json:"data"`
}

// NewEvent creates a new event with the given type and data
func NewEvent(eventType, source, correlationID string, data interface{}) (*Event, error) {
	dataBytes, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}

	return &Event{
		ID:            uuid.New().String(),
		Type:          eventType,
		Source:        source,
		Timestamp:     time.Now().UTC(),
		CorrelationID: correlationID,
		Data:          dataBytes,
	}, nil
}

// UnmarshalData unmarshals the event data into the provided struct
func (e *Event) UnmarshalData(v interface{}) error {
	return json.Unmarshal(e.Data, v)
}

// Lot events

// LotCreatedEvent is published when product lots are registered
type LotCreatedEvent struct {
	LotID         string `json:"lot_id"`
	LotCode       string `json:"lot_code"`
	ProductID     string `json:"product_id"`
	StorageRoomID string `json:"storage_room_id"`
	Quantity      int    `json:"quantity"`
	CreatedBy     string `json:"created_by"`
}

// NoteReceivedEvent is published when a received note is registered
type NoteReceivedEvent struct {
	NoteID          string `json:"note_id"`
	NoteCode        string `json:"note_code"`
	PurchaseOrderID string `json:"purchase_order_id"`
	Status          string `json:"status"`
	CreatedBy       string `json:"created_by"`
}

// CheckCreatedEvent is published when a stock check is registered
type CheckCreatedEvent struct {
	CheckID       string `json:"check_id"`
	StorageRoomID string `json:"storage_room_id"`
	Result        string `json:"result"`
	CreatedBy     string `json:"created_by"`
}

// DamageProcessedEvent is published when a damaged item write-off is executed
type DamageProcessedEvent struct {
	DetailID           string `json:"detail_id"`
	ProductLotID       string `json:"product_lot_id"`
	DifferenceQuantity int    `json:"difference_quantity"`
}

// LotsExpiredEvent is published after an expiry sweep transitions lots
type LotsExpiredEvent struct {
	Count   int64     `json:"count"`
	SweptAt time.Time `json:"swept_at"`
}

// User events (consumed)

// UserCreatedEvent is published by the user service when a user is created
type UserCreatedEvent struct {
	UserID    string  `json:"user_id"`
	Email     string  `json:"email"`
	FirstName string  `json:"first_name"`
	LastName  string  `json:"last_name"`
	RoleName  *string `json:"role_name,omitempty"`
}

// UserUpdatedEvent is published by the user service when a user is updated
type UserUpdatedEvent struct {
	UserID string         `json:"user_id"`
	Fields map[string]any `json:"fields"`
}

// UserDeletedEvent is published by the user service when a user is deleted
type UserDeletedEvent struct {
	UserID string `json:"user_id"`
}
