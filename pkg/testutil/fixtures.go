package testutil

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ProductFixture represents test product data
type ProductFixture struct {
	ID            string
	Name          string
	Unit          string
	VolumePerUnit decimal.Decimal
}

// LotBatchFixture represents test lot batch data
type LotBatchFixture struct {
	ID      string
	LotCode string
}

// StorageRoomFixture represents test storage room data
type StorageRoomFixture struct {
	ID              string
	Name            string
	TotalVolume     decimal.Decimal
	RemainingVolume decimal.Decimal
}

// PurchaseOrderFixture represents test purchase order data
type PurchaseOrderFixture struct {
	ID     string
	POCode string
	Status string
	Lines  []PurchaseOrderLineFixture
}

// PurchaseOrderLineFixture represents one ordered product
type PurchaseOrderLineFixture struct {
	ID        string
	ProductID string
	Quantity  int
}

// ProductLotFixture represents test product lot data
type ProductLotFixture struct {
	ID               string
	LotBatchID       string
	ProductID        string
	StorageRoomID    string
	ManufacturedDate time.Time
	ExpiredDate      time.Time
	SupplyPrice      decimal.Decimal
	Quantity         int
	Status           string
}

// FixtureFactory creates test fixtures with sensible defaults
type FixtureFactory struct {
	sequence int
}

// NewFixtureFactory creates a new fixture factory
func NewFixtureFactory() *FixtureFactory {
	return &FixtureFactory{sequence: 0}
}

// nextSeq returns the next sequence number for unique values
func (f *FixtureFactory) nextSeq() int {
	f.sequence++
	return f.sequence
}

// Product creates a product fixture with defaults
func (f *FixtureFactory) Product(opts ...func(*ProductFixture)) ProductFixture {
	seq := f.nextSeq()

	product := ProductFixture{
		ID:            uuid.New().String(),
		Name:          fmt.Sprintf("Paracetamol %dmg", 100*seq),
		Unit:          "box",
		VolumePerUnit: decimal.NewFromFloat(0.5),
	}

	for _, opt := range opts {
		opt(&product)
	}

	return product
}

// WithVolumePerUnit sets the product's volume per unit
func WithVolumePerUnit(volume decimal.Decimal) func(*ProductFixture) {
	return func(p *ProductFixture) {
		p.VolumePerUnit = volume
	}
}

// WithProductName sets the product name
func WithProductName(name string) func(*ProductFixture) {
	return func(p *ProductFixture) {
		p.Name = name
	}
}

// LotBatch creates a lot batch fixture with defaults
func (f *FixtureFactory) LotBatch(opts ...func(*LotBatchFixture)) LotBatchFixture {
	seq := f.nextSeq()

	batch := LotBatchFixture{
		ID:      uuid.New().String(),
		LotCode: fmt.Sprintf("LOT-%04d", seq),
	}

	for _, opt := range opts {
		opt(&batch)
	}

	return batch
}

// WithLotCode sets the batch's lot code
func WithLotCode(code string) func(*LotBatchFixture) {
	return func(b *LotBatchFixture) {
		b.LotCode = code
	}
}

// StorageRoom creates a storage room fixture with defaults
func (f *FixtureFactory) StorageRoom(opts ...func(*StorageRoomFixture)) StorageRoomFixture {
	seq := f.nextSeq()

	room := StorageRoomFixture{
		ID:              uuid.New().String(),
		Name:            fmt.Sprintf("Storage Room %d", seq),
		TotalVolume:     decimal.NewFromInt(1000),
		RemainingVolume: decimal.NewFromInt(1000),
	}

	for _, opt := range opts {
		opt(&room)
	}

	return room
}

// WithRemainingVolume sets the room's remaining volume
func WithRemainingVolume(volume decimal.Decimal) func(*StorageRoomFixture) {
	return func(r *StorageRoomFixture) {
		r.RemainingVolume = volume
	}
}

// WithRoomName sets the storage room name
func WithRoomName(name string) func(*StorageRoomFixture) {
	return func(r *StorageRoomFixture) {
		r.Name = name
	}
}

// PurchaseOrder creates a purchase order fixture with defaults.
// Lines default to a single product; pass options to override.
func (f *FixtureFactory) PurchaseOrder(opts ...func(*PurchaseOrderFixture)) PurchaseOrderFixture {
	seq := f.nextSeq()

	po := PurchaseOrderFixture{
		ID:     uuid.New().String(),
		POCode: fmt.Sprintf("PO-%04d", seq),
		Status: "open",
	}

	for _, opt := range opts {
		opt(&po)
	}

	return po
}

// WithLine appends an ordered line to the purchase order
func WithLine(productID string, quantity int) func(*PurchaseOrderFixture) {
	return func(po *PurchaseOrderFixture) {
		po.Lines = append(po.Lines, PurchaseOrderLineFixture{
			ID:        uuid.New().String(),
			ProductID: productID,
			Quantity:  quantity,
		})
	}
}

// ProductLot creates a product lot fixture with defaults
func (f *FixtureFactory) ProductLot(batchID, productID, roomID string, opts ...func(*ProductLotFixture)) ProductLotFixture {
	lot := ProductLotFixture{
		ID:               uuid.New().String(),
		LotBatchID:       batchID,
		ProductID:        productID,
		StorageRoomID:    roomID,
		ManufacturedDate: time.Now().AddDate(0, -1, 0),
		ExpiredDate:      time.Now().AddDate(1, 0, 0),
		SupplyPrice:      decimal.NewFromFloat(9.90),
		Quantity:         0,
		Status:           "pending",
	}

	for _, opt := range opts {
		opt(&lot)
	}

	return lot
}

// WithQuantity sets the lot quantity and a matching status
func WithQuantity(quantity int) func(*ProductLotFixture) {
	return func(l *ProductLotFixture) {
		l.Quantity = quantity
		if quantity > 0 {
			l.Status = "active"
		}
	}
}

// WithExpiredDate sets the lot expiry date
func WithExpiredDate(date time.Time) func(*ProductLotFixture) {
	return func(l *ProductLotFixture) {
		l.ExpiredDate = date
	}
}
