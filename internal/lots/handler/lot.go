package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/pharmadisti/pharmadisti-backend/internal/lots/service"
	"github.com/pharmadisti/pharmadisti-backend/pkg/httputil"
	"github.com/pharmadisti/pharmadisti-backend/pkg/logger"
)

// LotHandler handles product lot endpoints
type LotHandler struct {
	service *service.LotService
	logger  *logger.Logger
}

// NewLotHandler creates a new lot handler
func NewLotHandler(svc *service.LotService, log *logger.Logger) *LotHandler {
	return &LotHandler{
		service: svc,
		logger:  log,
	}
}

type createLotRequest struct {
	LotBatchID       string          `json:"lot_batch_id" validate:"required,uuid"`
	ProductID        string          `json:"product_id" validate:"required,uuid"`
	StorageRoomID    string          `json:"storage_room_id" validate:"required"`
	ManufacturedDate time.Time       `json:"manufactured_date" validate:"required"`
	ExpiredDate      time.Time       `json:"expired_date" validate:"required"`
	SupplyPrice      decimal.Decimal `json:"supply_price"`
	Quantity         int             `json:"quantity" validate:"gte=0"`
}

// Create creates a batch of product lots
func (h *LotHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Lots []createLotRequest `json:"lots" validate:"required,min=1,dive"`
	}
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.Error(w, err)
		return
	}
	if err := httputil.Validate(&req); err != nil {
		httputil.Error(w, err)
		return
	}

	inputs := make([]service.CreateLotInput, len(req.Lots))
	for i, l := range req.Lots {
		inputs[i] = service.CreateLotInput{
			LotBatchID:       l.LotBatchID,
			ProductID:        l.ProductID,
			StorageRoomID:    l.StorageRoomID,
			ManufacturedDate: l.ManufacturedDate,
			ExpiredDate:      l.ExpiredDate,
			SupplyPrice:      l.SupplyPrice,
			Quantity:         l.Quantity,
		}
	}

	lots, err := h.service.CreateLots(r.Context(), httputil.GetUserID(r.Context()), inputs)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.Created(w, lots)
}

// Get gets a lot by ID
func (h *LotHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	lot, err := h.service.GetLot(r.Context(), id)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, lot)
}

// Update updates the mutable fields of a lot
func (h *LotHandler) Update(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req struct {
		ManufacturedDate time.Time       `json:"manufactured_date" validate:"required"`
		ExpiredDate      time.Time       `json:"expired_date" validate:"required"`
		SupplyPrice      decimal.Decimal `json:"supply_price"`
		Status           string          `json:"status" validate:"omitempty,oneof=active expired depleted pending"`
		Quantity         *int            `json:"quantity"`
	}
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.Error(w, err)
		return
	}
	if err := httputil.Validate(&req); err != nil {
		httputil.Error(w, err)
		return
	}

	lot, err := h.service.UpdateLot(r.Context(), id, service.UpdateLotInput{
		ManufacturedDate: req.ManufacturedDate,
		ExpiredDate:      req.ExpiredDate,
		SupplyPrice:      req.SupplyPrice,
		Status:           req.Status,
		Quantity:         req.Quantity,
	})
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, lot)
}

// ListByRoom lists lots stored in a room
func (h *LotHandler) ListByRoom(w http.ResponseWriter, r *http.Request) {
	roomID := chi.URLParam(r, "id")

	lots, err := h.service.ListLotsByRoom(r.Context(), roomID)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, lots)
}
