package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/pharmadisti/pharmadisti-backend/internal/lots/service"
	"github.com/pharmadisti/pharmadisti-backend/pkg/httputil"
	"github.com/pharmadisti/pharmadisti-backend/pkg/logger"
)

// StockCheckHandler handles note check endpoints
type StockCheckHandler struct {
	service *service.StockCheckService
	logger  *logger.Logger
}

// NewStockCheckHandler creates a new stock check handler
func NewStockCheckHandler(svc *service.StockCheckService, log *logger.Logger) *StockCheckHandler {
	return &StockCheckHandler{
		service: svc,
		logger:  log,
	}
}

type checkDetailRequest struct {
	ProductLotID    string `json:"product_lot_id" validate:"required,uuid"`
	StorageQuantity int    `json:"storage_quantity" validate:"gte=0"`
	ActualQuantity  int    `json:"actual_quantity" validate:"gte=0"`
}

// Create registers a stock audit of one storage room
func (h *StockCheckHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req struct {
		StorageRoomID string               `json:"storage_room_id" validate:"required,uuid"`
		Reason        string               `json:"reason" validate:"required"`
		Details       []checkDetailRequest `json:"details" validate:"required,min=1,dive"`
	}
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.Error(w, err)
		return
	}
	if err := httputil.Validate(&req); err != nil {
		httputil.Error(w, err)
		return
	}

	input := service.CreateNoteCheckInput{
		StorageRoomID: req.StorageRoomID,
		Reason:        req.Reason,
		Details:       make([]service.CheckDetailInput, len(req.Details)),
	}
	for i, d := range req.Details {
		input.Details[i] = service.CheckDetailInput{
			ProductLotID:    d.ProductLotID,
			StorageQuantity: d.StorageQuantity,
			ActualQuantity:  d.ActualQuantity,
		}
	}

	check, err := h.service.CreateNoteCheck(r.Context(), httputil.GetUserID(r.Context()), input)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.Created(w, check)
}

// Get gets a note check by ID
func (h *StockCheckHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	check, err := h.service.GetNoteCheck(r.Context(), id)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, check)
}

// Process executes the write-off of one damaged item
func (h *StockCheckHandler) Process(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	detail, err := h.service.MarkDamagedItemProcessed(r.Context(), id)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, detail)
}

// ListDamaged lists damaged items awaiting write-off for one check
func (h *StockCheckHandler) ListDamaged(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	details, err := h.service.GetUnprocessedDamagedItems(r.Context(), id)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, details)
}

// ListAllDamaged lists damaged items awaiting write-off across every check
func (h *StockCheckHandler) ListAllDamaged(w http.ResponseWriter, r *http.Request) {
	details, err := h.service.GetAllDamagedItems(r.Context())
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, details)
}
