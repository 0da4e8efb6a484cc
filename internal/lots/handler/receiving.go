package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/pharmadisti/pharmadisti-backend/internal/lots/service"
	"github.com/pharmadisti/pharmadisti-backend/pkg/httputil"
	"github.com/pharmadisti/pharmadisti-backend/pkg/logger"
)

// ReceivingHandler handles received note endpoints
type ReceivingHandler struct {
	service *service.ReceivingService
	logger  *logger.Logger
}

// NewReceivingHandler creates a new receiving handler
func NewReceivingHandler(svc *service.ReceivingService, log *logger.Logger) *ReceivingHandler {
	return &ReceivingHandler{
		service: svc,
		logger:  log,
	}
}

type receivedDetailRequest struct {
	ProductLotID   string `json:"product_lot_id" validate:"required,uuid"`
	ActualReceived int    `json:"actual_received" validate:"required,min=1"`
}

// Create registers a goods receipt against a purchase order.
// A shortage outcome is still a 201: the response message distinguishes
// it from a complete receipt.
func (h *ReceivingHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req struct {
		PurchaseOrderID string                  `json:"purchase_order_id" validate:"required,uuid"`
		Details         []receivedDetailRequest `json:"details" validate:"required,min=1,dive"`
	}
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.Error(w, err)
		return
	}
	if err := httputil.Validate(&req); err != nil {
		httputil.Error(w, err)
		return
	}

	input := service.CreateReceivedNoteInput{
		PurchaseOrderID: req.PurchaseOrderID,
		Details:         make([]service.ReceivedDetailInput, len(req.Details)),
	}
	for i, d := range req.Details {
		input.Details[i] = service.ReceivedDetailInput{
			ProductLotID:   d.ProductLotID,
			ActualReceived: d.ActualReceived,
		}
	}

	note, message, err := h.service.CreateReceivedNote(r.Context(), httputil.GetUserID(r.Context()), input)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSONWithMessage(w, http.StatusCreated, note, message)
}

// Get gets a received note by ID
func (h *ReceivingHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	note, err := h.service.GetReceivedNote(r.Context(), id)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, note)
}
