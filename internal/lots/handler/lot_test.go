package handler_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pharmadisti/pharmadisti-backend/internal/lots/handler"
	"github.com/pharmadisti/pharmadisti-backend/pkg/httputil"
	"github.com/pharmadisti/pharmadisti-backend/pkg/logger"
)

// Validation failures never reach the service layer, so the handler can run
// against a nil service in these tests.
func newLotHandler() *handler.LotHandler {
	return handler.NewLotHandler(nil, logger.New("test", "test"))
}

func decodeResponse(t *testing.T, rec *httptest.ResponseRecorder) httputil.Response {
	t.Helper()
	var resp httputil.Response
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	return resp
}

func TestLotHandler_Create_InvalidJSON(t *testing.T) {
	h := newLotHandler()

	req := httptest.NewRequest(http.MethodPost, "/api/v1/lots", strings.NewReader("{not json"))
	rec := httptest.NewRecorder()

	h.Create(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	resp := decodeResponse(t, rec)
	assert.False(t, resp.Success)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "BAD_REQUEST", resp.Error.Code)
}

func TestLotHandler_Create_EmptyLots(t *testing.T) {
	h := newLotHandler()

	req := httptest.NewRequest(http.MethodPost, "/api/v1/lots", strings.NewReader(`{"lots": []}`))
	rec := httptest.NewRecorder()

	h.Create(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	resp := decodeResponse(t, rec)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "VALIDATION_ERROR", resp.Error.Code)
}

func TestLotHandler_Create_MissingFields(t *testing.T) {
	h := newLotHandler()

	body := `{"lots": [{"storage_room_id": "room-1", "quantity": 10}]}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/lots", strings.NewReader(body))
	rec := httptest.NewRecorder()

	h.Create(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	resp := decodeResponse(t, rec)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "VALIDATION_ERROR", resp.Error.Code)
	assert.NotEmpty(t, resp.Error.Details)
}

func TestLotHandler_Create_NegativeQuantity(t *testing.T) {
	h := newLotHandler()

	body := `{"lots": [{
		"lot_batch_id": "6ba7b810-9dad-11d1-80b4-00c04fd430c8",
		"product_id": "6ba7b811-9dad-11d1-80b4-00c04fd430c8",
		"storage_room_id": "room-1",
		"manufactured_date": "2026-01-01T00:00:00Z",
		"expired_date": "2027-01-01T00:00:00Z",
		"quantity": -5
	}]}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/lots", strings.NewReader(body))
	rec := httptest.NewRecorder()

	h.Create(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	resp := decodeResponse(t, rec)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "VALIDATION_ERROR", resp.Error.Code)
}

func TestLotHandler_Update_InvalidStatus(t *testing.T) {
	h := newLotHandler()

	body := `{
		"manufactured_date": "2026-01-01T00:00:00Z",
		"expired_date": "2027-01-01T00:00:00Z",
		"status": "misplaced"
	}`
	req := httptest.NewRequest(http.MethodPut, "/api/v1/lots/abc", strings.NewReader(body))
	rec := httptest.NewRecorder()

	h.Update(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	resp := decodeResponse(t, rec)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "VALIDATION_ERROR", resp.Error.Code)
}
