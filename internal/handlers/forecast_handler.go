package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/augur/internal/interfaces"
	"github.com/ternarybob/augur/internal/models"
)

// ForecastHandler handles HTTP requests for forecast runs
type ForecastHandler struct {
	service interfaces.ForecastService
	store   interfaces.ForecastStore
	logger  arbor.ILogger
}

// NewForecastHandler creates a new ForecastHandler
func NewForecastHandler(service interfaces.ForecastService, store interfaces.ForecastStore, logger arbor.ILogger) *ForecastHandler {
	return &ForecastHandler{
		service: service,
		store:   store,
		logger:  logger,
	}
}

// SubmitHandler handles POST /api/forecast
// Accepts a run request, starts the pipeline in the background and returns
// 202 with the run id. Malformed requests are rejected with 400 before any
// pipeline state is created.
func (h *ForecastHandler) SubmitHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "POST") {
		return
	}

	var req models.RunRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}

	runID, err := h.service.Submit(r.Context(), req)
	if err != nil {
		var invalid *models.InputInvalidError
		if errors.As(err, &invalid) {
			WriteError(w, http.StatusBadRequest, invalid.Error())
			return
		}
		h.logger.Error().Err(err).Str("ticker", req.Ticker).Msg("Failed to accept forecast request")
		WriteError(w, http.StatusInternalServerError, "Failed to accept forecast request")
		return
	}

	WriteJSON(w, http.StatusAccepted, map[string]string{
		"run_id":     runID,
		"status":     models.RequestStatusPending,
		"status_url": "/api/forecast/" + runID,
	})
}

// StatusHandler handles GET /api/forecast/{id}
func (h *ForecastHandler) StatusHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "GET") {
		return
	}

	runID := PathParam(r.URL.Path, "/api/forecast/")
	if runID == "" {
		WriteError(w, http.StatusBadRequest, "Run ID is required")
		return
	}

	record, err := h.service.Status(r.Context(), runID)
	if err != nil {
		h.writeLookupError(w, err, runID)
		return
	}

	WriteJSON(w, http.StatusOK, record)
}

// ResultHandler handles GET /api/forecast/{id}/result
func (h *ForecastHandler) ResultHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "GET") {
		return
	}

	runID := PathParam(r.URL.Path, "/api/forecast/")
	if runID == "" {
		WriteError(w, http.StatusBadRequest, "Run ID is required")
		return
	}

	result, err := h.service.Result(r.Context(), runID)
	if err != nil {
		h.writeLookupError(w, err, runID)
		return
	}

	WriteJSON(w, http.StatusOK, result)
}

// TraceHandler handles GET /api/forecast/{id}/trace
// Returns the full conversation trace for a run in sequence order.
func (h *ForecastHandler) TraceHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "GET") {
		return
	}

	runID := PathParam(r.URL.Path, "/api/forecast/")
	if runID == "" {
		WriteError(w, http.StatusBadRequest, "Run ID is required")
		return
	}

	trace, err := h.store.GetTrace(r.Context(), runID)
	if err != nil {
		h.writeLookupError(w, err, runID)
		return
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"run_id": runID,
		"count":  len(trace),
		"events": trace,
	})
}

// ListHandler handles GET /api/forecast
// Supports ?ticker= to filter and ?limit= to cap the result count.
func (h *ForecastHandler) ListHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "GET") {
		return
	}

	ticker := r.URL.Query().Get("ticker")
	limit := QueryInt(r, "limit", 50)

	records, err := h.store.ListRequests(r.Context(), ticker, limit)
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to list forecast requests")
		WriteError(w, http.StatusInternalServerError, "Failed to list forecast requests")
		return
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"count": len(records),
		"runs":  records,
	})
}

// writeLookupError maps store lookup failures onto HTTP status codes.
func (h *ForecastHandler) writeLookupError(w http.ResponseWriter, err error, runID string) {
	if errors.Is(err, interfaces.ErrNotFound) {
		WriteError(w, http.StatusNotFound, "Run not found: "+runID)
		return
	}
	h.logger.Error().Err(err).Str("run_id", runID).Msg("Forecast lookup failed")
	WriteError(w, http.StatusInternalServerError, "Lookup failed")
}
