package handlers

import (
	"net/http"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/augur/internal/common"
	"github.com/ternarybob/augur/internal/interfaces"
	"github.com/ternarybob/augur/internal/schemas"
)

type APIHandler struct {
	service interfaces.ForecastService
	started time.Time
	logger  arbor.ILogger
}

func NewAPIHandler(service interfaces.ForecastService, logger arbor.ILogger) *APIHandler {
	return &APIHandler{
		service: service,
		started: time.Now(),
		logger:  logger,
	}
}

// VersionHandler returns version information
func (h *APIHandler) VersionHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "GET") {
		return
	}

	WriteJSON(w, http.StatusOK, map[string]string{
		"version":    common.GetVersion(),
		"build":      common.GetBuild(),
		"git_commit": common.GetGitCommit(),
	})
}

// HealthHandler returns health check status
func (h *APIHandler) HealthHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "GET") {
		return
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"status": "ok",
		"uptime": time.Since(h.started).Round(time.Second).String(),
	})
}

// CapabilitiesHandler handles GET /api/capabilities
// Reports the availability of the model backend, embeddings, OCR and the
// registered document sources so operators can see what a run can use.
func (h *APIHandler) CapabilitiesHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "GET") {
		return
	}

	caps := h.service.Capabilities(r.Context())
	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"capabilities": caps,
	})
}

// SchemaHandler handles GET /api/schema/forecast
// Serves the JSON Schema of the forecast result payload so consumers
// can validate results on their side.
func (h *APIHandler) SchemaHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "GET") {
		return
	}

	data, err := schemas.GetSchema("forecast_result.json")
	if err != nil {
		h.logger.Error().Err(err).Msg("Forecast schema asset missing")
		WriteError(w, http.StatusInternalServerError, "Schema unavailable")
		return
	}

	w.Header().Set("Content-Type", "application/schema+json")
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

// NotFoundHandler handles 404 errors with JSON response
func (h *APIHandler) NotFoundHandler(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusNotFound, map[string]interface{}{
		"error":   "Not Found",
		"path":    r.URL.Path,
		"message": "The requested endpoint does not exist",
	})
}
