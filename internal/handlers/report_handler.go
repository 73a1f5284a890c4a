package handlers

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/augur/internal/interfaces"
	"github.com/ternarybob/augur/internal/services/report"
)

// ReportHandler serves rendered forecast reports
type ReportHandler struct {
	store  interfaces.ForecastStore
	report *report.Service
	logger arbor.ILogger
}

// NewReportHandler creates a new ReportHandler
func NewReportHandler(store interfaces.ForecastStore, reportService *report.Service, logger arbor.ILogger) *ReportHandler {
	return &ReportHandler{
		store:  store,
		report: reportService,
		logger: logger,
	}
}

// ReportHandler handles GET /api/forecast/{id}/report
// Serves the stored result as a PDF, or as markdown with ?format=markdown.
func (h *ReportHandler) ReportHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "GET") {
		return
	}

	runID := PathParam(r.URL.Path, "/api/forecast/")
	if runID == "" {
		WriteError(w, http.StatusBadRequest, "Run ID is required")
		return
	}

	result, err := h.store.GetResult(r.Context(), runID)
	if err != nil {
		if errors.Is(err, interfaces.ErrNotFound) {
			WriteError(w, http.StatusNotFound, "No result for run: "+runID)
			return
		}
		h.logger.Error().Err(err).Str("run_id", runID).Msg("Failed to load result for report")
		WriteError(w, http.StatusInternalServerError, "Failed to load result")
		return
	}

	if r.URL.Query().Get("format") == "markdown" {
		w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(h.report.Markdown(result)))
		return
	}

	pdfBytes, err := h.report.RenderPDF(result)
	if err != nil {
		h.logger.Error().Err(err).Str("run_id", runID).Msg("Failed to render report PDF")
		WriteError(w, http.StatusInternalServerError, "Failed to render report")
		return
	}

	filename := fmt.Sprintf("%s-forecast-%s.pdf", result.Metadata.Ticker, runID)
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", `inline; filename="`+filename+`"`)
	w.WriteHeader(http.StatusOK)
	w.Write(pdfBytes)
}
