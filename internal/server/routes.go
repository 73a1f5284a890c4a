package server

import (
	"net/http"
	"strings"
)

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() *http.ServeMux {
	mux := http.NewServeMux()

	// WebSocket route (run progress events)
	mux.HandleFunc("/ws", s.app.WSHandler.HandleWebSocket)

	// API routes - Forecast runs
	mux.HandleFunc("/api/forecast", s.handleForecastCollection) // GET (list), POST (submit)
	mux.HandleFunc("/api/forecast/", s.handleForecastRoutes)    // GET /{id} and subpaths

	// API routes - System
	mux.HandleFunc("/api/capabilities", s.app.APIHandler.CapabilitiesHandler)
	mux.HandleFunc("/api/schema/forecast", s.app.APIHandler.SchemaHandler)
	mux.HandleFunc("/api/version", s.app.APIHandler.VersionHandler)
	mux.HandleFunc("/api/health", s.app.APIHandler.HealthHandler)
	mux.HandleFunc("/api/shutdown", s.ShutdownHandler) // Graceful shutdown endpoint (dev mode)

	// 404 handler for unmatched API routes
	mux.HandleFunc("/api/", s.app.APIHandler.NotFoundHandler)

	return mux
}

// handleForecastCollection routes /api/forecast requests (list and submit)
func (s *Server) handleForecastCollection(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case "GET":
		s.app.ForecastHandler.ListHandler(w, r)
	case "POST":
		s.app.ForecastHandler.SubmitHandler(w, r)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// handleForecastRoutes routes /api/forecast/{id} requests to the
// status, result, trace or report handler by path suffix.
func (s *Server) handleForecastRoutes(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Path

	switch {
	case strings.HasSuffix(path, "/result"):
		s.app.ForecastHandler.ResultHandler(w, r)
	case strings.HasSuffix(path, "/trace"):
		s.app.ForecastHandler.TraceHandler(w, r)
	case strings.HasSuffix(path, "/report"):
		s.app.ReportHandler.ReportHandler(w, r)
	default:
		// GET /api/forecast/{id}
		s.app.ForecastHandler.StatusHandler(w, r)
	}
}
