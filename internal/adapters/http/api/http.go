// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	service "github.com/okian/nrtgrade/internal/app"
	"github.com/okian/nrtgrade/internal/domain/grading"
	"github.com/okian/nrtgrade/pkg/logger"
)

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	ScoreDependencies
	ResultDependencies
	ConfigDependencies
	StatsProvider
}

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler  *HealthHandler
	statsHandler   *StatsHandler
	scoresHandler  *ScoresHandler
	resultsHandler *ResultsHandler
	configHandler  *ConfigHandler
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies) *Server {
	return &Server{
		healthHandler:  NewHealthHandler(),
		statsHandler:   NewStatsHandler(deps),
		scoresHandler:  NewScoresHandler(deps),
		resultsHandler: NewResultsHandler(deps),
		configHandler:  NewConfigHandler(deps),
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(_ context.Context, mux *http.ServeMux) {
	mux.HandleFunc("GET /healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("GET /stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))
	mux.HandleFunc("POST /scores", MetricsMiddleware(s.scoresHandler.HandlePostScore, "scores"))
	mux.HandleFunc("DELETE /scores", MetricsMiddleware(s.scoresHandler.HandleDeleteScore, "scores"))
	mux.HandleFunc("GET /results", MetricsMiddleware(s.resultsHandler.HandleGetResults, "results"))
	mux.HandleFunc("GET /results/{student_id}", MetricsMiddleware(s.resultsHandler.HandleGetStudentResult, "student_result"))
	mux.HandleFunc("GET /statistics", MetricsMiddleware(s.resultsHandler.HandleGetStatistics, "statistics"))
	mux.HandleFunc("GET /grading-config", MetricsMiddleware(s.configHandler.HandleGetGradingConfig, "grading_config"))
	mux.HandleFunc("GET /cycles", MetricsMiddleware(s.configHandler.HandleGetCycles, "cycles"))
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

// writeServiceError maps service errors onto HTTP statuses.
func writeServiceError(ctx context.Context, w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, ErrBadRequest),
		errors.Is(err, service.ErrInvalidSubmission),
		errors.Is(err, grading.ErrInvalidSortOrder),
		errors.Is(err, grading.ErrInvalidSubject):
		writeError(w, http.StatusBadRequest, "bad_request", err)
	case errors.Is(err, service.ErrNotFound):
		writeError(w, http.StatusNotFound, "not_found", err)
	case errors.Is(err, service.ErrBackpressure):
		writeError(w, http.StatusTooManyRequests, "backpressure", errors.Join(ErrBackpressure, err))
	case errors.Is(err, service.ErrNotStarted):
		writeError(w, http.StatusServiceUnavailable, "unavailable", err)
	default:
		logger.Get().Error(ctx, "request failed", logger.String("op", op), logger.Error(err))
		writeError(w, http.StatusInternalServerError, "internal_error", err)
	}
}
