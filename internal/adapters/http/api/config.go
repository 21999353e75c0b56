package api

import (
	"context"
	"net/http"

	"github.com/okian/nrtgrade/internal/adapters/repository"
	"github.com/okian/nrtgrade/internal/domain/grading"
)

// ConfigDependencies exposes the grading rules and the cycles on the sheet.
type ConfigDependencies interface {
	GradingConfig() grading.Configuration
	Cycles(ctx context.Context) []repository.CycleSummary
}

// ConfigHandler serves read-only service metadata.
type ConfigHandler struct {
	deps ConfigDependencies
}

// NewConfigHandler creates a new config handler.
func NewConfigHandler(deps ConfigDependencies) *ConfigHandler {
	return &ConfigHandler{deps: deps}
}

type cyclesResponse struct {
	Cycles []repository.CycleSummary `json:"cycles"`
}

// HandleGetGradingConfig handles GET /grading-config requests.
func (h *ConfigHandler) HandleGetGradingConfig(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.deps.GradingConfig())
}

// HandleGetCycles handles GET /cycles requests.
func (h *ConfigHandler) HandleGetCycles(w http.ResponseWriter, r *http.Request) {
	cycles := h.deps.Cycles(r.Context())
	if cycles == nil {
		cycles = []repository.CycleSummary{}
	}
	writeJSON(w, http.StatusOK, cyclesResponse{Cycles: cycles})
}
