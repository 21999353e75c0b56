package api

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/okian/nrtgrade/internal/domain/grading"
)

// ResultDependencies defines the interface for graded reads.
type ResultDependencies interface {
	Results(ctx context.Context, cycle string, order grading.SortOrder) (*grading.Report, error)
	StudentResult(ctx context.Context, cycle, studentID string) (grading.ProcessedStudent, error)
	Statistics(ctx context.Context, cycle string) ([]grading.SubjectPopulationStats, error)
}

// ResultsHandler serves graded results and cohort statistics.
type ResultsHandler struct {
	deps ResultDependencies
}

// NewResultsHandler creates a new results handler.
func NewResultsHandler(deps ResultDependencies) *ResultsHandler {
	return &ResultsHandler{deps: deps}
}

type resultsResponse struct {
	Cycle string `json:"cycle"`
	Order string `json:"order"`
	*grading.Report
}

type statisticsResponse struct {
	Cycle      string                           `json:"cycle"`
	Statistics []grading.SubjectPopulationStats `json:"statistics"`
}

func cycleParam(r *http.Request) (string, error) {
	cycle := strings.TrimSpace(r.URL.Query().Get("cycle"))
	if cycle == "" {
		return "", fmt.Errorf("%w: missing cycle", ErrBadRequest)
	}
	return cycle, nil
}

// HandleGetResults handles GET /results?cycle=&order= requests.
func (h *ResultsHandler) HandleGetResults(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_results"
	cycle, err := cycleParam(r)
	if err != nil {
		writeServiceError(r.Context(), w, op, err)
		return
	}
	order, err := grading.ParseSortOrder(r.URL.Query().Get("order"))
	if err != nil {
		writeServiceError(r.Context(), w, op, err)
		return
	}
	report, err := h.deps.Results(r.Context(), cycle, order)
	if err != nil {
		writeServiceError(r.Context(), w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, resultsResponse{Cycle: cycle, Order: string(order), Report: report})
}

// HandleGetStudentResult handles GET /results/{student_id}?cycle= requests.
func (h *ResultsHandler) HandleGetStudentResult(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_student_result"
	cycle, err := cycleParam(r)
	if err != nil {
		writeServiceError(r.Context(), w, op, err)
		return
	}
	id := strings.TrimSpace(r.PathValue("student_id"))
	if id == "" {
		writeError(w, http.StatusBadRequest, "bad_request", ErrBadRequest)
		return
	}
	student, err := h.deps.StudentResult(r.Context(), cycle, id)
	if err != nil {
		writeServiceError(r.Context(), w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, student)
}

// HandleGetStatistics handles GET /statistics?cycle= requests.
func (h *ResultsHandler) HandleGetStatistics(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_statistics"
	cycle, err := cycleParam(r)
	if err != nil {
		writeServiceError(r.Context(), w, op, err)
		return
	}
	stats, err := h.deps.Statistics(r.Context(), cycle)
	if err != nil {
		writeServiceError(r.Context(), w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, statisticsResponse{Cycle: cycle, Statistics: stats})
}
