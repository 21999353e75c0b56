package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	service "github.com/okian/nrtgrade/internal/app"
	"github.com/okian/nrtgrade/internal/domain/grading"
	"github.com/okian/nrtgrade/internal/domain/model"
)

const maxBodyBytes = 1 << 20

// validate checks request structs. Field names in messages use the json tag.
var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// describe flattens validator output into one readable message.
func describe(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("%w: %w", ErrBadRequest, err)
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		if fe.Param() != "" {
			msgs = append(msgs, fmt.Sprintf("%s must satisfy %s=%s", fe.Field(), fe.Tag(), fe.Param()))
			continue
		}
		msgs = append(msgs, fmt.Sprintf("%s is %s", fe.Field(), fe.Tag()))
	}
	return fmt.Errorf("%w: %s", ErrBadRequest, strings.Join(msgs, "; "))
}

// scoreRequest mirrors the OpenAPI schema for POST /scores.
type scoreRequest struct {
	SubmissionID string   `json:"submission_id" validate:"omitempty,max=128"`
	Cycle        string   `json:"cycle" validate:"required,max=64"`
	StudentID    string   `json:"student_id" validate:"required,max=128"`
	StudentName  string   `json:"student_name" validate:"max=256"`
	Subject      string   `json:"subject" validate:"required"`
	SectionA     *float64 `json:"section_a" validate:"required,gte=0"`
	SectionB     *float64 `json:"section_b" validate:"required,gte=0"`
	SBA          *float64 `json:"sba" validate:"omitempty,gte=0"`
	Remark       string   `json:"remark" validate:"max=256"`
}

func (r *scoreRequest) submission() model.Submission {
	s := model.Submission{
		ID:          strings.TrimSpace(r.SubmissionID),
		Cycle:       r.Cycle,
		StudentID:   r.StudentID,
		StudentName: strings.TrimSpace(r.StudentName),
		Subject:     grading.Subject(r.Subject),
		Entry: grading.RawScoreEntry{
			SectionA: *r.SectionA,
			SectionB: *r.SectionB,
			Remark:   r.Remark,
		},
	}
	if r.SBA != nil {
		s.Entry.SBA = *r.SBA
	}
	return s
}

// deleteRequest identifies one raw entry for DELETE /scores.
type deleteRequest struct {
	Cycle     string `json:"cycle" validate:"required"`
	StudentID string `json:"student_id" validate:"required"`
	Subject   string `json:"subject" validate:"required"`
}

type ackResponse struct {
	Status       string `json:"status"`
	SubmissionID string `json:"submission_id"`
	Duplicate    bool   `json:"duplicate"`
}

// ScoreDependencies defines the interface for score intake.
type ScoreDependencies interface {
	Submit(ctx context.Context, s model.Submission) (service.Receipt, error)
	RemoveEntry(ctx context.Context, cycle, studentID string, subject grading.Subject) error
}

// ScoresHandler handles score submissions and removals.
type ScoresHandler struct {
	deps ScoreDependencies
}

// NewScoresHandler creates a new scores handler.
func NewScoresHandler(deps ScoreDependencies) *ScoresHandler {
	return &ScoresHandler{deps: deps}
}

// HandlePostScore handles POST /scores requests.
func (h *ScoresHandler) HandlePostScore(w http.ResponseWriter, r *http.Request) {
	const op = "api.post_score"
	var req scoreRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", fmt.Errorf("%w: %w", ErrBadRequest, err))
		return
	}
	if err := validate.Struct(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", describe(err))
		return
	}

	receipt, err := h.deps.Submit(r.Context(), req.submission())
	if err != nil {
		writeServiceError(r.Context(), w, op, err)
		return
	}
	if receipt.Duplicate {
		writeJSON(w, http.StatusOK, ackResponse{Status: "duplicate", SubmissionID: receipt.ID, Duplicate: true})
		return
	}
	writeJSON(w, http.StatusAccepted, ackResponse{Status: "accepted", SubmissionID: receipt.ID})
}

// HandleDeleteScore handles DELETE /scores?cycle=&student_id=&subject= requests.
func (h *ScoresHandler) HandleDeleteScore(w http.ResponseWriter, r *http.Request) {
	const op = "api.delete_score"
	q := r.URL.Query()
	req := deleteRequest{
		Cycle:     strings.TrimSpace(q.Get("cycle")),
		StudentID: strings.TrimSpace(q.Get("student_id")),
		Subject:   q.Get("subject"),
	}
	if err := validate.Struct(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", describe(err))
		return
	}
	subject, err := grading.ParseSubject(req.Subject)
	if err != nil {
		writeServiceError(r.Context(), w, op, err)
		return
	}
	if err := h.deps.RemoveEntry(r.Context(), req.Cycle, req.StudentID, subject); err != nil {
		writeServiceError(r.Context(), w, op, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
