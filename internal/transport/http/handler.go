package http

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"assessment-engine/internal/app"
	"assessment-engine/internal/domain"
)

// Handler exposes the submit / result / merit-list / review endpoints.
type Handler struct {
	service *app.AssessmentService
}

func NewHandler(service *app.AssessmentService) *Handler {
	return &Handler{service: service}
}

// Register wires the REST routes onto the mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/submissions", h.Submit)
	mux.HandleFunc("GET /api/results", h.GetResult)
	mux.HandleFunc("GET /api/assessments/{id}/meritlist", h.MeritList)
	mux.HandleFunc("POST /api/reviews", h.Review)
}

func (h *Handler) Submit(w http.ResponseWriter, r *http.Request) {
	var req app.SubmitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid submission payload")
		return
	}
	if req.UserID == "" || req.AssessmentID == "" {
		writeError(w, http.StatusBadRequest, "missing userId or assessmentId")
		return
	}

	result, err := h.service.Submit(r.Context(), req)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, result)
}

func (h *Handler) GetResult(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("userId")
	assessmentID := r.URL.Query().Get("assessmentId")
	if userID == "" || assessmentID == "" {
		writeError(w, http.StatusBadRequest, "missing userId or assessmentId")
		return
	}

	result, err := h.service.GetResult(r.Context(), userID, assessmentID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *Handler) MeritList(w http.ResponseWriter, r *http.Request) {
	assessmentID := r.PathValue("id")
	entries, err := h.service.MeritList(r.Context(), assessmentID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

func (h *Handler) Review(w http.ResponseWriter, r *http.Request) {
	var req app.ReviewRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid review payload")
		return
	}
	if req.SubmissionID == "" || req.Action == "" {
		writeError(w, http.StatusBadRequest, "missing resultId or action")
		return
	}

	result, err := h.service.Review(r.Context(), req)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// statusFor maps the error taxonomy to HTTP statuses. Denial reasons are
// user-visible outcomes, not server faults.
func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrAssessmentNotFound),
		errors.Is(err, domain.ErrResultNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrPaymentRequired):
		return http.StatusPaymentRequired
	case errors.Is(err, domain.ErrNoAttemptsLeft),
		errors.Is(err, domain.ErrNotYetOpen),
		errors.Is(err, domain.ErrWindowClosed):
		return http.StatusForbidden
	case errors.Is(err, domain.ErrDuplicateSubmission),
		errors.Is(err, domain.ErrInvalidReviewTransition),
		errors.Is(err, domain.ErrVersionConflict):
		return http.StatusConflict
	case errors.Is(err, domain.ErrUnknownQuestion):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func writeDomainError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		log.Printf("internal error: %v", err)
		writeError(w, status, "internal error")
		return
	}
	writeError(w, status, err.Error())
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorPayload{Message: message})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("write response: %v", err)
	}
}
