package httpd

import (
	"net/http"

	"github.com/prk-tuition/homework-service/internal/models"
)

func (h *Handler) PendingHomework(w http.ResponseWriter, r *http.Request) {
	pending, err := h.homeworkService.PendingHomework(r.Context(), currentSession(r))
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	writeSuccess(w, nonNil(pending))
}

func (h *Handler) SubmitAnswer(w http.ResponseWriter, r *http.Request) {
	var req models.SubmitAnswerRequest
	if err := decodeJSON(r, &req); err != nil {
		h.handleError(w, r, err)
		return
	}

	answer, err := h.homeworkService.SubmitAnswer(r.Context(), currentSession(r), &req)
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	writeCreated(w, answer)
}

func (h *Handler) RevisionZone(w http.ResponseWriter, r *http.Request) {
	items, err := h.homeworkService.RevisionZone(r.Context(), currentSession(r))
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	writeSuccess(w, nonNil(items))
}

func (h *Handler) StudentPerformance(w http.ResponseWriter, r *http.Request) {
	averages, err := h.reportService.StudentPerformance(r.Context(), currentSession(r))
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	writeSuccess(w, nonNil(averages))
}

func (h *Handler) ClassLeaderboard(w http.ResponseWriter, r *http.Request) {
	board, err := h.reportService.ClassLeaderboard(r.Context(), currentSession(r))
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	writeSuccess(w, board)
}

func nonNil[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}
