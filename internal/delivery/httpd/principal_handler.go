package httpd

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prk-tuition/homework-service/internal/models"
	"github.com/prk-tuition/homework-service/internal/service"
)

func (h *Handler) PublishAnnouncement(w http.ResponseWriter, r *http.Request) {
	var req models.AnnouncementRequest
	if err := decodeJSON(r, &req); err != nil {
		h.handleError(w, r, err)
		return
	}

	a, err := h.messageService.PublishAnnouncement(r.Context(), currentSession(r), &req)
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	writeCreated(w, a)
}

// TodayAnnouncement is public; an absent announcement is a null payload.
func (h *Handler) TodayAnnouncement(w http.ResponseWriter, r *http.Request) {
	writeSuccess(w, h.messageService.TodayAnnouncement(r.Context()))
}

func (h *Handler) SearchUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.messageService.SearchUsers(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	writeSuccess(w, nonNil(users))
}

func (h *Handler) SendInstruction(w http.ResponseWriter, r *http.Request) {
	var req models.InstructionRequest
	if err := decodeJSON(r, &req); err != nil {
		h.handleError(w, r, err)
		return
	}

	user, err := h.messageService.SendInstruction(r.Context(), currentSession(r), &req)
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	writeSuccess(w, user)
}

func (h *Handler) PendingInstruction(w http.ResponseWriter, r *http.Request) {
	resp, err := h.messageService.PendingInstruction(r.Context(), currentSession(r))
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	writeSuccess(w, resp)
}

func (h *Handler) ReplyInstruction(w http.ResponseWriter, r *http.Request) {
	var req models.InstructionReplyRequest
	if err := decodeJSON(r, &req); err != nil {
		h.handleError(w, r, err)
		return
	}

	if err := h.messageService.ReplyInstruction(r.Context(), currentSession(r), &req); err != nil {
		h.handleError(w, r, err)
		return
	}

	writeSuccess(w, map[string]string{"message": "reply sent"})
}

func (h *Handler) TeacherActivity(w http.ResponseWriter, r *http.Request) {
	activity, err := h.reportService.TeacherActivityToday(r.Context())
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	writeSuccess(w, nonNil(activity))
}

func (h *Handler) WeakestStudents(w http.ResponseWriter, r *http.Request) {
	n := getIntQueryParam(r, "n", service.DefaultWeakestN)

	entries, err := h.reportService.WeakestStudents(r.Context(), n)
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	writeSuccess(w, nonNil(entries))
}

func (h *Handler) StudentMarks(w http.ResponseWriter, r *http.Request) {
	marks, err := h.reportService.StudentMarks(r.Context(), chi.URLParam(r, "email"))
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	writeSuccess(w, nonNil(marks))
}

func (h *Handler) TeacherQuestions(w http.ResponseWriter, r *http.Request) {
	name := r.URL.Query().Get("name")
	if name == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}

	counts, err := h.reportService.TeacherQuestionsBySubject(r.Context(), name)
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	writeSuccess(w, nonNil(counts))
}
