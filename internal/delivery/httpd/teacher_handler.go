package httpd

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prk-tuition/homework-service/internal/models"
	"github.com/prk-tuition/homework-service/internal/service"
)

func (h *Handler) CreateHomework(w http.ResponseWriter, r *http.Request) {
	var req models.CreateHomeworkRequest
	if err := decodeJSON(r, &req); err != nil {
		h.handleError(w, r, err)
		return
	}

	questions, err := h.homeworkService.CreateHomework(r.Context(), currentSession(r), &req)
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	writeCreated(w, nonNil(questions))
}

func (h *Handler) TodaySummary(w http.ResponseWriter, r *http.Request) {
	counts, err := h.homeworkService.TodaySummary(r.Context(), currentSession(r))
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	writeSuccess(w, nonNil(counts))
}

func (h *Handler) QuestionsFor(w http.ResponseWriter, r *http.Request) {
	date, err := getDateQueryParam(r, "date")
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	q := r.URL.Query()
	questions, err := h.homeworkService.QuestionsFor(r.Context(), q.Get("class"), q.Get("subject"), date)
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	writeSuccess(w, nonNil(questions))
}

func (h *Handler) UngradedAnswers(w http.ResponseWriter, r *http.Request) {
	groups, err := h.homeworkService.UngradedAnswers(r.Context(), currentSession(r))
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	writeSuccess(w, nonNil(groups))
}

func (h *Handler) GradeAnswer(w http.ResponseWriter, r *http.Request) {
	var req models.GradeAnswerRequest
	if err := decodeJSON(r, &req); err != nil {
		h.handleError(w, r, err)
		return
	}

	answer, err := h.homeworkService.GradeAnswer(r.Context(), currentSession(r), chi.URLParam(r, "answer_id"), &req)
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	writeSuccess(w, answer)
}

func (h *Handler) HomeworkReport(w http.ResponseWriter, r *http.Request) {
	from, err := getDateQueryParam(r, "from")
	if err != nil {
		h.handleError(w, r, err)
		return
	}
	to, err := getDateQueryParam(r, "to")
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	counts, err := h.homeworkService.HomeworkReport(r.Context(), currentSession(r), from, to)
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	writeSuccess(w, nonNil(counts))
}

func (h *Handler) TeacherLeaderboard(w http.ResponseWriter, r *http.Request) {
	ranks, err := h.reportService.TeacherLeaderboard(r.Context())
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	writeSuccess(w, nonNil(ranks))
}

func (h *Handler) TopPerClass(w http.ResponseWriter, r *http.Request) {
	n := getIntQueryParam(r, "n", service.DefaultTopN)

	entries, err := h.reportService.TopPerClass(r.Context(), n)
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	writeSuccess(w, nonNil(entries))
}
