package httpd

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prk-tuition/homework-service/internal/models"
)

func (h *Handler) Plans(w http.ResponseWriter, r *http.Request) {
	writeSuccess(w, h.registrationService.Plans())
}

func (h *Handler) RegisterStudent(w http.ResponseWriter, r *http.Request) {
	var req models.RegisterStudentRequest
	if err := decodeJSON(r, &req); err != nil {
		h.handleError(w, r, err)
		return
	}

	user, err := h.registrationService.RegisterStudent(r.Context(), &req)
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	writeCreated(w, map[string]interface{}{
		"user":  user,
		"plans": h.registrationService.Plans(),
	})
}

func (h *Handler) RegisterTeacher(w http.ResponseWriter, r *http.Request) {
	var req models.RegisterTeacherRequest
	if err := decodeJSON(r, &req); err != nil {
		h.handleError(w, r, err)
		return
	}

	user, err := h.registrationService.RegisterTeacher(r.Context(), &req)
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	writeCreated(w, user)
}

// UploadReceipt accepts a multipart form with email, password and a
// "receipt" file.
func (h *Handler) UploadReceipt(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadSize)
	if err := r.ParseMultipartForm(h.maxUploadSize); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "receipt file is too large")
			return
		}
		writeError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}

	file, header, err := r.FormFile("receipt")
	if err != nil {
		writeError(w, http.StatusBadRequest, "receipt file is required")
		return
	}
	defer file.Close()

	upload := &models.ReceiptUpload{
		Email:       r.FormValue("email"),
		Password:    r.FormValue("password"),
		FileName:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Size:        header.Size,
	}

	key, err := h.registrationService.UploadReceipt(r.Context(), upload, file)
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	writeCreated(w, map[string]string{"receipt_key": key})
}

func (h *Handler) Overview(w http.ResponseWriter, r *http.Request) {
	overview, err := h.registrationService.Overview(r.Context())
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	writeSuccess(w, overview)
}

func (h *Handler) PendingStudents(w http.ResponseWriter, r *http.Request) {
	h.writeUsers(w, r, h.registrationService.PendingStudents)
}

func (h *Handler) ConfirmedStudents(w http.ResponseWriter, r *http.Request) {
	h.writeUsers(w, r, h.registrationService.ConfirmedStudents)
}

func (h *Handler) PendingStaff(w http.ResponseWriter, r *http.Request) {
	h.writeUsers(w, r, h.registrationService.PendingStaff)
}

func (h *Handler) ConfirmedStaff(w http.ResponseWriter, r *http.Request) {
	h.writeUsers(w, r, h.registrationService.ConfirmedStaff)
}

func (h *Handler) ConfirmPayment(w http.ResponseWriter, r *http.Request) {
	user, err := h.registrationService.ConfirmPayment(r.Context(), chi.URLParam(r, "email"))
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	writeSuccess(w, user)
}

func (h *Handler) ConfirmStaff(w http.ResponseWriter, r *http.Request) {
	user, err := h.registrationService.ConfirmStaff(r.Context(), chi.URLParam(r, "email"))
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	writeSuccess(w, user)
}

func (h *Handler) ReceiptURL(w http.ResponseWriter, r *http.Request) {
	url, err := h.registrationService.ReceiptURL(r.Context(), chi.URLParam(r, "email"))
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	writeSuccess(w, map[string]string{"url": url})
}

func (h *Handler) writeUsers(w http.ResponseWriter, r *http.Request, list func(ctx context.Context) ([]models.User, error)) {
	users, err := list(r.Context())
	if err != nil {
		h.handleError(w, r, err)
		return
	}
	if users == nil {
		users = []models.User{}
	}

	writeSuccess(w, users)
}
