package httpd

import (
	"net/http"

	"github.com/prk-tuition/homework-service/internal/models"
)

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req models.LoginRequest
	if err := decodeJSON(r, &req); err != nil {
		h.handleError(w, r, err)
		return
	}

	resp, err := h.authService.Login(r.Context(), &req)
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	writeSuccess(w, resp)
}

func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	if err := h.authService.Logout(r.Context(), currentSession(r)); err != nil {
		h.handleError(w, r, err)
		return
	}

	writeSuccess(w, map[string]string{"message": "logged out"})
}

func (h *Handler) SecurityQuestion(w http.ResponseWriter, r *http.Request) {
	email := r.URL.Query().Get("email")
	if email == "" {
		writeError(w, http.StatusBadRequest, "email is required")
		return
	}

	question, err := h.authService.SecurityQuestion(r.Context(), email)
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	writeSuccess(w, map[string]string{"security_question": question})
}

func (h *Handler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var req models.ResetPasswordRequest
	if err := decodeJSON(r, &req); err != nil {
		h.handleError(w, r, err)
		return
	}

	if err := h.authService.ResetPassword(r.Context(), &req); err != nil {
		h.handleError(w, r, err)
		return
	}

	writeSuccess(w, map[string]string{"message": "password updated"})
}

func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	profile, err := h.authService.Profile(r.Context(), currentSession(r))
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	writeSuccess(w, profile)
}
