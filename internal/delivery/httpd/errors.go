package httpd

import (
	"errors"
	"net/http"

	"github.com/prk-tuition/homework-service/internal/auth"
	"github.com/prk-tuition/homework-service/internal/service"
	"github.com/rs/zerolog"
)

var errorStatus = []struct {
	err    error
	status int
}{
	{service.ErrPasswordMismatch, http.StatusBadRequest},
	{service.ErrRemarksRequired, http.StatusBadRequest},
	{service.ErrWrongSecurityAnswer, http.StatusBadRequest},
	{service.ErrNotStudent, http.StatusBadRequest},
	{service.ErrNotStaff, http.StatusBadRequest},
	{service.ErrInvalidCredentials, http.StatusUnauthorized},
	{auth.ErrInvalidToken, http.StatusUnauthorized},
	{auth.ErrSessionRevoked, http.StatusUnauthorized},
	{service.ErrSubscriptionInactive, http.StatusForbidden},
	{service.ErrPendingConfirmation, http.StatusForbidden},
	{service.ErrInvalidRole, http.StatusForbidden},
	{service.ErrNotYourQuestion, http.StatusForbidden},
	{service.ErrWrongClass, http.StatusForbidden},
	{service.ErrUserNotFound, http.StatusNotFound},
	{service.ErrQuestionNotFound, http.StatusNotFound},
	{service.ErrAnswerNotFound, http.StatusNotFound},
	{service.ErrReceiptMissing, http.StatusNotFound},
	{service.ErrEmailExists, http.StatusConflict},
	{service.ErrAlreadyGraded, http.StatusConflict},
	{service.ErrNotEditable, http.StatusConflict},
	{service.ErrAlreadyConfirmed, http.StatusConflict},
	{service.ErrNoInstruction, http.StatusConflict},
	{service.ErrReceiptDisabled, http.StatusServiceUnavailable},
}

// handleError maps domain errors to HTTP responses. Anything unknown is a
// storage or infrastructure failure and is reported without detail.
func (h *Handler) handleError(w http.ResponseWriter, r *http.Request, err error) {
	var verr *service.ValidationError
	if errors.As(err, &verr) {
		writeJSON(w, http.StatusBadRequest, map[string]interface{}{
			"error":   http.StatusText(http.StatusBadRequest),
			"message": verr.Error(),
			"fields":  verr.Fields,
		})
		return
	}

	var bad badRequest
	if errors.As(err, &bad) {
		writeError(w, http.StatusBadRequest, bad.Error())
		return
	}

	for _, e := range errorStatus {
		if errors.Is(err, e.err) {
			writeError(w, e.status, e.err.Error())
			return
		}
	}

	log := zerolog.Ctx(r.Context())
	if log.GetLevel() == zerolog.Disabled {
		log = &h.logger
	}
	log.Error().Err(err).Str("path", r.URL.Path).Msg("Request failed")
	writeError(w, http.StatusInternalServerError, "internal server error")
}
