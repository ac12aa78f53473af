package service

import (
	"errors"
	"sort"
	"strings"
)

var (
	ErrInvalidCredentials   = errors.New("invalid email or password")
	ErrSubscriptionInactive = errors.New("subscription is not active, contact the administrator")
	ErrPendingConfirmation  = errors.New("account awaits administrator confirmation")
	ErrInvalidRole          = errors.New("account has an unknown role")
	ErrPasswordMismatch     = errors.New("passwords do not match")
	ErrWrongSecurityAnswer  = errors.New("security answer is incorrect")

	ErrUserNotFound     = errors.New("user not found")
	ErrEmailExists      = errors.New("email is already registered")
	ErrNotStudent       = errors.New("user is not a student")
	ErrNotStaff         = errors.New("user is not a staff member")
	ErrAlreadyConfirmed = errors.New("account is already confirmed")

	ErrQuestionNotFound = errors.New("question not found")
	ErrAnswerNotFound   = errors.New("answer not found")
	ErrNotEditable      = errors.New("answer can no longer be edited")
	ErrAlreadyGraded    = errors.New("answer is already graded")
	ErrNotYourQuestion  = errors.New("answer belongs to another teacher's question")
	ErrWrongClass       = errors.New("question is for another class")
	ErrRemarksRequired  = errors.New("remarks are required for grades 1 to 3")

	ErrNoInstruction   = errors.New("no instruction awaits a reply")
	ErrReceiptMissing  = errors.New("no receipt uploaded")
	ErrReceiptDisabled = errors.New("receipt storage is not configured")
)

// ValidationError carries per-field messages keyed by the JSON field name.
type ValidationError struct {
	Fields map[string]string
}

func newValidationError(field, msg string) *ValidationError {
	return &ValidationError{Fields: map[string]string{field: msg}}
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e.Fields[k])
	}
	return "validation failed: " + strings.Join(parts, "; ")
}
