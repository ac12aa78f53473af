package httpd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/prk-tuition/homework-service/internal/auth"
	"github.com/prk-tuition/homework-service/internal/models"
	"github.com/prk-tuition/homework-service/internal/service"
	"github.com/rs/zerolog"
)

type Handler struct {
	authService         service.AuthService
	registrationService service.RegistrationService
	homeworkService     service.HomeworkService
	reportService       service.ReportService
	messageService      service.MessageService
	tokens              *auth.TokenManager
	maxUploadSize       int64
	readiness           func(ctx context.Context) error
	logger              zerolog.Logger
}

func NewHandler(
	authService service.AuthService,
	registrationService service.RegistrationService,
	homeworkService service.HomeworkService,
	reportService service.ReportService,
	messageService service.MessageService,
	tokens *auth.TokenManager,
	maxUploadSize int64,
	logger zerolog.Logger,
) *Handler {
	return &Handler{
		authService:         authService,
		registrationService: registrationService,
		homeworkService:     homeworkService,
		reportService:       reportService,
		messageService:      messageService,
		tokens:              tokens,
		maxUploadSize:       maxUploadSize,
		logger:              logger,
	}
}

// SetReadinessCheck makes /health report 503 while check fails.
func (h *Handler) SetReadinessCheck(check func(ctx context.Context) error) {
	h.readiness = check
}

func (h *Handler) RegisterRoutes(router chi.Router) {
	router.Get("/health", h.HealthCheck)

	router.Route("/api/v1", func(api chi.Router) {
		// Public
		api.Post("/auth/login", h.Login)
		api.Get("/auth/security-question", h.SecurityQuestion)
		api.Post("/auth/reset-password", h.ResetPassword)
		api.Get("/plans", h.Plans)
		api.Post("/registrations/students", h.RegisterStudent)
		api.Post("/registrations/teachers", h.RegisterTeacher)
		api.Post("/registrations/receipt", h.UploadReceipt)
		api.Get("/announcements/today", h.TodayAnnouncement)

		api.Group(func(r chi.Router) {
			r.Use(h.Authenticate)

			r.Post("/auth/logout", h.Logout)
			r.Get("/me", h.Me)
			r.Get("/me/instruction", h.PendingInstruction)
			r.Post("/me/instruction/reply", h.ReplyInstruction)

			r.Route("/student", func(r chi.Router) {
				r.Use(RequireRole(models.RoleStudent))
				r.Get("/homework/pending", h.PendingHomework)
				r.Post("/answers", h.SubmitAnswer)
				r.Get("/revision", h.RevisionZone)
				r.Get("/performance", h.StudentPerformance)
				r.Get("/leaderboard", h.ClassLeaderboard)
			})

			r.Route("/teacher", func(r chi.Router) {
				r.Use(RequireRole(models.RoleTeacher))
				r.Post("/homework", h.CreateHomework)
				r.Get("/homework/today", h.TodaySummary)
				r.Get("/homework/questions", h.QuestionsFor)
				r.Get("/answers/ungraded", h.UngradedAnswers)
				r.Post("/answers/{answer_id}/grade", h.GradeAnswer)
				r.Get("/reports/homework", h.HomeworkReport)
				r.Get("/reports/teachers", h.TeacherLeaderboard)
				r.Get("/reports/top-students", h.TopPerClass)
			})

			r.Route("/admin", func(r chi.Router) {
				r.Use(RequireRole(models.RoleAdmin))
				r.Get("/overview", h.Overview)
				r.Get("/students/pending", h.PendingStudents)
				r.Get("/students/confirmed", h.ConfirmedStudents)
				r.Post("/students/{email}/confirm", h.ConfirmPayment)
				r.Get("/students/{email}/receipt", h.ReceiptURL)
				r.Get("/staff/pending", h.PendingStaff)
				r.Get("/staff/confirmed", h.ConfirmedStaff)
				r.Post("/staff/{email}/confirm", h.ConfirmStaff)
			})

			r.Route("/principal", func(r chi.Router) {
				r.Use(RequireRole(models.RolePrincipal))
				r.Post("/announcements", h.PublishAnnouncement)
				r.Get("/users/search", h.SearchUsers)
				r.Post("/instructions", h.SendInstruction)
				r.Get("/reports/activity", h.TeacherActivity)
				r.Get("/reports/teachers", h.TeacherLeaderboard)
				r.Get("/reports/weakest", h.WeakestStudents)
				r.Get("/reports/top-students", h.TopPerClass)
				r.Get("/students/{email}/marks", h.StudentMarks)
				r.Get("/teachers/questions", h.TeacherQuestions)
			})
		})
	})
}

func getIntQueryParam(r *http.Request, key string, defaultValue int) int {
	value := r.URL.Query().Get(key)
	if value == "" {
		return defaultValue
	}

	intValue, err := strconv.Atoi(value)
	if err != nil || intValue < 1 {
		return defaultValue
	}

	return intValue
}

// getDateQueryParam parses a DD-MM-YYYY query value. A missing value yields
// the zero date.
func getDateQueryParam(r *http.Request, key string) (models.Date, error) {
	value := strings.TrimSpace(r.URL.Query().Get(key))
	if value == "" {
		return models.Date{}, nil
	}

	d, err := models.ParseDate(value)
	if err != nil {
		return models.Date{}, &service.ValidationError{Fields: map[string]string{key: key + " must be a date in DD-MM-YYYY format"}}
	}
	return d, nil
}

func decodeJSON(r *http.Request, dst interface{}) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, 1<<20))
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return errBadRequest("Request body is empty")
		}
		return errBadRequest(fmt.Sprintf("Invalid request body: %v", err))
	}
	return nil
}

// badRequest is a malformed request rejected before reaching a service.
type badRequest string

func (e badRequest) Error() string { return string(e) }

func errBadRequest(msg string) error { return badRequest(msg) }

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if data != nil {
		_ = json.NewEncoder(w).Encode(data)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]interface{}{
		"error":   http.StatusText(status),
		"message": message,
	})
}

func writeSuccess(w http.ResponseWriter, data interface{}) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"data":    data,
	})
}

func writeCreated(w http.ResponseWriter, data interface{}) {
	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"success": true,
		"data":    data,
	})
}
