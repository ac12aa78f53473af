package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/prk-tuition/homework-service/internal/auth"
	"github.com/prk-tuition/homework-service/internal/models"
	"github.com/prk-tuition/homework-service/internal/repository"
	"github.com/prk-tuition/homework-service/internal/service/integration"
	"github.com/rs/zerolog"
)

type RegistrationService interface {
	RegisterStudent(ctx context.Context, req *models.RegisterStudentRequest) (*models.User, error)
	RegisterTeacher(ctx context.Context, req *models.RegisterTeacherRequest) (*models.User, error)
	ConfirmPayment(ctx context.Context, email string) (*models.User, error)
	ConfirmStaff(ctx context.Context, email string) (*models.User, error)
	PendingStudents(ctx context.Context) ([]models.User, error)
	ConfirmedStudents(ctx context.Context) ([]models.User, error)
	PendingStaff(ctx context.Context) ([]models.User, error)
	ConfirmedStaff(ctx context.Context) ([]models.User, error)
	Overview(ctx context.Context) (*models.AdminOverview, error)
	Plans() *models.PlansResponse
	UploadReceipt(ctx context.Context, upload *models.ReceiptUpload, body io.Reader) (string, error)
	ReceiptURL(ctx context.Context, email string) (string, error)
}

type registrationService struct {
	userRepo      repository.UserRepository
	receipts      repository.ReceiptStorage
	events        integration.EventPublisher
	hasher        *auth.PasswordHasher
	validator     *Validator
	clock         Clock
	upiID         string
	presignExpiry time.Duration
	logger        zerolog.Logger
}

type RegistrationConfig struct {
	UPIID         string
	PresignExpiry time.Duration
}

// NewRegistrationService wires the registration workflow. receipts and
// events may be nil when MinIO or RabbitMQ are not configured.
func NewRegistrationService(
	userRepo repository.UserRepository,
	receipts repository.ReceiptStorage,
	events integration.EventPublisher,
	hasher *auth.PasswordHasher,
	validator *Validator,
	clock Clock,
	cfg RegistrationConfig,
	logger zerolog.Logger,
) RegistrationService {
	return &registrationService{
		userRepo:      userRepo,
		receipts:      receipts,
		events:        events,
		hasher:        hasher,
		validator:     validator,
		clock:         clock,
		upiID:         cfg.UPIID,
		presignExpiry: cfg.PresignExpiry,
		logger:        logger,
	}
}

func (s *registrationService) RegisterStudent(ctx context.Context, req *models.RegisterStudentRequest) (*models.User, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, err
	}
	if req.Password != req.ConfirmPassword {
		return nil, ErrPasswordMismatch
	}

	plan, _ := models.LookupPlan(req.Plan)

	user := &models.User{
		Email:            models.NormalizeEmail(req.Email),
		Name:             trim(req.Name),
		FatherName:       trim(req.FatherName),
		Mobile:           trim(req.Mobile),
		Class:            req.Class,
		Role:             models.RoleStudent,
		Plan:             plan.Name,
		SecurityQuestion: req.SecurityQuestion,
		SecurityAnswer:   models.NormalizeAnswer(req.SecurityAnswer),
		ParentPhonePe:    trim(req.ParentPhonePe),
	}

	if err := s.create(ctx, user, req.Password); err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("email", user.Email).
		Str("class", user.Class).
		Str("plan", plan.ID).
		Msg("Student registered")

	publishEvent(ctx, s.events, s.clock, s.logger, &models.Event{
		Type:  models.EventRegistrationCreated,
		Email: user.Email,
		Name:  user.Name,
		Data: map[string]string{
			"role":   string(user.Role),
			"plan":   plan.Name,
			"upi_id": s.upiID,
		},
	})

	return user, nil
}

func (s *registrationService) RegisterTeacher(ctx context.Context, req *models.RegisterTeacherRequest) (*models.User, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, err
	}
	if req.Password != req.ConfirmPassword {
		return nil, ErrPasswordMismatch
	}

	user := &models.User{
		Email:            models.NormalizeEmail(req.Email),
		Name:             trim(req.Name),
		Mobile:           trim(req.Mobile),
		Role:             models.RoleTeacher,
		SecurityQuestion: req.SecurityQuestion,
		SecurityAnswer:   models.NormalizeAnswer(req.SecurityAnswer),
	}

	if err := s.create(ctx, user, req.Password); err != nil {
		return nil, err
	}

	s.logger.Info().Str("email", user.Email).Msg("Teacher registered")

	publishEvent(ctx, s.events, s.clock, s.logger, &models.Event{
		Type:  models.EventRegistrationCreated,
		Email: user.Email,
		Name:  user.Name,
		Data:  map[string]string{"role": string(user.Role)},
	})

	return user, nil
}

func (s *registrationService) create(ctx context.Context, user *models.User, password string) error {
	existing, err := s.userRepo.GetByEmail(ctx, user.Email)
	if err != nil {
		return fmt.Errorf("failed to check existing user: %w", err)
	}
	if existing != nil {
		return ErrEmailExists
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}
	user.PasswordHash = hash

	now := s.clock.Now()
	user.CreatedAt = now
	user.UpdatedAt = now

	if err := s.userRepo.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return ErrEmailExists
		}
		return fmt.Errorf("failed to create user: %w", err)
	}

	return nil
}

func (s *registrationService) ConfirmPayment(ctx context.Context, email string) (*models.User, error) {
	user, err := s.getUser(ctx, email)
	if err != nil {
		return nil, err
	}
	if user.Role != models.RoleStudent {
		return nil, ErrNotStudent
	}

	today := s.clock.Today()
	user.PaymentConfirmed = true
	user.SubscriptionStart = today
	user.SubscribedTill = today.AddDays(models.PlanDays(user.Plan))
	user.UpdatedAt = s.clock.Now()

	if err := s.userRepo.Update(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to confirm payment: %w", err)
	}

	s.logger.Info().
		Str("email", user.Email).
		Str("plan", user.Plan).
		Str("subscribed_till", user.SubscribedTill.String()).
		Msg("Payment confirmed")

	publishEvent(ctx, s.events, s.clock, s.logger, &models.Event{
		Type:  models.EventRegistrationApproved,
		Email: user.Email,
		Name:  user.Name,
		Data: map[string]string{
			"role":            string(user.Role),
			"subscribed_till": user.SubscribedTill.String(),
		},
	})

	return user, nil
}

func (s *registrationService) ConfirmStaff(ctx context.Context, email string) (*models.User, error) {
	user, err := s.getUser(ctx, email)
	if err != nil {
		return nil, err
	}
	if !user.Role.IsStaff() {
		return nil, ErrNotStaff
	}
	if user.Confirmed {
		return nil, ErrAlreadyConfirmed
	}

	user.Confirmed = true
	user.UpdatedAt = s.clock.Now()

	if err := s.userRepo.Update(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to confirm staff member: %w", err)
	}

	s.logger.Info().
		Str("email", user.Email).
		Str("role", string(user.Role)).
		Msg("Staff member confirmed")

	publishEvent(ctx, s.events, s.clock, s.logger, &models.Event{
		Type:  models.EventRegistrationApproved,
		Email: user.Email,
		Name:  user.Name,
		Data:  map[string]string{"role": string(user.Role)},
	})

	return user, nil
}

func (s *registrationService) getUser(ctx context.Context, email string) (*models.User, error) {
	user, err := s.userRepo.GetByEmail(ctx, models.NormalizeEmail(email))
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	if user == nil {
		return nil, ErrUserNotFound
	}
	return user, nil
}

func (s *registrationService) PendingStudents(ctx context.Context) ([]models.User, error) {
	return s.list(ctx, models.UserFilter{
		Roles:            []models.Role{models.RoleStudent},
		PaymentConfirmed: boolPtr(false),
	})
}

func (s *registrationService) ConfirmedStudents(ctx context.Context) ([]models.User, error) {
	return s.list(ctx, models.UserFilter{
		Roles:            []models.Role{models.RoleStudent},
		PaymentConfirmed: boolPtr(true),
	})
}

func (s *registrationService) PendingStaff(ctx context.Context) ([]models.User, error) {
	return s.list(ctx, models.UserFilter{
		Roles:     models.StaffRoles,
		Confirmed: boolPtr(false),
	})
}

func (s *registrationService) ConfirmedStaff(ctx context.Context) ([]models.User, error) {
	return s.list(ctx, models.UserFilter{
		Roles:     models.StaffRoles,
		Confirmed: boolPtr(true),
	})
}

func (s *registrationService) list(ctx context.Context, filter models.UserFilter) ([]models.User, error) {
	users, err := s.userRepo.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	return users, nil
}

func (s *registrationService) Overview(ctx context.Context) (*models.AdminOverview, error) {
	users, err := s.userRepo.List(ctx, models.UserFilter{})
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}

	overview := &models.AdminOverview{}
	for i := range users {
		u := &users[i]
		switch {
		case u.Role == models.RoleStudent:
			overview.TotalStudents++
			if !u.PaymentConfirmed {
				overview.PendingStudents++
			}
		case u.Role.IsStaff():
			if u.Role == models.RoleTeacher {
				overview.TotalTeachers++
			}
			if !u.Confirmed {
				overview.PendingStaff++
			}
		}
	}

	return overview, nil
}

func (s *registrationService) Plans() *models.PlansResponse {
	return &models.PlansResponse{
		Plans: models.Plans,
		UPIID: s.upiID,
	}
}

// UploadReceipt stores a payment screenshot for a student whose payment is
// not yet confirmed and returns the object key.
func (s *registrationService) UploadReceipt(ctx context.Context, upload *models.ReceiptUpload, body io.Reader) (string, error) {
	if s.receipts == nil {
		return "", ErrReceiptDisabled
	}

	user, err := s.getUser(ctx, upload.Email)
	if err != nil {
		return "", err
	}
	if user.Role != models.RoleStudent {
		return "", ErrNotStudent
	}
	if ok, _ := s.hasher.Check(user.PasswordHash, upload.Password); !ok {
		return "", ErrInvalidCredentials
	}
	if user.PaymentConfirmed {
		return "", ErrAlreadyConfirmed
	}

	key := repository.ReceiptKey(user.Email, upload.FileName, s.clock.Now())
	if err := s.receipts.Upload(ctx, key, body, upload.Size, upload.ContentType); err != nil {
		return "", fmt.Errorf("failed to upload receipt: %w", err)
	}

	user.ReceiptKey = key
	user.UpdatedAt = s.clock.Now()
	if err := s.userRepo.Update(ctx, user); err != nil {
		return "", fmt.Errorf("failed to record receipt: %w", err)
	}

	s.logger.Info().
		Str("email", user.Email).
		Str("key", key).
		Int64("size", upload.Size).
		Msg("Payment receipt uploaded")

	return key, nil
}

func (s *registrationService) ReceiptURL(ctx context.Context, email string) (string, error) {
	if s.receipts == nil {
		return "", ErrReceiptDisabled
	}

	user, err := s.getUser(ctx, email)
	if err != nil {
		return "", err
	}
	if user.ReceiptKey == "" {
		return "", ErrReceiptMissing
	}

	url, err := s.receipts.PresignedURL(ctx, user.ReceiptKey, s.presignExpiry)
	if err != nil {
		if errors.Is(err, repository.ErrReceiptNotFound) {
			return "", ErrReceiptMissing
		}
		return "", fmt.Errorf("failed to sign receipt url: %w", err)
	}

	return url, nil
}

func boolPtr(b bool) *bool { return &b }
