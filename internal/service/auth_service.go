package service

import (
	"context"
	"fmt"

	"github.com/prk-tuition/homework-service/internal/auth"
	"github.com/prk-tuition/homework-service/internal/models"
	"github.com/prk-tuition/homework-service/internal/repository"
	"github.com/rs/zerolog"
)

type AuthService interface {
	Login(ctx context.Context, req *models.LoginRequest) (*models.LoginResponse, error)
	Logout(ctx context.Context, session *auth.Session) error
	SecurityQuestion(ctx context.Context, email string) (string, error)
	ResetPassword(ctx context.Context, req *models.ResetPasswordRequest) error
	Profile(ctx context.Context, session *auth.Session) (*models.Profile, error)
}

type authService struct {
	userRepo        repository.UserRepository
	hasher          *auth.PasswordHasher
	tokens          *auth.TokenManager
	validator       *Validator
	clock           Clock
	pointsMilestone int
	logger          zerolog.Logger
}

func NewAuthService(
	userRepo repository.UserRepository,
	hasher *auth.PasswordHasher,
	tokens *auth.TokenManager,
	validator *Validator,
	clock Clock,
	pointsMilestone int,
	logger zerolog.Logger,
) AuthService {
	return &authService{
		userRepo:        userRepo,
		hasher:          hasher,
		tokens:          tokens,
		validator:       validator,
		clock:           clock,
		pointsMilestone: pointsMilestone,
		logger:          logger,
	}
}

func (s *authService) Login(ctx context.Context, req *models.LoginRequest) (*models.LoginResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, err
	}

	email := models.NormalizeEmail(req.Email)
	user, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	if user == nil {
		return nil, ErrInvalidCredentials
	}

	ok, legacy := s.hasher.Check(user.PasswordHash, req.Password)
	if !ok {
		return nil, ErrInvalidCredentials
	}

	if err := s.checkAccess(user); err != nil {
		s.logger.Info().
			Str("email", email).
			Str("role", string(user.Role)).
			Err(err).
			Msg("Login refused")
		return nil, err
	}

	if legacy {
		s.upgradeHash(ctx, user, req.Password)
	}

	token, session, err := s.tokens.Issue(user)
	if err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("email", email).
		Str("role", string(user.Role)).
		Str("session_id", session.ID).
		Msg("User logged in")

	return &models.LoginResponse{
		Token:     token,
		ExpiresAt: session.ExpiresAt,
		Role:      user.Role,
		User:      user,
	}, nil
}

// checkAccess applies the role gates: students need a paid, unexpired
// subscription and staff need administrator confirmation.
func (s *authService) checkAccess(user *models.User) error {
	switch user.Role {
	case models.RoleStudent:
		if !user.SubscriptionActive(s.clock.Today()) {
			return ErrSubscriptionInactive
		}
	case models.RoleTeacher, models.RoleAdmin, models.RolePrincipal:
		if !user.Confirmed {
			return ErrPendingConfirmation
		}
	default:
		return ErrInvalidRole
	}
	return nil
}

func (s *authService) upgradeHash(ctx context.Context, user *models.User, password string) {
	hash, err := s.hasher.Hash(password)
	if err != nil {
		s.logger.Error().Err(err).Str("email", user.Email).Msg("Failed to re-hash legacy password")
		return
	}
	if err := s.userRepo.UpdatePassword(ctx, user.Email, hash); err != nil {
		s.logger.Error().Err(err).Str("email", user.Email).Msg("Failed to store upgraded password hash")
		return
	}
	user.PasswordHash = hash
	s.logger.Info().Str("email", user.Email).Msg("Legacy password hash upgraded")
}

func (s *authService) Logout(ctx context.Context, session *auth.Session) error {
	if err := s.tokens.Revoke(ctx, session); err != nil {
		return fmt.Errorf("failed to revoke session: %w", err)
	}

	s.logger.Info().
		Str("email", session.Email).
		Str("session_id", session.ID).
		Msg("User logged out")

	return nil
}

func (s *authService) SecurityQuestion(ctx context.Context, email string) (string, error) {
	user, err := s.userRepo.GetByEmail(ctx, models.NormalizeEmail(email))
	if err != nil {
		return "", fmt.Errorf("failed to get user: %w", err)
	}
	if user == nil {
		return "", ErrUserNotFound
	}
	return user.SecurityQuestion, nil
}

func (s *authService) ResetPassword(ctx context.Context, req *models.ResetPasswordRequest) error {
	if err := s.validator.Struct(req); err != nil {
		return err
	}
	if req.NewPassword != req.ConfirmPassword {
		return ErrPasswordMismatch
	}

	email := models.NormalizeEmail(req.Email)
	user, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		return fmt.Errorf("failed to get user: %w", err)
	}
	if user == nil {
		return ErrUserNotFound
	}

	if models.NormalizeAnswer(req.SecurityAnswer) != models.NormalizeAnswer(user.SecurityAnswer) {
		return ErrWrongSecurityAnswer
	}

	hash, err := s.hasher.Hash(req.NewPassword)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	if err := s.userRepo.UpdatePassword(ctx, email, hash); err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}

	s.logger.Info().Str("email", email).Msg("Password reset")

	return nil
}

func (s *authService) Profile(ctx context.Context, session *auth.Session) (*models.Profile, error) {
	user, err := s.userRepo.GetByEmail(ctx, session.Email)
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	if user == nil {
		return nil, ErrUserNotFound
	}

	profile := &models.Profile{User: user}

	if user.Role == models.RoleTeacher {
		profile.MilestoneReached = user.SalaryPoints >= s.pointsMilestone
	}

	if user.Role == models.RoleStudent && !user.SubscribedTill.IsZero() {
		days := int(user.SubscribedTill.Time().Sub(s.clock.Today().Time()).Hours() / 24)
		if days < 0 {
			days = 0
		}
		profile.DaysRemaining = &days
	}

	return profile, nil
}
