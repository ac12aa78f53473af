package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/prk-tuition/homework-service/internal/auth"
	"github.com/prk-tuition/homework-service/internal/models"
	"github.com/prk-tuition/homework-service/internal/repository"
	"github.com/prk-tuition/homework-service/internal/service/integration"
	"github.com/rs/zerolog"
)

// announcementScan is how many recent announcements are searched for one
// dated today.
const announcementScan = 20

type MessageService interface {
	PublishAnnouncement(ctx context.Context, principal *auth.Session, req *models.AnnouncementRequest) (*models.Announcement, error)
	TodayAnnouncement(ctx context.Context) *models.Announcement
	SearchUsers(ctx context.Context, term string) ([]models.User, error)
	SendInstruction(ctx context.Context, principal *auth.Session, req *models.InstructionRequest) (*models.User, error)
	PendingInstruction(ctx context.Context, session *auth.Session) (*models.InstructionResponse, error)
	ReplyInstruction(ctx context.Context, session *auth.Session, req *models.InstructionReplyRequest) error
}

type messageService struct {
	userRepo         repository.UserRepository
	announcementRepo repository.AnnouncementRepository
	events           integration.EventPublisher
	validator        *Validator
	clock            Clock
	logger           zerolog.Logger
}

func NewMessageService(
	userRepo repository.UserRepository,
	announcementRepo repository.AnnouncementRepository,
	events integration.EventPublisher,
	validator *Validator,
	clock Clock,
	logger zerolog.Logger,
) MessageService {
	return &messageService{
		userRepo:         userRepo,
		announcementRepo: announcementRepo,
		events:           events,
		validator:        validator,
		clock:            clock,
		logger:           logger,
	}
}

func (s *messageService) PublishAnnouncement(ctx context.Context, principal *auth.Session, req *models.AnnouncementRequest) (*models.Announcement, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, err
	}

	a := &models.Announcement{
		ID:        uuid.New().String(),
		Message:   strings.TrimSpace(req.Message),
		Date:      s.clock.Today(),
		CreatedBy: principal.Email,
		CreatedAt: s.clock.Now(),
	}

	if err := s.announcementRepo.Create(ctx, a); err != nil {
		return nil, fmt.Errorf("failed to publish announcement: %w", err)
	}

	s.logger.Info().
		Str("id", a.ID).
		Str("by", principal.Email).
		Msg("Announcement published")

	publishEvent(ctx, s.events, s.clock, s.logger, &models.Event{
		Type:  models.EventAnnouncementPublished,
		Email: principal.Email,
		Name:  principal.Name,
		Data:  map[string]string{"message": a.Message},
	})

	return a, nil
}

// TodayAnnouncement returns the newest announcement dated today, or nil.
// Storage errors are logged and treated as no announcement.
func (s *messageService) TodayAnnouncement(ctx context.Context) *models.Announcement {
	list, err := s.announcementRepo.List(ctx, announcementScan)
	if err != nil {
		s.logger.Warn().Err(err).Msg("Failed to load announcements")
		return nil
	}

	today := s.clock.Today()
	for i := range list {
		if list[i].Date.Equal(today) {
			return &list[i]
		}
	}
	return nil
}

// SearchUsers matches term case-insensitively against display names.
func (s *messageService) SearchUsers(ctx context.Context, term string) ([]models.User, error) {
	users, err := s.userRepo.List(ctx, models.UserFilter{})
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}

	term = strings.ToLower(strings.TrimSpace(term))
	if term == "" {
		return users, nil
	}

	matched := make([]models.User, 0)
	for i := range users {
		if strings.Contains(strings.ToLower(users[i].DisplayName()), term) {
			matched = append(matched, users[i])
		}
	}
	return matched, nil
}

func (s *messageService) SendInstruction(ctx context.Context, principal *auth.Session, req *models.InstructionRequest) (*models.User, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, err
	}

	user, err := s.userRepo.GetByEmail(ctx, models.NormalizeEmail(req.Email))
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	if user == nil {
		return nil, ErrUserNotFound
	}

	user.Instruction = strings.TrimSpace(req.Instruction)
	user.InstructionReply = ""
	user.InstructionStatus = models.InstructionSent
	user.UpdatedAt = s.clock.Now()

	if err := s.userRepo.Update(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to send instruction: %w", err)
	}

	s.logger.Info().
		Str("to", user.Email).
		Str("by", principal.Email).
		Msg("Instruction sent")

	publishEvent(ctx, s.events, s.clock, s.logger, &models.Event{
		Type:  models.EventInstructionSent,
		Email: user.Email,
		Name:  user.Name,
		Data:  map[string]string{"instruction": user.Instruction},
	})

	return user, nil
}

func (s *messageService) PendingInstruction(ctx context.Context, session *auth.Session) (*models.InstructionResponse, error) {
	user, err := s.userRepo.GetByEmail(ctx, session.Email)
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	if user == nil {
		return nil, ErrUserNotFound
	}

	return &models.InstructionResponse{
		Instruction: user.Instruction,
		Reply:       user.InstructionReply,
		Status:      user.InstructionStatus,
		AwaitsReply: user.HasPendingInstruction(),
	}, nil
}

func (s *messageService) ReplyInstruction(ctx context.Context, session *auth.Session, req *models.InstructionReplyRequest) error {
	if err := s.validator.Struct(req); err != nil {
		return err
	}

	user, err := s.userRepo.GetByEmail(ctx, session.Email)
	if err != nil {
		return fmt.Errorf("failed to get user: %w", err)
	}
	if user == nil {
		return ErrUserNotFound
	}
	if !user.HasPendingInstruction() {
		return ErrNoInstruction
	}

	user.InstructionReply = strings.TrimSpace(req.Reply)
	user.InstructionStatus = models.InstructionReplied
	user.UpdatedAt = s.clock.Now()

	if err := s.userRepo.Update(ctx, user); err != nil {
		return fmt.Errorf("failed to save reply: %w", err)
	}

	s.logger.Info().Str("email", user.Email).Msg("Instruction answered")

	return nil
}
