package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/prk-tuition/homework-service/internal/auth"
	"github.com/prk-tuition/homework-service/internal/cache"
	"github.com/prk-tuition/homework-service/internal/models"
	"github.com/prk-tuition/homework-service/internal/repository"
	"github.com/prk-tuition/homework-service/internal/repository/sheetstore"
	"github.com/prk-tuition/homework-service/internal/sheets"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []models.Event
}

func (p *recordingPublisher) Publish(_ context.Context, event *models.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, *event)
	return nil
}

func (p *recordingPublisher) Close() error { return nil }

func (p *recordingPublisher) types() []models.EventType {
	p.mu.Lock()
	defer p.mu.Unlock()
	types := make([]models.EventType, len(p.events))
	for i, e := range p.events {
		types[i] = e.Type
	}
	return types
}

// fixture wires every service over the in-memory sheet backend with a clock
// that can be moved.
type fixture struct {
	now       time.Time
	clock     Clock
	backend   *sheets.MemoryBackend
	users     repository.UserRepository
	questions repository.QuestionRepository
	answers   repository.AnswerRepository
	notices   repository.AnnouncementRepository
	hasher    *auth.PasswordHasher
	tokens    *auth.TokenManager
	events    *recordingPublisher

	auth     AuthService
	reg      RegistrationService
	homework HomeworkService
	reports  ReportService
	messages MessageService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	f := &fixture{
		now:     time.Date(2024, 5, 10, 9, 30, 0, 0, time.UTC),
		backend: sheets.NewMemoryBackend(),
		hasher:  auth.NewPasswordHasher(bcrypt.MinCost),
		events:  &recordingPublisher{},
	}
	f.clock = NewClock(func() time.Time { return f.now }, time.UTC)
	f.tokens = auth.NewTokenManager("test-secret", "homework-service", time.Hour, auth.NewMemorySessionStore())

	log := zerolog.Nop()
	gw := sheets.NewGateway(f.backend, cache.NewMemoryCache(time.Minute), log)
	f.users = sheetstore.NewUserRepository(gw, "users", log)
	f.questions = sheetstore.NewQuestionRepository(gw, "questions", log)
	f.answers = sheetstore.NewAnswerRepository(gw, "answers", log)
	f.notices = sheetstore.NewAnnouncementRepository(gw, "announcements", log)

	v := NewValidator()
	f.auth = NewAuthService(f.users, f.hasher, f.tokens, v, f.clock, 5000, log)
	f.reg = NewRegistrationService(f.users, nil, f.events, f.hasher, v, f.clock,
		RegistrationConfig{UPIID: "9685840429@pnb", PresignExpiry: time.Minute}, log)
	f.homework = NewHomeworkService(f.users, f.questions, f.answers, f.events, v, f.clock, log)
	f.reports = NewReportService(f.users, f.questions, f.answers, f.clock, log)
	f.messages = NewMessageService(f.users, f.notices, f.events, v, f.clock, log)

	return f
}

func (f *fixture) today() models.Date { return f.clock.Today() }

func (f *fixture) addUser(t *testing.T, u models.User, password string) *auth.Session {
	t.Helper()
	if password != "" {
		hash, err := f.hasher.Hash(password)
		require.NoError(t, err)
		u.PasswordHash = hash
	}
	require.NoError(t, f.users.Create(context.Background(), &u))
	return &auth.Session{ID: "s-" + u.Email, Email: u.Email, Name: u.Name, Role: u.Role}
}

func (f *fixture) addStudent(t *testing.T, email, name, class string) *auth.Session {
	t.Helper()
	return f.addUser(t, models.User{
		Email:            email,
		Name:             name,
		Class:            class,
		Role:             models.RoleStudent,
		PaymentConfirmed: true,
		SubscribedTill:   f.today().AddDays(30),
	}, "")
}

func (f *fixture) addTeacher(t *testing.T, email, name string) *auth.Session {
	t.Helper()
	return f.addUser(t, models.User{Email: email, Name: name, Role: models.RoleTeacher, Confirmed: true}, "")
}

func (f *fixture) createHomework(t *testing.T, teacher *auth.Session, class, subject string, date models.Date, texts ...string) []models.Question {
	t.Helper()
	qs, err := f.homework.CreateHomework(context.Background(), teacher, &models.CreateHomeworkRequest{
		Class: class, Subject: subject, Date: date, Questions: texts,
	})
	require.NoError(t, err)
	return qs
}

func (f *fixture) submit(t *testing.T, student *auth.Session, questionID, text string) *models.Answer {
	t.Helper()
	a, err := f.homework.SubmitAnswer(context.Background(), student, &models.SubmitAnswerRequest{
		QuestionID: questionID, Answer: text,
	})
	require.NoError(t, err)
	return a
}

func (f *fixture) grade(t *testing.T, teacher *auth.Session, answerID string, grade int, remarks string) *models.Answer {
	t.Helper()
	a, err := f.homework.GradeAnswer(context.Background(), teacher, answerID, &models.GradeAnswerRequest{
		Grade: grade, Remarks: remarks,
	})
	require.NoError(t, err)
	return a
}
