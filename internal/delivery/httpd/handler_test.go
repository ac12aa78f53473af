package httpd

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prk-tuition/homework-service/internal/auth"
	"github.com/prk-tuition/homework-service/internal/cache"
	"github.com/prk-tuition/homework-service/internal/models"
	"github.com/prk-tuition/homework-service/internal/repository"
	"github.com/prk-tuition/homework-service/internal/repository/sheetstore"
	"github.com/prk-tuition/homework-service/internal/service"
	"github.com/prk-tuition/homework-service/internal/sheets"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

type testServer struct {
	handler *Handler
	router  http.Handler
	users   repository.UserRepository
	hasher  *auth.PasswordHasher
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	log := zerolog.Nop()
	gw := sheets.NewGateway(sheets.NewMemoryBackend(), cache.NewMemoryCache(time.Minute), log)
	users := sheetstore.NewUserRepository(gw, "users", log)
	questions := sheetstore.NewQuestionRepository(gw, "questions", log)
	answers := sheetstore.NewAnswerRepository(gw, "answers", log)
	notices := sheetstore.NewAnnouncementRepository(gw, "announcements", log)

	hasher := auth.NewPasswordHasher(bcrypt.MinCost)
	tokens := auth.NewTokenManager("handler-secret", "homework-service", time.Hour, auth.NewMemorySessionStore())
	clock := service.SystemClock(time.UTC)
	v := service.NewValidator()

	h := NewHandler(
		service.NewAuthService(users, hasher, tokens, v, clock, 5000, log),
		service.NewRegistrationService(users, nil, nil, hasher, v, clock, service.RegistrationConfig{UPIID: "prk@upi"}, log),
		service.NewHomeworkService(users, questions, answers, nil, v, clock, log),
		service.NewReportService(users, questions, answers, clock, log),
		service.NewMessageService(users, notices, nil, v, clock, log),
		tokens,
		1<<20,
		log,
	)

	router := chi.NewRouter()
	h.RegisterRoutes(router)

	return &testServer{handler: h, router: router, users: users, hasher: hasher}
}

type envelope struct {
	Success bool              `json:"success"`
	Data    json.RawMessage   `json:"data"`
	Error   string            `json:"error"`
	Message string            `json:"message"`
	Fields  map[string]string `json:"fields"`
}

func (s *testServer) do(t *testing.T, method, path, token string, body interface{}) (int, envelope) {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)

	var env envelope
	if rec.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	}
	return rec.Code, env
}

func (s *testServer) seedStaff(t *testing.T, email, name string, role models.Role) {
	t.Helper()
	hash, err := s.hasher.Hash("staff-pass")
	require.NoError(t, err)
	require.NoError(t, s.users.Create(context.Background(), &models.User{
		Email: email, Name: name, Role: role, Confirmed: true, PasswordHash: hash,
	}))
}

func (s *testServer) login(t *testing.T, email, password string) string {
	t.Helper()
	code, env := s.do(t, http.MethodPost, "/api/v1/auth/login", "", models.LoginRequest{Email: email, Password: password})
	require.Equal(t, http.StatusOK, code, env.Message)

	var resp models.LoginResponse
	require.NoError(t, json.Unmarshal(env.Data, &resp))
	return resp.Token
}

func decode[T any](t *testing.T, raw json.RawMessage) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(raw, &v))
	return v
}

func studentRequest(email string) models.RegisterStudentRequest {
	return models.RegisterStudentRequest{
		Name:             "Asha",
		FatherName:       "Mohan",
		Email:            email,
		Mobile:           "9876543210",
		Class:            "6th",
		ParentPhonePe:    "9876543210",
		Password:         "secret1",
		ConfirmPassword:  "secret1",
		Plan:             "monthly",
		SecurityQuestion: models.SecurityQuestions[0],
		SecurityAnswer:   "Devi",
	}
}

func TestHealthCheck(t *testing.T) {
	s := newTestServer(t)

	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"healthy"`)
}

func TestHealthCheckReportsStorageFailure(t *testing.T) {
	s := newTestServer(t)
	s.handler.SetReadinessCheck(func(context.Context) error {
		return errors.New("connection refused")
	})

	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"unhealthy"`)
	assert.Contains(t, rec.Body.String(), "connection refused")
}

func TestProtectedRoutesNeedToken(t *testing.T) {
	s := newTestServer(t)

	code, env := s.do(t, http.MethodGet, "/api/v1/me", "", nil)
	assert.Equal(t, http.StatusUnauthorized, code)
	assert.Equal(t, "Unauthorized", env.Error)

	code, _ = s.do(t, http.MethodGet, "/api/v1/me", "not-a-jwt", nil)
	assert.Equal(t, http.StatusUnauthorized, code)
}

func TestRoleGates(t *testing.T) {
	s := newTestServer(t)
	s.seedStaff(t, "teacher@example.com", "Mr Rao", models.RoleTeacher)
	token := s.login(t, "teacher@example.com", "staff-pass")

	code, _ := s.do(t, http.MethodGet, "/api/v1/admin/overview", token, nil)
	assert.Equal(t, http.StatusForbidden, code)

	code, _ = s.do(t, http.MethodGet, "/api/v1/teacher/homework/today", token, nil)
	assert.Equal(t, http.StatusOK, code)
}

func TestRegistrationErrors(t *testing.T) {
	s := newTestServer(t)

	bad := studentRequest("not-an-email")
	bad.Class = "13th"
	code, env := s.do(t, http.MethodPost, "/api/v1/registrations/students", "", bad)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Contains(t, env.Fields, "email")
	assert.Contains(t, env.Fields, "class")

	code, _ = s.do(t, http.MethodPost, "/api/v1/registrations/students", "", studentRequest("asha@example.com"))
	require.Equal(t, http.StatusCreated, code)

	code, env = s.do(t, http.MethodPost, "/api/v1/registrations/students", "", studentRequest("Asha@Example.com"))
	assert.Equal(t, http.StatusConflict, code)
	assert.Equal(t, service.ErrEmailExists.Error(), env.Message)

	code, env = s.do(t, http.MethodPost, "/api/v1/auth/login", "", models.LoginRequest{Email: "asha@example.com", Password: "secret1"})
	assert.Equal(t, http.StatusForbidden, code)
	assert.Equal(t, service.ErrSubscriptionInactive.Error(), env.Message)

	code, _ = s.do(t, http.MethodPost, "/api/v1/auth/login", "", "{")
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestHomeworkFlow(t *testing.T) {
	s := newTestServer(t)
	s.seedStaff(t, "admin@example.com", "Admin", models.RoleAdmin)
	s.seedStaff(t, "teacher@example.com", "Mr Rao", models.RoleTeacher)

	code, _ := s.do(t, http.MethodPost, "/api/v1/registrations/students", "", studentRequest("asha@example.com"))
	require.Equal(t, http.StatusCreated, code)

	admin := s.login(t, "admin@example.com", "staff-pass")
	code, env := s.do(t, http.MethodGet, "/api/v1/admin/students/pending", admin, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Len(t, decode[[]models.User](t, env.Data), 1)

	code, env = s.do(t, http.MethodPost, "/api/v1/admin/students/asha@example.com/confirm", admin, nil)
	require.Equal(t, http.StatusOK, code)
	confirmed := decode[models.User](t, env.Data)
	assert.True(t, confirmed.PaymentConfirmed)
	assert.Equal(t, models.DateOf(time.Now().UTC()).AddDays(30), confirmed.SubscribedTill)

	teacher := s.login(t, "teacher@example.com", "staff-pass")
	code, env = s.do(t, http.MethodPost, "/api/v1/teacher/homework", teacher, models.CreateHomeworkRequest{
		Class: "6th", Subject: "Math", Questions: []string{"What is 7 x 8?"},
	})
	require.Equal(t, http.StatusCreated, code, env.Message)
	questions := decode[[]models.Question](t, env.Data)
	require.Len(t, questions, 1)

	student := s.login(t, "asha@example.com", "secret1")
	code, env = s.do(t, http.MethodGet, "/api/v1/student/homework/pending", student, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Len(t, decode[[]models.PendingHomework](t, env.Data), 1)

	code, env = s.do(t, http.MethodPost, "/api/v1/student/answers", student, models.SubmitAnswerRequest{
		QuestionID: questions[0].ID, Answer: "56",
	})
	require.Equal(t, http.StatusCreated, code, env.Message)
	answer := decode[models.Answer](t, env.Data)

	code, env = s.do(t, http.MethodGet, "/api/v1/student/homework/pending", student, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Empty(t, decode[[]models.PendingHomework](t, env.Data))

	code, _ = s.do(t, http.MethodPost, "/api/v1/teacher/answers/"+answer.ID+"/grade", teacher, models.GradeAnswerRequest{Grade: 2})
	assert.Equal(t, http.StatusBadRequest, code, "low grades need remarks")

	code, env = s.do(t, http.MethodPost, "/api/v1/teacher/answers/"+answer.ID+"/grade", teacher, models.GradeAnswerRequest{Grade: 5})
	require.Equal(t, http.StatusOK, code, env.Message)

	code, _ = s.do(t, http.MethodPost, "/api/v1/teacher/answers/"+answer.ID+"/grade", teacher, models.GradeAnswerRequest{Grade: 5})
	assert.Equal(t, http.StatusConflict, code)

	code, env = s.do(t, http.MethodGet, "/api/v1/student/performance", student, nil)
	require.Equal(t, http.StatusOK, code)
	averages := decode[[]models.SubjectAverage](t, env.Data)
	require.Len(t, averages, 1)
	assert.Equal(t, 5.0, averages[0].Average)

	code, env = s.do(t, http.MethodGet, "/api/v1/student/leaderboard", student, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, 1, decode[models.ClassLeaderboard](t, env.Data).MyRank)

	code, env = s.do(t, http.MethodGet, "/api/v1/teacher/reports/teachers", teacher, nil)
	require.Equal(t, http.StatusOK, code)
	ranks := decode[[]models.TeacherRank](t, env.Data)
	require.Len(t, ranks, 1)
	assert.Equal(t, 1, ranks[0].SalaryPoints)
}

func TestLogoutRevokesToken(t *testing.T) {
	s := newTestServer(t)
	s.seedStaff(t, "principal@example.com", "Principal", models.RolePrincipal)
	token := s.login(t, "principal@example.com", "staff-pass")

	code, _ := s.do(t, http.MethodPost, "/api/v1/auth/logout", token, nil)
	require.Equal(t, http.StatusOK, code)

	code, env := s.do(t, http.MethodGet, "/api/v1/me", token, nil)
	assert.Equal(t, http.StatusUnauthorized, code)
	assert.Equal(t, auth.ErrSessionRevoked.Error(), env.Message)
}

func TestAnnouncementsAndInstructions(t *testing.T) {
	s := newTestServer(t)
	s.seedStaff(t, "principal@example.com", "Principal", models.RolePrincipal)
	s.seedStaff(t, "teacher@example.com", "Mr Rao", models.RoleTeacher)
	principal := s.login(t, "principal@example.com", "staff-pass")
	teacher := s.login(t, "teacher@example.com", "staff-pass")

	code, env := s.do(t, http.MethodGet, "/api/v1/announcements/today", "", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "null", string(env.Data))

	code, _ = s.do(t, http.MethodPost, "/api/v1/principal/announcements", principal, models.AnnouncementRequest{Message: "Holiday on Friday"})
	require.Equal(t, http.StatusCreated, code)

	code, env = s.do(t, http.MethodGet, "/api/v1/announcements/today", "", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "Holiday on Friday", decode[models.Announcement](t, env.Data).Message)

	code, _ = s.do(t, http.MethodPost, "/api/v1/me/instruction/reply", teacher, models.InstructionReplyRequest{Reply: "ok"})
	assert.Equal(t, http.StatusConflict, code)

	code, _ = s.do(t, http.MethodPost, "/api/v1/principal/instructions", principal, models.InstructionRequest{
		Email: "teacher@example.com", Instruction: "Upload Friday's homework early",
	})
	require.Equal(t, http.StatusOK, code)

	code, env = s.do(t, http.MethodGet, "/api/v1/me/instruction", teacher, nil)
	require.Equal(t, http.StatusOK, code)
	pending := decode[models.InstructionResponse](t, env.Data)
	assert.True(t, pending.AwaitsReply)
	assert.Equal(t, "Upload Friday's homework early", pending.Instruction)

	code, _ = s.do(t, http.MethodPost, "/api/v1/me/instruction/reply", teacher, models.InstructionReplyRequest{Reply: "Will do"})
	assert.Equal(t, http.StatusOK, code)
}

func TestUploadReceiptWithoutStorage(t *testing.T) {
	s := newTestServer(t)

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	require.NoError(t, mw.WriteField("email", "asha@example.com"))
	require.NoError(t, mw.WriteField("password", "secret1"))
	part, err := mw.CreateFormFile("receipt", "paid.png")
	require.NoError(t, err)
	_, _ = part.Write([]byte("png"))
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/registrations/receipt", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	req = httptest.NewRequest(http.MethodPost, "/api/v1/registrations/receipt", bytes.NewBufferString("plain"))
	rec = httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
