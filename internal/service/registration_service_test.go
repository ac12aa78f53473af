package service

import (
	"context"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/prk-tuition/homework-service/internal/models"
	"github.com/prk-tuition/homework-service/internal/repository"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func studentRequest() *models.RegisterStudentRequest {
	return &models.RegisterStudentRequest{
		Name:             "Asha",
		FatherName:       "Mohan",
		Email:            "Asha@Example.com",
		Mobile:           "9999999999",
		Class:            "7th",
		ParentPhonePe:    "8888888888",
		Password:         "pw",
		ConfirmPassword:  "pw",
		Plan:             "₹200 for 30 days",
		SecurityQuestion: models.SecurityQuestions[0],
		SecurityAnswer:   " Sharma ",
	}
}

func TestRegisterStudent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	user, err := f.reg.RegisterStudent(ctx, studentRequest())
	require.NoError(t, err)
	assert.Equal(t, "asha@example.com", user.Email)
	assert.Equal(t, "₹200 for 30 days (Subjects Homework Only)", user.Plan)

	stored, err := f.users.GetByEmail(ctx, "asha@example.com")
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.False(t, stored.PaymentConfirmed)
	assert.True(t, stored.SubscribedTill.IsZero())
	assert.Equal(t, "sharma", stored.SecurityAnswer)
	assert.Equal(t, []models.EventType{models.EventRegistrationCreated}, f.events.types())

	_, err = f.reg.RegisterStudent(ctx, studentRequest())
	assert.ErrorIs(t, err, ErrEmailExists)
}

func TestRegisterStudentValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	req := studentRequest()
	req.ConfirmPassword = "other"
	_, err := f.reg.RegisterStudent(ctx, req)
	assert.ErrorIs(t, err, ErrPasswordMismatch)

	req = studentRequest()
	req.Class = "13th"
	req.SecurityQuestion = "Favourite colour?"
	req.FatherName = "   "
	_, err = f.reg.RegisterStudent(ctx, req)
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Fields, "class")
	assert.Contains(t, verr.Fields, "security_question")
	assert.Contains(t, verr.Fields, "father_name")

	users, err := f.users.List(ctx, models.UserFilter{})
	require.NoError(t, err)
	assert.Empty(t, users)
}

func TestConfirmPaymentSetsSubscriptionWindow(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.reg.RegisterStudent(ctx, studentRequest())
	require.NoError(t, err)

	user, err := f.reg.ConfirmPayment(ctx, "asha@example.com")
	require.NoError(t, err)
	assert.Equal(t, "10-05-2024", user.SubscriptionStart.String())
	assert.Equal(t, "09-06-2024", user.SubscribedTill.String())

	stored, _ := f.users.GetByEmail(ctx, "asha@example.com")
	assert.True(t, stored.PaymentConfirmed)
	assert.Equal(t, "09-06-2024", stored.SubscribedTill.String())

	_, err = f.auth.Login(ctx, &models.LoginRequest{Email: "asha@example.com", Password: "pw"})
	assert.NoError(t, err)
}

func TestConfirmPaymentUnknownPlanDefaultsTo30Days(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.addUser(t, models.User{Email: "old@example.com", Name: "Old", Role: models.RoleStudent, Plan: "Festival offer"}, "")

	user, err := f.reg.ConfirmPayment(ctx, "old@example.com")
	require.NoError(t, err)
	assert.True(t, user.SubscribedTill.Equal(f.today().AddDays(30)))
}

func TestConfirmPaymentRejectsStaff(t *testing.T) {
	f := newFixture(t)
	f.addTeacher(t, "t@example.com", "T")

	_, err := f.reg.ConfirmPayment(context.Background(), "t@example.com")
	assert.ErrorIs(t, err, ErrNotStudent)

	_, err = f.reg.ConfirmPayment(context.Background(), "ghost@example.com")
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestRegisterAndConfirmTeacher(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.reg.RegisterTeacher(ctx, &models.RegisterTeacherRequest{
		Name: "Meera", Email: "meera@example.com", Mobile: "7777",
		Password: "pw", ConfirmPassword: "pw",
		SecurityQuestion: models.SecurityQuestions[1], SecurityAnswer: "Tommy",
	})
	require.NoError(t, err)

	pending, err := f.reg.PendingStaff(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 1)

	_, err = f.auth.Login(ctx, &models.LoginRequest{Email: "meera@example.com", Password: "pw"})
	assert.ErrorIs(t, err, ErrPendingConfirmation)

	_, err = f.reg.ConfirmStaff(ctx, "meera@example.com")
	require.NoError(t, err)

	_, err = f.reg.ConfirmStaff(ctx, "meera@example.com")
	assert.ErrorIs(t, err, ErrAlreadyConfirmed)

	confirmed, err := f.reg.ConfirmedStaff(ctx)
	require.NoError(t, err)
	assert.Len(t, confirmed, 1)

	_, err = f.auth.Login(ctx, &models.LoginRequest{Email: "meera@example.com", Password: "pw"})
	assert.NoError(t, err)
}

func TestOverviewCounts(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.addStudent(t, "a@example.com", "A", "7th")
	f.addUser(t, models.User{Email: "b@example.com", Name: "B", Role: models.RoleStudent}, "")
	f.addTeacher(t, "t@example.com", "T")
	f.addUser(t, models.User{Email: "u@example.com", Name: "U", Role: models.RoleTeacher}, "")
	f.addUser(t, models.User{Email: "adm@example.com", Name: "Adm", Role: models.RoleAdmin}, "")

	o, err := f.reg.Overview(ctx)
	require.NoError(t, err)
	assert.Equal(t, &models.AdminOverview{
		TotalStudents:   2,
		TotalTeachers:   2,
		PendingStudents: 1,
		PendingStaff:    2,
	}, o)

	pending, err := f.reg.PendingStudents(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, "b@example.com", pending[0].Email)
}

func TestPlansIncludeUPI(t *testing.T) {
	f := newFixture(t)
	p := f.reg.Plans()
	assert.Len(t, p.Plans, 3)
	assert.Equal(t, "9685840429@pnb", p.UPIID)
}

func TestReceiptsNeedStorage(t *testing.T) {
	f := newFixture(t)
	_, err := f.reg.ReceiptURL(context.Background(), "a@example.com")
	assert.ErrorIs(t, err, ErrReceiptDisabled)
}

type memoryReceipts struct {
	objects map[string]string
}

func (m *memoryReceipts) Upload(_ context.Context, key string, body io.Reader, _ int64, _ string) error {
	data, err := io.ReadAll(body)
	if err != nil {
		return err
	}
	m.objects[key] = string(data)
	return nil
}

func (m *memoryReceipts) PresignedURL(_ context.Context, key string, _ time.Duration) (string, error) {
	if _, ok := m.objects[key]; !ok {
		return "", repository.ErrReceiptNotFound
	}
	return "https://receipts.local/" + key, nil
}

func TestUploadReceipt(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	store := &memoryReceipts{objects: map[string]string{}}
	reg := NewRegistrationService(f.users, store, nil, f.hasher, NewValidator(), f.clock,
		RegistrationConfig{PresignExpiry: time.Minute}, zerolog.Nop())

	_, err := reg.ReceiptURL(ctx, "b@example.com")
	assert.ErrorIs(t, err, ErrUserNotFound)

	f.addUser(t, models.User{Email: "b@example.com", Name: "B", Role: models.RoleStudent}, "secret1")

	_, err = reg.ReceiptURL(ctx, "b@example.com")
	assert.ErrorIs(t, err, ErrReceiptMissing)

	_, err = reg.UploadReceipt(ctx, &models.ReceiptUpload{
		Email: "b@example.com", Password: "wrong", FileName: "paid.png",
	}, strings.NewReader("png!"))
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	assert.Empty(t, store.objects)

	key, err := reg.UploadReceipt(ctx, &models.ReceiptUpload{
		Email: "b@example.com", Password: "secret1", FileName: "paid.PNG", ContentType: "image/png", Size: 4,
	}, strings.NewReader("png!"))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(key, "2024/05/b_at_example.com_"))
	assert.True(t, strings.HasSuffix(key, ".png"))
	assert.Equal(t, "png!", store.objects[key])

	url, err := reg.ReceiptURL(ctx, "b@example.com")
	require.NoError(t, err)
	assert.Equal(t, "https://receipts.local/"+key, url)

	_, err = reg.ConfirmPayment(ctx, "b@example.com")
	require.NoError(t, err)
	_, err = reg.UploadReceipt(ctx, &models.ReceiptUpload{Email: "b@example.com", Password: "secret1", FileName: "x.png"}, strings.NewReader("x"))
	assert.ErrorIs(t, err, ErrAlreadyConfirmed)
}
