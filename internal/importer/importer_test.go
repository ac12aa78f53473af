package importer

import (
	"context"
	"testing"
	"time"

	"github.com/prk-tuition/homework-service/internal/cache"
	"github.com/prk-tuition/homework-service/internal/models"
	"github.com/prk-tuition/homework-service/internal/repository/sheetstore"
	"github.com/prk-tuition/homework-service/internal/sheets"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func repos(gw *sheets.Gateway) Repositories {
	log := zerolog.Nop()
	return Repositories{
		Users:         sheetstore.NewUserRepository(gw, "users", log),
		Questions:     sheetstore.NewQuestionRepository(gw, "questions", log),
		Answers:       sheetstore.NewAnswerRepository(gw, "answers", log),
		Announcements: sheetstore.NewAnnouncementRepository(gw, "announcements", log),
	}
}

func newLegacySource(t *testing.T) Source {
	t.Helper()

	backend := sheets.NewMemoryBackend()
	backend.Seed("users", [][]string{
		{"User Name", "Gmail ID", "Password", "Role", "Class", "Payment Confirmed", "Subscribed Till"},
		{"Asha", "Asha@Example.com", "x", "Student", "6th", "Yes", "09-06-2024"},
		{"Mr Rao", "rao@example.com", "y", "Teacher", "", "", ""},
	})
	backend.Seed("questions", [][]string{
		{"Class", "Date", "Uploaded By", "Subject", "Question"},
		{"6th", "10-05-2024", "Mr Rao", "Math", "What is 7 x 8?"},
		{"6th", "10-05-2024", "Mr Rao", "Math", "Name a prime"},
	})
	backend.Seed("announcements", [][]string{
		{"Message", "Date"},
		{"Holiday on Friday", "09-05-2024"},
	})
	answerHeader := []string{"Student Gmail", "Date", "Class", "Subject", "Question", "Answer", "Marks", "Remarks"}
	backend.Seed("live", [][]string{
		answerHeader,
		{"asha@example.com", "10-05-2024", "6th", "Math", "What is 7 x 8?", "56", "", ""},
		{"asha@example.com", "10-05-2024", "6th", "Math", "A question nobody asked", "?", "", ""},
	})
	backend.Seed("bank", [][]string{
		answerHeader,
		{"asha@example.com", "10-05-2024", "", "Math", "name a  PRIME", "7", "5", "Great"},
	})

	gw := sheets.NewGateway(backend, cache.NewMemoryCache(time.Minute), zerolog.Nop())
	return Source{Repositories: repos(gw), Gateway: gw, LiveAnswersID: "live", AnswerBankID: "bank"}
}

func TestImportCopiesLegacySheets(t *testing.T) {
	ctx := context.Background()
	dstGW := sheets.NewGateway(sheets.NewMemoryBackend(), cache.NewMemoryCache(time.Minute), zerolog.Nop())
	dst := repos(dstGW)
	im := New(newLegacySource(t), dst, zerolog.Nop())

	report, err := im.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, &Report{Users: 2, Questions: 2, Announcements: 1, Answers: 2, Skipped: 1}, report)

	asha, err := dst.Users.GetByEmail(ctx, "asha@example.com")
	require.NoError(t, err)
	require.NotNil(t, asha)
	assert.True(t, asha.PaymentConfirmed)
	assert.Equal(t, models.NewDate(2024, time.June, 9), asha.SubscribedTill)

	answers, err := dst.Answers.List(ctx, models.AnswerFilter{})
	require.NoError(t, err)
	require.Len(t, answers, 2)

	byQuestion := map[string]models.Answer{}
	for _, a := range answers {
		byQuestion[a.Question] = a
	}
	assert.Equal(t, models.StageSubmitted, byQuestion["What is 7 x 8?"].Stage)
	assert.Nil(t, byQuestion["What is 7 x 8?"].Mark)

	archived := byQuestion["Name a prime"]
	assert.Equal(t, models.StageArchived, archived.Stage)
	require.NotNil(t, archived.Mark)
	assert.Equal(t, models.GradeOutstanding, *archived.Mark)
	assert.Equal(t, "6th", archived.Class)

	notices, err := dst.Announcements.List(ctx, 10)
	require.NoError(t, err)
	require.Len(t, notices, 1)
	assert.Equal(t, "Holiday on Friday", notices[0].Message)
}

func TestImportIsRepeatable(t *testing.T) {
	ctx := context.Background()
	dstGW := sheets.NewGateway(sheets.NewMemoryBackend(), cache.NewMemoryCache(time.Minute), zerolog.Nop())
	im := New(newLegacySource(t), repos(dstGW), zerolog.Nop())

	_, err := im.Run(ctx)
	require.NoError(t, err)

	report, err := im.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, report.Users+report.Questions+report.Announcements+report.Answers)
	assert.Equal(t, 7, report.Skipped)
	assert.Zero(t, report.Failed)
}

func TestLegacyStage(t *testing.T) {
	good := models.GradeGood
	best := models.GradeOutstanding

	stage, ok := legacyStage(nil, true)
	assert.True(t, ok)
	assert.Equal(t, models.StageSubmitted, stage)

	stage, ok = legacyStage(&good, true)
	assert.True(t, ok)
	assert.Equal(t, models.StageReturned, stage)

	stage, ok = legacyStage(&best, true)
	assert.True(t, ok)
	assert.Equal(t, models.StageArchived, stage)

	stage, ok = legacyStage(&good, false)
	assert.True(t, ok)
	assert.Equal(t, models.StageArchived, stage)

	_, ok = legacyStage(nil, false)
	assert.False(t, ok)
}

func TestQuestionIndexNeedsClassOrUniqueText(t *testing.T) {
	date := models.NewDate(2024, time.May, 10)
	idx := newQuestionIndex([]models.Question{
		{ID: "a", Class: "6th", Date: date, Text: "Define force"},
		{ID: "b", Class: "7th", Date: date, Text: "Define force"},
	})

	q, ok := idx.lookup("define force", date, "7th")
	require.True(t, ok)
	assert.Equal(t, "b", q.ID)

	_, ok = idx.lookup("Define force", date, "")
	assert.False(t, ok, "ambiguous without a class")

	_, ok = idx.lookup("Define force", date.AddDays(1), "6th")
	assert.False(t, ok)
}

// partialMove seeds a question whose answer was appended to the bank with a
// grade while its live copy was never removed.
func partialMove(t *testing.T) Source {
	t.Helper()

	backend := sheets.NewMemoryBackend()
	backend.Seed("users", [][]string{
		{"User Name", "Gmail ID", "Password", "Role", "Class"},
		{"Asha", "asha@example.com", "x", "Student", "6th"},
	})
	backend.Seed("questions", [][]string{
		{"Class", "Date", "Uploaded By", "Subject", "Question"},
		{"6th", "10-05-2024", "Mr Rao", "Math", "What is 7 x 8?"},
	})
	answerHeader := []string{"Student Gmail", "Date", "Class", "Subject", "Question", "Answer", "Marks", "Remarks"}
	backend.Seed("live", [][]string{
		answerHeader,
		{"asha@example.com", "10-05-2024", "6th", "Math", "What is 7 x 8?", "56", "", ""},
	})
	backend.Seed("bank", [][]string{
		answerHeader,
		{"asha@example.com", "10-05-2024", "6th", "Math", "What is 7 x 8?", "56", "5", "Well done"},
	})

	gw := sheets.NewGateway(backend, cache.NewMemoryCache(time.Minute), zerolog.Nop())
	return Source{Repositories: repos(gw), Gateway: gw, LiveAnswersID: "live", AnswerBankID: "bank"}
}

func importedAnswer(t *testing.T, dst Repositories) models.Answer {
	t.Helper()
	answers, err := dst.Answers.List(context.Background(), models.AnswerFilter{StudentEmail: "asha@example.com"})
	require.NoError(t, err)
	require.Len(t, answers, 1)
	return answers[0]
}

func TestImportKeepsGradeOfHalfMovedAnswer(t *testing.T) {
	dst := repos(sheets.NewGateway(sheets.NewMemoryBackend(), cache.NewMemoryCache(time.Minute), zerolog.Nop()))

	report, err := New(partialMove(t), dst, zerolog.Nop()).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, report.Answers)

	a := importedAnswer(t, dst)
	assert.Equal(t, models.StageArchived, a.Stage)
	require.NotNil(t, a.Mark)
	assert.Equal(t, models.GradeOutstanding, *a.Mark)
	assert.Equal(t, "Well done", a.Remarks)
}

func TestLaterImportArchivesLiveAnswer(t *testing.T) {
	ctx := context.Background()
	dst := repos(sheets.NewGateway(sheets.NewMemoryBackend(), cache.NewMemoryCache(time.Minute), zerolog.Nop()))

	src := partialMove(t)
	liveOnly := src
	liveOnly.AnswerBankID = ""
	_, err := New(liveOnly, dst, zerolog.Nop()).Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, models.StageSubmitted, importedAnswer(t, dst).Stage)

	report, err := New(src, dst, zerolog.Nop()).Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Answers)
	assert.Zero(t, report.Failed)

	a := importedAnswer(t, dst)
	assert.Equal(t, models.StageArchived, a.Stage)
	assert.Equal(t, models.GradeOutstanding, *a.Mark)
}
