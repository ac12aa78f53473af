package service

import (
	"context"
	"testing"

	"github.com/prk-tuition/homework-service/internal/models"
	"github.com/prk-tuition/homework-service/internal/repository"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pendingIDs(items []models.PendingHomework) []string {
	ids := make([]string, len(items))
	for i, p := range items {
		ids[i] = p.Question.ID
	}
	return ids
}

func TestCreateHomeworkSkipsBlankQuestions(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	teacher := f.addTeacher(t, "t@example.com", "Meera")

	qs := f.createHomework(t, teacher, "7th", "Math", models.Date{}, "2+2?", "  ", "3*3?")
	require.Len(t, qs, 2)
	assert.Equal(t, "Meera", qs[0].UploadedBy)
	assert.True(t, qs[0].Date.Equal(f.today()))

	_, err := f.homework.CreateHomework(ctx, teacher, &models.CreateHomeworkRequest{
		Class: "7th", Subject: "Math", Questions: []string{" ", ""},
	})
	var verr *ValidationError
	assert.ErrorAs(t, err, &verr)

	_, err = f.homework.CreateHomework(ctx, teacher, &models.CreateHomeworkRequest{
		Class: "7th", Subject: "Drawing", Questions: []string{"x"},
	})
	assert.ErrorAs(t, err, &verr)

	summary, err := f.homework.TodaySummary(ctx, teacher)
	require.NoError(t, err)
	assert.Equal(t, []models.ClassSubjectCount{{Class: "7th", Subject: "Math", Count: 2}}, summary)

	listed, err := f.homework.QuestionsFor(ctx, "7th", "Math", models.Date{})
	require.NoError(t, err)
	assert.Len(t, listed, 2)
}

func TestPendingHomeworkLifecycle(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	teacher := f.addTeacher(t, "t@example.com", "Meera")
	student := f.addStudent(t, "s@example.com", "Asha", "7th")

	older := f.createHomework(t, teacher, "7th", "Math", f.today().AddDays(-1), "old question")[0]
	newer := f.createHomework(t, teacher, "7th", "Science", f.today(), "new question")[0]
	f.createHomework(t, teacher, "8th", "Math", f.today(), "other class")

	pending, err := f.homework.PendingHomework(ctx, student)
	require.NoError(t, err)
	assert.Equal(t, []string{newer.ID, older.ID}, pendingIDs(pending))

	// submitting makes the question non-pending
	answer := f.submit(t, student, newer.ID, "my answer")
	assert.Equal(t, models.StageSubmitted, answer.Stage)
	assert.True(t, answer.Date.Equal(newer.Date))

	pending, err = f.homework.PendingHomework(ctx, student)
	require.NoError(t, err)
	assert.Equal(t, []string{older.ID}, pendingIDs(pending))

	// a low grade keeps the answer live and makes the question pending again
	graded := f.grade(t, teacher, answer.ID, 3, "needs work")
	assert.Equal(t, models.StageReturned, graded.Stage)

	stored, err := f.answers.GetByID(ctx, answer.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.Mark)
	assert.Equal(t, models.GradeGood, *stored.Mark)
	assert.Equal(t, "needs work", stored.Remarks)
	assert.True(t, stored.Stage.Live())

	pending, err = f.homework.PendingHomework(ctx, student)
	require.NoError(t, err)
	require.Equal(t, []string{newer.ID, older.ID}, pendingIDs(pending))
	assert.Equal(t, "needs work", pending[0].Remarks)
	assert.Equal(t, "my answer", pending[0].PreviousAnswer)

	// resubmission clears mark and remarks
	resubmitted := f.submit(t, student, newer.ID, "better answer")
	assert.Equal(t, answer.ID, resubmitted.ID)
	assert.Nil(t, resubmitted.Mark)
	assert.Empty(t, resubmitted.Remarks)

	_, err = f.homework.SubmitAnswer(ctx, student, &models.SubmitAnswerRequest{QuestionID: newer.ID, Answer: "again"})
	assert.ErrorIs(t, err, ErrNotEditable)

	// a high grade archives it
	archived := f.grade(t, teacher, answer.ID, 5, "")
	assert.Equal(t, models.StageArchived, archived.Stage)

	live, err := f.answers.List(ctx, models.AnswerFilter{StudentEmail: "s@example.com", Stages: models.LiveStages})
	require.NoError(t, err)
	assert.Empty(t, live)

	revision, err := f.homework.RevisionZone(ctx, student)
	require.NoError(t, err)
	require.Len(t, revision, 1)
	assert.Equal(t, "Outstanding", revision[0].Grade)
	assert.Equal(t, "better answer", revision[0].Answer.Text)

	perf, err := f.reports.StudentPerformance(ctx, student)
	require.NoError(t, err)
	assert.Equal(t, []models.SubjectAverage{{Subject: "Science", Average: 5, Answers: 1}}, perf)

	board, err := f.reports.ClassLeaderboard(ctx, student)
	require.NoError(t, err)
	assert.Equal(t, 1, board.MyRank)
}

func TestSubmitAnswerChecks(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	teacher := f.addTeacher(t, "t@example.com", "Meera")
	student := f.addStudent(t, "s@example.com", "Asha", "7th")
	q := f.createHomework(t, teacher, "8th", "Math", f.today(), "other class")[0]

	_, err := f.homework.SubmitAnswer(ctx, student, &models.SubmitAnswerRequest{QuestionID: q.ID, Answer: "x"})
	assert.ErrorIs(t, err, ErrWrongClass)

	_, err = f.homework.SubmitAnswer(ctx, student, &models.SubmitAnswerRequest{QuestionID: "missing", Answer: "x"})
	assert.ErrorIs(t, err, ErrQuestionNotFound)

	_, err = f.homework.SubmitAnswer(ctx, student, &models.SubmitAnswerRequest{QuestionID: q.ID, Answer: "  "})
	var verr *ValidationError
	assert.ErrorAs(t, err, &verr)

	_, err = f.homework.SubmitAnswer(ctx, teacher, &models.SubmitAnswerRequest{QuestionID: q.ID, Answer: "x"})
	assert.ErrorIs(t, err, ErrNotStudent)
}

func TestGradeAnswerRules(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	meera := f.addTeacher(t, "meera@example.com", "Meera")
	ravi := f.addTeacher(t, "ravi@example.com", "Ravi")
	student := f.addStudent(t, "s@example.com", "Asha", "7th")

	q := f.createHomework(t, meera, "7th", "Math", f.today(), "q")[0]
	answer := f.submit(t, student, q.ID, "a")

	_, err := f.homework.GradeAnswer(ctx, meera, answer.ID, &models.GradeAnswerRequest{Grade: 2})
	assert.ErrorIs(t, err, ErrRemarksRequired)

	_, err = f.homework.GradeAnswer(ctx, meera, answer.ID, &models.GradeAnswerRequest{Grade: 6})
	var verr *ValidationError
	assert.ErrorAs(t, err, &verr)

	_, err = f.homework.GradeAnswer(ctx, ravi, answer.ID, &models.GradeAnswerRequest{Grade: 4})
	assert.ErrorIs(t, err, ErrNotYourQuestion)

	_, err = f.homework.GradeAnswer(ctx, meera, "missing", &models.GradeAnswerRequest{Grade: 4})
	assert.ErrorIs(t, err, ErrAnswerNotFound)

	f.grade(t, meera, answer.ID, 1, "redo")
	_, err = f.homework.GradeAnswer(ctx, meera, answer.ID, &models.GradeAnswerRequest{Grade: 4})
	assert.ErrorIs(t, err, ErrAlreadyGraded)
}

func TestGradingAwardsOnePointPerAnswer(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	teacher := f.addTeacher(t, "t@example.com", "Meera")
	a := f.addStudent(t, "a@example.com", "A", "7th")
	b := f.addStudent(t, "b@example.com", "B", "7th")

	q := f.createHomework(t, teacher, "7th", "Math", f.today(), "q")[0]
	low := f.submit(t, a, q.ID, "x")
	high := f.submit(t, b, q.ID, "y")

	f.grade(t, teacher, low.ID, 2, "more detail")
	u, _ := f.users.GetByEmail(ctx, "t@example.com")
	assert.Equal(t, 1, u.SalaryPoints)

	f.grade(t, teacher, high.ID, 4, "")
	u, _ = f.users.GetByEmail(ctx, "t@example.com")
	assert.Equal(t, 2, u.SalaryPoints)

	assert.Contains(t, f.events.types(), models.EventAnswerGraded)
}

func TestUngradedAnswersGroupedByStudent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	meera := f.addTeacher(t, "meera@example.com", "Meera")
	ravi := f.addTeacher(t, "ravi@example.com", "Ravi")
	a := f.addStudent(t, "a@example.com", "Asha", "7th")
	b := f.addStudent(t, "b@example.com", "Bina", "7th")

	q1 := f.createHomework(t, meera, "7th", "Math", f.today(), "q1")[0]
	q2 := f.createHomework(t, meera, "7th", "Math", f.today().AddDays(-1), "q2")[0]
	q3 := f.createHomework(t, ravi, "7th", "SST", f.today(), "q3")[0]

	f.submit(t, a, q1.ID, "a1")
	f.submit(t, a, q2.ID, "a2")
	bAnswer := f.submit(t, b, q1.ID, "b1")
	f.submit(t, b, q3.ID, "b3")
	f.grade(t, meera, bAnswer.ID, 5, "")

	groups, err := f.homework.UngradedAnswers(ctx, meera)
	require.NoError(t, err)
	require.Len(t, groups, 1)
	assert.Equal(t, "Asha (7th)", groups[0].DisplayName)
	assert.Len(t, groups[0].Answers, 2)

	empty, err := f.homework.UngradedAnswers(ctx, f.addTeacher(t, "new@example.com", "New"))
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestHomeworkReportDefaultsToLastWeek(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	teacher := f.addTeacher(t, "t@example.com", "Meera")

	f.createHomework(t, teacher, "10th", "Math", f.today(), "a")
	f.createHomework(t, teacher, "7th", "Math", f.today().AddDays(-6), "b", "c")
	f.createHomework(t, teacher, "7th", "GK", f.today().AddDays(-7), "too old")

	report, err := f.homework.HomeworkReport(ctx, teacher, models.Date{}, models.Date{})
	require.NoError(t, err)
	assert.Equal(t, []models.ClassSubjectCount{
		{Class: "7th", Subject: "Math", Count: 2},
		{Class: "10th", Subject: "Math", Count: 1},
	}, report)

	_, err = f.homework.HomeworkReport(ctx, teacher, f.today(), f.today().AddDays(-1))
	var verr *ValidationError
	assert.ErrorAs(t, err, &verr)
}

// staleAnswers serves the answer as it was before anyone graded it, like a
// second teacher who loaded the page earlier.
type staleAnswers struct {
	repository.AnswerRepository
	snapshot models.Answer
}

func (s *staleAnswers) GetByID(context.Context, string) (*models.Answer, error) {
	a := s.snapshot
	return &a, nil
}

func TestConcurrentGradingAwardsOnce(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	teacher := f.addTeacher(t, "t@example.com", "Meera")
	student := f.addStudent(t, "s@example.com", "Asha", "7th")

	q := f.createHomework(t, teacher, "7th", "Math", f.today(), "q")[0]
	answer := f.submit(t, student, q.ID, "a")

	late := NewHomeworkService(f.users, f.questions, &staleAnswers{AnswerRepository: f.answers, snapshot: *answer},
		f.events, NewValidator(), f.clock, zerolog.Nop())

	f.grade(t, teacher, answer.ID, 5, "")

	_, err := late.GradeAnswer(ctx, teacher, answer.ID, &models.GradeAnswerRequest{Grade: 2, Remarks: "redo"})
	assert.ErrorIs(t, err, ErrAlreadyGraded)

	stored, err := f.answers.GetByID(ctx, answer.ID)
	require.NoError(t, err)
	assert.Equal(t, models.GradeOutstanding, *stored.Mark)
	assert.Equal(t, models.StageArchived, stored.Stage)

	u, err := f.users.GetByEmail(ctx, "t@example.com")
	require.NoError(t, err)
	assert.Equal(t, 1, u.SalaryPoints)
}
