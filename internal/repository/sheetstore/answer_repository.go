package sheetstore

import (
	"context"

	"github.com/prk-tuition/homework-service/internal/models"
	"github.com/prk-tuition/homework-service/internal/repository"
	"github.com/prk-tuition/homework-service/internal/sheets"
	"github.com/rs/zerolog"
)

const (
	colStudentEmail = "Student Gmail"
	colQuestionID   = "Question ID"
	colAnswer       = "Answer"
	colMarks        = "Marks"
	colRemarks      = "Remarks"
	colStage        = "Stage"
)

var answerColumns = []string{
	colID, colStudentEmail, colQuestionID, colDate, colClass, colSubject,
	colQuestion, colAnswer, colMarks, colRemarks, colStage, colCreatedAt,
	colUpdatedAt,
}

type answerRepository struct {
	t *table
}

func NewAnswerRepository(gw *sheets.Gateway, tableID string, logger zerolog.Logger) repository.AnswerRepository {
	return &answerRepository{t: newTable(gw, tableID, answerColumns, logger)}
}

func (r *answerRepository) Create(ctx context.Context, a *models.Answer) error {
	existing, err := r.GetByStudentAndQuestion(ctx, a.StudentEmail, a.QuestionID)
	if err != nil {
		return err
	}
	if existing != nil {
		return repository.ErrDuplicate
	}

	err = r.t.append(ctx, map[string]string{
		colID:           a.ID,
		colStudentEmail: a.StudentEmail,
		colQuestionID:   a.QuestionID,
		colDate:         a.Date.String(),
		colClass:        a.Class,
		colSubject:      a.Subject,
		colQuestion:     a.Question,
		colAnswer:       a.Text,
		colMarks:        formatMark(a.Mark),
		colRemarks:      a.Remarks,
		colStage:        string(a.Stage),
		colCreatedAt:    formatTime(a.CreatedAt),
		colUpdatedAt:    formatTime(a.UpdatedAt),
	})
	if err != nil {
		return err
	}

	return r.dropIfDuplicate(ctx, a)
}

// dropIfDuplicate removes the row just appended for a when another writer
// appended an answer to the same question between the check and the append.
// The earlier row wins.
func (r *answerRepository) dropIfDuplicate(ctx context.Context, a *models.Answer) error {
	tb, err := r.t.load(ctx)
	if err != nil {
		return err
	}

	for i := 0; i < tb.Len(); i++ {
		if tb.Get(i, colID) == a.ID {
			return nil
		}
		if models.NormalizeEmail(tb.Get(i, colStudentEmail)) == a.StudentEmail && tb.Get(i, colQuestionID) == a.QuestionID {
			if _, err := r.t.delete(ctx, colID, a.ID); err != nil {
				return err
			}
			return repository.ErrDuplicate
		}
	}

	return nil
}

func (r *answerRepository) GetByID(ctx context.Context, id string) (*models.Answer, error) {
	tb, err := r.t.load(ctx)
	if err != nil {
		return nil, err
	}

	rows := tb.Find(colID, id)
	if id == "" || len(rows) == 0 {
		return nil, nil
	}

	return r.parse(tb, rows[0]), nil
}

func (r *answerRepository) GetByStudentAndQuestion(ctx context.Context, email, questionID string) (*models.Answer, error) {
	answers, err := r.List(ctx, models.AnswerFilter{StudentEmail: email, QuestionIDs: []string{questionID}})
	if err != nil || len(answers) == 0 {
		return nil, err
	}
	return &answers[0], nil
}

func (r *answerRepository) List(ctx context.Context, filter models.AnswerFilter) ([]models.Answer, error) {
	tb, err := r.t.load(ctx)
	if err != nil {
		return nil, err
	}

	var answers []models.Answer
	for i := 0; i < tb.Len(); i++ {
		a := r.parse(tb, i)
		if a.ID == "" || !filter.Match(a) {
			continue
		}
		answers = append(answers, *a)
	}

	sortAnswers(answers)
	return answers, nil
}

func (r *answerRepository) Update(ctx context.Context, a *models.Answer) error {
	_, err := r.t.update(ctx, colID, a.ID, func(tb *sheets.Table, row int) {
		tb.Set(row, colAnswer, a.Text)
		tb.Set(row, colMarks, formatMark(a.Mark))
		tb.Set(row, colRemarks, a.Remarks)
		tb.Set(row, colStage, string(a.Stage))
		tb.Set(row, colUpdatedAt, formatTime(a.UpdatedAt))
	})
	return err
}

func (r *answerRepository) Grade(ctx context.Context, a *models.Answer) error {
	if a.ID == "" {
		return repository.ErrConflict
	}

	graded := false
	_, err := r.t.update(ctx, colID, a.ID, func(tb *sheets.Table, row int) {
		if tb.Get(row, colMarks) != "" {
			return
		}
		tb.Set(row, colMarks, formatMark(a.Mark))
		tb.Set(row, colRemarks, a.Remarks)
		tb.Set(row, colStage, string(a.Stage))
		tb.Set(row, colUpdatedAt, formatTime(a.UpdatedAt))
		graded = true
	})
	if err != nil {
		return err
	}
	if !graded {
		return repository.ErrConflict
	}

	return nil
}

func (r *answerRepository) parse(tb *sheets.Table, row int) *models.Answer {
	mark, err := parseMark(tb.Get(row, colMarks))
	if err != nil {
		r.t.logger.Warn().Err(err).Str("answer_id", tb.Get(row, colID)).Msg("Ignoring malformed mark")
	}

	return &models.Answer{
		ID:           tb.Get(row, colID),
		StudentEmail: models.NormalizeEmail(tb.Get(row, colStudentEmail)),
		QuestionID:   tb.Get(row, colQuestionID),
		Date:         r.t.parseDate(tb.Get(row, colDate), colDate),
		Class:        tb.Get(row, colClass),
		Subject:      tb.Get(row, colSubject),
		Question:     tb.Get(row, colQuestion),
		Text:         tb.Get(row, colAnswer),
		Mark:         mark,
		Remarks:      tb.Get(row, colRemarks),
		Stage:        models.ParseStage(tb.Get(row, colStage)),
		CreatedAt:    parseTime(tb.Get(row, colCreatedAt)),
		UpdatedAt:    parseTime(tb.Get(row, colUpdatedAt)),
	}
}
