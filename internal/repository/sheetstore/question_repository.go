package sheetstore

import (
	"context"

	"github.com/prk-tuition/homework-service/internal/models"
	"github.com/prk-tuition/homework-service/internal/repository"
	"github.com/prk-tuition/homework-service/internal/sheets"
	"github.com/rs/zerolog"
)

const (
	colDate       = "Date"
	colUploadedBy = "Uploaded By"
	colSubject    = "Subject"
	colQuestion   = "Question"
)

var questionColumns = []string{colID, colClass, colDate, colUploadedBy, colSubject, colQuestion, colCreatedAt}

type questionRepository struct {
	t *table
}

func NewQuestionRepository(gw *sheets.Gateway, tableID string, logger zerolog.Logger) repository.QuestionRepository {
	return &questionRepository{t: newTable(gw, tableID, questionColumns, logger)}
}

func (r *questionRepository) CreateBatch(ctx context.Context, questions []models.Question) error {
	records := make([]map[string]string, len(questions))
	for i, q := range questions {
		records[i] = map[string]string{
			colID:         q.ID,
			colClass:      q.Class,
			colDate:       q.Date.String(),
			colUploadedBy: q.UploadedBy,
			colSubject:    q.Subject,
			colQuestion:   q.Text,
			colCreatedAt:  formatTime(q.CreatedAt),
		}
	}
	return r.t.append(ctx, records...)
}

func (r *questionRepository) GetByID(ctx context.Context, id string) (*models.Question, error) {
	tb, err := r.t.load(ctx)
	if err != nil {
		return nil, err
	}

	rows := tb.Find(colID, id)
	if id == "" || len(rows) == 0 {
		return nil, nil
	}

	q := r.parse(tb, rows[0])
	return &q, nil
}

func (r *questionRepository) List(ctx context.Context, filter models.QuestionFilter) ([]models.Question, error) {
	tb, err := r.t.load(ctx)
	if err != nil {
		return nil, err
	}

	var questions []models.Question
	for i := 0; i < tb.Len(); i++ {
		q := r.parse(tb, i)
		if q.ID == "" || !filter.Match(&q) {
			continue
		}
		questions = append(questions, q)
	}

	sortQuestions(questions)
	return questions, nil
}

func (r *questionRepository) parse(tb *sheets.Table, row int) models.Question {
	return models.Question{
		ID:         tb.Get(row, colID),
		Class:      tb.Get(row, colClass),
		Date:       r.t.parseDate(tb.Get(row, colDate), colDate),
		UploadedBy: tb.Get(row, colUploadedBy),
		Subject:    tb.Get(row, colSubject),
		Text:       tb.Get(row, colQuestion),
		CreatedAt:  parseTime(tb.Get(row, colCreatedAt)),
	}
}
