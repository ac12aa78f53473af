package repository

import (
	"context"
	"database/sql"

	"github.com/lib/pq"
	"github.com/prk-tuition/homework-service/internal/models"
	"github.com/rs/zerolog"
)

// AnswerRepository keeps live and archived answers in one table; the stage
// column tells them apart. At most one answer exists per student and
// question.
type AnswerRepository interface {
	Create(ctx context.Context, answer *models.Answer) error
	GetByID(ctx context.Context, id string) (*models.Answer, error)
	GetByStudentAndQuestion(ctx context.Context, email, questionID string) (*models.Answer, error)
	List(ctx context.Context, filter models.AnswerFilter) ([]models.Answer, error)
	Update(ctx context.Context, answer *models.Answer) error
	// Grade stores mark, remarks and stage only while the answer is still
	// ungraded, and returns ErrConflict otherwise.
	Grade(ctx context.Context, answer *models.Answer) error
}

type answerRepository struct {
	*PostgresRepository
}

func NewAnswerRepository(db *sql.DB, logger zerolog.Logger) AnswerRepository {
	return &answerRepository{
		PostgresRepository: NewPostgresRepository(db, logger),
	}
}

const answerColumns = `
	id, student_email, question_id, date, class, subject, question, text,
	mark, remarks, stage, created_at, updated_at`

func (r *answerRepository) Create(ctx context.Context, a *models.Answer) error {
	query := `
		INSERT INTO answers (` + answerColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`

	_, err := r.db.ExecContext(ctx, query,
		a.ID,
		a.StudentEmail,
		a.QuestionID,
		a.Date,
		a.Class,
		a.Subject,
		a.Question,
		a.Text,
		markValue(a.Mark),
		a.Remarks,
		string(a.Stage),
		a.CreatedAt,
		a.UpdatedAt,
	)
	if isUniqueViolation(err) {
		return ErrDuplicate
	}

	return err
}

func (r *answerRepository) GetByID(ctx context.Context, id string) (*models.Answer, error) {
	if !validID(id) {
		return nil, nil
	}

	query := `SELECT ` + answerColumns + ` FROM answers WHERE id = $1`

	a, err := scanAnswer(r.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}

	return a, err
}

func (r *answerRepository) GetByStudentAndQuestion(ctx context.Context, email, questionID string) (*models.Answer, error) {
	if !validID(questionID) {
		return nil, nil
	}

	query := `SELECT ` + answerColumns + ` FROM answers WHERE student_email = $1 AND question_id = $2`

	a, err := scanAnswer(r.db.QueryRowContext(ctx, query, email, questionID))
	if err == sql.ErrNoRows {
		return nil, nil
	}

	return a, err
}

func (r *answerRepository) List(ctx context.Context, filter models.AnswerFilter) ([]models.Answer, error) {
	var c conditions
	if filter.StudentEmail != "" {
		c.add("student_email = $%d", filter.StudentEmail)
	}
	if filter.StudentEmails != nil {
		c.add("student_email = ANY($%d)", pq.Array(filter.StudentEmails))
	}
	if filter.QuestionIDs != nil {
		c.add("question_id = ANY($%d)", pq.Array(filter.QuestionIDs))
	}
	if filter.Stages != nil {
		stages := make([]string, len(filter.Stages))
		for i, s := range filter.Stages {
			stages[i] = string(s)
		}
		c.add("stage = ANY($%d)", pq.Array(stages))
	}
	if filter.Class != "" {
		c.add("class = $%d", filter.Class)
	}
	if filter.UngradedOnly {
		c.raw("mark IS NULL")
	}

	query := `SELECT ` + answerColumns + ` FROM answers` + c.where() + ` ORDER BY date DESC, created_at`

	rows, err := r.db.QueryContext(ctx, query, c.args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var answers []models.Answer
	for rows.Next() {
		a, err := scanAnswer(rows)
		if err != nil {
			return nil, err
		}
		answers = append(answers, *a)
	}

	return answers, rows.Err()
}

// Update rewrites the mutable part of one answer. Archiving is a stage
// change on the same row.
func (r *answerRepository) Update(ctx context.Context, a *models.Answer) error {
	query := `
		UPDATE answers
		SET text = $1, mark = $2, remarks = $3, stage = $4, updated_at = $5
		WHERE id = $6
	`

	_, err := r.db.ExecContext(ctx, query,
		a.Text,
		markValue(a.Mark),
		a.Remarks,
		string(a.Stage),
		a.UpdatedAt,
		a.ID,
	)

	return err
}

func (r *answerRepository) Grade(ctx context.Context, a *models.Answer) error {
	query := `
		UPDATE answers
		SET mark = $1, remarks = $2, stage = $3, updated_at = $4
		WHERE id = $5 AND mark IS NULL
	`

	res, err := r.db.ExecContext(ctx, query,
		markValue(a.Mark),
		a.Remarks,
		string(a.Stage),
		a.UpdatedAt,
		a.ID,
	)
	if err != nil {
		return err
	}

	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrConflict
	}

	return nil
}

func markValue(g *models.Grade) interface{} {
	if g == nil {
		return nil
	}
	return int(*g)
}

func scanAnswer(row rowScanner) (*models.Answer, error) {
	a := &models.Answer{}
	var mark sql.NullInt64
	var stage string

	err := row.Scan(
		&a.ID,
		&a.StudentEmail,
		&a.QuestionID,
		&a.Date,
		&a.Class,
		&a.Subject,
		&a.Question,
		&a.Text,
		&mark,
		&a.Remarks,
		&stage,
		&a.CreatedAt,
		&a.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if mark.Valid {
		a.Mark = models.GradePtr(models.Grade(mark.Int64))
	}
	a.Stage = models.AnswerStage(stage)
	return a, nil
}
