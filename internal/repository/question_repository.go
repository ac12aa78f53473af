package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"
	"github.com/prk-tuition/homework-service/internal/models"
	"github.com/rs/zerolog"
)

type QuestionRepository interface {
	CreateBatch(ctx context.Context, questions []models.Question) error
	GetByID(ctx context.Context, id string) (*models.Question, error)
	List(ctx context.Context, filter models.QuestionFilter) ([]models.Question, error)
}

type questionRepository struct {
	*PostgresRepository
}

func NewQuestionRepository(db *sql.DB, logger zerolog.Logger) QuestionRepository {
	return &questionRepository{
		PostgresRepository: NewPostgresRepository(db, logger),
	}
}

func (r *questionRepository) CreateBatch(ctx context.Context, questions []models.Question) error {
	tx, err := r.BeginTx(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	query := `
		INSERT INTO questions (id, class, date, uploaded_by, subject, text, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	for _, q := range questions {
		_, err := tx.ExecContext(ctx, query,
			q.ID,
			q.Class,
			q.Date,
			q.UploadedBy,
			q.Subject,
			q.Text,
			q.CreatedAt,
		)
		if err != nil {
			return err
		}
	}

	return tx.Commit()
}

func (r *questionRepository) GetByID(ctx context.Context, id string) (*models.Question, error) {
	if !validID(id) {
		return nil, nil
	}

	query := `
		SELECT id, class, date, uploaded_by, subject, text, created_at
		FROM questions
		WHERE id = $1
	`

	q := &models.Question{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&q.ID,
		&q.Class,
		&q.Date,
		&q.UploadedBy,
		&q.Subject,
		&q.Text,
		&q.CreatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}

	return q, err
}

func (r *questionRepository) List(ctx context.Context, filter models.QuestionFilter) ([]models.Question, error) {
	var c conditions
	if filter.Class != "" {
		c.add("class = $%d", filter.Class)
	}
	if filter.Subject != "" {
		c.add("subject = $%d", filter.Subject)
	}
	if filter.UploadedBy != "" {
		c.add("uploaded_by = $%d", filter.UploadedBy)
	}
	if !filter.Date.IsZero() {
		c.add("date = $%d", filter.Date)
	}
	if !filter.From.IsZero() {
		c.add("date >= $%d", filter.From)
	}
	if !filter.To.IsZero() {
		c.add("date <= $%d", filter.To)
	}
	if filter.IDs != nil {
		c.add("id = ANY($%d)", pq.Array(filter.IDs))
	}

	query := `
		SELECT id, class, date, uploaded_by, subject, text, created_at
		FROM questions` + c.where() + `
		ORDER BY date DESC, created_at
	`

	rows, err := r.db.QueryContext(ctx, query, c.args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var questions []models.Question
	for rows.Next() {
		var q models.Question
		if err := rows.Scan(
			&q.ID,
			&q.Class,
			&q.Date,
			&q.UploadedBy,
			&q.Subject,
			&q.Text,
			&q.CreatedAt,
		); err != nil {
			return nil, err
		}
		questions = append(questions, q)
	}

	return questions, rows.Err()
}
