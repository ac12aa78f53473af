package repository

import (
	"context"
	"database/sql"

	"github.com/prk-tuition/homework-service/internal/models"
	"github.com/rs/zerolog"
)

type AnnouncementRepository interface {
	Create(ctx context.Context, a *models.Announcement) error
	// List returns announcements newest first.
	List(ctx context.Context, limit int) ([]models.Announcement, error)
}

type announcementRepository struct {
	*PostgresRepository
}

func NewAnnouncementRepository(db *sql.DB, logger zerolog.Logger) AnnouncementRepository {
	return &announcementRepository{
		PostgresRepository: NewPostgresRepository(db, logger),
	}
}

func (r *announcementRepository) Create(ctx context.Context, a *models.Announcement) error {
	query := `
		INSERT INTO announcements (id, message, date, created_by, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`

	_, err := r.db.ExecContext(ctx, query, a.ID, a.Message, a.Date, a.CreatedBy, a.CreatedAt)
	return err
}

func (r *announcementRepository) List(ctx context.Context, limit int) ([]models.Announcement, error) {
	query := `
		SELECT id, message, date, created_by, created_at
		FROM announcements
		ORDER BY created_at DESC
		LIMIT $1
	`

	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var announcements []models.Announcement
	for rows.Next() {
		var a models.Announcement
		if err := rows.Scan(&a.ID, &a.Message, &a.Date, &a.CreatedBy, &a.CreatedAt); err != nil {
			return nil, err
		}
		announcements = append(announcements, a)
	}

	return announcements, rows.Err()
}
