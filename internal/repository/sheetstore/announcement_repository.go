package sheetstore

import (
	"context"

	"github.com/prk-tuition/homework-service/internal/models"
	"github.com/prk-tuition/homework-service/internal/repository"
	"github.com/prk-tuition/homework-service/internal/sheets"
	"github.com/rs/zerolog"
)

const (
	colMessage   = "Message"
	colCreatedBy = "Created By"
)

// The original sheet has Message and Date first; keep them there.
var announcementColumns = []string{colMessage, colDate, colID, colCreatedBy, colCreatedAt}

type announcementRepository struct {
	t *table
}

func NewAnnouncementRepository(gw *sheets.Gateway, tableID string, logger zerolog.Logger) repository.AnnouncementRepository {
	return &announcementRepository{t: newTable(gw, tableID, announcementColumns, logger)}
}

// Create inserts the announcement directly under the header so the table
// reads newest first.
func (r *announcementRepository) Create(ctx context.Context, a *models.Announcement) error {
	tb, err := r.t.load(ctx)
	if err != nil {
		return err
	}

	row := tb.RowFrom(map[string]string{
		colMessage:   a.Message,
		colDate:      a.Date.String(),
		colID:        a.ID,
		colCreatedBy: a.CreatedBy,
		colCreatedAt: formatTime(a.CreatedAt),
	})

	return r.t.gw.InsertTop(ctx, r.t.id, row)
}

func (r *announcementRepository) List(ctx context.Context, limit int) ([]models.Announcement, error) {
	tb, err := r.t.load(ctx)
	if err != nil {
		return nil, err
	}

	var out []models.Announcement
	for i := 0; i < tb.Len() && len(out) < limit; i++ {
		if tb.Get(i, colMessage) == "" {
			continue
		}
		out = append(out, models.Announcement{
			ID:        tb.Get(i, colID),
			Message:   tb.Get(i, colMessage),
			Date:      r.t.parseDate(tb.Get(i, colDate), colDate),
			CreatedBy: tb.Get(i, colCreatedBy),
			CreatedAt: parseTime(tb.Get(i, colCreatedAt)),
		})
	}

	return out, nil
}
