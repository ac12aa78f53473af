// Package sheetstore implements the repositories on top of spreadsheet
// tables reached through the storage gateway.
package sheetstore

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/prk-tuition/homework-service/internal/models"
	"github.com/prk-tuition/homework-service/internal/sheets"
	"github.com/rs/zerolog"
)

const (
	colID        = "ID"
	colCreatedAt = "Created At"
	colUpdatedAt = "Updated At"
)

// table binds a repository to one spreadsheet and makes sure its header
// carries every column the repository writes.
type table struct {
	gw      *sheets.Gateway
	id      string
	columns []string
	logger  zerolog.Logger

	mu    sync.Mutex
	ready bool
}

func newTable(gw *sheets.Gateway, id string, columns []string, logger zerolog.Logger) *table {
	return &table{
		gw:      gw,
		id:      id,
		columns: columns,
		logger:  logger.With().Str("table", id).Logger(),
	}
}

func (t *table) ensure(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.ready {
		return nil
	}

	if err := t.gw.EnsureHeader(ctx, t.id, t.columns); err != nil {
		return err
	}

	if t.hasColumn(colID) {
		// rows written before the ID column existed get one now
		n, err := t.gw.UpdateWhere(ctx, t.id, colID, "", func(tb *sheets.Table, row int) {
			tb.Set(row, colID, uuid.New().String())
		})
		if err != nil {
			return err
		}
		if n > 0 {
			t.logger.Info().Int("rows", n).Msg("Backfilled row identifiers")
		}
	}

	t.ready = true
	return nil
}

func (t *table) hasColumn(c string) bool {
	for _, col := range t.columns {
		if col == c {
			return true
		}
	}
	return false
}

func (t *table) load(ctx context.Context) (*sheets.Table, error) {
	if err := t.ensure(ctx); err != nil {
		return nil, err
	}
	return t.gw.Load(ctx, t.id)
}

func (t *table) append(ctx context.Context, records ...map[string]string) error {
	if err := t.ensure(ctx); err != nil {
		return err
	}

	header, err := t.gw.Load(ctx, t.id)
	if err != nil {
		return err
	}

	rows := make([][]string, len(records))
	for i, rec := range records {
		rows[i] = header.RowFrom(rec)
	}

	return t.gw.Append(ctx, t.id, rows...)
}

func (t *table) update(ctx context.Context, column, key string, mutate func(tb *sheets.Table, row int)) (int, error) {
	if err := t.ensure(ctx); err != nil {
		return 0, err
	}
	return t.gw.UpdateWhere(ctx, t.id, column, key, mutate)
}

func (t *table) delete(ctx context.Context, column, key string) (int, error) {
	if err := t.ensure(ctx); err != nil {
		return 0, err
	}
	return t.gw.DeleteWhere(ctx, t.id, column, key)
}

func yesNo(b bool) string {
	if b {
		return "Yes"
	}
	return "No"
}

func parseYes(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "yes", "true", "1":
		return true
	}
	return false
}

// parseInt reads integer cells, tolerating the "12.0" form spreadsheets
// produce for numeric columns.
func parseInt(s string) int {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0
	}
	if n, err := strconv.Atoi(s); err == nil {
		return n
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return int(f)
	}
	return 0
}

func (t *table) parseDate(s, column string) models.Date {
	d, err := models.ParseDate(s)
	if err != nil {
		t.logger.Warn().Err(err).Str("column", column).Msg("Ignoring malformed date cell")
		return models.Date{}
	}
	return d
}

func formatTime(ts time.Time) string {
	if ts.IsZero() {
		return ""
	}
	return ts.UTC().Format(time.RFC3339)
}

func parseTime(s string) time.Time {
	ts, err := time.Parse(time.RFC3339, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}
	}
	return ts
}

func formatMark(g *models.Grade) string {
	if g == nil {
		return ""
	}
	return strconv.Itoa(int(*g))
}

func parseMark(s string) (*models.Grade, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	g, err := models.ParseGrade(s)
	if err != nil {
		return nil, fmt.Errorf("invalid mark %q: %w", s, err)
	}
	return &g, nil
}
