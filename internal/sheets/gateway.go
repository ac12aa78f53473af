// Package sheets is the storage gateway to the remote spreadsheet tables.
package sheets

import (
	"context"
	"fmt"

	"github.com/prk-tuition/homework-service/internal/cache"
	"github.com/rs/zerolog"
)

const cachePrefix = "sheets:"

// Gateway reads whole tables through a cache and writes either the whole
// table (Save) or single rows addressed by a key column.
//
// Save has no conflict detection: a table computed from a stale snapshot
// overwrites rows written by others since that snapshot was taken.
type Gateway struct {
	backend Backend
	cache   cache.Cache
	logger  zerolog.Logger
}

func NewGateway(backend Backend, c cache.Cache, logger zerolog.Logger) *Gateway {
	return &Gateway{
		backend: backend,
		cache:   c,
		logger:  logger,
	}
}

// Load returns the table, served from the cache when fresh. On failure it
// returns an empty, non-nil table together with the error.
func (g *Gateway) Load(ctx context.Context, tableID string) (*Table, error) {
	if values, ok := g.cache.Get(ctx, cachePrefix+tableID); ok {
		return tableFromValues(values), nil
	}

	values, err := g.backend.Read(ctx, tableID)
	if err != nil {
		g.logger.Error().Err(err).Str("table", tableID).Msg("Failed to load table")
		return &Table{}, fmt.Errorf("failed to load table %s: %w", tableID, err)
	}

	g.cache.Set(ctx, cachePrefix+tableID, values)
	return tableFromValues(values), nil
}

// Save rewrites the remote table with the header and rows of t.
func (g *Gateway) Save(ctx context.Context, tableID string, t *Table) error {
	defer g.Invalidate(ctx, tableID)

	if err := g.backend.Replace(ctx, tableID, t.Values()); err != nil {
		return fmt.Errorf("failed to save table %s: %w", tableID, err)
	}

	g.logger.Debug().Str("table", tableID).Int("rows", t.Len()).Msg("Table saved")
	return nil
}

func (g *Gateway) Invalidate(ctx context.Context, tableID string) {
	g.cache.Delete(ctx, cachePrefix+tableID)
}

// EnsureHeader creates the header row of an empty table, or extends an
// existing header with missing columns.
func (g *Gateway) EnsureHeader(ctx context.Context, tableID string, columns []string) error {
	defer g.Invalidate(ctx, tableID)

	t, err := g.fresh(ctx, tableID)
	if err != nil {
		return err
	}

	if t.Empty() {
		if err := g.backend.Replace(ctx, tableID, [][]string{columns}); err != nil {
			return fmt.Errorf("failed to write header of %s: %w", tableID, err)
		}
		return nil
	}

	if !t.EnsureColumns(columns...) {
		return nil
	}

	if err := g.backend.UpdateRow(ctx, tableID, 1, t.Header); err != nil {
		return fmt.Errorf("failed to extend header of %s: %w", tableID, err)
	}
	return nil
}

// Append adds rows at the bottom of the table.
func (g *Gateway) Append(ctx context.Context, tableID string, rows ...[]string) error {
	if len(rows) == 0 {
		return nil
	}
	defer g.Invalidate(ctx, tableID)

	if err := g.backend.Append(ctx, tableID, rows); err != nil {
		return fmt.Errorf("failed to append to %s: %w", tableID, err)
	}
	return nil
}

// InsertTop inserts a row directly under the header.
func (g *Gateway) InsertTop(ctx context.Context, tableID string, row []string) error {
	defer g.Invalidate(ctx, tableID)

	if err := g.backend.InsertRow(ctx, tableID, SheetRow(0), row); err != nil {
		return fmt.Errorf("failed to insert into %s: %w", tableID, err)
	}
	return nil
}

// UpdateWhere re-reads the table bypassing the cache, applies mutate to every
// row whose column equals key, and writes back only those rows. It returns
// the number of rows updated.
func (g *Gateway) UpdateWhere(ctx context.Context, tableID, column, key string, mutate func(t *Table, row int)) (int, error) {
	defer g.Invalidate(ctx, tableID)

	t, err := g.fresh(ctx, tableID)
	if err != nil {
		return 0, err
	}

	rows := t.Find(column, key)
	for _, i := range rows {
		mutate(t, i)
		if err := g.backend.UpdateRow(ctx, tableID, SheetRow(i), t.pad(t.Rows[i])); err != nil {
			return 0, fmt.Errorf("failed to update row %d of %s: %w", SheetRow(i), tableID, err)
		}
	}

	return len(rows), nil
}

// DeleteWhere removes every row whose column equals key.
func (g *Gateway) DeleteWhere(ctx context.Context, tableID, column, key string) (int, error) {
	defer g.Invalidate(ctx, tableID)

	t, err := g.fresh(ctx, tableID)
	if err != nil {
		return 0, err
	}

	rows := t.Find(column, key)
	// bottom-up so earlier row numbers stay valid
	for j := len(rows) - 1; j >= 0; j-- {
		if err := g.backend.DeleteRow(ctx, tableID, SheetRow(rows[j])); err != nil {
			return 0, fmt.Errorf("failed to delete row %d of %s: %w", SheetRow(rows[j]), tableID, err)
		}
	}

	return len(rows), nil
}

func (g *Gateway) fresh(ctx context.Context, tableID string) (*Table, error) {
	values, err := g.backend.Read(ctx, tableID)
	if err != nil {
		return nil, fmt.Errorf("failed to read table %s: %w", tableID, err)
	}
	return tableFromValues(values), nil
}
