package sheets

import (
	"context"
	"fmt"
	"sync"
)

// MemoryBackend keeps tables in process. It backs tests and local runs
// without spreadsheet credentials.
type MemoryBackend struct {
	mu     sync.Mutex
	tables map[string][][]string
	reads  map[string]int
	err    error
}

func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{
		tables: make(map[string][][]string),
		reads:  make(map[string]int),
	}
}

// Seed replaces a table, header first.
func (b *MemoryBackend) Seed(tableID string, values [][]string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.tables[tableID] = cloneValues(values)
}

// Snapshot returns a copy of the stored values.
func (b *MemoryBackend) Snapshot(tableID string) [][]string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return cloneValues(b.tables[tableID])
}

// Reads counts remote reads per table.
func (b *MemoryBackend) Reads(tableID string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.reads[tableID]
}

// FailWith makes every following call return err until cleared with nil.
func (b *MemoryBackend) FailWith(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.err = err
}

func (b *MemoryBackend) Read(_ context.Context, tableID string) ([][]string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.err != nil {
		return nil, b.err
	}
	b.reads[tableID]++
	return cloneValues(b.tables[tableID]), nil
}

func (b *MemoryBackend) Replace(_ context.Context, tableID string, values [][]string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.err != nil {
		return b.err
	}
	b.tables[tableID] = cloneValues(values)
	return nil
}

func (b *MemoryBackend) Append(_ context.Context, tableID string, rows [][]string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.err != nil {
		return b.err
	}
	b.tables[tableID] = append(b.tables[tableID], cloneValues(rows)...)
	return nil
}

func (b *MemoryBackend) UpdateRow(_ context.Context, tableID string, rowNumber int, values []string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.err != nil {
		return b.err
	}
	t := b.tables[tableID]
	if rowNumber < 1 || rowNumber > len(t) {
		return fmt.Errorf("row %d out of range", rowNumber)
	}
	t[rowNumber-1] = append([]string(nil), values...)
	return nil
}

func (b *MemoryBackend) DeleteRow(_ context.Context, tableID string, rowNumber int) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.err != nil {
		return b.err
	}
	t := b.tables[tableID]
	if rowNumber < 1 || rowNumber > len(t) {
		return fmt.Errorf("row %d out of range", rowNumber)
	}
	b.tables[tableID] = append(t[:rowNumber-1], t[rowNumber:]...)
	return nil
}

func (b *MemoryBackend) InsertRow(_ context.Context, tableID string, rowNumber int, values []string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.err != nil {
		return b.err
	}
	t := b.tables[tableID]
	if rowNumber < 1 || rowNumber > len(t)+1 {
		return fmt.Errorf("row %d out of range", rowNumber)
	}
	t = append(t, nil)
	copy(t[rowNumber:], t[rowNumber-1:])
	t[rowNumber-1] = append([]string(nil), values...)
	b.tables[tableID] = t
	return nil
}

func cloneValues(values [][]string) [][]string {
	if values == nil {
		return nil
	}
	out := make([][]string, len(values))
	for i, row := range values {
		out[i] = append([]string(nil), row...)
	}
	return out
}
