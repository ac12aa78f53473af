package sheets

import "context"

// Backend is the remote spreadsheet transport. Rows are addressed by their
// 1-based spreadsheet row number; row 1 is the header.
type Backend interface {
	Read(ctx context.Context, tableID string) ([][]string, error)
	Replace(ctx context.Context, tableID string, values [][]string) error
	Append(ctx context.Context, tableID string, rows [][]string) error
	UpdateRow(ctx context.Context, tableID string, rowNumber int, values []string) error
	DeleteRow(ctx context.Context, tableID string, rowNumber int) error
	InsertRow(ctx context.Context, tableID string, rowNumber int, values []string) error
}
