package sheets

import (
	"context"
	"encoding/base64"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"google.golang.org/api/option"
	gsheets "google.golang.org/api/sheets/v4"
)

const valueInputRaw = "RAW"

type worksheet struct {
	id    int64
	title string
}

// GoogleBackend talks to the Sheets API. A table identifier is a spreadsheet
// key and the data lives on its first worksheet.
type GoogleBackend struct {
	svc     *gsheets.Service
	timeout time.Duration
	logger  zerolog.Logger

	mu     sync.Mutex
	sheets map[string]worksheet
}

// NewGoogleBackend builds the API client from base64-encoded service account
// JSON credentials. A positive timeout bounds every API call.
func NewGoogleBackend(ctx context.Context, credentialsBase64 string, timeout time.Duration, logger zerolog.Logger) (*GoogleBackend, error) {
	creds, err := base64.StdEncoding.DecodeString(credentialsBase64)
	if err != nil {
		return nil, fmt.Errorf("failed to decode sheets credentials: %w", err)
	}

	svc, err := gsheets.NewService(ctx,
		option.WithCredentialsJSON(creds),
		option.WithScopes(gsheets.SpreadsheetsScope),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create sheets client: %w", err)
	}

	logger.Info().Msg("Connected to Google Sheets")

	return &GoogleBackend{
		svc:     svc,
		timeout: timeout,
		logger:  logger,
		sheets:  make(map[string]worksheet),
	}, nil
}

func (b *GoogleBackend) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if b.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, b.timeout)
}

func (b *GoogleBackend) worksheet(ctx context.Context, tableID string) (worksheet, error) {
	b.mu.Lock()
	ws, ok := b.sheets[tableID]
	b.mu.Unlock()
	if ok {
		return ws, nil
	}

	ss, err := b.svc.Spreadsheets.Get(tableID).Fields("sheets.properties").Context(ctx).Do()
	if err != nil {
		return worksheet{}, fmt.Errorf("failed to open spreadsheet: %w", err)
	}
	if len(ss.Sheets) == 0 || ss.Sheets[0].Properties == nil {
		return worksheet{}, fmt.Errorf("spreadsheet %s has no worksheets", tableID)
	}

	props := ss.Sheets[0].Properties
	ws = worksheet{id: props.SheetId, title: props.Title}

	b.mu.Lock()
	b.sheets[tableID] = ws
	b.mu.Unlock()

	return ws, nil
}

func (ws worksheet) rangeAll() string {
	return fmt.Sprintf("'%s'", ws.title)
}

func (ws worksheet) rangeRow(row int) string {
	return fmt.Sprintf("'%s'!A%d", ws.title, row)
}

func (b *GoogleBackend) Read(ctx context.Context, tableID string) ([][]string, error) {
	ctx, cancel := b.withTimeout(ctx)
	defer cancel()

	ws, err := b.worksheet(ctx, tableID)
	if err != nil {
		return nil, err
	}

	resp, err := b.svc.Spreadsheets.Values.Get(tableID, ws.rangeAll()).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("failed to read values: %w", err)
	}

	values := make([][]string, len(resp.Values))
	for i, row := range resp.Values {
		values[i] = make([]string, len(row))
		for j, cell := range row {
			values[i][j] = fmt.Sprint(cell)
		}
	}

	return values, nil
}

func (b *GoogleBackend) Replace(ctx context.Context, tableID string, values [][]string) error {
	ctx, cancel := b.withTimeout(ctx)
	defer cancel()

	ws, err := b.worksheet(ctx, tableID)
	if err != nil {
		return err
	}

	if _, err := b.svc.Spreadsheets.Values.Clear(tableID, ws.rangeAll(), &gsheets.ClearValuesRequest{}).Context(ctx).Do(); err != nil {
		return fmt.Errorf("failed to clear worksheet: %w", err)
	}

	_, err = b.svc.Spreadsheets.Values.Update(tableID, ws.rangeRow(1), toValueRange(values)).
		ValueInputOption(valueInputRaw).
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("failed to write worksheet: %w", err)
	}

	return nil
}

func (b *GoogleBackend) Append(ctx context.Context, tableID string, rows [][]string) error {
	ctx, cancel := b.withTimeout(ctx)
	defer cancel()

	ws, err := b.worksheet(ctx, tableID)
	if err != nil {
		return err
	}

	_, err = b.svc.Spreadsheets.Values.Append(tableID, ws.rangeAll(), toValueRange(rows)).
		ValueInputOption(valueInputRaw).
		InsertDataOption("INSERT_ROWS").
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("failed to append rows: %w", err)
	}

	return nil
}

func (b *GoogleBackend) UpdateRow(ctx context.Context, tableID string, rowNumber int, values []string) error {
	ctx, cancel := b.withTimeout(ctx)
	defer cancel()

	ws, err := b.worksheet(ctx, tableID)
	if err != nil {
		return err
	}

	_, err = b.svc.Spreadsheets.Values.Update(tableID, ws.rangeRow(rowNumber), toValueRange([][]string{values})).
		ValueInputOption(valueInputRaw).
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("failed to update row %d: %w", rowNumber, err)
	}

	return nil
}

func (b *GoogleBackend) DeleteRow(ctx context.Context, tableID string, rowNumber int) error {
	ctx, cancel := b.withTimeout(ctx)
	defer cancel()

	ws, err := b.worksheet(ctx, tableID)
	if err != nil {
		return err
	}

	req := &gsheets.BatchUpdateSpreadsheetRequest{
		Requests: []*gsheets.Request{{
			DeleteDimension: &gsheets.DeleteDimensionRequest{
				Range: ws.rowRange(rowNumber),
			},
		}},
	}

	if _, err := b.svc.Spreadsheets.BatchUpdate(tableID, req).Context(ctx).Do(); err != nil {
		return fmt.Errorf("failed to delete row %d: %w", rowNumber, err)
	}

	return nil
}

func (b *GoogleBackend) InsertRow(ctx context.Context, tableID string, rowNumber int, values []string) error {
	ctx, cancel := b.withTimeout(ctx)
	defer cancel()

	ws, err := b.worksheet(ctx, tableID)
	if err != nil {
		return err
	}

	req := &gsheets.BatchUpdateSpreadsheetRequest{
		Requests: []*gsheets.Request{{
			InsertDimension: &gsheets.InsertDimensionRequest{
				Range:             ws.rowRange(rowNumber),
				InheritFromBefore: false,
			},
		}},
	}

	if _, err := b.svc.Spreadsheets.BatchUpdate(tableID, req).Context(ctx).Do(); err != nil {
		return fmt.Errorf("failed to insert row %d: %w", rowNumber, err)
	}

	return b.UpdateRow(ctx, tableID, rowNumber, values)
}

func (ws worksheet) rowRange(rowNumber int) *gsheets.DimensionRange {
	return &gsheets.DimensionRange{
		SheetId:    ws.id,
		Dimension:  "ROWS",
		StartIndex: int64(rowNumber - 1),
		EndIndex:   int64(rowNumber),
		// the first worksheet usually has id 0, which omitempty would drop
		ForceSendFields: []string{"SheetId", "StartIndex"},
	}
}

func toValueRange(values [][]string) *gsheets.ValueRange {
	rows := make([][]interface{}, len(values))
	for i, row := range values {
		rows[i] = make([]interface{}, len(row))
		for j, cell := range row {
			rows[i][j] = cell
		}
	}
	return &gsheets.ValueRange{Values: rows}
}
