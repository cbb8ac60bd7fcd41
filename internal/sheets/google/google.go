package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"moneta/internal/core"
	ports "moneta/internal/sheets"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

const DefaultSheetName = "Transactions"

// Config selects the spreadsheet, the mirror sheet and the service account.
// CredentialsJSON wins over CredentialsFile when both are set.
type Config struct {
	SpreadsheetID   string
	SheetName       string
	CredentialsFile string
	CredentialsJSON string
}

type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	sheetName     string

	// mu serialises row lookups with the writes that depend on them.
	mu      sync.Mutex
	sheetID *int64
}

// Ensure interface conformance
var _ ports.TransactionWriter = (*Client)(nil)

// New creates a Sheets client authenticated with a service account. Extra
// options are appended after the credentials, which lets tests point the
// client at a local endpoint.
func New(ctx context.Context, cfg Config, opts ...goption.ClientOption) (*Client, error) {
	spreadsheetID := strings.TrimSpace(cfg.SpreadsheetID)
	if spreadsheetID == "" {
		return nil, errors.New("missing spreadsheet id")
	}
	sheetName := strings.TrimSpace(cfg.SheetName)
	if sheetName == "" {
		sheetName = DefaultSheetName
	}

	var all []goption.ClientOption
	switch {
	case strings.TrimSpace(cfg.CredentialsJSON) != "":
		slog.InfoContext(ctx, "Using inline service account credentials")
		all = append(all, goption.WithCredentialsJSON([]byte(cfg.CredentialsJSON)))
	case strings.TrimSpace(cfg.CredentialsFile) != "":
		slog.InfoContext(ctx, "Reading service account credentials", "path", cfg.CredentialsFile)
		all = append(all, goption.WithCredentialsFile(cfg.CredentialsFile))
	case len(opts) == 0:
		return nil, errors.New("missing service account credentials")
	}
	all = append(all, goption.WithScopes(gsheet.SpreadsheetsScope))
	all = append(all, opts...)

	svc, err := gsheet.NewService(ctx, all...)
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}

	slog.InfoContext(ctx, "Google Sheets service created",
		"spreadsheet_id", spreadsheetID,
		"sheet", sheetName)
	return &Client{svc: svc, spreadsheetID: spreadsheetID, sheetName: sheetName}, nil
}

// EnsureHeader writes the column header into row 1 when the sheet is empty.
func (c *Client) EnsureHeader(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	values, err := c.readIDs(ctx)
	if err != nil {
		return err
	}
	if isHeader(values) {
		return nil
	}
	if len(values) > 0 {
		slog.WarnContext(ctx, "Mirror sheet has data but no header", "sheet", c.sheetName)
		return nil
	}
	rng := fmt.Sprintf("%s!A1:H1", quoteSheet(c.sheetName))
	vr := &gsheet.ValueRange{Values: [][]any{headerRow(ports.Header)}}
	if _, err := c.svc.Spreadsheets.Values.Update(c.spreadsheetID, rng, vr).
		ValueInputOption("RAW").Context(ctx).Do(); err != nil {
		return fmt.Errorf("write header to %s: %w", c.sheetName, err)
	}
	return nil
}

// Append adds one row at the end of the mirror sheet and returns its A1 range.
func (c *Client) Append(ctx context.Context, userID string, tx core.Transaction) (string, error) {
	if err := tx.Validate(); err != nil {
		return "", fmt.Errorf("validation failed: %w", err)
	}
	if c.svc == nil {
		return "", errors.New("sheets service not initialized")
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	rng := fmt.Sprintf("%s!A:H", quoteSheet(c.sheetName))
	vr := &gsheet.ValueRange{Values: [][]any{encodeRow(userID, tx)}}
	resp, err := c.svc.Spreadsheets.Values.Append(c.spreadsheetID, rng, vr).
		ValueInputOption("RAW").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("append to sheet %s: %w", c.sheetName, err)
	}

	ref := rng
	if resp.Updates != nil && resp.Updates.UpdatedRange != "" {
		ref = resp.Updates.UpdatedRange
	}
	return ref, nil
}

// UpdateByID rewrites the row whose column A equals tx.ID.
func (c *Client) UpdateByID(ctx context.Context, userID string, tx core.Transaction) error {
	if err := tx.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}
	if c.svc == nil {
		return errors.New("sheets service not initialized")
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	values, err := c.readIDs(ctx)
	if err != nil {
		return err
	}
	idx, ok := findRows(values, tx.ID)[tx.ID]
	if !ok {
		return fmt.Errorf("transaction %s: %w", tx.ID, ports.ErrRowNotFound)
	}

	row := idx + 1
	rng := fmt.Sprintf("%s!A%d:H%d", quoteSheet(c.sheetName), row, row)
	vr := &gsheet.ValueRange{Values: [][]any{encodeRow(userID, tx)}}
	if _, err := c.svc.Spreadsheets.Values.Update(c.spreadsheetID, rng, vr).
		ValueInputOption("RAW").Context(ctx).Do(); err != nil {
		return fmt.Errorf("update %s: %w", rng, err)
	}
	return nil
}

// DeleteByID removes the row whose column A equals id.
func (c *Client) DeleteByID(ctx context.Context, id string) error {
	n, err := c.DeleteMany(ctx, []string{id})
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("transaction %s: %w", id, ports.ErrRowNotFound)
	}
	return nil
}

// DeleteMany removes all rows matching ids in a single batch update.
func (c *Client) DeleteMany(ctx context.Context, ids []string) (int, error) {
	if c.svc == nil {
		return 0, errors.New("sheets service not initialized")
	}
	if len(ids) == 0 {
		return 0, nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	values, err := c.readIDs(ctx)
	if err != nil {
		return 0, err
	}
	found := findRows(values, ids...)
	if len(found) == 0 {
		return 0, nil
	}
	rows := make([]int, 0, len(found))
	for _, idx := range found {
		rows = append(rows, idx)
	}

	sheetID, err := c.resolveSheetID(ctx)
	if err != nil {
		return 0, err
	}
	req := &gsheet.BatchUpdateSpreadsheetRequest{Requests: deleteRequests(sheetID, rows)}
	if _, err := c.svc.Spreadsheets.BatchUpdate(c.spreadsheetID, req).Context(ctx).Do(); err != nil {
		return 0, fmt.Errorf("delete rows from %s: %w", c.sheetName, err)
	}
	return len(rows), nil
}

func (c *Client) readIDs(ctx context.Context) ([][]any, error) {
	rng := fmt.Sprintf("%s!A:A", quoteSheet(c.sheetName))
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", rng, err)
	}
	return resp.Values, nil
}

// resolveSheetID looks up the numeric id of the mirror sheet once.
func (c *Client) resolveSheetID(ctx context.Context) (int64, error) {
	if c.sheetID != nil {
		return *c.sheetID, nil
	}
	ss, err := c.svc.Spreadsheets.Get(c.spreadsheetID).Fields("sheets.properties").Context(ctx).Do()
	if err != nil {
		return 0, fmt.Errorf("get spreadsheet %s: %w", c.spreadsheetID, err)
	}
	for _, sh := range ss.Sheets {
		if sh.Properties != nil && sh.Properties.Title == c.sheetName {
			id := sh.Properties.SheetId
			c.sheetID = &id
			return id, nil
		}
	}
	return 0, fmt.Errorf("sheet %q not found in spreadsheet", c.sheetName)
}
