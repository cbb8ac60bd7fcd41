package google

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"

	"moneta/internal/core"
	ports "moneta/internal/sheets"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

// fakeSheets emulates the handful of Sheets API calls the client makes
// against a single in-memory sheet.
type fakeSheets struct {
	mu      sync.Mutex
	rows    [][]any
	batches int
}

func (f *fakeSheets) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	path := r.URL.Path
	switch {
	case r.Method == http.MethodGet && strings.Contains(path, "/values/"):
		col := make([][]any, 0, len(f.rows))
		for _, row := range f.rows {
			if len(row) == 0 {
				col = append(col, []any{})
				continue
			}
			col = append(col, []any{row[0]})
		}
		writeJSON(w, map[string]any{"values": col})

	case r.Method == http.MethodPost && strings.HasSuffix(path, ":append"):
		var vr gsheet.ValueRange
		if err := json.NewDecoder(r.Body).Decode(&vr); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		f.rows = append(f.rows, vr.Values...)
		n := len(f.rows)
		writeJSON(w, map[string]any{"updates": map[string]any{"updatedRange": fmt.Sprintf("'Transactions'!A%d:H%d", n, n)}})

	case r.Method == http.MethodPut && strings.Contains(path, "/values/"):
		var vr gsheet.ValueRange
		if err := json.NewDecoder(r.Body).Decode(&vr); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		rng := path[strings.Index(path, "!A")+2:]
		row, err := strconv.Atoi(rng[:strings.Index(rng, ":")])
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		for len(f.rows) < row {
			f.rows = append(f.rows, []any{})
		}
		f.rows[row-1] = vr.Values[0]
		writeJSON(w, map[string]any{})

	case r.Method == http.MethodPost && strings.HasSuffix(path, ":batchUpdate"):
		var req gsheet.BatchUpdateSpreadsheetRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		f.batches++
		for _, rq := range req.Requests {
			rng := rq.DeleteDimension.Range
			if rng.SheetId != 7 {
				http.Error(w, "wrong sheet", http.StatusBadRequest)
				return
			}
			f.rows = append(f.rows[:rng.StartIndex], f.rows[rng.EndIndex:]...)
		}
		writeJSON(w, map[string]any{})

	case r.Method == http.MethodGet:
		writeJSON(w, map[string]any{"sheets": []any{
			map[string]any{"properties": map[string]any{"sheetId": 3, "title": "Other"}},
			map[string]any{"properties": map[string]any{"sheetId": 7, "title": "Transactions"}},
		}})

	default:
		http.Error(w, "unexpected call "+r.Method+" "+path, http.StatusNotImplemented)
	}
}

func (f *fakeSheets) ids() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, 0, len(f.rows))
	for _, row := range f.rows {
		if len(row) > 0 {
			out = append(out, fmt.Sprint(row[0]))
		}
	}
	return out
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}

func newFakeClient(t *testing.T) (*Client, *fakeSheets) {
	t.Helper()
	fake := &fakeSheets{}
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	c, err := New(context.Background(), Config{SpreadsheetID: "sid"},
		goption.WithEndpoint(srv.URL+"/"),
		goption.WithoutAuthentication(),
		goption.WithHTTPClient(srv.Client()),
	)
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	return c, fake
}

func sampleTx(id string, cents int64) core.Transaction {
	return core.Transaction{
		ID:       id,
		Amount:   core.Money{Cents: cents},
		Type:     core.Expense,
		Category: "Food",
		Date:     core.NewDate(2024, 3, 5),
	}
}

func TestNew_MissingSpreadsheetID(t *testing.T) {
	if _, err := New(context.Background(), Config{CredentialsFile: "x.json"}); err == nil {
		t.Fatal("expected error for missing spreadsheet id")
	}
}

func TestNew_MissingCredentials(t *testing.T) {
	_, err := New(context.Background(), Config{SpreadsheetID: "sid"})
	if err == nil || !strings.Contains(err.Error(), "credentials") {
		t.Fatalf("expected credentials error, got %v", err)
	}
}

func TestClient_AppendValidates(t *testing.T) {
	c := &Client{spreadsheetID: "sid", sheetName: DefaultSheetName}
	bad := sampleTx("t1", 100)
	bad.Category = ""
	_, err := c.Append(context.Background(), "u1", bad)
	if !errors.Is(err, core.ErrEmptyCategory) {
		t.Fatalf("expected ErrEmptyCategory, got %v", err)
	}
}

func TestClient_MirrorLifecycle(t *testing.T) {
	ctx := context.Background()
	c, fake := newFakeClient(t)

	if err := c.EnsureHeader(ctx); err != nil {
		t.Fatalf("ensure header: %v", err)
	}
	if err := c.EnsureHeader(ctx); err != nil {
		t.Fatalf("ensure header twice: %v", err)
	}

	for _, id := range []string{"t1", "t2", "t3"} {
		ref, err := c.Append(ctx, "u1", sampleTx(id, 1000))
		if err != nil {
			t.Fatalf("append %s: %v", id, err)
		}
		if ref == "" {
			t.Fatalf("append %s returned empty ref", id)
		}
	}
	if got := strings.Join(fake.ids(), ","); got != "ID,t1,t2,t3" {
		t.Fatalf("rows after append: %s", got)
	}

	updated := sampleTx("t2", 2500)
	updated.Note = "edited"
	if err := c.UpdateByID(ctx, "u1", updated); err != nil {
		t.Fatalf("update: %v", err)
	}
	fake.mu.Lock()
	row := fake.rows[2]
	fake.mu.Unlock()
	if row[4] != "25.00" || row[5] != "edited" {
		t.Fatalf("row not rewritten: %v", row)
	}

	if err := c.UpdateByID(ctx, "u1", sampleTx("missing", 100)); !errors.Is(err, ports.ErrRowNotFound) {
		t.Fatalf("expected ErrRowNotFound, got %v", err)
	}

	n, err := c.DeleteMany(ctx, []string{"t1", "t3", "missing"})
	if err != nil {
		t.Fatalf("delete many: %v", err)
	}
	if n != 2 {
		t.Fatalf("deleted %d rows, want 2", n)
	}
	if got := strings.Join(fake.ids(), ","); got != "ID,t2" {
		t.Fatalf("rows after delete: %s", got)
	}

	if err := c.DeleteByID(ctx, "t2"); err != nil {
		t.Fatalf("delete by id: %v", err)
	}
	if err := c.DeleteByID(ctx, "t2"); !errors.Is(err, ports.ErrRowNotFound) {
		t.Fatalf("expected ErrRowNotFound on second delete, got %v", err)
	}
	if fake.batches != 2 {
		t.Fatalf("expected 2 batch updates, got %d", fake.batches)
	}
}
