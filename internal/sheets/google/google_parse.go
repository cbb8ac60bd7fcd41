package google

import (
	"fmt"
	"sort"
	"strings"

	"moneta/internal/core"

	gsheet "google.golang.org/api/sheets/v4"
)

// encodeRow lays a transaction out as ID, Date, Type, Category, Amount, Note,
// GoalID, UserID. The amount is written as a plain decimal string so that the
// sheet locale decides its display.
func encodeRow(userID string, tx core.Transaction) []any {
	return []any{
		tx.ID,
		tx.Date.Display(),
		string(tx.Type),
		tx.Category,
		tx.Amount.String(),
		tx.Note,
		tx.GoalID,
		userID,
	}
}

func headerRow(cols []string) []any {
	out := make([]any, len(cols))
	for i, c := range cols {
		out[i] = c
	}
	return out
}

// findRows maps each requested id to its zero-based row index in a column-A
// values matrix. A header row never matches.
func findRows(values [][]any, ids ...string) map[string]int {
	skipFirst := isHeader(values)
	want := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if id = strings.TrimSpace(id); id != "" {
			want[id] = struct{}{}
		}
	}
	found := make(map[string]int, len(want))
	for i, row := range values {
		if (i == 0 && skipFirst) || len(row) == 0 {
			continue
		}
		id := strings.TrimSpace(fmt.Sprint(row[0]))
		if _, ok := want[id]; !ok {
			continue
		}
		if _, dup := found[id]; !dup {
			found[id] = i
		}
	}
	return found
}

// deleteRequests builds one DeleteDimension request per row, highest index
// first so earlier deletions do not shift later ones.
func deleteRequests(sheetID int64, rows []int) []*gsheet.Request {
	sorted := append([]int(nil), rows...)
	sort.Sort(sort.Reverse(sort.IntSlice(sorted)))
	reqs := make([]*gsheet.Request, 0, len(sorted))
	for _, r := range sorted {
		reqs = append(reqs, &gsheet.Request{
			DeleteDimension: &gsheet.DeleteDimensionRequest{
				Range: &gsheet.DimensionRange{
					SheetId:         sheetID,
					Dimension:       "ROWS",
					StartIndex:      int64(r),
					EndIndex:        int64(r + 1),
					ForceSendFields: []string{"SheetId", "StartIndex"},
				},
			},
		})
	}
	return reqs
}

// quoteSheet wraps a sheet title for use in A1 notation.
func quoteSheet(name string) string {
	return "'" + strings.ReplaceAll(name, "'", "''") + "'"
}

func isHeader(values [][]any) bool {
	if len(values) == 0 || len(values[0]) == 0 {
		return false
	}
	return strings.EqualFold(strings.TrimSpace(fmt.Sprint(values[0][0])), "ID")
}
