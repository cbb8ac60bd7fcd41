package sheets

import (
	"context"
	"errors"

	"moneta/internal/core"
)

// ErrRowNotFound is returned when no mirrored row carries the requested id.
var ErrRowNotFound = errors.New("row not found")

// Ports for outbound adapters.
type (
	// TransactionWriter mirrors ledger transactions into a spreadsheet-like sink.
	// Rows are keyed by transaction id.
	TransactionWriter interface {
		Append(ctx context.Context, userID string, tx core.Transaction) (rowRef string, err error)
		UpdateByID(ctx context.Context, userID string, tx core.Transaction) error
		DeleteByID(ctx context.Context, id string) error
		// DeleteMany removes every row whose id is in ids and reports how many
		// were found. Missing ids are not an error.
		DeleteMany(ctx context.Context, ids []string) (int, error)
	}
)

// Header is the first row of a mirror sheet.
var Header = []string{"ID", "Date", "Type", "Category", "Amount", "Note", "GoalID", "UserID"}
