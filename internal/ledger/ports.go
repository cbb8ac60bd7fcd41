package ledger

import (
	"context"
	"time"

	"moneta/internal/core"
)

// Gateway is the remote system of record for transactions and goals. List
// calls return an empty slice, not an error, when the remote has nothing.
type Gateway interface {
	ListTransactions(ctx context.Context) ([]core.Transaction, error)
	ListGoals(ctx context.Context) ([]core.Goal, error)
	CreateTransaction(ctx context.Context, tx core.Transaction) (core.Transaction, error)
	UpdateTransaction(ctx context.Context, tx core.Transaction) (core.Transaction, error)
	DeleteTransaction(ctx context.Context, id string) error
	CreateGoal(ctx context.Context, g core.Goal) (core.Goal, error)
	UpdateGoal(ctx context.Context, g core.Goal) (core.Goal, error)
	// DeleteGoal removes the goal with its linked transactions and reports how
	// many transactions went with it.
	DeleteGoal(ctx context.Context, id string) (int, error)
}

// Store persists the whole ledger state between sessions.
type Store interface {
	// Load returns false when nothing has been saved yet.
	Load(ctx context.Context) (Snapshot, bool, error)
	Save(ctx context.Context, s Snapshot) error
}

// Snapshot is the full ledger state. Transactions are newest first.
type Snapshot struct {
	Transactions []core.Transaction
	Goals        []core.Goal
	Categories   []core.Category
	BudgetGoals  []core.BudgetGoal
}

func (s Snapshot) clone() Snapshot {
	return Snapshot{
		Transactions: append([]core.Transaction(nil), s.Transactions...),
		Goals:        append([]core.Goal(nil), s.Goals...),
		Categories:   append([]core.Category(nil), s.Categories...),
		BudgetGoals:  append([]core.BudgetGoal(nil), s.BudgetGoals...),
	}
}

func (s *Snapshot) txIndex(id string) int {
	for i := range s.Transactions {
		if s.Transactions[i].ID == id {
			return i
		}
	}
	return -1
}

func (s *Snapshot) goalIndex(id string) int {
	for i := range s.Goals {
		if s.Goals[i].ID == id {
			return i
		}
	}
	return -1
}

// applyGoal adds delta to goal id when it exists. Missing goals are ignored:
// the link is weak.
func (s *Snapshot) applyGoal(id string, delta core.Money, now time.Time) {
	if id == "" {
		return
	}
	if i := s.goalIndex(id); i >= 0 {
		s.Goals[i].Apply(delta, now)
	}
}
