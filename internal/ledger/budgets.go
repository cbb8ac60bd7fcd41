package ledger

import (
	"context"
	"strings"
	"time"

	"moneta/internal/budget"
	"moneta/internal/core"
)

type BudgetGoalInput struct {
	Category     string
	TargetAmount core.Money
	Duration     core.BudgetDuration
}

func (l *Ledger) BudgetGoals() []core.BudgetGoal {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]core.BudgetGoal(nil), l.state.BudgetGoals...)
}

func (l *Ledger) AddBudgetGoal(ctx context.Context, in BudgetGoalInput) (core.BudgetGoal, error) {
	b := core.BudgetGoal{
		ID:           l.newID(),
		Category:     strings.TrimSpace(in.Category),
		TargetAmount: in.TargetAmount,
		Duration:     in.Duration,
	}
	if err := b.Validate(); err != nil {
		return core.BudgetGoal{}, err
	}
	err := l.mutate(ctx, BudgetGoalAdded, func(next *Snapshot) (func(), error) {
		next.BudgetGoals = append(next.BudgetGoals, b)
		return nil, nil
	})
	if err != nil {
		return core.BudgetGoal{}, err
	}
	return b, nil
}

func (l *Ledger) DeleteBudgetGoal(ctx context.Context, id string) error {
	return l.mutate(ctx, BudgetGoalDeleted, func(next *Snapshot) (func(), error) {
		for i, b := range next.BudgetGoals {
			if b.ID == id {
				next.BudgetGoals = append(next.BudgetGoals[:i], next.BudgetGoals[i+1:]...)
				return nil, nil
			}
		}
		return nil, notFound("budget goal", id)
	})
}

// BudgetProgress evaluates every budget goal against the transactions as of now.
func (l *Ledger) BudgetProgress(now time.Time) []budget.Progress {
	l.mu.Lock()
	defer l.mu.Unlock()
	return budget.CalculateAll(l.state.BudgetGoals, l.state.Transactions, now)
}
