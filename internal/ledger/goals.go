package ledger

import (
	"context"
	"fmt"

	"moneta/internal/core"
)

// GoalPatch renames or retargets a goal. Nil fields are kept.
type GoalPatch struct {
	Name         *string
	TargetAmount *core.Money
}

// AddGoal creates a goal with nothing saved towards it yet.
func (l *Ledger) AddGoal(ctx context.Context, name string, target core.Money) (core.Goal, error) {
	g, err := core.NewGoal(l.newID(), name, target, l.now())
	if err != nil {
		return core.Goal{}, err
	}
	err = l.mutate(ctx, GoalAdded, func(next *Snapshot) (func(), error) {
		if l.gateway != nil {
			remote, err := l.gateway.CreateGoal(ctx, g)
			if err != nil {
				return nil, fmt.Errorf("create goal: %w", err)
			}
			g = remote
		}
		next.Goals = append([]core.Goal{g}, next.Goals...)
		return nil, nil
	})
	if err != nil {
		return core.Goal{}, err
	}
	return g, nil
}

func (l *Ledger) UpdateGoal(ctx context.Context, id string, p GoalPatch) (core.Goal, error) {
	var updated core.Goal
	err := l.mutate(ctx, GoalUpdated, func(next *Snapshot) (func(), error) {
		i := next.goalIndex(id)
		if i < 0 {
			return nil, notFound("goal", id)
		}
		g := next.Goals[i]
		if p.Name != nil {
			name, err := core.NormalizeGoalName(*p.Name)
			if err != nil {
				return nil, err
			}
			g.Name = name
		}
		if p.TargetAmount != nil {
			g.TargetAmount = *p.TargetAmount
		}
		if err := g.Validate(); err != nil {
			return nil, err
		}
		g.RefreshCompletion(l.now())
		if l.gateway != nil {
			remote, err := l.gateway.UpdateGoal(ctx, g)
			if err != nil {
				return nil, fmt.Errorf("update goal: %w", err)
			}
			g = remote
		}
		next.Goals[i] = g
		updated = g
		return nil, nil
	})
	if err != nil {
		return core.Goal{}, err
	}
	return updated, nil
}

// DeleteGoal removes the goal and every transaction linked to it. It returns
// the number of transactions removed.
func (l *Ledger) DeleteGoal(ctx context.Context, id string) (int, error) {
	var removed int
	err := l.mutate(ctx, GoalDeleted, func(next *Snapshot) (func(), error) {
		i := next.goalIndex(id)
		if i < 0 {
			return nil, notFound("goal", id)
		}
		kept := next.Transactions[:0]
		local := 0
		for _, tx := range next.Transactions {
			if tx.GoalID == id {
				local++
				continue
			}
			kept = append(kept, tx)
		}
		removed = local
		if l.gateway != nil {
			n, err := l.gateway.DeleteGoal(ctx, id)
			if err != nil {
				return nil, fmt.Errorf("delete goal: %w", err)
			}
			removed = n
		}
		next.Transactions = kept
		next.Goals = append(next.Goals[:i], next.Goals[i+1:]...)
		return nil, nil
	})
	if err != nil {
		return 0, err
	}
	l.logger.InfoContext(ctx, "Goal deleted", "id", id, "deleted_transactions", removed)
	return removed, nil
}

// ContributeToGoal records an Expense in the Savings category, dated today and
// linked to the goal.
func (l *Ledger) ContributeToGoal(ctx context.Context, goalID string, amount core.Money) (core.Transaction, error) {
	if err := amount.Validate(); err != nil {
		return core.Transaction{}, core.Invalid("amount", err)
	}
	g, ok := l.Goal(goalID)
	if !ok {
		return core.Transaction{}, notFound("goal", goalID)
	}
	return l.AddTransaction(ctx, TransactionInput{
		Amount:   amount,
		Type:     core.Expense,
		Category: core.SavingsCategory,
		Date:     l.today(),
		Note:     core.ContributionNote(g.Name),
		GoalID:   goalID,
	})
}
