package ledger

import (
	"context"
	"fmt"
	"strings"

	"moneta/internal/core"
)

func (l *Ledger) Categories() []core.Category {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]core.Category(nil), l.state.Categories...)
}

// AddCategory appends a custom category. Names are unique ignoring case.
func (l *Ledger) AddCategory(ctx context.Context, name string) (core.Category, error) {
	name, err := core.NormalizeCategoryName(name)
	if err != nil {
		return core.Category{}, err
	}
	c := core.Category{ID: l.newID(), Name: name, Icon: core.CategoryIcon(name)}
	err = l.mutate(ctx, CategoryAdded, func(next *Snapshot) (func(), error) {
		for _, existing := range next.Categories {
			if strings.EqualFold(existing.Name, name) {
				return nil, core.Invalid("name", core.ErrDuplicateCategory)
			}
		}
		next.Categories = append(next.Categories, c)
		return nil, nil
	})
	if err != nil {
		return core.Category{}, err
	}
	return c, nil
}

// DeleteCategory removes a category and moves its transactions to
// Uncategorized. It returns how many transactions were moved. The
// Uncategorized category itself cannot be deleted.
func (l *Ledger) DeleteCategory(ctx context.Context, id string) (int, error) {
	if id == core.UncategorizedID {
		return 0, core.Invalid("id", core.ErrProtectedCategory)
	}
	var moved int
	err := l.mutate(ctx, CategoryDeleted, func(next *Snapshot) (func(), error) {
		ci := -1
		for i, c := range next.Categories {
			if c.ID == id {
				ci = i
				break
			}
		}
		if ci < 0 {
			return nil, notFound("category", id)
		}
		name := next.Categories[ci].Name

		var changed []int
		for i, tx := range next.Transactions {
			if strings.EqualFold(tx.Category, name) {
				changed = append(changed, i)
			}
		}
		if err := l.reassign(ctx, next, changed); err != nil {
			return nil, err
		}
		moved = len(changed)
		next.Categories = append(next.Categories[:ci], next.Categories[ci+1:]...)
		return nil, nil
	})
	if err != nil {
		return 0, err
	}
	return moved, nil
}

// reassign moves the transactions at idx to Uncategorized. With a gateway
// each one is updated remotely; on failure the already updated ones are put
// back on a best-effort basis.
func (l *Ledger) reassign(ctx context.Context, next *Snapshot, idx []int) error {
	var done []core.Transaction
	for _, i := range idx {
		tx := next.Transactions[i]
		old := tx
		tx.Category = core.UncategorizedName
		if l.gateway != nil {
			remote, err := l.gateway.UpdateTransaction(ctx, tx)
			if err != nil {
				l.rollbackReassign(ctx, done)
				return fmt.Errorf("reassign transaction %s: %w", tx.ID, err)
			}
			tx = remote
			done = append(done, old)
		}
		next.Transactions[i] = tx
	}
	return nil
}

func (l *Ledger) rollbackReassign(ctx context.Context, originals []core.Transaction) {
	for _, tx := range originals {
		if _, err := l.gateway.UpdateTransaction(ctx, tx); err != nil {
			l.logger.ErrorContext(ctx, "Failed to restore transaction category", "id", tx.ID, "category", tx.Category, "error", err)
		}
	}
}
