package ledger

import (
	"context"
	"fmt"
	"strings"

	"moneta/internal/core"
)

// TransactionInput is a new transaction as entered by the user. A zero Date
// means today.
type TransactionInput struct {
	Amount   core.Money
	Type     core.TxType
	Category string
	Date     core.Date
	Note     string
	GoalID   string
}

// TransactionPatch carries the fields to replace. Nil fields are kept. An
// empty GoalID unlinks the transaction.
type TransactionPatch struct {
	Amount   *core.Money
	Type     *core.TxType
	Category *string
	Date     *core.Date
	Note     *string
	GoalID   *string
}

func (in TransactionInput) validate() error {
	if err := in.Amount.Validate(); err != nil {
		return core.Invalid("amount", err)
	}
	if !in.Type.Valid() {
		return core.Invalid("type", core.ErrInvalidType)
	}
	if strings.TrimSpace(in.Category) == "" {
		return core.Invalid("category", core.ErrEmptyCategory)
	}
	return nil
}

// AddTransaction records a new transaction and credits its goal, if any.
func (l *Ledger) AddTransaction(ctx context.Context, in TransactionInput) (core.Transaction, error) {
	if err := in.validate(); err != nil {
		return core.Transaction{}, err
	}
	if in.Date.IsZero() {
		in.Date = l.today()
	}
	tx := core.Transaction{
		ID:       l.newID(),
		Amount:   in.Amount,
		Type:     in.Type,
		Category: strings.TrimSpace(in.Category),
		Date:     in.Date,
		Note:     strings.TrimSpace(in.Note),
		GoalID:   in.GoalID,
	}
	stored, err := l.insert(ctx, tx, TransactionAdded, nil, nil)
	if err != nil {
		return core.Transaction{}, err
	}
	l.logger.DebugContext(ctx, "Transaction added", "id", stored.ID, "type", stored.Type, "amount", stored.Amount.String())
	return stored, nil
}

// insert is the shared add path of AddTransaction and UndoDelete.
func (l *Ledger) insert(ctx context.Context, tx core.Transaction, kind EventKind, prepare func(next *Snapshot, tx *core.Transaction) error, afterCommit func()) (core.Transaction, error) {
	var stored core.Transaction
	err := l.mutate(ctx, kind, func(next *Snapshot) (func(), error) {
		if prepare != nil {
			if err := prepare(next, &tx); err != nil {
				return nil, err
			}
		}
		if tx.GoalID != "" && next.goalIndex(tx.GoalID) < 0 {
			return nil, notFound("goal", tx.GoalID)
		}
		stored = tx
		if stored.CreatedAt.IsZero() {
			stored.CreatedAt = l.now()
		}
		if l.gateway != nil {
			remote, err := l.gateway.CreateTransaction(ctx, tx)
			if err != nil {
				return nil, fmt.Errorf("create transaction: %w", err)
			}
			stored = remote
		}
		next.Transactions = append([]core.Transaction{stored}, next.Transactions...)
		next.applyGoal(stored.GoalID, stored.Amount, l.now())
		return afterCommit, nil
	})
	if err != nil {
		return core.Transaction{}, err
	}
	return stored, nil
}

// UpdateTransaction replaces the patched fields. The old goal contribution is
// reversed before the new one is applied.
func (l *Ledger) UpdateTransaction(ctx context.Context, id string, p TransactionPatch) (core.Transaction, error) {
	if p.Amount != nil && p.Amount.Cents < 0 {
		return core.Transaction{}, core.Invalid("amount", core.ErrInvalidAmount)
	}
	var updated core.Transaction
	err := l.mutate(ctx, TransactionUpdated, func(next *Snapshot) (func(), error) {
		i := next.txIndex(id)
		if i < 0 {
			return nil, notFound("transaction", id)
		}
		old := next.Transactions[i]
		tx := p.apply(old)
		if err := tx.Validate(); err != nil {
			return nil, err
		}
		if tx.GoalID != "" && tx.GoalID != old.GoalID && next.goalIndex(tx.GoalID) < 0 {
			return nil, notFound("goal", tx.GoalID)
		}
		if l.gateway != nil {
			remote, err := l.gateway.UpdateTransaction(ctx, tx)
			if err != nil {
				return nil, fmt.Errorf("update transaction: %w", err)
			}
			tx = remote
		}
		now := l.now()
		next.applyGoal(old.GoalID, old.Amount.Neg(), now)
		next.applyGoal(tx.GoalID, tx.Amount, now)
		next.Transactions[i] = tx
		updated = tx
		return nil, nil
	})
	if err != nil {
		return core.Transaction{}, err
	}
	return updated, nil
}

func (p TransactionPatch) apply(tx core.Transaction) core.Transaction {
	if p.Amount != nil {
		tx.Amount = *p.Amount
	}
	if p.Type != nil {
		tx.Type = *p.Type
	}
	if p.Category != nil {
		tx.Category = strings.TrimSpace(*p.Category)
	}
	if p.Date != nil {
		tx.Date = *p.Date
	}
	if p.Note != nil {
		tx.Note = strings.TrimSpace(*p.Note)
	}
	if p.GoalID != nil {
		tx.GoalID = *p.GoalID
	}
	return tx
}

// DeleteTransaction removes the transaction, reverses its goal contribution
// and keeps it for UndoDelete. An unknown id yields ErrNotFound and changes
// nothing.
func (l *Ledger) DeleteTransaction(ctx context.Context, id string) error {
	return l.mutate(ctx, TransactionDeleted, func(next *Snapshot) (func(), error) {
		i := next.txIndex(id)
		if i < 0 {
			return nil, notFound("transaction", id)
		}
		tx := next.Transactions[i]
		if l.gateway != nil {
			if err := l.gateway.DeleteTransaction(ctx, id); err != nil {
				return nil, fmt.Errorf("delete transaction: %w", err)
			}
		}
		next.Transactions = append(next.Transactions[:i], next.Transactions[i+1:]...)
		now := l.now()
		next.applyGoal(tx.GoalID, tx.Amount.Neg(), now)
		return func() { l.undo.Put(tx, now) }, nil
	})
}

// UndoDelete restores the last deleted transaction with its original id. It
// reports false when there is nothing to restore. If the linked goal no
// longer exists the restored transaction is unlinked.
func (l *Ledger) UndoDelete(ctx context.Context) (core.Transaction, bool, error) {
	l.mu.Lock()
	tx, ok := l.undo.Peek(l.now())
	l.mu.Unlock()
	if !ok {
		return core.Transaction{}, false, nil
	}

	restored, err := l.insert(ctx, tx, TransactionRestored, func(next *Snapshot, tx *core.Transaction) error {
		if next.txIndex(tx.ID) >= 0 {
			return fmt.Errorf("restore transaction %s: already present", tx.ID)
		}
		if tx.GoalID != "" && next.goalIndex(tx.GoalID) < 0 {
			tx.GoalID = ""
		}
		return nil
	}, func() {
		if cur, ok := l.undo.Peek(l.now()); ok && cur.ID == tx.ID {
			l.undo.Clear()
		}
	})
	if err != nil {
		return core.Transaction{}, false, err
	}
	return restored, true, nil
}
