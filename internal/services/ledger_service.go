package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"moneta/internal/amqp"
	"moneta/internal/core"
	"moneta/internal/recurring"
	"moneta/internal/storage"
)

var (
	ErrInvalidID   = errors.New("id must be a UUID")
	ErrDuplicateID = errors.New("id already in use")
)

// EventPublisher receives an event after every committed write.
type EventPublisher interface {
	PublishEvent(ctx context.Context, ev *amqp.LedgerEvent) error
}

// LedgerService runs the per-user ledger rules on top of SQLite. Every write
// that touches a goal updates the goal in the same database transaction, then
// publishes a ledger event.
type LedgerService struct {
	storage   *storage.SQLiteRepository
	publisher EventPublisher
	now       func() time.Time
}

func NewLedgerService(storage *storage.SQLiteRepository, publisher EventPublisher) *LedgerService {
	return &LedgerService{
		storage:   storage,
		publisher: publisher,
		now:       time.Now,
	}
}

// TransactionPatch carries the fields of a partial update. Nil fields are kept.
type TransactionPatch struct {
	Amount   *core.Money
	Type     *core.TxType
	Category *string
	Date     *core.Date
	Note     *string
	GoalID   *string
}

// GoalPatch carries the fields of a partial goal update.
type GoalPatch struct {
	Name          *string
	TargetAmount  *core.Money
	CurrentAmount *core.Money
}

func (s *LedgerService) ListTransactions(ctx context.Context, userID string) ([]core.Transaction, error) {
	rows, err := s.storage.Queries().ListTransactions(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	return transactionsFromRows(rows)
}

// CreateTransaction stores tx for the user and credits the linked goal. A
// caller-supplied id must be an unused UUID; an empty id gets a fresh one.
func (s *LedgerService) CreateTransaction(ctx context.Context, userID string, tx core.Transaction) (core.Transaction, error) {
	if err := tx.Amount.Validate(); err != nil {
		return core.Transaction{}, core.Invalid("amount", err)
	}
	tx.Category = strings.TrimSpace(tx.Category)
	tx.Note = strings.TrimSpace(tx.Note)
	if err := tx.Validate(); err != nil {
		return core.Transaction{}, err
	}

	now := s.now()
	tx.CreatedAt = now
	err := s.storage.WithTx(ctx, func(q *storage.Queries) error {
		id, err := s.resolveID(ctx, q, tx.ID)
		if err != nil {
			return err
		}
		tx.ID = id
		if tx.GoalID != "" {
			if err := adjustGoal(ctx, q, userID, tx.GoalID, tx.Amount, now, true); err != nil {
				return err
			}
		}
		if err := q.CreateTransaction(ctx, storage.TransactionToRow(userID, tx)); err != nil {
			return fmt.Errorf("insert transaction: %w", err)
		}
		return nil
	})
	if err != nil {
		return core.Transaction{}, err
	}

	slog.InfoContext(ctx, "Transaction created",
		"id", tx.ID, "user_id", userID, "type", tx.Type, "amount", tx.Amount.String())
	s.publish(ctx, amqp.NewTransactionEvent(amqp.TransactionCreated, userID, tx))
	return tx, nil
}

func (s *LedgerService) resolveID(ctx context.Context, q *storage.Queries, id string) (string, error) {
	if id == "" {
		return uuid.NewString(), nil
	}
	if _, err := uuid.Parse(id); err != nil {
		return "", core.Invalid("id", ErrInvalidID)
	}
	exists, err := q.TransactionExists(ctx, id)
	if err != nil {
		return "", fmt.Errorf("check transaction id: %w", err)
	}
	if exists {
		return "", core.Invalid("id", ErrDuplicateID)
	}
	return id, nil
}

// UpdateTransaction applies p. The previous goal contribution is reversed
// and the new one applied in the same database transaction.
func (s *LedgerService) UpdateTransaction(ctx context.Context, userID, id string, p TransactionPatch) (core.Transaction, error) {
	if p.Amount != nil && p.Amount.Cents < 0 {
		return core.Transaction{}, core.Invalid("amount", core.ErrInvalidAmount)
	}
	var updated core.Transaction
	err := s.storage.WithTx(ctx, func(q *storage.Queries) error {
		old, err := getTransaction(ctx, q, userID, id)
		if err != nil {
			return err
		}
		tx := p.apply(old)
		if err := tx.Validate(); err != nil {
			return err
		}
		now := s.now()
		if old.GoalID != "" {
			if err := adjustGoal(ctx, q, userID, old.GoalID, old.Amount.Neg(), now, false); err != nil {
				return err
			}
		}
		if tx.GoalID != "" {
			if err := adjustGoal(ctx, q, userID, tx.GoalID, tx.Amount, now, true); err != nil {
				return err
			}
		}
		if err := q.UpdateTransaction(ctx, storage.TransactionToRow(userID, tx)); err != nil {
			return fmt.Errorf("update transaction: %w", err)
		}
		updated = tx
		return nil
	})
	if err != nil {
		return core.Transaction{}, err
	}
	s.publish(ctx, amqp.NewTransactionEvent(amqp.TransactionUpdated, userID, updated))
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

// DeleteTransaction removes the transaction and reverses its goal contribution.
func (s *LedgerService) DeleteTransaction(ctx context.Context, userID, id string) error {
	var deleted core.Transaction
	err := s.storage.WithTx(ctx, func(q *storage.Queries) error {
		tx, err := getTransaction(ctx, q, userID, id)
		if err != nil {
			return err
		}
		if tx.GoalID != "" {
			if err := adjustGoal(ctx, q, userID, tx.GoalID, tx.Amount.Neg(), s.now(), false); err != nil {
				return err
			}
		}
		if _, err := q.DeleteTransaction(ctx, id, userID); err != nil {
			return fmt.Errorf("delete transaction: %w", err)
		}
		deleted = tx
		return nil
	})
	if err != nil {
		return err
	}
	s.publish(ctx, amqp.NewTransactionEvent(amqp.TransactionDeleted, userID, deleted))
	return nil
}

func (s *LedgerService) ListGoals(ctx context.Context, userID string) ([]core.Goal, error) {
	rows, err := s.storage.Queries().ListGoals(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list goals: %w", err)
	}
	goals := make([]core.Goal, 0, len(rows))
	for _, r := range rows {
		g, err := storage.GoalFromRow(r)
		if err != nil {
			return nil, err
		}
		goals = append(goals, g)
	}
	return goals, nil
}

// CreateGoal stores a new goal with nothing saved yet. A caller-supplied id
// must be a UUID.
func (s *LedgerService) CreateGoal(ctx context.Context, userID, id, name string, target core.Money) (core.Goal, error) {
	if id == "" {
		id = uuid.NewString()
	} else if _, err := uuid.Parse(id); err != nil {
		return core.Goal{}, core.Invalid("id", ErrInvalidID)
	}
	g, err := core.NewGoal(id, name, target, s.now())
	if err != nil {
		return core.Goal{}, err
	}
	err = s.storage.Queries().CreateGoal(ctx, storage.GoalToRow(userID, g))
	if err != nil {
		if _, getErr := s.storage.Queries().GetGoal(ctx, id, userID); getErr == nil {
			return core.Goal{}, core.Invalid("id", ErrDuplicateID)
		}
		return core.Goal{}, fmt.Errorf("insert goal: %w", err)
	}
	return g, nil
}

// UpdateGoal renames, retargets or sets the saved amount of a goal.
func (s *LedgerService) UpdateGoal(ctx context.Context, userID, id string, p GoalPatch) (core.Goal, error) {
	var updated core.Goal
	err := s.storage.WithTx(ctx, func(q *storage.Queries) error {
		g, err := getGoal(ctx, q, userID, id)
		if err != nil {
			return err
		}
		if p.Name != nil {
			name, err := core.NormalizeGoalName(*p.Name)
			if err != nil {
				return err
			}
			g.Name = name
		}
		if p.TargetAmount != nil {
			g.TargetAmount = *p.TargetAmount
		}
		if p.CurrentAmount != nil {
			g.CurrentAmount = *p.CurrentAmount
		}
		if err := g.Validate(); err != nil {
			return err
		}
		g.RefreshCompletion(s.now())
		if err := q.UpdateGoal(ctx, storage.GoalToRow(userID, g)); err != nil {
			return fmt.Errorf("update goal: %w", err)
		}
		updated = g
		return nil
	})
	if err != nil {
		return core.Goal{}, err
	}
	return updated, nil
}

// DeleteGoal removes the goal and every transaction linked to it. It returns
// the number of transactions removed.
func (s *LedgerService) DeleteGoal(ctx context.Context, userID, id string) (int, error) {
	var ids []string
	err := s.storage.WithTx(ctx, func(q *storage.Queries) error {
		if _, err := getGoal(ctx, q, userID, id); err != nil {
			return err
		}
		linked, err := q.ListTransactionsByGoal(ctx, userID, id)
		if err != nil {
			return fmt.Errorf("list goal transactions: %w", err)
		}
		for _, t := range linked {
			ids = append(ids, t.ID)
		}
		if _, err := q.DeleteTransactionsByGoal(ctx, userID, id); err != nil {
			return fmt.Errorf("delete goal transactions: %w", err)
		}
		if _, err := q.DeleteGoal(ctx, id, userID); err != nil {
			return fmt.Errorf("delete goal: %w", err)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	slog.InfoContext(ctx, "Goal deleted", "id", id, "user_id", userID, "deleted_transactions", len(ids))
	s.publish(ctx, amqp.NewGoalDeletedEvent(userID, id, ids))
	return len(ids), nil
}

// GoalTransactions lists the transactions linked to one goal.
func (s *LedgerService) GoalTransactions(ctx context.Context, userID, id string) ([]core.Transaction, error) {
	q := s.storage.Queries()
	if _, err := getGoal(ctx, q, userID, id); err != nil {
		return nil, err
	}
	rows, err := q.ListTransactionsByGoal(ctx, userID, id)
	if err != nil {
		return nil, fmt.Errorf("list goal transactions: %w", err)
	}
	return transactionsFromRows(rows)
}

func (s *LedgerService) Summary(ctx context.Context, userID string) (core.Totals, error) {
	txs, err := s.ListTransactions(ctx, userID)
	if err != nil {
		return core.Totals{}, err
	}
	return core.ComputeTotals(txs), nil
}

func (s *LedgerService) RecurringBreakdown(ctx context.Context, userID string, p recurring.Policy) (recurring.Report, error) {
	txs, err := s.ListTransactions(ctx, userID)
	if err != nil {
		return recurring.Report{}, err
	}
	return recurring.Detect(txs, p), nil
}

func (s *LedgerService) Ping(ctx context.Context) error {
	return s.storage.Ping(ctx)
}

func (s *LedgerService) publish(ctx context.Context, ev *amqp.LedgerEvent) {
	if s.publisher == nil {
		slog.DebugContext(ctx, "No event publisher configured, skipping ledger event", "kind", ev.Kind)
		return
	}
	if err := s.publisher.PublishEvent(ctx, ev); err != nil {
		// the write is committed; the mirror catches up on the next event
		slog.ErrorContext(ctx, "Failed to publish ledger event",
			"kind", ev.Kind, "user_id", ev.UserID, "error", err)
	}
}

// adjustGoal adds delta to the user's goal. A missing goal is an error only
// when required; reversing a contribution to a deleted goal is a no-op.
func adjustGoal(ctx context.Context, q *storage.Queries, userID, goalID string, delta core.Money, now time.Time, required bool) error {
	g, err := getGoal(ctx, q, userID, goalID)
	if core.IsNotFound(err) && !required {
		return nil
	}
	if err != nil {
		return err
	}
	g.Apply(delta, now)
	if err := q.UpdateGoal(ctx, storage.GoalToRow(userID, g)); err != nil {
		return fmt.Errorf("update goal %s: %w", goalID, err)
	}
	return nil
}

func getTransaction(ctx context.Context, q *storage.Queries, userID, id string) (core.Transaction, error) {
	row, err := q.GetTransaction(ctx, id, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Transaction{}, fmt.Errorf("transaction %s: %w", id, core.ErrNotFound)
	}
	if err != nil {
		return core.Transaction{}, fmt.Errorf("get transaction: %w", err)
	}
	return storage.TransactionFromRow(row)
}

func getGoal(ctx context.Context, q *storage.Queries, userID, id string) (core.Goal, error) {
	row, err := q.GetGoal(ctx, id, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Goal{}, fmt.Errorf("goal %s: %w", id, core.ErrNotFound)
	}
	if err != nil {
		return core.Goal{}, fmt.Errorf("get goal: %w", err)
	}
	return storage.GoalFromRow(row)
}

func transactionsFromRows(rows []storage.Transaction) ([]core.Transaction, error) {
	out := make([]core.Transaction, 0, len(rows))
	for _, r := range rows {
		tx, err := storage.TransactionFromRow(r)
		if err != nil {
			return nil, err
		}
		out = append(out, tx)
	}
	return out, nil
}

// Close closes the database and the publisher when it can be closed.
func (s *LedgerService) Close() error {
	var errs []error

	if s.storage != nil {
		if err := s.storage.Close(); err != nil {
			errs = append(errs, fmt.Errorf("storage: %w", err))
		}
	}

	if c, ok := s.publisher.(interface{ Close() error }); ok && c != nil {
		if err := c.Close(); err != nil {
			errs = append(errs, fmt.Errorf("amqp: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("close ledger service: %w", errors.Join(errs...))
	}

	return nil
}
