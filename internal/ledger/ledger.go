// Package ledger owns the transactions, goals, categories and budget goals of
// one session and keeps them mutually consistent.
//
// Every mutation computes the next state on a copy, pushes it to the Gateway
// and the Store when they are configured, and commits locally only after both
// succeed. Subscribers are notified after the commit.
package ledger

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"moneta/internal/core"
)

type EventKind string

const (
	TransactionAdded    EventKind = "transaction.added"
	TransactionUpdated  EventKind = "transaction.updated"
	TransactionDeleted  EventKind = "transaction.deleted"
	TransactionRestored EventKind = "transaction.restored"
	GoalAdded           EventKind = "goal.added"
	GoalUpdated         EventKind = "goal.updated"
	GoalDeleted         EventKind = "goal.deleted"
	CategoryAdded       EventKind = "category.added"
	CategoryDeleted     EventKind = "category.deleted"
	BudgetGoalAdded     EventKind = "budget_goal.added"
	BudgetGoalDeleted   EventKind = "budget_goal.deleted"
	Loaded              EventKind = "loaded"
)

// Event is delivered to subscribers after each committed change.
type Event struct {
	Kind   EventKind
	Totals core.Totals
}

type Option func(*Ledger)

// WithGateway makes the remote gateway the system of record for
// transactions and goals.
func WithGateway(g Gateway) Option {
	return func(l *Ledger) { l.gateway = g }
}

func WithStore(s Store) Option {
	return func(l *Ledger) { l.store = s }
}

func WithClock(now func() time.Time) Option {
	return func(l *Ledger) { l.now = now }
}

func WithIDGenerator(gen func() string) Option {
	return func(l *Ledger) { l.newID = gen }
}

// WithUndoWindow bounds how long a deleted transaction can be restored.
func WithUndoWindow(d time.Duration) Option {
	return func(l *Ledger) { l.undo = NewUndoBuffer(d) }
}

func WithLogger(logger *slog.Logger) Option {
	return func(l *Ledger) { l.logger = logger }
}

type Ledger struct {
	mu     sync.Mutex
	state  Snapshot
	undo   *UndoBuffer
	nextID int
	subs   map[int]func(Event)

	gateway Gateway
	store   Store
	now     func() time.Time
	newID   func() string
	logger  *slog.Logger
}

// New returns an empty ledger holding the default categories. Call Load to
// hydrate it from the configured gateway or store.
func New(opts ...Option) *Ledger {
	l := &Ledger{
		state: Snapshot{Categories: core.DefaultCategories()},
		undo:  NewUndoBuffer(0),
		subs:  make(map[int]func(Event)),
		now:   time.Now,
		newID: uuid.NewString,
	}
	for _, opt := range opts {
		opt(l)
	}
	if l.logger == nil {
		l.logger = slog.Default()
	}
	l.logger = l.logger.With("component", "ledger")
	return l
}

// Load replaces the in-memory state. Categories and budget goals come from
// the store; transactions and goals come from the gateway when one is
// configured, otherwise from the store.
func (l *Ledger) Load(ctx context.Context) error {
	l.mu.Lock()
	next := Snapshot{}
	saved := false
	if l.store != nil {
		snap, ok, err := l.store.Load(ctx)
		if err != nil {
			l.mu.Unlock()
			return fmt.Errorf("load store: %w", err)
		}
		if ok {
			next, saved = snap, true
		}
	}
	if l.gateway != nil {
		txs, err := l.gateway.ListTransactions(ctx)
		if err != nil {
			l.mu.Unlock()
			return fmt.Errorf("list transactions: %w", err)
		}
		goals, err := l.gateway.ListGoals(ctx)
		if err != nil {
			l.mu.Unlock()
			return fmt.Errorf("list goals: %w", err)
		}
		next.Transactions, next.Goals = txs, goals
	}
	next.Categories = ensureSentinel(next.Categories)
	if l.store != nil && !saved {
		if err := l.store.Save(ctx, next); err != nil {
			l.mu.Unlock()
			return fmt.Errorf("save ledger: %w", err)
		}
	}
	l.state = next
	l.undo.Clear()
	ev, subs := l.eventLocked(Loaded)
	l.mu.Unlock()

	l.logger.InfoContext(ctx, "Ledger loaded",
		"transactions", len(next.Transactions),
		"goals", len(next.Goals),
		"categories", len(next.Categories))
	notify(subs, ev)
	return nil
}

func ensureSentinel(cats []core.Category) []core.Category {
	if len(cats) == 0 {
		return core.DefaultCategories()
	}
	for _, c := range cats {
		if c.ID == core.UncategorizedID {
			return cats
		}
	}
	return append([]core.Category{core.Uncategorized()}, cats...)
}

// mutate runs fn against a copy of the state and commits the copy once fn
// and the store succeed. afterCommit, when returned, runs under the lock
// right after the swap.
func (l *Ledger) mutate(ctx context.Context, kind EventKind, fn func(next *Snapshot) (afterCommit func(), err error)) error {
	l.mu.Lock()
	next := l.state.clone()
	after, err := fn(&next)
	if err != nil {
		l.mu.Unlock()
		return err
	}
	if l.store != nil {
		if err := l.store.Save(ctx, next); err != nil {
			l.mu.Unlock()
			if l.gateway != nil {
				l.logger.ErrorContext(ctx, "Remote change applied but local save failed", "event", kind, "error", err)
			}
			return fmt.Errorf("save ledger: %w", err)
		}
	}
	l.state = next
	if after != nil {
		after()
	}
	ev, subs := l.eventLocked(kind)
	l.mu.Unlock()

	notify(subs, ev)
	return nil
}

func (l *Ledger) eventLocked(kind EventKind) (Event, []func(Event)) {
	ids := make([]int, 0, len(l.subs))
	for id := range l.subs {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	subs := make([]func(Event), 0, len(ids))
	for _, id := range ids {
		subs = append(subs, l.subs[id])
	}
	return Event{Kind: kind, Totals: core.ComputeTotals(l.state.Transactions)}, subs
}

func notify(subs []func(Event), ev Event) {
	for _, fn := range subs {
		fn(ev)
	}
}

// Subscribe registers fn for change events. The returned function removes it.
func (l *Ledger) Subscribe(fn func(Event)) (unsubscribe func()) {
	l.mu.Lock()
	defer l.mu.Unlock()
	id := l.nextID
	l.nextID++
	l.subs[id] = fn
	return func() {
		l.mu.Lock()
		defer l.mu.Unlock()
		delete(l.subs, id)
	}
}

func (l *Ledger) today() core.Date {
	return core.DateOf(l.now())
}

func (l *Ledger) Totals() core.Totals {
	l.mu.Lock()
	defer l.mu.Unlock()
	return core.ComputeTotals(l.state.Transactions)
}

// Transactions returns the transactions newest first.
func (l *Ledger) Transactions() []core.Transaction {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]core.Transaction(nil), l.state.Transactions...)
}

func (l *Ledger) Transaction(id string) (core.Transaction, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if i := l.state.txIndex(id); i >= 0 {
		return l.state.Transactions[i], true
	}
	return core.Transaction{}, false
}

func (l *Ledger) Goals() []core.Goal {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]core.Goal(nil), l.state.Goals...)
}

func (l *Ledger) Goal(id string) (core.Goal, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if i := l.state.goalIndex(id); i >= 0 {
		return l.state.Goals[i], true
	}
	return core.Goal{}, false
}

// Search filters transactions whose note or category contains term, ignoring
// case. A category of "" or "All" keeps every category.
func (l *Ledger) Search(term, category string) []core.Transaction {
	term = strings.ToLower(strings.TrimSpace(term))
	category = strings.TrimSpace(category)
	anyCategory := category == "" || strings.EqualFold(category, "All")

	l.mu.Lock()
	defer l.mu.Unlock()
	var out []core.Transaction
	for _, tx := range l.state.Transactions {
		if !anyCategory && !strings.EqualFold(tx.Category, category) {
			continue
		}
		if term != "" &&
			!strings.Contains(strings.ToLower(tx.Note), term) &&
			!strings.Contains(strings.ToLower(tx.Category), term) {
			continue
		}
		out = append(out, tx)
	}
	return out
}

// PendingUndo reports the transaction UndoDelete would restore.
func (l *Ledger) PendingUndo() (core.Transaction, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.undo.Peek(l.now())
}

// Snapshot returns a copy of the whole state.
func (l *Ledger) Snapshot() Snapshot {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state.clone()
}

func notFound(entity, id string) error {
	return fmt.Errorf("%s %s: %w", entity, id, core.ErrNotFound)
}
