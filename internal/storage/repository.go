package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"moneta/internal/core"
)

// ErrEmailTaken is returned when registering an email that already exists.
var ErrEmailTaken = errors.New("email already registered")

type SQLiteRepository struct {
	db      *sql.DB
	queries *Queries
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{
		db:      db,
		queries: New(db),
	}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// Queries runs statements outside of any transaction.
func (r *SQLiteRepository) Queries() *Queries {
	return r.queries
}

// WithTx runs fn inside one database transaction. The transaction is
// committed only if fn returns nil.
func (r *SQLiteRepository) WithTx(ctx context.Context, fn func(q *Queries) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(r.queries.WithTx(tx)); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// CreateUser stores a user. A duplicate email yields ErrEmailTaken.
func (r *SQLiteRepository) CreateUser(ctx context.Context, u User) error {
	err := r.queries.CreateUser(ctx, u)
	if isUniqueViolation(err) {
		return ErrEmailTaken
	}
	if err != nil {
		return fmt.Errorf("create user: %w", err)
	}
	slog.InfoContext(ctx, "User registered", "user_id", u.ID)
	return nil
}

func (r *SQLiteRepository) UserByEmail(ctx context.Context, email string) (User, error) {
	u, err := r.queries.GetUserByEmail(ctx, email)
	if errors.Is(err, sql.ErrNoRows) {
		return User{}, fmt.Errorf("user %s: %w", email, core.ErrNotFound)
	}
	if err != nil {
		return User{}, fmt.Errorf("get user: %w", err)
	}
	return u, nil
}

func isUniqueViolation(err error) bool {
	var se *sqlite.Error
	if !errors.As(err, &se) {
		return false
	}
	return se.Code() == sqlite3.SQLITE_CONSTRAINT_UNIQUE || se.Code() == sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY
}

// Get implements adapters.KV.
func (r *SQLiteRepository) Get(ctx context.Context, key string) ([]byte, bool, error) {
	v, err := r.queries.GetKV(ctx, key)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("get %s: %w", key, err)
	}
	return v, true, nil
}

// Put implements adapters.KV. All keys are written in one transaction.
func (r *SQLiteRepository) Put(ctx context.Context, values map[string][]byte) error {
	now := time.Now().UTC().Format(timeLayout)
	return r.WithTx(ctx, func(q *Queries) error {
		for k, v := range values {
			if err := q.PutKV(ctx, k, v, now); err != nil {
				return fmt.Errorf("put %s: %w", k, err)
			}
		}
		return nil
	})
}

// TransactionFromRow converts a stored row to the domain record.
func TransactionFromRow(t Transaction) (core.Transaction, error) {
	date, err := core.ParseDate(t.Date)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("transaction %s date %q: %w", t.ID, t.Date, err)
	}
	created, err := time.Parse(timeLayout, t.CreatedAt)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("transaction %s created_at: %w", t.ID, err)
	}
	return core.Transaction{
		ID:        t.ID,
		Amount:    core.Money{Cents: t.AmountCents},
		Type:      core.TxType(t.Type),
		Category:  t.Category,
		Date:      date,
		Note:      t.Note,
		GoalID:    t.GoalID.String,
		CreatedAt: created,
	}, nil
}

func TransactionToRow(userID string, tx core.Transaction) Transaction {
	return Transaction{
		ID:          tx.ID,
		UserID:      userID,
		AmountCents: tx.Amount.Cents,
		Type:        string(tx.Type),
		Category:    tx.Category,
		Date:        tx.Date.ISO(),
		Note:        tx.Note,
		GoalID:      sql.NullString{String: tx.GoalID, Valid: tx.GoalID != ""},
		CreatedAt:   tx.CreatedAt.UTC().Format(timeLayout),
	}
}

func GoalFromRow(g Goal) (core.Goal, error) {
	created, err := time.Parse(timeLayout, g.CreatedAt)
	if err != nil {
		return core.Goal{}, fmt.Errorf("goal %s created_at: %w", g.ID, err)
	}
	out := core.Goal{
		ID:            g.ID,
		Name:          g.Name,
		TargetAmount:  core.Money{Cents: g.TargetCents},
		CurrentAmount: core.Money{Cents: g.CurrentCents},
		IsCompleted:   g.IsCompleted,
		CreatedAt:     created,
	}
	if g.CompletedAt.Valid {
		at, err := time.Parse(timeLayout, g.CompletedAt.String)
		if err != nil {
			return core.Goal{}, fmt.Errorf("goal %s completed_at: %w", g.ID, err)
		}
		out.CompletedAt = &at
	}
	return out, nil
}

func GoalToRow(userID string, g core.Goal) Goal {
	row := Goal{
		ID:           g.ID,
		UserID:       userID,
		Name:         g.Name,
		TargetCents:  g.TargetAmount.Cents,
		CurrentCents: g.CurrentAmount.Cents,
		IsCompleted:  g.IsCompleted,
		CreatedAt:    g.CreatedAt.UTC().Format(timeLayout),
	}
	if g.CompletedAt != nil {
		row.CompletedAt = sql.NullString{String: g.CompletedAt.UTC().Format(timeLayout), Valid: true}
	}
	return row
}
