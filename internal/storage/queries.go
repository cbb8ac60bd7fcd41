package storage

import (
	"context"
	"database/sql"
	"time"
)

// DBTX is satisfied by *sql.DB and *sql.Tx.
type DBTX interface {
	ExecContext(context.Context, string, ...interface{}) (sql.Result, error)
	QueryContext(context.Context, string, ...interface{}) (*sql.Rows, error)
	QueryRowContext(context.Context, string, ...interface{}) *sql.Row
}

func New(db DBTX) *Queries {
	return &Queries{db: db}
}

type Queries struct {
	db DBTX
}

func (q *Queries) WithTx(tx *sql.Tx) *Queries {
	return &Queries{db: tx}
}

const timeLayout = time.RFC3339Nano

type User struct {
	ID           string
	Email        string
	PasswordHash string
	CreatedAt    string
}

type Transaction struct {
	ID          string
	UserID      string
	AmountCents int64
	Type        string
	Category    string
	Date        string
	Note        string
	GoalID      sql.NullString
	CreatedAt   string
}

type Goal struct {
	ID           string
	UserID       string
	Name         string
	TargetCents  int64
	CurrentCents int64
	IsCompleted  bool
	CompletedAt  sql.NullString
	CreatedAt    string
}

const createUser = `INSERT INTO users (id, email, password_hash, created_at) VALUES (?, ?, ?, ?)`

func (q *Queries) CreateUser(ctx context.Context, u User) error {
	_, err := q.db.ExecContext(ctx, createUser, u.ID, u.Email, u.PasswordHash, u.CreatedAt)
	return err
}

const getUserByEmail = `SELECT id, email, password_hash, created_at FROM users WHERE email = ?`

func (q *Queries) GetUserByEmail(ctx context.Context, email string) (User, error) {
	var u User
	err := q.db.QueryRowContext(ctx, getUserByEmail, email).Scan(&u.ID, &u.Email, &u.PasswordHash, &u.CreatedAt)
	return u, err
}

const transactionColumns = `id, user_id, amount_cents, type, category, date, note, goal_id, created_at`

func scanTransaction(row interface{ Scan(...any) error }) (Transaction, error) {
	var t Transaction
	err := row.Scan(&t.ID, &t.UserID, &t.AmountCents, &t.Type, &t.Category, &t.Date, &t.Note, &t.GoalID, &t.CreatedAt)
	return t, err
}

func (q *Queries) listTransactions(ctx context.Context, query string, args ...any) ([]Transaction, error) {
	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, t)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const createTransaction = `INSERT INTO transactions (` + transactionColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`

func (q *Queries) CreateTransaction(ctx context.Context, t Transaction) error {
	_, err := q.db.ExecContext(ctx, createTransaction,
		t.ID, t.UserID, t.AmountCents, t.Type, t.Category, t.Date, t.Note, t.GoalID, t.CreatedAt)
	return err
}

const getTransaction = `SELECT ` + transactionColumns + ` FROM transactions WHERE id = ? AND user_id = ?`

func (q *Queries) GetTransaction(ctx context.Context, id, userID string) (Transaction, error) {
	return scanTransaction(q.db.QueryRowContext(ctx, getTransaction, id, userID))
}

const transactionExists = `SELECT COUNT(*) FROM transactions WHERE id = ?`

// TransactionExists checks the id across all users.
func (q *Queries) TransactionExists(ctx context.Context, id string) (bool, error) {
	var n int64
	err := q.db.QueryRowContext(ctx, transactionExists, id).Scan(&n)
	return n > 0, err
}

const listTransactions = `SELECT ` + transactionColumns + ` FROM transactions WHERE user_id = ? ORDER BY date DESC, created_at DESC`

func (q *Queries) ListTransactions(ctx context.Context, userID string) ([]Transaction, error) {
	return q.listTransactions(ctx, listTransactions, userID)
}

const listTransactionsByGoal = `SELECT ` + transactionColumns + ` FROM transactions WHERE user_id = ? AND goal_id = ? ORDER BY date DESC, created_at DESC`

func (q *Queries) ListTransactionsByGoal(ctx context.Context, userID, goalID string) ([]Transaction, error) {
	return q.listTransactions(ctx, listTransactionsByGoal, userID, goalID)
}

const updateTransaction = `UPDATE transactions
SET amount_cents = ?, type = ?, category = ?, date = ?, note = ?, goal_id = ?
WHERE id = ? AND user_id = ?`

func (q *Queries) UpdateTransaction(ctx context.Context, t Transaction) error {
	_, err := q.db.ExecContext(ctx, updateTransaction,
		t.AmountCents, t.Type, t.Category, t.Date, t.Note, t.GoalID, t.ID, t.UserID)
	return err
}

const deleteTransaction = `DELETE FROM transactions WHERE id = ? AND user_id = ?`

func (q *Queries) DeleteTransaction(ctx context.Context, id, userID string) (int64, error) {
	res, err := q.db.ExecContext(ctx, deleteTransaction, id, userID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

const deleteTransactionsByGoal = `DELETE FROM transactions WHERE user_id = ? AND goal_id = ?`

func (q *Queries) DeleteTransactionsByGoal(ctx context.Context, userID, goalID string) (int64, error) {
	res, err := q.db.ExecContext(ctx, deleteTransactionsByGoal, userID, goalID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

const goalColumns = `id, user_id, name, target_cents, current_cents, is_completed, completed_at, created_at`

func scanGoal(row interface{ Scan(...any) error }) (Goal, error) {
	var g Goal
	err := row.Scan(&g.ID, &g.UserID, &g.Name, &g.TargetCents, &g.CurrentCents, &g.IsCompleted, &g.CompletedAt, &g.CreatedAt)
	return g, err
}

const createGoal = `INSERT INTO goals (` + goalColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`

func (q *Queries) CreateGoal(ctx context.Context, g Goal) error {
	_, err := q.db.ExecContext(ctx, createGoal,
		g.ID, g.UserID, g.Name, g.TargetCents, g.CurrentCents, g.IsCompleted, g.CompletedAt, g.CreatedAt)
	return err
}

const getGoal = `SELECT ` + goalColumns + ` FROM goals WHERE id = ? AND user_id = ?`

func (q *Queries) GetGoal(ctx context.Context, id, userID string) (Goal, error) {
	return scanGoal(q.db.QueryRowContext(ctx, getGoal, id, userID))
}

const listGoals = `SELECT ` + goalColumns + ` FROM goals WHERE user_id = ? ORDER BY created_at DESC`

func (q *Queries) ListGoals(ctx context.Context, userID string) ([]Goal, error) {
	rows, err := q.db.QueryContext(ctx, listGoals, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Goal
	for rows.Next() {
		g, err := scanGoal(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, g)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const updateGoal = `UPDATE goals
SET name = ?, target_cents = ?, current_cents = ?, is_completed = ?, completed_at = ?
WHERE id = ? AND user_id = ?`

func (q *Queries) UpdateGoal(ctx context.Context, g Goal) error {
	_, err := q.db.ExecContext(ctx, updateGoal,
		g.Name, g.TargetCents, g.CurrentCents, g.IsCompleted, g.CompletedAt, g.ID, g.UserID)
	return err
}

const deleteGoal = `DELETE FROM goals WHERE id = ? AND user_id = ?`

func (q *Queries) DeleteGoal(ctx context.Context, id, userID string) (int64, error) {
	res, err := q.db.ExecContext(ctx, deleteGoal, id, userID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

const getKV = `SELECT value FROM kv WHERE key = ?`

func (q *Queries) GetKV(ctx context.Context, key string) ([]byte, error) {
	var v []byte
	err := q.db.QueryRowContext(ctx, getKV, key).Scan(&v)
	return v, err
}

const putKV = `INSERT INTO kv (key, value, updated_at) VALUES (?, ?, ?)
ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`

func (q *Queries) PutKV(ctx context.Context, key string, value []byte, at string) error {
	_, err := q.db.ExecContext(ctx, putKV, key, value, at)
	return err
}
