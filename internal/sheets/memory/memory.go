package memory

import (
	"context"
	"fmt"
	"sync"

	"moneta/internal/core"
	ports "moneta/internal/sheets"
)

// Row is one mirrored transaction.
type Row struct {
	UserID      string
	Transaction core.Transaction
}

// Store is an in-process mirror sink, used when no spreadsheet is configured
// and in tests.
type Store struct {
	mu   sync.Mutex
	rows []Row
}

var _ ports.TransactionWriter = (*Store)(nil)

func New() *Store {
	return &Store{}
}

// Append stores the transaction and returns a synthetic row reference.
func (s *Store) Append(_ context.Context, userID string, tx core.Transaction) (string, error) {
	if err := tx.Validate(); err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rows = append(s.rows, Row{UserID: userID, Transaction: tx})
	return fmt.Sprintf("mem:%d", len(s.rows)), nil
}

func (s *Store) UpdateByID(_ context.Context, userID string, tx core.Transaction) error {
	if err := tx.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexLocked(tx.ID)
	if i < 0 {
		return fmt.Errorf("transaction %s: %w", tx.ID, ports.ErrRowNotFound)
	}
	s.rows[i] = Row{UserID: userID, Transaction: tx}
	return nil
}

func (s *Store) DeleteByID(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexLocked(id)
	if i < 0 {
		return fmt.Errorf("transaction %s: %w", id, ports.ErrRowNotFound)
	}
	s.rows = append(s.rows[:i], s.rows[i+1:]...)
	return nil
}

func (s *Store) DeleteMany(_ context.Context, ids []string) (int, error) {
	drop := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		drop[id] = struct{}{}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	kept := s.rows[:0]
	n := 0
	for _, r := range s.rows {
		if _, ok := drop[r.Transaction.ID]; ok {
			n++
			continue
		}
		kept = append(kept, r)
	}
	s.rows = kept
	return n, nil
}

// Rows returns a copy of the mirrored rows in insertion order.
func (s *Store) Rows() []Row {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Row(nil), s.rows...)
}

func (s *Store) indexLocked(id string) int {
	for i, r := range s.rows {
		if r.Transaction.ID == id {
			return i
		}
	}
	return -1
}
