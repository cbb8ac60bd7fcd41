// Package adapters persists ledger snapshots into a key-value backend.
package adapters

import (
	"context"
	"encoding/json"
	"fmt"

	"moneta/internal/core"
	"moneta/internal/ledger"
)

// Fixed keys of the persisted layout. Each holds a JSON array.
const (
	KeyTransactions = "transactions"
	KeyGoals        = "goals"
	KeyCategories   = "categories"
	KeyBudgetGoals  = "budgetGoals"
)

// KV is a byte-oriented key-value store. Put writes all values atomically.
type KV interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Put(ctx context.Context, values map[string][]byte) error
}

// SnapshotStore adapts a KV to ledger.Store.
type SnapshotStore struct {
	kv KV
}

func NewSnapshotStore(kv KV) *SnapshotStore {
	return &SnapshotStore{kv: kv}
}

// Load implements ledger.Store. It reports false only when none of the keys
// has ever been written.
func (s *SnapshotStore) Load(ctx context.Context) (ledger.Snapshot, bool, error) {
	var snap ledger.Snapshot
	found := false
	fields := []struct {
		key string
		dst any
	}{
		{KeyTransactions, &snap.Transactions},
		{KeyGoals, &snap.Goals},
		{KeyCategories, &snap.Categories},
		{KeyBudgetGoals, &snap.BudgetGoals},
	}
	for _, f := range fields {
		raw, ok, err := s.kv.Get(ctx, f.key)
		if err != nil {
			return ledger.Snapshot{}, false, fmt.Errorf("read %s: %w", f.key, err)
		}
		if !ok {
			continue
		}
		found = true
		if err := json.Unmarshal(raw, f.dst); err != nil {
			return ledger.Snapshot{}, false, fmt.Errorf("decode %s: %w", f.key, err)
		}
	}
	if err := validate(snap); err != nil {
		return ledger.Snapshot{}, false, err
	}
	return snap, found, nil
}

// Save implements ledger.Store.
func (s *SnapshotStore) Save(ctx context.Context, snap ledger.Snapshot) error {
	values := make(map[string][]byte, 4)
	for key, v := range map[string]any{
		KeyTransactions: nonNil(snap.Transactions),
		KeyGoals:        nonNil(snap.Goals),
		KeyCategories:   nonNil(snap.Categories),
		KeyBudgetGoals:  nonNil(snap.BudgetGoals),
	} {
		raw, err := json.Marshal(v)
		if err != nil {
			return fmt.Errorf("encode %s: %w", key, err)
		}
		values[key] = raw
	}
	if err := s.kv.Put(ctx, values); err != nil {
		return fmt.Errorf("write snapshot: %w", err)
	}
	return nil
}

// nonNil keeps empty collections encoded as [] rather than null.
func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}

func validate(snap ledger.Snapshot) error {
	for _, tx := range snap.Transactions {
		if err := tx.Validate(); err != nil {
			return fmt.Errorf("stored transaction %s: %w", tx.ID, err)
		}
	}
	for _, g := range snap.Goals {
		if err := g.Validate(); err != nil {
			return fmt.Errorf("stored goal %s: %w", g.ID, err)
		}
	}
	for _, b := range snap.BudgetGoals {
		if err := b.Validate(); err != nil {
			return fmt.Errorf("stored budget goal %s: %w", b.ID, err)
		}
	}
	for _, c := range snap.Categories {
		if _, err := core.NormalizeCategoryName(c.Name); err != nil {
			return fmt.Errorf("stored category %s: %w", c.ID, err)
		}
	}
	return nil
}
