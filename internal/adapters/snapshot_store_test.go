package adapters

import (
	"context"
	"encoding/json"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"moneta/internal/core"
	"moneta/internal/ledger"
	"moneta/internal/storage"
	"moneta/internal/storage/memory"
)

func sampleSnapshot() ledger.Snapshot {
	created := time.Date(2024, 3, 1, 9, 30, 0, 0, time.UTC)
	return ledger.Snapshot{
		Transactions: []core.Transaction{{
			ID: "t1", Amount: core.Money{Cents: 1999}, Type: core.Expense, Category: "Savings",
			Date: core.NewDate(2024, 3, 1), Note: "x", GoalID: "g1", CreatedAt: created,
		}},
		Goals:       []core.Goal{{ID: "g1", Name: "Trip", TargetAmount: core.Money{Cents: 5000}, CurrentAmount: core.Money{Cents: 1999}, CreatedAt: created}},
		Categories:  core.DefaultCategories(),
		BudgetGoals: []core.BudgetGoal{{ID: "b1", Category: "Food", TargetAmount: core.Money{Cents: 10000}, Duration: core.Weekly}},
	}
}

func TestSnapshotStoreRoundTrip(t *testing.T) {
	repo, err := storage.NewSQLiteRepository(filepath.Join(t.TempDir(), "ledger.db"))
	if err != nil {
		t.Fatalf("open repository: %v", err)
	}
	defer repo.Close()

	backends := map[string]KV{
		"memory": memory.New(),
		"sqlite": repo,
	}
	for name, kv := range backends {
		t.Run(name, func(t *testing.T) {
			s := NewSnapshotStore(kv)
			ctx := context.Background()
			if _, ok, err := s.Load(ctx); ok || err != nil {
				t.Fatalf("expected empty store, got ok=%v err=%v", ok, err)
			}
			want := sampleSnapshot()
			if err := s.Save(ctx, want); err != nil {
				t.Fatalf("save: %v", err)
			}
			got, ok, err := s.Load(ctx)
			if err != nil || !ok {
				t.Fatalf("load: ok=%v err=%v", ok, err)
			}
			if !reflect.DeepEqual(want, got) {
				t.Fatalf("round trip mismatch:\nwant %+v\ngot  %+v", want, got)
			}
		})
	}
}

func TestSnapshotStoreLayout(t *testing.T) {
	kv := memory.New()
	s := NewSnapshotStore(kv)
	if err := s.Save(context.Background(), ledger.Snapshot{}); err != nil {
		t.Fatalf("save: %v", err)
	}
	for _, key := range []string{KeyTransactions, KeyGoals, KeyCategories, KeyBudgetGoals} {
		raw, ok, _ := kv.Get(context.Background(), key)
		if !ok || string(raw) != "[]" {
			t.Fatalf("key %s: expected empty JSON array, got %q", key, raw)
		}
	}
}

func TestSnapshotStoreRejectsCorruptData(t *testing.T) {
	kv := memory.New()
	bad, _ := json.Marshal([]map[string]any{{"id": "t1", "amount": 5, "type": "Gift", "category": "Food", "date": "2024-01-01"}})
	_ = kv.Put(context.Background(), map[string][]byte{KeyTransactions: bad})
	if _, _, err := NewSnapshotStore(kv).Load(context.Background()); !core.IsValidation(err) {
		t.Fatalf("expected validation error, got %v", err)
	}
	_ = kv.Put(context.Background(), map[string][]byte{KeyTransactions: []byte("{")})
	if _, _, err := NewSnapshotStore(kv).Load(context.Background()); err == nil {
		t.Fatal("expected decode error")
	}
}
