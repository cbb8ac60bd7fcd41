package ledger

import (
	"context"
	"errors"
	"testing"
	"time"

	"moneta/internal/core"
)

func TestCategories(t *testing.T) {
	l := newTestLedger(t)
	ctx := context.Background()

	if got := l.Categories(); len(got) != 10 || got[0].ID != core.UncategorizedID {
		t.Fatalf("unexpected default categories %+v", got)
	}
	c, err := l.AddCategory(ctx, " Pets ")
	if err != nil {
		t.Fatalf("add category: %v", err)
	}
	if c.Name != "Pets" || c.Icon != core.DefaultCategoryIcon {
		t.Fatalf("unexpected category %+v", c)
	}
	if _, err := l.AddCategory(ctx, "pets"); !errors.Is(err, core.ErrDuplicateCategory) {
		t.Fatalf("expected duplicate error, got %v", err)
	}
	if _, err := l.AddCategory(ctx, ""); !core.IsValidation(err) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if _, err := l.DeleteCategory(ctx, core.UncategorizedID); !errors.Is(err, core.ErrProtectedCategory) {
		t.Fatalf("expected protected error, got %v", err)
	}
	if _, err := l.DeleteCategory(ctx, "missing"); !core.IsNotFound(err) {
		t.Fatalf("expected not found, got %v", err)
	}

	tx := mustAdd(t, l, TransactionInput{Amount: money(3), Type: core.Expense, Category: "Pets"})
	other := mustAdd(t, l, TransactionInput{Amount: money(3), Type: core.Expense, Category: "Food"})
	n, err := l.DeleteCategory(ctx, c.ID)
	if err != nil || n != 1 {
		t.Fatalf("delete category: n=%d err=%v", n, err)
	}
	if got, _ := l.Transaction(tx.ID); got.Category != core.UncategorizedName {
		t.Fatalf("transaction not reassigned: %q", got.Category)
	}
	if got, _ := l.Transaction(other.ID); got.Category != "Food" {
		t.Fatal("unrelated transaction reassigned")
	}
	for _, cat := range l.Categories() {
		if cat.ID == c.ID {
			t.Fatal("category still listed")
		}
	}
}

func TestLoadRestoresSentinel(t *testing.T) {
	st := &memStore{saved: true, snap: Snapshot{Categories: []core.Category{{ID: "x", Name: "Food"}}}}
	l := newTestLedger(t, WithStore(st))
	cats := l.Categories()
	if len(cats) != 2 || cats[0].ID != core.UncategorizedID {
		t.Fatalf("expected sentinel prepended, got %+v", cats)
	}
}

func TestBudgetGoals(t *testing.T) {
	l := newTestLedger(t)
	ctx := context.Background()
	b, err := l.AddBudgetGoal(ctx, BudgetGoalInput{Category: "Food", TargetAmount: money(100), Duration: core.Monthly})
	if err != nil {
		t.Fatalf("add budget goal: %v", err)
	}
	if _, err := l.AddBudgetGoal(ctx, BudgetGoalInput{Category: "Food", TargetAmount: money(100), Duration: "Yearly"}); !core.IsValidation(err) {
		t.Fatalf("expected validation error, got %v", err)
	}
	mustAdd(t, l, TransactionInput{Amount: money(30), Type: core.Expense, Category: "food"})
	mustAdd(t, l, TransactionInput{Amount: money(10), Type: core.Income, Category: "Food"})

	progress := l.BudgetProgress(fixedNow)
	if len(progress) != 1 {
		t.Fatalf("expected one progress entry, got %d", len(progress))
	}
	if progress[0].Spent != money(20) {
		t.Fatalf("expected net spend 20, got %s", progress[0].Spent)
	}
	if err := l.DeleteBudgetGoal(ctx, b.ID); err != nil {
		t.Fatalf("delete budget goal: %v", err)
	}
	if err := l.DeleteBudgetGoal(ctx, b.ID); !core.IsNotFound(err) {
		t.Fatalf("expected not found, got %v", err)
	}
	if len(l.BudgetProgress(fixedNow.Add(time.Hour))) != 0 {
		t.Fatal("deleted budget goal still evaluated")
	}
}
