package budget

import (
	"testing"
	"time"

	"moneta/internal/core"
)

func tx(ty core.TxType, cents int64, category string, d core.Date) core.Transaction {
	return core.Transaction{Type: ty, Amount: core.Money{Cents: cents}, Category: category, Date: d}
}

func TestCalculateMonthlyNetsIncome(t *testing.T) {
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	goal := core.BudgetGoal{Category: "Food", TargetAmount: core.Money{Cents: 10000}, Duration: core.Monthly}
	txs := []core.Transaction{
		tx(core.Expense, 6000, "Food", core.NewDate(2025, 6, 1)),
		tx(core.Expense, 3000, "food", core.NewDate(2025, 6, 14)),
		tx(core.Income, 1000, "Food", core.NewDate(2025, 6, 10)), // refund
		tx(core.Expense, 9999, "Food", core.NewDate(2025, 5, 31)), // previous month
		tx(core.Expense, 9999, "Food", core.NewDate(2024, 6, 10)), // previous year
		tx(core.Expense, 9999, "Transport", core.NewDate(2025, 6, 2)),
	}

	p := Calculate(goal, txs, now)
	if p.Spent.Cents != 8000 {
		t.Fatalf("expected net spent 80.00, got %s", p.Spent)
	}
	if p.Percent != 80 {
		t.Fatalf("expected 80%%, got %v", p.Percent)
	}
	if p.Remaining.Cents != 2000 || p.OverBudget {
		t.Fatalf("unexpected remaining %s over=%v", p.Remaining, p.OverBudget)
	}
}

func TestCalculateWeeklyWindow(t *testing.T) {
	now := time.Date(2025, 6, 15, 9, 0, 0, 0, time.UTC)
	goal := core.BudgetGoal{Category: "Fun", TargetAmount: core.Money{Cents: 5000}, Duration: core.Weekly}
	txs := []core.Transaction{
		tx(core.Expense, 1000, "Fun", core.NewDate(2025, 6, 8)),  // now-7d, included
		tx(core.Expense, 1000, "Fun", core.NewDate(2025, 6, 15)), // today, included
		tx(core.Expense, 1000, "Fun", core.NewDate(2025, 6, 7)),  // too old
		tx(core.Expense, 1000, "Fun", core.NewDate(2025, 6, 16)), // future
	}
	p := Calculate(goal, txs, now)
	if p.Spent.Cents != 2000 {
		t.Fatalf("expected 20.00 in window, got %s", p.Spent)
	}
}

func TestCalculateOverBudgetClampsPercent(t *testing.T) {
	now := time.Date(2025, 6, 15, 0, 0, 0, 0, time.UTC)
	goal := core.BudgetGoal{Category: "Food", TargetAmount: core.Money{Cents: 1000}, Duration: core.Monthly}
	p := Calculate(goal, []core.Transaction{tx(core.Expense, 1500, "Food", core.NewDate(2025, 6, 3))}, now)
	if p.Percent != 100 {
		t.Fatalf("expected percent clamped to 100, got %v", p.Percent)
	}
	if p.Remaining.Cents != -500 || !p.OverBudget {
		t.Fatalf("expected negative remaining, got %s over=%v", p.Remaining, p.OverBudget)
	}
}

func TestCalculateNetIncomeNeverNegativePercent(t *testing.T) {
	now := time.Date(2025, 6, 15, 0, 0, 0, 0, time.UTC)
	goal := core.BudgetGoal{Category: "Food", TargetAmount: core.Money{Cents: 1000}, Duration: core.Monthly}
	p := Calculate(goal, []core.Transaction{tx(core.Income, 500, "Food", core.NewDate(2025, 6, 3))}, now)
	if p.Spent.Cents != -500 || p.Percent != 0 || p.Remaining.Cents != 1500 {
		t.Fatalf("unexpected progress %+v", p)
	}
}
