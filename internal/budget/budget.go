// Package budget computes spent-vs-target progress of category budget goals.
package budget

import (
	"strings"
	"time"

	"moneta/internal/core"
)

// Progress is the state of one budget goal for the current window.
type Progress struct {
	Goal       core.BudgetGoal `json:"goal"`
	Spent      core.Money      `json:"spent"`
	Percent    float64         `json:"percent"`
	Remaining  core.Money      `json:"remaining"`
	OverBudget bool            `json:"overBudget"`
}

// Calculate sums the transactions of the goal's category inside the goal's
// window. Expenses add to the spent total and income in the same category
// is netted against it, so refunds lower the spent figure.
func Calculate(goal core.BudgetGoal, txs []core.Transaction, now time.Time) Progress {
	category := strings.TrimSpace(goal.Category)
	var spent core.Money
	for _, tx := range txs {
		if !strings.EqualFold(strings.TrimSpace(tx.Category), category) {
			continue
		}
		if !InWindow(goal.Duration, tx.Date, now) {
			continue
		}
		switch tx.Type {
		case core.Expense:
			spent = spent.Add(tx.Amount)
		case core.Income:
			spent = spent.Sub(tx.Amount)
		}
	}

	p := Progress{
		Goal:       goal,
		Spent:      spent,
		Remaining:  goal.TargetAmount.Sub(spent),
		OverBudget: spent.Cents > goal.TargetAmount.Cents,
	}
	if goal.TargetAmount.Cents > 0 {
		p.Percent = float64(spent.Cents) / float64(goal.TargetAmount.Cents) * 100
	}
	if p.Percent > 100 {
		p.Percent = 100
	}
	if p.Percent < 0 {
		p.Percent = 0
	}
	return p
}

// CalculateAll evaluates every goal against the same transaction set.
func CalculateAll(goals []core.BudgetGoal, txs []core.Transaction, now time.Time) []Progress {
	out := make([]Progress, 0, len(goals))
	for _, g := range goals {
		out = append(out, Calculate(g, txs, now))
	}
	return out
}

// InWindow reports whether date falls in the duration's window ending at now.
// Monthly is the calendar month of now; Weekly is the trailing seven days,
// both ends included, at day granularity.
func InWindow(d core.BudgetDuration, date core.Date, now time.Time) bool {
	today := core.DateOf(now)
	switch d {
	case core.Monthly:
		return date.Year() == today.Year() && date.Month() == today.Month()
	case core.Weekly:
		from := today.AddDate(0, 0, -7)
		return !date.Before(from) && !date.After(today.Time)
	}
	return false
}
