// Package insights derives reports and spending observations from a
// transaction set. Everything here is a pure function of its inputs.
package insights

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"moneta/internal/core"
	"moneta/internal/recurring"
)

type Kind string

const (
	KindPattern     Kind = "pattern"
	KindSuggestion  Kind = "suggestion"
	KindRecurring   Kind = "recurring"
	KindGoal        Kind = "goal"
	KindAchievement Kind = "achievement"
	KindTrend       Kind = "trend"
)

const (
	savingsTarget    = 20.0 // percent of income
	reductionShare   = 0.15
	trendWindow      = 5
	trendThreshold   = 15.0 // percent
	recurringDetails = 3
)

type Insight struct {
	Kind    Kind     `json:"kind"`
	Title   string   `json:"title"`
	Message string   `json:"message"`
	Details []string `json:"details,omitempty"`
}

// Breakdown sums amounts of the given type per category, in first-seen order.
func Breakdown(txs []core.Transaction, ty core.TxType) []core.CategoryAmount {
	idx := map[string]int{}
	var out []core.CategoryAmount
	for _, tx := range txs {
		if tx.Type != ty {
			continue
		}
		if i, ok := idx[tx.Category]; ok {
			out[i].Amount = out[i].Amount.Add(tx.Amount)
			continue
		}
		idx[tx.Category] = len(out)
		out = append(out, core.CategoryAmount{Name: tx.Category, Amount: tx.Amount})
	}
	return out
}

// Analyze produces the dashboard observations for txs. Amounts in messages
// are rendered in currency.
func Analyze(txs []core.Transaction, currency string, policy recurring.Policy) []Insight {
	if len(txs) == 0 {
		return nil
	}
	money := func(m core.Money) string { return core.FormatCurrency(m, currency) }
	totals := core.ComputeTotals(txs)

	var expenses []core.Transaction
	for _, tx := range txs {
		if tx.Type == core.Expense {
			expenses = append(expenses, tx)
		}
	}

	var out []Insight
	if day, amount, ok := topWeekday(expenses); ok {
		out = append(out, Insight{
			Kind:    KindPattern,
			Title:   "Spending Pattern Insight",
			Message: fmt.Sprintf("You spend most on %ss (%s). Consider reviewing your %s expenses for potential savings.", day, money(amount), strings.ToLower(day)),
		})
	}

	if top, ok := topCategory(expenses); ok && top.Amount.Cents > 0 {
		reduction := core.MoneyFromDecimal(top.Amount.Decimal().Mul(decimal.NewFromFloat(reductionShare)).Round(0))
		msg := fmt.Sprintf("Your highest expense is %s (%s). Reducing this by just %s/month", top.Name, money(top.Amount), money(reduction))
		if totals.Income.Cents > 0 {
			increase := math.Round(float64(reduction.Cents) / float64(totals.Income.Cents) * 100)
			msg += fmt.Sprintf(" could increase your yearly savings by %.0f%%.", increase)
		} else {
			msg += " would noticeably improve your savings."
		}
		out = append(out, Insight{Kind: KindSuggestion, Title: "Smart Savings Suggestion", Message: msg})
	}

	if rep := recurring.Detect(txs, policy); len(rep.RecurringList) > 0 {
		in := Insight{
			Kind:    KindRecurring,
			Title:   "Recurring Transactions Detected",
			Message: fmt.Sprintf("Found %d potential recurring transactions totaling %s/month. Review subscriptions and automatic payments regularly.", len(rep.RecurringList), money(rep.TotalRecurring)),
		}
		for i, item := range rep.RecurringList {
			if i == recurringDetails {
				break
			}
			in.Details = append(in.Details, fmt.Sprintf("%s - %s", item.Title, money(item.Amount)))
		}
		out = append(out, in)
	}

	if totals.Income.Cents > 0 {
		rate := float64(totals.Balance.Cents) / float64(totals.Income.Cents) * 100
		if rate < savingsTarget {
			needed := core.Money{Cents: int64(math.Round(float64(totals.Income.Cents)*savingsTarget/100)) - totals.Balance.Cents}
			out = append(out, Insight{
				Kind:    KindGoal,
				Title:   "Savings Goal Insight",
				Message: fmt.Sprintf("Your current savings rate is %.1f%%. Financial experts recommend saving at least 20%% of income. Consider reducing expenses by %s to reach this goal.", rate, money(needed)),
			})
		} else {
			out = append(out, Insight{
				Kind:    KindAchievement,
				Title:   "Great Job!",
				Message: fmt.Sprintf("Excellent! You're saving %.1f%% of your income, which exceeds the recommended 20%%. Keep up the great financial discipline!", rate),
			})
		}
	}

	if pct, ok := expenseTrend(expenses); ok && math.Abs(pct) > trendThreshold {
		direction, advice := "up", "Consider reviewing recent purchases."
		if pct < 0 {
			direction, advice = "down", "Great job on reducing expenses!"
		}
		out = append(out, Insight{
			Kind:    KindTrend,
			Title:   "Spending Trend Alert",
			Message: fmt.Sprintf("Your recent spending is %s %.1f%% compared to earlier transactions. %s", direction, math.Abs(pct), advice),
		})
	}
	return out
}

func topWeekday(expenses []core.Transaction) (string, core.Money, bool) {
	byDay := map[string]core.Money{}
	var order []string
	for _, tx := range expenses {
		day := tx.Date.Weekday().String()
		if _, ok := byDay[day]; !ok {
			order = append(order, day)
		}
		byDay[day] = byDay[day].Add(tx.Amount)
	}
	if len(order) == 0 {
		return "", core.Money{}, false
	}
	best := order[0]
	for _, d := range order[1:] {
		if byDay[d].Cents > byDay[best].Cents {
			best = d
		}
	}
	return best, byDay[best], true
}

func topCategory(expenses []core.Transaction) (core.CategoryAmount, bool) {
	cats := Breakdown(expenses, core.Expense)
	if len(cats) == 0 {
		return core.CategoryAmount{}, false
	}
	best := cats[0]
	for _, c := range cats[1:] {
		if c.Amount.Cents > best.Amount.Cents {
			best = c
		}
	}
	return best, true
}

// expenseTrend compares the average of the most recent expenses against the
// average of all older ones, as a percentage change.
func expenseTrend(expenses []core.Transaction) (float64, bool) {
	if len(expenses) <= trendWindow {
		return 0, false
	}
	sorted := make([]core.Transaction, len(expenses))
	copy(sorted, expenses)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Date.Before(sorted[j].Date.Time) })

	older, recent := sorted[:len(sorted)-trendWindow], sorted[len(sorted)-trendWindow:]
	avgOlder := average(older)
	if avgOlder == 0 {
		return 0, false
	}
	return (average(recent) - avgOlder) / avgOlder * 100, true
}

func average(txs []core.Transaction) float64 {
	var sum int64
	for _, tx := range txs {
		sum += tx.Amount.Cents
	}
	return float64(sum) / float64(len(txs))
}
