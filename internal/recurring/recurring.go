// Package recurring detects transactions that repeat with the same label and
// amount.
//
// Two detection policies exist because the server report and the dashboard
// insight never agreed: the server groups by exact title and amount and needs
// three occurrences, the dashboard folds case, needs two occurrences and a
// roughly monthly gap between them. Both are kept and selected by name.
package recurring

import (
	"fmt"
	"sort"
	"strings"

	"moneta/internal/core"
)

const (
	PolicyServer = "server"
	PolicyClient = "client"
)

// Policy configures grouping and qualification of recurring groups.
type Policy struct {
	Name           string
	MinOccurrences int
	// CaseFold lowercases notes before grouping.
	CaseFold bool
	// MinGapDays and MaxGapDays bound the gap between two successive dates of a
	// group. A group qualifies if any successive pair falls inside the bounds.
	// Zero MaxGapDays disables the check.
	MinGapDays int
	MaxGapDays int
	// DefaultCategory replaces an empty category in the report.
	DefaultCategory string
	Frequency       string
}

// ServerPolicy groups by exact note and amount and needs three occurrences.
func ServerPolicy() Policy {
	return Policy{
		Name:            PolicyServer,
		MinOccurrences:  3,
		DefaultCategory: "General",
		Frequency:       "Monthly",
	}
}

// ClientPolicy folds case, needs two occurrences and successive dates 25 to
// 35 days apart.
func ClientPolicy() Policy {
	return Policy{
		Name:            PolicyClient,
		MinOccurrences:  2,
		CaseFold:        true,
		MinGapDays:      25,
		MaxGapDays:      35,
		DefaultCategory: core.UncategorizedName,
		Frequency:       "Monthly",
	}
}

// PolicyByName returns a named policy. The empty name selects the server policy.
func PolicyByName(name string) (Policy, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", PolicyServer:
		return ServerPolicy(), nil
	case PolicyClient:
		return ClientPolicy(), nil
	}
	return Policy{}, fmt.Errorf("unknown recurring policy %q", name)
}

type Item struct {
	Title       string     `json:"title"`
	Amount      core.Money `json:"amount"`
	Category    string     `json:"category"`
	Frequency   string     `json:"frequency"`
	Occurrences int        `json:"occurrences"`
	LastDate    core.Date  `json:"lastDate"`
}

type Report struct {
	TotalRecurring      core.Money            `json:"totalRecurring"`
	RecurringByCategory []core.CategoryAmount `json:"recurringByCategory"`
	RecurringList       []Item                `json:"recurringList"`
}

type group struct {
	first core.Transaction
	dates []core.Date
}

// Detect groups txs by (note, amount) and reports the groups that qualify
// under p. Groups keep the order of their first transaction.
func Detect(txs []core.Transaction, p Policy) Report {
	groups := map[string]*group{}
	var order []string
	for _, tx := range txs {
		k := key(tx, p.CaseFold)
		g, ok := groups[k]
		if !ok {
			g = &group{first: tx}
			groups[k] = g
			order = append(order, k)
		}
		g.dates = append(g.dates, tx.Date)
	}

	rep := Report{RecurringByCategory: []core.CategoryAmount{}, RecurringList: []Item{}}
	byCat := map[string]int{}
	for _, k := range order {
		g := groups[k]
		if len(g.dates) < p.MinOccurrences || !p.cadenceOK(g.dates) {
			continue
		}
		category := strings.TrimSpace(g.first.Category)
		if category == "" {
			category = p.DefaultCategory
		}
		item := Item{
			Title:       g.first.Note,
			Amount:      g.first.Amount,
			Category:    category,
			Frequency:   p.Frequency,
			Occurrences: len(g.dates),
			LastDate:    latest(g.dates),
		}
		rep.RecurringList = append(rep.RecurringList, item)
		rep.TotalRecurring = rep.TotalRecurring.Add(item.Amount)
		if i, ok := byCat[category]; ok {
			rep.RecurringByCategory[i].Amount = rep.RecurringByCategory[i].Amount.Add(item.Amount)
		} else {
			byCat[category] = len(rep.RecurringByCategory)
			rep.RecurringByCategory = append(rep.RecurringByCategory, core.CategoryAmount{Name: category, Amount: item.Amount})
		}
	}
	return rep
}

func key(tx core.Transaction, fold bool) string {
	note := tx.Note
	if fold {
		note = strings.ToLower(note)
	}
	return note + "-" + tx.Amount.String()
}

func (p Policy) cadenceOK(dates []core.Date) bool {
	if p.MaxGapDays <= 0 {
		return true
	}
	sorted := make([]core.Date, len(dates))
	copy(sorted, dates)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Before(sorted[j].Time) })
	for i := 1; i < len(sorted); i++ {
		gap := sorted[i-1].DaysUntil(sorted[i])
		if gap >= p.MinGapDays && gap <= p.MaxGapDays {
			return true
		}
	}
	return false
}

func latest(dates []core.Date) core.Date {
	var out core.Date
	for _, d := range dates {
		if d.After(out.Time) {
			out = d
		}
	}
	return out
}
