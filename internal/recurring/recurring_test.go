package recurring

import (
	"testing"

	"moneta/internal/core"
)

func expense(note string, cents int64, category string, d core.Date) core.Transaction {
	return core.Transaction{Type: core.Expense, Note: note, Amount: core.Money{Cents: cents}, Category: category, Date: d}
}

func TestServerPolicyNeedsThreeExactMatches(t *testing.T) {
	txs := []core.Transaction{
		expense("Netflix", 999, "Entertainment", core.NewDate(2025, 1, 5)),
		expense("Netflix", 999, "Entertainment", core.NewDate(2025, 1, 6)),
		expense("netflix", 999, "Entertainment", core.NewDate(2025, 1, 7)), // different key
		expense("Gym", 3000, "", core.NewDate(2025, 1, 1)),
		expense("Gym", 3000, "", core.NewDate(2025, 2, 1)),
		expense("Gym", 3000, "", core.NewDate(2025, 3, 1)),
	}
	rep := Detect(txs, ServerPolicy())
	if len(rep.RecurringList) != 1 {
		t.Fatalf("expected only the gym group, got %+v", rep.RecurringList)
	}
	item := rep.RecurringList[0]
	if item.Title != "Gym" || item.Category != "General" || item.Frequency != "Monthly" || item.Occurrences != 3 {
		t.Fatalf("unexpected item %+v", item)
	}
	if rep.TotalRecurring.Cents != 3000 {
		t.Fatalf("expected total 30.00, got %s", rep.TotalRecurring)
	}
	if len(rep.RecurringByCategory) != 1 || rep.RecurringByCategory[0].Name != "General" {
		t.Fatalf("unexpected category breakdown %+v", rep.RecurringByCategory)
	}
}

func TestClientPolicyNeedsMonthlyGap(t *testing.T) {
	txs := []core.Transaction{
		expense("Rent", 50000, "Utilities", core.NewDate(2025, 3, 1)),
		expense("rent", 50000, "Utilities", core.NewDate(2025, 2, 1)), // 28 days apart once sorted
		expense("Coffee", 300, "Food", core.NewDate(2025, 3, 1)),
		expense("Coffee", 300, "Food", core.NewDate(2025, 3, 2)), // 1 day apart
		expense("Insurance", 12000, "Health", core.NewDate(2025, 1, 1)),
		expense("Insurance", 12000, "Health", core.NewDate(2025, 4, 1)), // 90 days apart
	}
	rep := Detect(txs, ClientPolicy())
	if len(rep.RecurringList) != 1 || rep.RecurringList[0].Title != "Rent" {
		t.Fatalf("expected only rent, got %+v", rep.RecurringList)
	}
	if !rep.RecurringList[0].LastDate.Equal(core.NewDate(2025, 3, 1).Time) {
		t.Fatalf("unexpected last date %s", rep.RecurringList[0].LastDate.ISO())
	}
}

func TestPoliciesDisagreeOnTwoMonthlyOccurrences(t *testing.T) {
	txs := []core.Transaction{
		expense("Phone", 2000, "Utilities", core.NewDate(2025, 1, 10)),
		expense("Phone", 2000, "Utilities", core.NewDate(2025, 2, 10)),
	}
	if got := len(Detect(txs, ServerPolicy()).RecurringList); got != 0 {
		t.Fatalf("server policy should ignore two occurrences, got %d", got)
	}
	if got := len(Detect(txs, ClientPolicy()).RecurringList); got != 1 {
		t.Fatalf("client policy should flag two monthly occurrences, got %d", got)
	}
}

func TestPolicyByName(t *testing.T) {
	for name, want := range map[string]string{"": PolicyServer, "SERVER": PolicyServer, "client": PolicyClient} {
		p, err := PolicyByName(name)
		if err != nil || p.Name != want {
			t.Fatalf("%q: expected %s, got %s (err=%v)", name, want, p.Name, err)
		}
	}
	if _, err := PolicyByName("weekly"); err == nil {
		t.Fatalf("expected error for unknown policy")
	}
}
