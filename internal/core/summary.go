package core

type CategoryAmount struct {
	Name   string `json:"name"`
	Amount Money  `json:"amount"`
}

// Totals are the ledger aggregates. They are always recomputed from the
// transaction collection.
type Totals struct {
	Income  Money `json:"income"`
	Expense Money `json:"expense"`
	Balance Money `json:"balance"`
}

// ComputeTotals sums income and expense over txs.
func ComputeTotals(txs []Transaction) Totals {
	var t Totals
	for _, tx := range txs {
		switch tx.Type {
		case Income:
			t.Income = t.Income.Add(tx.Amount)
		case Expense:
			t.Expense = t.Expense.Add(tx.Amount)
		}
	}
	t.Balance = t.Income.Sub(t.Expense)
	return t
}

// GoalContributions sums linked transaction amounts per goal id.
func GoalContributions(txs []Transaction) map[string]Money {
	out := make(map[string]Money)
	for _, tx := range txs {
		if tx.GoalID == "" {
			continue
		}
		out[tx.GoalID] = out[tx.GoalID].Add(tx.Amount)
	}
	return out
}
