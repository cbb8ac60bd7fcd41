package core

import (
	"strings"
	"time"
	"unicode/utf8"
)

const (
	Income  TxType = "Income"
	Expense TxType = "Expense"

	Weekly  BudgetDuration = "Weekly"
	Monthly BudgetDuration = "Monthly"
)

const (
	MaxGoalNameLength = 100

	UncategorizedID   = "cat0"
	UncategorizedName = "Uncategorized"
	SavingsCategory   = "Savings"
)

type (
	TxType string

	BudgetDuration string

	Transaction struct {
		ID        string    `json:"id"`
		Amount    Money     `json:"amount"`
		Type      TxType    `json:"type"`
		Category  string    `json:"category"`
		Date      Date      `json:"date"`
		Note      string    `json:"note"`
		GoalID    string    `json:"goalId,omitempty"`
		CreatedAt time.Time `json:"createdAt"`
	}

	Goal struct {
		ID            string     `json:"id"`
		Name          string     `json:"name"`
		TargetAmount  Money      `json:"targetAmount"`
		CurrentAmount Money      `json:"currentAmount"`
		IsCompleted   bool       `json:"isCompleted"`
		CompletedAt   *time.Time `json:"completedAt,omitempty"`
		CreatedAt     time.Time  `json:"createdAt"`
	}

	Category struct {
		ID   string `json:"id"`
		Name string `json:"name"`
		Icon string `json:"icon,omitempty"`
	}

	BudgetGoal struct {
		ID           string         `json:"id"`
		Category     string         `json:"category"`
		TargetAmount Money          `json:"targetAmount"`
		Duration     BudgetDuration `json:"duration"`
	}
)

// ParseTxType accepts "income" or "expense" in any case.
func ParseTxType(s string) (TxType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "income":
		return Income, nil
	case "expense":
		return Expense, nil
	}
	return "", ErrInvalidType
}

func (t TxType) Valid() bool {
	return t == Income || t == Expense
}

// ParseBudgetDuration accepts "weekly" or "monthly" in any case.
func ParseBudgetDuration(s string) (BudgetDuration, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "weekly":
		return Weekly, nil
	case "monthly":
		return Monthly, nil
	}
	return "", ErrInvalidDuration
}

// Validate checks a stored transaction. Zero amounts are allowed here: only
// creation demands a strictly positive amount.
func (t Transaction) Validate() error {
	if t.Amount.Cents < 0 {
		return Invalid("amount", ErrInvalidAmount)
	}
	if !t.Type.Valid() {
		return Invalid("type", ErrInvalidType)
	}
	if strings.TrimSpace(t.Category) == "" {
		return Invalid("category", ErrEmptyCategory)
	}
	if err := t.Date.Validate(); err != nil {
		return Invalid("date", err)
	}
	return nil
}

// Signed returns the amount with the sign implied by the type.
func (t Transaction) Signed() Money {
	if t.Type == Income {
		return t.Amount
	}
	return t.Amount.Neg()
}

// NormalizeGoalName trims name and checks its length bounds.
func NormalizeGoalName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", Invalid("name", ErrEmptyName)
	}
	if utf8.RuneCountInString(name) > MaxGoalNameLength {
		return "", Invalid("name", ErrNameTooLong)
	}
	return name, nil
}

// NewGoal builds a goal with no contributions yet.
func NewGoal(id, name string, target Money, now time.Time) (Goal, error) {
	name, err := NormalizeGoalName(name)
	if err != nil {
		return Goal{}, err
	}
	if target.Cents <= 0 {
		return Goal{}, Invalid("targetAmount", ErrInvalidTarget)
	}
	return Goal{
		ID:           id,
		Name:         name,
		TargetAmount: target,
		CreatedAt:    now,
	}, nil
}

func (g Goal) Validate() error {
	if _, err := NormalizeGoalName(g.Name); err != nil {
		return err
	}
	if g.TargetAmount.Cents <= 0 {
		return Invalid("targetAmount", ErrInvalidTarget)
	}
	if g.CurrentAmount.Cents < 0 {
		return Invalid("currentAmount", ErrInvalidAmount)
	}
	return nil
}

// Apply adds delta to the current amount, clamping at zero, and refreshes
// the completion state.
func (g *Goal) Apply(delta Money, now time.Time) {
	g.SetCurrent(g.CurrentAmount.Add(delta), now)
}

// SetCurrent replaces the current amount, clamping at zero.
func (g *Goal) SetCurrent(amount Money, now time.Time) {
	if amount.Cents < 0 {
		amount = Money{}
	}
	g.CurrentAmount = amount
	g.RefreshCompletion(now)
}

// RefreshCompletion derives IsCompleted from current vs target. CompletedAt
// is stamped on the false to true transition and cleared on the way back.
func (g *Goal) RefreshCompletion(now time.Time) {
	completed := g.TargetAmount.Cents > 0 && g.CurrentAmount.Cents >= g.TargetAmount.Cents
	switch {
	case completed && (!g.IsCompleted || g.CompletedAt == nil):
		at := now
		g.CompletedAt = &at
	case !completed:
		g.CompletedAt = nil
	}
	g.IsCompleted = completed
}

// ProgressPercentage is current/target as a percentage capped at 100.
func (g Goal) ProgressPercentage() float64 {
	if g.TargetAmount.Cents <= 0 {
		return 0
	}
	p := float64(g.CurrentAmount.Cents) / float64(g.TargetAmount.Cents) * 100
	if p > 100 {
		return 100
	}
	return p
}

// RemainingAmount is what is left to reach the target, never negative.
func (g Goal) RemainingAmount() Money {
	r := g.TargetAmount.Sub(g.CurrentAmount)
	if r.Cents < 0 {
		return Money{}
	}
	return r
}

// ContributionNote is the note attached to goal contribution transactions.
func ContributionNote(goalName string) string {
	return `Contribution to "` + goalName + `"`
}

// Uncategorized returns the sentinel category.
func Uncategorized() Category {
	return Category{ID: UncategorizedID, Name: UncategorizedName, Icon: CategoryIcon(UncategorizedName)}
}

// DefaultCategories is the initial category set of a fresh ledger.
func DefaultCategories() []Category {
	names := []string{"Food", "Transport", "Shopping", "Entertainment", "Utilities", "Health", "Education", "Income", SavingsCategory}
	out := make([]Category, 0, len(names)+1)
	out = append(out, Uncategorized())
	for i, n := range names {
		out = append(out, Category{ID: "cat" + string(rune('1'+i)), Name: n, Icon: CategoryIcon(n)})
	}
	return out
}

// NormalizeCategoryName trims name and rejects empty labels.
func NormalizeCategoryName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", Invalid("name", ErrEmptyCategory)
	}
	return name, nil
}

func (b BudgetGoal) Validate() error {
	if strings.TrimSpace(b.Category) == "" {
		return Invalid("category", ErrEmptyCategory)
	}
	if b.TargetAmount.Cents <= 0 {
		return Invalid("targetAmount", ErrInvalidTarget)
	}
	if b.Duration != Weekly && b.Duration != Monthly {
		return Invalid("duration", ErrInvalidDuration)
	}
	return nil
}
