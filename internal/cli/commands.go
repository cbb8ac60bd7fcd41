package cli

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"text/tabwriter"

	"moneta/internal/core"
	"moneta/internal/insights"
	"moneta/internal/ledger"
	"moneta/internal/recurring"
)

const defaultListLimit = 20

func (s *Session) registerCommands() map[string]command {
	quit := command{usage: "quit", help: "end the session", run: func(context.Context, []string) error { return ErrQuit }}
	return map[string]command{
		"help": {usage: "help", help: "show this list", run: func(context.Context, []string) error {
			s.printHelp()
			return nil
		}},
		"quit": quit,
		"exit": quit,

		"add":    {usage: "add <income|expense> <amount> <category> [note...]", help: "record a transaction (options: date= goal=)", run: s.cmdAdd},
		"list":   {usage: "list [n]", help: "show the latest transactions", run: s.cmdList},
		"search": {usage: "search <term> [category=<name>]", help: "filter by note or category", run: s.cmdSearch},
		"edit":   {usage: "edit <id> [amount= type= category= date= note= goal=]", help: "change a transaction", run: s.cmdEdit},
		"delete": {usage: "delete <id>", help: "delete a transaction", run: s.cmdDelete},
		"undo":   {usage: "undo", help: "restore the last deleted transaction", run: s.cmdUndo},
		"totals": {usage: "totals", help: "income, expense and balance", run: s.cmdTotals},

		"goals":      {usage: "goals", help: "list savings goals", run: s.cmdGoals},
		"goal":       {usage: "goal <add|edit|delete> ...", help: "manage savings goals", run: s.cmdGoal},
		"contribute": {usage: "contribute <goal> <amount>", help: "save towards a goal", run: s.cmdContribute},

		"categories": {usage: "categories", help: "list categories", run: s.cmdCategories},
		"category":   {usage: "category <add|delete> ...", help: "manage categories", run: s.cmdCategory},

		"budgets": {usage: "budgets", help: "budget progress for the current window", run: s.cmdBudgets},
		"budget":  {usage: "budget <add|delete> ...", help: "manage budget goals", run: s.cmdBudget},

		"breakdown": {usage: "breakdown [income|expense]", help: "totals per category", run: s.cmdBreakdown},
		"recurring": {usage: "recurring [client|server]", help: "detect recurring transactions", run: s.cmdRecurring},
		"insights":  {usage: "insights", help: "spending observations", run: s.cmdInsights},

		"currency":   {usage: "currency [code]", help: "show or change the display currency", run: s.cmdCurrency},
		"currencies": {usage: "currencies [term]", help: "list supported currencies", run: s.cmdCurrencies},
	}
}

func (s *Session) money(m core.Money) string {
	return core.FormatCurrency(m, s.currency)
}

func (s *Session) cmdAdd(ctx context.Context, args []string) error {
	pos, opts := splitOptions(args, "date", "goal", "note")
	if len(pos) < 3 {
		return errors.New("usage: add <income|expense> <amount> <category> [note...]")
	}
	ty, err := core.ParseTxType(pos[0])
	if err != nil {
		return core.Invalid("type", err)
	}
	amount, err := parseAmount(pos[1])
	if err != nil {
		return err
	}
	in := ledger.TransactionInput{
		Amount:   amount,
		Type:     ty,
		Category: pos[2],
		Note:     strings.Join(pos[3:], " "),
	}
	if v, ok := opts["note"]; ok {
		in.Note = v
	}
	if v, ok := opts["date"]; ok {
		if in.Date, err = s.parseDate(v); err != nil {
			return err
		}
	}
	if v, ok := opts["goal"]; ok {
		if in.GoalID, err = s.resolveGoal(v); err != nil {
			return err
		}
	}

	tx, err := s.ledger.AddTransaction(ctx, in)
	if err != nil {
		return err
	}
	fmt.Fprintf(s.out, "Added %s %s %s on %s [%s]\n",
		tx.Type, s.money(tx.Amount), tx.Category, tx.Date.Display(), shortID(tx.ID))
	return nil
}

func (s *Session) cmdList(_ context.Context, args []string) error {
	limit := defaultListLimit
	if len(args) > 0 {
		n, err := strconv.Atoi(args[0])
		if err != nil || n < 1 {
			return core.Invalid("n", fmt.Errorf("%q is not a positive number", args[0]))
		}
		limit = n
	}
	txs := s.ledger.Transactions()
	if len(txs) > limit {
		txs = txs[:limit]
	}
	s.printTransactions(txs)
	return nil
}

func (s *Session) cmdSearch(_ context.Context, args []string) error {
	pos, opts := splitOptions(args, "category")
	s.printTransactions(s.ledger.Search(strings.Join(pos, " "), opts["category"]))
	return nil
}

func (s *Session) cmdEdit(ctx context.Context, args []string) error {
	pos, opts := splitOptions(args, "amount", "type", "category", "date", "note", "goal")
	if len(pos) != 1 || len(opts) == 0 {
		return errors.New("usage: edit <id> [amount= type= category= date= note= goal=]")
	}
	id, err := s.resolveTransaction(pos[0])
	if err != nil {
		return err
	}

	var p ledger.TransactionPatch
	if v, ok := opts["amount"]; ok {
		m, err := parseAmount(v)
		if err != nil {
			return err
		}
		p.Amount = &m
	}
	if v, ok := opts["type"]; ok {
		ty, err := core.ParseTxType(v)
		if err != nil {
			return core.Invalid("type", err)
		}
		p.Type = &ty
	}
	if v, ok := opts["category"]; ok {
		p.Category = &v
	}
	if v, ok := opts["date"]; ok {
		d, err := s.parseDate(v)
		if err != nil {
			return err
		}
		p.Date = &d
	}
	if v, ok := opts["note"]; ok {
		p.Note = &v
	}
	if v, ok := opts["goal"]; ok {
		goalID := ""
		if v != "" {
			if goalID, err = s.resolveGoal(v); err != nil {
				return err
			}
		}
		p.GoalID = &goalID
	}

	tx, err := s.ledger.UpdateTransaction(ctx, id, p)
	if err != nil {
		return err
	}
	fmt.Fprintf(s.out, "Updated [%s] %s %s %s\n", shortID(tx.ID), tx.Type, s.money(tx.Amount), tx.Category)
	return nil
}

func (s *Session) cmdDelete(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return errors.New("usage: delete <id>")
	}
	id, err := s.resolveTransaction(args[0])
	if err != nil {
		return err
	}
	if err := s.ledger.DeleteTransaction(ctx, id); err != nil {
		return err
	}
	fmt.Fprintf(s.out, "Deleted [%s], type undo to restore it\n", shortID(id))
	return nil
}

func (s *Session) cmdUndo(ctx context.Context, _ []string) error {
	tx, ok, err := s.ledger.UndoDelete(ctx)
	if err != nil {
		return err
	}
	if !ok {
		fmt.Fprintln(s.out, "Nothing to undo")
		return nil
	}
	fmt.Fprintf(s.out, "Restored [%s] %s %s %s\n", shortID(tx.ID), tx.Type, s.money(tx.Amount), tx.Category)
	return nil
}

func (s *Session) cmdTotals(context.Context, []string) error {
	t := s.ledger.Totals()
	w := tabwriter.NewWriter(s.out, 0, 4, 2, ' ', 0)
	fmt.Fprintf(w, "Income\t%s\n", s.money(t.Income))
	fmt.Fprintf(w, "Expense\t%s\n", s.money(t.Expense))
	fmt.Fprintf(w, "Balance\t%s\n", s.money(t.Balance))
	return w.Flush()
}

func (s *Session) cmdGoals(context.Context, []string) error {
	goals := s.ledger.Goals()
	if len(goals) == 0 {
		fmt.Fprintln(s.out, "No goals yet")
		return nil
	}
	w := tabwriter.NewWriter(s.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tSAVED\tTARGET\tPROGRESS\tREMAINING\tSTATUS")
	for _, g := range goals {
		status := "active"
		if g.IsCompleted {
			status = "completed"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%.0f%%\t%s\t%s\n",
			shortID(g.ID), g.Name, s.money(g.CurrentAmount), s.money(g.TargetAmount),
			g.ProgressPercentage(), s.money(g.RemainingAmount()), status)
	}
	return w.Flush()
}

func (s *Session) cmdGoal(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return errors.New("usage: goal <add|edit|delete> ...")
	}
	switch strings.ToLower(args[0]) {
	case "add":
		if len(args) != 3 {
			return errors.New(`usage: goal add "<name>" <target>`)
		}
		target, err := parseAmount(args[2])
		if err != nil {
			return core.Invalid("targetAmount", err)
		}
		g, err := s.ledger.AddGoal(ctx, args[1], target)
		if err != nil {
			return err
		}
		fmt.Fprintf(s.out, "Created goal %q with target %s [%s]\n", g.Name, s.money(g.TargetAmount), shortID(g.ID))
		return nil

	case "edit":
		pos, opts := splitOptions(args[1:], "name", "target")
		if len(pos) != 1 || len(opts) == 0 {
			return errors.New("usage: goal edit <id> [name=] [target=]")
		}
		id, err := s.resolveGoal(pos[0])
		if err != nil {
			return err
		}
		var p ledger.GoalPatch
		if v, ok := opts["name"]; ok {
			p.Name = &v
		}
		if v, ok := opts["target"]; ok {
			m, err := parseAmount(v)
			if err != nil {
				return core.Invalid("targetAmount", err)
			}
			p.TargetAmount = &m
		}
		g, err := s.ledger.UpdateGoal(ctx, id, p)
		if err != nil {
			return err
		}
		fmt.Fprintf(s.out, "Updated goal %q: %s of %s\n", g.Name, s.money(g.CurrentAmount), s.money(g.TargetAmount))
		return nil

	case "delete":
		if len(args) != 2 {
			return errors.New("usage: goal delete <id>")
		}
		id, err := s.resolveGoal(args[1])
		if err != nil {
			return err
		}
		n, err := s.ledger.DeleteGoal(ctx, id)
		if err != nil {
			return err
		}
		fmt.Fprintf(s.out, "Deleted goal and %d linked transaction(s)\n", n)
		return nil
	}
	return fmt.Errorf("unknown goal command %q", args[0])
}

func (s *Session) cmdContribute(ctx context.Context, args []string) error {
	if len(args) != 2 {
		return errors.New("usage: contribute <goal> <amount>")
	}
	id, err := s.resolveGoal(args[0])
	if err != nil {
		return err
	}
	amount, err := parseAmount(args[1])
	if err != nil {
		return err
	}
	if _, err := s.ledger.ContributeToGoal(ctx, id, amount); err != nil {
		return err
	}
	g, _ := s.ledger.Goal(id)
	fmt.Fprintf(s.out, "Saved %s towards %q (%.0f%%)\n", s.money(amount), g.Name, g.ProgressPercentage())
	if g.IsCompleted {
		fmt.Fprintf(s.out, "Goal %q reached!\n", g.Name)
	}
	return nil
}

func (s *Session) cmdCategories(context.Context, []string) error {
	w := tabwriter.NewWriter(s.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tICON\tNAME")
	for _, c := range s.ledger.Categories() {
		fmt.Fprintf(w, "%s\t%s\t%s\n", c.ID, c.Icon, c.Name)
	}
	return w.Flush()
}

func (s *Session) cmdCategory(ctx context.Context, args []string) error {
	if len(args) != 2 {
		return errors.New("usage: category <add|delete> <name|id>")
	}
	switch strings.ToLower(args[0]) {
	case "add":
		c, err := s.ledger.AddCategory(ctx, args[1])
		if err != nil {
			return err
		}
		fmt.Fprintf(s.out, "Added category %s %s [%s]\n", c.Icon, c.Name, c.ID)
		return nil
	case "delete":
		n, err := s.ledger.DeleteCategory(ctx, args[1])
		if err != nil {
			return err
		}
		fmt.Fprintf(s.out, "Deleted category, %d transaction(s) moved to %s\n", n, core.UncategorizedName)
		return nil
	}
	return fmt.Errorf("unknown category command %q", args[0])
}

func (s *Session) cmdBudgets(context.Context, []string) error {
	progress := s.ledger.BudgetProgress(s.now())
	if len(progress) == 0 {
		fmt.Fprintln(s.out, "No budget goals yet")
		return nil
	}
	w := tabwriter.NewWriter(s.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tCATEGORY\tPERIOD\tSPENT\tTARGET\tUSED\tREMAINING\t")
	for _, p := range progress {
		flag := ""
		if p.OverBudget {
			flag = "over budget"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%.0f%%\t%s\t%s\n",
			shortID(p.Goal.ID), p.Goal.Category, p.Goal.Duration,
			s.money(p.Spent), s.money(p.Goal.TargetAmount), p.Percent, s.money(p.Remaining), flag)
	}
	return w.Flush()
}

func (s *Session) cmdBudget(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return errors.New("usage: budget <add|delete> ...")
	}
	switch strings.ToLower(args[0]) {
	case "add":
		if len(args) != 4 {
			return errors.New("usage: budget add <category> <amount> <weekly|monthly>")
		}
		target, err := parseAmount(args[2])
		if err != nil {
			return core.Invalid("targetAmount", err)
		}
		d, err := core.ParseBudgetDuration(args[3])
		if err != nil {
			return core.Invalid("duration", err)
		}
		b, err := s.ledger.AddBudgetGoal(ctx, ledger.BudgetGoalInput{Category: args[1], TargetAmount: target, Duration: d})
		if err != nil {
			return err
		}
		fmt.Fprintf(s.out, "Budget %s %s for %s [%s]\n", b.Duration, s.money(b.TargetAmount), b.Category, shortID(b.ID))
		return nil
	case "delete":
		if len(args) != 2 {
			return errors.New("usage: budget delete <id>")
		}
		var ids []string
		for _, b := range s.ledger.BudgetGoals() {
			ids = append(ids, b.ID)
		}
		id, err := resolveID("budget goal", args[1], ids)
		if err != nil {
			return err
		}
		if err := s.ledger.DeleteBudgetGoal(ctx, id); err != nil {
			return err
		}
		fmt.Fprintln(s.out, "Budget goal deleted")
		return nil
	}
	return fmt.Errorf("unknown budget command %q", args[0])
}

func (s *Session) cmdBreakdown(_ context.Context, args []string) error {
	ty := core.Expense
	if len(args) > 0 {
		var err error
		if ty, err = core.ParseTxType(args[0]); err != nil {
			return core.Invalid("type", err)
		}
	}
	rows := insights.Breakdown(s.ledger.Transactions(), ty)
	if len(rows) == 0 {
		fmt.Fprintf(s.out, "No %s transactions\n", strings.ToLower(string(ty)))
		return nil
	}
	w := tabwriter.NewWriter(s.out, 0, 4, 2, ' ', 0)
	for _, r := range rows {
		fmt.Fprintf(w, "%s %s\t%s\n", core.CategoryIcon(r.Name), r.Name, s.money(r.Amount))
	}
	return w.Flush()
}

func (s *Session) cmdRecurring(_ context.Context, args []string) error {
	policy := s.policy
	if len(args) > 0 {
		p, err := recurring.PolicyByName(args[0])
		if err != nil {
			return core.Invalid("policy", err)
		}
		policy = p
	}
	report := recurring.Detect(s.ledger.Transactions(), policy)
	if len(report.RecurringList) == 0 {
		fmt.Fprintln(s.out, "No recurring transactions detected")
		return nil
	}
	w := tabwriter.NewWriter(s.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "TITLE\tCATEGORY\tAMOUNT\tSEEN\tLAST")
	for _, it := range report.RecurringList {
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\n", it.Title, it.Category, s.money(it.Amount), it.Occurrences, it.LastDate.Display())
	}
	fmt.Fprintf(w, "Total\t\t%s\t\t\n", s.money(report.TotalRecurring))
	return w.Flush()
}

func (s *Session) cmdInsights(context.Context, []string) error {
	list := insights.Analyze(s.ledger.Transactions(), s.currency, s.policy)
	if len(list) == 0 {
		fmt.Fprintln(s.out, "Not enough data for insights yet")
		return nil
	}
	for _, in := range list {
		fmt.Fprintf(s.out, "[%s] %s: %s\n", in.Kind, in.Title, in.Message)
		for _, d := range in.Details {
			fmt.Fprintf(s.out, "    %s\n", d)
		}
	}
	return nil
}

func (s *Session) cmdCurrency(_ context.Context, args []string) error {
	if len(args) == 0 {
		c, _ := core.LookupCurrency(s.currency)
		fmt.Fprintf(s.out, "Display currency: %s %s\n", s.currency, c.Name)
		return nil
	}
	c, ok := core.LookupCurrency(args[0])
	if !ok {
		return core.Invalid("currency", fmt.Errorf("unsupported currency %q", args[0]))
	}
	s.currency = c.Code
	fmt.Fprintf(s.out, "Display currency set to %s (%s)\n", c.Code, c.Name)
	return nil
}

func (s *Session) cmdCurrencies(_ context.Context, args []string) error {
	list := core.Currencies()
	if len(args) > 0 {
		list = core.SearchCurrencies(strings.Join(args, " "))
	}
	w := tabwriter.NewWriter(s.out, 0, 4, 2, ' ', 0)
	for _, c := range list {
		fmt.Fprintf(w, "%s\t%s\t%s\n", c.Code, c.Symbol, c.Name)
	}
	return w.Flush()
}

func (s *Session) printTransactions(txs []core.Transaction) {
	if len(txs) == 0 {
		fmt.Fprintln(s.out, "No transactions found")
		return
	}
	goals := map[string]string{}
	for _, g := range s.ledger.Goals() {
		goals[g.ID] = g.Name
	}
	w := tabwriter.NewWriter(s.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tDATE\tCATEGORY\tAMOUNT\tNOTE\tGOAL")
	for _, tx := range txs {
		fmt.Fprintf(w, "%s\t%s\t%s %s\t%s\t%s\t%s\n",
			shortID(tx.ID), tx.Date.Display(), core.CategoryIcon(tx.Category), tx.Category,
			s.money(tx.Signed()), tx.Note, goals[tx.GoalID])
	}
	w.Flush()
}
