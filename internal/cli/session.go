package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strings"
	"time"

	"moneta/internal/core"
	"moneta/internal/ledger"
	"moneta/internal/recurring"
)

// ErrQuit is returned by Exec when the user ends the session.
var ErrQuit = errors.New("quit")

// SessionConfig holds the display preferences of an interactive session.
type SessionConfig struct {
	Currency string
	Policy   recurring.Policy
	Prompt   string
	Now      func() time.Time
}

// Session is a line-oriented front end over one Ledger.
type Session struct {
	ledger   *ledger.Ledger
	out      io.Writer
	currency string
	policy   recurring.Policy
	prompt   string
	now      func() time.Time
	commands map[string]command
}

type command struct {
	usage string
	help  string
	run   func(ctx context.Context, args []string) error
}

func NewSession(l *ledger.Ledger, out io.Writer, cfg SessionConfig) *Session {
	if cfg.Currency == "" {
		cfg.Currency = core.DefaultCurrency
	}
	if cfg.Policy.Name == "" {
		cfg.Policy = recurring.ClientPolicy()
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	s := &Session{
		ledger:   l,
		out:      out,
		currency: strings.ToUpper(cfg.Currency),
		policy:   cfg.Policy,
		prompt:   cfg.Prompt,
		now:      cfg.Now,
	}
	s.commands = s.registerCommands()
	return s
}

// Run reads commands from in until EOF, quit or context cancellation.
// Command errors are printed and do not end the session.
func (s *Session) Run(ctx context.Context, in io.Reader) error {
	sc := bufio.NewScanner(in)
	for {
		if s.prompt != "" {
			fmt.Fprint(s.out, s.prompt)
		}
		if !sc.Scan() {
			return sc.Err()
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		err := s.Exec(ctx, sc.Text())
		if errors.Is(err, ErrQuit) {
			return nil
		}
		if err != nil {
			fmt.Fprintln(s.out, describeError(err))
		}
	}
}

// Exec runs a single command line.
func (s *Session) Exec(ctx context.Context, line string) error {
	args, err := splitArgs(line)
	if err != nil {
		return err
	}
	if len(args) == 0 {
		return nil
	}
	name := strings.ToLower(args[0])
	cmd, ok := s.commands[name]
	if !ok {
		return fmt.Errorf("unknown command %q, type help for a list", args[0])
	}
	slog.DebugContext(ctx, "Running command", "command", name)
	return cmd.run(ctx, args[1:])
}

func (s *Session) printHelp() {
	names := make([]string, 0, len(s.commands))
	for n := range s.commands {
		names = append(names, n)
	}
	sort.Strings(names)
	for _, n := range names {
		c := s.commands[n]
		fmt.Fprintf(s.out, "  %-48s %s\n", c.usage, c.help)
	}
}

// describeError renders ledger errors for the terminal.
func describeError(err error) string {
	var ve *core.ValidationError
	var te *core.TransportError
	switch {
	case errors.As(err, &ve):
		return fmt.Sprintf("invalid %s: %v", ve.Field, ve.Err)
	case core.IsNotFound(err):
		return "not found: " + err.Error()
	case errors.As(err, &te):
		return "could not reach the server: " + err.Error()
	}
	return "error: " + err.Error()
}

// splitArgs splits a line on whitespace, keeping double-quoted runs together.
func splitArgs(line string) ([]string, error) {
	var (
		args    []string
		cur     strings.Builder
		inQuote bool
		started bool
	)
	for _, r := range line {
		switch {
		case r == '"':
			inQuote = !inQuote
			started = true
		case !inQuote && (r == ' ' || r == '\t'):
			if started {
				args = append(args, cur.String())
				cur.Reset()
				started = false
			}
		default:
			cur.WriteRune(r)
			started = true
		}
	}
	if inQuote {
		return nil, errors.New("unterminated quote")
	}
	if started {
		args = append(args, cur.String())
	}
	return args, nil
}

// splitOptions separates key=value options from positional arguments.
func splitOptions(args []string, known ...string) (pos []string, opts map[string]string) {
	opts = map[string]string{}
	for _, a := range args {
		k, v, ok := strings.Cut(a, "=")
		if ok && contains(known, strings.ToLower(k)) {
			opts[strings.ToLower(k)] = v
			continue
		}
		pos = append(pos, a)
	}
	return pos, opts
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func (s *Session) parseDate(v string) (core.Date, error) {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "today":
		return core.DateOf(s.now()), nil
	case "yesterday":
		return core.DateOf(s.now().AddDate(0, 0, -1)), nil
	}
	d, err := core.ParseDate(v)
	if err != nil {
		return core.Date{}, core.Invalid("date", err)
	}
	return d, nil
}

func parseAmount(v string) (core.Money, error) {
	m, err := core.ParseMoney(v)
	if err != nil {
		return core.Money{}, core.Invalid("amount", err)
	}
	return m, nil
}

// resolveTransaction accepts a full id or a unique prefix.
func (s *Session) resolveTransaction(ref string) (string, error) {
	var ids []string
	for _, tx := range s.ledger.Transactions() {
		ids = append(ids, tx.ID)
	}
	return resolveID("transaction", ref, ids)
}

func (s *Session) resolveGoal(ref string) (string, error) {
	var ids []string
	for _, g := range s.ledger.Goals() {
		ids = append(ids, g.ID)
	}
	return resolveID("goal", ref, ids)
}

func resolveID(entity, ref string, ids []string) (string, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return "", core.Invalid("id", errors.New("missing "+entity+" id"))
	}
	var match string
	for _, id := range ids {
		if id == ref {
			return id, nil
		}
		if strings.HasPrefix(id, ref) {
			if match != "" {
				return "", core.Invalid("id", fmt.Errorf("%s prefix %q is ambiguous", entity, ref))
			}
			match = id
		}
	}
	if match == "" {
		return "", fmt.Errorf("%s %s: %w", entity, ref, core.ErrNotFound)
	}
	return match, nil
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
