package remote

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"moneta/internal/auth"
	"moneta/internal/core"
	apihttp "moneta/internal/http"
	"moneta/internal/ledger"
	"moneta/internal/services"
	"moneta/internal/storage"
)

func TestStatusMapping(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		check  func(error) bool
	}{
		{"bad request", http.StatusBadRequest, `{"error":"amount: invalid amount"}`, core.IsValidation},
		{"unprocessable", http.StatusUnprocessableEntity, ``, core.IsValidation},
		{"unauthorized", http.StatusUnauthorized, `{"error":"Invalid or expired token"}`, func(err error) bool {
			var te *core.TransportError
			return errors.As(err, &te) && errors.Is(err, ErrUnauthorized) && te.StatusCode == 401
		}},
		{"not found", http.StatusNotFound, `{"error":"Transaction not found"}`, core.IsNotFound},
		{"server fault", http.StatusInternalServerError, `{"error":"boom"}`, func(err error) bool {
			return errors.Is(err, core.ErrServerFault) && core.IsTransport(err)
		}},
		{"teapot", http.StatusTeapot, ``, core.IsTransport},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			c, err := NewClient(srv.URL, WithHTTPClient(srv.Client()), WithToken("t"))
			if err != nil {
				t.Fatalf("new client: %v", err)
			}
			err = c.DeleteTransaction(context.Background(), "x")
			if err == nil || !tt.check(err) {
				t.Fatalf("unexpected error mapping: %v", err)
			}
		})
	}
}

func TestListNotFoundIsEmpty(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":"No transactions found"}`))
	}))
	defer srv.Close()

	c, _ := NewClient(srv.URL, WithHTTPClient(srv.Client()))
	txs, err := c.ListTransactions(context.Background())
	if err != nil || txs == nil || len(txs) != 0 {
		t.Fatalf("expected empty list, got %v %v", txs, err)
	}
	goals, err := c.ListGoals(context.Background())
	if err != nil || len(goals) != 0 {
		t.Fatalf("expected empty goals, got %v %v", goals, err)
	}
}

func TestConnectionFailureIsTransport(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c, _ := NewClient(url)
	_, err := c.ListGoals(context.Background())
	var te *core.TransportError
	if !errors.As(err, &te) || te.StatusCode != 0 {
		t.Fatalf("expected transport error, got %v", err)
	}
}

func TestSendsBearerToken(t *testing.T) {
	var got string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Get("Authorization")
		_, _ = w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	c, _ := NewClient(srv.URL, WithHTTPClient(srv.Client()), WithToken("abc"))
	if _, err := c.ListTransactions(context.Background()); err != nil {
		t.Fatalf("list: %v", err)
	}
	if got != "Bearer abc" {
		t.Fatalf("authorization header = %q", got)
	}
}

func TestNewClientRejectsBadURL(t *testing.T) {
	if _, err := NewClient("not a url"); err == nil {
		t.Fatalf("expected error")
	}
}

// TestLedgerAgainstServer drives a ledger through the real API server.
func TestLedgerAgainstServer(t *testing.T) {
	ctx := context.Background()
	repo, err := storage.NewSQLiteRepository(filepath.Join(t.TempDir(), "api.db"))
	if err != nil {
		t.Fatalf("open repository: %v", err)
	}
	svc := services.NewLedgerService(repo, nil)
	defer svc.Close()
	api := apihttp.NewServer(apihttp.Config{}, svc, auth.NewService(repo, "secret", time.Hour))
	srv := httptest.NewServer(api.Handler)
	defer srv.Close()
	defer api.Shutdown(ctx)

	c, _ := NewClient(srv.URL, WithHTTPClient(srv.Client()))
	if err := c.Register(ctx, "remote@example.com", "secret1"); err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := c.Login(ctx, "remote@example.com", "secret1"); err != nil {
		t.Fatalf("login: %v", err)
	}

	l := ledger.New(ledger.WithGateway(c))
	if err := l.Load(ctx); err != nil {
		t.Fatalf("load: %v", err)
	}

	g, err := l.AddGoal(ctx, "Trip", core.Money{Cents: 50000})
	if err != nil {
		t.Fatalf("add goal: %v", err)
	}
	tx, err := l.AddTransaction(ctx, ledger.TransactionInput{
		Amount: core.Money{Cents: 20000}, Type: core.Expense, Category: core.SavingsCategory, GoalID: g.ID,
	})
	if err != nil {
		t.Fatalf("add transaction: %v", err)
	}
	if err := l.DeleteTransaction(ctx, tx.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, _, err := l.UndoDelete(ctx); err != nil {
		t.Fatalf("undo: %v", err)
	}

	// a fresh session sees the server state
	fresh := ledger.New(ledger.WithGateway(c))
	if err := fresh.Load(ctx); err != nil {
		t.Fatalf("reload: %v", err)
	}
	if txs := fresh.Transactions(); len(txs) != 1 || txs[0].ID != tx.ID {
		t.Fatalf("expected restored transaction, got %+v", txs)
	}
	goals := fresh.Goals()
	if len(goals) != 1 || goals[0].CurrentAmount.Cents != 20000 {
		t.Fatalf("expected goal credited once, got %+v", goals)
	}
}
