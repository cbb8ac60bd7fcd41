package http

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"moneta/internal/auth"
	"moneta/internal/core"
	"moneta/internal/middleware/ratelimit"
	"moneta/internal/services"
	"moneta/internal/storage"
)

type testServer struct {
	t   *testing.T
	srv *Server
}

func newTestServer(t *testing.T, cfg Config) *testServer {
	t.Helper()
	repo, err := storage.NewSQLiteRepository(filepath.Join(t.TempDir(), "api.db"))
	if err != nil {
		t.Fatalf("open repository: %v", err)
	}
	svc := services.NewLedgerService(repo, nil)
	t.Cleanup(func() { svc.Close() })

	srv := NewServer(cfg, svc, auth.NewService(repo, "test-secret", time.Hour))
	t.Cleanup(func() {
		srv.caches.Stop()
		srv.rateLimiter.Stop()
	})
	return &testServer{t: t, srv: srv}
}

func (ts *testServer) do(method, path, token, body string) *httptest.ResponseRecorder {
	ts.t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rr := httptest.NewRecorder()
	ts.srv.Handler.ServeHTTP(rr, req)
	return rr
}

func (ts *testServer) login(email string) string {
	ts.t.Helper()
	creds := `{"email":"` + email + `","password":"secret1"}`
	if rr := ts.do(http.MethodPost, "/api/auth/register", "", creds); rr.Code != http.StatusCreated {
		ts.t.Fatalf("register: %d %s", rr.Code, rr.Body.String())
	}
	rr := ts.do(http.MethodPost, "/api/auth/login", "", creds)
	if rr.Code != http.StatusOK {
		ts.t.Fatalf("login: %d %s", rr.Code, rr.Body.String())
	}
	var out struct{ Token string }
	decode(ts.t, rr, &out)
	if out.Token == "" {
		ts.t.Fatalf("empty token")
	}
	return out.Token
}

func decode(t *testing.T, rr *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.Unmarshal(rr.Body.Bytes(), v); err != nil {
		t.Fatalf("decode %q: %v", rr.Body.String(), err)
	}
}

func TestHealthAndReady(t *testing.T) {
	ts := newTestServer(t, Config{})
	for _, path := range []string{"/healthz", "/readyz"} {
		rr := ts.do(http.MethodGet, path, "", "")
		if rr.Code != http.StatusOK {
			t.Fatalf("%s status=%d", path, rr.Code)
		}
	}
	rr := ts.do(http.MethodGet, "/healthz", "", "")
	if rr.Header().Get("X-Content-Type-Options") != "nosniff" || rr.Header().Get("X-Request-ID") == "" {
		t.Fatalf("middleware headers missing: %v", rr.Header())
	}
}

func TestAuthFlow(t *testing.T) {
	ts := newTestServer(t, Config{})

	tests := []struct {
		name string
		body string
		code int
	}{
		{"missing fields", `{"email":""}`, http.StatusBadRequest},
		{"bad email", `{"email":"nope","password":"secret1"}`, http.StatusBadRequest},
		{"short password", `{"email":"a@example.com","password":"123"}`, http.StatusBadRequest},
		{"malformed", `{`, http.StatusBadRequest},
		{"ok", `{"email":"a@example.com","password":"secret1"}`, http.StatusCreated},
		{"duplicate", `{"email":"A@example.com","password":"secret1"}`, http.StatusConflict},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := ts.do(http.MethodPost, "/api/auth/register", "", tt.body)
			if rr.Code != tt.code {
				t.Fatalf("status=%d want %d body=%s", rr.Code, tt.code, rr.Body.String())
			}
			var out map[string]string
			decode(t, rr, &out)
			if out["message"] == "" {
				t.Fatalf("auth routes answer with a message: %s", rr.Body.String())
			}
		})
	}

	rr := ts.do(http.MethodPost, "/api/auth/login", "", `{"email":"a@example.com","password":"wrong12"}`)
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("bad password status=%d", rr.Code)
	}
}

func TestLoginLockout(t *testing.T) {
	ts := newTestServer(t, Config{})
	ts.login("lock@example.com")

	bad := `{"email":"lock@example.com","password":"wrong12"}`
	for i := 0; i < 5; i++ {
		if rr := ts.do(http.MethodPost, "/api/auth/login", "", bad); rr.Code != http.StatusUnauthorized {
			t.Fatalf("attempt %d status=%d", i, rr.Code)
		}
	}
	rr := ts.do(http.MethodPost, "/api/auth/login", "", `{"email":"lock@example.com","password":"secret1"}`)
	if rr.Code != http.StatusTooManyRequests {
		t.Fatalf("expected lockout, got %d", rr.Code)
	}
}

func TestRequiresToken(t *testing.T) {
	ts := newTestServer(t, Config{})
	if rr := ts.do(http.MethodGet, "/api/transactions", "", ""); rr.Code != http.StatusUnauthorized {
		t.Fatalf("no token status=%d", rr.Code)
	}
	if rr := ts.do(http.MethodGet, "/api/transactions", "garbage", ""); rr.Code != http.StatusUnauthorized {
		t.Fatalf("bad token status=%d", rr.Code)
	}
}

func TestTransactionLifecycle(t *testing.T) {
	ts := newTestServer(t, Config{})
	token := ts.login("tx@example.com")

	rr := ts.do(http.MethodGet, "/api/transactions", token, "")
	if rr.Code != http.StatusNotFound {
		t.Fatalf("empty list status=%d", rr.Code)
	}
	var errBody map[string]string
	decode(t, rr, &errBody)
	if errBody["error"] != "No transactions found" {
		t.Fatalf("unexpected empty-list body: %v", errBody)
	}

	rr = ts.do(http.MethodPost, "/api/transactions", token, `{"amount":12.5,"type":"Expense","category":"Food","date":"2024-03-01","note":"lunch"}`)
	if rr.Code != http.StatusCreated {
		t.Fatalf("create status=%d body=%s", rr.Code, rr.Body.String())
	}
	var created core.Transaction
	decode(t, rr, &created)
	if created.ID == "" || created.Amount.Cents != 1250 {
		t.Fatalf("unexpected created: %+v", created)
	}

	rr = ts.do(http.MethodPut, "/api/transactions/"+created.ID, token, `{"amount":"20"}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("update status=%d body=%s", rr.Code, rr.Body.String())
	}
	var updated core.Transaction
	decode(t, rr, &updated)
	if updated.Amount.Cents != 2000 || updated.Note != "lunch" {
		t.Fatalf("unexpected updated: %+v", updated)
	}

	rr = ts.do(http.MethodGet, "/api/transactions", token, "")
	var list []core.Transaction
	decode(t, rr, &list)
	if len(list) != 1 {
		t.Fatalf("expected 1 transaction, got %d", len(list))
	}

	if rr := ts.do(http.MethodDelete, "/api/transactions/"+created.ID, token, ""); rr.Code != http.StatusOK {
		t.Fatalf("delete status=%d", rr.Code)
	}
	if rr := ts.do(http.MethodDelete, "/api/transactions/"+created.ID, token, ""); rr.Code != http.StatusNotFound {
		t.Fatalf("second delete status=%d", rr.Code)
	}
}

func TestCreateTransactionValidation(t *testing.T) {
	ts := newTestServer(t, Config{})
	token := ts.login("val@example.com")

	tests := []struct {
		name string
		body string
	}{
		{"missing amount", `{"type":"Expense","category":"Food"}`},
		{"negative amount", `{"amount":-5,"type":"Expense","category":"Food"}`},
		{"bad type", `{"amount":5,"type":"Gift","category":"Food"}`},
		{"empty category", `{"amount":5,"type":"Expense","category":"  "}`},
		{"bad date", `{"amount":5,"type":"Expense","category":"Food","date":"yesterday"}`},
		{"empty body", ``},
		{"oversized amount", `{"amount":184467440737095616,"type":"Expense","category":"Food"}`},
		{"exponent amount", `{"amount":1e30,"type":"Income","category":"Income"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := ts.do(http.MethodPost, "/api/transactions", token, tt.body)
			if rr.Code != http.StatusBadRequest {
				t.Fatalf("status=%d body=%s", rr.Code, rr.Body.String())
			}
		})
	}
}

func TestUpdateTransactionRejectsOversizedAmount(t *testing.T) {
	ts := newTestServer(t, Config{})
	token := ts.login("big@example.com")

	rr := ts.do(http.MethodPost, "/api/transactions", token, `{"amount":10,"type":"Expense","category":"Food"}`)
	if rr.Code != http.StatusCreated {
		t.Fatalf("create status=%d body=%s", rr.Code, rr.Body.String())
	}
	var created core.Transaction
	decode(t, rr, &created)

	rr = ts.do(http.MethodPut, "/api/transactions/"+created.ID, token, `{"amount":184467440737095516.17}`)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status=%d body=%s", rr.Code, rr.Body.String())
	}
	var errBody map[string]string
	decode(t, rr, &errBody)
	if errBody["error"] != "amount: invalid amount" {
		t.Fatalf("unexpected error body: %v", errBody)
	}

	rr = ts.do(http.MethodGet, "/api/transactions", token, "")
	var list []core.Transaction
	decode(t, rr, &list)
	if len(list) != 1 || list[0].Amount.Cents != 1000 {
		t.Fatalf("amount changed by rejected update: %+v", list)
	}
}

func TestGoalsAndCascade(t *testing.T) {
	ts := newTestServer(t, Config{})
	token := ts.login("goal@example.com")

	if rr := ts.do(http.MethodGet, "/api/goals", token, ""); rr.Code != http.StatusNotFound {
		t.Fatalf("empty goals status=%d", rr.Code)
	}
	if rr := ts.do(http.MethodPost, "/api/goals", token, `{"name":"Bike","targetAmount":0}`); rr.Code != http.StatusBadRequest {
		t.Fatalf("zero target status=%d", rr.Code)
	}

	rr := ts.do(http.MethodPost, "/api/goals", token, `{"name":"Bike","targetAmount":100}`)
	if rr.Code != http.StatusCreated {
		t.Fatalf("create goal status=%d body=%s", rr.Code, rr.Body.String())
	}
	var g core.Goal
	decode(t, rr, &g)

	rr = ts.do(http.MethodPost, "/api/transactions", token, `{"amount":100,"type":"Expense","category":"Savings","goalId":"`+g.ID+`"}`)
	if rr.Code != http.StatusCreated {
		t.Fatalf("contribution status=%d body=%s", rr.Code, rr.Body.String())
	}

	rr = ts.do(http.MethodGet, "/api/goals", token, "")
	var goals []core.Goal
	decode(t, rr, &goals)
	if len(goals) != 1 || !goals[0].IsCompleted || goals[0].CurrentAmount.Cents != 10000 {
		t.Fatalf("goal not credited server-side: %+v", goals)
	}

	rr = ts.do(http.MethodGet, "/api/goals/"+g.ID+"/transactions", token, "")
	var linked []core.Transaction
	decode(t, rr, &linked)
	if rr.Code != http.StatusOK || len(linked) != 1 {
		t.Fatalf("goal transactions: %d %v", rr.Code, linked)
	}

	rr = ts.do(http.MethodPut, "/api/goals/"+g.ID, token, `{"name":"Road bike","currentAmount":-1}`)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("negative current status=%d", rr.Code)
	}

	rr = ts.do(http.MethodDelete, "/api/goals/"+g.ID, token, "")
	var del struct {
		Message             string
		DeletedTransactions int
	}
	decode(t, rr, &del)
	if rr.Code != http.StatusOK || del.DeletedTransactions != 1 {
		t.Fatalf("delete goal: %d %+v", rr.Code, del)
	}
	if rr := ts.do(http.MethodGet, "/api/goals/"+g.ID+"/transactions", token, ""); rr.Code != http.StatusNotFound {
		t.Fatalf("deleted goal transactions status=%d", rr.Code)
	}
}

func TestUsersAreIsolated(t *testing.T) {
	ts := newTestServer(t, Config{})
	alice := ts.login("alice@example.com")
	bob := ts.login("bob@example.com")

	rr := ts.do(http.MethodPost, "/api/transactions", alice, `{"amount":5,"type":"Income","category":"Income"}`)
	var tx core.Transaction
	decode(t, rr, &tx)

	if rr := ts.do(http.MethodGet, "/api/transactions", bob, ""); rr.Code != http.StatusNotFound {
		t.Fatalf("bob sees alice's data: %d", rr.Code)
	}
	if rr := ts.do(http.MethodDelete, "/api/transactions/"+tx.ID, bob, ""); rr.Code != http.StatusNotFound {
		t.Fatalf("bob deleted alice's transaction: %d", rr.Code)
	}
}

func TestSummaryCacheInvalidation(t *testing.T) {
	ts := newTestServer(t, Config{})
	token := ts.login("sum@example.com")

	ts.do(http.MethodPost, "/api/transactions", token, `{"amount":100,"type":"Income","category":"Income"}`)

	rr := ts.do(http.MethodGet, "/api/summary", token, "")
	if rr.Header().Get("X-Cache") != "MISS" {
		t.Fatalf("first summary should miss")
	}
	if rr := ts.do(http.MethodGet, "/api/summary", token, ""); rr.Header().Get("X-Cache") != "HIT" {
		t.Fatalf("second summary should hit")
	}

	ts.do(http.MethodPost, "/api/transactions", token, `{"amount":30,"type":"Expense","category":"Food"}`)
	rr = ts.do(http.MethodGet, "/api/summary", token, "")
	if rr.Header().Get("X-Cache") != "MISS" {
		t.Fatalf("write must invalidate the summary")
	}
	var totals core.Totals
	decode(t, rr, &totals)
	if totals.Balance.Cents != 7000 {
		t.Fatalf("unexpected totals: %+v", totals)
	}
}

func TestRecurringBreakdown(t *testing.T) {
	ts := newTestServer(t, Config{})
	token := ts.login("rec@example.com")

	for _, d := range []string{"2024-01-05", "2024-02-05", "2024-03-05"} {
		rr := ts.do(http.MethodPost, "/api/transactions", token, `{"amount":9.99,"type":"Expense","category":"Entertainment","note":"Streaming","date":"`+d+`"}`)
		if rr.Code != http.StatusCreated {
			t.Fatalf("create: %d", rr.Code)
		}
	}

	rr := ts.do(http.MethodGet, "/api/recurring-breakdown", token, "")
	var rep struct {
		TotalRecurring float64
		RecurringList  []struct{ Title string }
	}
	decode(t, rr, &rep)
	if len(rep.RecurringList) != 1 || rep.RecurringList[0].Title != "Streaming" || rep.TotalRecurring != 9.99 {
		t.Fatalf("unexpected report: %+v", rep)
	}

	if rr := ts.do(http.MethodGet, "/api/recurring-breakdown?policy=nope", token, ""); rr.Code != http.StatusBadRequest {
		t.Fatalf("unknown policy status=%d", rr.Code)
	}
}

func TestRateLimit(t *testing.T) {
	ts := newTestServer(t, Config{RateLimit: ratelimit.Config{RequestsPerSecond: 0.001, Burst: 2}})
	for i := 0; i < 2; i++ {
		if rr := ts.do(http.MethodGet, "/healthz", "", ""); rr.Code != http.StatusOK {
			t.Fatalf("request %d status=%d", i, rr.Code)
		}
	}
	if rr := ts.do(http.MethodGet, "/healthz", "", ""); rr.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", rr.Code)
	}
}
