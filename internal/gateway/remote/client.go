// Package remote is the ledger gateway backed by the moneta REST API.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"moneta/internal/core"
)

// ErrUnauthorized is the cause of a TransportError for a 401 answer.
var ErrUnauthorized = errors.New("unauthorized")

const defaultTimeout = 15 * time.Second

// Client talks to the REST API on behalf of one user. It implements
// ledger.Gateway.
type Client struct {
	baseURL    *url.URL
	httpClient *http.Client

	mu    sync.RWMutex
	token string
}

type Option func(*Client)

// WithHTTPClient replaces the default client. Tests pass the httptest
// server's client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithToken starts the client with an already issued bearer token.
func WithToken(token string) Option {
	return func(c *Client) { c.token = token }
}

func NewClient(baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid API URL %q", baseURL)
	}
	c := &Client{
		baseURL: u,
		httpClient: &http.Client{
			Timeout: defaultTimeout,
			Transport: &http.Transport{
				MaxIdleConns:        10,
				IdleConnTimeout:     90 * time.Second,
				TLSHandshakeTimeout: 10 * time.Second,
			},
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Register creates an account on the server.
func (c *Client) Register(ctx context.Context, email, password string) error {
	body := map[string]string{"email": email, "password": password}
	return c.do(ctx, "register", http.MethodPost, "/api/auth/register", body, nil)
}

// Login exchanges credentials for a bearer token used by every later call.
func (c *Client) Login(ctx context.Context, email, password string) error {
	var out struct {
		Token string `json:"token"`
	}
	body := map[string]string{"email": email, "password": password}
	if err := c.do(ctx, "login", http.MethodPost, "/api/auth/login", body, &out); err != nil {
		return err
	}
	if out.Token == "" {
		return &core.TransportError{Op: "login", Err: errors.New("server returned no token")}
	}
	c.mu.Lock()
	c.token = out.Token
	c.mu.Unlock()
	return nil
}

func (c *Client) ListTransactions(ctx context.Context) ([]core.Transaction, error) {
	var out []core.Transaction
	err := c.do(ctx, "list transactions", http.MethodGet, "/api/transactions", nil, &out)
	if core.IsNotFound(err) {
		return []core.Transaction{}, nil
	}
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) ListGoals(ctx context.Context) ([]core.Goal, error) {
	var out []core.Goal
	err := c.do(ctx, "list goals", http.MethodGet, "/api/goals", nil, &out)
	if core.IsNotFound(err) {
		return []core.Goal{}, nil
	}
	if err != nil {
		return nil, err
	}
	return out, nil
}

type transactionBody struct {
	ID       string      `json:"id,omitempty"`
	Amount   core.Money  `json:"amount"`
	Type     core.TxType `json:"type"`
	Category string      `json:"category"`
	Date     core.Date   `json:"date"`
	Note     string      `json:"note"`
	GoalID   string      `json:"goalId"`
}

func newTransactionBody(tx core.Transaction) transactionBody {
	return transactionBody{
		ID:       tx.ID,
		Amount:   tx.Amount,
		Type:     tx.Type,
		Category: tx.Category,
		Date:     tx.Date,
		Note:     tx.Note,
		GoalID:   tx.GoalID,
	}
}

// CreateTransaction posts tx with its locally generated id so that an undo
// can re-create the same record.
func (c *Client) CreateTransaction(ctx context.Context, tx core.Transaction) (core.Transaction, error) {
	var out core.Transaction
	if err := c.do(ctx, "create transaction", http.MethodPost, "/api/transactions", newTransactionBody(tx), &out); err != nil {
		return core.Transaction{}, err
	}
	return out, nil
}

func (c *Client) UpdateTransaction(ctx context.Context, tx core.Transaction) (core.Transaction, error) {
	body := newTransactionBody(tx)
	body.ID = ""
	var out core.Transaction
	if err := c.do(ctx, "update transaction", http.MethodPut, "/api/transactions/"+url.PathEscape(tx.ID), body, &out); err != nil {
		return core.Transaction{}, err
	}
	return out, nil
}

func (c *Client) DeleteTransaction(ctx context.Context, id string) error {
	return c.do(ctx, "delete transaction", http.MethodDelete, "/api/transactions/"+url.PathEscape(id), nil, nil)
}

func (c *Client) CreateGoal(ctx context.Context, g core.Goal) (core.Goal, error) {
	body := map[string]any{"id": g.ID, "name": g.Name, "targetAmount": g.TargetAmount}
	var out core.Goal
	if err := c.do(ctx, "create goal", http.MethodPost, "/api/goals", body, &out); err != nil {
		return core.Goal{}, err
	}
	return out, nil
}

func (c *Client) UpdateGoal(ctx context.Context, g core.Goal) (core.Goal, error) {
	body := map[string]any{"name": g.Name, "targetAmount": g.TargetAmount, "currentAmount": g.CurrentAmount}
	var out core.Goal
	if err := c.do(ctx, "update goal", http.MethodPut, "/api/goals/"+url.PathEscape(g.ID), body, &out); err != nil {
		return core.Goal{}, err
	}
	return out, nil
}

func (c *Client) DeleteGoal(ctx context.Context, id string) (int, error) {
	var out struct {
		DeletedTransactions int `json:"deletedTransactions"`
	}
	if err := c.do(ctx, "delete goal", http.MethodDelete, "/api/goals/"+url.PathEscape(id), nil, &out); err != nil {
		return 0, err
	}
	return out.DeletedTransactions, nil
}

// do sends one request and decodes a 2xx body into out. Non-2xx answers are
// mapped to the core error taxonomy.
func (c *Client) do(ctx context.Context, op, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("%s: encode request: %w", op, err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL.String()+path, body)
	if err != nil {
		return fmt.Errorf("%s: build request: %w", op, err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	c.mu.RLock()
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	c.mu.RUnlock()

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &core.TransportError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	slog.DebugContext(ctx, "Gateway call completed",
		"operation", op, "status_code", resp.StatusCode, "duration_ms", time.Since(start).Milliseconds())

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 10<<20))
	if err != nil {
		return &core.TransportError{Op: op, StatusCode: resp.StatusCode, Err: fmt.Errorf("read body: %w", err)}
	}
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		if out == nil || len(raw) == 0 {
			return nil
		}
		if err := json.Unmarshal(raw, out); err != nil {
			return &core.TransportError{Op: op, StatusCode: resp.StatusCode, Err: fmt.Errorf("decode response: %w", err)}
		}
		return nil
	}
	return statusError(op, resp.StatusCode, raw)
}

func statusError(op string, status int, raw []byte) error {
	msg := errorMessage(raw)
	if msg == "" {
		msg = http.StatusText(status)
	}
	switch {
	case status == http.StatusBadRequest || status == http.StatusUnprocessableEntity:
		return core.Invalid("request", errors.New(msg))
	case status == http.StatusUnauthorized:
		return &core.TransportError{Op: op, StatusCode: status, Err: ErrUnauthorized}
	case status == http.StatusNotFound:
		return fmt.Errorf("%s: %s: %w", op, msg, core.ErrNotFound)
	case status >= 500:
		return &core.TransportError{Op: op, StatusCode: status, Err: fmt.Errorf("%w: %s", core.ErrServerFault, msg)}
	}
	return &core.TransportError{Op: op, StatusCode: status, Err: errors.New(msg)}
}

// errorMessage extracts {"error"} or {"message"} from an error body.
func errorMessage(raw []byte) string {
	var body struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	if json.Unmarshal(raw, &body) != nil {
		return ""
	}
	if body.Error != "" {
		return body.Error
	}
	return body.Message
}
