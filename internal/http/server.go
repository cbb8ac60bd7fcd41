package http

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"moneta/internal/cache"
	"moneta/internal/core"
	applog "moneta/internal/log"
	"moneta/internal/middleware/ratelimit"
	"moneta/internal/middleware/security"
	"moneta/internal/middleware/trace"
	"moneta/internal/recurring"
	"moneta/internal/services"
)

// LedgerService is the per-user ledger behind the API.
type LedgerService interface {
	ListTransactions(ctx context.Context, userID string) ([]core.Transaction, error)
	CreateTransaction(ctx context.Context, userID string, tx core.Transaction) (core.Transaction, error)
	UpdateTransaction(ctx context.Context, userID, id string, p services.TransactionPatch) (core.Transaction, error)
	DeleteTransaction(ctx context.Context, userID, id string) error
	ListGoals(ctx context.Context, userID string) ([]core.Goal, error)
	CreateGoal(ctx context.Context, userID, id, name string, target core.Money) (core.Goal, error)
	UpdateGoal(ctx context.Context, userID, id string, p services.GoalPatch) (core.Goal, error)
	DeleteGoal(ctx context.Context, userID, id string) (int, error)
	GoalTransactions(ctx context.Context, userID, id string) ([]core.Transaction, error)
	Summary(ctx context.Context, userID string) (core.Totals, error)
	RecurringBreakdown(ctx context.Context, userID string, p recurring.Policy) (recurring.Report, error)
	Ping(ctx context.Context) error
}

// Authenticator registers users and issues and checks bearer tokens.
type Authenticator interface {
	Register(ctx context.Context, email, password string) (string, error)
	Login(ctx context.Context, email, password string) (string, error)
	ValidateToken(token string) (string, error)
}

type Config struct {
	Addr      string
	RateLimit ratelimit.Config
	// SummaryCacheSize and SummaryCacheTTL bound the per-user totals cache.
	SummaryCacheSize int
	SummaryCacheTTL  time.Duration
}

func DefaultConfig() Config {
	return Config{
		Addr:             ":8080",
		RateLimit:        ratelimit.DefaultConfig(),
		SummaryCacheSize: 1000,
		SummaryCacheTTL:  5 * time.Minute,
	}
}

type Server struct {
	http.Server
	ledger LedgerService
	auth   Authenticator
	now    func() time.Time

	rateLimiter  *ratelimit.Limiter
	detector     *security.Detector
	tracer       *trace.Middleware
	summaryCache *cache.LRUCache[core.Totals]
	caches       *cache.Manager

	shutdownOnce sync.Once
}

// NewServer configures routes and middleware, returning a ready-to-run
// http.Server.
func NewServer(cfg Config, ledger LedgerService, authn Authenticator) *Server {
	def := DefaultConfig()
	if cfg.Addr == "" {
		cfg.Addr = def.Addr
	}
	if cfg.SummaryCacheSize <= 0 {
		cfg.SummaryCacheSize = def.SummaryCacheSize
	}
	if cfg.SummaryCacheTTL <= 0 {
		cfg.SummaryCacheTTL = def.SummaryCacheTTL
	}

	s := &Server{
		ledger:       ledger,
		auth:         authn,
		now:          time.Now,
		rateLimiter:  ratelimit.NewLimiter(cfg.RateLimit),
		detector:     security.NewDetector(),
		summaryCache: cache.NewLRUCache[core.Totals](cfg.SummaryCacheSize, cfg.SummaryCacheTTL),
		caches:       cache.NewManager(),
	}
	s.tracer = trace.NewMiddleware(s.detector.ExtractClientIP)
	s.caches.Register("summary", s.summaryCache)
	s.caches.StartCleanup(10 * time.Minute)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)

	mux.HandleFunc("POST /api/auth/register", s.handleRegister)
	mux.HandleFunc("POST /api/auth/login", s.handleLogin)

	mux.HandleFunc("POST /api/transactions", s.requireAuth(s.handleCreateTransaction))
	mux.HandleFunc("GET /api/transactions", s.requireAuth(s.handleListTransactions))
	mux.HandleFunc("PUT /api/transactions/{id}", s.requireAuth(s.handleUpdateTransaction))
	mux.HandleFunc("DELETE /api/transactions/{id}", s.requireAuth(s.handleDeleteTransaction))

	mux.HandleFunc("POST /api/goals", s.requireAuth(s.handleCreateGoal))
	mux.HandleFunc("GET /api/goals", s.requireAuth(s.handleListGoals))
	mux.HandleFunc("PUT /api/goals/{id}", s.requireAuth(s.handleUpdateGoal))
	mux.HandleFunc("DELETE /api/goals/{id}", s.requireAuth(s.handleDeleteGoal))
	mux.HandleFunc("GET /api/goals/{id}/transactions", s.requireAuth(s.handleGoalTransactions))

	mux.HandleFunc("GET /api/recurring-breakdown", s.requireAuth(s.handleRecurringBreakdown))
	mux.HandleFunc("GET /api/summary", s.requireAuth(s.handleSummary))

	var h http.Handler = mux
	h = s.rateLimiter.Middleware(s.detector.ExtractClientIP, func(w http.ResponseWriter, r *http.Request) {
		slog.WarnContext(r.Context(), "Rate limit exceeded",
			"client_ip", s.detector.ExtractClientIP(r), "method", r.Method, "path", r.URL.Path)
		ErrorResponse(http.StatusTooManyRequests, "Rate limit exceeded. Please try again later.").Write(w)
	})(h)
	h = applog.Middleware(applog.New(applog.Config{Handler: slog.Default().Handler(), Component: applog.ComponentHTTP}), trace.GetRequestID)(h)
	h = s.tracer.Middleware(h)
	h = s.detector.Middleware(h)
	h = security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware(h)

	s.Server = http.Server{
		Addr:              cfg.Addr,
		Handler:           h,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return s
}

// requireAuth rejects requests without a valid bearer token and stores the
// token subject as the request user.
func (s *Server) requireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r)
		if token == "" {
			UnauthorizedError("Authorization header required").Write(w)
			return
		}
		uid, err := s.auth.ValidateToken(token)
		if err != nil {
			slog.DebugContext(r.Context(), "Token validation failed", "path", r.URL.Path, "error", err)
			UnauthorizedError("Invalid or expired token").Write(w)
			return
		}
		next(w, r.WithContext(withUserID(r.Context(), uid)))
	}
}

// Shutdown stops the background routines and then the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	s.shutdownOnce.Do(func() {
		s.caches.Stop()
		s.rateLimiter.Stop()
		err = s.Server.Shutdown(ctx)
	})
	return err
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	if err := s.ledger.Ping(ctx); err != nil {
		slog.WarnContext(r.Context(), "Readiness check failed", "error", err)
		http.Error(w, "not ready", http.StatusServiceUnavailable)
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}
