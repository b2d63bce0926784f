// Package http serves the ledger as a JSON REST API.
package http

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"spendwise/internal/config"
	"spendwise/internal/core"
	"spendwise/internal/log"
	"spendwise/internal/middleware/security"
	"spendwise/internal/middleware/trace"
	"spendwise/internal/services"
)

// Ledger is what the handlers need from services.LedgerService.
type Ledger interface {
	ListExpenses(ctx context.Context, f services.ExpenseFilter) ([]core.Expense, error)
	GetExpense(ctx context.Context, id int64) (core.Expense, error)
	CreateExpense(ctx context.Context, in core.ExpenseInput) (core.Expense, error)
	UpdateExpense(ctx context.Context, id int64, p core.ExpensePatch) (core.Expense, error)
	DeleteExpense(ctx context.Context, id int64) (bool, error)

	ListBudgets(ctx context.Context) ([]core.Budget, error)
	BudgetByMonth(ctx context.Context, month string) (core.Budget, error)
	SaveBudget(ctx context.Context, in core.BudgetInput) (core.Budget, error)
	UpdateBudget(ctx context.Context, id int64, p core.BudgetPatch) (core.Budget, error)
	DeleteBudget(ctx context.Context, id int64) (bool, error)

	Summary(ctx context.Context, month string) (core.Summary, error)
	Trend(ctx context.Context, end string, months int) ([]core.TrendPoint, error)

	Ping(ctx context.Context) error
}

var _ Ledger = (*services.LedgerService)(nil)

// Options tunes the listener and middleware. Zero timeouts leave the
// net/http defaults.
type Options struct {
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	IdleTimeout    time.Duration
	TrustedProxies []string
	Logger         *log.Logger
}

// OptionsFromConfig copies the server settings out of cfg.
func OptionsFromConfig(cfg *config.Config, logger *log.Logger) Options {
	return Options{
		ReadTimeout:    cfg.ReadTimeout,
		WriteTimeout:   cfg.WriteTimeout,
		IdleTimeout:    cfg.IdleTimeout,
		TrustedProxies: cfg.TrustedProxies,
		Logger:         logger,
	}
}

type Server struct {
	http.Server
	ledger Ledger
	logger *log.Logger
	trace  *trace.Tracer
}

// NewServer configures routes and middleware, returning a ready-to-run http.Server.
func NewServer(addr string, ledger Ledger, opts Options) (*Server, error) {
	logger := opts.Logger
	if logger == nil {
		logger = log.Discard()
	}
	logger = logger.WithComponent(log.ComponentHTTP)

	ips, err := NewClientIPExtractor(opts.TrustedProxies)
	if err != nil {
		return nil, fmt.Errorf("configure trusted proxies: %w", err)
	}

	s := &Server{
		ledger: ledger,
		logger: logger,
		trace:  trace.New(logger, ips.Extract),
	}

	mux := http.NewServeMux()
	s.routes(mux)

	var h http.Handler = mux
	h = security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware(h)
	h = log.RequestIDMiddleware(trace.RequestID)(h)
	h = log.Middleware(logger)(h)
	h = s.trace.Wrap(h)

	s.Server = http.Server{
		Addr:              addr,
		Handler:           h,
		ReadTimeout:       opts.ReadTimeout,
		ReadHeaderTimeout: opts.ReadTimeout,
		WriteTimeout:      opts.WriteTimeout,
		IdleTimeout:       opts.IdleTimeout,
	}
	return s, nil
}

func (s *Server) routes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/expenses", s.handleListExpenses)
	mux.HandleFunc("GET /api/expenses/{id}", s.handleGetExpense)
	mux.HandleFunc("POST /api/expenses", s.handleCreateExpense)
	mux.HandleFunc("PUT /api/expenses/{id}", s.handleUpdateExpense)
	mux.HandleFunc("DELETE /api/expenses/{id}", s.handleDeleteExpense)

	mux.HandleFunc("GET /api/budgets", s.handleListBudgets)
	mux.HandleFunc("GET /api/budgets/month/{month}", s.handleBudgetByMonth)
	mux.HandleFunc("POST /api/budgets", s.handleSaveBudget)
	mux.HandleFunc("PUT /api/budgets/{id}", s.handleUpdateBudget)
	mux.HandleFunc("DELETE /api/budgets/{id}", s.handleDeleteBudget)

	mux.HandleFunc("GET /api/analytics/summary", s.handleSummary)
	mux.HandleFunc("GET /api/analytics/trend", s.handleTrend)
	mux.HandleFunc("GET /api/categories", s.handleCategories)

	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)
}

// Metrics exposes the request counters collected by the trace middleware.
func (s *Server) Metrics() trace.Metrics {
	return s.trace.Snapshot()
}

// errorMessages names the caller-facing text for each failure class of one
// endpoint.
type errorMessages struct {
	invalid  string
	notFound string
	failed   string
}

// writeError maps ledger errors onto status codes. Causes of 500s are
// logged and never returned.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error, msgs errorMessages, op string) {
	ctx := r.Context()
	var verr *core.ValidationError
	switch {
	case errors.As(err, &verr):
		InvalidResponse(msgs.invalid, verr).Write(w, r)
	case errors.Is(err, core.ErrNotFound):
		NotFoundError(msgs.notFound).Write(w, r)
	case errors.Is(err, core.ErrMonthTaken):
		ConflictError("A budget already exists for this month").Write(w, r)
	default:
		log.FromContext(ctx).LogError(ctx, msgs.failed, err, op, nil)
		InternalServerError(msgs.failed).Write(w, r)
	}
}

type healthStatus struct {
	Status   string `json:"status"`
	Requests int64  `json:"requests,omitempty"`
	Error    string `json:"error,omitempty"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	NewJSONResponse().Body(healthStatus{Status: "ok"}).Write(w, r)
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := s.ledger.Ping(ctx); err != nil {
		log.FromContext(ctx).WarnContext(ctx, "Readiness check failed", log.FieldError, err.Error())
		NewJSONResponse().
			Status(http.StatusServiceUnavailable).
			Body(healthStatus{Status: "unavailable", Error: "store unreachable"}).
			Write(w, r)
		return
	}
	NewJSONResponse().
		Body(healthStatus{Status: "ready", Requests: s.Metrics().TotalRequests}).
		Write(w, r)
}
