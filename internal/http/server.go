package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"golang.org/x/crypto/bcrypt"

	"spendwise/internal/core"
	"spendwise/internal/log"
	"spendwise/internal/metrics"
	"spendwise/internal/middleware/ratelimit"
	"spendwise/internal/middleware/security"
	"spendwise/internal/middleware/trace"
)

// Rule engine surfaces consumed by the handlers.
type (
	UserRules interface {
		List(ctx context.Context) ([]core.User, error)
		GetByID(ctx context.Context, id int64) (core.User, error)
		GetByEmail(ctx context.Context, email string) (core.User, error)
		Create(ctx context.Context, u core.User) (core.User, error)
		Update(ctx context.Context, id int64, p core.UserUpdate) error
		Delete(ctx context.Context, id int64) error
	}

	CategoryRules interface {
		List(ctx context.Context) ([]core.Category, error)
		GetByID(ctx context.Context, id int64) (core.Category, error)
		Create(ctx context.Context, c core.Category) (core.Category, error)
		Update(ctx context.Context, id int64, p core.CategoryUpdate) error
		Delete(ctx context.Context, id int64) error
	}

	CurrencyRules interface {
		List(ctx context.Context) ([]core.Currency, error)
		GetByID(ctx context.Context, id int64) (core.Currency, error)
		GetByCode(ctx context.Context, code string) (core.Currency, error)
		Create(ctx context.Context, c core.Currency) (core.Currency, error)
		Update(ctx context.Context, id int64, p core.CurrencyUpdate) error
		Delete(ctx context.Context, id int64) error
	}

	ExpenseRules interface {
		List(ctx context.Context) ([]core.Expense, error)
		GetByID(ctx context.Context, id int64) (core.Expense, error)
		GetByUser(ctx context.Context, userID int64) ([]core.Expense, error)
		GetByCategory(ctx context.Context, categoryID int64) ([]core.Expense, error)
		GetByDateRange(ctx context.Context, start, end time.Time) ([]core.Expense, error)
		TotalsByUser(ctx context.Context, userID int64) ([]core.CurrencyTotal, error)
		TotalsByCategory(ctx context.Context, categoryID int64) ([]core.CurrencyTotal, error)
		Create(ctx context.Context, e core.Expense) (core.Expense, error)
		Update(ctx context.Context, id int64, p core.ExpenseUpdate) error
		Delete(ctx context.Context, id int64) error
	}

	BudgetRules interface {
		List(ctx context.Context) ([]core.Budget, error)
		GetByID(ctx context.Context, id int64) (core.Budget, error)
		GetByUser(ctx context.Context, userID int64) ([]core.Budget, error)
		GetByCategory(ctx context.Context, categoryID int64) ([]core.Budget, error)
		GetActive(ctx context.Context) ([]core.Budget, error)
		GetActiveAt(ctx context.Context, at time.Time) ([]core.Budget, error)
		Usage(ctx context.Context, id int64) (core.BudgetUsage, error)
		IsOverLimit(ctx context.Context, id int64) (bool, error)
		Create(ctx context.Context, b core.Budget) (core.Budget, error)
		Update(ctx context.Context, id int64, p core.BudgetUpdate) error
		Delete(ctx context.Context, id int64) error
	}
)

// Rules bundles the rule engine services.
type Rules struct {
	Users      UserRules
	Categories CategoryRules
	Currencies CurrencyRules
	Expenses   ExpenseRules
	Budgets    BudgetRules
}

// Options configures the ambient parts of the server. Zero values are
// usable: no metrics, a default logger, always ready.
type Options struct {
	Logger             *log.Logger
	Metrics            *metrics.Metrics
	RateLimitPerMinute int
	Ready              func(ctx context.Context) error
	BcryptCost         int
}

type Server struct {
	http.Server
	rules       Rules
	metrics     *metrics.Metrics
	rateLimiter *ratelimit.Limiter
	ready       func(ctx context.Context) error
	bcryptCost  int

	shutdownOnce sync.Once
}

// NewServer configures routes and middleware, returning a ready-to-run
// http.Server.
func NewServer(addr string, rules Rules, opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	logger = logger.WithComponent(log.ComponentHTTP)

	ready := opts.Ready
	if ready == nil {
		ready = func(context.Context) error { return nil }
	}
	cost := opts.BcryptCost
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}

	s := &Server{
		rules:       rules,
		metrics:     opts.Metrics,
		rateLimiter: ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: opts.RateLimitPerMinute}),
		ready:       ready,
		bcryptCost:  cost,
	}

	detector := security.NewDetector(opts.Metrics)
	s.Server = http.Server{
		Addr:              addr,
		Handler:           s.routes(logger, detector),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	return s
}

func (s *Server) routes(logger *log.Logger, detector *security.Detector) http.Handler {
	r := chi.NewRouter()
	r.Use(trace.NewMiddleware(logger, s.metrics, detector.ExtractClientIP).Middleware)
	r.Use(chimw.Recoverer)
	r.Use(detector.Middleware)
	r.Use(security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware)
	r.Use(s.rateLimiter.Middleware(detector.ExtractClientIP, ratelimit.MutatingOnly, s.onRateLimit))

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		NotFoundError("route not found").Write(w)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		ErrorResponse(http.StatusMethodNotAllowed, "method not allowed").Write(w)
	})

	r.Get("/healthz", handleHealth)
	r.Get("/readyz", s.handleReady)
	if s.metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.metrics.Handler())
	}

	r.Route("/api", func(r chi.Router) {
		r.Route("/users", func(r chi.Router) {
			r.Get("/", s.handleListUsers)
			r.Post("/", s.handleCreateUser)
			r.Get("/by-email/{email}", s.handleGetUserByEmail)
			r.Get("/{id}", s.handleGetUser)
			r.Put("/{id}", s.handleUpdateUser)
			r.Delete("/{id}", s.handleDeleteUser)
		})

		r.Route("/categories", func(r chi.Router) {
			r.Get("/", s.handleListCategories)
			r.Post("/", s.handleCreateCategory)
			r.Get("/{id}", s.handleGetCategory)
			r.Put("/{id}", s.handleUpdateCategory)
			r.Delete("/{id}", s.handleDeleteCategory)
		})

		r.Route("/currencies", func(r chi.Router) {
			r.Get("/", s.handleListCurrencies)
			r.Post("/", s.handleCreateCurrency)
			r.Get("/by-code/{code}", s.handleGetCurrencyByCode)
			r.Get("/{id}", s.handleGetCurrency)
			r.Put("/{id}", s.handleUpdateCurrency)
			r.Delete("/{id}", s.handleDeleteCurrency)
		})

		r.Route("/expenses", func(r chi.Router) {
			r.Get("/", s.handleListExpenses)
			r.Post("/", s.handleCreateExpense)
			r.Get("/range", s.handleExpensesInRange)
			r.Get("/by-user/{userID}", s.handleExpensesByUser)
			r.Get("/by-category/{categoryID}", s.handleExpensesByCategory)
			r.Get("/totals/by-user/{userID}", s.handleTotalsByUser)
			r.Get("/totals/by-category/{categoryID}", s.handleTotalsByCategory)
			r.Get("/{id}", s.handleGetExpense)
			r.Put("/{id}", s.handleUpdateExpense)
			r.Delete("/{id}", s.handleDeleteExpense)
		})

		r.Route("/budgets", func(r chi.Router) {
			r.Get("/", s.handleListBudgets)
			r.Post("/", s.handleCreateBudget)
			r.Get("/active", s.handleActiveBudgets)
			r.Get("/by-user/{userID}", s.handleBudgetsByUser)
			r.Get("/by-category/{categoryID}", s.handleBudgetsByCategory)
			r.Get("/{id}", s.handleGetBudget)
			r.Put("/{id}", s.handleUpdateBudget)
			r.Delete("/{id}", s.handleDeleteBudget)
			r.Get("/{id}/usage", s.handleBudgetUsage)
			r.Get("/{id}/over-limit", s.handleBudgetOverLimit)
		})
	})

	return r
}

func (s *Server) onRateLimit(r *http.Request) {
	if s.metrics != nil {
		s.metrics.RateLimited()
	}
	log.FromContext(r.Context()).WarnContext(r.Context(), "Rate limit exceeded",
		log.FieldMethod, r.Method,
		log.FieldPath, r.URL.Path)
}

// observe records the outcome of one rule engine call.
func (s *Server) observe(aggregate, operation string, err error) {
	if s.metrics != nil {
		s.metrics.ObserveRule(aggregate, operation, err)
	}
}

// Shutdown gracefully shuts down the server and the rate limiter.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.rateLimiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	NewJSONResponse().Body(map[string]string{"status": "ok"}).Write(w)
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := s.ready(ctx); err != nil {
		log.FromContext(r.Context()).WarnContext(r.Context(), "Readiness check failed", log.FieldError, err.Error())
		ErrorResponse(http.StatusServiceUnavailable, "not ready").Write(w)
		return
	}
	NewJSONResponse().Body(map[string]string{"status": "ready"}).Write(w)
}

// serve runs one rule engine read and writes its result as JSON.
func serve[T any](s *Server, w http.ResponseWriter, r *http.Request, aggregate, operation string, fn func(ctx context.Context) (T, error)) {
	v, err := fn(r.Context())
	s.observe(aggregate, operation, err)
	if err != nil {
		writeError(w, r, operation, err)
		return
	}
	NewJSONResponse().Body(v).Write(w)
}

// serveCreated runs a create and answers 201 with the stored row.
func serveCreated[T any](s *Server, w http.ResponseWriter, r *http.Request, aggregate string, fn func(ctx context.Context) (T, error)) {
	v, err := fn(r.Context())
	s.observe(aggregate, log.OpCreate, err)
	if err != nil {
		writeError(w, r, log.OpCreate, err)
		return
	}
	NewJSONResponse().Status(http.StatusCreated).Body(v).Write(w)
}

// serveNoContent runs an update or delete and answers 204.
func (s *Server) serveNoContent(w http.ResponseWriter, r *http.Request, aggregate, operation string, fn func(ctx context.Context) error) {
	err := fn(r.Context())
	s.observe(aggregate, operation, err)
	if err != nil {
		writeError(w, r, operation, err)
		return
	}
	NewJSONResponse().Status(http.StatusNoContent).Write(w)
}

// serveByID parses the {id} parameter and serves fn(id).
func serveByID[T any](s *Server, w http.ResponseWriter, r *http.Request, param, aggregate, operation string, fn func(ctx context.Context, id int64) (T, error)) {
	id, err := pathID(r, param)
	if err != nil {
		writeError(w, r, operation, err)
		return
	}
	serve(s, w, r, aggregate, operation, func(ctx context.Context) (T, error) {
		return fn(ctx, id)
	})
}

// deleteByID parses {id} and runs a delete.
func (s *Server) deleteByID(w http.ResponseWriter, r *http.Request, aggregate string, fn func(ctx context.Context, id int64) error) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, log.OpDelete, err)
		return
	}
	s.serveNoContent(w, r, aggregate, log.OpDelete, func(ctx context.Context) error {
		return fn(ctx, id)
	})
}
