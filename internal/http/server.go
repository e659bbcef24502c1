package http

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"expenses/internal/core"
	applog "expenses/internal/log"
	"expenses/internal/metrics"
	"expenses/internal/middleware/ratelimit"
	"expenses/internal/middleware/security"
	"expenses/internal/middleware/trace"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
)

// ExpenseService is what the handlers need from the service layer.
type ExpenseService interface {
	CreateExpense(ctx context.Context, in core.NewExpense) (core.Expense, error)
	ListExpenses(ctx context.Context) ([]core.Expense, error)
	ListExpensesByMonth(ctx context.Context, year, month int) ([]core.Expense, error)
	GetTotals(ctx context.Context, salary float64) (core.Totals, error)
	Ping(ctx context.Context) error
}

// Deps configures NewServer. Logger and Metrics may be nil.
type Deps struct {
	Service            ExpenseService
	Logger             *applog.Logger
	Metrics            *metrics.Metrics
	CORSAllowedOrigins []string
	// RateLimitPerMinute caps POST requests per client IP; 0 disables it.
	RateLimitPerMinute int
}

type Server struct {
	http.Server
	svc         ExpenseService
	logger      *applog.Logger
	metrics     *metrics.Metrics
	rateLimiter *ratelimit.Limiter

	shutdownOnce sync.Once
	shutdownErr  error
}

// NewServer configures routes and middleware, returning a ready-to-run server.
func NewServer(addr string, deps Deps) *Server {
	logger := deps.Logger
	if logger == nil {
		logger = applog.New(applog.DefaultConfig())
	}

	s := &Server{
		Server: http.Server{
			Addr:           addr,
			ReadTimeout:    10 * time.Second,
			WriteTimeout:   10 * time.Second,
			IdleTimeout:    60 * time.Second,
			MaxHeaderBytes: 1 << 16, // 64KB
		},
		svc:     deps.Service,
		logger:  logger.WithComponent(applog.ComponentHTTP),
		metrics: deps.Metrics,
	}
	if deps.RateLimitPerMinute > 0 {
		s.rateLimiter = ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: deps.RateLimitPerMinute})
	}

	s.Handler = s.routes(deps)
	return s
}

func (s *Server) routes(deps Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(trace.NewMiddleware(s.logger, security.ClientIP).Middleware)
	if deps.Metrics != nil {
		r.Use(deps.Metrics.Middleware)
	}
	r.Use(s.recoverer)
	r.Use(security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: deps.CORSAllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", trace.HeaderRequestID},
		ExposedHeaders: []string{trace.HeaderRequestID},
		MaxAge:         300,
	}))
	r.NotFound(handleNotFound)
	r.MethodNotAllowed(handleMethodNotAllowed)

	r.Get("/healthz", handleHealth)
	r.Get("/readyz", s.handleReady)
	if deps.Metrics != nil {
		r.Handle("/metrics", deps.Metrics.Handler())
	}

	r.Route("/expenses", func(r chi.Router) {
		create := http.Handler(http.HandlerFunc(s.handleCreateExpense))
		if s.rateLimiter != nil {
			create = s.rateLimiter.Middleware(security.ClientIP, s.onRateLimit)(create)
		}
		r.Method(http.MethodPost, "/", create)
		r.Get("/", s.handleListExpenses)
		r.Get("/month/{year}/{month}", s.handleListExpensesByMonth)
	})
	r.Get("/totals", s.handleTotals)

	return r
}

func (s *Server) onRateLimit(w http.ResponseWriter, r *http.Request) {
	s.metrics.Limited()
	applog.FromContext(r.Context()).WithComponent(applog.ComponentRateLimit).WarnContext(r.Context(), "Rate limit exceeded",
		applog.FieldClientIP, security.ClientIP(r), applog.FieldPath, r.URL.Path)
	writeError(w, http.StatusTooManyRequests, CodeRateLimited, "Rate limit exceeded. Please try again later.", nil)
}

// recoverer turns a handler panic into a 500 JSON response.
func (s *Server) recoverer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				if rec == http.ErrAbortHandler {
					panic(rec)
				}
				applog.FromContext(r.Context()).ErrorContext(r.Context(), "Handler panic",
					"panic", fmt.Sprint(rec), applog.FieldPath, r.URL.Path)
				writeError(w, http.StatusInternalServerError, CodeInternal, "An error occurred: internal error", nil)
			}
		}()
		next.ServeHTTP(w, r)
	})
}

// Shutdown stops accepting requests, waits for in-flight ones and releases
// the rate limiter. Only the first call has any effect.
func (s *Server) Shutdown(ctx context.Context) error {
	s.shutdownOnce.Do(func() {
		if s.rateLimiter != nil {
			s.rateLimiter.Stop()
		}
		s.shutdownErr = s.Server.Shutdown(ctx)
	})
	return s.shutdownErr
}
