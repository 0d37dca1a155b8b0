package http

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"fintrack/internal/cache"
	"fintrack/internal/ledger"
	applog "fintrack/internal/log"
	"fintrack/internal/middleware/ratelimit"
	"fintrack/internal/middleware/security"
	"fintrack/internal/middleware/trace"
	"fintrack/internal/services"
	"fintrack/internal/sheets"
)

// Config tunes the API server.
type Config struct {
	Addr               string
	SessionTTL         time.Duration
	SessionMax         int
	RateLimitPerMinute int
	// Currency is the ISO code used for display strings.
	Currency string
	Logger   *applog.Logger
}

type Server struct {
	http.Server

	live     *ledger.Live
	ledger   *services.LedgerService
	exporter sheets.TransactionExporter
	sessions *sessionRegistry
	currency string

	caches   *cache.Manager
	limiter  *ratelimit.Limiter
	tracer   *trace.Middleware
	clientIP *security.ClientIP

	shutdownOnce sync.Once
}

// NewServer wires routes and middleware over live, returning a ready-to-run
// http.Server. exporter may be nil, which disables the sheets route.
func NewServer(cfg Config, live *ledger.Live, exporter sheets.TransactionExporter) *Server {
	if cfg.SessionTTL <= 0 {
		cfg.SessionTTL = 30 * time.Minute
	}
	if cfg.SessionMax <= 0 {
		cfg.SessionMax = 1000
	}
	if cfg.Currency == "" {
		cfg.Currency = "USD"
	}
	logger := cfg.Logger
	if logger == nil {
		logger = applog.New(applog.DefaultConfig())
	}
	logger = logger.WithComponent(applog.ComponentHTTP)

	s := &Server{
		live:     live,
		ledger:   services.NewLedgerService(live),
		exporter: exporter,
		sessions: newSessionRegistry(live, services.NewRecurrenceEngine(live), cfg.SessionMax, cfg.SessionTTL),
		currency: cfg.Currency,
		caches:   cache.NewManager(),
		limiter:  ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: cfg.RateLimitPerMinute}),
		clientIP: security.NewClientIP(),
	}
	s.tracer = trace.NewMiddleware(s.clientIP.Extract, logger)

	s.caches.Register(s.sessions.sessions)
	s.caches.StartCleanup(time.Minute)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)

	mux.HandleFunc("GET /api/dashboard", s.authed(s.handleDashboard))
	mux.HandleFunc("PUT /api/month", s.authed(s.handleSetMonth))

	mux.HandleFunc("POST /api/transactions", s.authed(s.handleCreateTransaction))
	mux.HandleFunc("PATCH /api/transactions/{id}", s.authed(s.handleEditTransaction))
	mux.HandleFunc("DELETE /api/transactions/{id}", s.authed(s.handleDeleteTransaction))

	mux.HandleFunc("PUT /api/budgets/{tag}", s.authed(s.handleUpsertBudget))
	mux.HandleFunc("DELETE /api/budgets/{tag}", s.authed(s.handleDeleteBudget))

	mux.HandleFunc("POST /api/goals", s.authed(s.handleCreateGoal))
	mux.HandleFunc("PATCH /api/goals/{id}", s.authed(s.handleUpdateGoal))
	mux.HandleFunc("DELETE /api/goals/{id}", s.authed(s.handleDeleteGoal))

	mux.HandleFunc("GET /api/export", s.authed(s.handleExport))
	mux.HandleFunc("POST /api/import", s.authed(s.handleImport))
	mux.HandleFunc("POST /api/export/sheets", s.authed(s.handleExportSheets))

	var handler http.Handler = mux
	handler = s.limiter.Middleware(s.rateKey, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusTooManyRequests, errorJSON{Error: "rate limit exceeded"})
	})(handler)
	handler = security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware(handler)
	handler = s.tracer.Middleware(handler)

	s.Server = http.Server{
		Addr:              cfg.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       2 * time.Minute,
	}
	return s
}

// rateKey buckets writes per user, falling back to the client address.
func (s *Server) rateKey(r *http.Request) string {
	if id := sanitizeInput(r.Header.Get(headerUserID)); id != "" {
		return "user:" + id
	}
	return "ip:" + s.clientIP.Extract(r)
}

// authed resolves the caller identity and tags the request logger with it.
func (s *Server) authed(next func(http.ResponseWriter, *http.Request, Identity)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := parseIdentity(r)
		if err != nil {
			writeError(w, r, err)
			return
		}
		r = r.WithContext(applog.WithUser(r.Context(), id.UserID))
		next(w, r, id)
	}
}

// Shutdown stops background sweeps, drains the HTTP server and closes
// every open session.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.caches.Stop()
		s.limiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
		s.sessions.closeAll()
	})
	if errors.Is(shutdownErr, http.ErrServerClosed) {
		return nil
	}
	return shutdownErr
}

// Sessions reports how many user sessions are open.
func (s *Server) Sessions() int { return s.sessions.size() }
