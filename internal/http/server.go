// Package http serves the ledger, its reports, the bill board and the market
// panels as a JSON API. Each bearer token owns one workspace.
package http

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"savings/internal/cache"
	"savings/internal/ledger"
	"savings/internal/log"
	"savings/internal/market"
	"savings/internal/middleware/ratelimit"
	"savings/internal/middleware/security"
	"savings/internal/middleware/trace"
	"savings/internal/session"
	"savings/internal/store"
)

// ReadyCheck reports whether a dependency can serve requests.
type ReadyCheck func(ctx context.Context) error

type Config struct {
	Addr               string
	RateLimitPerMinute int
	SessionTTL         time.Duration
	RemoteTimeout      time.Duration
	MaxWorkspaces      int
}

type Deps struct {
	Store    store.Store
	Tokens   session.TokenStore
	Verifier session.Verifier
	Market   market.Provider
	Logger   *log.Logger
	// Ready checks keyed by dependency name, run by /readyz.
	Ready map[string]ReadyCheck
}

type Server struct {
	http.Server
	logger     *log.Logger
	workspaces *workspaces
	verifier   session.Verifier
	market     market.Provider
	ready      map[string]ReadyCheck
	limiter    *ratelimit.Limiter
	tracer     *trace.Middleware
	caches     *cache.Manager
	now        func() time.Time
	startedAt  time.Time
	metrics    appMetrics

	shutdownOnce sync.Once
}

type appMetrics struct {
	added          atomic.Int64
	updated        atomic.Int64
	removed        atomic.Int64
	remoteFailures atomic.Int64
	logins         atomic.Int64
}

func NewServer(cfg Config, deps Deps) (*Server, error) {
	if deps.Store == nil {
		return nil, errors.New("http: store is required")
	}
	if deps.Tokens == nil {
		return nil, errors.New("http: token store is required")
	}
	if deps.Verifier == nil {
		return nil, errors.New("http: credential verifier is required")
	}
	if deps.Logger == nil {
		deps.Logger = log.New(log.DefaultConfig())
	}
	if deps.Market == nil {
		deps.Market = market.NewStaticProvider(market.DefaultSnapshot())
	}
	if cfg.RemoteTimeout <= 0 {
		cfg.RemoteTimeout = ledger.DefaultTimeout
	}

	ips, err := security.NewIPResolver()
	if err != nil {
		return nil, err
	}

	logger := deps.Logger.WithComponent(log.ComponentHTTP)
	ledgerOpts := []ledger.Option{
		ledger.WithTimeout(cfg.RemoteTimeout),
		ledger.WithLogger(deps.Logger.WithComponent(log.ComponentLedger)),
	}
	ws := newWorkspaces(deps.Store, deps.Tokens, workspaceConfig{
		MaxWorkspaces: cfg.MaxWorkspaces,
		SessionTTL:    cfg.SessionTTL,
		LedgerOptions: ledgerOpts,
	})
	s := &Server{
		logger:     logger,
		workspaces: ws,
		verifier:   deps.Verifier,
		market:     deps.Market,
		ready:      deps.Ready,
		limiter:    ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: cfg.RateLimitPerMinute}),
		tracer:     trace.NewMiddleware(logger, ips.ClientIP),
		caches:     cache.NewManager(deps.Logger),
		now:        time.Now,
		startedAt:  time.Now(),
	}

	for _, c := range s.workspaces.caches() {
		s.caches.Register(c)
	}
	if cp, ok := deps.Market.(*market.CachedProvider); ok {
		s.caches.Register(cp.Cache())
	}
	s.caches.StartCleanup(time.Minute)

	mux := http.NewServeMux()
	s.routes(mux)

	var h http.Handler = mux
	h = s.limiter.Middleware(ips.ClientIP, func(w http.ResponseWriter, _ *http.Request) {
		ErrorResponse(http.StatusTooManyRequests, "rate limit exceeded").Write(w)
	})(h)
	h = security.Headers(security.DefaultHeadersConfig())(h)
	h = s.tracer.Middleware(h)
	h = otelhttp.NewHandler(h, "savings-http")

	s.Server = http.Server{
		Addr:              cfg.Addr,
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	return s, nil
}

func (s *Server) routes(mux *http.ServeMux) {
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)
	mux.HandleFunc("GET /metrics", s.handleMetrics)

	mux.HandleFunc("POST /api/session", s.handleLogin)
	mux.HandleFunc("GET /api/session", s.authed(s.handleSession))
	mux.HandleFunc("DELETE /api/session", s.authed(s.handleLogout))

	mux.HandleFunc("GET /api/transactions", s.authed(s.handleListTransactions))
	mux.HandleFunc("POST /api/transactions", s.authed(s.handleAddTransaction))
	mux.HandleFunc("POST /api/transactions/reload", s.authed(s.handleReload))
	mux.HandleFunc("PATCH /api/transactions/{id}", s.authed(s.handleUpdateTransaction))
	mux.HandleFunc("DELETE /api/transactions/{id}", s.authed(s.handleRemoveTransaction))

	mux.HandleFunc("GET /api/balance", s.authed(s.handleBalance))
	mux.HandleFunc("GET /api/summary", s.authed(s.handleSummary))
	mux.HandleFunc("GET /api/breakdown", s.authed(s.handleBreakdown))
	mux.HandleFunc("GET /api/categories", s.authed(s.handleCategories))
	mux.HandleFunc("POST /api/categories", s.authed(s.handleAddCategory))

	mux.HandleFunc("GET /api/board", s.authed(s.handleBoard))
	mux.HandleFunc("POST /api/board/move", s.authed(s.handleBoardMove))

	mux.HandleFunc("GET /api/market", s.authed(s.handleMarket))
}

// request is what authenticated handlers receive.
type request struct {
	*http.Request
	session   session.Session
	workspace *Workspace
	notes     *ledger.Recorder
}

type authedHandler func(w http.ResponseWriter, r *request)

// authed resolves the bearer token, opens its workspace and routes ledger
// notifications into a per-request recorder.
func (s *Server) authed(h authedHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r)
		if token == "" {
			UnauthorizedError("missing bearer token").Write(w)
			return
		}
		notes := &ledger.Recorder{}
		ctx := ledger.ContextWithNotifier(r.Context(), notes)

		sess, err := s.workspaces.resolve(ctx, token)
		if err != nil {
			if !errors.Is(err, session.ErrSessionNotFound) {
				log.FromContext(ctx).ErrorContext(ctx, "Session lookup failed", log.FieldError, err)
			}
			errorResponse(err, nil).Write(w)
			return
		}
		ctx = session.ContextWithSession(ctx, sess)
		ws := s.workspaces.open(ctx, sess)

		h(w, &request{
			Request:   r.WithContext(ctx),
			session:   sess,
			workspace: ws,
			notes:     notes,
		})
	}
}

// fail writes the error response for err and counts remote failures.
func (s *Server) fail(w http.ResponseWriter, r *request, err error) {
	if errors.Is(err, ledger.ErrRemoteOperationFailed) {
		s.metrics.remoteFailures.Add(1)
	}
	errorResponse(err, r.notes).Write(w)
}

// Shutdown stops the HTTP server and the background cleanup loops.
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	s.shutdownOnce.Do(func() {
		err = s.Server.Shutdown(ctx)
		s.limiter.Stop()
		s.caches.Stop()
	})
	return err
}
