package server

import (
	"bufio"
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/alpha-fi/cheddar-maze-minter/core/events"
	"github.com/alpha-fi/cheddar-maze-minter/native/minter"
	"github.com/alpha-fi/cheddar-maze-minter/observability"
	"github.com/alpha-fi/cheddar-maze-minter/services/minterd/executor"
	"github.com/alpha-fi/cheddar-maze-minter/services/minterd/receipts"
)

// Backend is the request surface served over HTTP.
type Backend interface {
	Mint(ctx context.Context, caller string, req minter.MintRequest) (*executor.MintOutcome, error)
	ToggleActive(ctx context.Context, caller string) (bool, error)
	ChangeMinter(ctx context.Context, caller, next string) error
	Config(ctx context.Context) (*minter.ConfigView, error)
	AccountMint(ctx context.Context, account string) (*minter.AccountView, error)
}

// ReceiptLister lists committed issuance receipts.
type ReceiptLister interface {
	List(ctx context.Context, account string, limit int) ([]receipts.Receipt, error)
}

// Config wires the server's collaborators.
type Config struct {
	Backend  Backend
	Receipts ReceiptLister
	Hub      *events.Hub
	Auth     AuthConfig
	Limit    RateLimit
	Logger   *slog.Logger
}

// Server exposes the gateway over HTTP.
type Server struct {
	backend  Backend
	receipts ReceiptLister
	hub      *events.Hub
	auth     *Authenticator
	limiter  *RateLimiter
	logger   *slog.Logger
}

func New(cfg Config) *Server {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		backend:  cfg.Backend,
		receipts: cfg.Receipts,
		hub:      cfg.Hub,
		auth:     NewAuthenticator(cfg.Auth, logger),
		limiter:  NewRateLimiter(cfg.Limit),
		logger:   logger,
	}
}

// Router builds the chi route tree.
func (s *Server) Router() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.observe)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/v1", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(s.limiter.Middleware)
			r.Get("/config", s.handleConfig)
			r.Get("/accounts/{account}", s.handleAccount)
			r.Get("/receipts", s.handleReceipts)
			r.Get("/events/ws", s.handleEventsWS)
		})
		r.Group(func(r chi.Router) {
			r.Use(s.auth.Middleware)
			r.Use(s.limiter.Middleware)
			r.Post("/mint", s.handleMint)
			r.Post("/admin/toggle-active", s.handleToggleActive)
			r.Post("/admin/minter", s.handleChangeMinter)
		})
	})
	return r
}

// Handler returns the router wrapped with OpenTelemetry instrumentation.
func (s *Server) Handler() http.Handler {
	return otelhttp.NewHandler(s.Router(), "minterd")
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// Hijack keeps websocket upgrades working through the recorder.
func (r *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hj, ok := r.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("response writer does not support hijacking")
	}
	r.status = http.StatusSwitchingProtocols
	return hj.Hijack()
}

func (s *Server) observe(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		route := r.URL.Path
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}
		observability.HTTP().Observe(route, rec.status, time.Since(start))
	})
}
