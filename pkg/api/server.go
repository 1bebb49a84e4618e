package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/platinummonkey/civicbase/pkg/audit"
	"github.com/platinummonkey/civicbase/pkg/entities"
	"github.com/platinummonkey/civicbase/pkg/httputil"
	"github.com/platinummonkey/civicbase/pkg/middleware"
	"github.com/platinummonkey/civicbase/pkg/observability"
	"github.com/platinummonkey/civicbase/pkg/rbac"
	"github.com/prometheus/client_golang/prometheus"
)

// Config carries the collaborators of the HTTP server. Entities, Authn,
// Verifier, Authorizer and Logger are required.
type Config struct {
	Entities   *entities.Service
	Authn      Authenticator
	Verifier   middleware.TokenVerifier
	Authorizer *rbac.Authorizer
	Logger     *observability.Logger
	TokenTTL   time.Duration

	// AuditStore serves GET /logs/export when set
	AuditStore *audit.Store
	// Audit records one log per request when set
	Audit *audit.Middleware
	// LoginLimiter guards POST /auth/login when set
	LoginLimiter *middleware.RateLimitMiddleware

	Health     *observability.HealthChecker
	Metrics    *observability.Metrics
	Prometheus *prometheus.Registry
	Tracing    bool

	CORSOrigins  []string
	MaxBodyBytes int64
}

// Server is the civicbase HTTP API
type Server struct {
	router  *mux.Router
	handler http.Handler
}

// NewServer assembles the router and the global middleware chain
func NewServer(cfg Config) (*Server, error) {
	if cfg.Entities == nil || cfg.Authn == nil || cfg.Verifier == nil || cfg.Authorizer == nil || cfg.Logger == nil {
		return nil, errors.New("api: entities, authenticator, verifier, authorizer and logger are required")
	}

	s := &Server{router: mux.NewRouter()}
	if err := s.setupRoutes(cfg); err != nil {
		return nil, err
	}

	chain := []func(http.Handler) http.Handler{
		httputil.RequestIDMiddleware,
		observability.LoggerMiddleware(cfg.Logger),
		httputil.CORSMiddleware(cfg.CORSOrigins),
	}
	if cfg.Audit != nil {
		chain = append(chain, cfg.Audit.Handler)
	}
	chain = append(chain, httputil.RecoveryMiddleware)
	if cfg.MaxBodyBytes > 0 {
		chain = append(chain, httputil.MaxBytesMiddleware(cfg.MaxBodyBytes))
	}
	s.handler = httputil.Chain(chain...)(s.router)
	return s, nil
}

// setupRoutes configures all the API routes
func (s *Server) setupRoutes(cfg Config) error {
	if cfg.Tracing {
		s.router.Use(func(next http.Handler) http.Handler {
			return observability.TraceHandler(next, "civicbase")
		})
	}
	if cfg.Metrics != nil {
		s.router.Use(observability.HTTPMetricsMiddleware(cfg.Metrics))
	}

	// Public routes
	if cfg.Health != nil {
		observability.RegisterHealthRoutes(s.router, cfg.Health)
	}
	if cfg.Prometheus != nil {
		s.router.Handle("/metrics", observability.MetricsHandler(cfg.Prometheus)).Methods(http.MethodGet)
	}

	authHandlers := NewAuthHandlers(cfg.Authn, cfg.Authorizer, cfg.TokenTTL, cfg.Metrics)
	login := s.router.NewRoute().Subrouter()
	if cfg.LoginLimiter != nil {
		login.Use(cfg.LoginLimiter.Handler)
	}
	authHandlers.RegisterPublicRoutes(login)

	// Authenticated routes
	authn := middleware.NewAuthMiddleware(cfg.Verifier, false)
	authz := rbac.NewMiddleware(cfg.Authorizer, cfg.Logger)

	protected := s.router.NewRoute().Subrouter()
	protected.Use(authn.Handler, authz.Handler)

	authHandlers.RegisterRoutes(protected)
	if cfg.AuditStore != nil {
		audit.NewHandlers(cfg.AuditStore, cfg.Logger).RegisterRoutes(protected)
	}

	registry := cfg.Authorizer.Registry()
	for _, desc := range cfg.Entities.Catalog().All() {
		ctrl, err := cfg.Entities.Controller(desc.Collection)
		if err != nil {
			return err
		}
		NewEntityHandlers(ctrl, registry).RegisterRoutes(protected)
	}

	// Unknown routes still authenticate and authorize so they are
	// rejected the same way as registered ones.
	blackhole := httputil.Chain(authn.Handler, authz.Handler)(http.HandlerFunc(notFound))
	s.router.NotFoundHandler = blackhole
	s.router.MethodNotAllowedHandler = blackhole
	return nil
}

func notFound(w http.ResponseWriter, _ *http.Request) {
	httputil.WriteNotFoundError(w)
}

// Router returns the underlying router
func (s *Server) Router() *mux.Router {
	return s.router
}

// ServeHTTP implements http.Handler
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}
