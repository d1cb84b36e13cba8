package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	apperrors "github.com/readmegen/readmegen/internal/errors"
	"github.com/readmegen/readmegen/internal/observability"
	"github.com/readmegen/readmegen/internal/server/handlers"
	servermw "github.com/readmegen/readmegen/internal/server/middleware"
	"github.com/readmegen/readmegen/internal/throttle"
)

// Options configures the HTTP boundary.
type Options struct {
	ServiceName  string
	Host         string
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration

	CORSAllowedOrigins []string
	// TrustProxyHeaders derives the client address from X-Forwarded-For and
	// X-Real-IP. Leave off unless a trusted proxy sets them, since callers
	// could otherwise pick their own throttle key.
	TrustProxyHeaders bool
	MaxBodyBytes      int64

	Pipeline handlers.Runner
	Clients  throttle.ClientResolver

	HealthEnabled bool
	Health        *handlers.HealthManager
	Version       *handlers.VersionHandler

	AdminToken string
}

// Server represents the HTTP server
type Server struct {
	router *chi.Mux
	server *http.Server
	opts   Options
}

// New creates a new HTTP server instance
func New(opts Options) *Server {
	if opts.ServiceName == "" {
		opts.ServiceName = "readmegen"
	}
	if opts.Clients == nil {
		opts.Clients = throttle.RemoteAddrResolver{}
	}

	r := chi.NewRouter()

	if opts.TrustProxyHeaders {
		r.Use(middleware.RealIP)
	}

	// RequestID → Metrics → Recovery, then CORS so preflights are answered
	// without reaching the handlers.
	r.Use(servermw.RequestID)
	r.Use(servermw.RequestMetrics)
	r.Use(servermw.Recovery)
	r.Use(cors.Handler(corsOptions(opts.CORSAllowedOrigins)))

	r.NotFound(func(w http.ResponseWriter, req *http.Request) {
		HandleError(w, req, apperrors.NewNotFoundError("The requested resource was not found"))
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, req *http.Request) {
		HandleError(w, req, apperrors.NewMethodNotAllowedError("The requested method is not allowed for this resource"))
	})

	s := &Server{
		router: r,
		opts:   opts,
	}

	handlers.SetHTTPErrorResponder(HandleError)

	s.registerRoutes()

	return s
}

func corsOptions(origins []string) cors.Options {
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	return cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Content-Type", servermw.RequestIDHeader},
		ExposedHeaders:   []string{"Retry-After", servermw.RequestIDHeader},
		AllowCredentials: false,
		MaxAge:           300,
	}
}

// Addr is the listen address.
func (s *Server) Addr() string {
	return fmt.Sprintf("%s:%d", s.opts.Host, s.opts.Port)
}

// Start starts the HTTP server
func (s *Server) Start() error {
	addr := s.Addr()

	s.server = &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadTimeout:       durationOr(s.opts.ReadTimeout, 30*time.Second),
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      durationOr(s.opts.WriteTimeout, 120*time.Second),
		IdleTimeout:       durationOr(s.opts.IdleTimeout, 120*time.Second),
	}

	if observability.ServerLogger != nil {
		observability.ServerLogger.Info("Starting HTTP server",
			zap.String("host", s.opts.Host),
			zap.Int("port", s.opts.Port),
			zap.String("addr", addr),
			zap.Bool("trust_proxy_headers", s.opts.TrustProxyHeaders))
	}

	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the HTTP server
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	if observability.ServerLogger != nil {
		observability.ServerLogger.Info("Shutting down HTTP server")
	}
	return s.server.Shutdown(ctx)
}

// Handler exposes the underlying router for testing and instrumentation
func (s *Server) Handler() http.Handler {
	return s.router
}

// Port returns the server port for testing
func (s *Server) Port() int {
	return s.opts.Port
}

func durationOr(d, fallback time.Duration) time.Duration {
	if d > 0 {
		return d
	}
	return fallback
}
