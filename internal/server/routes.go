package server

import (
	"strings"

	"github.com/fulmenhq/gofulmen/signals"
	"go.uber.org/zap"

	"github.com/readmegen/readmegen/internal/observability"
	"github.com/readmegen/readmegen/internal/server/handlers"
)

// registerRoutes registers all HTTP routes
func (s *Server) registerRoutes() {
	s.router.Get("/", handlers.RootHandler(s.opts.ServiceName))

	if s.opts.Pipeline != nil {
		s.router.Method("POST", "/generate-readme", &handlers.ReadmeHandler{
			Pipeline:     s.opts.Pipeline,
			Clients:      s.opts.Clients,
			MaxBodyBytes: s.opts.MaxBodyBytes,
		})
	}

	if s.opts.HealthEnabled {
		health := s.opts.Health
		if health == nil {
			health = handlers.NewHealthManager(s.opts.ServiceName, "dev")
		}
		s.router.Get("/health", health.HealthHandler)
		s.router.Get("/health/live", health.LivenessHandler)
		s.router.Get("/health/ready", health.ReadinessHandler)
		s.router.Get("/health/startup", health.StartupHandler)
	}

	version := s.opts.Version
	if version == nil {
		version = &handlers.VersionHandler{}
	}
	s.router.Method("GET", "/version", version)

	s.router.Get("/metrics", MetricsHandler)

	s.registerAdminEndpoint()
}

// registerAdminEndpoint exposes signal delivery over HTTP when an admin token
// is configured.
func (s *Server) registerAdminEndpoint() {
	adminToken := strings.TrimSpace(s.opts.AdminToken)
	logger := observability.ServerLogger

	if adminToken == "" {
		if logger != nil {
			logger.Debug("Admin signal endpoint disabled (no admin token configured)")
		}
		return
	}

	handler := signals.NewHTTPHandler(signals.HTTPConfig{
		TokenAuth: adminToken,
		RateLimit: 10,
		RateBurst: 5,
		Manager:   nil,
	})

	s.router.Post("/admin/signal", handler.ServeHTTP)

	if logger != nil {
		logger.Info("Admin signal endpoint enabled",
			zap.String("path", "/admin/signal"),
			zap.String("auth", "bearer token"),
			zap.String("rate_limit", "10/min, burst 5"))
	}
}
