// Package web provides the HTTP server and handlers for the asset registry.
package web

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/JonMunkholm/custodia/internal/config"
	"github.com/JonMunkholm/custodia/internal/core"
	"github.com/JonMunkholm/custodia/internal/extraction"
	"github.com/JonMunkholm/custodia/internal/metrics"
	"github.com/JonMunkholm/custodia/internal/web/middleware"
)

// Deps are the collaborators the handlers call into.
type Deps struct {
	Service       *core.Service
	Wizard        *core.Wizard
	Sessions      core.SessionStore
	Engine        *extraction.Engine
	ExtractWizard *extraction.Wizard
	Testers       map[string]extraction.ConnectionTester
	Metrics       *metrics.Metrics // optional
}

// Server is the HTTP server for the asset registry.
type Server struct {
	cfg     *config.Config
	deps    Deps
	logins  *loginSessions
	limiter *rateLimiter
	router  *chi.Mux
	server  *http.Server
}

// NewServer creates a new Server instance.
func NewServer(cfg *config.Config, deps Deps) *Server {
	s := &Server{
		cfg:    cfg,
		deps:   deps,
		logins: newLoginSessions(cfg.Session.CookieName, cfg.Session.TTL),
		router: chi.NewRouter(),
	}
	s.setupMiddleware()
	s.setupRoutes()
	return s
}

// setupMiddleware configures middleware for all routes.
func (s *Server) setupMiddleware() {
	s.router.Use(chimw.RequestID)
	s.router.Use(middleware.TrustedRealIP(s.cfg.Security.TrustedProxies))
	s.router.Use(middleware.RequestMetadata)
	s.router.Use(middleware.Logger)
	if s.deps.Metrics != nil {
		s.router.Use(s.deps.Metrics.Middleware)
	}
	s.router.Use(chimw.Recoverer)
	s.router.Use(chimw.Compress(5))
	s.router.Use(chimw.Timeout(s.cfg.Server.RequestTimeout))
	s.router.Use(s.securityHeaders)

	if s.cfg.Rate.Enabled {
		s.limiter = newRateLimiter(s.cfg.Rate.RequestsPerMinute, s.cfg.Rate.Burst)
		s.router.Use(s.limiter.middleware(s.respondError))
	}
}

// setupRoutes configures all HTTP routes.
func (s *Server) setupRoutes() {
	s.router.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, map[string]string{"status": "ok"})
	})
	if s.deps.Metrics != nil && s.cfg.Metrics.Enabled {
		s.router.Handle(s.cfg.Metrics.Path, s.deps.Metrics.Handler())
	}

	s.router.Get("/login", s.handleLoginPage)
	s.router.Post("/login", s.handleLogin)
	s.router.Post("/logout", s.handleLogout)

	s.router.Group(func(r chi.Router) {
		r.Use(middleware.RequireAuth(&s.cfg.Security, s.logins.lookup))

		// Import wizard
		r.Get("/import", s.handleListFlows)
		r.Post("/import/custodians/quick", s.handleQuickImport)
		r.Get("/import/{flow}", s.handleImportStep)
		r.Post("/import/{flow}", s.handleImportStep)

		// Extraction wizard
		r.Get("/extract/{connector}", s.handleExtractStep)
		r.Post("/extract/{connector}", s.handleExtractStep)

		r.Get("/jobs/{id}/logs", s.handleJobLogs)

		r.Route("/api", func(r chi.Router) {
			// Jobs
			r.Get("/connectors", s.handleListConnectors)
			r.Post("/connectors/{connector}/test", s.handleTestConnection)
			r.Get("/jobs", s.handleListJobs)
			r.Post("/jobs", s.handleLaunchJob)
			r.Get("/jobs/{id}", s.handleGetJob)
			r.Post("/jobs/{id}/run", s.handleRunJob)
			r.Post("/jobs/{id}/restart", s.handleRestartJob)

			// Custodians
			r.Get("/custodians", s.handleListCustodians)
			r.Post("/custodians", s.handleCreateCustodian)
			r.Get("/custodians/{id}", s.handleGetCustodian)
			r.Put("/custodians/{id}", s.handleUpdateCustodian)
			r.Delete("/custodians/{id}", s.handleDeleteCustodian)

			// Assets
			r.Get("/assets", s.handleListAssets)
			r.Post("/assets", s.handleCreateAsset)
			r.Get("/assets/{id}", s.handleGetAsset)
			r.Put("/assets/{id}", s.handleUpdateAsset)
			r.Delete("/assets/{id}", s.handleDeleteAsset)

			// Search and reports
			r.Get("/search", s.handleSearch)
			r.Get("/suggest", s.handleSuggest)
			r.Get("/reports", s.handleReport)

			// Users
			r.Get("/users", s.handleListUsers)
			r.Post("/users", s.handleCreateUser)
			r.Post("/users/{id}/password", s.handleResetPassword)
			r.Delete("/users/{id}", s.handleDeleteUser)

			// Audit log
			r.Get("/audit-log", s.handleAuditLog)
			r.Get("/audit-log/export", s.handleAuditLogExport)
		})
	})
}

// Start begins listening for HTTP requests.
func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:         s.cfg.Server.Addr(),
		Handler:      s.router,
		ReadTimeout:  s.cfg.Server.ReadTimeout,
		WriteTimeout: s.cfg.Server.WriteTimeout,
		IdleTimeout:  s.cfg.Server.IdleTimeout,
	}

	slog.Info("starting server", "addr", s.server.Addr)
	return s.server.ListenAndServe()
}

// Shutdown gracefully stops the server and its background workers.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.limiter != nil {
		s.limiter.stop()
	}
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

// Router returns the underlying chi router for testing.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// securityHeaders adds security headers to all responses.
func (s *Server) securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
		if s.cfg.Security.EnableCSP {
			w.Header().Set("Content-Security-Policy", "default-src 'self'; script-src 'self' 'unsafe-inline'; style-src 'self' 'unsafe-inline'; img-src 'self' data:")
		}
		next.ServeHTTP(w, r)
	})
}

// writeJSON encodes v as JSON and writes it to w.
// Logs encoding errors since headers are already sent.
func writeJSON(w http.ResponseWriter, v any) {
	writeJSONStatus(w, http.StatusOK, v)
}

func writeJSONStatus(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("json encode error", "error", err)
	}
}

// cleanupInterval is how often idle limiter and login entries are dropped.
const cleanupInterval = time.Minute
