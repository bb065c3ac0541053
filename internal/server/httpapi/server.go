// Package httpapi exposes the application over a JSON HTTP API. It maps
// service-level sentinel errors to HTTP status codes and keeps all request
// and response shapes in one place.
package httpapi

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/dmitrijs2005/agenda/internal/logging"
	"github.com/dmitrijs2005/agenda/internal/server/config"
	"github.com/dmitrijs2005/agenda/internal/server/services"
)

const (
	requestTimeout  = 60 * time.Second
	shutdownTimeout = 10 * time.Second
)

// Server wires the chi router, the services, and the JWT secret used by the
// auth middleware.
type Server struct {
	address   string
	logger    logging.Logger
	users     *services.UserService
	events    *services.EventService
	jwtSecret []byte
}

func NewServer(cfg *config.Config, logger logging.Logger, users *services.UserService, events *services.EventService) *Server {
	return &Server{
		address:   cfg.EndpointAddrHTTP,
		logger:    logger,
		users:     users,
		events:    events,
		jwtSecret: []byte(cfg.SecretKey),
	}
}

// Router builds the route tree. Exposed separately from Run so tests can
// drive it with httptest.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(requestTimeout))
	r.Use(s.requestLogger)

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", s.handleHealth)
		r.Post("/register", s.handleRegister)
		r.Post("/login", s.handleLogin)
		r.Post("/verify-token", s.handleVerifyToken)

		r.Group(func(r chi.Router) {
			r.Use(s.authenticate)

			r.Route("/profile", func(r chi.Router) {
				r.Get("/", s.handleGetProfile)
				r.Put("/", s.handleUpdateProfile)
				r.Delete("/", s.handleDeleteAccount)
				r.Post("/password", s.handleChangePassword)
				r.Get("/stats", s.handleStats)
				r.Post("/picture", s.handlePresignAvatarUpload)
				r.Get("/picture", s.handleAvatarURL)
			})

			r.Route("/events", func(r chi.Router) {
				r.Post("/", s.handleCreateEvent)
				r.Get("/", s.handleListEvents)
				r.Get("/date/{date}", s.handleListEventsByDate)
				r.Get("/{id}", s.handleGetEvent)
				r.Put("/{id}", s.handleUpdateEvent)
				r.Delete("/{id}", s.handleDeleteEvent)
				r.Patch("/{id}/toggle", s.handleToggleEvent)
			})
		})
	})

	return r
}

// Run serves HTTP until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:    s.address,
		Handler: s.Router(),
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info(ctx, "http server listening", "addr", s.address)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	s.logger.Info(shutdownCtx, "shutting down http server")
	return srv.Shutdown(shutdownCtx)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, r, http.StatusOK, map[string]any{"success": true, "status": "ok"})
}
