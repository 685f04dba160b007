// Package server is the composition root: it opens the store, builds the
// services and handlers, mounts the routes and runs the HTTP listener.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/sakif/marketplace-api/internal/auth"
	"github.com/sakif/marketplace-api/internal/config"
	"github.com/sakif/marketplace-api/internal/handler"
	"github.com/sakif/marketplace-api/internal/middleware"
	"github.com/sakif/marketplace-api/internal/repository"
	"github.com/sakif/marketplace-api/internal/repository/store"
	"github.com/sakif/marketplace-api/internal/service"
)

const shutdownTimeout = 30 * time.Second

// Server owns the store; Start closes it on the way out.
type Server struct {
	router *chi.Mux
	config *config.Config
	logger *slog.Logger
	store  repository.Store
}

// New opens the store named by cfg.DatabaseURL, runs its migrations and wires
// every route. The caller must eventually call Start or Close.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Server, error) {
	if err := ensureDataDir(cfg.DatabaseURL); err != nil {
		return nil, err
	}

	st, err := store.Open(ctx, cfg.DatabaseURL, logger)
	if err != nil {
		return nil, fmt.Errorf("opening store: %w", err)
	}

	s := &Server{
		router: chi.NewRouter(),
		config: cfg,
		logger: logger,
		store:  st,
	}

	if err := s.setupRoutes(); err != nil {
		st.Close()
		return nil, fmt.Errorf("setting up routes: %w", err)
	}

	logger.Info("store ready", slog.String("backend", store.Kind(cfg.DatabaseURL)))
	if cfg.EnforceOwnership {
		logger.Info("ownership enforcement on: update/delete limited to the owner")
	} else {
		logger.Warn("ownership enforcement off: any authenticated account may update or delete any resource")
	}
	return s, nil
}

// ensureDataDir creates the parent directory of a SQLite file path.
func ensureDataDir(dsn string) error {
	if store.Kind(dsn) != store.BackendSQLite || dsn == ":memory:" {
		return nil
	}
	dir := filepath.Dir(dsn)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating database directory %s: %w", dir, err)
	}
	return nil
}

// setupRoutes mounts middleware and the /api routes.
//
//	POST   /api/auth/login
//	GET    /api/health
//	POST   /api/usuarios               (public: registration)
//	GET    /api/productos, /{id}       (public)
//	everything else under /api/usuarios and /api/productos requires a token
//
// Middleware order: RequestID must precede Logger so each log line has the id.
func (s *Server) setupRoutes() error {
	tokens, err := auth.NewTokenService(s.config.JWTSecret)
	if err != nil {
		return fmt.Errorf("token service: %w", err)
	}
	passwords := auth.NewPasswordService()

	authSvc, err := service.NewAuthService(s.store.Accounts(), tokens, passwords, s.logger)
	if err != nil {
		return fmt.Errorf("auth service: %w", err)
	}
	accountSvc := service.NewAccountService(s.store.Accounts(), s.store.Products(), passwords, s.config.EnforceOwnership, s.logger)
	productSvc := service.NewProductService(s.store.Products(), s.config.EnforceOwnership, s.logger)

	authHandler := handler.NewAuthHandler(authSvc, s.logger)
	accountHandler := handler.NewAccountHandler(accountSvc, authSvc, s.logger)
	productHandler := handler.NewProductHandler(productSvc, s.logger)
	healthHandler := handler.NewHealthHandler(s.store, s.logger)

	guard := auth.NewGuard(tokens, s.store.Accounts(), s.logger)
	requireAuth := guard.RequireAuth(handler.Reject(s.logger))

	s.router.Use(chimiddleware.RequestID)
	s.router.Use(chimiddleware.RealIP)
	s.router.Use(middleware.Logger(s.logger))
	s.router.Use(middleware.Recoverer(s.logger, handler.HandleInternalError))
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.config.CORSOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders: []string{"X-Request-ID"},
		MaxAge:         300,
	}))

	s.router.NotFound(handler.HandleRouteNotFound)
	s.router.MethodNotAllowed(handler.HandleMethodNotAllowed)

	s.router.Route("/api", func(r chi.Router) {
		r.Post("/auth/login", authHandler.HandleLogin)
		r.Get("/health", healthHandler.HandleHealth)

		r.Route("/usuarios", func(r chi.Router) {
			r.Post("/", accountHandler.HandleCreate)

			r.Group(func(r chi.Router) {
				r.Use(requireAuth)
				r.Get("/", accountHandler.HandleList)
				// static segment wins over {id} in chi regardless of order
				r.Get("/me", accountHandler.HandleMe)
				r.Put("/me", accountHandler.HandleUpdateMe)
				r.Get("/{id}", accountHandler.HandleGet)
				r.Put("/{id}", accountHandler.HandleUpdate)
				r.Delete("/{id}", accountHandler.HandleDelete)
			})
		})

		r.Route("/productos", func(r chi.Router) {
			r.Get("/", productHandler.HandleList)
			r.Get("/{id}", productHandler.HandleGet)

			r.Group(func(r chi.Router) {
				r.Use(requireAuth)
				r.Post("/", productHandler.HandleCreate)
				r.Put("/{id}", productHandler.HandleUpdate)
				r.Delete("/{id}", productHandler.HandleDelete)
			})
		})
	})

	return nil
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Close releases the store without starting the listener.
func (s *Server) Close() error {
	return s.store.Close()
}

// Start serves until SIGINT/SIGTERM, then drains in-flight requests for up to
// 30 seconds and closes the store.
func (s *Server) Start() error {
	defer s.store.Close()

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", s.config.Port),
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	serverErrors := make(chan error, 1)
	go func() {
		s.logger.Info("server starting",
			slog.Int("port", s.config.Port),
			slog.String("url", fmt.Sprintf("http://localhost:%d/api", s.config.Port)),
		)
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}

	case sig := <-quit:
		s.logger.Info("shutdown signal received", slog.String("signal", sig.String()))

		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		s.logger.Info("server stopped gracefully")
	}

	return nil
}
