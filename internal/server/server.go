// Package server sets up the HTTP server, router, and all route definitions.
//
// This package is the "wiring" layer. It decides which URL patterns map to
// which handlers, what middleware runs where, and how the server starts and
// stops.
//
// DEPENDENCY INJECTION FLOW:
//
//	config.Server → Server.New() creates:
//	  sqlite.DB → services (auth, poll, achievement, leaderboard) → handlers
//
// This is the "composition root": every dependency is wired here rather than
// scattered across the codebase.
package server

import (
	"context"
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
	"github.com/rs/cors"

	"github.com/pollsphere/pollsphere/internal/auth"
	"github.com/pollsphere/pollsphere/internal/config"
	"github.com/pollsphere/pollsphere/internal/handler"
	"github.com/pollsphere/pollsphere/internal/middleware"
	sqliteRepo "github.com/pollsphere/pollsphere/internal/repository/sqlite"
	"github.com/pollsphere/pollsphere/internal/service"
)

// Server represents the HTTP server and all its dependencies.
//
// The Server owns the database connection. It is closed when Start returns so
// pending WAL writes are flushed and the file lock released.
type Server struct {
	router *chi.Mux
	config *config.Server
	logger *slog.Logger
	db     *sqliteRepo.DB
}

// New opens the database, builds every layer and registers the routes.
func New(cfg *config.Server, logger *slog.Logger) (*Server, error) {
	if cfg.DBPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(cfg.DBPath), 0o755); err != nil {
			return nil, fmt.Errorf("creating database directory: %w", err)
		}
	}

	db, err := sqliteRepo.New(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Server{
		router: chi.NewRouter(),
		config: cfg,
		logger: logger,
		db:     db,
	}

	if err := s.setupRoutes(); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting up routes: %w", err)
	}

	return s, nil
}

// setupRoutes configures all middleware and route handlers.
//
// ROUTE STRUCTURE:
//
//	POST /api/register                 → create account
//	POST /api/login                    → sign in
//	GET  /api/me                       → current user (token required)
//	POST /api/auth/logout              → clear session cookie
//	GET  /api/auth/github/login        → GitHub OAuth (only when configured)
//	GET  /api/auth/github/callback
//	GET  /api/polls                    → list active polls
//	POST /api/polls?user_id=           → create poll
//	GET  /api/polls/{id}               → one poll
//	POST /api/vote                     → vote
//	GET  /api/leaderboard              → top users by XP
//	GET  /api/users/{id}/profile
//	GET  /api/users/{id}/achievements
//
// MIDDLEWARE ORDER MATTERS:
//  1. RequestID, so the logger can print it
//  2. RealIP
//  3. Logger
//  4. Recoverer, which turns a panic into a 500 instead of a crash
//  5. CORS
func (s *Server) setupRoutes() error {
	s.router.Use(chimiddleware.RequestID)
	s.router.Use(chimiddleware.RealIP)
	s.router.Use(middleware.Logger(s.logger))
	s.router.Use(chimiddleware.Recoverer)

	// Browser clients may be served from any origin. Requests carry bearer
	// tokens rather than cookies, so credentials are not needed cross-origin.
	s.router.Use(cors.New(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{
			http.MethodGet, http.MethodPost, http.MethodPut,
			http.MethodPatch, http.MethodDelete, http.MethodOptions,
		},
		AllowedHeaders: []string{"*"},
	}).Handler)

	// === AUTH ===
	// Tokens are optional: without JWT_SECRET the API runs on user_id
	// parameters alone, and tokens is nil.
	var tokens *auth.TokenService
	if s.config.JWTSecret != "" {
		var err error
		tokens, err = auth.NewTokenService(s.config.JWTSecret)
		if err != nil {
			return fmt.Errorf("creating token service: %w", err)
		}
	} else {
		s.logger.Warn("JWT_SECRET not set: session tokens are disabled")
	}

	var github *auth.GitHubProvider
	if s.config.GitHubEnabled() {
		github = auth.NewGitHubProvider(
			s.config.GitHubClientID,
			s.config.GitHubClientSecret,
			s.config.GitHubCallbackURL,
		)
	}

	// === SERVICES ===
	// s.db implements every repository interface; each service sees only the
	// interfaces it needs.
	passwords := auth.NewPasswordService(0)
	achievementService := service.NewAchievementService(s.db, s.logger)
	authService := service.NewAuthService(s.db, passwords, tokens, s.logger)
	pollService := service.NewPollService(s.db, s.db, achievementService, s.logger)
	leaderboardService := service.NewLeaderboardService(s.db)

	// === HANDLERS ===
	authHandler := handler.NewAuthHandler(authService, github, s.logger)
	pollHandler := handler.NewPollHandler(pollService, s.logger)
	userHandler := handler.NewUserHandler(authService, achievementService, leaderboardService, s.logger)

	s.router.Route("/api", func(r chi.Router) {
		r.Use(auth.OptionalAuth(tokens))

		r.Post("/register", authHandler.HandleRegister)
		r.Post("/login", authHandler.HandleLogin)
		r.Post("/auth/logout", authHandler.HandleLogout)
		if tokens != nil {
			r.With(auth.RequireAuth(tokens)).Get("/me", authHandler.HandleMe)
		}
		if github != nil {
			r.Get("/auth/github/login", authHandler.HandleGitHubLogin)
			r.Get("/auth/github/callback", authHandler.HandleGitHubCallback)
		}

		r.Get("/polls", pollHandler.HandleList)
		r.Post("/polls", pollHandler.HandleCreate)
		r.Get("/polls/{id}", pollHandler.HandleGet)
		r.Post("/vote", pollHandler.HandleVote)

		r.Get("/leaderboard", userHandler.HandleLeaderboard)
		r.Get("/users/{id}/profile", userHandler.HandleProfile)
		r.Get("/users/{id}/achievements", userHandler.HandleAchievements)
	})

	s.router.Get(middleware.HealthPath, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	return nil
}

// Handler exposes the router, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Close releases the database. Start calls it on the way out.
func (s *Server) Close() error {
	return s.db.Close()
}

// Start runs the HTTP server until SIGINT/SIGTERM, then shuts down gracefully:
//  1. Stop accepting new connections
//  2. Wait for in-flight requests (30s timeout)
//  3. Close the database
func (s *Server) Start() error {
	defer s.Close()

	srv := &http.Server{
		Addr:         s.config.Addr(),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	serverErrors := make(chan error, 1)

	go func() {
		s.logger.Info("server starting",
			slog.Int("port", s.config.Port),
			slog.String("url", fmt.Sprintf("http://localhost:%d", s.config.Port)),
			slog.String("database", s.config.DBPath),
			slog.Bool("github", s.config.GitHubEnabled()),
		)
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if err != http.ErrServerClosed {
			return fmt.Errorf("server error: %w", err)
		}

	case sig := <-quit:
		s.logger.Info("shutdown signal received", slog.String("signal", sig.String()))

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		s.logger.Info("server stopped gracefully")
	}

	return nil
}
