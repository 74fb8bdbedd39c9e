// Package server wires the application together and runs the HTTP server.
//
// New is the composition root: it opens the database, builds every store,
// service and handler, and mounts them on a chi router. Nothing else in the
// module constructs dependencies.
//
// Resources owned by a Server (database pool, realtime hub, rate limiter
// sweeper) are released by Close, which Start calls on shutdown.
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

	"github.com/sakif/story-studio/internal/aiproxy"
	"github.com/sakif/story-studio/internal/auth"
	"github.com/sakif/story-studio/internal/config"
	"github.com/sakif/story-studio/internal/handler"
	"github.com/sakif/story-studio/internal/middleware"
	"github.com/sakif/story-studio/internal/model"
	"github.com/sakif/story-studio/internal/realtime"
	sqliteRepo "github.com/sakif/story-studio/internal/repository/sqlite"
	"github.com/sakif/story-studio/internal/service"
)

const (
	maxBodyBytes    = 10 << 20
	shutdownTimeout = 30 * time.Second
)

// Server holds the router and everything it depends on.
type Server struct {
	router  *chi.Mux
	config  config.Config
	logger  *slog.Logger
	db      *sqliteRepo.DB
	hub     *realtime.Hub
	limiter *middleware.RateLimiter
}

// Options lets tests swap out collaborators that would otherwise be built
// from the config.
type Options struct {
	// Passwords defaults to bcrypt at the production cost.
	Passwords *auth.PasswordService
	// AI defaults to an HTTP client for cfg.AIServiceURL.
	AI aiproxy.Generator
}

// New opens the database, connects the optional Redis backplane and builds
// the router. ctx bounds startup only.
func New(ctx context.Context, cfg config.Config, logger *slog.Logger, opts Options) (*Server, error) {
	if cfg.DBPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(cfg.DBPath), 0o755); err != nil {
			return nil, fmt.Errorf("creating database directory: %w", err)
		}
	}
	db, err := sqliteRepo.New(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	var backplane realtime.Backplane
	if cfg.RedisAddr != "" {
		bp, err := realtime.NewRedisBackplane(ctx, realtime.RedisConfig{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
		}, logger)
		if err != nil {
			db.Close()
			return nil, fmt.Errorf("connecting realtime backplane: %w", err)
		}
		backplane = bp
	}

	s := &Server{
		router:  chi.NewRouter(),
		config:  cfg,
		logger:  logger,
		db:      db,
		hub:     realtime.NewHub(backplane, logger),
		limiter: middleware.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst),
	}

	// The relay outlives startup, so it must not inherit ctx's deadline.
	if err := s.hub.Start(context.WithoutCancel(ctx)); err != nil {
		s.Close()
		return nil, err
	}

	if err := s.setupRoutes(ctx, opts); err != nil {
		s.Close()
		return nil, fmt.Errorf("setting up routes: %w", err)
	}
	return s, nil
}

// setupRoutes mounts every route. Middleware order, outermost first:
//
//	RequestID → RealIP → Logger → Recoverer → SecureHeaders → CORS →
//	rate limit → body cap
//
// Recoverer sits inside Logger so a recovered panic is logged as a 500.
//
// Route table:
//
//	GET    /health
//	POST   /api/auth/register
//	POST   /api/auth/login
//	GET    /api/auth/me                          (auth)
//	GET    /api/auth/validate                    (auth)
//	GET    /api/projects                         (auth)
//	POST   /api/projects                         (auth)
//	GET    /api/projects/search                  (auth)
//	GET    /api/projects/{id}                    (auth)
//	PUT    /api/projects/{id}                    (auth)
//	DELETE /api/projects/{id}                    (auth)
//	GET    /api/projects/{projectId}/sessions    (auth)
//	POST   /api/projects/{projectId}/sessions    (auth)
//	GET    /api/sessions/{id}                    (auth)
//	PUT    /api/sessions/{id}                    (auth)
//	DELETE /api/sessions/{id}                    (auth)
//	GET    /api/sessions/{sessionId}/messages    (auth)
//	POST   /api/sessions/{sessionId}/messages    (auth)
//	POST   /api/conversations                    (auth)
//	GET    /api/conversations/{projectId}        (auth)
//	POST   /api/ai/generate                      (auth)
//	GET    /api/ws?token=<jwt>                   (token in query)
func (s *Server) setupRoutes(ctx context.Context, opts Options) error {
	tokens, err := auth.NewTokenService(s.config.JWTSecret)
	if err != nil {
		return fmt.Errorf("creating token service: %w", err)
	}
	passwords := opts.Passwords
	if passwords == nil {
		passwords = auth.NewPasswordService()
	}
	ai := opts.AI
	if ai == nil {
		ai = aiproxy.NewClient(ctx, s.config.AIServiceURL, s.config.InternalAPIKey)
	}

	users := s.db.Users()
	projects := s.db.Projects()
	sessions := s.db.Sessions()
	messages := s.db.Messages()

	authService := service.NewAuthService(users, tokens, passwords, s.logger)
	projectService := service.NewProjectService(projects, sessions, s.logger)
	sessionService := service.NewSessionService(projects, sessions, messages, s.logger)
	messageService := service.NewMessageService(sessions, messages, s.logger)
	conversationService := service.NewConversationService(projects, s.db.Conversations(), s.logger)

	errs := handler.NewErrorWriter(s.logger, !s.config.IsProduction())
	authHandler := handler.NewAuthHandler(authService, errs)
	projectHandler := handler.NewProjectHandler(projectService, errs)
	sessionHandler := handler.NewSessionHandler(sessionService, errs)
	messageHandler := handler.NewMessageHandler(messageService, errs)
	conversationHandler := handler.NewConversationHandler(conversationService, errs)
	aiHandler := handler.NewAIHandler(ai, errs, s.logger)
	healthHandler := handler.NewHealthHandler(s.db, s.config.Env)

	authn := auth.NewAuthenticator(tokens, users)
	joinRoom := func(ctx context.Context, user *model.User, projectID string) error {
		return projectService.CheckOwner(ctx, user.ID, projectID)
	}
	wsHandler := realtime.NewHandler(s.hub, authn, joinRoom, s.config.FrontendURL, s.logger)

	r := s.router
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Logger(s.logger))
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.SecureHeaders)
	r.Use(middleware.CORS(s.config.FrontendURL))
	r.Use(s.limiter.Middleware)
	r.Use(middleware.MaxBodySize(maxBodyBytes))

	r.Get("/health", healthHandler.HandleHealth)

	r.Route("/api", func(r chi.Router) {
		r.Post("/auth/register", authHandler.HandleRegister)
		r.Post("/auth/login", authHandler.HandleLogin)
		r.Handle("/ws", wsHandler)

		r.Group(func(r chi.Router) {
			r.Use(authn.RequireAuth)

			r.Get("/auth/me", authHandler.HandleMe)
			r.Get("/auth/validate", authHandler.HandleValidate)

			r.Route("/projects", func(r chi.Router) {
				r.Get("/", projectHandler.HandleList)
				r.Post("/", projectHandler.HandleCreate)
				// chi matches the static segment ahead of {id}.
				r.Get("/search", projectHandler.HandleSearch)
				r.Get("/{id}", projectHandler.HandleGet)
				r.Put("/{id}", projectHandler.HandleUpdate)
				r.Delete("/{id}", projectHandler.HandleDelete)

				r.Get("/{projectId}/sessions", sessionHandler.HandleListForProject)
				r.Post("/{projectId}/sessions", sessionHandler.HandleCreate)
			})

			r.Route("/sessions", func(r chi.Router) {
				r.Get("/{id}", sessionHandler.HandleGet)
				r.Put("/{id}", sessionHandler.HandleUpdate)
				r.Delete("/{id}", sessionHandler.HandleDelete)

				r.Get("/{sessionId}/messages", messageHandler.HandleList)
				r.Post("/{sessionId}/messages", messageHandler.HandleAppend)
			})

			r.Post("/conversations", conversationHandler.HandleSave)
			r.Get("/conversations/{projectId}", conversationHandler.HandleLoad)

			r.Post("/ai/generate", aiHandler.HandleGenerate)
		})
	})

	r.NotFound(handler.WriteNotFound)
	return nil
}

// Handler exposes the router, for tests and for embedding.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Close stops the hub, the rate limiter sweeper and the database pool. Safe
// to call once after Start has returned, or instead of Start.
func (s *Server) Close() error {
	s.limiter.Stop()
	hubErr := s.hub.Close()
	dbErr := s.db.Close()
	return errors.Join(hubErr, dbErr)
}

// Start serves until SIGINT or SIGTERM, then drains in-flight requests for
// up to 30 seconds and releases everything the Server owns.
func (s *Server) Start() error {
	defer func() {
		if err := s.Close(); err != nil {
			s.logger.Error("closing server resources", slog.String("error", err.Error()))
		}
	}()

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", s.config.Port),
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		// Generous enough for a slow AI reply; websocket writes set their
		// own deadlines.
		WriteTimeout: 2 * time.Minute,
		IdleTimeout:  60 * time.Second,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	serverErrors := make(chan error, 1)
	go func() {
		s.logger.Info("server starting",
			slog.Int("port", s.config.Port),
			slog.String("environment", s.config.Env),
			slog.String("database", s.config.DBPath),
			slog.Bool("backplane", s.config.RedisAddr != ""),
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
