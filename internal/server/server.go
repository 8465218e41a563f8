package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/jobfinder/apiserver/config"
	"github.com/jobfinder/apiserver/internal/handlers"
	"github.com/jobfinder/apiserver/internal/logging"
	"github.com/jobfinder/apiserver/internal/mailer"
	"github.com/jobfinder/apiserver/internal/metrics"
	"github.com/jobfinder/apiserver/internal/mq"
	"github.com/jobfinder/apiserver/internal/services"
	"github.com/jobfinder/apiserver/internal/token"
	"github.com/jobfinder/apiserver/internal/validate"
)

// Deps are the backends the HTTP API is built on.
type Deps struct {
	Config config.Config
	Logger *slog.Logger
	Repos  *Repositories
	Files  services.Uploader
	Mailer services.Mailer
	// Publisher receives notification events. Nil drops them.
	Publisher services.Publisher
}

// NewHandler wires services and handlers into the API router.
func NewHandler(d Deps) (http.Handler, error) {
	cfg := d.Config
	issuer, err := token.NewIssuer(cfg.JWT.AccessSecret, cfg.JWT.RefreshSecret, cfg.JWT.AccessTTL, cfg.JWT.RefreshTTL)
	if err != nil {
		return nil, err
	}

	repos := d.Repos
	hasher := services.NewBcryptHasher(0)
	events := services.NewNotifier(d.Publisher, cfg.MQ.NotificationsChannel, d.Logger)

	userService := services.NewUserService(repos.Users, hasher, d.Files, events, d.Logger)
	sessionService := services.NewSessionService(repos.Users, hasher, issuer)
	accountService := services.NewAccountService(repos.Users, hasher, d.Mailer, cfg.PasswordReset.TTL, cfg.PasswordReset.FrontendURL, d.Logger)
	companyService := services.NewCompanyService(repos.Companies, d.Files, d.Logger)
	jobService := services.NewJobService(repos.Jobs, repos.Companies, repos.Applications)
	applicationService := services.NewApplicationService(repos.Applications, repos.Jobs, repos.Companies, repos.Users, events)
	dashboardService := services.NewDashboardService(repos.Users, repos.Companies, repos.Jobs, repos.Applications)

	validator := validate.New()
	maxUpload := cfg.Storage.MaxUploadBytes
	gate := handlers.NewGate(sessionService, d.Logger)
	cookies := handlers.CookieOptions{MaxAge: cfg.Cookie.MaxAge, Production: cfg.IsProduction()}

	authHandler := handlers.NewAuthHandler(userService, sessionService, accountService, cookies, validator, maxUpload, d.Logger)
	profileHandler := handlers.NewProfileHandler(userService, validator, maxUpload, d.Logger)
	companyHandler := handlers.NewCompanyHandler(companyService, validator, maxUpload, d.Logger)
	jobHandler := handlers.NewJobHandler(jobService, d.Logger)
	applicationHandler := handlers.NewApplicationHandler(applicationService, validator, d.Logger)
	dashboardHandler := handlers.NewDashboardHandler(dashboardService, d.Logger)

	timeout := requestTimeout(cfg)

	router := chi.NewRouter()
	router.Use(
		middleware.RequestID,
		middleware.RealIP,
		logging.Middleware(d.Logger),
		metrics.Middleware,
		middleware.Recoverer,
		middleware.Timeout(timeout),
		cors.Handler(cors.Options{
			AllowedOrigins:   cfg.CORSAllowedOrigins,
			AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
			ExposedHeaders:   []string{"X-Request-ID"},
			AllowCredentials: true,
			MaxAge:           300,
		}),
	)

	router.Get("/healthz", handlers.Healthz)
	router.Get("/readyz", handlers.Readyz(repos, d.Logger))
	router.Handle("/metrics", metrics.Handler())

	router.Route("/api/v1", func(r chi.Router) {
		r.Route("/user", func(r chi.Router) {
			handlers.AuthRouter(r, authHandler, profileHandler, gate)
		})
		r.Route("/company", func(r chi.Router) {
			handlers.CompanyRouter(r, companyHandler, gate)
		})
		r.Route("/job", func(r chi.Router) {
			handlers.JobRouter(r, jobHandler, gate)
		})
		r.Route("/application", func(r chi.Router) {
			handlers.ApplicationRouter(r, applicationHandler, gate)
		})
		r.Route("/dashboard", func(r chi.Router) {
			handlers.DashboardRouter(r, dashboardHandler, gate)
		})
	})

	return router, nil
}

// Server wraps the HTTP server and the backends it owns.
type Server struct {
	httpServer *http.Server
	logger     *slog.Logger
	cfg        config.Config
	repos      *Repositories
	queue      *mq.MQ
	closers    []func() error
}

// New connects the configured backends and constructs a Server.
func New(ctx context.Context, cfg config.Config, logger *slog.Logger) (*Server, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	s := &Server{logger: logger, cfg: cfg}

	repos, err := OpenRepositories(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	s.repos = repos
	s.closers = append(s.closers, repos.Close)

	files, closeFiles, err := OpenStorage(ctx, cfg.Storage)
	if err != nil {
		_ = s.Close()
		return nil, err
	}
	s.closers = append(s.closers, closeFiles)

	var publisher services.Publisher
	queue, err := OpenQueue(ctx, cfg.MQ)
	switch {
	case errors.Is(err, ErrQueueDisabled):
		logger.Info("message queue disabled; notifications are dropped")
	case err != nil:
		_ = s.Close()
		return nil, err
	default:
		s.queue = queue
		s.closers = append(s.closers, queue.Close)
		publisher = queue
	}

	handler, err := NewHandler(Deps{
		Config:    cfg,
		Logger:    logger,
		Repos:     repos,
		Files:     files,
		Mailer:    mailer.New(cfg.SMTP, logger),
		Publisher: publisher,
	})
	if err != nil {
		_ = s.Close()
		return nil, err
	}

	s.httpServer = newHTTPServer(cfg, handler)
	return s, nil
}

// requestTimeout is the per-request handler deadline, 60s when unset.
func requestTimeout(cfg config.Config) time.Duration {
	if cfg.RequestTimeout <= 0 {
		return 60 * time.Second
	}
	return cfg.RequestTimeout
}

func newHTTPServer(cfg config.Config, handler http.Handler) *http.Server {
	port := cfg.ServerPort
	if port == 0 {
		port = 8080
	}
	return &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      requestTimeout(cfg) + 15*time.Second,
		IdleTimeout:       60 * time.Second,
	}
}

// Start runs the HTTP server until ctx is cancelled, then shuts down
// gracefully. With the in-memory broker it also consumes notifications.
func (s *Server) Start(ctx context.Context) error {
	if s.queue != nil && s.cfg.MQ.Driver == "memory" {
		worker := services.NewNotificationHandler(s.repos.Users, s.repos.Jobs, s.repos.Companies, mailer.New(s.cfg.SMTP, s.logger), s.logger)
		go func() {
			if err := s.queue.Subscribe(ctx, s.cfg.MQ.NotificationsChannel, logFailures(s.logger, worker.Handle)); err != nil && !errors.Is(err, context.Canceled) {
				logging.LogError(s.logger, "notification consumer stopped", err)
			}
		}()
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("http server listening", "addr", s.httpServer.Addr)
		errCh <- s.httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	timeout := s.cfg.ShutdownTimeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), timeout)
	defer cancel()

	s.logger.Info("shutting down http server")
	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

// logFailures logs the messages handler fails on. The memory broker does
// not redeliver, so this is the only record of a lost notification.
func logFailures(logger *slog.Logger, handler mq.Handler) mq.Handler {
	return func(ctx context.Context, msg mq.Message) error {
		err := handler(ctx, msg)
		if err != nil {
			logging.LogError(logger, "notification delivery failed", err,
				"message_id", msg.ID,
				"type", msg.Attributes[mq.AttrEventType],
			)
		}
		return err
	}
}

// Close releases the backends in reverse order of acquisition.
func (s *Server) Close() error {
	var errs []error
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	s.closers = nil
	return errors.Join(errs...)
}
