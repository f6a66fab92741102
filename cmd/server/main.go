package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"expense-tracker/internal/auth"
	"expense-tracker/internal/config"
	"expense-tracker/internal/events"
	"expense-tracker/internal/handlers"
	applog "expense-tracker/internal/log"
	"expense-tracker/internal/service"
	"expense-tracker/internal/storage"
	"expense-tracker/web"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 10 * time.Second

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load(".env")
	if err != nil {
		return err
	}

	level, err := applog.ParseLevel(cfg.Log.Level)
	if err != nil {
		return err
	}
	logger := applog.New(applog.Config{Level: level, JSON: cfg.Log.Format == "json"})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := storage.NewDB(cfg.DB.Path)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	sessions, closeSessions, err := newSessionStore(ctx, cfg, db)
	if err != nil {
		return err
	}
	defer closeSessions()

	publisher, err := newPublisher(cfg.AMQP, logger)
	if err != nil {
		return err
	}
	defer publisher.Close()

	authSvc := service.NewAuthService(db, sessions, publisher, logger, cfg.Session.TTL)
	expenseSvc := service.NewExpenseService(db, db, publisher, logger)

	if err := seedAdmin(ctx, db, authSvc, cfg.Admin, logger); err != nil {
		return err
	}

	h := handlers.NewHandlers(authSvc, expenseSvc, web.Templates(), cfg.HTTP.SecureCookie, logger)
	srv := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      setupRouter(h, web.Static(), logger),
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("Server starting", "addr", srv.Addr, "db", cfg.DB.Path, "session_backend", cfg.Session.Backend)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		logger.Info("Server shutting down")
		return srv.Shutdown(shutdownCtx)
	})
	g.Go(func() error {
		runJanitor(gctx, sessions, cfg.Session.CleanupInterval, logger)
		return nil
	})

	return g.Wait()
}

// setupRouter mounts the pages, the static assets and the middleware chain.
func setupRouter(h *handlers.Handlers, static fs.FS, logger *applog.Logger) http.Handler {
	mux := http.NewServeMux()
	h.Routes(mux)
	mux.Handle("GET /static/", http.StripPrefix("/static/", http.FileServerFS(static)))
	return applog.Middleware(logger)(handlers.SecurityHeaders(mux))
}

func newSessionStore(ctx context.Context, cfg config.Config, db *storage.DB) (auth.SessionStore, func(), error) {
	if cfg.Session.Backend != config.SessionBackendRedis {
		return db, func() {}, nil
	}
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, nil, fmt.Errorf("connect redis: %w", err)
	}
	return auth.NewRedisStore(rdb), func() { rdb.Close() }, nil
}

func newPublisher(cfg config.AMQPConfig, logger *applog.Logger) (events.Publisher, error) {
	if cfg.URL == "" {
		return events.Nop{}, nil
	}
	p, err := events.NewAMQPPublisher(cfg.URL, cfg.Exchange)
	if err != nil {
		return nil, err
	}
	logger.Info("Publishing events", "exchange", cfg.Exchange)
	return p, nil
}

// userCounter reports how many users exist.
type userCounter interface {
	UserCount(ctx context.Context) (int, error)
}

// seedAdmin creates the configured admin account when the store has no users.
func seedAdmin(ctx context.Context, users userCounter, authSvc *service.AuthService, cfg config.AdminConfig, logger *applog.Logger) error {
	if cfg.Email == "" {
		return nil
	}
	n, err := users.UserCount(ctx)
	if err != nil {
		return fmt.Errorf("count users: %w", err)
	}
	if n > 0 {
		return nil
	}
	if _, err := authSvc.Register(ctx, cfg.Name, cfg.Email, cfg.Password, cfg.Password); err != nil {
		return fmt.Errorf("seed admin: %w", err)
	}
	logger.Info("Admin user created", "email", cfg.Email)
	return nil
}
