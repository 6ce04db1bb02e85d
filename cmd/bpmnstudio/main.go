package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	adapthttp "bpmnstudio/internal/adapter/http"
	"bpmnstudio/internal/adapter/memory"
	"bpmnstudio/internal/adapter/postgres"
	"bpmnstudio/internal/adapter/redis"
	"bpmnstudio/internal/adapter/sqlite"
	"bpmnstudio/internal/adapter/sqlstore"
	"bpmnstudio/internal/app"
	"bpmnstudio/internal/config"
	"bpmnstudio/internal/domain"

	"github.com/rs/zerolog"
)

// store is what every storage backend provides.
type store interface {
	domain.UserRepository
	domain.DiagramRepository
	Ping(ctx context.Context) error
	Close() error
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	log := newLogger(cfg.Log)

	if err := run(cfg, log); err != nil {
		log.Fatal().Err(err).Msg("server stopped")
	}
}

func run(cfg *config.Config, log zerolog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, sessions, err := openStore(ctx, cfg.Database)
	if err != nil {
		return err
	}
	defer func() { _ = st.Close() }()
	checks := map[string]adapthttp.Pinger{"database": st}

	if cfg.Session.Backend == "redis" {
		client, err := redis.NewClient(cfg.Session.RedisURL)
		if err != nil {
			return err
		}
		rs := redis.NewSessionRepo(client)
		defer func() { _ = rs.Close() }()
		if err := rs.Ping(ctx); err != nil {
			return fmt.Errorf("redis: %w", err)
		}
		sessions = rs
		checks["redis"] = rs
	}

	authSvc := app.NewAuthService(st, sessions, log).
		WithSessionTTL(cfg.Session.TTL).
		WithTOTPIssuer(cfg.Auth.TOTPIssuer)
	if err := authSvc.Bootstrap(ctx, cfg.Auth.AdminUsername, cfg.Auth.AdminPassword); err != nil {
		return err
	}
	diagramSvc := app.NewDiagramService(st, log)

	opts := adapthttp.Options{
		WebDir:      cfg.Server.WebDir,
		CORSOrigins: cfg.Server.CORSOrigins,
		LoginRate:   cfg.Server.LoginRate,
		Development: cfg.Server.Development,
		Metrics:     cfg.Server.Metrics,
		Checks:      checks,
	}
	if cfg.OIDC.Enabled() {
		oidcCfg, err := adapthttp.NewOIDCConfig(ctx, cfg.OIDC.IssuerURL, cfg.OIDC.ClientID, cfg.OIDC.ClientSecret, cfg.OIDC.RedirectURL)
		if err != nil {
			return err
		}
		opts.OIDC = oidcCfg
	}

	srv, err := adapthttp.New(authSvc, diagramSvc, log, opts)
	if err != nil {
		return err
	}

	httpServer := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", cfg.Server.Addr).Str("db_driver", cfg.Database.Driver).Msg("listening")
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return httpServer.Shutdown(shutdownCtx)
}

func openStore(ctx context.Context, cfg config.DatabaseConfig) (store, domain.SessionRepository, error) {
	switch cfg.Driver {
	case "postgres":
		st, err := postgres.Open(ctx, cfg.URL)
		if err != nil {
			return nil, nil, err
		}
		return st, sqlstore.NewSessionRepo(st), nil
	case "memory":
		db := memory.New()
		return db, db.NewSessionRepo(), nil
	default:
		st, err := sqlite.Open(ctx, cfg.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		return st, sqlstore.NewSessionRepo(st), nil
	}
}

func newLogger(cfg config.LogConfig) zerolog.Logger {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	var out io.Writer = os.Stderr
	if cfg.Format != "json" {
		out = zerolog.ConsoleWriter{Out: os.Stderr}
	}
	return zerolog.New(out).Level(level).With().Timestamp().Logger()
}
