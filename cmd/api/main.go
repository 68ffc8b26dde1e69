package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"sessiongate/internal/auth"
	"sessiongate/internal/config"
	transporthttp "sessiongate/internal/http"
	"sessiongate/internal/metrics"
	"sessiongate/internal/platform/database"
	"sessiongate/internal/platform/logging"
	"sessiongate/internal/platform/migrate"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger := logging.New(cfg.LogLevel, cfg.LogFormat)

	repo, cleanup, err := buildRepository(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to initialize repository", "error", err)
		os.Exit(1)
	}
	if cleanup != nil {
		defer cleanup()
	}

	issuers := append([]string{}, auth.GoogleIssuers...)
	issuers = append(issuers, cfg.GoogleIssuerURL)
	verifier, err := auth.NewGoogleVerifier(ctx, cfg.GoogleIssuerURL, logger,
		auth.WithIssuers(issuers...),
		auth.WithVerifyTimeout(cfg.GoogleVerifyTimeout),
		auth.WithRejectAuthorizedPartyMismatch(cfg.RejectAuthorizedPartyMismatch()),
	)
	if err != nil {
		logger.Error("failed to initialize google verifier", "error", err)
		os.Exit(1)
	}

	tokens, err := auth.NewTokenIssuer([]byte(cfg.JWTSecret), cfg.AccessTokenTTL, auth.WithTokenIssuer(cfg.AccessTokenIssuer))
	if err != nil {
		logger.Error("failed to initialize token issuer", "error", err)
		os.Exit(1)
	}

	svc := auth.NewService(repo, verifier, tokens, auth.NewAudiences(cfg.GoogleWebClientID, cfg.GoogleAndroidClientID))

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	collector := metrics.NewCollector(reg)

	router := transporthttp.NewRouter(cfg, svc, collector, reg, logger)

	srv := &http.Server{
		Addr:              cfg.HTTPAddress(),
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
		MaxHeaderBytes:    http.DefaultMaxHeaderBytes,
	}

	go func() {
		logger.Info("sessiongate listening", "addr", srv.Addr, "store", cfg.DataStore, "environment", cfg.Environment)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", "error", err)
	}
}

func buildRepository(ctx context.Context, cfg config.Config, logger *slog.Logger) (auth.Repository, func(), error) {
	switch cfg.DataStore {
	case config.StoreMemory:
		logger.Warn("using in-memory user store; users are lost on restart")
		return auth.NewInMemoryRepository(), nil, nil

	case config.StoreSQLite:
		db, err := database.NewSQLite(ctx, cfg.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		cleanup := func() {
			_ = db.Close()
		}
		if err := migrate.Apply(ctx, db, migrate.DialectSQLite, logger); err != nil {
			cleanup()
			return nil, nil, err
		}
		logger.Info("connected to sqlite", "path", cfg.SQLitePath)
		return auth.NewSQLiteRepository(db), cleanup, nil

	case config.StorePostgres:
		db, err := database.NewPostgres(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, nil, err
		}
		cleanup := func() {
			_ = db.Close()
		}
		if err := migrate.Apply(ctx, db, migrate.DialectPostgres, logger); err != nil {
			cleanup()
			return nil, nil, err
		}
		logger.Info("connected to postgres")
		return auth.NewPostgresRepository(db), cleanup, nil

	default:
		return nil, nil, fmt.Errorf("unsupported data store %q", cfg.DataStore)
	}
}
