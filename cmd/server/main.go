package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"

	"job-portal/config"
	"job-portal/internal/database"
	"job-portal/internal/jobs"
	"job-portal/internal/metrics"
	"job-portal/internal/server"
	"job-portal/pkg/logger"
)

// @title Job Portal API
// @version 1.0
// @description REST API for publishing job offers and managing applications

// @license.name MIT
// @license.url https://opensource.org/licenses/MIT

// @host localhost:8080
// @BasePath /api/v1
// @schemes http https

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(cfg)
	if err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync(log)

	if err := run(cfg, log); err != nil {
		log.Fatal("Server exited with error", zap.Error(err))
	}
}

func run(cfg *config.Config, log *zap.Logger) error {
	log.Info("Starting Job Portal API",
		zap.String("version", "1.0.0"),
		zap.String("env", cfg.Server.Env),
		zap.String("port", cfg.Server.Port),
	)

	db, err := database.Connect(cfg, log)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer func() {
		if err := database.Close(db); err != nil {
			log.Error("Failed to close database connection", zap.Error(err))
		}
	}()

	var (
		m        *metrics.Metrics
		reporter jobs.Reporter = jobs.LogReporter{Logger: log.Named("events")}
	)
	if cfg.Metrics.Enabled {
		m = metrics.New()
		reporter = jobs.MultiReporter{reporter, m}
	}

	repo := database.NewRepository(db, jobs.SystemClock)
	svc := jobs.NewService(repo, jobs.SystemClock, reporter, log)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	seeder := database.NewSeeder(svc, repo, log)
	if _, created, err := seeder.EnsureAdmin(ctx, cfg.Admin); err != nil {
		return errors.Wrap(err, "ensure admin account")
	} else if created {
		log.Info("Admin account created", zap.String("username", cfg.Admin.Username))
	}

	if cfg.Dev.SeedData {
		if _, err := seeder.Seed(ctx); err != nil {
			log.Error("Failed to seed development data", zap.Error(err))
		}
	}

	srv := server.New(cfg, db, svc, m, log)
	go srv.RunMaintenance(ctx, cfg.Server.SweepInterval)

	httpServer := &http.Server{
		Addr:    ":" + cfg.Server.Port,
		Handler: srv.Router,

		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
		MaxHeaderBytes:    1 << 20,
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Info("Starting HTTP server", zap.String("address", httpServer.Addr))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		return errors.Wrap(err, "http server")
	case <-ctx.Done():
	}

	log.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}

	log.Info("Server shutdown complete")
	return nil
}
