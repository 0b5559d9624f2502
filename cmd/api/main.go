package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/crucial707/asset-custody/internal/auth"
	"github.com/crucial707/asset-custody/internal/config"
	"github.com/crucial707/asset-custody/internal/db"
	"github.com/crucial707/asset-custody/internal/ledger"
	"github.com/crucial707/asset-custody/internal/models"
	"github.com/crucial707/asset-custody/internal/repo"
	"github.com/crucial707/asset-custody/internal/scheduler"
)

func main() {

	// Load configuration
	cfg := config.Load()
	setupLogger(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := run(ctx, cfg)
	stop()
	if err != nil {
		slog.Error("server exited", "err", err)
		os.Exit(1)
	}
}

// run releases everything it opens before returning.
func run(ctx context.Context, cfg config.Config) error {
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	// Connect to database FIRST
	database, err := db.Connect(cfg.DB())
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer database.Close()
	slog.Info("connected to database", "host", cfg.DBHost, "name", cfg.DBName)

	if cfg.AutoMigrate {
		if err := db.Migrate(cfg.DB().URL()); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}

	if err := bootstrapAdmin(ctx, repo.NewUserRepo(database), cfg); err != nil {
		return fmt.Errorf("admin bootstrap: %w", err)
	}

	jobs, err := scheduler.Start(cfg.IntegrityCron, &scheduler.IntegrityJob{Checker: ledger.New(database)})
	if err != nil {
		return fmt.Errorf("invalid INTEGRITY_CRON %q: %w", cfg.IntegrityCron, err)
	}
	if jobs != nil {
		defer jobs.Stop()
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           newRouter(database, cfg),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	// Start server LAST
	errCh := make(chan error, 1)
	go func() {
		tls := cfg.TLSCertFile != "" && cfg.TLSKeyFile != ""
		slog.Info("starting server", "port", cfg.Port, "tls", tls, "env", cfg.Env)
		if tls {
			errCh <- srv.ListenAndServeTLS(cfg.TLSCertFile, cfg.TLSKeyFile)
			return
		}
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serve: %w", err)
		}
	case <-ctx.Done():
		slog.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Error("graceful shutdown failed", "err", err)
		}
	}
	return nil
}

func setupLogger(cfg config.Config) {
	opts := &slog.HandlerOptions{Level: cfg.SlogLevel()}
	var h slog.Handler = slog.NewTextHandler(os.Stdout, opts)
	if cfg.LogFormat == "json" {
		h = slog.NewJSONHandler(os.Stdout, opts)
	}
	slog.SetDefault(slog.New(h))
}

// bootstrapAdmin creates the first admin from ADMIN_EMAIL / ADMIN_PASSWORD
// when the users table is empty.
func bootstrapAdmin(ctx context.Context, users *repo.UserRepo, cfg config.Config) error {
	if cfg.AdminEmail == "" {
		return nil
	}
	n, err := users.Count(ctx)
	if err != nil {
		return err
	}
	if n > 0 {
		return nil
	}
	hash, err := auth.HashPassword(cfg.AdminPassword)
	if err != nil {
		return err
	}
	u, err := users.Create(ctx, "Administrator", cfg.AdminEmail, hash, models.RoleAdmin)
	if err != nil {
		return err
	}
	slog.Info("created initial admin user", "user_id", u.ID, "email", u.Email)
	return nil
}
