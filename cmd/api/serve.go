package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"medication-schedule/internal/adapters/auth/introspect"
	"medication-schedule/internal/adapters/interactions/cache"
	"medication-schedule/internal/adapters/interactions/kb"
	"medication-schedule/internal/adapters/interactions/static"
	pg "medication-schedule/internal/adapters/storage/postgres"
	"medication-schedule/internal/domain/conflicts"
	"medication-schedule/internal/platform/config"
	"medication-schedule/internal/platform/logger"
	"medication-schedule/internal/platform/metrics"
	"medication-schedule/internal/ports/auth"
	"medication-schedule/internal/ports/interactions"
	"medication-schedule/internal/router"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API (default command)",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe(cmd.Context())
	},
}

func runServe(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, _, err := loadConfig()
	if err != nil {
		return err
	}

	log := logger.New(logger.Options{
		Level:  logger.ParseLevel(cfg.LogLevel),
		Format: logger.ParseFormat(cfg.LogFormat),
		App:    cfg.AppName,
	})

	var db *sql.DB
	if cfg.DBDSN != "" {
		db, err = pg.Open(cfg.DBDSN)
		if err != nil {
			return fmt.Errorf("open postgres: %w", err)
		}
		defer db.Close()
		if err := pg.Migrate(ctx, db); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
		log.Info("storage: postgres", nil)
	} else {
		log.Info("storage: in-memory", nil)
	}

	oracle, err := buildOracle(ctx, cfg, log)
	if err != nil {
		return err
	}

	verifier, err := buildVerifier(cfg)
	if err != nil {
		return err
	}
	if verifier == nil {
		log.Warn("auth: dev mode (X-Debug-User-ID)", nil)
	}

	m := metrics.New()
	handler := router.NewRouter(router.Options{
		AuthVerifier: verifier,
		DB:           db,
		Logger:       log,
		Metrics:      m,
		Oracle:       oracle,
		Conflicts: conflicts.Config{
			Options: conflicts.Options{
				WindowDays: cfg.Conflicts.WindowDays,
				MinGap:     cfg.Conflicts.MinGap,
				SafetyGap:  cfg.Conflicts.SafetyGap,
			},
			Workers:       cfg.Conflicts.Workers,
			OracleTimeout: cfg.Interactions.Timeout,
		},
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      handler,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("starting server", map[string]any{"addr": srv.Addr})
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down", nil)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// buildOracle elige la fuente de interacciones:
// KB remota (con caché Redis si hay REDIS_ADDR) > pares estáticos > ninguna.
func buildOracle(ctx context.Context, cfg config.Config, log logger.Logger) (interactions.Oracle, error) {
	ic := cfg.Interactions
	if ic.BaseURL == "" {
		if len(ic.Static) == 0 {
			log.Warn("interactions: no oracle configured, interaction checks disabled", nil)
			return nil, nil
		}
		log.Info("interactions: static pairs", map[string]any{"pairs": len(ic.Static)})
		return static.New(staticPairs(ic.Static)), nil
	}

	client, err := kb.NewClient(kb.Config{
		BaseURL:    ic.BaseURL,
		APIKey:     ic.APIKey,
		Timeout:    ic.Timeout,
		RatePerSec: ic.RatePerSec,
	})
	if err != nil {
		return nil, fmt.Errorf("interactions kb: %w", err)
	}
	if cfg.Redis.Addr == "" {
		log.Info("interactions: kb without cache", map[string]any{"base_url": ic.BaseURL})
		return client, nil
	}

	rdb := cache.NewRedisClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	if err := cache.Ping(ctx, rdb); err != nil {
		// sin caché se sigue funcionando, solo más lento
		log.Warn("interactions: redis unavailable, cache disabled", map[string]any{"error": err})
		return client, nil
	}
	log.Info("interactions: kb with redis cache", map[string]any{"base_url": ic.BaseURL, "ttl": ic.CacheTTL.String()})
	return cache.New(rdb, client, ic.CacheTTL, log), nil
}

func buildVerifier(cfg config.Config) (auth.AuthVerifier, error) {
	if cfg.Auth.BaseURL == "" {
		return nil, nil
	}
	v, err := introspect.NewVerifier(introspect.Config{BaseURL: cfg.Auth.BaseURL, APIKey: cfg.Auth.APIKey})
	if err != nil {
		return nil, fmt.Errorf("auth verifier: %w", err)
	}
	return v, nil
}

func staticPairs(in []config.StaticPair) []static.Pair {
	out := make([]static.Pair, 0, len(in))
	for _, p := range in {
		out = append(out, static.Pair{A: p.A, B: p.B, Severity: p.Severity})
	}
	return out
}
