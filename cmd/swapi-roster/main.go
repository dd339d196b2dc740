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

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/Sternrassler/swapi-roster/internal/config"
	"github.com/Sternrassler/swapi-roster/pkg/enrich"
	"github.com/Sternrassler/swapi-roster/pkg/logging"
	"github.com/Sternrassler/swapi-roster/pkg/pagination"
	"github.com/Sternrassler/swapi-roster/pkg/roster"
	"github.com/Sternrassler/swapi-roster/pkg/swapi"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid configuration: %v\n", err)
		os.Exit(1)
	}

	if _, err := logging.Setup(logging.Config{
		Level:  cfg.LogLevel,
		Pretty: cfg.PrettyLog,
		Output: os.Stderr,
	}); err != nil {
		fmt.Fprintf(os.Stderr, "invalid log configuration: %v\n", err)
		os.Exit(1)
	}
	log.Debug().Interface("config", cfg.Redacted()).Msg("Configuration loaded")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		log.Fatal().Err(err).Msg("Server failed")
	}
}

// run wires the roster, starts the initial load and serves HTTP until ctx
// is cancelled.
func run(ctx context.Context, cfg *config.Config) error {
	rdb, err := connectRedis(ctx, cfg)
	if err != nil {
		return err
	}
	if rdb != nil {
		defer rdb.Close()
	}

	client, err := newSWAPIClient(cfg, rdb)
	if err != nil {
		return err
	}
	defer client.Close()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	r := roster.New()
	go r.Run(ctx)

	enricher := enrich.New(client)
	srv := newServer(r, enricher, rdb)

	loader := roster.NewLoader(client, enricher, r, loaderConfig(cfg))
	go func() {
		summary, err := loader.Load(ctx)
		srv.finishLoad(summary, err)
	}()

	httpServer := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           srv.routes(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      2 * time.Minute,
		IdleTimeout:       60 * time.Second,
		MaxHeaderBytes:    1 << 20,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().
			Str("addr", cfg.ListenAddr).
			Str("base_url", cfg.BaseURL).
			Str("user_agent", cfg.UserAgent).
			Bool("redis", rdb != nil).
			Msg("Starting SWAPI roster server")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	log.Info().Msg("Shutting down")
	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancelShutdown()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

// connectRedis returns nil when no Redis address is configured.
func connectRedis(ctx context.Context, cfg *config.Config) (*redis.Client, error) {
	if !cfg.RedisEnabled() {
		return nil, nil
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("connect to redis at %s: %w", cfg.RedisAddr, err)
	}

	log.Info().Str("addr", cfg.RedisAddr).Int("db", cfg.RedisDB).Msg("Connected to Redis")
	return rdb, nil
}

func newSWAPIClient(cfg *config.Config, rdb *redis.Client) (*swapi.Client, error) {
	clientCfg := swapi.DefaultConfig()
	clientCfg.BaseURL = cfg.BaseURL
	clientCfg.UserAgent = cfg.UserAgent
	clientCfg.Timeout = cfg.HTTPTimeout
	clientCfg.Redis = rdb
	clientCfg.DailyBudget = cfg.DailyBudget
	clientCfg.Retry.MaxAttempts = cfg.RetryAttempts
	clientCfg.CacheStaleWindow = cfg.CacheStaleWindow

	client, err := swapi.New(clientCfg)
	if err != nil {
		return nil, fmt.Errorf("create swapi client: %w", err)
	}
	return client, nil
}

func loaderConfig(cfg *config.Config) roster.LoaderConfig {
	lc := roster.DefaultLoaderConfig()
	lc.Pagination = pagination.Config{
		MaxPages: cfg.MaxPages,
		Timeout:  cfg.HTTPTimeout,
	}
	lc.Pool.MaxConcurrency = cfg.EnrichWorkers
	lc.Pool.QueueSize = 4 * cfg.EnrichWorkers
	return lc
}
