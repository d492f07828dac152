package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"fixam/internal/agent"
	"fixam/internal/analytics"
	"fixam/internal/cache"
	"fixam/internal/config"
	"fixam/internal/database"
	"fixam/internal/events"
	"fixam/internal/logging"
	"fixam/internal/metrics"
	"fixam/internal/outbox"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

// replayInterval is how often the agent checks connectivity by draining
// the outbox while it is running.
const replayInterval = 30 * time.Second

func main() {
	if err := run(); err != nil {
		log.Fatalf("Fatal error: %v", err)
	}
}

func run() error {
	cfg, logger, closer, err := loadConfigAndLogger()
	if err != nil {
		return err
	}
	if closer != nil {
		defer (func() { _ = closer.Close() })()
	}

	store, err := database.NewLocalStore(cfg.Agent.LocalStorePath, &logger)
	if err != nil {
		logger.Error().Err(err).Str("path", cfg.Agent.LocalStorePath).Msg("init local store")
		return err
	}
	defer store.Close()

	redisClient := cache.NewRedisClient(cfg.Redis)
	defer redisClient.Close()

	httpClient := &http.Client{Timeout: 30 * time.Second}

	bus := events.NewEventBus()
	router := cache.NewRouter(redisClient, httpClient, cfg.Agent, &logger)
	queue := outbox.NewQueue(store, httpClient, bus, cfg.Agent.ReplayBatch, &logger)
	queue.SetOnlineCheck(apiReachable(cfg.Agent.APIBase))
	recorder := analytics.NewRecorder(store, httpClient, cfg.Agent.APIBase+"/api/analytics", cfg.Agent.ReplayBatch, &logger)

	worker := agent.New(router, queue, recorder, bus, cfg.Agent.APIBase, &logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.Monitoring.PrometheusEnabled {
		metrics.Register()
		go startMetricsServer(ctx, cfg.Monitoring.PrometheusPort, &logger)
	}

	if err := worker.Install(ctx); err != nil {
		return err
	}
	if err := worker.Activate(ctx); err != nil {
		return err
	}
	logger.Info().Str("cache_version", cfg.Agent.CacheVersion).Msg("sync agent active")

	ticker := time.NewTicker(replayInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info().Msg("shutdown signal received")
			if err := worker.Retire(); err != nil {
				logger.Error().Err(err).Msg("retire agent")
			}
			return nil
		case <-ticker.C:
			if _, err := worker.HandleMessage(ctx, agent.Message{Command: agent.CmdClientOnline}); err != nil {
				logger.Warn().Err(err).Msg("periodic replay failed, entries retained")
			}
		}
	}
}

func loadConfigAndLogger() (*config.Config, zerolog.Logger, io.Closer, error) {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "configs/config.yaml"
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, zerolog.Logger{}, nil, fmt.Errorf("load config: %w", err)
	}

	baseLogger, closer, err := logging.New(cfg.Logging, cfg.App)
	if err != nil {
		return nil, zerolog.Logger{}, nil, fmt.Errorf("init logger: %w", err)
	}
	logger := baseLogger.With().Str("component", "agent-main").Logger()

	return cfg, logger, closer, nil
}

// apiReachable reports whether the API answers a quick health check. The
// outbox consults it on enqueue to kick off an immediate replay instead of
// waiting out the ticker.
func apiReachable(apiBase string) func() bool {
	client := &http.Client{Timeout: 2 * time.Second}
	return func() bool {
		resp, err := client.Get(apiBase + "/healthz")
		if err != nil {
			return false
		}
		defer resp.Body.Close()
		return resp.StatusCode < http.StatusInternalServerError
	}
}

func startMetricsServer(ctx context.Context, port int, logger *zerolog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{Addr: fmt.Sprintf(":%d", port), Handler: mux}
	go func() {
		<-ctx.Done()
		ctxShutdown, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctxShutdown)
	}()
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error().Err(err).Msg("metrics server error")
	}
}
