// Command worker consumes the notification queue fed by the API's event bus.
package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/noah-isme/backend-apotek/internal/app"
	"github.com/noah-isme/backend-apotek/internal/config"
	"github.com/noah-isme/backend-apotek/internal/obs"
	"github.com/noah-isme/backend-apotek/internal/queue"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}
	logger := obs.Component(obs.NewLogger(cfg.LogFormat, cfg.LogLevel), "worker").
		With().Str("env", cfg.AppEnv).Logger()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Fatal().Err(err).Msg("worker stopped")
	}
}

func run(ctx context.Context, cfg *config.Config, logger zerolog.Logger) error {
	redisOpt, err := app.TaskRedisOpt(cfg.RedisURL)
	if err != nil {
		return err
	}

	if cfg.MetricsEnabled {
		obs.MustRegisterDomainMetrics(cfg.MetricsNamespace, nil)
		metricsSrv := &http.Server{Addr: cfg.WorkerMetricsAddr, Handler: promhttp.Handler(), ReadHeaderTimeout: cfg.ReadHeaderTimeout}
		go func() {
			if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error().Err(err).Str("addr", cfg.WorkerMetricsAddr).Msg("metrics listener")
			}
		}()
		defer func() {
			sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = metricsSrv.Shutdown(sctx)
		}()
	}

	srv := app.NewTaskServer(redisOpt, cfg, logger)
	mux := queue.NewMux(&queue.Handlers{Logger: obs.Component(logger, "notifications")})
	if err := srv.Start(mux); err != nil {
		return err
	}
	logger.Info().Int("concurrency", cfg.QueueConcurrency).Str("queue", queue.DefaultQueue).Msg("worker started")

	<-ctx.Done()
	logger.Info().Msg("worker draining")
	srv.Shutdown()
	return nil
}
