// Package app opens the infrastructure shared by the API and worker binaries.
package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/extra/redisotel/v9"
	redis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	limiter "github.com/ulule/limiter/v3"
	limiterredis "github.com/ulule/limiter/v3/drivers/store/redis"

	"github.com/noah-isme/backend-apotek/internal/config"
	"github.com/noah-isme/backend-apotek/internal/obs"
	"github.com/noah-isme/backend-apotek/internal/queue"
)

// Dependencies holds the connections a process owns. Close releases them in
// reverse order of acquisition.
type Dependencies struct {
	DB           *pgxpool.Pool
	Redis        *redis.Client
	LimiterStore limiter.Store
	Tasks        *asynq.Client
	Inspector    *asynq.Inspector
}

// Open connects to Postgres and Redis and builds the task client, inspector
// and rate limiter store on top of them.
func Open(ctx context.Context, cfg *config.Config, appName string, logger zerolog.Logger) (*Dependencies, error) {
	deps := &Dependencies{}
	pool, err := OpenPostgres(ctx, cfg.DatabaseURL, appName)
	if err != nil {
		return nil, err
	}
	deps.DB = pool

	rdb, err := OpenRedis(ctx, cfg.RedisURL, cfg.MetricsEnabled, logger)
	if err != nil {
		deps.Close()
		return nil, err
	}
	deps.Redis = rdb

	if deps.LimiterStore, err = NewLimiterStore(rdb); err != nil {
		deps.Close()
		return nil, err
	}

	redisOpt, err := TaskRedisOpt(cfg.RedisURL)
	if err != nil {
		deps.Close()
		return nil, err
	}
	deps.Tasks = asynq.NewClient(redisOpt)
	deps.Inspector = asynq.NewInspector(redisOpt)
	return deps, nil
}

// Close releases every open connection.
func (d *Dependencies) Close() error {
	if d == nil {
		return nil
	}
	var errs []error
	if d.Inspector != nil {
		errs = append(errs, d.Inspector.Close())
	}
	if d.Tasks != nil {
		errs = append(errs, d.Tasks.Close())
	}
	if d.Redis != nil {
		errs = append(errs, d.Redis.Close())
	}
	if d.DB != nil {
		d.DB.Close()
	}
	return errors.Join(errs...)
}

// OpenPostgres opens a pgx pool traced by obs.PGXTracer and verifies it.
func OpenPostgres(ctx context.Context, databaseURL, appName string) (*pgxpool.Pool, error) {
	if databaseURL == "" {
		return nil, errors.New("DATABASE_URL is required")
	}
	poolConfig, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse database config: %w", err)
	}
	poolConfig.ConnConfig.Tracer = obs.PGXTracer{}
	if poolConfig.ConnConfig.RuntimeParams == nil {
		poolConfig.ConnConfig.RuntimeParams = map[string]string{}
	}
	poolConfig.ConnConfig.RuntimeParams["application_name"] = appName

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	pool, err := pgxpool.NewWithConfig(pingCtx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return pool, nil
}

// OpenRedis opens a go-redis client with OpenTelemetry instrumentation.
// Instrumentation failures are logged and otherwise ignored.
func OpenRedis(ctx context.Context, redisURL string, metrics bool, logger zerolog.Logger) (*redis.Client, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := redisotel.InstrumentTracing(client); err != nil {
		logger.Error().Err(err).Msg("instrument redis tracing")
	}
	if metrics {
		if err := redisotel.InstrumentMetrics(client); err != nil {
			logger.Error().Err(err).Msg("instrument redis metrics")
		}
	}
	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return client, nil
}

// NewLimiterStore wires a rate limiter store backed by Redis.
func NewLimiterStore(rdb *redis.Client) (limiter.Store, error) {
	return limiterredis.NewStoreWithOptions(rdb, limiter.StoreOptions{Prefix: "apotek:ratelimit"})
}

// TaskRedisOpt converts the Redis URL into asynq connection options.
func TaskRedisOpt(redisURL string) (asynq.RedisConnOpt, error) {
	opt, err := asynq.ParseRedisURI(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse task redis url: %w", err)
	}
	return opt, nil
}

// NewTaskServer builds the asynq server that drains the notification queue.
func NewTaskServer(redisOpt asynq.RedisConnOpt, cfg *config.Config, logger zerolog.Logger) *asynq.Server {
	concurrency := cfg.QueueConcurrency
	if concurrency <= 0 {
		concurrency = 5
	}
	return asynq.NewServer(redisOpt, asynq.Config{
		Concurrency:     concurrency,
		Queues:          map[string]int{queue.DefaultQueue: 1},
		Logger:          queue.Logger{L: obs.Component(logger, "asynq")},
		ShutdownTimeout: cfg.ShutdownTimeout,
		ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
			obs.TasksProcessedTotal.WithLabelValues(task.Type(), "error").Inc()
			logger.Error().Err(err).Str("task_type", task.Type()).Msg("task failed")
		}),
	})
}
