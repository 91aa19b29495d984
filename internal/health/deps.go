package health

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5/pgxpool"
	redis "github.com/redis/go-redis/v9"
)

// Postgres probes the pool with a round trip.
func Postgres(pool *pgxpool.Pool) Probe {
	return Probe{Name: "db", Check: func(ctx context.Context) error {
		if pool == nil {
			return errors.New("db not configured")
		}
		return pool.Ping(ctx)
	}}
}

// Redis probes the client with PING.
func Redis(client *redis.Client) Probe {
	return Probe{Name: "redis", Check: func(ctx context.Context) error {
		if client == nil {
			return errors.New("redis not configured")
		}
		return client.Ping(ctx).Err()
	}}
}
