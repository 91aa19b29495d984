package app_test

import (
	"context"
	"testing"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/backend-apotek/internal/app"
)

func TestTaskRedisOpt(t *testing.T) {
	opt, err := app.TaskRedisOpt("redis://:secret@localhost:6380/2")
	require.NoError(t, err)
	client, ok := opt.(asynq.RedisClientOpt)
	require.True(t, ok)
	require.Equal(t, "localhost:6380", client.Addr)
	require.Equal(t, 2, client.DB)
	require.Equal(t, "secret", client.Password)

	_, err = app.TaskRedisOpt("mysql://nope")
	require.Error(t, err)
}

func TestOpenRedisAndLimiterStore(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client, err := app.OpenRedis(context.Background(), "redis://"+mr.Addr(), false, zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	store, err := app.NewLimiterStore(client)
	require.NoError(t, err)
	require.NotNil(t, store)
}

func TestOpenPostgresRequiresURL(t *testing.T) {
	_, err := app.OpenPostgres(context.Background(), "", "apotek-test")
	require.Error(t, err)
}

func TestCloseNilDependencies(t *testing.T) {
	var deps *app.Dependencies
	require.NoError(t, deps.Close())
	require.NoError(t, (&app.Dependencies{}).Close())
}
