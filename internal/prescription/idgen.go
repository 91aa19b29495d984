package prescription

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	idDateLayout   = "20060102"
	sequenceExpiry = 48 * time.Hour
)

// IDGenerator hands out human-readable prescription numbers.
type IDGenerator interface {
	Next(ctx context.Context, at time.Time) (string, error)
}

// FormatID renders RX<yyyymmdd><seq:4>.
func FormatID(at time.Time, seq int64) string {
	return fmt.Sprintf("RX%s%04d", at.Format(idDateLayout), seq)
}

// RedisIDGenerator keeps one counter per calendar day.
type RedisIDGenerator struct {
	R      *redis.Client
	Prefix string
}

func (g RedisIDGenerator) key(at time.Time) string {
	prefix := g.Prefix
	if prefix == "" {
		prefix = "rx:seq"
	}
	return prefix + ":" + at.Format(idDateLayout)
}

// Next increments the day's counter and formats the result.
func (g RedisIDGenerator) Next(ctx context.Context, at time.Time) (string, error) {
	if g.R == nil {
		return "", fmt.Errorf("prescription id generator not configured")
	}
	key := g.key(at)
	var incr *redis.IntCmd
	_, err := g.R.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		incr = pipe.Incr(ctx, key)
		pipe.Expire(ctx, key, sequenceExpiry)
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("next prescription sequence: %w", err)
	}
	return FormatID(at, incr.Val()), nil
}
