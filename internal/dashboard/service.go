package dashboard

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// Querier defines the database access required for dashboard reads.
type Querier interface {
	Stats(ctx context.Context, w StatsWindow) (Stats, error)
	SalesSeries(ctx context.Context, from time.Time, bucket string) ([]SalesPoint, error)
	TopMedicines(ctx context.Context, from time.Time, limit int) ([]TopMedicine, error)
	RecentPrescriptions(ctx context.Context, limit int) ([]Activity, error)
	RecentBills(ctx context.Context, limit int) ([]Activity, error)
}

// Service provides cached access to dashboard aggregates.
type Service struct {
	Q      Querier
	R      *redis.Client
	TTL    time.Duration
	Logger zerolog.Logger
	Now    func() time.Time
}

const (
	defaultLimit = 10
	maxLimit     = 50
	expiryWindow = 6 * 30 * 24 * time.Hour
)

func (s *Service) now() time.Time {
	if s != nil && s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func (s *Service) ready() error {
	if s == nil || s.Q == nil {
		return errors.New("dashboard service not configured")
	}
	return nil
}

func cacheKey(parts ...any) string {
	formatted := make([]string, 0, len(parts))
	for _, part := range parts {
		formatted = append(formatted, fmt.Sprint(part))
	}
	return strings.Join(formatted, ":")
}

func clampLimit(limit int) int {
	if limit <= 0 {
		return defaultLimit
	}
	if limit > maxLimit {
		return maxLimit
	}
	return limit
}

// Stats returns today's figures, alert counters and record totals.
func (s *Service) Stats(ctx context.Context) (Stats, error) {
	if err := s.ready(); err != nil {
		return Stats{}, err
	}
	now := s.now()
	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	key := cacheKey("dash", "stats", dayStart.Format("2006-01-02"))
	var out Stats
	if s.load(ctx, key, &out) {
		return out, nil
	}
	out, err := s.Q.Stats(ctx, StatsWindow{
		DayStart:   dayStart,
		DayEnd:     dayStart.AddDate(0, 0, 1),
		Now:        now,
		ExpiringBy: now.Add(expiryWindow),
	})
	if err != nil {
		return Stats{}, fmt.Errorf("dashboard stats: %w", err)
	}
	s.store(ctx, key, out)
	return out, nil
}

// SalesChart returns finalized, at least partially paid revenue grouped per
// day (week, month) or per month (year).
func (s *Service) SalesChart(ctx context.Context, p Period) ([]SalesPoint, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	from := s.now().AddDate(0, 0, -p.Days())
	key := cacheKey("dash", "sales", p, from.Format("2006-01-02"))
	var out []SalesPoint
	if s.load(ctx, key, &out) {
		return out, nil
	}
	out, err := s.Q.SalesSeries(ctx, from, p.Bucket())
	if err != nil {
		return nil, fmt.Errorf("dashboard sales: %w", err)
	}
	if out == nil {
		out = []SalesPoint{}
	}
	s.store(ctx, key, out)
	return out, nil
}

// TopMedicines ranks medicines on finalized bills by revenue.
func (s *Service) TopMedicines(ctx context.Context, p Period, limit int) ([]TopMedicine, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	limit = clampLimit(limit)
	from := s.now().AddDate(0, 0, -p.Days())
	key := cacheKey("dash", "top", p, limit, from.Format("2006-01-02"))
	var out []TopMedicine
	if s.load(ctx, key, &out) {
		return out, nil
	}
	out, err := s.Q.TopMedicines(ctx, from, limit)
	if err != nil {
		return nil, fmt.Errorf("dashboard top medicines: %w", err)
	}
	if out == nil {
		out = []TopMedicine{}
	}
	s.store(ctx, key, out)
	return out, nil
}

// Activities merges the newest prescriptions and finalized bills, newest
// first. Each source contributes at most ceil(limit/2) entries. Not cached.
func (s *Service) Activities(ctx context.Context, limit int) ([]Activity, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	limit = clampLimit(limit)
	half := (limit + 1) / 2
	rx, err := s.Q.RecentPrescriptions(ctx, half)
	if err != nil {
		return nil, fmt.Errorf("recent prescriptions: %w", err)
	}
	bills, err := s.Q.RecentBills(ctx, half)
	if err != nil {
		return nil, fmt.Errorf("recent bills: %w", err)
	}
	out := make([]Activity, 0, len(rx)+len(bills))
	out = append(out, rx...)
	out = append(out, bills...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Timestamp.After(out[j].Timestamp) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *Service) load(ctx context.Context, key string, dst any) bool {
	if s.R == nil || s.TTL <= 0 {
		return false
	}
	data, err := s.R.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			s.Logger.Warn().Err(err).Str("key", key).Msg("dashboard cache read failed")
		}
		return false
	}
	return json.Unmarshal(data, dst) == nil
}

func (s *Service) store(ctx context.Context, key string, value any) {
	if s.R == nil || s.TTL <= 0 {
		return
	}
	data, err := json.Marshal(value)
	if err != nil {
		return
	}
	if err := s.R.Set(ctx, key, data, s.TTL).Err(); err != nil {
		s.Logger.Warn().Err(err).Str("key", key).Msg("dashboard cache write failed")
	}
}
