package ratelimit

import (
	"context"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/noah-isme/backend-apotek/internal/common"
)

// CodeRateLimited is the error code of a rejected request.
const CodeRateLimited = "RATE_LIMITED"

// Allower decides whether one more event fits in the window for key.
type Allower interface {
	Allow(ctx context.Context, key string, window time.Duration, max int) (bool, int, time.Time, error)
}

// Config selects the bucket key and thresholds.
type Config struct {
	Key    func(*http.Request) string
	Window time.Duration
	Max    int
}

// Handler is the sliding-window middleware for authenticated writes.
type Handler struct {
	Limiter Allower
	Config  Config
	// OnError observes limiter failures. The request is served either way.
	OnError func(error)
}

func (h Handler) Middleware(next http.Handler) http.Handler {
	if h.Limiter == nil || h.Config.Key == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		allowed, remaining, resetAt, err := h.Limiter.Allow(r.Context(), h.Config.Key(r), h.Config.Window, h.Config.Max)
		if err != nil {
			if h.OnError != nil {
				h.OnError(err)
			}
			next.ServeHTTP(w, r)
			return
		}
		setRateHeaders(w.Header(), max(h.Config.Max, 0), remaining, resetAt)
		if allowed {
			next.ServeHTTP(w, r)
			return
		}
		wait := int(math.Ceil(time.Until(resetAt).Seconds()))
		w.Header().Set("Retry-After", strconv.Itoa(max(wait, 0)))
		common.JSONError(w, http.StatusTooManyRequests, CodeRateLimited, "Too many requests, please try again later.",
			map[string]any{"retryAfterSeconds": max(wait, 0)})
	})
}

func setRateHeaders(h http.Header, limit, remaining int, resetAt time.Time) {
	h.Set("X-RateLimit-Limit", strconv.Itoa(limit))
	h.Set("X-RateLimit-Remaining", strconv.Itoa(remaining))
	h.Set("X-RateLimit-Reset", strconv.FormatInt(resetAt.Unix(), 10))
}

// PrincipalOrIP buckets by user id, or by client address when anonymous.
func PrincipalOrIP(scope string) func(*http.Request) string {
	return func(r *http.Request) string {
		if id, ok := common.UserID(r.Context()); ok {
			return scope + ":user:" + id
		}
		return scope + ":ip:" + common.ClientIP(r)
	}
}
