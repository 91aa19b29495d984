package ratelimit

import (
	"fmt"
	"net/http"

	limiter "github.com/ulule/limiter/v3"
	"github.com/ulule/limiter/v3/drivers/middleware/stdlib"

	"github.com/noah-isme/backend-apotek/internal/common"
)

// FixedWindow builds a fixed-window limiter middleware from a rate in ulule
// format ("10-M", "100-H"), keyed by client address. It guards the public
// auth endpoints.
func FixedWindow(store limiter.Store, rate string) (func(http.Handler) http.Handler, error) {
	parsed, err := limiter.NewRateFromFormatted(rate)
	if err != nil {
		return nil, fmt.Errorf("ratelimit: parse rate %q: %w", rate, err)
	}
	mw := stdlib.NewMiddleware(
		limiter.New(store, parsed),
		stdlib.WithKeyGetter(func(r *http.Request) string { return common.ClientIP(r) }),
		stdlib.WithLimitReachedHandler(func(w http.ResponseWriter, r *http.Request) {
			common.JSONError(w, http.StatusTooManyRequests, CodeRateLimited, "Too many requests, please try again later.", nil)
		}),
	)
	return mw.Handler, nil
}
