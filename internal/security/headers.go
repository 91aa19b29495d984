package security

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5/middleware"
)

var staticHeaders = [][2]string{
	{"X-Content-Type-Options", "nosniff"},
	{"X-Frame-Options", "DENY"},
	{"Referrer-Policy", "no-referrer"},
	// patient and billing payloads
	{"Cache-Control", "no-store"},
}

// Headers sets the hardening headers on every response. HSTS is only sent
// over HTTPS, including HTTPS terminated at a proxy, and only when HSTS > 0.
type Headers struct {
	HSTS time.Duration
}

func (h Headers) Middleware(next http.Handler) http.Handler {
	handler := h.hsts(next)
	for i := len(staticHeaders) - 1; i >= 0; i-- {
		handler = middleware.SetHeader(staticHeaders[i][0], staticHeaders[i][1])(handler)
	}
	return handler
}

func (h Headers) hsts(next http.Handler) http.Handler {
	if h.HSTS <= 0 {
		return next
	}
	value := "max-age=" + strconv.FormatInt(int64(h.HSTS/time.Second), 10) + "; includeSubDomains"
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.TLS != nil || r.Header.Get("X-Forwarded-Proto") == "https" {
			w.Header().Set("Strict-Transport-Security", value)
		}
		next.ServeHTTP(w, r)
	})
}
