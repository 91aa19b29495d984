package security_test

import (
	"crypto/tls"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/backend-apotek/internal/security"
)

var noop = http.HandlerFunc(func(http.ResponseWriter, *http.Request) {})

func TestHeadersSetHardeningHeaders(t *testing.T) {
	rr := httptest.NewRecorder()
	security.Headers{}.Middleware(noop).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/v1/bills", nil))

	require.Equal(t, "nosniff", rr.Header().Get("X-Content-Type-Options"))
	require.Equal(t, "DENY", rr.Header().Get("X-Frame-Options"))
	require.Equal(t, "no-store", rr.Header().Get("Cache-Control"))
	require.Empty(t, rr.Header().Get("Strict-Transport-Security"))
}

func TestHeadersHSTSOnlyOverHTTPS(t *testing.T) {
	h := security.Headers{HSTS: 365 * 24 * time.Hour}.Middleware(noop)

	plain := httptest.NewRecorder()
	h.ServeHTTP(plain, httptest.NewRequest(http.MethodGet, "http://apotek.example/", nil))
	require.Empty(t, plain.Header().Get("Strict-Transport-Security"))

	req := httptest.NewRequest(http.MethodGet, "https://apotek.example/", nil)
	req.TLS = &tls.ConnectionState{}
	direct := httptest.NewRecorder()
	h.ServeHTTP(direct, req)
	require.Equal(t, "max-age=31536000; includeSubDomains", direct.Header().Get("Strict-Transport-Security"))

	proxied := httptest.NewRequest(http.MethodGet, "http://apotek.example/", nil)
	proxied.Header.Set("X-Forwarded-Proto", "https")
	viaProxy := httptest.NewRecorder()
	h.ServeHTTP(viaProxy, proxied)
	require.NotEmpty(t, viaProxy.Header().Get("Strict-Transport-Security"))
}
