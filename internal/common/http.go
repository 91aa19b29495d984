package common

import (
	"net"
	"net/http"
	"strings"
)

// ClientIP is the request's peer address without the port. The router runs
// chi's RealIP first, so RemoteAddr already reflects X-Forwarded-For and
// X-Real-IP when a proxy sets them.
func ClientIP(r *http.Request) string {
	if r == nil {
		return ""
	}
	addr := strings.TrimSpace(r.RemoteAddr)
	if host, _, err := net.SplitHostPort(addr); err == nil {
		return host
	}
	return addr
}
