package auth

import (
	"errors"
	"net/http"
	"strings"

	"github.com/noah-isme/backend-apotek/internal/common"
)

var errNoToken = errors.New("auth: token missing")

// Middleware wires the authenticated principal into HTTP handlers.
type Middleware struct {
	Service *Service
}

// RequireAuth rejects requests without a valid bearer token and attaches the
// principal to the request context otherwise.
func (m Middleware) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p, err := m.authenticate(r)
		if err != nil {
			if errors.Is(err, errNoToken) {
				common.WriteError(w, common.UnauthorizedError("Not authorized to access this route. No token provided.", nil))
				return
			}
			var appErr *common.AppError
			if errors.As(err, &appErr) {
				common.WriteError(w, appErr)
				return
			}
			common.WriteError(w, common.UnauthorizedError("Not authorized to access this route", nil))
			return
		}
		next.ServeHTTP(w, r.WithContext(common.WithPrincipal(r.Context(), p)))
	})
}

// RequireRole allows only principals holding one of roles. It must run after RequireAuth.
func RequireRole(roles ...Role) func(http.Handler) http.Handler {
	allowed := make(map[string]bool, len(roles))
	for _, role := range roles {
		allowed[string(role)] = true
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p, ok := common.PrincipalFrom(r.Context())
			if !ok {
				common.WriteError(w, common.UnauthorizedError("Not authorized to access this route", nil))
				return
			}
			if !allowed[p.Role] {
				common.WriteError(w, common.ForbiddenError("User role '"+p.Role+"' is not authorized to access this route"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func (m Middleware) authenticate(r *http.Request) (common.Principal, error) {
	if m.Service == nil {
		return common.Principal{}, errors.New("auth: service not configured")
	}
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if !strings.HasPrefix(strings.ToLower(header), "bearer ") {
		return common.Principal{}, errNoToken
	}
	token := strings.TrimSpace(header[7:])
	if token == "" {
		return common.Principal{}, errNoToken
	}
	return m.Service.ParseAccessToken(token)
}
