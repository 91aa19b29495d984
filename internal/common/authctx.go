package common

import "context"

type ctxKey string

const (
	principalKey ctxKey = "auth/principal"
	slotKey      ctxKey = "auth/principal-slot"
)

// Principal is the authenticated actor attached to a request.
type Principal struct {
	ID   string `json:"id"`
	Role string `json:"role"`
}

// WithPrincipal stores the authenticated principal on the provided context.
func WithPrincipal(ctx context.Context, p Principal) context.Context {
	if slot, ok := ctx.Value(slotKey).(*Principal); ok && slot != nil {
		*slot = p
	}
	return context.WithValue(ctx, principalKey, p)
}

// WithPrincipalSlot installs a slot that WithPrincipal fills in further down
// the handler chain, so outer middleware can observe who made the request.
func WithPrincipalSlot(ctx context.Context) (context.Context, *Principal) {
	slot := &Principal{}
	return context.WithValue(ctx, slotKey, slot), slot
}

// PrincipalFrom extracts the authenticated principal from the context if present.
func PrincipalFrom(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(principalKey).(Principal)
	if !ok || p.ID == "" {
		return Principal{}, false
	}
	return p, true
}

// UserID extracts the authenticated user identifier from the context if present.
func UserID(ctx context.Context) (string, bool) {
	p, ok := PrincipalFrom(ctx)
	return p.ID, ok
}
