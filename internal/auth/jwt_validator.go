package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jwt"

	"github.com/noah-isme/backend-apotek/internal/common"
)

var errNilToken = errors.New("auth: token is nil")

// TokenValidator checks the registered claims of a parsed access token and
// turns it into a principal. Tokens must carry a subject and a known role.
type TokenValidator struct {
	Issuer    string
	Audience  string
	ClockSkew time.Duration
	Algorithm jwa.SignatureAlgorithm
}

// Check validates tok (signed with alg) as of now and returns its principal.
// Expired tokens yield an error matching jwt.ErrTokenExpired.
func (v TokenValidator) Check(tok jwt.Token, alg jwa.SignatureAlgorithm, now time.Time) (common.Principal, error) {
	if tok == nil {
		return common.Principal{}, errNilToken
	}
	if alg == "" || (v.Algorithm != "" && alg != v.Algorithm) {
		return common.Principal{}, fmt.Errorf("auth: unexpected token algorithm %q", alg)
	}
	if err := jwt.Validate(tok, v.options(now)...); err != nil {
		return common.Principal{}, err
	}
	role, _ := roleOf(tok)
	return common.Principal{ID: tok.Subject(), Role: string(role)}, nil
}

func (v TokenValidator) options(now time.Time) []jwt.ValidateOption {
	opts := []jwt.ValidateOption{
		jwt.WithClock(jwt.ClockFunc(func() time.Time { return now })),
		jwt.WithAcceptableSkew(max(v.ClockSkew, 0)),
		jwt.WithRequiredClaim(jwt.SubjectKey),
		jwt.WithValidator(jwt.ValidatorFunc(validPrincipal)),
	}
	if v.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(v.Issuer))
	}
	if v.Audience != "" {
		opts = append(opts, jwt.WithAudience(v.Audience))
	}
	return opts
}

func validPrincipal(_ context.Context, tok jwt.Token) jwt.ValidationError {
	if tok.Subject() == "" {
		return jwt.NewValidationError(errors.New("auth: token missing subject"))
	}
	if _, err := roleOf(tok); err != nil {
		return jwt.NewValidationError(err)
	}
	return nil
}

func roleOf(tok jwt.Token) (Role, error) {
	raw, ok := tok.Get(roleClaim)
	if !ok {
		return "", errors.New("auth: token missing role")
	}
	s, _ := raw.(string)
	if role := Role(s); role.Valid() {
		return role, nil
	}
	return "", fmt.Errorf("auth: unknown role %v", raw)
}
