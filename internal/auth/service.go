package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/alexedwards/argon2id"
	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jws"
	"github.com/lestrrat-go/jwx/v2/jwt"

	"github.com/noah-isme/backend-apotek/internal/common"
)

const (
	defaultAccessTTL = 7 * 24 * time.Hour
	roleClaim        = "role"
)

// Store persists user accounts.
type Store interface {
	CreateUser(ctx context.Context, a Account) (User, error)
	GetAccountByEmail(ctx context.Context, email string) (Account, error)
	GetUser(ctx context.Context, id string) (User, error)
}

// Service registers users and issues and verifies access tokens.
type Service struct {
	store      Store
	secret     []byte
	accessTTL  time.Duration
	hashParams *argon2id.Params
	now        func() time.Time
	signer     jwa.SignatureAlgorithm
	validator  TokenValidator
	issuer     string
	audience   string
	clockSkew  time.Duration
}

// Config configures the auth service.
type Config struct {
	Store          Store
	Secret         string
	AccessTokenTTL time.Duration
	Issuer         string
	Audience       string
	ClockSkew      time.Duration
	// HashParams defaults to argon2id.DefaultParams.
	HashParams *argon2id.Params
}

// NewService constructs a Service instance with sane defaults.
func NewService(cfg Config) (*Service, error) {
	if cfg.Store == nil {
		return nil, errors.New("auth: store is required")
	}
	secret := strings.TrimSpace(cfg.Secret)
	if secret == "" {
		return nil, errors.New("auth: secret is required")
	}
	accessTTL := cfg.AccessTokenTTL
	if accessTTL <= 0 {
		accessTTL = defaultAccessTTL
	}
	params := cfg.HashParams
	if params == nil {
		params = argon2id.DefaultParams
	}
	issuer := strings.TrimSpace(cfg.Issuer)
	if issuer == "" {
		issuer = "backend-apotek"
	}
	audience := strings.TrimSpace(cfg.Audience)
	if audience == "" {
		audience = "apotek-frontend"
	}
	clockSkew := cfg.ClockSkew
	if clockSkew < 0 {
		clockSkew = 0
	}

	return &Service{
		store:      cfg.Store,
		secret:     []byte(secret),
		accessTTL:  accessTTL,
		hashParams: params,
		now:        time.Now,
		signer:     jwa.HS256,
		validator: TokenValidator{
			Issuer:    issuer,
			Audience:  audience,
			ClockSkew: clockSkew,
			Algorithm: jwa.HS256,
		},
		issuer:    issuer,
		audience:  audience,
		clockSkew: clockSkew,
	}, nil
}

// WithNow allows tests to override the time provider.
func (s *Service) WithNow(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

// Register creates a new user. The username is derived from the email.
func (s *Service) Register(ctx context.Context, in RegisterInput) (User, error) {
	in.FullName = strings.TrimSpace(in.FullName)
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	in.Phone = strings.TrimSpace(in.Phone)
	if err := common.ValidateStruct(in); err != nil {
		return User{}, err
	}

	hash, err := argon2id.CreateHash(in.Password, s.hashParams)
	if err != nil {
		return User{}, fmt.Errorf("hash password: %w", err)
	}
	now := s.now()
	created, err := s.store.CreateUser(ctx, Account{
		User: User{
			FullName:  in.FullName,
			Username:  UsernameFromEmail(in.Email),
			Email:     in.Email,
			Phone:     in.Phone,
			Role:      in.Role,
			IsActive:  true,
			CreatedAt: now,
			UpdatedAt: now,
		},
		PasswordHash: hash,
	})
	if err != nil {
		if common.IsUniqueViolation(err) || common.HasCode(err, common.CodeConflict) {
			return User{}, common.ConflictError("User already exists with this email", err)
		}
		return User{}, fmt.Errorf("create user: %w", err)
	}
	return created, nil
}

// Login verifies credentials and issues an access token.
func (s *Service) Login(ctx context.Context, in LoginInput) (LoginResult, error) {
	email := strings.ToLower(strings.TrimSpace(in.Email))
	if email == "" || in.Password == "" {
		return LoginResult{}, common.ValidationError("Please provide email and password", nil)
	}

	account, err := s.store.GetAccountByEmail(ctx, email)
	if err != nil {
		if common.HasCode(err, common.CodeNotFound) {
			return LoginResult{}, common.UnauthorizedError("Invalid credentials", nil)
		}
		return LoginResult{}, fmt.Errorf("load account: %w", err)
	}
	ok, err := argon2id.ComparePasswordAndHash(in.Password, account.PasswordHash)
	if err != nil || !ok {
		return LoginResult{}, common.UnauthorizedError("Invalid credentials", nil)
	}
	if !account.IsActive {
		return LoginResult{}, common.UnauthorizedError("Account is deactivated", nil)
	}

	token, expiresAt, err := s.signAccessToken(account.User)
	if err != nil {
		return LoginResult{}, fmt.Errorf("sign access token: %w", err)
	}
	return LoginResult{Token: token, ExpiresAt: expiresAt, User: account.User}, nil
}

// Me fetches the current authenticated user.
func (s *Service) Me(ctx context.Context, userID string) (User, error) {
	if strings.TrimSpace(userID) == "" {
		return User{}, common.UnauthorizedError("unauthorized", nil)
	}
	u, err := s.store.GetUser(ctx, userID)
	if err != nil {
		if common.HasCode(err, common.CodeNotFound) {
			return User{}, common.UnauthorizedError("User not found with this token", nil)
		}
		return User{}, err
	}
	return u, nil
}

// ParseAccessToken validates an access token and returns the principal it names.
func (s *Service) ParseAccessToken(token string) (common.Principal, error) {
	trimmed := strings.TrimSpace(token)
	if trimmed == "" {
		return common.Principal{}, common.UnauthorizedError("missing token", nil)
	}
	algorithm, err := extractTokenAlgorithm(trimmed)
	if err != nil {
		return common.Principal{}, common.UnauthorizedError("Invalid token. Please log in again.", err)
	}
	if s.validator.Algorithm != "" && algorithm != s.validator.Algorithm {
		return common.Principal{}, common.UnauthorizedError("Invalid token. Please log in again.", fmt.Errorf("unexpected token algorithm %s", algorithm))
	}
	parsed, err := jwt.ParseString(trimmed, jwt.WithKey(algorithm, s.secret), jwt.WithValidate(false))
	if err != nil {
		return common.Principal{}, common.UnauthorizedError("Invalid token. Please log in again.", err)
	}
	p, err := s.validator.Check(parsed, algorithm, s.now())
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired()) {
			return common.Principal{}, common.UnauthorizedError("Token expired. Please log in again.", err)
		}
		return common.Principal{}, common.UnauthorizedError("Invalid token. Please log in again.", err)
	}
	return p, nil
}

func extractTokenAlgorithm(token string) (jwa.SignatureAlgorithm, error) {
	message, err := jws.ParseString(token)
	if err != nil {
		return "", err
	}
	signatures := message.Signatures()
	if len(signatures) == 0 {
		return "", errors.New("auth: token contains no signatures")
	}
	var algorithm jwa.SignatureAlgorithm
	for _, sig := range signatures {
		headers := sig.ProtectedHeaders()
		if headers == nil {
			return "", errors.New("auth: token missing protected headers")
		}
		alg := headers.Algorithm()
		if alg == "" {
			return "", errors.New("auth: token missing algorithm")
		}
		if alg == jwa.NoSignature {
			return "", errors.New("auth: token uses none algorithm")
		}
		if algorithm == "" {
			algorithm = alg
		} else if algorithm != alg {
			return "", fmt.Errorf("auth: mixed token algorithms detected")
		}
	}
	return algorithm, nil
}

func (s *Service) signAccessToken(u User) (string, time.Time, error) {
	now := s.now()
	expiresAt := now.Add(s.accessTTL)
	token, err := jwt.NewBuilder().
		Subject(u.ID).
		Issuer(s.issuer).
		Audience([]string{s.audience}).
		IssuedAt(now).
		NotBefore(now.Add(-s.clockSkew)).
		Expiration(expiresAt).
		Claim(roleClaim, string(u.Role)).
		Build()
	if err != nil {
		return "", time.Time{}, err
	}
	signed, err := jwt.Sign(token, jwt.WithKey(s.signer, s.secret))
	if err != nil {
		return "", time.Time{}, err
	}
	return string(signed), expiresAt, nil
}
