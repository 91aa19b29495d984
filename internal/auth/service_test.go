package auth_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alexedwards/argon2id"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/backend-apotek/internal/auth"
	"github.com/noah-isme/backend-apotek/internal/common"
)

type memStore struct {
	mu       sync.Mutex
	accounts map[string]auth.Account
}

func newMemStore() *memStore {
	return &memStore{accounts: map[string]auth.Account{}}
}

func (m *memStore) CreateUser(_ context.Context, a auth.Account) (auth.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.accounts[a.Email]; ok {
		return auth.User{}, common.ConflictError("duplicate", nil)
	}
	a.ID = uuid.NewString()
	m.accounts[a.Email] = a
	return a.User, nil
}

func (m *memStore) GetAccountByEmail(_ context.Context, email string) (auth.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.accounts[email]
	if !ok {
		return auth.Account{}, common.NotFoundError("User")
	}
	return a, nil
}

func (m *memStore) GetUser(_ context.Context, id string) (auth.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range m.accounts {
		if a.ID == id && a.IsActive {
			return a.User, nil
		}
	}
	return auth.User{}, common.NotFoundError("User")
}

func (m *memStore) deactivate(email string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a := m.accounts[email]
	a.IsActive = false
	m.accounts[email] = a
}

var cheapHash = &argon2id.Params{Memory: 1024, Iterations: 1, Parallelism: 1, SaltLength: 16, KeyLength: 32}

func newService(t *testing.T, store auth.Store) *auth.Service {
	t.Helper()
	svc, err := auth.NewService(auth.Config{Store: store, Secret: "test-secret", AccessTokenTTL: time.Hour, HashParams: cheapHash})
	require.NoError(t, err)
	return svc
}

func register(t *testing.T, svc *auth.Service, email string, role auth.Role) auth.User {
	t.Helper()
	u, err := svc.Register(context.Background(), auth.RegisterInput{
		FullName: "Priya Nair",
		Email:    email,
		Password: "secret1",
		Phone:    "9123456780",
		Role:     role,
	})
	require.NoError(t, err)
	return u
}

func TestRegisterDerivesUsernameAndRejectsDuplicates(t *testing.T) {
	svc := newService(t, newMemStore())
	u := register(t, svc, "  Priya.Nair@Example.com ", auth.RolePharmacist)
	require.Equal(t, "priya.nair@example.com", u.Email)
	require.Equal(t, "priya.nair", u.Username)
	require.Equal(t, auth.RolePharmacist, u.Role)
	require.True(t, u.IsActive)

	_, err := svc.Register(context.Background(), auth.RegisterInput{FullName: "Other", Email: "priya.nair@example.com", Password: "secret1", Role: auth.RoleStaff})
	require.True(t, common.HasCode(err, common.CodeConflict))
}

func TestRegisterValidation(t *testing.T) {
	svc := newService(t, newMemStore())
	cases := map[string]auth.RegisterInput{
		"short password": {FullName: "Priya", Email: "p@example.com", Password: "123", Role: auth.RoleStaff},
		"bad role":       {FullName: "Priya", Email: "p@example.com", Password: "secret1", Role: "owner"},
		"bad email":      {FullName: "Priya", Email: "not-an-email", Password: "secret1", Role: auth.RoleStaff},
		"bad phone":      {FullName: "Priya", Email: "p@example.com", Password: "secret1", Phone: "12345", Role: auth.RoleStaff},
	}
	for name, in := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := svc.Register(context.Background(), in)
			require.True(t, common.HasCode(err, common.CodeValidation), "got %v", err)
		})
	}
}

func TestLoginIssuesTokenWithRole(t *testing.T) {
	svc := newService(t, newMemStore())
	u := register(t, svc, "doc@example.com", auth.RoleDoctor)

	res, err := svc.Login(context.Background(), auth.LoginInput{Email: "DOC@example.com", Password: "secret1"})
	require.NoError(t, err)
	require.NotEmpty(t, res.Token)
	require.Equal(t, u.ID, res.User.ID)

	p, err := svc.ParseAccessToken(res.Token)
	require.NoError(t, err)
	require.Equal(t, common.Principal{ID: u.ID, Role: "doctor"}, p)

	me, err := svc.Me(context.Background(), p.ID)
	require.NoError(t, err)
	require.Equal(t, "doc@example.com", me.Email)
}

func TestLoginFailures(t *testing.T) {
	store := newMemStore()
	svc := newService(t, store)
	register(t, svc, "staff@example.com", auth.RoleStaff)

	_, err := svc.Login(context.Background(), auth.LoginInput{Email: "staff@example.com", Password: "wrong"})
	require.True(t, common.HasCode(err, common.CodeUnauthorized))

	_, err = svc.Login(context.Background(), auth.LoginInput{Email: "nobody@example.com", Password: "secret1"})
	require.True(t, common.HasCode(err, common.CodeUnauthorized))

	_, err = svc.Login(context.Background(), auth.LoginInput{Email: "", Password: ""})
	require.True(t, common.HasCode(err, common.CodeValidation))

	store.deactivate("staff@example.com")
	_, err = svc.Login(context.Background(), auth.LoginInput{Email: "staff@example.com", Password: "secret1"})
	require.True(t, common.HasCode(err, common.CodeUnauthorized))
}

func TestParseAccessTokenRejectsExpiredAndForeignTokens(t *testing.T) {
	store := newMemStore()
	svc := newService(t, store)
	register(t, svc, "admin@example.com", auth.RoleAdmin)
	issued := time.Now()
	svc.WithNow(func() time.Time { return issued })
	res, err := svc.Login(context.Background(), auth.LoginInput{Email: "admin@example.com", Password: "secret1"})
	require.NoError(t, err)

	svc.WithNow(func() time.Time { return issued.Add(2 * time.Hour) })
	_, err = svc.ParseAccessToken(res.Token)
	require.True(t, common.HasCode(err, common.CodeUnauthorized))

	other, err := auth.NewService(auth.Config{Store: store, Secret: "another-secret", HashParams: cheapHash})
	require.NoError(t, err)
	other.WithNow(func() time.Time { return issued })
	_, err = other.ParseAccessToken(res.Token)
	require.True(t, common.HasCode(err, common.CodeUnauthorized))

	_, err = svc.ParseAccessToken("not-a-token")
	require.True(t, common.HasCode(err, common.CodeUnauthorized))
}

func TestRequireAuthAndRole(t *testing.T) {
	svc := newService(t, newMemStore())
	register(t, svc, "staff@example.com", auth.RoleStaff)
	register(t, svc, "ph@example.com", auth.RolePharmacist)
	token := func(email string) string {
		res, err := svc.Login(context.Background(), auth.LoginInput{Email: email, Password: "secret1"})
		require.NoError(t, err)
		return res.Token
	}

	var seen common.Principal
	final := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = common.PrincipalFrom(r.Context())
		w.WriteHeader(http.StatusNoContent)
	})
	h := auth.Middleware{Service: svc}.RequireAuth(auth.RequireRole(auth.RolePharmacist, auth.RoleAdmin)(final))

	call := func(header string) int {
		req := httptest.NewRequest(http.MethodDelete, "/api/v1/bills/b1", nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec.Code
	}

	require.Equal(t, http.StatusUnauthorized, call(""))
	require.Equal(t, http.StatusUnauthorized, call("Bearer garbage"))
	require.Equal(t, http.StatusForbidden, call("Bearer "+token("staff@example.com")))
	require.Equal(t, http.StatusNoContent, call("Bearer "+token("ph@example.com")))
	require.Equal(t, "pharmacist", seen.Role)
}

func TestHandlersRegisterLoginMe(t *testing.T) {
	svc := newService(t, newMemStore())
	h := &auth.Handler{Service: svc}

	rec := httptest.NewRecorder()
	h.Register(rec, httptest.NewRequest(http.MethodPost, "/api/v1/auth/register",
		strings.NewReader(`{"fullName":"Ravi Kumar","email":"ravi@example.com","password":"secret1","role":"staff"}`)))
	require.Equal(t, http.StatusCreated, rec.Code)
	require.NotContains(t, rec.Body.String(), "secret1")
	require.NotContains(t, rec.Body.String(), "argon2id")

	rec = httptest.NewRecorder()
	h.Login(rec, httptest.NewRequest(http.MethodPost, "/api/v1/auth/login",
		strings.NewReader(`{"email":"ravi@example.com","password":"nope"}`)))
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = httptest.NewRecorder()
	h.Login(rec, httptest.NewRequest(http.MethodPost, "/api/v1/auth/login",
		strings.NewReader(`{"email":"ravi@example.com","password":"secret1"}`)))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `"token"`)

	rec = httptest.NewRecorder()
	h.Me(rec, httptest.NewRequest(http.MethodGet, "/api/v1/auth/me", nil))
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}
