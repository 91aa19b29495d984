package auth

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/noah-isme/backend-apotek/internal/common"
)

// PGStore implements Store on PostgreSQL.
type PGStore struct {
	Pool *pgxpool.Pool
}

const userColumns = `id::text, full_name, username, email, COALESCE(phone, ''), role, is_active, created_at, updated_at`

func scanUser(row pgx.Row, extra ...any) (User, error) {
	var (
		u    User
		role string
	)
	dest := append([]any{&u.ID, &u.FullName, &u.Username, &u.Email, &u.Phone, &role, &u.IsActive, &u.CreatedAt, &u.UpdatedAt}, extra...)
	err := row.Scan(dest...)
	u.Role = Role(role)
	return u, err
}

// CreateUser implements Store.
func (s PGStore) CreateUser(ctx context.Context, a Account) (User, error) {
	u, err := scanUser(s.Pool.QueryRow(ctx, `INSERT INTO users (
	full_name, username, email, phone, role, password_hash, is_active, created_at, updated_at
) VALUES ($1, $2, $3, NULLIF($4, ''), $5, $6, $7, $8, $8)
RETURNING `+userColumns,
		a.FullName, a.Username, a.Email, a.Phone, string(a.Role), a.PasswordHash, a.IsActive, a.CreatedAt))
	if err != nil {
		if common.IsUniqueViolation(err) {
			return User{}, common.ConflictError("User already exists with this email", err)
		}
		return User{}, err
	}
	return u, nil
}

// GetAccountByEmail implements Store.
func (s PGStore) GetAccountByEmail(ctx context.Context, email string) (Account, error) {
	var a Account
	u, err := scanUser(s.Pool.QueryRow(ctx, `SELECT `+userColumns+`, password_hash FROM users WHERE email = $1`, email), &a.PasswordHash)
	if err != nil {
		return Account{}, common.MissingAs(err, "User")
	}
	a.User = u
	return a, nil
}

// GetUser implements Store.
func (s PGStore) GetUser(ctx context.Context, id string) (User, error) {
	u, err := scanUser(s.Pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1::uuid AND is_active`, id))
	if err != nil {
		return User{}, common.MissingAs(err, "User")
	}
	return u, nil
}
