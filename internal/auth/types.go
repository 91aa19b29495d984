package auth

import (
	"strings"
	"time"
)

// Role is the staff role carried in access tokens.
type Role string

// Roles.
const (
	RoleAdmin      Role = "admin"
	RolePharmacist Role = "pharmacist"
	RoleStaff      Role = "staff"
	RoleDoctor     Role = "doctor"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RolePharmacist, RoleStaff, RoleDoctor:
		return true
	}
	return false
}

// User represents a safe subset of the user model returned to clients.
type User struct {
	ID        string    `json:"id"`
	FullName  string    `json:"fullName"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	Phone     string    `json:"phone,omitempty"`
	Role      Role      `json:"role"`
	IsActive  bool      `json:"isActive"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Account is a user together with its password hash. It never leaves the package.
type Account struct {
	User
	PasswordHash string
}

// RegisterInput is the payload of POST /auth/register.
type RegisterInput struct {
	FullName string `json:"fullName" validate:"required,min=2,max=100"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
	Phone    string `json:"phone" validate:"omitempty,mobile"`
	Role     Role   `json:"role" validate:"required,oneof=admin doctor pharmacist staff"`
}

// LoginInput is the payload of POST /auth/login.
type LoginInput struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// LoginResult bundles the access token returned after a successful login.
type LoginResult struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
	User      User      `json:"user"`
}

// UsernameFromEmail derives the username from the local part of the address.
func UsernameFromEmail(email string) string {
	local, _, _ := strings.Cut(strings.TrimSpace(email), "@")
	return strings.ToLower(local)
}
