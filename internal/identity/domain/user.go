package domain

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// Roles known to the back office. Send endpoints are restricted to the
// finance-capable roles.
const (
	RoleAdmin      = "Admin"
	RoleGerente    = "Gerente"
	RoleFinanceiro = "Financeiro"
)

// StatusActive is the user status required to authenticate.
const StatusActive = "Ativo"

// User is a back-office operator account.
type User struct {
	ID           uuid.UUID
	Email        string
	Name         string
	Role         string
	Status       string
	PasswordHash string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Active reports whether the account may authenticate.
func (u *User) Active() bool {
	return u.Status == StatusActive
}

// UserRepository is the identity store contract.
type UserRepository interface {
	GetByEmail(ctx context.Context, email string) (*User, error)
	GetByID(ctx context.Context, id uuid.UUID) (*User, error)
}

var (
	ErrUserNotFound       = errors.New("user not found")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrTokenInvalid       = errors.New("token is invalid or expired")
	ErrUserInactive       = errors.New("user account inactive")
)
