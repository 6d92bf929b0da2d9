package app

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/arenafit/backoffice/internal/identity/domain"
)

type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *MockUserRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func testConfig() AuthConfig {
	return AuthConfig{JWTSecret: "test-secret", TokenExpiry: time.Hour}
}

func activeUser(t *testing.T, password string) *domain.User {
	t.Helper()
	hash, err := HashPassword(password)
	require.NoError(t, err)
	return &domain.User{
		ID:           uuid.New(),
		Email:        "financeiro@arenafit.com.br",
		Name:         "Maria Financeiro",
		Role:         domain.RoleFinanceiro,
		Status:       domain.StatusActive,
		PasswordHash: hash,
	}
}

func TestHashAndCheckPassword(t *testing.T) {
	hash, err := HashPassword("s3cr3t!")
	require.NoError(t, err)
	assert.NotEqual(t, "s3cr3t!", hash)
	assert.True(t, CheckPasswordHash("s3cr3t!", hash))
	assert.False(t, CheckPasswordHash("wrong", hash))
}

func TestLoginSuccessIssuesValidToken(t *testing.T) {
	ctx := context.Background()
	user := activeUser(t, "s3cr3t!")

	repo := new(MockUserRepository)
	repo.On("GetByEmail", ctx, user.Email).Return(user, nil)

	svc := NewAuthService(repo, testConfig(), slog.Default())

	token, loggedIn, err := svc.Login(ctx, user.Email, "s3cr3t!")

	require.NoError(t, err)
	assert.Equal(t, user.ID, loggedIn.ID)

	claims, err := svc.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, user.ID.String(), claims.Subject)
	assert.Equal(t, user.Email, claims.Email)
	assert.Equal(t, domain.RoleFinanceiro, claims.Role)
}

func TestLoginWrongPassword(t *testing.T) {
	ctx := context.Background()
	user := activeUser(t, "s3cr3t!")

	repo := new(MockUserRepository)
	repo.On("GetByEmail", ctx, user.Email).Return(user, nil)

	svc := NewAuthService(repo, testConfig(), slog.Default())

	_, _, err := svc.Login(ctx, user.Email, "wrong")

	assert.ErrorIs(t, err, domain.ErrInvalidCredentials)
}

func TestLoginUnknownUserMapsToInvalidCredentials(t *testing.T) {
	ctx := context.Background()

	repo := new(MockUserRepository)
	repo.On("GetByEmail", ctx, "nobody@arenafit.com.br").Return(nil, domain.ErrUserNotFound)

	svc := NewAuthService(repo, testConfig(), slog.Default())

	_, _, err := svc.Login(ctx, "nobody@arenafit.com.br", "whatever")

	// Unknown user and wrong password are indistinguishable to the caller.
	assert.ErrorIs(t, err, domain.ErrInvalidCredentials)
}

func TestLoginInactiveUser(t *testing.T) {
	ctx := context.Background()
	user := activeUser(t, "s3cr3t!")
	user.Status = "Inativo"

	repo := new(MockUserRepository)
	repo.On("GetByEmail", ctx, user.Email).Return(user, nil)

	svc := NewAuthService(repo, testConfig(), slog.Default())

	_, _, err := svc.Login(ctx, user.Email, "s3cr3t!")

	assert.ErrorIs(t, err, domain.ErrUserInactive)
}

func TestValidateTokenRejectsGarbage(t *testing.T) {
	svc := NewAuthService(new(MockUserRepository), testConfig(), slog.Default())

	_, err := svc.ValidateToken("not.a.token")

	assert.ErrorIs(t, err, domain.ErrTokenInvalid)
}

func TestValidateTokenRejectsWrongSecret(t *testing.T) {
	ctx := context.Background()
	user := activeUser(t, "s3cr3t!")

	repo := new(MockUserRepository)
	repo.On("GetByEmail", ctx, user.Email).Return(user, nil)

	issuer := NewAuthService(repo, testConfig(), slog.Default())
	token, _, err := issuer.Login(ctx, user.Email, "s3cr3t!")
	require.NoError(t, err)

	verifier := NewAuthService(repo, AuthConfig{JWTSecret: "other-secret", TokenExpiry: time.Hour}, slog.Default())
	_, err = verifier.ValidateToken(token)

	assert.ErrorIs(t, err, domain.ErrTokenInvalid)
}

func TestValidateTokenRejectsExpired(t *testing.T) {
	ctx := context.Background()
	user := activeUser(t, "s3cr3t!")

	repo := new(MockUserRepository)
	repo.On("GetByEmail", ctx, user.Email).Return(user, nil)

	svc := NewAuthService(repo, AuthConfig{JWTSecret: "test-secret", TokenExpiry: -time.Minute}, slog.Default())
	token, _, err := svc.Login(ctx, user.Email, "s3cr3t!")
	require.NoError(t, err)

	_, err = svc.ValidateToken(token)

	assert.ErrorIs(t, err, domain.ErrTokenInvalid)
}

func TestCurrentUser(t *testing.T) {
	ctx := context.Background()
	user := activeUser(t, "s3cr3t!")

	repo := new(MockUserRepository)
	repo.On("GetByID", ctx, user.ID).Return(user, nil)

	svc := NewAuthService(repo, testConfig(), slog.Default())

	got, err := svc.CurrentUser(ctx, user.ID.String())
	require.NoError(t, err)
	assert.Equal(t, user.Email, got.Email)

	_, err = svc.CurrentUser(ctx, "not-a-uuid")
	assert.ErrorIs(t, err, domain.ErrTokenInvalid)
}
