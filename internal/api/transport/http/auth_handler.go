package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/arenafit/backoffice/internal/api/middleware"
	identityapp "github.com/arenafit/backoffice/internal/identity/app"
	identitydomain "github.com/arenafit/backoffice/internal/identity/domain"
)

// AuthHandler exposes login and the current-user endpoint.
type AuthHandler struct {
	authService *identityapp.AuthService
	logger      *slog.Logger
}

func NewAuthHandler(authService *identityapp.AuthService, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		logger:      logger.With("handler", "auth"),
	}
}

// RegisterPublicRoutes registers routes that do not require authentication.
func (h *AuthHandler) RegisterPublicRoutes(r chi.Router) {
	r.Post("/auth/login", h.handleLogin)
}

// RegisterProtectedRoutes registers routes behind the Authenticate middleware.
func (h *AuthHandler) RegisterProtectedRoutes(r chi.Router) {
	r.Get("/users/me", h.handleMe)
}

func (h *AuthHandler) handleLogin(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request_body")
		return
	}
	if req.Email == "" || req.Password == "" {
		respondError(w, http.StatusBadRequest, "missing_credentials")
		return
	}

	token, user, err := h.authService.Login(ctx, req.Email, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, identitydomain.ErrInvalidCredentials):
			respondError(w, http.StatusUnauthorized, "invalid_credentials")
		case errors.Is(err, identitydomain.ErrUserInactive):
			respondError(w, http.StatusForbidden, "user_inactive")
		default:
			h.logger.ErrorContext(ctx, "login failed", "error", err)
			respondError(w, http.StatusInternalServerError, "internal_error")
		}
		return
	}

	respondJSON(w, http.StatusOK, LoginResponse{
		Token: token,
		User: UserResponse{
			ID:     user.ID.String(),
			Email:  user.Email,
			Name:   user.Name,
			Role:   user.Role,
			Status: user.Status,
		},
	})
}

func (h *AuthHandler) handleMe(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	authUser, ok := ctx.Value(middleware.AuthenticatedUserContextKey).(middleware.AuthenticatedUser)
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	user, err := h.authService.CurrentUser(ctx, authUser.ID)
	if err != nil {
		if errors.Is(err, identitydomain.ErrUserNotFound) {
			respondError(w, http.StatusNotFound, "not_found")
			return
		}
		h.logger.ErrorContext(ctx, "failed to load current user", "error", err)
		respondError(w, http.StatusInternalServerError, "internal_error")
		return
	}

	respondJSON(w, http.StatusOK, UserResponse{
		ID:     user.ID.String(),
		Email:  user.Email,
		Name:   user.Name,
		Role:   user.Role,
		Status: user.Status,
	})
}
