package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/arenafit/backoffice/internal/api/middleware"
	identitydomain "github.com/arenafit/backoffice/internal/identity/domain"
)

// NewRouter assembles the API surface. Send and inspection endpoints are
// restricted to the finance-capable roles, matching the product's RBAC.
func NewRouter(
	notificationHandler *NotificationHandler,
	authHandler *AuthHandler,
	validator middleware.TokenValidator,
	logger *slog.Logger,
) http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(PrometheusMetricsMiddleware)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Handle("/metrics", promhttp.Handler())

	authHandler.RegisterPublicRoutes(r)

	r.Group(func(r chi.Router) {
		r.Use(middleware.Authenticate(validator, logger))
		authHandler.RegisterProtectedRoutes(r)

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireRole(logger,
				identitydomain.RoleAdmin,
				identitydomain.RoleGerente,
				identitydomain.RoleFinanceiro,
			))
			notificationHandler.RegisterRoutes(r)
		})
	})

	return r
}
