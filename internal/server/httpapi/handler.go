package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/dputra/mailroom/internal/logging"
	"github.com/dputra/mailroom/internal/server/auth"
	"github.com/dputra/mailroom/internal/server/services"
)

// Handler bundles the HTTP endpoints of the custody API.
type Handler struct {
	custody *services.CustodyService
	audit   *services.AuditService
	logger  logging.Logger
}

// NewHandler creates the endpoint set over the given services.
func NewHandler(custody *services.CustodyService, audit *services.AuditService, logger logging.Logger) *Handler {
	return &Handler{custody: custody, audit: audit, logger: logger}
}

// Router assembles the chi route tree. Read-only listings are open in the
// reference deployment; every mutating operation and the audit log sit
// behind the access gate.
func (h *Handler) Router(gate auth.Gate) chi.Router {
	r := chi.NewRouter()

	r.Use(CORS)
	r.Use(RequestLogger(h.logger))
	r.Use(Metrics)

	r.Get("/health", h.Health)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/packages", h.ListPackages)
		r.Get("/packages/{id}", h.GetPackage)
		r.Get("/history", h.ListHistory)

		r.Group(func(r chi.Router) {
			r.Use(RequireAuth(gate))
			r.Post("/packages", h.RegisterPackage)
			r.Put("/packages/{id}/status", h.UpdatePackageStatus)
			r.Post("/packages/{id}/pickup", h.RecordPickup)
			r.Delete("/packages/{id}", h.DeletePackage)
			r.Get("/audit", h.ListAudit)
		})
	})

	return r
}

func routePattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if pattern := rctx.RoutePattern(); pattern != "" {
			return pattern
		}
	}
	return r.URL.Path
}
