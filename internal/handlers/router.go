package handlers

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/dernekpanel/api/internal/platform/observability"
)

// RouterDeps carries everything needed to assemble the HTTP surface.
type RouterDeps struct {
	Logger        *zap.Logger
	ProjectID     string
	Health        *HealthHandlers
	Beneficiaries *BeneficiaryHandlers
}

// NewRouter builds the chi router with the standard middleware chain and all
// registered endpoint groups.
func NewRouter(deps RouterDeps) chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(observability.TraceMiddleware(deps.ProjectID))
	if deps.Logger != nil {
		r.Use(observability.InjectLoggerMiddleware(deps.Logger))
	}
	r.Use(observability.RequestLoggerMiddleware(deps.ProjectID))
	r.Use(observability.RecoveryMiddleware(deps.Logger))

	if deps.Health != nil {
		deps.Health.Routes(r)
	}
	if deps.Beneficiaries != nil {
		deps.Beneficiaries.Routes(r)
	}

	return r
}
