// Package imports provides the bulk lead import module.
package imports

import (
	"pipeline_backend/internal/events"
	apphttp "pipeline_backend/internal/http"
	"pipeline_backend/internal/imports/handler"
	"pipeline_backend/internal/imports/service"
	"pipeline_backend/internal/scheduler"
	"pipeline_backend/platform/config"
	"pipeline_backend/platform/logger"
	"pipeline_backend/platform/validator"
)

// Module represents the imports domain module
type Module struct {
	handler *handler.Handler
	Service *service.Service
}

// NewModule wires the coordinator with its stores. enqueuer may be nil, in
// which case jobs run inside the API process.
func NewModule(
	cfg config.ImportConfig,
	leads service.LeadStore,
	inscriber service.Inscriber,
	progress service.ProgressStore,
	enqueuer scheduler.ImportEnqueuer,
	val *validator.Validator,
	bus events.Bus,
	log *logger.Logger,
) *Module {
	coordinator := service.NewCoordinator(leads, inscriber, progress, val, service.CoordinatorConfig{
		BatchSize:      cfg.GetImportBatchSize(),
		RequiredFields: cfg.GetImportRequiredFields(),
		PhoneRegion:    cfg.GetPhoneDefaultRegion(),
	}, bus, log)
	svc := service.New(coordinator, progress, enqueuer, log)

	return &Module{
		handler: handler.New(svc, val),
		Service: svc,
	}
}

// Name returns the module name for logging
func (m *Module) Name() string {
	return "imports"
}

// RegisterRoutes registers the module's routes under /api/v1/imports
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	m.handler.RegisterRoutes(ctx.Protected.Group("/imports"))
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
