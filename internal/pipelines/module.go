// Package pipelines provides the pipeline lifecycle module: stage moves,
// SLA timing and health reports.
package pipelines

import (
	"pipeline_backend/internal/events"
	apphttp "pipeline_backend/internal/http"
	"pipeline_backend/internal/pipelines/handler"
	"pipeline_backend/internal/pipelines/repository"
	"pipeline_backend/internal/pipelines/service"
	"pipeline_backend/internal/pipelines/sla"
	"pipeline_backend/internal/pipelines/transition"
	"pipeline_backend/platform/config"
	"pipeline_backend/platform/logger"
	"pipeline_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module represents the pipelines domain module
type Module struct {
	handler     *handler.Handler
	Repository  *repository.Repository
	Transitions *transition.Service
	Reads       *service.Service
}

// NewModule creates a new pipelines module with all dependencies wired
func NewModule(pool *pgxpool.Pool, cfg config.PipelineConfig, val *validator.Validator, bus events.Bus, log *logger.Logger) *Module {
	repo := repository.New(pool)
	calc := sla.NewCalculator(cfg.GetSLAWarningDays())
	moves := transition.NewService(repo, repo, repo, calc, bus, log)
	reads := service.New(repo, calc)
	enrollment := service.NewEnrollment(repo, bus, log)

	return &Module{
		handler:     handler.New(moves, reads, enrollment, val),
		Repository:  repo,
		Transitions: moves,
		Reads:       reads,
	}
}

// Name returns the module name for logging
func (m *Module) Name() string {
	return "pipelines"
}

// RegisterRoutes registers the module's routes under /api/v1
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	m.handler.RegisterRoutes(ctx.Protected)
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
