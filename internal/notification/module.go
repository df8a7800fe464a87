// Package notification provides the notification module: the recorded
// notification store, its read endpoint and the trigger engine factory.
package notification

import (
	"pipeline_backend/internal/events"
	apphttp "pipeline_backend/internal/http"
	"pipeline_backend/internal/notification/handler"
	"pipeline_backend/internal/notification/repository"
	"pipeline_backend/internal/notification/trigger"
	"pipeline_backend/internal/pipelines/sla"
	"pipeline_backend/platform/config"
	"pipeline_backend/platform/logger"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module represents the notification domain module.
type Module struct {
	handler    *handler.Handler
	Repository *repository.Repository
}

// NewModule creates the notification module.
func NewModule(pool *pgxpool.Pool) *Module {
	repo := repository.New(pool)
	return &Module{
		handler:    handler.New(repo),
		Repository: repo,
	}
}

// NewEngine builds a trigger engine that records into this module's store.
// state is shared by every engine of the process.
func (m *Module) NewEngine(
	cfg config.NotificationConfig,
	state *trigger.State,
	entries trigger.EntrySource,
	bus events.Bus,
	log *logger.Logger,
) (*trigger.Engine, error) {
	quiet, err := trigger.ParseQuietHours(cfg.GetQuietHours())
	if err != nil {
		return nil, err
	}
	return trigger.New(trigger.Deps{
		State:        state,
		Entries:      entries,
		Appointments: m.Repository,
		Recorder:     m.Repository,
		Calculator:   sla.NewCalculator(cfg.GetSLAWarningDays()),
		QuietHours:   quiet,
		Interval:     cfg.GetNotifyInterval(),
		InitialDelay: cfg.GetNotifyInitialDelay(),
		Bus:          bus,
		Log:          log,
	}), nil
}

// Name returns the module name for logging
func (m *Module) Name() string {
	return "notifications"
}

// RegisterRoutes registers the module's routes under /api/v1/notifications
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	m.handler.RegisterRoutes(ctx.Protected.Group("/notifications"))
}

var _ apphttp.Module = (*Module)(nil)
