package service

import (
	"context"

	"pipeline_backend/internal/events"
	"pipeline_backend/internal/pipelines/domain"
	"pipeline_backend/platform/apperr"
	"pipeline_backend/platform/logger"

	"github.com/google/uuid"
)

const msgAlreadyInscribed = "lead already has an active entry in this pipeline"

// Writer is the write slice of the pipelines repository used outside stage moves.
type Writer interface {
	GetPipeline(ctx context.Context, id uuid.UUID) (domain.Pipeline, error)
	Inscribe(ctx context.Context, leadID, pipelineID uuid.UUID) (domain.Entry, bool, error)
	SetChecklistItem(ctx context.Context, leadID, itemID uuid.UUID, completed bool) error
}

// Enrollment puts leads into pipelines and tracks their checklist progress.
type Enrollment struct {
	repo Writer
	bus  events.Bus
	log  *logger.Logger
}

// NewEnrollment creates an Enrollment service.
func NewEnrollment(repo Writer, bus events.Bus, log *logger.Logger) *Enrollment {
	return &Enrollment{repo: repo, bus: bus, log: log}
}

// Inscribe opens an entry for the lead in the pipeline's first stage.
// A lead holds at most one active entry per pipeline.
func (e *Enrollment) Inscribe(ctx context.Context, leadID, pipelineID uuid.UUID, actor string) (domain.Entry, error) {
	if _, err := e.repo.GetPipeline(ctx, pipelineID); err != nil {
		return domain.Entry{}, err
	}

	entry, created, err := e.repo.Inscribe(ctx, leadID, pipelineID)
	if err != nil {
		return domain.Entry{}, err
	}
	if !created {
		return domain.Entry{}, apperr.Conflict(msgAlreadyInscribed)
	}

	e.log.Info("lead inscribed", "leadId", leadID, "pipelineId", pipelineID, "entryId", entry.ID)
	e.bus.Publish(ctx, events.LeadInscribed{
		BaseEvent:  events.NewBaseEvent(),
		EntryID:    entry.ID,
		LeadID:     leadID,
		PipelineID: pipelineID,
		StageID:    entry.CurrentStageID,
		Actor:      actor,
	})
	return entry, nil
}

// SetChecklistItem marks a checklist item done or not done for a lead.
func (e *Enrollment) SetChecklistItem(ctx context.Context, leadID, itemID uuid.UUID, completed bool) error {
	return e.repo.SetChecklistItem(ctx, leadID, itemID, completed)
}
