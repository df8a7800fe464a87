package transition

import (
	"context"
	"time"

	"pipeline_backend/internal/events"
	"pipeline_backend/internal/pipelines/domain"
	"pipeline_backend/internal/pipelines/sla"
	"pipeline_backend/platform/apperr"
	"pipeline_backend/platform/logger"

	"github.com/google/uuid"
)

// EntryStore is the slice of the entry repository the move needs.
type EntryStore interface {
	GetEntry(ctx context.Context, id uuid.UUID) (domain.Entry, error)
	CountActiveInStage(ctx context.Context, stageID uuid.UUID) (int, error)
	UpdateStage(ctx context.Context, entryID, stageID uuid.UUID, enteredAt time.Time, health domain.HealthTier) (domain.Entry, error)
}

// StageStore loads stages together with their checklist items.
type StageStore interface {
	GetStage(ctx context.Context, id uuid.UUID) (domain.Stage, error)
}

// ChecklistStore reads per-lead checklist completion.
type ChecklistStore interface {
	CompletionState(ctx context.Context, leadID, stageID uuid.UUID) (domain.ChecklistState, error)
}

// MoveResult is returned by Move. Entry is the updated entry when Moved is true.
type MoveResult struct {
	Moved  bool         `json:"moved"`
	Entry  domain.Entry `json:"entry"`
	Result Result       `json:"result"`
}

// Service validates and applies stage moves.
type Service struct {
	entries   EntryStore
	stages    StageStore
	checklist ChecklistStore
	calc      sla.Calculator
	bus       events.Bus
	log       *logger.Logger
	now       func() time.Time
}

// NewService creates a transition service.
func NewService(entries EntryStore, stages StageStore, checklist ChecklistStore, calc sla.Calculator, bus events.Bus, log *logger.Logger) *Service {
	if log == nil {
		log = logger.Nop()
	}
	return &Service{
		entries:   entries,
		stages:    stages,
		checklist: checklist,
		calc:      calc,
		bus:       bus,
		log:       log,
		now:       time.Now,
	}
}

// Preview evaluates a move without applying it.
func (s *Service) Preview(ctx context.Context, entryID, toStageID uuid.UUID) (Result, error) {
	req, err := s.buildRequest(ctx, entryID, toStageID)
	if err != nil {
		return Result{}, err
	}
	return Validate(req), nil
}

// Move validates the request and, when allowed, moves the entry into the
// destination stage with a fresh stage-entry timestamp. Blockers are returned
// as an apperr.KindBlocked error carrying the full Result as details.
func (s *Service) Move(ctx context.Context, entryID, toStageID uuid.UUID, actor string) (MoveResult, error) {
	req, err := s.buildRequest(ctx, entryID, toStageID)
	if err != nil {
		return MoveResult{}, err
	}

	result := Validate(req)
	if result.Cancelled {
		return MoveResult{Entry: req.Entry, Result: result}, nil
	}
	if !result.CanMove {
		s.log.TransitionBlocked(entryID.String(), req.From.Name, req.To.Name, result.Blockers)
		return MoveResult{}, apperr.Blocked(result.BlockerMessage()).WithDetails(result)
	}

	now := s.now()
	health := s.calc.Compute(now, now, req.To).Tier
	updated, err := s.entries.UpdateStage(ctx, entryID, req.To.ID, now, health)
	if err != nil {
		return MoveResult{}, err
	}

	if len(result.Warnings) > 0 {
		s.log.Info("stage move with warnings", "entryId", entryID, "from", req.From.Name, "to", req.To.Name, "warnings", result.Warnings)
	}

	if s.bus != nil {
		s.bus.Publish(ctx, events.LeadStageChanged{
			BaseEvent:   events.BaseEventAt(now),
			EntryID:     updated.ID,
			LeadID:      updated.LeadID,
			PipelineID:  updated.PipelineID,
			FromStageID: req.From.ID,
			ToStageID:   req.To.ID,
			Warnings:    result.Warnings,
			Actor:       actor,
		})
	}

	return MoveResult{Moved: true, Entry: updated, Result: result}, nil
}

func (s *Service) buildRequest(ctx context.Context, entryID, toStageID uuid.UUID) (Request, error) {
	entry, err := s.entries.GetEntry(ctx, entryID)
	if err != nil {
		return Request{}, err
	}

	from, err := s.stages.GetStage(ctx, entry.CurrentStageID)
	if err != nil {
		return Request{}, err
	}

	to := from
	if toStageID != from.ID {
		to, err = s.stages.GetStage(ctx, toStageID)
		if err != nil {
			return Request{}, err
		}
	}

	req := Request{Entry: entry, From: from, To: to}
	if from.ID == to.ID {
		return req, nil
	}

	state, err := s.checklist.CompletionState(ctx, entry.LeadID, from.ID)
	if err != nil {
		return Request{}, err
	}
	req.Checklist = BuildChecklist(from.Checklist, state)

	if to.WIPLimit != nil {
		occupancy, err := s.entries.CountActiveInStage(ctx, to.ID)
		if err != nil {
			return Request{}, err
		}
		req.TargetOccupancy = occupancy
	}

	return req, nil
}
