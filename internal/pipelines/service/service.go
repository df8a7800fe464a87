// Package service exposes read-side pipeline operations: entry timing and
// pipeline/stage health reports.
package service

import (
	"context"
	"time"

	"pipeline_backend/internal/pipelines/domain"
	"pipeline_backend/internal/pipelines/health"
	"pipeline_backend/internal/pipelines/sla"

	"github.com/google/uuid"
)

// Reader is the read slice of the pipelines repository.
type Reader interface {
	GetPipeline(ctx context.Context, id uuid.UUID) (domain.Pipeline, error)
	ListPipelines(ctx context.Context, activeOnly bool) ([]domain.Pipeline, error)
	ListStages(ctx context.Context, pipelineID uuid.UUID) ([]domain.Stage, error)
	GetStage(ctx context.Context, id uuid.UUID) (domain.Stage, error)
	GetEntry(ctx context.Context, id uuid.UUID) (domain.Entry, error)
	ListEntries(ctx context.Context, pipelineID uuid.UUID) ([]domain.Entry, error)
}

// EntryTiming is the timing of one entry in its current stage.
type EntryTiming struct {
	EntryID   uuid.UUID  `json:"entryId"`
	StageID   uuid.UUID  `json:"stageId"`
	StageName string     `json:"stageName"`
	Timing    sla.Timing `json:"timing"`
}

// Service computes timing and health views.
type Service struct {
	repo       Reader
	calc       sla.Calculator
	aggregator health.Aggregator
	now        func() time.Time
}

// New creates a new pipelines read service.
func New(repo Reader, calc sla.Calculator) *Service {
	return &Service{
		repo:       repo,
		calc:       calc,
		aggregator: health.NewAggregator(calc),
		now:        time.Now,
	}
}

// Timing returns the SLA timing of an entry.
func (s *Service) Timing(ctx context.Context, entryID uuid.UUID) (EntryTiming, error) {
	entry, err := s.repo.GetEntry(ctx, entryID)
	if err != nil {
		return EntryTiming{}, err
	}
	stage, err := s.repo.GetStage(ctx, entry.CurrentStageID)
	if err != nil {
		return EntryTiming{}, err
	}
	return EntryTiming{
		EntryID:   entry.ID,
		StageID:   stage.ID,
		StageName: stage.Name,
		Timing:    s.calc.Compute(entry.StageEnteredAt, s.now(), stage),
	}, nil
}

// PipelineHealth returns the health report of one pipeline.
func (s *Service) PipelineHealth(ctx context.Context, pipelineID uuid.UUID) (health.PipelineHealth, error) {
	snapshot, err := s.snapshot(ctx, pipelineID)
	if err != nil {
		return health.PipelineHealth{}, err
	}
	return s.aggregator.AggregatePipeline(snapshot, s.now()), nil
}

// AllPipelinesHealth returns health reports for every active pipeline.
func (s *Service) AllPipelinesHealth(ctx context.Context) ([]health.PipelineHealth, error) {
	pipelines, err := s.repo.ListPipelines(ctx, true)
	if err != nil {
		return nil, err
	}

	now := s.now()
	out := make([]health.PipelineHealth, 0, len(pipelines))
	for _, p := range pipelines {
		snapshot, err := s.snapshotFor(ctx, p)
		if err != nil {
			return nil, err
		}
		out = append(out, s.aggregator.AggregatePipeline(snapshot, now))
	}
	return out, nil
}

// StageHealth returns per-stage metrics for one pipeline.
func (s *Service) StageHealth(ctx context.Context, pipelineID uuid.UUID) ([]health.StageHealth, error) {
	snapshot, err := s.snapshot(ctx, pipelineID)
	if err != nil {
		return nil, err
	}
	return s.aggregator.AggregateStages(snapshot, s.now()), nil
}

func (s *Service) snapshot(ctx context.Context, pipelineID uuid.UUID) (health.Snapshot, error) {
	p, err := s.repo.GetPipeline(ctx, pipelineID)
	if err != nil {
		return health.Snapshot{}, err
	}
	return s.snapshotFor(ctx, p)
}

func (s *Service) snapshotFor(ctx context.Context, p domain.Pipeline) (health.Snapshot, error) {
	stages, err := s.repo.ListStages(ctx, p.ID)
	if err != nil {
		return health.Snapshot{}, err
	}
	entries, err := s.repo.ListEntries(ctx, p.ID)
	if err != nil {
		return health.Snapshot{}, err
	}
	return health.Snapshot{Pipeline: p, Stages: stages, Entries: entries}, nil
}
