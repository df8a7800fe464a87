package service

import (
	"context"
	"strings"
	"sync"
	"time"

	"pipeline_backend/internal/imports/transport"
	"pipeline_backend/internal/scheduler"
	"pipeline_backend/platform/apperr"
	"pipeline_backend/platform/logger"

	"github.com/google/uuid"
)

const importNotFoundMsg = "import job not found"

// Service starts import jobs and reports their progress. With an enqueuer the
// job runs on the scheduler worker; without one it runs in this process.
type Service struct {
	coordinator *Coordinator
	progress    ProgressStore
	enqueuer    scheduler.ImportEnqueuer
	log         *logger.Logger
	wg          sync.WaitGroup
	now         func() time.Time
}

// New creates an import service. enqueuer may be nil.
func New(coordinator *Coordinator, progress ProgressStore, enqueuer scheduler.ImportEnqueuer, log *logger.Logger) *Service {
	if log == nil {
		log = logger.Nop()
	}
	return &Service{
		coordinator: coordinator,
		progress:    progress,
		enqueuer:    enqueuer,
		log:         log,
		now:         time.Now,
	}
}

// Start registers a new job and hands it off for processing.
func (s *Service) Start(ctx context.Context, req transport.StartImportRequest, actor string) (Progress, error) {
	job := Job{
		ID:       uuid.NewString(),
		Rows:     req.Rows,
		Defaults: req.Defaults,
		Tags:     req.Tags,
		Source:   strings.TrimSpace(req.Source),
		Actor:    actor,
	}
	if req.PipelineID != "" {
		pipelineID, err := uuid.Parse(req.PipelineID)
		if err != nil {
			return Progress{}, apperr.Validation("invalid pipeline id")
		}
		job.PipelineID = &pipelineID
	}

	queued := Progress{JobID: job.ID, Status: StatusQueued, Total: len(job.Rows)}
	if err := s.progress.Save(ctx, queued); err != nil {
		return Progress{}, apperr.Unavailable("failed to register import", err)
	}

	if s.enqueuer != nil {
		if err := s.enqueuer.EnqueueImport(ctx, toPayload(job)); err != nil {
			finished := s.now()
			queued.Status = StatusFailed
			queued.FinishedAt = &finished
			_ = s.progress.Save(ctx, queued)
			return Progress{}, apperr.Unavailable("failed to queue import", err)
		}
		s.log.Info("import job queued", "jobId", job.ID, "rows", len(job.Rows))
		return queued, nil
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.coordinator.Run(context.WithoutCancel(ctx), job)
	}()
	return queued, nil
}

// Progress returns the latest snapshot of a job.
func (s *Service) Progress(ctx context.Context, jobID string) (Progress, error) {
	progress, ok, err := s.progress.Get(ctx, jobID)
	if err != nil {
		return Progress{}, apperr.Unavailable("failed to load import progress", err)
	}
	if !ok {
		return Progress{}, apperr.NotFound(importNotFoundMsg)
	}
	return progress, nil
}

// ProcessImport runs a job delivered by the scheduler worker.
func (s *Service) ProcessImport(ctx context.Context, payload scheduler.ImportRunPayload) error {
	job, err := fromPayload(payload)
	if err != nil {
		return err
	}
	s.coordinator.Run(ctx, job)
	return nil
}

// Wait blocks until in-process jobs have finished.
func (s *Service) Wait() {
	s.wg.Wait()
}

func toPayload(job Job) scheduler.ImportRunPayload {
	payload := scheduler.ImportRunPayload{
		JobID:    job.ID,
		Rows:     job.Rows,
		Defaults: job.Defaults,
		Tags:     job.Tags,
		Source:   job.Source,
		Actor:    job.Actor,
	}
	if job.PipelineID != nil {
		id := job.PipelineID.String()
		payload.PipelineID = &id
	}
	return payload
}

func fromPayload(payload scheduler.ImportRunPayload) (Job, error) {
	job := Job{
		ID:       payload.JobID,
		Rows:     payload.Rows,
		Defaults: payload.Defaults,
		Tags:     payload.Tags,
		Source:   payload.Source,
		Actor:    payload.Actor,
	}
	if payload.PipelineID != nil {
		pipelineID, err := uuid.Parse(*payload.PipelineID)
		if err != nil {
			return Job{}, apperr.Validation("invalid pipeline id")
		}
		job.PipelineID = &pipelineID
	}
	return job, nil
}

var _ scheduler.ImportProcessor = (*Service)(nil)
