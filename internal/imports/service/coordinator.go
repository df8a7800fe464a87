// Package service runs bulk lead imports: batching, matching, merging and
// progress reporting.
package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"pipeline_backend/internal/events"
	"pipeline_backend/internal/leads/domain"
	"pipeline_backend/internal/leads/matching"
	pipelinedomain "pipeline_backend/internal/pipelines/domain"
	"pipeline_backend/platform/apperr"
	"pipeline_backend/platform/logger"
	"pipeline_backend/platform/phone"
	"pipeline_backend/platform/validator"

	"github.com/google/uuid"
)

// DefaultBatchSize is used when no batch size is configured.
const DefaultBatchSize = 50

// Outcome is the result of one record.
type Outcome string

const (
	OutcomeCreated Outcome = "created"
	OutcomeUpdated Outcome = "updated"
	OutcomeError   Outcome = "error"
)

// LeadStore is the lead persistence the coordinator writes through.
type LeadStore interface {
	matching.Store
	Create(ctx context.Context, lead *domain.Lead) error
	Update(ctx context.Context, lead *domain.Lead) error
	AddTags(ctx context.Context, leadID uuid.UUID, tags []string) error
}

// Inscriber opens pipeline entries for imported leads.
type Inscriber interface {
	Inscribe(ctx context.Context, leadID, pipelineID uuid.UUID) (pipelinedomain.Entry, bool, error)
}

// Job is one import request.
type Job struct {
	ID         string
	Rows       []map[string]string
	Defaults   map[string]string
	Tags       []string
	PipelineID *uuid.UUID
	Source     string
	Actor      string
}

// CoordinatorConfig holds the tunables of a Coordinator.
type CoordinatorConfig struct {
	BatchSize      int
	RequiredFields []string
	PhoneRegion    string
}

// Coordinator processes import jobs record by record.
type Coordinator struct {
	leads     LeadStore
	matcher   *matching.Matcher
	inscriber Inscriber
	progress  ProgressStore
	val       *validator.Validator
	phones    phone.Normalizer
	batchSize int
	required  []string
	bus       events.Bus
	log       *logger.Logger
	now       func() time.Time
}

// NewCoordinator creates a Coordinator. inscriber and bus may be nil.
func NewCoordinator(leads LeadStore, inscriber Inscriber, progress ProgressStore, val *validator.Validator, cfg CoordinatorConfig, bus events.Bus, log *logger.Logger) *Coordinator {
	batchSize := cfg.BatchSize
	if batchSize < 1 {
		batchSize = DefaultBatchSize
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Coordinator{
		leads:     leads,
		matcher:   matching.NewMatcher(leads),
		inscriber: inscriber,
		progress:  progress,
		val:       val,
		phones:    phone.NewNormalizer(cfg.PhoneRegion),
		batchSize: batchSize,
		required:  cfg.RequiredFields,
		bus:       bus,
		log:       log,
		now:       time.Now,
	}
}

// Run processes every row of job in source order, one record at a time, and
// saves progress after each record. A started job always runs to completion:
// cancellation of ctx is ignored and nothing is rolled back.
func (c *Coordinator) Run(ctx context.Context, job Job) Progress {
	ctx = context.WithoutCancel(ctx)
	log := c.log.WithJobID(job.ID)

	started := c.now()
	progress := Progress{
		JobID:     job.ID,
		Status:    StatusRunning,
		Total:     len(job.Rows),
		StartedAt: &started,
	}
	c.save(ctx, log, progress)

	for start := 0; start < len(job.Rows); start += c.batchSize {
		end := min(start+c.batchSize, len(job.Rows))
		for i := start; i < end; i++ {
			outcome, err := c.processRecord(ctx, log, job, job.Rows[i])
			progress.Processed++
			switch outcome {
			case OutcomeCreated:
				progress.Success++
				progress.Created++
			case OutcomeUpdated:
				progress.Success++
				progress.Updated++
			default:
				progress.Errors++
				if len(progress.Failures) < maxRecordedFailures {
					progress.Failures = append(progress.Failures, RecordFailure{Row: i + 1, Message: failureMessage(err)})
				}
				log.Warn("import record failed", "row", i+1, "error", err)
			}
			c.save(ctx, log, progress)
		}
		log.Info("import batch processed", "from", start+1, "to", end, "processed", progress.Processed, "total", progress.Total)
	}

	finished := c.now()
	progress.Status = StatusCompleted
	progress.FinishedAt = &finished
	c.save(ctx, log, progress)

	log.Info("import finished",
		"created", progress.Created,
		"updated", progress.Updated,
		"errors", progress.Errors,
		"durationMs", finished.Sub(started).Milliseconds(),
	)
	return progress
}

func (c *Coordinator) processRecord(ctx context.Context, log *logger.Logger, job Job, row map[string]string) (Outcome, error) {
	rec := matching.PrepareWithDefaults(row, job.Defaults, c.phones)

	if err := c.validateRequired(rec); err != nil {
		return OutcomeError, err
	}

	match, err := c.matcher.Match(ctx, rec)
	if err != nil {
		return OutcomeError, err
	}

	var lead domain.Lead
	var outcome Outcome
	if match.Found() {
		merged := matching.Merge(*match.Lead, rec)
		lead = merged.Lead
		if len(merged.Changes) > 0 {
			if err := c.leads.Update(ctx, &lead); err != nil {
				return OutcomeError, err
			}
		}
		c.publish(ctx, events.LeadMerged{
			BaseEvent: events.NewBaseEvent(),
			LeadID:    lead.ID,
			MatchedBy: string(match.Signal),
			Changes:   toFieldChanges(merged.Changes),
			Warnings:  merged.Warnings,
			Actor:     job.Actor,
		})
		outcome = OutcomeUpdated
	} else {
		created := matching.NewLead(rec)
		lead = created.Lead
		lead.ID = uuid.New()
		if err := c.leads.Create(ctx, &lead); err != nil {
			return OutcomeError, err
		}
		for _, warning := range created.Warnings {
			log.Info("import value coerced", "leadId", lead.ID, "warning", warning)
		}
		c.publish(ctx, events.LeadCreated{
			BaseEvent: events.NewBaseEvent(),
			LeadID:    lead.ID,
			Source:    job.Source,
			Actor:     job.Actor,
		})
		outcome = OutcomeCreated
	}

	c.applySecondarySteps(ctx, log, job, lead.ID, rec)
	return outcome, nil
}

// applySecondarySteps never fails the record: the lead write already succeeded.
func (c *Coordinator) applySecondarySteps(ctx context.Context, log *logger.Logger, job Job, leadID uuid.UUID, rec matching.Record) {
	tags := matching.SplitTags(strings.Join(append(rec.Tags(), job.Tags...), ","))
	if len(tags) > 0 {
		if err := c.leads.AddTags(ctx, leadID, tags); err != nil {
			log.Warn("tag assignment failed", "leadId", leadID, "error", err)
		}
	}

	if job.PipelineID == nil || c.inscriber == nil {
		return
	}
	entry, inscribed, err := c.inscriber.Inscribe(ctx, leadID, *job.PipelineID)
	if err != nil {
		log.Warn("pipeline inscription failed", "leadId", leadID, "pipelineId", *job.PipelineID, "error", err)
		return
	}
	if inscribed {
		c.publish(ctx, events.LeadInscribed{
			BaseEvent:  events.NewBaseEvent(),
			EntryID:    entry.ID,
			LeadID:     leadID,
			PipelineID: entry.PipelineID,
			StageID:    entry.CurrentStageID,
			Actor:      job.Actor,
		})
	}
}

func (c *Coordinator) validateRequired(rec matching.Record) error {
	for _, field := range c.required {
		if err := c.val.Var(rec.Get(field), "required"); err != nil {
			return apperr.Validation(fmt.Sprintf("missing required field %q", field))
		}
	}
	return nil
}

func (c *Coordinator) save(ctx context.Context, log *logger.Logger, progress Progress) {
	if c.progress == nil {
		return
	}
	if err := c.progress.Save(ctx, progress); err != nil {
		log.Warn("failed to save import progress", "error", err)
	}
}

func (c *Coordinator) publish(ctx context.Context, event events.Event) {
	if c.bus != nil {
		c.bus.Publish(ctx, event)
	}
}

func toFieldChanges(changes map[string]matching.Change) map[string]events.FieldChange {
	out := make(map[string]events.FieldChange, len(changes))
	for field, change := range changes {
		out[field] = events.FieldChange{Old: change.Old, New: change.New}
	}
	return out
}

// failureMessage hides infrastructure details from the per-row report.
func failureMessage(err error) string {
	if err == nil {
		return "unknown error"
	}
	if apperr.Is(err, apperr.KindValidation) {
		return err.Error()
	}
	return "failed to save lead"
}
