// Package events provides domain event definitions for decoupled,
// event-driven communication between modules.
// Infrastructure (Bus, Handler) is in platform/events.
package events

import (
	"pipeline_backend/platform/events"

	"github.com/google/uuid"
)

// Re-export platform types for convenience
type (
	Event       = events.Event
	Bus         = events.Bus
	Handler     = events.Handler
	HandlerFunc = events.HandlerFunc
	BaseEvent   = events.BaseEvent
)

// Re-export platform functions
var (
	NewBaseEvent = events.NewBaseEvent
	BaseEventAt  = events.BaseEventAt
)

// =============================================================================
// Pipeline Domain Events
// =============================================================================

// LeadStageChanged is published after an entry moved to another stage.
type LeadStageChanged struct {
	BaseEvent
	EntryID     uuid.UUID `json:"entryId"`
	LeadID      uuid.UUID `json:"leadId"`
	PipelineID  uuid.UUID `json:"pipelineId"`
	FromStageID uuid.UUID `json:"fromStageId"`
	ToStageID   uuid.UUID `json:"toStageId"`
	Warnings    []string  `json:"warnings,omitempty"`
	Actor       string    `json:"actor"`
}

func (e LeadStageChanged) EventName() string { return "pipelines.entry.stage_changed" }

// LeadInscribed is published when a lead gets a new active entry in a pipeline.
type LeadInscribed struct {
	BaseEvent
	EntryID    uuid.UUID `json:"entryId"`
	LeadID     uuid.UUID `json:"leadId"`
	PipelineID uuid.UUID `json:"pipelineId"`
	StageID    uuid.UUID `json:"stageId"`
	Actor      string    `json:"actor"`
}

func (e LeadInscribed) EventName() string { return "pipelines.entry.inscribed" }

// =============================================================================
// Lead Domain Events
// =============================================================================

// FieldChange is one field-level difference produced by a merge.
type FieldChange struct {
	Old any `json:"old"`
	New any `json:"new"`
}

// LeadCreated is published when an import creates a new lead.
type LeadCreated struct {
	BaseEvent
	LeadID uuid.UUID `json:"leadId"`
	Source string    `json:"source"`
	Actor  string    `json:"actor"`
}

func (e LeadCreated) EventName() string { return "leads.lead.created" }

// LeadMerged is published when an incoming record was merged into an existing lead.
type LeadMerged struct {
	BaseEvent
	LeadID    uuid.UUID              `json:"leadId"`
	MatchedBy string                 `json:"matchedBy"`
	Changes   map[string]FieldChange `json:"changes"`
	Warnings  []string               `json:"warnings,omitempty"`
	Actor     string                 `json:"actor"`
}

func (e LeadMerged) EventName() string { return "leads.lead.merged" }

// =============================================================================
// Notification Domain Events
// =============================================================================

// NotificationRecorded is published after the trigger engine recorded a notification.
type NotificationRecorded struct {
	BaseEvent
	SubjectID uuid.UUID `json:"subjectId"`
	Kind      string    `json:"kind"`
	DedupKey  string    `json:"dedupKey"`
}

func (e NotificationRecorded) EventName() string { return "notification.recorded" }
