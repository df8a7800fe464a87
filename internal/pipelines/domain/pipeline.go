// Package domain holds the pipeline entities shared by the SLA calculator,
// the transition validator and the health aggregator.
package domain

import (
	"time"

	"github.com/google/uuid"
)

// HealthTier is the SLA classification of an entry.
type HealthTier string

const (
	HealthGreen  HealthTier = "green"
	HealthYellow HealthTier = "yellow"
	HealthRed    HealthTier = "red"
)

// EntryStatus is the lifecycle of a pipeline subscription.
type EntryStatus string

const (
	EntryActive    EntryStatus = "active"
	EntryCompleted EntryStatus = "completed"
	EntryArchived  EntryStatus = "archived"
)

// Pipeline is a named, ordered container of stages.
type Pipeline struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	IsActive  bool      `json:"isActive"`
	IsDefault bool      `json:"isDefault"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Stage is one step of a pipeline. SLADays and WIPLimit are optional.
type Stage struct {
	ID         uuid.UUID       `json:"id"`
	PipelineID uuid.UUID       `json:"pipelineId"`
	Name       string          `json:"name"`
	Order      int             `json:"order"`
	SLADays    *int            `json:"slaDays,omitempty"`
	WIPLimit   *int            `json:"wipLimit,omitempty"`
	IsFinal    bool            `json:"isFinal"`
	Checklist  []ChecklistItem `json:"checklist,omitempty"`
}

// HasSLA reports whether the stage carries a deadline.
func (s Stage) HasSLA() bool {
	return s.SLADays != nil
}

// ChecklistItem is a task attached to a stage. Required items gate forward moves.
type ChecklistItem struct {
	ID       uuid.UUID `json:"id"`
	StageID  uuid.UUID `json:"stageId"`
	Title    string    `json:"title"`
	Required bool      `json:"required"`
}

// ChecklistState maps checklist item ids to their completion flag for one lead.
type ChecklistState map[uuid.UUID]bool

// Entry is the subscription of one lead to one pipeline.
type Entry struct {
	ID             uuid.UUID   `json:"id"`
	LeadID         uuid.UUID   `json:"leadId"`
	PipelineID     uuid.UUID   `json:"pipelineId"`
	CurrentStageID uuid.UUID   `json:"currentStageId"`
	StageEnteredAt time.Time   `json:"stageEnteredAt"`
	Status         EntryStatus `json:"status"`
	Health         HealthTier  `json:"health"`
	CreatedAt      time.Time   `json:"createdAt"`
	UpdatedAt      time.Time   `json:"updatedAt"`
}

// IsActive reports whether the entry is an open subscription.
func (e Entry) IsActive() bool {
	return e.Status == EntryActive
}

// EntryWithStage joins an active entry with its current stage and lead name,
// the shape the notification scan iterates over.
type EntryWithStage struct {
	Entry    Entry
	Stage    Stage
	LeadName string
}

// IntPtr is a helper for optional stage limits.
func IntPtr(v int) *int {
	return &v
}
