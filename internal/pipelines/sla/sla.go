// Package sla computes time-in-stage and deadline state for pipeline entries.
// Every function here is pure: the same inputs always yield the same Timing.
package sla

import (
	"time"

	"pipeline_backend/internal/pipelines/domain"
)

// DefaultWarningDays is the remaining-days threshold at which an entry turns yellow.
const DefaultWarningDays = 2

const day = 24 * time.Hour

// Timing describes where an entry stands against its stage SLA.
// DaysRemaining and OverdueDays are nil when the stage has no SLA;
// OverdueDays is only set once the deadline has passed.
type Timing struct {
	DaysInStage   int               `json:"daysInStage"`
	DaysRemaining *int              `json:"daysRemaining,omitempty"`
	OverdueDays   *int              `json:"overdueDays,omitempty"`
	Tier          domain.HealthTier `json:"tier"`
}

// IsOverdue reports whether the SLA has been breached.
func (t Timing) IsOverdue() bool {
	return t.OverdueDays != nil && *t.OverdueDays > 0
}

// Calculator applies a warning threshold to stage timings.
type Calculator struct {
	warningDays int
}

// NewCalculator returns a Calculator. Negative thresholds fall back to DefaultWarningDays.
func NewCalculator(warningDays int) Calculator {
	if warningDays < 0 {
		warningDays = DefaultWarningDays
	}
	return Calculator{warningDays: warningDays}
}

// WarningDays returns the configured threshold.
func (c Calculator) WarningDays() int {
	return c.warningDays
}

// Compute returns the timing of an entry that entered stage at enteredAt, observed at now.
func (c Calculator) Compute(enteredAt, now time.Time, stage domain.Stage) Timing {
	timing := Timing{
		DaysInStage: DaysBetween(enteredAt, now),
		Tier:        domain.HealthGreen,
	}
	if !stage.HasSLA() {
		return timing
	}

	remaining := *stage.SLADays - timing.DaysInStage
	timing.DaysRemaining = &remaining

	switch {
	case remaining < 0:
		overdue := -remaining
		timing.OverdueDays = &overdue
		timing.Tier = domain.HealthRed
	case remaining == 0 || remaining <= c.warningDays:
		timing.Tier = domain.HealthYellow
	}

	return timing
}

// ComputeStageTiming uses DefaultWarningDays.
func ComputeStageTiming(enteredAt, now time.Time, stage domain.Stage) Timing {
	return NewCalculator(DefaultWarningDays).Compute(enteredAt, now, stage)
}

// DaysBetween returns the whole days elapsed from from to to, floored.
// Clock skew that puts from after to yields 0.
func DaysBetween(from, to time.Time) int {
	elapsed := to.Sub(from)
	if elapsed <= 0 {
		return 0
	}
	return int(elapsed / day)
}
