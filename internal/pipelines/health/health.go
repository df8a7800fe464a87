// Package health folds per-entry SLA state into pipeline and stage metrics.
package health

import (
	"fmt"
	"math"
	"sort"
	"time"

	"pipeline_backend/internal/pipelines/domain"
	"pipeline_backend/internal/pipelines/sla"

	"github.com/google/uuid"
)

// Tier is the pipeline-level health band derived from the score.
type Tier string

const (
	TierExcellent Tier = "excellent"
	TierGood      Tier = "good"
	TierWarning   Tier = "warning"
	TierCritical  Tier = "critical"
)

const (
	overdueRatioThreshold   = 0.20
	slowStageDaysThreshold  = 10.0
	lowConversionThreshold  = 20.0
	bottleneckMinActive     = 5
	bottleneckSLAFraction   = 0.8
	stageTimeGraceDays      = 5.0
	overduePenalty          = 30.0
	stageTimePenaltyPerDay  = 2.0
	conversionBonusFactor   = 0.3
	conversionBonusCeiling  = 20.0
	excellentScoreThreshold = 85.0
	goodScoreThreshold      = 70.0
	warningScoreThreshold   = 50.0
)

// Snapshot is everything the aggregator needs for one pipeline.
type Snapshot struct {
	Pipeline domain.Pipeline
	Stages   []domain.Stage
	Entries  []domain.Entry
}

// PipelineHealth is the pipeline-level report.
type PipelineHealth struct {
	PipelineID      uuid.UUID `json:"pipelineId"`
	PipelineName    string    `json:"pipelineName"`
	TotalLeads      int       `json:"totalLeads"`
	ActiveLeads     int       `json:"activeLeads"`
	OverdueLeads    int       `json:"overdueLeads"`
	CompletedLeads  int       `json:"completedLeads"`
	ConversionRate  float64   `json:"conversionRate"`
	AvgStageTime    float64   `json:"avgStageTime"`
	SLACompliance   float64   `json:"slaCompliance"`
	HealthScore     float64   `json:"healthScore"`
	Tier            Tier      `json:"tier"`
	CriticalIssues  []string  `json:"criticalIssues"`
	Recommendations []string  `json:"recommendations"`
}

// StageHealth is the per-stage report inside one pipeline.
type StageHealth struct {
	StageID      uuid.UUID `json:"stageId"`
	StageName    string    `json:"stageName"`
	Order        int       `json:"order"`
	SLADays      *int      `json:"slaDays,omitempty"`
	ActiveLeads  int       `json:"activeLeads"`
	OverdueLeads int       `json:"overdueLeads"`
	AvgStageTime float64   `json:"avgStageTime"`
	IsBottleneck bool      `json:"isBottleneck"`
}

// Aggregator computes health reports at a given instant.
type Aggregator struct {
	calc sla.Calculator
}

// NewAggregator creates an Aggregator using calc for per-entry timing.
func NewAggregator(calc sla.Calculator) Aggregator {
	return Aggregator{calc: calc}
}

// AggregatePipeline computes the pipeline report. A pipeline without entries
// reports a neutral score of 100.
func (a Aggregator) AggregatePipeline(snapshot Snapshot, now time.Time) PipelineHealth {
	stages := indexStages(snapshot.Stages)
	report := PipelineHealth{
		PipelineID:      snapshot.Pipeline.ID,
		PipelineName:    snapshot.Pipeline.Name,
		TotalLeads:      len(snapshot.Entries),
		CriticalIssues:  []string{},
		Recommendations: []string{},
	}

	var stageDays int
	for _, entry := range snapshot.Entries {
		switch entry.Status {
		case domain.EntryCompleted:
			report.CompletedLeads++
		case domain.EntryActive:
			report.ActiveLeads++
			timing := a.calc.Compute(entry.StageEnteredAt, now, stages[entry.CurrentStageID])
			stageDays += timing.DaysInStage
			if timing.IsOverdue() {
				report.OverdueLeads++
			}
		}
	}

	if report.TotalLeads > 0 {
		report.ConversionRate = float64(report.CompletedLeads) / float64(report.TotalLeads) * 100
	}

	overdueRatio := 0.0
	report.SLACompliance = 100
	if report.ActiveLeads > 0 {
		report.AvgStageTime = float64(stageDays) / float64(report.ActiveLeads)
		overdueRatio = float64(report.OverdueLeads) / float64(report.ActiveLeads)
		report.SLACompliance = float64(report.ActiveLeads-report.OverdueLeads) / float64(report.ActiveLeads) * 100
	}

	report.HealthScore = Score(overdueRatio, report.AvgStageTime, report.ConversionRate)
	report.Tier = TierForScore(report.HealthScore)

	if overdueRatio > overdueRatioThreshold {
		report.CriticalIssues = append(report.CriticalIssues,
			fmt.Sprintf("%.0f%% of active leads are past their stage SLA", overdueRatio*100))
		report.Recommendations = append(report.Recommendations,
			"Review overdue leads and redistribute them across the team")
	}
	if report.AvgStageTime > slowStageDaysThreshold {
		report.CriticalIssues = append(report.CriticalIssues,
			fmt.Sprintf("leads spend %.1f days per stage on average", report.AvgStageTime))
		report.Recommendations = append(report.Recommendations,
			"Shorten stage cycles with follow-up automations")
	}
	if report.TotalLeads > 0 && report.ConversionRate < lowConversionThreshold {
		report.CriticalIssues = append(report.CriticalIssues,
			fmt.Sprintf("conversion rate is %.1f%%", report.ConversionRate))
		report.Recommendations = append(report.Recommendations,
			"Revisit qualification criteria for leads entering the pipeline")
	}

	return report
}

// AggregateStages computes per-stage metrics ordered by stage order.
func (a Aggregator) AggregateStages(snapshot Snapshot, now time.Time) []StageHealth {
	ordered := make([]domain.Stage, len(snapshot.Stages))
	copy(ordered, snapshot.Stages)
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].Order < ordered[j].Order })

	type accumulator struct {
		active  int
		overdue int
		days    int
	}
	acc := make(map[uuid.UUID]*accumulator, len(ordered))
	stages := indexStages(ordered)
	for _, stage := range ordered {
		acc[stage.ID] = &accumulator{}
	}

	for _, entry := range snapshot.Entries {
		if !entry.IsActive() {
			continue
		}
		bucket, ok := acc[entry.CurrentStageID]
		if !ok {
			continue
		}
		timing := a.calc.Compute(entry.StageEnteredAt, now, stages[entry.CurrentStageID])
		bucket.active++
		bucket.days += timing.DaysInStage
		if timing.IsOverdue() {
			bucket.overdue++
		}
	}

	out := make([]StageHealth, 0, len(ordered))
	for _, stage := range ordered {
		bucket := acc[stage.ID]
		report := StageHealth{
			StageID:      stage.ID,
			StageName:    stage.Name,
			Order:        stage.Order,
			SLADays:      stage.SLADays,
			ActiveLeads:  bucket.active,
			OverdueLeads: bucket.overdue,
		}
		if bucket.active > 0 {
			report.AvgStageTime = float64(bucket.days) / float64(bucket.active)
		}
		report.IsBottleneck = IsBottleneck(report.ActiveLeads, report.AvgStageTime, stage.SLADays)
		out = append(out, report)
	}
	return out
}

// Score computes the 0-100 health score.
func Score(overdueRatio, avgStageTime, conversionRate float64) float64 {
	score := 100.0
	score -= overduePenalty * overdueRatio
	score -= stageTimePenaltyPerDay * math.Max(0, avgStageTime-stageTimeGraceDays)
	score += math.Min(conversionBonusCeiling, conversionRate*conversionBonusFactor)
	return math.Max(0, math.Min(100, score))
}

// TierForScore maps a score to its band.
func TierForScore(score float64) Tier {
	switch {
	case score >= excellentScoreThreshold:
		return TierExcellent
	case score >= goodScoreThreshold:
		return TierGood
	case score >= warningScoreThreshold:
		return TierWarning
	default:
		return TierCritical
	}
}

// IsBottleneck reports whether a stage holds too many leads for too long.
// Stages without an SLA are never bottlenecks.
func IsBottleneck(active int, avgStageTime float64, slaDays *int) bool {
	if slaDays == nil || active <= bottleneckMinActive {
		return false
	}
	return avgStageTime > bottleneckSLAFraction*float64(*slaDays)
}

func indexStages(stages []domain.Stage) map[uuid.UUID]domain.Stage {
	out := make(map[uuid.UUID]domain.Stage, len(stages))
	for _, stage := range stages {
		out[stage.ID] = stage
	}
	return out
}
