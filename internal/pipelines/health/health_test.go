package health

import (
	"math"
	"testing"
	"time"

	"pipeline_backend/internal/pipelines/domain"
	"pipeline_backend/internal/pipelines/sla"

	"github.com/google/uuid"
)

const day = 24 * time.Hour

var now = time.Date(2026, 5, 4, 9, 0, 0, 0, time.UTC)

func newAggregator() Aggregator {
	return NewAggregator(sla.NewCalculator(sla.DefaultWarningDays))
}

func entry(stage domain.Stage, status domain.EntryStatus, age time.Duration) domain.Entry {
	return domain.Entry{
		ID:             uuid.New(),
		PipelineID:     stage.PipelineID,
		CurrentStageID: stage.ID,
		StageEnteredAt: now.Add(-age),
		Status:         status,
	}
}

func TestAggregatePipelineWithoutEntriesIsNeutral(t *testing.T) {
	report := newAggregator().AggregatePipeline(Snapshot{Pipeline: domain.Pipeline{ID: uuid.New(), Name: "Vendas"}}, now)

	if report.HealthScore != 100 {
		t.Fatalf("expected neutral score 100, got %v", report.HealthScore)
	}
	if report.SLACompliance != 100 {
		t.Fatalf("expected 100%% compliance, got %v", report.SLACompliance)
	}
	if report.Tier != TierExcellent {
		t.Fatalf("expected excellent tier, got %s", report.Tier)
	}
	if len(report.CriticalIssues) != 0 {
		t.Fatalf("expected no issues, got %v", report.CriticalIssues)
	}
}

func TestAggregatePipelineMetrics(t *testing.T) {
	pipelineID := uuid.New()
	proposal := domain.Stage{ID: uuid.New(), PipelineID: pipelineID, Name: "Proposta", Order: 1, SLADays: domain.IntPtr(5)}
	won := domain.Stage{ID: uuid.New(), PipelineID: pipelineID, Name: "Ganho", Order: 2, IsFinal: true}

	snapshot := Snapshot{
		Pipeline: domain.Pipeline{ID: pipelineID, Name: "Vendas"},
		Stages:   []domain.Stage{proposal, won},
		Entries: []domain.Entry{
			entry(proposal, domain.EntryActive, 7*day),
			entry(proposal, domain.EntryActive, 1*day),
			entry(won, domain.EntryCompleted, 3*day),
			entry(won, domain.EntryCompleted, 3*day),
		},
	}

	report := newAggregator().AggregatePipeline(snapshot, now)

	if report.TotalLeads != 4 || report.ActiveLeads != 2 || report.OverdueLeads != 1 || report.CompletedLeads != 2 {
		t.Fatalf("unexpected partition: %+v", report)
	}
	if report.ConversionRate != 50 {
		t.Fatalf("expected 50%% conversion, got %v", report.ConversionRate)
	}
	if report.AvgStageTime != 4 {
		t.Fatalf("expected avg stage time 4, got %v", report.AvgStageTime)
	}
	if report.SLACompliance != 50 {
		t.Fatalf("expected 50%% compliance, got %v", report.SLACompliance)
	}
	// 100 - 30*0.5 - 0 + min(20, 15) = 100 clamped
	if report.HealthScore != 100 {
		t.Fatalf("expected score 100, got %v", report.HealthScore)
	}
	if len(report.CriticalIssues) != 1 {
		t.Fatalf("expected overdue issue only, got %v", report.CriticalIssues)
	}
}

func TestScoreStaysWithinBounds(t *testing.T) {
	cases := []struct {
		overdue, avg, conversion float64
	}{
		{0, 0, 0},
		{1, 500, 0},
		{0, 0, 100},
		{1, 1e9, 0},
	}
	for _, tc := range cases {
		score := Score(tc.overdue, tc.avg, tc.conversion)
		if score < 0 || score > 100 || math.IsNaN(score) {
			t.Fatalf("score out of bounds for %+v: %v", tc, score)
		}
	}
}

func TestTierForScore(t *testing.T) {
	cases := map[float64]Tier{
		100: TierExcellent,
		85:  TierExcellent,
		84:  TierGood,
		70:  TierGood,
		50:  TierWarning,
		49:  TierCritical,
		0:   TierCritical,
	}
	for score, want := range cases {
		if got := TierForScore(score); got != want {
			t.Errorf("TierForScore(%v) = %s, want %s", score, got, want)
		}
	}
}

func TestAggregateStagesFlagsBottleneck(t *testing.T) {
	pipelineID := uuid.New()
	slow := domain.Stage{ID: uuid.New(), PipelineID: pipelineID, Name: "Negociação", Order: 2, SLADays: domain.IntPtr(5)}
	first := domain.Stage{ID: uuid.New(), PipelineID: pipelineID, Name: "Contato", Order: 1, SLADays: domain.IntPtr(5)}

	entries := make([]domain.Entry, 0, 8)
	for i := 0; i < 6; i++ {
		entries = append(entries, entry(slow, domain.EntryActive, 5*day))
	}
	for i := 0; i < 2; i++ {
		entries = append(entries, entry(first, domain.EntryActive, 5*day))
	}

	stages := newAggregator().AggregateStages(Snapshot{Stages: []domain.Stage{slow, first}, Entries: entries}, now)

	if len(stages) != 2 || stages[0].StageID != first.ID {
		t.Fatalf("expected stages sorted by order, got %+v", stages)
	}
	if stages[0].IsBottleneck {
		t.Fatal("expected stage with 2 leads not to be a bottleneck")
	}
	if !stages[1].IsBottleneck {
		t.Fatalf("expected slow stage to be a bottleneck: %+v", stages[1])
	}
}

func TestIsBottleneckRequiresSLA(t *testing.T) {
	if IsBottleneck(50, 100, nil) {
		t.Fatal("expected stage without SLA never to be a bottleneck")
	}
	if IsBottleneck(5, 100, domain.IntPtr(1)) {
		t.Fatal("expected exactly five leads not to exceed the minimum")
	}
}
