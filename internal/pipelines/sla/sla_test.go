package sla

import (
	"testing"
	"time"

	"pipeline_backend/internal/pipelines/domain"
)

const msgUnexpectedTier = "expected tier %s, got %s"

var baseTime = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

func stageWithSLA(days int) domain.Stage {
	return domain.Stage{Name: "Proposta", SLADays: domain.IntPtr(days)}
}

func TestComputeWithoutSLAIsAlwaysGreen(t *testing.T) {
	timing := ComputeStageTiming(baseTime.Add(-40*day), baseTime, domain.Stage{Name: "Won"})

	if timing.Tier != domain.HealthGreen {
		t.Fatalf(msgUnexpectedTier, domain.HealthGreen, timing.Tier)
	}
	if timing.DaysRemaining != nil || timing.OverdueDays != nil {
		t.Fatalf("expected no remaining/overdue days without SLA, got %+v", timing)
	}
	if timing.DaysInStage != 40 {
		t.Fatalf("expected 40 days in stage, got %d", timing.DaysInStage)
	}
}

func TestComputeTiers(t *testing.T) {
	cases := []struct {
		name        string
		elapsed     time.Duration
		slaDays     int
		wantTier    domain.HealthTier
		wantOverdue int
	}{
		{"fresh entry", 0, 10, domain.HealthGreen, 0},
		{"just outside warning", 7 * day, 10, domain.HealthGreen, 0},
		{"inside warning", 8 * day, 10, domain.HealthYellow, 0},
		{"deadline day", 10 * day, 10, domain.HealthYellow, 0},
		{"partial day floors", 10*day + 23*time.Hour, 10, domain.HealthYellow, 0},
		{"one day overdue", 11 * day, 10, domain.HealthRed, 1},
		{"zero day sla", 0, 0, domain.HealthYellow, 0},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			timing := ComputeStageTiming(baseTime.Add(-tc.elapsed), baseTime, stageWithSLA(tc.slaDays))
			if timing.Tier != tc.wantTier {
				t.Fatalf(msgUnexpectedTier, tc.wantTier, timing.Tier)
			}
			if tc.wantOverdue == 0 && timing.OverdueDays != nil {
				t.Fatalf("expected no overdue days, got %d", *timing.OverdueDays)
			}
			if tc.wantOverdue > 0 && (timing.OverdueDays == nil || *timing.OverdueDays != tc.wantOverdue) {
				t.Fatalf("expected %d overdue days, got %v", tc.wantOverdue, timing.OverdueDays)
			}
		})
	}
}

func TestComputeIsPure(t *testing.T) {
	entered := baseTime.Add(-3*day - 5*time.Hour)
	stage := stageWithSLA(4)

	first := ComputeStageTiming(entered, baseTime, stage)
	second := ComputeStageTiming(entered, baseTime, stage)

	if first.DaysInStage != second.DaysInStage || first.Tier != second.Tier ||
		*first.DaysRemaining != *second.DaysRemaining {
		t.Fatalf("expected identical results, got %+v and %+v", first, second)
	}
}

func TestComputeScenarioSevenDaysIntoFiveDaySLA(t *testing.T) {
	timing := ComputeStageTiming(baseTime.Add(-7*day), baseTime, stageWithSLA(5))

	if timing.Tier != domain.HealthRed {
		t.Fatalf(msgUnexpectedTier, domain.HealthRed, timing.Tier)
	}
	if timing.OverdueDays == nil || *timing.OverdueDays != 2 {
		t.Fatalf("expected 2 overdue days, got %v", timing.OverdueDays)
	}
}

func TestCalculatorHonorsCustomWarning(t *testing.T) {
	calc := NewCalculator(0)
	timing := calc.Compute(baseTime.Add(-9*day), baseTime, stageWithSLA(10))
	if timing.Tier != domain.HealthGreen {
		t.Fatalf(msgUnexpectedTier, domain.HealthGreen, timing.Tier)
	}

	if NewCalculator(-1).WarningDays() != DefaultWarningDays {
		t.Fatal("expected negative threshold to fall back to default")
	}
}

func TestDaysBetweenClampsNegativeSpans(t *testing.T) {
	if got := DaysBetween(baseTime.Add(day), baseTime); got != 0 {
		t.Fatalf("expected 0 for future entry timestamp, got %d", got)
	}
}
