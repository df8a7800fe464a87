package transition

import (
	"strings"
	"testing"

	"pipeline_backend/internal/pipelines/domain"

	"github.com/google/uuid"
)

const (
	msgExpectedCanMove = "expected move to be allowed, blockers: %v"
	msgExpectedBlocked = "expected move to be blocked"
)

type fixture struct {
	pipelineID uuid.UUID
	lead       domain.Stage
	qualified  domain.Stage
	proposal   domain.Stage
	won        domain.Stage
	entry      domain.Entry
}

func newFixture() fixture {
	pipelineID := uuid.New()
	f := fixture{
		pipelineID: pipelineID,
		lead:       domain.Stage{ID: uuid.New(), PipelineID: pipelineID, Name: "Lead", Order: 1},
		qualified:  domain.Stage{ID: uuid.New(), PipelineID: pipelineID, Name: "Qualificado", Order: 2},
		proposal:   domain.Stage{ID: uuid.New(), PipelineID: pipelineID, Name: "Proposta", Order: 3, SLADays: domain.IntPtr(5)},
		won:        domain.Stage{ID: uuid.New(), PipelineID: pipelineID, Name: "Ganho", Order: 4, IsFinal: true},
	}
	f.entry = domain.Entry{ID: uuid.New(), LeadID: uuid.New(), PipelineID: pipelineID, Status: domain.EntryActive}
	return f
}

func TestValidateSameStageIsCancellation(t *testing.T) {
	f := newFixture()
	result := Validate(Request{Entry: f.entry, From: f.qualified, To: f.qualified})

	if !result.Cancelled {
		t.Fatal("expected cancellation for same-stage request")
	}
	if result.CanMove {
		t.Fatal("expected cancellation not to allow a move")
	}
	if len(result.Blockers) != 0 {
		t.Fatalf("expected no blockers, got %v", result.Blockers)
	}
	if result.Message != MsgAlreadyInStage {
		t.Fatalf("unexpected message %q", result.Message)
	}
}

func TestValidateRequiredChecklistGatesForwardMove(t *testing.T) {
	f := newFixture()
	item := domain.ChecklistItem{ID: uuid.New(), StageID: f.qualified.ID, Title: "Enviar briefing", Required: true}

	req := Request{
		Entry:     f.entry,
		From:      f.qualified,
		To:        f.proposal,
		Checklist: []ChecklistStatus{{Item: item, Completed: false}},
	}

	result := Validate(req)
	if result.CanMove {
		t.Fatal(msgExpectedBlocked)
	}
	if len(result.Blockers) != 1 || !strings.Contains(result.Blockers[0], "Enviar briefing") {
		t.Fatalf("expected blocker naming the item, got %v", result.Blockers)
	}

	req.Checklist[0].Completed = true
	result = Validate(req)
	if !result.CanMove {
		t.Fatalf(msgExpectedCanMove, result.Blockers)
	}
}

func TestValidateOptionalChecklistOnlyWarns(t *testing.T) {
	f := newFixture()
	item := domain.ChecklistItem{ID: uuid.New(), Title: "Pedir indicação"}

	result := Validate(Request{
		Entry:     f.entry,
		From:      f.qualified,
		To:        f.proposal,
		Checklist: []ChecklistStatus{{Item: item}},
	})

	if !result.CanMove {
		t.Fatalf(msgExpectedCanMove, result.Blockers)
	}
	if len(result.Warnings) != 1 || !strings.Contains(result.Warnings[0], "Pedir indicação") {
		t.Fatalf("expected optional item warning, got %v", result.Warnings)
	}
}

func TestValidateWIPLimit(t *testing.T) {
	f := newFixture()
	f.proposal.WIPLimit = domain.IntPtr(2)

	full := Validate(Request{Entry: f.entry, From: f.qualified, To: f.proposal, TargetOccupancy: 2})
	if full.CanMove {
		t.Fatal(msgExpectedBlocked)
	}
	if !strings.Contains(full.Blockers[0], "2 of 2") {
		t.Fatalf("expected blocker to cite occupancy and limit, got %q", full.Blockers[0])
	}

	open := Validate(Request{Entry: f.entry, From: f.qualified, To: f.proposal, TargetOccupancy: 1})
	if !open.CanMove {
		t.Fatalf(msgExpectedCanMove, open.Blockers)
	}
}

func TestValidateRegressionWarns(t *testing.T) {
	f := newFixture()
	item := domain.ChecklistItem{ID: uuid.New(), Title: "Aprovar proposta", Required: true}

	result := Validate(Request{
		Entry:     f.entry,
		From:      f.proposal,
		To:        f.qualified,
		Checklist: []ChecklistStatus{{Item: item}},
	})

	if !result.CanMove {
		t.Fatalf(msgExpectedCanMove, result.Blockers)
	}
	if len(result.Warnings) != 1 || !strings.Contains(result.Warnings[0], "moving back") {
		t.Fatalf("expected regression warning, got %v", result.Warnings)
	}
}

func TestValidateLeavingFinalStageWarns(t *testing.T) {
	f := newFixture()

	result := Validate(Request{Entry: f.entry, From: f.won, To: f.proposal})
	if !result.CanMove {
		t.Fatalf(msgExpectedCanMove, result.Blockers)
	}

	found := false
	for _, warning := range result.Warnings {
		if strings.Contains(warning, "leaving final stage") {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected final stage warning, got %v", result.Warnings)
	}
}

func TestValidateRejectsForeignStageAndClosedEntry(t *testing.T) {
	f := newFixture()
	foreign := domain.Stage{ID: uuid.New(), PipelineID: uuid.New(), Name: "Outro", Order: 9}

	result := Validate(Request{Entry: f.entry, From: f.qualified, To: foreign})
	if result.CanMove {
		t.Fatal(msgExpectedBlocked)
	}

	closed := f.entry
	closed.Status = domain.EntryCompleted
	result = Validate(Request{Entry: closed, From: f.qualified, To: f.proposal})
	if result.CanMove {
		t.Fatal(msgExpectedBlocked)
	}
}
