package service

import (
	"context"
	"testing"

	"pipeline_backend/internal/events"
	"pipeline_backend/internal/pipelines/domain"
	"pipeline_backend/platform/apperr"
	"pipeline_backend/platform/logger"

	"github.com/google/uuid"
)

type fakeWriter struct {
	pipelines map[uuid.UUID]domain.Pipeline
	active    map[[2]uuid.UUID]bool
	firstStep uuid.UUID
	checklist map[[2]uuid.UUID]bool
}

func newFakeWriter() *fakeWriter {
	return &fakeWriter{
		pipelines: map[uuid.UUID]domain.Pipeline{},
		active:    map[[2]uuid.UUID]bool{},
		firstStep: uuid.New(),
		checklist: map[[2]uuid.UUID]bool{},
	}
}

func (f *fakeWriter) GetPipeline(_ context.Context, id uuid.UUID) (domain.Pipeline, error) {
	p, ok := f.pipelines[id]
	if !ok {
		return domain.Pipeline{}, apperr.NotFound("pipeline not found")
	}
	return p, nil
}

func (f *fakeWriter) Inscribe(_ context.Context, leadID, pipelineID uuid.UUID) (domain.Entry, bool, error) {
	key := [2]uuid.UUID{leadID, pipelineID}
	if f.active[key] {
		return domain.Entry{}, false, nil
	}
	f.active[key] = true
	return domain.Entry{ID: uuid.New(), LeadID: leadID, PipelineID: pipelineID, CurrentStageID: f.firstStep, Status: domain.EntryActive}, true, nil
}

func (f *fakeWriter) SetChecklistItem(_ context.Context, leadID, itemID uuid.UUID, completed bool) error {
	f.checklist[[2]uuid.UUID{leadID, itemID}] = completed
	return nil
}

func TestInscribePublishesEventOnce(t *testing.T) {
	repo := newFakeWriter()
	pipelineID := uuid.New()
	repo.pipelines[pipelineID] = domain.Pipeline{ID: pipelineID, Name: "Vendas"}

	log := logger.Nop()
	bus := events.NewInMemoryBus(log)
	var got []events.LeadInscribed
	bus.Subscribe(events.LeadInscribed{}.EventName(), events.HandlerFunc(func(_ context.Context, e events.Event) error {
		got = append(got, e.(events.LeadInscribed))
		return nil
	}))
	svc := NewEnrollment(repo, bus, log)

	leadID := uuid.New()
	entry, err := svc.Inscribe(context.Background(), leadID, pipelineID, "user-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if entry.CurrentStageID != repo.firstStep {
		t.Errorf("expected entry in first stage, got %s", entry.CurrentStageID)
	}

	_, err = svc.Inscribe(context.Background(), leadID, pipelineID, "user-1")
	if !apperr.Is(err, apperr.KindConflict) {
		t.Fatalf("expected conflict on second inscription, got %v", err)
	}

	bus.Wait()
	if len(got) != 1 || got[0].EntryID != entry.ID || got[0].Actor != "user-1" {
		t.Errorf("expected one inscribed event, got %+v", got)
	}
}

func TestInscribeUnknownPipeline(t *testing.T) {
	svc := NewEnrollment(newFakeWriter(), events.NewInMemoryBus(logger.Nop()), logger.Nop())
	_, err := svc.Inscribe(context.Background(), uuid.New(), uuid.New(), "system")
	if !apperr.Is(err, apperr.KindNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestSetChecklistItem(t *testing.T) {
	repo := newFakeWriter()
	svc := NewEnrollment(repo, events.NewInMemoryBus(logger.Nop()), logger.Nop())
	leadID, itemID := uuid.New(), uuid.New()

	if err := svc.SetChecklistItem(context.Background(), leadID, itemID, true); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !repo.checklist[[2]uuid.UUID{leadID, itemID}] {
		t.Error("expected item to be completed")
	}
}
