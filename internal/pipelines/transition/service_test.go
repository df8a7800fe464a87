package transition

import (
	"context"
	"testing"
	"time"

	"pipeline_backend/internal/events"
	"pipeline_backend/internal/pipelines/domain"
	"pipeline_backend/internal/pipelines/sla"
	"pipeline_backend/platform/apperr"
	"pipeline_backend/platform/logger"

	"github.com/google/uuid"
)

type fakeStore struct {
	entries   map[uuid.UUID]domain.Entry
	stages    map[uuid.UUID]domain.Stage
	state     domain.ChecklistState
	occupancy map[uuid.UUID]int
	updates   int
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		entries:   map[uuid.UUID]domain.Entry{},
		stages:    map[uuid.UUID]domain.Stage{},
		state:     domain.ChecklistState{},
		occupancy: map[uuid.UUID]int{},
	}
}

func (s *fakeStore) GetEntry(_ context.Context, id uuid.UUID) (domain.Entry, error) {
	entry, ok := s.entries[id]
	if !ok {
		return domain.Entry{}, apperr.NotFound("entry not found")
	}
	return entry, nil
}

func (s *fakeStore) CountActiveInStage(_ context.Context, stageID uuid.UUID) (int, error) {
	return s.occupancy[stageID], nil
}

func (s *fakeStore) UpdateStage(_ context.Context, entryID, stageID uuid.UUID, enteredAt time.Time, health domain.HealthTier) (domain.Entry, error) {
	entry := s.entries[entryID]
	entry.CurrentStageID = stageID
	entry.StageEnteredAt = enteredAt
	entry.Health = health
	s.entries[entryID] = entry
	s.updates++
	return entry, nil
}

func (s *fakeStore) GetStage(_ context.Context, id uuid.UUID) (domain.Stage, error) {
	stage, ok := s.stages[id]
	if !ok {
		return domain.Stage{}, apperr.NotFound("stage not found")
	}
	return stage, nil
}

func (s *fakeStore) CompletionState(context.Context, uuid.UUID, uuid.UUID) (domain.ChecklistState, error) {
	return s.state, nil
}

type recordingHandler struct {
	events chan events.Event
}

func (h recordingHandler) Handle(_ context.Context, event events.Event) error {
	h.events <- event
	return nil
}

func newServiceFixture(t *testing.T) (*Service, *fakeStore, fixture, *events.InMemoryBus) {
	t.Helper()
	f := newFixture()
	store := newFakeStore()
	for _, stage := range []domain.Stage{f.lead, f.qualified, f.proposal, f.won} {
		store.stages[stage.ID] = stage
	}

	f.entry.CurrentStageID = f.proposal.ID
	f.entry.StageEnteredAt = time.Now().Add(-7 * 24 * time.Hour)
	f.entry.Health = domain.HealthRed
	store.entries[f.entry.ID] = f.entry

	bus := events.NewInMemoryBus(logger.Nop())
	svc := NewService(store, store, store, sla.NewCalculator(sla.DefaultWarningDays), bus, logger.Nop())
	return svc, store, f, bus
}

func TestMoveRegressionSucceedsWithWarning(t *testing.T) {
	svc, store, f, bus := newServiceFixture(t)
	received := make(chan events.Event, 1)
	bus.Subscribe(events.LeadStageChanged{}.EventName(), recordingHandler{events: received})

	result, err := svc.Move(context.Background(), f.entry.ID, f.qualified.ID, "user-1")
	if err != nil {
		t.Fatalf("Move returned error: %v", err)
	}
	if !result.Moved {
		t.Fatal("expected entry to move")
	}
	if len(result.Result.Warnings) == 0 {
		t.Fatal("expected regression warning")
	}
	if store.entries[f.entry.ID].CurrentStageID != f.qualified.ID {
		t.Fatal("expected stored entry to point at the new stage")
	}
	if store.entries[f.entry.ID].Health != domain.HealthGreen {
		t.Fatalf("expected refreshed health, got %s", store.entries[f.entry.ID].Health)
	}

	bus.Wait()
	select {
	case event := <-received:
		changed := event.(events.LeadStageChanged)
		if changed.Actor != "user-1" || changed.FromStageID != f.proposal.ID {
			t.Fatalf("unexpected event payload: %+v", changed)
		}
	default:
		t.Fatal("expected stage change event")
	}
}

func TestMoveBlockedReturnsBlockedError(t *testing.T) {
	svc, store, f, _ := newServiceFixture(t)
	limited := store.stages[f.won.ID]
	limited.WIPLimit = domain.IntPtr(1)
	store.stages[f.won.ID] = limited
	store.occupancy[f.won.ID] = 1

	_, err := svc.Move(context.Background(), f.entry.ID, f.won.ID, "user-1")
	if !apperr.Is(err, apperr.KindBlocked) {
		t.Fatalf("expected blocked error, got %v", err)
	}
	if store.updates != 0 {
		t.Fatal("expected no mutation for a blocked move")
	}
}

func TestMoveSameStageDoesNotMutate(t *testing.T) {
	svc, store, f, _ := newServiceFixture(t)

	result, err := svc.Move(context.Background(), f.entry.ID, f.proposal.ID, "user-1")
	if err != nil {
		t.Fatalf("Move returned error: %v", err)
	}
	if result.Moved || !result.Result.Cancelled {
		t.Fatalf("expected cancellation, got %+v", result)
	}
	if store.updates != 0 {
		t.Fatal("expected no mutation for a same-stage request")
	}
}

func TestPreviewDoesNotMutate(t *testing.T) {
	svc, store, f, _ := newServiceFixture(t)

	result, err := svc.Preview(context.Background(), f.entry.ID, f.won.ID)
	if err != nil {
		t.Fatalf("Preview returned error: %v", err)
	}
	if !result.CanMove {
		t.Fatalf(msgExpectedCanMove, result.Blockers)
	}
	if store.updates != 0 {
		t.Fatal("expected preview to leave the entry untouched")
	}
}
