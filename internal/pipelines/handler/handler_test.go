package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"pipeline_backend/internal/events"
	"pipeline_backend/internal/pipelines/domain"
	"pipeline_backend/internal/pipelines/service"
	"pipeline_backend/internal/pipelines/sla"
	"pipeline_backend/internal/pipelines/transition"
	"pipeline_backend/platform/apperr"
	"pipeline_backend/platform/logger"
	"pipeline_backend/platform/validator"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const msgStatus = "expected status %d, got %d: %s"

// memRepo serves every store interface the handler's services need.
type memRepo struct {
	pipeline  domain.Pipeline
	stages    map[uuid.UUID]domain.Stage
	entries   map[uuid.UUID]domain.Entry
	checklist domain.ChecklistState
	inscribed map[uuid.UUID]bool
}

func newMemRepo() (*memRepo, domain.Stage, domain.Stage) {
	pipelineID := uuid.New()
	first := domain.Stage{ID: uuid.New(), PipelineID: pipelineID, Name: "Novo", Order: 0, SLADays: domain.IntPtr(2)}
	second := domain.Stage{ID: uuid.New(), PipelineID: pipelineID, Name: "Proposta", Order: 1, SLADays: domain.IntPtr(5)}
	return &memRepo{
		pipeline:  domain.Pipeline{ID: pipelineID, Name: "Vendas", IsActive: true},
		stages:    map[uuid.UUID]domain.Stage{first.ID: first, second.ID: second},
		entries:   map[uuid.UUID]domain.Entry{},
		checklist: domain.ChecklistState{},
		inscribed: map[uuid.UUID]bool{},
	}, first, second
}

func (r *memRepo) GetPipeline(_ context.Context, id uuid.UUID) (domain.Pipeline, error) {
	if id != r.pipeline.ID {
		return domain.Pipeline{}, apperr.NotFound("pipeline not found")
	}
	return r.pipeline, nil
}

func (r *memRepo) ListPipelines(context.Context, bool) ([]domain.Pipeline, error) {
	return []domain.Pipeline{r.pipeline}, nil
}

func (r *memRepo) ListStages(context.Context, uuid.UUID) ([]domain.Stage, error) {
	out := make([]domain.Stage, 0, len(r.stages))
	for _, s := range r.stages {
		out = append(out, s)
	}
	return out, nil
}

func (r *memRepo) GetStage(_ context.Context, id uuid.UUID) (domain.Stage, error) {
	s, ok := r.stages[id]
	if !ok {
		return domain.Stage{}, apperr.NotFound("stage not found")
	}
	return s, nil
}

func (r *memRepo) GetEntry(_ context.Context, id uuid.UUID) (domain.Entry, error) {
	e, ok := r.entries[id]
	if !ok {
		return domain.Entry{}, apperr.NotFound("pipeline entry not found")
	}
	return e, nil
}

func (r *memRepo) ListEntries(context.Context, uuid.UUID) ([]domain.Entry, error) {
	out := make([]domain.Entry, 0, len(r.entries))
	for _, e := range r.entries {
		out = append(out, e)
	}
	return out, nil
}

func (r *memRepo) CountActiveInStage(_ context.Context, stageID uuid.UUID) (int, error) {
	n := 0
	for _, e := range r.entries {
		if e.CurrentStageID == stageID && e.IsActive() {
			n++
		}
	}
	return n, nil
}

func (r *memRepo) UpdateStage(_ context.Context, entryID, stageID uuid.UUID, enteredAt time.Time, health domain.HealthTier) (domain.Entry, error) {
	e := r.entries[entryID]
	e.CurrentStageID, e.StageEnteredAt, e.Health = stageID, enteredAt, health
	r.entries[entryID] = e
	return e, nil
}

func (r *memRepo) CompletionState(context.Context, uuid.UUID, uuid.UUID) (domain.ChecklistState, error) {
	return r.checklist, nil
}

func (r *memRepo) Inscribe(_ context.Context, leadID, pipelineID uuid.UUID) (domain.Entry, bool, error) {
	if r.inscribed[leadID] {
		return domain.Entry{}, false, nil
	}
	r.inscribed[leadID] = true
	var first domain.Stage
	for _, s := range r.stages {
		if s.Order == 0 {
			first = s
		}
	}
	e := domain.Entry{ID: uuid.New(), LeadID: leadID, PipelineID: pipelineID, CurrentStageID: first.ID, Status: domain.EntryActive, Health: domain.HealthGreen}
	r.entries[e.ID] = e
	return e, true, nil
}

func (r *memRepo) SetChecklistItem(_ context.Context, _ uuid.UUID, itemID uuid.UUID, completed bool) error {
	r.checklist[itemID] = completed
	return nil
}

func newTestEngine(repo *memRepo) *gin.Engine {
	gin.SetMode(gin.TestMode)
	log := logger.Nop()
	bus := events.NewInMemoryBus(log)
	calc := sla.NewCalculator(sla.DefaultWarningDays)
	h := New(
		transition.NewService(repo, repo, repo, calc, bus, log),
		service.New(repo, calc),
		service.NewEnrollment(repo, bus, log),
		validator.New(),
	)
	r := gin.New()
	h.RegisterRoutes(r.Group("/api/v1"))
	return r
}

func do(r *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func addEntry(repo *memRepo, stage domain.Stage) domain.Entry {
	e := domain.Entry{
		ID:             uuid.New(),
		LeadID:         uuid.New(),
		PipelineID:     repo.pipeline.ID,
		CurrentStageID: stage.ID,
		StageEnteredAt: time.Now().Add(-24 * time.Hour),
		Status:         domain.EntryActive,
		Health:         domain.HealthGreen,
	}
	repo.entries[e.ID] = e
	return e
}

func TestMoveBlockedByRequiredChecklist(t *testing.T) {
	repo, first, second := newMemRepo()
	itemID := uuid.New()
	second.Checklist = []domain.ChecklistItem{{ID: itemID, StageID: second.ID, Title: "Enviar proposta", Required: true}}
	repo.stages[second.ID] = second
	entry := addEntry(repo, first)
	r := newTestEngine(repo)

	w := do(r, http.MethodPost, "/api/v1/entries/"+entry.ID.String()+"/move", gin.H{"toStageId": second.ID.String()})
	if w.Code != http.StatusUnprocessableEntity {
		t.Fatalf(msgStatus, http.StatusUnprocessableEntity, w.Code, w.Body.String())
	}
	var body struct {
		Error   string `json:"error"`
		Details struct {
			Blockers []string `json:"blockers"`
		} `json:"details"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid body: %v", err)
	}
	if len(body.Details.Blockers) != 1 || body.Error == "" {
		t.Errorf("expected one blocker surfaced verbatim, got %+v", body)
	}
	if repo.entries[entry.ID].CurrentStageID != first.ID {
		t.Error("blocked move must not change the entry")
	}

	w = do(r, http.MethodPut, "/api/v1/leads/"+entry.LeadID.String()+"/checklist/"+itemID.String(), gin.H{"completed": true})
	if w.Code != http.StatusOK {
		t.Fatalf(msgStatus, http.StatusOK, w.Code, w.Body.String())
	}

	w = do(r, http.MethodPost, "/api/v1/entries/"+entry.ID.String()+"/move", gin.H{"toStageId": second.ID.String()})
	if w.Code != http.StatusOK {
		t.Fatalf(msgStatus, http.StatusOK, w.Code, w.Body.String())
	}
	if repo.entries[entry.ID].CurrentStageID != second.ID {
		t.Error("expected entry to move once the checklist is complete")
	}
}

func TestMovePreviewDoesNotMutate(t *testing.T) {
	repo, first, second := newMemRepo()
	entry := addEntry(repo, first)
	r := newTestEngine(repo)

	w := do(r, http.MethodPost, "/api/v1/entries/"+entry.ID.String()+"/move/preview", gin.H{"toStageId": second.ID.String()})
	if w.Code != http.StatusOK {
		t.Fatalf(msgStatus, http.StatusOK, w.Code, w.Body.String())
	}
	if repo.entries[entry.ID].CurrentStageID != first.ID {
		t.Error("preview must not move the entry")
	}
}

func TestMoveRejectsInvalidBody(t *testing.T) {
	repo, first, _ := newMemRepo()
	entry := addEntry(repo, first)
	r := newTestEngine(repo)

	w := do(r, http.MethodPost, "/api/v1/entries/"+entry.ID.String()+"/move", gin.H{"toStageId": "not-a-uuid"})
	if w.Code != http.StatusBadRequest {
		t.Fatalf(msgStatus, http.StatusBadRequest, w.Code, w.Body.String())
	}
	w = do(r, http.MethodPost, "/api/v1/entries/nope/move", gin.H{"toStageId": uuid.NewString()})
	if w.Code != http.StatusBadRequest {
		t.Fatalf(msgStatus, http.StatusBadRequest, w.Code, w.Body.String())
	}
}

func TestInscribeThenConflict(t *testing.T) {
	repo, _, _ := newMemRepo()
	r := newTestEngine(repo)
	leadID := uuid.NewString()
	path := "/api/v1/pipelines/" + repo.pipeline.ID.String() + "/entries"

	if w := do(r, http.MethodPost, path, gin.H{"leadId": leadID}); w.Code != http.StatusCreated {
		t.Fatalf(msgStatus, http.StatusCreated, w.Code, w.Body.String())
	}
	if w := do(r, http.MethodPost, path, gin.H{"leadId": leadID}); w.Code != http.StatusConflict {
		t.Fatalf(msgStatus, http.StatusConflict, w.Code, w.Body.String())
	}
	if w := do(r, http.MethodPost, "/api/v1/pipelines/"+uuid.NewString()+"/entries", gin.H{"leadId": leadID}); w.Code != http.StatusNotFound {
		t.Fatalf(msgStatus, http.StatusNotFound, w.Code, w.Body.String())
	}
}

func TestChecklistRequiresCompletedFlag(t *testing.T) {
	repo, _, _ := newMemRepo()
	r := newTestEngine(repo)
	w := do(r, http.MethodPut, "/api/v1/leads/"+uuid.NewString()+"/checklist/"+uuid.NewString(), gin.H{})
	if w.Code != http.StatusBadRequest {
		t.Fatalf(msgStatus, http.StatusBadRequest, w.Code, w.Body.String())
	}
}

func TestTimingAndHealthEndpoints(t *testing.T) {
	repo, first, _ := newMemRepo()
	entry := addEntry(repo, first)
	r := newTestEngine(repo)

	w := do(r, http.MethodGet, "/api/v1/entries/"+entry.ID.String()+"/timing", nil)
	if w.Code != http.StatusOK {
		t.Fatalf(msgStatus, http.StatusOK, w.Code, w.Body.String())
	}
	var timing service.EntryTiming
	if err := json.Unmarshal(w.Body.Bytes(), &timing); err != nil {
		t.Fatalf("invalid body: %v", err)
	}
	if timing.Timing.DaysInStage != 1 || timing.Timing.Tier != domain.HealthYellow {
		t.Errorf("unexpected timing %+v", timing.Timing)
	}

	for _, path := range []string{
		"/api/v1/pipelines/health",
		"/api/v1/pipelines/" + repo.pipeline.ID.String() + "/health",
		"/api/v1/pipelines/" + repo.pipeline.ID.String() + "/stages/health",
	} {
		if w := do(r, http.MethodGet, path, nil); w.Code != http.StatusOK {
			t.Errorf("%s: "+msgStatus, path, http.StatusOK, w.Code, w.Body.String())
		}
	}
	if w := do(r, http.MethodGet, "/api/v1/pipelines/"+uuid.NewString()+"/health", nil); w.Code != http.StatusNotFound {
		t.Errorf(msgStatus, http.StatusNotFound, w.Code, w.Body.String())
	}
}
