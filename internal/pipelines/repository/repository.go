// Package repository provides pgx-backed persistence for pipelines, stages,
// checklists and pipeline entries.
package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"pipeline_backend/internal/pipelines/domain"
	"pipeline_backend/platform/apperr"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	pipelineNotFoundMsg = "pipeline not found"
	stageNotFoundMsg    = "stage not found"
	entryNotFoundMsg    = "pipeline entry not found"

	leadNotFoundMsg         = "lead not found"
	checklistRefNotFoundMsg = "lead or checklist item not found"
	pgForeignKeyViolation   = "23503"
)

const stageColumns = `id, pipeline_id, name, position, sla_days, wip_limit, is_final`

const entryColumns = `id, lead_id, pipeline_id, current_stage_id, stage_entered_at, status, health, created_at, updated_at`

// Repository provides database operations for the pipeline context.
type Repository struct {
	pool *pgxpool.Pool
}

// New creates a new pipelines repository.
func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// GetPipeline retrieves a pipeline by id.
func (r *Repository) GetPipeline(ctx context.Context, id uuid.UUID) (domain.Pipeline, error) {
	var p domain.Pipeline
	err := r.pool.QueryRow(ctx, `
		SELECT id, name, is_active, is_default, created_at, updated_at
		FROM pipelines WHERE id = $1`, id,
	).Scan(&p.ID, &p.Name, &p.IsActive, &p.IsDefault, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Pipeline{}, apperr.NotFound(pipelineNotFoundMsg)
		}
		return domain.Pipeline{}, fmt.Errorf("failed to get pipeline: %w", err)
	}
	return p, nil
}

// ListPipelines returns pipelines ordered by name.
func (r *Repository) ListPipelines(ctx context.Context, activeOnly bool) ([]domain.Pipeline, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, name, is_active, is_default, created_at, updated_at
		FROM pipelines
		WHERE ($1 = false OR is_active = true)
		ORDER BY name`, activeOnly)
	if err != nil {
		return nil, fmt.Errorf("failed to list pipelines: %w", err)
	}
	defer rows.Close()

	var out []domain.Pipeline
	for rows.Next() {
		var p domain.Pipeline
		if err := rows.Scan(&p.ID, &p.Name, &p.IsActive, &p.IsDefault, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan pipeline: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// GetStage retrieves a stage with its checklist items.
func (r *Repository) GetStage(ctx context.Context, id uuid.UUID) (domain.Stage, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+stageColumns+` FROM pipeline_stages WHERE id = $1`, id)
	stage, err := scanStage(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Stage{}, apperr.NotFound(stageNotFoundMsg)
		}
		return domain.Stage{}, fmt.Errorf("failed to get stage: %w", err)
	}

	items, err := r.listChecklistItems(ctx, []uuid.UUID{stage.ID})
	if err != nil {
		return domain.Stage{}, err
	}
	stage.Checklist = items[stage.ID]
	return stage, nil
}

// ListStages returns the stages of a pipeline in order, with checklist items.
func (r *Repository) ListStages(ctx context.Context, pipelineID uuid.UUID) ([]domain.Stage, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+stageColumns+`
		FROM pipeline_stages
		WHERE pipeline_id = $1
		ORDER BY position`, pipelineID)
	if err != nil {
		return nil, fmt.Errorf("failed to list stages: %w", err)
	}
	defer rows.Close()

	var stages []domain.Stage
	var ids []uuid.UUID
	for rows.Next() {
		stage, err := scanStage(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan stage: %w", err)
		}
		stages = append(stages, stage)
		ids = append(ids, stage.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list stages: %w", err)
	}

	items, err := r.listChecklistItems(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range stages {
		stages[i].Checklist = items[stages[i].ID]
	}
	return stages, nil
}

func (r *Repository) listChecklistItems(ctx context.Context, stageIDs []uuid.UUID) (map[uuid.UUID][]domain.ChecklistItem, error) {
	out := make(map[uuid.UUID][]domain.ChecklistItem, len(stageIDs))
	if len(stageIDs) == 0 {
		return out, nil
	}

	rows, err := r.pool.Query(ctx, `
		SELECT id, stage_id, title, required
		FROM stage_checklist_items
		WHERE stage_id = ANY($1)
		ORDER BY position, title`, stageIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to list checklist items: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var item domain.ChecklistItem
		if err := rows.Scan(&item.ID, &item.StageID, &item.Title, &item.Required); err != nil {
			return nil, fmt.Errorf("failed to scan checklist item: %w", err)
		}
		out[item.StageID] = append(out[item.StageID], item)
	}
	return out, rows.Err()
}

// CompletionState returns the completion flags of a lead for a stage's checklist.
func (r *Repository) CompletionState(ctx context.Context, leadID, stageID uuid.UUID) (domain.ChecklistState, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT s.item_id, s.completed
		FROM lead_checklist_states s
		JOIN stage_checklist_items i ON i.id = s.item_id
		WHERE s.lead_id = $1 AND i.stage_id = $2`, leadID, stageID)
	if err != nil {
		return nil, fmt.Errorf("failed to load checklist state: %w", err)
	}
	defer rows.Close()

	state := domain.ChecklistState{}
	for rows.Next() {
		var itemID uuid.UUID
		var completed bool
		if err := rows.Scan(&itemID, &completed); err != nil {
			return nil, fmt.Errorf("failed to scan checklist state: %w", err)
		}
		state[itemID] = completed
	}
	return state, rows.Err()
}

// SetChecklistItem records whether a lead completed a checklist item.
func (r *Repository) SetChecklistItem(ctx context.Context, leadID, itemID uuid.UUID, completed bool) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO lead_checklist_states (lead_id, item_id, completed, completed_at)
		VALUES ($1, $2, $3, CASE WHEN $3 THEN now() END)
		ON CONFLICT (lead_id, item_id) DO UPDATE
		SET completed = EXCLUDED.completed, completed_at = EXCLUDED.completed_at`,
		leadID, itemID, completed)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgForeignKeyViolation {
			return apperr.NotFound(checklistRefNotFoundMsg)
		}
		return fmt.Errorf("failed to set checklist item: %w", err)
	}
	return nil
}

// GetEntry retrieves a pipeline entry by id.
func (r *Repository) GetEntry(ctx context.Context, id uuid.UUID) (domain.Entry, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+entryColumns+` FROM pipeline_entries WHERE id = $1`, id)
	entry, err := scanEntry(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Entry{}, apperr.NotFound(entryNotFoundMsg)
		}
		return domain.Entry{}, fmt.Errorf("failed to get entry: %w", err)
	}
	return entry, nil
}

// ListEntries returns every entry of a pipeline regardless of status.
func (r *Repository) ListEntries(ctx context.Context, pipelineID uuid.UUID) ([]domain.Entry, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+entryColumns+`
		FROM pipeline_entries
		WHERE pipeline_id = $1
		ORDER BY created_at`, pipelineID)
	if err != nil {
		return nil, fmt.Errorf("failed to list entries: %w", err)
	}
	defer rows.Close()

	var out []domain.Entry
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan entry: %w", err)
		}
		out = append(out, entry)
	}
	return out, rows.Err()
}

// CountActiveInStage returns the number of active entries currently in stageID.
func (r *Repository) CountActiveInStage(ctx context.Context, stageID uuid.UUID) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx, `
		SELECT COUNT(*) FROM pipeline_entries
		WHERE current_stage_id = $1 AND status = 'active'`, stageID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count stage entries: %w", err)
	}
	return count, nil
}

// UpdateStage moves an entry and stamps the new stage entry time.
func (r *Repository) UpdateStage(ctx context.Context, entryID, stageID uuid.UUID, enteredAt time.Time, health domain.HealthTier) (domain.Entry, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE pipeline_entries
		SET current_stage_id = $2, stage_entered_at = $3, health = $4, updated_at = now()
		WHERE id = $1
		RETURNING `+entryColumns, entryID, stageID, enteredAt, string(health))
	entry, err := scanEntry(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Entry{}, apperr.NotFound(entryNotFoundMsg)
		}
		return domain.Entry{}, fmt.Errorf("failed to update entry stage: %w", err)
	}
	return entry, nil
}

// UpdateHealth rewrites the cached health tag of an entry.
func (r *Repository) UpdateHealth(ctx context.Context, entryID uuid.UUID, health domain.HealthTier) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE pipeline_entries SET health = $2, updated_at = now()
		WHERE id = $1`, entryID, string(health))
	if err != nil {
		return fmt.Errorf("failed to update entry health: %w", err)
	}
	return nil
}

// Inscribe opens an active entry for the lead in the first stage of the
// pipeline. It returns false when the lead already has an active entry there.
func (r *Repository) Inscribe(ctx context.Context, leadID, pipelineID uuid.UUID) (domain.Entry, bool, error) {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO pipeline_entries (id, lead_id, pipeline_id, current_stage_id, stage_entered_at, status, health)
		SELECT $1, $2, $3, s.id, now(), 'active', 'green'
		FROM pipeline_stages s
		WHERE s.pipeline_id = $3
		ORDER BY s.position
		LIMIT 1
		ON CONFLICT (lead_id, pipeline_id) WHERE status = 'active' DO NOTHING
		RETURNING `+entryColumns, uuid.New(), leadID, pipelineID)
	entry, err := scanEntry(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Entry{}, false, nil
		}
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgForeignKeyViolation {
			return domain.Entry{}, false, apperr.NotFound(leadNotFoundMsg)
		}
		return domain.Entry{}, false, fmt.Errorf("failed to inscribe lead: %w", err)
	}
	return entry, true, nil
}

// ListActiveWithSLA returns active entries whose current stage has an SLA.
func (r *Repository) ListActiveWithSLA(ctx context.Context) ([]domain.EntryWithStage, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT e.id, e.lead_id, e.pipeline_id, e.current_stage_id, e.stage_entered_at, e.status, e.health,
			e.created_at, e.updated_at,
			s.id, s.pipeline_id, s.name, s.position, s.sla_days, s.wip_limit, s.is_final,
			l.name
		FROM pipeline_entries e
		JOIN pipeline_stages s ON s.id = e.current_stage_id
		JOIN leads l ON l.id = e.lead_id
		WHERE e.status = 'active' AND s.sla_days IS NOT NULL
		ORDER BY e.stage_entered_at`)
	if err != nil {
		return nil, fmt.Errorf("failed to list active entries: %w", err)
	}
	defer rows.Close()

	var out []domain.EntryWithStage
	for rows.Next() {
		var item domain.EntryWithStage
		var status, health string
		e, s := &item.Entry, &item.Stage
		if err := rows.Scan(
			&e.ID, &e.LeadID, &e.PipelineID, &e.CurrentStageID, &e.StageEnteredAt, &status, &health,
			&e.CreatedAt, &e.UpdatedAt,
			&s.ID, &s.PipelineID, &s.Name, &s.Order, &s.SLADays, &s.WIPLimit, &s.IsFinal,
			&item.LeadName,
		); err != nil {
			return nil, fmt.Errorf("failed to scan active entry: %w", err)
		}
		e.Status = domain.EntryStatus(status)
		e.Health = domain.HealthTier(health)
		out = append(out, item)
	}
	return out, rows.Err()
}

func scanStage(row pgx.Row) (domain.Stage, error) {
	var s domain.Stage
	err := row.Scan(&s.ID, &s.PipelineID, &s.Name, &s.Order, &s.SLADays, &s.WIPLimit, &s.IsFinal)
	return s, err
}

func scanEntry(row pgx.Row) (domain.Entry, error) {
	var e domain.Entry
	var status, health string
	err := row.Scan(&e.ID, &e.LeadID, &e.PipelineID, &e.CurrentStageID, &e.StageEnteredAt,
		&status, &health, &e.CreatedAt, &e.UpdatedAt)
	e.Status = domain.EntryStatus(status)
	e.Health = domain.HealthTier(health)
	return e, err
}
