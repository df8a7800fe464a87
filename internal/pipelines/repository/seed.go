package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

// StageDefinition describes a stage to upsert.
type StageDefinition struct {
	Name      string                `yaml:"name" validate:"required"`
	Position  int                   `yaml:"position" validate:"gte=0"`
	SLADays   *int                  `yaml:"slaDays" validate:"omitempty,gte=0"`
	WIPLimit  *int                  `yaml:"wipLimit" validate:"omitempty,gte=1"`
	IsFinal   bool                  `yaml:"isFinal"`
	Checklist []ChecklistDefinition `yaml:"checklist" validate:"dive"`
}

// ChecklistDefinition describes a checklist item to upsert.
type ChecklistDefinition struct {
	Title    string `yaml:"title" validate:"required"`
	Required bool   `yaml:"required"`
}

// PipelineDefinition describes a pipeline with its stages.
type PipelineDefinition struct {
	Name      string            `yaml:"name" validate:"required"`
	IsActive  bool              `yaml:"isActive"`
	IsDefault bool              `yaml:"isDefault"`
	Stages    []StageDefinition `yaml:"stages" validate:"required,min=1,dive"`
}

// UpsertPipeline creates or updates a pipeline, its stages and checklist items
// by name in a single transaction. Stages and items missing from def are kept.
func (r *Repository) UpsertPipeline(ctx context.Context, def PipelineDefinition) (uuid.UUID, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return uuid.Nil, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	var pipelineID uuid.UUID
	err = tx.QueryRow(ctx, `
		INSERT INTO pipelines (id, name, is_active, is_default)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (name) DO UPDATE
		SET is_active = EXCLUDED.is_active, is_default = EXCLUDED.is_default, updated_at = now()
		RETURNING id`, uuid.New(), def.Name, def.IsActive, def.IsDefault,
	).Scan(&pipelineID)
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to upsert pipeline %q: %w", def.Name, err)
	}

	for _, stageDef := range def.Stages {
		var stageID uuid.UUID
		err = tx.QueryRow(ctx, `
			INSERT INTO pipeline_stages (id, pipeline_id, name, position, sla_days, wip_limit, is_final)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
			ON CONFLICT (pipeline_id, name) DO UPDATE
			SET position = EXCLUDED.position, sla_days = EXCLUDED.sla_days,
				wip_limit = EXCLUDED.wip_limit, is_final = EXCLUDED.is_final
			RETURNING id`,
			uuid.New(), pipelineID, stageDef.Name, stageDef.Position, stageDef.SLADays, stageDef.WIPLimit, stageDef.IsFinal,
		).Scan(&stageID)
		if err != nil {
			return uuid.Nil, fmt.Errorf("failed to upsert stage %q: %w", stageDef.Name, err)
		}

		for i, item := range stageDef.Checklist {
			if _, err = tx.Exec(ctx, `
				INSERT INTO stage_checklist_items (id, stage_id, title, required, position)
				VALUES ($1, $2, $3, $4, $5)
				ON CONFLICT (stage_id, title) DO UPDATE
				SET required = EXCLUDED.required, position = EXCLUDED.position`,
				uuid.New(), stageID, item.Title, item.Required, i,
			); err != nil {
				return uuid.Nil, fmt.Errorf("failed to upsert checklist item %q: %w", item.Title, err)
			}
		}
	}

	if err = tx.Commit(ctx); err != nil {
		return uuid.Nil, err
	}
	return pipelineID, nil
}
