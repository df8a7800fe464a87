// Package audit keeps the append-only activity log of lead and pipeline changes.
package audit

import (
	"context"
	"encoding/json"

	"pipeline_backend/platform/apperr"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

const opAppend = "audit.repository.append"

// Entity types written to the activity log.
const (
	EntityLead          = "lead"
	EntityPipelineEntry = "pipeline_entry"
	EntityNotification  = "notification"
)

// Entry is one activity log row.
type Entry struct {
	EntityType string
	EntityID   uuid.UUID
	ChangeSet  any
	Actor      string
}

// Repository appends to the activity_log table.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates an audit repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Append writes one entry. Rows are never updated or deleted.
func (r *Repository) Append(ctx context.Context, entry Entry) error {
	changeSet, err := json.Marshal(entry.ChangeSet)
	if err != nil {
		return apperr.Internal("failed to encode change set", err).WithOp(opAppend)
	}

	_, err = r.pool.Exec(ctx, `
		INSERT INTO activity_log (id, entity_type, entity_id, change_set, actor)
		VALUES ($1, $2, $3, $4, $5)
	`, uuid.New(), entry.EntityType, entry.EntityID, changeSet, entry.Actor)
	if err != nil {
		return apperr.Internal("failed to append activity", err).WithOp(opAppend)
	}
	return nil
}
