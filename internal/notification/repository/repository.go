// Package repository persists recorded notifications and reads the
// appointments the reminder scan looks at.
package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"pipeline_backend/internal/notification/trigger"
	"pipeline_backend/platform/apperr"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	opRecord       = "notification.repository.record"
	opList         = "notification.repository.list"
	opListUpcoming = "notification.repository.list_upcoming"
)

// Notification is a recorded alert about a lead or appointment.
type Notification struct {
	ID        uuid.UUID       `json:"id"`
	SubjectID uuid.UUID       `json:"subjectId"`
	Kind      string          `json:"kind"`
	DedupKey  string          `json:"dedupKey"`
	Payload   json.RawMessage `json:"payload"`
	CreatedAt time.Time       `json:"createdAt"`
}

// Repository provides database operations for notifications.
type Repository struct {
	pool *pgxpool.Pool
}

// New creates a notification repository.
func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Record inserts one notification.
func (r *Repository) Record(ctx context.Context, subjectID uuid.UUID, kind trigger.Kind, dedupKey string, payload map[string]any) error {
	if payload == nil {
		payload = map[string]any{}
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return apperr.Internal("failed to encode notification payload", err).WithOp(opRecord)
	}

	_, err = r.pool.Exec(ctx, `
		INSERT INTO notifications (id, subject_id, kind, dedup_key, payload)
		VALUES ($1, $2, $3, $4, $5)
	`, uuid.New(), subjectID, string(kind), dedupKey, raw)
	if err != nil {
		return apperr.Internal("failed to record notification", err).WithOp(opRecord)
	}
	return nil
}

// ListBySubject returns the newest notifications of a subject and their total count.
func (r *Repository) ListBySubject(ctx context.Context, subjectID uuid.UUID, limit, offset int) ([]Notification, int, error) {
	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM notifications WHERE subject_id = $1`, subjectID).Scan(&total); err != nil {
		return nil, 0, apperr.Internal("failed to count notifications", err).WithOp(opList)
	}

	rows, err := r.pool.Query(ctx, `
		SELECT id, subject_id, kind, dedup_key, payload, created_at
		FROM notifications
		WHERE subject_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`, subjectID, limit, offset)
	if err != nil {
		return nil, 0, apperr.Internal("failed to list notifications", err).WithOp(opList)
	}
	defer rows.Close()

	items := make([]Notification, 0, limit)
	for rows.Next() {
		var n Notification
		if err := rows.Scan(&n.ID, &n.SubjectID, &n.Kind, &n.DedupKey, &n.Payload, &n.CreatedAt); err != nil {
			return nil, 0, apperr.Internal("failed to scan notification", err).WithOp(opList)
		}
		items = append(items, n)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, apperr.Internal("failed to iterate notifications", err).WithOp(opList)
	}
	return items, total, nil
}

// ListUpcoming returns scheduled appointments starting in (from, to].
func (r *Repository) ListUpcoming(ctx context.Context, from, to time.Time) ([]trigger.Appointment, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, lead_id, title, start_time
		FROM appointments
		WHERE status = 'scheduled' AND start_time > $1 AND start_time <= $2
		ORDER BY start_time
	`, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to list upcoming appointments: %w", err)
	}
	defer rows.Close()

	var items []trigger.Appointment
	for rows.Next() {
		var a trigger.Appointment
		if err := rows.Scan(&a.ID, &a.LeadID, &a.Title, &a.StartTime); err != nil {
			return nil, apperr.Internal("failed to scan appointment", err).WithOp(opListUpcoming)
		}
		items = append(items, a)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Internal("failed to iterate appointments", err).WithOp(opListUpcoming)
	}
	return items, nil
}

var (
	_ trigger.Recorder          = (*Repository)(nil)
	_ trigger.AppointmentSource = (*Repository)(nil)
)
