// Package repository provides pgx-backed persistence for leads and their tags.
package repository

import (
	"context"
	"errors"
	"fmt"

	"pipeline_backend/internal/leads/domain"
	"pipeline_backend/platform/apperr"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const leadNotFoundMsg = "lead not found"

const leadColumns = `id, name, phone, email, origin, temperature, company, instagram, website, city, notes,
	followers, monthly_revenue, lead_score, lead_value, potential_value,
	has_website, is_customer, whatsapp_opt_in, created_at, updated_at`

// Repository provides database operations for leads.
type Repository struct {
	pool *pgxpool.Pool
}

// New creates a new leads repository.
func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// GetByID retrieves a lead with its tags.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (domain.Lead, error) {
	lead, err := r.findOne(ctx, `SELECT `+leadColumns+` FROM leads WHERE id = $1`, id)
	if err != nil {
		return domain.Lead{}, err
	}
	if lead == nil {
		return domain.Lead{}, apperr.NotFound(leadNotFoundMsg)
	}
	return *lead, nil
}

// FindByPhone returns the oldest lead with the normalized phone, or nil.
func (r *Repository) FindByPhone(ctx context.Context, phone string) (*domain.Lead, error) {
	return r.findOne(ctx, `SELECT `+leadColumns+` FROM leads WHERE phone = $1 ORDER BY created_at LIMIT 1`, phone)
}

// FindByEmail returns the oldest lead with exactly this email, or nil.
func (r *Repository) FindByEmail(ctx context.Context, email string) (*domain.Lead, error) {
	return r.findOne(ctx, `SELECT `+leadColumns+` FROM leads WHERE email = $1 ORDER BY created_at LIMIT 1`, email)
}

// FindByNameAndOrigin returns the oldest lead with this name and origin, or nil.
func (r *Repository) FindByNameAndOrigin(ctx context.Context, name string, origin domain.Origin) (*domain.Lead, error) {
	return r.findOne(ctx, `SELECT `+leadColumns+` FROM leads WHERE name = $1 AND origin = $2 ORDER BY created_at LIMIT 1`,
		name, string(origin))
}

// Create inserts a new lead. ID and timestamps are assigned when empty.
func (r *Repository) Create(ctx context.Context, lead *domain.Lead) error {
	if lead.ID == uuid.Nil {
		lead.ID = uuid.New()
	}
	err := r.pool.QueryRow(ctx, `
		INSERT INTO leads (
			id, name, phone, email, origin, temperature, company, instagram, website, city, notes,
			followers, monthly_revenue, lead_score, lead_value, potential_value,
			has_website, is_customer, whatsapp_opt_in
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)
		RETURNING created_at, updated_at`,
		lead.ID, lead.Name, lead.Phone, lead.Email, string(lead.Origin), string(lead.Temperature),
		lead.Company, lead.Instagram, lead.Website, lead.City, lead.Notes,
		lead.Followers, lead.MonthlyRevenue, lead.LeadScore, lead.LeadValue, lead.PotentialValue,
		lead.HasWebsite, lead.IsCustomer, lead.WhatsAppOptIn,
	).Scan(&lead.CreatedAt, &lead.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create lead: %w", err)
	}
	return nil
}

// Update writes every mutable attribute of lead. Last write wins.
func (r *Repository) Update(ctx context.Context, lead *domain.Lead) error {
	err := r.pool.QueryRow(ctx, `
		UPDATE leads SET
			name = $2, phone = $3, email = $4, origin = $5, temperature = $6, company = $7,
			instagram = $8, website = $9, city = $10, notes = $11, followers = $12,
			monthly_revenue = $13, lead_score = $14, lead_value = $15, potential_value = $16,
			has_website = $17, is_customer = $18, whatsapp_opt_in = $19, updated_at = now()
		WHERE id = $1
		RETURNING updated_at`,
		lead.ID, lead.Name, lead.Phone, lead.Email, string(lead.Origin), string(lead.Temperature),
		lead.Company, lead.Instagram, lead.Website, lead.City, lead.Notes,
		lead.Followers, lead.MonthlyRevenue, lead.LeadScore, lead.LeadValue, lead.PotentialValue,
		lead.HasWebsite, lead.IsCustomer, lead.WhatsAppOptIn,
	).Scan(&lead.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperr.NotFound(leadNotFoundMsg)
		}
		return fmt.Errorf("failed to update lead: %w", err)
	}
	return nil
}

// AddTags attaches tags to a lead. Existing tags are left untouched.
func (r *Repository) AddTags(ctx context.Context, leadID uuid.UUID, tags []string) error {
	if len(tags) == 0 {
		return nil
	}
	_, err := r.pool.Exec(ctx, `
		INSERT INTO lead_tags (lead_id, tag)
		SELECT $1, unnest($2::text[])
		ON CONFLICT (lead_id, tag) DO NOTHING`, leadID, tags)
	if err != nil {
		return fmt.Errorf("failed to add lead tags: %w", err)
	}
	return nil
}

func (r *Repository) findOne(ctx context.Context, query string, args ...any) (*domain.Lead, error) {
	var lead domain.Lead
	var origin, temperature string
	err := r.pool.QueryRow(ctx, query, args...).Scan(
		&lead.ID, &lead.Name, &lead.Phone, &lead.Email, &origin, &temperature,
		&lead.Company, &lead.Instagram, &lead.Website, &lead.City, &lead.Notes,
		&lead.Followers, &lead.MonthlyRevenue, &lead.LeadScore, &lead.LeadValue, &lead.PotentialValue,
		&lead.HasWebsite, &lead.IsCustomer, &lead.WhatsAppOptIn, &lead.CreatedAt, &lead.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil // Not found is acceptable
		}
		return nil, fmt.Errorf("failed to find lead: %w", err)
	}
	lead.Origin = domain.Origin(origin)
	lead.Temperature = domain.Temperature(temperature)

	tags, err := r.listTags(ctx, lead.ID)
	if err != nil {
		return nil, err
	}
	lead.Tags = tags
	return &lead, nil
}

func (r *Repository) listTags(ctx context.Context, leadID uuid.UUID) ([]string, error) {
	rows, err := r.pool.Query(ctx, `SELECT tag FROM lead_tags WHERE lead_id = $1 ORDER BY created_at, tag`, leadID)
	if err != nil {
		return nil, fmt.Errorf("failed to list lead tags: %w", err)
	}
	defer rows.Close()

	tags := []string{}
	for rows.Next() {
		var tag string
		if err := rows.Scan(&tag); err != nil {
			return nil, fmt.Errorf("failed to scan lead tag: %w", err)
		}
		tags = append(tags, tag)
	}
	return tags, rows.Err()
}
