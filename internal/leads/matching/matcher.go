// Package matching finds the existing lead an incoming record belongs to and
// merges the record into it under a per-field policy table.
package matching

import (
	"context"

	"pipeline_backend/internal/leads/domain"
)

// Signal names the identity signal that produced a match.
type Signal string

const (
	SignalPhone      Signal = "phone"
	SignalEmail      Signal = "email"
	SignalNameOrigin Signal = "name_origin"
	SignalNone       Signal = "none"
)

// Store looks leads up by exact identity signals. Implementations return
// (nil, nil) when nothing matches.
type Store interface {
	FindByPhone(ctx context.Context, phone string) (*domain.Lead, error)
	FindByEmail(ctx context.Context, email string) (*domain.Lead, error)
	FindByNameAndOrigin(ctx context.Context, name string, origin domain.Origin) (*domain.Lead, error)
}

// Match is the outcome of a lookup.
type Match struct {
	Lead   *domain.Lead
	Signal Signal
}

// Found reports whether an existing lead was matched.
func (m Match) Found() bool {
	return m.Lead != nil
}

// Matcher runs the identity priority chain against a Store.
type Matcher struct {
	store Store
}

// NewMatcher creates a Matcher.
func NewMatcher(store Store) *Matcher {
	return &Matcher{store: store}
}

// Match walks phone, then email, then (name, origin). The first hit wins.
// rec must have been through Prepare so the phone is already normalized.
func (m *Matcher) Match(ctx context.Context, rec Record) (Match, error) {
	if phone := rec.Get(FieldPhone); phone != "" {
		lead, err := m.store.FindByPhone(ctx, phone)
		if err != nil {
			return Match{}, err
		}
		if lead != nil {
			return Match{Lead: lead, Signal: SignalPhone}, nil
		}
	}

	if email := rec.Get(FieldEmail); email != "" {
		lead, err := m.store.FindByEmail(ctx, email)
		if err != nil {
			return Match{}, err
		}
		if lead != nil {
			return Match{Lead: lead, Signal: SignalEmail}, nil
		}
	}

	name := rec.Get(FieldName)
	origin := OriginEnum.Coerce(rec.Get(FieldOrigin))
	if name != "" && origin.Value != "" {
		lead, err := m.store.FindByNameAndOrigin(ctx, name, domain.Origin(origin.Value))
		if err != nil {
			return Match{}, err
		}
		if lead != nil {
			return Match{Lead: lead, Signal: SignalNameOrigin}, nil
		}
	}

	return Match{Signal: SignalNone}, nil
}
