package matching

import (
	"fmt"
	"math"
	"strings"

	"pipeline_backend/internal/leads/domain"
)

// Policy decides when an incoming value replaces the existing one.
type Policy int

const (
	// AlwaysOverwrite replaces the existing value whenever the field is provided.
	AlwaysOverwrite Policy = iota + 1
	// OverwriteIfNonEmpty replaces only with a non-blank value.
	OverwriteIfNonEmpty
	// OverwriteIfPositiveNumber replaces only with a valid number greater than zero.
	OverwriteIfPositiveNumber
	// OverwriteIfDefined replaces whenever a boolean was given, false included.
	OverwriteIfDefined
)

func (p Policy) String() string {
	switch p {
	case AlwaysOverwrite:
		return "always_overwrite"
	case OverwriteIfNonEmpty:
		return "overwrite_if_non_empty"
	case OverwriteIfPositiveNumber:
		return "overwrite_if_positive_number"
	case OverwriteIfDefined:
		return "overwrite_if_defined"
	default:
		return "unknown"
	}
}

func (p Policy) accepts(raw string) bool {
	trimmed := strings.TrimSpace(raw)
	switch p {
	case AlwaysOverwrite, OverwriteIfNonEmpty:
		return trimmed != ""
	case OverwriteIfPositiveNumber:
		value, ok := parseNumber(trimmed)
		return ok && value > 0
	case OverwriteIfDefined:
		_, ok := parseBool(trimmed)
		return ok
	default:
		return false
	}
}

// FieldRule binds a record field to a lead attribute under a policy.
type FieldRule struct {
	Field  string
	Policy Policy
	get    func(l *domain.Lead) any
	// set applies an accepted raw value and returns a warning, if any.
	set func(l *domain.Lead, raw string) string
}

// Change is one field-level difference produced by a merge.
type Change struct {
	Old any `json:"old"`
	New any `json:"new"`
}

// MergeResult is the merged lead plus what changed.
type MergeResult struct {
	Lead     domain.Lead
	Changes  map[string]Change
	NewTags  []string
	Warnings []string
}

// Changed reports whether any attribute or tag differs from the existing lead.
func (r MergeResult) Changed() bool {
	return len(r.Changes) > 0 || len(r.NewTags) > 0
}

var policyTable = []FieldRule{
	textRule(FieldName, func(l *domain.Lead) *string { return &l.Name }),
	textRule(FieldPhone, func(l *domain.Lead) *string { return &l.Phone }),
	textRule(FieldEmail, func(l *domain.Lead) *string { return &l.Email }),
	textRule(FieldCompany, func(l *domain.Lead) *string { return &l.Company }),
	textRule(FieldInstagram, func(l *domain.Lead) *string { return &l.Instagram }),
	textRule(FieldWebsite, func(l *domain.Lead) *string { return &l.Website }),
	textRule(FieldCity, func(l *domain.Lead) *string { return &l.City }),
	textRule(FieldNotes, func(l *domain.Lead) *string { return &l.Notes }),
	{
		Field:  FieldOrigin,
		Policy: OverwriteIfNonEmpty,
		get:    func(l *domain.Lead) any { return l.Origin },
		set: func(l *domain.Lead, raw string) string {
			v := OriginEnum.Coerce(raw)
			l.Origin = domain.Origin(v.Value)
			return coercionWarning(OriginEnum, v)
		},
	},
	{
		Field:  FieldTemperature,
		Policy: OverwriteIfNonEmpty,
		get:    func(l *domain.Lead) any { return l.Temperature },
		set: func(l *domain.Lead, raw string) string {
			v := TemperatureEnum.Coerce(raw)
			l.Temperature = domain.Temperature(v.Value)
			return coercionWarning(TemperatureEnum, v)
		},
	},
	{
		Field:  FieldFollowers,
		Policy: OverwriteIfPositiveNumber,
		get:    func(l *domain.Lead) any { return l.Followers },
		set: func(l *domain.Lead, raw string) string {
			value, _ := parseNumber(raw)
			l.Followers = int(math.Round(value))
			return ""
		},
	},
	{
		Field:  FieldMonthlyRevenue,
		Policy: OverwriteIfPositiveNumber,
		get:    func(l *domain.Lead) any { return l.MonthlyRevenue },
		set: func(l *domain.Lead, raw string) string {
			l.MonthlyRevenue, _ = parseNumber(raw)
			return ""
		},
	},
	{
		Field:  FieldLeadScore,
		Policy: AlwaysOverwrite,
		get:    func(l *domain.Lead) any { return l.LeadScore },
		set: func(l *domain.Lead, raw string) string {
			l.LeadScore = ClampScore(raw)
			return ""
		},
	},
	{
		Field:  FieldLeadValue,
		Policy: AlwaysOverwrite,
		get:    func(l *domain.Lead) any { return l.LeadValue },
		set: func(l *domain.Lead, raw string) string {
			l.LeadValue = ClampScore(raw)
			return ""
		},
	},
	{
		Field:  FieldPotentialValue,
		Policy: AlwaysOverwrite,
		get:    func(l *domain.Lead) any { return l.PotentialValue },
		set: func(l *domain.Lead, raw string) string {
			value, ok := parseNumber(raw)
			if !ok {
				return fmt.Sprintf("%s: ignored non-numeric value %q", FieldPotentialValue, strings.TrimSpace(raw))
			}
			l.PotentialValue = value
			return ""
		},
	},
	boolRule(FieldHasWebsite, func(l *domain.Lead) *bool { return &l.HasWebsite }),
	boolRule(FieldIsCustomer, func(l *domain.Lead) *bool { return &l.IsCustomer }),
	boolRule(FieldWhatsAppOptIn, func(l *domain.Lead) *bool { return &l.WhatsAppOptIn }),
}

// Policies returns the merge policy of every mapped field.
func Policies() map[string]Policy {
	out := make(map[string]Policy, len(policyTable))
	for _, rule := range policyTable {
		out[rule.Field] = rule.Policy
	}
	return out
}

// Merge applies rec onto existing field by field according to the policy
// table. Tags are additive: existing tags are never removed.
func Merge(existing domain.Lead, rec Record) MergeResult {
	merged := existing
	merged.Tags = append([]string(nil), existing.Tags...)

	result := MergeResult{Changes: map[string]Change{}}
	for _, rule := range policyTable {
		raw, present := rec[rule.Field]
		if !present || !rule.Policy.accepts(raw) {
			continue
		}

		before := rule.get(&merged)
		if warning := rule.set(&merged, raw); warning != "" {
			result.Warnings = append(result.Warnings, warning)
		}
		if after := rule.get(&merged); after != before {
			result.Changes[rule.Field] = Change{Old: before, New: after}
		}
	}

	result.NewTags = missingTags(merged.Tags, rec.Tags())
	merged.Tags = append(merged.Tags, result.NewTags...)
	result.Lead = merged
	return result
}

// NewLead builds a lead from an unmatched record.
func NewLead(rec Record) MergeResult {
	result := Merge(domain.Lead{}, rec)
	result.Changes = map[string]Change{}
	return result
}

func missingTags(existing, incoming []string) []string {
	have := make(map[string]struct{}, len(existing))
	for _, tag := range existing {
		have[tag] = struct{}{}
	}
	var out []string
	for _, tag := range incoming {
		if _, ok := have[tag]; ok {
			continue
		}
		have[tag] = struct{}{}
		out = append(out, tag)
	}
	return out
}

func coercionWarning(enum Enum, v EnumValue) string {
	if !v.Coerced {
		return ""
	}
	return fmt.Sprintf("%s: %q is not a known value, stored as %q", enum.Name(), v.Original, v.Value)
}

func textRule(field string, target func(l *domain.Lead) *string) FieldRule {
	return FieldRule{
		Field:  field,
		Policy: OverwriteIfNonEmpty,
		get:    func(l *domain.Lead) any { return *target(l) },
		set: func(l *domain.Lead, raw string) string {
			*target(l) = strings.TrimSpace(raw)
			return ""
		},
	}
}

func boolRule(field string, target func(l *domain.Lead) *bool) FieldRule {
	return FieldRule{
		Field:  field,
		Policy: OverwriteIfDefined,
		get:    func(l *domain.Lead) any { return *target(l) },
		set: func(l *domain.Lead, raw string) string {
			*target(l), _ = parseBool(raw)
			return ""
		},
	}
}
