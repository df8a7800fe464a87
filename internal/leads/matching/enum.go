package matching

import (
	"strings"

	"pipeline_backend/internal/leads/domain"
)

// EnumValue is the outcome of coercing raw input into an enumerated field.
// Coerced is true when Original was not a permitted value and Value is the fallback.
type EnumValue struct {
	Value    string
	Original string
	Coerced  bool
}

// Enum is a closed set of permitted values with a fallback category.
type Enum struct {
	name     string
	allowed  map[string]struct{}
	fallback string
}

// NewEnum builds an Enum. The fallback must be one of values.
func NewEnum(name, fallback string, values ...string) Enum {
	allowed := make(map[string]struct{}, len(values))
	for _, v := range values {
		allowed[v] = struct{}{}
	}
	return Enum{name: name, allowed: allowed, fallback: fallback}
}

// Coerce normalizes raw and maps unknown values to the fallback.
// Blank input yields an empty, non-coerced value.
func (e Enum) Coerce(raw string) EnumValue {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return EnumValue{}
	}

	normalized := strings.ToLower(strings.Join(strings.Fields(trimmed), "_"))
	normalized = strings.ReplaceAll(normalized, "-", "_")
	if _, ok := e.allowed[normalized]; ok {
		return EnumValue{Value: normalized, Original: trimmed}
	}
	return EnumValue{Value: e.fallback, Original: trimmed, Coerced: true}
}

// Name returns the field name the enum describes.
func (e Enum) Name() string {
	return e.name
}

// OriginEnum holds the permitted lead origins.
var OriginEnum = NewEnum(FieldOrigin, string(domain.OriginOther),
	string(domain.OriginInstagram),
	string(domain.OriginFacebook),
	string(domain.OriginWhatsApp),
	string(domain.OriginWebsite),
	string(domain.OriginReferral),
	string(domain.OriginGoogle),
	string(domain.OriginEvent),
	string(domain.OriginColdCall),
	string(domain.OriginOther),
)

// TemperatureEnum holds the permitted lead temperatures.
var TemperatureEnum = NewEnum(FieldTemperature, string(domain.TemperatureCold),
	string(domain.TemperatureCold),
	string(domain.TemperatureWarm),
	string(domain.TemperatureHot),
)
