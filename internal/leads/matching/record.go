package matching

import (
	"maps"
	"slices"
	"strings"

	"pipeline_backend/platform/phone"
)

// Canonical record field names.
const (
	FieldName           = "name"
	FieldPhone          = "phone"
	FieldEmail          = "email"
	FieldOrigin         = "origin"
	FieldTemperature    = "temperature"
	FieldCompany        = "company"
	FieldInstagram      = "instagram"
	FieldWebsite        = "website"
	FieldCity           = "city"
	FieldNotes          = "notes"
	FieldFollowers      = "followers"
	FieldMonthlyRevenue = "monthly_revenue"
	FieldLeadScore      = "lead_score"
	FieldLeadValue      = "lead_value"
	FieldPotentialValue = "potential_value"
	FieldHasWebsite     = "has_website"
	FieldIsCustomer     = "is_customer"
	FieldWhatsAppOptIn  = "whatsapp_opt_in"
	FieldTags           = "tags"
)

// Record is one column-mapped incoming row. A key that is absent or blank is
// treated as not provided.
type Record map[string]string

// columnAliases maps spreadsheet headers seen in the wild to canonical fields.
var columnAliases = map[string]string{
	"nome":            FieldName,
	"e_mail":          FieldEmail,
	"origem":          FieldOrigin,
	"temperatura":     FieldTemperature,
	"empresa":         FieldCompany,
	"site":            FieldWebsite,
	"cidade":          FieldCity,
	"observacoes":     FieldNotes,
	"seguidores":      FieldFollowers,
	"faturamento":     FieldMonthlyRevenue,
	"score":           FieldLeadScore,
	"valor_lead":      FieldLeadValue,
	"valor_potencial": FieldPotentialValue,
	"tem_site":        FieldHasWebsite,
	"cliente":         FieldIsCustomer,
}

// phonePrecedence ranks the columns that carry a phone number, best first.
var phonePrecedence = map[string]int{
	"whatsapp": 0,
	"celular":  1,
	"telefone": 2,
	FieldPhone: 3,
}

// Get returns the trimmed value of field.
func (r Record) Get(field string) string {
	return strings.TrimSpace(r[field])
}

// Has reports whether field carries a non-blank value.
func (r Record) Has(field string) bool {
	return r.Get(field) != ""
}

// Prepare canonicalizes column names, resolves aliases and normalizes the
// phone number to E.164. Phone columns are resolved as whatsapp, celular,
// telefone, phone; any other collision keeps the canonical column.
func Prepare(raw map[string]string, normalizer phone.Normalizer) Record {
	return resolve(raw).normalizePhone(normalizer)
}

// PrepareWithDefaults is Prepare where blank fields take their value from
// defaults before the phone is normalized.
func PrepareWithDefaults(raw, defaults map[string]string, normalizer phone.Normalizer) Record {
	rec := resolve(raw)
	for field, value := range resolve(defaults) {
		if !rec.Has(field) {
			rec[field] = value
		}
	}
	return rec.normalizePhone(normalizer)
}

func resolve(raw map[string]string) Record {
	rec := make(Record, len(raw))
	ranks := make(map[string]int, len(raw))
	for _, key := range slices.Sorted(maps.Keys(raw)) {
		value := raw[key]
		if strings.TrimSpace(value) == "" {
			continue
		}
		field, rank := resolveColumn(canonicalKey(key))
		if current, ok := ranks[field]; ok && current <= rank {
			continue
		}
		rec[field] = value
		ranks[field] = rank
	}
	return rec
}

func resolveColumn(column string) (string, int) {
	if rank, ok := phonePrecedence[column]; ok {
		return FieldPhone, rank
	}
	if alias, ok := columnAliases[column]; ok {
		return alias, 1
	}
	return column, 0
}

func (r Record) normalizePhone(normalizer phone.Normalizer) Record {
	if r.Has(FieldPhone) {
		r[FieldPhone] = normalizer.NormalizeE164(r[FieldPhone])
	}
	return r
}

// Tags splits the tags column on comma, semicolon or pipe.
func (r Record) Tags() []string {
	return SplitTags(r.Get(FieldTags))
}

// SplitTags splits and trims a tag list, dropping blanks and duplicates.
func SplitTags(raw string) []string {
	parts := strings.FieldsFunc(raw, func(r rune) bool {
		return r == ',' || r == ';' || r == '|'
	})
	seen := make(map[string]struct{}, len(parts))
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		tag := strings.TrimSpace(part)
		if tag == "" {
			continue
		}
		if _, dup := seen[tag]; dup {
			continue
		}
		seen[tag] = struct{}{}
		out = append(out, tag)
	}
	return out
}

func canonicalKey(key string) string {
	key = strings.ToLower(strings.TrimSpace(key))
	key = strings.ReplaceAll(key, "-", "_")
	return strings.Join(strings.Fields(key), "_")
}
