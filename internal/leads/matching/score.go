package matching

import (
	"math"
	"regexp"
	"strconv"
	"strings"

	"pipeline_backend/internal/leads/domain"
)

// ClampScore parses raw as a number and clamps it to [ScoreMin, ScoreMax].
// Non-numeric input maps to ScoreMin.
func ClampScore(raw string) int {
	value, ok := parseNumber(raw)
	if !ok {
		return domain.ScoreMin
	}
	return ClampScoreValue(value)
}

// ClampScoreValue clamps and rounds a numeric score.
func ClampScoreValue(value float64) int {
	if math.IsNaN(value) || value < domain.ScoreMin {
		return domain.ScoreMin
	}
	if value > domain.ScoreMax {
		return domain.ScoreMax
	}
	return int(math.Round(value))
}

var dotThousands = regexp.MustCompile(`^-?\d{1,3}(\.\d{3})+$`)

// parseNumber accepts "1234.5", "1.234,5", "1234,5" and "1.200".
func parseNumber(raw string) (float64, bool) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return 0, false
	}
	s = strings.TrimPrefix(s, "R$")
	s = strings.TrimSpace(s)
	switch {
	case strings.Contains(s, ","):
		s = strings.ReplaceAll(s, ".", "")
		s = strings.ReplaceAll(s, ",", ".")
	case dotThousands.MatchString(s):
		s = strings.ReplaceAll(s, ".", "")
	}
	value, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(value) || math.IsInf(value, 0) {
		return 0, false
	}
	return value, true
}

// parseBool accepts english and portuguese spellings.
func parseBool(raw string) (bool, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "true", "1", "yes", "y", "sim", "s", "x":
		return true, true
	case "false", "0", "no", "n", "nao", "não":
		return false, true
	default:
		return false, false
	}
}
