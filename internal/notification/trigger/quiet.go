package trigger

import (
	"fmt"
	"strings"
	"time"

	"pipeline_backend/platform/config"
)

// QuietHours is a daily wall-clock window in which nothing is emitted.
// Start after End describes a window that spans midnight.
type QuietHours struct {
	Enabled  bool
	Start    time.Duration
	End      time.Duration
	Location *time.Location
}

// ParseQuietHours converts the configured window. A disabled window is
// returned without validating the other fields.
func ParseQuietHours(settings config.QuietHoursSettings) (QuietHours, error) {
	if !settings.Enabled {
		return QuietHours{}, nil
	}

	start, err := parseClock(settings.Start)
	if err != nil {
		return QuietHours{}, fmt.Errorf("quiet hours start: %w", err)
	}
	end, err := parseClock(settings.End)
	if err != nil {
		return QuietHours{}, fmt.Errorf("quiet hours end: %w", err)
	}

	loc := time.UTC
	if name := strings.TrimSpace(settings.Location); name != "" {
		loc, err = time.LoadLocation(name)
		if err != nil {
			return QuietHours{}, fmt.Errorf("quiet hours timezone: %w", err)
		}
	}

	return QuietHours{Enabled: true, Start: start, End: end, Location: loc}, nil
}

// Contains reports whether t falls inside the window. Start is inclusive,
// End exclusive. Equal bounds describe an empty window.
func (q QuietHours) Contains(t time.Time) bool {
	if !q.Enabled || q.Start == q.End {
		return false
	}

	loc := q.Location
	if loc == nil {
		loc = time.UTC
	}
	local := t.In(loc)
	clock := time.Duration(local.Hour())*time.Hour + time.Duration(local.Minute())*time.Minute

	if q.Start < q.End {
		return clock >= q.Start && clock < q.End
	}
	return clock >= q.Start || clock < q.End
}

func parseClock(value string) (time.Duration, error) {
	parsed, err := time.Parse("15:04", strings.TrimSpace(value))
	if err != nil {
		return 0, fmt.Errorf("invalid clock value %q", value)
	}
	return time.Duration(parsed.Hour())*time.Hour + time.Duration(parsed.Minute())*time.Minute, nil
}
