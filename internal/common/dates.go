package common

import (
	"strings"
	"time"
)

const dateOnly = "2006-01-02"

// DateRange is an optional [From, To) window parsed from query parameters.
type DateRange struct {
	From *time.Time
	To   *time.Time
}

// ParseDateRange reads RFC 3339 or YYYY-MM-DD bounds. A date-only end bound
// covers that whole day.
func ParseDateRange(start, end string) (DateRange, error) {
	var dr DateRange
	if s := strings.TrimSpace(start); s != "" {
		t, _, err := parseDate(s)
		if err != nil {
			return DateRange{}, ValidationError("invalid startDate", map[string]any{"startDate": s})
		}
		dr.From = &t
	}
	if s := strings.TrimSpace(end); s != "" {
		t, dayOnly, err := parseDate(s)
		if err != nil {
			return DateRange{}, ValidationError("invalid endDate", map[string]any{"endDate": s})
		}
		if dayOnly {
			t = t.AddDate(0, 0, 1)
		} else {
			t = t.Add(time.Nanosecond)
		}
		dr.To = &t
	}
	if dr.From != nil && dr.To != nil && !dr.From.Before(*dr.To) {
		return DateRange{}, ValidationError("startDate must be before endDate", nil)
	}
	return dr, nil
}

func parseDate(s string) (time.Time, bool, error) {
	if t, err := time.Parse(dateOnly, s); err == nil {
		return t, true, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	return t, false, err
}
