package domain

import "time"

// Range is a coarse relative window for reading retrieval. The zero value means all time.
type Range struct {
	Name     string
	Duration time.Duration
}

var ranges = map[string]time.Duration{
	"1h":  time.Hour,
	"5h":  5 * time.Hour,
	"24h": 24 * time.Hour,
}

// ParseRange never fails: unknown selectors fall back to all time.
func ParseRange(selector string) Range {
	if d, ok := ranges[selector]; ok {
		return Range{Name: selector, Duration: d}
	}
	return Range{}
}

func (r Range) IsAllTime() bool {
	return r.Duration == 0
}

// Cutoff returns the inclusive lower bound for the window ending at now, or nil for all time.
func (r Range) Cutoff(now time.Time) *time.Time {
	if r.IsAllTime() {
		return nil
	}
	cutoff := now.Add(-r.Duration).UTC()
	return &cutoff
}
