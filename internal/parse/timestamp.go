package parse

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

// Layouts accepted for upstream timestamps, tried in order. Layouts without a
// zone are interpreted in the configured location.
var layouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.9999999",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
}

var spaceRe = regexp.MustCompile(`\s+`)

// ParseTimestamp converts an upstream timestamp string into a UTC time.
// A nil or empty input yields nil without error.
func ParseTimestamp(raw *string, loc *time.Location) (*time.Time, error) {
	if raw == nil {
		return nil, nil
	}
	s := strings.TrimSpace(spaceRe.ReplaceAllString(*raw, " "))
	if s == "" {
		return nil, nil
	}
	if loc == nil {
		loc = time.UTC
	}

	for _, layout := range layouts {
		t, err := time.ParseInLocation(layout, s, loc)
		if err == nil {
			t = t.UTC()
			return &t, nil
		}
	}
	return nil, fmt.Errorf("unable to parse timestamp: %q", *raw)
}

// LoadLocation resolves a timezone name, treating an empty name as UTC.
func LoadLocation(name string) (*time.Location, error) {
	if name == "" {
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("failed to load timezone %q: %w", name, err)
	}
	return loc, nil
}
