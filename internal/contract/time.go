package contract

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/huangsam/cpkwatch/schema"
)

// Define the regular expression to capture "N [units] ago"
// e.g., "2 weeks ago", "3 days ago", "1 hour ago".
var relativeTimeRe = regexp.MustCompile(`^(\d+)\s+(year|month|week|day|hour|minute)s?\s+ago$`)

// ParseRelativeTime converts strings like "3 days ago" into a time.Time in the past.
func ParseRelativeTime(s string, now time.Time) (time.Time, error) {
	s = strings.TrimSpace(strings.ToLower(s))
	matches := relativeTimeRe.FindStringSubmatch(s)
	if len(matches) == 0 {
		return time.Time{}, fmt.Errorf("invalid relative time format: %s", s)
	}

	// 1: Value (e.g., "2")
	// 2: Unit (e.g., "week" or "day")
	value, err := strconv.Atoi(matches[1])
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid relative time value: %w", err)
	}

	switch matches[2] {
	case "year":
		return now.AddDate(-value, 0, 0), nil
	case "month":
		return now.AddDate(0, -value, 0), nil
	case "week":
		return now.AddDate(0, 0, -7*value), nil
	case "day":
		return now.AddDate(0, 0, -value), nil
	case "hour":
		return now.Add(time.Duration(-value) * time.Hour), nil
	default:
		return now.Add(time.Duration(-value) * time.Minute), nil
	}
}

// ParseTimeInput accepts RFC3339 timestamps, bare YYYY-MM-DD dates (UTC midnight)
// and "N [units] ago" expressions.
func ParseTimeInput(s string, now time.Time) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(DateTimeFormat, s); err == nil {
		return t, nil
	}
	if t, err := time.Parse(schema.DateLayout, s); err == nil {
		return t, nil
	}
	t, err := ParseRelativeTime(s, now)
	if err != nil {
		return time.Time{}, fmt.Errorf("expected RFC3339, YYYY-MM-DD or 'N [units] ago': %w", err)
	}
	return t, nil
}
