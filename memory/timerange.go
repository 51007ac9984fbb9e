package memory

import (
	"strconv"
	"strings"
	"time"
)

// DefaultTimeRange is used when a range expression cannot be parsed.
const DefaultTimeRange = 30 * 24 * time.Hour

// ParseTimeRange converts a compact range expression into a duration.
// Supported forms are "<N>d" (days) and "<N>h" (hours). Anything else,
// including empty input, falls back to 30 days.
func ParseTimeRange(s string) time.Duration {
	s = strings.TrimSpace(strings.ToLower(s))
	if len(s) < 2 {
		return DefaultTimeRange
	}
	n, err := strconv.Atoi(s[:len(s)-1])
	if err != nil || n < 0 {
		return DefaultTimeRange
	}
	switch s[len(s)-1] {
	case 'd':
		return time.Duration(n) * 24 * time.Hour
	case 'h':
		return time.Duration(n) * time.Hour
	}
	return DefaultTimeRange
}
