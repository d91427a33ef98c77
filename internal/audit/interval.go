package audit

import (
	"fmt"
	"log/slog"
	"math"
	"strconv"
	"strings"
	"time"
)

const DefaultReminderInterval = 2 * time.Hour

// ParseInterval accepts a positive integer followed by one of h, m, s.
func ParseInterval(raw string) (time.Duration, error) {
	s := strings.TrimSpace(raw)
	if len(s) < 2 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidInterval, raw)
	}
	n, err := strconv.Atoi(s[:len(s)-1])
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidInterval, raw)
	}
	var unit time.Duration
	switch s[len(s)-1] {
	case 'h':
		unit = time.Hour
	case 'm':
		unit = time.Minute
	case 's':
		unit = time.Second
	default:
		return 0, fmt.Errorf("%w: unsupported unit in %q", ErrInvalidInterval, raw)
	}
	if int64(n) > math.MaxInt64/int64(unit) {
		return 0, fmt.Errorf("%w: %q is out of range", ErrInvalidInterval, raw)
	}
	return time.Duration(n) * unit, nil
}

// ReminderIntervalOrDefault never fails: an unparseable value logs a warning
// and yields DefaultReminderInterval. An empty value is the default without warning.
func ReminderIntervalOrDefault(raw string) time.Duration {
	if strings.TrimSpace(raw) == "" {
		return DefaultReminderInterval
	}
	d, err := ParseInterval(raw)
	if err != nil {
		slog.Warn("reminder interval not understood; using default", "interval", raw, "default", DefaultReminderInterval, "error", err)
		return DefaultReminderInterval
	}
	return d
}
