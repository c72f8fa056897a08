package cfg

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
)

// ParseSchedule accepts a fixed interval ("20m", "1h30m", or plain seconds
// such as "1200") or a five field cron expression including descriptors
// like "@hourly".
func ParseSchedule(raw string) (cron.Schedule, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return nil, fmt.Errorf("schedule required")
	}

	// Any whitespace or a leading '@' means cron
	if strings.ContainsAny(s, " \t") || strings.HasPrefix(s, "@") {
		schedule, err := cron.ParseStandard(s)
		if err != nil {
			return nil, fmt.Errorf("invalid cron expression %q: %w", s, err)
		}
		return schedule, nil
	}

	if seconds, err := strconv.Atoi(s); err == nil {
		if seconds <= 0 {
			return nil, fmt.Errorf("interval must be positive, got %d", seconds)
		}
		return cron.Every(time.Duration(seconds) * time.Second), nil
	}

	d, err := time.ParseDuration(s)
	if err != nil {
		return nil, fmt.Errorf("invalid interval %q: %w", s, err)
	}
	if d < time.Second {
		return nil, fmt.Errorf("interval must be at least 1s, got %s", d)
	}

	return cron.Every(d), nil
}
