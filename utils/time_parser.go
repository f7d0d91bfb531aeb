package utils

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ParseDuration extends time.ParseDuration to support days (d) and weeks (w).
func ParseDuration(s string) (time.Duration, error) {
	s = strings.TrimSpace(strings.ToLower(s))
	for suffix, unit := range map[string]time.Duration{"d": 24 * time.Hour, "w": 7 * 24 * time.Hour} {
		if !strings.HasSuffix(s, suffix) {
			continue
		}
		countStr := strings.TrimSuffix(s, suffix)
		count, err := strconv.Atoi(countStr)
		if err != nil || count <= 0 {
			return 0, fmt.Errorf("invalid %s value: %s", suffix, countStr)
		}
		return time.Duration(count) * unit, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, err
	}
	if d <= 0 {
		return 0, fmt.Errorf("duration must be positive: %s", s)
	}
	return d, nil
}
