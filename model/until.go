package model

import (
	"strconv"
	"strings"
	"time"
)

// ParseUntil decodes a persisted expiry. Current rows hold integer milliseconds;
// rows written by the old bot hold float seconds ("1612345678.123").
func ParseUntil(raw string) time.Time {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}
	}
	if strings.Contains(raw, ".") {
		secs, err := strconv.ParseFloat(raw, 64)
		if err != nil || secs <= 0 {
			return time.Time{}
		}
		return time.UnixMilli(int64(secs * 1000))
	}
	ms, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || ms <= 0 {
		return time.Time{}
	}
	return time.UnixMilli(ms)
}

// FormatUntil encodes an expiry for storage. The zero time is stored as "0".
func FormatUntil(t time.Time) string {
	if t.IsZero() {
		return "0"
	}
	return strconv.FormatInt(t.UnixMilli(), 10)
}
