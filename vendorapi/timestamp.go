package vendorapi

import (
	"strings"
	"time"
)

// ParseTimestamp reads a vendor timestamp. Empty values fall back to
// fallback; anything unparseable is an error.
func ParseTimestamp(s string, fallback time.Time) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return fallback, nil
	}
	return time.Parse(time.RFC3339Nano, s)
}
