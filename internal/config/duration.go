package config

import (
	"fmt"
	"strings"
	"time"
)

// DurationOrDefault parses a Go duration string such as "30s" or "1h" from the
// config (llm.request_timeout, sessions.ttl, daemon.*_timeout, ...) and falls
// back to the matching Default* constant when the key is left empty.
func DurationOrDefault(value string, defaultValue string) (time.Duration, error) {
	candidate := strings.TrimSpace(value)
	if candidate == "" {
		candidate = strings.TrimSpace(defaultValue)
	}
	if candidate == "" {
		return 0, fmt.Errorf("duration value is empty")
	}

	d, err := time.ParseDuration(candidate)
	if err != nil {
		return 0, fmt.Errorf("parse duration %q: %w", candidate, err)
	}
	return d, nil
}
