package config

import (
	"fmt"
	"strings"
	"time"
)

// ParseDurationField parses a Go duration string found at path. Empty means 0.
func ParseDurationField(path, raw string) (time.Duration, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(s)
	switch {
	case err != nil:
		return 0, fmt.Errorf("%s: invalid duration %q: %w", path, raw, err)
	case d < 0:
		return 0, fmt.Errorf("%s: duration must be >= 0, got %s", path, d)
	}
	return d, nil
}

// ParseDurationOrDefault is ParseDurationField with def for empty or zero.
func ParseDurationOrDefault(path, raw string, def time.Duration) (time.Duration, error) {
	d, err := ParseDurationField(path, raw)
	if err != nil || d > 0 {
		return d, err
	}
	return def, nil
}

// durationFields lists every duration-typed field of cfg by its path.
func durationFields(cfg *Config) map[string]string {
	out := map[string]string{}
	if cfg.Telegram != nil {
		out["telegram.poll_timeout"] = cfg.Telegram.PollTimeout
	}
	if cfg.Relay != nil {
		out["relay.send_timeout"] = cfg.Relay.SendTimeout
	}
	if cfg.Storage != nil {
		out["storage.busy_timeout"] = cfg.Storage.BusyTimeout
	}
	return out
}

func validateDurations(cfg *Config) error {
	for path, raw := range durationFields(cfg) {
		if _, err := ParseDurationField(path, raw); err != nil {
			return err
		}
	}
	return nil
}
