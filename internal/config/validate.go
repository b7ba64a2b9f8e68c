package config

import (
	"fmt"
	"strings"
)

func validate(cfg *Config) error {
	if cfg.Version == "" {
		return fmt.Errorf("config: version is required")
	}
	if !versionLike(cfg.Version) {
		return fmt.Errorf("config: invalid version %q", cfg.Version)
	}

	switch cfg.LogLevel {
	case "debug", "info", "warn", "error":
		// valid
	default:
		return fmt.Errorf("config: unknown log_level %q", cfg.LogLevel)
	}

	if cfg.BackendTimeout <= 0 {
		return fmt.Errorf("config: backend_timeout must be > 0")
	}
	if cfg.StatusTTL <= 0 {
		return fmt.Errorf("config: status_ttl must be > 0")
	}
	if cfg.ConflictRetries < 1 {
		return fmt.Errorf("config: conflict_retries must be >= 1")
	}

	return nil
}

// versionLike accepts dotted numeric tags: "3", "3.9", "3.9.1".
func versionLike(v string) bool {
	for _, part := range strings.Split(v, ".") {
		if part == "" {
			return false
		}
		for _, r := range part {
			if r < '0' || r > '9' {
				return false
			}
		}
	}
	return true
}
