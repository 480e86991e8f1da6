// Package analytics provides local SQLite-based analytics for board
// operations and push-connection lifecycle events.
package analytics

import "os"

// Event represents a single analytics event.
type Event struct {
	ID         int64
	Timestamp  int64
	Kind       string // "operation" or "stream"
	Name       string // operation name or lifecycle event name
	Entity     string // category, item, progress, notify
	Success    bool
	DurationMs int64
	ErrorType  string
	Detail     string
}

// IsEnabledFromEnv checks the TASKBOARD_ANALYTICS_ENABLED environment
// variable and returns the effective enabled state. Environment variable
// overrides the config value.
func IsEnabledFromEnv(configEnabled bool) bool {
	envVal := os.Getenv("TASKBOARD_ANALYTICS_ENABLED")
	if envVal == "" {
		return configEnabled
	}
	return envVal == "true" || envVal == "1"
}
