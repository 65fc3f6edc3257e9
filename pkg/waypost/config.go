package waypost

import "github.com/nordlicht/waypost/internal/app/config"

// Config re-exports the root configuration struct so embedding projects can
// construct or modify it programmatically.
type Config = config.Config

type (
	// CollectorConfig holds endpoint, timeout, and identity settings.
	CollectorConfig = config.CollectorConfig
	// DecisionConfig tunes the throttle.
	DecisionConfig = config.DecisionConfig
	// BufferConfig selects and bounds the durable queue.
	BufferConfig = config.BufferConfig
	// FlushConfig controls the flush scheduler cadence.
	FlushConfig = config.FlushConfig
	// MetricsConfig configures the metrics HTTP server.
	MetricsConfig = config.MetricsConfig
)

// LoadConfig loads and validates YAML configuration from disk.
func LoadConfig(path string) (*Config, error) {
	return config.Load(path)
}
