package waypost

import (
	base "github.com/nordlicht/waypost/pkg/waypost"
)

// Type aliases so consumers can import github.com/nordlicht/waypost directly.
type (
	Agent           = base.Agent
	Option          = base.Option
	Sample          = base.Sample
	Payload         = base.Payload
	Result          = base.Result
	Config          = base.Config
	CollectorConfig = base.CollectorConfig
	DecisionConfig  = base.DecisionConfig
	BufferConfig    = base.BufferConfig
	FlushConfig     = base.FlushConfig
	MetricsConfig   = base.MetricsConfig
	Buffer          = base.Buffer
	Sender          = base.Sender
	Connectivity    = base.Connectivity
	TokenSource     = base.TokenSource
	Observability   = base.Observability
	Field           = base.Field
)

// Submission outcomes.
const (
	Delivered = base.Delivered
	Buffered  = base.Buffered
	Skipped   = base.Skipped
)

// New constructs an agent from config plus optional dependency overrides.
func New(cfg *Config, opts ...Option) (*Agent, error) {
	return base.New(cfg, opts...)
}

// LoadConfig loads and validates YAML configuration from disk.
func LoadConfig(path string) (*Config, error) {
	return base.LoadConfig(path)
}

// Dependency overrides.
var (
	WithBuffer        = base.WithBuffer
	WithSender        = base.WithSender
	WithConnectivity  = base.WithConnectivity
	WithTokenSource   = base.WithTokenSource
	WithObservability = base.WithObservability
)
