package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/nordlicht/waypost/internal/engine"
)

type Config struct {
	Collector CollectorConfig `yaml:"collector"`
	Decision  DecisionConfig  `yaml:"decision"`
	Buffer    BufferConfig    `yaml:"buffer"`
	Flush     FlushConfig     `yaml:"flush"`
	Metrics   MetricsConfig   `yaml:"metrics"`
}

type CollectorConfig struct {
	// BaseURL is the collector root; payloads go to <base>/api/location/update.
	BaseURL string        `yaml:"base_url"`
	Timeout time.Duration `yaml:"timeout"`
	// EntityID identifies this agent in every payload; generated when blank.
	EntityID string `yaml:"entity_id"`
	// Token is a static bearer credential. Leave blank to rely on an
	// injected token source or the anonymous placeholder.
	Token string `yaml:"token"`
}

type DecisionConfig struct {
	DistanceFloorMeters float64 `yaml:"distance_floor_meters"`
}

type BufferConfig struct {
	Dir string `yaml:"dir"`
	// MaxBuffered caps the queue; the oldest entry is evicted when full.
	// Negative disables the cap.
	MaxBuffered int `yaml:"max_buffered"`
	// PostgresDSN switches the queue from the local file to Postgres.
	PostgresDSN string `yaml:"postgres_dsn"`
	Table       string `yaml:"table"`
}

type FlushConfig struct {
	Interval      time.Duration `yaml:"interval"`
	ProbeInterval time.Duration `yaml:"probe_interval"`
}

type MetricsConfig struct {
	Addr string `yaml:"addr"`
}

func Load(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return nil, err
	}

	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) ApplyDefaults() {
	if c.Collector.Timeout == 0 {
		c.Collector.Timeout = 10 * time.Second
	}
	if c.Decision.DistanceFloorMeters == 0 {
		c.Decision.DistanceFloorMeters = engine.DefaultDistanceFloorMeters
	}
	if c.Buffer.Dir == "" {
		c.Buffer.Dir = "./data/queue"
	}
	if c.Buffer.MaxBuffered == 0 {
		c.Buffer.MaxBuffered = 10_000
	}
	if c.Buffer.Table == "" {
		c.Buffer.Table = "waypost_queue"
	}
	if c.Flush.Interval == 0 {
		c.Flush.Interval = 30 * time.Second
	}
	if c.Flush.ProbeInterval == 0 {
		c.Flush.ProbeInterval = 5 * time.Second
	}
	if c.Metrics.Addr == "" {
		c.Metrics.Addr = ":9100"
	}
}

func (c *Config) Validate() error {
	if c.Collector.BaseURL == "" {
		return fmt.Errorf("collector.base_url is required")
	}
	if c.Decision.DistanceFloorMeters < 0 {
		return fmt.Errorf("decision.distance_floor_meters must be >= 0")
	}
	if c.Flush.Interval <= 0 {
		return fmt.Errorf("flush.interval must be > 0")
	}
	return nil
}
