package observability

import (
	"time"

	"github.com/kbukum/mainkit/validation"
)

// Config configures tracing and metrics export.
type Config struct {
	ServiceName    string `yaml:"service_name" mapstructure:"service_name"`
	ServiceVersion string `yaml:"service_version" mapstructure:"service_version"`
	Environment    string `yaml:"environment" mapstructure:"environment"`

	// Tracing enables the OTLP trace exporter.
	Tracing bool `yaml:"tracing" mapstructure:"tracing"`
	// Metrics enables the OTLP metric exporter.
	Metrics bool `yaml:"metrics" mapstructure:"metrics"`

	// Endpoint is the OTLP HTTP endpoint host:port (e.g., "localhost:4318").
	Endpoint string `yaml:"endpoint" mapstructure:"endpoint" validate:"omitempty,hostname_port"`
	// Insecure allows plain HTTP to the collector.
	Insecure bool `yaml:"insecure" mapstructure:"insecure"`
	// SampleRate is the trace sampling ratio (0.0 to 1.0).
	SampleRate float64 `yaml:"sample_rate" mapstructure:"sample_rate" validate:"gte=0,lte=1"`
	// Interval is the metric export interval.
	Interval time.Duration `yaml:"interval" mapstructure:"interval" validate:"gte=0"`
}

// DefaultConfig returns development defaults with both signals disabled.
func DefaultConfig(serviceName string) Config {
	cfg := Config{ServiceName: serviceName}
	cfg.ApplyDefaults()
	return cfg
}

// ApplyDefaults fills in zero values.
func (c *Config) ApplyDefaults() {
	if c.ServiceVersion == "" {
		c.ServiceVersion = "dev"
	}
	if c.Environment == "" {
		c.Environment = "development"
	}
	if c.Endpoint == "" {
		c.Endpoint = "localhost:4318"
	}
	if c.SampleRate == 0 {
		c.SampleRate = 1.0
	}
	if c.Interval == 0 {
		c.Interval = 15 * time.Second
	}
}

// Enabled reports whether any exporter is configured.
func (c *Config) Enabled() bool {
	return c.Tracing || c.Metrics
}

// Validate checks rules that span fields. Tag rules are checked by the
// enclosing configuration.
func (c *Config) Validate() error {
	v := validation.New()
	v.Custom(!c.Enabled() || c.Endpoint != "", "observability.endpoint", "is required when tracing or metrics is enabled")
	v.Custom(!c.Enabled() || c.ServiceName != "", "observability.service_name", "is required when tracing or metrics is enabled")
	return v.Validate()
}
