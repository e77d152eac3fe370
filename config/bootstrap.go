package config

import "time"

// DefaultCloseTimeout bounds how long component shutdown may take.
const DefaultCloseTimeout = 15 * time.Second

// BootstrapConfig tunes the bootstrap lifecycle.
type BootstrapConfig struct {
	// CloseTimeout bounds the component stop phase of container close.
	CloseTimeout time.Duration `yaml:"close_timeout" mapstructure:"close_timeout" validate:"gte=0"`
	// Summary prints the startup summary once the container is live.
	Summary bool `yaml:"summary" mapstructure:"summary"`
}

// ApplyDefaults fills in zero values.
func (c *BootstrapConfig) ApplyDefaults() {
	if c.CloseTimeout == 0 {
		c.CloseTimeout = DefaultCloseTimeout
	}
}
