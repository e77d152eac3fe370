package config

import (
	"github.com/kbukum/mainkit/logger"
	"github.com/kbukum/mainkit/observability"
	"github.com/kbukum/mainkit/validation"
)

// ServiceConfig is the root configuration of a mainkit process.
// Applications extend it by embedding:
//
//	type MyConfig struct {
//	    config.ServiceConfig `yaml:",inline" mapstructure:",squash"`
//	    Store StoreConfig `yaml:"store" mapstructure:"store"`
//	}
type ServiceConfig struct {
	Name          string               `yaml:"name" mapstructure:"name" validate:"required"`
	Environment   string               `yaml:"environment" mapstructure:"environment" validate:"oneof=development staging production"`
	Version       string               `yaml:"version" mapstructure:"version"`
	Debug         bool                 `yaml:"debug" mapstructure:"debug"`
	Logging       logger.Config        `yaml:"logging" mapstructure:"logging"`
	Bootstrap     BootstrapConfig      `yaml:"bootstrap" mapstructure:"bootstrap"`
	Observability observability.Config `yaml:"observability" mapstructure:"observability"`
}

// ApplyDefaults applies default values to every section.
func (c *ServiceConfig) ApplyDefaults() {
	if c.Environment == "" {
		c.Environment = "development"
	}
	if c.Environment == "development" {
		c.Debug = true
	}
	if c.Logging.ServiceName == "" && c.Name != "" {
		c.Logging.ServiceName = c.Name
	}
	c.Logging.ApplyDefaults()
	if c.Debug && c.Logging.Level == "info" {
		c.Logging.Level = "debug"
	}
	c.Bootstrap.ApplyDefaults()
	if c.Observability.ServiceName == "" {
		c.Observability.ServiceName = c.Name
	}
	if c.Observability.ServiceVersion == "" {
		c.Observability.ServiceVersion = c.Version
	}
	if c.Observability.Environment == "" {
		c.Observability.Environment = c.Environment
	}
	c.Observability.ApplyDefaults()
}

// Validate checks struct tags and the cross-field rules of each section.
// All failures are reported together as one CONFIG_INVALID error.
func (c *ServiceConfig) Validate() error {
	v := validation.New()
	v.Merge("config", validation.Validate(c))
	v.Merge("logging", c.Logging.Validate())
	v.Merge("observability", c.Observability.Validate())
	return v.Validate()
}
