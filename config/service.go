package config

import (
	"fmt"

	"github.com/kbukum/rxkit/logger"
	"github.com/kbukum/rxkit/observability"
	"github.com/kbukum/rxkit/validation"
)

// ServiceConfig is the configuration of a process that runs streams.
//
// Example config.yml:
//
//	name: rxdemo
//	environment: development
//	logging:
//	  level: debug
//	stream:
//	  capacity: 16
//	  offer_timeout: 100ms
//	  policy: drop_newest
//	retry:
//	  max_attempts: 3
//	  base_delay: 100ms
type ServiceConfig struct {
	Name          string              `yaml:"name" mapstructure:"name" validate:"required"`
	Environment   string              `yaml:"environment" mapstructure:"environment" validate:"oneof=development staging production"`
	Version       string              `yaml:"version" mapstructure:"version"`
	Debug         bool                `yaml:"debug" mapstructure:"debug"`
	Logging       logger.Config       `yaml:"logging" mapstructure:"logging"`
	Observability ObservabilityConfig `yaml:"observability" mapstructure:"observability"`
	Stream        StreamConfig        `yaml:"stream" mapstructure:"stream"`
	Retry         RetrySettings       `yaml:"retry" mapstructure:"retry"`
}

// GetServiceConfig returns c. Structs embedding ServiceConfig get it
// promoted and so satisfy bootstrap.Config.
func (c *ServiceConfig) GetServiceConfig() *ServiceConfig {
	return c
}

// ApplyDefaults fills every unset field.
func (c *ServiceConfig) ApplyDefaults() {
	if c.Environment == "" {
		c.Environment = "development"
	}
	if c.Environment == "development" {
		c.Debug = true
	}
	if c.Version == "" {
		c.Version = "dev"
	}
	// Propagate service name into logging so Init() uses the right tag.
	if c.Logging.ServiceName == "" && c.Name != "" {
		c.Logging.ServiceName = c.Name
	}
	c.Logging.ApplyDefaults()
	c.Observability.ApplyDefaults()
	c.Stream.ApplyDefaults()
	c.Retry.ApplyDefaults()
}

// Validate checks struct tags and the logging section.
func (c *ServiceConfig) Validate() error {
	if err := validation.Validate(c); err != nil {
		return err
	}
	if err := c.Logging.Validate(); err != nil {
		return fmt.Errorf("config.logging: %w", err)
	}
	return nil
}

// MeterConfig returns the OTLP meter settings for this service.
func (c *ServiceConfig) MeterConfig() observability.MeterConfig {
	return observability.MeterConfig{
		ServiceName:    c.Name,
		ServiceVersion: c.Version,
		Environment:    c.Environment,
		Endpoint:       c.Observability.Endpoint,
		Insecure:       c.Observability.Insecure,
		Interval:       c.Observability.Interval,
	}
}

// TracerConfig returns the OTLP tracer settings for this service.
func (c *ServiceConfig) TracerConfig() observability.TracerConfig {
	rate := 1.0
	if c.Observability.SampleRate != nil {
		rate = *c.Observability.SampleRate
	}
	return observability.TracerConfig{
		ServiceName:    c.Name,
		ServiceVersion: c.Version,
		Environment:    c.Environment,
		Endpoint:       c.Observability.Endpoint,
		Insecure:       c.Observability.Insecure,
		SampleRate:     rate,
	}
}

// Load reads the configuration of serviceName, applies defaults and
// validates it. The name falls back to serviceName when the sources leave
// it empty.
func Load(serviceName string, opts ...LoaderOption) (*ServiceConfig, error) {
	var cfg ServiceConfig
	if err := LoadConfig(serviceName, &cfg, opts...); err != nil {
		return nil, err
	}
	if cfg.Name == "" {
		cfg.Name = serviceName
	}
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}
