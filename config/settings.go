package config

import "time"

// StreamConfig configures bounded streams.
type StreamConfig struct {
	Capacity     int           `yaml:"capacity" mapstructure:"capacity" validate:"gt=0"`
	OfferTimeout time.Duration `yaml:"offer_timeout" mapstructure:"offer_timeout" validate:"gt=0"`
	Policy       string        `yaml:"policy" mapstructure:"policy" validate:"oneof=drop_newest reject"`
}

// ApplyDefaults sets a capacity of 16, a 100ms offer timeout and the
// drop_newest policy.
func (c *StreamConfig) ApplyDefaults() {
	if c.Capacity == 0 {
		c.Capacity = 16
	}
	if c.OfferTimeout == 0 {
		c.OfferTimeout = 100 * time.Millisecond
	}
	if c.Policy == "" {
		c.Policy = "drop_newest"
	}
}

// RetrySettings configures retried operations.
type RetrySettings struct {
	MaxAttempts int           `yaml:"max_attempts" mapstructure:"max_attempts" validate:"gt=0"`
	BaseDelay   time.Duration `yaml:"base_delay" mapstructure:"base_delay" validate:"gte=0"`
}

func (c *RetrySettings) ApplyDefaults() {
	if c.MaxAttempts == 0 {
		c.MaxAttempts = 3
	}
	if c.BaseDelay == 0 {
		c.BaseDelay = 100 * time.Millisecond
	}
}

// ObservabilityConfig configures OTLP metric and trace export.
type ObservabilityConfig struct {
	Enabled  bool          `yaml:"enabled" mapstructure:"enabled"`
	Endpoint string        `yaml:"endpoint" mapstructure:"endpoint" validate:"omitempty,hostname_port"`
	Insecure bool          `yaml:"insecure" mapstructure:"insecure"`
	Interval time.Duration `yaml:"interval" mapstructure:"interval" validate:"gte=0"`
	// SampleRate is a pointer so an explicit 0 is kept.
	SampleRate *float64 `yaml:"sample_rate" mapstructure:"sample_rate" validate:"omitnil,gte=0,lte=1"`
}

func (c *ObservabilityConfig) ApplyDefaults() {
	if c.Endpoint == "" {
		c.Endpoint = "localhost:4318"
	}
	if c.Interval == 0 {
		c.Interval = 15 * time.Second
	}
	if c.SampleRate == nil {
		rate := 1.0
		c.SampleRate = &rate
	}
}
