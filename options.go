package spmapper

import (
	"log/slog"

	"go.opentelemetry.io/otel/trace"
)

// Option configures a repository.
type Option func(*Config)

// WithLogger sets the structured logger. A nil logger keeps the default.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Config) {
		if logger != nil {
			c.Logger = logger
		}
	}
}

// WithTracerProvider sets the tracer provider used for operation spans.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(c *Config) {
		if tp != nil {
			c.TracerProvider = tp
		}
	}
}

// WithRowLimit caps the number of items requested by the default view.
// Non-positive values remove the cap.
func WithRowLimit(n int) Option {
	return func(c *Config) {
		c.RowLimit = max(n, 0)
	}
}

// NewConfig creates a new configuration with the given options.
func NewConfig(opts ...Option) Config {
	config := DefaultConfig()
	for _, opt := range opts {
		opt(&config)
	}
	return config
}

// Apply applies multiple options to an existing configuration.
func (c *Config) Apply(opts ...Option) *Config {
	for _, opt := range opts {
		opt(c)
	}
	return c
}
