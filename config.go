package spmapper

import (
	"log/slog"

	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

// Config holds repository configuration.
type Config struct {
	// Observability
	Logger         *slog.Logger
	TracerProvider trace.TracerProvider

	// RowLimit caps the default view used by GetAll and empty CAML queries.
	// Zero means unlimited.
	RowLimit int
}

// DefaultConfig returns a repository configuration with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Logger:         slog.Default(),
		TracerProvider: noop.NewTracerProvider(),
	}
}
