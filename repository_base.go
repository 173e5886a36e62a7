package spmapper

import (
	"context"
	"log/slog"
	"reflect"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "spmapper"

// Span attribute keys.
const (
	attrList      = attribute.Key("sharepoint.list")
	attrEntity    = attribute.Key("spmapper.entity")
	attrOperation = attribute.Key("spmapper.operation")
	attrItems     = attribute.Key("spmapper.items")
	attrItemID    = attribute.Key("sharepoint.item.id")
)

// RepositoryBase provides the logging and tracing shared by repositories.
type RepositoryBase struct {
	entityName string
	entityType reflect.Type
	logger     *slog.Logger
	tracer     trace.Tracer
}

// NewRepositoryBase creates a new base repository for an entity type.
func NewRepositoryBase(t reflect.Type, config Config) *RepositoryBase {
	name := "<nil>"
	if t != nil {
		name = t.String()
	}
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}
	tp := config.TracerProvider
	if tp == nil {
		tp = DefaultConfig().TracerProvider
	}
	return &RepositoryBase{
		entityName: name,
		entityType: t,
		logger:     logger.With("component", "spmapper", "entity", name),
		tracer:     tp.Tracer(tracerName),
	}
}

// EntityName returns the entity's type name.
func (r *RepositoryBase) EntityName() string {
	return r.entityName
}

// EntityType returns the entity's reflect type.
func (r *RepositoryBase) EntityType() reflect.Type {
	return r.entityType
}

// Logger returns the repository logger.
func (r *RepositoryBase) Logger() *slog.Logger {
	return r.logger
}

// StartSpan opens a span for one repository operation.
func (r *RepositoryBase) StartSpan(ctx context.Context, operation string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	base := []attribute.KeyValue{
		attrEntity.String(r.entityName),
		attrOperation.String(operation),
	}
	return r.tracer.Start(ctx, "spmapper."+operation,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(append(base, attrs...)...))
}

// EndSpan records err on span, logs the outcome and ends the span. It
// returns err unchanged.
func (r *RepositoryBase) EndSpan(ctx context.Context, span trace.Span, operation string, list ListRef, err error) error {
	defer span.End()
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		r.logger.DebugContext(ctx, "operation failed", "operation", operation, "list", list.String(), "error", err)
		return err
	}
	span.SetStatus(codes.Ok, "")
	r.logger.DebugContext(ctx, "operation completed", "operation", operation, "list", list.String())
	return nil
}
