package otelhelper

import (
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// SetError marks the span as failed and records err with attrs.
func SetError(span trace.Span, err error, attrs ...attribute.KeyValue) {
	span.RecordError(err, trace.WithAttributes(attrs...))
	span.SetStatus(codes.Error, err.Error())
}

// SetRejected records a refused edit. The span status stays unset: a
// rejection is an expected outcome of the editor, not a failure.
func SetRejected(span trace.Span, reason string, attrs ...attribute.KeyValue) {
	attrs = append(attrs, attribute.String(RejectKey, reason))

	span.SetAttributes(attribute.String(RejectKey, reason))
	span.AddEvent("edit_rejected", trace.WithAttributes(attrs...))
}
