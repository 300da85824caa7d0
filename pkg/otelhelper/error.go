package otelhelper

import (
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// SetError marks span as failed. attrs are attached to the recorded exception. A nil err is ignored.
func SetError(span trace.Span, err error, attrs ...attribute.KeyValue) {
	if err == nil {
		return
	}

	span.RecordError(err, trace.WithAttributes(attrs...))
	span.SetStatus(codes.Error, err.Error())
}

// SetExecution annotates a playbook span with the execution row it produced.
func SetExecution(span trace.Span, executionID, status string) {
	span.SetAttributes(
		attribute.String(ExecutionIDKey, executionID),
		attribute.String(ExecutionStatus, status),
	)

	if status == "failed" {
		span.SetStatus(codes.Error, "playbook execution failed")
	}
}
