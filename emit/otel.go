package emit

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// OTelEmitter turns each Event into a zero-duration span, so a predicate
// invocation or a reducer IPC round-trip is visible in a trace alongside
// the rest of a CI pipeline.
type OTelEmitter struct {
	tracer trace.Tracer
}

// NewOTelEmitter returns an OTelEmitter using the given tracer name, or
// "preduce" if empty.
func NewOTelEmitter(tracerName string) *OTelEmitter {
	if tracerName == "" {
		tracerName = "preduce"
	}
	return &OTelEmitter{tracer: otel.Tracer(tracerName)}
}

func (o *OTelEmitter) Emit(event Event) {
	_, span := o.tracer.Start(context.Background(), event.Msg)
	defer span.End()

	span.SetAttributes(
		attribute.String("actor", string(event.Actor)),
		attribute.String("actor_id", event.ActorID),
	)
	for k, v := range event.Fields {
		span.SetAttributes(attribute.String(k, fmt.Sprintf("%v", v)))
	}
	if errVal, ok := event.Fields["error"]; ok {
		span.SetStatus(codes.Error, fmt.Sprintf("%v", errVal))
	} else {
		span.SetStatus(codes.Ok, "")
	}
}

// Flush is a no-op: span export is handled by the configured SDK's
// BatchSpanProcessor/exporter, not by this emitter.
func (o *OTelEmitter) Flush(context.Context) error { return nil }
