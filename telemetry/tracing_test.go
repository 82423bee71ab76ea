package telemetry

import (
	"errors"
	"testing"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/pithecene-io/replaycast/log"
)

func TestInitTracing_DisabledWithoutEndpoint(t *testing.T) {
	t.Setenv(EndpointEnv, "")

	shutdown, err := InitTracing(t.Context(), Config{ServiceName: "replaycast"}, log.NewNop())
	if err != nil {
		t.Fatalf("InitTracing: %v", err)
	}
	if shutdown == nil {
		t.Fatal("shutdown is nil")
	}
	if err := shutdown(t.Context()); err != nil {
		t.Errorf("shutdown: %v", err)
	}
}

func TestStartSpan_RecordsAttributesAndErrors(t *testing.T) {
	rec := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(rec))
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	t.Cleanup(func() { otel.SetTracerProvider(prev) })

	_, span := StartSpan(t.Context(), "replay.parse", attribute.String("replay.path", "/r/a.aoe2record"))
	RecordError(span, errors.New("bad header"))
	span.End()

	_, render := StartSpan(t.Context(), "replay.render")
	RecordError(render, nil)
	render.End()

	ended := rec.Ended()
	if len(ended) != 2 {
		t.Fatalf("ended spans = %d, want 2", len(ended))
	}

	parse := ended[0]
	if parse.Name() != "replay.parse" {
		t.Errorf("name = %q", parse.Name())
	}
	if parse.Status().Code != codes.Error || parse.Status().Description != "bad header" {
		t.Errorf("status = %+v", parse.Status())
	}
	var found bool
	for _, kv := range parse.Attributes() {
		if kv.Key == "replay.path" && kv.Value.AsString() == "/r/a.aoe2record" {
			found = true
		}
	}
	if !found {
		t.Errorf("attributes = %v", parse.Attributes())
	}
	if len(parse.Events()) != 1 {
		t.Errorf("events = %d, want 1 exception event", len(parse.Events()))
	}

	if ended[1].Status().Code != codes.Unset {
		t.Errorf("nil error changed status to %v", ended[1].Status().Code)
	}
}
