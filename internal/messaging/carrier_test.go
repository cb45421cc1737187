package messaging

import (
	"context"
	"slices"
	"testing"

	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

func TestMessageCarrier(t *testing.T) {
	msg := &kafka.Message{}
	c := NewMessageCarrier(msg)

	c.Set(EventTypeHeader, "order.created")
	c.Set("traceparent", "a")
	c.Set("traceparent", "b")

	if got := c.Get("traceparent"); got != "b" {
		t.Errorf("expected overwritten value b, got %q", got)
	}
	if got := c.Get("missing"); got != "" {
		t.Errorf("expected empty value, got %q", got)
	}
	if len(msg.Headers) != 2 {
		t.Errorf("expected 2 headers, got %d", len(msg.Headers))
	}
	if keys := c.Keys(); !slices.Equal(keys, []string{EventTypeHeader, "traceparent"}) {
		t.Errorf("unexpected keys %v", keys)
	}
}

func TestTraceContextRoundTrip(t *testing.T) {
	prop := propagation.TraceContext{}
	traceID, _ := trace.TraceIDFromHex("4bf92f3577b34da6a3ce929d0e0e4736")
	spanID, _ := trace.SpanIDFromHex("00f067aa0ba902b7")
	sc := trace.NewSpanContext(trace.SpanContextConfig{TraceID: traceID, SpanID: spanID, TraceFlags: trace.FlagsSampled})

	msg := &kafka.Message{}
	prop.Inject(trace.ContextWithSpanContext(context.Background(), sc), NewMessageCarrier(msg))

	got := trace.SpanContextFromContext(prop.Extract(context.Background(), NewMessageCarrier(msg)))
	if got.TraceID() != traceID || got.SpanID() != spanID {
		t.Errorf("trace context lost: %v", got)
	}
}
