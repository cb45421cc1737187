package telemetry

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestMetrics_NoopProvider(t *testing.T) {
	m, err := NewMetrics()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	ctx := context.Background()
	m.OrderCreated(ctx, "EBOOK", true)
	m.Transition(ctx, "confirm", nil)
	m.Transition(ctx, "reject", errors.New("stale"))
	m.SlipUploaded(ctx, nil)
	m.SlipAnalyzed(ctx, nil)
}

func TestWithHTTPRoute(t *testing.T) {
	called := false
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/orders/{id}", WithHTTPRoute(func(w http.ResponseWriter, r *http.Request) {
		called = true
		if got := SpanName("", r); got != "GET /api/orders/{id}" {
			t.Errorf("expected pattern span name, got %q", got)
		}
	}))

	mux.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/orders/abc", nil))
	if !called {
		t.Fatal("handler not called")
	}
}
