package telemetry

import (
	"context"
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/runtime"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

// InitMeterProvider installs a Prometheus-backed MeterProvider with Go
// runtime metrics. It returns the /metrics handler and a shutdown function.
func InitMeterProvider(serviceName, serviceVersion string) (http.Handler, func(context.Context) error, error) {
	exporter, err := prometheus.New()
	if err != nil {
		return nil, nil, err
	}

	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(exporter),
		sdkmetric.WithResource(newResource(serviceName, serviceVersion)),
	)
	otel.SetMeterProvider(mp)

	if err := runtime.Start(); err != nil {
		return nil, nil, err
	}

	return promhttp.Handler(), mp.Shutdown, nil
}

// Metrics are the business counters. Without InitMeterProvider they record
// into the global no-op provider.
type Metrics struct {
	ordersCreated metric.Int64Counter
	transitions   metric.Int64Counter
	slipUploads   metric.Int64Counter
	slipAnalyses  metric.Int64Counter
}

func NewMetrics() (*Metrics, error) {
	meter := otel.Meter("courseshop")

	ordersCreated, err := meter.Int64Counter("orders_created_total",
		metric.WithDescription("Orders created, by order type and whether they were free"))
	if err != nil {
		return nil, err
	}
	transitions, err := meter.Int64Counter("order_transitions_total",
		metric.WithDescription("Admin order actions, by action and result"))
	if err != nil {
		return nil, err
	}
	slipUploads, err := meter.Int64Counter("slip_uploads_total",
		metric.WithDescription("Payment slip uploads, by result"))
	if err != nil {
		return nil, err
	}
	slipAnalyses, err := meter.Int64Counter("slip_analyses_total",
		metric.WithDescription("Slip analyses, by result"))
	if err != nil {
		return nil, err
	}

	return &Metrics{
		ordersCreated: ordersCreated,
		transitions:   transitions,
		slipUploads:   slipUploads,
		slipAnalyses:  slipAnalyses,
	}, nil
}

func (m *Metrics) OrderCreated(ctx context.Context, orderType string, free bool) {
	m.ordersCreated.Add(ctx, 1, metric.WithAttributes(
		attribute.String("order_type", orderType),
		attribute.String("free", strconv.FormatBool(free)),
	))
}

func (m *Metrics) Transition(ctx context.Context, action string, err error) {
	m.transitions.Add(ctx, 1, metric.WithAttributes(
		attribute.String("action", action),
		attribute.String("result", result(err)),
	))
}

func (m *Metrics) SlipUploaded(ctx context.Context, err error) {
	m.slipUploads.Add(ctx, 1, metric.WithAttributes(attribute.String("result", result(err))))
}

func (m *Metrics) SlipAnalyzed(ctx context.Context, err error) {
	m.slipAnalyses.Add(ctx, 1, metric.WithAttributes(attribute.String("result", result(err))))
}

func result(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
