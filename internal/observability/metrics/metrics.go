package metrics

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Config configures the metrics provider.
type Config struct {
	Enabled          bool
	ExporterEndpoint string
	ExporterProtocol string
	ServiceName      string
	Environment      string
}

// Metrics exposes application-level instruments.
type Metrics struct {
	quotes        metric.Int64Counter
	bookings      metric.Int64Counter
	cancellations metric.Int64Counter
	refundAmount  metric.Float64Counter
	lockContended metric.Int64Counter
	notifications metric.Int64Counter
}

// NewProvider configures and registers the meter provider.
func NewProvider(lc fx.Lifecycle, cfg Config, log *zap.Logger) (metric.MeterProvider, error) {
	if !cfg.Enabled {
		provider := noop.NewMeterProvider()
		otel.SetMeterProvider(provider)
		return provider, nil
	}

	exporter, err := newExporter(cfg.ExporterProtocol, cfg.ExporterEndpoint)
	if err != nil {
		return nil, err
	}

	reader := sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(10*time.Second))
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	otel.SetMeterProvider(provider)

	if lc != nil {
		lc.Append(fx.Hook{
			OnStop: func(ctx context.Context) error {
				if log != nil {
					log.Info("shutting down meter provider")
				}
				return provider.Shutdown(ctx)
			},
		})
	}

	if log != nil {
		log.Info("metrics initialized",
			zap.String("endpoint", cfg.ExporterEndpoint),
			zap.String("protocol", cfg.ExporterProtocol),
		)
	}

	return provider, nil
}

// New configures the domain metrics instruments.
func New(cfg Config, provider metric.MeterProvider) (*Metrics, error) {
	name := strings.TrimSpace(cfg.ServiceName)
	if name == "" {
		name = "tourdesk"
	}
	meter := provider.Meter(name)

	quotes, err := meter.Int64Counter("tourdesk_quotes_total")
	if err != nil {
		return nil, err
	}
	bookings, err := meter.Int64Counter("tourdesk_bookings_total")
	if err != nil {
		return nil, err
	}
	cancellations, err := meter.Int64Counter("tourdesk_cancellations_total")
	if err != nil {
		return nil, err
	}
	refundAmount, err := meter.Float64Counter("tourdesk_refund_amount_total")
	if err != nil {
		return nil, err
	}
	lockContended, err := meter.Int64Counter("tourdesk_lock_contended_total")
	if err != nil {
		return nil, err
	}
	notifications, err := meter.Int64Counter("tourdesk_notifications_total")
	if err != nil {
		return nil, err
	}

	return &Metrics{
		quotes:        quotes,
		bookings:      bookings,
		cancellations: cancellations,
		refundAmount:  refundAmount,
		lockContended: lockContended,
		notifications: notifications,
	}, nil
}

// RecordQuote counts a priced quote. kind is "tour" or "space".
func (m *Metrics) RecordQuote(ctx context.Context, kind, tier string, discounted bool) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(
		attribute.String("kind", strings.TrimSpace(kind)),
		attribute.String("tier", strings.TrimSpace(tier)),
		attribute.Bool("discount_applied", discounted),
	)
	m.quotes.Add(ctx, 1, metric.WithAttributes(attrs...))
}

func (m *Metrics) RecordBooking(ctx context.Context, kind, tier string, discounted bool) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(
		attribute.String("kind", strings.TrimSpace(kind)),
		attribute.String("tier", strings.TrimSpace(tier)),
		attribute.Bool("discount_applied", discounted),
	)
	m.bookings.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordCancellation counts a cancellation and adds the refunded amount.
func (m *Metrics) RecordCancellation(ctx context.Context, kind string, percentage int, refunded float64) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(
		attribute.String("kind", strings.TrimSpace(kind)),
		attribute.Int("refund_percentage", percentage),
	)
	m.cancellations.Add(ctx, 1, metric.WithAttributes(attrs...))
	if refunded > 0 {
		m.refundAmount.Add(ctx, refunded, metric.WithAttributes(attrs...))
	}
}

func (m *Metrics) RecordLockContended(ctx context.Context, resource string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(attribute.String("resource", strings.TrimSpace(resource)))
	m.lockContended.Add(ctx, 1, metric.WithAttributes(attrs...))
}

func (m *Metrics) RecordNotification(ctx context.Context, kind string, emailed bool) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(
		attribute.String("kind", strings.TrimSpace(kind)),
		attribute.Bool("emailed", emailed),
	)
	m.notifications.Add(ctx, 1, metric.WithAttributes(attrs...))
}

func newExporter(protocol, endpoint string) (sdkmetric.Exporter, error) {
	protocol = strings.ToLower(strings.TrimSpace(protocol))
	switch protocol {
	case "http", "http/protobuf":
		opts := []otlpmetrichttp.Option{}
		if endpoint != "" {
			opts = append(opts, otlpmetrichttp.WithEndpoint(endpoint))
		}
		return otlpmetrichttp.New(context.Background(), opts...)
	case "grpc", "grpc/protobuf", "":
		opts := []otlpmetricgrpc.Option{otlpmetricgrpc.WithInsecure()}
		if endpoint != "" {
			opts = append(opts, otlpmetricgrpc.WithEndpoint(endpoint))
		}
		return otlpmetricgrpc.New(context.Background(), opts...)
	default:
		return nil, fmt.Errorf("unsupported OTLP protocol %q", protocol)
	}
}

var allowedLabelKeys = map[attribute.Key]struct{}{
	"kind":              {},
	"tier":              {},
	"discount_applied":  {},
	"refund_percentage": {},
	"resource":          {},
	"emailed":           {},
	"endpoint":          {},
	"status_code":       {},
	"reason":            {},
}

// FilterAttributes strips disallowed labels to keep metrics low-cardinality.
func FilterAttributes(attrs ...attribute.KeyValue) []attribute.KeyValue {
	filtered := make([]attribute.KeyValue, 0, len(attrs))
	for _, attr := range attrs {
		if _, ok := allowedLabelKeys[attr.Key]; !ok {
			continue
		}
		filtered = append(filtered, attr)
	}
	return filtered
}
