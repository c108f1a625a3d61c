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
	salesRecorded        metric.Int64Counter
	saleRejections       metric.Int64Counter
	taxResolutions       metric.Int64Counter
	scheduleReplacements metric.Int64Counter
	receiptsRendered     metric.Int64Counter
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
		name = "regi"
	}
	meter := provider.Meter(name)

	salesRecorded, err := meter.Int64Counter("regi_sales_recorded_total")
	if err != nil {
		return nil, err
	}
	saleRejections, err := meter.Int64Counter("regi_sale_rejections_total")
	if err != nil {
		return nil, err
	}
	taxResolutions, err := meter.Int64Counter("regi_tax_resolutions_total")
	if err != nil {
		return nil, err
	}
	scheduleReplacements, err := meter.Int64Counter("regi_tax_schedule_replacements_total")
	if err != nil {
		return nil, err
	}
	receiptsRendered, err := meter.Int64Counter("regi_receipts_rendered_total")
	if err != nil {
		return nil, err
	}

	return &Metrics{
		salesRecorded:        salesRecorded,
		saleRejections:       saleRejections,
		taxResolutions:       taxResolutions,
		scheduleReplacements: scheduleReplacements,
		receiptsRendered:     receiptsRendered,
	}, nil
}

// RecordSale increments recorded sale counts.
func (m *Metrics) RecordSale(ctx context.Context, memberKind string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(attribute.String("member_kind", strings.TrimSpace(memberKind)))
	m.salesRecorded.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordSaleRejection increments rejected sale counts by failure code.
func (m *Metrics) RecordSaleRejection(ctx context.Context, reason string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(attribute.String("reason", strings.TrimSpace(reason)))
	m.saleRejections.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordTaxResolution increments tax window resolution counts.
func (m *Metrics) RecordTaxResolution(ctx context.Context, outcome string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(attribute.String("outcome", strings.TrimSpace(outcome)))
	m.taxResolutions.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordScheduleReplacement increments tax schedule replacement counts.
func (m *Metrics) RecordScheduleReplacement(ctx context.Context) {
	if m == nil {
		return
	}
	m.scheduleReplacements.Add(ctx, 1)
}

// RecordReceiptRendered increments rendered receipt counts.
func (m *Metrics) RecordReceiptRendered(ctx context.Context) {
	if m == nil {
		return
	}
	m.receiptsRendered.Add(ctx, 1)
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
	"route":       {},
	"method":      {},
	"status_code": {},
	"member_kind": {},
	"outcome":     {},
	"reason":      {},
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
