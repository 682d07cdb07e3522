package metrics

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
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
	ServiceName      string
	Environment      string
}

// Metrics exposes application-level instruments.
type Metrics struct {
	conversionsIngested  metric.Int64Counter
	conversionsValidated metric.Int64Counter
	commissionsCreated   metric.Int64Counter
	payoutsGenerated     metric.Int64Counter
	payoutsProcessed     metric.Int64Counter
	outboxDispatched     metric.Int64Counter
}

// NewProvider configures and registers the meter provider.
func NewProvider(lc fx.Lifecycle, cfg Config, log *zap.Logger) (metric.MeterProvider, error) {
	if !cfg.Enabled {
		provider := noop.NewMeterProvider()
		otel.SetMeterProvider(provider)
		return provider, nil
	}

	exporter, err := otlpmetricgrpc.New(
		context.Background(),
		otlpmetricgrpc.WithEndpoint(cfg.ExporterEndpoint),
		otlpmetricgrpc.WithInsecure(),
	)
	if err != nil {
		return nil, err
	}

	reader := sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(10*time.Second))
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	otel.SetMeterProvider(provider)

	if lc != nil {
		lc.Append(fx.Hook{
			OnStop: func(ctx context.Context) error {
				log.Info("shutting down meter provider")
				return provider.Shutdown(ctx)
			},
		})
	}

	return provider, nil
}

// New builds the application metrics instruments.
func New(provider metric.MeterProvider) (*Metrics, error) {
	meter := provider.Meter("trackmint")

	m := &Metrics{}
	var err error

	if m.conversionsIngested, err = meter.Int64Counter("conversions_ingested_total"); err != nil {
		return nil, fmt.Errorf("create conversions counter: %w", err)
	}
	if m.conversionsValidated, err = meter.Int64Counter("conversions_validated_total"); err != nil {
		return nil, fmt.Errorf("create validations counter: %w", err)
	}
	if m.commissionsCreated, err = meter.Int64Counter("commissions_created_total"); err != nil {
		return nil, fmt.Errorf("create commissions counter: %w", err)
	}
	if m.payoutsGenerated, err = meter.Int64Counter("payouts_generated_total"); err != nil {
		return nil, fmt.Errorf("create payouts counter: %w", err)
	}
	if m.payoutsProcessed, err = meter.Int64Counter("payouts_processed_total"); err != nil {
		return nil, fmt.Errorf("create payouts processed counter: %w", err)
	}
	if m.outboxDispatched, err = meter.Int64Counter("outbox_dispatched_total"); err != nil {
		return nil, fmt.Errorf("create outbox counter: %w", err)
	}

	return m, nil
}

func (m *Metrics) RecordConversionIngested(ctx context.Context, conversionType string) {
	if m == nil || m.conversionsIngested == nil {
		return
	}
	m.conversionsIngested.Add(ctx, 1, metric.WithAttributes(attribute.String("type", conversionType)))
}

func (m *Metrics) RecordConversionValidated(ctx context.Context) {
	if m == nil || m.conversionsValidated == nil {
		return
	}
	m.conversionsValidated.Add(ctx, 1)
}

func (m *Metrics) RecordCommissionCreated(ctx context.Context) {
	if m == nil || m.commissionsCreated == nil {
		return
	}
	m.commissionsCreated.Add(ctx, 1)
}

func (m *Metrics) RecordPayoutGenerated(ctx context.Context) {
	if m == nil || m.payoutsGenerated == nil {
		return
	}
	m.payoutsGenerated.Add(ctx, 1)
}

func (m *Metrics) RecordPayoutProcessed(ctx context.Context, status string) {
	if m == nil || m.payoutsProcessed == nil {
		return
	}
	m.payoutsProcessed.Add(ctx, 1, metric.WithAttributes(attribute.String("status", status)))
}

func (m *Metrics) RecordOutboxDispatched(ctx context.Context, eventType string) {
	if m == nil || m.outboxDispatched == nil {
		return
	}
	m.outboxDispatched.Add(ctx, 1, metric.WithAttributes(attribute.String("event_type", eventType)))
}
