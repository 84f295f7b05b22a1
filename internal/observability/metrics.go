package observability

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
)

const meterName = "sales-admin-service"

// MetricsConfig is the slice of app config the exporter setup needs; the
// config package depends on this package for its own validation counter, so
// the dependency cannot run the other way.
type MetricsConfig struct {
	Enabled        bool
	Endpoint       string
	Insecure       bool
	ServiceName    string
	Environment    string
	ExportInterval int // seconds
}

type appMetrics struct {
	loginAttempts      metric.Int64Counter
	sessionValidations metric.Int64Counter
	rememberRestores   metric.Int64Counter
	repoOperations     metric.Int64Counter
	rateLimitDecisions metric.Int64Counter
	csvTransfers       metric.Int64Counter
	summaryRequests    metric.Int64Counter
}

var (
	metricsOnce sync.Once
	metrics     *appMetrics
)

// instruments are created lazily against the global meter provider, so the
// Record helpers are safe to call before (or without) InitMetrics.
func getMetrics() *appMetrics {
	metricsOnce.Do(func() {
		meter := otel.Meter(meterName)
		m := &appMetrics{}
		var err error
		if m.loginAttempts, err = meter.Int64Counter("auth.login.attempts"); err != nil {
			return
		}
		if m.sessionValidations, err = meter.Int64Counter("auth.session.validations"); err != nil {
			return
		}
		if m.rememberRestores, err = meter.Int64Counter("auth.remember.restores"); err != nil {
			return
		}
		if m.repoOperations, err = meter.Int64Counter("repository.operations"); err != nil {
			return
		}
		if m.rateLimitDecisions, err = meter.Int64Counter("http.rate_limit.decisions"); err != nil {
			return
		}
		if m.csvTransfers, err = meter.Int64Counter("sales.csv.transfers"); err != nil {
			return
		}
		if m.summaryRequests, err = meter.Int64Counter("summary.requests"); err != nil {
			return
		}
		metrics = m
	})
	return metrics
}

func RecordLoginAttempt(ctx context.Context, outcome string) {
	if m := getMetrics(); m != nil {
		m.loginAttempts.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
	}
}

func RecordSessionValidation(ctx context.Context, outcome string) {
	if m := getMetrics(); m != nil {
		m.sessionValidations.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
	}
}

func RecordRememberRestore(ctx context.Context, outcome string) {
	if m := getMetrics(); m != nil {
		m.rememberRestores.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
	}
}

func RecordRepositoryOperation(ctx context.Context, entity, operation, outcome string) {
	if m := getMetrics(); m != nil {
		m.repoOperations.Add(ctx, 1, metric.WithAttributes(
			attribute.String("entity", entity),
			attribute.String("operation", operation),
			attribute.String("outcome", outcome),
		))
	}
}

func RecordRateLimitDecision(ctx context.Context, scope, outcome string) {
	if m := getMetrics(); m != nil {
		m.rateLimitDecisions.Add(ctx, 1, metric.WithAttributes(
			attribute.String("scope", scope),
			attribute.String("outcome", outcome),
		))
	}
}

func RecordCSVTransfer(ctx context.Context, direction, channel, outcome string) {
	if m := getMetrics(); m != nil {
		m.csvTransfers.Add(ctx, 1, metric.WithAttributes(
			attribute.String("direction", direction),
			attribute.String("channel", channel),
			attribute.String("outcome", outcome),
		))
	}
}

func RecordSummaryRequest(ctx context.Context, kind string) {
	if m := getMetrics(); m != nil {
		m.summaryRequests.Add(ctx, 1, metric.WithAttributes(attribute.String("kind", kind)))
	}
}

func InitMetrics(ctx context.Context, cfg MetricsConfig, logger *slog.Logger) (*sdkmetric.MeterProvider, error) {
	if !cfg.Enabled {
		mp := sdkmetric.NewMeterProvider()
		otel.SetMeterProvider(mp)
		logger.Info("otel metrics disabled")
		return mp, nil
	}

	opts := []otlpmetricgrpc.Option{otlpmetricgrpc.WithEndpoint(cfg.Endpoint)}
	if cfg.Insecure {
		opts = append(opts, otlpmetricgrpc.WithInsecure())
	}
	exporter, err := otlpmetricgrpc.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create otlp metric exporter: %w", err)
	}

	res, err := newResource(ctx, cfg.ServiceName, cfg.Environment)
	if err != nil {
		return nil, fmt.Errorf("create metric resource: %w", err)
	}

	interval := cfg.ExportInterval
	if interval <= 0 {
		interval = 30
	}
	reader := sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(time.Duration(interval)*time.Second))
	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(reader),
	)
	otel.SetMeterProvider(mp)
	return mp, nil
}

func newResource(ctx context.Context, serviceName, environment string) (*resource.Resource, error) {
	return resource.New(ctx,
		resource.WithAttributes(
			attribute.String("service.name", serviceName),
			attribute.String("deployment.environment", environment),
		),
	)
}
