package nodebuilder

import (
	"context"
	"fmt"
	"os"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/runtime"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	sdk "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.uber.org/fx"

	moddas "github.com/shredwatch/shredwatch-node/nodebuilder/das"
	"github.com/shredwatch/shredwatch-node/nodebuilder/node"
)

const metricsInterval = 10 * time.Second

// WithMetrics enables metrics exporting for the node.
func WithMetrics(enable bool, metricOpts []otlpmetrichttp.Option) fx.Option {
	if !enable {
		return fx.Options()
	}

	return fx.Options(
		fx.Supply(metricOpts),
		fx.Invoke(InitializeMetrics),
		fx.Invoke(func() error {
			return node.WithMetrics(node.GetBuildInfo())
		}),
		moddas.WithMetrics(),
	)
}

// InitializeMetrics initializes the global meter provider.
func InitializeMetrics(
	ctx context.Context,
	lc fx.Lifecycle,
	cfg *Config,
	opts []otlpmetrichttp.Option,
) error {
	instance, err := os.Hostname()
	if err != nil {
		instance = "unknown"
	}

	opts = append([]otlpmetrichttp.Option{otlpmetrichttp.WithCompression(otlpmetrichttp.GzipCompression)}, opts...)
	exp, err := otlpmetrichttp.New(ctx, opts...)
	if err != nil {
		return fmt.Errorf("creating OTLP metric exporter: %w", err)
	}

	provider := sdk.NewMeterProvider(
		sdk.WithReader(
			sdk.NewPeriodicReader(exp,
				sdk.WithTimeout(metricsInterval),
				sdk.WithInterval(metricsInterval))),
		sdk.WithResource(
			resource.NewWithAttributes(
				semconv.SchemaURL,
				semconv.ServiceNamespaceKey.String(cfg.Ledger.Cluster),
				semconv.ServiceNameKey.String("shredwatch"),
				semconv.ServiceVersionKey.String(node.GetBuildInfo().GetSemanticVersion()),
				semconv.ServiceInstanceIDKey.String(instance),
			)))

	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			return provider.Shutdown(ctx)
		},
	})

	otel.SetMeterProvider(provider)
	return runtime.Start(runtime.WithMinimumReadMemStatsInterval(metricsInterval))
}
