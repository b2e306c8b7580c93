package node

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

var meter = otel.Meter("node")

// WithMetrics registers node metrics.
func WithMetrics(info *BuildInfo) error {
	started := time.Now()

	nodeStartTS, err := meter.Int64ObservableGauge(
		"node_start_ts",
		metric.WithDescription("timestamp when the node was started"),
	)
	if err != nil {
		return err
	}

	totalNodeRunTime, err := meter.Float64ObservableCounter(
		"node_runtime_counter_in_seconds",
		metric.WithDescription("total time the node has been running"),
	)
	if err != nil {
		return err
	}

	buildInfo, err := meter.Int64ObservableGauge(
		"build_info",
		metric.WithDescription("version of the running binary, always 1"),
	)
	if err != nil {
		return err
	}
	buildAttrs := metric.WithAttributes(
		attribute.String("semantic_version", info.GetSemanticVersion()),
		attribute.String("last_commit", info.CommitShortSha()),
		attribute.String("golang_version", info.GolangVersion),
	)

	callback := func(_ context.Context, observer metric.Observer) error {
		observer.ObserveInt64(nodeStartTS, started.Unix())
		observer.ObserveFloat64(totalNodeRunTime, time.Since(started).Seconds())
		observer.ObserveInt64(buildInfo, 1, buildAttrs)
		return nil
	}

	_, err = meter.RegisterCallback(callback, nodeStartTS, totalNodeRunTime, buildInfo)
	return err
}
