package node

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdk "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func TestWithMetrics(t *testing.T) {
	reader := sdk.NewManualReader()
	provider := sdk.NewMeterProvider(sdk.WithReader(reader))
	t.Cleanup(func() {
		_ = provider.Shutdown(context.Background())
	})

	// re-assign the global variable `meter` from metrics.go
	meter = provider.Meter("test")
	err := WithMetrics(&BuildInfo{SemanticVersion: "0.1.0", LastCommit: "0123456789"})
	require.NoError(t, err)

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))
	require.Len(t, rm.ScopeMetrics, 1)

	names := make(map[string]metricdata.Metrics)
	for _, m := range rm.ScopeMetrics[0].Metrics {
		names[m.Name] = m
	}
	require.Contains(t, names, "node_start_ts")
	require.Contains(t, names, "node_runtime_counter_in_seconds")
	require.Contains(t, names, "build_info")

	build, ok := names["build_info"].Data.(metricdata.Gauge[int64])
	require.True(t, ok)
	require.Len(t, build.DataPoints, 1)
	assert.EqualValues(t, 1, build.DataPoints[0].Value)
	version, ok := build.DataPoints[0].Attributes.Value("semantic_version")
	require.True(t, ok)
	assert.Equal(t, "v0.1.0", version.AsString())
}
