package das

import (
	"context"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const (
	outcomeLabel = "outcome"
	failedLabel  = "failed"
	queueLabel   = "queue"
)

var meter = otel.Meter("das")

type metrics struct {
	sampled    metric.Int64Counter
	sampleTime metric.Float64Histogram
	fragments  metric.Int64Counter
	fulfilled  metric.Int64Counter
	verified   metric.Int64Counter
	archived   metric.Int64Counter
	newRoot    metric.Int64Counter

	lastRoot atomic.Uint64
}

// WithMetrics registers the sampling pipeline metrics.
func (d *DASer) WithMetrics() error {
	sampled, err := meter.Int64Counter("das_sampled_slots_counter",
		metric.WithDescription("sampled slots counter by outcome"))
	if err != nil {
		return err
	}

	sampleTime, err := meter.Float64Histogram("das_sample_time_hist",
		metric.WithDescription("duration of sampling a single slot"))
	if err != nil {
		return err
	}

	fragments, err := meter.Int64Counter("das_received_fragments_counter",
		metric.WithDescription("fragments received after deduplication"))
	if err != nil {
		return err
	}

	fulfilled, err := meter.Int64Counter("das_fulfilled_fragments_counter",
		metric.WithDescription("received fragments answering a requested index"))
	if err != nil {
		return err
	}

	verified, err := meter.Int64Counter("das_verified_fragments_counter",
		metric.WithDescription("verified fragments counter"))
	if err != nil {
		return err
	}

	archived, err := meter.Int64Counter("das_archived_fragments_counter",
		metric.WithDescription("archive writes counter"))
	if err != nil {
		return err
	}

	newRoot, err := meter.Int64Counter("das_root_updated_counter",
		metric.WithDescription("amount of root slot notifications received"))
	if err != nil {
		return err
	}

	lastRoot, err := meter.Int64ObservableGauge("das_latest_root_slot",
		metric.WithDescription("latest notified root slot"))
	if err != nil {
		return err
	}

	lastSampled, err := meter.Int64ObservableGauge("das_latest_sampled_slot",
		metric.WithDescription("latest successfully sampled slot"))
	if err != nil {
		return err
	}

	pending, err := meter.Int64ObservableGauge("das_pending_items",
		metric.WithDescription("items waiting in the pipeline queues"))
	if err != nil {
		return err
	}

	m := &metrics{
		sampled:    sampled,
		sampleTime: sampleTime,
		fragments:  fragments,
		fulfilled:  fulfilled,
		verified:   verified,
		archived:   archived,
		newRoot:    newRoot,
	}

	callback := func(_ context.Context, observer metric.Observer) error {
		if root := m.lastRoot.Load(); root != 0 {
			observer.ObserveInt64(lastRoot, int64(root))
		}
		stats := d.SamplingStats()
		if stats.LastSampledSlot != 0 {
			observer.ObserveInt64(lastSampled, int64(stats.LastSampledSlot))
		}
		observer.ObserveInt64(pending, int64(stats.PendingSlots),
			metric.WithAttributes(attribute.String(queueLabel, "slots")))
		observer.ObserveInt64(pending, int64(stats.PendingBatches),
			metric.WithAttributes(attribute.String(queueLabel, "batches")))
		observer.ObserveInt64(pending, int64(stats.PendingVerifiedFragment),
			metric.WithAttributes(attribute.String(queueLabel, "verified")))
		return nil
	}
	if _, err = meter.RegisterCallback(callback, lastRoot, lastSampled, pending); err != nil {
		return err
	}

	d.setMetrics(m)
	return nil
}

func (m *metrics) observeNewRoot(ctx context.Context, root uint64) {
	if m == nil {
		return
	}
	if ctx.Err() != nil {
		ctx = context.Background()
	}
	m.newRoot.Add(ctx, 1)
	m.lastRoot.Store(root)
}

func (m *metrics) observeSample(ctx context.Context, out outcome, dur time.Duration) {
	if m == nil {
		return
	}
	if ctx.Err() != nil {
		ctx = context.Background()
	}
	attrs := metric.WithAttributes(attribute.String(outcomeLabel, out.String()))
	m.sampled.Add(ctx, 1, attrs)
	m.sampleTime.Record(ctx, dur.Seconds(), attrs)
}

func (m *metrics) observeBatch(ctx context.Context, b batch) {
	if m == nil {
		return
	}
	if ctx.Err() != nil {
		ctx = context.Background()
	}
	m.fragments.Add(ctx, int64(len(b.fragments)))
	m.fulfilled.Add(ctx, int64(b.fulfilled))
}

func (m *metrics) observeVerification(ctx context.Context, passed, failed int) {
	if m == nil {
		return
	}
	if ctx.Err() != nil {
		ctx = context.Background()
	}
	m.verified.Add(ctx, int64(passed), metric.WithAttributes(attribute.Bool(failedLabel, false)))
	m.verified.Add(ctx, int64(failed), metric.WithAttributes(attribute.Bool(failedLabel, true)))
}

func (m *metrics) observeArchive(ctx context.Context, err error) {
	if m == nil {
		return
	}
	if ctx.Err() != nil {
		ctx = context.Background()
	}
	m.archived.Add(ctx, 1, metric.WithAttributes(attribute.Bool(failedLabel, err != nil)))
}
