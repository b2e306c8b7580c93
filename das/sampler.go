package das

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/shredwatch/shredwatch-node/fragment"
	"github.com/shredwatch/shredwatch-node/health"
	"github.com/shredwatch/shredwatch-node/ledger"
	"github.com/shredwatch/shredwatch-node/libs/utils"
)

const activeDetail = "actively sampling fragments"

var tracer = otel.Tracer("das")

var (
	errNoProbe   = errors.New("das: probe returned no fragment")
	errEmptySlot = errors.New("das: slot reports zero fragments")
	errBadLeader = errors.New("das: invalid slot leader")
	errProbeSlot = errors.New("das: probe answered for another slot")
)

// Fetcher requests fragments of a slot from the ledger.
type Fetcher interface {
	GetFragments(ctx context.Context, slot uint64, indices []uint32) (*ledger.Result, error)
}

// outcome is the result of sampling a single slot.
type outcome uint8

const (
	completed outcome = iota
	abandonedMalformed
	abandonedTransportError
)

func (o outcome) String() string {
	switch o {
	case completed:
		return "completed"
	case abandonedMalformed:
		return "abandoned_malformed"
	case abandonedTransportError:
		return "abandoned_transport_error"
	default:
		return fmt.Sprintf("outcome(%d)", uint8(o))
	}
}

// batch is the reconciled sample of one slot.
type batch struct {
	slot      uint64
	producer  fragment.Pubkey
	requested []uint32
	fragments []*fragment.Fragment
	fulfilled int
}

// sampler turns slot numbers into fetched batches of fragments.
type sampler struct {
	fetcher Fetcher
	health  *health.Tracker
	params  Parameters
	// draw picks the sample indices for a slot holding total fragments.
	draw func(total uint32, n uint) []uint32

	in  *queue[uint64]
	out *queue[batch]

	monitorAlive func() bool
	stats        *stats
	metrics      *metrics

	failures    uint
	recoverNext bool

	done
}

func (s *sampler) run(ctx context.Context) {
	defer s.indicateDone()

	for {
		s.tick()

		slot, err := s.in.pop(ctx)
		if err != nil {
			return
		}

		start := time.Now()
		b, out, err := s.sampleSlot(ctx, slot)
		if ctx.Err() != nil {
			return
		}
		s.handle(ctx, slot, b, out, err, time.Since(start))
	}
}

// tick reports the sampler as active. A prior Crashed state is kept unless
// the last cycle completed successfully while Crashed was already observed.
func (s *sampler) tick() {
	if s.recoverNext {
		s.recoverNext = false
		if s.monitorAlive() && s.health.Recover(activeDetail) {
			log.Info("sampling recovered")
			return
		}
	}
	s.health.ActivateUnlessCrashed(activeDetail)
}

func (s *sampler) handle(ctx context.Context, slot uint64, b batch, out outcome, err error, dur time.Duration) {
	s.stats.observeOutcome(slot, out)
	s.metrics.observeSample(ctx, out, dur)

	switch out {
	case completed:
		s.failures = 0
		if s.health.Get().Status == health.Crashed {
			s.recoverNext = true
		}
		s.stats.observeBatch(b)
		s.metrics.observeBatch(ctx, b)
		if err := s.out.push(b); err != nil {
			log.Warnw("dropping sampled slot", "slot", slot, "err", err)
		}
		log.Infow("sampled slot", "slot", slot, "requested", len(b.requested),
			"received", len(b.fragments), "fulfilled", b.fulfilled, "finished (s)", dur.Seconds())
	case abandonedMalformed:
		log.Warnw("abandoning slot with malformed response", "slot", slot, "err", err)
	case abandonedTransportError:
		log.Errorw("abandoning slot after request failure", "slot", slot, "err", err)
		s.failures++
		if s.params.MaxConsecutiveFailures > 0 && s.failures == s.params.MaxConsecutiveFailures {
			s.health.Set(health.Crashed,
				fmt.Sprintf("%d slots in a row failed to fetch: %v", s.failures, err))
		}
	}
}

// sampleSlot probes fragment 0 of the slot, draws the sample and fetches it.
// It issues exactly two requests when the probe succeeds.
func (s *sampler) sampleSlot(ctx context.Context, slot uint64) (_ batch, out outcome, err error) {
	ctx, span := tracer.Start(ctx, "sample-slot", trace.WithAttributes(attribute.Int64("slot", int64(slot))))
	defer func() {
		span.SetAttributes(attribute.String("outcome", out.String()))
		utils.SetStatusAndEnd(span, err)
	}()

	probe, err := s.fetch(ctx, slot, []uint32{0})
	if err != nil {
		return batch{}, abandonedTransportError, err
	}
	first, err := probeFragment(probe)
	if err != nil {
		return batch{}, abandonedMalformed, err
	}
	if first.Slot != slot {
		return batch{}, abandonedMalformed, fmt.Errorf("%w: want %d, got %d", errProbeSlot, slot, first.Slot)
	}
	total := first.Total()
	if total == 0 {
		return batch{}, abandonedMalformed, fmt.Errorf("%w: slot %d, kind %s", errEmptySlot, slot, first.Kind())
	}

	indices := s.draw(total, s.params.SampleSize)
	log.Debugw("drew sample", "slot", slot, "kind", first.Kind(), "total", total, "indices", indices)

	res, err := s.fetch(ctx, slot, indices)
	if err != nil {
		return batch{}, abandonedTransportError, err
	}
	producer, err := fragment.ParsePubkey(res.Leader)
	if err != nil {
		return batch{}, abandonedMalformed, fmt.Errorf("%w %q: %w", errBadLeader, res.Leader, err)
	}
	frags, err := decodeFragments(slot, res.Fragments)
	if err != nil {
		return batch{}, abandonedMalformed, err
	}
	frags = dedup(frags)

	fulfilled := reconcile(fragment.ID{Slot: slot, Kind: first.Kind()}, frags, indices)
	if fulfilled < len(indices) {
		log.Warnw("received incomplete sample", "slot", slot,
			"requested", len(indices), "fulfilled", fulfilled)
	}

	return batch{
		slot:      slot,
		producer:  producer,
		requested: indices,
		fragments: frags,
		fulfilled: fulfilled,
	}, completed, nil
}

func (s *sampler) fetch(ctx context.Context, slot uint64, indices []uint32) (*ledger.Result, error) {
	if s.params.RequestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.params.RequestTimeout)
		defer cancel()
	}
	s.stats.observeRequest(len(indices))
	return s.fetcher.GetFragments(ctx, slot, indices)
}

// probeFragment returns the fragment answering a probe for index 0. The
// response carries a leading entry before the requested ones.
func probeFragment(res *ledger.Result) (*fragment.Fragment, error) {
	if len(res.Fragments) < 2 {
		return nil, errNoProbe
	}
	f, err := fragment.Unmarshal(res.Fragments[1])
	if err != nil {
		return nil, fmt.Errorf("decoding probe: %w", err)
	}
	if f == nil {
		return nil, errNoProbe
	}
	return f, nil
}

// decodeFragments decodes every entry of a response, dropping nulls. A single
// undecodable entry fails the whole response.
func decodeFragments(slot uint64, entries []json.RawMessage) ([]*fragment.Fragment, error) {
	frags := make([]*fragment.Fragment, 0, len(entries))
	for i, raw := range entries {
		f, err := fragment.Unmarshal(raw)
		if err != nil {
			return nil, fmt.Errorf("decoding entry %d: %w", i, err)
		}
		if f == nil {
			log.Debugw("received empty", "slot", slot, "position", i)
			continue
		}
		frags = append(frags, f)
	}
	return frags, nil
}

// dedup removes fragments equal to an earlier one, keeping the first.
func dedup(frags []*fragment.Fragment) []*fragment.Fragment {
	out := frags[:0]
	for _, f := range frags {
		seen := false
		for _, kept := range out {
			if kept.Equal(f) {
				seen = true
				break
			}
		}
		if !seen {
			out = append(out, f)
		}
	}
	return out
}

// reconcile counts the fragments answering a requested index of the sampled
// slot and kind, and logs the ones nobody asked for. An index is only unique
// within a slot and kind, so fragments of any other slot or kind never count.
func reconcile(sampled fragment.ID, frags []*fragment.Fragment, requested []uint32) int {
	want := make(map[uint32]struct{}, len(requested))
	for _, idx := range requested {
		want[idx] = struct{}{}
	}

	fulfilled := 0
	for _, f := range frags {
		_, ok := want[f.Index]
		if ok && f.Slot == sampled.Slot && f.Kind() == sampled.Kind {
			fulfilled++
			log.Debugw("received requested fragment", "slot", sampled.Slot, "index", f.Index)
			continue
		}
		log.Infow("received unrequested fragment", "slot", sampled.Slot, "fragment", f.ID())
	}
	return fulfilled
}
