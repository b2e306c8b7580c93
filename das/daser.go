package das

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gammazero/workerpool"
	logging "github.com/ipfs/go-log/v2"

	"github.com/shredwatch/shredwatch-node/fragment"
	"github.com/shredwatch/shredwatch-node/health"
)

var log = logging.Logger("das")

var errStopped = errors.New("das: DASer is stopped")

// Ledger is the part of the ledger the DASer talks to.
type Ledger interface {
	Fetcher
	SlotSource
}

// DASer continuously samples the fragments of new root slots.
type DASer struct {
	params  Parameters
	ledger  Ledger
	archive Archive
	health  *health.Tracker
	indices *indexSampler

	pool     *workerpool.WorkerPool
	slots    *queue[uint64]
	batches  *queue[batch]
	verified *queue[verifiedFragment]

	monitor  *monitor
	sampler  *sampler
	verifier *verifier
	archiver *archiver

	stats   *stats
	metrics *metrics

	cancel  context.CancelFunc
	running int32
	stopped atomic.Bool
	// poolLk guards the pool against being stopped under a running pull.
	poolLk sync.RWMutex
}

// NewDASer creates a new DASer. A nil archive discards verified fragments.
func NewDASer(
	l Ledger,
	store Archive,
	tracker *health.Tracker,
	options ...Option,
) (*DASer, error) {
	d := &DASer{
		params:   DefaultParameters(),
		ledger:   l,
		archive:  store,
		health:   tracker,
		slots:    newQueue[uint64](),
		batches:  newQueue[batch](),
		verified: newQueue[verifiedFragment](),
		stats:    &stats{},
	}
	for _, applyOpt := range options {
		applyOpt(d)
	}
	if err := d.params.Validate(); err != nil {
		return nil, err
	}
	if d.indices == nil {
		d.indices = newIndexSampler(cryptoSeededSource())
	}

	d.pool = workerpool.New(d.params.VerifyWorkers)
	d.monitor = newMonitor(l, tracker, d.slots, nil)
	d.sampler = &sampler{
		fetcher:      l,
		health:       tracker,
		draw:         d.indices.sample,
		params:       d.params,
		in:           d.slots,
		out:          d.batches,
		monitorAlive: d.monitor.alive.Load,
		stats:        d.stats,
		done:         newDone("sampler"),
	}
	d.verifier = &verifier{
		pool:  d.pool,
		in:    d.batches,
		out:   d.verified,
		stats: d.stats,
		done:  newDone("verifier"),
	}
	d.archiver = &archiver{
		store: store,
		in:    d.verified,
		stats: d.stats,
		done:  newDone("archiver"),
	}
	return d, nil
}

// Start subscribes to slot updates and spawns the sampling pipeline.
func (d *DASer) Start(context.Context) error {
	if d.stopped.Load() {
		return errStopped
	}
	if !atomic.CompareAndSwapInt32(&d.running, 0, 1) {
		return errors.New("das: DASer already started")
	}

	runCtx, cancel := context.WithCancel(context.Background())
	d.cancel = cancel

	go d.monitor.run(runCtx)
	go d.sampler.run(runCtx)
	go d.verifier.run(runCtx)
	go d.archiver.run(runCtx)

	log.Infow("started sampling", "sample_size", d.params.SampleSize,
		"verify_workers", d.params.VerifyWorkers, "archive", d.archive != nil)
	return nil
}

// Stop stops sampling and waits for every stage to exit.
func (d *DASer) Stop(ctx context.Context) error {
	if !d.stopped.CompareAndSwap(false, true) {
		return nil
	}

	if atomic.CompareAndSwapInt32(&d.running, 1, 0) {
		d.cancel()
		d.slots.close()
		d.batches.close()
		d.verified.close()

		for _, dn := range []*done{&d.monitor.done, &d.sampler.done, &d.verifier.done, &d.archiver.done} {
			if err := dn.wait(ctx); err != nil {
				// the verifier may still submit to the pool, so it is left running
				return err
			}
		}
		log.Info("stopped sampling")
	}

	d.poolLk.Lock()
	defer d.poolLk.Unlock()
	d.pool.StopWait()
	return nil
}

// PullResult is the outcome of sampling a single slot on demand.
type PullResult struct {
	Slot      uint64          `json:"slot"`
	Producer  fragment.Pubkey `json:"producer"`
	Requested []uint32        `json:"requested"`
	Received  int             `json:"received"`
	Fulfilled int             `json:"fulfilled"`
	Verified  int             `json:"verified"`
	Rejected  int             `json:"rejected"`
	Archived  int             `json:"archived"`
	Duration  time.Duration   `json:"duration"`
}

// AllVerified reports whether every received fragment passed verification.
func (r *PullResult) AllVerified() bool {
	return r.Received > 0 && r.Rejected == 0
}

// PullAndVerify samples and verifies slot once, outside of the pipeline.
// Verified fragments are archived when archive is true and the DASer has an
// archive.
func (d *DASer) PullAndVerify(ctx context.Context, slot uint64, archive bool) (*PullResult, error) {
	d.poolLk.RLock()
	defer d.poolLk.RUnlock()
	if d.stopped.Load() {
		return nil, errStopped
	}

	start := time.Now()
	b, out, err := d.sampler.sampleSlot(ctx, slot)
	if err != nil {
		return nil, fmt.Errorf("das: sampling slot %d (%s): %w", slot, out, err)
	}

	passed := verifyBatch(d.pool, b)
	res := &PullResult{
		Slot:      slot,
		Producer:  b.producer,
		Requested: b.requested,
		Received:  len(b.fragments),
		Fulfilled: b.fulfilled,
		Verified:  len(passed),
		Rejected:  len(b.fragments) - len(passed),
	}

	if archive && d.archive != nil {
		for _, vf := range passed {
			if _, err := d.archive.Put(ctx, vf.fragment, vf.producer); err != nil {
				log.Errorw("archiving pulled fragment", "id", vf.fragment.Fragment().ID(), "err", err)
				continue
			}
			res.Archived++
		}
	}
	res.Duration = time.Since(start)
	return res, nil
}

// SamplingStats returns the current pipeline counters.
func (d *DASer) SamplingStats() SamplingStats {
	s := d.stats.snapshot()
	s.PendingSlots = d.slots.len()
	s.PendingBatches = d.batches.len()
	s.PendingVerifiedFragment = d.verified.len()
	return s
}

func (d *DASer) setMetrics(m *metrics) {
	d.metrics = m
	d.monitor.metrics = m
	d.sampler.metrics = m
	d.verifier.metrics = m
	d.archiver.metrics = m
}
