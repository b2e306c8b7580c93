package das

import (
	"context"
	"sync"

	"github.com/gammazero/workerpool"

	"github.com/shredwatch/shredwatch-node/fragment"
)

// verifiedFragment is a fragment that passed verification, paired with the
// producer it was verified against.
type verifiedFragment struct {
	fragment fragment.Verified
	producer fragment.Pubkey
}

// verifier checks every fragment of a batch in parallel and forwards the
// ones that pass.
type verifier struct {
	pool *workerpool.WorkerPool
	in   *queue[batch]
	out  *queue[verifiedFragment]

	stats   *stats
	metrics *metrics

	done
}

func (v *verifier) run(ctx context.Context) {
	defer v.indicateDone()

	for {
		b, err := v.in.pop(ctx)
		if err != nil {
			return
		}

		passed := verifyBatch(v.pool, b)
		v.stats.observeVerification(len(passed), len(b.fragments)-len(passed))
		v.metrics.observeVerification(ctx, len(passed), len(b.fragments)-len(passed))

		for _, vf := range passed {
			if err := v.out.push(vf); err != nil {
				log.Warnw("dropping verified fragment", "id", vf.fragment.Fragment().ID(), "err", err)
			}
		}
	}
}

// verifyBatch verifies every non-nil fragment of b on the pool and returns
// the ones that passed. Failures are logged and dropped.
func verifyBatch(pool *workerpool.WorkerPool, b batch) []verifiedFragment {
	results := make([]fragment.Verified, len(b.fragments))
	errs := make([]error, len(b.fragments))

	var wg sync.WaitGroup
	for i, f := range b.fragments {
		if f == nil {
			errs[i] = fragment.ErrMissingKind
			continue
		}
		wg.Add(1)
		pool.Submit(func() {
			defer wg.Done()
			results[i], errs[i] = fragment.Verify(f, b.producer)
		})
	}
	wg.Wait()

	passed := make([]verifiedFragment, 0, len(results))
	for i, err := range errs {
		if err != nil {
			f := b.fragments[i]
			if f != nil {
				log.Warnw("fragment failed verification", "slot", f.Slot, "kind", f.Kind(),
					"index", f.Index, "producer", b.producer, "err", err)
			}
			continue
		}
		passed = append(passed, verifiedFragment{fragment: results[i], producer: b.producer})
	}
	return passed
}
