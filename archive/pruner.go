package archive

import (
	"context"
	"fmt"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/ipfs/go-datastore"
	"github.com/ipfs/go-datastore/query"
)

// Pruner periodically removes records older than the retention period.
type Pruner struct {
	store     *Store
	retention time.Duration
	interval  time.Duration
	clock     clock.Clock

	cancel context.CancelFunc
	done   chan struct{}
}

func NewPruner(store *Store, opts ...Option) (*Pruner, error) {
	p := DefaultParameters()
	p.clock = store.clock
	for _, opt := range opts {
		opt(&p)
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return &Pruner{
		store:     store,
		retention: p.Retention,
		interval:  p.PruneInterval,
		clock:     p.clock,
	}, nil
}

func (p *Pruner) Start(context.Context) error {
	if p.retention == 0 {
		log.Info("archive pruning is disabled")
		return nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	p.cancel = cancel
	p.done = make(chan struct{})
	go p.run(ctx, p.clock.Ticker(p.interval))
	return nil
}

func (p *Pruner) Stop(ctx context.Context) error {
	if p.cancel == nil {
		return nil
	}
	p.cancel()
	select {
	case <-p.done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("archive pruner stuck: %w", ctx.Err())
	}
}

func (p *Pruner) run(ctx context.Context, ticker *clock.Ticker) {
	defer close(p.done)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
		case <-ctx.Done():
			return
		}

		n, err := p.Prune(ctx)
		if err != nil {
			log.Errorw("pruning archive", "err", err)
			continue
		}
		if n > 0 {
			log.Infow("pruned archive", "removed", n)
		}
	}
}

// Prune removes every record last verified before now minus the retention
// period and returns how many were removed.
func (p *Pruner) Prune(ctx context.Context) (int, error) {
	cutoff := p.clock.Now().Add(-p.retention)

	res, err := p.store.ds.Query(ctx, query.Query{})
	if err != nil {
		return 0, fmt.Errorf("archive: querying records: %w", err)
	}
	defer res.Close()

	var expired []datastore.Key
	for entry := range res.Next() {
		if entry.Error != nil {
			return 0, fmt.Errorf("archive: iterating records: %w", entry.Error)
		}
		rec, err := unmarshalRecord(entry.Value)
		if err != nil {
			log.Warnw("skipping undecodable record", "key", entry.Key, "err", err)
			continue
		}
		key := datastore.NewKey(entry.Key)
		last, err := p.store.lastVerified(ctx, key, rec)
		if err != nil {
			return 0, fmt.Errorf("archive: reading last verification of %s: %w", key, err)
		}
		if last.Before(cutoff) {
			expired = append(expired, key)
		}
	}
	if len(expired) == 0 {
		return 0, nil
	}

	batch, err := p.store.ds.Batch(ctx)
	if err != nil {
		return 0, fmt.Errorf("archive: creating batch: %w", err)
	}
	for _, key := range expired {
		if err := batch.Delete(ctx, key); err != nil {
			return 0, fmt.Errorf("archive: deleting %s: %w", key, err)
		}
	}
	if err := batch.Commit(ctx); err != nil {
		return 0, fmt.Errorf("archive: committing prune: %w", err)
	}
	for _, key := range expired {
		if err := p.store.verified.Delete(ctx, key); err != nil {
			log.Warnw("deleting last verification", "key", key, "err", err)
		}
	}

	for _, key := range expired {
		if k, err := ParseKey(key.BaseNamespace()); err == nil {
			p.store.cache.Remove(k)
		}
	}
	return len(expired), nil
}
