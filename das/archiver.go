package das

import (
	"context"

	"github.com/mr-tron/base58"

	"github.com/shredwatch/shredwatch-node/archive"
	"github.com/shredwatch/shredwatch-node/fragment"
)

// Archive stores verified fragments.
type Archive interface {
	Put(context.Context, fragment.Verified, fragment.Pubkey) (archive.Key, error)
}

// archiver writes every verified fragment to the archive. A nil archive
// drains and discards them.
type archiver struct {
	store Archive
	in    *queue[verifiedFragment]

	stats   *stats
	metrics *metrics

	done
}

func (a *archiver) run(ctx context.Context) {
	defer a.indicateDone()

	for {
		vf, err := a.in.pop(ctx)
		if err != nil {
			return
		}
		if a.store == nil {
			continue
		}

		f := vf.fragment.Fragment()
		key, err := a.store.Put(ctx, vf.fragment, vf.producer)
		a.stats.observeArchive(err)
		a.metrics.observeArchive(ctx, err)
		if err != nil {
			log.Errorw("archiving fragment", "slot", f.Slot, "kind", f.Kind(), "index", f.Index, "err", err)
			continue
		}

		seed := f.ID().Seed(vf.producer)
		log.Debugw("archived fragment", "seed", base58.Encode(seed[:]), "key", key,
			"slot", f.Slot, "kind", f.Kind(), "index", f.Index)
	}
}
