package das

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/shredwatch/shredwatch-node/health"
	"github.com/shredwatch/shredwatch-node/ledger"
)

// SlotSource opens slot notification streams.
type SlotSource interface {
	SubscribeSlots(context.Context) (ledger.SlotStream, error)
}

// monitor pushes every notified root slot to the sampler.
type monitor struct {
	source SlotSource
	health *health.Tracker
	out    *queue[uint64]

	metrics *metrics
	alive   atomic.Bool

	done
}

func newMonitor(source SlotSource, tracker *health.Tracker, out *queue[uint64], m *metrics) *monitor {
	return &monitor{
		source:  source,
		health:  tracker,
		out:     out,
		metrics: m,
		done:    newDone("slot monitor"),
	}
}

// run subscribes once and forwards slots until the subscription breaks or ctx
// is done. It never reconnects.
func (m *monitor) run(ctx context.Context) {
	defer m.indicateDone()

	stream, err := m.source.SubscribeSlots(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		log.Errorw("can't connect to slot subscription", "err", err)
		m.health.Set(health.Crashed, fmt.Sprintf("can't connect to slot subscription: %v", err))
		return
	}
	defer stream.Close()

	m.alive.Store(true)
	defer m.alive.Store(false)
	log.Info("subscribed to slot updates")

	for {
		upd, err := stream.Next()
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			log.Errorw("slot subscription lost", "err", err)
			m.health.Set(health.Crashed, fmt.Sprintf("slot subscription lost: %v", err))
			return
		}

		if err := m.out.push(upd.Root); err != nil {
			log.Warnw("dropping slot update", "root", upd.Root, "err", err)
			continue
		}
		m.metrics.observeNewRoot(ctx, upd.Root)
		log.Debugw("slot updated", "root", upd.Root, "slot", upd.Slot)
	}
}
