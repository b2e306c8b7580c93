package das

import (
	"sync/atomic"
)

// SamplingStats are the counters of the sampling pipeline since start.
type SamplingStats struct {
	SlotsCompleted          uint64 `json:"slots_completed"`
	SlotsMalformed          uint64 `json:"slots_abandoned_malformed"`
	SlotsTransportError     uint64 `json:"slots_abandoned_transport_error"`
	Requests                uint64 `json:"requests"`
	FragmentsRequested      uint64 `json:"fragments_requested"`
	FragmentsReceived       uint64 `json:"fragments_received"`
	FragmentsFulfilled      uint64 `json:"fragments_fulfilled"`
	FragmentsVerified       uint64 `json:"fragments_verified"`
	FragmentsRejected       uint64 `json:"fragments_rejected"`
	FragmentsArchived       uint64 `json:"fragments_archived"`
	ArchiveFailures         uint64 `json:"archive_failures"`
	LastSampledSlot         uint64 `json:"last_sampled_slot"`
	PendingSlots            int    `json:"pending_slots"`
	PendingBatches          int    `json:"pending_batches"`
	PendingVerifiedFragment int    `json:"pending_verified_fragments"`
}

type stats struct {
	completed, malformed, transport atomic.Uint64

	requests, requested, received, fulfilled atomic.Uint64
	verified, rejected                       atomic.Uint64
	archived, archiveFailed                  atomic.Uint64

	lastSampled atomic.Uint64
}

func (s *stats) observeOutcome(slot uint64, out outcome) {
	switch out {
	case completed:
		s.completed.Add(1)
		s.lastSampled.Store(slot)
	case abandonedMalformed:
		s.malformed.Add(1)
	case abandonedTransportError:
		s.transport.Add(1)
	}
}

func (s *stats) observeRequest(indices int) {
	s.requests.Add(1)
	s.requested.Add(uint64(indices))
}

func (s *stats) observeBatch(b batch) {
	s.received.Add(uint64(len(b.fragments)))
	s.fulfilled.Add(uint64(b.fulfilled))
}

func (s *stats) observeVerification(passed, failed int) {
	s.verified.Add(uint64(passed))
	s.rejected.Add(uint64(failed))
}

func (s *stats) observeArchive(err error) {
	if err != nil {
		s.archiveFailed.Add(1)
		return
	}
	s.archived.Add(1)
}

func (s *stats) snapshot() SamplingStats {
	return SamplingStats{
		SlotsCompleted:      s.completed.Load(),
		SlotsMalformed:      s.malformed.Load(),
		SlotsTransportError: s.transport.Load(),
		Requests:            s.requests.Load(),
		FragmentsRequested:  s.requested.Load(),
		FragmentsReceived:   s.received.Load(),
		FragmentsFulfilled:  s.fulfilled.Load(),
		FragmentsVerified:   s.verified.Load(),
		FragmentsRejected:   s.rejected.Load(),
		FragmentsArchived:   s.archived.Load(),
		ArchiveFailures:     s.archiveFailed.Load(),
		LastSampledSlot:     s.lastSampled.Load(),
	}
}
