package das

import (
	"context"
	"encoding/json"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/shredwatch/shredwatch-node/fragment"
	"github.com/shredwatch/shredwatch-node/fragment/fragmenttest"
	"github.com/shredwatch/shredwatch-node/ledger"
)

// fakeFetcher serves a single slot from memory.
type fakeFetcher struct {
	lk      sync.Mutex
	leader  string
	entries map[uint32]json.RawMessage
	err     error
	calls   [][]uint32
}

func newFakeFetcher(t *testing.T, leader fragment.Pubkey, frags []*fragment.Fragment) *fakeFetcher {
	f := &fakeFetcher{
		leader:  leader.String(),
		entries: make(map[uint32]json.RawMessage),
	}
	for _, frag := range frags {
		raw, err := json.Marshal(frag)
		require.NoError(t, err)
		f.entries[frag.Index] = raw
	}
	return f
}

func (f *fakeFetcher) GetFragments(_ context.Context, _ uint64, indices []uint32) (*ledger.Result, error) {
	f.lk.Lock()
	defer f.lk.Unlock()

	f.calls = append(f.calls, append([]uint32(nil), indices...))
	if f.err != nil {
		return nil, f.err
	}

	res := &ledger.Result{
		Leader:    f.leader,
		Fragments: []json.RawMessage{json.RawMessage("null")},
	}
	for _, idx := range indices {
		raw, ok := f.entries[idx]
		if !ok {
			raw = json.RawMessage("null")
		}
		res.Fragments = append(res.Fragments, raw)
	}
	return res, nil
}

func (f *fakeFetcher) set(index uint32, raw string) {
	f.lk.Lock()
	defer f.lk.Unlock()
	f.entries[index] = json.RawMessage(raw)
}

func (f *fakeFetcher) drop(indices ...uint32) {
	f.lk.Lock()
	defer f.lk.Unlock()
	for _, idx := range indices {
		delete(f.entries, idx)
	}
}

func (f *fakeFetcher) callCount() int {
	f.lk.Lock()
	defer f.lk.Unlock()
	return len(f.calls)
}

func (f *fakeFetcher) lastCall() []uint32 {
	f.lk.Lock()
	defer f.lk.Unlock()
	return f.calls[len(f.calls)-1]
}

// fixedDraw returns a draw function that always picks indices.
func fixedDraw(indices ...uint32) func(uint32, uint) []uint32 {
	return func(uint32, uint) []uint32 {
		return append(append([]uint32(nil), indices...), 0)
	}
}

func testSlot(t *testing.T, slot uint64, kind fragment.Kind, total int) (*fragmenttest.Producer, []*fragment.Fragment) {
	prod := fragmenttest.NewProducer(t)
	return prod, prod.Slot(t, slot, kind, total)
}
