package das

import (
	"context"
	"testing"
	"time"

	"github.com/gammazero/workerpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shredwatch/shredwatch-node/fragment"
	"github.com/shredwatch/shredwatch-node/fragment/fragmenttest"
)

func TestVerifyBatch_PartialFailure(t *testing.T) {
	pool := workerpool.New(4)
	t.Cleanup(pool.StopWait)

	prod, frags := testSlot(t, 31, fragment.KindData, 8)

	badSig := fragmenttest.Clone(frags[1])
	badSig.Signature[5] ^= 0x01
	badProof := fragmenttest.Clone(frags[2])
	badProof.Proof.Aunts[0][0] ^= 0x01
	legacy := prod.Legacy(frags[3])

	candidates := []*fragment.Fragment{
		frags[0], badSig, badProof, legacy, frags[4], nil, frags[5], frags[6], frags[7],
	}
	passed := verifyBatch(pool, batch{slot: 31, producer: prod.Pubkey, fragments: candidates})

	// M = 9 candidates, K = 4 failures
	require.Len(t, passed, 5)
	indices := make([]uint32, 0, len(passed))
	for _, vf := range passed {
		assert.Equal(t, prod.Pubkey, vf.producer)
		indices = append(indices, vf.fragment.Fragment().Index)
	}
	assert.ElementsMatch(t, []uint32{0, 4, 5, 6, 7}, indices)
}

func TestVerifyBatch_WrongProducer(t *testing.T) {
	pool := workerpool.New(2)
	t.Cleanup(pool.StopWait)

	_, frags := testSlot(t, 31, fragment.KindCoding, 4)
	other := fragmenttest.NewProducer(t)

	passed := verifyBatch(pool, batch{slot: 31, producer: other.Pubkey, fragments: frags})
	assert.Empty(t, passed)
}

func TestVerifier_Run(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)

	pool := workerpool.New(2)
	t.Cleanup(pool.StopWait)

	v := &verifier{
		pool:  pool,
		in:    newQueue[batch](),
		out:   newQueue[verifiedFragment](),
		stats: &stats{},
		done:  newDone("verifier"),
	}
	go v.run(ctx)

	prod, frags := testSlot(t, 44, fragment.KindData, 4)
	broken := fragmenttest.Clone(frags[3])
	broken.Payload[0] ^= 0xff
	require.NoError(t, v.in.push(batch{
		slot:      44,
		producer:  prod.Pubkey,
		fragments: []*fragment.Fragment{frags[0], frags[1], frags[2], broken},
	}))

	for range 3 {
		vf, err := v.out.pop(ctx)
		require.NoError(t, err)
		assert.NotEqual(t, uint32(3), vf.fragment.Fragment().Index)
	}

	v.in.close()
	require.NoError(t, v.wait(ctx))

	st := v.stats.snapshot()
	assert.EqualValues(t, 3, st.FragmentsVerified)
	assert.EqualValues(t, 1, st.FragmentsRejected)
}
