package fragment_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shredwatch/shredwatch-node/fragment"
	"github.com/shredwatch/shredwatch-node/fragment/fragmenttest"
)

func TestUnmarshal_Kinds(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		kind fragment.Kind
		err  error
	}{
		{
			name: "data",
			raw:  `{"ShredData":{"common":{"slot":5,"index":3},"data_header":{"num_data":40}}}`,
			kind: fragment.KindData,
		},
		{
			name: "coding",
			raw:  `{"ShredCode":{"common":{"slot":5,"index":1},"coding_header":{"num_data":32,"num_coding":32}}}`,
			kind: fragment.KindCoding,
		},
		{
			name: "neither",
			raw:  `{"common":{"slot":5}}`,
			err:  fragment.ErrMissingKind,
		},
		{
			name: "both",
			raw:  `{"ShredData":{"common":{}},"ShredCode":{"common":{}}}`,
			err:  fragment.ErrAmbiguousKind,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, err := fragment.Unmarshal([]byte(tt.raw))
			if tt.err != nil {
				assert.ErrorIs(t, err, tt.err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.kind, f.Kind())
			assert.EqualValues(t, 5, f.Slot)
		})
	}
}

func TestUnmarshal_Null(t *testing.T) {
	f, err := fragment.Unmarshal([]byte("null"))
	require.NoError(t, err)
	assert.Nil(t, f)
}

func TestTotal(t *testing.T) {
	data := &fragment.Fragment{Header: &fragment.DataHeader{NumData: 50}}
	coding := &fragment.Fragment{Header: &fragment.CodingHeader{NumData: 10, NumCoding: 33}}
	assert.EqualValues(t, 50, data.Total())
	assert.EqualValues(t, 33, coding.Total())
	assert.EqualValues(t, 0, (&fragment.Fragment{}).Total())
}

func TestJSON_PreservesVerification(t *testing.T) {
	prod := fragmenttest.NewProducer(t)
	for _, kind := range []fragment.Kind{fragment.KindData, fragment.KindCoding} {
		frags := prod.Slot(t, 11, kind, 8)

		raw, err := json.Marshal(frags[3])
		require.NoError(t, err)

		out := new(fragment.Fragment)
		require.NoError(t, json.Unmarshal(raw, out))
		assert.True(t, frags[3].Equal(out))

		_, err = fragment.Verify(out, prod.Pubkey)
		require.NoError(t, err)
	}
}

func TestEqual(t *testing.T) {
	prod := fragmenttest.NewProducer(t)
	frags := prod.Slot(t, 1, fragment.KindData, 4)

	assert.True(t, frags[0].Equal(fragmenttest.Clone(frags[0])))
	assert.False(t, frags[0].Equal(frags[1]))

	// same identity, different proof
	mod := fragmenttest.Clone(frags[0])
	mod.Proof.Aunts[0][0] ^= 0xff
	assert.False(t, frags[0].Equal(mod))

	assert.False(t, frags[0].Equal(prod.Legacy(frags[0])))
}

func TestSeed(t *testing.T) {
	a, b := fragmenttest.NewProducer(t), fragmenttest.NewProducer(t)
	id := fragment.ID{Slot: 12345, Kind: fragment.KindCoding, Index: 9}

	assert.Equal(t, id.Seed(a.Pubkey), id.Seed(a.Pubkey))
	assert.NotEqual(t, id.Seed(a.Pubkey), id.Seed(b.Pubkey))

	other := id
	other.Kind = fragment.KindData
	assert.NotEqual(t, id.Seed(a.Pubkey), other.Seed(a.Pubkey))
}

func TestPubkey_Text(t *testing.T) {
	prod := fragmenttest.NewProducer(t)

	pk, err := fragment.ParsePubkey(prod.Pubkey.String())
	require.NoError(t, err)
	assert.Equal(t, prod.Pubkey, pk)

	_, err = fragment.ParsePubkey("3yZe7d")
	assert.ErrorIs(t, err, fragment.ErrInvalidKey)
	_, err = fragment.ParsePubkey("0OIl")
	assert.ErrorIs(t, err, fragment.ErrInvalidKey)
}

func TestParseKind(t *testing.T) {
	k, err := fragment.ParseKind("Data")
	require.NoError(t, err)
	assert.Equal(t, fragment.KindData, k)

	k, err = fragment.ParseKind("coding")
	require.NoError(t, err)
	assert.Equal(t, fragment.KindCoding, k)

	_, err = fragment.ParseKind("parity")
	assert.Error(t, err)
}
