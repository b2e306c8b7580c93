// Package fragmenttest builds signed fragment sets for tests.
package fragmenttest

import (
	"crypto/ed25519"
	"crypto/rand"
	"testing"

	"github.com/celestiaorg/go-square/merkle"
	"github.com/stretchr/testify/require"

	"github.com/shredwatch/shredwatch-node/fragment"
)

// Producer is a slot producer holding its signing key.
type Producer struct {
	Pubkey fragment.Pubkey
	priv   ed25519.PrivateKey
}

// NewProducer generates a fresh producer identity.
func NewProducer(t testing.TB) *Producer {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)

	p := &Producer{priv: priv}
	copy(p.Pubkey[:], pub)
	return p
}

// Sign signs msg with the producer key.
func (p *Producer) Sign(msg []byte) fragment.Signature {
	var sig fragment.Signature
	copy(sig[:], ed25519.Sign(p.priv, msg))
	return sig
}

// Slot generates total fragments of the given kind for slot, committed to a
// single Merkle root signed by p. Fragments are ordered by index.
func (p *Producer) Slot(t testing.TB, slot uint64, kind fragment.Kind, total int) []*fragment.Fragment {
	frags := make([]*fragment.Fragment, total)
	leaves := make([][]byte, total)
	for i := range frags {
		payload := make([]byte, 64)
		_, err := rand.Read(payload)
		require.NoError(t, err)

		frags[i] = &fragment.Fragment{
			Slot:    slot,
			Index:   uint32(i),
			Version: 1,
			Header:  header(kind, total, i),
			Payload: payload,
		}
		leaves[i] = frags[i].Leaf()
	}

	root, proofs := merkle.ProofsFromByteSlices(leaves)
	sig := p.Sign(root)
	for i, f := range frags {
		f.Root = root
		f.Proof = proofs[i]
		f.Signature = sig
	}
	return frags
}

// Legacy returns a copy of f with the proof stripped and the leaf signed
// directly, as legacy producers do.
func (p *Producer) Legacy(f *fragment.Fragment) *fragment.Fragment {
	cp := *f
	cp.Proof, cp.Root = nil, nil
	cp.Signature = p.Sign(cp.Leaf())
	return &cp
}

// Clone deep-copies a fragment so tests can corrupt it freely.
func Clone(f *fragment.Fragment) *fragment.Fragment {
	cp := *f
	cp.Payload = append([]byte(nil), f.Payload...)
	cp.Root = append([]byte(nil), f.Root...)
	if f.Proof != nil {
		proof := *f.Proof
		proof.LeafHash = append([]byte(nil), f.Proof.LeafHash...)
		proof.Aunts = make([][]byte, len(f.Proof.Aunts))
		for i, a := range f.Proof.Aunts {
			proof.Aunts[i] = append([]byte(nil), a...)
		}
		cp.Proof = &proof
	}
	switch h := f.Header.(type) {
	case *fragment.DataHeader:
		hc := *h
		cp.Header = &hc
	case *fragment.CodingHeader:
		hc := *h
		cp.Header = &hc
	}
	return &cp
}

func header(kind fragment.Kind, total, i int) fragment.Header {
	if kind == fragment.KindCoding {
		return &fragment.CodingHeader{
			NumData:   uint16(total),
			NumCoding: uint16(total),
			Position:  uint16(i),
		}
	}
	return &fragment.DataHeader{
		ParentOffset: 1,
		Size:         64,
		NumData:      uint32(total),
	}
}
