package fragment

import (
	"crypto/ed25519"
	"errors"
	"fmt"
)

var (
	ErrBadSignature = errors.New("fragment: invalid producer signature")
	// ErrNotMerkle is returned for fragments without an inclusion proof.
	// Such fragments are never accepted.
	ErrNotMerkle = errors.New("fragment: legacy fragment without inclusion proof")
	ErrBadProof  = errors.New("fragment: invalid inclusion proof")
)

// Verified is a fragment that passed Verify. The zero value holds nothing and
// values can only be produced by Verify.
type Verified struct {
	f *Fragment
}

// Fragment returns the verified fragment.
func (v Verified) Fragment() *Fragment {
	return v.f
}

// Verify checks that f was signed by producer and that its Merkle proof
// proves its own leaf against its claimed root.
func Verify(f *Fragment, producer Pubkey) (Verified, error) {
	if f == nil {
		return Verified{}, ErrMissingKind
	}
	if !ed25519.Verify(producer[:], f.SignedMessage(), f.Signature[:]) {
		return Verified{}, ErrBadSignature
	}
	if !f.IsMerkle() {
		return Verified{}, ErrNotMerkle
	}
	if err := f.Proof.Verify(f.Root, f.Leaf()); err != nil {
		return Verified{}, fmt.Errorf("%w: %w", ErrBadProof, err)
	}
	return Verified{f: f}, nil
}
