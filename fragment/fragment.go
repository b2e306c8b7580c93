package fragment

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/celestiaorg/go-square/merkle"
	"github.com/minio/sha256-simd"
)

// Fragment is a single signed piece of a slot's payload.
type Fragment struct {
	Slot        uint64
	Index       uint32
	Version     uint16
	FECSetIndex uint32
	Signature   Signature
	// Header is either *DataHeader or *CodingHeader and decides the Kind.
	Header  Header
	Payload []byte

	// Proof and Root are only set for the Merkle variant.
	Proof *merkle.Proof
	Root  []byte
}

// Kind reports the fragment kind derived from its header.
func (f *Fragment) Kind() Kind {
	if f.Header == nil {
		return 0
	}
	return f.Header.Kind()
}

// ID returns the identity of the fragment.
func (f *Fragment) ID() ID {
	return ID{Slot: f.Slot, Kind: f.Kind(), Index: f.Index}
}

// Total returns the slot's fragment count for the fragment's kind.
func (f *Fragment) Total() uint32 {
	if f.Header == nil {
		return 0
	}
	return f.Header.Total()
}

// IsMerkle reports whether the fragment carries an inclusion proof and a
// claimed root.
func (f *Fragment) IsMerkle() bool {
	return f.Proof != nil && len(f.Root) != 0
}

// Leaf returns the canonical bytes committed to by the Merkle root. The leaf
// covers identity, headers and payload, but neither the signature nor the
// proof.
func (f *Fragment) Leaf() []byte {
	buf := make([]byte, 0, 19+headerSize(f.Header)+len(f.Payload))
	buf = binary.LittleEndian.AppendUint64(buf, f.Slot)
	buf = append(buf, byte(f.Kind()))
	buf = binary.LittleEndian.AppendUint32(buf, f.Index)
	buf = binary.LittleEndian.AppendUint16(buf, f.Version)
	buf = binary.LittleEndian.AppendUint32(buf, f.FECSetIndex)
	if f.Header != nil {
		buf = f.Header.appendBinary(buf)
	}
	return append(buf, f.Payload...)
}

// SignedMessage returns the bytes the producer signs: the Merkle root for the
// Merkle variant, the leaf bytes otherwise.
func (f *Fragment) SignedMessage() []byte {
	if f.IsMerkle() {
		return f.Root
	}
	return f.Leaf()
}

// Equal reports whether two fragments are identical in every field.
func (f *Fragment) Equal(o *Fragment) bool {
	switch {
	case f == nil || o == nil:
		return f == o
	case f.Slot != o.Slot, f.Index != o.Index, f.Version != o.Version, f.FECSetIndex != o.FECSetIndex:
		return false
	case f.Signature != o.Signature:
		return false
	case !headersEqual(f.Header, o.Header):
		return false
	case !bytes.Equal(f.Payload, o.Payload), !bytes.Equal(f.Root, o.Root):
		return false
	}
	return proofsEqual(f.Proof, o.Proof)
}

func (f *Fragment) String() string {
	return fmt.Sprintf("fragment{slot: %d, kind: %s, index: %d, merkle: %t}",
		f.Slot, f.Kind(), f.Index, f.IsMerkle())
}

// ID identifies a fragment within the ledger.
type ID struct {
	Slot  uint64
	Kind  Kind
	Index uint32
}

// Seed derives a traceability value from the fragment identity and the
// producer that signed it.
func (id ID) Seed(producer Pubkey) [32]byte {
	h := sha256.New()
	var buf [13]byte
	binary.LittleEndian.PutUint64(buf[:8], id.Slot)
	buf[8] = byte(id.Kind)
	binary.LittleEndian.PutUint32(buf[9:], id.Index)
	h.Write(buf[:])
	h.Write(producer[:])

	var out [32]byte
	copy(out[:], h.Sum(nil))
	return out
}

func (id ID) String() string {
	return fmt.Sprintf("%d/%s/%d", id.Slot, id.Kind, id.Index)
}

func headersEqual(a, b Header) bool {
	switch a := a.(type) {
	case *DataHeader:
		b, ok := b.(*DataHeader)
		return ok && *a == *b
	case *CodingHeader:
		b, ok := b.(*CodingHeader)
		return ok && *a == *b
	default:
		return a == nil && b == nil
	}
}

func proofsEqual(a, b *merkle.Proof) bool {
	if a == nil || b == nil {
		return a == b
	}
	if a.Total != b.Total || a.Index != b.Index || !bytes.Equal(a.LeafHash, b.LeafHash) {
		return false
	}
	if len(a.Aunts) != len(b.Aunts) {
		return false
	}
	for i := range a.Aunts {
		if !bytes.Equal(a.Aunts[i], b.Aunts[i]) {
			return false
		}
	}
	return true
}
