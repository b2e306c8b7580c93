package fragment

import (
	"encoding/binary"
	"fmt"
	"strings"
)

// Kind is one of the two disjoint encodings of a slot's payload.
type Kind uint8

const (
	KindData   Kind = 0xA5
	KindCoding Kind = 0x5A
)

func (k Kind) String() string {
	switch k {
	case KindData:
		return "data"
	case KindCoding:
		return "coding"
	default:
		return fmt.Sprintf("kind(%#x)", uint8(k))
	}
}

// ParseKind parses "data" or "coding".
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(s) {
	case "data":
		return KindData, nil
	case "coding", "code":
		return KindCoding, nil
	default:
		return 0, fmt.Errorf("fragment: unknown kind %q", s)
	}
}

// Header is the kind-specific part of a fragment. It is implemented by
// *DataHeader and *CodingHeader only.
type Header interface {
	Kind() Kind
	// Total returns the slot's fragment count for this kind.
	Total() uint32

	appendBinary([]byte) []byte
}

// DataHeader is the header of a data fragment.
type DataHeader struct {
	ParentOffset uint16 `json:"parent_offset"`
	Flags        uint8  `json:"flags"`
	Size         uint16 `json:"size"`
	NumData      uint32 `json:"num_data"`
}

func (h *DataHeader) Kind() Kind    { return KindData }
func (h *DataHeader) Total() uint32 { return h.NumData }

func (h *DataHeader) appendBinary(buf []byte) []byte {
	buf = binary.LittleEndian.AppendUint16(buf, h.ParentOffset)
	buf = append(buf, h.Flags)
	buf = binary.LittleEndian.AppendUint16(buf, h.Size)
	return binary.LittleEndian.AppendUint32(buf, h.NumData)
}

// CodingHeader is the header of an erasure coding fragment.
type CodingHeader struct {
	NumData   uint16 `json:"num_data"`
	NumCoding uint16 `json:"num_coding"`
	Position  uint16 `json:"position"`
}

func (h *CodingHeader) Kind() Kind    { return KindCoding }
func (h *CodingHeader) Total() uint32 { return uint32(h.NumCoding) }

func (h *CodingHeader) appendBinary(buf []byte) []byte {
	buf = binary.LittleEndian.AppendUint16(buf, h.NumData)
	buf = binary.LittleEndian.AppendUint16(buf, h.NumCoding)
	return binary.LittleEndian.AppendUint16(buf, h.Position)
}

func headerSize(h Header) int {
	switch h.(type) {
	case *DataHeader:
		return 9
	case *CodingHeader:
		return 6
	default:
		return 0
	}
}
