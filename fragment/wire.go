package fragment

import (
	"encoding/json"
	"errors"

	"github.com/celestiaorg/go-square/merkle"
)

var (
	// ErrMissingKind is returned for a wire fragment with neither kind tag.
	ErrMissingKind = errors.New("fragment: neither data nor coding")
	// ErrAmbiguousKind is returned for a wire fragment carrying both kind tags.
	ErrAmbiguousKind = errors.New("fragment: both data and coding")
)

// Wire is the tagged JSON form of a fragment as served by the ledger. Exactly
// one of the two fields must be set.
type Wire struct {
	Data   *WireData   `json:"ShredData,omitempty"`
	Coding *WireCoding `json:"ShredCode,omitempty"`
}

type WireData struct {
	Common WireCommon `json:"common"`
	Header DataHeader `json:"data_header"`
}

type WireCoding struct {
	Common WireCommon   `json:"common"`
	Header CodingHeader `json:"coding_header"`
}

// WireCommon holds the fields shared by both kinds.
type WireCommon struct {
	Signature   Signature     `json:"signature"`
	Slot        uint64        `json:"slot"`
	Index       uint32        `json:"index"`
	Version     uint16        `json:"version"`
	FECSetIndex uint32        `json:"fec_set_index"`
	Payload     []byte        `json:"payload"`
	Proof       *merkle.Proof `json:"proof,omitempty"`
	Root        []byte        `json:"root,omitempty"`
}

// Decode converts the wire form into a Fragment, deciding its kind.
func (w *Wire) Decode() (*Fragment, error) {
	var (
		c   WireCommon
		hdr Header
	)
	switch {
	case w.Data != nil && w.Coding != nil:
		return nil, ErrAmbiguousKind
	case w.Data != nil:
		c, hdr = w.Data.Common, &DataHeader{
			ParentOffset: w.Data.Header.ParentOffset,
			Flags:        w.Data.Header.Flags,
			Size:         w.Data.Header.Size,
			NumData:      w.Data.Header.NumData,
		}
	case w.Coding != nil:
		c, hdr = w.Coding.Common, &CodingHeader{
			NumData:   w.Coding.Header.NumData,
			NumCoding: w.Coding.Header.NumCoding,
			Position:  w.Coding.Header.Position,
		}
	default:
		return nil, ErrMissingKind
	}

	return &Fragment{
		Slot:        c.Slot,
		Index:       c.Index,
		Version:     c.Version,
		FECSetIndex: c.FECSetIndex,
		Signature:   c.Signature,
		Header:      hdr,
		Payload:     c.Payload,
		Proof:       c.Proof,
		Root:        c.Root,
	}, nil
}

// ToWire converts a Fragment into its tagged wire form.
func ToWire(f *Fragment) *Wire {
	c := WireCommon{
		Signature:   f.Signature,
		Slot:        f.Slot,
		Index:       f.Index,
		Version:     f.Version,
		FECSetIndex: f.FECSetIndex,
		Payload:     f.Payload,
		Proof:       f.Proof,
		Root:        f.Root,
	}
	switch h := f.Header.(type) {
	case *DataHeader:
		return &Wire{Data: &WireData{Common: c, Header: *h}}
	case *CodingHeader:
		return &Wire{Coding: &WireCoding{Common: c, Header: *h}}
	default:
		return &Wire{}
	}
}

// Unmarshal decodes a single JSON wire fragment. A JSON null yields a nil
// Fragment and no error.
func Unmarshal(data []byte) (*Fragment, error) {
	var w *Wire
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, err
	}
	if w == nil {
		return nil, nil
	}
	return w.Decode()
}

func (f *Fragment) MarshalJSON() ([]byte, error) {
	if f.Header == nil {
		return nil, ErrMissingKind
	}
	return json.Marshal(ToWire(f))
}

func (f *Fragment) UnmarshalJSON(data []byte) error {
	var w Wire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	out, err := w.Decode()
	if err != nil {
		return err
	}
	*f = *out
	return nil
}
