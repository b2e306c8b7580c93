package archive

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/shredwatch/shredwatch-node/fragment"
)

// Record is the stored form of an archived fragment.
type Record struct {
	Fragment   *fragment.Fragment `json:"fragment"`
	Producer   fragment.Pubkey    `json:"producer"`
	ArchivedAt time.Time          `json:"archived_at"`
}

// Key returns the key the record is stored under.
func (r *Record) Key() Key {
	return KeyFor(r.Fragment.ID())
}

// Seed returns the traceability value of the record.
func (r *Record) Seed() [32]byte {
	return r.Fragment.ID().Seed(r.Producer)
}

// sameContent reports whether r and o hold the same fragment from the same
// producer, regardless of when each was archived.
func (r *Record) sameContent(o *Record) bool {
	return r.Producer == o.Producer && r.Fragment.Equal(o.Fragment)
}

func (r *Record) marshal() ([]byte, error) {
	return json.Marshal(r)
}

func unmarshalRecord(data []byte) (*Record, error) {
	r := new(Record)
	if err := json.Unmarshal(data, r); err != nil {
		return nil, fmt.Errorf("archive: decoding record: %w", err)
	}
	if r.Fragment == nil {
		return nil, fmt.Errorf("archive: record without fragment")
	}
	return r, nil
}
