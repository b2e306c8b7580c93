package archive

import (
	"encoding/binary"
	"encoding/hex"
	"fmt"

	"github.com/ipfs/go-datastore"
	"github.com/minio/sha256-simd"

	"github.com/shredwatch/shredwatch-node/fragment"
)

// KeySize is the size of a Key in bytes.
const KeySize = sha256.Size

// Key addresses an archived fragment.
type Key [KeySize]byte

// KeyFor derives the key of the fragment identified by id:
// SHA-256(slot u64 LE | kind u8 | index u32 LE).
func KeyFor(id fragment.ID) Key {
	var buf [13]byte
	binary.LittleEndian.PutUint64(buf[:8], id.Slot)
	buf[8] = byte(id.Kind)
	binary.LittleEndian.PutUint32(buf[9:], id.Index)
	return sha256.Sum256(buf[:])
}

// ParseKey parses a hex encoded Key.
func ParseKey(s string) (Key, error) {
	var k Key
	b, err := hex.DecodeString(s)
	if err != nil {
		return k, fmt.Errorf("archive: parsing key: %w", err)
	}
	if len(b) != KeySize {
		return k, fmt.Errorf("archive: key must be %d bytes, got %d", KeySize, len(b))
	}
	copy(k[:], b)
	return k, nil
}

func (k Key) String() string {
	return hex.EncodeToString(k[:])
}

func (k Key) dsKey() datastore.Key {
	return datastore.NewKey(k.String())
}
