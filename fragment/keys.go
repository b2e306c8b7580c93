package fragment

import (
	"crypto/ed25519"
	"errors"
	"fmt"

	"github.com/mr-tron/base58"
)

var ErrInvalidKey = errors.New("fragment: invalid key encoding")

// Pubkey is an ed25519 public key identifying a slot producer.
type Pubkey [ed25519.PublicKeySize]byte

// ParsePubkey decodes a base58 producer identity.
func ParsePubkey(s string) (Pubkey, error) {
	var pk Pubkey
	return pk, decodeBase58(pk[:], s)
}

func (pk Pubkey) String() string {
	return base58.Encode(pk[:])
}

func (pk Pubkey) MarshalText() ([]byte, error) {
	return []byte(pk.String()), nil
}

func (pk *Pubkey) UnmarshalText(text []byte) error {
	return decodeBase58(pk[:], string(text))
}

// Signature is an ed25519 signature produced by the slot producer.
type Signature [ed25519.SignatureSize]byte

func (s Signature) String() string {
	return base58.Encode(s[:])
}

func (s Signature) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *Signature) UnmarshalText(text []byte) error {
	return decodeBase58(s[:], string(text))
}

func decodeBase58(dst []byte, s string) error {
	b, err := base58.Decode(s)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidKey, err)
	}
	if len(b) != len(dst) {
		return fmt.Errorf("%w: want %d bytes, got %d", ErrInvalidKey, len(dst), len(b))
	}
	copy(dst, b)
	return nil
}
