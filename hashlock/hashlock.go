// Package hashlock implements the canonical secret and hashlock encoding
// shared by every chain the engine talks to.
//
// A secret is exactly 32 raw bytes and its hashlock is the sha256 digest of
// those bytes. At the boundary both are exchanged as 64 hex characters, an
// optional 0x prefix is accepted. No other encoding (UTF-8 strings, shorter
// byte vectors) is ever hashed.
package hashlock

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/lightninglabs/htlcswap/swap"
	"github.com/lightningnetwork/lnd/lntypes"
)

// Size is the width in bytes of both secrets and hashlocks.
const Size = 32

var (
	// ErrInvalidSecretFormat is returned when a secret or hashlock is not
	// in its canonical fixed-width form.
	ErrInvalidSecretFormat = swap.NewError(
		swap.KindInvalidInput, "InvalidSecretFormat",
		"invalid secret format",
	)
)

// Secret is the preimage of a hashlock.
type Secret = lntypes.Preimage

// Hashlock is the committed digest of a secret.
type Hashlock = lntypes.Hash

// NewSecret generates a new random secret.
func NewSecret() (Secret, error) {
	var secret Secret
	if _, err := rand.Read(secret[:]); err != nil {
		return Secret{}, err
	}

	return secret, nil
}

// Hash returns the hashlock of the given secret.
func Hash(secret Secret) Hashlock {
	return secret.Hash()
}

// Verify returns true if the secret hashes to the given hashlock. The
// comparison runs in constant time.
func Verify(secret Secret, hashlock Hashlock) bool {
	digest := secret.Hash()

	return subtle.ConstantTimeCompare(digest[:], hashlock[:]) == 1
}

// SecretFromBytes converts raw bytes to a secret. The input must be exactly
// Size bytes long.
func SecretFromBytes(b []byte) (Secret, error) {
	if len(b) != Size {
		return Secret{}, swap.Errorf(ErrInvalidSecretFormat,
			"secret must be %d bytes, got %d", Size, len(b))
	}

	var secret Secret
	copy(secret[:], b)

	return secret, nil
}

// ParseSecret parses a hex encoded secret.
func ParseSecret(s string) (Secret, error) {
	b, err := decodeHex(s)
	if err != nil {
		return Secret{}, err
	}

	return SecretFromBytes(b)
}

// HashlockFromBytes converts raw bytes to a hashlock. The input must be
// exactly Size bytes long.
func HashlockFromBytes(b []byte) (Hashlock, error) {
	if len(b) != Size {
		return Hashlock{}, swap.Errorf(ErrInvalidSecretFormat,
			"hashlock must be %d bytes, got %d", Size, len(b))
	}

	var hash Hashlock
	copy(hash[:], b)

	return hash, nil
}

// ParseHashlock parses a hex encoded hashlock.
func ParseHashlock(s string) (Hashlock, error) {
	b, err := decodeHex(s)
	if err != nil {
		return Hashlock{}, err
	}

	return HashlockFromBytes(b)
}

// IsZero returns true if the hashlock is all zeroes. The zero hashlock never
// commits to a secret.
func IsZero(hash Hashlock) bool {
	return hash == Hashlock{}
}

// decodeHex strips an optional 0x prefix and decodes the remainder.
func decodeHex(s string) ([]byte, error) {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X")

	if len(s) != Size*2 {
		return nil, swap.Errorf(ErrInvalidSecretFormat,
			"expected %d hex characters, got %d", Size*2, len(s))
	}

	b, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSecretFormat, err)
	}

	return b, nil
}
