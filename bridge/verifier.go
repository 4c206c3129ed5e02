package bridge

import (
	"crypto/ed25519"
	"errors"
	"fmt"
	"strings"

	"github.com/btcsuite/btcd/btcutil/base58"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/lightninglabs/htlcswap/swap"
)

var (
	// ErrNoVerifier is returned for a chain without a registered
	// verifier.
	ErrNoVerifier = errors.New("no signature verifier for chain")

	// ErrInvalidOwner is returned when the owner is not a valid address
	// or key on the chain.
	ErrInvalidOwner = errors.New("invalid owner")

	// ErrSignerMismatch is returned when the signature was not made by
	// the owner.
	ErrSignerMismatch = errors.New("signature not made by owner")
)

// SignatureVerifier verifies origin chain signatures of a single chain.
type SignatureVerifier interface {
	// Chain returns the chain the verifier is responsible for.
	Chain() swap.ChainType

	// Verify returns an error if sig is not a valid signature of msg by
	// owner.
	Verify(owner string, msg, sig []byte) error
}

// VerifierSet dispatches signature verification by chain.
type VerifierSet struct {
	verifiers map[swap.ChainType]SignatureVerifier
}

// NewVerifierSet creates a set of the given verifiers. A later verifier
// replaces an earlier one of the same chain.
func NewVerifierSet(verifiers ...SignatureVerifier) *VerifierSet {
	set := &VerifierSet{
		verifiers: make(map[swap.ChainType]SignatureVerifier),
	}
	for _, v := range verifiers {
		set.verifiers[v.Chain()] = v
	}

	return set
}

// DefaultVerifiers returns the verifiers of all external chains.
func DefaultVerifiers() *VerifierSet {
	return NewVerifierSet(&EVMVerifier{}, &SolanaVerifier{})
}

// Verify verifies the signature with the verifier of the chain.
func (s *VerifierSet) Verify(chain swap.ChainType, owner string, msg,
	sig []byte) error {

	verifier, ok := s.verifiers[chain]
	if !ok {
		return fmt.Errorf("%w %v", ErrNoVerifier, chain)
	}

	return verifier.Verify(owner, msg, sig)
}

// EVMVerifier verifies personal_sign signatures made by EVM wallets.
type EVMVerifier struct{}

// Chain returns the EVM chain type.
func (e *EVMVerifier) Chain() swap.ChainType {
	return swap.ChainEVM
}

// TextHash returns the digest an EVM wallet signs for a personal message.
func TextHash(msg []byte) []byte {
	prefix := fmt.Sprintf("\x19Ethereum Signed Message:\n%d", len(msg))

	return crypto.Keccak256([]byte(prefix), msg)
}

// Verify recovers the signer of the 65 byte [R || S || V] signature and
// compares it to the owner address.
func (e *EVMVerifier) Verify(owner string, msg, sig []byte) error {
	if !common.IsHexAddress(owner) {
		return fmt.Errorf("%w: %q is not an address", ErrInvalidOwner,
			owner)
	}

	if len(sig) != crypto.SignatureLength {
		return fmt.Errorf("signature must be %d bytes, got %d",
			crypto.SignatureLength, len(sig))
	}

	// Wallets produce a recovery id of 27 or 28.
	rsv := append([]byte(nil), sig...)
	if rsv[crypto.RecoveryIDOffset] >= 27 {
		rsv[crypto.RecoveryIDOffset] -= 27
	}

	pub, err := crypto.SigToPub(TextHash(msg), rsv)
	if err != nil {
		return fmt.Errorf("unable to recover signer: %w", err)
	}

	signer := crypto.PubkeyToAddress(*pub)
	if signer != common.HexToAddress(owner) {
		return fmt.Errorf("%w: signed by %v", ErrSignerMismatch,
			signer.Hex())
	}

	return nil
}

// SolanaVerifier verifies ed25519 signatures of base58 encoded Solana
// public keys.
type SolanaVerifier struct{}

// Chain returns the Solana chain type.
func (s *SolanaVerifier) Chain() swap.ChainType {
	return swap.ChainSolana
}

// Verify checks the ed25519 signature of the message.
func (s *SolanaVerifier) Verify(owner string, msg, sig []byte) error {
	pub := base58.Decode(strings.TrimSpace(owner))
	if len(pub) != ed25519.PublicKeySize {
		return fmt.Errorf("%w: %q is not a public key",
			ErrInvalidOwner, owner)
	}

	if len(sig) != ed25519.SignatureSize {
		return fmt.Errorf("signature must be %d bytes, got %d",
			ed25519.SignatureSize, len(sig))
	}

	if !ed25519.Verify(ed25519.PublicKey(pub), msg, sig) {
		return ErrSignerMismatch
	}

	return nil
}
