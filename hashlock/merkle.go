package hashlock

import (
	"crypto/sha256"
	"encoding/binary"

	"github.com/lightninglabs/htlcswap/swap"
)

var (
	// ErrInvalidSegment is returned when a segment index or proof does not
	// fit the committed sequence.
	ErrInvalidSegment = swap.NewError(
		swap.KindInvalidInput, "InvalidSegment",
		"invalid secret segment",
	)
)

// SegmentLeaf returns the leaf committing to the hashlock at the given
// position of an ordered secret sequence. Binding the index into the leaf
// keeps a secret from being replayed at any other position.
func SegmentLeaf(index uint32, hashlock Hashlock) Hashlock {
	var buf [8 + Size]byte
	binary.BigEndian.PutUint64(buf[:8], uint64(index))
	copy(buf[8:], hashlock[:])

	return sha256.Sum256(buf[:])
}

// hashPair hashes two child nodes into their parent.
func hashPair(left, right Hashlock) Hashlock {
	var buf [2 * Size]byte
	copy(buf[:Size], left[:])
	copy(buf[Size:], right[:])

	return sha256.Sum256(buf[:])
}

// leaves converts an ordered list of hashlocks into tree leaves.
func leaves(hashlocks []Hashlock) []Hashlock {
	level := make([]Hashlock, len(hashlocks))
	for i, h := range hashlocks {
		level[i] = SegmentLeaf(uint32(i), h)
	}

	return level
}

// nextLevel computes the parent level. An odd last node is paired with
// itself.
func nextLevel(level []Hashlock) []Hashlock {
	next := make([]Hashlock, 0, (len(level)+1)/2)
	for i := 0; i < len(level); i += 2 {
		right := level[i]
		if i+1 < len(level) {
			right = level[i+1]
		}
		next = append(next, hashPair(level[i], right))
	}

	return next
}

// treeDepth returns the number of levels above the leaves for a tree with
// the given number of leaves.
func treeDepth(count uint32) int {
	depth := 0
	for width := count; width > 1; width = (width + 1) / 2 {
		depth++
	}

	return depth
}

// MerkleRoot returns the root committing to the ordered list of hashlocks.
func MerkleRoot(hashlocks []Hashlock) (Hashlock, error) {
	if len(hashlocks) == 0 {
		return Hashlock{}, swap.Errorf(ErrInvalidSegment,
			"empty secret sequence")
	}

	level := leaves(hashlocks)
	for len(level) > 1 {
		level = nextLevel(level)
	}

	return level[0], nil
}

// MerkleProof returns the sibling path from the leaf at index to the root.
func MerkleProof(hashlocks []Hashlock, index uint32) ([]Hashlock, error) {
	if int(index) >= len(hashlocks) {
		return nil, swap.Errorf(ErrInvalidSegment,
			"index %d out of range for %d segments", index,
			len(hashlocks))
	}

	var (
		proof []Hashlock
		level = leaves(hashlocks)
		pos   = int(index)
	)
	for len(level) > 1 {
		sibling := pos ^ 1
		if sibling >= len(level) {
			sibling = pos
		}
		proof = append(proof, level[sibling])

		level = nextLevel(level)
		pos /= 2
	}

	return proof, nil
}

// VerifyProof checks that the hashlock sits at the given index of the
// sequence committed to by root. count is the committed sequence length and
// bounds both the index and the proof length.
func VerifyProof(root Hashlock, count, index uint32, hashlock Hashlock,
	proof []Hashlock) bool {

	if count == 0 || index >= count || len(proof) != treeDepth(count) {
		return false
	}

	node := SegmentLeaf(index, hashlock)
	pos := index
	for _, sibling := range proof {
		if pos%2 == 0 {
			node = hashPair(node, sibling)
		} else {
			node = hashPair(sibling, node)
		}
		pos /= 2
	}

	return node == root
}

// VerifySegment checks that the secret is the one committed at index of the
// sequence described by root and count.
func VerifySegment(root Hashlock, count, index uint32, secret Secret,
	proof []Hashlock) bool {

	return VerifyProof(root, count, index, Hash(secret), proof)
}

// SecretSequence is an ordered list of secrets used to fill an order in
// multiple segments.
type SecretSequence struct {
	// Secrets are the ordered secrets.
	Secrets []Secret

	// Hashlocks are the hashlocks of Secrets in the same order.
	Hashlocks []Hashlock

	// Root is the merkle root over Hashlocks.
	Root Hashlock
}

// NewSecretSequence generates count random secrets and commits to them.
func NewSecretSequence(count uint32) (*SecretSequence, error) {
	secrets := make([]Secret, count)
	for i := range secrets {
		secret, err := NewSecret()
		if err != nil {
			return nil, err
		}
		secrets[i] = secret
	}

	return SequenceFromSecrets(secrets)
}

// SequenceFromSecrets commits to an existing list of secrets.
func SequenceFromSecrets(secrets []Secret) (*SecretSequence, error) {
	hashlocks := make([]Hashlock, len(secrets))
	for i, s := range secrets {
		hashlocks[i] = Hash(s)
	}

	root, err := MerkleRoot(hashlocks)
	if err != nil {
		return nil, err
	}

	return &SecretSequence{
		Secrets:   secrets,
		Hashlocks: hashlocks,
		Root:      root,
	}, nil
}

// Proof returns the merkle proof of the secret at index.
func (s *SecretSequence) Proof(index uint32) ([]Hashlock, error) {
	return MerkleProof(s.Hashlocks, index)
}
