/*
File Name:  MerkleProof.go

Binary Merkle inclusion proof verification against a generalized index
(gindex), used by the epoch-accumulator and header-with-proof verifiers.
Adapted from Peernet's merkle/Merkle Tree.go and fragment/Merkle
Tree.go pairwise-hash construction; this side only needs the verification
half, and uses keccak-256 (matching the epoch accumulator's own root hash)
rather than Peernet's blake3.
*/

package verify

import (
	"errors"

	"github.com/ethereum/go-ethereum/crypto"
)

// ErrProofMismatch is returned when a Merkle proof does not reconstruct the expected root.
var ErrProofMismatch = errors.New("verify: merkle proof did not reconstruct the expected root")

// VerifyMerkleProof checks that leaf, combined bottom-up with the sibling
// hashes in proof according to gindex's bit path, reconstructs root.
//
// gindex follows the standard generalized-index convention: the root is 1;
// a node's children are 2*gindex (left) and 2*gindex+1 (right). proof must
// list siblings from the leaf's depth up to the root, in that order.
func VerifyMerkleProof(leaf [32]byte, proof [][32]byte, gindex uint64, root [32]byte) error {
	if gindex == 0 {
		return errors.New("verify: gindex must be >= 1")
	}

	depth := bitLength(gindex) - 1
	if len(proof) != depth {
		return errors.New("verify: proof length does not match gindex depth")
	}

	node := leaf
	g := gindex
	for i := 0; i < depth; i++ {
		sibling := proof[i]
		if g&1 == 0 {
			node = hashPair(node, sibling)
		} else {
			node = hashPair(sibling, node)
		}
		g >>= 1
	}

	if node != root {
		return ErrProofMismatch
	}
	return nil
}

func hashPair(left, right [32]byte) [32]byte {
	var out [32]byte
	buf := make([]byte, 0, 64)
	buf = append(buf, left[:]...)
	buf = append(buf, right[:]...)
	copy(out[:], crypto.Keccak256(buf))
	return out
}

func bitLength(n uint64) int {
	bits := 0
	for n > 0 {
		bits++
		n >>= 1
	}
	return bits
}

// HeaderGindex computes the generalized index of a block header leaf within
// an epoch accumulator's SSZ List[HeaderRecord, EPOCH_SIZE] merkleization.
// The record vector's subtree root sits at generalized index 2*EPOCH_SIZE;
// mixing in the list's length pushes that whole subtree down one more
// level, doubling both the vector's base index and the leaf's own index
// within it: gindex = 2*leafIndex + 4*EPOCH_SIZE, leafIndex = blockNumber
// mod EPOCH_SIZE.
func HeaderGindex(blockNumber uint64, epochSize uint64) uint64 {
	leafIndex := (blockNumber % epochSize) * 2
	return leafIndex + 4*epochSize
}
