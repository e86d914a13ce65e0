/*
File Name:  ID.go

Content-id derivation. History and State both use keccak-256 of the
encoded content key, per spec §3. Uses go-ethereum/crypto for the hash,
the same primitive the verify package uses for header/body/bytecode checks.
*/

package contentkey

import (
	"errors"
	"math/big"

	"github.com/ethereum/go-ethereum/crypto"
)

// ErrTruncated is returned when decoding a content key from too few bytes.
var ErrTruncated = errors.New("contentkey: truncated key")

// ID is the 32-byte content identifier used for overlay distance calculations.
type ID [32]byte

// Derive computes the content id for a key: keccak-256 of its encoded form.
func Derive(k Key) ID {
	var id ID
	copy(id[:], crypto.Keccak256(k.Encode()))
	return id
}

// Distance returns the unsigned XOR distance between a node ID and a content ID.
func Distance(nodeID [32]byte, id ID) *big.Int {
	var x [32]byte
	for i := range x {
		x[i] = nodeID[i] ^ id[i]
	}
	return new(big.Int).SetBytes(x[:])
}
