/*
File Name:  Header.go

Block header verifier: Peernet had no direct equivalent (Peernet
carries no chain-header concept), so this is grounded on the generic
"decode, rehash, compare" shape of Peernet's blockchain verifiers
(deleted — see DESIGN.md) generalized to go-ethereum's RLP header type.
*/

package verify

import (
	"bytes"

	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/rlp"
)

// BlockHeader decodes an RLP-encoded header and checks that its keccak-256
// hash equals the claimed block hash (the content key's selector body).
func BlockHeader(blockHash [32]byte, encoded []byte) (*types.Header, error) {
	var header types.Header
	if err := rlp.DecodeBytes(encoded, &header); err != nil {
		return nil, err
	}

	if !bytes.Equal(header.Hash().Bytes(), blockHash[:]) {
		return nil, ErrHashMismatch
	}
	return &header, nil
}
