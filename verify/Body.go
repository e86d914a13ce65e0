/*
File Name:  Body.go

Block body verifier: reassembles a body against its stored header and
checks that the header's transaction/uncle roots match what the body
actually contains, per spec §4.4 ("reconstructed block's header hash
must equal the key's hash").
*/

package verify

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/rlp"
	"github.com/ethereum/go-ethereum/trie"
)

// BlockBody decodes an RLP-encoded body and verifies it against the header
// already on file for blockHash: the body's derived transactions root and
// uncles hash must match the header's recorded roots.
func BlockBody(blockHash [32]byte, header *types.Header, encoded []byte) (*types.Body, error) {
	var body types.Body
	if err := rlp.DecodeBytes(encoded, &body); err != nil {
		return nil, err
	}

	txRoot := types.DeriveSha(types.Transactions(body.Transactions), trie.NewStackTrie(nil))
	if txRoot != header.TxHash {
		return nil, ErrRootMismatch
	}

	uncleHash := types.CalcUncleHash(body.Uncles)
	if uncleHash != header.UncleHash {
		return nil, ErrRootMismatch
	}

	if header.Hash() != common.Hash(blockHash) {
		return nil, ErrHashMismatch
	}

	return &body, nil
}
