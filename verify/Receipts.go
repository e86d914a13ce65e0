/*
File Name:  Receipts.go

Receipt-list verifier: recomputes the receipts trie root from the decoded
list and compares it against the stored header's receiptsRoot field.
*/

package verify

import (
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/rlp"
	"github.com/ethereum/go-ethereum/trie"
)

// Receipts decodes an RLP-encoded receipt list and verifies its derived trie
// root equals header.ReceiptHash.
func Receipts(header *types.Header, encoded []byte) (types.Receipts, error) {
	var receipts types.Receipts
	if err := rlp.DecodeBytes(encoded, &receipts); err != nil {
		return nil, err
	}

	root := types.DeriveSha(receipts, trie.NewStackTrie(nil))
	if root != header.ReceiptHash {
		return nil, ErrRootMismatch
	}
	return receipts, nil
}
