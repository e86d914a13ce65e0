/*
File Name:  History.go

The History sub-protocol (tag 0x500B): pre-merge block headers, bodies,
receipts, epoch accumulators, and proof-bundled headers, addressed by
content key and verified against go-ethereum's RLP/trie primitives.
Grounded on Peernet's blockchain verification helpers (blockchain.go's
validateBlock-style checks) generalized from Peernet's own chain format
to Ethereum execution-layer history data.
*/

package subprotocol

import (
	"github.com/PortalNetworkOfficial/core/contentkey"
	"github.com/PortalNetworkOfficial/core/store"
	"github.com/PortalNetworkOfficial/core/verify"
	"github.com/ethereum/go-ethereum/core/types"
)

// HeaderSource resolves the header previously admitted for a block hash, used
// to verify bodies and receipts which are checked against header fields
// rather than against their own hash.
type HeaderSource func(blockHash [32]byte) (*types.Header, bool)

// HistoryVerifier builds the History sub-protocol's Verifier, dispatching on
// the content key's selector to the matching rule in the verify package.
func HistoryVerifier(headers HeaderSource) store.Verifier {
	return func(key contentkey.Key, value []byte) bool {
		switch key.Selector {
		case contentkey.SelectorBlockHeader:
			var blockHash [32]byte
			if len(key.Body) != 32 {
				return false
			}
			copy(blockHash[:], key.Body)
			_, err := verify.BlockHeader(blockHash, value)
			return err == nil

		case contentkey.SelectorBlockBody:
			var blockHash [32]byte
			if len(key.Body) != 32 {
				return false
			}
			copy(blockHash[:], key.Body)
			header, ok := headers(blockHash)
			if !ok {
				return false
			}
			_, err := verify.BlockBody(blockHash, header, value)
			return err == nil

		case contentkey.SelectorReceipts:
			var blockHash [32]byte
			if len(key.Body) != 32 {
				return false
			}
			copy(blockHash[:], key.Body)
			header, ok := headers(blockHash)
			if !ok {
				return false
			}
			_, err := verify.Receipts(header, value)
			return err == nil

		case contentkey.SelectorEpochAccumulator:
			var epochHash [32]byte
			if len(key.Body) != 32 {
				return false
			}
			copy(epochHash[:], key.Body)
			_, err := verify.VerifyEpochAccumulator(epochHash, value)
			return err == nil

		case contentkey.SelectorHeaderWithProof:
			var blockHash [32]byte
			if len(key.Body) != 32 {
				return false
			}
			copy(blockHash[:], key.Body)
			bundle, err := verify.DecodeHeaderWithProofBundle(value)
			if err != nil {
				return false
			}
			_, err = bundle.Verify(blockHash)
			return err == nil

		default:
			return false
		}
	}
}
