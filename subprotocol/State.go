/*
File Name:  State.go

The State sub-protocol (tag 0x500A): account and contract-storage trie
proofs and contract bytecode, verified against a specific state root via
go-ethereum's Merkle-Patricia-Trie proof checker. Grounded on the same
blockchain verification lineage as History.go, narrowed to trie proofs
instead of block-level RLP structures.
*/

package subprotocol

import (
	"github.com/PortalNetworkOfficial/core/contentkey"
	"github.com/PortalNetworkOfficial/core/store"
	"github.com/PortalNetworkOfficial/core/verify"
)

// ProofNodes is the list of trie proof nodes a trie-proof content value
// carries. StateVerifier splits a value into nodes with the function it is
// built with (Node.go's splitProofNodes).
type ProofNodes [][]byte

// StateVerifier builds the State sub-protocol's Verifier. Account and
// storage proofs are checked against the state root and address/slot
// embedded in the content key itself, so no external lookup is needed. A
// storage-proof value carries the account's proof nodes together with the
// storage proof nodes: the account proof yields the storage root that the
// slot is then checked against.
func StateVerifier(splitProof func(value []byte) ProofNodes) store.Verifier {
	return func(key contentkey.Key, value []byte) bool {
		switch key.Selector {
		case contentkey.SelectorAccountTrieProof:
			if len(key.Body) != 52 {
				return false
			}
			var stateRoot [32]byte
			var address [20]byte
			copy(stateRoot[:], key.Body[:32])
			copy(address[:], key.Body[32:])
			_, err := verify.AccountTrieProof(stateRoot, address, splitProof(value))
			return err == nil

		case contentkey.SelectorContractStorageProof:
			if len(key.Body) != 84 {
				return false
			}
			var stateRoot [32]byte
			var address [20]byte
			var slot [32]byte
			copy(stateRoot[:], key.Body[:32])
			copy(address[:], key.Body[32:52])
			copy(slot[:], key.Body[52:84])
			nodes := splitProof(value)
			account, err := verify.AccountTrieProof(stateRoot, address, nodes)
			if err != nil {
				return false
			}
			_, err = verify.ContractStorageProof([32]byte(account.Root), slot, nodes)
			return err == nil

		case contentkey.SelectorBytecode:
			if len(key.Body) != 32 {
				return false
			}
			var codeHash [32]byte
			copy(codeHash[:], key.Body)
			return verify.Bytecode(codeHash, value) == nil

		default:
			return false
		}
	}
}
