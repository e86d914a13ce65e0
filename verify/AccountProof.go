/*
File Name:  AccountProof.go

Account-trie and contract-storage proof verifiers: Merkle-Patricia-Trie
inclusion proofs checked against a claimed state or storage root, using
go-ethereum's trie package the way its own eth_getProof verification does
(build a proof-node KV store, then call trie.VerifyProof).
*/

package verify

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethdb/memorydb"
	"github.com/ethereum/go-ethereum/rlp"
	"github.com/ethereum/go-ethereum/trie"
)

// AccountTrieProof verifies a Merkle-Patricia proof chain from stateRoot to
// the leaf for address, and returns the decoded account if the proof holds.
func AccountTrieProof(stateRoot [32]byte, address [20]byte, proofNodes [][]byte) (*types.StateAccount, error) {
	db := memorydb.New()
	for _, node := range proofNodes {
		if err := db.Put(crypto.Keccak256(node), node); err != nil {
			return nil, err
		}
	}

	key := crypto.Keccak256(address[:])
	value, err := trie.VerifyProof(common.Hash(stateRoot), key, db)
	if err != nil {
		return nil, ErrRootMismatch
	}
	if value == nil {
		return nil, ErrRootMismatch
	}

	var account types.StateAccount
	if err := rlp.DecodeBytes(value, &account); err != nil {
		return nil, err
	}
	return &account, nil
}

// ContractStorageProof verifies a Merkle-Patricia proof chain from an
// account's storage root to the leaf for slot, returning the decoded value.
func ContractStorageProof(storageRoot [32]byte, slot [32]byte, proofNodes [][]byte) ([]byte, error) {
	db := memorydb.New()
	for _, node := range proofNodes {
		if err := db.Put(crypto.Keccak256(node), node); err != nil {
			return nil, err
		}
	}

	key := crypto.Keccak256(slot[:])
	value, err := trie.VerifyProof(common.Hash(storageRoot), key, db)
	if err != nil {
		return nil, ErrRootMismatch
	}
	if value == nil {
		return nil, ErrRootMismatch
	}
	return value, nil
}
