/*
File Name:  state_index.go

State sub-protocol auxiliary index: maps an account address to the set of
state roots in which it has been observed, ordered by (nonce, balance)
ascending so callers can ask "which state roots saw this account change".
Balance ordering is big-integer (github.com/holiman/uint256), not a
machine-word comparison, per the resolved open question in SPEC_FULL.md
§9. Grounded on Peernet's search/Search Index.go (an in-memory,
mutex-guarded reverse index keyed by a digest, refreshed as new blocks are
indexed), repurposed here from file-keyword hashes to account addresses.
*/

package subprotocol

import (
	"sort"
	"sync"

	"github.com/holiman/uint256"
)

// StateRootObservation records the nonce and balance an account had at one
// observed state root.
type StateRootObservation struct {
	StateRoot [32]byte
	Nonce     uint64
	Balance   *uint256.Int
}

// StateIndex maps account addresses to the state roots they were observed
// in, kept sorted by (nonce, balance) ascending.
type StateIndex struct {
	mu      sync.RWMutex
	records map[[20]byte][]StateRootObservation
}

// NewStateIndex creates an empty index.
func NewStateIndex() *StateIndex {
	return &StateIndex{records: make(map[[20]byte][]StateRootObservation)}
}

// Record adds an observation of an address's account state at a state root,
// re-sorting that address's observations by (nonce, balance) ascending.
// A repeated (address, stateRoot) pair updates the existing entry in place.
func (idx *StateIndex) Record(address [20]byte, obs StateRootObservation) {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	entries := idx.records[address]
	for i, e := range entries {
		if e.StateRoot == obs.StateRoot {
			entries[i] = obs
			idx.sortInPlace(entries)
			return
		}
	}

	entries = append(entries, obs)
	idx.sortInPlace(entries)
	idx.records[address] = entries
}

func (idx *StateIndex) sortInPlace(entries []StateRootObservation) {
	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].Nonce != entries[j].Nonce {
			return entries[i].Nonce < entries[j].Nonce
		}
		return balanceLess(entries[i].Balance, entries[j].Balance)
	})
}

func balanceLess(a, b *uint256.Int) bool {
	if a == nil {
		a = uint256.NewInt(0)
	}
	if b == nil {
		b = uint256.NewInt(0)
	}
	return a.Cmp(b) < 0
}

// StateRoots returns an address's known state roots, ordered by
// (nonce, balance) ascending.
func (idx *StateIndex) StateRoots(address [20]byte) []StateRootObservation {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	entries := idx.records[address]
	out := make([]StateRootObservation, len(entries))
	copy(out, entries)
	return out
}

// Forget drops every observation for an address.
func (idx *StateIndex) Forget(address [20]byte) {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	delete(idx.records, address)
}

// Len returns the number of addresses currently indexed.
func (idx *StateIndex) Len() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return len(idx.records)
}
