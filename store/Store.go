/*
File Name:  Store.go

Radius-bounded content store: admission, lookup, and farthest-first
eviction, per spec §4.4. Grounded on Peernet's "DHT Store.go" (admission
gate feeding an observer) and store/Store.go's persistence interface,
layered here over store/backend.Backend instead of Peernet's direct
pogreb/memory coupling. The backend holds raw key/value bytes only; this
package keeps the distance/size index needed for eviction in memory.
*/

package store

import (
	"errors"
	"math/big"
	"sort"
	"sync"

	"github.com/PortalNetworkOfficial/core/contentkey"
	"github.com/PortalNetworkOfficial/core/enr"
	"github.com/PortalNetworkOfficial/core/events"
	"github.com/PortalNetworkOfficial/core/store/backend"
	"github.com/holiman/uint256"
)

// ErrOutsideRadius is returned by Admit when the content id falls outside the local radius.
var ErrOutsideRadius = errors.New("store: content id outside local radius")

// ErrVerificationFailed is returned by Admit when the sub-protocol verifier rejects the value.
var ErrVerificationFailed = errors.New("store: verification failed")

// Verifier validates a (key, value) pair before admission. Supplied by the
// sub-protocol glue, one per content namespace (header/body/receipts/... verifiers).
type Verifier func(key contentkey.Key, value []byte) bool

type indexEntry struct {
	size     int
	distance *big.Int
}

// Store is a single sub-protocol's radius-bounded content store.
type Store struct {
	subProtocol enr.SubProtocol
	nodeID      enr.NodeID
	backend     backend.Backend
	verify      Verifier
	observer    *events.Observer

	highWatermark int64

	mu      sync.Mutex
	radius  *uint256.Int
	index   map[contentkey.ID]indexEntry
	current int64
}

// New creates a content store for one sub-protocol over the given backend.
func New(sub enr.SubProtocol, nodeID enr.NodeID, be backend.Backend, verify Verifier, observer *events.Observer, initialRadius *uint256.Int, highWatermark int64) *Store {
	return &Store{
		subProtocol:   sub,
		nodeID:        nodeID,
		backend:       be,
		verify:        verify,
		observer:      observer,
		highWatermark: highWatermark,
		radius:        initialRadius,
		index:         make(map[contentkey.ID]indexEntry),
	}
}

// Radius returns the current storage radius.
func (s *Store) Radius() *uint256.Int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return new(uint256.Int).Set(s.radius)
}

// SetRadius explicitly reconfigures the radius. Per spec §4.4, radius only grows
// via this explicit path; eviction only ever shrinks it.
func (s *Store) SetRadius(r *uint256.Int) {
	s.mu.Lock()
	s.radius = new(uint256.Int).Set(r)
	s.mu.Unlock()
}

// Admit verifies and stores a content item if it falls within the local radius.
func (s *Store) Admit(key contentkey.Key, value []byte) error {
	id := contentkey.Derive(key)
	dist := contentkey.Distance(s.nodeID, id)

	s.mu.Lock()
	radius := new(big.Int).SetBytes(s.radius.Bytes())
	s.mu.Unlock()

	if dist.Cmp(radius) > 0 {
		return ErrOutsideRadius
	}

	if s.verify != nil && !s.verify(key, value) {
		if s.observer != nil {
			s.observer.EmitVerified(events.Verified{SubProtocol: s.subProtocol, ID: id, Passed: false, Err: ErrVerificationFailed})
		}
		return ErrVerificationFailed
	}
	if s.observer != nil {
		s.observer.EmitVerified(events.Verified{SubProtocol: s.subProtocol, ID: id, Passed: true})
	}

	if err := s.backend.Put(id[:], value); err != nil {
		return err
	}

	s.mu.Lock()
	s.index[id] = indexEntry{size: len(value), distance: dist}
	s.current += int64(len(value))
	s.mu.Unlock()

	if s.observer != nil {
		s.observer.EmitContentAdded(events.ContentAdded{SubProtocol: s.subProtocol, ID: id, Key: key.Encode(), Size: len(value)})
	}
	return nil
}

// Lookup returns the stored value for a content key, if present.
func (s *Store) Lookup(key contentkey.Key) (value []byte, found bool) {
	return s.LookupByID(contentkey.Derive(key))
}

// LookupByID is the same as Lookup but keyed directly by a precomputed content id,
// used by the gossip hook to fetch an item by the id its ContentAdded event carries.
func (s *Store) LookupByID(id contentkey.ID) (value []byte, found bool) {
	v, ok, err := s.backend.Get(id[:])
	if err != nil || !ok {
		return nil, false
	}
	return v, true
}

// Bytes returns the total number of bytes currently stored.
func (s *Store) Bytes() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

// EvictToBudget removes the farthest-from-self items until bytes-stored falls
// at or below the high watermark, then shrinks the radius to the XOR distance
// of the farthest retained item.
func (s *Store) EvictToBudget() error {
	s.mu.Lock()
	if s.current <= s.highWatermark {
		s.mu.Unlock()
		return nil
	}

	type candidate struct {
		id       contentkey.ID
		size     int
		distance *big.Int
	}
	candidates := make([]candidate, 0, len(s.index))
	for id, e := range s.index {
		candidates = append(candidates, candidate{id: id, size: e.size, distance: e.distance})
	}
	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].distance.Cmp(candidates[j].distance) > 0 // farthest first
	})

	var toDelete []contentkey.ID
	remaining := s.current
	for _, c := range candidates {
		if remaining <= s.highWatermark {
			break
		}
		toDelete = append(toDelete, c.id)
		remaining -= int64(c.size)
		delete(s.index, c.id)
	}

	var newRadius *big.Int
	for _, e := range s.index {
		if newRadius == nil || e.distance.Cmp(newRadius) > 0 {
			newRadius = e.distance
		}
	}
	s.current = remaining
	if newRadius != nil {
		s.radius = new(uint256.Int).SetBytes(newRadius.Bytes())
	}
	s.mu.Unlock()

	if len(toDelete) == 0 {
		return nil
	}
	ops := make([]backend.Op, 0, len(toDelete))
	for _, id := range toDelete {
		ops = append(ops, backend.Op{Kind: backend.OpDelete, Key: append([]byte(nil), id[:]...)})
	}
	return s.backend.Batch(ops)
}
