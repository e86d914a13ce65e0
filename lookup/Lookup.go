/*
File Name:  Lookup.go

Shared iterative-lookup state machine used by FINDNODE and FINDCONTENT:
an alpha-parallel candidate shortlist converging on a target id. Grounded
on Peernet's dht/Search Client.go (level-based concurrent search with
a termination signal) and dht/DHT Lite.go's closest-node-unchanged
termination test, generalized from Peernet's raw-byte IDs to ENRs.
*/

package lookup

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/PortalNetworkOfficial/core/enr"
	"github.com/PortalNetworkOfficial/core/kademlia"
)

// Alpha is the number of lookup requests kept in flight concurrently.
const Alpha = 3

// RequestTimeout bounds a single in-flight request.
const RequestTimeout = 1 * time.Second

// LookupDeadline bounds the whole iterative lookup.
const LookupDeadline = 60 * time.Second

type candidateState int

const (
	statePending candidateState = iota
	stateQueried
	stateResponded
)

type candidate struct {
	record   *enr.Record
	state    candidateState
	distance []byte // big-endian XOR distance to the target, for ordering
}

// shortlist tracks every candidate ever observed for one lookup, ordered by distance to target.
type shortlist struct {
	mu      sync.Mutex
	target  enr.NodeID
	k       int
	entries map[enr.NodeID]*candidate
}

func newShortlist(target enr.NodeID, k int) *shortlist {
	return &shortlist{target: target, k: k, entries: make(map[enr.NodeID]*candidate)}
}

func (s *shortlist) addIfNew(rec *enr.Record) {
	id := rec.NodeID()
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.entries[id]; ok {
		return
	}
	d := kademlia.Distance(id, s.target).Bytes()
	s.entries[id] = &candidate{record: rec, state: statePending, distance: d}
}

func (s *shortlist) markQueried(id enr.NodeID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c, ok := s.entries[id]; ok {
		c.state = stateQueried
	}
}

func (s *shortlist) markResponded(id enr.NodeID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c, ok := s.entries[id]; ok {
		c.state = stateResponded
	}
}

// nextPending returns up to n pending candidates ordered by ascending distance.
func (s *shortlist) nextPending(n int) []*candidate {
	s.mu.Lock()
	defer s.mu.Unlock()

	var pending []*candidate
	for _, c := range s.entries {
		if c.state == statePending {
			pending = append(pending, c)
		}
	}
	sort.Slice(pending, func(i, j int) bool {
		return lessBytes(pending[i].distance, pending[j].distance)
	})
	if len(pending) > n {
		pending = pending[:n]
	}
	return pending
}

// closestK returns up to k responded candidates ordered by ascending distance.
func (s *shortlist) closestK() []*enr.Record {
	s.mu.Lock()
	defer s.mu.Unlock()

	var responded []*candidate
	for _, c := range s.entries {
		if c.state == stateResponded {
			responded = append(responded, c)
		}
	}
	sort.Slice(responded, func(i, j int) bool {
		return lessBytes(responded[i].distance, responded[j].distance)
	})
	if len(responded) > s.k {
		responded = responded[:s.k]
	}
	out := make([]*enr.Record, len(responded))
	for i, c := range responded {
		out[i] = c.record
	}
	return out
}

// outstandingCount returns how many candidates are currently in the queried (in-flight) state.
func (s *shortlist) outstandingCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, c := range s.entries {
		if c.state == stateQueried {
			n++
		}
	}
	return n
}

// done reports whether no pending candidate can still improve the closest-k set:
// true once there are no pending candidates left to try.
func (s *shortlist) done() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range s.entries {
		if c.state == statePending {
			return false
		}
	}
	return true
}

func lessBytes(a, b []byte) bool {
	// both are unsigned big-endian magnitudes of equal conceptual width (32 bytes);
	// pad the shorter one logically by comparing lengths first.
	if len(a) != len(b) {
		return len(a) < len(b)
	}
	for i := range a {
		if a[i] != b[i] {
			return a[i] < b[i]
		}
	}
	return false
}

func lookupDeadlineCtx(parent context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(parent, LookupDeadline)
}

func requestCtx(parent context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(parent, RequestTimeout)
}
