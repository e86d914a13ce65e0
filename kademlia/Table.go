/*
File Name:  Table.go

Per-sub-protocol Kademlia routing table: 256 XOR-distance buckets, each a
bounded ordered sequence of ENR entries plus a bounded replacement cache.
Grounded on Peernet's dht/Hash Table.go and dht/DHT Lite.go, generalized
to carry a sub-protocol tag and real ENRs instead of raw byte IDs.
*/

package kademlia

import (
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/PortalNetworkOfficial/core/enr"
)

// BucketSize is K, the maximum number of live entries per bucket.
const BucketSize = 16

// NumBuckets is the number of log-distance buckets for a 256-bit ID space.
const NumBuckets = 256

// Liveness is consulted by Table.Insert when a bucket is full. It must probe
// the candidate for eviction (e.g. send a PING) and report whether it is
// still alive. The caller (the sub-protocol glue) supplies the network call.
type Liveness func(candidate *enr.Record) (alive bool)

// Table is the routing table for a single sub-protocol.
type Table struct {
	self        enr.NodeID
	subProtocol enr.SubProtocol
	probe       Liveness

	mu      sync.Mutex
	buckets [NumBuckets][]*Entry
	replace [NumBuckets][]*Entry
}

// NewTable creates an empty routing table for the given sub-protocol.
func NewTable(self enr.NodeID, sub enr.SubProtocol, probe Liveness) *Table {
	return &Table{self: self, subProtocol: sub, probe: probe}
}

func (t *Table) bucketIndex(id enr.NodeID) int {
	return BucketIndex(t.self, id)
}

// Insert adds or refreshes a node. If the bucket is full, the least-recently-seen
// entry is probed for liveness: if it responds it is kept (moved to most-recent)
// and the incoming entry goes to the replacement cache; otherwise it is evicted
// and the incoming entry takes its place.
func (t *Table) Insert(rec *enr.Record) {
	id := rec.NodeID()
	if id == t.self {
		return
	}

	idx := t.bucketIndex(id)

	t.mu.Lock()
	defer t.mu.Unlock()

	bucket := t.buckets[idx]
	for i, e := range bucket {
		if e.Record.NodeID() == id {
			if rec.Seq > e.Record.Seq {
				e.Record = rec
			}
			e.LastSeen = time.Now().UTC()
			e.Failures = 0
			bucket = append(bucket[:i], bucket[i+1:]...)
			bucket = append(bucket, e)
			t.buckets[idx] = bucket
			return
		}
	}

	incoming := &Entry{Record: rec, LastSeen: time.Now().UTC()}

	if len(bucket) < BucketSize {
		t.buckets[idx] = append(bucket, incoming)
		return
	}

	oldest := bucket[0]
	alive := t.probe == nil || t.probe(oldest.Record)
	if alive {
		oldest.LastSeen = time.Now().UTC()
		bucket = append(bucket[1:], oldest)
		t.buckets[idx] = bucket
		t.addToReplacementCache(idx, incoming)
		return
	}

	bucket = append(bucket[1:], incoming)
	t.buckets[idx] = bucket
}

func (t *Table) addToReplacementCache(idx int, e *Entry) {
	cache := t.replace[idx]
	if len(cache) >= BucketSize {
		cache = cache[1:]
	}
	t.replace[idx] = append(cache, e)
}

// Remove drops a node from its bucket and promotes the most recent replacement, if any.
func (t *Table) Remove(id enr.NodeID) {
	idx := t.bucketIndex(id)

	t.mu.Lock()
	defer t.mu.Unlock()

	bucket := t.buckets[idx]
	for i, e := range bucket {
		if e.Record.NodeID() == id {
			bucket = append(bucket[:i], bucket[i+1:]...)
			t.buckets[idx] = bucket
			break
		}
	}

	if cache := t.replace[idx]; len(cache) > 0 {
		promoted := cache[len(cache)-1]
		t.replace[idx] = cache[:len(cache)-1]
		t.buckets[idx] = append(t.buckets[idx], promoted)
	}
}

// Nearest returns up to k entries closest to target by XOR distance, scanning
// outward from target's own bucket. Ties break by earlier insertion order,
// which falls out naturally since buckets are scanned in stored order.
func (t *Table) Nearest(target enr.NodeID, k int) []*Entry {
	idx := t.bucketIndex(target)

	indices := []int{idx}
	for i, j := idx-1, idx+1; len(indices) < NumBuckets; i, j = i-1, j+1 {
		if j < NumBuckets {
			indices = append(indices, j)
		}
		if i >= 0 {
			indices = append(indices, i)
		}
	}

	t.mu.Lock()
	sl := &shortList{Comparator: target}
	for _, bi := range indices {
		sl.AppendUnique(t.buckets[bi]...)
		if len(sl.Entries) >= k {
			break
		}
	}
	t.mu.Unlock()

	sort.Sort(sl)
	if len(sl.Entries) > k {
		sl.Entries = sl.Entries[:k]
	}
	return sl.Entries
}

// UpdateSeq accepts the record only if its sequence number is strictly greater
// than the one currently stored for that node ID, preserving the monotonic-seq invariant.
func (t *Table) UpdateSeq(rec *enr.Record) (accepted bool) {
	id := rec.NodeID()
	idx := t.bucketIndex(id)

	t.mu.Lock()
	defer t.mu.Unlock()

	for _, e := range t.buckets[idx] {
		if e.Record.NodeID() == id {
			if rec.Seq <= e.Record.Seq {
				return false
			}
			e.Record = rec
			return true
		}
	}
	return false
}

// Find returns the entry for a node ID, if present.
func (t *Table) Find(id enr.NodeID) (*Entry, bool) {
	idx := t.bucketIndex(id)

	t.mu.Lock()
	defer t.mu.Unlock()

	for _, e := range t.buckets[idx] {
		if e.Record.NodeID() == id {
			return e, true
		}
	}
	return nil, false
}

// MarkFailure increments the consecutive-failure counter for a node and
// reports whether it has now crossed the eviction threshold (3, per §4.8).
func (t *Table) MarkFailure(id enr.NodeID) (shouldEvict bool) {
	idx := t.bucketIndex(id)

	t.mu.Lock()
	defer t.mu.Unlock()

	for _, e := range t.buckets[idx] {
		if e.Record.NodeID() == id {
			e.Failures++
			return e.Failures >= 3
		}
	}
	return false
}

// Len returns the total number of live entries across all buckets.
func (t *Table) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()

	total := 0
	for _, b := range t.buckets {
		total += len(b)
	}
	return total
}

// SubProtocol returns the sub-protocol this table serves.
func (t *Table) SubProtocol() enr.SubProtocol { return t.subProtocol }

// Self returns the local node ID this table is organized around.
func (t *Table) Self() enr.NodeID { return t.self }

// ErrInvalidID is returned by operations given an identifier of the wrong size.
var ErrInvalidID = errors.New("kademlia: invalid identifier size")
