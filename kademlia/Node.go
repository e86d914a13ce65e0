/*
File Name:  Node.go

Entry stored in a routing table bucket, and the XOR-distance shortlist
helper used by the lookup engines. Grounded on Peernet's dht/Node.go.
*/

package kademlia

import (
	"math/big"
	"time"

	"github.com/PortalNetworkOfficial/core/enr"
)

// Entry is a single routing-table record: an ENR plus liveness bookkeeping.
type Entry struct {
	Record   *enr.Record
	LastSeen time.Time
	Failures int // consecutive liveness failures since the last successful PONG
}

func (e *Entry) id() enr.NodeID {
	return e.Record.NodeID()
}

// Distance returns the XOR distance between two 32-byte identifiers as an unsigned integer.
func Distance(a, b [32]byte) *big.Int {
	var x [32]byte
	for i := range x {
		x[i] = a[i] ^ b[i]
	}
	return new(big.Int).SetBytes(x[:])
}

// BucketIndex returns the bucket index (0..255) that id belongs to relative to self,
// per the invariant bucket-index(enr) == 256 - floor(log2(XOR(local, enr))) - 1.
// byteIdx*8+bitIdx counts the position of the XOR's highest set bit from the
// MSB side, which is exactly 255 - floor(log2(xor)) - the bucket index itself.
func BucketIndex(self, id [32]byte) int {
	for byteIdx := 0; byteIdx < 32; byteIdx++ {
		xor := self[byteIdx] ^ id[byteIdx]
		if xor == 0 {
			continue
		}
		for bitIdx := 0; bitIdx < 8; bitIdx++ {
			if hasBit(xor, uint(bitIdx)) {
				return byteIdx*8 + bitIdx
			}
		}
	}
	// self == id: only expected for the local node itself.
	return 0
}

func hasBit(n byte, pos uint) bool {
	pos = 7 - pos
	return n&(1<<pos) > 0
}

// shortList sorts candidate entries by ascending XOR distance to a comparator target.
type shortList struct {
	Entries    []*Entry
	Comparator [32]byte
}

func (s *shortList) Len() int      { return len(s.Entries) }
func (s *shortList) Swap(i, j int) { s.Entries[i], s.Entries[j] = s.Entries[j], s.Entries[i] }
func (s *shortList) Less(i, j int) bool {
	di := Distance(s.Entries[i].id(), s.Comparator)
	dj := Distance(s.Entries[j].id(), s.Comparator)
	return di.Cmp(dj) < 0
}

// AppendUnique appends entries not already present (by node ID).
func (s *shortList) AppendUnique(entries ...*Entry) {
nextEntry:
	for _, e := range entries {
		eid := e.id()
		for _, have := range s.Entries {
			if have.id() == eid {
				continue nextEntry
			}
		}
		s.Entries = append(s.Entries, e)
	}
}
