package kademlia

import (
	"net"
	"testing"
	"time"

	"github.com/PortalNetworkOfficial/core/enr"
)

func newTestRecord(t *testing.T, seq uint64) *enr.Record {
	t.Helper()
	id, err := enr.NewIdentity()
	if err != nil {
		t.Fatalf("NewIdentity: %v", err)
	}
	rec, err := id.NewRecord(seq, net.ParseIP("127.0.0.1").To4(), 9009, 0, []enr.SubProtocol{0x500B})
	if err != nil {
		t.Fatalf("NewRecord: %v", err)
	}
	return rec
}

func TestBucketIndexSelfFarthest(t *testing.T) {
	var self, other [32]byte
	other[0] = 0x80 // differs in the most significant bit of the first byte: XOR == 2^255

	idx := BucketIndex(self, other)
	if idx != 0 {
		t.Fatalf("expected bucket 0 for a maximal XOR distance (floor(log2)=255), got %d", idx)
	}
}

func TestBucketIndexSelfNearest(t *testing.T) {
	var self, other [32]byte
	other[31] = 0x01 // differs only in the least significant bit: XOR == 1

	idx := BucketIndex(self, other)
	if idx != 255 {
		t.Fatalf("expected bucket 255 for a minimal XOR distance (floor(log2)=0), got %d", idx)
	}
}

func TestTableInsertAndNearest(t *testing.T) {
	self := newTestRecord(t, 1)
	table := NewTable(self.NodeID(), 0x500B, nil)

	var ids []enr.NodeID
	for i := 0; i < 20; i++ {
		rec := newTestRecord(t, 1)
		table.Insert(rec)
		ids = append(ids, rec.NodeID())
	}

	if table.Len() == 0 {
		t.Fatal("expected at least one entry after inserts")
	}

	nearest := table.Nearest(ids[0], 5)
	if len(nearest) == 0 {
		t.Fatal("expected at least one nearest entry")
	}
	if len(nearest) > 5 {
		t.Fatalf("expected at most 5 entries, got %d", len(nearest))
	}
}

func TestTableUpdateSeqMonotonic(t *testing.T) {
	self := newTestRecord(t, 1)
	table := NewTable(self.NodeID(), 0x500B, nil)

	rec := newTestRecord(t, 5)
	table.Insert(rec)

	stale := &enr.Record{Seq: 4, PublicKey: rec.PublicKey, UDPPort: rec.UDPPort, SubProtocols: rec.SubProtocols}
	if table.UpdateSeq(stale) {
		t.Fatal("expected stale sequence number to be rejected")
	}

	fresh := &enr.Record{Seq: 6, PublicKey: rec.PublicKey, UDPPort: rec.UDPPort, SubProtocols: rec.SubProtocols}
	if !table.UpdateSeq(fresh) {
		t.Fatal("expected newer sequence number to be accepted")
	}
}

func TestTableMarkFailureEvictsAfterThree(t *testing.T) {
	self := newTestRecord(t, 1)
	table := NewTable(self.NodeID(), 0x500B, nil)

	rec := newTestRecord(t, 1)
	table.Insert(rec)

	id := rec.NodeID()
	if table.MarkFailure(id) {
		t.Fatal("should not evict after first failure")
	}
	if table.MarkFailure(id) {
		t.Fatal("should not evict after second failure")
	}
	if !table.MarkFailure(id) {
		t.Fatal("should evict after third consecutive failure")
	}
}

func TestProberEvictsUnresponsiveNode(t *testing.T) {
	self := newTestRecord(t, 1)
	table := NewTable(self.NodeID(), 0x500B, nil)

	rec := newTestRecord(t, 1)
	table.Insert(rec)
	// force staleness without waiting on a real clock
	if e, ok := table.Find(rec.NodeID()); ok {
		e.LastSeen = time.Now().Add(-time.Hour)
	}

	alwaysDead := func(*enr.Record, time.Duration) bool { return false }
	prober := NewProber(table, alwaysDead, time.Millisecond, time.Millisecond)

	for i := 0; i < 3; i++ {
		prober.sweep()
	}

	if _, ok := table.Find(rec.NodeID()); ok {
		t.Fatal("expected node to be evicted after three failed sweeps")
	}
}
