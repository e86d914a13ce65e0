package gossip

import (
	"context"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/PortalNetworkOfficial/core/contentkey"
	"github.com/PortalNetworkOfficial/core/enr"
	"github.com/PortalNetworkOfficial/core/kademlia"
	"github.com/holiman/uint256"
)

func newGossipTestRecord(t *testing.T) *enr.Record {
	t.Helper()
	id, err := enr.NewIdentity()
	if err != nil {
		t.Fatalf("NewIdentity: %v", err)
	}
	rec, err := id.NewRecord(1, net.ParseIP("127.0.0.1").To4(), 9100, 0, nil)
	if err != nil {
		t.Fatalf("NewRecord: %v", err)
	}
	return rec
}

type recordingOfferer struct {
	mu      sync.Mutex
	offered int
}

func (r *recordingOfferer) SendOffer(ctx context.Context, peer *enr.Record, keys [][]byte) ([]byte, uint16, error) {
	r.mu.Lock()
	r.offered++
	r.mu.Unlock()
	return []byte{0b1}, 42, nil
}

func TestGossipRespectsRadiusCoverage(t *testing.T) {
	self := newGossipTestRecord(t)
	table := kademlia.NewTable(self.NodeID(), 0x500B, nil)

	radii := NewRadiusTracker()
	covering := newGossipTestRecord(t)
	table.Insert(covering)
	radii.Update(covering.NodeID(), maxRadius())

	notCovering := newGossipTestRecord(t)
	table.Insert(notCovering)
	// no radius recorded for notCovering: Covers() must return false

	var hash [32]byte
	hash[0] = 1
	key := contentkey.BlockHeaderKey(hash)

	offerer := &recordingOfferer{}
	var dialed int
	var mu sync.Mutex
	dial := func(ctx context.Context, peer *enr.Record, connID uint16, payload []byte) error {
		mu.Lock()
		dialed++
		mu.Unlock()
		return nil
	}

	Gossip(context.Background(), table, radii, key, []byte("payload"), offerer, dial)

	time.Sleep(50 * time.Millisecond) // gossip fans out asynchronously

	offerer.mu.Lock()
	defer offerer.mu.Unlock()
	if offerer.offered != 1 {
		t.Fatalf("expected exactly 1 offer (only the covering peer), got %d", offerer.offered)
	}

	mu.Lock()
	defer mu.Unlock()
	if dialed != 1 {
		t.Fatalf("expected exactly 1 bulk-transfer dial, got %d", dialed)
	}
}

func maxRadius() *uint256.Int {
	r := uint256.NewInt(0)
	r.SetAllOne()
	return r
}

func TestBitlistWants(t *testing.T) {
	bitlist := []byte{0b00000101} // indices 0 and 2 set
	if !bitlistWants(bitlist, 0) {
		t.Fatal("expected index 0 to be wanted")
	}
	if bitlistWants(bitlist, 1) {
		t.Fatal("expected index 1 to not be wanted")
	}
	if !bitlistWants(bitlist, 2) {
		t.Fatal("expected index 2 to be wanted")
	}
	if bitlistWants(bitlist, 20) {
		t.Fatal("expected out-of-range index to not be wanted")
	}
}
