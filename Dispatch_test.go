package core

import (
	"testing"

	"github.com/PortalNetworkOfficial/core/enr"
	"github.com/PortalNetworkOfficial/core/kademlia"
)

func TestFlipDistanceBitMatchesBucketIndex(t *testing.T) {
	var self enr.NodeID
	for _, distance := range []uint16{1, 42, 128, 200, 255} {
		target := flipDistanceBit(self, distance)
		if got := kademlia.BucketIndex(self, target); got != int(distance) {
			t.Fatalf("distance %d: BucketIndex(self, flipDistanceBit(self, %d)) = %d", distance, distance, got)
		}
	}
}

func TestFlipDistanceBitZeroAndOutOfRangeAreNoops(t *testing.T) {
	var self enr.NodeID
	self[5] = 0x42

	if target := flipDistanceBit(self, 0); target != self {
		t.Fatal("expected distance 0 to return self unchanged")
	}
	if target := flipDistanceBit(self, 256); target != self {
		t.Fatal("expected out-of-range distance to return self unchanged")
	}
}
