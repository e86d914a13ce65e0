/*
File Name:  Neighborhood.go

"Neighborhood" gossip: on newly admitted content, OFFER it to up to
NEIGHBORHOOD_GOSSIP_FANOUT peers whose advertised radius covers it, and
open a bulk-transfer for whatever the peer ACCEPTs. Best-effort, no retry,
per spec §4.5. Grounded on Peernet's announce/response exchange
pattern (the now-superseded Commands.go) generalized from Peernet's
file-announcement grammar to content-key OFFER/ACCEPT.
*/

package gossip

import (
	"context"
	"math/big"
	"sync"

	"github.com/PortalNetworkOfficial/core/contentkey"
	"github.com/PortalNetworkOfficial/core/enr"
	"github.com/PortalNetworkOfficial/core/kademlia"
	"github.com/holiman/uint256"
)

// Fanout is the maximum number of peers offered a newly admitted item.
const Fanout = 4

// Offerer sends an OFFER to a peer and returns its ACCEPT, or an error if
// the peer did not answer.
type Offerer interface {
	SendOffer(ctx context.Context, peer *enr.Record, keys [][]byte) (acceptBitlist []byte, connectionID uint16, err error)
}

// TransferDialer opens a bulk-transfer session carrying the accepted item to peer.
type TransferDialer func(ctx context.Context, peer *enr.Record, connectionID uint16, payload []byte) error

// RadiusTracker records each peer's last-advertised storage radius, refreshed
// from PING/PONG exchanges. Reads/writes are safe for concurrent use.
type RadiusTracker struct {
	mu    sync.Mutex
	radii map[enr.NodeID]*uint256.Int
}

// NewRadiusTracker creates an empty tracker.
func NewRadiusTracker() *RadiusTracker {
	return &RadiusTracker{radii: make(map[enr.NodeID]*uint256.Int)}
}

// Update records a peer's advertised radius.
func (r *RadiusTracker) Update(id enr.NodeID, radius *uint256.Int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.radii[id] = new(uint256.Int).Set(radius)
}

// Covers reports whether a peer's last-known radius covers a distance.
// Peers never observed are assumed not to cover anything, erring toward
// not wasting an OFFER on an unknown radius.
func (r *RadiusTracker) Covers(id enr.NodeID, distance *big.Int) bool {
	r.mu.Lock()
	radius, ok := r.radii[id]
	r.mu.Unlock()
	if !ok {
		return false
	}
	return distance.Cmp(new(big.Int).SetBytes(radius.Bytes())) <= 0
}

// Gossip offers newly admitted content to up to Fanout in-radius peers drawn
// from the routing table, then opens a bulk transfer for whichever of them accept.
func Gossip(ctx context.Context, table *kademlia.Table, radii *RadiusTracker, key contentkey.Key, payload []byte, offer Offerer, dial TransferDialer) {
	id := contentkey.Derive(key)
	nodeID := table.Self()

	candidates := table.Nearest(nodeID, kademlia.BucketSize*2)

	var targets []*enr.Record
	for _, c := range candidates {
		if len(targets) >= Fanout {
			break
		}
		dist := contentkey.Distance(c.Record.NodeID(), id)
		if radii.Covers(c.Record.NodeID(), dist) {
			targets = append(targets, c.Record)
		}
	}

	encodedKey := key.Encode()
	for _, peer := range targets {
		go func(peer *enr.Record) {
			bitlist, connID, err := offer.SendOffer(ctx, peer, [][]byte{encodedKey})
			if err != nil {
				return // best-effort: no retry
			}
			if !bitlistWants(bitlist, 0) {
				return
			}
			if dial != nil {
				_ = dial(ctx, peer, connID, payload)
			}
		}(peer)
	}
}

func bitlistWants(bitlist []byte, index int) bool {
	byteIdx := index / 8
	bitIdx := uint(index % 8)
	if byteIdx >= len(bitlist) {
		return false
	}
	return bitlist[byteIdx]&(1<<bitIdx) != 0
}
