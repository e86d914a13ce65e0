/*
File Name:  FindNode.go

Iterative alpha-parallel FINDNODE lookup (spec §4.3.1). On each tick, fires
off FINDNODES to the closest unqueried pending candidates (up to Alpha in
flight), merges returned ENRs as new pending candidates, and terminates
once no pending candidate remains or the lookup deadline elapses.
*/

package lookup

import (
	"context"

	"github.com/PortalNetworkOfficial/core/enr"
	"github.com/PortalNetworkOfficial/core/kademlia"
	"github.com/PortalNetworkOfficial/core/wire"
)

// Transport is the network capability the lookup engines depend on: send a
// request to a peer and await its response, or time out.
type Transport interface {
	SendFindNodes(ctx context.Context, peer *enr.Record, distances []uint16) ([]*enr.Record, error)
	SendFindContent(ctx context.Context, peer *enr.Record, key []byte) (*wire.Content, error)
}

// FindNodeLookup runs an iterative lookup for target, seeded from seeds
// (typically the K closest entries already in the routing table), and
// returns up to K closest responded ENRs.
func FindNodeLookup(ctx context.Context, target enr.NodeID, seeds []*enr.Record, transport Transport) []*enr.Record {
	ctx, cancel := lookupDeadlineCtx(ctx)
	defer cancel()

	sl := newShortlist(target, kademlia.BucketSize)
	for _, s := range seeds {
		sl.addIfNew(s)
	}

	results := make(chan struct {
		peer *enr.Record
		enrs []*enr.Record
	})

	outstanding := 0
	for {
		if sl.done() && outstanding == 0 {
			return sl.closestK()
		}

		for outstanding < Alpha {
			batch := sl.nextPending(Alpha - outstanding)
			if len(batch) == 0 {
				break
			}
			for _, c := range batch {
				sl.markQueried(c.record.NodeID())
				outstanding++
				go func(peer *enr.Record) {
					reqCtx, reqCancel := requestCtx(ctx)
					defer reqCancel()
					enrs, err := transport.SendFindNodes(reqCtx, peer, distancesFor(peer, target))
					if err != nil {
						enrs = nil
					}
					select {
					case results <- struct {
						peer *enr.Record
						enrs []*enr.Record
					}{peer: peer, enrs: enrs}:
					case <-ctx.Done():
					}
				}(c.record)
			}
		}

		if outstanding == 0 {
			return sl.closestK()
		}

		select {
		case <-ctx.Done():
			return sl.closestK()
		case r := <-results:
			outstanding--
			if r.enrs != nil {
				sl.markResponded(r.peer.NodeID())
				for _, e := range r.enrs {
					sl.addIfNew(e)
				}
			} else {
				// no answer: drop the candidate from further consideration by
				// leaving it in the queried state, which done() treats as settled.
			}
		}
	}
}

// distancesFor picks the log-distances a FINDNODES request should ask peer
// for, biased toward the target's own distance from peer.
func distancesFor(peer *enr.Record, target enr.NodeID) []uint16 {
	d := kademlia.BucketIndex(peer.NodeID(), target)
	distances := []uint16{uint16(d)}
	for _, delta := range []int{-1, 1, -2, 2} {
		nd := d + delta
		if nd >= 0 && nd < kademlia.NumBuckets {
			distances = append(distances, uint16(nd))
		}
	}
	return distances
}
