/*
File Name:  Gossip.go

Wires neighborhood gossip (spec §4.5) to content admission: subscribes to
ContentAdded events and re-offers every newly admitted item to in-radius
peers via the gossip package, adapting Node's wire OFFER/ACCEPT exchange
to gossip.Offerer. Grounded on Peernet's announce-on-store behavior
(the now-superseded Commands.go reacting to a local blockchain append by
announcing it to connected peers).
*/

package core

import (
	"context"
	"errors"

	"github.com/PortalNetworkOfficial/core/contentkey"
	"github.com/PortalNetworkOfficial/core/enr"
	"github.com/PortalNetworkOfficial/core/events"
	"github.com/PortalNetworkOfficial/core/gossip"
	"github.com/PortalNetworkOfficial/core/wire"
)

// ErrTransferUnavailable is returned by this node's bulk-transfer dialers
// when no BulkListen address was configured, or when the peer on the other
// end hasn't advertised one in its own record.
var ErrTransferUnavailable = errors.New("core: bulk transfer dial not available on this transport")

// nodeOfferer adapts one sub-protocol's wire OFFER/ACCEPT exchange to gossip.Offerer.
type nodeOfferer struct {
	node *Node
	tag  enr.SubProtocol
}

func (no nodeOfferer) SendOffer(ctx context.Context, peer *enr.Record, keys [][]byte) ([]byte, uint16, error) {
	encoded, err := wire.Encode(&wire.Offer{ContentKeys: keys})
	if err != nil {
		return nil, 0, err
	}

	resp, err := no.node.Discover.Send(ctx, peer, envelopeFor(no.tag, encoded))
	if err != nil {
		return nil, 0, err
	}

	msg, err := wire.Decode(resp)
	if err != nil {
		return nil, 0, err
	}
	accept, ok := msg.(*wire.Accept)
	if !ok {
		return nil, 0, ErrUnexpectedReply
	}
	return accept.AcceptBitlist, accept.ConnectionID, nil
}

// subscribeGossip registers a ContentAdded listener that re-offers every
// newly admitted item on its own sub-protocol's overlay.
func (n *Node) subscribeGossip() {
	n.gossipSubscription = n.Observer.Subscribe(events.Filters{
		ContentAdded: func(e events.ContentAdded) {
			o, ok := n.Registry.Get(e.SubProtocol)
			if !ok || len(e.Key) == 0 {
				return
			}
			key, err := contentkey.Decode(e.Key)
			if err != nil {
				return
			}
			value, found := o.Store.LookupByID(e.ID)
			if !found {
				return
			}
			overlayState := n.overlays[e.SubProtocol]
			if overlayState == nil {
				return
			}
			go gossip.Gossip(context.Background(), o.Table, overlayState.radii, key, value,
				nodeOfferer{node: n, tag: e.SubProtocol}, n.dialGossipTransfer)
		},
	})
}

// dialGossipTransfer pushes a gossip-admitted item's payload to peer over
// the bulk transfer socket, using the connection id peer's Accept carried.
func (n *Node) dialGossipTransfer(ctx context.Context, peer *enr.Record, connectionID uint16, payload []byte) error {
	if n.Bulk == nil {
		return ErrTransferUnavailable
	}
	addr, err := bulkAddr(peer)
	if err != nil {
		return err
	}
	return n.Bulk.Dial(ctx, addr, connectionID, payload)
}
