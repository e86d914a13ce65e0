/*
File Name:  Dispatch.go

Inbound request dispatcher: one goroutine per sub-protocol drains its
transport.Inbound channel and answers PING, FINDNODES, FINDCONTENT, and
OFFER with the matching wire reply, consulting that sub-protocol's
routing table and content store. Grounded on Peernet's packetWorker
(Network.go) dispatch-by-command loop, generalized from Peernet's single
command set to the Portal wire selectors.
*/

package core

import (
	"log"
	"math/big"

	"github.com/PortalNetworkOfficial/core/contentkey"
	"github.com/PortalNetworkOfficial/core/enr"
	"github.com/PortalNetworkOfficial/core/kademlia"
	"github.com/PortalNetworkOfficial/core/transport"
	"github.com/PortalNetworkOfficial/core/wire"
	"github.com/holiman/uint256"
)

func radiusAsBig(r *uint256.Int) *big.Int {
	return new(big.Int).SetBytes(r.Bytes())
}

// dispatch drains one sub-protocol's inbound channel until Close stops it.
func (n *Node) dispatch(tag enr.SubProtocol) {
	o := n.overlays[tag]
	in := n.Discover.Inbound(tag)

	for {
		select {
		case <-o.stopPtr:
			return
		case req, ok := <-in:
			if !ok {
				return
			}
			n.handleRequest(o, req)
		}
	}
}

func (n *Node) handleRequest(o *overlay, req transport.InboundMessage) {
	if len(req.Payload) < 2 {
		return
	}
	msg, err := wire.Decode(req.Payload[2:])
	if err != nil {
		return
	}

	var resp wire.Message
	switch m := msg.(type) {
	case *wire.Ping:
		resp = n.handlePing(o, m)
	case *wire.FindNodes:
		resp = n.handleFindNodes(o, m)
	case *wire.FindContent:
		resp = n.handleFindContent(o, m)
	case *wire.Offer:
		resp = n.handleOffer(o, m)
	default:
		return
	}
	if resp == nil || req.Reply == nil {
		return
	}

	encoded, err := wire.Encode(resp)
	if err != nil {
		log.Printf("dispatch: encoding reply for sub-protocol %04x: %v\n", uint16(o.def.Tag), err)
		return
	}
	if err := req.Reply(encoded); err != nil {
		log.Printf("dispatch: replying to peer on sub-protocol %04x: %v\n", uint16(o.def.Tag), err)
	}
}

func (n *Node) handlePing(o *overlay, m *wire.Ping) wire.Message {
	return &wire.Pong{EnrSeq: n.Local.Seq, Radius: o.def.Store.Radius()}
}

func (n *Node) handleFindNodes(o *overlay, m *wire.FindNodes) wire.Message {
	seen := make(map[enr.NodeID]struct{})
	var encoded [][]byte

	for _, distance := range m.Distances {
		target := flipDistanceBit(o.def.Table.Self(), distance)
		for _, e := range o.def.Table.Nearest(target, kademlia.BucketSize) {
			id := e.Record.NodeID()
			if _, dup := seen[id]; dup {
				continue
			}
			seen[id] = struct{}{}
			encoded = append(encoded, enr.Encode(e.Record))
		}
	}

	return &wire.Nodes{Total: uint8(len(encoded)), Enrs: encoded}
}

// flipDistanceBit returns an id whose bucket-index relative to self is
// exactly distance, used to translate a FINDNODES distance request into a
// lookup target for Table.Nearest. distance 0 is the peer's own ENR, so it
// returns self unchanged; kademlia.BucketIndex's differing bit sits at raw
// bit position byteIdx*8+bitIdx counted from the MSB, so flipping that same
// bit position reconstructs the id BucketIndex(self, target) == distance.
func flipDistanceBit(self enr.NodeID, distance uint16) (target enr.NodeID) {
	target = self
	if distance == 0 {
		return target
	}
	bitPos := int(distance)
	if bitPos >= 256 {
		return target
	}
	byteIdx := bitPos / 8
	bitIdx := uint(7 - bitPos%8)
	target[byteIdx] ^= 1 << bitIdx
	return target
}

func (n *Node) handleFindContent(o *overlay, m *wire.FindContent) wire.Message {
	key, err := contentkey.Decode(m.Key)
	if err != nil {
		return &wire.Content{Union: wire.ContentUnionPayload, Payload: nil}
	}

	if value, found := o.def.Store.Lookup(key); found {
		return &wire.Content{Union: wire.ContentUnionPayload, Payload: value}
	}

	id := contentkey.Derive(key)
	var encoded [][]byte
	for _, e := range o.def.Table.Nearest(enr.NodeID(id), kademlia.BucketSize) {
		encoded = append(encoded, enr.Encode(e.Record))
	}
	return &wire.Content{Union: wire.ContentUnionEnrs, Enrs: encoded}
}

func (n *Node) handleOffer(o *overlay, m *wire.Offer) wire.Message {
	bitlist := make([]byte, (len(m.ContentKeys)+7)/8)
	var accepted [][]byte
	for i, raw := range m.ContentKeys {
		key, err := contentkey.Decode(raw)
		if err != nil {
			continue
		}
		id := contentkey.Derive(key)
		dist := contentkey.Distance(o.def.Table.Self(), id)
		if dist.Cmp(radiusAsBig(o.def.Store.Radius())) <= 0 {
			bitlist[i/8] |= 1 << uint(i%8)
			accepted = append(accepted, raw)
		}
	}

	var connID uint16
	if len(accepted) > 0 && n.Bulk != nil {
		connID = n.registerPendingOffer(o.def.Tag, accepted)
	}
	return &wire.Accept{ConnectionID: connID, AcceptBitlist: bitlist}
}
