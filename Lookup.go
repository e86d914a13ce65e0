/*
File Name:  Lookup.go

Adapts a Node's wire transport to the lookup package's Transport
interface, and exposes the two public entry points embedding
applications call to resolve a node or a content item: FindNode and
FindContent. Grounded on Peernet's dht/DHT Lite.go public
FindNode/Get wrappers around the internal search client.
*/

package core

import (
	"context"
	"net"

	"github.com/PortalNetworkOfficial/core/contentkey"
	"github.com/PortalNetworkOfficial/core/enr"
	"github.com/PortalNetworkOfficial/core/kademlia"
	"github.com/PortalNetworkOfficial/core/lookup"
	"github.com/PortalNetworkOfficial/core/wire"
)

func recordsFromEntries(entries []*kademlia.Entry) []*enr.Record {
	out := make([]*enr.Record, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.Record)
	}
	return out
}

// nodeTransport binds one sub-protocol's wire exchange to the lookup
// package's Transport contract.
type nodeTransport struct {
	node *Node
	tag  enr.SubProtocol
}

func (nt nodeTransport) SendFindNodes(ctx context.Context, peer *enr.Record, distances []uint16) ([]*enr.Record, error) {
	encoded, err := wire.Encode(&wire.FindNodes{Distances: distances})
	if err != nil {
		return nil, err
	}

	resp, err := nt.node.Discover.Send(ctx, peer, envelopeFor(nt.tag, encoded))
	if err != nil {
		return nil, err
	}

	msg, err := wire.Decode(resp)
	if err != nil {
		return nil, err
	}
	nodes, ok := msg.(*wire.Nodes)
	if !ok {
		return nil, ErrUnexpectedReply
	}

	records := make([]*enr.Record, 0, len(nodes.Enrs))
	for _, raw := range nodes.Enrs {
		rec, err := enr.Decode(raw)
		if err != nil {
			continue
		}
		records = append(records, rec)
	}
	return records, nil
}

func (nt nodeTransport) SendFindContent(ctx context.Context, peer *enr.Record, key []byte) (*wire.Content, error) {
	encoded, err := wire.Encode(&wire.FindContent{Key: key})
	if err != nil {
		return nil, err
	}

	resp, err := nt.node.Discover.Send(ctx, peer, envelopeFor(nt.tag, encoded))
	if err != nil {
		return nil, err
	}

	msg, err := wire.Decode(resp)
	if err != nil {
		return nil, err
	}
	content, ok := msg.(*wire.Content)
	if !ok {
		return nil, ErrUnexpectedReply
	}
	return content, nil
}

// FindNode resolves the closest known ENRs to target on the given
// sub-protocol's overlay, seeding the search from the current routing table.
func (n *Node) FindNode(ctx context.Context, tag enr.SubProtocol, target enr.NodeID) []*enr.Record {
	o, ok := n.Registry.Get(tag)
	if !ok {
		return nil
	}
	seeds := recordsFromEntries(o.Table.Nearest(target, kademlia.BucketSize))
	return lookup.FindNodeLookup(ctx, target, seeds, nodeTransport{node: n, tag: tag})
}

// FindContent resolves a content item by key on the given sub-protocol's
// overlay, checking the local store first.
func (n *Node) FindContent(ctx context.Context, tag enr.SubProtocol, key []byte, verify lookup.Verifier) (*lookup.ContentResult, error) {
	o, ok := n.Registry.Get(tag)
	if !ok {
		return nil, lookup.ErrNotFound
	}

	decoded, err := contentkey.Decode(key)
	if err != nil {
		return nil, err
	}
	if value, found := o.Store.Lookup(decoded); found {
		return &lookup.ContentResult{Payload: value, Source: nil}, nil
	}

	id := contentkey.Derive(decoded)
	seeds := recordsFromEntries(o.Table.Nearest(enr.NodeID(id), kademlia.BucketSize))

	return lookup.FindContentLookup(ctx, enr.NodeID(id), key, seeds, nodeTransport{node: n, tag: tag}, n.dialTransfer, verify)
}

// dialTransfer fetches a CONTENT connection-id arm's payload over the bulk
// transfer socket: the content-holding peer pushes ST_DATA/ST_FIN once this
// side dials in with the connection id that peer's CONTENT reply carried.
func (n *Node) dialTransfer(ctx context.Context, source *enr.Record, connectionID uint16) ([]byte, error) {
	if n.Bulk == nil {
		return nil, ErrTransferUnavailable
	}
	addr, err := bulkAddr(source)
	if err != nil {
		return nil, err
	}
	return n.Bulk.Fetch(ctx, addr, connectionID)
}

// bulkAddr resolves a peer's bulk-transfer socket address from its
// advertised IP and BulkPort.
func bulkAddr(rec *enr.Record) (*net.UDPAddr, error) {
	if rec.IP == nil || rec.BulkPort == 0 {
		return nil, ErrTransferUnavailable
	}
	return &net.UDPAddr{IP: rec.IP, Port: int(rec.BulkPort)}, nil
}
