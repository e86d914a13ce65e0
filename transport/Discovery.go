/*
File Name:  Discovery.go

The discovery substrate this client consumes: a request/response transport
plus a per-sub-protocol inbound stream, per spec §6. Grounded on the
Peernet's Network.go (one socket, one LocalRecord-equivalent peer
identity, inbound dispatch by worker pool) generalized to an interface so
lookup/gossip code depends on a contract instead of a concrete socket.
*/

package transport

import (
	"context"

	"github.com/PortalNetworkOfficial/core/enr"
)

// InboundMessage is one decoded request arriving from a peer, routed to the
// sub-protocol its envelope names. Reply, if non-nil, sends a correlated
// response back to the same peer over the same request nonce.
type InboundMessage struct {
	From        *enr.Record
	SubProtocol enr.SubProtocol
	Payload     []byte
	Reply       func(payload []byte) error
}

// Discovery is the substrate every sub-protocol's lookup and gossip code is
// built against: send a request and await its correlated response, learn
// the local node's own record, and receive inbound requests split by
// sub-protocol.
type Discovery interface {
	Send(ctx context.Context, e *enr.Record, payload []byte) ([]byte, error)
	LocalRecord() *enr.Record
	Inbound(subProtocol enr.SubProtocol) <-chan InboundMessage
}
