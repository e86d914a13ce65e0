/*
File Name:  Transfer.go

Bookkeeping between an accepted OFFER and the bulk-transfer payload it
promises: handleOffer allocates a connection id and remembers which keys
it covers, and consumeBulkTransfers admits the payload BulkTransfer
eventually delivers on that id into the right sub-protocol's store.
Grounded on Peernet's DHT Store.go (mapping a pending request id to
the work it resolves): ids come from a per-node counter and are kept in
one shared map, Node.pending, separate from transfer.Multiplexer.
*/

package core

import (
	"encoding/binary"
	"log"

	"github.com/PortalNetworkOfficial/core/contentkey"
	"github.com/PortalNetworkOfficial/core/enr"
	"github.com/PortalNetworkOfficial/core/subprotocol"
)

// pendingOffer remembers which sub-protocol and content keys a
// just-accepted OFFER promised, keyed by the connection id returned in
// its Accept so the payload can be routed once it arrives.
type pendingOffer struct {
	tag  enr.SubProtocol
	keys [][]byte
}

// registerPendingOffer allocates a connection id for an accepted OFFER.
func (n *Node) registerPendingOffer(tag enr.SubProtocol, keys [][]byte) uint16 {
	n.pendingMu.Lock()
	defer n.pendingMu.Unlock()
	if n.pending == nil {
		n.pending = make(map[uint16]pendingOffer)
	}
	n.nextConnID++
	id := n.nextConnID
	n.pending[id] = pendingOffer{tag: tag, keys: keys}
	return id
}

func (n *Node) takePendingOffer(id uint16) (pendingOffer, bool) {
	n.pendingMu.Lock()
	defer n.pendingMu.Unlock()
	p, ok := n.pending[id]
	if ok {
		delete(n.pending, id)
	}
	return p, ok
}

// consumeBulkTransfers drains Bulk.Accepted(), admitting each completed
// payload into the sub-protocol store its originating OFFER promised.
// A single-key offer's payload is the content value directly; a
// multi-key offer's keys are admitted in order against length-prefixed
// slices of the payload, mirroring the order ContentKeys were sent in.
func (n *Node) consumeBulkTransfers() {
	for accepted := range n.Bulk.Accepted() {
		pending, ok := n.takePendingOffer(accepted.ConnectionID)
		if !ok {
			continue
		}
		o, ok := n.Registry.Get(pending.tag)
		if !ok {
			continue
		}
		n.admitTransfer(o, pending.keys, accepted.Payload)
	}
}

func (n *Node) admitTransfer(o subprotocol.Definition, keys [][]byte, payload []byte) {
	if len(keys) == 1 {
		key, err := contentkey.Decode(keys[0])
		if err != nil {
			log.Printf("transfer: decoding offered key: %v\n", err)
			return
		}
		if err := o.Store.Admit(key, payload); err != nil {
			log.Printf("transfer: admitting offered content: %v\n", err)
		}
		return
	}

	offset := 0
	for _, raw := range keys {
		if offset+4 > len(payload) {
			return
		}
		length := int(binary.BigEndian.Uint32(payload[offset : offset+4]))
		offset += 4
		if offset+length > len(payload) {
			return
		}
		value := payload[offset : offset+length]
		offset += length

		key, err := contentkey.Decode(raw)
		if err != nil {
			continue
		}
		if err := o.Store.Admit(key, value); err != nil {
			log.Printf("transfer: admitting offered content: %v\n", err)
		}
	}
}
