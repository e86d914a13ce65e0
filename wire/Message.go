/*
File Name:  Message.go

Wire message types for the overlay protocol. Grounded on Peernet's
protocol/Message Encoding.go (typed message structs keyed by a leading
action byte); generalized to the Portal selector set and payload shapes.
*/

package wire

import "github.com/holiman/uint256"

// Selector identifies the message type. It is always the first byte on the wire.
type Selector byte

const (
	SelectorPing        Selector = 0x00
	SelectorPong        Selector = 0x01
	SelectorFindNodes   Selector = 0x02
	SelectorNodes       Selector = 0x03
	SelectorFindContent Selector = 0x04
	SelectorContent     Selector = 0x05
	SelectorOffer       Selector = 0x06
	SelectorAccept      Selector = 0x07
)

// ContentUnionSelector tags the three CONTENT payload shapes.
type ContentUnionSelector byte

const (
	ContentUnionConnectionID ContentUnionSelector = 0
	ContentUnionPayload      ContentUnionSelector = 1
	ContentUnionEnrs         ContentUnionSelector = 2
)

// Message is implemented by every wire message type.
type Message interface {
	Selector() Selector
}

// Ping announces liveness and the sender's current ENR sequence and storage radius.
type Ping struct {
	EnrSeq uint64
	Radius *uint256.Int
}

func (Ping) Selector() Selector { return SelectorPing }

// Pong answers a Ping with the same shape.
type Pong struct {
	EnrSeq uint64
	Radius *uint256.Int
}

func (Pong) Selector() Selector { return SelectorPong }

// FindNodes asks for ENRs at the given log-distances from the recipient.
type FindNodes struct {
	Distances []uint16
}

func (FindNodes) Selector() Selector { return SelectorFindNodes }

// Nodes answers FindNodes with a (possibly partial, when capped by MAX_PACKET) list
// of encoded ENRs. Total is the full result count across any follow-up packets.
type Nodes struct {
	Total uint8
	Enrs  [][]byte
}

func (Nodes) Selector() Selector { return SelectorNodes }

// FindContent requests a content item by its encoded content key.
type FindContent struct {
	Key []byte
}

func (FindContent) Selector() Selector { return SelectorFindContent }

// Content is the three-way union response to FindContent. Exactly one of
// ConnectionID, Payload, Enrs is meaningful, selected by Union.
type Content struct {
	Union        ContentUnionSelector
	ConnectionID uint16
	Payload      []byte
	Enrs         [][]byte
}

func (Content) Selector() Selector { return SelectorContent }

// Offer advertises newly admitted content keys to a gossip target.
type Offer struct {
	ContentKeys [][]byte
}

func (Offer) Selector() Selector { return SelectorOffer }

// Accept answers Offer with a bulk-transfer connection id and a bitlist
// selecting which offered keys (by index) the recipient wants.
type Accept struct {
	ConnectionID  uint16
	AcceptBitlist []byte
}

func (Accept) Selector() Selector { return SelectorAccept }
