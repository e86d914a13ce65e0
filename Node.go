/*
File Name:  Node.go

Top-level orchestrating struct: owns one identity, one routing table and
content store per sub-protocol, the UDP discovery substrate, and the
request dispatcher that answers inbound PING/FINDNODES/FINDCONTENT/OFFER
on each sub-protocol's channel. Grounded on Peernet's Peernet.go
(Backend struct bundling identity, config, networks, store) and
Kademlia.go (per-network table init), generalized from Peernet's single
overlay to Portal's four named sub-protocols.
*/

package core

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"log"
	"net"
	"sync"
	"time"

	"github.com/PortalNetworkOfficial/core/contentkey"
	"github.com/PortalNetworkOfficial/core/enr"
	"github.com/PortalNetworkOfficial/core/events"
	"github.com/PortalNetworkOfficial/core/gossip"
	"github.com/PortalNetworkOfficial/core/kademlia"
	"github.com/PortalNetworkOfficial/core/lookup"
	"github.com/PortalNetworkOfficial/core/store"
	"github.com/PortalNetworkOfficial/core/store/backend"
	"github.com/PortalNetworkOfficial/core/subprotocol"
	"github.com/PortalNetworkOfficial/core/transport"
	"github.com/PortalNetworkOfficial/core/wire"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/rlp"
	"github.com/google/uuid"
	"github.com/holiman/uint256"
)

// ErrUnexpectedReply is returned when a peer answers a request with a
// message of the wrong wire selector.
var ErrUnexpectedReply = errors.New("core: unexpected reply selector")

// overlay bundles everything one sub-protocol needs to route requests,
// store content, and gossip newly admitted items.
type overlay struct {
	def     subprotocol.Definition
	prober  *kademlia.Prober
	radii   *gossip.RadiusTracker
	stopPtr chan struct{}
}

// Node is a running Portal Network client: one identity, one transport, and
// one overlay per configured sub-protocol.
type Node struct {
	Config   *Config
	Identity *enr.Identity
	Local    *enr.Record
	Observer *events.Observer
	Registry *subprotocol.Registry
	Discover transport.Discovery
	Bulk     *transport.BulkTransfer

	overlays           map[enr.SubProtocol]*overlay
	gossipSubscription uuid.UUID

	pendingMu  sync.Mutex
	pending    map[uint16]pendingOffer
	nextConnID uint16
}

// NewNode constructs a node from cfg but does not yet bind a socket or start
// any goroutines; call Start to do that.
func NewNode(cfg *Config, observer *events.Observer) (*Node, error) {
	identity, err := identityFromConfig(cfg)
	if err != nil {
		return nil, err
	}

	subs := make([]enr.SubProtocol, 0, len(cfg.SubProtocols))
	for _, tag := range cfg.SubProtocols {
		subs = append(subs, enr.SubProtocol(tag))
	}

	host, _, err := net.SplitHostPort(cfg.Listen)
	var ip net.IP
	if err == nil {
		ip = net.ParseIP(host)
	}

	local, err := identity.NewRecord(1, ip, 0, 0, subs)
	if err != nil {
		return nil, err
	}

	if observer == nil {
		observer = events.NewObserver(events.Filters{})
	}

	n := &Node{
		Config:   cfg,
		Identity: identity,
		Local:    local,
		Observer: observer,
		Registry: subprotocol.NewRegistry(),
		overlays: make(map[enr.SubProtocol]*overlay),
	}

	radius, err := parseRadius(cfg.InitialRadius)
	if err != nil {
		return nil, err
	}

	for _, tag := range subs {
		if err := n.addOverlay(tag, radius); err != nil {
			return nil, err
		}
	}

	return n, nil
}

func identityFromConfig(cfg *Config) (*enr.Identity, error) {
	if cfg.PrivateKey == "" {
		id, err := enr.NewIdentity()
		if err != nil {
			return nil, err
		}
		cfg.PrivateKey = id.Hex()
		return id, nil
	}
	return enr.IdentityFromHex(cfg.PrivateKey)
}

func parseRadius(hexRadius string) (*uint256.Int, error) {
	r := new(uint256.Int)
	if hexRadius == "" {
		r.SetAllOne()
		return r, nil
	}
	if err := r.SetFromHex("0x" + hexRadius); err != nil {
		return nil, err
	}
	return r, nil
}

func (n *Node) addOverlay(tag enr.SubProtocol, radius *uint256.Int) error {
	table := kademlia.NewTable(n.Local.NodeID(), tag, n.makeLiveness(tag))

	be, err := n.openBackend(tag)
	if err != nil {
		return err
	}

	verifier := n.verifierFor(tag)
	contentStore := store.New(tag, n.Local.NodeID(), be, verifier, n.Observer, radius, n.Config.StoreHighWatermark)

	def := subprotocol.NewDefinition(tag, subProtocolName(tag), table, contentStore)
	n.Registry.Register(def)

	n.overlays[tag] = &overlay{
		def:     def,
		radii:   gossip.NewRadiusTracker(),
		stopPtr: make(chan struct{}),
	}
	return nil
}

// Start binds the UDP transport and launches each sub-protocol's liveness
// prober and inbound request dispatcher. It does not block.
func (n *Node) Start() error {
	tr, err := transport.NewUDPTransport(n.Local, n.Config.Listen, 0)
	if err != nil {
		return err
	}
	n.Discover = tr

	var bulkPort uint16
	if n.Config.BulkListen != "" {
		bt, err := transport.NewBulkTransfer(n.Config.BulkListen)
		if err != nil {
			return err
		}
		n.Bulk = bt
		bulkPort = uint16(bt.LocalAddr().Port)
		go n.consumeBulkTransfers()
	}
	if err := n.refreshLocalRecord(uint16(tr.LocalAddr().Port), bulkPort); err != nil {
		return err
	}

	n.subscribeGossip()

	for _, tag := range n.Registry.Tags() {
		o := n.overlays[tag]
		o.prober = kademlia.NewProber(o.def.Table, n.pinger(tag), lookup.RequestTimeout*6, lookup.RequestTimeout)
		go o.prober.Run()
		go n.dispatch(tag)
		go n.evictLoop(o)
	}
	return nil
}

// evictionInterval sets how often each sub-protocol's store is checked
// against its high watermark, trimming the farthest content once admissions
// have pushed it over budget (spec §4.4).
const evictionInterval = 5 * time.Minute

func (n *Node) evictLoop(o *overlay) {
	ticker := time.NewTicker(evictionInterval)
	defer ticker.Stop()
	for {
		select {
		case <-o.stopPtr:
			return
		case <-ticker.C:
			if err := o.def.Store.EvictToBudget(); err != nil {
				log.Printf("store: evicting to budget for sub-protocol %04x: %v\n", uint16(o.def.Tag), err)
			}
		}
	}
}

// refreshLocalRecord re-signs the local record with the sockets' actual
// bound ports, bumping Seq so peers that already hold an older copy accept
// the update per Table.UpdateSeq's highest-Seq-wins rule.
func (n *Node) refreshLocalRecord(udpPort, bulkPort uint16) error {
	local, err := n.Identity.NewRecord(n.Local.Seq+1, n.Local.IP, udpPort, bulkPort, n.Local.SubProtocols)
	if err != nil {
		return err
	}
	n.Local = local
	return nil
}

// Close stops every prober and dispatcher and releases the transport socket.
func (n *Node) Close() error {
	for _, o := range n.overlays {
		if o.prober != nil {
			o.prober.Stop()
		}
		close(o.stopPtr)
	}
	if n.gossipSubscription != uuid.Nil {
		n.Observer.Unsubscribe(n.gossipSubscription)
	}
	if n.Bulk != nil {
		n.Bulk.Close()
	}
	if closer, ok := n.Discover.(*transport.UDPTransport); ok {
		return closer.Close()
	}
	return nil
}

// pinger adapts Node.ping to the kademlia.Pinger shape the liveness prober needs.
func (n *Node) pinger(tag enr.SubProtocol) kademlia.Pinger {
	return func(rec *enr.Record, deadline time.Duration) bool {
		ctx, cancel := context.WithTimeout(context.Background(), deadline)
		defer cancel()
		_, err := n.ping(ctx, tag, rec)
		return err == nil
	}
}

func (n *Node) openBackend(tag enr.SubProtocol) (backend.Backend, error) {
	if n.Config.StoreDirectory == "" {
		return backend.NewMemory(), nil
	}
	path := fmt.Sprintf("%s/%04x", n.Config.StoreDirectory, uint16(tag))
	return backend.NewPebble(path)
}

func subProtocolName(tag enr.SubProtocol) string {
	switch tag {
	case subprotocol.History:
		return "history"
	case subprotocol.State:
		return "state"
	case subprotocol.Beacon:
		return "beacon"
	case subprotocol.CanonicalIndices:
		return "canonical-indices"
	default:
		return fmt.Sprintf("0x%04x", uint16(tag))
	}
}

func (n *Node) verifierFor(tag enr.SubProtocol) store.Verifier {
	switch tag {
	case subprotocol.History:
		return subprotocol.HistoryVerifier(n.knownHeader)
	case subprotocol.State:
		return subprotocol.StateVerifier(splitProofNodes)
	case subprotocol.Beacon:
		return subprotocol.BeaconVerifier()
	case subprotocol.CanonicalIndices:
		return subprotocol.CanonicalIndicesVerifier()
	default:
		return func(contentkey.Key, []byte) bool { return false }
	}
}

// makeLiveness builds the PING-based liveness probe a routing table uses
// before evicting a stale bucket entry, per spec §4.8.
func (n *Node) makeLiveness(tag enr.SubProtocol) kademlia.Liveness {
	return func(candidate *enr.Record) bool {
		if n.Discover == nil {
			return false
		}
		ctx, cancel := context.WithTimeout(context.Background(), lookup.RequestTimeout)
		defer cancel()
		_, err := n.ping(ctx, tag, candidate)
		return err == nil
	}
}

func (n *Node) ping(ctx context.Context, tag enr.SubProtocol, peer *enr.Record) (*wire.Pong, error) {
	o := n.overlays[tag]
	radius := o.def.Store.Radius()

	encoded, err := wire.Encode(&wire.Ping{EnrSeq: n.Local.Seq, Radius: radius})
	if err != nil {
		return nil, err
	}

	resp, err := n.Discover.Send(ctx, peer, envelopeFor(tag, encoded))
	if err != nil {
		return nil, err
	}

	msg, err := wire.Decode(resp)
	if err != nil {
		return nil, err
	}
	pong, ok := msg.(*wire.Pong)
	if !ok {
		return nil, ErrUnexpectedReply
	}
	o.radii.Update(peer.NodeID(), pong.Radius)
	return pong, nil
}

// envelopeFor prepends the 2-byte sub-protocol tag transport.UDPTransport's
// convention requires ahead of a wire-encoded payload.
func envelopeFor(tag enr.SubProtocol, payload []byte) []byte {
	out := make([]byte, 2+len(payload))
	out[0] = byte(tag >> 8)
	out[1] = byte(tag)
	copy(out[2:], payload)
	return out
}

// knownHeader resolves the header previously admitted for a block hash, used
// by the History verifier to check bodies and receipts against header
// fields rather than their own hash.
func (n *Node) knownHeader(blockHash [32]byte) (*types.Header, bool) {
	o := n.overlays[subprotocol.History]
	if o == nil {
		return nil, false
	}
	value, found := o.def.Store.Lookup(contentkey.BlockHeaderKey(blockHash))
	if !found {
		return nil, false
	}
	var header types.Header
	if err := rlp.DecodeBytes(value, &header); err != nil {
		return nil, false
	}
	return &header, true
}

// splitProofNodes parses the wire encoding State content carries for
// account/storage trie proofs: a 2-byte node count followed by, for each
// node, a 4-byte length prefix and the node's RLP bytes.
func splitProofNodes(value []byte) subprotocol.ProofNodes {
	if len(value) < 2 {
		return nil
	}
	count := binary.BigEndian.Uint16(value[:2])
	offset := 2
	nodes := make(subprotocol.ProofNodes, 0, count)
	for i := uint16(0); i < count; i++ {
		if offset+4 > len(value) {
			break
		}
		length := binary.BigEndian.Uint32(value[offset : offset+4])
		offset += 4
		if offset+int(length) > len(value) {
			break
		}
		nodes = append(nodes, value[offset:offset+int(length)])
		offset += int(length)
	}
	return nodes
}

// encodeProofNodes is splitProofNodes's inverse. It has no callers in this
// module.
func encodeProofNodes(nodes subprotocol.ProofNodes) []byte {
	out := make([]byte, 2)
	binary.BigEndian.PutUint16(out, uint16(len(nodes)))
	for _, node := range nodes {
		lenBuf := make([]byte, 4)
		binary.BigEndian.PutUint32(lenBuf, uint32(len(node)))
		out = append(out, lenBuf...)
		out = append(out, node...)
	}
	return out
}
