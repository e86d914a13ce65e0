/*
File Name:  UDP.go

Default UDP implementation of Discovery: one socket, a small worker pool
draining a buffered inbound channel, request/response correlation by a
16-bit nonce, and per-sub-protocol fan-out channels for unsolicited
inbound requests. Grounded on Peernet's Network Init.go
(rawPacketsIncoming buffered channel + packetWorker pool sizing) and
Network.go (AutoAssignPort, Listen's read loop, send). NAT/adapter
discovery (IPv4 broadcast, IPv6 multicast, UPnP) is out of this client's
scope beyond the single explicit bind address a caller supplies; see
DESIGN.md for why Peernet's adapter-enumeration sweep was not carried
over wholesale.
*/

package transport

import (
	"context"
	"encoding/binary"
	"errors"
	"log"
	"math/rand"
	"net"
	"sync"
	"time"

	"github.com/PortalNetworkOfficial/core/enr"
)

// ErrRequestTimeout is returned by Send when no response arrives before ctx expires.
var ErrRequestTimeout = errors.New("transport: request timed out")

// ErrTruncatedEnvelope is returned when an inbound packet is too short to carry
// the 2-byte nonce and 2-byte sub-protocol tag every envelope carries.
var ErrTruncatedEnvelope = errors.New("transport: truncated envelope")

const envelopeHeaderSize = 4 // 2-byte nonce + 2-byte sub-protocol tag

// maxPacketSize bounds a single UDP read, matching Peernet's Network.go.
const maxPacketSize = 65536

// defaultWorkers matches Peernet's Network Init.go fallback of 2 listen workers.
const defaultWorkers = 2

// defaultInboundBuffer matches Peernet's 1000-packet rawPacketsIncoming buffer.
const defaultInboundBuffer = 1000

type pendingRequest struct {
	addr *net.UDPAddr
	ch   chan []byte
}

// UDPTransport is the default Discovery implementation over a single bound UDP socket.
type UDPTransport struct {
	conn  *net.UDPConn
	local *enr.Record

	mu      sync.Mutex
	pending map[uint16]*pendingRequest

	inboundMu sync.Mutex
	inbound   map[enr.SubProtocol]chan InboundMessage

	raw          chan rawPacket
	workers      int
	terminate    chan struct{}
	terminateAll sync.Once
}

type rawPacket struct {
	data []byte
	addr *net.UDPAddr
}

// NewUDPTransport binds a UDP socket at listenAddr and starts its read loop
// and worker pool. local is this node's own ENR, returned by LocalRecord.
func NewUDPTransport(local *enr.Record, listenAddr string, workers int) (*UDPTransport, error) {
	addr, err := net.ResolveUDPAddr("udp", listenAddr)
	if err != nil {
		return nil, err
	}
	conn, err := net.ListenUDP("udp", addr)
	if err != nil {
		return nil, err
	}

	if workers <= 0 {
		workers = defaultWorkers
	}

	t := &UDPTransport{
		conn:      conn,
		local:     local,
		pending:   make(map[uint16]*pendingRequest),
		inbound:   make(map[enr.SubProtocol]chan InboundMessage),
		raw:       make(chan rawPacket, defaultInboundBuffer),
		workers:   workers,
		terminate: make(chan struct{}),
	}

	go t.listen()
	for i := 0; i < workers; i++ {
		go t.worker()
	}

	return t, nil
}

// LocalRecord returns this node's own ENR.
func (t *UDPTransport) LocalRecord() *enr.Record { return t.local }

// LocalAddr returns the bound socket address, useful after binding to an
// ephemeral port (listenAddr ending in ":0").
func (t *UDPTransport) LocalAddr() *net.UDPAddr {
	return t.conn.LocalAddr().(*net.UDPAddr)
}

// Inbound returns the channel of unsolicited requests routed to a sub-protocol,
// creating it on first use.
func (t *UDPTransport) Inbound(sub enr.SubProtocol) <-chan InboundMessage {
	t.inboundMu.Lock()
	defer t.inboundMu.Unlock()
	ch, ok := t.inbound[sub]
	if !ok {
		ch = make(chan InboundMessage, defaultInboundBuffer)
		t.inbound[sub] = ch
	}
	return ch
}

// Send writes payload, which must begin with a 2-byte sub-protocol tag the
// caller's sub-protocol layer prepends, to e's advertised address, and
// blocks for the correlated response or ctx's deadline.
func (t *UDPTransport) Send(ctx context.Context, e *enr.Record, payload []byte) ([]byte, error) {
	addr := &net.UDPAddr{IP: e.IP, Port: int(e.UDPPort)}

	nonce := t.newNonce()
	respCh := make(chan []byte, 1)

	t.mu.Lock()
	t.pending[nonce] = &pendingRequest{addr: addr, ch: respCh}
	t.mu.Unlock()

	defer func() {
		t.mu.Lock()
		delete(t.pending, nonce)
		t.mu.Unlock()
	}()

	envelope := make([]byte, envelopeHeaderSize+len(payload))
	binary.BigEndian.PutUint16(envelope[0:2], nonce)
	copy(envelope[envelopeHeaderSize:], payload)
	// the sub-protocol tag lives inside payload[:2] by caller convention; echo
	// it into the envelope's own tag slot so inbound routing does not need to
	// re-parse the application payload.
	if len(payload) >= 2 {
		copy(envelope[2:4], payload[:2])
	}

	if _, err := t.conn.WriteToUDP(envelope, addr); err != nil {
		return nil, err
	}

	select {
	case resp := <-respCh:
		return resp, nil
	case <-ctx.Done():
		return nil, ErrRequestTimeout
	}
}

// Close shuts the socket and stops the worker pool.
func (t *UDPTransport) Close() error {
	t.terminateAll.Do(func() { close(t.terminate) })
	return t.conn.Close()
}

func (t *UDPTransport) newNonce() uint16 {
	return uint16(rand.Intn(1 << 16))
}

func (t *UDPTransport) listen() {
	for {
		buf := make([]byte, maxPacketSize)
		n, addr, err := t.conn.ReadFromUDP(buf)
		if err != nil {
			select {
			case <-t.terminate:
				return
			default:
			}
			log.Printf("transport: read error: %v\n", err)
			time.Sleep(50 * time.Millisecond)
			continue
		}
		if n < envelopeHeaderSize {
			continue
		}

		select {
		case t.raw <- rawPacket{data: append([]byte(nil), buf[:n]...), addr: addr}:
		default:
			// inbound buffer full: drop rather than block the read loop
		}
	}
}

func (t *UDPTransport) worker() {
	for {
		select {
		case <-t.terminate:
			return
		case pkt := <-t.raw:
			t.handle(pkt)
		}
	}
}

func (t *UDPTransport) handle(pkt rawPacket) {
	if len(pkt.data) < envelopeHeaderSize {
		return
	}
	nonce := binary.BigEndian.Uint16(pkt.data[0:2])
	sub := enr.SubProtocol(binary.BigEndian.Uint16(pkt.data[2:4]))
	payload := pkt.data[envelopeHeaderSize:]

	t.mu.Lock()
	req, isResponse := t.pending[nonce]
	t.mu.Unlock()

	if isResponse && req.addr.IP.Equal(pkt.addr.IP) && req.addr.Port == pkt.addr.Port {
		select {
		case req.ch <- payload:
		default:
		}
		return
	}

	ch := t.inboundChannel(sub)
	if ch == nil {
		return
	}

	// from carries only the observed network address, not identity: the socket
	// cannot know a sender's public key until the sub-protocol layer decodes
	// the payload's own ENR, so From.NodeID() must not be called on this value.
	from := &enr.Record{IP: pkt.addr.IP, UDPPort: uint16(pkt.addr.Port)}
	reply := func(respPayload []byte) error {
		envelope := make([]byte, envelopeHeaderSize+len(respPayload))
		binary.BigEndian.PutUint16(envelope[0:2], nonce)
		binary.BigEndian.PutUint16(envelope[2:4], uint16(sub))
		copy(envelope[envelopeHeaderSize:], respPayload)
		_, err := t.conn.WriteToUDP(envelope, pkt.addr)
		return err
	}

	select {
	case ch <- InboundMessage{From: from, SubProtocol: sub, Payload: payload, Reply: reply}:
	default:
		// per-sub-protocol inbound buffer full: drop rather than block the worker
	}
}

func (t *UDPTransport) inboundChannel(sub enr.SubProtocol) chan InboundMessage {
	t.inboundMu.Lock()
	defer t.inboundMu.Unlock()
	ch, ok := t.inbound[sub]
	if !ok {
		ch = make(chan InboundMessage, defaultInboundBuffer)
		t.inbound[sub] = ch
	}
	return ch
}
