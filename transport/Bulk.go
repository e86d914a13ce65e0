/*
File Name:  Bulk.go

Bulk-transfer endpoint: a dedicated UDP socket carrying transfer.Session
packets, kept separate from the request/response discovery socket in
UDP.go because a multi-chunk transfer has no place in a single
Send/reply round trip. Grounded on Peernet's "Transfer UDT.go" (a
distinct listener driving udt sessions keyed by connection id) adapted to
transfer.Session/Multiplexer's connection-id arena.
*/

package transport

import (
	"context"
	"net"

	"github.com/PortalNetworkOfficial/core/transfer"
)

// AcceptedTransfer is delivered to Accepted() when an inbound session completes.
// ConnectionID is the id the initiator dialed with, i.e. the value this node
// itself handed out in the preceding OFFER's Accept reply, not the +1 id the
// local acceptor session is bound under.
type AcceptedTransfer struct {
	From         *net.UDPAddr
	ConnectionID uint16
	Payload      []byte
}

// BulkTransfer runs the packet loop for transfer.Session/Multiplexer over its
// own UDP socket.
type BulkTransfer struct {
	conn *net.UDPConn
	mux  *transfer.Multiplexer

	accepted chan AcceptedTransfer
	raw      chan rawPacket

	terminate chan struct{}
}

// NewBulkTransfer binds listenAddr and starts the read/dispatch loops.
func NewBulkTransfer(listenAddr string) (*BulkTransfer, error) {
	addr, err := net.ResolveUDPAddr("udp", listenAddr)
	if err != nil {
		return nil, err
	}
	conn, err := net.ListenUDP("udp", addr)
	if err != nil {
		return nil, err
	}

	bt := &BulkTransfer{
		conn:      conn,
		mux:       transfer.NewMultiplexer(),
		accepted:  make(chan AcceptedTransfer, 32),
		raw:       make(chan rawPacket, defaultInboundBuffer),
		terminate: make(chan struct{}),
	}
	go bt.listen()
	go bt.dispatch()
	return bt, nil
}

// LocalAddr returns the bound socket address.
func (bt *BulkTransfer) LocalAddr() *net.UDPAddr {
	return bt.conn.LocalAddr().(*net.UDPAddr)
}

// Accepted delivers payloads completed by sessions this endpoint accepted
// (i.e. sessions opened by a remote peer against one of our OFFER ACCEPTs).
func (bt *BulkTransfer) Accepted() <-chan AcceptedTransfer {
	return bt.accepted
}

// Dial opens a new session to addr as the initiator, using connID as this
// side's connection id (as allocated and communicated via the preceding
// OFFER/ACCEPT exchange), then pushes data as ST_DATA/ST_FIN. The transfer
// is one-directional (sender to the accepting peer), so Dial returns once
// every chunk has been written rather than waiting on the peer's own FIN.
// Used by the offering side, not the requesting side: Portal's bulk
// transfer is sender-initiated once a peer ACCEPTs an OFFER.
func (bt *BulkTransfer) Dial(ctx context.Context, addr *net.UDPAddr, connID uint16, data []byte) error {
	session := transfer.NewInitiator(connID, bt.senderTo(addr))
	bt.mux.Bind(connID, session)
	defer bt.mux.Release(connID)

	if err := session.Open(); err != nil {
		return err
	}
	return session.SendPayload(data)
}

// Fetch acts as the initiator side of a FINDCONTENT connection-id arm: it
// dials addr, sends nothing itself, and waits for the peer (who holds the
// content) to push ST_DATA/ST_FIN, returning the reassembled payload.
func (bt *BulkTransfer) Fetch(ctx context.Context, addr *net.UDPAddr, connID uint16) ([]byte, error) {
	session := transfer.NewInitiator(connID, bt.senderTo(addr))
	bt.mux.Bind(connID, session)
	defer bt.mux.Release(connID)

	if err := session.Open(); err != nil {
		return nil, err
	}

	type outcome struct {
		payload []byte
		err     error
	}
	resultCh := make(chan outcome, 1)
	go func() {
		payload, err := session.Result()
		resultCh <- outcome{payload, err}
	}()

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case r := <-resultCh:
		return r.payload, r.err
	}
}

func (bt *BulkTransfer) senderTo(addr *net.UDPAddr) transfer.Sender {
	return func(pkt transfer.Packet) error {
		_, err := bt.conn.WriteToUDP(pkt.Encode(), addr)
		return err
	}
}

func (bt *BulkTransfer) listen() {
	buf := make([]byte, maxPacketSize)
	for {
		n, addr, err := bt.conn.ReadFromUDP(buf)
		if err != nil {
			select {
			case <-bt.terminate:
				return
			default:
				continue
			}
		}
		data := append([]byte(nil), buf[:n]...)
		select {
		case bt.raw <- rawPacket{data: data, addr: addr}:
		default:
		}
	}
}

func (bt *BulkTransfer) dispatch() {
	for {
		select {
		case <-bt.terminate:
			return
		case p := <-bt.raw:
			bt.handle(p)
		}
	}
}

func (bt *BulkTransfer) handle(p rawPacket) {
	pkt, err := transfer.DecodePacket(p.data)
	if err != nil {
		return
	}

	session, err := bt.mux.Lookup(pkt.Header.ConnectionID)
	if err == nil && session != nil {
		session.HandlePacket(pkt)
		return
	}

	if pkt.Header.Type != transfer.StSyn {
		return
	}

	// unseen connection id carrying ST_SYN: a peer is opening a session
	// against an OFFER we ACCEPTed. Spin up the acceptor side and surface
	// the completed payload once it arrives.
	session = transfer.NewAcceptor(pkt.Header.ConnectionID, bt.senderTo(p.addr))
	bt.mux.Bind(pkt.Header.ConnectionID+1, session)
	if err := session.AcceptHandshake(); err != nil {
		return
	}

	connID := pkt.Header.ConnectionID
	go func() {
		payload, err := session.Result()
		if err == nil {
			select {
			case bt.accepted <- AcceptedTransfer{From: p.addr, ConnectionID: connID, Payload: payload}:
			default:
			}
		}
	}()
}

// Close stops the listen/dispatch loops and releases the socket.
func (bt *BulkTransfer) Close() error {
	close(bt.terminate)
	return bt.conn.Close()
}
