/*
File Name:  Session.go

Bulk-transfer session state machine: ST_SYN/ST_STATE handshake, ST_DATA
sequencing with in-order reassembly, ST_FIN completion, ST_RESET abort,
and the 10-second stall watchdog from spec §4.8. Structurally grounded on
Peernet's udt package (connection setup, sequence/ack bookkeeping) and
"Transfer Virtual Connection.go" (incoming/outgoing channel pair, a
termination signal closed exactly once).
*/

package transfer

import (
	"bytes"
	"errors"
	"sync"
	"time"
)

// MTU is the payload ceiling per packet; larger sends are chunked across multiple ST_DATA packets.
const MTU = 1200

// StallTimeout is how long a session may go without any activity before it resets itself.
const StallTimeout = 10 * time.Second

// ErrSessionReset is returned to callers awaiting a result when the session was reset.
var ErrSessionReset = errors.New("transfer: session reset")

// ErrSessionStalled is returned when the stall watchdog fires.
var ErrSessionStalled = errors.New("transfer: session stalled")

type sessionState int

const (
	stateConnecting sessionState = iota
	stateConnected
	stateFinSent
	stateClosed
)

// Sender transmits one packet to the session's peer. Supplied by the transport layer.
type Sender func(pkt Packet) error

// Session is one bulk-transfer connection, either initiator or acceptor side.
type Session struct {
	mu sync.Mutex

	connID     uint16
	peerConnID uint16
	state      sessionState

	seqNr uint16 // next sequence number this side will send
	ackNr uint16 // highest sequence number received in order

	sendQueue [][]byte // pending outbound payload chunks, indexed by offset from the first unacked seq
	sendBase  uint16   // seq number of sendQueue[0]
	recvBuf   map[uint16][]byte
	reasm     bytes.Buffer

	send       Sender
	congestion *Congestion

	lastActivity time.Time
	stallTimer   *time.Timer
	done         chan struct{}
	result       []byte
	resultErr    error
	once         sync.Once
}

// NewInitiator starts a session as the connection's originator: connID is the
// id this side allocated via Multiplexer.Allocate; the peer's own id is
// connID+1 once the handshake completes, per spec §4.6.
func NewInitiator(connID uint16, send Sender) *Session {
	s := &Session{
		connID:       connID,
		peerConnID:   connID + 1,
		state:        stateConnecting,
		recvBuf:      make(map[uint16][]byte),
		send:         send,
		congestion:   NewCongestion(MTU),
		lastActivity: time.Now(),
		done:         make(chan struct{}),
	}
	s.armWatchdog()
	return s
}

// NewAcceptor starts a session as the connection's recipient, from an
// observed ST_SYN whose connection-id field is the peer's recv-id.
func NewAcceptor(peerConnID uint16, send Sender) *Session {
	s := &Session{
		connID:       peerConnID + 1,
		peerConnID:   peerConnID,
		state:        stateConnected,
		recvBuf:      make(map[uint16][]byte),
		send:         send,
		congestion:   NewCongestion(MTU),
		lastActivity: time.Now(),
		done:         make(chan struct{}),
	}
	s.armWatchdog()
	return s
}

// Open sends the ST_SYN that begins the handshake (initiator side only).
func (s *Session) Open() error {
	return s.send(Packet{Header: Header{
		Type:         StSyn,
		Version:      ProtocolVersion,
		ConnectionID: s.connID,
		Timestamp:    nowMicros(),
		SeqNr:        1,
	}})
}

// AcceptHandshake replies ST_STATE to an incoming ST_SYN (acceptor side only).
func (s *Session) AcceptHandshake() error {
	return s.send(Packet{Header: Header{
		Type:         StState,
		Version:      ProtocolVersion,
		ConnectionID: s.peerConnID,
		Timestamp:    nowMicros(),
		AckNr:        1,
	}})
}

// SendPayload chunks data into MTU-sized ST_DATA packets and transmits them
// in sequence order, per spec §4.6 ("payload chunks above the MTU are split
// on send and reassembled in-order on receive").
func (s *Session) SendPayload(data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for len(data) > 0 {
		n := MTU
		if n > len(data) {
			n = len(data)
		}
		chunk := data[:n]
		data = data[n:]

		s.seqNr++
		pkt := Packet{Header: Header{
			Type:         StData,
			Version:      ProtocolVersion,
			ConnectionID: s.peerConnID,
			Timestamp:    nowMicros(),
			Window:       s.congestion.Window(),
			SeqNr:        s.seqNr,
			AckNr:        s.ackNr,
		}, Payload: chunk}

		if err := s.send(pkt); err != nil {
			return err
		}
	}

	s.seqNr++
	return s.send(Packet{Header: Header{
		Type:         StFin,
		Version:      ProtocolVersion,
		ConnectionID: s.peerConnID,
		Timestamp:    nowMicros(),
		SeqNr:        s.seqNr,
		AckNr:        s.ackNr,
	}})
}

// HandlePacket processes one received packet, advancing the session's state.
func (s *Session) HandlePacket(pkt Packet) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.lastActivity = time.Now()
	s.resetWatchdog()

	switch pkt.Header.Type {
	case StState:
		if s.state == stateConnecting {
			s.state = stateConnected
		}

	case StData:
		s.recvBuf[pkt.Header.SeqNr] = pkt.Payload
		s.drainInOrder()
		_ = s.send(Packet{Header: Header{
			Type:         StState,
			Version:      ProtocolVersion,
			ConnectionID: s.peerConnID,
			Timestamp:    nowMicros(),
			AckNr:        s.ackNr,
		}})

	case StFin:
		s.recvBuf[pkt.Header.SeqNr] = nil
		s.drainInOrder()
		s.finish(append([]byte(nil), s.reasm.Bytes()...), nil)

	case StReset:
		s.finish(nil, ErrSessionReset)
	}
}

// drainInOrder moves any contiguous run of received sequence numbers into the
// reassembly buffer, advancing ackNr past them.
func (s *Session) drainInOrder() {
	for {
		next := s.ackNr + 1
		payload, ok := s.recvBuf[next]
		if !ok {
			return
		}
		if payload != nil {
			s.reasm.Write(payload)
		}
		delete(s.recvBuf, next)
		s.ackNr = next
	}
}

// Result blocks until the session completes (successfully or via reset/stall)
// and returns the reassembled payload.
func (s *Session) Result() ([]byte, error) {
	<-s.done
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.result, s.resultErr
}

func (s *Session) finish(payload []byte, err error) {
	s.once.Do(func() {
		s.state = stateClosed
		s.result = payload
		s.resultErr = err
		if s.stallTimer != nil {
			s.stallTimer.Stop()
		}
		close(s.done)
	})
}

func (s *Session) armWatchdog() {
	s.stallTimer = time.AfterFunc(StallTimeout, func() {
		s.mu.Lock()
		closed := s.state == stateClosed
		s.mu.Unlock()
		if !closed {
			s.finish(nil, ErrSessionStalled)
		}
	})
}

// resetWatchdog must be called with s.mu held.
func (s *Session) resetWatchdog() {
	if s.stallTimer != nil {
		s.stallTimer.Reset(StallTimeout)
	}
}

func nowMicros() uint32 {
	return uint32(time.Now().UnixMicro())
}
