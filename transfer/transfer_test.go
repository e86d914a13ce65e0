package transfer

import (
	"bytes"
	"testing"
	"time"
)

func TestHeaderEncodeDecodeRoundTrip(t *testing.T) {
	h := Header{
		Type:          StData,
		Version:       ProtocolVersion,
		Extension:     0,
		ConnectionID:  1234,
		Timestamp:     555,
		TimestampDiff: 10,
		Window:        2048,
		SeqNr:         7,
		AckNr:         6,
	}
	encoded := h.Encode()
	if len(encoded) != HeaderSize {
		t.Fatalf("expected %d-byte header, got %d", HeaderSize, len(encoded))
	}

	decoded, err := DecodeHeader(encoded)
	if err != nil {
		t.Fatalf("DecodeHeader: %v", err)
	}
	if decoded != h {
		t.Fatalf("header did not round-trip: want %+v got %+v", h, decoded)
	}
}

func TestMultiplexerAllocateAndRelease(t *testing.T) {
	mux := NewMultiplexer()
	s := &Session{}

	id, err := mux.Allocate(s)
	if err != nil {
		t.Fatalf("Allocate: %v", err)
	}
	if id%2 != 0 {
		t.Fatalf("expected an even-aligned id, got %d", id)
	}

	got, err := mux.Lookup(id)
	if err != nil || got != s {
		t.Fatalf("Lookup: got=%v err=%v", got, err)
	}

	mux.Release(id)
	if _, err := mux.Lookup(id); err != nil {
		t.Fatal("expected Lookup to still resolve the slot after release, with a nil session")
	}
}

func TestCongestionRTOClampedToBounds(t *testing.T) {
	c := NewCongestion(MTU)
	c.OnSample(10*time.Millisecond, 5*time.Millisecond)
	if rto := c.RTO(); rto < minRTO || rto > maxRTO {
		t.Fatalf("expected RTO within [%v,%v], got %v", minRTO, maxRTO, rto)
	}

	// force an extreme rtt sample and confirm the ceiling holds
	c.OnSample(10*time.Second, time.Second)
	if rto := c.RTO(); rto > maxRTO {
		t.Fatalf("expected RTO clamped to %v, got %v", maxRTO, rto)
	}
}

func TestCongestionOnLossHalvesWindow(t *testing.T) {
	c := NewCongestion(4000)
	before := c.Window()
	c.OnLoss()
	if c.Window() >= before {
		t.Fatalf("expected window to shrink after loss: before=%d after=%d", before, c.Window())
	}
	if c.Retransmits() != 1 {
		t.Fatalf("expected 1 retransmit recorded, got %d", c.Retransmits())
	}
}

func TestSessionSendAndReceiveReassembly(t *testing.T) {
	var transmitted []Packet
	sender := func(pkt Packet) error {
		transmitted = append(transmitted, pkt)
		return nil
	}

	initiator := NewInitiator(10, sender)
	payload := bytes.Repeat([]byte("x"), MTU*2+10) // spans three chunks

	if err := initiator.SendPayload(payload); err != nil {
		t.Fatalf("SendPayload: %v", err)
	}

	acceptor := NewAcceptor(10, func(Packet) error { return nil })
	for _, pkt := range transmitted {
		acceptor.HandlePacket(pkt)
	}

	result, err := acceptor.Result()
	if err != nil {
		t.Fatalf("Result: %v", err)
	}
	if !bytes.Equal(result, payload) {
		t.Fatalf("reassembled payload mismatch: got %d bytes, want %d", len(result), len(payload))
	}
}

func TestSessionResetAbortsImmediately(t *testing.T) {
	acceptor := NewAcceptor(20, func(Packet) error { return nil })
	acceptor.HandlePacket(Packet{Header: Header{Type: StReset, ConnectionID: 21}})

	_, err := acceptor.Result()
	if err != ErrSessionReset {
		t.Fatalf("expected ErrSessionReset, got %v", err)
	}
}
