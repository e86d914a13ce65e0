package transport

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/PortalNetworkOfficial/core/enr"
)

func newTestRecord(t *testing.T) *enr.Record {
	t.Helper()
	id, err := enr.NewIdentity()
	if err != nil {
		t.Fatalf("NewIdentity: %v", err)
	}
	rec, err := id.NewRecord(1, net.ParseIP("127.0.0.1").To4(), 0, 0, nil)
	if err != nil {
		t.Fatalf("NewRecord: %v", err)
	}
	return rec
}

func startTransport(t *testing.T) *UDPTransport {
	t.Helper()
	rec := newTestRecord(t)
	tr, err := NewUDPTransport(rec, "127.0.0.1:0", 2)
	if err != nil {
		t.Fatalf("NewUDPTransport: %v", err)
	}
	t.Cleanup(func() { tr.Close() })
	return tr
}

func recordWithAddr(t *testing.T, tr *UDPTransport) *enr.Record {
	t.Helper()
	addr := tr.conn.LocalAddr().(*net.UDPAddr)
	rec := newTestRecord(t)
	rec.IP = addr.IP
	rec.UDPPort = uint16(addr.Port)
	return rec
}

func TestUDPTransportSendReceivesReply(t *testing.T) {
	server := startTransport(t)
	client := startTransport(t)

	const sub enr.SubProtocol = 0x500B

	go func() {
		msg := <-server.Inbound(sub)
		_ = msg.Reply(append([]byte{0x50, 0x0B}, []byte("pong")...))
	}()

	serverRecord := recordWithAddr(t, server)

	payload := append([]byte{0x50, 0x0B}, []byte("ping")...)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	resp, err := client.Send(ctx, serverRecord, payload)
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	if string(resp[2:]) != "pong" {
		t.Fatalf("unexpected response: %q", resp)
	}
}

func TestUDPTransportSendTimesOutWithoutReply(t *testing.T) {
	server := startTransport(t)
	client := startTransport(t)
	serverRecord := recordWithAddr(t, server)

	payload := append([]byte{0x50, 0x0B}, []byte("ping")...)
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	_, err := client.Send(ctx, serverRecord, payload)
	if err != ErrRequestTimeout {
		t.Fatalf("expected ErrRequestTimeout, got %v", err)
	}

	// drain the unanswered request the server routed to its inbound channel.
	<-server.Inbound(0x500B)
}

func TestUDPTransportLocalRecord(t *testing.T) {
	tr := startTransport(t)
	if tr.LocalRecord() == nil {
		t.Fatal("expected LocalRecord to return the bound identity")
	}
}
