package wire

import (
	"bytes"
	"testing"

	"github.com/holiman/uint256"
)

func roundTrip(t *testing.T, m Message) Message {
	t.Helper()
	raw, err := Encode(m)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if len(raw) == 0 || Selector(raw[0]) != m.Selector() {
		t.Fatalf("unexpected selector byte")
	}
	decoded, err := Decode(raw)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	return decoded
}

func TestPingPongRoundTrip(t *testing.T) {
	radius := uint256.NewInt(0)
	radius.SetAllOne()

	got := roundTrip(t, &Ping{EnrSeq: 42, Radius: radius})
	p, ok := got.(*Ping)
	if !ok {
		t.Fatalf("expected *Ping, got %T", got)
	}
	if p.EnrSeq != 42 || p.Radius.Cmp(radius) != 0 {
		t.Fatalf("ping fields did not round-trip: %+v", p)
	}

	gotPong := roundTrip(t, &Pong{EnrSeq: 7, Radius: uint256.NewInt(100)})
	pg, ok := gotPong.(*Pong)
	if !ok || pg.EnrSeq != 7 || pg.Radius.Cmp(uint256.NewInt(100)) != 0 {
		t.Fatalf("pong fields did not round-trip: %+v", gotPong)
	}
}

func TestFindNodesRoundTrip(t *testing.T) {
	got := roundTrip(t, &FindNodes{Distances: []uint16{0, 1, 253, 254, 255}})
	fn, ok := got.(*FindNodes)
	if !ok {
		t.Fatalf("expected *FindNodes, got %T", got)
	}
	want := []uint16{0, 1, 253, 254, 255}
	for i, d := range want {
		if fn.Distances[i] != d {
			t.Fatalf("distance %d: want %d got %d", i, d, fn.Distances[i])
		}
	}
}

func TestNodesRoundTrip(t *testing.T) {
	enrs := [][]byte{
		[]byte("first-enr-blob"),
		[]byte("second"),
		[]byte("third-enr-blob-longer-than-the-others"),
	}
	got := roundTrip(t, &Nodes{Total: 3, Enrs: enrs})
	n, ok := got.(*Nodes)
	if !ok {
		t.Fatalf("expected *Nodes, got %T", got)
	}
	if n.Total != 3 || len(n.Enrs) != 3 {
		t.Fatalf("unexpected nodes shape: %+v", n)
	}
	for i, e := range enrs {
		if !bytes.Equal(n.Enrs[i], e) {
			t.Fatalf("enr %d: want %q got %q", i, e, n.Enrs[i])
		}
	}
}

func TestFindContentRoundTrip(t *testing.T) {
	got := roundTrip(t, &FindContent{Key: []byte{0x00, 0xde, 0xad, 0xbe, 0xef}})
	fc, ok := got.(*FindContent)
	if !ok || !bytes.Equal(fc.Key, []byte{0x00, 0xde, 0xad, 0xbe, 0xef}) {
		t.Fatalf("find-content did not round-trip: %+v", got)
	}
}

func TestContentUnionConnectionID(t *testing.T) {
	got := roundTrip(t, &Content{Union: ContentUnionConnectionID, ConnectionID: 1234})
	c, ok := got.(*Content)
	if !ok || c.Union != ContentUnionConnectionID || c.ConnectionID != 1234 {
		t.Fatalf("connection-id arm did not round-trip: %+v", got)
	}
}

func TestContentUnionPayload(t *testing.T) {
	payload := bytes.Repeat([]byte{0xAB}, 300)
	got := roundTrip(t, &Content{Union: ContentUnionPayload, Payload: payload})
	c, ok := got.(*Content)
	if !ok || c.Union != ContentUnionPayload || !bytes.Equal(c.Payload, payload) {
		t.Fatalf("payload arm did not round-trip")
	}
}

func TestContentUnionEnrs(t *testing.T) {
	enrs := [][]byte{[]byte("enr-a"), []byte("enr-b")}
	got := roundTrip(t, &Content{Union: ContentUnionEnrs, Enrs: enrs})
	c, ok := got.(*Content)
	if !ok || c.Union != ContentUnionEnrs || len(c.Enrs) != 2 {
		t.Fatalf("enrs arm did not round-trip: %+v", got)
	}
	if !bytes.Equal(c.Enrs[0], enrs[0]) || !bytes.Equal(c.Enrs[1], enrs[1]) {
		t.Fatalf("enrs arm content mismatch: %+v", c.Enrs)
	}
}

func TestOfferAcceptRoundTrip(t *testing.T) {
	keys := [][]byte{[]byte("key-one"), []byte("key-two"), []byte("k3")}
	got := roundTrip(t, &Offer{ContentKeys: keys})
	o, ok := got.(*Offer)
	if !ok || len(o.ContentKeys) != 3 {
		t.Fatalf("offer did not round-trip: %+v", got)
	}

	gotAccept := roundTrip(t, &Accept{ConnectionID: 99, AcceptBitlist: []byte{0b101}})
	a, ok := gotAccept.(*Accept)
	if !ok || a.ConnectionID != 99 || !bytes.Equal(a.AcceptBitlist, []byte{0b101}) {
		t.Fatalf("accept did not round-trip: %+v", gotAccept)
	}
}

func TestDecodeUnknownSelector(t *testing.T) {
	if _, err := Decode([]byte{0xFF}); err != ErrUnknownSelector {
		t.Fatalf("expected ErrUnknownSelector, got %v", err)
	}
}

func TestDecodeTruncated(t *testing.T) {
	if _, err := Decode([]byte{byte(SelectorPing)}); err != ErrTruncated {
		t.Fatalf("expected ErrTruncated, got %v", err)
	}
}
