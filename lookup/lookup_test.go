package lookup

import (
	"context"
	"net"
	"testing"

	"github.com/PortalNetworkOfficial/core/enr"
	"github.com/PortalNetworkOfficial/core/wire"
)

func newTestEnr(t *testing.T) *enr.Record {
	t.Helper()
	id, err := enr.NewIdentity()
	if err != nil {
		t.Fatalf("NewIdentity: %v", err)
	}
	rec, err := id.NewRecord(1, net.ParseIP("127.0.0.1").To4(), 9000, 0, nil)
	if err != nil {
		t.Fatalf("NewRecord: %v", err)
	}
	return rec
}

// fakeNetwork is a tiny simulated overlay: every peer knows every other peer,
// and FINDNODES always returns the full set except the asked peer itself.
type fakeNetwork struct {
	peers []*enr.Record
}

func (f *fakeNetwork) SendFindNodes(ctx context.Context, peer *enr.Record, distances []uint16) ([]*enr.Record, error) {
	var out []*enr.Record
	for _, p := range f.peers {
		if p.NodeID() != peer.NodeID() {
			out = append(out, p)
		}
	}
	return out, nil
}

func (f *fakeNetwork) SendFindContent(ctx context.Context, peer *enr.Record, key []byte) (*wire.Content, error) {
	return &wire.Content{Union: wire.ContentUnionEnrs}, nil
}

func TestFindNodeLookupConverges(t *testing.T) {
	var peers []*enr.Record
	for i := 0; i < 50; i++ {
		peers = append(peers, newTestEnr(t))
	}
	net := &fakeNetwork{peers: peers}

	target := peers[0].NodeID()
	seeds := peers[1:4]

	found := FindNodeLookup(context.Background(), target, seeds, net)
	if len(found) == 0 {
		t.Fatal("expected at least one result from a 50-node simulated network")
	}
}

type payloadNetwork struct {
	holder *enr.Record
	answer []byte
}

func (p *payloadNetwork) SendFindNodes(ctx context.Context, peer *enr.Record, distances []uint16) ([]*enr.Record, error) {
	return nil, nil
}

func (p *payloadNetwork) SendFindContent(ctx context.Context, peer *enr.Record, key []byte) (*wire.Content, error) {
	if peer.NodeID() == p.holder.NodeID() {
		return &wire.Content{Union: wire.ContentUnionPayload, Payload: p.answer}, nil
	}
	return &wire.Content{Union: wire.ContentUnionEnrs}, nil
}

func TestFindContentLookupReturnsVerifiedPayload(t *testing.T) {
	holder := newTestEnr(t)
	answer := []byte("the-content-bytes")
	net := &payloadNetwork{holder: holder, answer: answer}

	result, err := FindContentLookup(context.Background(), holder.NodeID(), []byte("key"), []*enr.Record{holder}, net, nil, func(p []byte) bool {
		return string(p) == string(answer)
	})
	if err != nil {
		t.Fatalf("FindContentLookup: %v", err)
	}
	if string(result.Payload) != string(answer) {
		t.Fatalf("unexpected payload: %q", result.Payload)
	}
}

func TestFindContentLookupRejectsFailedVerification(t *testing.T) {
	holder := newTestEnr(t)
	net := &payloadNetwork{holder: holder, answer: []byte("bad")}

	_, err := FindContentLookup(context.Background(), holder.NodeID(), []byte("key"), []*enr.Record{holder}, net, nil, func(p []byte) bool {
		return false
	})
	if err != ErrNotFound {
		t.Fatalf("expected ErrNotFound after verification failure, got %v", err)
	}
}
