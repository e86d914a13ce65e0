package subprotocol

import (
	"math/big"
	"testing"

	"github.com/PortalNetworkOfficial/core/contentkey"
	"github.com/PortalNetworkOfficial/core/enr"
	"github.com/PortalNetworkOfficial/core/kademlia"
	"github.com/PortalNetworkOfficial/core/store"
	"github.com/PortalNetworkOfficial/core/store/backend"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/rlp"
	"github.com/holiman/uint256"
)

func TestRegistryRegisterAndGet(t *testing.T) {
	reg := NewRegistry()

	table := kademlia.NewTable(enr.NodeID{}, History, nil)
	mem := backend.NewMemory()
	radius := uint256.NewInt(0)
	radius.SetAllOne()
	s := store.New(History, enr.NodeID{}, mem, func(contentkey.Key, []byte) bool { return true }, nil, radius, 1<<20)

	reg.Register(NewDefinition(History, "history", table, s))

	def, ok := reg.Get(History)
	if !ok {
		t.Fatal("expected History to be registered")
	}
	if def.Name != "history" {
		t.Fatalf("unexpected name: %s", def.Name)
	}
	if _, ok := reg.Get(State); ok {
		t.Fatal("did not expect State to be registered")
	}
	if len(reg.Tags()) != 1 {
		t.Fatalf("expected 1 tag, got %d", len(reg.Tags()))
	}
}

func TestHistoryVerifierAcceptsMatchingHeader(t *testing.T) {
	header := &types.Header{Number: big.NewInt(42)}
	encoded, err := rlp.EncodeToBytes(header)
	if err != nil {
		t.Fatalf("EncodeToBytes: %v", err)
	}
	blockHash := header.Hash()

	verify := HistoryVerifier(func([32]byte) (*types.Header, bool) { return nil, false })
	key := contentkey.BlockHeaderKey(blockHash)
	if !verify(key, encoded) {
		t.Fatal("expected matching header to verify")
	}
}

func TestHistoryVerifierRejectsUnknownBody(t *testing.T) {
	verify := HistoryVerifier(func([32]byte) (*types.Header, bool) { return nil, false })
	var hash [32]byte
	key := contentkey.BlockBodyKey(hash)
	if verify(key, []byte("anything")) {
		t.Fatal("expected body verification to fail without a known header")
	}
}

func TestBeaconAndCanonicalIndicesAcceptNonEmptyValues(t *testing.T) {
	beacon := BeaconVerifier()
	var hash [32]byte
	if beacon(contentkey.BlockHeaderKey(hash), nil) {
		t.Fatal("expected empty value to be rejected")
	}
	if !beacon(contentkey.BlockHeaderKey(hash), []byte{1}) {
		t.Fatal("expected non-empty value to be accepted")
	}

	ci := CanonicalIndicesVerifier()
	if !ci(contentkey.BlockHeaderKey(hash), []byte{1}) {
		t.Fatal("expected non-empty value to be accepted")
	}
}

func TestStateIndexOrdersByNonceThenBalance(t *testing.T) {
	idx := NewStateIndex()
	var addr [20]byte
	addr[0] = 1

	var rootLow, rootHigh, rootMid [32]byte
	rootLow[0], rootMid[0], rootHigh[0] = 1, 2, 3

	idx.Record(addr, StateRootObservation{StateRoot: rootHigh, Nonce: 5, Balance: uint256.NewInt(100)})
	idx.Record(addr, StateRootObservation{StateRoot: rootLow, Nonce: 1, Balance: uint256.NewInt(100)})
	idx.Record(addr, StateRootObservation{StateRoot: rootMid, Nonce: 5, Balance: uint256.NewInt(1)})

	roots := idx.StateRoots(addr)
	if len(roots) != 3 {
		t.Fatalf("expected 3 observations, got %d", len(roots))
	}
	if roots[0].StateRoot != rootLow {
		t.Fatalf("expected lowest nonce first, got %+v", roots[0])
	}
	if roots[1].StateRoot != rootMid || roots[2].StateRoot != rootHigh {
		t.Fatalf("expected balance to break the nonce=5 tie ascending, got order %+v %+v", roots[1], roots[2])
	}
}

func TestStateIndexRecordUpdatesInPlace(t *testing.T) {
	idx := NewStateIndex()
	var addr [20]byte
	var root [32]byte
	root[0] = 9

	idx.Record(addr, StateRootObservation{StateRoot: root, Nonce: 1, Balance: uint256.NewInt(1)})
	idx.Record(addr, StateRootObservation{StateRoot: root, Nonce: 2, Balance: uint256.NewInt(2)})

	roots := idx.StateRoots(addr)
	if len(roots) != 1 {
		t.Fatalf("expected the repeated state root to update in place, got %d entries", len(roots))
	}
	if roots[0].Nonce != 2 {
		t.Fatalf("expected updated nonce 2, got %d", roots[0].Nonce)
	}
}

func TestStateIndexForget(t *testing.T) {
	idx := NewStateIndex()
	var addr [20]byte
	var root [32]byte
	idx.Record(addr, StateRootObservation{StateRoot: root, Nonce: 1, Balance: uint256.NewInt(1)})
	if idx.Len() != 1 {
		t.Fatalf("expected 1 indexed address, got %d", idx.Len())
	}
	idx.Forget(addr)
	if idx.Len() != 0 {
		t.Fatalf("expected Forget to remove the address, got %d remaining", idx.Len())
	}
}
