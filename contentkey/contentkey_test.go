package contentkey

import (
	"bytes"
	"math/big"
	"testing"
)

func TestKeyEncodeDecodeRoundTrip(t *testing.T) {
	var hash [32]byte
	hash[0] = 0xAA

	k := BlockHeaderKey(hash)
	encoded := k.Encode()

	decoded, err := Decode(encoded)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if decoded.Selector != SelectorBlockHeader {
		t.Fatalf("expected selector %x, got %x", SelectorBlockHeader, decoded.Selector)
	}
	if !bytes.Equal(decoded.Body, hash[:]) {
		t.Fatalf("body mismatch: %x vs %x", decoded.Body, hash[:])
	}
}

func TestDeriveIsDeterministicAndSelectorSensitive(t *testing.T) {
	var hash [32]byte
	hash[0] = 0x01

	headerID := Derive(BlockHeaderKey(hash))
	headerID2 := Derive(BlockHeaderKey(hash))
	if headerID != headerID2 {
		t.Fatal("Derive is not deterministic")
	}

	bodyID := Derive(BlockBodyKey(hash))
	if headerID == bodyID {
		t.Fatal("different selectors over the same body must yield different content ids")
	}
}

func TestDistanceIsZeroForSelf(t *testing.T) {
	var node [32]byte
	node[5] = 0x42

	id := ID(node)
	if Distance(node, id).Cmp(big.NewInt(0)) != 0 {
		t.Fatal("distance from a node id to itself-as-content-id must be zero")
	}
}

func TestAccountTrieProofKeyShape(t *testing.T) {
	var root [32]byte
	var addr [20]byte
	root[0] = 0x11
	addr[0] = 0x22

	k := AccountTrieProofKey(root, addr)
	if len(k.Body) != 52 {
		t.Fatalf("expected 52-byte body (root+address), got %d", len(k.Body))
	}
	if !bytes.Equal(k.Body[:32], root[:]) || !bytes.Equal(k.Body[32:], addr[:]) {
		t.Fatal("account trie proof key body layout mismatch")
	}
}
