package verify

import (
	"encoding/binary"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/rlp"
)

func TestBytecodeAcceptsMatchingHash(t *testing.T) {
	code := []byte{0x60, 0x00, 0x60, 0x00, 0xF3}
	var hash [32]byte
	copy(hash[:], crypto.Keccak256(code))

	if err := Bytecode(hash, code); err != nil {
		t.Fatalf("expected matching bytecode to verify, got %v", err)
	}
}

func TestBytecodeRejectsMismatch(t *testing.T) {
	code := []byte{0x01}
	var wrongHash [32]byte
	wrongHash[0] = 0xFF

	if err := Bytecode(wrongHash, code); err != ErrHashMismatch {
		t.Fatalf("expected ErrHashMismatch, got %v", err)
	}
}

func TestVerifyEpochAccumulatorRoundTrip(t *testing.T) {
	acc := &EpochAccumulator{Records: []HeaderRecord{
		{BlockHash: [32]byte{1}, TotalDifficulty: [32]byte{1}},
		{BlockHash: [32]byte{2}, TotalDifficulty: [32]byte{2}},
	}}
	encoded := acc.EncodeSSZ()

	var root [32]byte
	copy(root[:], crypto.Keccak256(encoded))

	decoded, err := VerifyEpochAccumulator(root, encoded)
	if err != nil {
		t.Fatalf("VerifyEpochAccumulator: %v", err)
	}
	if len(decoded.Records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(decoded.Records))
	}
}

func TestVerifyEpochAccumulatorRejectsTamperedRoot(t *testing.T) {
	acc := &EpochAccumulator{Records: []HeaderRecord{{BlockHash: [32]byte{9}}}}
	encoded := acc.EncodeSSZ()

	var wrongRoot [32]byte
	wrongRoot[0] = 0xEE

	if _, err := VerifyEpochAccumulator(wrongRoot, encoded); err != ErrHashMismatch {
		t.Fatalf("expected ErrHashMismatch, got %v", err)
	}
}

func TestHeaderRecordHashTreeRoot(t *testing.T) {
	r := HeaderRecord{BlockHash: [32]byte{1}, TotalDifficulty: [32]byte{2}}
	root, err := r.HashTreeRoot()
	if err != nil {
		t.Fatalf("HashTreeRoot: %v", err)
	}
	if root == ([32]byte{}) {
		t.Fatal("expected non-zero hash tree root")
	}
}

// buildSmallMerkleTree constructs a depth-2 tree over 4 leaves and returns
// the root plus, for leafIndex, the sibling proof and the gindex.
func buildSmallMerkleTree(leaves [4][32]byte, leafIndex int) (root [32]byte, proof [][32]byte, gindex uint64) {
	h01 := hashPair(leaves[0], leaves[1])
	h23 := hashPair(leaves[2], leaves[3])
	root = hashPair(h01, h23)

	switch leafIndex {
	case 0:
		proof = [][32]byte{leaves[1], h23}
	case 1:
		proof = [][32]byte{leaves[0], h23}
	case 2:
		proof = [][32]byte{leaves[3], h01}
	case 3:
		proof = [][32]byte{leaves[2], h01}
	}
	gindex = uint64(4 + leafIndex)
	return root, proof, gindex
}

func TestVerifyMerkleProofAcceptsValidPath(t *testing.T) {
	leaves := [4][32]byte{{1}, {2}, {3}, {4}}
	root, proof, gindex := buildSmallMerkleTree(leaves, 2)

	if err := VerifyMerkleProof(leaves[2], proof, gindex, root); err != nil {
		t.Fatalf("expected valid proof to verify, got %v", err)
	}
}

func TestVerifyMerkleProofRejectsWrongLeaf(t *testing.T) {
	leaves := [4][32]byte{{1}, {2}, {3}, {4}}
	root, proof, gindex := buildSmallMerkleTree(leaves, 2)

	wrongLeaf := [32]byte{99}
	if err := VerifyMerkleProof(wrongLeaf, proof, gindex, root); err != ErrProofMismatch {
		t.Fatalf("expected ErrProofMismatch, got %v", err)
	}
}

func TestHeaderGindexFormula(t *testing.T) {
	got := HeaderGindex(8192, 8192) // first header of the second epoch: blockNumber mod EPOCH_SIZE == 0
	want := uint64(0 + 4*8192)
	if got != want {
		t.Fatalf("HeaderGindex: want %d got %d", want, got)
	}
}

func TestHeaderGindexScenarioA(t *testing.T) {
	got := HeaderGindex(1000, 8192)
	if got != 34768 {
		t.Fatalf("HeaderGindex(1000, 8192): want 34768 got %d", got)
	}
}

// buildHeaderProof computes a syntactically valid (if otherwise arbitrary)
// sibling path for blockHash at blockNumber's gindex, along with the root
// that path reconstructs to, mirroring VerifyMerkleProof's own fold so the
// bundle round-trip below exercises the real decode/verify path rather than
// a hand-picked fixture.
func buildHeaderProof(blockHash [32]byte, blockNumber uint64) (epochRoot [32]byte, proof [][32]byte) {
	gindex := HeaderGindex(blockNumber, EpochSize)
	proof = make([][32]byte, headerProofDepth)
	for i := range proof {
		proof[i] = [32]byte{byte(i + 1)}
	}

	node := blockHash
	g := gindex
	for i := 0; i < len(proof); i++ {
		if g&1 == 0 {
			node = hashPair(node, proof[i])
		} else {
			node = hashPair(proof[i], node)
		}
		g >>= 1
	}
	return node, proof
}

func TestHeaderWithProofBundleRoundTrip(t *testing.T) {
	header := &types.Header{Number: bigFromInt(1000)}
	encoded, err := rlp.EncodeToBytes(header)
	if err != nil {
		t.Fatalf("EncodeToBytes: %v", err)
	}
	blockHash := header.Hash()

	epochRoot, proof := buildHeaderProof(blockHash, 1000)

	var buf []byte
	var lenB [4]byte
	binary.BigEndian.PutUint32(lenB[:], uint32(len(encoded)))
	buf = append(buf, lenB[:]...)
	buf = append(buf, encoded...)
	var numB [8]byte
	binary.BigEndian.PutUint64(numB[:], 1000)
	buf = append(buf, numB[:]...)
	buf = append(buf, epochRoot[:]...)
	for _, sib := range proof {
		buf = append(buf, sib[:]...)
	}

	bundle, err := DecodeHeaderWithProofBundle(buf)
	if err != nil {
		t.Fatalf("DecodeHeaderWithProofBundle: %v", err)
	}
	if _, err := bundle.Verify(blockHash); err != nil {
		t.Fatalf("expected bundle to verify, got %v", err)
	}
}

func TestHeaderWithProofBundleRejectsTamperedProof(t *testing.T) {
	header := &types.Header{Number: bigFromInt(1000)}
	encoded, err := rlp.EncodeToBytes(header)
	if err != nil {
		t.Fatalf("EncodeToBytes: %v", err)
	}
	blockHash := header.Hash()

	epochRoot, proof := buildHeaderProof(blockHash, 1000)
	proof[0][0] ^= 0xFF

	bundle := &HeaderWithProofBundle{Header: encoded, BlockNumber: 1000, EpochRoot: epochRoot, Proof: proof}
	if _, err := bundle.Verify(blockHash); err != ErrProofMismatch {
		t.Fatalf("expected ErrProofMismatch, got %v", err)
	}
}

func TestBlockHeaderAcceptsMatchingHash(t *testing.T) {
	header := &types.Header{Number: bigFromInt(1)}
	encoded, err := rlp.EncodeToBytes(header)
	if err != nil {
		t.Fatalf("EncodeToBytes: %v", err)
	}

	var hash [32]byte
	copy(hash[:], header.Hash().Bytes())

	decoded, err := BlockHeader(hash, encoded)
	if err != nil {
		t.Fatalf("BlockHeader: %v", err)
	}
	if decoded.Number.Cmp(header.Number) != 0 {
		t.Fatal("decoded header does not match encoded header")
	}
}

func TestBlockHeaderRejectsWrongHash(t *testing.T) {
	header := &types.Header{Number: bigFromInt(2)}
	encoded, err := rlp.EncodeToBytes(header)
	if err != nil {
		t.Fatalf("EncodeToBytes: %v", err)
	}

	var wrongHash [32]byte
	wrongHash[0] = 0xFF

	if _, err := BlockHeader(wrongHash, encoded); err != ErrHashMismatch {
		t.Fatalf("expected ErrHashMismatch, got %v", err)
	}
}

func TestBlockBodyRejectsRootMismatch(t *testing.T) {
	header := &types.Header{Number: bigFromInt(3)}
	body := &types.Body{}
	encoded, err := rlp.EncodeToBytes(body)
	if err != nil {
		t.Fatalf("EncodeToBytes: %v", err)
	}

	// Set the header's TxHash to an unrelated hash so it cannot match the
	// transaction root of the empty decoded body.
	header.TxHash = crypto.Keccak256Hash([]byte("not-the-empty-root"))

	var blockHash [32]byte
	copy(blockHash[:], header.Hash().Bytes())

	if _, err := BlockBody(blockHash, header, encoded); err != ErrRootMismatch {
		t.Fatalf("expected ErrRootMismatch, got %v", err)
	}
}

func bigFromInt(n int64) *big.Int {
	return big.NewInt(n)
}
