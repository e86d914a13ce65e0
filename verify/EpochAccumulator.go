/*
File Name:  EpochAccumulator.go

Epoch accumulator verifier and the header-with-proof check built on top of
it. An epoch accumulator is a fixed-size SSZ list of (block hash, total
difficulty) records for one pre-merge epoch; its content id is the
keccak-256 of the SSZ-encoded record list. Header-with-proof verifies a
single header's inclusion via a Merkle proof (verify/MerkleProof.go)
against the epoch root carried in the bundle itself; that root is not
compared with any epoch accumulator or list of known epoch roots.
*/

package verify

import (
	"bytes"
	"encoding/binary"

	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	ssz "github.com/ferranbt/fastssz"
)

// EpochSize is the number of headers summarized by one epoch accumulator.
const EpochSize = 8192

// HeaderRecord is one entry of an epoch accumulator: a block hash and its
// cumulative total difficulty at that block.
type HeaderRecord struct {
	BlockHash       [32]byte
	TotalDifficulty [32]byte // big-endian uint256
}

// HashTreeRoot returns the SSZ hash tree root of a single record (hash, td),
// mixed via SSZ's standard two-leaf container merkleization.
func (r HeaderRecord) HashTreeRoot() ([32]byte, error) {
	hh := ssz.NewHasher()
	indx := hh.Index()
	hh.PutBytes(r.BlockHash[:])
	hh.PutBytes(r.TotalDifficulty[:])
	hh.Merkleize(indx)
	return hh.HashRoot()
}

// EpochAccumulator is the decoded list of header records for one epoch.
type EpochAccumulator struct {
	Records []HeaderRecord
}

// EncodeSSZ serializes the accumulator as a flat concatenation of its fixed-size records.
func (e *EpochAccumulator) EncodeSSZ() []byte {
	buf := make([]byte, 0, len(e.Records)*64)
	for _, r := range e.Records {
		buf = append(buf, r.BlockHash[:]...)
		buf = append(buf, r.TotalDifficulty[:]...)
	}
	return buf
}

// DecodeEpochAccumulator parses a flat-encoded epoch accumulator (64 bytes per record).
func DecodeEpochAccumulator(data []byte) (*EpochAccumulator, error) {
	if len(data)%64 != 0 {
		return nil, ErrTruncatedAccumulator
	}
	acc := &EpochAccumulator{Records: make([]HeaderRecord, len(data)/64)}
	for i := range acc.Records {
		off := i * 64
		copy(acc.Records[i].BlockHash[:], data[off:off+32])
		copy(acc.Records[i].TotalDifficulty[:], data[off+32:off+64])
	}
	return acc, nil
}

// ErrTruncatedAccumulator is returned when the accumulator bytes are not a
// whole multiple of the 64-byte record size.
var ErrTruncatedAccumulator = errHelper("verify: truncated epoch accumulator")

type errHelper string

func (e errHelper) Error() string { return string(e) }

// VerifyEpochAccumulator checks that keccak-256 of the encoded record list equals epochRoot.
func VerifyEpochAccumulator(epochRoot [32]byte, encoded []byte) (*EpochAccumulator, error) {
	got := crypto.Keccak256(encoded)
	if !bytes.Equal(got, epochRoot[:]) {
		return nil, ErrHashMismatch
	}
	return DecodeEpochAccumulator(encoded)
}

// VerifyHeaderWithProof checks a header's Merkle inclusion in the epoch
// accumulator rooted at epochRoot, at the leaf position derived from its
// block number (see HeaderGindex).
func VerifyHeaderWithProof(blockHash [32]byte, blockNumber uint64, proof [][32]byte, epochRoot [32]byte) error {
	gindex := HeaderGindex(blockNumber, EpochSize)
	return VerifyMerkleProof(blockHash, proof, gindex, epochRoot)
}

// headerProofDepth is the sibling count of a Merkle proof against an
// EpochSize-record accumulator. Every gindex HeaderGindex can produce for
// this EpochSize falls in [4*EpochSize, 6*EpochSize), a range that shares a
// single bit length, so the depth is fixed regardless of block number.
var headerProofDepth = bitLength(4*EpochSize) - 1

// HeaderWithProofBundle is a pre-merge header paired with its Merkle
// inclusion proof against that header's epoch accumulator root: the
// payload shape addressed by contentkey.SelectorHeaderWithProof.
type HeaderWithProofBundle struct {
	Header      []byte // RLP-encoded block header
	BlockNumber uint64
	EpochRoot   [32]byte
	Proof       [][32]byte
}

// DecodeHeaderWithProofBundle parses the flat wire encoding of a bundle: a
// 4-byte big-endian header length, the RLP header itself, an 8-byte block
// number, a 32-byte epoch root, and the fixed-depth proof as a flat run of
// 32-byte siblings ordered from the leaf's depth up to the root.
func DecodeHeaderWithProofBundle(data []byte) (*HeaderWithProofBundle, error) {
	if len(data) < 4 {
		return nil, ErrTruncatedAccumulator
	}
	headerLen := int(binary.BigEndian.Uint32(data[:4]))
	off := 4
	if headerLen < 0 || len(data)-off < headerLen {
		return nil, ErrTruncatedAccumulator
	}

	b := &HeaderWithProofBundle{Header: append([]byte(nil), data[off:off+headerLen]...)}
	off += headerLen

	if len(data)-off != 8+32+headerProofDepth*32 {
		return nil, ErrTruncatedAccumulator
	}
	b.BlockNumber = binary.BigEndian.Uint64(data[off : off+8])
	off += 8
	copy(b.EpochRoot[:], data[off:off+32])
	off += 32

	b.Proof = make([][32]byte, headerProofDepth)
	for i := range b.Proof {
		copy(b.Proof[i][:], data[off:off+32])
		off += 32
	}
	return b, nil
}

// Verify decodes the bundled RLP header, checks it hashes to blockHash, and
// checks its Merkle inclusion proof against the bundled epoch root.
func (b *HeaderWithProofBundle) Verify(blockHash [32]byte) (*types.Header, error) {
	header, err := BlockHeader(blockHash, b.Header)
	if err != nil {
		return nil, err
	}
	if err := VerifyHeaderWithProof(blockHash, b.BlockNumber, b.Proof, b.EpochRoot); err != nil {
		return nil, err
	}
	return header, nil
}
