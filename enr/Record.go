/*
File Name:  Record.go

Ethereum Node Records: immutable, signed, versioned peer descriptors.
*/

package enr

import (
	"bytes"
	"encoding/binary"
	"errors"
	"net"

	"github.com/btcsuite/btcd/btcec"
	"lukechampine.com/blake3"
)

// NodeIDSize is the size in bytes of a Kademlia node ID.
const NodeIDSize = 32

// NodeID is the 32-byte identifier derived from a peer's public key.
type NodeID [NodeIDSize]byte

// SubProtocol is a 2-byte tag identifying a logical overlay.
type SubProtocol uint16

// Record is an immutable, signed, versioned descriptor of a peer.
// The highest observed Seq for a given node ID wins; see Table.UpdateSeq.
type Record struct {
	Seq          uint64           // Monotonically increasing sequence number.
	PublicKey    *btcec.PublicKey // Identity key. NodeID is derived from this.
	IP           net.IP           // Advertised address. May be nil if unknown.
	UDPPort      uint16           // Advertised UDP discovery port.
	BulkPort     uint16           // Advertised UDP port for bulk-transfer sessions (0 if not offered).
	SubProtocols []SubProtocol    // Overlays this peer participates in.
	Signature    [65]byte         // ECDSA (secp256k1) compact signature over the fields above.
}

// NodeID derives the 32-byte node ID from the record's public key.
func (r *Record) NodeID() (id NodeID) {
	return PublicKeyToNodeID(r.PublicKey)
}

// PublicKeyToNodeID hashes a compressed public key into a node ID.
// Matches Peernet's PublicKey2NodeID: blake3 of the compressed key.
func PublicKeyToNodeID(publicKey *btcec.PublicKey) (id NodeID) {
	h := blake3.Sum256(publicKey.SerializeCompressed())
	copy(id[:], h[:])
	return id
}

// signingBytes returns the canonical byte representation signed over.
func (r *Record) signingBytes() []byte {
	var buf bytes.Buffer

	var seqB [8]byte
	binary.BigEndian.PutUint64(seqB[:], r.Seq)
	buf.Write(seqB[:])

	buf.Write(r.PublicKey.SerializeCompressed())

	ip4 := r.IP.To4()
	if ip4 != nil {
		buf.WriteByte(4)
		buf.Write(ip4)
	} else if ip6 := r.IP.To16(); ip6 != nil {
		buf.WriteByte(6)
		buf.Write(ip6)
	} else {
		buf.WriteByte(0)
	}

	var portB [2]byte
	binary.BigEndian.PutUint16(portB[:], r.UDPPort)
	buf.Write(portB[:])

	var bulkPortB [2]byte
	binary.BigEndian.PutUint16(bulkPortB[:], r.BulkPort)
	buf.Write(bulkPortB[:])

	for _, sp := range r.SubProtocols {
		var spB [2]byte
		binary.BigEndian.PutUint16(spB[:], uint16(sp))
		buf.Write(spB[:])
	}

	return buf.Bytes()
}

// Sign computes and stores the record's signature using the given private key.
// The private key must correspond to r.PublicKey.
func (r *Record) Sign(privateKey *btcec.PrivateKey) error {
	sig, err := btcec.SignCompact(btcec.S256(), privateKey, hashForSig(r.signingBytes()), true)
	if err != nil {
		return err
	}
	copy(r.Signature[:], sig)
	return nil
}

// VerifySignature checks that the record's signature was produced by its own public key.
func (r *Record) VerifySignature() error {
	if r.PublicKey == nil {
		return errors.New("enr: record has no public key")
	}

	recovered, _, err := btcec.RecoverCompact(btcec.S256(), r.Signature[:], hashForSig(r.signingBytes()))
	if err != nil {
		return err
	}
	if !recovered.IsEqual(r.PublicKey) {
		return errors.New("enr: signature does not match public key")
	}
	return nil
}

func hashForSig(data []byte) []byte {
	h := blake3.Sum256(data)
	return h[:]
}

// Supports reports whether the record advertises support for the given sub-protocol.
func (r *Record) Supports(sub SubProtocol) bool {
	for _, s := range r.SubProtocols {
		if s == sub {
			return true
		}
	}
	return false
}
