/*
File Name:  Codec.go

Wire encoding for records, used by the wire package's NODES payload and by
disk-persisted table snapshots. Fixed-width fields followed by a length-prefixed
sub-protocol list, mirroring Peernet's length-prefixed message regions.
*/

package enr

import (
	"encoding/binary"
	"errors"
	"net"

	"github.com/btcsuite/btcd/btcec"
)

// ErrRecordTooShort is returned when decoding a buffer too small to hold a record.
var ErrRecordTooShort = errors.New("enr: encoded record too short")

// ErrInvalidPublicKey is returned when a record's embedded public key cannot be parsed.
var ErrInvalidPublicKey = errors.New("enr: invalid public key")

// Encode serializes a record to its canonical wire form:
//
//	8 bytes   Seq (big-endian)
//	33 bytes  compressed public key
//	1 byte    IP tag (0 none, 4 IPv4, 6 IPv6)
//	N bytes   IP address (4 or 16, omitted if tag is 0)
//	2 bytes   UDP port
//	2 bytes   bulk-transfer port
//	1 byte    sub-protocol count
//	2*N bytes sub-protocol tags
//	65 bytes  signature
func Encode(r *Record) []byte {
	buf := make([]byte, 0, 8+33+1+16+2+2+1+2*len(r.SubProtocols)+65)

	var seqB [8]byte
	binary.BigEndian.PutUint64(seqB[:], r.Seq)
	buf = append(buf, seqB[:]...)

	buf = append(buf, r.PublicKey.SerializeCompressed()...)

	if ip4 := r.IP.To4(); ip4 != nil {
		buf = append(buf, 4)
		buf = append(buf, ip4...)
	} else if ip6 := r.IP.To16(); ip6 != nil {
		buf = append(buf, 6)
		buf = append(buf, ip6...)
	} else {
		buf = append(buf, 0)
	}

	var portB [2]byte
	binary.BigEndian.PutUint16(portB[:], r.UDPPort)
	buf = append(buf, portB[:]...)

	var bulkPortB [2]byte
	binary.BigEndian.PutUint16(bulkPortB[:], r.BulkPort)
	buf = append(buf, bulkPortB[:]...)

	buf = append(buf, byte(len(r.SubProtocols)))
	for _, sp := range r.SubProtocols {
		var spB [2]byte
		binary.BigEndian.PutUint16(spB[:], uint16(sp))
		buf = append(buf, spB[:]...)
	}

	buf = append(buf, r.Signature[:]...)
	return buf
}

// Decode parses a record from its canonical wire form. The signature is not
// verified here; callers that need an authenticated record must call
// VerifySignature explicitly.
func Decode(data []byte) (*Record, error) {
	if len(data) < 8+33+1+2+2+1 {
		return nil, ErrRecordTooShort
	}

	r := &Record{}
	off := 0

	r.Seq = binary.BigEndian.Uint64(data[off : off+8])
	off += 8

	pub, err := btcec.ParsePubKey(data[off:off+33], btcec.S256())
	if err != nil {
		return nil, ErrInvalidPublicKey
	}
	r.PublicKey = pub
	off += 33

	tag := data[off]
	off++
	switch tag {
	case 4:
		if len(data) < off+4 {
			return nil, ErrRecordTooShort
		}
		r.IP = net.IP(append([]byte(nil), data[off:off+4]...))
		off += 4
	case 6:
		if len(data) < off+16 {
			return nil, ErrRecordTooShort
		}
		r.IP = net.IP(append([]byte(nil), data[off:off+16]...))
		off += 16
	case 0:
		// no address advertised
	default:
		return nil, errors.New("enr: unknown IP tag")
	}

	if len(data) < off+2+2+1 {
		return nil, ErrRecordTooShort
	}
	r.UDPPort = binary.BigEndian.Uint16(data[off : off+2])
	off += 2

	r.BulkPort = binary.BigEndian.Uint16(data[off : off+2])
	off += 2

	count := int(data[off])
	off++
	if len(data) < off+count*2+65 {
		return nil, ErrRecordTooShort
	}
	for i := 0; i < count; i++ {
		sp := binary.BigEndian.Uint16(data[off : off+2])
		r.SubProtocols = append(r.SubProtocols, SubProtocol(sp))
		off += 2
	}

	copy(r.Signature[:], data[off:off+65])
	off += 65

	return r, nil
}
