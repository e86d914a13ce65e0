/*
File Name:  Packet.go

Bulk-transfer wire header: the 20-byte uTP-like header used by the
Portal Network's utp-over-discv5 transfer protocol. Structurally grounded
on Peernet's udt package (a full uTP-derived transfer protocol) and
"Transfer Virtual Connection.go"'s per-session framing, but with the
distinct byte layout the Portal Network protocol mandates rather than
udt's own header.
*/

package transfer

import (
	"encoding/binary"
	"errors"
)

// PacketType is the 4-bit ST_* packet type.
type PacketType byte

const (
	StData  PacketType = 0
	StFin   PacketType = 1
	StState PacketType = 2
	StReset PacketType = 3
	StSyn   PacketType = 4
)

// HeaderSize is the fixed wire size of a bulk-transfer packet header.
const HeaderSize = 20

// ProtocolVersion is the only version this implementation emits or accepts.
const ProtocolVersion = 1

// ErrTruncatedHeader is returned when a buffer is shorter than HeaderSize.
var ErrTruncatedHeader = errors.New("transfer: truncated packet header")

// Header is the 20-byte packet header:
//
//	4 bits  type
//	4 bits  version
//	1 byte  extension
//	2 bytes connection id
//	4 bytes timestamp (microseconds)
//	4 bytes timestamp difference
//	4 bytes window
//	2 bytes sequence number
//	2 bytes ack number
type Header struct {
	Type          PacketType
	Version       byte
	Extension     byte
	ConnectionID  uint16
	Timestamp     uint32
	TimestampDiff uint32
	Window        uint32
	SeqNr         uint16
	AckNr         uint16
}

// Encode serializes the header to its 20-byte wire form.
func (h Header) Encode() []byte {
	buf := make([]byte, HeaderSize)
	buf[0] = byte(h.Type)<<4 | (h.Version & 0x0F)
	buf[1] = h.Extension
	binary.BigEndian.PutUint16(buf[2:4], h.ConnectionID)
	binary.BigEndian.PutUint32(buf[4:8], h.Timestamp)
	binary.BigEndian.PutUint32(buf[8:12], h.TimestampDiff)
	binary.BigEndian.PutUint32(buf[12:16], h.Window)
	binary.BigEndian.PutUint16(buf[16:18], h.SeqNr)
	binary.BigEndian.PutUint16(buf[18:20], h.AckNr)
	return buf
}

// DecodeHeader parses a 20-byte packet header.
func DecodeHeader(data []byte) (Header, error) {
	if len(data) < HeaderSize {
		return Header{}, ErrTruncatedHeader
	}
	return Header{
		Type:          PacketType(data[0] >> 4),
		Version:       data[0] & 0x0F,
		Extension:     data[1],
		ConnectionID:  binary.BigEndian.Uint16(data[2:4]),
		Timestamp:     binary.BigEndian.Uint32(data[4:8]),
		TimestampDiff: binary.BigEndian.Uint32(data[8:12]),
		Window:        binary.BigEndian.Uint32(data[12:16]),
		SeqNr:         binary.BigEndian.Uint16(data[16:18]),
		AckNr:         binary.BigEndian.Uint16(data[18:20]),
	}, nil
}

// Packet is a decoded header plus its payload.
type Packet struct {
	Header  Header
	Payload []byte
}

// Encode serializes header and payload together.
func (p Packet) Encode() []byte {
	return append(p.Header.Encode(), p.Payload...)
}

// DecodePacket parses a full packet (header plus trailing payload bytes).
func DecodePacket(data []byte) (Packet, error) {
	h, err := DecodeHeader(data)
	if err != nil {
		return Packet{}, err
	}
	return Packet{Header: h, Payload: append([]byte(nil), data[HeaderSize:]...)}, nil
}
