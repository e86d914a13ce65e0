/*
File Name:  Codec.go

Encode/decode of wire messages: a 1-byte selector followed by a fixed
region and a variable region addressed by 4-byte big-endian offsets,
mirroring Peernet's offset-addressed variable-length message layout
in protocol/Message Encoding.go. CONTENT's union selector is documented
in spec §4.2.
*/

package wire

import (
	"encoding/binary"
	"errors"

	"github.com/holiman/uint256"
)

// ErrTruncated is returned when a buffer ends before a required field.
var ErrTruncated = errors.New("wire: message truncated")

// ErrUnknownSelector is returned when the leading byte does not match any known message type.
var ErrUnknownSelector = errors.New("wire: unknown selector")

// Encode serializes a message to its wire form, selector byte first.
func Encode(m Message) ([]byte, error) {
	switch msg := m.(type) {
	case *Ping:
		return encodePingPong(SelectorPing, msg.EnrSeq, msg.Radius), nil
	case *Pong:
		return encodePingPong(SelectorPong, msg.EnrSeq, msg.Radius), nil
	case *FindNodes:
		return encodeFindNodes(msg), nil
	case *Nodes:
		return encodeNodes(msg), nil
	case *FindContent:
		return encodeFindContent(msg), nil
	case *Content:
		return encodeContent(msg), nil
	case *Offer:
		return encodeOffer(msg), nil
	case *Accept:
		return encodeAccept(msg), nil
	default:
		return nil, ErrUnknownSelector
	}
}

// Decode parses a wire message, dispatching on its leading selector byte.
func Decode(data []byte) (Message, error) {
	if len(data) < 1 {
		return nil, ErrTruncated
	}
	body := data[1:]

	switch Selector(data[0]) {
	case SelectorPing:
		return decodePingPong(body, true)
	case SelectorPong:
		return decodePingPong(body, false)
	case SelectorFindNodes:
		return decodeFindNodes(body)
	case SelectorNodes:
		return decodeNodes(body)
	case SelectorFindContent:
		return decodeFindContent(body)
	case SelectorContent:
		return decodeContent(body)
	case SelectorOffer:
		return decodeOffer(body)
	case SelectorAccept:
		return decodeAccept(body)
	default:
		return nil, ErrUnknownSelector
	}
}

func encodePingPong(sel Selector, enrSeq uint64, radius *uint256.Int) []byte {
	buf := make([]byte, 1+8+32)
	buf[0] = byte(sel)
	binary.BigEndian.PutUint64(buf[1:9], enrSeq)
	if radius != nil {
		r := radius.Bytes32()
		copy(buf[9:41], r[:])
	}
	return buf
}

func decodePingPong(body []byte, isPing bool) (Message, error) {
	if len(body) < 8+32 {
		return nil, ErrTruncated
	}
	enrSeq := binary.BigEndian.Uint64(body[0:8])
	radius := new(uint256.Int).SetBytes(body[8:40])
	if isPing {
		return &Ping{EnrSeq: enrSeq, Radius: radius}, nil
	}
	return &Pong{EnrSeq: enrSeq, Radius: radius}, nil
}

func encodeFindNodes(msg *FindNodes) []byte {
	buf := make([]byte, 1+2+2*len(msg.Distances))
	buf[0] = byte(SelectorFindNodes)
	binary.BigEndian.PutUint16(buf[1:3], uint16(len(msg.Distances)))
	off := 3
	for _, d := range msg.Distances {
		binary.BigEndian.PutUint16(buf[off:off+2], d)
		off += 2
	}
	return buf
}

func decodeFindNodes(body []byte) (Message, error) {
	if len(body) < 2 {
		return nil, ErrTruncated
	}
	count := int(binary.BigEndian.Uint16(body[0:2]))
	off := 2
	if len(body) < off+count*2 {
		return nil, ErrTruncated
	}
	distances := make([]uint16, count)
	for i := 0; i < count; i++ {
		distances[i] = binary.BigEndian.Uint16(body[off : off+2])
		off += 2
	}
	return &FindNodes{Distances: distances}, nil
}

// encodeNodes lays out: 1-byte Total, 2-byte count, then for each entry a
// 4-byte offset table followed by the concatenated ENR blobs.
func encodeNodes(msg *Nodes) []byte {
	header := 1 + 1 + 2 + 4*len(msg.Enrs)
	total := header
	for _, e := range msg.Enrs {
		total += len(e)
	}

	buf := make([]byte, total)
	buf[0] = byte(SelectorNodes)
	buf[1] = msg.Total
	binary.BigEndian.PutUint16(buf[2:4], uint16(len(msg.Enrs)))

	offsetTable := buf[4 : 4+4*len(msg.Enrs)]
	cursor := header
	for i, e := range msg.Enrs {
		binary.BigEndian.PutUint32(offsetTable[i*4:i*4+4], uint32(cursor))
		copy(buf[cursor:cursor+len(e)], e)
		cursor += len(e)
	}
	return buf
}

func decodeNodes(body []byte) (Message, error) {
	if len(body) < 1+2 {
		return nil, ErrTruncated
	}
	total := body[0]
	count := int(binary.BigEndian.Uint16(body[1:3]))
	offsetTable := 3
	if len(body) < offsetTable+4*count {
		return nil, ErrTruncated
	}

	offsets := make([]uint32, count)
	for i := 0; i < count; i++ {
		offsets[i] = binary.BigEndian.Uint32(body[offsetTable+i*4 : offsetTable+i*4+4])
	}

	enrs := make([][]byte, count)
	for i := 0; i < count; i++ {
		start := int(offsets[i]) - 1 // body is data[1:], offsets are relative to the full message
		end := len(body)
		if i+1 < count {
			end = int(offsets[i+1]) - 1
		}
		if start < 0 || end > len(body) || start > end {
			return nil, ErrTruncated
		}
		enrs[i] = append([]byte(nil), body[start:end]...)
	}

	return &Nodes{Total: total, Enrs: enrs}, nil
}

func encodeFindContent(msg *FindContent) []byte {
	buf := make([]byte, 1+2+len(msg.Key))
	buf[0] = byte(SelectorFindContent)
	binary.BigEndian.PutUint16(buf[1:3], uint16(len(msg.Key)))
	copy(buf[3:], msg.Key)
	return buf
}

func decodeFindContent(body []byte) (Message, error) {
	if len(body) < 2 {
		return nil, ErrTruncated
	}
	n := int(binary.BigEndian.Uint16(body[0:2]))
	if len(body) < 2+n {
		return nil, ErrTruncated
	}
	return &FindContent{Key: append([]byte(nil), body[2:2+n]...)}, nil
}

// encodeContent lays out a 1-byte union selector followed by the arm's payload.
func encodeContent(msg *Content) []byte {
	switch msg.Union {
	case ContentUnionConnectionID:
		buf := make([]byte, 1+1+2)
		buf[0] = byte(SelectorContent)
		buf[1] = byte(ContentUnionConnectionID)
		binary.BigEndian.PutUint16(buf[2:4], msg.ConnectionID)
		return buf
	case ContentUnionPayload:
		buf := make([]byte, 1+1+4+len(msg.Payload))
		buf[0] = byte(SelectorContent)
		buf[1] = byte(ContentUnionPayload)
		binary.BigEndian.PutUint32(buf[2:6], uint32(len(msg.Payload)))
		copy(buf[6:], msg.Payload)
		return buf
	default: // ContentUnionEnrs
		nodesPart := encodeNodes(&Nodes{Total: uint8(len(msg.Enrs)), Enrs: msg.Enrs})
		buf := make([]byte, 1+1+len(nodesPart)-1)
		buf[0] = byte(SelectorContent)
		buf[1] = byte(ContentUnionEnrs)
		copy(buf[2:], nodesPart[1:])
		return buf
	}
}

func decodeContent(body []byte) (Message, error) {
	if len(body) < 1 {
		return nil, ErrTruncated
	}
	union := ContentUnionSelector(body[0])
	rest := body[1:]

	switch union {
	case ContentUnionConnectionID:
		if len(rest) < 2 {
			return nil, ErrTruncated
		}
		return &Content{Union: union, ConnectionID: binary.BigEndian.Uint16(rest[0:2])}, nil
	case ContentUnionPayload:
		if len(rest) < 4 {
			return nil, ErrTruncated
		}
		n := int(binary.BigEndian.Uint32(rest[0:4]))
		if len(rest) < 4+n {
			return nil, ErrTruncated
		}
		return &Content{Union: union, Payload: append([]byte(nil), rest[4:4+n]...)}, nil
	case ContentUnionEnrs:
		nodes, err := decodeNodes(rest)
		if err != nil {
			return nil, err
		}
		n := nodes.(*Nodes)
		return &Content{Union: union, Enrs: n.Enrs}, nil
	default:
		return nil, ErrUnknownSelector
	}
}

func encodeOffer(msg *Offer) []byte {
	header := 1 + 2 + 4*len(msg.ContentKeys)
	total := header
	for _, k := range msg.ContentKeys {
		total += len(k)
	}
	buf := make([]byte, total)
	buf[0] = byte(SelectorOffer)
	binary.BigEndian.PutUint16(buf[1:3], uint16(len(msg.ContentKeys)))

	cursor := header
	for i, k := range msg.ContentKeys {
		binary.BigEndian.PutUint32(buf[3+i*4:3+i*4+4], uint32(cursor))
		copy(buf[cursor:cursor+len(k)], k)
		cursor += len(k)
	}
	return buf
}

func decodeOffer(body []byte) (Message, error) {
	if len(body) < 2 {
		return nil, ErrTruncated
	}
	count := int(binary.BigEndian.Uint16(body[0:2]))
	table := 2
	if len(body) < table+4*count {
		return nil, ErrTruncated
	}
	offsets := make([]uint32, count)
	for i := 0; i < count; i++ {
		offsets[i] = binary.BigEndian.Uint32(body[table+i*4 : table+i*4+4])
	}
	keys := make([][]byte, count)
	for i := 0; i < count; i++ {
		start := int(offsets[i]) - 1
		end := len(body)
		if i+1 < count {
			end = int(offsets[i+1]) - 1
		}
		if start < 0 || end > len(body) || start > end {
			return nil, ErrTruncated
		}
		keys[i] = append([]byte(nil), body[start:end]...)
	}
	return &Offer{ContentKeys: keys}, nil
}

func encodeAccept(msg *Accept) []byte {
	buf := make([]byte, 1+2+2+len(msg.AcceptBitlist))
	buf[0] = byte(SelectorAccept)
	binary.BigEndian.PutUint16(buf[1:3], msg.ConnectionID)
	binary.BigEndian.PutUint16(buf[3:5], uint16(len(msg.AcceptBitlist)))
	copy(buf[5:], msg.AcceptBitlist)
	return buf
}

func decodeAccept(body []byte) (Message, error) {
	if len(body) < 4 {
		return nil, ErrTruncated
	}
	connID := binary.BigEndian.Uint16(body[0:2])
	n := int(binary.BigEndian.Uint16(body[2:4]))
	if len(body) < 4+n {
		return nil, ErrTruncated
	}
	return &Accept{ConnectionID: connID, AcceptBitlist: append([]byte(nil), body[4:4+n]...)}, nil
}
