/*
File Name:  Key.go

Content keys: a tagged union of selector byte + type-specific body,
covering the History and State sub-protocols' content namespaces.
Grounded on Peernet's wire message tagging convention
(protocol/Message Encoding.go's leading action byte) generalized to a
content-addressing grammar instead of a network action grammar.
*/

package contentkey

import "encoding/binary"

// Selector tags which content-key shape a Key's Body holds.
type Selector byte

const (
	SelectorBlockHeader          Selector = 0x00
	SelectorBlockBody            Selector = 0x01
	SelectorReceipts             Selector = 0x02
	SelectorEpochAccumulator     Selector = 0x03
	SelectorHeaderWithProof      Selector = 0x04
	SelectorAccountTrieProof     Selector = 0x05
	SelectorContractStorageProof Selector = 0x06
	SelectorBytecode             Selector = 0x07
)

// Key is a content key: a selector plus its canonical byte encoding.
type Key struct {
	Selector Selector
	Body     []byte
}

// Encode returns the wire form: selector byte followed by the body.
func (k Key) Encode() []byte {
	out := make([]byte, 1+len(k.Body))
	out[0] = byte(k.Selector)
	copy(out[1:], k.Body)
	return out
}

// Decode parses a content key from its wire form.
func Decode(data []byte) (Key, error) {
	if len(data) < 1 {
		return Key{}, ErrTruncated
	}
	return Key{Selector: Selector(data[0]), Body: append([]byte(nil), data[1:]...)}, nil
}

// BlockHeaderKey addresses a block header by its block hash.
func BlockHeaderKey(blockHash [32]byte) Key {
	return Key{Selector: SelectorBlockHeader, Body: blockHash[:]}
}

// BlockBodyKey addresses a block body by its block hash.
func BlockBodyKey(blockHash [32]byte) Key {
	return Key{Selector: SelectorBlockBody, Body: blockHash[:]}
}

// ReceiptsKey addresses a block's receipt list by its block hash.
func ReceiptsKey(blockHash [32]byte) Key {
	return Key{Selector: SelectorReceipts, Body: blockHash[:]}
}

// EpochAccumulatorKey addresses a pre-merge epoch accumulator by its epoch hash.
func EpochAccumulatorKey(epochHash [32]byte) Key {
	return Key{Selector: SelectorEpochAccumulator, Body: epochHash[:]}
}

// HeaderWithProofKey addresses a pre-merge header bundled with its Merkle
// inclusion proof against the epoch accumulator, by block hash.
func HeaderWithProofKey(blockHash [32]byte) Key {
	return Key{Selector: SelectorHeaderWithProof, Body: blockHash[:]}
}

// AccountTrieProofKey addresses an account's Merkle-Patricia-Trie inclusion
// proof at a specific state root.
func AccountTrieProofKey(stateRoot [32]byte, address [20]byte) Key {
	body := make([]byte, 52)
	copy(body[:32], stateRoot[:])
	copy(body[32:], address[:])
	return Key{Selector: SelectorAccountTrieProof, Body: body}
}

// ContractStorageProofKey addresses a contract storage slot's inclusion proof
// at a specific state root.
func ContractStorageProofKey(stateRoot [32]byte, address [20]byte, slot [32]byte) Key {
	body := make([]byte, 84)
	copy(body[:32], stateRoot[:])
	copy(body[32:52], address[:])
	copy(body[52:], slot[:])
	return Key{Selector: SelectorContractStorageProof, Body: body}
}

// BytecodeKey addresses contract bytecode by its code hash.
func BytecodeKey(codeHash [32]byte) Key {
	return Key{Selector: SelectorBytecode, Body: codeHash[:]}
}

// blockNumberBytes encodes a block number as 8 big-endian bytes. It has no
// callers in this module.
func blockNumberBytes(n uint64) []byte {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], n)
	return b[:]
}
