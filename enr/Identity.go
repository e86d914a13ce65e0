/*
File Name:  Identity.go

Local node identity: a secp256k1 key pair and the Record it signs.
Grounded on Peernet's Peer ID.go (Secp256k1NewPrivateKey / ExportPrivateKey).
*/

package enr

import (
	"encoding/hex"

	"github.com/btcsuite/btcd/btcec"
)

// Identity holds the local node's key pair and convenience accessors.
type Identity struct {
	PrivateKey *btcec.PrivateKey
	PublicKey  *btcec.PublicKey
}

// NewIdentity generates a fresh secp256k1 key pair.
func NewIdentity() (*Identity, error) {
	key, err := btcec.NewPrivateKey(btcec.S256())
	if err != nil {
		return nil, err
	}
	return &Identity{PrivateKey: key, PublicKey: (*btcec.PublicKey)(&key.PublicKey)}, nil
}

// IdentityFromHex restores an identity from a hex-encoded private key, as stored in config.
func IdentityFromHex(s string) (*Identity, error) {
	raw, err := hex.DecodeString(s)
	if err != nil {
		return nil, err
	}
	priv, pub := btcec.PrivKeyFromBytes(btcec.S256(), raw)
	return &Identity{PrivateKey: priv, PublicKey: pub}, nil
}

// Hex returns the hex-encoded private key, suitable for persisting in config.
func (id *Identity) Hex() string {
	return hex.EncodeToString(id.PrivateKey.Serialize())
}

// NodeID returns the node ID derived from the identity's public key.
func (id *Identity) NodeID() NodeID {
	return PublicKeyToNodeID(id.PublicKey)
}

// NewRecord builds and signs a fresh record advertising the given address,
// discovery port, bulk-transfer port (0 if none offered), and sub-protocols.
func (id *Identity) NewRecord(seq uint64, ip []byte, udpPort uint16, bulkPort uint16, subs []SubProtocol) (*Record, error) {
	r := &Record{
		Seq:          seq,
		PublicKey:    id.PublicKey,
		UDPPort:      udpPort,
		BulkPort:     bulkPort,
		SubProtocols: subs,
	}
	if len(ip) > 0 {
		r.IP = ip
	}
	if err := r.Sign(id.PrivateKey); err != nil {
		return nil, err
	}
	return r, nil
}
