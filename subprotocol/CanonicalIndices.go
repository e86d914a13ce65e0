/*
File Name:  CanonicalIndices.go

The CanonicalIndices sub-protocol (tag 0x500C): the block-number-to-hash
mapping peers use to bridge numeric block references into History's
hash-addressed content keys. Like Beacon, its content-key grammar is
outside this client's defined selector set, so its verifier accepts any
non-empty value.
*/

package subprotocol

import (
	"github.com/PortalNetworkOfficial/core/contentkey"
	"github.com/PortalNetworkOfficial/core/store"
)

// CanonicalIndicesVerifier accepts any content key whose value is non-empty.
func CanonicalIndicesVerifier() store.Verifier {
	return func(key contentkey.Key, value []byte) bool {
		return len(value) > 0
	}
}
