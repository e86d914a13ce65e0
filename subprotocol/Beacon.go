/*
File Name:  Beacon.go

The Beacon sub-protocol (tag 0x501A). The content-key grammar for
consensus-layer light-client data is outside this client's content-key
set (§3 defines only the History/State selectors), so this sub-protocol
participates in routing and storage without a selector-specific
verification rule: any non-empty value admitted under it is accepted,
mirroring how Peernet's Kademlia.go wires a network's store without
imposing payload-level checks of its own.
*/

package subprotocol

import (
	"github.com/PortalNetworkOfficial/core/contentkey"
	"github.com/PortalNetworkOfficial/core/store"
)

// BeaconVerifier accepts any content key whose value is non-empty; Beacon
// data carries no per-type structural check in this client.
func BeaconVerifier() store.Verifier {
	return func(key contentkey.Key, value []byte) bool {
		return len(value) > 0
	}
}
