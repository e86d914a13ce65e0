/*
File Name:  SubProtocol.go

Sub-protocol glue (spec §4.7): each sub-protocol binds a routing table, a
content store, a content-id function, and a verifier set behind one
uniform shape. Grounded on Peernet's Kademlia.go (initKademlia wiring
a routing table, store hooks, and eviction policy together per network)
generalized from Peernet's single network to Portal's four named
sub-protocols.
*/

package subprotocol

import (
	"github.com/PortalNetworkOfficial/core/contentkey"
	"github.com/PortalNetworkOfficial/core/enr"
	"github.com/PortalNetworkOfficial/core/kademlia"
	"github.com/PortalNetworkOfficial/core/store"
)

// Tag values for the four sub-protocols this client implements.
const (
	History          enr.SubProtocol = 0x500B
	State            enr.SubProtocol = 0x500A
	Beacon           enr.SubProtocol = 0x501A
	CanonicalIndices enr.SubProtocol = 0x500C
)

// Definition binds one sub-protocol's routing table, content store, and
// content-addressing rules together.
type Definition struct {
	Tag      enr.SubProtocol
	Name     string
	Table    *kademlia.Table
	Store    *store.Store
	DeriveID func(key contentkey.Key) contentkey.ID
}

// NewDefinition constructs a Definition with the standard keccak-256
// content-id function shared by every sub-protocol in this client (spec §3).
func NewDefinition(tag enr.SubProtocol, name string, table *kademlia.Table, s *store.Store) Definition {
	return Definition{
		Tag:      tag,
		Name:     name,
		Table:    table,
		Store:    s,
		DeriveID: contentkey.Derive,
	}
}

// Registry is the set of sub-protocol definitions a node participates in, keyed by tag.
type Registry struct {
	definitions map[enr.SubProtocol]Definition
}

// NewRegistry creates an empty sub-protocol registry.
func NewRegistry() *Registry {
	return &Registry{definitions: make(map[enr.SubProtocol]Definition)}
}

// Register adds a sub-protocol definition.
func (r *Registry) Register(def Definition) {
	r.definitions[def.Tag] = def
}

// Get returns the definition for a tag, if the node participates in it.
func (r *Registry) Get(tag enr.SubProtocol) (Definition, bool) {
	def, ok := r.definitions[tag]
	return def, ok
}

// Tags returns every sub-protocol tag this node participates in.
func (r *Registry) Tags() []enr.SubProtocol {
	tags := make([]enr.SubProtocol, 0, len(r.definitions))
	for t := range r.definitions {
		tags = append(tags, t)
	}
	return tags
}
