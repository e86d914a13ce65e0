/*
File Name:  Backend.go

Persistence interface consumed by the content store, adapted from the
Peernet's store/Store.go. Expiration semantics are dropped (content-store
items live and die by radius/eviction, not by TTL); in exchange the
interface gains Iterate and Batch for eviction scans and gossip fan-out.
*/

package backend

// Backend is the interface a content-store persistence mechanism must satisfy.
type Backend interface {
	// Put stores the key/value pair, overwriting any existing value.
	Put(key []byte, value []byte) error

	// Get returns the value for a key, if present.
	Get(key []byte) (value []byte, found bool, err error)

	// Delete removes a key/value pair. Deleting an absent key is not an error.
	Delete(key []byte) error

	// Iterate calls fn for every stored key in unspecified order, stopping early if fn returns false.
	Iterate(fn func(key []byte) bool) error

	// Batch applies a sequence of puts and deletes as a single unit where the backend supports it.
	Batch(ops []Op) error

	// Close releases any underlying resources (file handles, connections).
	Close() error
}

// OpKind distinguishes a Batch entry's operation.
type OpKind int

const (
	OpPut OpKind = iota
	OpDelete
)

// Op is one entry of a Batch call.
type Op struct {
	Kind  OpKind
	Key   []byte
	Value []byte
}
