/*
File Name:  Observer.go

Typed event hooks for upper-layer consumers. Grounded on Peernet's
Filter.go: a struct of nil-able typed callback fields called sequentially
and synchronously, plus a uuid-keyed subscribe/unsubscribe list (the
Peernet's multiWriter) generalized from io.Writer fan-out to typed event
fan-out.
*/

package events

import (
	"sync"

	"github.com/google/uuid"
	"github.com/PortalNetworkOfficial/core/contentkey"
	"github.com/PortalNetworkOfficial/core/enr"
)

// NodeAdded reports a routing-table insertion.
type NodeAdded struct {
	SubProtocol enr.SubProtocol
	Record      *enr.Record
}

// NodeRemoved reports a routing-table eviction.
type NodeRemoved struct {
	SubProtocol enr.SubProtocol
	NodeID      enr.NodeID
}

// ContentAdded reports a successful content admission. Key is the original
// encoded content key (not just its derived ID), so a listener can re-offer
// the item to other peers without needing to reverse the one-way ID hash.
type ContentAdded struct {
	SubProtocol enr.SubProtocol
	ID          contentkey.ID
	Key         []byte
	Size        int
}

// Verified reports the outcome of a sub-protocol verifier run against received content.
type Verified struct {
	SubProtocol enr.SubProtocol
	ID          contentkey.ID
	Passed      bool
	Err         error
}

// Filters holds the optional typed callbacks a caller may install. Unused fields
// stay nil; Observer substitutes blank functions so call sites never need a nil check.
type Filters struct {
	NodeAdded    func(NodeAdded)
	NodeRemoved  func(NodeRemoved)
	ContentAdded func(ContentAdded)
	Verified     func(Verified)
	LogError     func(function, format string, v ...interface{})
}

// Observer fans typed events out to zero or more dynamically subscribed listeners,
// in addition to the fixed Filters set installed at construction.
type Observer struct {
	filters Filters

	mu        sync.Mutex
	listeners map[uuid.UUID]Filters
}

// NewObserver creates an observer with default (blank) filters, then applies any overrides given.
func NewObserver(base Filters) *Observer {
	o := &Observer{listeners: make(map[uuid.UUID]Filters)}
	o.filters = fillBlanks(base)
	return o
}

func fillBlanks(f Filters) Filters {
	if f.NodeAdded == nil {
		f.NodeAdded = func(NodeAdded) {}
	}
	if f.NodeRemoved == nil {
		f.NodeRemoved = func(NodeRemoved) {}
	}
	if f.ContentAdded == nil {
		f.ContentAdded = func(ContentAdded) {}
	}
	if f.Verified == nil {
		f.Verified = func(Verified) {}
	}
	if f.LogError == nil {
		f.LogError = func(function, format string, v ...interface{}) {}
	}
	return f
}

// Subscribe registers an additional, independently removable set of listeners.
func (o *Observer) Subscribe(f Filters) (id uuid.UUID) {
	o.mu.Lock()
	defer o.mu.Unlock()

	id = uuid.New()
	o.listeners[id] = fillBlanks(f)
	return id
}

// Unsubscribe removes a previously subscribed listener set.
func (o *Observer) Unsubscribe(id uuid.UUID) {
	o.mu.Lock()
	defer o.mu.Unlock()

	delete(o.listeners, id)
}

// EmitNodeAdded notifies the base filters and every subscribed listener.
func (o *Observer) EmitNodeAdded(e NodeAdded) {
	o.filters.NodeAdded(e)
	o.mu.Lock()
	defer o.mu.Unlock()
	for _, f := range o.listeners {
		f.NodeAdded(e)
	}
}

// EmitNodeRemoved notifies the base filters and every subscribed listener.
func (o *Observer) EmitNodeRemoved(e NodeRemoved) {
	o.filters.NodeRemoved(e)
	o.mu.Lock()
	defer o.mu.Unlock()
	for _, f := range o.listeners {
		f.NodeRemoved(e)
	}
}

// EmitContentAdded notifies the base filters and every subscribed listener.
func (o *Observer) EmitContentAdded(e ContentAdded) {
	o.filters.ContentAdded(e)
	o.mu.Lock()
	defer o.mu.Unlock()
	for _, f := range o.listeners {
		f.ContentAdded(e)
	}
}

// EmitVerified notifies the base filters and every subscribed listener.
func (o *Observer) EmitVerified(e Verified) {
	o.filters.Verified(e)
	o.mu.Lock()
	defer o.mu.Unlock()
	for _, f := range o.listeners {
		f.Verified(e)
	}
}

// LogError reports an internal error through the base filter's error hook.
func (o *Observer) LogError(function, format string, v ...interface{}) {
	o.filters.LogError(function, format, v...)
}
