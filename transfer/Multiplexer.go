/*
File Name:  Multiplexer.go

Connection-id arena: allocates u16 connection ids for new sessions and
keeps a generation counter per id, bumped on every rebind and release.
Lookup does not consult the counter and packets carry no generation, so a
delayed packet for an id that has been bound again reaches the session
bound to it now. Grounded on Peernet's
"Transfer Virtual Connection.go" session registry (there keyed by
uuid.UUID; here keyed by u16 to match the wire header's connection-id field).
*/

package transfer

import (
	"errors"
	"sync"
)

// ErrNoFreeConnectionID is returned when the arena is exhausted (65536 concurrent sessions).
var ErrNoFreeConnectionID = errors.New("transfer: no free connection id")

// ErrUnknownConnection is returned when a packet references a connection id the
// multiplexer has no record of.
var ErrUnknownConnection = errors.New("transfer: unknown or stale connection id")

type slot struct {
	generation uint32
	session    *Session
}

// Multiplexer owns the connection-id keyspace for one local transport endpoint.
type Multiplexer struct {
	mu      sync.Mutex
	slots   map[uint16]*slot
	nextID  uint16
	started bool
}

// NewMultiplexer creates an empty connection-id arena.
func NewMultiplexer() *Multiplexer {
	return &Multiplexer{slots: make(map[uint16]*slot)}
}

// Allocate reserves a fresh connection id for an initiator (ST_SYN sender).
// Per spec §4.6, the counterpart's recv-id is this id plus one; Allocate
// only ever hands out even-aligned ids so recv-id/recv-id+1 pairs never collide.
func (m *Multiplexer) Allocate(s *Session) (id uint16, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i := 0; i < 1<<16; i += 2 {
		candidate := uint16(i)
		if _, taken := m.slots[candidate]; !taken {
			m.slots[candidate] = &slot{generation: 1, session: s}
			return candidate, nil
		}
	}
	return 0, ErrNoFreeConnectionID
}

// Bind records the counterpart's id (recv-id+1) for an accepted session.
func (m *Multiplexer) Bind(id uint16, s *Session) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if existing, ok := m.slots[id]; ok {
		existing.session = s
		existing.generation++
		return
	}
	m.slots[id] = &slot{generation: 1, session: s}
}

// Lookup returns the session registered for a connection id.
func (m *Multiplexer) Lookup(id uint16) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.slots[id]
	if !ok {
		return nil, ErrUnknownConnection
	}
	return s.session, nil
}

// Release frees a connection id and bumps its generation. The slot stays
// known, so Lookup still resolves the id but returns a nil session.
func (m *Multiplexer) Release(id uint16) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.slots[id]; ok {
		s.session = nil
		s.generation++
	}
}

// Count returns the number of connection ids currently in use.
func (m *Multiplexer) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, s := range m.slots {
		if s.session != nil {
			n++
		}
	}
	return n
}
