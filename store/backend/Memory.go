/*
File Name:  Memory.go

In-memory backend for tests and ephemeral sub-protocols, adapted from the
Peernet's store/Memory.go with expiration bookkeeping dropped.
*/

package backend

import "sync"

// Memory is a simple in-memory key/value backend.
type Memory struct {
	mutex sync.Mutex
	data  map[string][]byte
}

// NewMemory creates a properly initialized in-memory backend.
func NewMemory() *Memory {
	return &Memory{data: make(map[string][]byte)}
}

func (m *Memory) Put(key []byte, value []byte) error {
	m.mutex.Lock()
	m.data[string(key)] = append([]byte(nil), value...)
	m.mutex.Unlock()
	return nil
}

func (m *Memory) Get(key []byte) (value []byte, found bool, err error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	v, ok := m.data[string(key)]
	return v, ok, nil
}

func (m *Memory) Delete(key []byte) error {
	m.mutex.Lock()
	delete(m.data, string(key))
	m.mutex.Unlock()
	return nil
}

func (m *Memory) Iterate(fn func(key []byte) bool) error {
	m.mutex.Lock()
	keys := make([]string, 0, len(m.data))
	for k := range m.data {
		keys = append(keys, k)
	}
	m.mutex.Unlock()

	for _, k := range keys {
		if !fn([]byte(k)) {
			break
		}
	}
	return nil
}

func (m *Memory) Batch(ops []Op) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	for _, op := range ops {
		switch op.Kind {
		case OpPut:
			m.data[string(op.Key)] = append([]byte(nil), op.Value...)
		case OpDelete:
			delete(m.data, string(op.Key))
		}
	}
	return nil
}

func (m *Memory) Close() error { return nil }

// Count returns the number of records stored.
func (m *Memory) Count() int {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	return len(m.data)
}
