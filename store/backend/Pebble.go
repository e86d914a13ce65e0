/*
File Name:  Pebble.go

Pebble-backed persistence. Peernet carried this as a commented-out
stub (store/Pebble.go) noting Pebble's binary-size cost; the content
store's working-set sizes here justify activating it as a genuine
alternate backend for nodes that want LSM-tree compaction and range
iteration over pogreb's single-file hash log.
*/

package backend

import (
	"github.com/cockroachdb/pebble"
)

// Pebble is a key/value backend using cockroachdb/pebble.
type Pebble struct {
	filename string
	db       *pebble.DB
}

// NewPebble opens (creating if necessary) a Pebble-backed store at filename.
func NewPebble(filename string) (*Pebble, error) {
	db, err := pebble.Open(filename, &pebble.Options{})
	if err != nil {
		return nil, err
	}
	return &Pebble{filename: filename, db: db}, nil
}

func (p *Pebble) Put(key []byte, value []byte) error {
	return p.db.Set(key, value, pebble.Sync)
}

func (p *Pebble) Get(key []byte) (value []byte, found bool, err error) {
	v, closer, err := p.db.Get(key)
	if err == pebble.ErrNotFound {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	out := append([]byte(nil), v...)
	closer.Close()
	return out, true, nil
}

func (p *Pebble) Delete(key []byte) error {
	return p.db.Delete(key, pebble.Sync)
}

func (p *Pebble) Iterate(fn func(key []byte) bool) error {
	iter, err := p.db.NewIter(nil)
	if err != nil {
		return err
	}
	defer iter.Close()

	for valid := iter.First(); valid; valid = iter.Next() {
		key := append([]byte(nil), iter.Key()...)
		if !fn(key) {
			break
		}
	}
	return nil
}

func (p *Pebble) Batch(ops []Op) error {
	batch := p.db.NewBatch()
	for _, op := range ops {
		switch op.Kind {
		case OpPut:
			if err := batch.Set(op.Key, op.Value, nil); err != nil {
				return err
			}
		case OpDelete:
			if err := batch.Delete(op.Key, nil); err != nil {
				return err
			}
		}
	}
	return batch.Commit(pebble.Sync)
}

func (p *Pebble) Close() error {
	return p.db.Close()
}
