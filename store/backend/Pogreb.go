/*
File Name:  Pogreb.go

Pogreb-backed persistence, adapted from Peernet's store/Pogreb.go.
Iterate uses Pogreb's own cursor-based item iterator instead of an
in-memory key list, since on-disk stores can outgrow that cheaply.
*/

package backend

import (
	"io"
	"log"

	"github.com/akrylysov/pogreb"
)

// Pogreb is a key/value backend using akrylysov/pogreb.
type Pogreb struct {
	filename string
	db       *pogreb.DB
}

// NewPogreb opens (creating if necessary) a Pogreb-backed store at filename.
func NewPogreb(filename string) (*Pogreb, error) {
	pogreb.SetLogger(log.New(io.Discard, "", 0))

	db, err := pogreb.Open(filename, nil)
	if err != nil {
		return nil, err
	}
	return &Pogreb{filename: filename, db: db}, nil
}

func (p *Pogreb) Put(key []byte, value []byte) error {
	return p.db.Put(key, value)
}

func (p *Pogreb) Get(key []byte) (value []byte, found bool, err error) {
	v, err := p.db.Get(key)
	if err != nil {
		return nil, false, err
	}
	return v, v != nil, nil
}

func (p *Pogreb) Delete(key []byte) error {
	return p.db.Delete(key)
}

func (p *Pogreb) Iterate(fn func(key []byte) bool) error {
	it := p.db.Items()
	for {
		key, _, err := it.Next()
		if err == pogreb.ErrIterationDone {
			return nil
		}
		if err != nil {
			return err
		}
		if !fn(key) {
			return nil
		}
	}
}

func (p *Pogreb) Batch(ops []Op) error {
	for _, op := range ops {
		switch op.Kind {
		case OpPut:
			if err := p.db.Put(op.Key, op.Value); err != nil {
				return err
			}
		case OpDelete:
			if err := p.db.Delete(op.Key); err != nil {
				return err
			}
		}
	}
	return nil
}

func (p *Pogreb) Close() error {
	return p.db.Close()
}
