// Package state is the key value persistence layer shared by the fund and
// the board. Engines never write a Store directly, they stage writes in a
// Txn and apply them in one batch once the operation succeeded.
package state

import "errors"

var ErrStoreClosed = errors.New("state: store closed")

// Reader is the read side every ledger helper takes.
type Reader interface {
	Get(key string) ([]byte, bool, error)
}

// KV is a Reader that also accepts writes.
type KV interface {
	Reader
	Set(key string, value []byte)
	Delete(key string)
}

// Op is one staged write. Delete wins over Value.
type Op struct {
	Key    string
	Value  []byte
	Delete bool
}

// Store is the durable backend. Apply has to be all or nothing.
type Store interface {
	Reader
	Apply(ops []Op) error
	Close() error
}
