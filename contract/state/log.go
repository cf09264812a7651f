package state

import (
	"encoding/binary"
	"errors"
	"fmt"
)

var ErrIndexOutOfRange = errors.New("state: index out of range")

// Log is an append only sequence of records under a key prefix. Records are
// addressed by their index which is never reused. Replace lets status style
// records evolve in place without ever shrinking the log.
type Log struct {
	prefix string
}

func NewLog(prefix string) Log { return Log{prefix: prefix} }

func (l Log) countKey() string { return l.prefix + "#" }

func (l Log) itemKey(i uint64) string {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], i)
	return l.prefix + "@" + string(b[:])
}

// ReadUint64 decodes an 8 byte big endian counter, missing means zero.
func ReadUint64(r Reader, key string) (uint64, error) {
	v, ok, err := r.Get(key)
	if err != nil || !ok {
		return 0, err
	}
	if len(v) != 8 {
		return 0, fmt.Errorf("state: counter %x has %d bytes", key, len(v))
	}
	return binary.BigEndian.Uint64(v), nil
}

// WriteUint64 stores a counter as 8 big endian bytes.
func WriteUint64(kv KV, key string, n uint64) {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], n)
	kv.Set(key, b[:])
}

func (l Log) Len(r Reader) (uint64, error) {
	return ReadUint64(r, l.countKey())
}

// Append stores data as the next record and returns its index.
func (l Log) Append(kv KV, data []byte) (uint64, error) {
	n, err := l.Len(kv)
	if err != nil {
		return 0, err
	}
	kv.Set(l.itemKey(n), data)
	WriteUint64(kv, l.countKey(), n+1)
	return n, nil
}

func (l Log) At(r Reader, i uint64) ([]byte, error) {
	n, err := l.Len(r)
	if err != nil {
		return nil, err
	}
	if i >= n {
		return nil, fmt.Errorf("%w: %d of %d", ErrIndexOutOfRange, i, n)
	}
	v, ok, err := r.Get(l.itemKey(i))
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("state: record %d missing", i)
	}
	return v, nil
}

// Last returns the newest record, ok is false on an empty log.
func (l Log) Last(r Reader) ([]byte, bool, error) {
	n, err := l.Len(r)
	if err != nil || n == 0 {
		return nil, false, err
	}
	v, err := l.At(r, n-1)
	if err != nil {
		return nil, false, err
	}
	return v, true, nil
}

// All returns every record in order.
func (l Log) All(r Reader) ([][]byte, error) {
	n, err := l.Len(r)
	if err != nil {
		return nil, err
	}
	out := make([][]byte, 0, n)
	for i := uint64(0); i < n; i++ {
		v, err := l.At(r, i)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

// Replace overwrites an existing record.
func (l Log) Replace(kv KV, i uint64, data []byte) error {
	n, err := l.Len(kv)
	if err != nil {
		return err
	}
	if i >= n {
		return fmt.Errorf("%w: %d of %d", ErrIndexOutOfRange, i, n)
	}
	kv.Set(l.itemKey(i), data)
	return nil
}
