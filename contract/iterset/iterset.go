// Package iterset is an address set stored in key value state with O(1) add
// and membership checks that enumerates in insertion order. Removal shifts
// the later elements down, so it costs the distance to the end.
package iterset

import (
	"encoding/binary"
	"fmt"

	"pooled_fund/contract/state"
	"pooled_fund/sdk"
)

type Set struct {
	prefix string
}

// New scopes the set under prefix. Prefixes of different sets must not overlap.
func New(prefix string) Set { return Set{prefix: prefix} }

func (s Set) countKey() string { return s.prefix + "#" }

func (s Set) slotKey(i uint64) string {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], i)
	return s.prefix + "@" + string(b[:])
}

// posKey maps an address to its slot index plus one, zero means absent.
func (s Set) posKey(a sdk.Address) string {
	return s.prefix + "$" + string(a.Bytes())
}

func (s Set) Len(r state.Reader) (uint64, error) {
	return state.ReadUint64(r, s.countKey())
}

func (s Set) position(r state.Reader, a sdk.Address) (uint64, error) {
	return state.ReadUint64(r, s.posKey(a))
}

func (s Set) Contains(r state.Reader, a sdk.Address) (bool, error) {
	p, err := s.position(r, a)
	return p > 0, err
}

// At returns the element stored at slot i.
func (s Set) At(r state.Reader, i uint64) (sdk.Address, error) {
	n, err := s.Len(r)
	if err != nil {
		return sdk.ZeroAddress, err
	}
	if i >= n {
		return sdk.ZeroAddress, fmt.Errorf("%w: %d of %d", state.ErrIndexOutOfRange, i, n)
	}
	v, ok, err := r.Get(s.slotKey(i))
	if err != nil {
		return sdk.ZeroAddress, err
	}
	if !ok || len(v) != 20 {
		return sdk.ZeroAddress, fmt.Errorf("iterset: slot %d corrupted", i)
	}
	return sdk.Address(v), nil
}

// Items lists every element in slot order.
func (s Set) Items(r state.Reader) ([]sdk.Address, error) {
	n, err := s.Len(r)
	if err != nil {
		return nil, err
	}
	out := make([]sdk.Address, 0, n)
	for i := uint64(0); i < n; i++ {
		a, err := s.At(r, i)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, nil
}

// Add appends a, reporting false when it was already present.
func (s Set) Add(kv state.KV, a sdk.Address) (bool, error) {
	present, err := s.Contains(kv, a)
	if err != nil || present {
		return false, err
	}
	n, err := s.Len(kv)
	if err != nil {
		return false, err
	}
	kv.Set(s.slotKey(n), a.Bytes())
	state.WriteUint64(kv, s.posKey(a), n+1)
	state.WriteUint64(kv, s.countKey(), n+1)
	return true, nil
}

// Remove drops a and closes the gap, keeping the others in insertion order.
// Reports false when a was absent.
func (s Set) Remove(kv state.KV, a sdk.Address) (bool, error) {
	pos, err := s.position(kv, a)
	if err != nil || pos == 0 {
		return false, err
	}
	n, err := s.Len(kv)
	if err != nil {
		return false, err
	}
	for i := pos; i < n; i++ {
		next, err := s.At(kv, i)
		if err != nil {
			return false, err
		}
		kv.Set(s.slotKey(i-1), next.Bytes())
		state.WriteUint64(kv, s.posKey(next), i)
	}
	kv.Delete(s.slotKey(n - 1))
	kv.Delete(s.posKey(a))
	state.WriteUint64(kv, s.countKey(), n-1)
	return true, nil
}
