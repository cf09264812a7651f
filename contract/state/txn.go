package state

import "sort"

type pending struct {
	value   []byte
	deleted bool
}

// Txn overlays staged writes on a Store. Reads see the staged writes first.
// Nothing reaches the Store until Commit, Discard just drops the overlay.
type Txn struct {
	store   Store
	pending map[string]pending
}

func Begin(s Store) *Txn {
	return &Txn{store: s, pending: make(map[string]pending)}
}

func (t *Txn) Get(key string) ([]byte, bool, error) {
	if p, ok := t.pending[key]; ok {
		if p.deleted {
			return nil, false, nil
		}
		return append([]byte(nil), p.value...), true, nil
	}
	return t.store.Get(key)
}

func (t *Txn) Set(key string, value []byte) {
	t.pending[key] = pending{value: append([]byte(nil), value...)}
}

func (t *Txn) Delete(key string) {
	t.pending[key] = pending{deleted: true}
}

// Commit applies the staged writes in key order so batches are deterministic.
func (t *Txn) Commit() error {
	if len(t.pending) == 0 {
		return nil
	}
	keys := make([]string, 0, len(t.pending))
	for k := range t.pending {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	ops := make([]Op, 0, len(keys))
	for _, k := range keys {
		p := t.pending[k]
		ops = append(ops, Op{Key: k, Value: p.value, Delete: p.deleted})
	}
	if err := t.store.Apply(ops); err != nil {
		return err
	}
	t.pending = make(map[string]pending)
	return nil
}

func (t *Txn) Discard() {
	t.pending = make(map[string]pending)
}

var _ Store = (*Txn)(nil)

// Apply stages ops on the overlay. A Txn can back a nested Txn this way.
func (t *Txn) Apply(ops []Op) error {
	for _, o := range ops {
		if o.Delete {
			t.Delete(o.Key)
		} else {
			t.Set(o.Key, o.Value)
		}
	}
	return nil
}

// Close drops the overlay, the underlying Store stays open.
func (t *Txn) Close() error {
	t.Discard()
	return nil
}

// Nest opens a child overlay. Its writes reach t only through Merge.
func (t *Txn) Nest() *Txn { return Begin(t) }

// Merge folds a child's staged writes into t and empties the child.
func (t *Txn) Merge(child *Txn) {
	for k, p := range child.pending {
		t.pending[k] = p
	}
	child.pending = make(map[string]pending)
}
