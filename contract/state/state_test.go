package state_test

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pooled_fund/contract/state"
)

// stores runs every check against both backends so they dont drift apart.
func stores(t *testing.T) map[string]state.Store {
	t.Helper()
	b, err := state.NewBadgerStore()
	require.NoError(t, err)
	t.Cleanup(func() { _ = b.Close() })
	return map[string]state.Store{
		"memory": state.NewMemoryStore(),
		"badger": b,
	}
}

func TestTxnCommitAndDiscard(t *testing.T) {
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			tx := state.Begin(s)
			tx.Set("a", []byte("1"))
			tx.Set("b", []byte("2"))

			// staged writes are visible inside the txn only
			v, ok, err := tx.Get("a")
			require.NoError(t, err)
			require.True(t, ok)
			assert.Equal(t, []byte("1"), v)
			_, ok, _ = s.Get("a")
			assert.False(t, ok)

			require.NoError(t, tx.Commit())
			v, ok, _ = s.Get("b")
			require.True(t, ok)
			assert.Equal(t, []byte("2"), v)

			tx = state.Begin(s)
			tx.Delete("a")
			tx.Set("c", []byte("3"))
			_, ok, _ = tx.Get("a")
			assert.False(t, ok)
			tx.Discard()
			require.NoError(t, tx.Commit())

			_, ok, _ = s.Get("a")
			assert.True(t, ok, "discarded delete must not reach the store")
			_, ok, _ = s.Get("c")
			assert.False(t, ok)
		})
	}
}

func TestNestedTxn(t *testing.T) {
	s := state.NewMemoryStore()
	require.NoError(t, s.Apply([]state.Op{{Key: "a", Value: []byte("1")}, {Key: "b", Value: []byte("2")}}))

	tx := state.Begin(s)
	tx.Set("a", []byte("10"))

	child := tx.Nest()
	v, _, err := child.Get("a")
	require.NoError(t, err)
	assert.Equal(t, []byte("10"), v, "child reads through the parent overlay")
	child.Set("c", []byte("3"))
	child.Delete("b")

	_, ok, _ := tx.Get("c")
	assert.False(t, ok, "child writes stay in the child until merged")

	dropped := tx.Nest()
	dropped.Set("d", []byte("4"))

	tx.Merge(child)
	_, ok, _ = tx.Get("b")
	assert.False(t, ok)
	v, ok, _ = tx.Get("c")
	require.True(t, ok)
	assert.Equal(t, []byte("3"), v)
	_, ok, _ = s.Get("c")
	assert.False(t, ok, "merging does not reach the store")

	require.NoError(t, tx.Commit())
	_, ok, _ = s.Get("b")
	assert.False(t, ok)
	_, ok, _ = s.Get("d")
	assert.False(t, ok, "an unmerged child is dropped")
	v, _, _ = s.Get("a")
	assert.Equal(t, []byte("10"), v)
}

func TestLog(t *testing.T) {
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			l := state.NewLog("\x01log")
			tx := state.Begin(s)

			_, ok, err := l.Last(tx)
			require.NoError(t, err)
			assert.False(t, ok)

			i0, _ := l.Append(tx, []byte("first"))
			i1, _ := l.Append(tx, []byte("second"))
			assert.Equal(t, uint64(0), i0)
			assert.Equal(t, uint64(1), i1)
			require.NoError(t, tx.Commit())

			n, _ := l.Len(s)
			assert.Equal(t, uint64(2), n)
			last, ok, _ := l.Last(s)
			require.True(t, ok)
			assert.Equal(t, []byte("second"), last)

			tx = state.Begin(s)
			require.NoError(t, l.Replace(tx, 0, []byte("changed")))
			require.ErrorIs(t, l.Replace(tx, 5, nil), state.ErrIndexOutOfRange)
			require.NoError(t, tx.Commit())

			all, err := l.All(s)
			require.NoError(t, err)
			assert.Equal(t, [][]byte{[]byte("changed"), []byte("second")}, all)

			_, err = l.At(s, 2)
			require.ErrorIs(t, err, state.ErrIndexOutOfRange)
		})
	}
}

// TestFileBackedStoreReload checks binary keys survive the JSON snapshot.
func TestFileBackedStoreReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	s, err := state.NewFileBackedStore(path)
	require.NoError(t, err)
	require.NoError(t, s.Apply([]state.Op{{Key: "\x00\xff\x10", Value: []byte{1, 2, 3}}}))

	again, err := state.NewFileBackedStore(path)
	require.NoError(t, err)
	v, ok, err := again.Get("\x00\xff\x10")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []byte{1, 2, 3}, v)
}

func TestBadgerStoreReopen(t *testing.T) {
	dir := t.TempDir()
	s, err := state.NewBadgerStore(state.WithDataDir(dir))
	require.NoError(t, err)
	require.NoError(t, s.Apply([]state.Op{{Key: "k", Value: []byte("v")}}))
	require.NoError(t, s.Close())

	s, err = state.NewBadgerStore(state.WithDataDir(dir))
	require.NoError(t, err)
	defer s.Close()
	v, ok, err := s.Get("k")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []byte("v"), v)
}

func TestClosedStore(t *testing.T) {
	s := state.NewMemoryStore()
	require.NoError(t, s.Close())
	_, _, err := s.Get("a")
	require.ErrorIs(t, err, state.ErrStoreClosed)
	require.ErrorIs(t, s.Apply(nil), state.ErrStoreClosed)
}
