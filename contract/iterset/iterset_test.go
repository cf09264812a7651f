package iterset_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pooled_fund/contract/iterset"
	"pooled_fund/contract/state"
	"pooled_fund/sdk"
)

func addr(n uint64) sdk.Address { return sdk.NumberedAddress(n) }

func TestAddContainsRemove(t *testing.T) {
	tx := state.Begin(state.NewMemoryStore())
	s := iterset.New("\x01")

	added, err := s.Add(tx, addr(1))
	require.NoError(t, err)
	assert.True(t, added)
	added, _ = s.Add(tx, addr(1))
	assert.False(t, added, "double add is a no-op")
	_, _ = s.Add(tx, addr(2))
	_, _ = s.Add(tx, addr(3))

	n, _ := s.Len(tx)
	assert.Equal(t, uint64(3), n)

	// removing the head shifts the rest down in order
	removed, err := s.Remove(tx, addr(1))
	require.NoError(t, err)
	assert.True(t, removed)
	items, _ := s.Items(tx)
	assert.Equal(t, []sdk.Address{addr(2), addr(3)}, items)

	in, _ := s.Contains(tx, addr(1))
	assert.False(t, in)
	in, _ = s.Contains(tx, addr(3))
	assert.True(t, in)

	removed, _ = s.Remove(tx, addr(9))
	assert.False(t, removed)

	// tail removal and re-adding a removed element
	_, _ = s.Remove(tx, addr(2))
	_, _ = s.Add(tx, addr(1))
	items, _ = s.Items(tx)
	assert.Equal(t, []sdk.Address{addr(3), addr(1)}, items)

	_, err = s.At(tx, 2)
	require.ErrorIs(t, err, state.ErrIndexOutOfRange)
}

// TestSetsAreIsolated makes sure two prefixes dont see each others entries.
func TestSetsAreIsolated(t *testing.T) {
	tx := state.Begin(state.NewMemoryStore())
	a, b := iterset.New("\x01"), iterset.New("\x02")
	_, _ = a.Add(tx, addr(1))
	in, _ := b.Contains(tx, addr(1))
	assert.False(t, in)
	n, _ := b.Len(tx)
	assert.Zero(t, n)
}

func TestRemoveKeepsInsertionOrder(t *testing.T) {
	tx := state.Begin(state.NewMemoryStore())
	s := iterset.New("\x03")
	for i := uint64(1); i <= 6; i++ {
		_, _ = s.Add(tx, addr(i))
	}
	for _, i := range []uint64{3, 1, 6} {
		removed, err := s.Remove(tx, addr(i))
		require.NoError(t, err)
		require.True(t, removed)
	}
	items, err := s.Items(tx)
	require.NoError(t, err)
	assert.Equal(t, []sdk.Address{addr(2), addr(4), addr(5)}, items)

	// shifted elements still know their slot
	removed, err := s.Remove(tx, addr(4))
	require.NoError(t, err)
	require.True(t, removed)
	_, _ = s.Add(tx, addr(7))
	items, _ = s.Items(tx)
	assert.Equal(t, []sdk.Address{addr(2), addr(5), addr(7)}, items)
	first, err := s.At(tx, 0)
	require.NoError(t, err)
	assert.Equal(t, addr(2), first)
}

func TestRemoveEverything(t *testing.T) {
	store := state.NewMemoryStore()
	tx := state.Begin(store)
	s := iterset.New("\x05")
	for i := uint64(1); i <= 5; i++ {
		_, _ = s.Add(tx, addr(i))
	}
	for i := uint64(1); i <= 5; i++ {
		removed, err := s.Remove(tx, addr(i))
		require.NoError(t, err)
		require.True(t, removed)
	}
	require.NoError(t, tx.Commit())
	n, _ := s.Len(store)
	assert.Zero(t, n)
	// only the zeroed counter remains
	assert.Equal(t, 1, store.Len())
}
