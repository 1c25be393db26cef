package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// both implementations must behave identically.
func stores(t *testing.T) map[string]Store {
	t.Helper()
	fileStore, err := NewFile(t.TempDir())
	require.NoError(t, err)
	return map[string]Store{
		"memory": NewMemory(),
		"file":   fileStore,
	}
}

func TestStore_roundTrip(t *testing.T) {
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			want := map[string]string{"U1": "alice", "U2": "bob"}
			require.NoError(t, s.Set("user_cache", want))

			var got map[string]string
			require.NoError(t, s.Get("user_cache", &got))
			assert.Equal(t, want, got)
		})
	}
}

func TestStore_missingKey(t *testing.T) {
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			var v map[string]string
			assert.ErrorIs(t, s.Get("nope", &v), ErrNotFound)
		})
	}
}

func TestStore_remove(t *testing.T) {
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, s.Set("k", "v"))
			require.NoError(t, s.Remove("k"))
			var v string
			assert.ErrorIs(t, s.Get("k", &v), ErrNotFound)
			assert.NoError(t, s.Remove("k"), "removing an absent key is not an error")
		})
	}
}

func TestStore_overwrite(t *testing.T) {
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, s.Set("k", "old"))
			require.NoError(t, s.Set("k", "new"))
			var v string
			require.NoError(t, s.Get("k", &v))
			assert.Equal(t, "new", v)
		})
	}
}

func TestFile_keyEscaping(t *testing.T) {
	s, err := NewFile(t.TempDir())
	require.NoError(t, err)
	require.NoError(t, s.Set("../evil/key", "v"))
	var v string
	require.NoError(t, s.Get("../evil/key", &v))
	assert.Equal(t, "v", v)
}
