package server

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistryCaseInsensitive(t *testing.T) {
	r := NewRegistry()
	alice := &Session{username: "Alice"}
	require.NoError(t, r.Register(alice))
	assert.ErrorIs(t, r.Register(&Session{username: "aLiCe"}), ErrUsernameTaken)

	got, ok := r.Lookup("ALICE")
	require.True(t, ok)
	assert.Same(t, alice, got)
	assert.Equal(t, 1, r.Len())
}

func TestRegistryDeregisterOnlyOwner(t *testing.T) {
	r := NewRegistry()
	alice := &Session{username: "alice"}
	require.NoError(t, r.Register(alice))

	assert.False(t, r.Deregister(&Session{username: "alice"}))
	assert.Equal(t, 1, r.Len())
	assert.True(t, r.Deregister(alice))
	assert.Equal(t, 0, r.Len())
	assert.False(t, r.Deregister(alice))
}

func TestRegistrySessionsSorted(t *testing.T) {
	r := NewRegistry()
	for _, name := range []string{"carol", "Alice", "bob"} {
		require.NoError(t, r.Register(&Session{username: name}))
	}
	var names []string
	for _, s := range r.Sessions() {
		names = append(names, s.Username())
	}
	assert.Equal(t, []string{"Alice", "bob", "carol"}, names)
}

func TestRegistryConcurrentRegister(t *testing.T) {
	r := NewRegistry()
	var wg sync.WaitGroup
	var mu sync.Mutex
	won := 0
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if r.Register(&Session{username: "bob"}) == nil {
				mu.Lock()
				won++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, won)
	assert.Equal(t, 1, r.Len())
}
