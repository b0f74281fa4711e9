package application

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"personamux/internal/domain"
)

func TestAcquireAllocatesOncePerPersona(t *testing.T) {
	t.Parallel()

	store := newMemStore()
	mux := &fakeMux{}
	registry := NewPaneRegistry(store, mux)

	first, err := registry.Acquire(context.Background(), domain.PersonaPM)
	require.NoError(t, err)
	require.NotEmpty(t, first)

	second, err := registry.Acquire(context.Background(), domain.PersonaPM)
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, 1, mux.panes)
}

func TestAcquireAssignsDistinctPanes(t *testing.T) {
	t.Parallel()

	registry := NewPaneRegistry(newMemStore(), &fakeMux{})

	seen := map[domain.PaneAddress]domain.PersonaID{}
	for _, id := range domain.PersonaOrder {
		address, err := registry.Acquire(context.Background(), id)
		require.NoError(t, err)
		require.NotEmpty(t, address)
		prev, dup := seen[address]
		require.False(t, dup, "pane %s assigned to both %s and %s", address, prev, id)
		seen[address] = id
	}
}

func TestAcquireConcurrentCallersShareOnePane(t *testing.T) {
	t.Parallel()

	store := newMemStore()
	mux := &fakeMux{}
	registry := NewPaneRegistry(store, mux)

	const callers = 8
	addresses := make([]domain.PaneAddress, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			address, err := registry.Acquire(context.Background(), domain.PersonaImpl)
			assert.NoError(t, err)
			addresses[i] = address
		}(i)
	}
	wg.Wait()

	for _, address := range addresses[1:] {
		assert.Equal(t, addresses[0], address)
	}
	assert.Equal(t, 1, mux.panes)
}

func TestAcquirePersistsAddressInSession(t *testing.T) {
	t.Parallel()

	store := newMemStore()
	registry := NewPaneRegistry(store, &fakeMux{})

	address, err := registry.Acquire(context.Background(), domain.PersonaDocs)
	require.NoError(t, err)

	state, err := store.Read(context.Background())
	require.NoError(t, err)
	assert.Equal(t, address, state.Personas[domain.PersonaDocs].PaneAddress)
}

func TestResolveUnassignedPersonaReturnsEmptyAddress(t *testing.T) {
	t.Parallel()

	registry := NewPaneRegistry(newMemStore(), &fakeMux{})

	address, err := registry.Resolve(context.Background(), domain.PersonaReview)
	require.NoError(t, err)
	assert.Empty(t, address)
}

func TestRegistryRejectsUnknownPersona(t *testing.T) {
	t.Parallel()

	registry := NewPaneRegistry(newMemStore(), &fakeMux{})

	_, err := registry.Acquire(context.Background(), domain.PersonaID("ghost"))
	require.ErrorIs(t, err, domain.ErrPersonaNotFound)

	_, err = registry.Resolve(context.Background(), domain.PersonaID("ghost"))
	require.ErrorIs(t, err, domain.ErrPersonaNotFound)
}
