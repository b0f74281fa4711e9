package application

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"personamux/internal/domain"
)

func TestInitOrRepairCreatesWorkspaceLayout(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	sharedDir := filepath.Join(dir, ".personamux")
	responsesDir := filepath.Join(sharedDir, "responses")

	service := NewSessionService(newMemStore(), nil)

	state, err := service.InitOrRepair(context.Background(), sharedDir, responsesDir)
	require.NoError(t, err)
	assert.Equal(t, domain.CurrentSchemaVersion, state.SchemaVersion)
	assert.Len(t, state.Personas, len(domain.PersonaOrder))

	for name := range sharedTemplates {
		body, readErr := os.ReadFile(filepath.Join(sharedDir, name))
		require.NoError(t, readErr, name)
		assert.NotEmpty(t, body, name)
	}

	info, err := os.Stat(responsesDir)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestInitOrRepairLeavesExistingTemplatesAlone(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	sharedDir := filepath.Join(dir, ".personamux")
	require.NoError(t, os.MkdirAll(sharedDir, 0o700))

	custom := []byte("# Work Context\n\nhand-edited notes\n")
	require.NoError(t, os.WriteFile(filepath.Join(sharedDir, "WORK_CONTEXT.md"), custom, 0o600))

	service := NewSessionService(newMemStore(), nil)

	_, err := service.InitOrRepair(context.Background(), sharedDir, filepath.Join(sharedDir, "responses"))
	require.NoError(t, err)

	body, err := os.ReadFile(filepath.Join(sharedDir, "WORK_CONTEXT.md"))
	require.NoError(t, err)
	assert.Equal(t, custom, body)
}

func TestInitOrRepairIsIdempotentUnderConcurrency(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	sharedDir := filepath.Join(dir, ".personamux")
	responsesDir := filepath.Join(sharedDir, "responses")

	store := newMemStore()
	service := NewSessionService(store, nil)

	const callers = 6
	var wg sync.WaitGroup
	errs := make([]error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = service.InitOrRepair(context.Background(), sharedDir, responsesDir)
		}(i)
	}
	wg.Wait()

	for i, err := range errs {
		require.NoError(t, err, "caller %d", i)
	}
}

func TestSetStatusUpdatesOnlyTargetPersona(t *testing.T) {
	t.Parallel()

	store := newMemStore()
	now := time.Unix(1700000500, 0).UTC()
	service := NewSessionService(store, frozenClock{now: now})

	state, err := service.SetStatus(context.Background(), domain.PersonaImpl, domain.StatusBlocked, "waiting on review")
	require.NoError(t, err)

	record := state.Personas[domain.PersonaImpl]
	assert.Equal(t, domain.StatusBlocked, record.Status)
	assert.Equal(t, "waiting on review", record.Message)
	assert.Equal(t, now, record.UpdatedAt)

	for _, other := range []domain.PersonaID{domain.PersonaPM, domain.PersonaReview, domain.PersonaDocs} {
		assert.Equal(t, domain.StatusIdle, state.Personas[other].Status, other)
	}
}

func TestSetStatusAcrossAllPersonas(t *testing.T) {
	t.Parallel()

	store := newMemStore()
	service := NewSessionService(store, nil)

	transitions := map[domain.PersonaID]domain.Status{
		domain.PersonaPM:     domain.StatusWorking,
		domain.PersonaImpl:   domain.StatusDone,
		domain.PersonaReview: domain.StatusWaiting,
		domain.PersonaDocs:   domain.StatusBlocked,
	}

	for id, status := range transitions {
		_, err := service.SetStatus(context.Background(), id, status, "")
		require.NoError(t, err)
	}

	state, err := service.Snapshot(context.Background())
	require.NoError(t, err)
	for id, status := range transitions {
		assert.Equal(t, status, state.Personas[id].Status, id)
	}
}

func TestSetStatusRejectsInvalidInput(t *testing.T) {
	t.Parallel()

	service := NewSessionService(newMemStore(), nil)

	_, err := service.SetStatus(context.Background(), domain.PersonaID("ghost"), domain.StatusIdle, "")
	require.ErrorIs(t, err, domain.ErrPersonaNotFound)

	_, err = service.SetStatus(context.Background(), domain.PersonaPM, domain.Status("napping"), "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown status")
}
