package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPersonaIDValid(t *testing.T) {
	t.Parallel()

	for _, id := range PersonaOrder {
		assert.True(t, id.Valid(), id)
	}
	assert.False(t, PersonaID("ghost").Valid())
	assert.False(t, PersonaID("").Valid())
}

func TestPersonaDisplayName(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "Project Manager", PersonaPM.DisplayName())
	assert.Equal(t, "ghost", PersonaID("ghost").DisplayName())
}

func TestStatusValid(t *testing.T) {
	t.Parallel()

	for _, status := range AllStatuses {
		assert.True(t, status.Valid(), status)
	}
	assert.False(t, Status("napping").Valid())
	assert.False(t, Status("").Valid())
}

func TestNewSessionStateCoversFixedPersonaSet(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 8, 26, 9, 0, 0, 0, time.UTC)
	state := NewSessionState("personamux", "/work/project", now)

	assert.Equal(t, CurrentSchemaVersion, state.SchemaVersion)
	assert.Equal(t, "personamux", state.SessionName)
	assert.Equal(t, "/work/project", state.RootPath)
	assert.Equal(t, now, state.CreatedAt)
	require.Len(t, state.Personas, len(PersonaOrder))

	for _, id := range PersonaOrder {
		record, ok := state.Personas[id]
		require.True(t, ok, id)
		assert.Equal(t, StatusIdle, record.Status)
		assert.Equal(t, Personas[id], record.DisplayName)
		assert.Equal(t, now, record.UpdatedAt)
		assert.Empty(t, record.PaneAddress)
	}
}
