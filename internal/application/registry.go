package application

import (
	"context"
	"fmt"

	"personamux/internal/domain"
	"personamux/internal/ports"
)

// PaneRegistry assigns each persona a stable pane on the shared terminal
// surface. Addresses are allocated once and persisted in the session
// document, so repeated invocations and restarts reuse the same pane.
type PaneRegistry struct {
	store ports.SessionStore
	mux   ports.Multiplexer
}

func NewPaneRegistry(store ports.SessionStore, mux ports.Multiplexer) *PaneRegistry {
	return &PaneRegistry{store: store, mux: mux}
}

// Acquire returns the persona's pane address, allocating a new pane only
// when none is recorded. Allocation happens inside the store update, so
// concurrent callers serialize on the session lock and the first writer
// wins.
func (r *PaneRegistry) Acquire(ctx context.Context, id domain.PersonaID) (domain.PaneAddress, error) {
	if !id.Valid() {
		return "", fmt.Errorf("%w: %q", domain.ErrPersonaNotFound, id)
	}

	var address domain.PaneAddress
	_, err := r.store.Update(ctx, func(state *domain.SessionState) error {
		record := state.Personas[id]
		if record.PaneAddress != "" {
			address = record.PaneAddress
			return nil
		}

		created, createErr := r.mux.CreateOrSplitSurface(ctx)
		if createErr != nil {
			return fmt.Errorf("allocate pane for %s: %w", id, createErr)
		}

		record.PaneAddress = created
		state.Personas[id] = record
		address = created
		return nil
	})
	if err != nil {
		return "", err
	}

	// Relabeling an already-labeled pane is harmless, so this stays
	// outside the lock.
	if labelErr := r.mux.SetLabel(ctx, address, id.DisplayName()); labelErr != nil {
		return "", fmt.Errorf("label pane for %s: %w", id, labelErr)
	}

	return address, nil
}

// Resolve looks up a persona's recorded pane address. A valid persona
// without a pane yields an empty address and no error.
func (r *PaneRegistry) Resolve(ctx context.Context, id domain.PersonaID) (domain.PaneAddress, error) {
	if !id.Valid() {
		return "", fmt.Errorf("%w: %q", domain.ErrPersonaNotFound, id)
	}

	state, err := r.store.Read(ctx)
	if err != nil {
		return "", err
	}
	return state.Personas[id].PaneAddress, nil
}
