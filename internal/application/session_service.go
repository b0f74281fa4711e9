package application

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"personamux/internal/domain"
	"personamux/internal/ports"
)

// SessionService carries the lifecycle operations every CLI entrypoint
// shares: bootstrapping the shared workspace, reading a snapshot and
// recording status transitions. All state changes funnel through the
// session store so concurrent invocations serialize on its lock.
type SessionService struct {
	store ports.SessionStore
	clock ports.Clock
}

func NewSessionService(store ports.SessionStore, clock ports.Clock) *SessionService {
	if clock == nil {
		clock = ports.SystemClock{}
	}

	return &SessionService{store: store, clock: clock}
}

// sharedTemplates are created empty under the shared directory on init so
// every persona has a known place to exchange long-form notes.
var sharedTemplates = map[string]string{
	"WORK_CONTEXT.md": "# Work Context\n\nShared notes about the current effort. Any persona may append.\n",
	"DECISIONS.md":    "# Decisions\n\nRecord decisions here so later work does not relitigate them.\n",
	"HANDOFF.md":      "# Handoffs\n\nWrite handoff notes here when passing work between personas.\n",
}

// InitOrRepair makes the shared directory usable: directories and template
// files exist, and the session document parses. It is idempotent, and safe
// to run from several processes at once because the first Read initializes
// the document under the session lock.
func (s *SessionService) InitOrRepair(ctx context.Context, sharedDir, responsesDir string) (domain.SessionState, error) {
	if err := os.MkdirAll(sharedDir, 0o700); err != nil {
		return domain.SessionState{}, fmt.Errorf("create shared directory: %w", err)
	}
	if err := os.MkdirAll(responsesDir, 0o700); err != nil {
		return domain.SessionState{}, fmt.Errorf("create responses directory: %w", err)
	}

	for name, body := range sharedTemplates {
		path := filepath.Join(sharedDir, name)
		if _, err := os.Stat(path); err == nil {
			continue
		}
		if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
			return domain.SessionState{}, fmt.Errorf("write shared template %s: %w", name, err)
		}
	}

	state, err := s.store.Read(ctx)
	if err != nil {
		return domain.SessionState{}, fmt.Errorf("initialize session state: %w", err)
	}
	return state, nil
}

// Snapshot returns the current session state, recovering and migrating the
// document if needed.
func (s *SessionService) Snapshot(ctx context.Context) (domain.SessionState, error) {
	return s.store.Read(ctx)
}

// SetStatus records a persona's status with an optional free-form message.
func (s *SessionService) SetStatus(ctx context.Context, id domain.PersonaID, status domain.Status, message string) (domain.SessionState, error) {
	if !id.Valid() {
		return domain.SessionState{}, fmt.Errorf("%w: %q", domain.ErrPersonaNotFound, id)
	}
	if !status.Valid() {
		return domain.SessionState{}, fmt.Errorf("unknown status %q", status)
	}

	return s.store.Update(ctx, func(state *domain.SessionState) error {
		record := state.Personas[id]
		record.Status = status
		record.Message = message
		record.UpdatedAt = s.clock.Now()
		state.Personas[id] = record
		return nil
	})
}
