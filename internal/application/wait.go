package application

import (
	"context"
	"errors"
	"fmt"
	"time"

	"personamux/internal/domain"
	"personamux/internal/ports"
)

// WaitEngine polls the session store and response archive until a condition
// holds or a deadline passes. Polling keeps the engine indifferent to which
// process performs the write it is waiting for.
type WaitEngine struct {
	store   ports.SessionStore
	archive ports.ResponseArchive
	poll    time.Duration
}

func NewWaitEngine(store ports.SessionStore, archive ports.ResponseArchive, poll time.Duration) *WaitEngine {
	if poll <= 0 {
		poll = 500 * time.Millisecond
	}

	return &WaitEngine{store: store, archive: archive, poll: poll}
}

// WaitForStatus blocks until the persona's status is one of want. The total
// wait is bounded by timeout plus at most one poll interval.
func (w *WaitEngine) WaitForStatus(ctx context.Context, id domain.PersonaID, want []domain.Status, timeout time.Duration) (domain.PersonaRecord, error) {
	if !id.Valid() {
		return domain.PersonaRecord{}, fmt.Errorf("%w: %q", domain.ErrPersonaNotFound, id)
	}

	deadline := time.Now().Add(timeout)
	for {
		state, err := w.store.Read(ctx)
		if err != nil {
			return domain.PersonaRecord{}, err
		}

		record := state.Personas[id]
		for _, status := range want {
			if record.Status == status {
				return record, nil
			}
		}

		if err := w.sleep(ctx, deadline, id, "status"); err != nil {
			return domain.PersonaRecord{}, err
		}
	}
}

// WaitForNewResponse blocks until the persona's latest archived response
// differs from sinceRequestID. Pass an empty sinceRequestID to accept any
// archived response.
func (w *WaitEngine) WaitForNewResponse(ctx context.Context, id domain.PersonaID, sinceRequestID string, timeout time.Duration) (domain.ResponseRecord, error) {
	if !id.Valid() {
		return domain.ResponseRecord{}, fmt.Errorf("%w: %q", domain.ErrPersonaNotFound, id)
	}

	deadline := time.Now().Add(timeout)
	for {
		record, err := w.archive.Latest(ctx, id)
		switch {
		case errors.Is(err, domain.ErrNoResponse):
		case err != nil:
			return domain.ResponseRecord{}, err
		case record.RequestID != sinceRequestID:
			return record, nil
		}

		if err := w.sleep(ctx, deadline, id, "response"); err != nil {
			return domain.ResponseRecord{}, err
		}
	}
}

func (w *WaitEngine) sleep(ctx context.Context, deadline time.Time, id domain.PersonaID, what string) error {
	if !time.Now().Before(deadline) {
		return fmt.Errorf("%w: no %s change from %s", domain.ErrWaitTimeout, what, id)
	}

	timer := time.NewTimer(w.poll)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
