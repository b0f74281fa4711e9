package ports

import (
	"context"

	"personamux/internal/domain"
)

// Dispatcher submits one prompt on behalf of a persona and blocks until it
// reaches a terminal state. Implemented in-process by the broker and over
// the broker socket for short-lived CLI invocations.
type Dispatcher interface {
	Dispatch(ctx context.Context, id domain.PersonaID, prompt string) (domain.ResponseRecord, error)
}
