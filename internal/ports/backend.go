package ports

import "context"

// Backend is the single long-lived conversational process. It accepts one
// prompt at a time; exclusive use is enforced by the broker, not here.
type Backend interface {
	Send(ctx context.Context, prompt string) (string, error)
}
