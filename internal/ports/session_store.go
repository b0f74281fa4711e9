package ports

import (
	"context"

	"personamux/internal/domain"
)

// Mutator edits a session document in place during a locked
// read-modify-write cycle. Returning an error aborts the write.
type Mutator func(*domain.SessionState) error

// SessionStore owns the on-disk session document. Read never fails on
// malformed content (the artifact is preserved and a default document takes
// its place); Update linearizes all mutations behind an exclusive lock and
// an atomic replace, so a partially written document is never observable.
type SessionStore interface {
	Read(ctx context.Context) (domain.SessionState, error)
	Update(ctx context.Context, mutate Mutator) (domain.SessionState, error)
}
