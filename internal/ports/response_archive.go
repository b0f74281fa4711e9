package ports

import (
	"context"

	"personamux/internal/domain"
)

// ResponseArchive keeps the latest response per persona. Records are
// full-record replacements written by the broker only; unsynchronized reads
// are tolerated.
type ResponseArchive interface {
	// Latest returns domain.ErrNoResponse when nothing has been archived yet.
	Latest(ctx context.Context, id domain.PersonaID) (domain.ResponseRecord, error)
	Store(ctx context.Context, record domain.ResponseRecord) error
}
