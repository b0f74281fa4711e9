package ports

import (
	"context"

	"personamux/internal/domain"
)

// Multiplexer is the terminal-multiplexer capability consumed by the core.
// Only these four operations are required; addresses are opaque tokens,
// never positional indices.
type Multiplexer interface {
	// CreateOrSplitSurface creates a new terminal surface (splitting the
	// session layout as needed) and returns its stable address.
	CreateOrSplitSurface(ctx context.Context) (domain.PaneAddress, error)
	// SetLabel is idempotent and may be re-issued any number of times.
	SetLabel(ctx context.Context, addr domain.PaneAddress, label string) error
	SendText(ctx context.Context, addr domain.PaneAddress, text string) error
	Focus(ctx context.Context, addr domain.PaneAddress) error
}
