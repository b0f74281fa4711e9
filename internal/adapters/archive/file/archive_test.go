package file

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"personamux/internal/domain"
)

func TestArchiveRoundTrip(t *testing.T) {
	t.Parallel()

	archive := NewArchive(t.TempDir())
	ctx := context.Background()

	record := domain.ResponseRecord{
		PersonaID:   domain.PersonaImpl,
		RequestID:   "req-1",
		Text:        "first answer\nwith two lines\n",
		CompletedAt: time.Date(2026, 8, 26, 9, 30, 0, 0, time.UTC),
	}
	require.NoError(t, archive.Store(ctx, record))

	got, err := archive.Latest(ctx, domain.PersonaImpl)
	require.NoError(t, err)
	assert.Equal(t, record, got)
}

func TestArchiveOverwriteSupersedesPriorRecord(t *testing.T) {
	t.Parallel()

	archive := NewArchive(t.TempDir())
	ctx := context.Background()

	first := domain.ResponseRecord{
		PersonaID:   domain.PersonaPM,
		RequestID:   "req-1",
		Text:        "old",
		CompletedAt: time.Date(2026, 8, 26, 9, 0, 0, 0, time.UTC),
	}
	second := domain.ResponseRecord{
		PersonaID:   domain.PersonaPM,
		RequestID:   "req-2",
		Text:        "new",
		CompletedAt: first.CompletedAt.Add(time.Minute),
	}
	require.NoError(t, archive.Store(ctx, first))
	require.NoError(t, archive.Store(ctx, second))

	got, err := archive.Latest(ctx, domain.PersonaPM)
	require.NoError(t, err)
	assert.Equal(t, second, got)
}

func TestArchiveLatestWithoutRecord(t *testing.T) {
	t.Parallel()

	archive := NewArchive(t.TempDir())

	_, err := archive.Latest(context.Background(), domain.PersonaDocs)
	require.ErrorIs(t, err, domain.ErrNoResponse)
}

func TestArchiveRejectsUnknownPersona(t *testing.T) {
	t.Parallel()

	archive := NewArchive(t.TempDir())
	ctx := context.Background()

	_, err := archive.Latest(ctx, "intern")
	require.ErrorIs(t, err, domain.ErrPersonaNotFound)

	err = archive.Store(ctx, domain.ResponseRecord{PersonaID: "intern"})
	require.ErrorIs(t, err, domain.ErrPersonaNotFound)
}

func TestArchiveTextReadableWithoutDecoder(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	archive := NewArchive(root)

	require.NoError(t, archive.Store(context.Background(), domain.ResponseRecord{
		PersonaID:   domain.PersonaReview,
		RequestID:   "req-9",
		Text:        "plain text payload",
		CompletedAt: time.Now(),
	}))

	data, err := os.ReadFile(filepath.Join(root, "review.last.txt"))
	require.NoError(t, err)
	assert.Equal(t, "plain text payload", string(data))
}
