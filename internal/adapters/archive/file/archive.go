package file

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	toml "github.com/pelletier/go-toml/v2"

	"personamux/internal/domain"
	"personamux/internal/ports"
)

const (
	archiveDirMode  = 0o700
	archiveFileMode = 0o600
)

// metaSchema is the per-persona record metadata, stored next to the raw
// response text. The text lives in its own file so other tooling can read it
// without a decoder.
type metaSchema struct {
	PersonaID   string `toml:"persona_id"`
	RequestID   string `toml:"request_id"`
	CompletedAt string `toml:"completed_at"`
}

// Archive keeps one latest response per persona under root. Writes are
// full-record replacements through temp-file renames; the broker is the only
// writer, so unsynchronized reads are safe.
type Archive struct {
	root string
}

var _ ports.ResponseArchive = (*Archive)(nil)

func NewArchive(root string) *Archive {
	return &Archive{root: filepath.Clean(root)}
}

func (a *Archive) Latest(ctx context.Context, id domain.PersonaID) (domain.ResponseRecord, error) {
	if err := ctx.Err(); err != nil {
		return domain.ResponseRecord{}, err
	}
	if !id.Valid() {
		return domain.ResponseRecord{}, fmt.Errorf("%w: %q", domain.ErrPersonaNotFound, id)
	}

	metaBytes, err := os.ReadFile(a.metaPath(id))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return domain.ResponseRecord{}, fmt.Errorf("%w: persona %s", domain.ErrNoResponse, id)
		}
		return domain.ResponseRecord{}, fmt.Errorf("read response metadata: %w", err)
	}

	var meta metaSchema
	if err := toml.Unmarshal(metaBytes, &meta); err != nil {
		return domain.ResponseRecord{}, fmt.Errorf("decode response metadata: %w", err)
	}

	text, err := os.ReadFile(a.textPath(id))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return domain.ResponseRecord{}, fmt.Errorf("read response text: %w", err)
	}

	completedAt, _ := time.Parse(time.RFC3339Nano, meta.CompletedAt)

	return domain.ResponseRecord{
		PersonaID:   id,
		RequestID:   meta.RequestID,
		Text:        string(text),
		CompletedAt: completedAt,
	}, nil
}

func (a *Archive) Store(ctx context.Context, record domain.ResponseRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if !record.PersonaID.Valid() {
		return fmt.Errorf("%w: %q", domain.ErrPersonaNotFound, record.PersonaID)
	}

	if err := os.MkdirAll(a.root, archiveDirMode); err != nil {
		return fmt.Errorf("create response archive directory: %w", err)
	}

	if err := a.replaceFile(a.textPath(record.PersonaID), []byte(record.Text)); err != nil {
		return fmt.Errorf("write response text: %w", err)
	}

	meta := metaSchema{
		PersonaID:   string(record.PersonaID),
		RequestID:   record.RequestID,
		CompletedAt: record.CompletedAt.UTC().Format(time.RFC3339Nano),
	}
	metaBytes, err := toml.Marshal(meta)
	if err != nil {
		return fmt.Errorf("encode response metadata: %w", err)
	}

	// Metadata lands second: its presence marks a complete record.
	if err := a.replaceFile(a.metaPath(record.PersonaID), metaBytes); err != nil {
		return fmt.Errorf("write response metadata: %w", err)
	}

	return nil
}

func (a *Archive) replaceFile(path string, data []byte) error {
	tempFile, err := os.CreateTemp(a.root, ".response-*.tmp")
	if err != nil {
		return err
	}

	tempName := tempFile.Name()
	cleanup := true
	defer func() {
		if cleanup {
			_ = os.Remove(tempName)
		}
	}()

	if _, err := tempFile.Write(data); err != nil {
		_ = tempFile.Close()
		return err
	}
	if err := tempFile.Chmod(archiveFileMode); err != nil {
		_ = tempFile.Close()
		return err
	}
	if err := tempFile.Close(); err != nil {
		return err
	}
	if err := os.Rename(tempName, path); err != nil {
		return err
	}

	cleanup = false
	return nil
}

func (a *Archive) textPath(id domain.PersonaID) string {
	return filepath.Join(a.root, string(id)+".last.txt")
}

func (a *Archive) metaPath(id domain.PersonaID) string {
	return filepath.Join(a.root, string(id)+".last.toml")
}
