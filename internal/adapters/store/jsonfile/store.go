package jsonfile

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gofrs/flock"

	"personamux/internal/domain"
	"personamux/internal/ports"
)

const (
	sessionFileMode = 0o600
	sessionDirMode  = 0o700
	lockRetryDelay  = 25 * time.Millisecond
	tempFilePattern = ".session-*.json.tmp"
)

// Store persists the session document as JSON guarded by an advisory flock
// on a dedicated lock file. All mutations are lock-serialized read-modify-
// write cycles followed by an atomic temp-file rename, so concurrent readers
// only ever observe a fully written document.
type Store struct {
	path        string
	lockPath    string
	sessionName string
	rootPath    string
	lockTimeout time.Duration
	clock       ports.Clock
}

var _ ports.SessionStore = (*Store)(nil)

func NewStore(path, sessionName, rootPath string, lockTimeout time.Duration, clock ports.Clock) *Store {
	if clock == nil {
		clock = ports.SystemClock{}
	}

	path = filepath.Clean(path)
	return &Store{
		path:        path,
		lockPath:    path + ".lock",
		sessionName: sessionName,
		rootPath:    rootPath,
		lockTimeout: lockTimeout,
		clock:       clock,
	}
}

// Read loads and repairs the document. It never fails on malformed bytes:
// the unreadable artifact is renamed with a corrupt suffix, preserved, and a
// fresh default document is written in its place.
func (s *Store) Read(ctx context.Context) (domain.SessionState, error) {
	unlock, err := s.acquireLock(ctx)
	if err != nil {
		return domain.SessionState{}, err
	}
	defer unlock()

	return s.readLocked()
}

// Update runs mutate inside the lock and atomically replaces the file. A
// mutator error aborts the write and leaves the document untouched.
func (s *Store) Update(ctx context.Context, mutate ports.Mutator) (domain.SessionState, error) {
	unlock, err := s.acquireLock(ctx)
	if err != nil {
		return domain.SessionState{}, err
	}
	defer unlock()

	state, err := s.readLocked()
	if err != nil {
		return domain.SessionState{}, err
	}

	if err := mutate(&state); err != nil {
		return domain.SessionState{}, fmt.Errorf("mutate session state: %w", err)
	}

	if err := s.writeLocked(state); err != nil {
		return domain.SessionState{}, err
	}

	return state, nil
}

func (s *Store) acquireLock(ctx context.Context) (func(), error) {
	if err := os.MkdirAll(filepath.Dir(s.lockPath), sessionDirMode); err != nil {
		return nil, fmt.Errorf("create session directory: %w", err)
	}

	lockCtx, cancel := context.WithTimeout(ctx, s.lockTimeout)
	defer cancel()

	fl := flock.New(s.lockPath)
	locked, err := fl.TryLockContext(lockCtx, lockRetryDelay)
	if err != nil && !errors.Is(err, context.DeadlineExceeded) && !errors.Is(err, context.Canceled) {
		return nil, fmt.Errorf("acquire session lock: %w", err)
	}
	if !locked {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, fmt.Errorf("%w: %s held for more than %s", domain.ErrLockTimeout, s.lockPath, s.lockTimeout)
	}

	return func() { _ = fl.Unlock() }, nil
}

// readLocked assumes the lock is held.
func (s *Store) readLocked() (domain.SessionState, error) {
	now := s.clock.Now()

	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return s.initLocked(now)
	}
	if err != nil {
		return domain.SessionState{}, fmt.Errorf("read session file: %w", err)
	}

	if len(strings.TrimSpace(string(data))) == 0 {
		return s.initLocked(now)
	}

	var file fileSchema
	if err := json.Unmarshal(data, &file); err != nil {
		if err := s.preserveCorrupt(now); err != nil {
			return domain.SessionState{}, err
		}
		return s.initLocked(now)
	}

	if err := migrate(&file); err != nil {
		return domain.SessionState{}, err
	}

	return normalize(file, s.sessionName, s.rootPath, now), nil
}

// initLocked writes and returns a fresh default document.
func (s *Store) initLocked(now time.Time) (domain.SessionState, error) {
	state := domain.NewSessionState(s.sessionName, s.rootPath, now)
	if err := s.writeLocked(state); err != nil {
		return domain.SessionState{}, err
	}
	return state, nil
}

// preserveCorrupt moves the unreadable artifact aside so its bytes survive
// for inspection. Recovery is silent toward the caller.
func (s *Store) preserveCorrupt(now time.Time) error {
	stamp := strings.ReplaceAll(now.UTC().Format("2006-01-02T15:04:05Z"), ":", "")
	corruptPath := fmt.Sprintf("%s.corrupt-%s", s.path, stamp)
	if err := os.Rename(s.path, corruptPath); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("preserve corrupt session file: %w", err)
	}
	return nil
}

// writeLocked serializes to a temp file in the same directory, flushes it to
// stable storage, then renames it over the data file.
func (s *Store) writeLocked(state domain.SessionState) error {
	data, err := json.MarshalIndent(toSchema(state), "", "  ")
	if err != nil {
		return fmt.Errorf("encode session file: %w", err)
	}
	data = append(data, '\n')

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, sessionDirMode); err != nil {
		return fmt.Errorf("create session directory: %w", err)
	}

	tempFile, err := os.CreateTemp(dir, tempFilePattern)
	if err != nil {
		return fmt.Errorf("create temp session file: %w", err)
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
		return fmt.Errorf("write temp session file: %w", err)
	}

	if err := tempFile.Sync(); err != nil {
		_ = tempFile.Close()
		return fmt.Errorf("sync temp session file: %w", err)
	}

	if err := tempFile.Chmod(sessionFileMode); err != nil {
		_ = tempFile.Close()
		return fmt.Errorf("chmod temp session file: %w", err)
	}

	if err := tempFile.Close(); err != nil {
		return fmt.Errorf("close temp session file: %w", err)
	}

	if err := os.Rename(tempName, s.path); err != nil {
		return fmt.Errorf("replace session file: %w", err)
	}

	cleanup = false
	syncDir(dir)

	return nil
}

// syncDir flushes the directory entry so the rename survives a crash. Best
// effort: some filesystems reject directory fsync.
func syncDir(dir string) {
	handle, err := os.Open(dir)
	if err != nil {
		return
	}
	defer handle.Close()
	_ = handle.Sync()
}
