package domain

import "errors"

var (
	// ErrLockTimeout: contention on the session lock exceeded its bound.
	// Retryable; no state was changed.
	ErrLockTimeout = errors.New("session lock acquisition timed out")

	// ErrSchemaMigration: the on-disk document cannot be deterministically
	// repaired (e.g. written by a newer build). Fatal; data is never
	// silently discarded.
	ErrSchemaMigration = errors.New("session schema cannot be migrated")

	// ErrPersonaNotFound: caller named an identifier outside the fixed set.
	ErrPersonaNotFound = errors.New("persona not found")

	// ErrBackendDispatch: the upstream backend failed or exceeded its
	// per-call timeout. The prior archived response is left intact.
	ErrBackendDispatch = errors.New("backend dispatch failed")

	// ErrWaitTimeout: a wait bound elapsed before the condition was
	// observed. Not a failure of the underlying condition.
	ErrWaitTimeout = errors.New("wait timed out")

	// ErrNoResponse: no response has been archived yet for the persona.
	ErrNoResponse = errors.New("no archived response")
)
