package domain

import "time"

// ResponseRecord is the latest completed backend response for one persona.
// It is overwritten on every completed dispatch and never deleted during a
// session.
type ResponseRecord struct {
	PersonaID   PersonaID
	RequestID   string
	Text        string
	CompletedAt time.Time
}

// DispatchRequest is a transient, queue-only submission. It is never
// persisted and never retried after failure.
type DispatchRequest struct {
	RequestID  string
	PersonaID  PersonaID
	PromptText string
	EnqueuedAt time.Time
}
