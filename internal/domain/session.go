package domain

import "time"

type Status string

const (
	StatusIdle    Status = "idle"
	StatusWorking Status = "working"
	StatusWaiting Status = "waiting"
	StatusDone    Status = "done"
	StatusBlocked Status = "blocked"
)

var AllStatuses = []Status{StatusIdle, StatusWorking, StatusWaiting, StatusDone, StatusBlocked}

func (s Status) Valid() bool {
	for _, known := range AllStatuses {
		if s == known {
			return true
		}
	}
	return false
}

// PaneAddress is the opaque, multiplexer-issued token for a terminal surface.
// It is captured once at surface creation and never recomputed from layout
// indices, which later split/relayout operations invalidate.
type PaneAddress string

type PersonaRecord struct {
	DisplayName string
	Status      Status
	UpdatedAt   time.Time
	Message     string
	PaneAddress PaneAddress
}

// SessionState is the shared coordination document, one per workspace root.
type SessionState struct {
	SchemaVersion int
	SessionName   string
	RootPath      string
	CreatedAt     time.Time
	Personas      map[PersonaID]PersonaRecord
}

// NewSessionState returns a fully populated default document with every
// known persona present at idle.
func NewSessionState(sessionName, rootPath string, now time.Time) SessionState {
	personas := make(map[PersonaID]PersonaRecord, len(Personas))
	for id, display := range Personas {
		personas[id] = PersonaRecord{
			DisplayName: display,
			Status:      StatusIdle,
			UpdatedAt:   now,
		}
	}

	return SessionState{
		SchemaVersion: CurrentSchemaVersion,
		SessionName:   sessionName,
		RootPath:      rootPath,
		CreatedAt:     now,
		Personas:      personas,
	}
}

// CurrentSchemaVersion is the version written by this build. Documents below
// it are migrated forward on read; documents above it cannot be repaired.
const CurrentSchemaVersion = 3
