package jsonfile

import (
	"fmt"
	"time"

	"personamux/internal/domain"
)

// fileSchema mirrors the on-disk session document. Field names are part of
// the external contract and must not change without a migration step.
type fileSchema struct {
	SchemaVersion int                      `json:"schemaVersion"`
	SessionName   string                   `json:"sessionName"`
	RootPath      string                   `json:"rootPath"`
	CreatedAt     string                   `json:"createdAt"`
	Personas      map[string]personaSchema `json:"personas"`
}

type personaSchema struct {
	DisplayName string `json:"displayName"`
	Status      string `json:"status"`
	UpdatedAt   string `json:"updatedAt"`
	Message     string `json:"message"`
	PaneAddress string `json:"paneAddress"`

	// paneId is the pre-v3 name of paneAddress, read only by the v2→v3
	// migration step.
	LegacyPaneID string `json:"paneId,omitempty"`
}

// migrations is the ordered chain of versioned steps. Each step repairs a
// document at exactly version From and leaves it at From+1. Steps must be
// deterministic; normalization of missing fields happens after the chain.
type migration struct {
	From  int
	Apply func(*fileSchema)
}

var migrations = []migration{
	{
		// v1 documents predate per-persona status messages.
		From: 1,
		Apply: func(f *fileSchema) {
			// Message fields default to empty during normalization; the
			// step exists so the chain stays monotonic and explicit.
		},
	},
	{
		// v2 stored the multiplexer address under "paneId".
		From: 2,
		Apply: func(f *fileSchema) {
			for key, p := range f.Personas {
				if p.PaneAddress == "" && p.LegacyPaneID != "" {
					p.PaneAddress = p.LegacyPaneID
				}
				p.LegacyPaneID = ""
				f.Personas[key] = p
			}
		},
	},
}

// migrate runs the chain from the document's version up to
// domain.CurrentSchemaVersion. Never downgrades; a version above current
// cannot be repaired deterministically and is fatal.
func migrate(f *fileSchema) error {
	version := f.SchemaVersion
	if version < 1 {
		version = 1
	}
	if version > domain.CurrentSchemaVersion {
		return fmt.Errorf("%w: document version %d is newer than supported version %d",
			domain.ErrSchemaMigration, f.SchemaVersion, domain.CurrentSchemaVersion)
	}

	for _, step := range migrations {
		if version != step.From {
			continue
		}
		step.Apply(f)
		version = step.From + 1
	}

	if version != domain.CurrentSchemaVersion {
		return fmt.Errorf("%w: no migration path from version %d", domain.ErrSchemaMigration, f.SchemaVersion)
	}

	f.SchemaVersion = version
	return nil
}

// normalize fills every missing or invalid field with a safe default. The
// returned state always contains the full fixed persona set.
func normalize(f fileSchema, sessionName, rootPath string, now time.Time) domain.SessionState {
	state := domain.SessionState{
		SchemaVersion: f.SchemaVersion,
		SessionName:   f.SessionName,
		RootPath:      f.RootPath,
		CreatedAt:     parseTime(f.CreatedAt),
		Personas:      make(map[domain.PersonaID]domain.PersonaRecord, len(domain.Personas)),
	}

	if state.SessionName == "" {
		state.SessionName = sessionName
	}
	if state.RootPath == "" {
		state.RootPath = rootPath
	}
	if state.CreatedAt.IsZero() {
		state.CreatedAt = now
	}

	for id, display := range domain.Personas {
		existing, ok := f.Personas[string(id)]
		record := domain.PersonaRecord{
			DisplayName: existing.DisplayName,
			Status:      domain.Status(existing.Status),
			UpdatedAt:   parseTime(existing.UpdatedAt),
			Message:     existing.Message,
			PaneAddress: domain.PaneAddress(existing.PaneAddress),
		}
		if !ok || record.DisplayName == "" {
			record.DisplayName = display
		}
		if !record.Status.Valid() {
			record.Status = domain.StatusIdle
		}
		if record.UpdatedAt.IsZero() {
			record.UpdatedAt = now
		}
		state.Personas[id] = record
	}

	return state
}

func toSchema(state domain.SessionState) fileSchema {
	personas := make(map[string]personaSchema, len(state.Personas))
	for id, record := range state.Personas {
		personas[string(id)] = personaSchema{
			DisplayName: record.DisplayName,
			Status:      string(record.Status),
			UpdatedAt:   formatTime(record.UpdatedAt),
			Message:     record.Message,
			PaneAddress: string(record.PaneAddress),
		}
	}

	return fileSchema{
		SchemaVersion: state.SchemaVersion,
		SessionName:   state.SessionName,
		RootPath:      state.RootPath,
		CreatedAt:     formatTime(state.CreatedAt),
		Personas:      personas,
	}
}

func parseTime(raw string) time.Time {
	if raw == "" {
		return time.Time{}
	}

	parsed, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}
	}

	return parsed
}

func formatTime(value time.Time) string {
	if value.IsZero() {
		return ""
	}

	return value.UTC().Format(time.RFC3339)
}
