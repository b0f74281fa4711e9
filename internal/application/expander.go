package application

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"personamux/internal/domain"
	"personamux/internal/ports"
)

// tokenPattern matches the inline markers a prompt may carry. The separator
// after the keyword may be a colon or a dot; "last" is the older spelling of
// the context marker.
var tokenPattern = regexp.MustCompile(`\{\{(agent|ctx|last)[:.]([A-Za-z0-9_-]+)\}\}`)

// Segment is one addressed slice of a prompt. Target is the persona the
// slice is dispatched to; Text is the raw span between delegation markers,
// preserved byte for byte.
type Segment struct {
	Target domain.PersonaID
	Text   string
}

// SplitSegments cuts a prompt at its {{agent:...}} markers. Text before the
// first marker belongs to the originating persona; each marker opens a
// segment addressed to the named persona. Context markers stay inside the
// segment text for later expansion. Anything the marker grammar does not
// match is left as literal text.
func SplitSegments(self domain.PersonaID, prompt string) []Segment {
	matches := tokenPattern.FindAllStringSubmatchIndex(prompt, -1)

	segments := make([]Segment, 0, len(matches)+1)
	current := Segment{Target: self}
	cursor := 0

	for _, m := range matches {
		kind := prompt[m[2]:m[3]]
		if kind != "agent" {
			continue
		}
		current.Text += prompt[cursor:m[0]]
		segments = append(segments, current)
		current = Segment{Target: domain.PersonaID(prompt[m[4]:m[5]])}
		cursor = m[1]
	}

	current.Text += prompt[cursor:]
	return append(segments, current)
}

// Expander turns a marked-up prompt into a sequence of backend dispatches:
// delegation markers fan the prompt out to other personas, context markers
// inline a persona's most recent archived response.
type Expander struct {
	archive    ports.ResponseArchive
	dispatcher ports.Dispatcher
}

func NewExpander(archive ports.ResponseArchive, dispatcher ports.Dispatcher) *Expander {
	return &Expander{archive: archive, dispatcher: dispatcher}
}

// Run dispatches every segment of the prompt in order. Segment edges are
// trimmed before dispatch; interior whitespace is preserved. Whitespace-only
// segments are skipped. A segment addressed to an unknown persona fails on
// its own; the remaining segments still run. The returned record is the one
// for the originating persona's own segment, when it dispatched.
func (e *Expander) Run(ctx context.Context, self domain.PersonaID, prompt string) (domain.ResponseRecord, error) {
	if !self.Valid() {
		return domain.ResponseRecord{}, fmt.Errorf("%w: %q", domain.ErrPersonaNotFound, self)
	}

	segments := SplitSegments(self, prompt)

	var (
		selfRecord domain.ResponseRecord
		errs       []error
	)

	for _, segment := range segments {
		text := strings.TrimSpace(segment.Text)
		if text == "" {
			continue
		}
		if !segment.Target.Valid() {
			errs = append(errs, fmt.Errorf("%w: %q", domain.ErrPersonaNotFound, segment.Target))
			continue
		}

		expanded, err := e.expandSegment(ctx, text)
		if err != nil {
			errs = append(errs, fmt.Errorf("expand segment for %s: %w", segment.Target, err))
			continue
		}

		record, err := e.dispatcher.Dispatch(ctx, segment.Target, expanded)
		if err != nil {
			errs = append(errs, fmt.Errorf("dispatch segment to %s: %w", segment.Target, err))
			continue
		}
		if segment.Target == self {
			selfRecord = record
		}
	}

	return selfRecord, errors.Join(errs...)
}

// expandSegment resolves context markers immediately before the segment is
// dispatched, so a later segment can see a response produced by an earlier
// one. A context marker is pure substitution: the persona's latest archived
// response text, or empty when nothing is recorded yet. Markers naming an
// unknown persona stay literal.
func (e *Expander) expandSegment(ctx context.Context, text string) (string, error) {
	if !tokenPattern.MatchString(text) {
		return text, nil
	}

	var expandErr error
	expanded := tokenPattern.ReplaceAllStringFunc(text, func(token string) string {
		parts := tokenPattern.FindStringSubmatch(token)
		kind, persona := parts[1], domain.PersonaID(parts[2])

		if kind != "ctx" && kind != "last" {
			return token
		}
		if !persona.Valid() {
			return token
		}

		record, err := e.archive.Latest(ctx, persona)
		if errors.Is(err, domain.ErrNoResponse) {
			return ""
		}
		if err != nil {
			expandErr = errors.Join(expandErr, err)
			return token
		}
		return record.Text
	})

	return expanded, expandErr
}
