package application

import (
	"context"
	"sync"
	"time"

	"personamux/internal/domain"
	"personamux/internal/ports"
)

type memStore struct {
	mu    sync.Mutex
	state domain.SessionState
}

func newMemStore() *memStore {
	return &memStore{state: domain.NewSessionState("test", "/tmp/test", time.Unix(1700000000, 0).UTC())}
}

func (m *memStore) Read(context.Context) (domain.SessionState, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return cloneState(m.state), nil
}

func (m *memStore) Update(_ context.Context, mutate ports.Mutator) (domain.SessionState, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	next := cloneState(m.state)
	if err := mutate(&next); err != nil {
		return domain.SessionState{}, err
	}
	m.state = next
	return cloneState(next), nil
}

func cloneState(state domain.SessionState) domain.SessionState {
	clone := state
	clone.Personas = make(map[domain.PersonaID]domain.PersonaRecord, len(state.Personas))
	for id, record := range state.Personas {
		clone.Personas[id] = record
	}
	return clone
}

type memArchive struct {
	mu     sync.Mutex
	latest map[domain.PersonaID]domain.ResponseRecord
	stored []domain.ResponseRecord
}

func newMemArchive() *memArchive {
	return &memArchive{latest: map[domain.PersonaID]domain.ResponseRecord{}}
}

func (m *memArchive) Latest(_ context.Context, id domain.PersonaID) (domain.ResponseRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	record, ok := m.latest[id]
	if !ok {
		return domain.ResponseRecord{}, domain.ErrNoResponse
	}
	return record, nil
}

func (m *memArchive) Store(_ context.Context, record domain.ResponseRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.latest[record.PersonaID] = record
	m.stored = append(m.stored, record)
	return nil
}

type fakeBackend struct {
	mu      sync.Mutex
	prompts []string
	reply   func(prompt string) (string, error)
	delay   time.Duration
}

func (f *fakeBackend) Send(ctx context.Context, prompt string) (string, error) {
	if f.delay > 0 {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(f.delay):
		}
	}

	f.mu.Lock()
	f.prompts = append(f.prompts, prompt)
	f.mu.Unlock()

	if f.reply != nil {
		return f.reply(prompt)
	}
	return "reply: " + prompt, nil
}

func (f *fakeBackend) seen() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.prompts...)
}

type fakeMux struct {
	mu    sync.Mutex
	panes int
	sent  []string
}

func (f *fakeMux) CreateOrSplitSurface(context.Context) (domain.PaneAddress, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.panes++
	return domain.PaneAddress("%" + string(rune('0'+f.panes))), nil
}

func (f *fakeMux) SetLabel(context.Context, domain.PaneAddress, string) error { return nil }

func (f *fakeMux) SendText(_ context.Context, _ domain.PaneAddress, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, text)
	return nil
}

func (f *fakeMux) Focus(context.Context, domain.PaneAddress) error { return nil }

type recordingDispatcher struct {
	mu    sync.Mutex
	calls []dispatchCall
	fail  map[domain.PersonaID]error
}

type dispatchCall struct {
	id     domain.PersonaID
	prompt string
}

func (r *recordingDispatcher) Dispatch(_ context.Context, id domain.PersonaID, prompt string) (domain.ResponseRecord, error) {
	r.mu.Lock()
	r.calls = append(r.calls, dispatchCall{id: id, prompt: prompt})
	r.mu.Unlock()

	if err, ok := r.fail[id]; ok {
		return domain.ResponseRecord{}, err
	}
	return domain.ResponseRecord{
		PersonaID:   id,
		RequestID:   "req-" + string(id),
		Text:        "answer from " + string(id),
		CompletedAt: time.Unix(1700000100, 0).UTC(),
	}, nil
}

type archivingDispatcher struct {
	recordingDispatcher
	archive *memArchive
}

func (a *archivingDispatcher) Dispatch(ctx context.Context, id domain.PersonaID, prompt string) (domain.ResponseRecord, error) {
	record, err := a.recordingDispatcher.Dispatch(ctx, id, prompt)
	if err != nil {
		return record, err
	}
	if storeErr := a.archive.Store(ctx, record); storeErr != nil {
		return domain.ResponseRecord{}, storeErr
	}
	return record, nil
}

type frozenClock struct {
	now time.Time
}

func (f frozenClock) Now() time.Time { return f.now }
