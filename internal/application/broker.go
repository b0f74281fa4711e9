package application

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"personamux/internal/domain"
	"personamux/internal/ports"
)

// mirrorPreviewLimit caps the prompt preview echoed into a persona's pane.
const mirrorPreviewLimit = 240

// Broker serializes every prompt against the single backend session. One
// worker drains a FIFO queue, so dispatches complete in submission order no
// matter how many CLI invocations enqueue at once.
type Broker struct {
	backend  ports.Backend
	store    ports.SessionStore
	archive  ports.ResponseArchive
	registry *PaneRegistry
	mux      ports.Multiplexer
	clock    ports.Clock

	dispatchTimeout time.Duration
	queue           chan *brokerJob
	depth           atomic.Int64
}

type brokerJob struct {
	request domain.DispatchRequest
	result  chan brokerResult
}

type brokerResult struct {
	record domain.ResponseRecord
	err    error
}

type BrokerOptions struct {
	// DispatchTimeout bounds a single backend call. Zero means no bound.
	DispatchTimeout time.Duration
	// QueueSize is the number of prompts that may wait behind the one in
	// flight before Dispatch blocks on enqueue.
	QueueSize int
}

func NewBroker(backend ports.Backend, store ports.SessionStore, archive ports.ResponseArchive, registry *PaneRegistry, mux ports.Multiplexer, clock ports.Clock, opts BrokerOptions) *Broker {
	if clock == nil {
		clock = ports.SystemClock{}
	}
	if opts.QueueSize <= 0 {
		opts.QueueSize = 32
	}

	return &Broker{
		backend:         backend,
		store:           store,
		archive:         archive,
		registry:        registry,
		mux:             mux,
		clock:           clock,
		dispatchTimeout: opts.DispatchTimeout,
		queue:           make(chan *brokerJob, opts.QueueSize),
	}
}

var _ ports.Dispatcher = (*Broker)(nil)

// Run drains the queue until ctx is cancelled. Exactly one Run must be
// active for Dispatch calls to complete.
func (b *Broker) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case job := <-b.queue:
			record, err := b.process(ctx, job.request)
			b.depth.Add(-1)
			job.result <- brokerResult{record: record, err: err}
		}
	}
}

// QueueDepth reports how many prompts are enqueued or in flight.
func (b *Broker) QueueDepth() int {
	return int(b.depth.Load())
}

// Dispatch enqueues a prompt and blocks until the worker has run it.
func (b *Broker) Dispatch(ctx context.Context, id domain.PersonaID, prompt string) (domain.ResponseRecord, error) {
	if !id.Valid() {
		return domain.ResponseRecord{}, fmt.Errorf("%w: %q", domain.ErrPersonaNotFound, id)
	}

	job := &brokerJob{
		request: domain.DispatchRequest{
			RequestID:  uuid.NewString(),
			PersonaID:  id,
			PromptText: prompt,
			EnqueuedAt: b.clock.Now(),
		},
		result: make(chan brokerResult, 1),
	}

	b.depth.Add(1)
	select {
	case b.queue <- job:
	case <-ctx.Done():
		b.depth.Add(-1)
		return domain.ResponseRecord{}, ctx.Err()
	}

	select {
	case res := <-job.result:
		return res.record, res.err
	case <-ctx.Done():
		return domain.ResponseRecord{}, ctx.Err()
	}
}

func (b *Broker) process(ctx context.Context, req domain.DispatchRequest) (domain.ResponseRecord, error) {
	preview := collapsePreview(req.PromptText, mirrorPreviewLimit)

	if err := b.setStatus(ctx, req.PersonaID, domain.StatusWorking, preview); err != nil {
		return domain.ResponseRecord{}, err
	}

	b.mirror(ctx, req.PersonaID, preview)

	callCtx := ctx
	if b.dispatchTimeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, b.dispatchTimeout)
		defer cancel()
	}

	text, err := b.backend.Send(callCtx, req.PromptText)
	if err != nil {
		failure := fmt.Sprintf("dispatch failed: %v", err)
		if statusErr := b.setStatus(ctx, req.PersonaID, domain.StatusIdle, failure); statusErr != nil {
			err = fmt.Errorf("%w (record failure: %v)", err, statusErr)
		}
		return domain.ResponseRecord{}, fmt.Errorf("%w: %v", domain.ErrBackendDispatch, err)
	}

	record := domain.ResponseRecord{
		PersonaID:   req.PersonaID,
		RequestID:   req.RequestID,
		Text:        text,
		CompletedAt: b.clock.Now(),
	}

	if err := b.archive.Store(ctx, record); err != nil {
		return domain.ResponseRecord{}, fmt.Errorf("archive response: %w", err)
	}

	if err := b.setStatus(ctx, req.PersonaID, domain.StatusIdle, ""); err != nil {
		return domain.ResponseRecord{}, err
	}

	return record, nil
}

func (b *Broker) setStatus(ctx context.Context, id domain.PersonaID, status domain.Status, message string) error {
	_, err := b.store.Update(ctx, func(state *domain.SessionState) error {
		record := state.Personas[id]
		record.Status = status
		record.Message = message
		record.UpdatedAt = b.clock.Now()
		state.Personas[id] = record
		return nil
	})
	if err != nil {
		return fmt.Errorf("record %s status for %s: %w", status, id, err)
	}
	return nil
}

// mirror echoes the prompt preview into the persona's pane so an attached
// operator sees what each persona was asked. Mirroring is best-effort; a
// persona without a pane, or a pane that rejects input, never blocks the
// dispatch.
func (b *Broker) mirror(ctx context.Context, id domain.PersonaID, preview string) {
	if b.registry == nil || b.mux == nil || preview == "" {
		return
	}

	address, err := b.registry.Resolve(ctx, id)
	if err != nil || address == "" {
		return
	}
	_ = b.mux.SendText(ctx, address, fmt.Sprintf("# %s << %s", id, preview))
}

// collapsePreview flattens a prompt to a single line and caps its length.
func collapsePreview(prompt string, limit int) string {
	collapsed := strings.Join(strings.Fields(prompt), " ")
	if limit <= 0 || len(collapsed) <= limit {
		return collapsed
	}

	cut := collapsed[:limit]
	if idx := strings.LastIndexByte(cut, ' '); idx > limit/2 {
		cut = cut[:idx]
	}
	return cut + "..."
}
