package transcript

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/user/webconsole/internal/session"
)

const defaultQueueSize = 1024

// Recorder writes session events to the transcript from a single
// goroutine. Observe never touches the database.
type Recorder struct {
	repo   *Repo
	runID  string
	logger *slog.Logger

	mu      sync.Mutex
	started bool
	closed  bool
	queue   chan session.Event
	done    chan struct{}
	dropped atomic.Int64
}

func NewRecorder(db *DB, runID string, logger *slog.Logger) *Recorder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Recorder{
		repo:   NewRepo(db.SQL()),
		runID:  runID,
		logger: logger,
		queue:  make(chan session.Event, defaultQueueSize),
		done:   make(chan struct{}),
	}
}

// Start records the run and begins draining events.
func (r *Recorder) Start(ctx context.Context, startedAt time.Time) error {
	if err := r.repo.StartRun(ctx, r.runID, startedAt); err != nil {
		return err
	}
	r.mu.Lock()
	r.started = true
	r.mu.Unlock()
	go r.drain()
	return nil
}

// Observe queues ev. It drops the event if the writer has fallen too far
// behind or the recorder is closed.
func (r *Recorder) Observe(ev session.Event) {
	switch ev.Kind {
	case session.EventLineAppended, session.EventLineUpdated, session.EventFinished:
	default:
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return
	}
	select {
	case r.queue <- ev:
	default:
		r.dropped.Add(1)
		r.logger.Warn("transcript queue full, dropping event", "seq", ev.Seq)
	}
}

// Dropped reports how many events were discarded.
func (r *Recorder) Dropped() int64 {
	return r.dropped.Load()
}

// Close flushes queued events and stops the writer.
func (r *Recorder) Close() {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	r.closed = true
	close(r.queue)
	started := r.started
	r.mu.Unlock()
	if started {
		<-r.done
	}
}

func (r *Recorder) Entries(ctx context.Context) ([]Entry, error) {
	return r.repo.Entries(ctx, r.runID)
}

func (r *Recorder) drain() {
	defer close(r.done)
	ctx := context.Background()
	for ev := range r.queue {
		if err := r.write(ctx, ev); err != nil {
			r.logger.Error("transcript write failed", "error", err)
		}
	}
}

func (r *Recorder) write(ctx context.Context, ev session.Event) error {
	if ev.Kind == session.EventFinished {
		return r.repo.FinishRun(ctx, r.runID, ev.At)
	}
	inputID := ev.Line.ID
	if inputID == "" {
		inputID = ev.RequestID
	}
	return r.repo.PutEntry(ctx, Entry{
		RunID:     r.runID,
		Seq:       ev.Seq,
		Kind:      ev.Line.Kind.String(),
		InputID:   inputID,
		Body:      ev.Line.Body,
		Version:   ev.Version,
		UpdatedAt: ev.At,
	})
}
