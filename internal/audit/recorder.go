package audit

import (
	"context"
	"time"

	"github.com/nerrad567/gray-logic-simlock/internal/action"
)

const (
	defaultBuffer = 256
	writeTimeout  = 5 * time.Second
)

// Logger is the logging interface used by Recorder.
type Logger interface {
	Debug(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Recorder writes finished actions to a Repository from its own goroutine,
// so the dispatcher worker never waits on disk.
type Recorder struct {
	repo    Repository
	entries chan Entry
	logger  Logger
}

// NewRecorder creates a recorder buffering up to buffer entries
// (default 256 when buffer <= 0).
func NewRecorder(repo Repository, buffer int) *Recorder {
	if buffer <= 0 {
		buffer = defaultBuffer
	}
	return &Recorder{
		repo:    repo,
		entries: make(chan Entry, buffer),
		logger:  noopLogger{},
	}
}

// SetLogger sets the logger.
func (r *Recorder) SetLogger(logger Logger) {
	r.logger = logger
}

// Observe is an action.StatusObserver. It queues completed, failed and
// cancelled actions and ignores the rest. When the buffer is full the
// entry is dropped with a warning.
func (r *Recorder) Observe(a action.Action) {
	if !a.Status.Finished() {
		return
	}
	select {
	case r.entries <- FromAction(a):
	default:
		r.logger.Warn("audit buffer full, dropping entry", "action", a.Name, "id", a.ID)
	}
}

// Run writes queued entries until ctx is cancelled, then flushes whatever
// is still buffered before returning.
func (r *Recorder) Run(ctx context.Context) {
	// Writes are bounded by writeTimeout, not by ctx, so an entry picked
	// up during shutdown still lands.
	writeCtx := context.WithoutCancel(ctx)
	for {
		select {
		case <-ctx.Done():
			r.drain(writeCtx)
			return
		case e := <-r.entries:
			r.store(writeCtx, e)
		}
	}
}

func (r *Recorder) drain(ctx context.Context) {
	for {
		select {
		case e := <-r.entries:
			r.store(ctx, e)
		default:
			return
		}
	}
}

func (r *Recorder) store(ctx context.Context, e Entry) {
	writeCtx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()

	if err := r.repo.Create(writeCtx, &e); err != nil {
		r.logger.Error("writing audit entry", "action", e.Action, "id", e.ActionID, "error", err)
		return
	}
	r.logger.Debug("audit entry written", "action", e.Action, "id", e.ActionID, "status", e.Status)
}
