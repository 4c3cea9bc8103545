package action

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/nerrad567/gray-logic-simlock/internal/metrics"
)

const (
	defaultQueueSize  = 64
	defaultMaxHistory = 100
)

// Logger defines the logging interface used by the Dispatcher.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// noopLogger is a logger that does nothing.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// StatusObserver is called after every action status transition with a copy
// of the action.
type StatusObserver func(Action)

// Config holds dispatcher limits. Zero values select the defaults.
type Config struct {
	QueueSize  int // Actions waiting for the worker before Submit fails
	MaxHistory int // Finished actions kept for List/Get
}

// entry is a queued or recorded action.
type entry struct {
	action Action
	cmd    command
	done   chan struct{}

	// announced is closed once observers have seen the created status.
	announced chan struct{}
}

// Dispatcher validates action requests and applies them to a Performer
// from a single worker goroutine.
//
// All public methods are thread-safe.
type Dispatcher struct {
	performer Performer
	validator *inputValidator
	cfg       Config

	submitMu sync.Mutex // Serialises queue sends against Close; never held while notifying

	mu      sync.Mutex
	history []*entry // Submission order
	queue   chan *entry
	closed  bool

	obsMu     sync.RWMutex
	observers []StatusObserver

	startOnce sync.Once
	started   bool
	stopped   chan struct{}

	logger Logger
}

// NewDispatcher creates a dispatcher for p. Call Start to begin applying actions.
func NewDispatcher(p Performer, cfg Config) *Dispatcher {
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = defaultQueueSize
	}
	if cfg.MaxHistory <= 0 {
		cfg.MaxHistory = defaultMaxHistory
	}
	return &Dispatcher{
		performer: p,
		validator: newInputValidator(),
		cfg:       cfg,
		queue:     make(chan *entry, cfg.QueueSize),
		stopped:   make(chan struct{}),
		logger:    noopLogger{},
	}
}

// SetLogger sets the logger for the dispatcher.
func (d *Dispatcher) SetLogger(logger Logger) {
	d.logger = logger
}

// OnStatus registers fn to be called on every action status transition.
//
// Observers run synchronously on the goroutine making the transition: the
// submitter for created, the caller of Cancel for cancelled and the worker
// otherwise. A slow observer delays only that goroutine; other submitters
// are not held up. Each action's transitions reach observers in order.
// Observers must not call Perform or Cancel.
func (d *Dispatcher) OnStatus(fn StatusObserver) {
	d.obsMu.Lock()
	d.observers = append(d.observers, fn)
	d.obsMu.Unlock()
}

func (d *Dispatcher) notify(a Action) {
	d.obsMu.RLock()
	observers := make([]StatusObserver, len(d.observers))
	copy(observers, d.observers)
	d.obsMu.RUnlock()

	for _, fn := range observers {
		fn(a.Clone())
	}
}

// Start launches the worker. It stops when ctx is cancelled or Close drains
// the queue. Calling Start more than once has no effect.
func (d *Dispatcher) Start(ctx context.Context) {
	d.startOnce.Do(func() {
		d.mu.Lock()
		d.started = true
		d.mu.Unlock()
		go d.runWorker(ctx)
	})
}

// Close stops accepting requests and waits for queued actions to be applied.
func (d *Dispatcher) Close() {
	d.submitMu.Lock()
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		d.submitMu.Unlock()
		return
	}
	d.closed = true
	close(d.queue)
	started := d.started
	d.mu.Unlock()
	d.submitMu.Unlock()

	if started {
		<-d.stopped
	}
}

func (d *Dispatcher) runWorker(ctx context.Context) {
	defer close(d.stopped)
	for {
		select {
		case <-ctx.Done():
			return
		case e, ok := <-d.queue:
			if !ok {
				return
			}
			metrics.ActionQueueDepth.Set(float64(len(d.queue)))
			<-e.announced
			d.apply(e)
		}
	}
}

func (d *Dispatcher) apply(e *entry) {
	d.mu.Lock()
	if e.action.Status != StatusCreated {
		// Cancelled while queued.
		d.mu.Unlock()
		return
	}
	e.action.Status = StatusPending
	pending := e.action.Clone()
	d.mu.Unlock()
	d.notify(pending)

	start := time.Now()
	err := e.cmd.apply(d.performer)
	elapsed := time.Since(start)

	d.mu.Lock()
	now := time.Now().UTC()
	e.action.TimeCompleted = &now
	if err != nil {
		e.action.Status = StatusFailed
		e.action.Error = err.Error()
	} else {
		e.action.Status = StatusCompleted
	}
	finished := e.action.Clone()
	d.evictLocked()
	d.mu.Unlock()

	metrics.ActionDuration.WithLabelValues(finished.Name).Observe(elapsed.Seconds())
	metrics.ActionsFinishedTotal.WithLabelValues(finished.Name, string(finished.Status)).Inc()
	if err != nil {
		d.logger.Warn("action failed", "action", finished.Name, "id", finished.ID, "error", err)
	} else {
		d.logger.Debug("action completed", "action", finished.Name, "id", finished.ID, "duration", elapsed)
	}
	d.notify(finished)
	close(e.done)
}

// evictLocked drops the oldest finished actions while history exceeds
// MaxHistory. Queued actions are never evicted. Caller must hold d.mu.
func (d *Dispatcher) evictLocked() {
	excess := len(d.history) - d.cfg.MaxHistory
	if excess <= 0 {
		return
	}
	kept := d.history[:0]
	for _, e := range d.history {
		if excess > 0 && e.action.Status.Finished() {
			excess--
			continue
		}
		kept = append(kept, e)
	}
	clear(d.history[len(kept):])
	d.history = kept
}

// Validate decodes and validates a request without queuing it.
func (d *Dispatcher) Validate(req Request) error {
	_, err := d.validator.decode(req.Name, req.Input)
	return err
}

// Submit validates req and queues it. It returns the created action without
// waiting for the device to apply it.
func (d *Dispatcher) Submit(ctx context.Context, req Request) (Action, error) {
	_, created, err := d.submit(ctx, req)
	return created, err
}

func (d *Dispatcher) submit(ctx context.Context, req Request) (*entry, Action, error) {
	if err := ctx.Err(); err != nil {
		return nil, Action{}, err
	}

	cmd, err := d.validator.decode(req.Name, req.Input)
	if err != nil {
		d.reject(req.Name, err)
		return nil, Action{}, err
	}

	input := req.Input
	if len(input) == 0 {
		input = json.RawMessage("{}")
	}
	e := &entry{
		action: Action{
			ID:            uuid.NewString(),
			Name:          req.Name,
			Input:         append(json.RawMessage(nil), input...),
			Source:        req.Source,
			Status:        StatusCreated,
			TimeRequested: time.Now().UTC(),
		},
		cmd:       cmd,
		done:      make(chan struct{}),
		announced: make(chan struct{}),
	}

	// Only submitters send on the queue, so a free slot seen here is still
	// free when e is sent below.
	d.submitMu.Lock()
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		d.submitMu.Unlock()
		d.reject(req.Name, ErrDispatcherClosed)
		return nil, Action{}, ErrDispatcherClosed
	}
	if len(d.queue) >= cap(d.queue) {
		d.mu.Unlock()
		d.submitMu.Unlock()
		d.reject(req.Name, ErrQueueFull)
		return nil, Action{}, ErrQueueFull
	}
	d.history = append(d.history, e)
	created := e.action.Clone()
	d.mu.Unlock()
	d.queue <- e
	metrics.ActionQueueDepth.Set(float64(len(d.queue)))
	d.submitMu.Unlock()

	metrics.ActionsRequestedTotal.WithLabelValues(req.Name, sourceLabel(req.Source)).Inc()
	d.logger.Debug("action queued", "action", req.Name, "id", created.ID, "source", req.Source)

	// The worker waits on announced, so pending never overtakes created.
	d.notify(created)
	close(e.announced)
	return e, created, nil
}

func (d *Dispatcher) reject(name string, err error) {
	reason := "invalid_input"
	switch {
	case errors.Is(err, ErrUnknownAction):
		reason, name = "unknown_action", "unknown"
	case errors.Is(err, ErrQueueFull):
		reason = "queue_full"
	case errors.Is(err, ErrDispatcherClosed):
		reason = "closed"
	}
	metrics.ActionsRejectedTotal.WithLabelValues(name, reason).Inc()
	d.logger.Debug("action rejected", "action", name, "reason", reason, "error", err)
}

func sourceLabel(source string) string {
	if source == "" {
		return "direct"
	}
	return source
}

// Perform submits req and waits until the action finishes or ctx is done.
func (d *Dispatcher) Perform(ctx context.Context, req Request) (Action, error) {
	e, _, err := d.submit(ctx, req)
	if err != nil {
		return Action{}, err
	}
	return d.await(ctx, e)
}

// Wait blocks until the named action finishes and returns its final record.
// If the worker stops first the current record is returned with
// ErrDispatcherClosed.
func (d *Dispatcher) Wait(ctx context.Context, name, id string) (Action, error) {
	d.mu.Lock()
	e := d.findLocked(name, id)
	d.mu.Unlock()
	if e == nil {
		return Action{}, fmt.Errorf("%w: %s/%s", ErrActionNotFound, name, id)
	}
	return d.await(ctx, e)
}

func (d *Dispatcher) await(ctx context.Context, e *entry) (Action, error) {
	select {
	case <-e.done:
	case <-ctx.Done():
		return Action{}, ctx.Err()
	case <-d.stopped:
		// The worker may have finished e just before stopping.
		select {
		case <-e.done:
		default:
			return d.snapshot(e), ErrDispatcherClosed
		}
	}
	return d.snapshot(e), nil
}

func (d *Dispatcher) snapshot(e *entry) Action {
	d.mu.Lock()
	defer d.mu.Unlock()
	return e.action.Clone()
}

// findLocked returns the entry for name/id. Caller must hold d.mu.
func (d *Dispatcher) findLocked(name, id string) *entry {
	for _, e := range d.history {
		if e.action.ID == id && e.action.Name == name {
			return e
		}
	}
	return nil
}

// List returns every recorded action in submission order.
func (d *Dispatcher) List() []Action {
	return d.ListByName("")
}

// ListByName returns the recorded actions with the given name in submission
// order. An empty name matches every action.
func (d *Dispatcher) ListByName(name string) []Action {
	d.mu.Lock()
	defer d.mu.Unlock()

	out := make([]Action, 0, len(d.history))
	for _, e := range d.history {
		if name == "" || e.action.Name == name {
			out = append(out, e.action.Clone())
		}
	}
	return out
}

// Get returns the recorded action with the given name and id.
func (d *Dispatcher) Get(name, id string) (Action, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if e := d.findLocked(name, id); e != nil {
		return e.action.Clone(), nil
	}
	return Action{}, fmt.Errorf("%w: %s/%s", ErrActionNotFound, name, id)
}

// Cancel removes an action from history. A queued action is cancelled and
// never applied; a finished action is simply forgotten. An action the device
// is applying returns ErrActionInProgress.
func (d *Dispatcher) Cancel(name, id string) error {
	d.mu.Lock()
	idx := -1
	for i, e := range d.history {
		if e.action.ID == id && e.action.Name == name {
			idx = i
			break
		}
	}
	if idx < 0 {
		d.mu.Unlock()
		return fmt.Errorf("%w: %s/%s", ErrActionNotFound, name, id)
	}

	e := d.history[idx]
	if e.action.Status == StatusPending {
		d.mu.Unlock()
		return ErrActionInProgress
	}
	d.history = append(d.history[:idx], d.history[idx+1:]...)

	cancelled := e.action.Status == StatusCreated
	if cancelled {
		now := time.Now().UTC()
		e.action.Status = StatusCancelled
		e.action.TimeCompleted = &now
	}
	snap := e.action.Clone()
	d.mu.Unlock()

	if cancelled {
		metrics.ActionsFinishedTotal.WithLabelValues(name, string(StatusCancelled)).Inc()
		d.logger.Info("action cancelled", "action", name, "id", id)
		<-e.announced
		d.notify(snap)
		close(e.done)
	}
	return nil
}
