package usecase

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// TaskState is the lifecycle stage of a task.
type TaskState string

const (
	StateCreated   TaskState = "created"
	StateRunning   TaskState = "running"
	StateCompleted TaskState = "completed"
	StateCancelled TaskState = "cancelled"
)

const eventBuffer = 64

// Task is one running unit of background work. The owner must drain
// Events until it is closed; the task blocks while the buffer is full.
// Once cancelled, events that do not fit in the buffer are dropped.
type Task struct {
	id     string
	kind   TaskKind
	events chan Event
	done   chan struct{}
	stop   <-chan struct{}
	cancel context.CancelFunc

	mu      sync.RWMutex
	state   TaskState
	nextSeq int64
	count   int
}

func newTask(ctx context.Context, kind TaskKind, cancel context.CancelFunc) *Task {
	return &Task{
		id:     uuid.NewString(),
		kind:   kind,
		events: make(chan Event, eventBuffer),
		done:   make(chan struct{}),
		stop:   ctx.Done(),
		cancel: cancel,
		state:  StateCreated,
	}
}

// ID returns the task identifier.
func (t *Task) ID() string { return t.id }

// Kind returns the task kind.
func (t *Task) Kind() TaskKind { return t.kind }

// Events returns the notification channel. It is closed after EventFinished.
func (t *Task) Events() <-chan Event { return t.events }

// Done is closed when the task has ended.
func (t *Task) Done() <-chan struct{} { return t.done }

// Cancel asks the task to stop after the current item.
func (t *Task) Cancel() { t.cancel() }

// State returns the current lifecycle state.
func (t *Task) State() TaskState {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.state
}

// Count returns the finished count once the task has ended.
func (t *Task) Count() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.count
}

// Wait blocks until the task ends or ctx is done and returns the state.
func (t *Task) Wait(ctx context.Context) (TaskState, error) {
	select {
	case <-t.done:
		return t.State(), nil
	case <-ctx.Done():
		return t.State(), ctx.Err()
	}
}

func (t *Task) setState(s TaskState) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.state = s
}

// emit stamps ev with the task identity and the next sequence number.
// Only the task goroutine calls emit, so sends are ordered.
func (t *Task) emit(ev Event) {
	t.mu.Lock()
	t.nextSeq++
	ev.Seq = t.nextSeq
	t.mu.Unlock()

	ev.TaskID = t.id
	ev.Kind = t.kind
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now().UTC()
	}
	select {
	case t.events <- ev:
		return
	default:
	}
	select {
	case t.events <- ev:
	case <-t.stop:
	}
}

// finish emits EventFinished, records the final state, and closes the
// channels. release runs before Done is closed so a waiter can start the
// next task of the same kind immediately.
func (t *Task) finish(ctx context.Context, count int, release func()) {
	t.emit(Event{Type: EventFinished, Count: count})

	final := StateCompleted
	if ctx.Err() != nil {
		final = StateCancelled
	}
	t.mu.Lock()
	t.state = final
	t.count = count
	t.mu.Unlock()

	release()
	t.cancel()
	close(t.events)
	close(t.done)
}
