// Package runstate tracks the state of the current pipeline run and guards it
// against writes from runs that have since been superseded.
package runstate

import (
	"errors"
	"sync"
)

// Cloner is implemented by run states that can be deep-copied for observers.
type Cloner[S any] interface {
	Clone() S
}

// Update is a snapshot of the state accepted for a generation.
type Update[S any] struct {
	Generation uint64
	State      S
}

// Observer receives every accepted update in order.
// Observers run under the tracker lock and must not call back into the tracker.
type Observer[S any] func(Update[S])

// Tracker owns the state of one pipeline. Each run begins a new generation;
// publishes tagged with an older generation are discarded.
type Tracker[S Cloner[S]] struct {
	mu        sync.Mutex
	gen       uint64
	state     S
	observers map[int]Observer[S]
	nextID    int
}

// NewTracker creates a tracker holding the idle state at generation 0.
func NewTracker[S Cloner[S]](idle S) *Tracker[S] {
	return &Tracker[S]{
		state:     idle,
		observers: make(map[int]Observer[S]),
	}
}

// Begin starts a new generation, replacing the previous state entirely with
// the value built by initial. The returned generation must accompany every
// later Publish for this run.
func (t *Tracker[S]) Begin(initial func(gen uint64) S) uint64 {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.gen++
	t.state = initial(t.gen).Clone()
	t.notify()
	return t.gen
}

// Publish replaces the state if gen is still current.
// It returns false, leaving the state untouched, when gen has been superseded.
func (t *Tracker[S]) Publish(gen uint64, state S) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if gen != t.gen {
		return false
	}
	t.state = state.Clone()
	t.notify()
	return true
}

// IsCurrent reports whether gen is the newest generation.
func (t *Tracker[S]) IsCurrent(gen uint64) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return gen == t.gen
}

// Snapshot returns the current generation and a copy of its state.
func (t *Tracker[S]) Snapshot() (uint64, S) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.gen, t.state.Clone()
}

// Subscribe registers fn for every future accepted update.
// The returned function removes the observer.
func (t *Tracker[S]) Subscribe(fn Observer[S]) func() {
	t.mu.Lock()
	defer t.mu.Unlock()

	id := t.nextID
	t.nextID++
	t.observers[id] = fn

	return func() {
		t.mu.Lock()
		defer t.mu.Unlock()
		delete(t.observers, id)
	}
}

// notify must be called with t.mu held.
func (t *Tracker[S]) notify() {
	if len(t.observers) == 0 {
		return
	}
	update := Update[S]{Generation: t.gen, State: t.state.Clone()}
	for _, fn := range t.observers {
		fn(update)
	}
}

// ErrSuperseded is returned by a pipeline run whose final state was discarded
// because a newer run began.
var ErrSuperseded = errors.New("run superseded by a newer run")
