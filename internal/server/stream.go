package server

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/jonathan/geo-toolkit/internal/runstate"
)

// StateEvent is the payload of "state" and "complete" events.
type StateEvent[S any] struct {
	RequestID  string `json:"requestId"`
	Generation uint64 `json:"generation"`
	State      S      `json:"state"`
}

// SupersededEvent is sent when a newer run replaced this stream's run.
type SupersededEvent struct {
	RequestID  string `json:"requestId"`
	Generation uint64 `json:"generation"`
}

// feed buffers tracker updates for a stream. push never blocks, so it is
// safe to call under the tracker lock.
type feed[S any] struct {
	mu      sync.Mutex
	pending []runstate.Update[S]
	ready   chan struct{}
}

func newFeed[S any]() *feed[S] {
	return &feed[S]{ready: make(chan struct{}, 1)}
}

func (f *feed[S]) push(u runstate.Update[S]) {
	f.mu.Lock()
	f.pending = append(f.pending, u)
	f.mu.Unlock()
	f.wake()
}

func (f *feed[S]) wake() {
	select {
	case f.ready <- struct{}{}:
	default:
	}
}

func (f *feed[S]) drain() []runstate.Update[S] {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := f.pending
	f.pending = nil
	return out
}

// streamRun runs a pipeline and streams every accepted state of its own
// generation as SSE "state" events, followed by exactly one of "complete",
// "superseded" or "error". States of other generations are never sent.
func streamRun[S runstate.Cloner[S]](
	s *Server,
	w http.ResponseWriter,
	r *http.Request,
	tracker *runstate.Tracker[S],
	run func(ctx context.Context) (S, error),
) {
	sse, err := NewSSEWriter(w)
	if err != nil {
		s.errorResponse(w, http.StatusInternalServerError, err.Error())
		return
	}

	requestID := w.Header().Get(requestIDHeader)
	if requestID == "" {
		requestID = uuid.NewString()
	}
	log := s.logger.With(zap.String("request_id", requestID), zap.String("path", r.URL.Path))

	f := newFeed[S]()
	unsubscribe := tracker.Subscribe(f.push)
	defer unsubscribe()

	var mine atomic.Uint64
	ctx := runstate.WithAnnouncer(r.Context(), func(gen uint64) {
		mine.Store(gen)
		f.wake()
	})

	type outcome struct {
		state S
		err   error
	}
	done := make(chan outcome, 1)
	go func() {
		state, err := run(ctx)
		done <- outcome{state: state, err: err}
	}()

	// Updates that arrive before the run announces its generation are held
	// back until it is known.
	var backlog []runstate.Update[S]
	emit := func() {
		backlog = append(backlog, f.drain()...)
		gen := mine.Load()
		if gen == 0 {
			return
		}
		for _, u := range backlog {
			if u.Generation != gen {
				continue
			}
			if err := sse.WriteEvent(EventState, StateEvent[S]{RequestID: requestID, Generation: gen, State: u.State}); err != nil {
				log.Debug("failed to write state event", zap.Error(err))
			}
		}
		backlog = backlog[:0]
	}

	for {
		select {
		case <-f.ready:
			emit()
		case res := <-done:
			emit()
			gen := mine.Load()
			switch {
			case res.err == nil:
				err = sse.WriteEvent(EventComplete, StateEvent[S]{RequestID: requestID, Generation: gen, State: res.state})
			case errors.Is(res.err, runstate.ErrSuperseded):
				log.Info("stream superseded", zap.Uint64("generation", gen))
				err = sse.WriteEvent(EventSuperseded, SupersededEvent{RequestID: requestID, Generation: gen})
			default:
				log.Warn("stream run failed", zap.Error(res.err))
				err = sse.WriteError(requestID, errorMessage(res.err))
			}
			if err != nil {
				log.Debug("failed to write final event", zap.Error(err))
			}
			return
		}
	}
}
