package trigger

import (
	"context"
	"errors"
	"sync"
)

// ErrAlreadyRunning is returned when a second loop is started on the same State.
var ErrAlreadyRunning = errors.New("notification trigger engine already running")

// State is the process-wide part of the engine: the dedup ledger and the
// running flag. The composition root owns exactly one State and hands it to
// every engine it builds.
type State struct {
	ledger Ledger

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	done    chan struct{}
}

// NewState creates a State. A nil ledger uses an in-memory one.
func NewState(ledger Ledger) *State {
	if ledger == nil {
		ledger = NewMemoryLedger()
	}
	return &State{ledger: ledger}
}

// Ledger returns the dedup ledger.
func (s *State) Ledger() Ledger {
	return s.ledger
}

// Running reports whether a loop currently owns the state.
func (s *State) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

func (s *State) acquire(parent context.Context) (context.Context, chan struct{}, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return nil, nil, ErrAlreadyRunning
	}
	ctx, cancel := context.WithCancel(parent)
	s.running = true
	s.cancel = cancel
	s.done = make(chan struct{})
	return ctx, s.done, nil
}

func (s *State) release(done chan struct{}) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.done != done {
		return
	}
	s.running = false
	if s.cancel != nil {
		s.cancel()
	}
	s.cancel = nil
	s.done = nil
	close(done)
}

// stop cancels the running loop and waits for it to exit.
func (s *State) stop() {
	s.mu.Lock()
	cancel, done := s.cancel, s.done
	s.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
}
