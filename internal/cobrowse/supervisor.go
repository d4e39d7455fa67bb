package cobrowse

import (
	"log/slog"
	"sync"
)

// Supervisor is the circuit breaker around the whole subsystem. Every
// inbound callback runs through Do; the first uncaught panic permanently
// disables the feature for the rest of the page's lifetime and runs the
// teardown hook. Nothing ever propagates to the host page.
type Supervisor struct {
	logger *slog.Logger

	mu        sync.Mutex
	disabled  bool
	onDisable func()
}

// NewSupervisor returns an enabled supervisor. onDisable runs exactly once
// when the feature trips; it may be nil.
func NewSupervisor(logger *slog.Logger, onDisable func()) *Supervisor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Supervisor{logger: logger, onDisable: onDisable}
}

// SetOnDisable replaces the teardown hook. Used when the hook needs the
// feature that is built around the supervisor.
func (s *Supervisor) SetOnDisable(fn func()) {
	s.mu.Lock()
	s.onDisable = fn
	s.mu.Unlock()
}

// Disabled reports whether the feature has tripped.
func (s *Supervisor) Disabled() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.disabled
}

// Do runs fn unless the feature is disabled, recovering any panic and
// tripping the breaker on the first one. There is no retry: a tripped
// feature behaves as if it had never been enabled.
func (s *Supervisor) Do(fn func()) {
	s.mu.Lock()
	if s.disabled {
		s.mu.Unlock()
		return
	}
	s.mu.Unlock()

	defer func() {
		if p := recover(); p != nil {
			s.trip(p)
		}
	}()
	fn()
}

func (s *Supervisor) trip(cause any) {
	s.mu.Lock()
	if s.disabled {
		s.mu.Unlock()
		return
	}
	s.disabled = true
	teardown := s.onDisable
	s.mu.Unlock()

	s.logger.Error("cobrowse: disabled after internal failure", "panic", cause)
	if teardown != nil {
		// Teardown must not trip again; swallow everything.
		defer func() { _ = recover() }()
		teardown()
	}
}
