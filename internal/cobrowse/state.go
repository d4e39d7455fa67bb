package cobrowse

import (
	"sync"

	"horeca-pos/backend/internal/session/domain"
)

// Role is the local participant's role in the current session. It is
// derived solely from whether this participant issued Start.
type Role int

const (
	RoleNone Role = iota
	RoleOperator
	RoleViewer
)

func (r Role) String() string {
	switch r {
	case RoleOperator:
		return "operator"
	case RoleViewer:
		return "viewer"
	default:
		return "none"
	}
}

// Snapshot is one observed value of the shared session state.
type Snapshot struct {
	Role      Role
	Session   *domain.Session
	Connected bool
}

// InSession reports whether a session is active for this participant.
func (s Snapshot) InSession() bool {
	return s.Role != RoleNone && s.Session.Active()
}

// State is the single shared, observable session-state object injected
// into capture, replay, and presence. Subscribers are notified after every
// change with the new snapshot.
type State struct {
	mu     sync.Mutex
	snap   Snapshot
	subs   map[int]func(Snapshot)
	nextID int
}

// NewState returns an empty state: no role, no session, disconnected.
func NewState() *State {
	return &State{subs: make(map[int]func(Snapshot))}
}

// Snapshot returns the current state value.
func (s *State) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snap
}

// Subscribe registers fn to observe every subsequent change. The returned
// function removes the subscription.
func (s *State) Subscribe(fn func(Snapshot)) (remove func()) {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.subs[id] = fn
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.subs, id)
			s.mu.Unlock()
		})
	}
}

// update applies mutate to the state and notifies subscribers with the
// resulting snapshot. Subscribers run outside the lock.
func (s *State) update(mutate func(*Snapshot)) {
	s.mu.Lock()
	mutate(&s.snap)
	snap := s.snap
	fns := make([]func(Snapshot), 0, len(s.subs))
	for _, fn := range s.subs {
		fns = append(fns, fn)
	}
	s.mu.Unlock()
	for _, fn := range fns {
		fn(snap)
	}
}
