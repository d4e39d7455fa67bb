package cobrowse

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"horeca-pos/backend/internal/cobrowse/dom"
	"horeca-pos/backend/internal/session/domain"
)

// fakeBus connects fake transports the way the gateway does: a publish is
// delivered to every other peer, never echoed to the sender.
type fakeBus struct {
	mu    sync.Mutex
	peers []*fakeTransport
}

func newFakeBus() *fakeBus { return &fakeBus{} }

func (b *fakeBus) transport() *fakeTransport {
	t := &fakeTransport{
		bus:       b,
		handlers:  make(map[string]map[int]func(json.RawMessage)),
		statusFns: make(map[int]func(bool)),
		connected: true,
	}
	b.mu.Lock()
	b.peers = append(b.peers, t)
	b.mu.Unlock()
	return t
}

func (b *fakeBus) broadcast(from *fakeTransport, event string, raw json.RawMessage) {
	b.mu.Lock()
	peers := append([]*fakeTransport(nil), b.peers...)
	b.mu.Unlock()
	for _, p := range peers {
		if p != from {
			p.deliver(event, raw)
		}
	}
}

type publishedMessage struct {
	event string
	raw   json.RawMessage
}

type fakeTransport struct {
	bus *fakeBus

	mu         sync.Mutex
	handlers   map[string]map[int]func(json.RawMessage)
	statusFns  map[int]func(bool)
	nextID     int
	connected  bool
	published  []publishedMessage
	publishErr error
}

func newFakeTransport() *fakeTransport { return newFakeBus().transport() }

func (t *fakeTransport) Publish(ctx context.Context, event string, payload any) error {
	t.mu.Lock()
	err := t.publishErr
	t.mu.Unlock()
	if err != nil {
		return err
	}
	raw, merr := json.Marshal(payload)
	if merr != nil {
		return merr
	}
	t.mu.Lock()
	t.published = append(t.published, publishedMessage{event: event, raw: raw})
	t.mu.Unlock()
	if t.bus != nil {
		t.bus.broadcast(t, event, raw)
	}
	return nil
}

func (t *fakeTransport) OnMessage(event string, handler func(json.RawMessage)) func() {
	t.mu.Lock()
	if t.handlers[event] == nil {
		t.handlers[event] = make(map[int]func(json.RawMessage))
	}
	id := t.nextID
	t.nextID++
	t.handlers[event][id] = handler
	t.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			t.mu.Lock()
			delete(t.handlers[event], id)
			t.mu.Unlock()
		})
	}
}

func (t *fakeTransport) OnStatus(fn func(bool)) func() {
	t.mu.Lock()
	id := t.nextID
	t.nextID++
	t.statusFns[id] = fn
	t.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			t.mu.Lock()
			delete(t.statusFns, id)
			t.mu.Unlock()
		})
	}
}

func (t *fakeTransport) deliver(event string, raw json.RawMessage) {
	t.mu.Lock()
	fns := make([]func(json.RawMessage), 0, len(t.handlers[event]))
	for _, fn := range t.handlers[event] {
		fns = append(fns, fn)
	}
	t.mu.Unlock()
	for _, fn := range fns {
		fn(raw)
	}
}

func (t *fakeTransport) setConnected(connected bool) {
	t.mu.Lock()
	t.connected = connected
	fns := make([]func(bool), 0, len(t.statusFns))
	for _, fn := range t.statusFns {
		fns = append(fns, fn)
	}
	t.mu.Unlock()
	for _, fn := range fns {
		fn(connected)
	}
}

func (t *fakeTransport) publishedCount(event string) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	n := 0
	for _, p := range t.published {
		if p.event == event {
			n++
		}
	}
	return n
}

func (t *fakeTransport) publishedActions() []Action {
	t.mu.Lock()
	defer t.mu.Unlock()
	var out []Action
	for _, p := range t.published {
		if p.event != EventAction {
			continue
		}
		var a Action
		if err := json.Unmarshal(p.raw, &a); err == nil {
			out = append(out, a)
		}
	}
	return out
}

// fakeStore is an in-memory session store with the at-most-one-active
// invariant: a racing start ends the earlier session, last write wins.
type fakeStore struct {
	mu       sync.Mutex
	active   map[string]*domain.Session
	nextID    int
	startErr  error
	endErr    error
	activeErr error
	started   int
}

func newFakeStore() *fakeStore {
	return &fakeStore{active: make(map[string]*domain.Session)}
}

func (s *fakeStore) Start(ctx context.Context, tenantID, operatorName string) (*domain.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.startErr != nil {
		return nil, s.startErr
	}
	if prev := s.active[tenantID]; prev != nil {
		now := time.Now().UTC()
		prev.Status = domain.StatusEnded
		prev.EndedAt = &now
	}
	s.nextID++
	s.started++
	sess := &domain.Session{
		ID:           fmt.Sprintf("sess-%d", s.nextID),
		TenantID:     tenantID,
		OperatorName: operatorName,
		Status:       domain.StatusActive,
		StartedAt:    time.Now().UTC(),
	}
	s.active[tenantID] = sess
	copy := *sess
	return &copy, nil
}

func (s *fakeStore) End(ctx context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.endErr != nil {
		return s.endErr
	}
	for tenant, sess := range s.active {
		if sess.ID == sessionID {
			now := time.Now().UTC()
			sess.Status = domain.StatusEnded
			sess.EndedAt = &now
			delete(s.active, tenant)
		}
	}
	return nil
}

func (s *fakeStore) Active(ctx context.Context, tenantID string) (*domain.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.activeErr != nil {
		return nil, s.activeErr
	}
	sess := s.active[tenantID]
	if sess == nil {
		return nil, nil
	}
	copy := *sess
	return &copy, nil
}

type markerShow struct {
	target dom.Element
	label  string
}

// fakeMarker records shows and removals.
type fakeMarker struct {
	mu      sync.Mutex
	shows   []markerShow
	removed int
}

func (m *fakeMarker) Show(target dom.Element, label string) func() {
	m.mu.Lock()
	m.shows = append(m.shows, markerShow{target: target, label: label})
	m.mu.Unlock()
	return func() {
		m.mu.Lock()
		m.removed++
		m.mu.Unlock()
	}
}

func (m *fakeMarker) shown() []markerShow {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]markerShow(nil), m.shows...)
}
