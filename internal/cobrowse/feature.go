package cobrowse

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"

	"horeca-pos/backend/internal/cobrowse/dom"
)

// ErrDisabled is returned by Mount when the feature tripped during
// construction. The host treats it as "feature not available" and renders
// nothing.
var ErrDisabled = errors.New("cobrowse: feature disabled")

// FeatureConfig wires one page runtime into the subsystem.
type FeatureConfig struct {
	TenantID  string
	Document  dom.Document
	Store     SessionStore
	Transport Transport
	// Marker renders the transient replay markers; nil for hosts without a
	// marker surface.
	Marker MarkerRenderer
	// Replay timing; the zero value selects DefaultReplayConfig.
	Replay ReplayConfig
	Logger *slog.Logger
}

// Feature composes the lifecycle manager, capture, replayer, and presence
// indicators for one participant, supervised so that any internal failure
// disables the feature instead of reaching the host page.
type Feature struct {
	sup      *Supervisor
	state    *State
	manager  *Manager
	capture  *Capture
	replayer *Replayer

	mu            sync.Mutex
	removeState   func()
	removeAction  func()
	lastSessionID string
}

// Mount builds and joins the feature. On any internal failure it returns
// ErrDisabled; it never panics into the caller.
func Mount(ctx context.Context, cfg FeatureConfig) (*Feature, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	sup := NewSupervisor(logger, nil)
	f := &Feature{sup: sup}

	mounted := false
	sup.Do(func() {
		if cfg.TenantID == "" || cfg.Document == nil || cfg.Store == nil || cfg.Transport == nil {
			panic("cobrowse: incomplete feature configuration")
		}
		replayCfg := cfg.Replay
		if replayCfg == (ReplayConfig{}) {
			replayCfg = DefaultReplayConfig()
		}
		f.state = NewState()
		f.manager = NewManager(cfg.TenantID, cfg.Store, cfg.Transport, f.state, logger)
		f.capture = NewCapture(cfg.Document, cfg.Transport, logger)
		f.replayer = NewReplayer(cfg.Document, cfg.Marker, replayCfg, logger)
		f.removeState = f.state.Subscribe(func(snap Snapshot) {
			sup.Do(func() { f.onState(cfg.Transport, snap) })
		})
		sup.SetOnDisable(f.teardown)
		f.manager.Join(ctx)
		mounted = true
	})
	if !mounted {
		return nil, ErrDisabled
	}
	return f, nil
}

// Start begins operating: the local participant drives the viewer's page.
func (f *Feature) Start(ctx context.Context, operatorName string) {
	f.sup.Do(func() { f.manager.Start(ctx, operatorName) })
}

// End stops the active session.
func (f *Feature) End(ctx context.Context) {
	f.sup.Do(func() { f.manager.End(ctx) })
}

// Snapshot returns the current shared session state; the zero Snapshot
// when the feature is disabled.
func (f *Feature) Snapshot() Snapshot {
	if f.sup.Disabled() || f.state == nil {
		return Snapshot{}
	}
	return f.state.Snapshot()
}

// Banner returns the viewer presence banner for the current state.
func (f *Feature) Banner() Banner { return ViewerBanner(f.Snapshot()) }

// Chip returns the operator status chip for the current state.
func (f *Feature) Chip() Chip { return OperatorChip(f.Snapshot()) }

// Disabled reports whether the supervisor tripped.
func (f *Feature) Disabled() bool { return f.sup.Disabled() }

// Close detaches listeners and subscriptions. The feature cannot be
// remounted; build a new one for a new page.
func (f *Feature) Close() { f.teardown() }

// onState gates capture and replay on the shared state: capture is live
// iff operator in an active session, the action subscription iff viewer in
// an active session.
func (f *Feature) onState(transport Transport, snap Snapshot) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if snap.InSession() && snap.Session.ID != f.lastSessionID {
		f.lastSessionID = snap.Session.ID
		f.replayer.Reset()
	}

	if snap.Role == RoleOperator && snap.InSession() {
		f.capture.Attach(snap.Session.OperatorName)
	} else {
		f.capture.Detach()
	}

	if snap.Role == RoleViewer && snap.InSession() {
		if f.removeAction == nil {
			f.removeAction = transport.OnMessage(EventAction, func(payload json.RawMessage) {
				f.sup.Do(func() { f.applyAction(payload) })
			})
		}
	} else if f.removeAction != nil {
		f.removeAction()
		f.removeAction = nil
	}
}

func (f *Feature) applyAction(payload json.RawMessage) {
	var a Action
	if err := json.Unmarshal(payload, &a); err != nil {
		return
	}
	f.replayer.Apply(a)
}

func (f *Feature) teardown() {
	f.mu.Lock()
	removeAction := f.removeAction
	f.removeAction = nil
	removeState := f.removeState
	f.removeState = nil
	f.mu.Unlock()

	if removeState != nil {
		removeState()
	}
	if removeAction != nil {
		removeAction()
	}
	if f.capture != nil {
		f.capture.Detach()
	}
	if f.manager != nil {
		f.manager.Leave()
	}
}
