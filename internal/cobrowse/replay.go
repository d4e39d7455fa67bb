package cobrowse

import (
	"log/slog"
	"sync"
	"time"

	"horeca-pos/backend/internal/cobrowse/dom"
)

// ReplayConfig tunes the replayer's visual timing. The click delay is a
// heuristic that lets the marker render before activation, not a
// correctness requirement; tests set both to zero for synchronous applies.
type ReplayConfig struct {
	// ClickDelay is the pause between showing the marker and invoking the
	// target's activation.
	ClickDelay time.Duration
	// MarkerWindow is how long a marker stays visible.
	MarkerWindow time.Duration
}

// DefaultReplayConfig returns the production timing.
func DefaultReplayConfig() ReplayConfig {
	return ReplayConfig{ClickDelay: 300 * time.Millisecond, MarkerWindow: 1800 * time.Millisecond}
}

// MarkerRenderer renders the transient visual marker anchored to a replay
// target, labelled with the originator's name. The returned function
// removes the marker.
type MarkerRenderer interface {
	Show(target dom.Element, label string) (remove func())
}

// Replayer applies incoming actions to the viewer's document. A per-session
// monotonic watermark enforces ordering and idempotence over the unordered
// transport: an action at or below the watermark is dropped without side
// effect, and the watermark advances on every admitted action whether or
// not the apply succeeds, so stale retries never reapply.
type Replayer struct {
	doc    dom.Document
	marker MarkerRenderer
	cfg    ReplayConfig
	logger *slog.Logger

	mu        sync.Mutex
	watermark int64
}

// NewReplayer returns a replayer for the given document. marker may be nil
// when the host has no marker surface.
func NewReplayer(doc dom.Document, marker MarkerRenderer, cfg ReplayConfig, logger *slog.Logger) *Replayer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Replayer{doc: doc, marker: marker, cfg: cfg, logger: logger}
}

// Watermark returns the highest admitted action timestamp.
func (r *Replayer) Watermark() int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.watermark
}

// Reset clears the watermark for a new session.
func (r *Replayer) Reset() {
	r.mu.Lock()
	r.watermark = 0
	r.mu.Unlock()
}

// Apply runs one action through the gate/resolve/apply state machine. It
// never returns an error and never panics: a failed apply is a dropped
// action.
func (r *Replayer) Apply(a Action) {
	r.mu.Lock()
	if a.Timestamp <= r.watermark {
		r.mu.Unlock()
		return
	}
	r.watermark = a.Timestamp
	r.mu.Unlock()

	defer func() {
		if p := recover(); p != nil {
			r.logger.Warn("cobrowse: replay apply dropped", "kind", a.Kind, "selector", a.Selector, "panic", p)
		}
	}()

	if a.Kind == ActionScroll {
		if a.ScrollOffset != nil {
			r.doc.ScrollTo(*a.ScrollOffset)
		}
		return
	}

	el := dom.Lookup(r.doc, a.Selector)
	if el == nil {
		return
	}

	switch a.Kind {
	case ActionClick:
		el.ScrollIntoView()
		r.showMarker(el, a.OriginatorName)
		r.after(r.cfg.ClickDelay, el.Click)
	case ActionInput:
		el.SetValue(a.Value)
		el.Dispatch(dom.EventInput)
		el.Dispatch(dom.EventChange)
		r.showMarker(el, a.OriginatorName)
	case ActionFocus:
		el.Focus()
		r.showMarker(el, a.OriginatorName)
	}
}

// showMarker renders the marker and schedules its removal after the
// display window.
func (r *Replayer) showMarker(el dom.Element, label string) {
	if r.marker == nil {
		return
	}
	remove := r.marker.Show(el, label)
	if remove != nil {
		r.after(r.cfg.MarkerWindow, remove)
	}
}

// after runs fn once d has elapsed; with a non-positive delay it runs
// synchronously. Deferred runs recover so a late panic stays inside the
// subsystem.
func (r *Replayer) after(d time.Duration, fn func()) {
	if d <= 0 {
		fn()
		return
	}
	time.AfterFunc(d, func() {
		defer func() {
			if p := recover(); p != nil {
				r.logger.Warn("cobrowse: deferred replay step dropped", "panic", p)
			}
		}()
		fn()
	})
}
