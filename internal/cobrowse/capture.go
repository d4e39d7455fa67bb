package cobrowse

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"horeca-pos/backend/internal/cobrowse/dom"
)

// scrollThrottle bounds transport volume: at most one scroll emission per
// interval, leading edge.
const scrollThrottle = 100 * time.Millisecond

// Capture attaches capture-phase listeners to the operator's document and
// converts interactions into published actions. It is active only while
// the local role is operator and a session is active; Detach removes every
// listener so no global handler outlives the role.
type Capture struct {
	doc       dom.Document
	transport Transport
	logger    *slog.Logger

	mu         sync.Mutex
	operator   string
	removes    []func()
	lastTS     int64
	lastScroll time.Time

	now func() time.Time
}

// NewCapture returns a detached capture for the given document.
func NewCapture(doc dom.Document, transport Transport, logger *slog.Logger) *Capture {
	if logger == nil {
		logger = slog.Default()
	}
	return &Capture{doc: doc, transport: transport, logger: logger, now: time.Now}
}

// Attach registers the document listeners and tags every emitted action
// with the operator's display name. Attaching twice is a no-op.
func (c *Capture) Attach(operatorName string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.removes) > 0 {
		return
	}
	c.operator = operatorName
	c.removes = []func(){
		c.doc.AddListener(dom.EventClick, c.onClick),
		c.doc.AddListener(dom.EventInput, c.onInput),
		c.doc.AddListener(dom.EventFocus, c.onFocus),
		c.doc.AddListener(dom.EventScroll, c.onScroll),
	}
}

// Detach removes all listeners. Safe to call when already detached.
func (c *Capture) Detach() {
	c.mu.Lock()
	removes := c.removes
	c.removes = nil
	c.mu.Unlock()
	for _, remove := range removes {
		remove()
	}
}

// Attached reports whether listeners are currently registered.
func (c *Capture) Attached() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.removes) > 0
}

func (c *Capture) onClick(ev dom.Event) {
	c.publish(Action{Kind: ActionClick, Selector: dom.Resolve(c.doc, ev.Target)})
}

func (c *Capture) onInput(ev dom.Event) {
	c.publish(Action{Kind: ActionInput, Selector: dom.Resolve(c.doc, ev.Target), Value: ev.Value})
}

func (c *Capture) onFocus(ev dom.Event) {
	c.publish(Action{Kind: ActionFocus, Selector: dom.Resolve(c.doc, ev.Target)})
}

func (c *Capture) onScroll(ev dom.Event) {
	c.mu.Lock()
	if c.now().Sub(c.lastScroll) < scrollThrottle {
		c.mu.Unlock()
		return
	}
	c.lastScroll = c.now()
	c.mu.Unlock()
	offset := ev.Scroll
	c.publish(Action{Kind: ActionScroll, Selector: dom.WindowTarget, ScrollOffset: &offset})
}

// publish stamps the action with the operator name and a strictly
// increasing timestamp and sends it. Publish failures are logged only; the
// connectivity indicator is the user-visible signal.
func (c *Capture) publish(a Action) {
	c.mu.Lock()
	if len(c.removes) == 0 {
		c.mu.Unlock()
		return
	}
	ts := c.now().UnixMilli()
	if ts <= c.lastTS {
		ts = c.lastTS + 1
	}
	c.lastTS = ts
	a.Timestamp = ts
	a.OriginatorName = c.operator
	c.mu.Unlock()

	if err := c.transport.Publish(context.Background(), EventAction, a); err != nil {
		c.logger.Warn("cobrowse: action publish failed", "kind", a.Kind, "err", err)
	}
}
