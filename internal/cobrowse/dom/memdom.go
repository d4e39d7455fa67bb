package dom

import "sync"

// MemDocument is the in-memory Document implementation. It backs the unit
// tests and terminal-hosted screens, and models the parts of a live page
// the co-browsing subsystem touches: an element tree, capture-phase
// listeners, input focus, and a viewport offset.
type MemDocument struct {
	mu        sync.Mutex
	root      *MemElement
	listeners map[EventKind]map[int]func(Event)
	nextID    int
	scroll    ScrollOffset
	focused   *MemElement
}

// NewMemDocument returns a document with an empty body element.
func NewMemDocument() *MemDocument {
	d := &MemDocument{listeners: make(map[EventKind]map[int]func(Event))}
	d.root = &MemElement{doc: d, tag: "body"}
	return d
}

// Body returns the root element.
func (d *MemDocument) Body() *MemElement { return d.root }

// QuerySelector returns the first matching element in document order.
func (d *MemDocument) QuerySelector(selector string) (Element, error) {
	m, err := CompileSelector(selector)
	if err != nil {
		return nil, err
	}
	d.mu.Lock()
	var flat []*MemElement
	d.root.flatten(&flat)
	d.mu.Unlock()
	for _, el := range flat {
		if m(el) {
			return el, nil
		}
	}
	return nil, nil
}

// AddListener registers a listener for the event kind and returns its
// removal function.
func (d *MemDocument) AddListener(kind EventKind, fn func(Event)) func() {
	d.mu.Lock()
	if d.listeners[kind] == nil {
		d.listeners[kind] = make(map[int]func(Event))
	}
	id := d.nextID
	d.nextID++
	d.listeners[kind][id] = fn
	d.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			d.mu.Lock()
			delete(d.listeners[kind], id)
			d.mu.Unlock()
		})
	}
}

// ScrollTo moves the viewport and dispatches a scroll event.
func (d *MemDocument) ScrollTo(offset ScrollOffset) {
	d.mu.Lock()
	d.scroll = offset
	d.mu.Unlock()
	d.dispatch(Event{Kind: EventScroll, Scroll: offset})
}

// Scroll returns the current viewport offset.
func (d *MemDocument) Scroll() ScrollOffset {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.scroll
}

// Focused returns the element currently holding input focus, or nil.
func (d *MemDocument) Focused() *MemElement {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.focused
}

// dispatch delivers the event to all listeners for its kind. Listeners are
// copied out first so a listener may remove itself or add others.
func (d *MemDocument) dispatch(ev Event) {
	d.mu.Lock()
	fns := make([]func(Event), 0, len(d.listeners[ev.Kind]))
	for _, fn := range d.listeners[ev.Kind] {
		fns = append(fns, fn)
	}
	d.mu.Unlock()
	for _, fn := range fns {
		fn(ev)
	}
}

// MemElement is one node of a MemDocument tree.
type MemElement struct {
	doc      *MemDocument
	tag      string
	attrs    map[string]string
	value    string
	children []*MemElement

	clicks     int
	onActivate func()
}

// Append creates a child element with the given tag and attributes and
// returns it. The "class" attribute is split into class tokens on lookup.
func (e *MemElement) Append(tag string, attrs map[string]string) *MemElement {
	child := &MemElement{doc: e.doc, tag: tag}
	if len(attrs) > 0 {
		child.attrs = make(map[string]string, len(attrs))
		for k, v := range attrs {
			child.attrs[k] = v
		}
	}
	e.doc.mu.Lock()
	e.children = append(e.children, child)
	e.doc.mu.Unlock()
	return child
}

// OnActivate sets a handler invoked by Click, standing in for the host
// screen's own click behavior.
func (e *MemElement) OnActivate(fn func()) {
	e.doc.mu.Lock()
	e.onActivate = fn
	e.doc.mu.Unlock()
}

// Clicks returns how many times the element has been activated.
func (e *MemElement) Clicks() int {
	e.doc.mu.Lock()
	defer e.doc.mu.Unlock()
	return e.clicks
}

func (e *MemElement) Tag() string { return e.tag }

func (e *MemElement) Attr(name string) (string, bool) {
	e.doc.mu.Lock()
	defer e.doc.mu.Unlock()
	v, ok := e.attrs[name]
	return v, ok
}

func (e *MemElement) Classes() []string {
	e.doc.mu.Lock()
	raw := e.attrs["class"]
	e.doc.mu.Unlock()
	if raw == "" {
		return nil
	}
	return splitClasses(raw)
}

func (e *MemElement) Value() string {
	e.doc.mu.Lock()
	defer e.doc.mu.Unlock()
	return e.value
}

func (e *MemElement) SetValue(v string) {
	e.doc.mu.Lock()
	e.value = v
	e.doc.mu.Unlock()
}

func (e *MemElement) Click() {
	e.doc.mu.Lock()
	e.clicks++
	fn := e.onActivate
	e.doc.mu.Unlock()
	if fn != nil {
		fn()
	}
	e.doc.dispatch(Event{Kind: EventClick, Target: e})
}

func (e *MemElement) Focus() {
	e.doc.mu.Lock()
	e.doc.focused = e
	e.doc.mu.Unlock()
	e.doc.dispatch(Event{Kind: EventFocus, Target: e})
}

func (e *MemElement) ScrollIntoView() {}

func (e *MemElement) Dispatch(kind EventKind) {
	e.doc.dispatch(Event{Kind: kind, Target: e, Value: e.Value()})
}

// flatten appends the subtree rooted at e in depth-first document order.
// Caller holds the document lock.
func (e *MemElement) flatten(out *[]*MemElement) {
	*out = append(*out, e)
	for _, c := range e.children {
		c.flatten(out)
	}
}

func splitClasses(raw string) []string {
	var out []string
	start := -1
	for i, r := range raw {
		if r == ' ' || r == '\t' {
			if start >= 0 {
				out = append(out, raw[start:i])
				start = -1
			}
			continue
		}
		if start < 0 {
			start = i
		}
	}
	if start >= 0 {
		out = append(out, raw[start:])
	}
	return out
}
