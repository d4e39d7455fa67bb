// Package dom abstracts the live page a co-browsing participant runs
// against: elements, capture-phase event listeners, and viewport scrolling.
// Host screens implement Document; MemDocument is the in-memory reference
// implementation used by tests and terminal-hosted screens.
package dom

// WindowTarget is the selector sentinel for the viewport itself. It is used
// for scroll actions and is not a queryable element.
const WindowTarget = "window"

// RootTarget is the generic document-root reference the resolver falls back
// to when it cannot produce anything better.
const RootTarget = "body"

// EventKind identifies a DOM-level event.
type EventKind string

const (
	EventClick  EventKind = "click"
	EventInput  EventKind = "input"
	EventChange EventKind = "change"
	EventFocus  EventKind = "focus"
	EventScroll EventKind = "scroll"
)

// ScrollOffset is a viewport scroll position in pixels.
type ScrollOffset struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// Event is delivered to document-level listeners. Target is nil for
// viewport scroll events; Value carries the element value for input and
// change events.
type Event struct {
	Kind   EventKind
	Target Element
	Value  string
	Scroll ScrollOffset
}

// Element is one node of the live page.
type Element interface {
	// Tag returns the lower-case tag name.
	Tag() string
	// Attr returns the attribute value and whether it is set.
	Attr(name string) (string, bool)
	// Classes returns the class tokens in document order.
	Classes() []string
	// Value returns the current form value; empty for non-form elements.
	Value() string
	// SetValue replaces the form value without dispatching any event.
	SetValue(v string)
	// Click invokes the element's default activation and dispatches a
	// click event to document listeners.
	Click()
	// Focus moves input focus to the element and dispatches a focus event.
	Focus()
	// ScrollIntoView brings the element into the visible viewport.
	ScrollIntoView()
	// Dispatch delivers an event of the given kind for this element to the
	// document's listeners, carrying the element's current value.
	Dispatch(kind EventKind)
}

// Document is one participant's live page.
type Document interface {
	// QuerySelector returns the first element matching the selector in
	// document order, or nil if nothing matches. The error is non-nil only
	// for a syntactically invalid selector.
	QuerySelector(selector string) (Element, error)
	// AddListener registers a capture-phase listener for the event kind.
	// The returned function removes the listener; it is safe to call once.
	AddListener(kind EventKind, fn func(Event)) (remove func())
	// ScrollTo scrolls the viewport to the given offset and dispatches a
	// scroll event.
	ScrollTo(offset ScrollOffset)
	// Scroll returns the current viewport offset.
	Scroll() ScrollOffset
}
