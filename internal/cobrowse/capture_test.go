package cobrowse

import (
	"errors"
	"testing"
	"time"

	"horeca-pos/backend/internal/cobrowse/dom"
)

func TestCaptureClick(t *testing.T) {
	doc := dom.NewMemDocument()
	btn := doc.Body().Append("button", map[string]string{"id": "pay"})
	transport := newFakeTransport()
	c := NewCapture(doc, transport, nil)

	c.Attach("Rudi")
	btn.Click()

	actions := transport.publishedActions()
	if len(actions) != 1 {
		t.Fatalf("published %d actions, want 1", len(actions))
	}
	a := actions[0]
	if a.Kind != ActionClick || a.Selector != "#pay" || a.OriginatorName != "Rudi" {
		t.Errorf("action = %+v", a)
	}
	if a.Timestamp <= 0 {
		t.Errorf("timestamp = %d, want > 0", a.Timestamp)
	}
}

func TestCaptureInputCarriesValue(t *testing.T) {
	doc := dom.NewMemDocument()
	qty := doc.Body().Append("input", map[string]string{"id": "qty"})
	transport := newFakeTransport()
	c := NewCapture(doc, transport, nil)

	c.Attach("Rudi")
	qty.SetValue("42")
	qty.Dispatch(dom.EventInput)

	actions := transport.publishedActions()
	if len(actions) != 1 {
		t.Fatalf("published %d actions, want 1", len(actions))
	}
	if actions[0].Kind != ActionInput || actions[0].Value != "42" {
		t.Errorf("action = %+v", actions[0])
	}
}

func TestCaptureTimestampsStrictlyIncrease(t *testing.T) {
	doc := dom.NewMemDocument()
	btn := doc.Body().Append("button", map[string]string{"id": "pay"})
	transport := newFakeTransport()
	c := NewCapture(doc, transport, nil)

	// Frozen clock: successive actions within the same millisecond must
	// still get distinct ascending timestamps.
	frozen := time.Now()
	c.now = func() time.Time { return frozen }

	c.Attach("Rudi")
	btn.Click()
	btn.Click()
	btn.Click()

	actions := transport.publishedActions()
	if len(actions) != 3 {
		t.Fatalf("published %d actions, want 3", len(actions))
	}
	for i := 1; i < len(actions); i++ {
		if actions[i].Timestamp <= actions[i-1].Timestamp {
			t.Fatalf("timestamps not strictly increasing: %d then %d",
				actions[i-1].Timestamp, actions[i].Timestamp)
		}
	}
}

func TestCaptureScrollThrottle(t *testing.T) {
	doc := dom.NewMemDocument()
	transport := newFakeTransport()
	c := NewCapture(doc, transport, nil)

	now := time.Now()
	c.now = func() time.Time { return now }

	c.Attach("Rudi")
	doc.ScrollTo(dom.ScrollOffset{Y: 10})
	doc.ScrollTo(dom.ScrollOffset{Y: 20})
	doc.ScrollTo(dom.ScrollOffset{Y: 30})

	// Leading edge: only the first scroll within the window goes out.
	actions := transport.publishedActions()
	if len(actions) != 1 {
		t.Fatalf("published %d scroll actions, want 1", len(actions))
	}
	if actions[0].Selector != dom.WindowTarget || actions[0].ScrollOffset == nil || actions[0].ScrollOffset.Y != 10 {
		t.Errorf("action = %+v", actions[0])
	}

	now = now.Add(150 * time.Millisecond)
	doc.ScrollTo(dom.ScrollOffset{Y: 40})
	if got := len(transport.publishedActions()); got != 2 {
		t.Errorf("published %d actions after window, want 2", got)
	}
}

func TestCaptureDetachStopsPublishing(t *testing.T) {
	doc := dom.NewMemDocument()
	btn := doc.Body().Append("button", map[string]string{"id": "pay"})
	transport := newFakeTransport()
	c := NewCapture(doc, transport, nil)

	c.Attach("Rudi")
	if !c.Attached() {
		t.Fatal("not attached")
	}
	c.Detach()
	if c.Attached() {
		t.Fatal("still attached")
	}

	btn.Click()
	if got := len(transport.publishedActions()); got != 0 {
		t.Errorf("published %d actions after detach, want 0", got)
	}

	// Detach again is a no-op.
	c.Detach()
}

func TestCaptureAttachIdempotent(t *testing.T) {
	doc := dom.NewMemDocument()
	btn := doc.Body().Append("button", map[string]string{"id": "pay"})
	transport := newFakeTransport()
	c := NewCapture(doc, transport, nil)

	c.Attach("Rudi")
	c.Attach("Rudi")
	btn.Click()

	if got := len(transport.publishedActions()); got != 1 {
		t.Errorf("published %d actions, want 1 (double attach must not double listeners)", got)
	}
}

func TestCapturePublishFailureSwallowed(t *testing.T) {
	doc := dom.NewMemDocument()
	btn := doc.Body().Append("button", map[string]string{"id": "pay"})
	transport := newFakeTransport()
	transport.publishErr = errors.New("disconnected")
	c := NewCapture(doc, transport, nil)

	c.Attach("Rudi")
	// Must not panic; the failure is logged only.
	btn.Click()
}
