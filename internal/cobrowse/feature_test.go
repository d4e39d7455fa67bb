package cobrowse

import (
	"context"
	"errors"
	"testing"

	"horeca-pos/backend/internal/cobrowse/dom"
	"horeca-pos/backend/internal/session/domain"
)

// syncReplay applies clicks and removes markers synchronously.
var syncReplay = ReplayConfig{ClickDelay: -1, MarkerWindow: -1}

type mountedPair struct {
	store       *fakeStore
	operator    *Feature
	operatorDoc *dom.MemDocument
	viewer      *Feature
	viewerDoc   *dom.MemDocument
	marker      *fakeMarker
}

func mountPair(t *testing.T) *mountedPair {
	t.Helper()
	store := newFakeStore()
	bus := newFakeBus()
	marker := &fakeMarker{}

	operatorDoc := dom.NewMemDocument()
	operator, err := Mount(context.Background(), FeatureConfig{
		TenantID:  "tenant-1",
		Document:  operatorDoc,
		Store:     store,
		Transport: bus.transport(),
		Replay:    syncReplay,
	})
	if err != nil {
		t.Fatalf("mount operator: %v", err)
	}
	t.Cleanup(operator.Close)

	viewerDoc := dom.NewMemDocument()
	viewer, err := Mount(context.Background(), FeatureConfig{
		TenantID:  "tenant-1",
		Document:  viewerDoc,
		Store:     store,
		Transport: bus.transport(),
		Marker:    marker,
		Replay:    syncReplay,
	})
	if err != nil {
		t.Fatalf("mount viewer: %v", err)
	}
	t.Cleanup(viewer.Close)

	return &mountedPair{
		store: store, operator: operator, operatorDoc: operatorDoc,
		viewer: viewer, viewerDoc: viewerDoc, marker: marker,
	}
}

func TestFeatureGuidedSession(t *testing.T) {
	p := mountPair(t)
	opQty := p.operatorDoc.Body().Append("input", map[string]string{"id": "qty"})
	viewQty := p.viewerDoc.Body().Append("input", map[string]string{"id": "qty"})

	p.operator.Start(context.Background(), "Rudi")

	banner := p.viewer.Banner()
	if !banner.Visible || banner.Text != "Rudi kijkt live mee" {
		t.Fatalf("viewer banner = %+v", banner)
	}
	chip := p.operator.Chip()
	if !chip.Visible || chip.Text != "Live meekijken actief" {
		t.Fatalf("operator chip = %+v", chip)
	}

	// The operator fills the quantity field; the viewer's field follows.
	opQty.SetValue("42")
	opQty.Dispatch(dom.EventInput)

	if got := viewQty.Value(); got != "42" {
		t.Errorf("viewer qty = %q, want 42", got)
	}
	shows := p.marker.shown()
	if len(shows) != 1 || shows[0].label != "Rudi" {
		t.Errorf("marker shows = %+v", shows)
	}

	p.operator.End(context.Background())

	if b := p.viewer.Banner(); b.Visible {
		t.Errorf("banner after end = %+v, want hidden", b)
	}
	if c := p.operator.Chip(); c.Visible {
		t.Errorf("chip after end = %+v, want hidden", c)
	}
}

func TestFeatureClickReplay(t *testing.T) {
	p := mountPair(t)
	p.operatorDoc.Body().Append("button", map[string]string{"id": "pay"})
	viewPay := p.viewerDoc.Body().Append("button", map[string]string{"id": "pay"})

	p.operator.Start(context.Background(), "Rudi")
	opPay, err := p.operatorDoc.QuerySelector("#pay")
	if err != nil || opPay == nil {
		t.Fatalf("query operator button: %v", err)
	}
	opPay.Click()

	if got := viewPay.Clicks(); got != 1 {
		t.Errorf("viewer clicks = %d, want 1", got)
	}
}

func TestFeatureViewerActionsNotCaptured(t *testing.T) {
	p := mountPair(t)
	viewBtn := p.viewerDoc.Body().Append("button", map[string]string{"id": "pay"})
	opBtn := p.operatorDoc.Body().Append("button", map[string]string{"id": "pay"})

	p.operator.Start(context.Background(), "Rudi")

	// Viewer-side interaction must not be replayed back to the operator.
	viewBtn.Click()
	if got := opBtn.Clicks(); got != 0 {
		t.Errorf("operator clicks = %d, want 0", got)
	}
}

func TestFeaturePanicDisables(t *testing.T) {
	store := &panickyStore{fakeStore: newFakeStore()}
	transport := newFakeTransport()

	f, err := Mount(context.Background(), FeatureConfig{
		TenantID:  "tenant-1",
		Document:  dom.NewMemDocument(),
		Store:     store,
		Transport: transport,
		Replay:    syncReplay,
	})
	if err != nil {
		t.Fatalf("mount: %v", err)
	}
	defer f.Close()

	f.Start(context.Background(), "Rudi")

	if !f.Disabled() {
		t.Fatal("feature not disabled after store panic")
	}
	if snap := f.Snapshot(); snap != (Snapshot{}) {
		t.Errorf("disabled snapshot = %+v, want zero", snap)
	}
	if b := f.Banner(); b.Visible {
		t.Errorf("disabled banner = %+v", b)
	}
	if c := f.Chip(); c.Visible {
		t.Errorf("disabled chip = %+v", c)
	}

	// Once tripped the feature stays inert.
	f.Start(context.Background(), "Rudi")
	if got := transport.publishedCount(EventSessionStart); got != 0 {
		t.Errorf("published session starts after trip = %d, want 0", got)
	}
}

func TestFeatureMountIncompleteConfig(t *testing.T) {
	_, err := Mount(context.Background(), FeatureConfig{})
	if !errors.Is(err, ErrDisabled) {
		t.Fatalf("err = %v, want ErrDisabled", err)
	}
}

func TestFeatureAdoptsRunningSession(t *testing.T) {
	store := newFakeStore()
	if _, err := store.Start(context.Background(), "tenant-1", "Rudi"); err != nil {
		t.Fatalf("seed: %v", err)
	}

	f, err := Mount(context.Background(), FeatureConfig{
		TenantID:  "tenant-1",
		Document:  dom.NewMemDocument(),
		Store:     store,
		Transport: newFakeTransport(),
		Replay:    syncReplay,
	})
	if err != nil {
		t.Fatalf("mount: %v", err)
	}
	defer f.Close()

	snap := f.Snapshot()
	if snap.Role != RoleViewer || !snap.InSession() {
		t.Errorf("snapshot = %+v, want adopted viewer", snap)
	}
}

// panickyStore panics on Start, modeling a storage client bug that must
// trip the supervisor rather than reach the host page.
type panickyStore struct {
	*fakeStore
}

func (s *panickyStore) Start(ctx context.Context, tenantID, operatorName string) (*domain.Session, error) {
	panic("store client bug")
}
