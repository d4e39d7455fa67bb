package cobrowse

import "testing"

func TestViewerBanner(t *testing.T) {
	snap := Snapshot{Role: RoleViewer, Session: activeSession("Rudi"), Connected: true}
	b := ViewerBanner(snap)
	if !b.Visible || !b.Connected {
		t.Fatalf("banner = %+v", b)
	}
	if b.Text != "Rudi kijkt live mee" {
		t.Errorf("text = %q", b.Text)
	}
}

func TestViewerBannerHidden(t *testing.T) {
	cases := []struct {
		name string
		snap Snapshot
	}{
		{"no session", Snapshot{Role: RoleViewer}},
		{"operator role", Snapshot{Role: RoleOperator, Session: activeSession("Rudi")}},
		{"no role", Snapshot{}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if b := ViewerBanner(tc.snap); b.Visible {
				t.Errorf("banner = %+v, want hidden", b)
			}
		})
	}
}

func TestOperatorChip(t *testing.T) {
	snap := Snapshot{Role: RoleOperator, Session: activeSession("Rudi"), Connected: true}
	c := OperatorChip(snap)
	if !c.Visible || c.Text != "Live meekijken actief" {
		t.Fatalf("chip = %+v", c)
	}

	// Disconnected keeps the chip up but flags the channel.
	snap.Connected = false
	if c := OperatorChip(snap); !c.Visible || c.Connected {
		t.Errorf("chip = %+v", c)
	}

	if c := OperatorChip(Snapshot{Role: RoleViewer, Session: activeSession("Rudi")}); c.Visible {
		t.Errorf("chip = %+v, want hidden for viewer", c)
	}
}
