package cobrowse

import "fmt"

// Banner is the viewer-facing presence indicator shown while a session is
// active: who is watching along and whether the channel is up.
type Banner struct {
	Visible   bool
	Text      string
	Connected bool
}

// Chip is the operator-facing status indicator shown while controlling.
type Chip struct {
	Visible   bool
	Text      string
	Connected bool
}

// ViewerBanner derives the banner from a state snapshot. It carries no
// logic of its own beyond reflecting the shared state.
func ViewerBanner(s Snapshot) Banner {
	if s.Role != RoleViewer || !s.Session.Active() {
		return Banner{}
	}
	return Banner{
		Visible:   true,
		Text:      fmt.Sprintf("%s kijkt live mee", s.Session.OperatorName),
		Connected: s.Connected,
	}
}

// OperatorChip derives the operator status chip from a state snapshot.
func OperatorChip(s Snapshot) Chip {
	if s.Role != RoleOperator || !s.Session.Active() {
		return Chip{}
	}
	return Chip{
		Visible:   true,
		Text:      "Live meekijken actief",
		Connected: s.Connected,
	}
}
