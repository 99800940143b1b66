package journey

import (
	"fmt"

	"transitscan/internal/transit"
)

// LinkKind tells what kind of link a journey node represents.
type LinkKind uint8

const (
	// Scheduled is a ride on a timetabled connection.
	Scheduled LinkKind = iota
	// Genesis marks the start of a journey.
	Genesis
	// OtherMode is a transfer or walk between stops.
	OtherMode
)

func (k LinkKind) String() string {
	switch k {
	case Scheduled:
		return "scheduled"
	case Genesis:
		return "genesis"
	case OtherMode:
		return "othermode"
	}
	return fmt.Sprintf("LinkKind(%d)", k)
}

// LinkRef is either a genesis marker, an other-mode marker or a scheduled
// connection. Only scheduled links carry a meaningful connection id.
type LinkRef struct {
	Kind       LinkKind
	Connection transit.ConnectionID
}

var (
	GenesisLink   = LinkRef{Kind: Genesis, Connection: transit.InvalidConnection}
	OtherModeLink = LinkRef{Kind: OtherMode, Connection: transit.InvalidConnection}
)

// ScheduledLink refers to a timetabled connection.
func ScheduledLink(id transit.ConnectionID) LinkRef {
	return LinkRef{Kind: Scheduled, Connection: id}
}

// IsSpecial reports whether the link is not a scheduled connection.
func (r LinkRef) IsSpecial() bool {
	return r.Kind != Scheduled
}

func (r LinkRef) String() string {
	if r.Kind == Scheduled {
		return r.Connection.String()
	}
	return r.Kind.String()
}
