package transit

import "errors"

// ErrStopNotFound is returned by a StopsReader for an unknown stop id.
var ErrStopNotFound = errors.New("stop not found")

// Stop is a physical location where passengers board or alight.
type Stop struct {
	ID        StopID
	GlobalID  string
	Name      string
	Latitude  float64
	Longitude float64
}

// StopsReader resolves stops and searches them by location.
type StopsReader interface {
	Stop(id StopID) (Stop, error)
	// StopsInRange returns the stops within meters of the point, nearest first.
	StopsInRange(lat, lon, meters float64) []Stop
}

// ConnectionEnumerator is a bidirectional cursor over connections ordered by
// departure time. MoveTo positions the cursor between connections; MoveNext
// and MovePrevious step onto the next connection in that direction and
// report false once no connection is left. An enumerator is owned by a single
// scan and must not be shared.
type ConnectionEnumerator interface {
	MoveTo(unixTime uint64)
	MoveNext() bool
	MovePrevious() bool
	// Current returns the connection under the cursor. It must not be modified.
	Current() *Connection
	// CurrentTime is the departure time of the current connection, or the
	// time passed to MoveTo before the first step.
	CurrentTime() uint64
}
