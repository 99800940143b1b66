// Package othermode computes how long it takes to get between two stops
// without a scheduled vehicle: transferring inside a station or walking.
package othermode

import (
	"math"

	"transitscan/internal/transit"
)

// Unreachable is returned by a Generator when no path exists between two stops.
const Unreachable uint32 = math.MaxUint32

// Generator produces travel times between stops outside of scheduled connections.
type Generator interface {
	// TimeBetween returns the seconds needed to get from one stop to the other,
	// or Unreachable.
	TimeBetween(from, to transit.Stop) uint32
	// TimesBetween returns the time to every stop in to that can be reached.
	// Unreachable stops are left out.
	TimesBetween(from transit.Stop, to []transit.Stop) map[transit.StopID]uint32
	// Range is the maximum distance in meters this generator can bridge.
	Range() float64
	// Identifier describes the generator and its parameters.
	Identifier() string
	// Source returns the generator actually answering for this pair.
	Source(from, to transit.Stop) Generator
}

// timesBetween implements TimesBetween on top of TimeBetween.
func timesBetween(g Generator, from transit.Stop, to []transit.Stop) map[transit.StopID]uint32 {
	times := make(map[transit.StopID]uint32, len(to))
	for _, s := range to {
		if t := g.TimeBetween(from, s); t != Unreachable {
			times[s.ID] = t
		}
	}
	return times
}
