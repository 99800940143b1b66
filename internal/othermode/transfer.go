package othermode

import (
	"fmt"

	"transitscan/internal/transit"
)

// DefaultTransferSeconds is used when a profile does not set a transfer time.
const DefaultTransferSeconds = 180

// InternalTransfer is the time needed to change vehicles within one stop.
// Any other pair of stops is unreachable.
type InternalTransfer struct {
	seconds uint32
}

func NewInternalTransfer(seconds uint32) *InternalTransfer {
	return &InternalTransfer{seconds: seconds}
}

func (g *InternalTransfer) TimeBetween(from, to transit.Stop) uint32 {
	if from.ID != to.ID {
		return Unreachable
	}
	return g.seconds
}

func (g *InternalTransfer) TimesBetween(from transit.Stop, to []transit.Stop) map[transit.StopID]uint32 {
	return timesBetween(g, from, to)
}

func (g *InternalTransfer) Range() float64 { return 0 }

func (g *InternalTransfer) Identifier() string {
	return fmt.Sprintf("internaltransfer&timeNeeded=%d", g.seconds)
}

func (g *InternalTransfer) Source(from, to transit.Stop) Generator { return g }
