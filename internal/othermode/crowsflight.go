package othermode

import (
	"fmt"

	"transitscan/internal/geo"
	"transitscan/internal/transit"
)

// Defaults for CrowsFlight.
const (
	DefaultMaxWalkMeters = 500
	DefaultWalkSpeed     = 1.4 // m/s
)

// CrowsFlight estimates walking time as the great-circle distance divided by
// a walking speed. Stops further apart than maxDistance are unreachable, as
// is walking from a stop to itself.
type CrowsFlight struct {
	maxDistance float64
	speed       float64
}

func NewCrowsFlight(maxDistance, speed float64) *CrowsFlight {
	if maxDistance <= 0 {
		maxDistance = DefaultMaxWalkMeters
	}
	if speed <= 0 {
		speed = DefaultWalkSpeed
	}
	return &CrowsFlight{maxDistance: maxDistance, speed: speed}
}

func (g *CrowsFlight) TimeBetween(from, to transit.Stop) uint32 {
	if from.ID == to.ID {
		return Unreachable
	}
	d := geo.Haversine(from.Latitude, from.Longitude, to.Latitude, to.Longitude)
	if d > g.maxDistance {
		return Unreachable
	}
	return uint32(d / g.speed)
}

func (g *CrowsFlight) TimesBetween(from transit.Stop, to []transit.Stop) map[transit.StopID]uint32 {
	return timesBetween(g, from, to)
}

func (g *CrowsFlight) Range() float64 { return g.maxDistance }

func (g *CrowsFlight) Identifier() string {
	return fmt.Sprintf("crowsflight&maxDistance=%g&speed=%g", g.maxDistance, g.speed)
}

func (g *CrowsFlight) Source(from, to transit.Stop) Generator { return g }
