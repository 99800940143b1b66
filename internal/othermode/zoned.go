package othermode

import (
	"strings"

	"github.com/paulmach/orb"

	"transitscan/internal/transit"
)

// Zone applies a generator to stop pairs that both lie inside Bound.
type Zone struct {
	Bound     orb.Bound
	Generator Generator
}

// Zoned picks a generator per stop pair: the first zone containing both
// stops, or the fallback.
type Zoned struct {
	zones    []Zone
	fallback Generator
}

func NewZoned(fallback Generator, zones ...Zone) *Zoned {
	return &Zoned{zones: zones, fallback: fallback}
}

func (g *Zoned) Source(from, to transit.Stop) Generator {
	a := orb.Point{from.Longitude, from.Latitude}
	b := orb.Point{to.Longitude, to.Latitude}
	for _, z := range g.zones {
		if z.Bound.Contains(a) && z.Bound.Contains(b) {
			return z.Generator.Source(from, to)
		}
	}
	return g.fallback.Source(from, to)
}

func (g *Zoned) TimeBetween(from, to transit.Stop) uint32 {
	return g.Source(from, to).TimeBetween(from, to)
}

func (g *Zoned) TimesBetween(from transit.Stop, to []transit.Stop) map[transit.StopID]uint32 {
	return timesBetween(g, from, to)
}

// Range is the largest range of any generator involved.
func (g *Zoned) Range() float64 {
	r := g.fallback.Range()
	for _, z := range g.zones {
		r = max(r, z.Generator.Range())
	}
	return r
}

func (g *Zoned) Identifier() string {
	ids := []string{g.fallback.Identifier()}
	for _, z := range g.zones {
		ids = append(ids, z.Generator.Identifier())
	}
	return "zoned(" + strings.Join(ids, ";") + ")"
}
