package journey

import (
	"cmp"
	"fmt"

	"transitscan/internal/transit"
)

// TransferMetric counts transfers and accumulates travel and walking time.
type TransferMetric struct {
	NumberOfTransfers uint
	TravelTime        uint64 // seconds
	WalkingTime       uint64 // seconds
}

func (TransferMetric) Zero() TransferMetric { return TransferMetric{} }

// Add counts a transfer whenever a scheduled link rides a different trip
// than the last scheduled link before it, walks in between or not.
func (m TransferMetric) Add(s Step) TransferMetric {
	d := s.Elapsed()
	m.TravelTime += d
	switch s.Kind {
	case OtherMode:
		m.WalkingTime += d
	case Scheduled:
		if s.PreviousLastTrip != transit.NoTrip && s.PreviousLastTrip != s.Trip {
			m.NumberOfTransfers++
		}
	}
	return m
}

func (m TransferMetric) String() string {
	return fmt.Sprintf("transfers=%d travel=%ds walk=%ds", m.NumberOfTransfers, m.TravelTime, m.WalkingTime)
}

// ProfileTransferCompare orders journeys by transfers, then travel time,
// then walking time.
func ProfileTransferCompare(a, b *Journey[TransferMetric]) int {
	ma, mb := a.Metric(), b.Metric()
	if c := cmp.Compare(ma.NumberOfTransfers, mb.NumberOfTransfers); c != 0 {
		return c
	}
	if c := cmp.Compare(ma.TravelTime, mb.TravelTime); c != 0 {
		return c
	}
	return cmp.Compare(ma.WalkingTime, mb.WalkingTime)
}

// ParetoTransferCompare compares on transfers, departure time (later is
// better) and arrival time (earlier is better).
func ParetoTransferCompare(a, b *Journey[TransferMetric]) Dominance {
	var aBetter, bBetter bool
	tally := func(c int) {
		if c < 0 {
			aBetter = true
		} else if c > 0 {
			bBetter = true
		}
	}
	tally(cmp.Compare(a.Metric().NumberOfTransfers, b.Metric().NumberOfTransfers))
	tally(cmp.Compare(b.DepartureTime(), a.DepartureTime()))
	tally(cmp.Compare(a.ArrivalTime(), b.ArrivalTime()))
	return dominance(aBetter, bBetter)
}

// MaxTransfers rejects journeys with more transfers than allowed.
type MaxTransfers uint

func (n MaxTransfers) CanBeTaken(j *Journey[TransferMetric]) bool {
	return j.Metric().NumberOfTransfers <= uint(n)
}

func (n MaxTransfers) CanBeTakenBackwards(j *Journey[TransferMetric]) bool {
	return n.CanBeTaken(j)
}
