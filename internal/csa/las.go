package csa

import (
	"fmt"

	"transitscan/internal/journey"
	"transitscan/internal/transit"
)

// LatestConnectionScan finds the journey leaving last from any departure
// stop that still reaches a target stop before the last arrival. It scans
// connections backwards in time.
type LatestConnectionScan[T journey.Metric[T]] struct {
	scanState[T]

	table    map[transit.StopID]*journey.Journey[T] // latest departure per stop, built backwards
	rides    map[transit.StopID]*journey.Journey[T] // latest departure not starting with a walk; walks end here
	trips    map[transit.TripID]*journey.Journey[T]
	alighted map[transit.TripID]uint64 // last arrival of the trip that still leads to a target

	scanBegin uint64
}

// NewLatestConnectionScan prepares a scan. It needs target stops; departure
// stops may be left out to compute an isochrone only.
func NewLatestConnectionScan[T journey.Metric[T]](settings *ScanSettings[T]) (*LatestConnectionScan[T], error) {
	if err := settings.Validate(); err != nil {
		return nil, err
	}
	if err := settings.validateStops(false, true); err != nil {
		return nil, err
	}

	s := &LatestConnectionScan[T]{
		scanState: newScanState(settings, "latest-departure"),
		table:     make(map[transit.StopID]*journey.Journey[T]),
		rides:     make(map[transit.StopID]*journey.Journey[T]),
		trips:     make(map[transit.TripID]*journey.Journey[T]),
		alighted:  make(map[transit.TripID]uint64),
	}
	s.scanBegin = s.last

	for _, t := range s.targets {
		j := t.Journey
		if j == nil {
			j = journey.NewGenesis(t.Stop, s.last, s.zero, transit.LatestDepartureScanTag)
		}
		s.table[t.Stop] = j
		s.rides[t.Stop] = j
		if err := s.walkTowards(t.Stop); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// CalculateJourney scans backwards until no connection can depart later
// than the best departure found, and returns that journey in forward
// direction. It returns nil if nothing leaves after the earliest departure.
//
// If adjust is set, it is called with the departure and arrival time of the
// journey found and returns a new begin time; the scan then continues down
// to that time so Isochrone covers it.
func (s *LatestConnectionScan[T]) CalculateJourney(adjust func(departure, arrival uint64) uint64) (*journey.Journey[T], error) {
	s.enum.MoveTo(s.last)
	depleted := !s.enum.MovePrevious()

	// walks towards the targets may already leave from a departure stop
	best := s.bestDeparture()
	earliestAllowed := max(s.earliest, best.Time())
	for !depleted && s.enum.CurrentTime() >= earliestAllowed {
		more, err := s.integrateBatch()
		if err != nil {
			return nil, err
		}
		depleted = !more
		best = s.bestDeparture()
		earliestAllowed = max(earliestAllowed, best.Time())
	}

	if !best.Found() {
		s.scanBegin = s.earliest
		s.logger.Debug("no journey found", "stops", len(s.table))
		return nil, nil
	}
	j := best.Journey().Reversed()[0]
	s.scanBegin = j.DepartureTime()
	if adjust == nil {
		return j, nil
	}

	s.scanBegin = adjust(j.DepartureTime(), j.ArrivalTime())
	for !depleted && s.enum.CurrentTime() >= s.scanBegin {
		more, err := s.integrateBatch()
		if err != nil {
			return nil, err
		}
		depleted = !more
	}
	s.logger.Debug("scan extended", "until", fromUnix(s.scanBegin), "stops", len(s.table))
	return j, nil
}

func (s *LatestConnectionScan[T]) integrateBatch() (bool, error) {
	batch := s.enum.CurrentTime()
	var improved []transit.StopID
	more := true
	for {
		c := s.enum.Current()
		ok, err := s.integrate(c)
		if err != nil {
			return false, err
		}
		if ok {
			improved = append(improved, c.DepartureStop)
		}
		if !s.enum.MovePrevious() {
			more = false
			break
		}
		if s.enum.CurrentTime() != batch {
			break
		}
	}

	for _, stop := range improved {
		if err := s.walkTowards(stop); err != nil {
			return false, err
		}
	}
	return more, nil
}

func (s *LatestConnectionScan[T]) integrate(c *transit.Connection) (bool, error) {
	if !s.takes(c) {
		return false, nil
	}

	onTrip, riding := s.trips[c.Trip]
	if riding && (onTrip.Location() != c.ArrivalStop || c.ArrivalTime() > onTrip.Time()) {
		riding = false
	}

	var j *journey.Journey[T]
	var err error
	if riding {
		j, err = onTrip.ChainBackward(c)
	} else {
		if !c.CanGetOff() {
			return false, nil
		}
		to, ok := s.table[c.ArrivalStop]
		if !ok || c.ArrivalTime() > to.Time() {
			return false, nil
		}
		if !to.IsSpecial() {
			to, err = to.ChainBackwardWith(s.stops, s.transfer, c.ArrivalStop)
			if err != nil {
				return false, err
			}
			if to == nil || c.ArrivalTime() > to.Time() {
				return false, nil
			}
		}
		j, err = to.ChainBackward(c)
	}
	if err != nil {
		return false, fmt.Errorf("integrate %v: %w", c.ID, err)
	}

	if s.journeyFilter != nil && !s.journeyFilter.CanBeTakenBackwards(j) {
		return false, nil
	}
	s.trips[c.Trip] = j
	if _, ok := s.alighted[c.Trip]; !ok {
		s.alighted[c.Trip] = c.ArrivalTime()
	}

	if !c.CanGetOn() {
		return false, nil
	}
	if s.departsLater(j, s.table[c.DepartureStop]) {
		s.table[c.DepartureStop] = j
	}
	if !s.departsLater(j, s.rides[c.DepartureStop]) {
		return false, nil
	}
	s.rides[c.DepartureStop] = j
	return true, nil
}

func (s *LatestConnectionScan[T]) departsLater(j, old *journey.Journey[T]) bool {
	return old == nil || j.Time() > old.Time() || (j.Time() == old.Time() && s.compare(j, old) < 0)
}

func (s *LatestConnectionScan[T]) walkTowards(stop transit.StopID) error {
	if !s.canWalk() {
		return nil
	}
	walks, err := s.rides[stop].WalkBackward(s.stops, s.walks)
	if err != nil {
		return fmt.Errorf("walk towards %v: %w", stop, err)
	}
	for _, w := range walks {
		if old, ok := s.table[w.Location()]; !ok || w.Time() > old.Time() {
			s.table[w.Location()] = w
		}
	}
	return nil
}

// bestDeparture picks the latest departing journey over all departure
// stops, including the part before each of them.
func (s *LatestConnectionScan[T]) bestDeparture() journey.Endpoint[T] {
	best := journey.NotYetFoundEndpoint[T]()
	for _, d := range s.departures {
		j, ok := s.table[d.Stop]
		if !ok {
			continue
		}
		j = j.Append(d.Journey)
		if j.Time() < s.earliest {
			continue
		}
		if !best.Found() || j.Time() > best.Time() ||
			(j.Time() == best.Time() && s.compare(j, best.Journey()) < 0) {
			best = journey.ReachedBy(j, best)
		}
	}
	return best
}

// Isochrone returns, for every stop from which a target can be reached, the
// journey leaving it last. Journeys are in forward direction.
func (s *LatestConnectionScan[T]) Isochrone() map[transit.StopID]*journey.Journey[T] {
	out := make(map[transit.StopID]*journey.Journey[T], len(s.table))
	for stop, j := range s.table {
		out[stop] = j.Reversed()[0]
	}
	return out
}

// ScanBeginTime is the time down to which Isochrone is complete.
func (s *LatestConnectionScan[T]) ScanBeginTime() uint64 { return s.scanBegin }

// ScanEndTime is the last arrival the scan started from.
func (s *LatestConnectionScan[T]) ScanEndTime() uint64 { return s.last }
