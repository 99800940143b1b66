package csa

import (
	"fmt"

	"transitscan/internal/journey"
	"transitscan/internal/transit"
)

// EarliestConnectionScan finds the journey arriving first at any target stop
// when leaving no earlier than the earliest departure.
type EarliestConnectionScan[T journey.Metric[T]] struct {
	scanState[T]

	table   map[transit.StopID]*journey.Journey[T] // earliest arrival per stop
	rides   map[transit.StopID]*journey.Journey[T] // earliest arrival not ending on a walk; walks start here
	trips   map[transit.TripID]*journey.Journey[T] // journey of someone on board
	boarded map[transit.TripID]uint64              // first departure the trip was ridden from

	scanEnd uint64
}

// NewEarliestConnectionScan prepares a scan. It needs departure stops; target
// stops may be left out to compute an isochrone only.
func NewEarliestConnectionScan[T journey.Metric[T]](settings *ScanSettings[T]) (*EarliestConnectionScan[T], error) {
	if err := settings.Validate(); err != nil {
		return nil, err
	}
	if err := settings.validateStops(true, false); err != nil {
		return nil, err
	}

	s := &EarliestConnectionScan[T]{
		scanState: newScanState(settings, "earliest-arrival"),
		table:     make(map[transit.StopID]*journey.Journey[T]),
		rides:     make(map[transit.StopID]*journey.Journey[T]),
		trips:     make(map[transit.TripID]*journey.Journey[T]),
		boarded:   make(map[transit.TripID]uint64),
	}
	s.scanEnd = s.earliest

	for _, d := range s.departures {
		j := d.Journey
		if j == nil {
			j = journey.NewGenesis(d.Stop, s.earliest, s.zero, transit.EarliestArrivalScanTag)
		}
		s.table[d.Stop] = j
		s.rides[d.Stop] = j
		if err := s.walkFrom(d.Stop); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// CalculateJourney scans until no connection can improve on the best
// arrival and returns that journey, or nil if no target can be reached
// before the last arrival.
//
// If adjust is set, it is called with the departure and arrival time of the
// journey found and returns a new end time; the scan then continues until
// that time so Isochrone covers it.
func (s *EarliestConnectionScan[T]) CalculateJourney(adjust func(departure, arrival uint64) uint64) (*journey.Journey[T], error) {
	s.enum.MoveTo(s.earliest)
	depleted := !s.enum.MoveNext()

	// walks from the departure stops may already reach a target
	best := s.bestArrival()
	lastAllowed := min(s.last, best.Time())
	for !depleted && s.enum.CurrentTime() <= lastAllowed {
		more, err := s.integrateBatch()
		if err != nil {
			return nil, err
		}
		depleted = !more
		best = s.bestArrival()
		lastAllowed = min(lastAllowed, best.Time())
	}

	if !best.Found() {
		s.scanEnd = s.last
		s.logger.Debug("no journey found", "stops", len(s.table))
		return nil, nil
	}
	j := best.Journey()
	s.scanEnd = j.ArrivalTime()
	if adjust == nil {
		return j, nil
	}

	s.scanEnd = adjust(j.DepartureTime(), j.ArrivalTime())
	for !depleted && s.enum.CurrentTime() <= s.scanEnd {
		more, err := s.integrateBatch()
		if err != nil {
			return nil, err
		}
		depleted = !more
	}
	s.logger.Debug("scan extended", "until", fromUnix(s.scanEnd), "stops", len(s.table))
	return j, nil
}

// integrateBatch integrates every connection departing at the current time
// and walks from the stops a vehicle reached earlier than before. It reports
// whether connections are left.
func (s *EarliestConnectionScan[T]) integrateBatch() (bool, error) {
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
			improved = append(improved, c.ArrivalStop)
		}
		if !s.enum.MoveNext() {
			more = false
			break
		}
		if s.enum.CurrentTime() != batch {
			break
		}
	}

	for _, stop := range improved {
		if err := s.walkFrom(stop); err != nil {
			return false, err
		}
	}
	return more, nil
}

func (s *EarliestConnectionScan[T]) integrate(c *transit.Connection) (bool, error) {
	if !s.takes(c) {
		return false, nil
	}

	onTrip, riding := s.trips[c.Trip]
	if riding && (onTrip.Location() != c.DepartureStop || c.DepartureTime < onTrip.Time()) {
		riding = false
	}

	var j *journey.Journey[T]
	var err error
	if riding {
		j, err = onTrip.ChainForward(c)
	} else {
		if !c.CanGetOn() {
			return false, nil
		}
		from, ok := s.table[c.DepartureStop]
		if !ok || from.Time() > c.DepartureTime {
			return false, nil
		}
		if !from.IsSpecial() {
			from, err = from.ChainForwardWith(s.stops, s.transfer, c.DepartureStop)
			if err != nil {
				return false, err
			}
			if from == nil || from.Time() > c.DepartureTime {
				return false, nil
			}
		}
		j, err = from.ChainForward(c)
	}
	if err != nil {
		return false, fmt.Errorf("integrate %v: %w", c.ID, err)
	}

	if s.journeyFilter != nil && !s.journeyFilter.CanBeTaken(j) {
		return false, nil
	}
	s.trips[c.Trip] = j
	if _, ok := s.boarded[c.Trip]; !ok {
		s.boarded[c.Trip] = c.DepartureTime
	}

	if !c.CanGetOff() {
		return false, nil
	}
	if s.arrivesEarlier(j, s.table[c.ArrivalStop]) {
		s.table[c.ArrivalStop] = j
	}
	if !s.arrivesEarlier(j, s.rides[c.ArrivalStop]) {
		return false, nil
	}
	s.rides[c.ArrivalStop] = j
	return true, nil
}

func (s *EarliestConnectionScan[T]) arrivesEarlier(j, old *journey.Journey[T]) bool {
	return old == nil || j.Time() < old.Time() || (j.Time() == old.Time() && s.compare(j, old) < 0)
}

func (s *EarliestConnectionScan[T]) walkFrom(stop transit.StopID) error {
	if !s.canWalk() {
		return nil
	}
	walks, err := s.rides[stop].WalkForward(s.stops, s.walks)
	if err != nil {
		return fmt.Errorf("walk from %v: %w", stop, err)
	}
	for _, w := range walks {
		if old, ok := s.table[w.Location()]; !ok || w.Time() < old.Time() {
			s.table[w.Location()] = w
		}
	}
	return nil
}

// bestArrival picks the earliest journey over all targets, including the
// part after each target.
func (s *EarliestConnectionScan[T]) bestArrival() journey.Endpoint[T] {
	best := journey.UnreachableEndpoint[T]()
	for _, t := range s.targets {
		j, ok := s.table[t.Stop]
		if !ok {
			continue
		}
		j = j.Append(t.Journey)
		if j.Time() > s.last {
			continue
		}
		if !best.Found() || j.Time() < best.Time() ||
			(j.Time() == best.Time() && s.compare(j, best.Journey()) < 0) {
			best = journey.ReachedBy(j, best)
		}
	}
	return best
}

// Isochrone returns the earliest known journey to every stop reached.
func (s *EarliestConnectionScan[T]) Isochrone() map[transit.StopID]*journey.Journey[T] {
	out := make(map[transit.StopID]*journey.Journey[T], len(s.table))
	for stop, j := range s.table {
		out[stop] = j
	}
	return out
}

// ScanBeginTime is the earliest departure the scan started from.
func (s *EarliestConnectionScan[T]) ScanBeginTime() uint64 { return s.earliest }

// ScanEndTime is the time up to which Isochrone is complete.
func (s *EarliestConnectionScan[T]) ScanEndTime() uint64 { return s.scanEnd }
