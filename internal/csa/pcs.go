package csa

import (
	"cmp"
	"fmt"
	"slices"

	"transitscan/internal/journey"
	"transitscan/internal/othermode"
	"transitscan/internal/transit"
)

// ProfileEntry is one departure time of a profile with every Pareto optimal
// journey leaving then.
type ProfileEntry[T journey.Metric[T]] struct {
	Departure uint64
	Journeys  []*journey.Journey[T]
}

// ProfiledConnectionScan computes, for every departure stop, all journeys to
// the targets that are optimal under the profile's Pareto comparator.
type ProfiledConnectionScan[T journey.Metric[T]] struct {
	scanState[T]

	pareto  journey.ParetoComparator[T]
	guesser MetricGuesser[T]

	stopFrontiers map[transit.StopID]*journey.Frontier[T]
	tripFrontiers map[transit.TripID]*journey.Frontier[T]
	// rideFrontiers hold only the journeys that do not start with a walk.
	// Walks are chained onto these: a journey evicted from stopFrontiers by
	// a walk-first one must still reach the stops around it.
	rideFrontiers map[transit.StopID]*journey.Frontier[T]
}

// NewProfiledConnectionScan prepares a scan. Both departure and target stops
// are required, as is a Pareto comparator in the profile.
func NewProfiledConnectionScan[T journey.Metric[T]](settings *ScanSettings[T]) (*ProfiledConnectionScan[T], error) {
	if err := settings.Validate(); err != nil {
		return nil, err
	}
	if err := settings.validateStops(true, true); err != nil {
		return nil, err
	}
	if settings.Profile.ParetoCompare == nil {
		return nil, fmt.Errorf("profile has no pareto comparator: %w", ErrInvalidConfiguration)
	}

	s := &ProfiledConnectionScan[T]{
		scanState:     newScanState(settings, "profiled"),
		pareto:        settings.Profile.ParetoCompare,
		guesser:       settings.MetricGuesser,
		stopFrontiers: make(map[transit.StopID]*journey.Frontier[T]),
		tripFrontiers: make(map[transit.TripID]*journey.Frontier[T]),
		rideFrontiers: make(map[transit.StopID]*journey.Frontier[T]),
	}

	for _, t := range s.targets {
		j := t.Journey
		if j == nil {
			j = journey.NewGenesis(t.Stop, s.last, s.zero, transit.ProfiledScanTag)
		}
		s.frontierAt(t.Stop).Add(j)
		if j.Link().Kind == journey.OtherMode {
			continue
		}
		if err := s.walkTowards(s.rideFrontierAt(t.Stop).Insert(j)); err != nil {
			return nil, err
		}
	}
	return s, nil
}

func (s *ProfiledConnectionScan[T]) frontierAt(stop transit.StopID) *journey.Frontier[T] {
	return s.frontierIn(s.stopFrontiers, stop)
}

func (s *ProfiledConnectionScan[T]) rideFrontierAt(stop transit.StopID) *journey.Frontier[T] {
	return s.frontierIn(s.rideFrontiers, stop)
}

func (s *ProfiledConnectionScan[T]) frontierIn(m map[transit.StopID]*journey.Frontier[T], stop transit.StopID) *journey.Frontier[T] {
	f, ok := m[stop]
	if !ok {
		f = journey.NewFrontier(s.pareto, s.journeyFilter)
		m[stop] = f
	}
	return f
}

// CalculateJourneys scans every connection in the window, latest first, and
// returns the profile of each departure stop sorted by departure time. Stops
// without any journey are left out.
func (s *ProfiledConnectionScan[T]) CalculateJourneys() (map[transit.StopID][]ProfileEntry[T], error) {
	s.enum.MoveTo(s.last)
	if s.enum.MovePrevious() {
		for s.enum.CurrentTime() >= s.earliest {
			more, err := s.integrateBatch()
			if err != nil {
				return nil, err
			}
			if !more {
				break
			}
		}
	}
	return s.profiles(), nil
}

func (s *ProfiledConnectionScan[T]) integrateBatch() (bool, error) {
	batch := s.enum.CurrentTime()
	var added []*journey.Journey[T]
	more := true
	for {
		js, err := s.integrate(s.enum.Current())
		if err != nil {
			return false, err
		}
		added = append(added, js...)
		if !s.enum.MovePrevious() {
			more = false
			break
		}
		if s.enum.CurrentTime() != batch {
			break
		}
	}

	for _, j := range added {
		if err := s.walkTowards(j); err != nil {
			return false, err
		}
	}
	return more, nil
}

// integrate returns the journeys to walk from: the nodes the ride frontier
// of the departure stop holds for what c added, merged ones included.
func (s *ProfiledConnectionScan[T]) integrate(c *transit.Connection) ([]*journey.Journey[T], error) {
	if !s.takes(c) {
		delete(s.tripFrontiers, c.Trip)
		return nil, nil
	}

	var onTrip *journey.Frontier[T]
	if tf, ok := s.tripFrontiers[c.Trip]; ok {
		onTrip = journey.NewFrontier(s.pareto, s.journeyFilter)
		for _, j := range tf.Journeys() {
			if j.Location() != c.ArrivalStop || c.ArrivalTime() > j.Time() {
				continue
			}
			nj, err := j.ChainBackward(c)
			if err != nil {
				return nil, fmt.Errorf("integrate %v: %w", c.ID, err)
			}
			onTrip.Add(nj)
		}
	}

	var transferred *journey.Frontier[T]
	if af, ok := s.stopFrontiers[c.ArrivalStop]; ok && c.CanGetOff() {
		var err error
		transferred, err = ExtendFrontierBackwards(s.stops, af, c, s.transfer)
		if err != nil {
			return nil, fmt.Errorf("integrate %v: %w", c.ID, err)
		}
	}

	combined := journey.Combine(onTrip, transferred)
	if combined != nil && s.guesser != nil {
		combined = s.prune(combined)
	}
	if combined == nil || combined.Len() == 0 {
		delete(s.tripFrontiers, c.Trip)
		return nil, nil
	}
	s.tripFrontiers[c.Trip] = combined

	if !c.CanGetOn() {
		return nil, nil
	}
	var added []*journey.Journey[T]
	dep := s.frontierAt(c.DepartureStop)
	rides := s.rideFrontierAt(c.DepartureStop)
	for _, j := range combined.Journeys() {
		dep.Add(j)
		if stored := rides.Insert(j); stored != nil {
			added = append(added, stored)
		}
	}
	return added, nil
}

// prune drops the journeys that cannot beat what every departure stop
// already has, even when reaching the departure stop without losing any time.
func (s *ProfiledConnectionScan[T]) prune(f *journey.Frontier[T]) *journey.Frontier[T] {
	out := journey.NewFrontier(s.pareto, s.journeyFilter)
	for _, j := range f.Journeys() {
		if !s.hopeless(j) {
			out.Add(j)
		}
	}
	return out
}

func (s *ProfiledConnectionScan[T]) hopeless(j *journey.Journey[T]) bool {
	for _, d := range s.departures {
		f, ok := s.stopFrontiers[d.Stop]
		if !ok {
			return false
		}
		guess := s.guesser.LeastTheoreticalJourney(j, d.Stop)
		if guess == nil || !f.Dominates(guess) {
			return false
		}
	}
	return true
}

func (s *ProfiledConnectionScan[T]) walkTowards(j *journey.Journey[T]) error {
	if j == nil || !s.canWalk() || j.Link().Kind == journey.OtherMode {
		return nil
	}
	walks, err := j.WalkBackward(s.stops, s.walks)
	if err != nil {
		return fmt.Errorf("walk towards %v: %w", j.Location(), err)
	}
	for _, w := range walks {
		s.frontierAt(w.Location()).Add(w)
	}
	return nil
}

func (s *ProfiledConnectionScan[T]) profiles() map[transit.StopID][]ProfileEntry[T] {
	out := make(map[transit.StopID][]ProfileEntry[T])
	for _, d := range s.departures {
		f, ok := s.stopFrontiers[d.Stop]
		if !ok {
			continue
		}
		var entries []ProfileEntry[T]
		for _, j := range f.Journeys() {
			if j.IsGenesis() {
				continue
			}
			j = j.Append(d.Journey)
			if j.Time() < s.earliest {
				continue
			}
			entries = append(entries, ProfileEntry[T]{Departure: j.Time(), Journeys: j.Reversed()})
		}
		if len(entries) == 0 {
			continue
		}
		slices.SortStableFunc(entries, func(a, b ProfileEntry[T]) int {
			return cmp.Compare(a.Departure, b.Departure)
		})
		out[d.Stop] = entries
	}
	s.logger.Debug("profiles computed", "departures", len(out),
		"frontiers", len(s.stopFrontiers), "ride_frontiers", len(s.rideFrontiers))
	return out
}

// ExtendFrontierBackwards returns the journeys of the arrival stop frontier
// extended with c, inserting a transfer where the journey continues on
// another vehicle. Journeys that continue on the trip of c are left to the
// trip frontier.
func ExtendFrontierBackwards[T journey.Metric[T]](stops transit.StopsReader, arrival *journey.Frontier[T],
	c *transit.Connection, transfer othermode.Generator) (*journey.Frontier[T], error) {
	out := arrival.Empty()

	for _, j := range arrival.Journeys() {
		if c.ArrivalTime() > j.Time() || j.LastTrip() == c.Trip {
			continue
		}
		from := j
		if !j.IsSpecial() {
			var err error
			from, err = j.ChainBackwardWith(stops, transfer, c.ArrivalStop)
			if err != nil {
				return nil, err
			}
			if from == nil || c.ArrivalTime() > from.Time() {
				continue
			}
		}
		nj, err := from.ChainBackward(c)
		if err != nil {
			return nil, err
		}
		out.Add(nj)
	}
	return out, nil
}
