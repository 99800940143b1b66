package csa

import (
	"fmt"
	"log/slog"
	"time"

	"transitscan/internal/journey"
	"transitscan/internal/transit"
)

// Query plans journeys over one timetable. Narrow it down with From, To and
// Between, then run one of the planners. Every planner call builds fresh
// scans, so a Query can be run more than once.
type Query[T journey.Metric[T]] struct {
	stops       transit.StopsReader
	connections func() transit.ConnectionEnumerator
	profile     *Profile[T]

	from     []StopJourney[T]
	to       []StopJourney[T]
	earliest time.Time
	last     time.Time
	logger   *slog.Logger
}

// NewQuery starts a query. connections must return a new enumerator on each
// call.
func NewQuery[T journey.Metric[T]](stops transit.StopsReader, connections func() transit.ConnectionEnumerator, profile *Profile[T]) *Query[T] {
	return &Query[T]{stops: stops, connections: connections, profile: profile}
}

func (q *Query[T]) From(stops ...transit.StopID) *Query[T] {
	q.from = Stops[T](stops...)
	return q
}

func (q *Query[T]) To(stops ...transit.StopID) *Query[T] {
	q.to = Stops[T](stops...)
	return q
}

// Between sets the time window: leave no earlier than earliest, arrive no
// later than last.
func (q *Query[T]) Between(earliest, last time.Time) *Query[T] {
	q.earliest, q.last = earliest, last
	return q
}

func (q *Query[T]) WithLogger(l *slog.Logger) *Query[T] {
	q.logger = l
	return q
}

func (q *Query[T]) settings() *ScanSettings[T] {
	var enum transit.ConnectionEnumerator
	if q.connections != nil {
		enum = q.connections()
	}
	return &ScanSettings[T]{
		Stops:             q.stops,
		Connections:       enum,
		EarliestDeparture: q.earliest,
		LastArrival:       q.last,
		Profile:           q.profile,
		DepartureStops:    q.from,
		TargetStops:       q.to,
		Logger:            q.logger,
	}
}

// EarliestArrival returns the journey arriving first, or nil.
func (q *Query[T]) EarliestArrival() (*journey.Journey[T], error) {
	eas, err := NewEarliestConnectionScan(q.settings())
	if err != nil {
		return nil, err
	}
	return eas.CalculateJourney(nil)
}

// LatestDeparture returns the journey leaving last, or nil.
func (q *Query[T]) LatestDeparture() (*journey.Journey[T], error) {
	las, err := NewLatestConnectionScan(q.settings())
	if err != nil {
		return nil, err
	}
	return las.CalculateJourney(nil)
}

// Isochrone returns the earliest arrival at every stop reachable from the
// departure stops within the window. Target stops are ignored.
func (q *Query[T]) Isochrone() (map[transit.StopID]*journey.Journey[T], error) {
	settings := q.settings()
	settings.TargetStops = nil
	eas, err := NewEarliestConnectionScan(settings)
	if err != nil {
		return nil, err
	}
	if _, err := eas.CalculateJourney(nil); err != nil {
		return nil, err
	}
	return eas.Isochrone(), nil
}

// Profiles returns every Pareto optimal journey in the window. It runs an
// earliest arrival and a latest departure scan first; their isochrones
// restrict the connections the profiled scan looks at.
func (q *Query[T]) Profiles() (map[transit.StopID][]ProfileEntry[T], error) {
	earliest, last := unixTime(q.earliest), unixTime(q.last)

	eas, err := NewEarliestConnectionScan(q.settings())
	if err != nil {
		return nil, err
	}
	first, err := eas.CalculateJourney(func(_, _ uint64) uint64 { return last })
	if err != nil {
		return nil, fmt.Errorf("earliest arrival: %w", err)
	}
	if first == nil {
		return map[transit.StopID][]ProfileEntry[T]{}, nil
	}

	las, err := NewLatestConnectionScan(q.settings())
	if err != nil {
		return nil, err
	}
	latest, err := las.CalculateJourney(func(_, _ uint64) uint64 { return earliest })
	if err != nil {
		return nil, fmt.Errorf("latest departure: %w", err)
	}
	if latest == nil {
		return map[transit.StopID][]ProfileEntry[T]{}, nil
	}

	settings := q.settings()
	settings.Filter = AllFilters(NewForwardIsochroneFilter(eas), NewBackwardIsochroneFilter(las))
	settings.MetricGuesser = SimpleMetricGuesser[T]{}
	pcs, err := NewProfiledConnectionScan(settings)
	if err != nil {
		return nil, err
	}
	return pcs.CalculateJourneys()
}
