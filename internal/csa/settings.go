// Package csa implements the connection scan family of route planners: an
// earliest arrival scan, a latest departure scan and a profiled scan that
// returns every Pareto optimal journey within a time window.
//
// All scans read connections from a transit.ConnectionEnumerator in
// departure time order and keep their state in maps keyed by stop and trip.
// A scan value is used by a single goroutine; run several scans to plan in
// parallel.
package csa

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"transitscan/internal/journey"
	"transitscan/internal/othermode"
	"transitscan/internal/transit"
)

// ErrInvalidConfiguration is returned when scan settings are incomplete or
// contradictory.
var ErrInvalidConfiguration = errors.New("invalid scan configuration")

// Profile bundles the preferences of a traveller: how transfers and walks are
// timed, how journeys are ranked and which ones are acceptable.
type Profile[T journey.Metric[T]] struct {
	// MetricFactory is the value whose Zero starts every journey.
	MetricFactory T

	InternalTransfer othermode.Generator
	// Walks may be nil to disable walking between stops.
	Walks othermode.Generator

	// ProfileCompare breaks ties between journeys arriving (or departing) at
	// the same time.
	ProfileCompare journey.Comparator[T]
	// ParetoCompare is needed by the profiled scan only.
	ParetoCompare journey.ParetoComparator[T]

	JourneyFilter    journey.Filter[T]
	ConnectionFilter ConnectionFilter
}

// DefaultProfile counts transfers, allows a three minute transfer within a
// stop and walks up to 500m at 1.4 m/s.
func DefaultProfile() *Profile[journey.TransferMetric] {
	return &Profile[journey.TransferMetric]{
		InternalTransfer: othermode.NewInternalTransfer(othermode.DefaultTransferSeconds),
		Walks: othermode.NewCacher(
			othermode.NewCrowsFlight(othermode.DefaultMaxWalkMeters, othermode.DefaultWalkSpeed),
			othermode.DefaultCacheSize,
		),
		ProfileCompare: journey.ProfileTransferCompare,
		ParetoCompare:  journey.ParetoTransferCompare,
	}
}

// StopJourney names a stop where a query starts or ends. Journey is
// optional: when set, it is the part of the trip the traveller does before
// reaching (or after leaving) the stop, and it is glued onto every result.
// It must be rooted at Stop and built in the direction the scan runs: a
// forward journey for the departure stops of an earliest arrival scan, a
// backward one for the target stops of the backward scans.
type StopJourney[T journey.Metric[T]] struct {
	Stop    transit.StopID
	Journey *journey.Journey[T]
}

// Stops is a shorthand to build StopJourneys without a journey.
func Stops[T journey.Metric[T]](ids ...transit.StopID) []StopJourney[T] {
	out := make([]StopJourney[T], len(ids))
	for i, id := range ids {
		out[i] = StopJourney[T]{Stop: id}
	}
	return out
}

// MetricGuesser bounds the best possible completion of a partial journey.
type MetricGuesser[T journey.Metric[T]] interface {
	// LeastTheoreticalJourney returns a journey from origin that is at
	// least as good as any real journey through j, or nil if no bound is
	// known.
	LeastTheoreticalJourney(j *journey.Journey[T], origin transit.StopID) *journey.Journey[T]
}

// ScanSettings is the input of every scan.
type ScanSettings[T journey.Metric[T]] struct {
	Stops       transit.StopsReader
	Connections transit.ConnectionEnumerator

	EarliestDeparture time.Time
	LastArrival       time.Time

	Profile *Profile[T]

	DepartureStops []StopJourney[T]
	TargetStops    []StopJourney[T]

	// Filter is applied on top of Profile.ConnectionFilter.
	Filter ConnectionFilter
	// MetricGuesser enables pruning in the profiled scan.
	MetricGuesser MetricGuesser[T]

	Logger *slog.Logger
}

// Validate checks the fields every scan needs. Each scan checks the stop
// lists it requires on top of this.
func (s *ScanSettings[T]) Validate() error {
	switch {
	case s.Stops == nil:
		return fmt.Errorf("no stops reader: %w", ErrInvalidConfiguration)
	case s.Connections == nil:
		return fmt.Errorf("no connection enumerator: %w", ErrInvalidConfiguration)
	case s.Profile == nil:
		return fmt.Errorf("no profile: %w", ErrInvalidConfiguration)
	case s.Profile.InternalTransfer == nil:
		return fmt.Errorf("profile has no internal transfer generator: %w", ErrInvalidConfiguration)
	case s.Profile.ProfileCompare == nil:
		return fmt.Errorf("profile has no comparator: %w", ErrInvalidConfiguration)
	case s.EarliestDeparture.IsZero() || s.LastArrival.IsZero():
		return fmt.Errorf("time window not set: %w", ErrInvalidConfiguration)
	case !s.EarliestDeparture.Before(s.LastArrival):
		return fmt.Errorf("earliest departure %s not before last arrival %s: %w",
			s.EarliestDeparture.Format(time.RFC3339), s.LastArrival.Format(time.RFC3339), ErrInvalidConfiguration)
	case s.EarliestDeparture.Unix() < 0:
		return fmt.Errorf("earliest departure before 1970: %w", ErrInvalidConfiguration)
	}

	if f := s.connectionFilter(); f != nil {
		if err := f.CheckWindow(unixTime(s.EarliestDeparture), unixTime(s.LastArrival)); err != nil {
			return fmt.Errorf("connection filter: %w: %w", err, ErrInvalidConfiguration)
		}
	}
	return nil
}

func (s *ScanSettings[T]) validateStops(departures, targets bool) error {
	if departures && len(s.DepartureStops) == 0 {
		return fmt.Errorf("no departure stops: %w", ErrInvalidConfiguration)
	}
	if targets && len(s.TargetStops) == 0 {
		return fmt.Errorf("no target stops: %w", ErrInvalidConfiguration)
	}
	return nil
}

func (s *ScanSettings[T]) connectionFilter() ConnectionFilter {
	return AllFilters(s.Profile.ConnectionFilter, s.Filter)
}

func (s *ScanSettings[T]) logger() *slog.Logger {
	if s.Logger != nil {
		return s.Logger
	}
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func unixTime(t time.Time) uint64 {
	if t.Unix() < 0 {
		return 0
	}
	return uint64(t.Unix())
}

func fromUnix(t uint64) time.Time {
	return time.Unix(int64(t), 0).UTC()
}

// scanState holds what the three scans share.
type scanState[T journey.Metric[T]] struct {
	stops    transit.StopsReader
	enum     transit.ConnectionEnumerator
	earliest uint64
	last     uint64

	transfer      othermode.Generator
	walks         othermode.Generator
	compare       journey.Comparator[T]
	journeyFilter journey.Filter[T]
	filter        ConnectionFilter
	zero          T

	departures []StopJourney[T]
	targets    []StopJourney[T]

	logger *slog.Logger
}

func newScanState[T journey.Metric[T]](s *ScanSettings[T], name string) scanState[T] {
	return scanState[T]{
		stops:         s.Stops,
		enum:          s.Connections,
		earliest:      unixTime(s.EarliestDeparture),
		last:          unixTime(s.LastArrival),
		transfer:      s.Profile.InternalTransfer,
		walks:         s.Profile.Walks,
		compare:       s.Profile.ProfileCompare,
		journeyFilter: s.Profile.JourneyFilter,
		filter:        s.connectionFilter(),
		zero:          s.Profile.MetricFactory.Zero(),
		departures:    s.DepartureStops,
		targets:       s.TargetStops,
		logger:        s.logger().With("scan", name),
	}
}

func (s *scanState[T]) canWalk() bool {
	return s.walks != nil && s.walks.Range() > 0
}

func (s *scanState[T]) takes(c *transit.Connection) bool {
	return s.filter == nil || s.filter.CanBeTaken(c)
}
