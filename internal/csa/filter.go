package csa

import (
	"errors"
	"fmt"

	"transitscan/internal/journey"
	"transitscan/internal/transit"
)

// ErrOutsideWindow is returned by ConnectionFilter.CheckWindow when a filter
// cannot answer for the requested time window.
var ErrOutsideWindow = errors.New("time window outside of filter window")

// ConnectionFilter decides which connections a scan may use.
type ConnectionFilter interface {
	CanBeTaken(c *transit.Connection) bool
	// CheckWindow returns an error when the filter is not valid for a scan
	// between the two unix times.
	CheckWindow(earliestDeparture, lastArrival uint64) error
}

type allFilters []ConnectionFilter

// AllFilters combines filters so a connection must pass each of them. Nil
// filters are skipped; it returns nil when none is left.
func AllFilters(filters ...ConnectionFilter) ConnectionFilter {
	var out allFilters
	for _, f := range filters {
		if f != nil {
			out = append(out, f)
		}
	}
	switch len(out) {
	case 0:
		return nil
	case 1:
		return out[0]
	}
	return out
}

func (fs allFilters) CanBeTaken(c *transit.Connection) bool {
	for _, f := range fs {
		if !f.CanBeTaken(c) {
			return false
		}
	}
	return true
}

func (fs allFilters) CheckWindow(earliestDeparture, lastArrival uint64) error {
	for _, f := range fs {
		if err := f.CheckWindow(earliestDeparture, lastArrival); err != nil {
			return err
		}
	}
	return nil
}

// IsochroneFilter drops connections that cannot be part of any journey given
// the result of an earlier earliest arrival or latest departure scan.
//
// The forward variant keeps a connection if its departure stop is reached
// in time, or if its trip was boarded before it departs. The backward
// variant keeps a connection if the destination can still be reached from
// its arrival stop, or by staying on its trip.
type IsochroneFilter struct {
	forward bool
	stops   map[transit.StopID]uint64
	trips   map[transit.TripID]uint64

	begin, end uint64
}

// NewForwardIsochroneFilter builds a filter from a finished earliest arrival
// scan.
func NewForwardIsochroneFilter[T journey.Metric[T]](eas *EarliestConnectionScan[T]) *IsochroneFilter {
	f := &IsochroneFilter{
		forward: true,
		stops:   make(map[transit.StopID]uint64, len(eas.table)),
		trips:   make(map[transit.TripID]uint64, len(eas.boarded)),
		begin:   eas.ScanBeginTime(),
		end:     eas.ScanEndTime(),
	}
	for stop, j := range eas.table {
		f.stops[stop] = j.Time()
	}
	for trip, t := range eas.boarded {
		f.trips[trip] = t
	}
	return f
}

// NewBackwardIsochroneFilter builds a filter from a finished latest
// departure scan.
func NewBackwardIsochroneFilter[T journey.Metric[T]](las *LatestConnectionScan[T]) *IsochroneFilter {
	f := &IsochroneFilter{
		stops: make(map[transit.StopID]uint64, len(las.table)),
		trips: make(map[transit.TripID]uint64, len(las.alighted)),
		begin: las.ScanBeginTime(),
		end:   las.ScanEndTime(),
	}
	for stop, j := range las.table {
		f.stops[stop] = j.Time()
	}
	for trip, t := range las.alighted {
		f.trips[trip] = t
	}
	return f
}

func (f *IsochroneFilter) CanBeTaken(c *transit.Connection) bool {
	if f.forward {
		if t, ok := f.stops[c.DepartureStop]; ok && t <= c.DepartureTime {
			return true
		}
		t, ok := f.trips[c.Trip]
		return ok && t <= c.DepartureTime
	}
	if t, ok := f.stops[c.ArrivalStop]; ok && c.ArrivalTime() <= t {
		return true
	}
	t, ok := f.trips[c.Trip]
	return ok && c.ArrivalTime() <= t
}

func (f *IsochroneFilter) CheckWindow(earliestDeparture, lastArrival uint64) error {
	if earliestDeparture < f.begin || lastArrival > f.end {
		return fmt.Errorf("[%d, %d] not within [%d, %d]: %w",
			earliestDeparture, lastArrival, f.begin, f.end, ErrOutsideWindow)
	}
	return nil
}
