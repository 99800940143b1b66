// Package realtime overlays GTFS-Realtime TripUpdates onto a timetable as
// connection delays.
package realtime

import (
	"math"

	gtfs "github.com/MobilityData/gtfs-realtime-bindings/golang/gtfs"

	"transitscan/internal/timetable"
	"transitscan/internal/transit"
)

// UpdateResult counts what ApplyTripUpdates did.
type UpdateResult struct {
	Trips       int // trip updates applied
	Connections int // connections whose delays were rewritten
	Unknown     int // trip updates for trips the timetable does not have
	Skipped     int // cancelled or added trips, left untouched
}

// stopDelays are the reported delays at one stop, nil when not reported.
type stopDelays struct {
	arrival, departure *int64
}

// ApplyTripUpdates rewrites the delays of every connection of the trips named
// in the feed. A reported delay carries on to the following stops until the
// next report, as GTFS-Realtime prescribes. Early running is not modelled:
// negative delays become zero.
func ApplyTripUpdates(feed *gtfs.FeedMessage, w *timetable.Writer) (UpdateResult, error) {
	var res UpdateResult
	for _, entity := range feed.GetEntity() {
		tu := entity.GetTripUpdate()
		if tu == nil {
			continue
		}
		switch tu.GetTrip().GetScheduleRelationship() {
		case gtfs.TripDescriptor_CANCELED, gtfs.TripDescriptor_ADDED:
			res.Skipped++
			continue
		}
		trip, ok := w.TripByGlobalID(tu.GetTrip().GetTripId())
		if !ok {
			res.Unknown++
			continue
		}

		n, err := applyTripUpdate(tu, trip, w)
		if err != nil {
			return res, err
		}
		res.Trips++
		res.Connections += n
	}
	return res, nil
}

func applyTripUpdate(tu *gtfs.TripUpdate, trip transit.TripID, w *timetable.Writer) (int, error) {
	reports := make(map[transit.StopID]stopDelays)
	for _, stu := range tu.GetStopTimeUpdate() {
		if stu.GetScheduleRelationship() != gtfs.TripUpdate_StopTimeUpdate_SCHEDULED {
			continue
		}
		stop, ok := w.StopByGlobalID(stu.GetStopId())
		if !ok {
			continue
		}
		reports[stop] = stopDelays{
			arrival:   eventDelay(stu.GetArrival()),
			departure: eventDelay(stu.GetDeparture()),
		}
	}

	conns := w.TripConnections(trip)
	var delay int64
	for _, c := range conns {
		if r, ok := reports[c.DepartureStop]; ok {
			delay = pick(delay, r.departure, r.arrival)
		}
		dep := delay
		if r, ok := reports[c.ArrivalStop]; ok {
			delay = pick(delay, r.arrival, r.departure)
		}
		if err := w.UpdateDelays(c.ID, clampDelay(dep), clampDelay(delay)); err != nil {
			return 0, err
		}
	}
	return len(conns), nil
}

// eventDelay reads the delay of an event. Events that only carry an absolute
// time are ignored: the scheduled time is not known here.
func eventDelay(ev *gtfs.TripUpdate_StopTimeEvent) *int64 {
	if ev == nil || ev.Delay == nil {
		return nil
	}
	d := int64(ev.GetDelay())
	return &d
}

func pick(current int64, preferred, other *int64) int64 {
	switch {
	case preferred != nil:
		return *preferred
	case other != nil:
		return *other
	}
	return current
}

func clampDelay(d int64) uint16 {
	return uint16(max(0, min(d, math.MaxUint16)))
}
