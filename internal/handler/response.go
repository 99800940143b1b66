package handler

import (
	"encoding/json"
	"net/http"
	"slices"
	"strings"
	"time"

	"transitscan/internal/csa"
	"transitscan/internal/journey"
	"transitscan/internal/timetable"
	"transitscan/internal/transit"
)

// Leg kinds.
const (
	legRide     = "ride"
	legTransfer = "transfer"
	legWalk     = "walk"
)

// StopInfo is a stop as shown to clients.
type StopInfo struct {
	ID   string  `json:"id"`
	Name string  `json:"name"`
	Lat  float64 `json:"lat"`
	Lon  float64 `json:"lon"`
}

// Leg is a stretch of a journey on one vehicle, or on foot.
type Leg struct {
	Kind      string    `json:"kind"`
	Trip      string    `json:"trip,omitempty"`
	TripName  string    `json:"tripName,omitempty"`
	From      StopInfo  `json:"from"`
	To        StopInfo  `json:"to"`
	Departure time.Time `json:"departure"`
	Arrival   time.Time `json:"arrival"`
	// Delay at departure, in seconds, as reported by the realtime feed.
	Delay uint16 `json:"delay,omitempty"`
}

// JourneyInfo is one journey as shown to clients.
type JourneyInfo struct {
	Departure time.Time `json:"departure"`
	Arrival   time.Time `json:"arrival"`
	Transfers uint      `json:"transfers"`
	Walking   uint64    `json:"walkingSeconds"`
	Legs      []Leg     `json:"legs"`
}

// PlanResponse is returned by the journey endpoints.
type PlanResponse struct {
	Journeys []JourneyInfo `json:"journeys"`
}

// ProfileResponse lists the Pareto optimal journeys per departure stop.
type ProfileResponse struct {
	Profiles []StopProfile `json:"profiles"`
}

type StopProfile struct {
	Stop     StopInfo      `json:"stop"`
	Journeys []JourneyInfo `json:"journeys"`
}

// IsochroneResponse lists the earliest arrival at every reachable stop.
type IsochroneResponse struct {
	Stops []ReachedStop `json:"stops"`
}

type ReachedStop struct {
	Stop      StopInfo  `json:"stop"`
	Arrival   time.Time `json:"arrival"`
	Transfers uint      `json:"transfers"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		h.logger.Error("planning failed", "path", r.URL.Path, "error", err)
	}
	writeJSON(w, status, errorResponse{Error: err.Error()})
}

func stopInfo(s *timetable.Snapshot, id transit.StopID) StopInfo {
	st, err := s.Stop(id)
	if err != nil {
		return StopInfo{ID: id.String()}
	}
	return StopInfo{ID: st.GlobalID, Name: st.Name, Lat: st.Latitude, Lon: st.Longitude}
}

func unix(t uint64) time.Time {
	return time.Unix(int64(t), 0).UTC()
}

// journeyInfo flattens a forward journey into legs. Consecutive rides on the
// same trip become one leg. The journey departs with its first leg.
func journeyInfo(s *timetable.Snapshot, j *journey.Journey[journey.TransferMetric]) JourneyInfo {
	info := JourneyInfo{
		Departure: unix(j.DepartureTime()),
		Arrival:   unix(j.ArrivalTime()),
		Transfers: j.Metric().NumberOfTransfers,
		Walking:   j.Metric().WalkingTime,
		Legs:      []Leg{},
	}

	parts := j.Parts()
	for i := 1; i < len(parts); i++ {
		prev, cur := parts[i-1], parts[i]
		link := cur.Link()

		if link.Kind == journey.Scheduled {
			if n := len(info.Legs); n > 0 && info.Legs[n-1].Kind == legRide && prev.Link().Kind == journey.Scheduled && prev.Trip() == cur.Trip() {
				info.Legs[n-1].To = stopInfo(s, cur.Location())
				info.Legs[n-1].Arrival = unix(cur.Time())
				continue
			}
			leg := Leg{
				Kind:      legRide,
				From:      stopInfo(s, prev.Location()),
				To:        stopInfo(s, cur.Location()),
				Departure: unix(prev.Time()),
				Arrival:   unix(cur.Time()),
			}
			if t, ok := s.Trip(cur.Trip()); ok {
				leg.Trip, leg.TripName = t.GlobalID, t.Name
			}
			if c, ok := s.Connection(link.Connection); ok {
				leg.Departure = unix(c.DepartureTime)
				leg.Delay = c.DepartureDelay
			}
			info.Legs = append(info.Legs, leg)
			continue
		}

		kind := legWalk
		if prev.Location() == cur.Location() {
			if prev.IsGenesis() {
				// boarding time at the origin, not a transfer
				continue
			}
			kind = legTransfer
		}
		info.Legs = append(info.Legs, Leg{
			Kind:      kind,
			From:      stopInfo(s, prev.Location()),
			To:        stopInfo(s, cur.Location()),
			Departure: unix(prev.Time()),
			Arrival:   unix(cur.Time()),
		})
	}
	if len(info.Legs) > 0 {
		info.Departure = info.Legs[0].Departure
	}
	return info
}

func profileResponse(s *timetable.Snapshot, profiles map[transit.StopID][]csa.ProfileEntry[journey.TransferMetric]) ProfileResponse {
	resp := ProfileResponse{Profiles: []StopProfile{}}
	for stop, entries := range profiles {
		sp := StopProfile{Stop: stopInfo(s, stop), Journeys: []JourneyInfo{}}
		for _, e := range entries {
			for _, j := range e.Journeys {
				sp.Journeys = append(sp.Journeys, journeyInfo(s, j))
			}
		}
		resp.Profiles = append(resp.Profiles, sp)
	}
	slices.SortFunc(resp.Profiles, func(a, b StopProfile) int {
		return strings.Compare(a.Stop.ID, b.Stop.ID)
	})
	return resp
}
