package handler

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"transitscan/internal/othermode"
)

const maxNearbyMeters = 5000

type healthResponse struct {
	Status      string          `json:"status"`
	Stops       int             `json:"stops"`
	Trips       int             `json:"trips"`
	Connections int             `json:"connections"`
	FirstDepart *time.Time      `json:"firstDeparture,omitempty"`
	LastDepart  *time.Time      `json:"lastDeparture,omitempty"`
	Realtime    *realtimeStatus `json:"realtime,omitempty"`
	WalkCache   *cacheStats     `json:"walkCache,omitempty"`
}

type realtimeStatus struct {
	FeedTimestamp time.Time `json:"feedTimestamp"`
	AppliedAt     time.Time `json:"appliedAt"`
	Trips         int       `json:"trips"`
	Connections   int       `json:"connections"`
	Unknown       int       `json:"unknown"`
	LastError     string    `json:"lastError,omitempty"`
}

type cacheStats struct {
	Size    int     `json:"size"`
	HitRate float64 `json:"hitRate"`
}

// Health serves GET /healthz with the size of the loaded timetable.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	s := h.tt.Latest()
	resp := healthResponse{
		Status:      "ok",
		Stops:       len(s.Stops()),
		Trips:       len(s.Trips()),
		Connections: len(s.Connections()),
	}
	if first, last, ok := s.TimeSpan(); ok {
		f, l := unix(first), unix(last)
		resp.FirstDepart, resp.LastDepart = &f, &l
	} else {
		resp.Status = "empty"
	}

	if h.rt != nil {
		st := h.rt.Status()
		resp.Realtime = &realtimeStatus{
			FeedTimestamp: st.FeedTimestamp,
			AppliedAt:     st.AppliedAt,
			Trips:         st.Trips,
			Connections:   st.Connections,
			Unknown:       st.Unknown,
			LastError:     st.LastError,
		}
	}
	if c, ok := h.profile.Walks.(*othermode.Cacher); ok {
		size, rate := c.Stats()
		resp.WalkCache = &cacheStats{Size: size, HitRate: rate}
	}
	writeJSON(w, http.StatusOK, resp)
}

// NearbyStops serves GET /api/stops?near=lat,lon&radius=meters, nearest first.
func (h *Handler) NearbyStops(w http.ResponseWriter, r *http.Request) {
	s := h.tt.Latest()
	q := r.URL.Query()

	radius := float64(nearestStopMeters)
	if v := q.Get("radius"); v != "" {
		var err error
		radius, err = strconv.ParseFloat(v, 64)
		if err != nil || radius <= 0 || radius > maxNearbyMeters {
			h.writeError(w, r, fmt.Errorf("radius %q: %w", v, errInvalidParam))
			return
		}
	}

	lat, lon, err := parseCoordinates(q.Get("near"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	stops := []StopInfo{}
	for _, st := range s.StopsInRange(lat, lon, radius) {
		stops = append(stops, StopInfo{ID: st.GlobalID, Name: st.Name, Lat: st.Latitude, Lon: st.Longitude})
	}
	writeJSON(w, http.StatusOK, map[string]any{"stops": stops})
}
