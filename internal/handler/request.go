package handler

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"transitscan/internal/csa"
	"transitscan/internal/timetable"
	"transitscan/internal/transit"
)

var (
	errInvalidParam = errors.New("invalid parameter")
	errUnknownPlace = errors.New("unknown place")
)

// planRequest is a parsed planner query.
type planRequest struct {
	from, to []transit.StopID
	earliest time.Time
	last     time.Time
}

// key identifies the request for the result cache. Snapshots are immutable,
// so pairing the request with the snapshot pointer is enough.
func (p planRequest) key(kind string, s *timetable.Snapshot) string {
	return fmt.Sprintf("%s|%p|%v|%v|%d|%d", kind, s, p.from, p.to, p.earliest.Unix(), p.last.Unix())
}

// parsePlan reads from, to, depart, arrive and window. A window anchored on
// arrive runs backwards from it; otherwise it starts at depart, or now.
func (h *Handler) parsePlan(q url.Values, s *timetable.Snapshot, needTo bool) (planRequest, error) {
	var p planRequest
	var err error

	if p.from, err = parsePlaces(s, "from", q["from"]); err != nil {
		return p, err
	}
	if needTo {
		if p.to, err = parsePlaces(s, "to", q["to"]); err != nil {
			return p, err
		}
	}

	window := defaultWindow
	if v := q.Get("window"); v != "" {
		if window, err = time.ParseDuration(v); err != nil || window <= 0 {
			return p, fmt.Errorf("window %q: %w", v, errInvalidParam)
		}
	}
	if h.cfg.MaxWindow > 0 && window > h.cfg.MaxWindow {
		return p, fmt.Errorf("window %s longer than %s: %w", window, h.cfg.MaxWindow, errInvalidParam)
	}

	if v := q.Get("arrive"); v != "" {
		if q.Get("depart") != "" {
			return p, fmt.Errorf("depart and arrive are exclusive: %w", errInvalidParam)
		}
		if p.last, err = parseTime(v); err != nil {
			return p, fmt.Errorf("arrive: %w", err)
		}
		p.earliest = p.last.Add(-window)
		return p, nil
	}

	p.earliest = h.now().Truncate(time.Minute)
	if v := q.Get("depart"); v != "" {
		if p.earliest, err = parseTime(v); err != nil {
			return p, fmt.Errorf("depart: %w", err)
		}
	}
	p.last = p.earliest.Add(window)
	return p, nil
}

// parseTime accepts RFC 3339 or unix seconds.
func parseTime(v string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, v); err == nil {
		return t.UTC(), nil
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil || n < 0 {
		return time.Time{}, fmt.Errorf("time %q: %w", v, errInvalidParam)
	}
	return time.Unix(n, 0).UTC(), nil
}

func parsePlaces(s *timetable.Snapshot, name string, values []string) ([]transit.StopID, error) {
	if len(values) == 0 {
		return nil, fmt.Errorf("missing %s: %w", name, errInvalidParam)
	}
	ids := make([]transit.StopID, 0, len(values))
	for _, v := range values {
		id, err := parsePlace(s, v)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// parsePlace resolves a stop by global id, or the stop nearest to "lat,lon".
func parsePlace(s *timetable.Snapshot, v string) (transit.StopID, error) {
	if st, ok := s.StopByGlobalID(v); ok {
		return st.ID, nil
	}

	if !strings.Contains(v, ",") {
		return transit.InvalidStop, fmt.Errorf("%q: %w", v, errUnknownPlace)
	}
	lat, lon, err := parseCoordinates(v)
	if err != nil {
		return transit.InvalidStop, err
	}
	near := s.StopsInRange(lat, lon, nearestStopMeters)
	if len(near) == 0 {
		return transit.InvalidStop, fmt.Errorf("no stop within %dm of %q: %w", nearestStopMeters, v, errUnknownPlace)
	}
	return near[0].ID, nil
}

// parseCoordinates reads "lat,lon".
func parseCoordinates(v string) (lat, lon float64, err error) {
	latStr, lonStr, ok := strings.Cut(v, ",")
	if !ok {
		return 0, 0, fmt.Errorf("coordinates %q: %w", v, errInvalidParam)
	}
	lat, err1 := strconv.ParseFloat(strings.TrimSpace(latStr), 64)
	lon, err2 := strconv.ParseFloat(strings.TrimSpace(lonStr), 64)
	if err1 != nil || err2 != nil || lat < -90 || lat > 90 || lon < -180 || lon > 180 {
		return 0, 0, fmt.Errorf("coordinates %q: %w", v, errInvalidParam)
	}
	return lat, lon, nil
}

// statusFor maps an error to an HTTP status code.
func statusFor(err error) int {
	switch {
	case errors.Is(err, errInvalidParam), errors.Is(err, csa.ErrInvalidConfiguration):
		return http.StatusBadRequest
	case errors.Is(err, errUnknownPlace):
		return http.StatusNotFound
	case errors.Is(err, errScanTimeout):
		return http.StatusGatewayTimeout
	}
	return http.StatusInternalServerError
}
