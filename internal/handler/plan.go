package handler

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"slices"
	"strings"

	"transitscan/internal/csa"
	"transitscan/internal/journey"
	"transitscan/internal/timetable"
	"transitscan/internal/transit"
)

var errScanTimeout = errors.New("scan timed out")

// runScan runs fn in its own goroutine and gives up once ctx is done. An
// abandoned scan finishes in the background; it only reads an immutable
// snapshot.
func runScan[R any](ctx context.Context, fn func() (R, error)) (R, error) {
	type result struct {
		v   R
		err error
	}
	done := make(chan result, 1)
	go func() {
		v, err := fn()
		done <- result{v, err}
	}()

	select {
	case res := <-done:
		return res.v, res.err
	case <-ctx.Done():
		var zero R
		return zero, fmt.Errorf("%w: %w", errScanTimeout, ctx.Err())
	}
}

func (h *Handler) query(s *timetable.Snapshot, p planRequest) *csa.Query[journey.TransferMetric] {
	return csa.NewQuery(s, func() transit.ConnectionEnumerator { return s.Enumerator() }, h.profile).
		From(p.from...).
		To(p.to...).
		Between(p.earliest, p.last).
		WithLogger(h.logger)
}

// cached runs fn once per request and snapshot.
func cached[R any](h *Handler, ctx context.Context, key string, fn func() (R, error)) (R, error) {
	if v, err := h.results.Get(key); err == nil {
		return v.(R), nil
	}
	if h.cfg.ScanTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.cfg.ScanTimeout)
		defer cancel()
	}
	v, err := runScan(ctx, fn)
	if err != nil {
		return v, err
	}
	h.results.Set(key, v)
	return v, nil
}

// plan parses a request and runs one planner on the latest snapshot.
func (h *Handler) plan(r *http.Request, kind string) (*timetable.Snapshot, any, error) {
	s := h.tt.Latest()
	p, err := h.parsePlan(r.URL.Query(), s, kind != "isochrone")
	if err != nil {
		return s, nil, err
	}
	q := h.query(s, p)
	key := p.key(kind, s)

	switch kind {
	case "earliest":
		resp, err := cached(h, r.Context(), key, func() (PlanResponse, error) {
			j, err := q.EarliestArrival()
			return planResponse(s, j), err
		})
		return s, resp, err
	case "latest":
		resp, err := cached(h, r.Context(), key, func() (PlanResponse, error) {
			j, err := q.LatestDeparture()
			return planResponse(s, j), err
		})
		return s, resp, err
	case "profiles":
		resp, err := cached(h, r.Context(), key, func() (ProfileResponse, error) {
			profiles, err := q.Profiles()
			return profileResponse(s, profiles), err
		})
		return s, resp, err
	case "isochrone":
		resp, err := cached(h, r.Context(), key, func() (IsochroneResponse, error) {
			reached, err := q.Isochrone()
			return isochroneResponse(s, reached), err
		})
		return s, resp, err
	}
	return s, nil, fmt.Errorf("planner %q: %w", kind, errInvalidParam)
}

func planResponse(s *timetable.Snapshot, j *journey.Journey[journey.TransferMetric]) PlanResponse {
	if j == nil {
		return PlanResponse{Journeys: []JourneyInfo{}}
	}
	return PlanResponse{Journeys: []JourneyInfo{journeyInfo(s, j)}}
}

func isochroneResponse(s *timetable.Snapshot, reached map[transit.StopID]*journey.Journey[journey.TransferMetric]) IsochroneResponse {
	resp := IsochroneResponse{Stops: make([]ReachedStop, 0, len(reached))}
	for stop, j := range reached {
		resp.Stops = append(resp.Stops, ReachedStop{
			Stop:      stopInfo(s, stop),
			Arrival:   unix(j.Time()),
			Transfers: j.Metric().NumberOfTransfers,
		})
	}
	slices.SortFunc(resp.Stops, func(a, b ReachedStop) int {
		if c := a.Arrival.Compare(b.Arrival); c != 0 {
			return c
		}
		return strings.Compare(a.Stop.ID, b.Stop.ID)
	})
	return resp
}

func (h *Handler) serve(kind string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		_, resp, err := h.plan(r, kind)
		if err != nil {
			h.writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

// EarliestArrival serves GET /api/journeys/earliest?from=&to=&depart=&window=.
func (h *Handler) EarliestArrival(w http.ResponseWriter, r *http.Request) {
	h.serve("earliest")(w, r)
}

// LatestDeparture serves GET /api/journeys/latest?from=&to=&arrive=&window=.
func (h *Handler) LatestDeparture(w http.ResponseWriter, r *http.Request) {
	h.serve("latest")(w, r)
}

// Profiles serves GET /api/journeys/profiles with every Pareto optimal
// journey in the window.
func (h *Handler) Profiles(w http.ResponseWriter, r *http.Request) {
	h.serve("profiles")(w, r)
}

// Isochrone serves GET /api/isochrone?from=&depart=&window=.
func (h *Handler) Isochrone(w http.ResponseWriter, r *http.Request) {
	h.serve("isochrone")(w, r)
}
