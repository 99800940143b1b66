package csa

import (
	"fmt"
	"io"
	"log/slog"
	"math"
	"slices"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"transitscan/internal/journey"
	"transitscan/internal/othermode"
	"transitscan/internal/timetable"
	"transitscan/internal/transit"
)

var t0 = time.Date(2018, 12, 4, 16, 0, 0, 0, time.UTC)

func at(seconds uint64) uint64 { return uint64(t0.Unix()) + seconds }

type stopDef struct {
	id       string
	lat, lon float64
}

type connDef struct {
	id       string
	from, to string
	dep      uint64 // seconds after t0
	travel   uint16
	trip     string
	mode     uint16
}

type network struct {
	snap  *timetable.Snapshot
	stops map[string]transit.StopID
}

func buildNetwork(t *testing.T, stops []stopDef, conns []connDef) *network {
	t.Helper()
	db := timetable.New(1, slog.New(slog.NewTextHandler(io.Discard, nil)))
	w, err := db.Writer()
	require.NoError(t, err)

	n := &network{stops: make(map[string]transit.StopID)}
	for _, s := range stops {
		n.stops[s.id] = w.AddOrUpdateStop(s.id, s.id, s.lat, s.lon)
	}
	for _, c := range conns {
		_, err := w.AddOrUpdateConnection(transit.Connection{
			GlobalID:      c.id,
			DepartureStop: n.stops[c.from],
			ArrivalStop:   n.stops[c.to],
			DepartureTime: at(c.dep),
			TravelTime:    c.travel,
			Mode:          c.mode,
			Trip:          w.AddOrUpdateTrip(c.trip, c.trip),
		})
		require.NoError(t, err)
	}
	n.snap = w.Close()
	return n
}

func (n *network) enumerator() transit.ConnectionEnumerator { return n.snap.Enumerator() }

func (n *network) query(profile *Profile[journey.TransferMetric]) *Query[journey.TransferMetric] {
	return NewQuery(n.snap, n.enumerator, profile)
}

func (n *network) connection(t *testing.T, id string) *transit.Connection {
	t.Helper()
	c, ok := n.snap.ConnectionByGlobalID(id)
	require.True(t, ok, "connection %s", id)
	return &c
}

func testProfile(walk bool) *Profile[journey.TransferMetric] {
	p := DefaultProfile()
	p.Walks = nil
	if walk {
		p.Walks = othermode.NewCrowsFlight(500, 1.4)
	}
	return p
}

var ghent = []stopDef{
	{"korenmarkt", 51.0546, 3.7217},
	{"belfort", 51.0537, 3.7249},
	{"sint-pieters", 51.0359, 3.7108},
	{"dampoort", 51.0562, 3.7402},
	{"wondelgem", 51.0890, 3.7180},
}

// From korenmarkt to dampoort: a transfer at sint-pieters arriving at
// +30m, a direct tram arriving at +40m and a later direct tram.
var ghentConnections = []connDef{
	{"bus-2", "korenmarkt", "sint-pieters", 300, 600, "bus-2", 0},
	{"tram-1", "korenmarkt", "dampoort", 600, 1800, "tram-1", 0},
	{"bus-3", "sint-pieters", "dampoort", 1200, 600, "bus-3", 0},
	{"tram-4", "korenmarkt", "dampoort", 3000, 1800, "tram-4", 0},
	{"train", "wondelgem", "dampoort", 900, 600, "train", 0},
}

func ghentNetwork(t *testing.T) *network {
	return buildNetwork(t, ghent, ghentConnections)
}

func scheduledConnections(j *journey.Journey[journey.TransferMetric]) []transit.ConnectionID {
	var ids []transit.ConnectionID
	for _, p := range j.Parts() {
		if p.Link().Kind == journey.Scheduled {
			ids = append(ids, p.Link().Connection)
		}
	}
	return ids
}

func TestLatestConnectionScan_OneConnection(t *testing.T) {
	tests := []struct {
		name      string
		mode      uint16
		wantParts int
	}{
		{"boarding allowed", 0, 2},
		{"no boarding or alighting", transit.ModeNoBoarding | transit.ModeNoAlighting, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n := buildNetwork(t,
				[]stopDef{{"0", 0, 0}, {"1", 0.1, 0.1}},
				[]connDef{
					{"c0", "0", "1", 20 * 60, 10 * 60, "trip", tt.mode},
					// after the window, so the enumerator is not depleted
					{"c1", "0", "1", 4 * 3600, 10 * 60, "trip", tt.mode},
				})

			j, err := n.query(testProfile(false)).
				From(n.stops["0"]).
				To(n.stops["1"]).
				Between(t0, t0.Add(3*time.Hour)).
				LatestDeparture()
			require.NoError(t, err)

			if tt.wantParts == 0 {
				assert.Nil(t, j)
				return
			}
			require.NotNil(t, j)
			assert.Len(t, j.Parts(), tt.wantParts)
			assert.Equal(t, n.stops["0"], j.Root().Location())
			assert.Equal(t, n.stops["1"], j.Location())
			assert.Equal(t, at(20*60), j.DepartureTime())
		})
	}
}

// A connection that cannot be used at one of its ends must not hide an
// earlier one that can.
func TestLatestConnectionScan_ForbiddenConnection(t *testing.T) {
	for _, mode := range []uint16{
		transit.ModeNoBoarding,
		transit.ModeNoAlighting,
		transit.ModeNoBoarding | transit.ModeNoAlighting,
	} {
		t.Run(fmt.Sprintf("mode %d", mode), func(t *testing.T) {
			n := buildNetwork(t,
				[]stopDef{{"0", 0, 0}, {"1", 0.1, 0.1}},
				[]connDef{
					{"early", "0", "1", 10 * 60, 10 * 60, "early", 0},
					{"forbidden", "0", "1", 20 * 60, 10 * 60, "forbidden", mode},
					{"after", "0", "1", 4 * 3600, 10 * 60, "after", 0},
				})

			j, err := n.query(testProfile(false)).
				From(n.stops["0"]).
				To(n.stops["1"]).
				Between(t0, t0.Add(3*time.Hour)).
				LatestDeparture()
			require.NoError(t, err)
			require.NotNil(t, j)
			assert.Equal(t, at(10*60), j.DepartureTime())
			assert.Equal(t, []transit.ConnectionID{n.connection(t, "early").ID}, scheduledConnections(j))
		})
	}
}

func TestLatestConnectionScan_EmptyTimetable(t *testing.T) {
	n := buildNetwork(t, []stopDef{{"0", 0, 0}, {"1", 0.1, 0.1}}, nil)

	j, err := n.query(testProfile(false)).
		From(n.stops["0"]).To(n.stops["1"]).
		Between(t0, t0.Add(time.Hour)).
		LatestDeparture()
	require.NoError(t, err)
	assert.Nil(t, j)
}

func TestEarliestConnectionScan(t *testing.T) {
	n := ghentNetwork(t)

	j, err := n.query(testProfile(false)).
		From(n.stops["korenmarkt"]).
		To(n.stops["dampoort"]).
		Between(t0, t0.Add(3*time.Hour)).
		EarliestArrival()
	require.NoError(t, err)
	require.NotNil(t, j)

	assert.Equal(t, at(1800), j.ArrivalTime())
	assert.Equal(t, at(300), j.DepartureTime())
	assert.Equal(t, []transit.ConnectionID{
		n.connection(t, "bus-2").ID,
		n.connection(t, "bus-3").ID,
	}, scheduledConnections(j))
	assert.Equal(t, uint(1), j.Metric().NumberOfTransfers)
	assert.Equal(t, transit.EarliestArrivalScanTag, j.Root().Trip())
}

func TestEarliestConnectionScan_TransferTooShort(t *testing.T) {
	n := ghentNetwork(t)
	p := testProfile(false)
	p.InternalTransfer = othermode.NewInternalTransfer(400)

	j, err := n.query(p).
		From(n.stops["korenmarkt"]).
		To(n.stops["dampoort"]).
		Between(t0, t0.Add(3*time.Hour)).
		EarliestArrival()
	require.NoError(t, err)
	require.NotNil(t, j)

	assert.Equal(t, at(2400), j.ArrivalTime(), "the bus connection needs 400s at sint-pieters")
	assert.Equal(t, []transit.ConnectionID{n.connection(t, "tram-1").ID}, scheduledConnections(j))
}

func TestEarliestConnectionScan_Unreachable(t *testing.T) {
	n := ghentNetwork(t)

	j, err := n.query(testProfile(false)).
		From(n.stops["dampoort"]).
		To(n.stops["wondelgem"]).
		Between(t0, t0.Add(3*time.Hour)).
		EarliestArrival()
	require.NoError(t, err)
	assert.Nil(t, j)
}

func TestLatestConnectionScan(t *testing.T) {
	n := ghentNetwork(t)

	j, err := n.query(testProfile(false)).
		From(n.stops["korenmarkt"]).
		To(n.stops["dampoort"]).
		Between(t0, t0.Add(3*time.Hour)).
		LatestDeparture()
	require.NoError(t, err)
	require.NotNil(t, j)

	assert.Equal(t, at(3000), j.DepartureTime())
	assert.Equal(t, at(4800), j.ArrivalTime())
	assert.Equal(t, []transit.ConnectionID{n.connection(t, "tram-4").ID}, scheduledConnections(j))
	assert.Equal(t, transit.LatestDepartureScanTag, j.Root().Trip())
}

// A latest departure scan over the window of an earliest arrival journey
// finds a journey with the same times.
func TestScanDuality(t *testing.T) {
	n := ghentNetwork(t)
	from, to := n.stops["korenmarkt"], n.stops["dampoort"]

	eas, err := n.query(testProfile(false)).
		From(from).To(to).
		Between(t0, t0.Add(3*time.Hour)).
		EarliestArrival()
	require.NoError(t, err)
	require.NotNil(t, eas)

	las, err := n.query(testProfile(false)).
		From(from).To(to).
		Between(time.Unix(int64(eas.DepartureTime()), 0), time.Unix(int64(eas.ArrivalTime()), 0)).
		LatestDeparture()
	require.NoError(t, err)
	require.NotNil(t, las)

	assert.Equal(t, eas.DepartureTime(), las.DepartureTime())
	assert.Equal(t, eas.ArrivalTime(), las.ArrivalTime())
	assert.Equal(t, scheduledConnections(eas), scheduledConnections(las))
}

func TestQuery_Idempotent(t *testing.T) {
	n := ghentNetwork(t)
	q := n.query(testProfile(false)).
		From(n.stops["korenmarkt"]).
		To(n.stops["dampoort"]).
		Between(t0, t0.Add(3*time.Hour))

	first, err := q.EarliestArrival()
	require.NoError(t, err)
	second, err := q.EarliestArrival()
	require.NoError(t, err)
	assert.True(t, first.Equal(second))
}

func stop(t *testing.T, n *network, id string) transit.Stop {
	t.Helper()
	s, err := n.snap.Stop(n.stops[id])
	require.NoError(t, err)
	return s
}

func TestEarliestConnectionScan_WalksToFirstStop(t *testing.T) {
	n := buildNetwork(t, ghent, []connDef{
		{"bus-5", "belfort", "dampoort", 600, 600, "bus-5", 0},
	})
	walk := othermode.NewCrowsFlight(500, 1.4).TimeBetween(stop(t, n, "korenmarkt"), stop(t, n, "belfort"))
	require.NotEqual(t, othermode.Unreachable, walk)

	j, err := n.query(testProfile(true)).
		From(n.stops["korenmarkt"]).
		To(n.stops["dampoort"]).
		Between(t0, t0.Add(3*time.Hour)).
		EarliestArrival()
	require.NoError(t, err)
	require.NotNil(t, j)

	parts := j.Parts()
	require.Len(t, parts, 3)
	assert.Equal(t, journey.OtherMode, parts[1].Link().Kind)
	assert.Equal(t, n.stops["belfort"], parts[1].Location())
	assert.Equal(t, at(600), parts[1].Time())
	assert.Equal(t, at(600)-uint64(walk), j.DepartureTime(), "the walk starts just in time")
	assert.Equal(t, at(1200), j.ArrivalTime())
	assert.Equal(t, uint64(walk), j.Metric().WalkingTime)
}

func TestLatestConnectionScan_WalksFromLastStop(t *testing.T) {
	n := buildNetwork(t, ghent, []connDef{
		{"bus-6", "dampoort", "korenmarkt", 2000, 600, "bus-6", 0},
	})
	walk := othermode.NewCrowsFlight(500, 1.4).TimeBetween(stop(t, n, "korenmarkt"), stop(t, n, "belfort"))

	j, err := n.query(testProfile(true)).
		From(n.stops["dampoort"]).
		To(n.stops["belfort"]).
		Between(t0, t0.Add(3*time.Hour)).
		LatestDeparture()
	require.NoError(t, err)
	require.NotNil(t, j)

	assert.Equal(t, n.stops["dampoort"], j.Root().Location())
	assert.Equal(t, n.stops["belfort"], j.Location())
	assert.Equal(t, at(2000), j.DepartureTime())
	assert.Equal(t, at(2600)+uint64(walk), j.ArrivalTime())
	assert.Equal(t, journey.OtherMode, j.Link().Kind)
}

func TestQuery_WalkOnly(t *testing.T) {
	n := buildNetwork(t, ghent, nil)
	walk := uint64(othermode.NewCrowsFlight(500, 1.4).TimeBetween(stop(t, n, "korenmarkt"), stop(t, n, "belfort")))
	q := n.query(testProfile(true)).
		From(n.stops["korenmarkt"]).
		To(n.stops["belfort"]).
		Between(t0, t0.Add(time.Hour))

	eas, err := q.EarliestArrival()
	require.NoError(t, err)
	require.NotNil(t, eas)
	assert.Equal(t, at(0), eas.DepartureTime())
	assert.Equal(t, at(walk), eas.ArrivalTime())
	assert.Equal(t, journey.OtherMode, eas.Link().Kind)
	assert.Empty(t, scheduledConnections(eas))

	las, err := q.LatestDeparture()
	require.NoError(t, err)
	require.NotNil(t, las)
	assert.Equal(t, at(3600-walk), las.DepartureTime())
	assert.Equal(t, at(3600), las.ArrivalTime())
	assert.Equal(t, n.stops["korenmarkt"], las.Root().Location())
	assert.Equal(t, n.stops["belfort"], las.Location())

	noWalks, err := n.query(testProfile(false)).
		From(n.stops["korenmarkt"]).To(n.stops["belfort"]).
		Between(t0, t0.Add(time.Hour)).
		EarliestArrival()
	require.NoError(t, err)
	assert.Nil(t, noWalks)
}

// Three stops 445m apart on a line, so only neighbours are in walking
// range, and a far target. From x the best is walking to y for the fast
// bus. The slow bus from x only pays off when walking to x from z.
var walkLine = []stopDef{
	{"z", 51.050, 3.72},
	{"x", 51.054, 3.72},
	{"y", 51.058, 3.72},
	{"t", 51.100, 3.72},
}

var walkLineConnections = []connDef{
	{"fast", "y", "t", 2000, 600, "fast", 0},
	{"slow", "x", "t", 1000, 2000, "slow", 0},
}

func earliestArrivalFrom(t *testing.T, n *network, from, to string) uint64 {
	t.Helper()
	j, err := n.query(testProfile(true)).
		From(n.stops[from]).To(n.stops[to]).
		Between(t0, t0.Add(3*time.Hour)).
		EarliestArrival()
	require.NoError(t, err)
	require.NotNil(t, j, "no journey from %s", from)
	return j.ArrivalTime()
}

func TestProfiledConnectionScan_Walks(t *testing.T) {
	n := buildNetwork(t, walkLine, walkLineConnections)
	walk := uint64(othermode.NewCrowsFlight(500, 1.4).TimeBetween(stop(t, n, "z"), stop(t, n, "x")))
	require.NotEqual(t, uint64(othermode.Unreachable), walk)

	s := n.settings("z", "t")
	s.Profile = testProfile(true)
	s.DepartureStops = Stops[journey.TransferMetric](n.stops["z"], n.stops["x"], n.stops["y"])
	pcs, err := NewProfiledConnectionScan(s)
	require.NoError(t, err)
	profiles, err := pcs.CalculateJourneys()
	require.NoError(t, err)

	for _, from := range []string{"z", "x", "y"} {
		entries := profiles[n.stops[from]]
		require.NotEmpty(t, entries, "no profile for %s", from)
		best := uint64(math.MaxUint64)
		for _, e := range entries {
			for _, j := range e.Journeys {
				assert.Equal(t, n.stops[from], j.Root().Location())
				assert.Equal(t, n.stops["t"], j.Location())
				best = min(best, j.ArrivalTime())
			}
		}
		assert.LessOrEqual(t, best, earliestArrivalFrom(t, n, from, "t"), "from %s", from)
	}

	assert.Equal(t, []uint64{at(1000 - walk)}, departures(profiles[n.stops["z"]]))
	assert.Equal(t, []uint64{at(2000 - walk)}, departures(profiles[n.stops["x"]]))
	assert.Equal(t, []uint64{at(2000)}, departures(profiles[n.stops["y"]]))

	viaSlow := profiles[n.stops["z"]][0].Journeys
	require.Len(t, viaSlow, 1)
	parts := viaSlow[0].Parts()
	require.Len(t, parts, 3)
	assert.Equal(t, journey.OtherMode, parts[1].Link().Kind)
	assert.Equal(t, n.stops["x"], parts[1].Location())
	assert.Equal(t, at(3000), viaSlow[0].ArrivalTime())
}

func TestQuery_ProfilesWithWalks(t *testing.T) {
	n := buildNetwork(t, walkLine, walkLineConnections)
	walk := uint64(othermode.NewCrowsFlight(500, 1.4).TimeBetween(stop(t, n, "z"), stop(t, n, "x")))

	tests := []struct {
		from          string
		wantDeparture uint64
		wantArrival   uint64
	}{
		{"z", at(1000 - walk), at(3000)},
		{"x", at(2000 - walk), at(2600)},
	}
	for _, tt := range tests {
		t.Run(tt.from, func(t *testing.T) {
			profiles, err := n.query(testProfile(true)).
				From(n.stops[tt.from]).
				To(n.stops["t"]).
				Between(t0, t0.Add(3*time.Hour)).
				Profiles()
			require.NoError(t, err)

			entries := profiles[n.stops[tt.from]]
			require.Len(t, entries, 1)
			assert.Equal(t, tt.wantDeparture, entries[0].Departure)
			require.Len(t, entries[0].Journeys, 1)
			assert.Equal(t, tt.wantArrival, entries[0].Journeys[0].ArrivalTime())
		})
	}
}

func (n *network) settings(from, to string) *ScanSettings[journey.TransferMetric] {
	return &ScanSettings[journey.TransferMetric]{
		Stops:             n.snap,
		Connections:       n.snap.Enumerator(),
		EarliestDeparture: t0,
		LastArrival:       t0.Add(3 * time.Hour),
		Profile:           testProfile(false),
		DepartureStops:    Stops[journey.TransferMetric](n.stops[from]),
		TargetStops:       Stops[journey.TransferMetric](n.stops[to]),
	}
}

func departures(entries []ProfileEntry[journey.TransferMetric]) []uint64 {
	var out []uint64
	for _, e := range entries {
		out = append(out, e.Departure)
	}
	return out
}

func TestProfiledConnectionScan(t *testing.T) {
	n := ghentNetwork(t)

	pcs, err := NewProfiledConnectionScan(n.settings("korenmarkt", "dampoort"))
	require.NoError(t, err)
	profiles, err := pcs.CalculateJourneys()
	require.NoError(t, err)

	entries := profiles[n.stops["korenmarkt"]]
	require.Len(t, entries, 3)
	assert.Equal(t, []uint64{at(300), at(600), at(3000)}, departures(entries))

	transferring := entries[0].Journeys
	require.Len(t, transferring, 1)
	assert.Equal(t, uint(1), transferring[0].Metric().NumberOfTransfers)
	assert.Equal(t, n.stops["korenmarkt"], transferring[0].Root().Location())
	assert.Equal(t, n.stops["dampoort"], transferring[0].Location())
	assert.Equal(t, at(1800), transferring[0].ArrivalTime())

	for _, e := range entries[1:] {
		require.Len(t, e.Journeys, 1)
		assert.Zero(t, e.Journeys[0].Metric().NumberOfTransfers)
	}
}

func TestQuery_Profiles(t *testing.T) {
	n := ghentNetwork(t)

	profiles, err := n.query(testProfile(false)).
		From(n.stops["korenmarkt"]).
		To(n.stops["dampoort"]).
		Between(t0, t0.Add(3*time.Hour)).
		Profiles()
	require.NoError(t, err)

	require.Len(t, profiles, 1)
	assert.Equal(t, []uint64{at(300), at(600), at(3000)}, departures(profiles[n.stops["korenmarkt"]]))
}

func TestQuery_ProfilesNoRoute(t *testing.T) {
	n := ghentNetwork(t)

	profiles, err := n.query(testProfile(false)).
		From(n.stops["dampoort"]).
		To(n.stops["wondelgem"]).
		Between(t0, t0.Add(3*time.Hour)).
		Profiles()
	require.NoError(t, err)
	assert.Empty(t, profiles)
}

// A tram passes belfort without letting anyone on or off. Staying on board
// must still work, also when isochrone filters are in place.
func TestQuery_PassThroughStop(t *testing.T) {
	n := buildNetwork(t, ghent, []connDef{
		{"tram-7a", "korenmarkt", "belfort", 100, 200, "tram-7", transit.ModeNoAlighting},
		{"tram-7b", "belfort", "dampoort", 400, 300, "tram-7", transit.ModeNoBoarding},
	})
	q := n.query(testProfile(false)).
		From(n.stops["korenmarkt"]).
		To(n.stops["dampoort"]).
		Between(t0, t0.Add(time.Hour))

	j, err := q.EarliestArrival()
	require.NoError(t, err)
	require.NotNil(t, j)
	assert.Equal(t, at(700), j.ArrivalTime())
	assert.Zero(t, j.Metric().NumberOfTransfers)

	profiles, err := q.Profiles()
	require.NoError(t, err)
	assert.Equal(t, []uint64{at(100)}, departures(profiles[n.stops["korenmarkt"]]))
}

func TestQuery_Isochrone(t *testing.T) {
	n := ghentNetwork(t)

	iso, err := n.query(testProfile(false)).
		From(n.stops["korenmarkt"]).
		Between(t0, t0.Add(3*time.Hour)).
		Isochrone()
	require.NoError(t, err)

	assert.Len(t, iso, 3)
	assert.Equal(t, at(900), iso[n.stops["sint-pieters"]].Time())
	assert.Equal(t, at(1800), iso[n.stops["dampoort"]].Time())
	assert.NotContains(t, iso, n.stops["wondelgem"])
}

func TestValidate(t *testing.T) {
	n := ghentNetwork(t)

	tests := []struct {
		name   string
		modify func(s *ScanSettings[journey.TransferMetric])
	}{
		{"no stops reader", func(s *ScanSettings[journey.TransferMetric]) { s.Stops = nil }},
		{"no enumerator", func(s *ScanSettings[journey.TransferMetric]) { s.Connections = nil }},
		{"no profile", func(s *ScanSettings[journey.TransferMetric]) { s.Profile = nil }},
		{"no internal transfer", func(s *ScanSettings[journey.TransferMetric]) { s.Profile.InternalTransfer = nil }},
		{"no comparator", func(s *ScanSettings[journey.TransferMetric]) { s.Profile.ProfileCompare = nil }},
		{"no window", func(s *ScanSettings[journey.TransferMetric]) { s.LastArrival = time.Time{} }},
		{"empty window", func(s *ScanSettings[journey.TransferMetric]) { s.LastArrival = s.EarliestDeparture }},
		{"reversed window", func(s *ScanSettings[journey.TransferMetric]) {
			s.EarliestDeparture, s.LastArrival = s.LastArrival, s.EarliestDeparture
		}},
		{"filter outside window", func(s *ScanSettings[journey.TransferMetric]) {
			s.Filter = &IsochroneFilter{begin: at(0), end: at(60)}
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := n.settings("korenmarkt", "dampoort")
			tt.modify(s)
			assert.ErrorIs(t, s.Validate(), ErrInvalidConfiguration)
		})
	}

	assert.NoError(t, n.settings("korenmarkt", "dampoort").Validate())
}

func TestScanConstructors_RequireStops(t *testing.T) {
	n := ghentNetwork(t)

	s := n.settings("korenmarkt", "dampoort")
	s.DepartureStops = nil
	_, err := NewEarliestConnectionScan(s)
	assert.ErrorIs(t, err, ErrInvalidConfiguration)
	_, err = NewProfiledConnectionScan(s)
	assert.ErrorIs(t, err, ErrInvalidConfiguration)

	s = n.settings("korenmarkt", "dampoort")
	s.TargetStops = nil
	_, err = NewLatestConnectionScan(s)
	assert.ErrorIs(t, err, ErrInvalidConfiguration)

	s = n.settings("korenmarkt", "dampoort")
	s.Profile.ParetoCompare = nil
	_, err = NewProfiledConnectionScan(s)
	assert.ErrorIs(t, err, ErrInvalidConfiguration)
}

func TestScanConstructors_UnknownStop(t *testing.T) {
	n := ghentNetwork(t)
	s := n.settings("korenmarkt", "dampoort")
	s.Profile = testProfile(true)
	s.DepartureStops = Stops[journey.TransferMetric](transit.InvalidStop)

	_, err := NewEarliestConnectionScan(s)
	assert.ErrorIs(t, err, transit.ErrStopNotFound)
}

func TestEarliestConnectionScan_AdjustExtendsScan(t *testing.T) {
	n := buildNetwork(t, ghent, append(slices.Clone(ghentConnections),
		connDef{"bus-5", "sint-pieters", "wondelgem", 2400, 600, "bus-5", 0}))
	q := n.query(testProfile(false)).
		From(n.stops["korenmarkt"]).
		To(n.stops["dampoort"]).
		Between(t0, t0.Add(3*time.Hour))

	eas, err := NewEarliestConnectionScan(q.settings())
	require.NoError(t, err)
	j, err := eas.CalculateJourney(nil)
	require.NoError(t, err)
	require.NotNil(t, j)
	assert.Equal(t, at(0), eas.ScanBeginTime())
	assert.Equal(t, at(1800), eas.ScanEndTime())
	assert.NotContains(t, eas.Isochrone(), n.stops["wondelgem"])

	eas, err = NewEarliestConnectionScan(q.settings())
	require.NoError(t, err)
	j, err = eas.CalculateJourney(func(_, _ uint64) uint64 { return at(3600) })
	require.NoError(t, err)
	assert.Equal(t, at(1800), j.ArrivalTime())
	assert.Equal(t, at(3600), eas.ScanEndTime())
	require.Contains(t, eas.Isochrone(), n.stops["wondelgem"])
	assert.Equal(t, at(3000), eas.Isochrone()[n.stops["wondelgem"]].Time())
}

func TestLatestConnectionScan_AdjustExtendsScan(t *testing.T) {
	n := ghentNetwork(t)
	q := n.query(testProfile(false)).
		From(n.stops["korenmarkt"]).
		To(n.stops["dampoort"]).
		Between(t0, t0.Add(3*time.Hour))

	las, err := NewLatestConnectionScan(q.settings())
	require.NoError(t, err)
	j, err := las.CalculateJourney(nil)
	require.NoError(t, err)
	require.NotNil(t, j)
	assert.Equal(t, at(3000), j.DepartureTime())
	assert.Equal(t, at(3000), las.ScanBeginTime())
	assert.Equal(t, at(3*3600), las.ScanEndTime())
	assert.NotContains(t, las.Isochrone(), n.stops["sint-pieters"])

	las, err = NewLatestConnectionScan(q.settings())
	require.NoError(t, err)
	_, err = las.CalculateJourney(func(_, _ uint64) uint64 { return at(0) })
	require.NoError(t, err)
	assert.Equal(t, at(0), las.ScanBeginTime())
	assert.Contains(t, las.Isochrone(), n.stops["sint-pieters"])
}
