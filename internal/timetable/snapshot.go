package timetable

import (
	"cmp"
	"fmt"
	"maps"
	"slices"

	"transitscan/internal/geo"
	"transitscan/internal/transit"
)

// Snapshot is an immutable view of a timetable. It implements
// transit.StopsReader and hands out connection enumerators.
type Snapshot struct {
	databaseID uint32

	stops         []transit.Stop
	stopIndex     map[transit.StopID]int
	stopsByGlobal map[string]transit.StopID
	tiles         map[uint32][]int

	trips         []Trip
	tripsByGlobal map[string]transit.TripID

	connections  []transit.Connection // by departure time, then id
	connIndex    map[transit.ConnectionID]int
	connByGlobal map[string]transit.ConnectionID
}

func emptySnapshot(databaseID uint32) *Snapshot {
	return &Snapshot{
		databaseID:    databaseID,
		stopIndex:     map[transit.StopID]int{},
		stopsByGlobal: map[string]transit.StopID{},
		tiles:         map[uint32][]int{},
		tripsByGlobal: map[string]transit.TripID{},
		connIndex:     map[transit.ConnectionID]int{},
		connByGlobal:  map[string]transit.ConnectionID{},
	}
}

func compareConnections(a, b transit.Connection) int {
	if c := cmp.Compare(a.DepartureTime, b.DepartureTime); c != 0 {
		return c
	}
	return cmp.Compare(a.ID.LocalID, b.ID.LocalID)
}

func buildSnapshot(w *Writer) *Snapshot {
	s := &Snapshot{
		databaseID:    w.db.id,
		stops:         slices.Clone(w.stops),
		stopIndex:     maps.Clone(w.stopIndex),
		stopsByGlobal: maps.Clone(w.stopsByGlobal),
		tiles:         make(map[uint32][]int),
		trips:         slices.Clone(w.trips),
		tripsByGlobal: maps.Clone(w.tripsByGlobal),
		connections:   slices.Clone(w.connections),
		connIndex:     make(map[transit.ConnectionID]int, len(w.connections)),
		connByGlobal:  maps.Clone(w.connByGlobal),
	}
	// indexed by position: a moved stop keeps the tile of its id
	for i, st := range s.stops {
		tile := geo.TileID(st.Latitude, st.Longitude)
		s.tiles[tile] = append(s.tiles[tile], i)
	}
	slices.SortFunc(s.connections, compareConnections)
	for i, c := range s.connections {
		s.connIndex[c.ID] = i
	}
	return s
}

func (s *Snapshot) DatabaseID() uint32 { return s.databaseID }

// Stop implements transit.StopsReader.
func (s *Snapshot) Stop(id transit.StopID) (transit.Stop, error) {
	i, ok := s.stopIndex[id]
	if !ok {
		return transit.Stop{}, fmt.Errorf("%v: %w", id, transit.ErrStopNotFound)
	}
	return s.stops[i], nil
}

// StopsInRange implements transit.StopsReader. Only the tiles overlapping the
// search box are visited.
func (s *Snapshot) StopsInRange(lat, lon, meters float64) []transit.Stop {
	type hit struct {
		stop transit.Stop
		dist float64
	}
	var hits []hit
	for _, tile := range geo.TilesCovering(geo.BoundAround(lat, lon, meters)) {
		for _, i := range s.tiles[tile] {
			st := s.stops[i]
			if d := geo.Haversine(lat, lon, st.Latitude, st.Longitude); d <= meters {
				hits = append(hits, hit{st, d})
			}
		}
	}
	slices.SortFunc(hits, func(a, b hit) int {
		if c := cmp.Compare(a.dist, b.dist); c != 0 {
			return c
		}
		return cmp.Compare(a.stop.GlobalID, b.stop.GlobalID)
	})

	out := make([]transit.Stop, len(hits))
	for i, h := range hits {
		out[i] = h.stop
	}
	return out
}

// StopByGlobalID resolves a stop by the id it had in the source data.
func (s *Snapshot) StopByGlobalID(globalID string) (transit.Stop, bool) {
	id, ok := s.stopsByGlobal[globalID]
	if !ok {
		return transit.Stop{}, false
	}
	return s.stops[s.stopIndex[id]], true
}

// Stops returns all stops in insertion order. The slice must not be modified.
func (s *Snapshot) Stops() []transit.Stop { return s.stops }

// Trip returns the trip with the given id.
func (s *Snapshot) Trip(id transit.TripID) (Trip, bool) {
	if id.DatabaseID != s.databaseID || int(id.LocalID) >= len(s.trips) {
		return Trip{}, false
	}
	return s.trips[id.LocalID], true
}

// TripByGlobalID resolves a trip by its source id.
func (s *Snapshot) TripByGlobalID(globalID string) (Trip, bool) {
	id, ok := s.tripsByGlobal[globalID]
	if !ok {
		return Trip{}, false
	}
	return s.trips[id.LocalID], true
}

// Trips returns all trips. The slice must not be modified.
func (s *Snapshot) Trips() []Trip { return s.trips }

// Connection returns the connection with the given id.
func (s *Snapshot) Connection(id transit.ConnectionID) (transit.Connection, bool) {
	i, ok := s.connIndex[id]
	if !ok {
		return transit.Connection{}, false
	}
	return s.connections[i], true
}

// ConnectionByGlobalID resolves a connection by its source id.
func (s *Snapshot) ConnectionByGlobalID(globalID string) (transit.Connection, bool) {
	id, ok := s.connByGlobal[globalID]
	if !ok {
		return transit.Connection{}, false
	}
	return s.Connection(id)
}

// Connections returns all connections ordered by departure time. The slice
// must not be modified.
func (s *Snapshot) Connections() []transit.Connection { return s.connections }

// Enumerator returns a fresh cursor over the connections.
func (s *Snapshot) Enumerator() *Enumerator {
	return &Enumerator{connections: s.connections, current: -1}
}

// TimeSpan returns the departure times of the first and last connection.
func (s *Snapshot) TimeSpan() (first, last uint64, ok bool) {
	if len(s.connections) == 0 {
		return 0, 0, false
	}
	return s.connections[0].DepartureTime, s.connections[len(s.connections)-1].DepartureTime, true
}
