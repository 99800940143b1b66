package timetable

import (
	"fmt"
	"maps"
	"slices"

	"transitscan/internal/geo"
	"transitscan/internal/transit"
)

// Trip is one vehicle run.
type Trip struct {
	ID       transit.TripID
	GlobalID string
	Name     string
}

// Writer stages changes to a timetable. It starts from a copy of the latest
// snapshot; nothing is visible to readers until Close.
type Writer struct {
	db     *DB
	closed bool

	stops         []transit.Stop
	stopIndex     map[transit.StopID]int
	stopsByGlobal map[string]transit.StopID
	tileCounts    map[uint32]uint32

	trips         []Trip
	tripsByGlobal map[string]transit.TripID

	connections  []transit.Connection // indexed by local id
	connByGlobal map[string]transit.ConnectionID
	tripConns    map[transit.TripID][]uint32
}

func newWriter(db *DB, s *Snapshot) *Writer {
	w := &Writer{
		db:            db,
		stops:         slices.Clone(s.stops),
		stopIndex:     maps.Clone(s.stopIndex),
		stopsByGlobal: maps.Clone(s.stopsByGlobal),
		tileCounts:    make(map[uint32]uint32),
		trips:         slices.Clone(s.trips),
		tripsByGlobal: maps.Clone(s.tripsByGlobal),
		connections:   make([]transit.Connection, len(s.connections)),
		connByGlobal:  maps.Clone(s.connByGlobal),
		tripConns:     make(map[transit.TripID][]uint32),
	}
	for _, st := range w.stops {
		w.tileCounts[st.ID.TileID]++
	}
	for _, c := range s.connections {
		w.connections[c.ID.LocalID] = c
	}
	for _, c := range w.connections {
		w.tripConns[c.Trip] = append(w.tripConns[c.Trip], c.ID.LocalID)
	}
	return w
}

// AddOrUpdateStop registers a stop, or updates the name and position of a
// known one. The id of a stop never changes, even when it moves to another tile.
func (w *Writer) AddOrUpdateStop(globalID, name string, lat, lon float64) transit.StopID {
	if id, ok := w.stopsByGlobal[globalID]; ok {
		st := &w.stops[w.stopIndex[id]]
		st.Name, st.Latitude, st.Longitude = name, lat, lon
		return id
	}

	tile := geo.TileID(lat, lon)
	id := transit.StopID{DatabaseID: w.db.id, TileID: tile, LocalID: w.tileCounts[tile]}
	w.tileCounts[tile]++

	w.stopIndex[id] = len(w.stops)
	w.stopsByGlobal[globalID] = id
	w.stops = append(w.stops, transit.Stop{
		ID:        id,
		GlobalID:  globalID,
		Name:      name,
		Latitude:  lat,
		Longitude: lon,
	})
	return id
}

// AddOrUpdateTrip registers a trip by its global id.
func (w *Writer) AddOrUpdateTrip(globalID, name string) transit.TripID {
	if id, ok := w.tripsByGlobal[globalID]; ok {
		w.trips[id.LocalID].Name = name
		return id
	}
	id := transit.TripID{DatabaseID: w.db.id, LocalID: uint32(len(w.trips))}
	w.tripsByGlobal[globalID] = id
	w.trips = append(w.trips, Trip{ID: id, GlobalID: globalID, Name: name})
	return id
}

// AddOrUpdateConnection stores c under its GlobalID and returns the id it
// got. Both stops must already be known. c.ID is ignored.
func (w *Writer) AddOrUpdateConnection(c transit.Connection) (transit.ConnectionID, error) {
	for _, s := range []transit.StopID{c.DepartureStop, c.ArrivalStop} {
		if _, ok := w.stopIndex[s]; !ok {
			return transit.InvalidConnection, fmt.Errorf("connection %q: %v: %w", c.GlobalID, s, ErrUnknownStop)
		}
	}

	if id, ok := w.connByGlobal[c.GlobalID]; ok {
		old := w.connections[id.LocalID]
		if old.Trip != c.Trip {
			w.tripConns[old.Trip] = slices.DeleteFunc(w.tripConns[old.Trip], func(l uint32) bool { return l == id.LocalID })
			w.tripConns[c.Trip] = append(w.tripConns[c.Trip], id.LocalID)
		}
		c.ID = id
		w.connections[id.LocalID] = c
		return id, nil
	}

	id := transit.ConnectionID{DatabaseID: w.db.id, LocalID: uint32(len(w.connections))}
	c.ID = id
	w.connections = append(w.connections, c)
	w.connByGlobal[c.GlobalID] = id
	w.tripConns[c.Trip] = append(w.tripConns[c.Trip], id.LocalID)
	return id, nil
}

// UpdateDelays replaces the delays of a connection. The scheduled times are
// recovered from the old delays, so repeated updates do not accumulate.
func (w *Writer) UpdateDelays(id transit.ConnectionID, departureDelay, arrivalDelay uint16) error {
	if id.DatabaseID != w.db.id || int(id.LocalID) >= len(w.connections) {
		return fmt.Errorf("update delays of %v: %w", id, ErrUnknownConnection)
	}
	c := &w.connections[id.LocalID]

	scheduledDep := c.DepartureTime - uint64(c.DepartureDelay)
	scheduledArr := c.ArrivalTime() - uint64(c.ArrivalDelay)

	dep := scheduledDep + uint64(departureDelay)
	arr := scheduledArr + uint64(arrivalDelay)
	var travel uint16
	if arr > dep {
		travel = uint16(min(arr-dep, 0xFFFF))
	}

	c.DepartureTime = dep
	c.TravelTime = travel
	c.DepartureDelay = departureDelay
	c.ArrivalDelay = arrivalDelay
	return nil
}

// StopByGlobalID looks up a staged stop.
func (w *Writer) StopByGlobalID(globalID string) (transit.StopID, bool) {
	id, ok := w.stopsByGlobal[globalID]
	return id, ok
}

// TripByGlobalID looks up a staged trip.
func (w *Writer) TripByGlobalID(globalID string) (transit.TripID, bool) {
	id, ok := w.tripsByGlobal[globalID]
	return id, ok
}

// ConnectionByGlobalID looks up a staged connection.
func (w *Writer) ConnectionByGlobalID(globalID string) (transit.Connection, bool) {
	id, ok := w.connByGlobal[globalID]
	if !ok {
		return transit.Connection{}, false
	}
	return w.connections[id.LocalID], true
}

// TripConnections returns the staged connections of a trip, by departure time.
func (w *Writer) TripConnections(trip transit.TripID) []transit.Connection {
	out := make([]transit.Connection, 0, len(w.tripConns[trip]))
	for _, l := range w.tripConns[trip] {
		out = append(out, w.connections[l])
	}
	slices.SortFunc(out, compareConnections)
	return out
}

// Close publishes the staged data as the new latest snapshot.
func (w *Writer) Close() *Snapshot {
	if w.closed {
		return w.db.Latest()
	}
	w.closed = true
	s := buildSnapshot(w)
	w.db.publish(s)
	return s
}

// Abort discards the staged data.
func (w *Writer) Abort() {
	if w.closed {
		return
	}
	w.closed = true
	w.db.release()
}
