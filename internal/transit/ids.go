package transit

import (
	"fmt"
	"hash/fnv"
	"math"
)

// reservedDatabase is never handed out to a real timetable.
const reservedDatabase = math.MaxUint32

// otherModeDatabase holds the trip ids derived from other-mode generators.
const otherModeDatabase = math.MaxUint32 - 1

// StopID identifies a stop: the database it lives in, the map tile it falls
// in and its index within that tile.
type StopID struct {
	DatabaseID uint32
	TileID     uint32
	LocalID    uint32
}

// InvalidStop is never assigned to a real stop.
var InvalidStop = StopID{reservedDatabase, math.MaxUint32, math.MaxUint32}

func (id StopID) String() string {
	return fmt.Sprintf("stop(%d,%d,%d)", id.DatabaseID, id.TileID, id.LocalID)
}

// TripID identifies one run of a vehicle.
type TripID struct {
	DatabaseID uint32
	LocalID    uint32
}

// Reserved trip ids. Scan tags mark journeys built by a scan; NoTrip marks
// transfers and walks that do not belong to any vehicle run.
var (
	NoTrip                 = TripID{reservedDatabase, math.MaxUint32}
	EarliestArrivalScanTag = TripID{reservedDatabase, 1}
	LatestDepartureScanTag = TripID{reservedDatabase, 2}
	ProfiledScanTag        = TripID{reservedDatabase, 3}
)

// OtherModeTrip derives a stable trip id from an other-mode generator
// identifier, so walks produced by different generators stay distinguishable.
func OtherModeTrip(identifier string) TripID {
	h := fnv.New32a()
	h.Write([]byte(identifier))
	return TripID{otherModeDatabase, h.Sum32()}
}

// IsReserved reports whether the trip id is one of the synthetic ids above
// or an other-mode trip.
func (id TripID) IsReserved() bool {
	return id.DatabaseID == reservedDatabase || id.DatabaseID == otherModeDatabase
}

func (id TripID) String() string {
	switch id {
	case NoTrip:
		return "trip(none)"
	case EarliestArrivalScanTag:
		return "trip(eas)"
	case LatestDepartureScanTag:
		return "trip(las)"
	case ProfiledScanTag:
		return "trip(pcs)"
	}
	return fmt.Sprintf("trip(%d,%d)", id.DatabaseID, id.LocalID)
}

// ConnectionID identifies a scheduled connection within a database.
type ConnectionID struct {
	DatabaseID uint32
	LocalID    uint32
}

// InvalidConnection is never assigned to a real connection.
var InvalidConnection = ConnectionID{reservedDatabase, math.MaxUint32}

func (id ConnectionID) String() string {
	return fmt.Sprintf("connection(%d,%d)", id.DatabaseID, id.LocalID)
}
