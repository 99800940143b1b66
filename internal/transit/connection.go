package transit

// Mode flags on a connection. A zero mode allows both boarding and alighting.
const (
	ModeNoBoarding  uint16 = 1
	ModeNoAlighting uint16 = 2
)

// Connection is a single vehicle movement between two consecutive stops.
// DepartureTime and TravelTime already include the delays.
type Connection struct {
	ID       ConnectionID
	GlobalID string

	DepartureStop StopID
	ArrivalStop   StopID

	DepartureTime  uint64 // unix seconds
	TravelTime     uint16 // seconds
	DepartureDelay uint16
	ArrivalDelay   uint16

	Mode uint16
	Trip TripID
}

// ArrivalTime returns the unix time the vehicle reaches ArrivalStop.
func (c *Connection) ArrivalTime() uint64 {
	return c.DepartureTime + uint64(c.TravelTime)
}

// CanGetOn reports whether passengers may board at the departure stop.
func (c *Connection) CanGetOn() bool {
	return c.Mode&ModeNoBoarding == 0
}

// CanGetOff reports whether passengers may alight at the arrival stop.
func (c *Connection) CanGetOff() bool {
	return c.Mode&ModeNoAlighting == 0
}
