package timetable

import (
	"sort"

	"transitscan/internal/transit"
)

// Enumerator walks the connections of a snapshot in departure time order.
// It implements transit.ConnectionEnumerator.
type Enumerator struct {
	connections []transit.Connection

	moveTime uint64
	next     int // first step forward after MoveTo
	prev     int // first step backward after MoveTo
	current  int // -1 until the first step
}

// MoveTo places the cursor at unixTime. Connections departing exactly then
// are reachable in both directions.
func (e *Enumerator) MoveTo(unixTime uint64) {
	e.moveTime = unixTime
	e.next = sort.Search(len(e.connections), func(i int) bool {
		return e.connections[i].DepartureTime >= unixTime
	})
	e.prev = sort.Search(len(e.connections), func(i int) bool {
		return e.connections[i].DepartureTime > unixTime
	}) - 1
	e.current = -1
}

func (e *Enumerator) MoveNext() bool {
	i := e.current + 1
	if e.current < 0 {
		i = e.next
	}
	if i >= len(e.connections) {
		return false
	}
	e.current = i
	return true
}

func (e *Enumerator) MovePrevious() bool {
	i := e.current - 1
	if e.current < 0 {
		i = e.prev
	}
	if i < 0 {
		return false
	}
	e.current = i
	return true
}

// Current returns nil before the first successful step.
func (e *Enumerator) Current() *transit.Connection {
	if e.current < 0 {
		return nil
	}
	return &e.connections[e.current]
}

func (e *Enumerator) CurrentTime() uint64 {
	if e.current < 0 {
		return e.moveTime
	}
	return e.connections[e.current].DepartureTime
}
