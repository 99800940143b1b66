package journey

import "math"

// EndpointKind tells whether a scan has a journey for a stop.
type EndpointKind uint8

const (
	// NotYetFound is the start state of a backward scan: every real journey
	// departs later than it.
	NotYetFound EndpointKind = iota
	// Unreachable is the start state of a forward scan: every real journey
	// arrives earlier than it.
	Unreachable
	Reached
)

// Endpoint is the best known journey for a stop, or one of two markers.
type Endpoint[T Metric[T]] struct {
	kind    EndpointKind
	journey *Journey[T]
}

func NotYetFoundEndpoint[T Metric[T]]() Endpoint[T] { return Endpoint[T]{kind: NotYetFound} }
func UnreachableEndpoint[T Metric[T]]() Endpoint[T] { return Endpoint[T]{kind: Unreachable} }

// ReachedBy wraps a journey. A nil journey yields fallback instead.
func ReachedBy[T Metric[T]](j *Journey[T], fallback Endpoint[T]) Endpoint[T] {
	if j == nil {
		return fallback
	}
	return Endpoint[T]{kind: Reached, journey: j}
}

func (e Endpoint[T]) Kind() EndpointKind   { return e.kind }
func (e Endpoint[T]) Journey() *Journey[T] { return e.journey }
func (e Endpoint[T]) Found() bool          { return e.kind == Reached }

// Time returns the time at the journey's current node. NotYetFound sorts
// before every real time and Unreachable after.
func (e Endpoint[T]) Time() uint64 {
	switch e.kind {
	case NotYetFound:
		return 0
	case Unreachable:
		return math.MaxUint64
	}
	return e.journey.Time()
}
