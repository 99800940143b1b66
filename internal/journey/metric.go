package journey

import "transitscan/internal/transit"

// Step describes the link being appended to a journey, as seen by a Metric.
type Step struct {
	PreviousTime     uint64
	PreviousLastTrip transit.TripID

	Kind     LinkKind
	Location transit.StopID
	Time     uint64
	Trip     transit.TripID
}

// Elapsed returns the absolute time between the previous link and this one.
// Backward scans append links that lie earlier in time.
func (s Step) Elapsed() uint64 {
	if s.Time >= s.PreviousTime {
		return s.Time - s.PreviousTime
	}
	return s.PreviousTime - s.Time
}

// Metric accumulates statistics along a journey. Values are immutable:
// Add returns a new value and leaves the receiver untouched.
type Metric[T any] interface {
	comparable
	Zero() T
	Add(s Step) T
}

// Comparator is a total order over journeys. A negative result means the
// first journey is better.
type Comparator[T Metric[T]] func(a, b *Journey[T]) int

// Dominance is the outcome of comparing two journeys under a partial order.
type Dominance int

const (
	Equal Dominance = iota
	FirstDominates
	SecondDominates
	Incomparable
)

func (d Dominance) String() string {
	switch d {
	case Equal:
		return "equal"
	case FirstDominates:
		return "first dominates"
	case SecondDominates:
		return "second dominates"
	}
	return "incomparable"
}

// ParetoComparator compares two journeys for Pareto dominance.
type ParetoComparator[T Metric[T]] func(a, b *Journey[T]) Dominance

// dominance folds per-dimension results into a Dominance.
func dominance(firstBetter, secondBetter bool) Dominance {
	switch {
	case firstBetter && secondBetter:
		return Incomparable
	case firstBetter:
		return FirstDominates
	case secondBetter:
		return SecondDominates
	}
	return Equal
}
