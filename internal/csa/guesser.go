package csa

import (
	"transitscan/internal/journey"
	"transitscan/internal/transit"
)

// SimpleMetricGuesser guesses that the rest of the journey takes no time at
// all: it moves the traveller to the origin instantly. That is a valid bound
// for any metric that never improves when links are added, such as
// journey.TransferMetric.
type SimpleMetricGuesser[T journey.Metric[T]] struct{}

func (SimpleMetricGuesser[T]) LeastTheoreticalJourney(j *journey.Journey[T], origin transit.StopID) *journey.Journey[T] {
	if j.Location() == origin {
		return j
	}
	guess, err := j.ChainSpecial(journey.OtherModeLink, origin, j.Time(), transit.NoTrip)
	if err != nil {
		return nil
	}
	return guess
}
