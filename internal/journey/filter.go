package journey

// Filter rejects journeys a traveller would not take, such as journeys with
// too many transfers. CanBeTaken is consulted for forward-built journeys and
// CanBeTakenBackwards for backward-built ones.
type Filter[T Metric[T]] interface {
	CanBeTaken(j *Journey[T]) bool
	CanBeTakenBackwards(j *Journey[T]) bool
}
