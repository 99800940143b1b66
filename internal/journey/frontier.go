package journey

// Frontier is an ordered set of journeys where no journey dominates another.
type Frontier[T Metric[T]] struct {
	compare  ParetoComparator[T]
	filter   Filter[T]
	journeys []*Journey[T]
}

// NewFrontier returns an empty frontier. filter may be nil; when set,
// journeys it rejects backwards are never added.
func NewFrontier[T Metric[T]](compare ParetoComparator[T], filter Filter[T]) *Frontier[T] {
	return &Frontier[T]{compare: compare, filter: filter}
}

// Add inserts the candidate unless an existing journey dominates it or it is
// already present. Journeys the candidate dominates are removed. A candidate
// that ties with a journey ending on the same link is merged into it.
// Add reports whether the frontier changed.
func (f *Frontier[T]) Add(candidate *Journey[T]) bool {
	return f.Insert(candidate) != nil
}

// Insert is Add returning the node the frontier now holds for the
// candidate: the candidate itself, the merged node it became part of, or
// nil if the frontier did not change.
func (f *Frontier[T]) Insert(candidate *Journey[T]) *Journey[T] {
	if candidate == nil {
		return nil
	}
	if f.filter != nil && !f.filter.CanBeTakenBackwards(candidate) {
		return nil
	}

	for i, j := range f.journeys {
		if j.Equal(candidate) {
			return nil
		}
		switch f.compare(j, candidate) {
		case FirstDominates:
			return nil
		case Equal:
			if merged, err := Merge(j, candidate); err == nil {
				f.journeys[i] = merged
				return merged
			}
		}
	}

	kept := f.journeys[:0]
	for _, j := range f.journeys {
		if f.compare(candidate, j) != FirstDominates {
			kept = append(kept, j)
		}
	}
	clear(f.journeys[len(kept):])
	f.journeys = append(kept, candidate)
	return candidate
}

// Dominates reports whether some journey in the frontier strictly dominates j.
func (f *Frontier[T]) Dominates(j *Journey[T]) bool {
	for _, k := range f.journeys {
		if f.compare(k, j) == FirstDominates {
			return true
		}
	}
	return false
}

// Journeys returns the members in insertion order. The slice must not be modified.
func (f *Frontier[T]) Journeys() []*Journey[T] { return f.journeys }

func (f *Frontier[T]) Len() int { return len(f.journeys) }

// Empty returns a new frontier with the same comparator and filter.
func (f *Frontier[T]) Empty() *Frontier[T] {
	return &Frontier[T]{compare: f.compare, filter: f.filter}
}

// Combine returns a new frontier holding the non-dominated union of a and b.
// Either may be nil.
func Combine[T Metric[T]](a, b *Frontier[T]) *Frontier[T] {
	if a == nil {
		a, b = b, nil
	}
	if a == nil {
		return nil
	}
	out := &Frontier[T]{compare: a.compare, filter: a.filter}
	out.journeys = append(out.journeys, a.journeys...)
	if b != nil {
		for _, j := range b.journeys {
			out.Add(j)
		}
	}
	return out
}
