// Package journey holds the immutable journey representation shared by all
// connection scans, together with the metrics and Pareto frontiers used to
// rank journeys.
//
// A journey is a chain of nodes growing away from a genesis node. Forward
// scans grow it from the departure stop towards the destination; backward
// scans grow it from the destination towards the departure stop, in which
// case Reversed turns it around. Nodes are never modified after creation, so
// a node can be the predecessor of many journeys at once.
package journey

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"transitscan/internal/othermode"
	"transitscan/internal/transit"
)

// ErrInvalidArgument is returned when a chain or merge would break the
// ordering or identity invariants of a journey.
var ErrInvalidArgument = errors.New("invalid journey argument")

const (
	hashOffset = 14695981039346656037
	hashPrime  = 1099511628211
)

// Journey is one node of a journey. The zero value is not usable; start
// from NewGenesis.
type Journey[T Metric[T]] struct {
	root         *Journey[T]
	previous     *Journey[T]
	alternatives []*Journey[T] // further predecessors of merged nodes

	link     LinkRef
	location transit.StopID
	time     uint64
	trip     transit.TripID
	lastTrip transit.TripID
	metric   T

	hash uint64
}

// NewGenesis starts a journey at location and time. The tag is stored as the
// trip of the genesis node and marks which scan built the journey.
func NewGenesis[T Metric[T]](location transit.StopID, time uint64, metric T, tag transit.TripID) *Journey[T] {
	j := &Journey[T]{
		link:     GenesisLink,
		location: location,
		time:     time,
		trip:     tag,
		lastTrip: transit.NoTrip,
		metric:   metric,
	}
	j.root = j
	j.hash = mix(hashOffset, j)
	return j
}

func mix[T Metric[T]](h uint64, j *Journey[T]) uint64 {
	for _, v := range [...]uint64{
		uint64(j.link.Kind),
		uint64(j.link.Connection.DatabaseID)<<32 | uint64(j.link.Connection.LocalID),
		uint64(j.location.DatabaseID)<<32 | uint64(j.location.TileID),
		uint64(j.location.LocalID),
		j.time,
		uint64(j.trip.DatabaseID)<<32 | uint64(j.trip.LocalID),
	} {
		h ^= v
		h *= hashPrime
	}
	return h
}

// chain appends a link without any ordering checks.
func (j *Journey[T]) chain(link LinkRef, location transit.StopID, time uint64, trip transit.TripID) *Journey[T] {
	n := &Journey[T]{
		root:     j.root,
		previous: j,
		link:     link,
		location: location,
		time:     time,
		trip:     trip,
		lastTrip: j.lastTrip,
	}
	if link.Kind == Scheduled {
		n.lastTrip = trip
	}
	n.metric = j.metric.Add(Step{
		PreviousTime:     j.time,
		PreviousLastTrip: j.lastTrip,
		Kind:             link.Kind,
		Location:         location,
		Time:             time,
		Trip:             trip,
	})
	n.hash = mix(j.hash, n)
	return n
}

// anchored moves the journey in time so its current node is at t. Only a
// bare genesis or a single other-mode link after a genesis can be moved;
// anything else is returned unchanged.
func (j *Journey[T]) anchored(t uint64) *Journey[T] {
	switch {
	case j.IsGenesis():
		return NewGenesis(j.location, t, j.metric.Zero(), j.trip)
	case j.link.Kind == OtherMode && len(j.alternatives) == 0 && j.previous.IsGenesis():
		g := j.previous
		start := t + g.time - j.time // backward: the genesis lies later
		if g.time <= j.time {
			start = t - (j.time - g.time)
		}
		return NewGenesis(g.location, start, g.metric.Zero(), g.trip).chain(j.link, j.location, t, j.trip)
	}
	return j
}

// ChainForward extends a forward journey with a connection departing from
// where the journey is. A journey that has not ridden anything yet is moved
// to the departure time of c first, so waiting before the first ride does
// not count.
func (j *Journey[T]) ChainForward(c *transit.Connection) (*Journey[T], error) {
	if c.DepartureTime < j.time {
		return nil, fmt.Errorf("chain %v departing at %d onto journey at %d: %w",
			c.ID, c.DepartureTime, j.time, ErrInvalidArgument)
	}
	from := j.anchored(c.DepartureTime)
	return from.chain(ScheduledLink(c.ID), c.ArrivalStop, c.ArrivalTime(), c.Trip), nil
}

// ChainBackward extends a backward journey with a connection arriving where
// the journey is. A journey that has not ridden anything yet is moved to the
// arrival time of c first.
func (j *Journey[T]) ChainBackward(c *transit.Connection) (*Journey[T], error) {
	if c.ArrivalTime() > j.time {
		return nil, fmt.Errorf("chain %v arriving at %d onto journey at %d: %w",
			c.ID, c.ArrivalTime(), j.time, ErrInvalidArgument)
	}
	from := j.anchored(c.ArrivalTime())
	return from.chain(ScheduledLink(c.ID), c.DepartureStop, c.DepartureTime, c.Trip), nil
}

// ChainSpecial appends a genesis or other-mode link.
func (j *Journey[T]) ChainSpecial(link LinkRef, location transit.StopID, time uint64, trip transit.TripID) (*Journey[T], error) {
	if !link.IsSpecial() {
		return nil, fmt.Errorf("chain special with %v: %w", link, ErrInvalidArgument)
	}
	return j.chain(link, location, time, trip), nil
}

// ChainForwardWith moves the journey to another stop using gen. It returns a
// nil journey if gen cannot bridge the two stops.
func (j *Journey[T]) ChainForwardWith(stops transit.StopsReader, gen othermode.Generator, to transit.StopID) (*Journey[T], error) {
	from, err := stops.Stop(j.location)
	if err != nil {
		return nil, fmt.Errorf("lookup %v: %w", j.location, err)
	}
	dest, err := stops.Stop(to)
	if err != nil {
		return nil, fmt.Errorf("lookup %v: %w", to, err)
	}
	t := gen.TimeBetween(from, dest)
	if t == othermode.Unreachable {
		return nil, nil
	}
	trip := transit.OtherModeTrip(gen.Source(from, dest).Identifier())
	return j.chain(OtherModeLink, to, j.time+uint64(t), trip), nil
}

// ChainBackwardWith is the backward dual of ChainForwardWith: the new node is
// at stop from, early enough to reach the journey's stop in time.
func (j *Journey[T]) ChainBackwardWith(stops transit.StopsReader, gen othermode.Generator, from transit.StopID) (*Journey[T], error) {
	src, err := stops.Stop(from)
	if err != nil {
		return nil, fmt.Errorf("lookup %v: %w", from, err)
	}
	here, err := stops.Stop(j.location)
	if err != nil {
		return nil, fmt.Errorf("lookup %v: %w", j.location, err)
	}
	t := gen.TimeBetween(src, here)
	if t == othermode.Unreachable || uint64(t) > j.time {
		return nil, nil
	}
	trip := transit.OtherModeTrip(gen.Source(src, here).Identifier())
	return j.chain(OtherModeLink, from, j.time-uint64(t), trip), nil
}

// WalkForward returns the journeys reaching every other stop gen can bridge
// to from the journey's current stop, nearest stop first.
func (j *Journey[T]) WalkForward(stops transit.StopsReader, gen othermode.Generator) ([]*Journey[T], error) {
	here, err := stops.Stop(j.location)
	if err != nil {
		return nil, fmt.Errorf("lookup %v: %w", j.location, err)
	}
	near := stops.StopsInRange(here.Latitude, here.Longitude, gen.Range())
	times := gen.TimesBetween(here, near)

	var out []*Journey[T]
	for _, s := range near {
		t, ok := times[s.ID]
		if !ok || s.ID == j.location {
			continue
		}
		trip := transit.OtherModeTrip(gen.Source(here, s).Identifier())
		out = append(out, j.chain(OtherModeLink, s.ID, j.time+uint64(t), trip))
	}
	return out, nil
}

// WalkBackward returns the journeys from every stop that can reach the
// journey's current stop through gen.
func (j *Journey[T]) WalkBackward(stops transit.StopsReader, gen othermode.Generator) ([]*Journey[T], error) {
	here, err := stops.Stop(j.location)
	if err != nil {
		return nil, fmt.Errorf("lookup %v: %w", j.location, err)
	}

	var out []*Journey[T]
	for _, s := range stops.StopsInRange(here.Latitude, here.Longitude, gen.Range()) {
		if s.ID == j.location {
			continue
		}
		t := gen.TimeBetween(s, here)
		if t == othermode.Unreachable || uint64(t) > j.time {
			continue
		}
		trip := transit.OtherModeTrip(gen.Source(s, here).Identifier())
		out = append(out, j.chain(OtherModeLink, s.ID, j.time-uint64(t), trip))
	}
	return out, nil
}

// Merge joins two journeys that end with the same link into a single node
// holding the predecessors of both. Either may already be merged. The metric
// and time of a are kept, as is its primary predecessor.
func Merge[T Metric[T]](a, b *Journey[T]) (*Journey[T], error) {
	if a == nil || b == nil {
		return nil, fmt.Errorf("merge nil journey: %w", ErrInvalidArgument)
	}
	if a.link != b.link || a.location != b.location {
		return nil, fmt.Errorf("merge journeys ending with %v at %v and %v at %v: %w",
			a.link, a.location, b.link, b.location, ErrInvalidArgument)
	}
	if a.previous == nil || b.previous == nil {
		return nil, fmt.Errorf("merge genesis journey: %w", ErrInvalidArgument)
	}
	known := a.Predecessors()
	alternatives := slices.Clone(a.alternatives)
	for _, p := range b.Predecessors() {
		if !slices.ContainsFunc(known, p.Equal) {
			known = append(known, p)
			alternatives = append(alternatives, p)
		}
	}
	return &Journey[T]{
		root:         a.root,
		previous:     a.previous,
		alternatives: alternatives,
		link:         a.link,
		location:     a.location,
		time:         a.time,
		trip:         a.trip,
		lastTrip:     a.lastTrip,
		metric:       a.metric,
		hash:         a.hash + b.hash,
	}, nil
}

// Append chains every link of rest after its genesis onto j. rest must start
// where j ends. A nil rest returns j.
func (j *Journey[T]) Append(rest *Journey[T]) *Journey[T] {
	if rest == nil {
		return j
	}
	out := j
	for _, p := range rest.Parts()[1:] {
		out = out.chain(p.link, p.location, p.time, p.trip)
	}
	return out
}

// Reversed turns the journey around: the leaf becomes the genesis and every
// link is replayed in the other direction, recomputing the metric. Merged
// nodes are expanded, so one result is returned per distinct path.
func (j *Journey[T]) Reversed() []*Journey[T] {
	start := NewGenesis(j.location, j.time, j.metric.Zero(), j.root.trip)
	var out []*Journey[T]
	reverseOnto(j, start, &out)
	// a node merged into a walk's predecessor can reach the same path twice
	uniq := out[:0]
	for _, r := range out {
		if !slices.ContainsFunc(uniq, r.Equal) {
			uniq = append(uniq, r)
		}
	}
	return uniq
}

func reverseOnto[T Metric[T]](node, acc *Journey[T], out *[]*Journey[T]) {
	if node.previous == nil {
		*out = append(*out, acc)
		return
	}
	for _, p := range node.Predecessors() {
		reverseOnto(p, acc.chain(node.link, p.location, p.time, node.trip), out)
	}
}

// Parts returns the nodes from the genesis to j, following the primary
// predecessor of merged nodes.
func (j *Journey[T]) Parts() []*Journey[T] {
	var parts []*Journey[T]
	for n := j; n != nil; n = n.previous {
		parts = append(parts, n)
	}
	for l, r := 0, len(parts)-1; l < r; l, r = l+1, r-1 {
		parts[l], parts[r] = parts[r], parts[l]
	}
	return parts
}

// Predecessors returns the previous node followed by the alternatives of a
// merged node. A genesis has none.
func (j *Journey[T]) Predecessors() []*Journey[T] {
	if j.previous == nil {
		return nil
	}
	return append([]*Journey[T]{j.previous}, j.alternatives...)
}

func (j *Journey[T]) Root() *Journey[T]        { return j.root }
func (j *Journey[T]) Previous() *Journey[T]    { return j.previous }
func (j *Journey[T]) Link() LinkRef            { return j.link }
func (j *Journey[T]) Location() transit.StopID { return j.location }
func (j *Journey[T]) Time() uint64             { return j.time }
func (j *Journey[T]) Trip() transit.TripID     { return j.trip }
func (j *Journey[T]) Metric() T                { return j.metric }
func (j *Journey[T]) Hash() uint64             { return j.hash }

// LastTrip returns the trip of the most recent scheduled link, or
// transit.NoTrip if the journey has not ridden anything yet.
func (j *Journey[T]) LastTrip() transit.TripID { return j.lastTrip }

// IsGenesis reports whether j is a bare journey start.
func (j *Journey[T]) IsGenesis() bool { return j.link.Kind == Genesis }

// IsSpecial reports whether the last link is a genesis or other-mode link.
func (j *Journey[T]) IsSpecial() bool { return j.link.IsSpecial() }

// IsMerged reports whether j has more than one equally good predecessor.
func (j *Journey[T]) IsMerged() bool { return len(j.alternatives) > 0 }

// DepartureTime is the earliest time on the journey, whichever direction it was built in.
func (j *Journey[T]) DepartureTime() uint64 { return min(j.time, j.root.time) }

// ArrivalTime is the latest time on the journey.
func (j *Journey[T]) ArrivalTime() uint64 { return max(j.time, j.root.time) }

// Equal reports structural equality.
func (j *Journey[T]) Equal(o *Journey[T]) bool {
	if j == o {
		return true
	}
	if j == nil || o == nil {
		return false
	}
	if j.hash != o.hash || j.link != o.link || j.location != o.location ||
		j.time != o.time || j.trip != o.trip || j.metric != o.metric {
		return false
	}
	if (j.previous == nil) != (o.previous == nil) || len(j.alternatives) != len(o.alternatives) {
		return false
	}
	if j.previous != nil && !j.previous.Equal(o.previous) {
		return false
	}
	return slices.EqualFunc(j.alternatives, o.alternatives, (*Journey[T]).Equal)
}

func (j *Journey[T]) String() string {
	var b strings.Builder
	for i, p := range j.Parts() {
		if i > 0 {
			b.WriteString(" -> ")
		}
		fmt.Fprintf(&b, "%v@%d[%v]", p.location, p.time, p.link)
	}
	fmt.Fprintf(&b, " %v", j.metric)
	return b.String()
}
