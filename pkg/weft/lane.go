package weft

import "strings"

// Lane is a priority bitset attached to scheduled updates. Multiple pending
// state writes in the same lane coalesce into a single re-render; a write is
// visible to the next render only if its lane is being serviced by that
// render pass.
type Lane uint8

const (
	// LaneNone means no pending work.
	LaneNone Lane = 0

	// LaneBackground is the lowest priority (idle work, prefetching).
	LaneBackground Lane = 1 << 0

	// LaneUserVisible is the default priority (continuous updates the user
	// can see but is not blocked on).
	LaneUserVisible Lane = 1 << 1

	// LaneUserBlocking is the highest priority (discrete input the user is
	// waiting on, e.g. a click).
	LaneUserBlocking Lane = 1 << 2
)

// LaneAll covers every lane. Used when a flush should service all pending work.
const LaneAll = LaneBackground | LaneUserVisible | LaneUserBlocking

// Has returns true if l contains every lane in other.
func (l Lane) Has(other Lane) bool {
	return l&other == other
}

// Intersects returns true if l and other share at least one lane.
func (l Lane) Intersects(other Lane) bool {
	return l&other != 0
}

// Union returns the combination of l and other.
func (l Lane) Union(other Lane) Lane {
	return l | other
}

// Without returns l with every lane in other cleared.
func (l Lane) Without(other Lane) Lane {
	return l &^ other
}

// Priority returns the comparison rank of the highest lane in the set:
// user-blocking(2) > user-visible(1) > background(0). LaneNone ranks -1.
func (l Lane) Priority() int {
	switch {
	case l.Intersects(LaneUserBlocking):
		return 2
	case l.Intersects(LaneUserVisible):
		return 1
	case l.Intersects(LaneBackground):
		return 0
	default:
		return -1
	}
}

// String returns a human-readable lane set, e.g. "user-blocking|background".
func (l Lane) String() string {
	if l == LaneNone {
		return "none"
	}
	var parts []string
	if l.Intersects(LaneUserBlocking) {
		parts = append(parts, "user-blocking")
	}
	if l.Intersects(LaneUserVisible) {
		parts = append(parts, "user-visible")
	}
	if l.Intersects(LaneBackground) {
		parts = append(parts, "background")
	}
	return strings.Join(parts, "|")
}
