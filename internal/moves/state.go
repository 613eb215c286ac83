// Package moves tracks which fields of a method's receiver have been moved
// out while its body is lowered.
package moves

import "slices"

// State is the coarse state of a receiver.
type State uint8

const (
	Intact State = iota
	// PartiallyMoved is absorbing: a body never returns to Intact.
	PartiallyMoved
	Consumed
)

func (s State) String() string {
	switch s {
	case Intact:
		return "intact"
	case PartiallyMoved:
		return "partially moved"
	case Consumed:
		return "consumed"
	default:
		return "?"
	}
}

// MoveState is the set of moved field names plus the consumed flag.
// Moved keeps the order in which fields were moved.
type MoveState struct {
	Moved    []string
	Consumed bool
}

// State classifies the move state.
func (s MoveState) State() State {
	switch {
	case s.Consumed:
		return Consumed
	case len(s.Moved) > 0:
		return PartiallyMoved
	default:
		return Intact
	}
}

// Has reports whether field was moved out.
func (s MoveState) Has(field string) bool {
	return slices.Contains(s.Moved, field)
}

// Clone returns an independent copy.
func (s MoveState) Clone() MoveState {
	return MoveState{Moved: slices.Clone(s.Moved), Consumed: s.Consumed}
}

func (s *MoveState) add(field string) {
	if !s.Has(field) {
		s.Moved = append(s.Moved, field)
	}
}

// Join merges the states reached by two control-flow paths: a field moved
// on either path counts as moved, and the receiver is consumed if either
// path consumed it.
func Join(a, b MoveState) MoveState {
	out := a.Clone()
	for _, f := range b.Moved {
		out.add(f)
	}
	out.Consumed = a.Consumed || b.Consumed
	return out
}

// Diff lists the fields moved in full but not in part, in full's order.
func Diff(full, part MoveState) []string {
	var out []string
	for _, f := range full.Moved {
		if !part.Has(f) {
			out = append(out, f)
		}
	}
	return out
}
