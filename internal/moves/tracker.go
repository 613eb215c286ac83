package moves

import (
	"tirc/internal/classes"
	"tirc/internal/diag"
	"tirc/internal/ownership"
	"tirc/internal/source"
)

// Tracker is the per-body move state machine of one receiver. It is owned
// by a single lowering and never shared.
type Tracker struct {
	class  *classes.ClassDef
	method *classes.MethodDef
	state  MoveState
}

// New starts tracking the receiver of method, an instance of class.
func New(class *classes.ClassDef, method *classes.MethodDef) *Tracker {
	return &Tracker{class: class, method: method}
}

// State returns the coarse receiver state.
func (t *Tracker) State() State { return t.state.State() }

// Snapshot copies the current move state.
func (t *Tracker) Snapshot() MoveState { return t.state.Clone() }

// Restore merges s into the current state, typically the Join of branch
// states. Fields already moved stay moved.
func (t *Tracker) Restore(s MoveState) {
	t.state = Join(t.state, s)
}

// Reset replaces the state unconditionally. Used when lowering re-enters a
// branch arm from the state at the branch point.
func (t *Tracker) Reset(s MoveState) { t.state = s.Clone() }

// Mode returns the exposure mode of field inside the tracked method.
func (t *Tracker) Mode(field *classes.FieldDef) ownership.Mode {
	return ownership.ModeFor(t.method, field)
}

func (t *Tracker) field(name string, span source.Span) (*classes.FieldDef, error) {
	if t.method.IsStatic() {
		return nil, diag.Errorf(diag.LowerNoReceiver, span, "static method %q has no receiver", t.method.Name)
	}
	f, ok := t.class.Field(name)
	if !ok {
		return nil, diag.Errorf(diag.LowerUnknownField, span, "class %q has no field %q", t.class.Name, name)
	}
	return f, nil
}

func (t *Tracker) useAfterMove(span source.Span, what string) error {
	return diag.Errorf(diag.MoveUseAfterMove, span, "%s is used after self was moved", what)
}

func (t *Tracker) blocked() bool {
	return t.method.HasCustomDestructor && t.method.Receiver == classes.ReceiverOwning
}

// MoveField moves field name out of self. Fields of an inline receiver are
// copied on move and nothing is recorded, so moving one twice is not
// MoveAlreadyMoved.
func (t *Tracker) MoveField(name string, span source.Span) error {
	f, err := t.field(name, span)
	if err != nil {
		return err
	}
	if t.state.Consumed {
		return t.useAfterMove(span, "field "+name)
	}
	if t.blocked() {
		return diag.Errorf(diag.MoveBlockedByDestructor, span,
			"cannot move field %q out of %q: the class defines a teardown method", name, t.class.Name)
	}
	if mode := t.Mode(f); mode != ownership.Owned {
		return diag.Errorf(diag.MoveInvalid, span,
			"cannot move field %q: it is exposed as `%s` in method %q", name, mode, t.method.Name)
	}
	if t.state.Has(f.Name) {
		return diag.Errorf(diag.MoveAlreadyMoved, span, "field %q was already moved", name)
	}
	if t.class.Inline {
		return nil
	}
	t.state.add(f.Name)
	return nil
}

// MoveReceiver moves self as a whole. An inline receiver is copied and
// stays usable.
func (t *Tracker) MoveReceiver(span source.Span) error {
	if t.method.IsStatic() {
		return diag.Errorf(diag.LowerNoReceiver, span, "static method %q has no receiver", t.method.Name)
	}
	switch t.state.State() {
	case Consumed:
		return t.useAfterMove(span, "self")
	case PartiallyMoved:
		return diag.Errorf(diag.MoveUseAfterMove, span,
			"self cannot be moved: field %q was moved out of it", t.state.Moved[0])
	}
	if t.blocked() {
		return diag.Errorf(diag.MoveBlockedByDestructor, span,
			"cannot move self out of %q: the class defines a teardown method", t.class.Name)
	}
	if t.method.Receiver != classes.ReceiverOwning {
		return diag.Errorf(diag.MoveInvalid, span,
			"self can only be moved by a `fn move` method, %q is `%s`", t.method.Name, t.method.Receiver)
	}
	if t.class.Inline {
		return nil
	}
	t.state.Consumed = true
	return nil
}

// ReadField checks a read of a single field; fields that were not moved
// stay readable after a partial move.
func (t *Tracker) ReadField(name string, span source.Span) error {
	f, err := t.field(name, span)
	if err != nil {
		return err
	}
	if t.state.Consumed {
		return t.useAfterMove(span, "field "+name)
	}
	if t.state.Has(f.Name) {
		return diag.Errorf(diag.MoveUseAfterMove, span, "field %q is used after being moved", name)
	}
	return nil
}

// UseReceiver checks a use of self as an aggregate: passing it on,
// returning it or borrowing all of it.
func (t *Tracker) UseReceiver(span source.Span) error {
	if t.method.IsStatic() {
		return diag.Errorf(diag.LowerNoReceiver, span, "static method %q has no receiver", t.method.Name)
	}
	switch t.state.State() {
	case Consumed:
		return t.useAfterMove(span, "self")
	case PartiallyMoved:
		return diag.Errorf(diag.MoveUseAfterMove, span,
			"self is partially moved (field %q), only its remaining fields can be used", t.state.Moved[0])
	}
	return nil
}

// SwapField checks `swap(field, value)`: the slot keeps a value, so the
// move state is unchanged.
func (t *Tracker) SwapField(name string, span source.Span) error {
	return t.store(name, span, diag.MoveInvalidSwap, "swap")
}

// WriteField checks an assignment to a field.
func (t *Tracker) WriteField(name string, span source.Span) error {
	return t.store(name, span, diag.MoveInvalidAssign, "assign to")
}

func (t *Tracker) store(name string, span source.Span, code diag.Code, verb string) error {
	f, err := t.field(name, span)
	if err != nil {
		return err
	}
	if t.state.Consumed || t.state.Has(f.Name) {
		return diag.Errorf(diag.MoveUseAfterMove, span, "cannot %s field %q after it was moved", verb, name)
	}
	if mode := t.Mode(f); !mode.CanMutate() {
		return diag.Errorf(code, span,
			"cannot %s field %q: it is exposed as `%s` in method %q", verb, name, mode, t.method.Name)
	}
	return nil
}
