// Package ownership resolves the ownership mode under which a method sees
// self and the fields of self.
package ownership

import (
	"tirc/internal/classes"
	"tirc/internal/types"
)

// Mode is how a value is exposed to the body that accesses it.
type Mode uint8

const (
	// None: static methods have no receiver.
	None Mode = iota
	Ref
	Mut
	// Owned exposes the bare declared type; the body may move it.
	Owned
)

func (m Mode) String() string {
	switch m {
	case None:
		return "none"
	case Ref:
		return "ref"
	case Mut:
		return "mut"
	case Owned:
		return "owned"
	default:
		return "?"
	}
}

// CanMutate reports whether the exposed value may be written or swapped.
func (m Mode) CanMutate() bool { return m == Mut || m == Owned }

// receiverModes is the only place receiver modes map to ownership modes.
var receiverModes = [...]Mode{
	classes.ReceiverImmutable:    Ref,
	classes.ReceiverMutable:      Mut,
	classes.ReceiverOwning:       Owned,
	classes.ReceiverStatic:       None,
	classes.ReceiverAsync:        Ref,
	classes.ReceiverAsyncMutable: Mut,
}

// SelfMode is the mode of self itself inside a method with receiver r.
func SelfMode(r classes.ReceiverMode) Mode {
	if int(r) >= len(receiverModes) {
		return None
	}
	return receiverModes[r]
}

// ModeFor resolves how field is exposed inside method. Fields declared
// `ref T` are exposed as Ref under every receiver mode.
//
// Must not be called for static methods; it answers None for them.
func ModeFor(method *classes.MethodDef, field *classes.FieldDef) Mode {
	mode := SelfMode(method.Receiver)
	if mode == None {
		return None
	}
	if field.Qualifier == classes.QualRefOnly {
		return Ref
	}
	return mode
}

// Exposed returns the type a body observes for a value of declared type
// under mode: `ref T`, `mut T`, or T itself when owned.
func Exposed(in *types.Interner, mode Mode, declared types.TypeID) types.TypeID {
	switch mode {
	case Ref:
		return in.Ref(declared)
	case Mut:
		return in.Mut(declared)
	default:
		return declared
	}
}
