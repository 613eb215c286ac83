// Package hir is the checked, move-annotated body tree the lowering core
// consumes. Names are already resolved: every field access, call and
// construction refers to a specific class member, and every ownership
// transfer is marked with Move.
package hir

import (
	"tirc/internal/source"
	"tirc/internal/types"
)

// ExprKind enumerates expression kinds.
type ExprKind uint8

const (
	ExprInvalid ExprKind = iota
	ExprInt
	ExprFloat
	ExprString
	ExprBool
	ExprNil
	// ExprLocal reads a local binding (Name); Move transfers ownership.
	ExprLocal
	// ExprSelf uses the receiver as a whole; Move consumes it.
	ExprSelf
	// ExprField reads self.Name; Move moves the field out.
	ExprField
	// ExprSwap stores Value into self.Name and yields the previous value.
	ExprSwap
	// ExprCall invokes Class.Method with optional Receiver.
	ExprCall
	// ExprNew constructs Class (or Class.Variant) from positional Args.
	ExprNew
)

func (k ExprKind) String() string {
	switch k {
	case ExprInt:
		return "int"
	case ExprFloat:
		return "float"
	case ExprString:
		return "string"
	case ExprBool:
		return "bool"
	case ExprNil:
		return "nil"
	case ExprLocal:
		return "local"
	case ExprSelf:
		return "self"
	case ExprField:
		return "field"
	case ExprSwap:
		return "swap"
	case ExprCall:
		return "call"
	case ExprNew:
		return "new"
	default:
		return "invalid"
	}
}

// Expr is one checked expression node.
type Expr struct {
	Kind ExprKind
	Span source.Span

	Int   int64
	Float float64
	Str   string
	Bool  bool

	Name string
	Move bool

	Value    *Expr
	Receiver *Expr
	Args     []*Expr

	Class    string
	Method   string
	Variant  string
	TypeArgs []types.TypeID

	// Try propagates an error raised by the call to the caller.
	Try bool
}

// IsConst reports whether the expression is a literal.
func (e *Expr) IsConst() bool {
	if e == nil {
		return false
	}
	switch e.Kind {
	case ExprInt, ExprFloat, ExprString, ExprBool, ExprNil:
		return true
	default:
		return false
	}
}
