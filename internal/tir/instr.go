// Package tir defines the ownership-tagged instruction sequence a checked
// method body is lowered into. A Func is handed to the backend as a whole
// and is never mutated after emission.
package tir

import (
	"tirc/internal/ownership"
	"tirc/internal/source"
	"tirc/internal/types"
)

// Reg is a virtual register.
type Reg uint32

// NoReg marks an absent operand or destination.
const NoReg Reg = ^Reg(0)

// Label names a position in the instruction list.
type Label uint32

// NoLabel marks an absent jump target.
const NoLabel Label = ^Label(0)

// Op enumerates instruction kinds.
type Op uint8

const (
	// OpConst materializes a constant into Dst.
	OpConst Op = iota
	// OpMove transfers a register (or a named local) into Dst.
	OpMove
	// OpFieldRead reads a field of an object under an ownership mode.
	OpFieldRead
	// OpFieldWrite stores into a field.
	OpFieldWrite
	// OpSwap stores a new value into a field and yields the old one.
	OpSwap
	// OpCall invokes a method synchronously.
	OpCall
	// OpNew constructs a class instance or enum variant.
	OpNew
	// OpTagTest compares the tag of an enum value.
	OpTagTest
	// OpPayloadRead reads one payload slot of an enum value.
	OpPayloadRead
	// OpBranch is a conditional jump.
	OpBranch
	// OpJump is an unconditional jump.
	OpJump
	// OpLabel defines a jump target.
	OpLabel
	// OpThrow raises or propagates the error value in a register.
	OpThrow
	// OpDrop runs destruction for a value, a field, a receiver, or frees storage.
	OpDrop
	// OpEnqueue sends a message to a process mailbox.
	OpEnqueue
	// OpReturn leaves the function.
	OpReturn
)

var opNames = [...]string{
	OpConst:       "const",
	OpMove:        "move",
	OpFieldRead:   "field.read",
	OpFieldWrite:  "field.write",
	OpSwap:        "swap",
	OpCall:        "call",
	OpNew:         "new",
	OpTagTest:     "tag.test",
	OpPayloadRead: "payload.read",
	OpBranch:      "branch",
	OpJump:        "jump",
	OpLabel:       "label",
	OpThrow:       "throw",
	OpDrop:        "drop",
	OpEnqueue:     "enqueue",
	OpReturn:      "return",
}

func (o Op) String() string {
	if int(o) < len(opNames) {
		return opNames[o]
	}
	return "op?"
}

// Instr is one TIR instruction: a dispatch tag, a destination, a source
// location and the payload of its kind.
type Instr struct {
	Op   Op
	Dst  Reg
	Span source.Span

	Const   ConstInstr   `json:",omitzero"`
	Move    MoveInstr    `json:",omitzero"`
	Field   FieldInstr   `json:",omitzero"`
	Call    CallInstr    `json:",omitzero"`
	New     NewInstr     `json:",omitzero"`
	Tag     TagInstr     `json:",omitzero"`
	Branch  BranchInstr  `json:",omitzero"`
	Jump    JumpInstr    `json:",omitzero"`
	Label   LabelInstr   `json:",omitzero"`
	Throw   ThrowInstr   `json:",omitzero"`
	Drop    DropInstr    `json:",omitzero"`
	Enqueue EnqueueInstr `json:",omitzero"`
	Return  ReturnInstr  `json:",omitzero"`
}

// ConstKind distinguishes constant literals.
type ConstKind uint8

const (
	ConstNil ConstKind = iota
	ConstInt
	ConstFloat
	ConstString
	ConstBool
)

// ConstInstr carries a literal.
type ConstInstr struct {
	Kind  ConstKind
	Int   int64
	Float float64
	Str   string
	Bool  bool
	Type  types.TypeID
}

// MoveInstr transfers Src into Dst. Local names the source binding, if any.
type MoveInstr struct {
	Src   Reg
	Local string
}

// FieldInstr addresses field Index of Object, an instance of Class.
type FieldInstr struct {
	Object Reg
	Class  string
	Field  string
	Index  int
	Type   types.TypeID
	// Mode is the exposure the enclosing method resolved for the field.
	Mode ownership.Mode
	// Move marks a read that transfers ownership out of the slot.
	Move bool
	// Value is the stored register of writes and swaps.
	Value Reg
	// DropOld destroys the previous value of a write.
	DropOld bool
}

// CallInstr calls Class.Method. Receiver is NoReg for static methods.
type CallInstr struct {
	Receiver Reg
	Class    string
	Method   string
	Args     []Reg
	// OnError is the target for a thrown error when the call is a `try`.
	OnError Label
}

// NewInstr constructs Class (or one of its variants) from positional Args.
type NewInstr struct {
	Class   string
	Type    types.TypeID
	Variant string
	Tag     int
	Args    []Reg
	Inline  bool
}

// TagInstr tests the variant tag of Value or reads payload slot Index of it.
type TagInstr struct {
	Value   Reg
	Class   string
	Variant string
	Tag     int
	Index   int
	Move    bool
}

// BranchInstr jumps to Then when Cond holds, Else otherwise.
type BranchInstr struct {
	Cond Reg
	Then Label
	Else Label
}

// JumpInstr jumps to Target.
type JumpInstr struct {
	Target Label
}

// LabelInstr defines ID at this position.
type LabelInstr struct {
	ID Label
}

// ThrowInstr raises the error held in Value.
type ThrowInstr struct {
	Value Reg
}

// DropKind selects what a drop destroys.
type DropKind uint8

const (
	// DropValue destroys the value held in a register.
	DropValue DropKind = iota
	// DropField destroys one field (or payload slot) of Value.
	DropField
	// DropReceiver destroys a whole instance: custom teardown, fields, storage.
	DropReceiver
	// DropFree releases instance storage without touching its fields.
	DropFree
)

func (k DropKind) String() string {
	switch k {
	case DropValue:
		return "value"
	case DropField:
		return "field"
	case DropReceiver:
		return "receiver"
	case DropFree:
		return "free"
	default:
		return "?"
	}
}

// Exit names the control-flow edge a cleanup sequence belongs to.
type Exit uint8

const (
	ExitNormal Exit = iota
	ExitReturn
	ExitError
	// ExitBranch marks reconciliation drops at the end of a branch arm.
	ExitBranch
)

func (e Exit) String() string {
	switch e {
	case ExitNormal:
		return "normal"
	case ExitReturn:
		return "return"
	case ExitError:
		return "error"
	case ExitBranch:
		return "branch"
	default:
		return "?"
	}
}

// DropInstr destroys Value (or its field Index for DropField).
type DropInstr struct {
	Kind    DropKind
	Value   Reg
	Class   string
	Variant string
	Field   string
	Index   int
	Type    types.TypeID
	Exit    Exit
	// Trivial drops have nothing to destroy (primitives, inline values).
	Trivial bool
	// Local names the binding dropped by a DropValue, if any.
	Local string
}

// EnqueueInstr sends Method with Args to the mailbox of Process. The entry
// marker of an async method body has Marker set and no arguments.
type EnqueueInstr struct {
	Process Reg
	Class   string
	Method  string
	Args    []Reg
	Marker  bool
}

// ReturnInstr leaves the function, optionally with Value.
type ReturnInstr struct {
	Value    Reg
	HasValue bool
}
