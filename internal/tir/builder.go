package tir

import (
	"fmt"

	"fortio.org/safecast"

	"tirc/internal/ownership"
	"tirc/internal/source"
)

// Builder appends instructions to a Func and allocates its registers and
// labels. A builder is used by one goroutine at a time.
type Builder struct {
	fn  *Func
	err error
}

// NewBuilder starts an empty function.
func NewBuilder(class, name string, span source.Span) *Builder {
	return &Builder{fn: &Func{Class: class, Name: name, Span: span, Self: NoReg}}
}

// Func returns the function under construction.
func (b *Builder) Func() *Func { return b.fn }

// Err reports an allocation overflow, if one happened.
func (b *Builder) Err() error { return b.err }

// Len is the number of emitted instructions.
func (b *Builder) Len() int { return len(b.fn.Instrs) }

// NewReg allocates a fresh register.
func (b *Builder) NewReg() Reg {
	r := b.fn.Regs
	next, err := safecast.Conv[uint32](uint64(r) + 1)
	if err != nil || Reg(r) == NoReg {
		b.fail(fmt.Errorf("%s: register space exhausted", b.fn.QualifiedName()))
		return NoReg
	}
	b.fn.Regs = next
	return Reg(r)
}

// NewLabel allocates a fresh label; Mark places it.
func (b *Builder) NewLabel() Label {
	l := b.fn.Labels
	next, err := safecast.Conv[uint32](uint64(l) + 1)
	if err != nil || Label(l) == NoLabel {
		b.fail(fmt.Errorf("%s: label space exhausted", b.fn.QualifiedName()))
		return NoLabel
	}
	b.fn.Labels = next
	return Label(l)
}

func (b *Builder) fail(err error) {
	if b.err == nil {
		b.err = err
	}
}

// Emit appends in and returns its index.
func (b *Builder) Emit(in Instr) int {
	b.fn.Instrs = append(b.fn.Instrs, in)
	return len(b.fn.Instrs) - 1
}

// Self declares the receiver register.
func (b *Builder) Self(mode ownership.Mode) Reg {
	b.fn.SelfMode = mode
	b.fn.Self = b.NewReg()
	return b.fn.Self
}

// Param declares a named parameter.
func (b *Builder) Param(name string) Reg {
	r := b.NewReg()
	b.fn.Params = append(b.fn.Params, Param{Name: name, Reg: r})
	return r
}

// Const materializes c into a new register.
func (b *Builder) Const(span source.Span, c ConstInstr) Reg {
	dst := b.NewReg()
	b.Emit(Instr{Op: OpConst, Dst: dst, Span: span, Const: c})
	return dst
}

// Move transfers src into a new register.
func (b *Builder) Move(span source.Span, src Reg, local string) Reg {
	dst := b.NewReg()
	b.Emit(Instr{Op: OpMove, Dst: dst, Span: span, Move: MoveInstr{Src: src, Local: local}})
	return dst
}

// FieldRead reads a field into a new register.
func (b *Builder) FieldRead(span source.Span, f FieldInstr) Reg {
	dst := b.NewReg()
	f.Value = NoReg
	b.Emit(Instr{Op: OpFieldRead, Dst: dst, Span: span, Field: f})
	return dst
}

// FieldWrite stores f.Value into the field.
func (b *Builder) FieldWrite(span source.Span, f FieldInstr) {
	b.Emit(Instr{Op: OpFieldWrite, Dst: NoReg, Span: span, Field: f})
}

// Swap stores f.Value and returns a register holding the old value.
func (b *Builder) Swap(span source.Span, f FieldInstr) Reg {
	dst := b.NewReg()
	b.Emit(Instr{Op: OpSwap, Dst: dst, Span: span, Field: f})
	return dst
}

// Call emits a synchronous call with a result register.
func (b *Builder) Call(span source.Span, c CallInstr) Reg {
	dst := b.NewReg()
	b.Emit(Instr{Op: OpCall, Dst: dst, Span: span, Call: c})
	return dst
}

// New constructs an instance into a new register.
func (b *Builder) New(span source.Span, n NewInstr) Reg {
	dst := b.NewReg()
	b.Emit(Instr{Op: OpNew, Dst: dst, Span: span, New: n})
	return dst
}

// TagTest yields a boolean register.
func (b *Builder) TagTest(span source.Span, t TagInstr) Reg {
	dst := b.NewReg()
	b.Emit(Instr{Op: OpTagTest, Dst: dst, Span: span, Tag: t})
	return dst
}

// PayloadRead reads one payload slot.
func (b *Builder) PayloadRead(span source.Span, t TagInstr) Reg {
	dst := b.NewReg()
	b.Emit(Instr{Op: OpPayloadRead, Dst: dst, Span: span, Tag: t})
	return dst
}

// Branch jumps on cond.
func (b *Builder) Branch(span source.Span, cond Reg, then, els Label) {
	b.Emit(Instr{Op: OpBranch, Dst: NoReg, Span: span, Branch: BranchInstr{Cond: cond, Then: then, Else: els}})
}

// Jump emits an unconditional jump.
func (b *Builder) Jump(span source.Span, target Label) {
	b.Emit(Instr{Op: OpJump, Dst: NoReg, Span: span, Jump: JumpInstr{Target: target}})
}

// Mark places label l at the current position.
func (b *Builder) Mark(l Label) {
	b.Emit(Instr{Op: OpLabel, Dst: NoReg, Label: LabelInstr{ID: l}})
}

// Throw raises the value in r.
func (b *Builder) Throw(span source.Span, r Reg) {
	b.Emit(Instr{Op: OpThrow, Dst: NoReg, Span: span, Throw: ThrowInstr{Value: r}})
}

// Drop emits a destruction step.
func (b *Builder) Drop(span source.Span, d DropInstr) {
	b.Emit(Instr{Op: OpDrop, Dst: NoReg, Span: span, Drop: d})
}

// Enqueue emits a mailbox send or the entry marker of an async body.
func (b *Builder) Enqueue(span source.Span, e EnqueueInstr) {
	b.Emit(Instr{Op: OpEnqueue, Dst: NoReg, Span: span, Enqueue: e})
}

// Return leaves the function; r may be NoReg.
func (b *Builder) Return(span source.Span, r Reg) {
	b.Emit(Instr{Op: OpReturn, Dst: NoReg, Span: span, Return: ReturnInstr{Value: r, HasValue: r != NoReg}})
}

// Terminated reports whether the last instruction leaves the current block.
func (b *Builder) Terminated() bool {
	if len(b.fn.Instrs) == 0 {
		return false
	}
	switch b.fn.Instrs[len(b.fn.Instrs)-1].Op {
	case OpReturn, OpThrow, OpJump, OpBranch:
		return true
	default:
		return false
	}
}
