package tir

import (
	"tirc/internal/ownership"
	"tirc/internal/source"
)

// DropperName is the method name of synthesized per-class droppers.
const DropperName = "$dropper"

// Param is a named incoming value.
type Param struct {
	Name string
	Reg  Reg
}

// Func is the lowered form of one method (or synthesized dropper).
type Func struct {
	Class  string
	Name   string
	Span   source.Span
	Async  bool
	Static bool
	// SelfMode is how the body sees its receiver; None for static methods.
	SelfMode ownership.Mode
	Self     Reg
	Params   []Param

	Instrs []Instr
	Regs   uint32
	Labels uint32
}

// QualifiedName renders Class.Name.
func (f *Func) QualifiedName() string {
	if f.Class == "" {
		return f.Name
	}
	return f.Class + "." + f.Name
}

// Count reports how many instructions have op.
func (f *Func) Count(op Op) int {
	n := 0
	for i := range f.Instrs {
		if f.Instrs[i].Op == op {
			n++
		}
	}
	return n
}

// Drops returns every drop instruction in emission order.
func (f *Func) Drops() []DropInstr {
	var out []DropInstr
	for i := range f.Instrs {
		if f.Instrs[i].Op == OpDrop {
			out = append(out, f.Instrs[i].Drop)
		}
	}
	return out
}

// Module groups the functions produced for one compilation unit.
type Module struct {
	Name  string
	Funcs []*Func
}

// Func finds a function by qualified name.
func (m *Module) Func(qualified string) *Func {
	for _, f := range m.Funcs {
		if f.QualifiedName() == qualified {
			return f
		}
	}
	return nil
}
