// Package drops synthesizes destruction sequences from the final move
// state of a receiver: remaining fields are dropped in reverse declaration
// order and moved ones are never touched.
package drops

import (
	"slices"

	"tirc/internal/classes"
	"tirc/internal/moves"
	"tirc/internal/source"
	"tirc/internal/tir"
	"tirc/internal/types"
)

// Synthesizer emits drop instructions. It only reads the class table.
type Synthesizer struct {
	Types   *types.Interner
	Classes *classes.Table
}

// New creates a synthesizer over a sealed class table.
func New(typesIn *types.Interner, table *classes.Table) *Synthesizer {
	return &Synthesizer{Types: typesIn, Classes: table}
}

// Remaining lists the fields of class that still need dropping given
// state, in reverse declaration order. A consumed receiver has none.
func Remaining(class *classes.ClassDef, state moves.MoveState) []classes.FieldDef {
	if state.Consumed {
		return nil
	}
	out := make([]classes.FieldDef, 0, len(class.Fields))
	for i := len(class.Fields) - 1; i >= 0; i-- {
		if !state.Has(class.Fields[i].Name) {
			out = append(out, class.Fields[i])
		}
	}
	return out
}

// VariantRemaining lists the payload slots of variant not in moved, in
// reverse order. Payloads of other variants never exist at runtime and are
// not considered.
func VariantRemaining(variant *classes.Variant, moved []string) []classes.FieldDef {
	out := make([]classes.FieldDef, 0, len(variant.Payload))
	for i := len(variant.Payload) - 1; i >= 0; i-- {
		if !slices.Contains(moved, variant.Payload[i].Name) {
			out = append(out, variant.Payload[i])
		}
	}
	return out
}

// Trivial reports whether dropping a value of type t has no effect.
// Primitives and inline class instances are plain bits.
func (s *Synthesizer) Trivial(t types.TypeID) bool {
	tt, ok := s.Types.Lookup(t)
	if !ok {
		return false
	}
	if tt.Kind.IsPrimitive() {
		return true
	}
	if tt.Kind != types.KindClass || s.Classes == nil {
		return false
	}
	def, err := s.Classes.Lookup(tt.Name)
	return err == nil && def.Inline
}

// Emit writes the cleanup of receiver self of class for one exit edge.
// Every exit edge of a body goes through this routine:
//   - intact: a single receiver drop (teardown method, then fields, then storage);
//   - partially moved: the remaining fields in reverse order, then storage;
//   - consumed: nothing.
func (s *Synthesizer) Emit(b *tir.Builder, self tir.Reg, class *classes.ClassDef, state moves.MoveState, exit tir.Exit, span source.Span) {
	switch state.State() {
	case moves.Consumed:
		return
	case moves.Intact:
		b.Drop(span, tir.DropInstr{
			Kind:    tir.DropReceiver,
			Value:   self,
			Class:   class.Name,
			Exit:    exit,
			Trivial: class.Inline,
		})
		return
	}
	for _, f := range Remaining(class, state) {
		b.Drop(span, tir.DropInstr{
			Kind:    tir.DropField,
			Value:   self,
			Class:   class.Name,
			Field:   f.Name,
			Index:   f.Index,
			Type:    f.Type,
			Exit:    exit,
			Trivial: s.Trivial(f.Type),
		})
	}
	s.free(b, self, class, exit, span)
}

// EmitFields drops the named fields of self in reverse declaration order.
// Branch arms use it to catch up with fields moved on a sibling arm.
func (s *Synthesizer) EmitFields(b *tir.Builder, self tir.Reg, class *classes.ClassDef, names []string, exit tir.Exit, span source.Span) {
	for i := len(class.Fields) - 1; i >= 0; i-- {
		f := &class.Fields[i]
		if !slices.Contains(names, f.Name) {
			continue
		}
		b.Drop(span, tir.DropInstr{
			Kind:    tir.DropField,
			Value:   self,
			Class:   class.Name,
			Field:   f.Name,
			Index:   f.Index,
			Type:    f.Type,
			Exit:    exit,
			Trivial: s.Trivial(f.Type),
		})
	}
}

// EmitVariant drops what is left of an enum value known to be variant
// after the slots in moved were taken out of it, then frees it.
func (s *Synthesizer) EmitVariant(b *tir.Builder, value tir.Reg, class *classes.ClassDef, variant *classes.Variant, moved []string, exit tir.Exit, span source.Span) {
	for _, f := range VariantRemaining(variant, moved) {
		b.Drop(span, tir.DropInstr{
			Kind:    tir.DropField,
			Value:   value,
			Class:   class.Name,
			Variant: variant.Name,
			Field:   f.Name,
			Index:   f.Index,
			Type:    f.Type,
			Exit:    exit,
			Trivial: s.Trivial(f.Type),
		})
	}
	s.free(b, value, class, exit, span)
}

// EmitValue drops the value of an owned local or temporary.
func (s *Synthesizer) EmitValue(b *tir.Builder, value tir.Reg, t types.TypeID, local string, exit tir.Exit, span source.Span) {
	b.Drop(span, tir.DropInstr{
		Kind:    tir.DropValue,
		Value:   value,
		Type:    t,
		Local:   local,
		Exit:    exit,
		Trivial: s.Trivial(t),
	})
}

func (s *Synthesizer) free(b *tir.Builder, self tir.Reg, class *classes.ClassDef, exit tir.Exit, span source.Span) {
	b.Drop(span, tir.DropInstr{
		Kind:    tir.DropFree,
		Value:   self,
		Class:   class.Name,
		Exit:    exit,
		Trivial: class.Inline,
	})
}
