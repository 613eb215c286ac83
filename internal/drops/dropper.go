package drops

import (
	"tirc/internal/classes"
	"tirc/internal/moves"
	"tirc/internal/ownership"
	"tirc/internal/tir"
)

// Dropper synthesizes the `$dropper` of class: the teardown method runs
// first, then fields are dropped in reverse order and storage is released.
// Enum droppers dispatch on the tag and drop only the payload of the
// variant that is present. Inline classes have no dropper.
func (s *Synthesizer) Dropper(class *classes.ClassDef) *tir.Func {
	if class.Inline {
		return nil
	}
	span := class.Span
	b := tir.NewBuilder(class.Name, tir.DropperName, span)
	self := b.Self(ownership.Owned)

	if dtor, ok := class.Destructor(); ok {
		b.Call(span, tir.CallInstr{
			Receiver: self,
			Class:    class.Name,
			Method:   dtor.Name,
			OnError:  tir.NoLabel,
		})
	}

	if class.IsEnum() {
		s.variantDispatch(b, self, class)
	} else {
		for _, f := range Remaining(class, moves.MoveState{}) {
			b.Drop(span, tir.DropInstr{
				Kind:    tir.DropField,
				Value:   self,
				Class:   class.Name,
				Field:   f.Name,
				Index:   f.Index,
				Type:    f.Type,
				Trivial: s.Trivial(f.Type),
			})
		}
	}
	s.free(b, self, class, tir.ExitNormal, span)
	b.Return(span, tir.NoReg)
	return b.Func()
}

func (s *Synthesizer) variantDispatch(b *tir.Builder, self tir.Reg, class *classes.ClassDef) {
	done := tir.NoLabel
	for i := range class.Variants {
		v := &class.Variants[i]
		if len(v.Payload) == 0 {
			continue
		}
		if done == tir.NoLabel {
			done = b.NewLabel()
		}
		body, next := b.NewLabel(), b.NewLabel()
		cond := b.TagTest(v.Span, tir.TagInstr{Value: self, Class: class.Name, Variant: v.Name, Tag: v.Tag})
		b.Branch(v.Span, cond, body, next)
		b.Mark(body)
		for _, f := range VariantRemaining(v, nil) {
			b.Drop(v.Span, tir.DropInstr{
				Kind:    tir.DropField,
				Value:   self,
				Class:   class.Name,
				Variant: v.Name,
				Field:   f.Name,
				Index:   f.Index,
				Type:    f.Type,
				Trivial: s.Trivial(f.Type),
			})
		}
		b.Jump(v.Span, done)
		b.Mark(next)
	}
	if done != tir.NoLabel {
		b.Mark(done)
	}
}
