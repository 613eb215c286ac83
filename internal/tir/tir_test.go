package tir

import (
	"bytes"
	"strings"
	"testing"

	"tirc/internal/ownership"
	"tirc/internal/source"
	"tirc/internal/types"
)

func TestBuilderAndDump(t *testing.T) {
	in := types.NewInterner()
	b := NewBuilder("Person", "name", source.Span{})
	self := b.Self(ownership.Ref)
	r := b.FieldRead(source.Span{}, FieldInstr{Object: self, Class: "Person", Field: "name", Mode: ownership.Ref, Type: in.Builtins().String})
	b.Return(source.Span{}, r)
	fn := b.Func()
	if err := Validate(fn); err != nil {
		t.Fatalf("validate: %v", err)
	}
	var buf bytes.Buffer
	if err := DumpFunc(&buf, fn, in); err != nil {
		t.Fatalf("dump: %v", err)
	}
	out := buf.String()
	for _, want := range []string{"fn Person.name(self: ref r0)", "r1 = field.read r0.name #0 [ref] : String", "return r1"} {
		if !strings.Contains(out, want) {
			t.Fatalf("dump missing %q:\n%s", want, out)
		}
	}
}

func TestValidateCatchesBrokenTargets(t *testing.T) {
	b := NewBuilder("", "f", source.Span{})
	l := b.NewLabel()
	b.Jump(source.Span{}, l)
	b.Jump(source.Span{}, Label(7))
	if err := Validate(b.Func()); err == nil {
		t.Fatalf("expected undefined label errors")
	}
	b.Mark(l)
	b.Mark(l)
	b.Return(source.Span{}, NoReg)
	err := Validate(b.Func())
	if err == nil || !strings.Contains(err.Error(), "defined at") {
		t.Fatalf("expected duplicate label error, got %v", err)
	}
}

func TestValidateRequiresTerminator(t *testing.T) {
	b := NewBuilder("", "f", source.Span{})
	b.Const(source.Span{}, ConstInstr{Kind: ConstNil})
	if err := Validate(b.Func()); err == nil || !strings.Contains(err.Error(), "falls off") {
		t.Fatalf("expected fall-through error, got %v", err)
	}
}

func TestFormatDrop(t *testing.T) {
	got := FormatInstr(nil, &Instr{Op: OpDrop, Dst: NoReg, Drop: DropInstr{Kind: DropField, Value: 0, Variant: "Some", Field: "1", Index: 1, Exit: ExitReturn}})
	if got != "drop.field r0.Some.1 #1 : ? [return]" {
		t.Fatalf("got %q", got)
	}
}
