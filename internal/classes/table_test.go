package classes

import (
	"errors"
	"testing"

	"tirc/internal/diag"
	"tirc/internal/source"
	"tirc/internal/types"
)

func sp(start, end uint32) source.Span {
	return source.Span{File: 1, Start: start, End: end}
}

func pointClass(in *types.Interner) *ClassDef {
	b := in.Builtins()
	return &ClassDef{
		Name: "Point",
		Kind: KindRegular,
		Fields: []FieldDef{
			{Name: "x", Type: b.Int, Span: sp(10, 11)},
			{Name: "y", Type: b.Int, Span: sp(12, 13)},
		},
		Methods: []*MethodDef{
			{Name: "len", Receiver: ReceiverImmutable, Span: sp(20, 23)},
		},
		Span: sp(0, 5),
	}
}

func hasCode(err error, code diag.Code) bool {
	for _, e := range diag.Flatten(err) {
		if e.Code == code {
			return true
		}
	}
	return false
}

func TestDefineAndLookup(t *testing.T) {
	in := types.NewInterner()
	tab := NewTable()
	if err := tab.Define(pointClass(in)); err != nil {
		t.Fatalf("define: %v", err)
	}
	def, err := tab.Lookup("Point")
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if def.Fields[1].Index != 1 || def.Fields[1].Name != "y" {
		t.Fatalf("unexpected field layout: %+v", def.Fields)
	}
	m, ok := def.Method("len")
	if !ok || m.Class != "Point" {
		t.Fatalf("method not indexed: %+v", m)
	}
	if _, err := tab.Lookup("Missing"); diag.CodeOf(err) != diag.DeclUnknownClass {
		t.Fatalf("expected UnknownClass, got %v", err)
	}
}

func TestDefineDuplicateClass(t *testing.T) {
	in := types.NewInterner()
	tab := NewTable()
	if err := tab.Define(pointClass(in)); err != nil {
		t.Fatalf("define: %v", err)
	}
	err := tab.Define(pointClass(in))
	if !hasCode(err, diag.DeclDuplicateClass) {
		t.Fatalf("expected DuplicateClass, got %v", err)
	}
	if tab.Len() != 1 {
		t.Fatalf("rejected class was registered")
	}
}

func TestDefineNormalizesNames(t *testing.T) {
	tab := NewTable()
	// decomposed form: "e" followed by a combining acute accent
	if err := tab.Define(&ClassDef{Name: "Cafe\u0301"}); err != nil {
		t.Fatalf("define: %v", err)
	}
	if _, err := tab.Lookup("Caf\u00e9"); err != nil {
		t.Fatalf("precomposed lookup failed: %v", err)
	}
	if err := tab.Define(&ClassDef{Name: "Caf\u00e9"}); !hasCode(err, diag.DeclDuplicateClass) {
		t.Fatalf("expected DuplicateClass for equivalent name, got %v", err)
	}
}

func TestDefineCollectsShapeErrors(t *testing.T) {
	in := types.NewInterner()
	b := in.Builtins()
	tab := NewTable()
	def := &ClassDef{
		Name:   "Bad",
		Kind:   KindEnum,
		Fields: []FieldDef{{Name: "a", Type: b.Int}},
		Methods: []*MethodDef{
			{Name: "f", Receiver: ReceiverImmutable},
			{Name: "f", Receiver: ReceiverMutable},
			{Name: "drop", Receiver: ReceiverOwning, Destructor: true},
		},
	}
	err := tab.Define(def)
	var list diag.ErrorList
	if !errors.As(err, &list) {
		t.Fatalf("expected an ErrorList, got %T", err)
	}
	for _, code := range []diag.Code{diag.DeclEnumWithFields, diag.DeclDuplicateMember, diag.DeclInvalidDestructor} {
		if !hasCode(err, code) {
			t.Errorf("missing %s in %v", code.ID(), err)
		}
	}
	if tab.Len() != 0 {
		t.Fatalf("rejected class was registered")
	}
}

func TestVariantsAreTagged(t *testing.T) {
	in := types.NewInterner()
	b := in.Builtins()
	tab := NewTable()
	def := &ClassDef{
		Name: "Option",
		Kind: KindEnum,
		Variants: []Variant{
			{Name: "Some", Payload: []FieldDef{{Type: b.Int}, {Type: b.String}}},
			{Name: "None"},
		},
	}
	if err := tab.Define(def); err != nil {
		t.Fatalf("define: %v", err)
	}
	v, ok := def.Variant("None")
	if !ok || v.Tag != 1 {
		t.Fatalf("unexpected variant: %+v", v)
	}
	some, _ := def.Variant("Some")
	if some.Payload[1].Name != "1" || some.Payload[1].Index != 1 {
		t.Fatalf("payload not numbered: %+v", some.Payload)
	}

	regular := &ClassDef{Name: "R", Variants: []Variant{{Name: "A"}}}
	if err := tab.Define(regular); !hasCode(err, diag.DeclVariantsOnNonEnum) {
		t.Fatalf("expected VariantsOnNonEnum, got %v", err)
	}
}

func TestReopenAddsMethods(t *testing.T) {
	in := types.NewInterner()
	tab := NewTable()
	_ = tab.Define(pointClass(in))
	err := tab.Reopen("Point", Reopening{Methods: []*MethodDef{{Name: "scale", Receiver: ReceiverMutable}}})
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	def, _ := tab.Lookup("Point")
	if m, ok := def.Method("scale"); !ok || m.Class != "Point" {
		t.Fatalf("reopened method not callable")
	}
	if len(def.Methods) != 2 {
		t.Fatalf("expected 2 methods, got %d", len(def.Methods))
	}
}

func TestReopenIsAtomic(t *testing.T) {
	in := types.NewInterner()
	tab := NewTable()
	_ = tab.Define(pointClass(in))
	def, _ := tab.Lookup("Point")

	cases := []struct {
		name string
		impl Reopening
		code diag.Code
	}{
		{
			name: "collision",
			impl: Reopening{Methods: []*MethodDef{{Name: "fresh"}, {Name: "len"}}},
			code: diag.DeclDuplicateMember,
		},
		{
			name: "field",
			impl: Reopening{
				Methods: []*MethodDef{{Name: "fresh"}},
				Fields:  []FieldDef{{Name: "z"}},
			},
			code: diag.DeclFieldOrOverride,
		},
		{
			name: "override",
			impl: Reopening{Methods: []*MethodDef{{Name: "fresh"}, {Name: "len", Override: true}}},
			code: diag.DeclFieldOrOverride,
		},
		{
			name: "twice in one block",
			impl: Reopening{Methods: []*MethodDef{{Name: "fresh"}, {Name: "fresh"}}},
			code: diag.DeclDuplicateMember,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tab.Reopen("Point", tc.impl)
			if !hasCode(err, tc.code) {
				t.Fatalf("expected %s, got %v", tc.code.ID(), err)
			}
			if len(def.Methods) != 1 || len(def.Fields) != 2 {
				t.Fatalf("class mutated by failed reopening: %d methods, %d fields", len(def.Methods), len(def.Fields))
			}
			if _, ok := def.Method("fresh"); ok {
				t.Fatalf("method from failed reopening is visible")
			}
		})
	}
}

func TestReopenUnknownClass(t *testing.T) {
	tab := NewTable()
	err := tab.Reopen("Ghost", Reopening{Span: sp(3, 8)})
	var de *diag.Error
	if !errors.As(err, &de) || de.Code != diag.DeclUnknownClass {
		t.Fatalf("expected UnknownClass, got %v", err)
	}
	if de.Span != sp(3, 8) {
		t.Fatalf("diagnostic lost its location: %v", de.Span)
	}
}

func TestDestructorFlagsFollowReopening(t *testing.T) {
	tab := NewTable()
	_ = tab.Define(&ClassDef{Name: "File", Methods: []*MethodDef{{Name: "read", Receiver: ReceiverImmutable}}})
	def, _ := tab.Lookup("File")
	if def.HasDestructor || def.Methods[0].HasCustomDestructor {
		t.Fatalf("no teardown method yet")
	}
	err := tab.Reopen("File", Reopening{Methods: []*MethodDef{{Name: "close", Receiver: ReceiverMutable, Destructor: true}}})
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	if !def.HasDestructor {
		t.Fatalf("HasDestructor not set")
	}
	for _, m := range def.Methods {
		if !m.HasCustomDestructor {
			t.Fatalf("method %s missing HasCustomDestructor", m.Name)
		}
	}
	err = tab.Reopen("File", Reopening{Methods: []*MethodDef{{Name: "close2", Receiver: ReceiverMutable, Destructor: true}}})
	if !hasCode(err, diag.DeclInvalidDestructor) {
		t.Fatalf("expected second teardown method to be rejected, got %v", err)
	}
}

func TestSealedTableRejectsWrites(t *testing.T) {
	tab := NewTable()
	tab.Seal()
	if err := tab.Define(&ClassDef{Name: "A"}); !errors.Is(err, ErrSealed) {
		t.Fatalf("expected ErrSealed, got %v", err)
	}
	if err := tab.Reopen("A", Reopening{}); !errors.Is(err, ErrSealed) {
		t.Fatalf("expected ErrSealed, got %v", err)
	}
}
