package moves

import (
	"testing"

	"tirc/internal/classes"
	"tirc/internal/diag"
	"tirc/internal/source"
	"tirc/internal/types"
)

var at = source.Span{File: 1, Start: 4, End: 9}

func pair(t *testing.T, destructor bool) *classes.ClassDef {
	t.Helper()
	in := types.NewInterner()
	b := in.Builtins()
	def := &classes.ClassDef{
		Name: "Pair",
		Fields: []classes.FieldDef{
			{Name: "a", Type: b.String},
			{Name: "b", Type: b.String},
			{Name: "c", Type: b.String, Qualifier: classes.QualRefOnly},
		},
		Methods: []*classes.MethodDef{
			{Name: "read", Receiver: classes.ReceiverImmutable},
			{Name: "edit", Receiver: classes.ReceiverMutable},
			{Name: "take", Receiver: classes.ReceiverOwning},
			{Name: "make", Receiver: classes.ReceiverStatic},
		},
	}
	if destructor {
		def.Methods = append(def.Methods, &classes.MethodDef{Name: "close", Receiver: classes.ReceiverMutable, Destructor: true})
	}
	tab := classes.NewTable()
	if err := tab.Define(def); err != nil {
		t.Fatalf("define: %v", err)
	}
	return def
}

func tracker(t *testing.T, def *classes.ClassDef, method string) *Tracker {
	t.Helper()
	m, ok := def.Method(method)
	if !ok {
		t.Fatalf("no method %s", method)
	}
	return New(def, m)
}

func wantCode(t *testing.T, err error, code diag.Code) {
	t.Helper()
	if got := diag.CodeOf(err); err == nil || got != code {
		t.Fatalf("expected %s, got %v", code.ID(), err)
	}
}

func TestMoveFieldThenAlreadyMoved(t *testing.T) {
	tr := tracker(t, pair(t, false), "take")
	if err := tr.MoveField("a", at); err != nil {
		t.Fatalf("first move: %v", err)
	}
	if tr.State() != PartiallyMoved {
		t.Fatalf("state = %s", tr.State())
	}
	wantCode(t, tr.MoveField("a", at), diag.MoveAlreadyMoved)
	wantCode(t, tr.UseReceiver(at), diag.MoveUseAfterMove)
	wantCode(t, tr.MoveReceiver(at), diag.MoveUseAfterMove)
	wantCode(t, tr.ReadField("a", at), diag.MoveUseAfterMove)
	if err := tr.ReadField("b", at); err != nil {
		t.Fatalf("unmoved field must stay readable: %v", err)
	}
	if err := tr.MoveField("b", at); err != nil {
		t.Fatalf("moving a second field: %v", err)
	}
	if tr.State() != PartiallyMoved {
		t.Fatalf("partial moves are absorbing, got %s", tr.State())
	}
}

func TestMoveNonOwnedField(t *testing.T) {
	def := pair(t, false)
	wantCode(t, tracker(t, def, "read").MoveField("a", at), diag.MoveInvalid)
	wantCode(t, tracker(t, def, "edit").MoveField("a", at), diag.MoveInvalid)
	// `ref T` fields stay references even when self is owned.
	wantCode(t, tracker(t, def, "take").MoveField("c", at), diag.MoveInvalid)
	wantCode(t, tracker(t, def, "take").MoveField("zzz", at), diag.LowerUnknownField)
}

func TestMoveReceiver(t *testing.T) {
	def := pair(t, false)
	tr := tracker(t, def, "take")
	if err := tr.MoveReceiver(at); err != nil {
		t.Fatalf("move self: %v", err)
	}
	if tr.State() != Consumed {
		t.Fatalf("state = %s", tr.State())
	}
	wantCode(t, tr.ReadField("b", at), diag.MoveUseAfterMove)
	wantCode(t, tr.MoveField("b", at), diag.MoveUseAfterMove)
	wantCode(t, tr.SwapField("b", at), diag.MoveUseAfterMove)

	wantCode(t, tracker(t, def, "edit").MoveReceiver(at), diag.MoveInvalid)
	wantCode(t, tracker(t, def, "make").MoveReceiver(at), diag.LowerNoReceiver)
}

func TestDestructorBlocksMoves(t *testing.T) {
	def := pair(t, true)
	tr := tracker(t, def, "take")
	wantCode(t, tr.MoveField("a", at), diag.MoveBlockedByDestructor)
	wantCode(t, tr.MoveField("b", at), diag.MoveBlockedByDestructor)
	wantCode(t, tr.MoveReceiver(at), diag.MoveBlockedByDestructor)
	if tr.State() != Intact {
		t.Fatalf("failed moves changed the state: %s", tr.State())
	}
}

func TestSwapKeepsState(t *testing.T) {
	def := pair(t, false)
	tr := tracker(t, def, "take")
	_ = tr.MoveField("a", at)
	before := tr.Snapshot()
	if err := tr.SwapField("b", at); err != nil {
		t.Fatalf("swap: %v", err)
	}
	after := tr.Snapshot()
	if len(after.Moved) != len(before.Moved) || after.Consumed != before.Consumed {
		t.Fatalf("swap changed move state: %+v -> %+v", before, after)
	}
	wantCode(t, tr.SwapField("a", at), diag.MoveUseAfterMove)

	edit := tracker(t, def, "edit")
	if err := edit.SwapField("a", at); err != nil {
		t.Fatalf("swap under mut: %v", err)
	}
	wantCode(t, tracker(t, def, "read").SwapField("a", at), diag.MoveInvalidSwap)
	wantCode(t, edit.SwapField("c", at), diag.MoveInvalidSwap)
	wantCode(t, tracker(t, def, "read").WriteField("a", at), diag.MoveInvalidAssign)
}

func TestInlineMovesCopy(t *testing.T) {
	in := types.NewInterner()
	def := &classes.ClassDef{
		Name:    "Vec2",
		Inline:  true,
		Fields:  []classes.FieldDef{{Name: "x", Type: in.Builtins().Float}},
		Methods: []*classes.MethodDef{{Name: "into", Receiver: classes.ReceiverOwning}},
	}
	if err := classes.NewTable().Define(def); err != nil {
		t.Fatalf("define: %v", err)
	}
	tr := tracker(t, def, "into")
	for range 2 {
		if err := tr.MoveField("x", at); err != nil {
			t.Fatalf("inline field move: %v", err)
		}
	}
	if tr.State() != Intact {
		t.Fatalf("inline values are copied, state = %s", tr.State())
	}
	for range 2 {
		if err := tr.MoveReceiver(at); err != nil {
			t.Fatalf("inline receiver move: %v", err)
		}
	}
	if err := tr.ReadField("x", at); err != nil || tr.State() != Intact {
		t.Fatalf("a copied receiver stays readable: %v, state = %s", err, tr.State())
	}
}

func TestJoin(t *testing.T) {
	a := MoveState{Moved: []string{"x"}}
	b := MoveState{Moved: []string{"y", "x"}}
	j := Join(a, b)
	if !j.Has("x") || !j.Has("y") || len(j.Moved) != 2 || j.Consumed {
		t.Fatalf("join = %+v", j)
	}
	if !Join(a, MoveState{Consumed: true}).Consumed {
		t.Fatalf("consumed must win")
	}
	if d := Diff(j, a); len(d) != 1 || d[0] != "y" {
		t.Fatalf("diff = %v", d)
	}
	if (MoveState{}).State() != Intact {
		t.Fatalf("zero state must be intact")
	}
}
