package lower

import (
	"testing"

	"tirc/internal/classes"
	"tirc/internal/diag"
	"tirc/internal/hir"
	"tirc/internal/layout"
	"tirc/internal/ownership"
	"tirc/internal/source"
	"tirc/internal/testkit"
	"tirc/internal/tir"
	"tirc/internal/types"
)

type fixture struct {
	in  *types.Interner
	tab *classes.Table
	ctx *Context
}

func newFixture(t *testing.T, build func(in *types.Interner) []*classes.ClassDef) *fixture {
	t.Helper()
	in := types.NewInterner()
	tab := classes.NewTable()
	for _, d := range build(in) {
		if err := tab.Define(d); err != nil {
			t.Fatalf("define %s: %v", d.Name, err)
		}
	}
	tab.Seal()
	planner := layout.NewPlanner(layout.X86_64LinuxGNU(), in, tab)
	return &fixture{in: in, tab: tab, ctx: NewContext(in, tab, planner)}
}

func (u *fixture) lower(t *testing.T, class, method string) (*tir.Func, error) {
	t.Helper()
	def, err := u.tab.Lookup(class)
	if err != nil {
		t.Fatalf("lookup %s: %v", class, err)
	}
	m, ok := def.Method(method)
	if !ok {
		t.Fatalf("no method %s.%s", class, method)
	}
	return Lower(u.ctx, def, m)
}

func (u *fixture) mustLower(t *testing.T, class, method string) *tir.Func {
	t.Helper()
	fn, err := u.lower(t, class, method)
	if err != nil {
		t.Fatalf("lower %s.%s: %v", class, method, err)
	}
	testkit.MustCheck(t, u.tab, fn)
	return fn
}

func wantCode(t *testing.T, fn *tir.Func, err error, code diag.Code) {
	t.Helper()
	if fn != nil {
		t.Fatalf("a failed body must not produce TIR")
	}
	if diag.CodeOf(err) != code {
		t.Fatalf("expected %s, got %v", code.ID(), err)
	}
}

func method(name string, recv classes.ReceiverMode, stmts ...*hir.Stmt) *classes.MethodDef {
	return &classes.MethodDef{Name: name, Receiver: recv, Body: hir.Block(stmts...)}
}

type dropSummary struct {
	kind    tir.DropKind
	field   string
	variant string
	exit    tir.Exit
}

func summarize(fn *tir.Func, exit tir.Exit) []dropSummary {
	var out []dropSummary
	for _, d := range fn.Drops() {
		if d.Exit == exit {
			out = append(out, dropSummary{kind: d.Kind, field: d.Field, variant: d.Variant, exit: d.Exit})
		}
	}
	return out
}

func sameDrops(got []dropSummary, want ...dropSummary) bool {
	if len(got) != len(want) {
		return false
	}
	for i := range got {
		if got[i] != want[i] {
			return false
		}
	}
	return true
}

func pairFixture(t *testing.T, methods ...*classes.MethodDef) *fixture {
	return newFixture(t, func(in *types.Interner) []*classes.ClassDef {
		b := in.Builtins()
		return []*classes.ClassDef{{
			Name: "Pair",
			Fields: []classes.FieldDef{
				{Name: "a", Type: b.String},
				{Name: "b", Type: b.String},
				{Name: "c", Type: b.String},
			},
			Methods: methods,
		}}
	})
}

func TestFieldReadRecordsMode(t *testing.T) {
	u := pairFixture(t,
		method("first", classes.ReceiverImmutable, hir.Let("x", hir.Field("a"))),
		method("edit", classes.ReceiverMutable, hir.Let("x", hir.Field("b"))),
	)
	fn := u.mustLower(t, "Pair", "first")
	var read *tir.FieldInstr
	for i := range fn.Instrs {
		if fn.Instrs[i].Op == tir.OpFieldRead {
			read = &fn.Instrs[i].Field
		}
	}
	if read == nil || read.Mode != ownership.Ref || read.Move {
		t.Fatalf("read = %+v", read)
	}
	if len(fn.Drops()) != 0 {
		t.Fatalf("a borrowing method drops nothing: %+v", fn.Drops())
	}

	fn = u.mustLower(t, "Pair", "edit")
	if fn.Instrs[0].Field.Mode != ownership.Mut {
		t.Fatalf("mutable method must read fields as mut, got %s", fn.Instrs[0].Field.Mode)
	}
	if len(fn.Drops()) != 0 {
		t.Fatalf("borrowed locals are not dropped: %+v", fn.Drops())
	}
}

func TestOwningMethodDropsRemainingFieldsAtReturn(t *testing.T) {
	u := pairFixture(t, method("take", classes.ReceiverOwning,
		hir.Let("x", hir.MoveField("b")),
		hir.Return(hir.MoveLocal("x")),
	))
	fn := u.mustLower(t, "Pair", "take")
	got := summarize(fn, tir.ExitReturn)
	want := []dropSummary{
		{kind: tir.DropField, field: "c", exit: tir.ExitReturn},
		{kind: tir.DropField, field: "a", exit: tir.ExitReturn},
		{kind: tir.DropFree, exit: tir.ExitReturn},
	}
	if !sameDrops(got, want...) {
		t.Fatalf("drops = %+v", got)
	}
	if fn.Instrs[len(fn.Instrs)-1].Op != tir.OpReturn {
		t.Fatalf("body must end in return")
	}
}

func TestOwningMethodDropsIntactReceiver(t *testing.T) {
	u := pairFixture(t, method("consume", classes.ReceiverOwning, hir.Let("x", hir.Field("a"))))
	fn := u.mustLower(t, "Pair", "consume")
	if got := summarize(fn, tir.ExitNormal); !sameDrops(got, dropSummary{kind: tir.DropReceiver, exit: tir.ExitNormal}) {
		t.Fatalf("drops = %+v", got)
	}
}

func TestMoveErrorsAbortBody(t *testing.T) {
	u := pairFixture(t,
		method("bad", classes.ReceiverMutable, hir.Let("x", hir.MoveField("a"))),
		method("twice", classes.ReceiverOwning, hir.Let("x", hir.MoveField("a")), hir.Let("y", hir.MoveField("a"))),
		method("whole", classes.ReceiverOwning, hir.Let("x", hir.MoveField("a")), hir.Return(hir.MoveSelf())),
		method("local", classes.ReceiverImmutable,
			hir.Let("s", hir.String("x")),
			hir.Let("t", hir.MoveLocal("s")),
			hir.Let("u", hir.MoveLocal("s")),
		),
	)
	fn, err := u.lower(t, "Pair", "bad")
	wantCode(t, fn, err, diag.MoveInvalid)
	fn, err = u.lower(t, "Pair", "twice")
	wantCode(t, fn, err, diag.MoveAlreadyMoved)
	fn, err = u.lower(t, "Pair", "whole")
	wantCode(t, fn, err, diag.MoveUseAfterMove)
	fn, err = u.lower(t, "Pair", "local")
	wantCode(t, fn, err, diag.MoveUseAfterMove)
}

func TestBranchArmsReconcileMoves(t *testing.T) {
	u := pairFixture(t, method("pick", classes.ReceiverOwning,
		hir.If(hir.Bool(true),
			[]*hir.Stmt{hir.Let("x", hir.MoveField("a"))},
			nil,
		),
	))
	fn := u.mustLower(t, "Pair", "pick")
	if got := summarize(fn, tir.ExitBranch); !sameDrops(got, dropSummary{kind: tir.DropField, field: "a", exit: tir.ExitBranch}) {
		t.Fatalf("else arm must drop the field moved by the then arm, got %+v", got)
	}
	want := []dropSummary{
		{kind: tir.DropValue, exit: tir.ExitNormal}, // x at the end of the then arm
		{kind: tir.DropField, field: "c", exit: tir.ExitNormal},
		{kind: tir.DropField, field: "b", exit: tir.ExitNormal},
		{kind: tir.DropFree, exit: tir.ExitNormal},
	}
	if got := summarize(fn, tir.ExitNormal); !sameDrops(got, want...) {
		t.Fatalf("normal exit drops = %+v", got)
	}
}

func TestBranchWhereOneArmConsumes(t *testing.T) {
	u := newFixture(t, func(in *types.Interner) []*classes.ClassDef {
		b := in.Builtins()
		return []*classes.ClassDef{
			{Name: "Sink", Methods: []*classes.MethodDef{
				{Name: "eat", Receiver: classes.ReceiverStatic, Params: []classes.Param{{Name: "v", Type: in.Class("Box", nil)}}},
			}},
			{Name: "Box", Fields: []classes.FieldDef{{Name: "v", Type: b.String}}, Methods: []*classes.MethodDef{
				method("maybe", classes.ReceiverOwning, hir.If(hir.Bool(false),
					[]*hir.Stmt{hir.Do(hir.Call(nil, "Sink", "eat", hir.MoveSelf()))},
					nil,
				)),
			}},
		}
	})
	fn := u.mustLower(t, "Box", "maybe")
	if got := summarize(fn, tir.ExitBranch); !sameDrops(got, dropSummary{kind: tir.DropReceiver, exit: tir.ExitBranch}) {
		t.Fatalf("arm keeping self must destroy it, got %+v", got)
	}
	if got := summarize(fn, tir.ExitNormal); len(got) != 0 {
		t.Fatalf("self is consumed after the join, got %+v", got)
	}
}

func TestErrorPathsRunCleanup(t *testing.T) {
	u := newFixture(t, func(in *types.Interner) []*classes.ClassDef {
		b := in.Builtins()
		return []*classes.ClassDef{{
			Name:   "Job",
			Fields: []classes.FieldDef{{Name: "name", Type: b.String}},
			Methods: []*classes.MethodDef{
				{Name: "risky", Receiver: classes.ReceiverStatic, Returns: b.Int},
				method("run", classes.ReceiverOwning,
					hir.Let("s", hir.String("tmp")),
					hir.Let("n", &hir.Expr{Kind: hir.ExprCall, Class: "Job", Method: "risky", Try: true}),
				),
				method("fail", classes.ReceiverOwning,
					hir.Let("s", hir.String("tmp")),
					hir.Throw(hir.String("boom")),
				),
			},
		}}
	})
	fn := u.mustLower(t, "Job", "run")
	wantErr := []dropSummary{
		{kind: tir.DropValue, exit: tir.ExitError},
		{kind: tir.DropReceiver, exit: tir.ExitError},
	}
	if got := summarize(fn, tir.ExitError); !sameDrops(got, wantErr...) {
		t.Fatalf("error edge drops = %+v", got)
	}
	var call *tir.CallInstr
	for i := range fn.Instrs {
		if fn.Instrs[i].Op == tir.OpCall {
			call = &fn.Instrs[i].Call
		}
	}
	if call == nil || call.OnError == tir.NoLabel {
		t.Fatalf("try call must carry an error target")
	}
	if fn.Count(tir.OpThrow) != 1 {
		t.Fatalf("error edge must rethrow")
	}
	// n (Int) and s (String) are dropped in reverse order, then self.
	normal := summarize(fn, tir.ExitNormal)
	if len(normal) != 3 || normal[2].kind != tir.DropReceiver {
		t.Fatalf("normal exit drops = %+v", normal)
	}

	fn = u.mustLower(t, "Job", "fail")
	if got := summarize(fn, tir.ExitError); !sameDrops(got, wantErr...) {
		t.Fatalf("throw drops = %+v", got)
	}
	if fn.Instrs[len(fn.Instrs)-1].Op != tir.OpThrow {
		t.Fatalf("throw must end the body")
	}
}

func letterFixture(t *testing.T, methods ...*classes.MethodDef) *fixture {
	return newFixture(t, func(in *types.Interner) []*classes.ClassDef {
		b := in.Builtins()
		return []*classes.ClassDef{
			{Name: "Letter", Kind: classes.KindEnum, Variants: []classes.Variant{
				{Name: "Foo", Payload: []classes.FieldDef{{Type: b.Int}, {Type: b.String}}},
				{Name: "Bar"},
			}},
			{Name: "Post", Methods: methods},
		}
	})
}

func TestOwnedMatchDropsOnlyMatchedVariant(t *testing.T) {
	u := letterFixture(t)
	letter := u.in.Class("Letter", nil)
	post, _ := u.tab.Lookup("Post")
	m := &classes.MethodDef{
		Name:     "open",
		Receiver: classes.ReceiverStatic,
		Params:   []classes.Param{{Name: "l", Type: letter}},
		Body: hir.Block(hir.Match(hir.MoveLocal("l"),
			hir.Case("Foo", []string{"n"}),
			hir.Case("Bar", nil),
		)),
	}
	fn, err := Lower(u.ctx, post, m)
	if err != nil {
		t.Fatalf("lower: %v", err)
	}
	if err := tir.Validate(fn); err != nil {
		t.Fatalf("validate: %v", err)
	}
	if fn.Count(tir.OpTagTest) != 1 {
		t.Fatalf("exhaustive match needs one test, got %d", fn.Count(tir.OpTagTest))
	}
	var foo, bar, frees int
	for _, d := range fn.Drops() {
		switch {
		case d.Kind == tir.DropField && d.Variant == "Foo":
			foo++
			if d.Field != "1" {
				t.Fatalf("only the unbound String slot is dropped, got slot %s", d.Field)
			}
		case d.Kind == tir.DropField && d.Variant == "Bar":
			bar++
		case d.Kind == tir.DropFree:
			frees++
		case d.Kind == tir.DropValue && d.Local == "l":
			t.Fatalf("moved parameter must not be dropped")
		}
	}
	if foo != 1 || bar != 0 || frees != 2 {
		t.Fatalf("foo=%d bar=%d frees=%d", foo, bar, frees)
	}
}

func TestBorrowedMatchDropsNothing(t *testing.T) {
	u := letterFixture(t)
	letter := u.in.Class("Letter", nil)
	post, _ := u.tab.Lookup("Post")
	m := &classes.MethodDef{
		Name:     "peek",
		Receiver: classes.ReceiverStatic,
		Params:   []classes.Param{{Name: "l", Type: letter}},
		Body: hir.Block(hir.Match(hir.Local("l"),
			hir.Case("Foo", []string{"", "s"}),
		)),
	}
	fn, err := Lower(u.ctx, post, m)
	if err != nil {
		t.Fatalf("lower: %v", err)
	}
	for _, d := range fn.Drops() {
		if d.Kind != tir.DropValue || d.Local != "l" {
			t.Fatalf("borrowed match must not drop payload: %+v", d)
		}
	}
	for i := range fn.Instrs {
		if fn.Instrs[i].Op == tir.OpPayloadRead && fn.Instrs[i].Tag.Move {
			t.Fatalf("borrowed payload read must not move")
		}
	}

	m.Body = hir.Block(hir.Match(hir.Int(1), hir.Case("Foo", nil)))
	fn, err = Lower(u.ctx, post, m)
	wantCode(t, fn, err, diag.LowerNotEnum)
	m.Body = hir.Block(hir.Match(hir.Local("l"), hir.Case("Baz", nil)))
	fn, err = Lower(u.ctx, post, m)
	wantCode(t, fn, err, diag.LowerUnknownVariant)
}

func TestAsyncMethods(t *testing.T) {
	u := newFixture(t, func(in *types.Interner) []*classes.ClassDef {
		return []*classes.ClassDef{{
			Name: "Worker",
			Kind: classes.KindProcess,
			Methods: []*classes.MethodDef{
				method("run", classes.ReceiverAsync),
				method("kick", classes.ReceiverImmutable, hir.Do(hir.Call(hir.Self(), "", "run"))),
				method("bad", classes.ReceiverImmutable, hir.Do(&hir.Expr{Kind: hir.ExprCall, Receiver: hir.Self(), Method: "run", Try: true})),
			},
		}}
	})
	fn := u.mustLower(t, "Worker", "run")
	if !fn.Async || fn.Instrs[0].Op != tir.OpEnqueue || !fn.Instrs[0].Enqueue.Marker {
		t.Fatalf("async body must start with the mailbox marker")
	}
	fn = u.mustLower(t, "Worker", "kick")
	if fn.Count(tir.OpCall) != 0 || fn.Count(tir.OpEnqueue) != 1 {
		t.Fatalf("calling an async method must enqueue, not call")
	}
	fn, err := u.lower(t, "Worker", "bad")
	wantCode(t, fn, err, diag.LowerAsyncTry)
}

func TestInlineReceiverRejectsStores(t *testing.T) {
	u := newFixture(t, func(in *types.Interner) []*classes.ClassDef {
		b := in.Builtins()
		return []*classes.ClassDef{{
			Name:   "Vec",
			Inline: true,
			Fields: []classes.FieldDef{{Name: "x", Type: b.Int}},
			Methods: []*classes.MethodDef{
				method("set", classes.ReceiverOwning, hir.Assign("x", hir.Int(1))),
				method("swap", classes.ReceiverOwning, hir.Do(hir.Swap("x", hir.Int(2)))),
				method("copy", classes.ReceiverOwning, hir.Let("a", hir.MoveField("x")), hir.Let("b", hir.MoveField("x"))),
			},
		}}
	})
	fn, err := u.lower(t, "Vec", "set")
	wantCode(t, fn, err, diag.LayoutInlineFieldAssign)
	fn, err = u.lower(t, "Vec", "swap")
	wantCode(t, fn, err, diag.LayoutInlineFieldAssign)
	u.mustLower(t, "Vec", "copy")
}

func TestSwapAndWrite(t *testing.T) {
	u := pairFixture(t,
		method("replace", classes.ReceiverMutable,
			hir.Let("old", hir.Swap("a", hir.String("new"))),
			hir.Assign("b", hir.String("b2")),
		),
		method("frozen", classes.ReceiverImmutable, hir.Assign("b", hir.String("b2"))),
	)
	fn := u.mustLower(t, "Pair", "replace")
	var sawSwap, sawWrite bool
	for i := range fn.Instrs {
		switch in := fn.Instrs[i]; in.Op {
		case tir.OpSwap:
			sawSwap = in.Dst != tir.NoReg && in.Field.Field == "a"
		case tir.OpFieldWrite:
			sawWrite = in.Field.DropOld
		}
	}
	if !sawSwap || !sawWrite {
		t.Fatalf("swap=%v write=%v", sawSwap, sawWrite)
	}
	// The old value is owned by the local and dropped at the end.
	if got := summarize(fn, tir.ExitNormal); len(got) != 1 || got[0].kind != tir.DropValue {
		t.Fatalf("drops = %+v", got)
	}
	fn, err := u.lower(t, "Pair", "frozen")
	wantCode(t, fn, err, diag.MoveInvalidAssign)
}

func TestGenericConstructionChecksInstantiation(t *testing.T) {
	span := source.Span{File: 1, Start: 30, End: 42}
	u := newFixture(t, func(in *types.Interner) []*classes.ClassDef {
		b := in.Builtins()
		bad := hir.New("Box", "", hir.String("s"))
		bad.TypeArgs = []types.TypeID{b.String}
		bad.Span = span
		good := hir.New("Box", "", hir.Int(1))
		good.TypeArgs = []types.TypeID{b.Int}
		return []*classes.ClassDef{
			{Name: "Box", Inline: true, TypeParams: []string{"T"}, Fields: []classes.FieldDef{{Name: "v", Type: in.Param("T")}}},
			{Name: "Maker", Methods: []*classes.MethodDef{
				method("bad", classes.ReceiverStatic, hir.Return(bad)),
				method("good", classes.ReceiverStatic, hir.Return(good)),
				method("arity", classes.ReceiverStatic, hir.Return(hir.New("Box", "", hir.Int(1)))),
			}},
		}
	})
	fn, err := u.lower(t, "Maker", "bad")
	wantCode(t, fn, err, diag.LayoutNonInlineTypeArgument)
	if de := diag.Flatten(err)[0]; de.Span != span {
		t.Fatalf("diagnostic must point at the construction, got %v", de.Span)
	}
	fn = u.mustLower(t, "Maker", "good")
	if fn.Instrs[1].Op != tir.OpNew || !fn.Instrs[1].New.Inline {
		t.Fatalf("expected inline construction, got %s", fn.Instrs[1].Op)
	}
	fn, err = u.lower(t, "Maker", "arity")
	wantCode(t, fn, err, diag.DeclTypeArgCount)
}

func TestStaticMethodHasNoSelf(t *testing.T) {
	u := pairFixture(t, method("make", classes.ReceiverStatic, hir.Return(hir.Self())))
	fn, err := u.lower(t, "Pair", "make")
	wantCode(t, fn, err, diag.LowerNoReceiver)
}

func TestReturnedBorrowMustOutliveBody(t *testing.T) {
	u := newFixture(t, func(in *types.Interner) []*classes.ClassDef {
		b := in.Builtins()
		view := func(name string, recv classes.ReceiverMode, stmts ...*hir.Stmt) *classes.MethodDef {
			m := method(name, recv, stmts...)
			m.Returns = in.Ref(b.String)
			return m
		}
		return []*classes.ClassDef{{
			Name:   "Pair",
			Fields: []classes.FieldDef{{Name: "a", Type: b.String}, {Name: "b", Type: b.String}},
			Methods: []*classes.MethodDef{
				view("view", classes.ReceiverImmutable, hir.Return(hir.Field("a"))),
				view("leak", classes.ReceiverOwning, hir.Return(hir.Field("a"))),
				view("dangle", classes.ReceiverImmutable,
					hir.Let("s", hir.String("x")),
					hir.Let("r", hir.Local("s")),
					hir.Return(hir.Local("r")),
				),
				method("owned", classes.ReceiverImmutable, hir.Return(hir.Field("a"))),
				method("store", classes.ReceiverMutable, hir.Assign("a", hir.Field("b"))),
				method("trade", classes.ReceiverMutable, hir.Do(hir.Swap("a", hir.Field("b")))),
				method("raise", classes.ReceiverImmutable, hir.Throw(hir.Field("a"))),
			},
		}}
	})
	fn := u.mustLower(t, "Pair", "view")
	if fn.Instrs[len(fn.Instrs)-1].Op != tir.OpReturn || len(fn.Drops()) != 0 {
		t.Fatalf("a borrow of a borrowed receiver can be returned, got %+v", fn.Drops())
	}
	for _, name := range []string{"leak", "dangle", "owned", "store", "trade", "raise"} {
		fn, err := u.lower(t, "Pair", name)
		wantCode(t, fn, err, diag.MoveInvalid)
	}
}

func boxFixture(t *testing.T, methods func(in *types.Interner) []*classes.MethodDef) *fixture {
	return newFixture(t, func(in *types.Interner) []*classes.ClassDef {
		b := in.Builtins()
		return []*classes.ClassDef{
			{Name: "Box", Fields: []classes.FieldDef{{Name: "v", Type: b.String}}, Methods: []*classes.MethodDef{
				{Name: "get", Receiver: classes.ReceiverImmutable, Returns: b.Int},
				method("give", classes.ReceiverImmutable, hir.Do(hir.Call(nil, "Sink", "eat", hir.Field("v")))),
				method("wrap", classes.ReceiverOwning, hir.Do(hir.New("Box", "", hir.Field("v")))),
			}},
			{Name: "View", Fields: []classes.FieldDef{{Name: "s", Type: in.Ref(b.String)}}},
			{Name: "Sink", Methods: []*classes.MethodDef{
				{Name: "eat", Receiver: classes.ReceiverStatic, Params: []classes.Param{{Name: "s", Type: b.String}}},
				{Name: "show", Receiver: classes.ReceiverStatic, Params: []classes.Param{{Name: "s", Type: in.Ref(b.String)}}},
				{Name: "pair", Receiver: classes.ReceiverStatic, Params: []classes.Param{{Name: "s", Type: b.String}, {Name: "n", Type: b.Int}}},
			}},
			{Name: "User", Methods: methods(in)},
		}
	})
}

func tryGet(recv *hir.Expr) *hir.Expr {
	return &hir.Expr{Kind: hir.ExprCall, Receiver: recv, Method: "get", Try: true}
}

func constReg(t *testing.T, fn *tir.Func, str string) tir.Reg {
	t.Helper()
	for i := range fn.Instrs {
		if in := fn.Instrs[i]; in.Op == tir.OpConst && in.Const.Str == str {
			return in.Dst
		}
	}
	t.Fatalf("no constant %q", str)
	return tir.NoReg
}

func TestTryDropsPendingTemporaries(t *testing.T) {
	u := boxFixture(t, func(in *types.Interner) []*classes.MethodDef {
		return []*classes.MethodDef{
			method("temp", classes.ReceiverStatic, hir.Do(tryGet(hir.New("Box", "", hir.String("x"))))),
			method("args", classes.ReceiverStatic,
				hir.Do(hir.Call(nil, "Sink", "pair", hir.String("a"), tryGet(hir.New("Box", "", hir.String("x"))))),
			),
		}
	})
	fn := u.mustLower(t, "User", "temp")
	if got := summarize(fn, tir.ExitError); !sameDrops(got, dropSummary{kind: tir.DropValue, exit: tir.ExitError}) {
		t.Fatalf("the receiver temporary must be dropped on the error edge, got %+v", got)
	}
	if got := summarize(fn, tir.ExitNormal); !sameDrops(got, dropSummary{kind: tir.DropValue, exit: tir.ExitNormal}) {
		t.Fatalf("the receiver temporary must be dropped after the call, got %+v", got)
	}

	fn = u.mustLower(t, "User", "args")
	var errDrops []tir.DropInstr
	for _, d := range fn.Drops() {
		if d.Exit == tir.ExitError {
			errDrops = append(errDrops, d)
		}
	}
	if len(errDrops) != 2 || errDrops[1].Value != constReg(t, fn, "a") {
		t.Fatalf("an earlier owned argument must be dropped after the receiver, got %+v", errDrops)
	}
	// "a" moves into Sink.pair; only the box is dropped on the normal path.
	if got := summarize(fn, tir.ExitNormal); len(got) != 1 {
		t.Fatalf("normal drops = %+v", got)
	}
}

func TestArgumentsIntoOwnedSlots(t *testing.T) {
	u := boxFixture(t, func(in *types.Interner) []*classes.MethodDef {
		return []*classes.MethodDef{
			method("lend", classes.ReceiverStatic, hir.Do(hir.Call(nil, "Sink", "show", hir.String("s")))),
			method("point", classes.ReceiverStatic,
				hir.Let("s", hir.String("s")),
				hir.Let("v", hir.New("View", "", hir.Local("s"))),
			),
			method("dangle", classes.ReceiverStatic, hir.Do(hir.New("View", "", hir.String("s")))),
		}
	})
	fn := u.mustLower(t, "User", "lend")
	drops := fn.Drops()
	if len(drops) != 1 || drops[0].Value != constReg(t, fn, "s") || drops[0].Exit != tir.ExitNormal {
		t.Fatalf("a lent temporary stays with the caller, got %+v", drops)
	}
	u.mustLower(t, "User", "point")

	fn, err := u.lower(t, "User", "dangle")
	wantCode(t, fn, err, diag.MoveInvalid)
	fn, err = u.lower(t, "Box", "give")
	wantCode(t, fn, err, diag.MoveInvalid)
	fn, err = u.lower(t, "Box", "wrap")
	wantCode(t, fn, err, diag.MoveInvalid)
}
