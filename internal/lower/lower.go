package lower

import (
	"tirc/internal/classes"
	"tirc/internal/diag"
	"tirc/internal/hir"
	"tirc/internal/moves"
	"tirc/internal/ownership"
	"tirc/internal/source"
	"tirc/internal/tir"
	"tirc/internal/types"
)

// origin names the storage a borrowed value points into.
type origin struct {
	self  bool
	local *local
}

// local is a named binding of the body being lowered.
type local struct {
	name  string
	reg   tir.Reg
	typ   types.TypeID
	owned bool
	moved bool
	from  origin
}

// value is the result of lowering an expression.
type value struct {
	reg   tir.Reg
	typ   types.TypeID
	owned bool
	from  origin
}

type funcLowerer struct {
	ctx     *Context
	class   *classes.ClassDef
	method  *classes.MethodDef
	b       *tir.Builder
	tracker *moves.Tracker
	mode    ownership.Mode
	self    tir.Reg

	locals []*local
	scopes [][]int
	// temps are owned intermediate values of the expression being lowered
	// that no binding or callee owns yet.
	temps []value
}

// Lower lowers the body of method, declared in class. On the first error
// the body is abandoned and no function is returned.
func Lower(ctx *Context, class *classes.ClassDef, method *classes.MethodDef) (*tir.Func, error) {
	fl := &funcLowerer{
		ctx:     ctx,
		class:   class,
		method:  method,
		b:       tir.NewBuilder(class.Name, method.Name, method.Span),
		tracker: moves.New(class, method),
		mode:    ownership.SelfMode(method.Receiver),
		self:    tir.NoReg,
	}
	fn, err := fl.lower()
	if err != nil {
		return nil, err
	}
	return fn, nil
}

func (fl *funcLowerer) lower() (*tir.Func, error) {
	fn := fl.b.Func()
	fn.Async = fl.method.Receiver.IsAsync()
	fn.Static = fl.method.IsStatic()
	if !fn.Static {
		fl.self = fl.b.Self(fl.mode)
	}

	fl.pushScope()
	for _, p := range fl.method.Params {
		reg := fl.b.Param(p.Name)
		fl.bind(p.Name, reg, p.Type, true)
	}

	span := fl.method.Span
	var stmts []*hir.Stmt
	if body := fl.method.Body; body != nil {
		stmts = body.Stmts
		if !body.Span.Empty() {
			span = body.Span
		}
	}

	if fn.Async {
		// An async body runs when the process takes the message off its
		// mailbox, never on the caller's stack.
		fl.b.Enqueue(span, tir.EnqueueInstr{
			Process: fl.self,
			Class:   fl.class.Name,
			Method:  fl.method.Name,
			Marker:  true,
		})
	}

	terminated, err := fl.lowerStmts(stmts)
	if err != nil {
		return nil, err
	}
	if !terminated {
		end := source.Span{File: span.File, Start: span.End, End: span.End}
		fl.cleanup(tir.ExitNormal, end)
		fl.b.Return(end, tir.NoReg)
	}
	if err := fl.b.Err(); err != nil {
		return nil, err
	}
	return fn, nil
}

func (fl *funcLowerer) pushScope() {
	fl.scopes = append(fl.scopes, nil)
}

// popScope ends the innermost scope. Its live locals are dropped in reverse
// declaration order unless control already left the scope.
func (fl *funcLowerer) popScope(terminated bool, span source.Span) {
	top := fl.scopes[len(fl.scopes)-1]
	fl.scopes = fl.scopes[:len(fl.scopes)-1]
	if terminated {
		return
	}
	for i := len(top) - 1; i >= 0; i-- {
		fl.dropLocal(fl.locals[top[i]], tir.ExitNormal, span)
	}
}

func (fl *funcLowerer) bind(name string, reg tir.Reg, typ types.TypeID, owned bool) *local {
	l := &local{name: name, reg: reg, typ: typ, owned: owned}
	fl.locals = append(fl.locals, l)
	top := len(fl.scopes) - 1
	fl.scopes[top] = append(fl.scopes[top], len(fl.locals)-1)
	return l
}

// lookup finds the innermost visible binding of name.
func (fl *funcLowerer) lookup(name string, span source.Span) (*local, error) {
	for s := len(fl.scopes) - 1; s >= 0; s-- {
		scope := fl.scopes[s]
		for i := len(scope) - 1; i >= 0; i-- {
			if l := fl.locals[scope[i]]; l.name == name {
				return l, nil
			}
		}
	}
	return nil, diag.Errorf(diag.LowerUnknownLocal, span, "unknown local %q", name)
}

func (fl *funcLowerer) dropLocal(l *local, exit tir.Exit, span source.Span) {
	if !l.owned || l.moved {
		return
	}
	fl.ctx.Drops.EmitValue(fl.b, l.reg, l.typ, l.name, exit, span)
}

// cleanup is the single cleanup routine run on every exit edge of the
// body: pending temporaries, then live locals of all scopes in reverse
// declaration order, then the receiver when the method owns it. It emits
// code only; the lowering state is left untouched for the paths that
// continue.
func (fl *funcLowerer) cleanup(exit tir.Exit, span source.Span) {
	for i := len(fl.temps) - 1; i >= 0; i-- {
		t := fl.temps[i]
		fl.ctx.Drops.EmitValue(fl.b, t.reg, t.typ, "", exit, span)
	}
	for s := len(fl.scopes) - 1; s >= 0; s-- {
		scope := fl.scopes[s]
		for i := len(scope) - 1; i >= 0; i-- {
			fl.dropLocal(fl.locals[scope[i]], exit, span)
		}
	}
	if fl.mode == ownership.Owned {
		fl.ctx.Drops.Emit(fl.b, fl.self, fl.class, fl.tracker.Snapshot(), exit, span)
	}
}

// needsDrop reports whether v is an owned value with a destructor.
func (fl *funcLowerer) needsDrop(v value) bool {
	if !v.owned || v.reg == tir.NoReg {
		return false
	}
	return fl.ctx.Types.KindOf(v.typ) != types.KindNil && !fl.ctx.copyable(v.typ)
}

// dropTemp drops an owned value that nothing took ownership of.
func (fl *funcLowerer) dropTemp(v value, span source.Span) {
	if fl.needsDrop(v) {
		fl.ctx.Drops.EmitValue(fl.b, v.reg, v.typ, "", tir.ExitNormal, span)
	}
}

// holdTemp keeps v pending until releaseTemps, so that an error edge
// taken before v finds an owner destroys it.
func (fl *funcLowerer) holdTemp(v value) {
	if fl.needsDrop(v) {
		fl.temps = append(fl.temps, v)
	}
}

// releaseTemps forgets the temporaries held since mark: ownership passed
// to a callee or a new object.
func (fl *funcLowerer) releaseTemps(mark int) {
	fl.temps = fl.temps[:mark]
}

// dropTemps drops the temporaries held since mark, newest first.
func (fl *funcLowerer) dropTemps(mark int, span source.Span) {
	for i := len(fl.temps) - 1; i >= mark; i-- {
		fl.dropTemp(fl.temps[i], span)
	}
	fl.releaseTemps(mark)
}
