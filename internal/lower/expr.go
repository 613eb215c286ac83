package lower

import (
	"tirc/internal/classes"
	"tirc/internal/diag"
	"tirc/internal/hir"
	"tirc/internal/ownership"
	"tirc/internal/source"
	"tirc/internal/tir"
	"tirc/internal/types"
)

func (fl *funcLowerer) lowerExpr(e *hir.Expr) (value, error) {
	if e == nil {
		return value{reg: tir.NoReg, typ: fl.ctx.Types.Builtins().Nil}, nil
	}
	switch e.Kind {
	case hir.ExprInt, hir.ExprFloat, hir.ExprString, hir.ExprBool, hir.ExprNil:
		return fl.lowerConst(e), nil
	case hir.ExprLocal:
		return fl.lowerLocal(e)
	case hir.ExprSelf:
		return fl.lowerSelf(e)
	case hir.ExprField:
		return fl.lowerField(e)
	case hir.ExprSwap:
		return fl.lowerSwap(e)
	case hir.ExprCall:
		return fl.lowerCall(e)
	case hir.ExprNew:
		return fl.lowerNew(e)
	default:
		return value{}, diag.Errorf(diag.LowerUnsupported, e.Span, "unsupported expression %s", e.Kind)
	}
}

func (fl *funcLowerer) lowerConst(e *hir.Expr) value {
	b := fl.ctx.Types.Builtins()
	c := tir.ConstInstr{}
	switch e.Kind {
	case hir.ExprInt:
		c = tir.ConstInstr{Kind: tir.ConstInt, Int: e.Int, Type: b.Int}
	case hir.ExprFloat:
		c = tir.ConstInstr{Kind: tir.ConstFloat, Float: e.Float, Type: b.Float}
	case hir.ExprString:
		c = tir.ConstInstr{Kind: tir.ConstString, Str: e.Str, Type: b.String}
	case hir.ExprBool:
		c = tir.ConstInstr{Kind: tir.ConstBool, Bool: e.Bool, Type: b.Bool}
	default:
		c = tir.ConstInstr{Kind: tir.ConstNil, Type: b.Nil}
	}
	return value{reg: fl.b.Const(e.Span, c), typ: c.Type, owned: true}
}

func (fl *funcLowerer) lowerLocal(e *hir.Expr) (value, error) {
	l, err := fl.lookup(e.Name, e.Span)
	if err != nil {
		return value{}, err
	}
	if l.moved {
		return value{}, diag.Errorf(diag.MoveUseAfterMove, e.Span, "local %q is used after being moved", l.name)
	}
	if fl.ctx.copyable(l.typ) {
		return value{reg: fl.b.Move(e.Span, l.reg, l.name), typ: l.typ, owned: true}, nil
	}
	if e.Move {
		if !l.owned {
			return value{}, diag.Errorf(diag.MoveInvalid, e.Span, "cannot move %q: it is a borrowed value", l.name)
		}
		l.moved = true
		return value{reg: fl.b.Move(e.Span, l.reg, l.name), typ: l.typ, owned: true}, nil
	}
	from := l.from
	if l.owned && !fl.isBorrow(l.typ) {
		from = origin{local: l}
	}
	return value{reg: l.reg, typ: fl.borrowType(l.typ), owned: false, from: from}, nil
}

func (fl *funcLowerer) isBorrow(t types.TypeID) bool {
	switch fl.ctx.Types.KindOf(t) {
	case types.KindRef, types.KindMut:
		return true
	default:
		return false
	}
}

// borrowType is the type of a non-moving use of a value of type t.
func (fl *funcLowerer) borrowType(t types.TypeID) types.TypeID {
	if fl.isBorrow(t) {
		return t
	}
	return fl.ctx.Types.Ref(t)
}

// fillSlot checks that v may be stored into a slot of type slot. An owned
// slot takes ownership of what it holds, so it cannot hold a borrow.
func (fl *funcLowerer) fillSlot(v value, slot types.TypeID, span source.Span) error {
	if fl.isBorrow(slot) || v.owned || fl.ctx.copyable(v.typ) {
		return nil
	}
	return diag.Errorf(diag.MoveInvalid, span, "cannot store borrowed %s into owned %s: move it instead",
		fl.ctx.Types.String(v.typ), fl.ctx.Types.String(slot))
}

// instantiate substitutes the type arguments of an instance of def into t.
func (fl *funcLowerer) instantiate(t types.TypeID, def *classes.ClassDef, args []types.TypeID) types.TypeID {
	if len(args) == 0 || len(args) != len(def.TypeParams) {
		return t
	}
	return fl.ctx.Types.Substitute(t, def.TypeParams, args)
}

func (fl *funcLowerer) lowerSelf(e *hir.Expr) (value, error) {
	selfType := fl.class.SelfType(fl.ctx.Types)
	if e.Move {
		if err := fl.tracker.MoveReceiver(e.Span); err != nil {
			return value{}, err
		}
		return value{reg: fl.b.Move(e.Span, fl.self, "self"), typ: selfType, owned: true}, nil
	}
	if err := fl.tracker.UseReceiver(e.Span); err != nil {
		return value{}, err
	}
	if fl.class.Inline {
		return value{reg: fl.b.Move(e.Span, fl.self, "self"), typ: selfType, owned: true}, nil
	}
	return value{reg: fl.self, typ: ownership.Exposed(fl.ctx.Types, fl.refMode(), selfType), from: origin{self: true}}, nil
}

// refMode is the mode of a non-moving use of self.
func (fl *funcLowerer) refMode() ownership.Mode {
	if fl.mode == ownership.Mut {
		return ownership.Mut
	}
	return ownership.Ref
}

func (fl *funcLowerer) selfField(name string, e *hir.Expr) (*classes.FieldDef, error) {
	f, ok := fl.class.Field(name)
	if !ok {
		if fl.method.IsStatic() {
			return nil, diag.Errorf(diag.LowerNoReceiver, e.Span, "static method %q has no receiver", fl.method.Name)
		}
		return nil, diag.Errorf(diag.LowerUnknownField, e.Span, "class %q has no field %q", fl.class.Name, name)
	}
	return f, nil
}

func (fl *funcLowerer) lowerField(e *hir.Expr) (value, error) {
	if e.Move {
		if err := fl.tracker.MoveField(e.Name, e.Span); err != nil {
			return value{}, err
		}
	} else if err := fl.tracker.ReadField(e.Name, e.Span); err != nil {
		return value{}, err
	}
	f, err := fl.selfField(e.Name, e)
	if err != nil {
		return value{}, err
	}
	mode := fl.tracker.Mode(f)
	typ := f.Type
	owned := e.Move || fl.ctx.copyable(f.Type)
	if !owned {
		// Reading an owned field without moving it borrows it.
		exposed := mode
		if exposed == ownership.Owned {
			exposed = ownership.Ref
		}
		typ = ownership.Exposed(fl.ctx.Types, exposed, f.Type)
	}
	reg := fl.b.FieldRead(e.Span, tir.FieldInstr{
		Object: fl.self,
		Class:  fl.class.Name,
		Field:  f.Name,
		Index:  f.Index,
		Type:   f.Type,
		Mode:   mode,
		Move:   e.Move,
	})
	v := value{reg: reg, typ: typ, owned: owned}
	if !owned {
		v.from = origin{self: true}
	}
	return v, nil
}

func (fl *funcLowerer) lowerSwap(e *hir.Expr) (value, error) {
	if fl.class.Inline {
		return value{}, diag.Errorf(diag.LayoutInlineFieldAssign, e.Span,
			"fields of inline class %q cannot be swapped", fl.class.Name)
	}
	if err := fl.tracker.SwapField(e.Name, e.Span); err != nil {
		return value{}, err
	}
	f, err := fl.selfField(e.Name, e)
	if err != nil {
		return value{}, err
	}
	v, err := fl.lowerExpr(e.Value)
	if err != nil {
		return value{}, err
	}
	if err := fl.fillSlot(v, f.Type, e.Span); err != nil {
		return value{}, err
	}
	old := fl.b.Swap(e.Span, tir.FieldInstr{
		Object: fl.self,
		Class:  fl.class.Name,
		Field:  f.Name,
		Index:  f.Index,
		Type:   f.Type,
		Mode:   fl.tracker.Mode(f),
		Value:  v.reg,
	})
	return value{reg: old, typ: f.Type, owned: true}, nil
}

// lowerArgs lowers call or constructor arguments against the types of the
// slots they fill. Owned arguments are held as temporaries until the caller
// hands them over. An owned argument lent to a borrowed slot is returned in
// lent: it stays with the caller, who drops it after the call.
func (fl *funcLowerer) lowerArgs(args []*hir.Expr, slots []types.TypeID) (regs []tir.Reg, lent []value, err error) {
	regs = make([]tir.Reg, 0, len(args))
	for i, a := range args {
		v, err := fl.lowerExpr(a)
		if err != nil {
			return nil, nil, err
		}
		if err := fl.fillSlot(v, slots[i], a.Span); err != nil {
			return nil, nil, err
		}
		if fl.isBorrow(slots[i]) && fl.needsDrop(v) {
			lent = append(lent, v)
		}
		fl.holdTemp(v)
		regs = append(regs, v.reg)
	}
	return regs, lent, nil
}

func (fl *funcLowerer) lowerCall(e *hir.Expr) (value, error) {
	var (
		recv   value
		target *classes.ClassDef
	)
	recv.reg = tir.NoReg
	mark := len(fl.temps)
	if e.Receiver != nil {
		v, err := fl.lowerExpr(e.Receiver)
		if err != nil {
			return value{}, err
		}
		recv = v
		fl.holdTemp(v)
		if def, ok := fl.ctx.classOf(v.typ); ok {
			target = def
		}
	}
	if e.Class != "" {
		def, err := fl.ctx.Classes.Lookup(e.Class)
		if err != nil {
			return value{}, diag.Errorf(diag.DeclUnknownClass, e.Span, "unknown class %q", e.Class)
		}
		target = def
	}
	if target == nil {
		return value{}, diag.Errorf(diag.LowerUnknownMethod, e.Span, "cannot resolve the class of method %q", e.Method)
	}
	m, ok := target.Method(e.Method)
	if !ok {
		return value{}, diag.Errorf(diag.LowerUnknownMethod, e.Span, "class %q has no method %q", target.Name, e.Method)
	}
	if len(e.Args) != len(m.Params) {
		return value{}, diag.Errorf(diag.LowerArgumentCount, e.Span,
			"method %s.%s expects %d arguments, got %d", target.Name, m.Name, len(m.Params), len(e.Args))
	}
	switch {
	case m.IsStatic() && recv.reg != tir.NoReg:
		return value{}, diag.Errorf(diag.LowerUnsupported, e.Span,
			"static method %s.%s cannot be called on a value", target.Name, m.Name)
	case !m.IsStatic() && recv.reg == tir.NoReg:
		return value{}, diag.Errorf(diag.LowerNoReceiver, e.Span,
			"method %s.%s needs a receiver", target.Name, m.Name)
	case m.Receiver == classes.ReceiverOwning && !recv.owned:
		return value{}, diag.Errorf(diag.MoveInvalid, e.Span,
			"method %s.%s takes ownership of its receiver, which must be moved", target.Name, m.Name)
	}
	if e.Try && m.Receiver.IsAsync() {
		return value{}, diag.Errorf(diag.LowerAsyncTry, e.Span,
			"async method %s.%s delivers no result to propagate", target.Name, m.Name)
	}

	var targs []types.TypeID
	if target.IsGeneric() && recv.reg != tir.NoReg {
		targs = fl.ctx.instanceArgs(recv.typ)
	}
	slots := make([]types.TypeID, len(m.Params))
	for i, p := range m.Params {
		slots[i] = fl.instantiate(p.Type, target, targs)
	}
	args, lent, err := fl.lowerArgs(e.Args, slots)
	if err != nil {
		return value{}, err
	}

	// From here on the callee owns the moved arguments and, for an owning
	// method, the receiver. What it only borrows stays pending.
	fl.releaseTemps(mark)
	if m.Receiver != classes.ReceiverOwning {
		fl.holdTemp(recv)
	}
	for _, v := range lent {
		fl.holdTemp(v)
	}

	nilType := fl.ctx.Types.Builtins().Nil
	if m.Receiver.IsAsync() {
		fl.b.Enqueue(e.Span, tir.EnqueueInstr{
			Process: recv.reg,
			Class:   target.Name,
			Method:  m.Name,
			Args:    args,
		})
		fl.dropTemps(mark, e.Span)
		return value{reg: tir.NoReg, typ: nilType}, nil
	}

	ret := m.Returns
	if ret == types.NoTypeID {
		ret = nilType
	} else {
		ret = fl.instantiate(ret, target, targs)
	}

	call := tir.CallInstr{
		Receiver: recv.reg,
		Class:    target.Name,
		Method:   m.Name,
		Args:     args,
		OnError:  tir.NoLabel,
	}
	if !e.Try {
		dst := fl.b.Call(e.Span, call)
		fl.dropTemps(mark, e.Span)
		return value{reg: dst, typ: ret, owned: true}, nil
	}

	// try: the error edge runs the same cleanup as every other exit,
	// pending temporaries included.
	onError, cont := fl.b.NewLabel(), fl.b.NewLabel()
	call.OnError = onError
	dst := fl.b.Call(e.Span, call)
	fl.b.Jump(e.Span, cont)
	fl.b.Mark(onError)
	fl.cleanup(tir.ExitError, e.Span)
	fl.b.Throw(e.Span, dst)
	fl.b.Mark(cont)
	fl.dropTemps(mark, e.Span)
	return value{reg: dst, typ: ret, owned: true}, nil
}

func (fl *funcLowerer) lowerNew(e *hir.Expr) (value, error) {
	def, err := fl.ctx.Classes.Lookup(e.Class)
	if err != nil {
		return value{}, diag.Errorf(diag.DeclUnknownClass, e.Span, "unknown class %q", e.Class)
	}
	if len(e.TypeArgs) != len(def.TypeParams) {
		return value{}, diag.Errorf(diag.DeclTypeArgCount, e.Span,
			"class %q expects %d type arguments, got %d", def.Name, len(def.TypeParams), len(e.TypeArgs))
	}
	typ := fl.ctx.Types.Class(def.Name, e.TypeArgs)
	if len(e.TypeArgs) > 0 {
		if err := fl.ctx.Planner.CheckInstantiation(typ, e.Span); err != nil {
			return value{}, err
		}
	}

	n := tir.NewInstr{Class: def.Name, Type: typ, Tag: -1, Inline: def.Inline}
	fields := def.Fields
	switch {
	case def.IsEnum():
		v, ok := def.Variant(e.Variant)
		if !ok {
			return value{}, diag.Errorf(diag.LowerUnknownVariant, e.Span, "enum %q has no variant %q", def.Name, e.Variant)
		}
		n.Variant, n.Tag = v.Name, v.Tag
		fields = v.Payload
	case e.Variant != "":
		return value{}, diag.Errorf(diag.LowerNotEnum, e.Span, "%q is not an enum, it has no variant %q", def.Name, e.Variant)
	}
	if len(e.Args) != len(fields) {
		return value{}, diag.Errorf(diag.LowerArgumentCount, e.Span,
			"constructing %q takes %d values, got %d", def.Name, len(fields), len(e.Args))
	}
	slots := make([]types.TypeID, len(fields))
	for i, f := range fields {
		slots[i] = fl.instantiate(f.Type, def, e.TypeArgs)
	}
	mark := len(fl.temps)
	args, lent, err := fl.lowerArgs(e.Args, slots)
	if err != nil {
		return value{}, err
	}
	if len(lent) > 0 {
		return value{}, diag.Errorf(diag.MoveInvalid, e.Span,
			"a borrowed field of %q cannot point at a temporary", def.Name)
	}
	fl.releaseTemps(mark)
	n.Args = args
	return value{reg: fl.b.New(e.Span, n), typ: typ, owned: true}, nil
}
