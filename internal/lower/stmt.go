package lower

import (
	"tirc/internal/diag"
	"tirc/internal/hir"
	"tirc/internal/ownership"
	"tirc/internal/source"
	"tirc/internal/tir"
	"tirc/internal/types"
)

// lowerStmts lowers a statement list and reports whether control left it
// through return or throw. Statements after such an exit are unreachable
// and not lowered.
func (fl *funcLowerer) lowerStmts(stmts []*hir.Stmt) (bool, error) {
	for _, s := range stmts {
		terminated, err := fl.lowerStmt(s)
		if err != nil {
			return false, err
		}
		if terminated {
			return true, nil
		}
	}
	return false, nil
}

// lowerBlock lowers stmts in a fresh scope.
func (fl *funcLowerer) lowerBlock(stmts []*hir.Stmt, end source.Span) (bool, error) {
	fl.pushScope()
	terminated, err := fl.lowerStmts(stmts)
	if err != nil {
		return false, err
	}
	fl.popScope(terminated, end)
	return terminated, nil
}

func (fl *funcLowerer) lowerStmt(s *hir.Stmt) (bool, error) {
	switch s.Kind {
	case hir.StmtLet:
		return false, fl.lowerLet(s)
	case hir.StmtExpr:
		v, err := fl.lowerExpr(s.Value)
		if err != nil {
			return false, err
		}
		fl.dropTemp(v, s.Span)
		return false, nil
	case hir.StmtAssign:
		return false, fl.lowerAssign(s)
	case hir.StmtReturn:
		return true, fl.lowerReturn(s)
	case hir.StmtThrow:
		return true, fl.lowerThrow(s)
	case hir.StmtIf:
		return fl.lowerIf(s)
	case hir.StmtMatch:
		return fl.lowerMatch(s)
	default:
		return false, diag.Errorf(diag.LowerUnsupported, s.Span, "unsupported statement %s", s.Kind)
	}
}

func (fl *funcLowerer) lowerLet(s *hir.Stmt) error {
	v, err := fl.lowerExpr(s.Value)
	if err != nil {
		return err
	}
	typ := v.typ
	if s.Type != types.NoTypeID && v.owned {
		typ = s.Type
	}
	reg := v.reg
	if reg == tir.NoReg {
		reg = fl.b.Const(s.Span, tir.ConstInstr{Kind: tir.ConstNil, Type: fl.ctx.Types.Builtins().Nil})
	}
	fl.bind(s.Name, reg, typ, v.owned).from = v.from
	return nil
}

func (fl *funcLowerer) lowerAssign(s *hir.Stmt) error {
	if fl.class.Inline {
		return diag.Errorf(diag.LayoutInlineFieldAssign, s.Span,
			"fields of inline class %q cannot be assigned", fl.class.Name)
	}
	if err := fl.tracker.WriteField(s.Name, s.Span); err != nil {
		return err
	}
	f, ok := fl.class.Field(s.Name)
	if !ok {
		return diag.Errorf(diag.LowerUnknownField, s.Span, "class %q has no field %q", fl.class.Name, s.Name)
	}
	v, err := fl.lowerExpr(s.Value)
	if err != nil {
		return err
	}
	if err := fl.fillSlot(v, f.Type, s.Span); err != nil {
		return err
	}
	fl.b.FieldWrite(s.Span, tir.FieldInstr{
		Object:  fl.self,
		Class:   fl.class.Name,
		Field:   f.Name,
		Index:   f.Index,
		Type:    f.Type,
		Mode:    fl.tracker.Mode(f),
		Value:   v.reg,
		DropOld: !fl.ctx.copyable(f.Type),
	})
	return nil
}

func (fl *funcLowerer) lowerReturn(s *hir.Stmt) error {
	ret := tir.NoReg
	if s.Value != nil {
		v, err := fl.lowerExpr(s.Value)
		if err != nil {
			return err
		}
		if err := fl.checkReturn(v, s.Span); err != nil {
			return err
		}
		ret = v.reg
	}
	fl.cleanup(tir.ExitReturn, s.Span)
	fl.b.Return(s.Span, ret)
	return nil
}

func (fl *funcLowerer) lowerThrow(s *hir.Stmt) error {
	v, err := fl.lowerExpr(s.Value)
	if err != nil {
		return err
	}
	if !v.owned && !fl.ctx.copyable(v.typ) {
		return diag.Errorf(diag.MoveInvalid, s.Span, "cannot throw borrowed %s: move it instead", fl.ctx.Types.String(v.typ))
	}
	if v.reg == tir.NoReg {
		v.reg = fl.b.Const(s.Span, tir.ConstInstr{Kind: tir.ConstNil, Type: fl.ctx.Types.Builtins().Nil})
	}
	fl.cleanup(tir.ExitError, s.Span)
	fl.b.Throw(s.Span, v.reg)
	return nil
}

// checkReturn checks that a returned borrow outlives the body: the method
// must return a borrow, and the borrowed storage must survive the cleanup
// of the return edge.
func (fl *funcLowerer) checkReturn(v value, span source.Span) error {
	if v.owned || fl.ctx.copyable(v.typ) {
		return nil
	}
	switch {
	case !fl.isBorrow(fl.method.Returns):
		return diag.Errorf(diag.MoveInvalid, span,
			"method %q returns an owned value, but %s is borrowed: move it instead", fl.method.Name, fl.ctx.Types.String(v.typ))
	case v.from.local != nil:
		return diag.Errorf(diag.MoveInvalid, span,
			"cannot return a borrow of %q, which is dropped on return", v.from.local.name)
	case v.from.self && fl.mode == ownership.Owned:
		return diag.Errorf(diag.MoveInvalid, span,
			"method %q drops its receiver on return and cannot return a borrow of it", fl.method.Name)
	}
	return nil
}
