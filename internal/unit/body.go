package unit

import (
	"tirc/internal/diag"
	"tirc/internal/hir"
	"tirc/internal/source"
)

// bodyConverter turns statement and expression tables into hir trees.
// Nodes without an `at` position inherit the span of their parent.
type bodyConverter struct {
	l     *loader
	scope *typeScope
}

func (c *bodyConverter) stmts(docs []stmtDoc, parent source.Span) []*hir.Stmt {
	out := make([]*hir.Stmt, 0, len(docs))
	for i := range docs {
		if s := c.stmt(&docs[i], parent); s != nil {
			out = append(out, s)
		}
	}
	return out
}

func (c *bodyConverter) stmt(d *stmtDoc, parent source.Span) *hir.Stmt {
	span := c.l.at(d.At, parent)
	s := &hir.Stmt{Span: span}
	switch d.Op {
	case "let":
		s.Kind = hir.StmtLet
		s.Name = c.l.require(d.Name, "let.name", span)
		if d.Type != "" {
			s.Type = c.l.typeOf(c.scope, d.Type, span)
		}
		s.Value = c.requireExpr(d.Value, "let.value", span)
	case "expr":
		s.Kind = hir.StmtExpr
		s.Value = c.requireExpr(d.Value, "expr.value", span)
	case "assign":
		s.Kind = hir.StmtAssign
		s.Name = c.l.require(d.Name, "assign.name", span)
		s.Value = c.requireExpr(d.Value, "assign.value", span)
	case "return":
		s.Kind = hir.StmtReturn
		s.Value = c.expr(d.Value, span)
	case "throw":
		s.Kind = hir.StmtThrow
		s.Value = c.requireExpr(d.Value, "throw.value", span)
	case "if":
		s.Kind = hir.StmtIf
		s.Value = c.requireExpr(d.Cond, "if.cond", span)
		s.Then = c.stmts(d.Then, span)
		s.Else = c.stmts(d.Else, span)
	case "match":
		s.Kind = hir.StmtMatch
		s.Value = c.requireExpr(d.Value, "match.value", span)
		for i := range d.Arms {
			a := &d.Arms[i]
			armSpan := c.l.at(a.At, span)
			s.Arms = append(s.Arms, &hir.Arm{
				Span:     armSpan,
				Variant:  c.l.require(a.Variant, "arm.variant", armSpan),
				Bindings: a.Bindings,
				Body:     c.stmts(a.Body, armSpan),
			})
		}
	case "":
		c.l.errorf(diag.UnitInvalidValue, span, "statement without op")
		return nil
	default:
		c.l.errorf(diag.UnitInvalidValue, span, "unknown statement op %q", d.Op)
		return nil
	}
	return s
}

func (c *bodyConverter) requireExpr(d *exprDoc, what string, span source.Span) *hir.Expr {
	if d == nil {
		c.l.errorf(diag.UnitInvalidValue, span, "missing %s", what)
		return nil
	}
	return c.expr(d, span)
}

func (c *bodyConverter) expr(d *exprDoc, parent source.Span) *hir.Expr {
	if d == nil {
		return nil
	}
	span := c.l.at(d.At, parent)
	e := &hir.Expr{Span: span, Move: d.Move, Try: d.Try}
	switch d.Op {
	case "int":
		e.Kind, e.Int = hir.ExprInt, d.Int
	case "float":
		e.Kind, e.Float = hir.ExprFloat, d.Float
	case "string":
		e.Kind, e.Str = hir.ExprString, d.Str
	case "bool":
		e.Kind, e.Bool = hir.ExprBool, d.Bool
	case "nil":
		e.Kind = hir.ExprNil
	case "local":
		e.Kind = hir.ExprLocal
		e.Name = c.l.require(d.Name, "local.name", span)
	case "self":
		e.Kind = hir.ExprSelf
	case "field":
		e.Kind = hir.ExprField
		e.Name = c.l.require(d.Name, "field.name", span)
	case "swap":
		e.Kind = hir.ExprSwap
		e.Name = c.l.require(d.Name, "swap.name", span)
		e.Value = c.requireExpr(d.Value, "swap.value", span)
	case "call":
		e.Kind = hir.ExprCall
		e.Receiver = c.expr(d.Receiver, span)
		e.Class = d.Class
		e.Method = c.l.require(d.Method, "call.method", span)
		if e.Receiver == nil && e.Class == "" {
			c.l.errorf(diag.UnitInvalidValue, span, "call of %q needs a receiver or a class", d.Method)
		}
		e.Args = c.exprs(d.Args, span)
	case "new":
		e.Kind = hir.ExprNew
		e.Class = c.l.require(d.Class, "new.class", span)
		e.Variant = d.Variant
		for _, ta := range d.TypeArgs {
			e.TypeArgs = append(e.TypeArgs, c.l.typeOf(c.scope, ta, span))
		}
		e.Args = c.exprs(d.Args, span)
	case "":
		c.l.errorf(diag.UnitInvalidValue, span, "expression without op")
		return nil
	default:
		c.l.errorf(diag.UnitInvalidValue, span, "unknown expression op %q", d.Op)
		return nil
	}
	return e
}

func (c *bodyConverter) exprs(docs []exprDoc, span source.Span) []*hir.Expr {
	if len(docs) == 0 {
		return nil
	}
	out := make([]*hir.Expr, 0, len(docs))
	for i := range docs {
		out = append(out, c.expr(&docs[i], span))
	}
	return out
}
