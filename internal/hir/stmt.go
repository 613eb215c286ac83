package hir

import (
	"tirc/internal/source"
	"tirc/internal/types"
)

// StmtKind enumerates statement kinds.
type StmtKind uint8

const (
	StmtInvalid StmtKind = iota
	// StmtLet binds Value to the local Name (optionally typed).
	StmtLet
	// StmtExpr evaluates Value for its effects.
	StmtExpr
	// StmtAssign stores Value into self.Name.
	StmtAssign
	// StmtIf branches on Value.
	StmtIf
	// StmtReturn leaves the body with Value (nil means Nil).
	StmtReturn
	// StmtThrow raises Value as an error.
	StmtThrow
	// StmtMatch dispatches on the variant of the enum Value.
	StmtMatch
)

func (k StmtKind) String() string {
	switch k {
	case StmtLet:
		return "let"
	case StmtExpr:
		return "expr"
	case StmtAssign:
		return "assign"
	case StmtIf:
		return "if"
	case StmtReturn:
		return "return"
	case StmtThrow:
		return "throw"
	case StmtMatch:
		return "match"
	default:
		return "invalid"
	}
}

// Stmt is one checked statement.
type Stmt struct {
	Kind StmtKind
	Span source.Span

	Name  string
	Type  types.TypeID
	Value *Expr

	Then []*Stmt
	Else []*Stmt
	Arms []*Arm
}

// Arm is one case of a match. Bindings are positional over the variant
// payload; an empty name ignores that slot.
type Arm struct {
	Span     source.Span
	Variant  string
	Bindings []string
	Body     []*Stmt
}

// Body is the checked body of one method.
type Body struct {
	Span  source.Span
	Stmts []*Stmt
}
