package hir

// Small constructors used by the unit loader and by tests.

func Int(v int64) *Expr       { return &Expr{Kind: ExprInt, Int: v} }
func Float(v float64) *Expr   { return &Expr{Kind: ExprFloat, Float: v} }
func String(v string) *Expr   { return &Expr{Kind: ExprString, Str: v} }
func Bool(v bool) *Expr       { return &Expr{Kind: ExprBool, Bool: v} }
func Nil() *Expr              { return &Expr{Kind: ExprNil} }
func Local(name string) *Expr { return &Expr{Kind: ExprLocal, Name: name} }
func Self() *Expr             { return &Expr{Kind: ExprSelf} }
func Field(name string) *Expr { return &Expr{Kind: ExprField, Name: name} }

// MoveLocal transfers ownership out of a local.
func MoveLocal(name string) *Expr { return &Expr{Kind: ExprLocal, Name: name, Move: true} }

// MoveSelf consumes the whole receiver.
func MoveSelf() *Expr { return &Expr{Kind: ExprSelf, Move: true} }

// MoveField moves self.name out of the receiver.
func MoveField(name string) *Expr { return &Expr{Kind: ExprField, Name: name, Move: true} }

// Swap replaces self.name with value and yields the old value.
func Swap(name string, value *Expr) *Expr {
	return &Expr{Kind: ExprSwap, Name: name, Value: value}
}

// Call builds a call of class.method on recv (nil for static calls).
func Call(recv *Expr, class, method string, args ...*Expr) *Expr {
	return &Expr{Kind: ExprCall, Receiver: recv, Class: class, Method: method, Args: args}
}

// New builds a construction of class (variant may be empty).
func New(class, variant string, args ...*Expr) *Expr {
	return &Expr{Kind: ExprNew, Class: class, Variant: variant, Args: args}
}

func Let(name string, value *Expr) *Stmt     { return &Stmt{Kind: StmtLet, Name: name, Value: value} }
func Do(value *Expr) *Stmt                   { return &Stmt{Kind: StmtExpr, Value: value} }
func Assign(field string, value *Expr) *Stmt { return &Stmt{Kind: StmtAssign, Name: field, Value: value} }
func Return(value *Expr) *Stmt               { return &Stmt{Kind: StmtReturn, Value: value} }
func Throw(value *Expr) *Stmt                { return &Stmt{Kind: StmtThrow, Value: value} }

// If builds a conditional statement.
func If(cond *Expr, then, els []*Stmt) *Stmt {
	return &Stmt{Kind: StmtIf, Value: cond, Then: then, Else: els}
}

// Match builds a match over an enum value.
func Match(value *Expr, arms ...*Arm) *Stmt {
	return &Stmt{Kind: StmtMatch, Value: value, Arms: arms}
}

// Case builds a match arm.
func Case(variant string, bindings []string, body ...*Stmt) *Arm {
	return &Arm{Variant: variant, Bindings: bindings, Body: body}
}

// Block wraps statements into a Body.
func Block(stmts ...*Stmt) *Body { return &Body{Stmts: stmts} }
