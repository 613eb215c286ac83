// Package lower turns checked, move-annotated method bodies into TIR.
//
// Every body is lowered against a sealed class table and owns its move
// tracker and builder, so distinct methods can be lowered concurrently.
package lower

import (
	"tirc/internal/classes"
	"tirc/internal/drops"
	"tirc/internal/layout"
	"tirc/internal/types"
)

// Context holds the read-only collaborators shared by all lowerings of a
// unit.
type Context struct {
	Types   *types.Interner
	Classes *classes.Table
	Planner *layout.Planner
	Drops   *drops.Synthesizer
}

// NewContext wires a context for a sealed table.
func NewContext(typesIn *types.Interner, table *classes.Table, planner *layout.Planner) *Context {
	return &Context{
		Types:   typesIn,
		Classes: table,
		Planner: planner,
		Drops:   drops.New(typesIn, table),
	}
}

// classOf returns the class of a value of type t, looking through `ref`
// and `mut` wrappers.
func (c *Context) classOf(t types.TypeID) (*classes.ClassDef, bool) {
	tt, ok := c.Types.Lookup(t)
	for ok && (tt.Kind == types.KindRef || tt.Kind == types.KindMut) {
		tt, ok = c.Types.Lookup(tt.Elem)
	}
	if !ok || tt.Kind != types.KindClass {
		return nil, false
	}
	def, err := c.Classes.Lookup(tt.Name)
	if err != nil {
		return nil, false
	}
	return def, true
}

// instanceArgs returns the type arguments of t, looking through wrappers.
func (c *Context) instanceArgs(t types.TypeID) []types.TypeID {
	tt, ok := c.Types.Lookup(t)
	for ok && (tt.Kind == types.KindRef || tt.Kind == types.KindMut) {
		t = tt.Elem
		tt, ok = c.Types.Lookup(t)
	}
	return c.Types.Args(t)
}

// copyable reports whether values of t are copied instead of moved.
func (c *Context) copyable(t types.TypeID) bool {
	return c.Drops.Trivial(t)
}
