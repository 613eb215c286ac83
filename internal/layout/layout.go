// Package layout computes memory layouts and validates inline value types.
package layout

import (
	"tirc/internal/classes"
	"tirc/internal/types"
)

// TypeLayout is the ABI layout of a type for a specific Target.
type TypeLayout struct {
	Size  int
	Align int

	// Inline layouts are stored by value with no identity header. All other
	// class instances are pointer-sized handles.
	Inline bool

	// Struct-only:
	FieldOffsets []int

	// Tag-union fields (inline enums).
	TagSize        int
	TagAlign       int
	PayloadOffset  int
	VariantOffsets [][]int
}

// LayoutEngine computes memory layout for types.
type LayoutEngine struct {
	Target  Target
	Types   *types.Interner
	Classes *classes.Table

	cache *cache
}

// New creates a new LayoutEngine for the specified target.
func New(target Target, typesIn *types.Interner, table *classes.Table) *LayoutEngine {
	return &LayoutEngine{
		Target:  target,
		Types:   typesIn,
		Classes: table,
		cache:   newCache(),
	}
}

type layoutState struct {
	stack []types.TypeID
	index map[types.TypeID]int
}

func newLayoutState() *layoutState {
	return &layoutState{
		stack: nil,
		index: make(map[types.TypeID]int, 32),
	}
}

// LayoutOf computes and caches the layout of a type.
func (e *LayoutEngine) LayoutOf(t types.TypeID) (TypeLayout, error) {
	if e == nil {
		return TypeLayout{Size: 0, Align: 1}, nil
	}
	if e.cache == nil {
		e.cache = newCache()
	}
	layout, err := e.layoutOf(t, newLayoutState())
	if err != nil {
		return layout, err
	}
	return layout, nil
}

func (e *LayoutEngine) layoutOf(t types.TypeID, state *layoutState) (TypeLayout, *LayoutError) {
	if cached, ok := e.cache.get(t); ok {
		return cached.Layout, cached.Err
	}

	if idx, ok := state.index[t]; ok {
		cycle := make([]string, 0, len(state.stack)-idx+1)
		for _, id := range state.stack[idx:] {
			cycle = append(cycle, e.Types.String(id))
		}
		cycle = append(cycle, e.Types.String(t))
		err := &LayoutError{
			Kind:  LayoutErrRecursiveInline,
			Type:  t,
			Name:  e.Types.String(t),
			Cycle: cycle,
		}
		e.cache.put(t, &cacheEntry{Layout: TypeLayout{Size: 0, Align: 1}, Err: err})
		return TypeLayout{Size: 0, Align: 1}, err
	}

	state.index[t] = len(state.stack)
	state.stack = append(state.stack, t)
	layout, err := e.computeLayout(t, state)
	state.stack = state.stack[:len(state.stack)-1]
	delete(state.index, t)

	e.cache.put(t, &cacheEntry{Layout: layout, Err: err})
	return layout, err
}

// SizeOf returns the size of a type in bytes.
func (e *LayoutEngine) SizeOf(t types.TypeID) (int, error) {
	l, err := e.LayoutOf(t)
	return l.Size, err
}

// AlignOf returns the alignment requirement of a type in bytes.
func (e *LayoutEngine) AlignOf(t types.TypeID) (int, error) {
	l, err := e.LayoutOf(t)
	return l.Align, err
}

// FieldOffset returns the byte offset of a field of an inline class.
func (e *LayoutEngine) FieldOffset(structT types.TypeID, fieldIdx int) (int, error) {
	l, err := e.LayoutOf(structT)
	if err != nil {
		return 0, err
	}
	if fieldIdx < 0 || fieldIdx >= len(l.FieldOffsets) {
		return 0, nil
	}
	return l.FieldOffsets[fieldIdx], nil
}

// BodyLayout is the storage layout of a non-generic class: the value
// itself for inline classes, the heap body a handle points to otherwise.
func (e *LayoutEngine) BodyLayout(def *classes.ClassDef) (TypeLayout, error) {
	if def.IsGeneric() {
		return TypeLayout{}, &LayoutError{Kind: LayoutErrUnresolvedParam, Name: def.TypeParams[0]}
	}
	state := newLayoutState()
	var (
		lay TypeLayout
		err *LayoutError
	)
	if def.IsEnum() {
		lay, err = e.tagUnionLayout(def, nil, state)
	} else {
		lay, err = e.structLayout(def.Fields, def, nil, state)
	}
	if err != nil {
		return TypeLayout{}, err
	}
	lay.Inline = def.Inline
	return lay, nil
}
