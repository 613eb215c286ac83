package layout

import (
	"slices"

	"tirc/internal/classes"
	"tirc/internal/diag"
	"tirc/internal/source"
	"tirc/internal/types"
)

// Planner approves or rejects inline classes and computes their layouts.
// It is read-only after the class table is sealed and may be shared by
// concurrent lowerings.
type Planner struct {
	*LayoutEngine
}

// NewPlanner builds a planner on top of a fresh layout engine.
func NewPlanner(target Target, typesIn *types.Interner, table *classes.Table) *Planner {
	return &Planner{LayoutEngine: New(target, typesIn, table)}
}

// CheckClass validates class once per unit. Every class is checked for
// instantiations of inline generics in its field types; inline classes are
// additionally checked for containment, receiver and teardown rules.
func (p *Planner) CheckClass(class *classes.ClassDef) []*diag.Error {
	var errs []*diag.Error
	fields := allFields(class)
	badArgs := make([]bool, len(fields))
	for i, f := range fields {
		if err := p.CheckInstantiation(f.Type, f.Span); err != nil {
			errs = append(errs, diag.Flatten(err)...)
			badArgs[i] = true
		}
	}
	if !class.Inline {
		return errs
	}

	if class.IsProcess() {
		errs = append(errs, diag.Errorf(diag.LayoutInlineProcess, class.Span,
			"process %q cannot be inline", class.Name))
	}
	for i, f := range fields {
		if badArgs[i] || p.inlineCompatible(f.Type, class.TypeParams) {
			continue
		}
		err := diag.Errorf(diag.LayoutNonInlineField, f.Span,
			"field %q of inline class %q has type %s, which is not an inline type",
			f.Name, class.Name, p.Types.String(f.Type)).
			WithNote(class.Span, "inline types may only contain primitives and other inline types")
		if k := p.Types.KindOf(f.Type); k.IsRefCounted() {
			err.WithNote(f.Span, k.String()+" values live behind a shared handle and cannot be copied bitwise")
		}
		errs = append(errs, err)
	}
	for _, m := range class.Methods {
		switch {
		case m.Destructor:
			errs = append(errs, diag.Errorf(diag.LayoutInlineDestructor, m.Span,
				"inline class %q cannot define a teardown method", class.Name))
		case m.Receiver == classes.ReceiverMutable || m.Receiver == classes.ReceiverAsyncMutable:
			errs = append(errs, diag.Errorf(diag.LayoutInlineMutableMethod, m.Span,
				"inline class %q cannot define mutating method %q", class.Name, m.Name))
		}
	}
	if cycle := p.inlineCycle(class); len(cycle) > 0 {
		err := &LayoutError{Kind: LayoutErrRecursiveInline, Name: class.Name, Cycle: cycle}
		errs = append(errs, diag.Errorf(diag.LayoutRecursiveInline, class.Span, "%s", err.Error()))
	}
	return errs
}

func allFields(class *classes.ClassDef) []classes.FieldDef {
	if !class.IsEnum() {
		return class.Fields
	}
	var out []classes.FieldDef
	for i := range class.Variants {
		v := &class.Variants[i]
		for _, f := range v.Payload {
			f.Name = v.Name + "." + f.Name
			out = append(out, f)
		}
	}
	return out
}

// inlineCompatible reports whether a value of type t can be stored in an
// inline type. Type parameters listed in deferred are accepted here and
// checked again at each instantiation site.
func (p *Planner) inlineCompatible(t types.TypeID, deferred []string) bool {
	tt, ok := p.Types.Lookup(t)
	if !ok {
		return false
	}
	switch {
	case tt.Kind.IsPrimitive():
		return true
	case tt.Kind == types.KindParam:
		return slices.Contains(deferred, tt.Name)
	case tt.Kind == types.KindClass:
		def, err := p.Classes.Lookup(tt.Name)
		if err != nil || !def.Inline {
			return false
		}
		for _, a := range p.Types.Args(t) {
			if !p.inlineCompatible(a, deferred) {
				return false
			}
		}
		return true
	default:
		return false
	}
}

// IsInline reports whether values of t are stored inline.
func (p *Planner) IsInline(t types.TypeID) bool {
	return p.inlineCompatible(t, nil)
}

// CheckInstantiation checks the instantiation t of a generic class at span.
// An inline generic applied to a non-inline argument is rejected here, at
// the use site; the generic definition itself stays valid. Instantiations
// nested in the fields of t are checked after substitution.
func (p *Planner) CheckInstantiation(t types.TypeID, span source.Span) error {
	var errs diag.ErrorList
	p.checkInstantiation(t, span, make(map[types.TypeID]struct{}), &errs)
	return errs.Err()
}

func (p *Planner) checkInstantiation(t types.TypeID, span source.Span, seen map[types.TypeID]struct{}, errs *diag.ErrorList) {
	if _, done := seen[t]; done {
		return
	}
	seen[t] = struct{}{}
	tt, ok := p.Types.Lookup(t)
	if !ok {
		return
	}
	switch tt.Kind {
	case types.KindArray, types.KindRef, types.KindMut:
		p.checkInstantiation(tt.Elem, span, seen, errs)
		return
	case types.KindClass:
	default:
		return
	}
	args := p.Types.Args(t)
	for _, a := range args {
		p.checkInstantiation(a, span, seen, errs)
	}
	def, err := p.Classes.Lookup(tt.Name)
	if err != nil || len(args) == 0 {
		return
	}
	if def.Inline {
		for i, a := range args {
			if p.inlineCompatible(a, paramNames(a, p.Types)) {
				continue
			}
			param := "?"
			if i < len(def.TypeParams) {
				param = def.TypeParams[i]
			}
			*errs = append(*errs, diag.Errorf(diag.LayoutNonInlineTypeArgument, span,
				"%s cannot be used as type argument %s of inline class %q: it is not an inline type",
				p.Types.String(a), param, def.Name).
				WithNote(def.Span, "inline class declared here"))
		}
	}
	for _, f := range allFields(def) {
		p.checkInstantiation(p.fieldType(def, args, f.Type), span, seen, errs)
	}
}

// paramNames accepts a bare type parameter argument: it is checked when the
// enclosing generic is instantiated.
func paramNames(t types.TypeID, typesIn *types.Interner) []string {
	if tt, ok := typesIn.Lookup(t); ok && tt.Kind == types.KindParam {
		return []string{tt.Name}
	}
	return nil
}

// inlineCycle finds a chain of inline fields leading back to class.
func (p *Planner) inlineCycle(class *classes.ClassDef) []string {
	path := []string{class.Name}
	visiting := map[string]bool{class.Name: true}
	var walk func(def *classes.ClassDef) []string
	walk = func(def *classes.ClassDef) []string {
		for _, f := range allFields(def) {
			tt, ok := p.Types.Lookup(f.Type)
			if !ok || tt.Kind != types.KindClass {
				continue
			}
			next, err := p.Classes.Lookup(tt.Name)
			if err != nil || !next.Inline {
				continue
			}
			if next.Name == class.Name {
				return append(slices.Clone(path), next.Name)
			}
			if visiting[next.Name] {
				continue
			}
			visiting[next.Name] = true
			path = append(path, next.Name)
			if cycle := walk(next); cycle != nil {
				return cycle
			}
			path = path[:len(path)-1]
		}
		return nil
	}
	return walk(class)
}

// Stats reports how many layouts, failed ones included, are cached.
func (p *Planner) Stats() int { return p.cache.len() }
