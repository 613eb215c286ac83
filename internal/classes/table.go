package classes

import (
	"errors"
	"fmt"

	"fortio.org/safecast"
	"golang.org/x/text/unicode/norm"

	"tirc/internal/diag"
	"tirc/internal/source"
)

// ErrSealed is returned by Define and Reopen once the declaration pass ended.
var ErrSealed = errors.New("class table is sealed")

// Reopening is an `impl` block adding methods to an existing class.
// Fields are carried only so they can be rejected.
type Reopening struct {
	Span    source.Span
	Fields  []FieldDef
	Methods []*MethodDef
}

// Table is the registry of every class of one compilation unit.
//
// The declaration pass is the only writer. After Seal the table and every
// ClassDef it holds are read-only and may be shared between goroutines.
type Table struct {
	classes []*ClassDef
	index   map[string]ClassID
	sealed  bool
}

// NewTable creates an empty table.
func NewTable() *Table {
	return &Table{index: make(map[string]ClassID)}
}

func normalizeName(name string) string {
	return norm.NFC.String(name)
}

// Define validates and registers a class definition. All shape problems of
// the definition are reported together; a rejected definition is not
// registered.
func (t *Table) Define(def *ClassDef) error {
	if t.sealed {
		return ErrSealed
	}
	if def == nil {
		return errors.New("nil class definition")
	}
	def.Name = normalizeName(def.Name)

	var errs diag.ErrorList
	if prev, ok := t.index[def.Name]; ok {
		err := diag.Errorf(diag.DeclDuplicateClass, def.Span, "class %q is already defined", def.Name).
			WithNote(t.classes[prev].Span, "previous definition is here")
		errs = append(errs, err)
	}
	errs = append(errs, checkShape(def)...)
	if len(errs) > 0 {
		return errs
	}

	id, err := safecast.Conv[uint32](len(t.classes))
	if err != nil {
		return fmt.Errorf("too many classes: %w", err)
	}
	install(def)
	def.ID = ClassID(id)
	t.classes = append(t.classes, def)
	t.index[def.Name] = def.ID
	return nil
}

// checkShape reports every member-level problem of a fresh definition.
func checkShape(def *ClassDef) diag.ErrorList {
	var errs diag.ErrorList

	if def.Kind == KindEnum && len(def.Fields) > 0 {
		errs = append(errs, diag.Errorf(diag.DeclEnumWithFields, def.Fields[0].Span,
			"enum %q cannot declare fields, use variants instead", def.Name))
	}
	if def.Kind != KindEnum && len(def.Variants) > 0 {
		errs = append(errs, diag.Errorf(diag.DeclVariantsOnNonEnum, def.Variants[0].Span,
			"only enums can declare variants, %q is a %s", def.Name, def.Kind))
	}

	params := make(map[string]struct{}, len(def.TypeParams))
	for i, p := range def.TypeParams {
		p = normalizeName(p)
		def.TypeParams[i] = p
		if _, dup := params[p]; dup {
			errs = append(errs, diag.Errorf(diag.DeclDuplicateMember, def.Span,
				"type parameter %q of %q is declared twice", p, def.Name))
		}
		params[p] = struct{}{}
	}

	seen := make(map[string]source.Span, len(def.Fields))
	for i := range def.Fields {
		f := &def.Fields[i]
		f.Name = normalizeName(f.Name)
		if prev, dup := seen[f.Name]; dup {
			errs = append(errs, diag.Errorf(diag.DeclDuplicateMember, f.Span,
				"field %q of %q is declared twice", f.Name, def.Name).WithNote(prev, "first declared here"))
			continue
		}
		seen[f.Name] = f.Span
	}

	variants := make(map[string]source.Span, len(def.Variants))
	for i := range def.Variants {
		v := &def.Variants[i]
		v.Name = normalizeName(v.Name)
		if prev, dup := variants[v.Name]; dup {
			errs = append(errs, diag.Errorf(diag.DeclDuplicateMember, v.Span,
				"variant %q of %q is declared twice", v.Name, def.Name).WithNote(prev, "first declared here"))
			continue
		}
		variants[v.Name] = v.Span
	}

	methods := make(map[string]source.Span, len(def.Methods))
	destructors := 0
	for _, m := range def.Methods {
		if m == nil {
			continue
		}
		m.Name = normalizeName(m.Name)
		if prev, dup := methods[m.Name]; dup {
			errs = append(errs, diag.Errorf(diag.DeclDuplicateMember, m.Span,
				"method %q of %q is declared twice", m.Name, def.Name).WithNote(prev, "first declared here"))
		} else {
			methods[m.Name] = m.Span
		}
		if m.Destructor {
			destructors++
			if err := checkDestructor(def.Name, m, destructors); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errs
}

func checkDestructor(class string, m *MethodDef, nth int) *diag.Error {
	if nth > 1 {
		return diag.Errorf(diag.DeclInvalidDestructor, m.Span,
			"class %q declares more than one teardown method", class)
	}
	if m.Receiver != ReceiverMutable {
		return diag.Errorf(diag.DeclInvalidDestructor, m.Span,
			"teardown method %q must use a mutable receiver, found `%s`", m.Name, m.Receiver)
	}
	return nil
}

// install fills derived fields of a validated definition.
func install(def *ClassDef) {
	for i := range def.Fields {
		def.Fields[i].Index = i
	}
	for i := range def.Variants {
		v := &def.Variants[i]
		v.Tag = i
		for j := range v.Payload {
			v.Payload[j].Index = j
			v.Payload[j].Name = fmt.Sprint(j)
		}
	}
	methods := def.Methods[:0]
	for _, m := range def.Methods {
		if m != nil {
			methods = append(methods, m)
		}
	}
	def.Methods = methods
	def.methodIndex = make(map[string]int, len(def.Methods))
	for i, m := range def.Methods {
		m.Class = def.Name
		def.methodIndex[m.Name] = i
	}
	refreshDestructorFlags(def)
}

func refreshDestructorFlags(def *ClassDef) {
	def.HasDestructor = false
	for _, m := range def.Methods {
		if m.Destructor {
			def.HasDestructor = true
			break
		}
	}
	for _, m := range def.Methods {
		m.HasCustomDestructor = def.HasDestructor
	}
}

// Reopen appends the methods of an `impl` block to an existing class.
// A reopening can only add methods whose names are new to the class; any
// error leaves the class exactly as it was.
func (t *Table) Reopen(name string, impl Reopening) error {
	if t.sealed {
		return ErrSealed
	}
	name = normalizeName(name)
	id, ok := t.index[name]
	if !ok {
		return diag.Errorf(diag.DeclUnknownClass, impl.Span, "cannot reopen unknown class %q", name)
	}
	def := t.classes[id]

	var errs diag.ErrorList
	for _, f := range impl.Fields {
		errs = append(errs, diag.Errorf(diag.DeclFieldOrOverride, f.Span,
			"field %q cannot be added to %q in a reopening", f.Name, name).
			WithNote(def.Span, "fields must be declared with the class"))
	}

	names := make([]string, len(impl.Methods))
	fresh := make(map[string]source.Span, len(impl.Methods))
	destructors := 0
	if def.HasDestructor {
		destructors = 1
	}
	for i, m := range impl.Methods {
		if m == nil {
			continue
		}
		n := normalizeName(m.Name)
		names[i] = n
		existing, clash := def.Method(n)
		switch {
		case m.Override:
			err := diag.Errorf(diag.DeclFieldOrOverride, m.Span,
				"method %q cannot be overridden in a reopening of %q", n, name)
			if clash {
				err = err.WithNote(existing.Span, "original method is here")
			}
			errs = append(errs, err)
		case clash:
			errs = append(errs, diag.Errorf(diag.DeclDuplicateMember, m.Span,
				"class %q already has a method named %q", name, n).
				WithNote(existing.Span, "existing method is here"))
		default:
			if prev, dup := fresh[n]; dup {
				errs = append(errs, diag.Errorf(diag.DeclDuplicateMember, m.Span,
					"method %q is declared twice in this reopening", n).WithNote(prev, "first declared here"))
			}
		}
		fresh[n] = m.Span
		if m.Destructor {
			destructors++
			if err := checkDestructor(name, m, destructors); err != nil {
				errs = append(errs, err)
			}
		}
	}
	if len(errs) > 0 {
		return errs
	}

	for i, m := range impl.Methods {
		if m == nil {
			continue
		}
		m.Name = names[i]
		m.Class = def.Name
		def.methodIndex[m.Name] = len(def.Methods)
		def.Methods = append(def.Methods, m)
	}
	refreshDestructorFlags(def)
	return nil
}

// Lookup finds a class by name.
func (t *Table) Lookup(name string) (*ClassDef, error) {
	name = normalizeName(name)
	if id, ok := t.index[name]; ok {
		return t.classes[id], nil
	}
	return nil, diag.Errorf(diag.DeclUnknownClass, source.NoSpan, "unknown class %q", name)
}

// Classes lists every class in definition order.
func (t *Table) Classes() []*ClassDef {
	out := make([]*ClassDef, len(t.classes))
	copy(out, t.classes)
	return out
}

// Len reports the number of classes.
func (t *Table) Len() int { return len(t.classes) }

// Seal ends the declaration pass.
func (t *Table) Seal() { t.sealed = true }
