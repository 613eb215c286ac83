// Package classes holds the Class Table: the registry of class, enum and
// process definitions of one compilation unit together with their ordered
// field and variant layouts.
package classes

import (
	"tirc/internal/hir"
	"tirc/internal/source"
	"tirc/internal/types"
)

// Kind distinguishes the three class flavours.
type Kind uint8

const (
	KindRegular Kind = iota
	KindEnum
	// KindProcess is an `async class`: an actor with its own mailbox.
	KindProcess
)

func (k Kind) String() string {
	switch k {
	case KindRegular:
		return "class"
	case KindEnum:
		return "enum"
	case KindProcess:
		return "process"
	default:
		return "?"
	}
}

// Qualifier is the declared reference qualifier of a field.
type Qualifier uint8

const (
	// QualOwned fields are exposed according to the method's receiver mode.
	QualOwned Qualifier = iota
	// QualRefOnly fields (`ref T`) are exposed as `ref T` under every mode.
	QualRefOnly
)

func (q Qualifier) String() string {
	if q == QualRefOnly {
		return "ref"
	}
	return "owned"
}

// ReceiverMode is the ownership discipline a method declares for self.
type ReceiverMode uint8

const (
	ReceiverImmutable ReceiverMode = iota
	ReceiverMutable
	ReceiverOwning
	ReceiverStatic
	// ReceiverAsync is an immutable message handler of a process.
	ReceiverAsync
	// ReceiverAsyncMutable is a message handler allowed to mutate process state.
	ReceiverAsyncMutable
)

func (m ReceiverMode) String() string {
	switch m {
	case ReceiverImmutable:
		return "fn"
	case ReceiverMutable:
		return "fn mut"
	case ReceiverOwning:
		return "fn move"
	case ReceiverStatic:
		return "fn static"
	case ReceiverAsync:
		return "fn async"
	case ReceiverAsyncMutable:
		return "fn async mut"
	default:
		return "fn ?"
	}
}

// IsAsync reports whether invoking the method enqueues a message.
func (m ReceiverMode) IsAsync() bool {
	return m == ReceiverAsync || m == ReceiverAsyncMutable
}

// ClassID is the dense index of a class inside its Table.
type ClassID uint32

// FieldDef is one named field of a class or one positional payload slot of
// a variant.
type FieldDef struct {
	Name      string
	Index     int
	Type      types.TypeID
	Qualifier Qualifier
	Span      source.Span
}

// Variant is one case of an enum class.
type Variant struct {
	Name    string
	Tag     int
	Payload []FieldDef
	Span    source.Span
}

// Param is a declared method argument. Arguments are owned by the callee.
type Param struct {
	Name string
	Type types.TypeID
	Span source.Span
}

// MethodDef is a declared method with its checked body.
type MethodDef struct {
	Name     string
	Receiver ReceiverMode
	Params   []Param
	Returns  types.TypeID // NoTypeID when nothing is returned
	Body     *hir.Body
	Span     source.Span

	// Destructor marks the class's explicit teardown method.
	Destructor bool
	// HasCustomDestructor is maintained by the Table: true for every method
	// of a class that defines a teardown method.
	HasCustomDestructor bool
	// Override marks a declaration that means to replace an existing method.
	Override bool

	// Class is the name of the owning class, set by the Table.
	Class string
}

// IsStatic reports whether the method has no receiver.
func (m *MethodDef) IsStatic() bool {
	return m.Receiver == ReceiverStatic
}

// ClassDef is a class/enum/process definition. Fields and Variants are in
// definition order, which fixes positional construction and reverse drop
// order. Definitions are immutable once the Table is sealed.
type ClassDef struct {
	ID         ClassID
	Name       string
	Kind       Kind
	Inline     bool
	TypeParams []string
	Fields     []FieldDef
	Variants   []Variant
	Methods    []*MethodDef
	Span       source.Span

	// HasDestructor is true when one of the methods is the teardown method.
	HasDestructor bool

	methodIndex map[string]int
}

// IsEnum reports whether instances are tagged unions.
func (c *ClassDef) IsEnum() bool { return c.Kind == KindEnum }

// IsProcess reports whether the class is an async process.
func (c *ClassDef) IsProcess() bool { return c.Kind == KindProcess }

// IsGeneric reports whether the class declares type parameters.
func (c *ClassDef) IsGeneric() bool { return len(c.TypeParams) > 0 }

// Field looks a field up by name.
func (c *ClassDef) Field(name string) (*FieldDef, bool) {
	for i := range c.Fields {
		if c.Fields[i].Name == name {
			return &c.Fields[i], true
		}
	}
	return nil, false
}

// Variant looks a variant up by name.
func (c *ClassDef) Variant(name string) (*Variant, bool) {
	for i := range c.Variants {
		if c.Variants[i].Name == name {
			return &c.Variants[i], true
		}
	}
	return nil, false
}

// Method looks a method up by name.
func (c *ClassDef) Method(name string) (*MethodDef, bool) {
	if c.methodIndex == nil {
		for _, m := range c.Methods {
			if m.Name == name {
				return m, true
			}
		}
		return nil, false
	}
	idx, ok := c.methodIndex[normalizeName(name)]
	if !ok {
		return nil, false
	}
	return c.Methods[idx], true
}

// Destructor returns the teardown method, if any.
func (c *ClassDef) Destructor() (*MethodDef, bool) {
	for _, m := range c.Methods {
		if m.Destructor {
			return m, true
		}
	}
	return nil, false
}

// SelfType interns the type of `self`: the class applied to its own
// parameters.
func (c *ClassDef) SelfType(in *types.Interner) types.TypeID {
	if len(c.TypeParams) == 0 {
		return in.Class(c.Name, nil)
	}
	args := make([]types.TypeID, len(c.TypeParams))
	for i, p := range c.TypeParams {
		args[i] = in.Param(p)
	}
	return in.Class(c.Name, args)
}
