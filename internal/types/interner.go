package types

import (
	"fmt"
	"slices"
	"strings"
	"sync"

	"fortio.org/safecast"
)

// Builtins stores TypeIDs for common primitive types.
type Builtins struct {
	Nil     TypeID
	Bool    TypeID
	Int     TypeID
	Float   TypeID
	Pointer TypeID
	String  TypeID
}

// Interner provides stable TypeIDs by hashing structural descriptors.
//
// It is filled during the declaration pass and keeps growing while bodies are
// lowered (ref/mut exposures, instantiations), so access is synchronized.
type Interner struct {
	mu       sync.RWMutex
	types    []Type
	index    map[Type]TypeID
	args     [][]TypeID
	argIndex map[string]uint32
	builtins Builtins
}

// NewInterner constructs an interner seeded with built-in primitives.
func NewInterner() *Interner {
	in := &Interner{
		types:    []Type{{Kind: KindInvalid}}, // reserve 0 as NoTypeID
		index:    make(map[Type]TypeID, 64),
		args:     [][]TypeID{nil}, // slot 0 means "no arguments"
		argIndex: make(map[string]uint32, 16),
	}
	in.builtins.Nil = in.Intern(Type{Kind: KindNil})
	in.builtins.Bool = in.Intern(Type{Kind: KindBool})
	in.builtins.Int = in.Intern(MakeInt(Width64))
	in.builtins.Float = in.Intern(MakeFloat(Width64))
	in.builtins.Pointer = in.Intern(Type{Kind: KindPointer})
	in.builtins.String = in.Intern(Type{Kind: KindString})
	return in
}

// Builtins returns TypeIDs for primitive types.
func (in *Interner) Builtins() Builtins {
	return in.builtins
}

// Intern ensures the provided descriptor has a stable TypeID.
func (in *Interner) Intern(t Type) TypeID {
	if t.Kind == KindInvalid {
		return NoTypeID
	}
	in.mu.Lock()
	defer in.mu.Unlock()
	return in.internLocked(t)
}

func (in *Interner) internLocked(t Type) TypeID {
	if id, ok := in.index[t]; ok {
		return id
	}
	n, err := safecast.Conv[uint32](len(in.types))
	if err != nil {
		panic(fmt.Errorf("len(types) overflow: %w", err))
	}
	id := TypeID(n)
	in.types = append(in.types, t)
	in.index[t] = id
	return id
}

// Lookup returns the descriptor for a TypeID.
func (in *Interner) Lookup(id TypeID) (Type, bool) {
	in.mu.RLock()
	defer in.mu.RUnlock()
	if id == NoTypeID || int(id) >= len(in.types) {
		return Type{}, false
	}
	return in.types[id], true
}

// KindOf is a shortcut for Lookup(id).Kind.
func (in *Interner) KindOf(id TypeID) Kind {
	tt, _ := in.Lookup(id)
	return tt.Kind
}

// Class interns an instance of the named class with the given type arguments.
func (in *Interner) Class(name string, args []TypeID) TypeID {
	in.mu.Lock()
	defer in.mu.Unlock()
	return in.internLocked(Type{Kind: KindClass, Name: name, Payload: in.argSlotLocked(args)})
}

// Param interns a type parameter reference.
func (in *Interner) Param(name string) TypeID {
	return in.Intern(Type{Kind: KindParam, Name: name})
}

// Array interns a heap array of elem.
func (in *Interner) Array(elem TypeID) TypeID {
	return in.Intern(Type{Kind: KindArray, Elem: elem})
}

// Ref interns an immutable borrow of elem.
func (in *Interner) Ref(elem TypeID) TypeID {
	return in.Intern(Type{Kind: KindRef, Elem: elem})
}

// Mut interns a mutable borrow of elem.
func (in *Interner) Mut(elem TypeID) TypeID {
	return in.Intern(Type{Kind: KindMut, Elem: elem})
}

// Args returns a copy of the type arguments of a class instance.
func (in *Interner) Args(id TypeID) []TypeID {
	in.mu.RLock()
	defer in.mu.RUnlock()
	if id == NoTypeID || int(id) >= len(in.types) {
		return nil
	}
	tt := in.types[id]
	if tt.Kind != KindClass || tt.Payload == 0 {
		return nil
	}
	return slices.Clone(in.args[tt.Payload])
}

func (in *Interner) argSlotLocked(args []TypeID) uint32 {
	if len(args) == 0 {
		return 0
	}
	var key strings.Builder
	for i, a := range args {
		if i > 0 {
			key.WriteByte(',')
		}
		fmt.Fprintf(&key, "%d", a)
	}
	if slot, ok := in.argIndex[key.String()]; ok {
		return slot
	}
	slot, err := safecast.Conv[uint32](len(in.args))
	if err != nil {
		panic(fmt.Errorf("type argument slots overflow: %w", err))
	}
	in.args = append(in.args, slices.Clone(args))
	in.argIndex[key.String()] = slot
	return slot
}

// Substitute replaces type parameters named in params by the matching args,
// recursing through arrays, borrows and class instances.
func (in *Interner) Substitute(id TypeID, params []string, args []TypeID) TypeID {
	if len(params) == 0 || id == NoTypeID {
		return id
	}
	tt, ok := in.Lookup(id)
	if !ok {
		return id
	}
	switch tt.Kind {
	case KindParam:
		for i, p := range params {
			if p == tt.Name && i < len(args) {
				return args[i]
			}
		}
		return id
	case KindArray:
		return in.Array(in.Substitute(tt.Elem, params, args))
	case KindRef:
		return in.Ref(in.Substitute(tt.Elem, params, args))
	case KindMut:
		return in.Mut(in.Substitute(tt.Elem, params, args))
	case KindClass:
		inner := in.Args(id)
		if len(inner) == 0 {
			return id
		}
		for i := range inner {
			inner[i] = in.Substitute(inner[i], params, args)
		}
		return in.Class(tt.Name, inner)
	default:
		return id
	}
}

// String renders a type the way unit files spell it.
func (in *Interner) String(id TypeID) string {
	tt, ok := in.Lookup(id)
	if !ok {
		return "<invalid>"
	}
	switch tt.Kind {
	case KindNil:
		return "Nil"
	case KindBool:
		return "Bool"
	case KindInt:
		if tt.Width == WidthAny || tt.Width == Width64 {
			return "Int"
		}
		return fmt.Sprintf("Int%d", tt.Width)
	case KindFloat:
		if tt.Width == WidthAny || tt.Width == Width64 {
			return "Float"
		}
		return fmt.Sprintf("Float%d", tt.Width)
	case KindPointer:
		return "Pointer"
	case KindString:
		return "String"
	case KindArray:
		return "Array[" + in.String(tt.Elem) + "]"
	case KindRef:
		return "ref " + in.String(tt.Elem)
	case KindMut:
		return "mut " + in.String(tt.Elem)
	case KindParam:
		return tt.Name
	case KindClass:
		args := in.Args(id)
		if len(args) == 0 {
			return tt.Name
		}
		parts := make([]string, len(args))
		for i, a := range args {
			parts[i] = in.String(a)
		}
		return tt.Name + "[" + strings.Join(parts, ", ") + "]"
	default:
		return tt.Kind.String()
	}
}
