package types

import "fmt"

// TypeID uniquely identifies a type inside the interner.
type TypeID uint32

// NoTypeID marks the absence of a type.
const NoTypeID TypeID = 0

// Kind is the shape of a Type.
type Kind uint8

const (
	KindInvalid Kind = iota
	KindNil
	KindBool
	KindInt
	KindFloat
	KindPointer
	KindString
	KindArray
	KindClass // user class instance: Name plus type arguments
	KindParam // type parameter of a generic class
	KindRef
	KindMut
)

var kindNames = [...]string{
	KindInvalid: "invalid",
	KindNil:     "nil",
	KindBool:    "bool",
	KindInt:     "int",
	KindFloat:   "float",
	KindPointer: "pointer",
	KindString:  "string",
	KindArray:   "array",
	KindClass:   "class",
	KindParam:   "param",
	KindRef:     "ref",
	KindMut:     "mut",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("Kind(%d)", k)
}

// Width is the bit size of a numeric primitive. WidthAny lays out as 64 bits.
type Width uint8

const (
	WidthAny Width = 0
	Width32  Width = 32
	Width64  Width = 64
)

// Type is the interned descriptor. It is comparable, so equal descriptors
// share one TypeID.
type Type struct {
	Kind    Kind
	Width   Width  // Int and Float
	Elem    TypeID // Array, Ref and Mut
	Name    string // Class and Param
	Payload uint32 // Class: argument list slot, 0 for none
}

func MakeInt(width Width) Type   { return Type{Kind: KindInt, Width: width} }
func MakeFloat(width Width) Type { return Type{Kind: KindFloat, Width: width} }

// IsPrimitive reports whether the kind belongs to the fixed primitive set that
// inline types may contain directly.
func (k Kind) IsPrimitive() bool {
	switch k {
	case KindNil, KindBool, KindInt, KindFloat, KindPointer:
		return true
	default:
		return false
	}
}

// IsRefCounted reports whether values of the kind live behind a
// reference-counted or heap-identity handle regardless of declarations.
func (k Kind) IsRefCounted() bool {
	switch k {
	case KindString, KindArray, KindRef, KindMut:
		return true
	default:
		return false
	}
}
