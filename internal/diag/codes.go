package diag

import (
	"fmt"
)

type Code uint16

const (
	// Used when no specific code applies.
	UnknownCode Code = 0

	// Declaration shape (Class Table)
	DeclInfo              Code = 1000
	DeclDuplicateClass    Code = 1001
	DeclUnknownClass      Code = 1002
	DeclDuplicateMember   Code = 1003
	DeclFieldOrOverride   Code = 1004
	DeclEnumWithFields    Code = 1005
	DeclVariantsOnNonEnum Code = 1006
	DeclInvalidDestructor Code = 1007
	DeclUnknownType       Code = 1008
	DeclTypeArgCount      Code = 1009

	// Move discipline
	MoveInfo                Code = 2000
	MoveInvalid             Code = 2001
	MoveAlreadyMoved        Code = 2002
	MoveUseAfterMove        Code = 2003
	MoveBlockedByDestructor Code = 2004
	MoveInvalidSwap         Code = 2005
	MoveInvalidAssign       Code = 2006

	// Inline layout
	LayoutInfo                  Code = 3000
	LayoutNonInlineField        Code = 3001
	LayoutNonInlineTypeArgument Code = 3002
	LayoutInlineMutableMethod   Code = 3003
	LayoutInlineFieldAssign     Code = 3004
	LayoutInlineDestructor      Code = 3005
	LayoutInlineProcess         Code = 3006
	LayoutRecursiveInline       Code = 3007

	// Lowering
	LowerInfo           Code = 4000
	LowerUnknownField   Code = 4001
	LowerUnknownMethod  Code = 4002
	LowerUnknownLocal   Code = 4003
	LowerUnknownVariant Code = 4004
	LowerArgumentCount  Code = 4005
	LowerNoReceiver     Code = 4006
	LowerAsyncTry       Code = 4007
	LowerNotEnum        Code = 4008
	LowerUnsupported    Code = 4009

	// Unit files
	UnitInfo         Code = 5000
	UnitLoadError    Code = 5001
	UnitSyntax       Code = 5002
	UnitFormat       Code = 5003
	UnitInvalidValue Code = 5004
	UnitBadTypeExpr  Code = 5005
)

var codeDescription = map[Code]string{
	UnknownCode:                 "Unknown error",
	DeclInfo:                    "Declaration information",
	DeclDuplicateClass:          "Duplicate class",
	DeclUnknownClass:            "Unknown class",
	DeclDuplicateMember:         "Duplicate member",
	DeclFieldOrOverride:         "Field or override in impl",
	DeclEnumWithFields:          "Enum class declares fields",
	DeclVariantsOnNonEnum:       "Variants on a non-enum class",
	DeclInvalidDestructor:       "Invalid destructor declaration",
	DeclUnknownType:             "Unknown type",
	DeclTypeArgCount:            "Wrong number of type arguments",
	MoveInfo:                    "Move information",
	MoveInvalid:                 "Invalid move",
	MoveAlreadyMoved:            "Value already moved",
	MoveUseAfterMove:            "Use after move",
	MoveBlockedByDestructor:     "Move blocked by destructor",
	MoveInvalidSwap:             "Invalid swap",
	MoveInvalidAssign:           "Invalid field assignment",
	LayoutInfo:                  "Layout information",
	LayoutNonInlineField:        "Non-inline field in inline type",
	LayoutNonInlineTypeArgument: "Non-inline type argument",
	LayoutInlineMutableMethod:   "Mutable method on inline type",
	LayoutInlineFieldAssign:     "Field assignment on inline type",
	LayoutInlineDestructor:      "Destructor on inline type",
	LayoutInlineProcess:         "Inline process",
	LayoutRecursiveInline:       "Recursive inline type",
	LowerInfo:                   "Lowering information",
	LowerUnknownField:           "Unknown field",
	LowerUnknownMethod:          "Unknown method",
	LowerUnknownLocal:           "Unknown local",
	LowerUnknownVariant:         "Unknown variant",
	LowerArgumentCount:          "Wrong number of arguments",
	LowerNoReceiver:             "No receiver in static method",
	LowerAsyncTry:               "Async call cannot propagate errors",
	LowerNotEnum:                "Match on a non-enum value",
	LowerUnsupported:            "Unsupported construct",
	UnitInfo:                    "Unit information",
	UnitLoadError:               "Failed to load unit",
	UnitSyntax:                  "Unit syntax error",
	UnitFormat:                  "Unsupported unit format",
	UnitInvalidValue:            "Invalid value in unit",
	UnitBadTypeExpr:             "Malformed type expression",
}

func (c Code) ID() string {
	switch ic := int(c); {
	case ic >= 1000 && ic < 2000:
		return fmt.Sprintf("DCL%04d", ic)
	case ic >= 2000 && ic < 3000:
		return fmt.Sprintf("MOV%04d", ic)
	case ic >= 3000 && ic < 4000:
		return fmt.Sprintf("LAY%04d", ic)
	case ic >= 4000 && ic < 5000:
		return fmt.Sprintf("LOW%04d", ic)
	case ic >= 5000 && ic < 6000:
		return fmt.Sprintf("UNT%04d", ic)
	}
	return "E0000"
}

func (c Code) Title() string {
	desc, ok := codeDescription[c]
	if !ok {
		return codeDescription[UnknownCode]
	}
	return desc
}

func (c Code) String() string {
	return fmt.Sprintf("[%s]: %s", c.ID(), c.Title())
}
