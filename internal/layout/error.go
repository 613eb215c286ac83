package layout

import (
	"fmt"
	"strings"

	"tirc/internal/types"
)

// LayoutErrorKind enumerates types of layout calculation errors.
type LayoutErrorKind uint8

const (
	// LayoutErrRecursiveInline indicates an inline type that contains itself.
	LayoutErrRecursiveInline LayoutErrorKind = iota + 1
	// LayoutErrUnresolvedParam indicates a type parameter reached layout.
	LayoutErrUnresolvedParam
	// LayoutErrUnknownClass indicates a class instance with no definition.
	LayoutErrUnknownClass
)

// LayoutError represents an error during memory layout calculation.
type LayoutError struct {
	Kind  LayoutErrorKind
	Type  types.TypeID
	Name  string
	Cycle []string // for LayoutErrRecursiveInline
}

func (e *LayoutError) Error() string {
	if e == nil {
		return "<nil>"
	}
	switch e.Kind {
	case LayoutErrRecursiveInline:
		if len(e.Cycle) == 0 {
			return fmt.Sprintf("recursive inline type %s has infinite size", e.Name)
		}
		return fmt.Sprintf("recursive inline type has infinite size (cycle: %s)", strings.Join(e.Cycle, " -> "))
	case LayoutErrUnresolvedParam:
		return fmt.Sprintf("type parameter %s has no layout until instantiated", e.Name)
	case LayoutErrUnknownClass:
		return fmt.Sprintf("no class definition for %s", e.Name)
	default:
		return fmt.Sprintf("layout error kind=%d type#%d", e.Kind, e.Type)
	}
}
