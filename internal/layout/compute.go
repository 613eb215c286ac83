package layout

import (
	"tirc/internal/classes"
	"tirc/internal/types"
)

func (e *LayoutEngine) computeLayout(id types.TypeID, state *layoutState) (TypeLayout, *LayoutError) {
	if id == types.NoTypeID || e.Types == nil {
		return TypeLayout{Size: 0, Align: 1}, nil
	}
	tt, ok := e.Types.Lookup(id)
	if !ok {
		return TypeLayout{Size: 0, Align: 1}, nil
	}

	switch tt.Kind {
	case types.KindNil:
		return TypeLayout{Size: 0, Align: 1, Inline: true}, nil

	case types.KindBool:
		return TypeLayout{Size: 1, Align: 1, Inline: true}, nil

	case types.KindInt, types.KindFloat:
		if tt.Width == types.WidthAny {
			return e.scalarLayoutBytes(8), nil
		}
		return e.scalarLayoutBytes(int(tt.Width) / 8), nil

	case types.KindPointer:
		l := e.ptrLayout()
		l.Inline = true
		return l, nil

	case types.KindString, types.KindArray, types.KindRef, types.KindMut:
		return e.ptrLayout(), nil

	case types.KindParam:
		return TypeLayout{Size: 0, Align: 1}, &LayoutError{Kind: LayoutErrUnresolvedParam, Type: id, Name: tt.Name}

	case types.KindClass:
		return e.classLayout(id, tt, state)

	default:
		return TypeLayout{Size: 0, Align: 1}, nil
	}
}

func (e *LayoutEngine) classLayout(id types.TypeID, tt types.Type, state *layoutState) (TypeLayout, *LayoutError) {
	if e.Classes == nil {
		return e.ptrLayout(), nil
	}
	def, err := e.Classes.Lookup(tt.Name)
	if err != nil {
		return TypeLayout{Size: 0, Align: 1}, &LayoutError{Kind: LayoutErrUnknownClass, Type: id, Name: tt.Name}
	}
	if !def.Inline {
		// Heap classes and processes are referenced through a handle.
		return e.ptrLayout(), nil
	}
	args := e.Types.Args(id)
	if def.IsEnum() {
		return e.tagUnionLayout(def, args, state)
	}
	return e.structLayout(def.Fields, def, args, state)
}

func (e *LayoutEngine) fieldType(def *classes.ClassDef, args []types.TypeID, t types.TypeID) types.TypeID {
	if len(def.TypeParams) == 0 || len(args) == 0 {
		return t
	}
	return e.Types.Substitute(t, def.TypeParams, args)
}

func (e *LayoutEngine) ptrLayout() TypeLayout {
	ptrSize := e.Target.PtrSize
	ptrAlign := e.Target.PtrAlign
	if ptrSize <= 0 {
		ptrSize = 8
	}
	if ptrAlign <= 0 {
		ptrAlign = ptrSize
	}
	return TypeLayout{Size: ptrSize, Align: ptrAlign}
}

func (e *LayoutEngine) scalarLayoutBytes(size int) TypeLayout {
	if size <= 0 {
		return TypeLayout{Size: 0, Align: 1, Inline: true}
	}
	align := size
	if e.Target.MaxAlign > 0 && align > e.Target.MaxAlign {
		align = e.Target.MaxAlign
	}
	return TypeLayout{Size: size, Align: align, Inline: true}
}

func roundUp(n, align int) int {
	if align <= 1 {
		return n
	}
	r := n % align
	if r == 0 {
		return n
	}
	return n + (align - r)
}

func (e *LayoutEngine) structLayout(fields []classes.FieldDef, def *classes.ClassDef, args []types.TypeID, state *layoutState) (TypeLayout, *LayoutError) {
	offsets := make([]int, len(fields))
	size := 0
	align := 1
	for i := range fields {
		fl, err := e.layoutOf(e.fieldType(def, args, fields[i].Type), state)
		if err != nil {
			return TypeLayout{Size: 0, Align: 1}, err
		}
		fAlign := max(fl.Align, 1)
		size = roundUp(size, fAlign)
		offsets[i] = size
		size += fl.Size
		align = max(align, fAlign)
	}
	size = roundUp(size, align)
	return TypeLayout{
		Size:         size,
		Align:        align,
		Inline:       true,
		FieldOffsets: offsets,
	}, nil
}

func (e *LayoutEngine) tagUnionLayout(def *classes.ClassDef, args []types.TypeID, state *layoutState) (TypeLayout, *LayoutError) {
	maxPayloadSize := 0
	payloadAlign := 1
	variantOffsets := make([][]int, len(def.Variants))
	for i := range def.Variants {
		// Multiple payload values: lay them out like a struct.
		pl, err := e.structLayout(def.Variants[i].Payload, def, args, state)
		if err != nil {
			return TypeLayout{Size: 0, Align: 1}, err
		}
		variantOffsets[i] = pl.FieldOffsets
		maxPayloadSize = max(maxPayloadSize, pl.Size)
		payloadAlign = max(payloadAlign, pl.Align)
	}

	// tag:uint32 then payload aligned up to payloadAlign.
	tagSize := 4
	tagAlign := 4
	payloadOffset := roundUp(tagSize, payloadAlign)
	overallAlign := max(tagAlign, payloadAlign)
	size := roundUp(payloadOffset+maxPayloadSize, overallAlign)
	return TypeLayout{
		Size:           size,
		Align:          overallAlign,
		Inline:         true,
		TagSize:        tagSize,
		TagAlign:       tagAlign,
		PayloadOffset:  payloadOffset,
		VariantOffsets: variantOffsets,
	}, nil
}
