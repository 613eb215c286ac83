package driver

import (
	"fmt"

	"tirc/internal/tir"
	"tirc/internal/types"
)

// TypeNames renders the type ids referenced by a module. Ids are only
// meaningful inside the interner of the run that produced them, so results
// carry their names along for printing and caching.
type TypeNames map[types.TypeID]string

// String implements tir.TypeNamer.
func (n TypeNames) String(id types.TypeID) string {
	if s, ok := n[id]; ok {
		return s
	}
	if id == types.NoTypeID {
		return "<none>"
	}
	return fmt.Sprintf("type#%d", id)
}

func namesOf(in *types.Interner, m *tir.Module) TypeNames {
	names := make(TypeNames)
	add := func(id types.TypeID) {
		if id == types.NoTypeID {
			return
		}
		if _, ok := names[id]; !ok {
			names[id] = in.String(id)
		}
	}
	for _, f := range m.Funcs {
		for i := range f.Instrs {
			ins := &f.Instrs[i]
			switch ins.Op {
			case tir.OpConst:
				add(ins.Const.Type)
			case tir.OpFieldRead, tir.OpFieldWrite, tir.OpSwap:
				add(ins.Field.Type)
			case tir.OpNew:
				add(ins.New.Type)
			case tir.OpDrop:
				add(ins.Drop.Type)
			}
		}
	}
	return names
}
