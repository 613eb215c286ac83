package tir

import (
	"errors"
	"fmt"
)

// Validate checks structural invariants of a lowered function: labels are
// defined exactly once, every jump target exists, operands refer to
// allocated registers and control never falls off the end.
func Validate(f *Func) error {
	if f == nil {
		return nil
	}
	var errs []error
	defined := make(map[Label]int, f.Labels)
	for i := range f.Instrs {
		ins := &f.Instrs[i]
		if ins.Op != OpLabel {
			continue
		}
		if prev, dup := defined[ins.Label.ID]; dup {
			errs = append(errs, fmt.Errorf("label L%d defined at %d and %d", ins.Label.ID, prev, i))
		}
		defined[ins.Label.ID] = i
	}

	checkLabel := func(i int, l Label) {
		if _, ok := defined[l]; !ok {
			errs = append(errs, fmt.Errorf("instr %d (%s) targets undefined label L%d", i, f.Instrs[i].Op, l))
		}
	}
	checkReg := func(i int, r Reg) {
		if r != NoReg && uint32(r) >= f.Regs {
			errs = append(errs, fmt.Errorf("instr %d (%s) uses unallocated register r%d", i, f.Instrs[i].Op, r))
		}
	}

	for i := range f.Instrs {
		ins := &f.Instrs[i]
		checkReg(i, ins.Dst)
		switch ins.Op {
		case OpBranch:
			checkReg(i, ins.Branch.Cond)
			checkLabel(i, ins.Branch.Then)
			checkLabel(i, ins.Branch.Else)
		case OpJump:
			checkLabel(i, ins.Jump.Target)
		case OpCall:
			checkReg(i, ins.Call.Receiver)
			for _, a := range ins.Call.Args {
				checkReg(i, a)
			}
			if ins.Call.OnError != NoLabel {
				checkLabel(i, ins.Call.OnError)
			}
		case OpFieldRead, OpFieldWrite, OpSwap:
			checkReg(i, ins.Field.Object)
			checkReg(i, ins.Field.Value)
		case OpDrop:
			checkReg(i, ins.Drop.Value)
		case OpThrow:
			checkReg(i, ins.Throw.Value)
		case OpMove:
			checkReg(i, ins.Move.Src)
		}
	}

	if n := len(f.Instrs); n == 0 {
		errs = append(errs, errors.New("empty function"))
	} else {
		switch f.Instrs[n-1].Op {
		case OpReturn, OpThrow, OpJump:
		default:
			errs = append(errs, fmt.Errorf("control falls off the end after %s", f.Instrs[n-1].Op))
		}
	}
	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("%s: %w", f.QualifiedName(), errors.Join(errs...))
}
