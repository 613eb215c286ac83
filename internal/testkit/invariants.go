// Package testkit holds invariant checkers over lowered TIR. They re-derive
// properties the lowering is supposed to guarantee, independently of the
// lowering code, and are meant to run over every function a test produces.
package testkit

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"testing"

	"tirc/internal/classes"
	"tirc/internal/mailbox"
	"tirc/internal/tir"
)

// CheckModule runs every checker over every function of m.
func CheckModule(m *tir.Module, tab *classes.Table) error {
	if m == nil {
		return nil
	}
	var errs []error
	for _, fn := range m.Funcs {
		errs = append(errs, CheckFunc(fn, tab))
	}
	return errors.Join(errs...)
}

// CheckFunc runs every checker over fn.
func CheckFunc(fn *tir.Func, tab *classes.Table) error {
	if fn == nil {
		return nil
	}
	return errors.Join(
		tir.Validate(fn),
		CheckMoves(fn, tab),
		CheckDropOrder(fn),
		CheckEnqueues(fn, tab),
	)
}

// MustCheck fails t when CheckFunc reports anything for fns.
func MustCheck(t testing.TB, tab *classes.Table, fns ...*tir.Func) {
	t.Helper()
	for _, fn := range fns {
		if err := CheckFunc(fn, tab); err != nil {
			t.Fatalf("%s violates TIR invariants:\n%v", fn.QualifiedName(), err)
		}
	}
}

// CheckDropOrder verifies that consecutive field drops of one value on one
// exit edge go in reverse field order.
func CheckDropOrder(fn *tir.Func) error {
	var errs []error
	var prev *tir.DropInstr
	for i := range fn.Instrs {
		ins := &fn.Instrs[i]
		if ins.Op != tir.OpDrop || ins.Drop.Kind != tir.DropField {
			prev = nil
			continue
		}
		d := &ins.Drop
		if prev != nil && prev.Value == d.Value && prev.Exit == d.Exit && prev.Variant == d.Variant && prev.Index <= d.Index {
			errs = append(errs, fmt.Errorf("%s: instr %d: field %d dropped after field %d", fn.QualifiedName(), i, d.Index, prev.Index))
		}
		prev = d
	}
	return errors.Join(errs...)
}

// CheckEnqueues verifies that enqueue markers open async bodies and that
// every other enqueue targets a method the process class accepts.
func CheckEnqueues(fn *tir.Func, tab *classes.Table) error {
	var errs []error
	for i := range fn.Instrs {
		ins := &fn.Instrs[i]
		if ins.Op != tir.OpEnqueue {
			continue
		}
		e := &ins.Enqueue
		if e.Marker {
			if i != 0 || !fn.Async || e.Class != fn.Class || e.Method != fn.Name {
				errs = append(errs, fmt.Errorf("%s: instr %d: misplaced enqueue marker", fn.QualifiedName(), i))
			}
			continue
		}
		def, err := tab.Lookup(e.Class)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: instr %d: %w", fn.QualifiedName(), i, err))
			continue
		}
		contract, err := mailbox.ContractOf(def)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: instr %d: %w", fn.QualifiedName(), i, err))
			continue
		}
		if !contract.Accepts(e.Method) {
			errs = append(errs, fmt.Errorf("%s: instr %d: %s does not accept %s", fn.QualifiedName(), i, e.Class, e.Method))
		}
	}
	return errors.Join(errs...)
}

// CheckMoves walks every path of fn and reports receiver fields that are
// read, stored, moved or dropped after they were moved out or dropped, and
// whole-receiver drops of a partially moved receiver. Inline receivers are
// copied on move and are not tracked.
func CheckMoves(fn *tir.Func, tab *classes.Table) error {
	if fn.Self == tir.NoReg {
		return nil
	}
	if def, err := tab.Lookup(fn.Class); err != nil || def.Inline {
		return nil
	}
	w := &moveWalker{
		fn:     fn,
		labels: make(map[tir.Label]int),
		seen:   make(map[string]bool),
		errs:   make(map[string]struct{}),
	}
	for i := range fn.Instrs {
		if fn.Instrs[i].Op == tir.OpLabel {
			w.labels[fn.Instrs[i].Label.ID] = i
		}
	}
	w.walk(0, selfState{})

	if len(w.errs) == 0 {
		return nil
	}
	msgs := make([]string, 0, len(w.errs))
	for m := range w.errs {
		msgs = append(msgs, m)
	}
	sort.Strings(msgs)
	out := make([]error, len(msgs))
	for i, m := range msgs {
		out[i] = errors.New(m)
	}
	return errors.Join(out...)
}

// selfState is what one path has done to the receiver so far.
type selfState struct {
	gone  []string // moved or dropped slots, sorted
	whole bool     // self itself moved away or destroyed
}

func (s selfState) has(slot string) bool {
	i := sort.SearchStrings(s.gone, slot)
	return i < len(s.gone) && s.gone[i] == slot
}

func (s selfState) with(slot string) selfState {
	i := sort.SearchStrings(s.gone, slot)
	gone := make([]string, 0, len(s.gone)+1)
	gone = append(gone, s.gone[:i]...)
	gone = append(gone, slot)
	gone = append(gone, s.gone[i:]...)
	return selfState{gone: gone, whole: s.whole}
}

func (s selfState) key(pc int) string {
	return strconv.Itoa(pc) + "|" + strconv.FormatBool(s.whole) + "|" + strings.Join(s.gone, ",")
}

type moveWalker struct {
	fn     *tir.Func
	labels map[tir.Label]int
	seen   map[string]bool
	errs   map[string]struct{}
}

func (w *moveWalker) fail(pc int, format string, args ...any) {
	msg := fmt.Sprintf("%s: instr %d (%s): ", w.fn.QualifiedName(), pc, w.fn.Instrs[pc].Op) + fmt.Sprintf(format, args...)
	w.errs[msg] = struct{}{}
}

// use reports a touch of slot; consume also marks it gone.
func (w *moveWalker) use(pc int, st selfState, slot string, consume bool) selfState {
	switch {
	case st.whole:
		w.fail(pc, "field %s used after self was moved", slot)
	case st.has(slot):
		w.fail(pc, "field %s used after it was moved or dropped", slot)
	case consume:
		return st.with(slot)
	}
	return st
}

func slotOf(variant, field string, index int) string {
	if variant == "" && field != "" {
		return field
	}
	return variant + "/" + strconv.Itoa(index)
}

func (w *moveWalker) walk(pc int, st selfState) {
	self := w.fn.Self
	for ; pc < len(w.fn.Instrs); pc++ {
		k := st.key(pc)
		if w.seen[k] {
			return
		}
		w.seen[k] = true

		ins := &w.fn.Instrs[pc]
		switch ins.Op {
		case tir.OpMove:
			if ins.Move.Src == self {
				if st.whole || len(st.gone) > 0 {
					w.fail(pc, "self moved after it was moved or partially moved")
				}
				st = selfState{gone: st.gone, whole: true}
			}
		case tir.OpFieldRead:
			if ins.Field.Object == self {
				st = w.use(pc, st, ins.Field.Field, ins.Field.Move)
			}
		case tir.OpFieldWrite, tir.OpSwap:
			if ins.Field.Object == self {
				st = w.use(pc, st, ins.Field.Field, false)
			}
		case tir.OpPayloadRead:
			if ins.Tag.Value == self {
				st = w.use(pc, st, slotOf(ins.Tag.Variant, "", ins.Tag.Index), ins.Tag.Move)
			}
		case tir.OpDrop:
			d := &ins.Drop
			if d.Value != self {
				continue
			}
			switch d.Kind {
			case tir.DropField:
				st = w.use(pc, st, slotOf(d.Variant, d.Field, d.Index), true)
			case tir.DropReceiver:
				if st.whole || len(st.gone) > 0 {
					w.fail(pc, "whole receiver dropped after a move")
				}
				st = selfState{gone: st.gone, whole: true}
			case tir.DropFree:
				if st.whole {
					w.fail(pc, "storage freed after self was moved")
				}
				st = selfState{gone: st.gone, whole: true}
			}
		case tir.OpCall:
			if ins.Call.OnError != tir.NoLabel {
				w.jump(ins.Call.OnError, st)
			}
		case tir.OpBranch:
			w.jump(ins.Branch.Then, st)
			w.jump(ins.Branch.Else, st)
			return
		case tir.OpJump:
			w.jump(ins.Jump.Target, st)
			return
		case tir.OpThrow, tir.OpReturn:
			return
		}
	}
}

func (w *moveWalker) jump(l tir.Label, st selfState) {
	if pc, ok := w.labels[l]; ok {
		w.walk(pc, st)
	}
}
