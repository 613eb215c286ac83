package lower

import (
	"tirc/internal/classes"
	"tirc/internal/diag"
	"tirc/internal/hir"
	"tirc/internal/moves"
	"tirc/internal/ownership"
	"tirc/internal/source"
	"tirc/internal/tir"
	"tirc/internal/types"
)

// arm is one path of a branch: its entry label and how to lower it.
type arm struct {
	entry tir.Label
	lower func() (bool, error)
	end   source.Span
}

// armExit is the state an arm reached when it fell through to the join.
type armExit struct {
	tail       tir.Label
	terminated bool
	recv       moves.MoveState
	moved      []bool
}

func (fl *funcLowerer) movedFlags(n int) []bool {
	out := make([]bool, n)
	for i := range out {
		out[i] = fl.locals[i].moved
	}
	return out
}

func (fl *funcLowerer) setMovedFlags(flags []bool) {
	for i, m := range flags {
		fl.locals[i].moved = m
	}
}

// lowerBranches lowers every arm from the move state at the branch point.
// Arms that fall through end in their own tail block, where values moved
// on a sibling arm but still alive on this one are dropped, so all arms
// reach the join in the same state.
func (fl *funcLowerer) lowerBranches(arms []arm, span source.Span) (bool, error) {
	preRecv := fl.tracker.Snapshot()
	n := len(fl.locals)
	preLocals := fl.movedFlags(n)

	exits := make([]armExit, len(arms))
	for i, a := range arms {
		fl.tracker.Reset(preRecv)
		fl.setMovedFlags(preLocals)
		fl.b.Mark(a.entry)
		terminated, err := a.lower()
		if err != nil {
			return false, err
		}
		if terminated {
			exits[i] = armExit{terminated: true}
			continue
		}
		exits[i] = armExit{
			tail:  fl.b.NewLabel(),
			recv:  fl.tracker.Snapshot(),
			moved: fl.movedFlags(n),
		}
		fl.b.Jump(a.end, exits[i].tail)
	}

	var (
		joined       moves.MoveState
		joinedLocals = make([]bool, n)
		live         int
	)
	for _, ex := range exits {
		if ex.terminated {
			continue
		}
		if live == 0 {
			joined = ex.recv.Clone()
		} else {
			joined = moves.Join(joined, ex.recv)
		}
		live++
		for i := range joinedLocals {
			joinedLocals[i] = joinedLocals[i] || ex.moved[i]
		}
	}
	if live == 0 {
		return true, nil
	}

	join := fl.b.NewLabel()
	for _, ex := range exits {
		if ex.terminated {
			continue
		}
		fl.b.Mark(ex.tail)
		fl.reconcile(ex, joined, joinedLocals, span)
		fl.b.Jump(span, join)
	}
	fl.b.Mark(join)
	fl.tracker.Reset(joined)
	fl.setMovedFlags(joinedLocals)
	return false, nil
}

func (fl *funcLowerer) reconcile(ex armExit, joined moves.MoveState, joinedLocals []bool, span source.Span) {
	for i := len(joinedLocals) - 1; i >= 0; i-- {
		if joinedLocals[i] && !ex.moved[i] {
			fl.dropLocal(fl.locals[i], tir.ExitBranch, span)
		}
	}
	if fl.mode != ownership.Owned {
		return
	}
	switch {
	case joined.Consumed && !ex.recv.Consumed:
		fl.ctx.Drops.Emit(fl.b, fl.self, fl.class, ex.recv, tir.ExitBranch, span)
	case !joined.Consumed:
		if names := moves.Diff(joined, ex.recv); len(names) > 0 {
			fl.ctx.Drops.EmitFields(fl.b, fl.self, fl.class, names, tir.ExitBranch, span)
		}
	}
}

func (fl *funcLowerer) lowerIf(s *hir.Stmt) (bool, error) {
	cond, err := fl.lowerExpr(s.Value)
	if err != nil {
		return false, err
	}
	then, els := fl.b.NewLabel(), fl.b.NewLabel()
	fl.b.Branch(s.Span, cond.reg, then, els)
	return fl.lowerBranches([]arm{
		{entry: then, end: s.Span, lower: func() (bool, error) { return fl.lowerBlock(s.Then, s.Span) }},
		{entry: els, end: s.Span, lower: func() (bool, error) { return fl.lowerBlock(s.Else, s.Span) }},
	}, s.Span)
}

func (fl *funcLowerer) lowerMatch(s *hir.Stmt) (bool, error) {
	v, err := fl.lowerExpr(s.Value)
	if err != nil {
		return false, err
	}
	def, ok := fl.ctx.classOf(v.typ)
	if !ok || !def.IsEnum() {
		return false, diag.Errorf(diag.LowerNotEnum, s.Span,
			"match needs an enum value, found %s", fl.ctx.Types.String(v.typ))
	}
	variants := make([]*classes.Variant, len(s.Arms))
	covered := make(map[string]struct{}, len(def.Variants))
	for i, a := range s.Arms {
		vr, ok := def.Variant(a.Variant)
		if !ok {
			return false, diag.Errorf(diag.LowerUnknownVariant, a.Span, "enum %q has no variant %q", def.Name, a.Variant)
		}
		if len(a.Bindings) > len(vr.Payload) {
			return false, diag.Errorf(diag.LowerArgumentCount, a.Span,
				"variant %s.%s has %d payload values, %d bound", def.Name, vr.Name, len(vr.Payload), len(a.Bindings))
		}
		variants[i] = vr
		covered[vr.Name] = struct{}{}
	}
	exhaustive := len(covered) == len(def.Variants)

	m := &matchLowering{fl: fl, def: def, value: v, args: fl.ctx.instanceArgs(v.typ)}
	arms := make([]arm, 0, len(s.Arms)+1)
	for i, a := range s.Arms {
		entry := fl.b.NewLabel()
		vr, body := variants[i], a
		arms = append(arms, arm{entry: entry, end: a.Span, lower: func() (bool, error) { return m.lowerArm(vr, body) }})
		if exhaustive && i == len(s.Arms)-1 {
			fl.b.Jump(a.Span, entry)
			break
		}
		cond := fl.b.TagTest(a.Span, tir.TagInstr{Value: v.reg, Class: def.Name, Variant: vr.Name, Tag: vr.Tag})
		next := fl.b.NewLabel()
		fl.b.Branch(a.Span, cond, entry, next)
		fl.b.Mark(next)
	}
	if !exhaustive {
		entry := fl.b.NewLabel()
		fl.b.Jump(s.Span, entry)
		arms = append(arms, arm{entry: entry, end: s.Span, lower: func() (bool, error) {
			// No arm matched; an owned value still has to be destroyed.
			if m.owned() {
				fl.ctx.Drops.EmitValue(fl.b, v.reg, v.typ, "", tir.ExitNormal, s.Span)
			}
			return false, nil
		}})
	}
	return fl.lowerBranches(arms, s.Span)
}

type matchLowering struct {
	fl    *funcLowerer
	def   *classes.ClassDef
	value value
	args  []types.TypeID
}

// owned reports whether the match consumes the value: payload bindings are
// moved out and the rest of the matched variant is dropped.
func (m *matchLowering) owned() bool {
	return m.value.owned && !m.def.Inline
}

func (m *matchLowering) payloadType(f classes.FieldDef) types.TypeID {
	if len(m.args) == 0 || len(m.args) != len(m.def.TypeParams) {
		return f.Type
	}
	return m.fl.ctx.Types.Substitute(f.Type, m.def.TypeParams, m.args)
}

func (m *matchLowering) lowerArm(vr *classes.Variant, a *hir.Arm) (bool, error) {
	fl := m.fl
	fl.pushScope()
	borrow := ownership.Ref
	if fl.ctx.Types.KindOf(m.value.typ) == types.KindMut {
		borrow = ownership.Mut
	}

	var taken []string
	for j, name := range a.Bindings {
		if name == "" || name == "_" {
			continue
		}
		slot := vr.Payload[j]
		typ := m.payloadType(slot)
		copyable := fl.ctx.copyable(typ)
		reg := fl.b.PayloadRead(a.Span, tir.TagInstr{
			Value:   m.value.reg,
			Class:   m.def.Name,
			Variant: vr.Name,
			Tag:     vr.Tag,
			Index:   j,
			Move:    m.owned() && !copyable,
		})
		owned := m.owned() || copyable
		if !owned {
			typ = ownership.Exposed(fl.ctx.Types, borrow, typ)
		}
		if m.owned() {
			taken = append(taken, slot.Name)
		}
		fl.bind(name, reg, typ, owned).from = m.value.from
	}
	if m.owned() {
		fl.ctx.Drops.EmitVariant(fl.b, m.value.reg, m.def, vr, taken, tir.ExitNormal, a.Span)
	}

	terminated, err := fl.lowerStmts(a.Body)
	if err != nil {
		return false, err
	}
	fl.popScope(terminated, a.Span)
	return terminated, nil
}
