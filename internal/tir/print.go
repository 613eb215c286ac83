package tir

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"tirc/internal/types"
)

// TypeNamer renders type ids. *types.Interner implements it.
type TypeNamer interface {
	String(id types.TypeID) string
}

// DumpModule writes a human-readable listing of every function of m.
func DumpModule(w io.Writer, m *Module, typesIn TypeNamer) error {
	if w == nil || m == nil {
		return nil
	}
	if _, err := fmt.Fprintf(w, "module %s funcs=%d\n", m.Name, len(m.Funcs)); err != nil {
		return err
	}
	for _, f := range m.Funcs {
		if err := DumpFunc(w, f, typesIn); err != nil {
			return err
		}
	}
	return nil
}

// DumpFunc writes one function.
func DumpFunc(w io.Writer, f *Func, typesIn TypeNamer) error {
	if w == nil || f == nil {
		return nil
	}
	var sb strings.Builder
	sb.WriteString("\nfn ")
	if f.Async {
		sb.WriteString("async ")
	}
	sb.WriteString(f.QualifiedName())
	sb.WriteString("(")
	var params []string
	if f.Self != NoReg {
		params = append(params, fmt.Sprintf("self: %s %s", f.SelfMode, reg(f.Self)))
	}
	for _, p := range f.Params {
		params = append(params, p.Name+" "+reg(p.Reg))
	}
	sb.WriteString(strings.Join(params, ", "))
	sb.WriteString("):\n")
	for i := range f.Instrs {
		ins := &f.Instrs[i]
		if ins.Op == OpLabel {
			fmt.Fprintf(&sb, "  L%d:\n", ins.Label.ID)
			continue
		}
		sb.WriteString("    ")
		sb.WriteString(FormatInstr(typesIn, ins))
		sb.WriteByte('\n')
	}
	_, err := io.WriteString(w, sb.String())
	return err
}

func reg(r Reg) string {
	if r == NoReg {
		return "_"
	}
	return "r" + strconv.FormatUint(uint64(r), 10)
}

func regs(rs []Reg) string {
	parts := make([]string, len(rs))
	for i, r := range rs {
		parts[i] = reg(r)
	}
	return strings.Join(parts, ", ")
}

func typeStr(typesIn TypeNamer, id types.TypeID) string {
	if typesIn == nil || id == types.NoTypeID {
		return "?"
	}
	return typesIn.String(id)
}

// FormatInstr renders one instruction on a single line.
func FormatInstr(typesIn TypeNamer, ins *Instr) string {
	dst := ""
	if ins.Dst != NoReg {
		dst = reg(ins.Dst) + " = "
	}
	switch ins.Op {
	case OpConst:
		return dst + "const " + formatConst(&ins.Const)
	case OpMove:
		if ins.Move.Local != "" {
			return fmt.Sprintf("%smove %s (%s)", dst, reg(ins.Move.Src), ins.Move.Local)
		}
		return dst + "move " + reg(ins.Move.Src)
	case OpFieldRead:
		f := &ins.Field
		s := fmt.Sprintf("%sfield.read %s.%s #%d [%s] : %s", dst, reg(f.Object), f.Field, f.Index, f.Mode, typeStr(typesIn, f.Type))
		if f.Move {
			s += " move"
		}
		return s
	case OpFieldWrite:
		f := &ins.Field
		s := fmt.Sprintf("field.write %s.%s #%d = %s", reg(f.Object), f.Field, f.Index, reg(f.Value))
		if f.DropOld {
			s += " drop_old"
		}
		return s
	case OpSwap:
		f := &ins.Field
		return fmt.Sprintf("%sswap %s.%s #%d, %s", dst, reg(f.Object), f.Field, f.Index, reg(f.Value))
	case OpCall:
		c := &ins.Call
		s := fmt.Sprintf("%scall %s.%s(%s)", dst, c.Class, c.Method, regs(c.Args))
		if c.Receiver != NoReg {
			s = fmt.Sprintf("%scall %s.%s[%s](%s)", dst, c.Class, c.Method, reg(c.Receiver), regs(c.Args))
		}
		if c.OnError != NoLabel {
			s += fmt.Sprintf(" else L%d", c.OnError)
		}
		return s
	case OpNew:
		n := &ins.New
		name := n.Class
		if n.Variant != "" {
			name += "." + n.Variant
		}
		s := fmt.Sprintf("%snew %s(%s)", dst, name, regs(n.Args))
		if n.Inline {
			s += " inline"
		}
		return s
	case OpTagTest:
		return fmt.Sprintf("%stag.test %s is %s.%s (%d)", dst, reg(ins.Tag.Value), ins.Tag.Class, ins.Tag.Variant, ins.Tag.Tag)
	case OpPayloadRead:
		s := fmt.Sprintf("%spayload.read %s.%s.%d", dst, reg(ins.Tag.Value), ins.Tag.Variant, ins.Tag.Index)
		if ins.Tag.Move {
			s += " move"
		}
		return s
	case OpBranch:
		return fmt.Sprintf("branch %s ? L%d : L%d", reg(ins.Branch.Cond), ins.Branch.Then, ins.Branch.Else)
	case OpJump:
		return fmt.Sprintf("jump L%d", ins.Jump.Target)
	case OpLabel:
		return fmt.Sprintf("L%d:", ins.Label.ID)
	case OpThrow:
		return "throw " + reg(ins.Throw.Value)
	case OpDrop:
		return formatDrop(typesIn, &ins.Drop)
	case OpEnqueue:
		e := &ins.Enqueue
		if e.Marker {
			return fmt.Sprintf("enqueue.entry %s.%s", e.Class, e.Method)
		}
		return fmt.Sprintf("enqueue %s.%s[%s](%s)", e.Class, e.Method, reg(e.Process), regs(e.Args))
	case OpReturn:
		if ins.Return.HasValue {
			return "return " + reg(ins.Return.Value)
		}
		return "return"
	default:
		return ins.Op.String()
	}
}

func formatConst(c *ConstInstr) string {
	switch c.Kind {
	case ConstInt:
		return strconv.FormatInt(c.Int, 10)
	case ConstFloat:
		return strconv.FormatFloat(c.Float, 'g', -1, 64)
	case ConstString:
		return strconv.Quote(c.Str)
	case ConstBool:
		return strconv.FormatBool(c.Bool)
	default:
		return "nil"
	}
}

func formatDrop(typesIn TypeNamer, d *DropInstr) string {
	var sb strings.Builder
	sb.WriteString("drop.")
	sb.WriteString(d.Kind.String())
	sb.WriteByte(' ')
	switch d.Kind {
	case DropField:
		sb.WriteString(reg(d.Value))
		if d.Variant != "" {
			sb.WriteString("." + d.Variant)
		}
		fmt.Fprintf(&sb, ".%s #%d : %s", d.Field, d.Index, typeStr(typesIn, d.Type))
	case DropValue:
		sb.WriteString(reg(d.Value))
		if d.Local != "" {
			sb.WriteString(" (" + d.Local + ")")
		}
		sb.WriteString(" : " + typeStr(typesIn, d.Type))
	default:
		sb.WriteString(reg(d.Value) + " " + d.Class)
	}
	sb.WriteString(" [" + d.Exit.String() + "]")
	if d.Trivial {
		sb.WriteString(" trivial")
	}
	return sb.String()
}
