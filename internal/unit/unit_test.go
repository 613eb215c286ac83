package unit

import (
	"testing"

	"tirc/internal/classes"
	"tirc/internal/diag"
	"tirc/internal/hir"
	"tirc/internal/source"
	"tirc/internal/types"
)

const shapes = `format = "1.2"
name = "shapes"

[[class]]
name = "Person"
at = "4:1"
field = [
  { name = "name", type = "String", at = "8:5" },
  { name = "age", type = "Int" },
]

[[class.method]]
name = "take"
receiver = "fn move"
returns = "String"

[[class.method.body]]
op = "return"
value = { op = "field", name = "name", move = true }

[[class]]
name = "Opt"
kind = "enum"
type_params = ["T"]
variant = [{ name = "Some", payload = ["T"] }, { name = "None" }]

[[class]]
name = "Holder"
field = [{ name = "items", type = "Array[Opt[ref Person]]" }]

[[class.method]]
name = "check"
receiver = "fn static"
params = [{ name = "o", type = "Opt[Int]" }]

[[class.method.body]]
op = "match"
value = { op = "local", name = "o", move = true }
arms = [
  { variant = "Some", bindings = ["n"] },
  { variant = "None", body = [{ op = "throw", value = { op = "string", str = "none" } }] },
]

[[impl]]
class = "Person"

[[impl.method]]
name = "rename"
receiver = "fn mut"
params = [{ name = "n", type = "String" }]
body = [{ op = "assign", name = "name", value = { op = "local", name = "n", move = true } }]
`

func decode(t *testing.T, src string) (*source.FileSet, *types.Interner, *Unit, error) {
	t.Helper()
	fs := source.NewFileSet()
	in := types.NewInterner()
	id := fs.AddVirtual("test.toml", []byte(src))
	u, err := Decode(fs, in, id)
	return fs, in, u, err
}

func TestDecodeUnit(t *testing.T) {
	fs, in, u, err := decode(t, shapes)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	b := in.Builtins()
	if u.Name != "shapes" || u.Format.String() != "1.2.0" {
		t.Fatalf("unit header = %q %v", u.Name, u.Format)
	}
	if len(u.Classes) != 3 {
		t.Fatalf("classes = %d", len(u.Classes))
	}

	person := u.Classes[0]
	if start, _ := fs.Resolve(person.Span); start != (source.LineCol{Line: 4, Col: 1}) {
		t.Fatalf("class position = %+v", start)
	}
	if start, _ := fs.Resolve(person.Fields[0].Span); start != (source.LineCol{Line: 8, Col: 5}) {
		t.Fatalf("field position = %+v", start)
	}
	if person.Fields[0].Type != b.String || person.Fields[1].Type != b.Int {
		t.Fatalf("field types = %s, %s", in.String(person.Fields[0].Type), in.String(person.Fields[1].Type))
	}
	take := person.Methods[0]
	if take.Receiver != classes.ReceiverOwning || take.Returns != b.String {
		t.Fatalf("take = %s returns %s", take.Receiver, in.String(take.Returns))
	}
	ret := take.Body.Stmts[0]
	if ret.Kind != hir.StmtReturn || ret.Value.Kind != hir.ExprField || !ret.Value.Move || ret.Value.Name != "name" {
		t.Fatalf("take body = %+v", ret)
	}

	opt := u.Classes[1]
	if opt.Kind != classes.KindEnum || len(opt.Variants) != 2 || opt.Variants[0].Payload[0].Type != in.Param("T") {
		t.Fatalf("opt = %+v", opt)
	}

	holder := u.Classes[2]
	want := in.Array(in.Class("Opt", []types.TypeID{in.Ref(in.Class("Person", nil))}))
	if holder.Fields[0].Type != want {
		t.Fatalf("items type = %s", in.String(holder.Fields[0].Type))
	}
	check := holder.Methods[0]
	if !check.IsStatic() || check.Params[0].Type != in.Class("Opt", []types.TypeID{b.Int}) {
		t.Fatalf("check = %s %v", check.Receiver, check.Params)
	}
	match := check.Body.Stmts[0]
	if match.Kind != hir.StmtMatch || len(match.Arms) != 2 || match.Arms[0].Bindings[0] != "n" {
		t.Fatalf("match = %+v", match)
	}
	if throw := match.Arms[1].Body[0]; throw.Kind != hir.StmtThrow || throw.Value.Str != "none" {
		t.Fatalf("None arm = %+v", throw)
	}

	if len(u.Impls) != 1 || u.Impls[0].Class != "Person" {
		t.Fatalf("impls = %+v", u.Impls)
	}
	rename := u.Impls[0].Reopening.Methods[0]
	if rename.Receiver != classes.ReceiverMutable || rename.Body.Stmts[0].Kind != hir.StmtAssign {
		t.Fatalf("rename = %+v", rename)
	}
}

func TestDecodedUnitFillsTable(t *testing.T) {
	_, _, u, err := decode(t, shapes)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	tab := classes.NewTable()
	for _, def := range u.Classes {
		if err := tab.Define(def); err != nil {
			t.Fatalf("define %s: %v", def.Name, err)
		}
	}
	for _, impl := range u.Impls {
		if err := tab.Reopen(impl.Class, impl.Reopening); err != nil {
			t.Fatalf("reopen %s: %v", impl.Class, err)
		}
	}
	person, err := tab.Lookup("Person")
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if _, ok := person.Method("rename"); !ok {
		t.Fatalf("reopened method missing")
	}
}

func TestFormatVersion(t *testing.T) {
	cases := map[string]string{
		"missing":  `name = "x"`,
		"major 2":  `format = "2.0"`,
		"not semv": `format = "one"`,
	}
	for name, src := range cases {
		t.Run(name, func(t *testing.T) {
			_, _, u, err := decode(t, src)
			if u != nil || diag.CodeOf(err) != diag.UnitFormat {
				t.Fatalf("expected %s, got %v", diag.UnitFormat.ID(), err)
			}
		})
	}
}

func TestUnknownKeysAreReported(t *testing.T) {
	_, _, _, err := decode(t, "format = \"1.0\"\ncolour = 1\n[[class]]\nname = \"A\"\nshape = \"round\"\n")
	errs := diag.Flatten(err)
	if len(errs) != 2 {
		t.Fatalf("expected 2 errors, got %v", err)
	}
	for _, e := range errs {
		if e.Code != diag.UnitFormat {
			t.Fatalf("unexpected %v", e)
		}
	}
}

func TestSyntaxErrorPointsAtLine(t *testing.T) {
	fs, _, _, err := decode(t, "format = \"1.0\"\n\n[[class]\nname = \"A\"\n")
	errs := diag.Flatten(err)
	if len(errs) != 1 || errs[0].Code != diag.UnitSyntax {
		t.Fatalf("expected one syntax error, got %v", err)
	}
	if start, _ := fs.Resolve(errs[0].Span); start.Line != 3 {
		t.Fatalf("syntax error at line %d", start.Line)
	}
}

func TestBodyErrorsAreCollected(t *testing.T) {
	src := `format = "1.0"
[[class]]
name = "A"
[[class.method]]
name = "m"
body = [{ op = "loop" }, { op = "expr", value = { op = "lambda" } }, { op = "let", name = "x" }]
`
	_, _, _, err := decode(t, src)
	errs := diag.Flatten(err)
	if len(errs) != 3 {
		t.Fatalf("expected 3 errors, got %v", err)
	}
	for _, e := range errs {
		if e.Code != diag.UnitInvalidValue {
			t.Fatalf("unexpected %v", e)
		}
	}
}

func TestTypeExpressions(t *testing.T) {
	in := types.NewInterner()
	b := in.Builtins()
	scope := &typeScope{in: in, classes: map[string]int{"Opt": 1, "Map": 2}, params: []string{"T"}}
	ok := map[string]types.TypeID{
		"Int":                   b.Int,
		"  ref  String ":        in.Ref(b.String),
		"mut Array[Int]":        in.Mut(in.Array(b.Int)),
		"Opt[T]":                in.Class("Opt", []types.TypeID{in.Param("T")}),
		"Map[String, Opt[Int]]": in.Class("Map", []types.TypeID{b.String, in.Class("Opt", []types.TypeID{b.Int})}),
	}
	for expr, want := range ok {
		got, err := scope.parse(expr, source.Span{})
		if err != nil || got != want {
			t.Fatalf("%q = %s, %v", expr, in.String(got), err)
		}
	}
	bad := map[string]diag.Code{
		"Opt":         diag.DeclTypeArgCount,
		"Int[String]": diag.DeclTypeArgCount,
		"Nope":        diag.DeclUnknownType,
		"Array[Int":   diag.UnitBadTypeExpr,
		"Int]":        diag.UnitBadTypeExpr,
		"":            diag.UnitBadTypeExpr,
		"ref":         diag.UnitBadTypeExpr,
		"Opt[Int,]":   diag.UnitBadTypeExpr,
	}
	for expr, code := range bad {
		if _, err := scope.parse(expr, source.Span{}); diag.CodeOf(err) != code {
			t.Fatalf("%q: expected %s, got %v", expr, code.ID(), err)
		}
	}
}

func TestParseReceiver(t *testing.T) {
	for r := classes.ReceiverImmutable; r <= classes.ReceiverAsyncMutable; r++ {
		if got, ok := parseReceiver(r.String()); !ok || got != r {
			t.Fatalf("%q -> %v %v", r.String(), got, ok)
		}
	}
	if got, ok := parseReceiver(""); !ok || got != classes.ReceiverImmutable {
		t.Fatalf("empty receiver must default to fn")
	}
	if _, ok := parseReceiver("fn maybe"); ok {
		t.Fatalf("unknown receiver accepted")
	}
}
