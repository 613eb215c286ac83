package driver_test

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"tirc/internal/diag"
	"tirc/internal/driver"
	"tirc/internal/layout"
	"tirc/internal/testkit"
	"tirc/internal/tir"
	"tirc/internal/trace"
)

const bank = `format = "1.0"
name = "bank"

[[class]]
name = "Account"
field = [
  { name = "owner", type = "String" },
  { name = "balance", type = "Int" },
]

[[class.method]]
name = "balance_of"
receiver = "fn"
returns = "Int"
body = [{ op = "return", value = { op = "field", name = "balance" } }]

[[class.method]]
name = "close"
receiver = "fn move"
returns = "String"
body = [{ op = "return", value = { op = "field", name = "owner", move = true } }]

[[class]]
name = "Teller"
kind = "process"
field = [{ name = "served", type = "Int" }]

[[class.method]]
name = "serve"
receiver = "fn async"
params = [{ name = "a", type = "Account" }]
body = []
`

const broken = bank + `
[[class]]
name = "Point"
inline = true
field = [{ name = "label", type = "String" }]

[[class.method]]
name = "get"
receiver = "fn"
body = []

[[impl]]
class = "Account"

[[impl.method]]
name = "twice"
receiver = "fn move"
body = [
  { op = "let", name = "a", value = { op = "field", name = "owner", move = true } },
  { op = "let", name = "b", value = { op = "field", name = "owner", move = true } },
]
`

func writeUnit(t *testing.T, src string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "bank.toml")
	if err := os.WriteFile(path, []byte(src), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func funcNames(m *tir.Module) []string {
	var out []string
	for _, f := range m.Funcs {
		out = append(out, f.QualifiedName())
	}
	return out
}

func dump(t *testing.T, res *driver.Result) string {
	t.Helper()
	var sb strings.Builder
	if err := tir.DumpModule(&sb, res.Module, res.Names); err != nil {
		t.Fatal(err)
	}
	return sb.String()
}

func TestLowerFileProducesOrderedModule(t *testing.T) {
	res, err := driver.LowerFile(context.Background(), writeUnit(t, bank), driver.Options{})
	if err != nil {
		t.Fatalf("lower: %v", err)
	}
	if res.Failed() {
		t.Fatalf("unexpected diagnostics:\n%s", diag.FormatShortDiagnostics(res.Bag.Items(), res.FileSet, true))
	}
	want := []string{"Account.balance_of", "Account.close", "Account.$dropper", "Teller.serve", "Teller.$dropper"}
	if got := funcNames(res.Module); strings.Join(got, " ") != strings.Join(want, " ") {
		t.Fatalf("funcs = %v, want %v", got, want)
	}
	if err := testkit.CheckModule(res.Module, res.Classes); err != nil {
		t.Fatalf("invariants:\n%v", err)
	}
	serve := res.Module.Func("Teller.serve")
	if !serve.Async || serve.Instrs[0].Op != tir.OpEnqueue || !serve.Instrs[0].Enqueue.Marker {
		t.Fatalf("serve must start with the enqueue marker:\n%s", dump(t, res))
	}
	if len(res.Layouts) != 2 || res.Layouts[0].Class != "Account" || res.Layouts[1].Kind != "process" {
		t.Fatalf("layouts = %+v", res.Layouts)
	}
	if f := res.Layouts[0].Fields; len(f) != 2 || f[0].Type != "String" || f[1].Offset == 0 {
		t.Fatalf("account fields = %+v", f)
	}
}

func TestBodyAndLayoutErrorsStayLocal(t *testing.T) {
	var mu sync.Mutex
	var events []driver.ProgressEvent
	opts := driver.Options{Jobs: 2, Progress: func(ev driver.ProgressEvent) {
		mu.Lock()
		events = append(events, ev)
		mu.Unlock()
	}}
	res, err := driver.LowerFile(context.Background(), writeUnit(t, broken), opts)
	if err != nil {
		t.Fatalf("lower: %v", err)
	}
	if !res.Failed() || !res.Bag.HasCode(diag.MoveAlreadyMoved) || !res.Bag.HasCode(diag.LayoutNonInlineField) {
		t.Fatalf("diagnostics:\n%s", diag.FormatShortDiagnostics(res.Bag.Items(), res.FileSet, true))
	}
	if res.Module == nil {
		t.Fatalf("body errors must not drop the module")
	}
	for _, name := range funcNames(res.Module) {
		if strings.HasPrefix(name, "Point.") || name == "Account.twice" {
			t.Fatalf("%s must not be emitted", name)
		}
	}
	if res.Module.Func("Account.close") == nil {
		t.Fatalf("sibling methods must still lower")
	}
	if err := testkit.CheckModule(res.Module, res.Classes); err != nil {
		t.Fatalf("invariants:\n%v", err)
	}

	var lowered, rejected, phases int
	for _, ev := range events {
		switch ev.Kind {
		case driver.MethodLowered:
			lowered++
			if ev.Total != 4 {
				t.Fatalf("total = %d", ev.Total)
			}
		case driver.ClassRejected:
			rejected++
			if ev.Class != "Point" {
				t.Fatalf("rejected %s", ev.Class)
			}
		case driver.PhaseEnd:
			phases++
		}
	}
	// balance_of, close, twice, serve; Point.get is skipped.
	if lowered != 4 || rejected != 1 || phases != 5 {
		t.Fatalf("lowered=%d rejected=%d phases=%d", lowered, rejected, phases)
	}
}

func TestDeclarationErrorsStopBeforeLowering(t *testing.T) {
	src := bank + `
[[class]]
name = "Account"
`
	res, err := driver.LowerFile(context.Background(), writeUnit(t, src), driver.Options{})
	if err != nil {
		t.Fatalf("lower: %v", err)
	}
	if res.Module != nil || !res.Bag.HasCode(diag.DeclDuplicateClass) {
		t.Fatalf("module=%v diagnostics=%v", res.Module != nil, res.Bag.Items())
	}
}

func TestDecodeErrorsAreDiagnostics(t *testing.T) {
	res, err := driver.LowerFile(context.Background(), writeUnit(t, "format = \n"), driver.Options{})
	if err != nil {
		t.Fatalf("syntax errors are diagnostics, got %v", err)
	}
	if !res.Bag.HasCode(diag.UnitSyntax) || res.Module != nil {
		t.Fatalf("diagnostics = %v", res.Bag.Items())
	}

	if _, err := driver.LowerFile(context.Background(), filepath.Join(t.TempDir(), "missing.toml"), driver.Options{}); err == nil {
		t.Fatalf("missing file must be an error")
	}
}

func TestOutputDoesNotDependOnJobs(t *testing.T) {
	path := writeUnit(t, bank)
	serial, err := driver.LowerFile(context.Background(), path, driver.Options{Jobs: 1})
	if err != nil {
		t.Fatal(err)
	}
	for range 5 {
		parallel, err := driver.LowerFile(context.Background(), path, driver.Options{Jobs: 8})
		if err != nil {
			t.Fatal(err)
		}
		if a, b := dump(t, serial), dump(t, parallel); a != b {
			t.Fatalf("serial and parallel output differ:\n%s\n---\n%s", a, b)
		}
	}
}

func TestTargetChangesLayouts(t *testing.T) {
	path := writeUnit(t, bank)
	x64, err := driver.LowerFile(context.Background(), path, driver.Options{})
	if err != nil {
		t.Fatal(err)
	}
	x86, err := driver.LowerFile(context.Background(), path, driver.Options{Target: layout.I386LinuxGNU()})
	if err != nil {
		t.Fatal(err)
	}
	if x64.Layouts[0].Size <= x86.Layouts[0].Size {
		t.Fatalf("Account: x86_64 %d, i386 %d", x64.Layouts[0].Size, x86.Layouts[0].Size)
	}
}

func TestLayoutPassTracesCacheSize(t *testing.T) {
	ring := trace.NewRingTracer(256, trace.LevelDebug)
	ctx := trace.WithTracer(context.Background(), ring)
	if _, err := driver.LowerFile(ctx, writeUnit(t, bank), driver.Options{}); err != nil {
		t.Fatalf("lower: %v", err)
	}
	for _, ev := range ring.Snapshot() {
		if ev.Name == "layout cache" {
			if ev.Scope != trace.ScopePass || ev.Detail == "0 layouts" {
				t.Fatalf("layout cache event = %+v", ev)
			}
			return
		}
	}
	t.Fatalf("no layout cache event")
}
