package ui

import (
	"strings"
	"testing"

	"tirc/internal/driver"
)

func TestProgressModelTracksClasses(t *testing.T) {
	m := NewProgressModel("bank.toml", nil).(*progressModel)
	for _, ev := range []driver.ProgressEvent{
		{Kind: driver.PhaseStart, Phase: driver.PhaseLayout},
		{Kind: driver.ClassRejected, Phase: driver.PhaseLayout, Class: "Point"},
		{Kind: driver.PhaseStart, Phase: driver.PhaseLower},
		{Kind: driver.MethodLowered, Class: "Account", Method: "close", Done: 1, Total: 3},
		{Kind: driver.MethodLowered, Class: "Account", Method: "twice", Done: 2, Total: 3, Failed: true},
		{Kind: driver.MethodLowered, Class: "Teller", Method: "serve", Done: 3, Total: 3},
	} {
		m.applyEvent(ev)
	}
	if m.stageLabel != driver.PhaseLower || m.done != 3 || m.total != 3 {
		t.Fatalf("stage=%q done=%d/%d", m.stageLabel, m.done, m.total)
	}
	if got := m.items[m.index["Teller"]].status; got != statusLowering {
		t.Fatalf("Teller = %s", got)
	}
	m.applyEvent(driver.ProgressEvent{Kind: driver.PhaseEnd, Phase: driver.PhaseLower})

	want := map[string]string{"Point": statusRejected, "Account": statusError, "Teller": statusDone}
	for name, status := range want {
		if got := m.items[m.index[name]].status; got != status {
			t.Fatalf("%s = %s, want %s", name, got, status)
		}
	}
	view := m.View()
	if !strings.Contains(view, "bank.toml (lower)") || !strings.Contains(view, "Account 2 methods, 1 failed") {
		t.Fatalf("view:\n%s", view)
	}
}

func TestTruncate(t *testing.T) {
	if got := truncate("Account", 20); got != "Account" {
		t.Fatalf("short = %q", got)
	}
	if got := truncate("VeryLongClassNameForTesting", 10); got != "VeryLon..." {
		t.Fatalf("long = %q", got)
	}
}
