package diagfmt

import (
	"bytes"
	"encoding/json"
	"testing"

	"tirc/internal/diag"
)

func TestJSONOutput(t *testing.T) {
	fs, bag := pointBag(t)
	var buf bytes.Buffer
	opts := JSONOpts{IncludePositions: true, PathMode: PathModeBasename, IncludeNotes: true}
	if err := JSON(&buf, bag, fs, opts); err != nil {
		t.Fatal(err)
	}
	var out Document
	if err := json.Unmarshal(buf.Bytes(), &out); err != nil {
		t.Fatalf("invalid JSON: %v\n%s", err, buf.String())
	}
	if out.Count != 1 || len(out.Diagnostics) != 1 {
		t.Fatalf("count = %d", out.Count)
	}
	d := out.Diagnostics[0]
	if d.Severity != "ERROR" || d.Code != diag.LayoutNonInlineField.ID() || d.Title == "" {
		t.Fatalf("header = %+v", d)
	}
	loc := d.Location
	if loc.File != "bank.toml" || loc.StartByte != 17 || loc.EndByte != 24 || loc.StartLine != 2 || loc.StartCol != 8 {
		t.Fatalf("location = %+v", loc)
	}
	if len(d.Notes) != 1 || d.Notes[0].Location.StartLine != 1 {
		t.Fatalf("notes = %+v", d.Notes)
	}
}

func TestJSONMaxAndPositions(t *testing.T) {
	fs, bag := pointBag(t)
	bag.Add(diag.NewError(diag.UnitFormat, bag.Items()[0].Primary, "second"))

	out := BuildDocument(bag, fs, JSONOpts{Max: 1})
	if out.Count != 1 || out.Suppressed != 1 {
		t.Fatalf("Max must truncate, count = %d suppressed = %d", out.Count, out.Suppressed)
	}
	d := out.Diagnostics[0]
	if d.Location.StartLine != 0 || d.Notes != nil {
		t.Fatalf("positions and notes are opt-in: %+v", d)
	}
}
