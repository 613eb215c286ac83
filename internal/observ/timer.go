// Package observ collects phase timings of a lowering run.
package observ

import (
	"fmt"
	"strings"
	"sync"
	"text/tabwriter"
	"time"
)

type phase struct {
	name    string
	started time.Time
	elapsed time.Duration
	note    string
}

// Timer records named pipeline phases in the order they begin. A nil
// *Timer is valid and records nothing; methods may be called from several
// goroutines.
type Timer struct {
	mu     sync.Mutex
	phases []phase
}

func NewTimer() *Timer { return &Timer{} }

// Begin opens a phase and returns a handle for End.
func (t *Timer) Begin(name string) int {
	if t == nil {
		return -1
	}
	t.mu.Lock()
	t.phases = append(t.phases, phase{name: name, started: time.Now()})
	idx := len(t.phases) - 1
	t.mu.Unlock()
	return idx
}

// End closes the phase opened by Begin. Unknown handles are ignored.
func (t *Timer) End(idx int, note string) {
	if t == nil {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if idx >= 0 && idx < len(t.phases) {
		p := &t.phases[idx]
		p.elapsed, p.note = time.Since(p.started), note
	}
}

// Measure runs fn as phase name and notes "failed" when it returns an error.
func (t *Timer) Measure(name string, fn func() error) error {
	idx := t.Begin(name)
	err := fn()
	if err != nil {
		t.End(idx, "failed")
	} else {
		t.End(idx, "")
	}
	return err
}

// PhaseReport is one row of a Report.
type PhaseReport struct {
	Name       string  `json:"name" msgpack:"name"`
	DurationMS float64 `json:"duration_ms" msgpack:"duration_ms"`
	Note       string  `json:"note,omitempty" msgpack:"note,omitempty"`
}

// Report is a snapshot of a Timer, ready to be encoded next to the output
// it describes.
type Report struct {
	TotalMS float64       `json:"total_ms" msgpack:"total_ms"`
	Phases  []PhaseReport `json:"phases" msgpack:"phases"`
}

func millis(d time.Duration) float64 { return d.Seconds() * 1e3 }

// Report snapshots the phases recorded so far.
func (t *Timer) Report() Report {
	var r Report
	if t == nil {
		return r
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	var total time.Duration
	for _, p := range t.phases {
		total += p.elapsed
		r.Phases = append(r.Phases, PhaseReport{Name: p.name, DurationMS: millis(p.elapsed), Note: p.note})
	}
	r.TotalMS = millis(total)
	return r
}

// Summary renders the report as an aligned table headed "timings:".
func (t *Timer) Summary() string {
	r := t.Report()
	var sb strings.Builder
	sb.WriteString("timings:\n")
	tw := tabwriter.NewWriter(&sb, 0, 0, 2, ' ', 0)
	for _, p := range r.Phases {
		fmt.Fprintf(tw, "  %s\t%.2f ms\t%s\t\n", p.Name, p.DurationMS, p.Note)
	}
	fmt.Fprintf(tw, "  %s\t%.2f ms\t\t\n", "total", r.TotalMS)
	_ = tw.Flush()
	return sb.String()
}
