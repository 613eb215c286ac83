package driver

import (
	"sync"
	"time"
)

// ProgressKind is the type of a pipeline event.
type ProgressKind uint8

const (
	// PhaseStart: a pipeline phase has begun.
	PhaseStart ProgressKind = iota
	PhaseEnd
	// MethodLowered: one method body finished, successfully or not.
	MethodLowered
	// ClassRejected: the layout planner rejected a class; its methods are skipped.
	ClassRejected
)

// Phase names reported through PhaseStart and PhaseEnd.
const (
	PhaseDecode   = "decode"
	PhaseDeclare  = "declare"
	PhaseLayout   = "layout"
	PhaseLower    = "lower"
	PhaseDroppers = "droppers"
)

// ProgressEvent describes one step of the pipeline.
type ProgressEvent struct {
	Kind    ProgressKind
	Phase   string
	Class   string
	Method  string
	Done    int
	Total   int
	Elapsed time.Duration
	Failed  bool
}

// ProgressFunc receives pipeline events.
type ProgressFunc func(ProgressEvent)

// progress serializes events coming from concurrent lowering workers.
type progress struct {
	mu sync.Mutex
	fn ProgressFunc
}

func (p *progress) emit(ev ProgressEvent) {
	if p == nil || p.fn == nil {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.fn(ev)
}

// phase emits PhaseStart and returns a function emitting PhaseEnd.
func (p *progress) phase(name string) func() {
	start := time.Now()
	p.emit(ProgressEvent{Kind: PhaseStart, Phase: name})
	return func() {
		p.emit(ProgressEvent{Kind: PhaseEnd, Phase: name, Elapsed: time.Since(start)})
	}
}
