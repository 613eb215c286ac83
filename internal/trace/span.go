package trace

import (
	"runtime"
	"strconv"
	"strings"
	"sync/atomic"
	"time"
)

var seq, spanIDs atomic.Uint64

// NextSeq returns the next event sequence number, shared by all tracers.
func NextSeq() uint64 { return seq.Add(1) }

// NextSpanID returns a process-unique span ID.
func NextSpanID() uint64 { return spanIDs.Add(1) }

// currentGID reads the goroutine number from the first line of the stack
// header ("goroutine 17 [running]:"). It returns 0 if the header changes shape.
func currentGID() uint64 {
	var buf [64]byte
	hdr := string(buf[:runtime.Stack(buf[:], false)])
	hdr, ok := strings.CutPrefix(hdr, "goroutine ")
	if !ok {
		return 0
	}
	num, _, _ := strings.Cut(hdr, " ")
	gid, err := strconv.ParseUint(num, 10, 64)
	if err != nil {
		return 0
	}
	return gid
}

func admits(t Tracer, scope Scope) bool {
	return t != nil && t.Enabled() && t.Level().ShouldEmit(scope)
}

// Span is an open trace span. Spans from a disabled tracer are inert: they
// have ID 0 and End reports a zero duration.
type Span struct {
	tracer Tracer
	base   Event
	extra  map[string]string
}

// Begin opens a span under parent and emits its begin event.
func Begin(t Tracer, scope Scope, name string, parent uint64) *Span {
	if !admits(t, scope) {
		return &Span{}
	}
	s := &Span{tracer: t, base: Event{
		Time:     time.Now(),
		Scope:    scope,
		SpanID:   NextSpanID(),
		ParentID: parent,
		GID:      currentGID(),
		Name:     name,
	}}
	ev := s.base
	ev.Kind = KindSpanBegin
	t.Emit(&ev)
	return s
}

// End emits the end event with detail and returns how long the span was open.
func (s *Span) End(detail string) time.Duration {
	if s == nil || s.tracer == nil {
		return 0
	}
	ev := s.base
	ev.Kind = KindSpanEnd
	ev.Time = time.Now()
	ev.Detail = detail
	ev.Extra = s.extra
	s.tracer.Emit(&ev)
	return ev.Time.Sub(s.base.Time)
}

// WithExtra attaches key=value to the end event.
func (s *Span) WithExtra(key, value string) *Span {
	if s == nil || s.tracer == nil {
		return s
	}
	if s.extra == nil {
		s.extra = map[string]string{}
	}
	s.extra[key] = value
	return s
}

// ID returns the span ID, 0 for inert spans.
func (s *Span) ID() uint64 {
	if s == nil {
		return 0
	}
	return s.base.SpanID
}

// Point emits an instant event under parent.
func Point(t Tracer, scope Scope, name, detail string, parent uint64) {
	if !admits(t, scope) {
		return
	}
	t.Emit(&Event{
		Time:     time.Now(),
		Kind:     KindPoint,
		Scope:    scope,
		ParentID: parent,
		GID:      currentGID(),
		Name:     name,
		Detail:   detail,
	})
}
