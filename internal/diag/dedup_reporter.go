package diag

import (
	"sync"

	"tirc/internal/source"
)

// DedupReporter forwards each distinct (code, severity, primary span,
// message) once. Notes do not take part in the comparison. It is safe for
// concurrent use by the driver's lowering workers.
type DedupReporter struct {
	next Reporter
	mu   sync.Mutex
	seen map[dedupKey]bool
}

type dedupKey struct {
	code Code
	sev  Severity
	at   source.Span
	msg  string
}

func NewDedupReporter(next Reporter) *DedupReporter {
	return &DedupReporter{next: next, seen: map[dedupKey]bool{}}
}

func (r *DedupReporter) Report(code Code, sev Severity, primary source.Span, msg string, notes []Note) {
	if r == nil || !r.first(dedupKey{code, sev, primary, msg}) || r.next == nil {
		return
	}
	r.next.Report(code, sev, primary, msg, notes)
}

func (r *DedupReporter) first(k dedupKey) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.seen[k] {
		return false
	}
	r.seen[k] = true
	return true
}
