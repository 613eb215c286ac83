package diag

import "sort"

// Bag collects diagnostics up to a fixed cap. It is not safe for concurrent
// use; the driver reports from one goroutine after the workers finish.
type Bag struct {
	items   []*Diagnostic
	max     int
	dropped int
}

// NewBag returns a bag keeping at most max diagnostics.
func NewBag(max int) *Bag {
	if max <= 0 {
		max = 1
	}
	return &Bag{
		items: make([]*Diagnostic, 0, min(max, 64)),
		max:   max,
	}
}

// Add stores d and reports whether it fit under the cap.
func (b *Bag) Add(d *Diagnostic) bool {
	if d == nil {
		return false
	}
	if len(b.items) >= b.max {
		b.dropped++
		return false
	}
	b.items = append(b.items, d)
	return true
}

func (b *Bag) Cap() int {
	return b.max
}

// Dropped is the number of diagnostics rejected by the cap.
func (b *Bag) Dropped() int {
	return b.dropped
}

// HasErrors reports whether any diagnostic is an error.
func (b *Bag) HasErrors() bool {
	for _, d := range b.items {
		if d.Severity >= SevError {
			return true
		}
	}
	return false
}

func (b *Bag) Len() int {
	return len(b.items)
}

// Items returns the stored diagnostics. The slice aliases the bag and must
// not be modified.
func (b *Bag) Items() []*Diagnostic {
	return b.items
}

// HasCode reports whether any collected diagnostic carries code.
func (b *Bag) HasCode(code Code) bool {
	for _, d := range b.items {
		if d.Code == code {
			return true
		}
	}
	return false
}

// Sort orders diagnostics by file, start, end, then errors before warnings,
// then by code. The order is stable, so output is deterministic.
func (b *Bag) Sort() {
	sort.SliceStable(b.items, func(i, j int) bool {
		di, dj := b.items[i], b.items[j]
		if di.Primary.File != dj.Primary.File {
			return di.Primary.File < dj.Primary.File
		}
		if di.Primary.Start != dj.Primary.Start {
			return di.Primary.Start < dj.Primary.Start
		}
		if di.Primary.End != dj.Primary.End {
			return di.Primary.End < dj.Primary.End
		}
		if di.Severity != dj.Severity {
			return di.Severity > dj.Severity
		}
		return di.Code < dj.Code
	})
}
