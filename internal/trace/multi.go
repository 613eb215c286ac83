package trace

import "errors"

// MultiTracer fans every event out to a fixed list of tracers. Each tracer
// gets its own copy because tracers stamp Seq on the event they receive.
type MultiTracer struct {
	level   Level
	targets []Tracer
}

// NewMultiTracer combines targets under one level.
func NewMultiTracer(level Level, targets ...Tracer) *MultiTracer {
	return &MultiTracer{level: level, targets: targets}
}

func (t *MultiTracer) Emit(ev *Event) {
	for _, target := range t.targets {
		cp := *ev
		target.Emit(&cp)
	}
}

func (t *MultiTracer) Flush() error {
	return t.each(Tracer.Flush)
}

func (t *MultiTracer) Close() error {
	return t.each(Tracer.Close)
}

func (t *MultiTracer) each(op func(Tracer) error) error {
	errs := make([]error, 0, len(t.targets))
	for _, target := range t.targets {
		errs = append(errs, op(target))
	}
	return errors.Join(errs...)
}

func (t *MultiTracer) Level() Level  { return t.level }
func (t *MultiTracer) Enabled() bool { return t.level > LevelOff }
