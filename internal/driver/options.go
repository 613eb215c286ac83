package driver

import (
	"runtime"

	"tirc/internal/layout"
	"tirc/internal/observ"
)

// Options configures a lowering run.
type Options struct {
	// Jobs bounds the number of method bodies lowered concurrently.
	// Zero means GOMAXPROCS.
	Jobs int
	// Target drives the layout computations. Zero means x86_64.
	Target layout.Target
	// MaxDiagnostics caps the diagnostics kept in the result bag.
	MaxDiagnostics int
	// Cache, when set, stores successful results keyed by unit content.
	Cache *DiskCache
	// Progress receives pipeline events. Calls are serialized.
	Progress ProgressFunc
	// Timer records phase durations when set.
	Timer *observ.Timer
}

func (o Options) withDefaults() Options {
	if o.Jobs <= 0 {
		o.Jobs = runtime.GOMAXPROCS(0)
	}
	if o.Target.Triple == "" {
		o.Target = layout.X86_64LinuxGNU()
	}
	if o.MaxDiagnostics <= 0 {
		o.MaxDiagnostics = 1000
	}
	return o
}
