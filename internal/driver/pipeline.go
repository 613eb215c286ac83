package driver

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"tirc/internal/classes"
	"tirc/internal/diag"
	"tirc/internal/layout"
	"tirc/internal/lower"
	"tirc/internal/source"
	"tirc/internal/tir"
	"tirc/internal/trace"
	"tirc/internal/types"
	"tirc/internal/unit"
	"tirc/internal/version"
)

// Result is the outcome of lowering one unit. Module is nil when
// declarations or decoding failed; otherwise it holds every method that
// lowered cleanly plus the droppers, and Bag lists the rest.
type Result struct {
	Name    string
	Path    string
	FileSet *source.FileSet
	// Types and Classes are nil for cache hits.
	Types   *types.Interner
	Classes *classes.Table
	Module  *tir.Module
	Layouts []ClassLayout
	Names   TypeNames
	Bag     *diag.Bag
	Cached  bool
}

// Failed reports whether any error diagnostic was produced.
func (r *Result) Failed() bool {
	return r == nil || r.Bag.HasErrors()
}

type methodJob struct {
	class  *classes.ClassDef
	method *classes.MethodDef
}

// run carries the per-call state of Lower.
type run struct {
	opts     Options
	prog     *progress
	reporter diag.Reporter
}

// step runs one pipeline phase under a trace span, a progress phase and
// the optional timer.
func (r *run) step(ctx context.Context, name string, fn func(ctx context.Context) error) error {
	ctx, span := trace.Start(ctx, trace.ScopePass, name)
	end := r.prog.phase(name)
	err := r.opts.Timer.Measure(name, func() error { return fn(ctx) })
	end()
	status := "ok"
	if err != nil {
		status = "error"
	}
	span.End(status)
	return err
}

// Lower runs declaration, layout checking, body lowering and dropper
// synthesis over a decoded unit. Compile errors end up in Result.Bag; the
// returned error is reserved for cancellation and internal failures.
func Lower(ctx context.Context, in *types.Interner, u *unit.Unit, opts Options) (*Result, error) {
	opts = opts.withDefaults()
	bag := diag.NewBag(opts.MaxDiagnostics)
	r := &run{
		opts:     opts,
		prog:     &progress{fn: opts.Progress},
		reporter: diag.NewDedupReporter(diag.BagReporter{Bag: bag}),
	}
	res := &Result{Name: u.Name, Path: u.Path, Types: in, Bag: bag}

	ctx, span := trace.Start(ctx, trace.ScopeDriver, "lower "+u.Name)
	defer span.End("")

	tab := classes.NewTable()
	res.Classes = tab
	_ = r.step(ctx, PhaseDeclare, func(context.Context) error {
		for _, def := range u.Classes {
			if err := tab.Define(def); err != nil {
				diag.ReportErr(r.reporter, def.Span, err)
			}
		}
		for _, impl := range u.Impls {
			if err := tab.Reopen(impl.Class, impl.Reopening); err != nil {
				diag.ReportErr(r.reporter, impl.Reopening.Span, err)
			}
		}
		tab.Seal()
		return nil
	})
	if bag.HasErrors() {
		bag.Sort()
		return res, nil
	}

	planner := layout.NewPlanner(opts.Target, in, tab)
	rejected := make(map[string]bool)
	_ = r.step(ctx, PhaseLayout, func(ctx context.Context) error {
		for _, def := range tab.Classes() {
			if errs := planner.CheckClass(def); len(errs) > 0 {
				rejected[def.Name] = true
				diag.ReportErr(r.reporter, def.Span, diag.ErrorList(errs))
				r.prog.emit(ProgressEvent{Kind: ClassRejected, Phase: PhaseLayout, Class: def.Name, Failed: true})
				trace.Point(trace.FromContext(ctx), trace.ScopeClass, "rejected "+def.Name, errs[0].Code.ID(), trace.ParentID(ctx))
				continue
			}
			if def.IsGeneric() {
				continue
			}
			cl, err := classLayout(planner, in, def)
			if err != nil {
				trace.Point(trace.FromContext(ctx), trace.ScopeClass, "no layout "+def.Name, err.Error(), trace.ParentID(ctx))
				continue
			}
			res.Layouts = append(res.Layouts, cl)
		}
		trace.Point(trace.FromContext(ctx), trace.ScopePass, "layout cache",
			fmt.Sprintf("%d layouts", planner.Stats()), trace.ParentID(ctx))
		return nil
	})

	var jobs []methodJob
	for _, def := range tab.Classes() {
		if rejected[def.Name] {
			continue
		}
		for _, m := range def.Methods {
			if m.Body != nil {
				jobs = append(jobs, methodJob{class: def, method: m})
			}
		}
	}

	lctx := lower.NewContext(in, tab, planner)
	funcs := make([]*tir.Func, len(jobs))
	err := r.step(ctx, PhaseLower, func(ctx context.Context) error {
		return r.lowerAll(ctx, lctx, jobs, funcs)
	})
	if err != nil {
		return nil, err
	}

	droppers := make(map[string]*tir.Func)
	err = r.step(ctx, PhaseDroppers, func(context.Context) error {
		for _, def := range tab.Classes() {
			if rejected[def.Name] {
				continue
			}
			fn := lctx.Drops.Dropper(def)
			if fn == nil {
				continue
			}
			if err := tir.Validate(fn); err != nil {
				return fmt.Errorf("dropper of %s: %w", def.Name, err)
			}
			droppers[def.Name] = fn
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	// Deterministic order: table order, methods in declaration order, then
	// the class's dropper.
	mod := &tir.Module{Name: u.Name}
	next := 0
	for _, def := range tab.Classes() {
		for next < len(jobs) && jobs[next].class == def {
			if funcs[next] != nil {
				mod.Funcs = append(mod.Funcs, funcs[next])
			}
			next++
		}
		if fn, ok := droppers[def.Name]; ok {
			mod.Funcs = append(mod.Funcs, fn)
		}
	}
	res.Module = mod
	res.Names = namesOf(in, mod)
	bag.Sort()
	return res, nil
}

// lowerAll lowers jobs concurrently, bounded by Options.Jobs. Body errors
// are reported in job order once every worker is done.
func (r *run) lowerAll(ctx context.Context, lctx *lower.Context, jobs []methodJob, funcs []*tir.Func) error {
	if len(jobs) == 0 {
		return nil
	}
	errs := make([]error, len(jobs))
	var done atomic.Int64

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(min(r.opts.Jobs, len(jobs)))
	for i, job := range jobs {
		g.Go(func() error {
			select {
			case <-gctx.Done():
				return gctx.Err()
			default:
			}

			name := job.class.Name + "." + job.method.Name
			_, span := trace.Start(gctx, trace.ScopeMethod, name)
			fn, err := lower.Lower(lctx, job.class, job.method)
			if err == nil {
				if verr := tir.Validate(fn); verr != nil {
					span.End("invalid")
					return fmt.Errorf("lower %s: %w", name, verr)
				}
				funcs[i] = fn
				span.End("ok")
			} else {
				errs[i] = err
				span.End(diag.CodeOf(err).ID())
			}
			r.prog.emit(ProgressEvent{
				Kind:   MethodLowered,
				Phase:  PhaseLower,
				Class:  job.class.Name,
				Method: job.method.Name,
				Done:   int(done.Add(1)),
				Total:  len(jobs),
				Failed: err != nil,
			})
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	for i, err := range errs {
		if err == nil {
			continue
		}
		if !isDiag(err) {
			return fmt.Errorf("lower %s.%s: %w", jobs[i].class.Name, jobs[i].method.Name, err)
		}
		diag.ReportErr(r.reporter, jobs[i].method.Span, err)
	}
	return nil
}

// LowerFile loads, decodes and lowers the unit at path, consulting the
// disk cache when one is configured. Decoding errors are reported in the
// result's Bag like any other compile error.
func LowerFile(ctx context.Context, path string, opts Options) (*Result, error) {
	opts = opts.withDefaults()
	tracer := trace.FromContext(ctx)

	fs := source.NewFileSet()
	id, err := fs.Load(path)
	if err != nil {
		return nil, fmt.Errorf("load unit %s: %w", path, err)
	}
	file := fs.Get(id)

	key := CacheKey(file.Content, opts.Target)
	if opts.Cache != nil {
		var payload DiskPayload
		ok, err := opts.Cache.Get(key, &payload)
		switch {
		case err != nil:
			trace.Point(tracer, trace.ScopeDriver, "cache read failed", err.Error(), trace.ParentID(ctx))
		case ok && payload.Version == version.Version && payload.Target == opts.Target.Triple:
			return &Result{
				Name:    payload.Name,
				Path:    file.Path,
				FileSet: fs,
				Module:  payload.Module,
				Layouts: payload.Layouts,
				Names:   payload.Names,
				Bag:     diag.NewBag(opts.MaxDiagnostics),
				Cached:  true,
			}, nil
		}
	}

	in := types.NewInterner()
	prog := &progress{fn: opts.Progress}
	end := prog.phase(PhaseDecode)
	var u *unit.Unit
	err = opts.Timer.Measure(PhaseDecode, func() error {
		var derr error
		u, derr = unit.Decode(fs, in, id)
		return derr
	})
	end()
	if err != nil {
		if !isDiag(err) {
			return nil, err
		}
		bag := diag.NewBag(opts.MaxDiagnostics)
		diag.ReportErr(diag.NewDedupReporter(diag.BagReporter{Bag: bag}), source.Span{File: id}, err)
		bag.Sort()
		return &Result{Path: file.Path, FileSet: fs, Types: in, Bag: bag}, nil
	}

	res, err := Lower(ctx, in, u, opts)
	if err != nil {
		return nil, err
	}
	res.FileSet = fs
	if opts.Cache != nil && !res.Failed() {
		payload := &DiskPayload{
			Version: version.Version,
			Target:  opts.Target.Triple,
			Name:    res.Name,
			Module:  res.Module,
			Layouts: res.Layouts,
			Names:   res.Names,
		}
		if err := opts.Cache.Put(key, payload); err != nil {
			trace.Point(tracer, trace.ScopeDriver, "cache write failed", err.Error(), trace.ParentID(ctx))
		}
	}
	return res, nil
}

// isDiag reports whether every error wrapped in err carries a diagnostic code.
func isDiag(err error) bool {
	var one *diag.Error
	var list diag.ErrorList
	return errors.As(err, &one) || errors.As(err, &list)
}
