package main

import (
	"context"
	"fmt"
	"io"
	"path/filepath"

	"tirc/internal/driver"
	"tirc/internal/ui"
)

// lowerOnce runs the pipeline for s, optionally behind the progress view
// rendered on uiOut.
func lowerOnce(ctx context.Context, s *runSettings, uiOut io.Writer) (*driver.Result, error) {
	if uiOut == nil {
		return driver.LowerFile(ctx, s.path, s.opts)
	}

	events := make(chan driver.ProgressEvent, 256)
	type outcome struct {
		res *driver.Result
		err error
	}
	done := make(chan outcome, 1)
	go func() {
		opts := s.opts
		opts.Progress = func(ev driver.ProgressEvent) { events <- ev }
		res, err := driver.LowerFile(ctx, s.path, opts)
		close(events)
		done <- outcome{res: res, err: err}
	}()

	uiErr := ui.Run(ctx, filepath.Base(s.path), events, uiOut)
	// Keep the pipeline from blocking if the view quit early.
	go func() {
		for range events {
		}
	}()
	out := <-done
	if out.err != nil {
		return nil, out.err
	}
	if uiErr != nil {
		return out.res, fmt.Errorf("progress view: %w", uiErr)
	}
	return out.res, nil
}

// printTimings writes the phase summary when --timings is set.
func printTimings(w io.Writer, s *runSettings) {
	if !s.timings || s.opts.Timer == nil {
		return
	}
	fmt.Fprint(w, s.opts.Timer.Summary())
}
