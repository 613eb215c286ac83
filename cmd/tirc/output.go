package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"github.com/vmihailenco/msgpack/v5"

	"tirc/internal/diag"
	"tirc/internal/diagfmt"
	"tirc/internal/driver"
	"tirc/internal/observ"
	"tirc/internal/tir"
)

type emitFormat string

const (
	emitText    emitFormat = "text"
	emitJSON    emitFormat = "json"
	emitMsgpack emitFormat = "msgpack"
)

func parseEmit(value string) (emitFormat, error) {
	switch f := emitFormat(strings.ToLower(strings.TrimSpace(value))); f {
	case emitText, emitJSON, emitMsgpack:
		return f, nil
	default:
		return "", fmt.Errorf("unknown emit format %q (expected text|json|msgpack)", value)
	}
}

// emittedUnit is the machine-readable form of a lowered unit.
type emittedUnit struct {
	Name    string               `json:"name" msgpack:"name"`
	Target  string               `json:"target" msgpack:"target"`
	Module  *tir.Module          `json:"module" msgpack:"module"`
	Layouts []driver.ClassLayout `json:"layouts" msgpack:"layouts"`
	Types   map[uint32]string    `json:"types" msgpack:"types"`
	Timings *observ.Report       `json:"timings,omitempty" msgpack:"timings,omitempty"`
}

// emitResult writes res in the emit format of s. Structured formats carry
// the phase report when --timings is on.
func emitResult(w io.Writer, res *driver.Result, s *runSettings) error {
	switch format := s.emit; format {
	case emitText:
		return tir.DumpModule(w, res.Module, res.Names)
	case emitJSON, emitMsgpack:
		payload := emittedUnit{
			Name:    res.Name,
			Target:  s.opts.Target.Triple,
			Module:  res.Module,
			Layouts: res.Layouts,
			Types:   make(map[uint32]string, len(res.Names)),
		}
		if s.timings && s.opts.Timer != nil {
			report := s.opts.Timer.Report()
			payload.Timings = &report
		}
		for id, name := range res.Names {
			payload.Types[uint32(id)] = name
		}
		if format == emitMsgpack {
			data, err := msgpack.Marshal(&payload)
			if err != nil {
				return fmt.Errorf("failed to encode msgpack: %w", err)
			}
			_, err = w.Write(data)
			return err
		}
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(&payload)
	default:
		return fmt.Errorf("unknown emit format %q", s.emit)
	}
}

// diagOptions are the knobs of printDiagnostics.
type diagOptions struct {
	format    string // pretty|json|short
	withNotes bool
	fullPath  bool
}

func printDiagnostics(cmd *cobra.Command, w io.Writer, res *driver.Result, opts diagOptions) error {
	if res == nil || res.Bag == nil {
		return nil
	}
	pathMode := diagfmt.PathModeAuto
	if opts.fullPath {
		pathMode = diagfmt.PathModeAbsolute
	}
	switch opts.format {
	case "", "pretty":
		if res.Bag.Len() == 0 {
			return nil
		}
		color, err := useColor(cmd, w)
		if err != nil {
			return err
		}
		if err := diagfmt.Pretty(w, res.Bag, res.FileSet, diagfmt.PrettyOpts{
			Color:     color,
			Context:   2,
			PathMode:  pathMode,
			ShowNotes: opts.withNotes,
		}); err != nil {
			return err
		}
		if n := res.Bag.Dropped(); n > 0 {
			_, err = fmt.Fprintf(w, "\n%d more diagnostics suppressed (raise --max-diagnostics)\n", n)
		}
		return err
	case "short":
		out := diag.FormatShortDiagnostics(res.Bag.Items(), res.FileSet, opts.withNotes)
		if out == "" {
			return nil
		}
		_, err := fmt.Fprintln(w, out)
		return err
	case "json":
		return diagfmt.JSON(w, res.Bag, res.FileSet, diagfmt.JSONOpts{
			IncludePositions: true,
			PathMode:         pathMode,
			IncludeNotes:     opts.withNotes,
		})
	default:
		return fmt.Errorf("unknown format: %s", opts.format)
	}
}
