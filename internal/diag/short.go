package diag

import (
	"fmt"
	"sort"
	"strings"

	"tirc/internal/source"
)

type shortDiagnostic struct {
	Severity string
	Code     string
	Path     string
	Line     uint32
	Column   uint32
	Message  string
}

// FormatShortDiagnostics renders diagnostics one per line in a stable order:
//
//	<severity> <CODE> <path>:<line>:<col> <message>
//
// Notes are emitted as "note" lines when includeNotes is set. The format is
// used by `tirc check --format short` and by golden tests.
func FormatShortDiagnostics(diags []*Diagnostic, fs *source.FileSet, includeNotes bool) string {
	if fs == nil || len(diags) == 0 {
		return ""
	}
	rendered := make([]shortDiagnostic, 0, len(diags))
	for _, d := range diags {
		rendered = appendShort(rendered, fs, d.Severity.Label(), d.Code, d.Primary, d.Message)
		if !includeNotes {
			continue
		}
		for _, n := range d.Notes {
			rendered = appendShort(rendered, fs, "note", d.Code, n.Span, n.Msg)
		}
	}
	sort.SliceStable(rendered, func(i, j int) bool {
		di, dj := rendered[i], rendered[j]
		if di.Path != dj.Path {
			return di.Path < dj.Path
		}
		if di.Line != dj.Line {
			return di.Line < dj.Line
		}
		return di.Column < dj.Column
	})

	var b strings.Builder
	for i, d := range rendered {
		fmt.Fprintf(&b, "%s %s %s:%d:%d %s", d.Severity, d.Code, d.Path, d.Line, d.Column, d.Message)
		if i < len(rendered)-1 {
			b.WriteByte('\n')
		}
	}
	return b.String()
}

func appendShort(out []shortDiagnostic, fs *source.FileSet, sev string, code Code, sp source.Span, msg string) []shortDiagnostic {
	file := fs.Get(sp.File)
	if file == nil {
		return out
	}
	start, _ := fs.Resolve(sp)
	return append(out, shortDiagnostic{
		Severity: sev,
		Code:     code.ID(),
		Path:     file.Path,
		Line:     start.Line,
		Column:   start.Col,
		Message:  sanitizeMessage(msg),
	})
}

func sanitizeMessage(msg string) string {
	msg = strings.ReplaceAll(msg, "\r\n", "\n")
	msg = strings.ReplaceAll(msg, "\n", " ")
	return strings.TrimSpace(msg)
}
