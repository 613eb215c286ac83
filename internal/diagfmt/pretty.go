package diagfmt

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/mattn/go-runewidth"

	"tirc/internal/diag"
	"tirc/internal/source"
)

type palette struct {
	err, warn, info, note, gutter, caret, bold *color.Color
}

func newPalette(enabled bool) palette {
	p := palette{
		err:    color.New(color.FgRed, color.Bold),
		warn:   color.New(color.FgYellow, color.Bold),
		info:   color.New(color.FgCyan, color.Bold),
		note:   color.New(color.FgBlue, color.Bold),
		gutter: color.New(color.FgBlue),
		caret:  color.New(color.FgGreen, color.Bold),
		bold:   color.New(color.Bold),
	}
	for _, c := range []*color.Color{p.err, p.warn, p.info, p.note, p.gutter, p.caret, p.bold} {
		if enabled {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
	}
	return p
}

func (p palette) severity(s diag.Severity) *color.Color {
	switch s {
	case diag.SevError:
		return p.err
	case diag.SevWarning:
		return p.warn
	default:
		return p.info
	}
}

// Pretty renders diagnostics for humans, in bag order (call bag.Sort()
// first). Each diagnostic prints as
//
//	<path>:<line>:<col>: <SEV> <CODE>: <message>
//
// followed by the source line with the span underlined ^~~~ and, when
// enabled, its notes in the same format.
func Pretty(w io.Writer, bag *diag.Bag, fs *source.FileSet, opts PrettyOpts) error {
	if bag == nil {
		return nil
	}
	p := newPalette(opts.Color)
	for i, d := range bag.Items() {
		if i > 0 {
			if _, err := fmt.Fprintln(w); err != nil {
				return err
			}
		}
		var sb strings.Builder
		sb.WriteString(p.bold.Sprint(location(fs, d.Primary, opts.PathMode, opts.BaseDir)))
		sb.WriteString(": ")
		sb.WriteString(p.severity(d.Severity).Sprintf("%s %s", d.Severity, d.Code.ID()))
		sb.WriteString(": ")
		sb.WriteString(d.Message)
		sb.WriteByte('\n')
		writeSnippet(&sb, fs, d.Primary, opts, p)
		if opts.ShowNotes {
			for _, n := range d.Notes {
				fmt.Fprintf(&sb, "  %s %s: %s\n", p.note.Sprint("note:"), location(fs, n.Span, opts.PathMode, opts.BaseDir), n.Msg)
			}
		}
		if _, err := io.WriteString(w, sb.String()); err != nil {
			return err
		}
	}
	return nil
}

func location(fs *source.FileSet, sp source.Span, mode PathMode, base string) string {
	f := fs.Get(sp.File)
	if f == nil {
		return "<unknown>"
	}
	start, _ := fs.Resolve(sp)
	return fmt.Sprintf("%s:%d:%d", formatPath(f.Path, mode, base), start.Line, start.Col)
}

// writeSnippet prints the context lines and the primary line of sp with a
// caret run under the span. Columns are measured in display cells so wide
// runes keep the carets aligned; tabs are copied into the padding.
func writeSnippet(sb *strings.Builder, fs *source.FileSet, sp source.Span, opts PrettyOpts, p palette) {
	f := fs.Get(sp.File)
	if f == nil || len(f.Content) == 0 {
		return
	}
	start, end := fs.Resolve(sp)
	if start.Line == 0 {
		return
	}
	first := start.Line
	if opts.Context > 0 {
		first = start.Line - min(start.Line-1, uint32(opts.Context))
	}
	gutterWidth := len(fmt.Sprint(start.Line))

	for ln := first; ln <= start.Line; ln++ {
		line := f.GetLine(ln)
		if opts.Width > 0 {
			line = runewidth.Truncate(line, int(opts.Width), "…")
		}
		fmt.Fprintf(sb, "%s %s\n", p.gutter.Sprintf("%*d |", gutterWidth, ln), line)
	}

	line := f.GetLine(start.Line)
	col := min(int(start.Col)-1, len(line))
	col = max(col, 0)
	endCol := len(line)
	if end.Line == start.Line {
		endCol = min(max(int(end.Col)-1, col), len(line))
	}
	var pad strings.Builder
	for _, r := range line[:col] {
		if r == '\t' {
			pad.WriteByte('\t')
			continue
		}
		pad.WriteString(strings.Repeat(" ", runewidth.RuneWidth(r)))
	}
	width := max(runewidth.StringWidth(line[col:endCol]), 1)
	if opts.Width > 0 {
		width = max(min(width, int(opts.Width)-runewidth.StringWidth(line[:col])), 1)
	}
	carets := "^" + strings.Repeat("~", width-1)
	fmt.Fprintf(sb, "%s %s%s\n", p.gutter.Sprintf("%*s |", gutterWidth, ""), pad.String(), p.caret.Sprint(carets))
}
