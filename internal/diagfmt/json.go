package diagfmt

import (
	"encoding/json"
	"io"

	"tirc/internal/diag"
	"tirc/internal/source"
)

// Location is a byte span plus, when positions are requested, its
// 1-based line and column bounds.
type Location struct {
	File      string `json:"file"`
	StartByte uint32 `json:"start_byte"`
	EndByte   uint32 `json:"end_byte"`
	StartLine uint32 `json:"start_line,omitempty"`
	StartCol  uint32 `json:"start_col,omitempty"`
	EndLine   uint32 `json:"end_line,omitempty"`
	EndCol    uint32 `json:"end_col,omitempty"`
}

type Note struct {
	Message  string   `json:"message"`
	Location Location `json:"location"`
}

type Entry struct {
	Severity string   `json:"severity"`
	Code     string   `json:"code"`
	Title    string   `json:"title,omitempty"`
	Message  string   `json:"message"`
	Location Location `json:"location"`
	Notes    []Note   `json:"notes,omitempty"`
}

// Document is the JSON form of a Bag. Suppressed counts diagnostics left
// out by the bag cap or by JSONOpts.Max.
type Document struct {
	Diagnostics []Entry `json:"diagnostics"`
	Count       int     `json:"count"`
	Suppressed  int     `json:"suppressed,omitempty"`
}

type locator struct {
	fs   *source.FileSet
	opts JSONOpts
}

func (l locator) at(sp source.Span) Location {
	loc := Location{StartByte: sp.Start, EndByte: sp.End}
	if f := l.fs.Get(sp.File); f != nil {
		loc.File = formatPath(f.Path, l.opts.PathMode, l.opts.BaseDir)
	}
	if l.opts.IncludePositions {
		start, end := l.fs.Resolve(sp)
		loc.StartLine, loc.StartCol = start.Line, start.Col
		loc.EndLine, loc.EndCol = end.Line, end.Col
	}
	return loc
}

// BuildDocument converts bag without serializing it.
func BuildDocument(bag *diag.Bag, fs *source.FileSet, opts JSONOpts) Document {
	items := bag.Items()
	keep := len(items)
	if opts.Max > 0 {
		keep = min(keep, opts.Max)
	}
	loc := locator{fs: fs, opts: opts}
	doc := Document{
		Diagnostics: make([]Entry, 0, keep),
		Suppressed:  len(items) - keep + bag.Dropped(),
	}
	for _, d := range items[:keep] {
		e := Entry{
			Severity: d.Severity.String(),
			Code:     d.Code.ID(),
			Title:    d.Code.Title(),
			Message:  d.Message,
			Location: loc.at(d.Primary),
		}
		if opts.IncludeNotes {
			for _, n := range d.Notes {
				e.Notes = append(e.Notes, Note{Message: n.Msg, Location: loc.at(n.Span)})
			}
		}
		doc.Diagnostics = append(doc.Diagnostics, e)
	}
	doc.Count = len(doc.Diagnostics)
	return doc
}

// JSON writes bag as one indented JSON document.
func JSON(w io.Writer, bag *diag.Bag, fs *source.FileSet, opts JSONOpts) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(BuildDocument(bag, fs, opts))
}
