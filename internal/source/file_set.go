package source

import (
	"crypto/sha256"
	"fmt"
	"os"
	"sort"

	"fortio.org/safecast"
)

// FileSet owns the unit files seen by one compilation and resolves spans
// back to line/column positions for diagnostics.
type FileSet struct {
	files []File
	index map[string]FileID // path -> latest id
}

// NewFileSet creates a new empty FileSet.
func NewFileSet() *FileSet {
	return &FileSet{
		files: make([]File, 0, 4),
		index: make(map[string]FileID),
	}
}

// Add stores a file from normalized bytes, computes LineIdx and Hash, and returns a new FileID.
// It always creates a new FileID even if a file with the same path already exists.
func (fileSet *FileSet) Add(path string, content []byte, flags FileFlags) FileID {
	lenFiles, err := safecast.Conv[uint32](len(fileSet.files))
	if err != nil {
		panic(fmt.Errorf("len files overflow: %w", err))
	}
	id := FileID(lenFiles)
	normalized := cleanPath(path)
	fileSet.files = append(fileSet.files, File{
		ID:      id,
		Path:    normalized,
		Content: content,
		LineIdx: lineStarts(content),
		Hash:    sha256.Sum256(content),
		Flags:   flags,
	})
	// A reloaded path resolves to its newest content.
	fileSet.index[normalized] = id
	return id
}

// Load reads a file from disk, normalizes CRLF/BOM, and calls Add.
func (fileSet *FileSet) Load(path string) (FileID, error) {
	// #nosec G304 -- path is provided by the caller
	content, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	content, flags := normalize(content)
	return fileSet.Add(path, content, flags), nil
}

// AddVirtual adds an in-memory file with the FileVirtual flag.
func (fileSet *FileSet) AddVirtual(name string, content []byte) FileID {
	return fileSet.Add(name, content, FileVirtual)
}

// Get returns the file metadata for the given ID, or nil when unknown.
func (fileSet *FileSet) Get(id FileID) *File {
	if int(id) >= len(fileSet.files) {
		return nil
	}
	return &fileSet.files[id]
}

// GetLatest returns the latest file ID for the given path, if it exists.
func (fileSet *FileSet) GetLatest(path string) (FileID, bool) {
	id, ok := fileSet.index[cleanPath(path)]
	return id, ok
}

// Resolve converts a span into line and column positions.
func (fileSet *FileSet) Resolve(span Span) (start, end LineCol) {
	f := fileSet.Get(span.File)
	if f == nil {
		return LineCol{Line: 1, Col: 1}, LineCol{Line: 1, Col: 1}
	}
	return toLineCol(f.LineIdx, span.Start), toLineCol(f.LineIdx, span.End)
}

// Offset converts a 1-based line/column into a byte offset of the file.
// Positions past the end of a line clamp to the line end.
func (f *File) Offset(pos LineCol) (uint32, bool) {
	if f == nil || pos.Line == 0 || pos.Col == 0 {
		return 0, false
	}
	lines, err := safecast.Conv[uint32](len(f.LineIdx))
	if err != nil || pos.Line > lines+1 {
		return 0, false
	}
	start := uint32(0)
	if pos.Line > 1 {
		start = f.LineIdx[pos.Line-2] + 1
	}
	end, err := safecast.Conv[uint32](len(f.Content))
	if err != nil {
		return 0, false
	}
	if pos.Line <= lines {
		end = f.LineIdx[pos.Line-1]
	}
	off := start + pos.Col - 1
	if off > end {
		off = end
	}
	return off, true
}

// SpanAt returns a span starting at pos and running to the end of its line.
func (f *File) SpanAt(pos LineCol) (Span, bool) {
	start, ok := f.Offset(pos)
	if !ok {
		return Span{}, false
	}
	end := start
	for int(end) < len(f.Content) && f.Content[end] != '\n' {
		end++
	}
	return Span{File: f.ID, Start: start, End: end}, true
}

// GetLine returns line n (1-based) without its newline, or "" past the end.
func (f *File) GetLine(lineNum uint32) string {
	if f == nil || lineNum == 0 {
		return ""
	}
	if int(lineNum) > len(f.LineIdx)+1 {
		return ""
	}
	start := 0
	if lineNum > 1 {
		start = int(f.LineIdx[lineNum-2]) + 1
	}
	end := len(f.Content)
	if int(lineNum) <= len(f.LineIdx) {
		end = int(f.LineIdx[lineNum-1])
	}
	if start > end {
		return ""
	}
	return string(f.Content[start:end])
}

func toLineCol(lineIdx []uint32, off uint32) LineCol {
	// newlines strictly before off
	n := sort.Search(len(lineIdx), func(i int) bool { return lineIdx[i] >= off })
	startOff := uint32(0)
	if n > 0 {
		startOff = lineIdx[n-1] + 1
	}
	line, err := safecast.Conv[uint32](n + 1)
	if err != nil {
		panic(fmt.Errorf("line number overflow: %w", err))
	}
	return LineCol{Line: line, Col: off - startOff + 1}
}
