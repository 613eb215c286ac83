package source

import "fmt"

// Span is a half-open byte range inside one file of a FileSet.
type Span struct {
	File  FileID
	Start uint32 // byte offset, inclusive
	End   uint32 // byte offset, exclusive
}

// NoSpan is used for synthesized code that has no place in the input.
var NoSpan = Span{}

func (s Span) Empty() bool    { return s.Start == s.End }
func (s Span) Len() uint32    { return s.End - s.Start }
func (s Span) String() string { return fmt.Sprintf("%d:%d-%d", s.File, s.Start, s.End) }

// Cover returns the smallest span containing both s and other. A zero s
// yields other; spans of different files leave s unchanged.
func (s Span) Cover(other Span) Span {
	switch {
	case s.File != other.File:
		return s
	case s.Empty() && s.Start == 0:
		return other
	}
	return Span{File: s.File, Start: min(s.Start, other.Start), End: max(s.End, other.End)}
}

// Contains reports whether other lies fully inside s.
func (s Span) Contains(other Span) bool {
	return s.File == other.File && other.Start >= s.Start && other.End <= s.End
}
