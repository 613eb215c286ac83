package source

import (
	"bytes"
	"path/filepath"
)

var bom = []byte{0xEF, 0xBB, 0xBF}

// normalize strips a UTF-8 BOM and folds \r\n into \n. Lone \r bytes are
// kept. The returned flags record what was changed.
func normalize(content []byte) ([]byte, FileFlags) {
	var flags FileFlags
	if rest, ok := bytes.CutPrefix(content, bom); ok {
		content = rest
		flags |= FileHadBOM
	}
	if bytes.Contains(content, []byte("\r\n")) {
		content = bytes.ReplaceAll(content, []byte("\r\n"), []byte("\n"))
		flags |= FileNormalizedCRLF
	}
	return content, flags
}

// lineStarts returns the offsets of every '\n' in content.
func lineStarts(content []byte) []uint32 {
	out := make([]uint32, 0, bytes.Count(content, []byte{'\n'}))
	for i, b := range content {
		if b == '\n' {
			out = append(out, uint32(i)) // #nosec G115 -- file size is bounded by Add
		}
	}
	return out
}

// cleanPath gives every path one slash-separated spelling so lookups and
// diagnostics agree across platforms.
func cleanPath(p string) string {
	return filepath.ToSlash(filepath.Clean(p))
}
