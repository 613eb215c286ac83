package diagfmt

// PathMode selects how file paths are printed.
type PathMode uint8

const (
	// PathModeAuto prints paths as given, or the basename past autoPathLimit.
	PathModeAuto PathMode = iota
	PathModeAbsolute
	// PathModeRelative prints paths relative to BaseDir when inside it.
	PathModeRelative
	PathModeBasename
)

type PrettyOpts struct {
	Color     bool
	Context   int8  // source lines shown above the primary line
	Width     uint8 // max source line width, 0 = unlimited
	PathMode  PathMode
	BaseDir   string // PathModeRelative anchor, working directory when empty
	ShowNotes bool
}

type JSONOpts struct {
	IncludePositions bool // add line/col to every location
	IncludeNotes     bool
	PathMode         PathMode
	BaseDir          string
	Max              int // truncates the output, not the Bag
}
