// Package version holds build metadata of the tirc CLI.
// The variables can be overridden at build time via -ldflags.
package version

import (
	"strings"

	"github.com/fatih/color"
)

var (
	// Version is the semantic version of the CLI.
	Version = "0.1.0-dev"

	// GitCommit is an optional git commit hash.
	GitCommit = ""

	// BuildDate is an optional build date in ISO-8601.
	BuildDate = ""
)

var (
	majorColor = color.New(color.FgYellow, color.Bold)
	minorColor = color.New(color.FgGreen, color.Bold)
	patchColor = color.New(color.FgBlue, color.Bold)
)

// Colored renders Version with its major, minor and patch parts highlighted.
// Colors follow color.NoColor.
func Colored() string {
	core, suffix, hasSuffix := strings.Cut(Version, "-")
	parts := strings.SplitN(core, ".", 3)
	if len(parts) != 3 {
		return Version
	}
	out := majorColor.Sprint(parts[0]) + "." + minorColor.Sprint(parts[1]) + "." + patchColor.Sprint(parts[2])
	if hasSuffix {
		out += "-" + suffix
	}
	return out
}

// Banner is the one-line description printed by `tirc version`.
func Banner() string {
	var sb strings.Builder
	sb.WriteString("tirc ")
	sb.WriteString(Colored())
	if GitCommit != "" {
		sb.WriteString(" (")
		sb.WriteString(GitCommit)
		if BuildDate != "" {
			sb.WriteString(", ")
			sb.WriteString(BuildDate)
		}
		sb.WriteString(")")
	}
	return sb.String()
}
