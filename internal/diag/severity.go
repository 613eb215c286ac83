package diag

import "strings"

// Severity orders diagnostics by importance; SevError fails a unit.
type Severity uint8

const (
	SevInfo Severity = iota
	SevWarning
	SevError
)

var severityNames = [...]string{SevInfo: "INFO", SevWarning: "WARNING", SevError: "ERROR"}

// String is the upper-case form used by the pretty and JSON renderers.
func (s Severity) String() string {
	if int(s) < len(severityNames) {
		return severityNames[s]
	}
	return "UNKNOWN"
}

// Label is the lower-case form used by the short format. Unknown values
// read as info.
func (s Severity) Label() string {
	if int(s) >= len(severityNames) {
		s = SevInfo
	}
	return strings.ToLower(severityNames[s])
}
