package trace

import (
	"fmt"
	"strings"
)

// Level controls tracing verbosity. Each level admits one more Scope than
// the previous one, so a level and the coarsest scope it drops line up.
type Level uint8

const (
	LevelOff    Level = iota
	LevelError        // driver only
	LevelPhase        // plus passes
	LevelDetail       // plus classes
	LevelDebug        // plus method bodies
)

var levelNames = []string{"off", "error", "phase", "detail", "debug"}

func (l Level) String() string { return nameAt(levelNames, int(l)) }

// ParseLevel converts a flag value to a Level. The empty string means off.
func ParseLevel(s string) (Level, error) {
	if s == "" {
		return LevelOff, nil
	}
	i, err := lookupName("trace level", levelNames, s)
	return Level(i), err
}

// ShouldEmit reports whether events of scope are recorded at this level.
func (l Level) ShouldEmit(scope Scope) bool {
	return l != LevelOff && scope != 0 && uint8(scope) <= uint8(l)
}

// StorageMode selects where events go.
type StorageMode uint8

const (
	ModeStream StorageMode = iota + 1 // write immediately
	ModeRing                          // keep the last events in memory
	ModeBoth
)

var modeNames = []string{"", "stream", "ring", "both"}

func (m StorageMode) String() string { return nameAt(modeNames, int(m)) }

// ParseMode converts a flag value to a StorageMode.
func ParseMode(s string) (StorageMode, error) {
	i, err := lookupName("storage mode", modeNames, s)
	if err != nil {
		return ModeStream, err
	}
	return StorageMode(i), nil
}

func nameAt(names []string, i int) string {
	if i < 0 || i >= len(names) || names[i] == "" {
		return "unknown"
	}
	return names[i]
}

func lookupName(what string, names []string, s string) (int, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for i, n := range names {
		if n != "" && n == s {
			return i, nil
		}
	}
	var valid []string
	for _, n := range names {
		if n != "" {
			valid = append(valid, n)
		}
	}
	return 0, fmt.Errorf("invalid %s %q (expected %s)", what, s, strings.Join(valid, "|"))
}
