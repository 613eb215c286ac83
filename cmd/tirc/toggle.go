package main

import (
	"fmt"
	"io"
	"os"
	"strings"
)

// toggle is the value of an auto|on|off flag such as --color or --ui.
type toggle uint8

const (
	toggleAuto toggle = iota
	toggleOn
	toggleOff
)

func parseToggle(flag, value string) (toggle, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "", "auto":
		return toggleAuto, nil
	case "on":
		return toggleOn, nil
	case "off":
		return toggleOff, nil
	}
	return toggleAuto, fmt.Errorf("invalid --%s value %q (expected auto|on|off)", flag, value)
}

// enabledFor resolves auto against w: only terminals qualify.
func (t toggle) enabledFor(w io.Writer) bool {
	if t != toggleAuto {
		return t == toggleOn
	}
	f, ok := w.(*os.File)
	return ok && isTerminal(f)
}
