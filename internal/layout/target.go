package layout

import "fmt"

// Target describes the ABI target triple and its pointer properties.
type Target struct {
	Triple   string // e.g. "x86_64-linux-gnu"
	PtrSize  int    // bytes
	PtrAlign int    // bytes
	// MaxAlign caps scalar alignment; i386 aligns 8-byte scalars to 4.
	MaxAlign int
}

func X86_64LinuxGNU() Target {
	return Target{
		Triple:   "x86_64-linux-gnu",
		PtrSize:  8,
		PtrAlign: 8,
		MaxAlign: 8,
	}
}

func Aarch64LinuxGNU() Target {
	return Target{
		Triple:   "aarch64-linux-gnu",
		PtrSize:  8,
		PtrAlign: 8,
		MaxAlign: 8,
	}
}

func I386LinuxGNU() Target {
	return Target{
		Triple:   "i386-linux-gnu",
		PtrSize:  4,
		PtrAlign: 4,
		MaxAlign: 4,
	}
}

// ParseTarget resolves a triple; the empty string selects x86_64.
func ParseTarget(triple string) (Target, error) {
	switch triple {
	case "", "x86_64-linux-gnu", "x86_64":
		return X86_64LinuxGNU(), nil
	case "aarch64-linux-gnu", "aarch64", "arm64":
		return Aarch64LinuxGNU(), nil
	case "i386-linux-gnu", "i386", "x86":
		return I386LinuxGNU(), nil
	default:
		return Target{}, fmt.Errorf("unsupported target %q", triple)
	}
}
