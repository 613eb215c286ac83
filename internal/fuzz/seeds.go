package fuzztests

import (
	"io/fs"
	"os"
	"path/filepath"
	"testing"
)

const (
	maxSeedBytes = 64 << 10
	maxFuzzInput = 1 << 16
)

// builtinSeeds cover the unit constructs the pipeline branches on.
var builtinSeeds = []string{
	`format = "1.0"
name = "empty"
`,
	`format = "1.0"
name = "moves"

[[class]]
name = "Pair"
field = [{ name = "a", type = "String" }, { name = "b", type = "String" }]

[[class.method]]
name = "split"
receiver = "fn move"
returns = "String"
body = [
  { op = "let", name = "x", value = { op = "field", name = "a", move = true } },
  { op = "if", cond = { op = "bool", bool = true }, then = [{ op = "return", value = { op = "local", name = "x", move = true } }] },
  { op = "return", value = { op = "field", name = "b", move = true } },
]
`,
	`format = "1.0"
name = "enums"

[[class]]
name = "Opt"
kind = "enum"
variant = [{ name = "Some", payload = ["String"] }, { name = "None" }]

[[class]]
name = "Box"
inline = true
field = [{ name = "n", type = "Int" }]

[[class.method]]
name = "get"
receiver = "fn"
returns = "Int"
body = [{ op = "return", value = { op = "field", name = "n" } }]
`,
}

func addCorpusSeeds(f *testing.F) {
	addTestdataSeeds(f)
	for _, s := range builtinSeeds {
		f.Add([]byte(s))
	}
}

func addTestdataSeeds(f *testing.F) {
	root := filepath.Join("..", "..", "cmd", "tirc", "testdata")
	if _, err := os.Stat(root); err != nil {
		return
	}
	_ = filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil || d.IsDir() || filepath.Ext(path) != ".toml" {
			return nil
		}
		// #nosec G304 -- path comes from repository testdata walk
		src, err := os.ReadFile(path)
		if err != nil {
			return nil
		}
		f.Add(clampSeed(src))
		return nil
	})
}

func clampSeed(src []byte) []byte {
	if len(src) <= maxSeedBytes {
		return append([]byte(nil), src...)
	}
	return append([]byte(nil), src[:maxSeedBytes]...)
}

func clampInput(input []byte) []byte {
	if len(input) > maxFuzzInput {
		return append([]byte(nil), input[:maxFuzzInput]...)
	}
	return append([]byte(nil), input...)
}
