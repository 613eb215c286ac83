package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
)

const projectFileName = "tirc.toml"

// projectConfig is the optional tirc.toml found next to a unit or in one
// of its parent directories. Command-line flags override it.
type projectConfig struct {
	Lower lowerConfig `toml:"lower"`
}

type lowerConfig struct {
	Target   string `toml:"target"`
	Jobs     int    `toml:"jobs"`
	Emit     string `toml:"emit"`
	Cache    bool   `toml:"cache"`
	CacheDir string `toml:"cache_dir"`
}

type projectFile struct {
	Path   string
	Root   string
	Config projectConfig
}

func findProjectFile(startDir string) (string, bool, error) {
	if startDir == "" {
		startDir = "."
	}
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return "", false, fmt.Errorf("failed to resolve start directory: %w", err)
	}
	for {
		candidate := filepath.Join(dir, projectFileName)
		if _, err := os.Stat(candidate); err == nil {
			return candidate, true, nil
		} else if !errors.Is(err, os.ErrNotExist) {
			return "", false, fmt.Errorf("failed to stat %q: %w", candidate, err)
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return "", false, nil
}

// loadProjectFile looks for tirc.toml starting at startDir. A missing file
// is not an error: the zero config is returned with ok=false.
func loadProjectFile(startDir string) (*projectFile, bool, error) {
	path, ok, err := findProjectFile(startDir)
	if err != nil || !ok {
		return &projectFile{}, ok, err
	}
	cfg, err := loadProjectConfig(path)
	if err != nil {
		return nil, true, err
	}
	return &projectFile{Path: path, Root: filepath.Dir(path), Config: cfg}, true, nil
}

func loadProjectConfig(path string) (projectConfig, error) {
	var cfg projectConfig
	meta, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return projectConfig{}, fmt.Errorf("%s: failed to parse TOML: %w", path, err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return projectConfig{}, fmt.Errorf("%s: unknown keys: %s", path, strings.Join(keys, ", "))
	}
	if cfg.Lower.Jobs < 0 {
		return projectConfig{}, fmt.Errorf("%s: [lower].jobs must not be negative", path)
	}
	if cfg.Lower.Emit != "" {
		if _, err := parseEmit(cfg.Lower.Emit); err != nil {
			return projectConfig{}, fmt.Errorf("%s: [lower].emit: %w", path, err)
		}
	}
	return cfg, nil
}

// cacheDir resolves [lower].cache_dir against the project root.
func (p *projectFile) cacheDir() string {
	dir := strings.TrimSpace(p.Config.Lower.CacheDir)
	if dir == "" || filepath.IsAbs(dir) || p.Root == "" {
		return dir
	}
	return filepath.Join(p.Root, filepath.FromSlash(dir))
}
