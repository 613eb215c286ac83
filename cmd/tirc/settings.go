package main

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"tirc/internal/driver"
	"tirc/internal/layout"
	"tirc/internal/observ"
)

// runSettings is the merged view of tirc.toml and the command flags.
type runSettings struct {
	path    string
	opts    driver.Options
	emit    emitFormat
	quiet   bool
	timings bool
	project *projectFile
}

// addPipelineFlags registers the flags every lowering command shares.
func addPipelineFlags(cmd *cobra.Command) {
	cmd.Flags().Int("jobs", 0, "max parallel method lowerings (0=auto)")
	cmd.Flags().String("target", "", "layout target triple (x86_64-linux-gnu|aarch64-linux-gnu|i386-linux-gnu)")
	cmd.Flags().Bool("cache", false, "reuse lowered units from the disk cache")
	cmd.Flags().String("cache-dir", "", "disk cache directory (default: user cache dir)")
}

func loadSettings(cmd *cobra.Command, path string) (*runSettings, error) {
	project, _, err := loadProjectFile(filepath.Dir(path))
	if err != nil {
		return nil, err
	}
	lc := project.Config.Lower
	s := &runSettings{path: path, project: project}

	root := cmd.Root().PersistentFlags()
	if s.quiet, err = root.GetBool("quiet"); err != nil {
		return nil, fmt.Errorf("failed to get quiet flag: %w", err)
	}
	if s.timings, err = root.GetBool("timings"); err != nil {
		return nil, fmt.Errorf("failed to get timings flag: %w", err)
	}
	if s.opts.MaxDiagnostics, err = root.GetInt("max-diagnostics"); err != nil {
		return nil, fmt.Errorf("failed to get max-diagnostics flag: %w", err)
	}
	if s.timings {
		s.opts.Timer = observ.NewTimer()
	}

	flags := cmd.Flags()
	s.opts.Jobs = lc.Jobs
	if flags.Changed("jobs") {
		if s.opts.Jobs, err = flags.GetInt("jobs"); err != nil {
			return nil, fmt.Errorf("failed to get jobs flag: %w", err)
		}
	}
	if s.opts.Jobs < 0 {
		return nil, fmt.Errorf("--jobs must not be negative")
	}

	triple := lc.Target
	if flags.Changed("target") {
		if triple, err = flags.GetString("target"); err != nil {
			return nil, fmt.Errorf("failed to get target flag: %w", err)
		}
	}
	if s.opts.Target, err = layout.ParseTarget(strings.TrimSpace(triple)); err != nil {
		return nil, err
	}

	useCache := lc.Cache
	if flags.Changed("cache") {
		if useCache, err = flags.GetBool("cache"); err != nil {
			return nil, fmt.Errorf("failed to get cache flag: %w", err)
		}
	}
	if useCache {
		if s.opts.Cache, err = openCache(cmd, project); err != nil {
			return nil, err
		}
	}

	s.emit = emitText
	if lc.Emit != "" {
		s.emit = emitFormat(lc.Emit)
	}
	if f := flags.Lookup("emit"); f != nil && f.Changed {
		if s.emit, err = parseEmit(f.Value.String()); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// openCache opens the disk cache named by --cache-dir, then cache_dir from
// tirc.toml, then the user cache directory.
func openCache(cmd *cobra.Command, project *projectFile) (*driver.DiskCache, error) {
	dir := project.cacheDir()
	if f := cmd.Flags().Lookup("cache-dir"); f != nil && f.Changed {
		dir = f.Value.String()
	}
	var (
		cache *driver.DiskCache
		err   error
	)
	if dir != "" {
		cache, err = driver.NewDiskCache(dir)
	} else {
		cache, err = driver.OpenDiskCache("tirc")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open disk cache: %w", err)
	}
	return cache, nil
}
