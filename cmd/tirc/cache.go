package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"tirc/internal/driver"
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Inspect or clear the lowered-unit disk cache",
}

var cachePathCmd = &cobra.Command{
	Use:   "path",
	Short: "Print the cache directory",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withCache(cmd, func(cache *driver.DiskCache) error {
			_, err := fmt.Fprintln(cmd.OutOrStdout(), cache.Dir())
			return err
		})
	},
}

var cacheClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove every cached unit",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withCache(cmd, func(cache *driver.DiskCache) error {
			n, err := cache.Clear()
			if err != nil {
				return fmt.Errorf("failed to clear %s: %w", cache.Dir(), err)
			}
			if quiet, _ := cmd.Root().PersistentFlags().GetBool("quiet"); !quiet {
				fmt.Fprintf(cmd.OutOrStdout(), "removed %d cached units from %s\n", n, cache.Dir())
			}
			return nil
		})
	},
}

func init() {
	cacheCmd.PersistentFlags().String("cache-dir", "", "disk cache directory (default: tirc.toml cache_dir, then user cache dir)")
	cacheCmd.AddCommand(cachePathCmd, cacheClearCmd)
}

// withCache resolves the cache the way lowering commands do, starting the
// tirc.toml search in the working directory.
func withCache(cmd *cobra.Command, fn func(*driver.DiskCache) error) error {
	project, _, err := loadProjectFile(".")
	if err != nil {
		return err
	}
	cache, err := openCache(cmd, project)
	if err != nil {
		return err
	}
	return fn(cache)
}
