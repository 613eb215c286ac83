package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"tirc/internal/driver"
)

var layoutCmd = &cobra.Command{
	Use:   "layout [flags] <unit.toml>",
	Short: "Print the storage layout computed for each class",
	Args:  cobra.ExactArgs(1),
	RunE:  runLayout,
}

func init() {
	addPipelineFlags(layoutCmd)
	layoutCmd.Flags().String("format", "text", "output format (text|json)")
}

func runLayout(cmd *cobra.Command, args []string) error {
	s, err := loadSettings(cmd, args[0])
	if err != nil {
		return err
	}
	format, err := cmd.Flags().GetString("format")
	if err != nil {
		return fmt.Errorf("failed to get format flag: %w", err)
	}
	format = strings.ToLower(format)
	if format != "text" && format != "json" {
		return fmt.Errorf("unsupported format %q (must be text or json)", format)
	}

	stopProfiling, err := setupProfiling(cmd)
	if err != nil {
		return err
	}
	defer stopProfiling()

	cleanup, err := setupTracing(cmd)
	if err != nil {
		return err
	}
	failed := false
	defer func() { cleanup(failed) }()

	res, err := lowerOnce(cmd.Context(), s, nil)
	if err != nil {
		failed = true
		return fmt.Errorf("layout failed: %w", err)
	}
	if err := printDiagnostics(cmd, cmd.ErrOrStderr(), res, diagOptions{}); err != nil {
		return err
	}
	if format == "json" {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		if err := enc.Encode(res.Layouts); err != nil {
			return err
		}
	} else if err := writeLayouts(cmd.OutOrStdout(), s.opts.Target.Triple, res.Layouts); err != nil {
		return err
	}
	if res.Failed() {
		failed = true
		return &exitCodeError{code: 1}
	}
	return nil
}

func writeLayouts(w io.Writer, target string, layouts []driver.ClassLayout) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "# target %s\n", target)
	for _, l := range layouts {
		storage := "handle"
		if l.Inline {
			storage = "inline"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\tsize=%d\talign=%d\n", l.Class, l.Kind, storage, l.Size, l.Align)
		if l.Kind == "enum" {
			fmt.Fprintf(tw, "  tag\t\t\tsize=%d\toffset=0\n", l.TagSize)
			fmt.Fprintf(tw, "  payload\t\t\t\toffset=%d\n", l.PayloadOffset)
			continue
		}
		for _, f := range l.Fields {
			fmt.Fprintf(tw, "  %s\t%s\t\t\toffset=%d\n", f.Name, f.Type, f.Offset)
		}
	}
	return tw.Flush()
}
