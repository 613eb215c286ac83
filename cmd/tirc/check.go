package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var checkCmd = &cobra.Command{
	Use:   "check [flags] <unit.toml>",
	Short: "Report lowering diagnostics without emitting TIR",
	Args:  cobra.ExactArgs(1),
	RunE:  runCheck,
}

func init() {
	addPipelineFlags(checkCmd)
	checkCmd.Flags().String("format", "pretty", "output format (pretty|short|json)")
	checkCmd.Flags().Bool("with-notes", false, "include diagnostic notes")
	checkCmd.Flags().Bool("fullpath", false, "print absolute file paths")
}

func runCheck(cmd *cobra.Command, args []string) error {
	s, err := loadSettings(cmd, args[0])
	if err != nil {
		return err
	}
	format, err := cmd.Flags().GetString("format")
	if err != nil {
		return fmt.Errorf("failed to get format flag: %w", err)
	}
	format = strings.ToLower(format)
	switch format {
	case "pretty", "short", "json":
	default:
		return fmt.Errorf("unknown format: %s", format)
	}
	withNotes, err := cmd.Flags().GetBool("with-notes")
	if err != nil {
		return fmt.Errorf("failed to get with-notes flag: %w", err)
	}
	fullPath, err := cmd.Flags().GetBool("fullpath")
	if err != nil {
		return fmt.Errorf("failed to get fullpath flag: %w", err)
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
		return fmt.Errorf("check failed: %w", err)
	}
	if err := printDiagnostics(cmd, cmd.OutOrStdout(), res, diagOptions{format: format, withNotes: withNotes, fullPath: fullPath}); err != nil {
		return fmt.Errorf("failed to format diagnostics: %w", err)
	}
	printTimings(cmd.ErrOrStderr(), s)
	if res.Failed() {
		failed = true
		return &exitCodeError{code: 1}
	}
	if format == "pretty" && !s.quiet {
		fmt.Fprintf(cmd.ErrOrStderr(), "%s: %d functions, no errors\n", s.path, len(res.Module.Funcs))
	}
	return nil
}
