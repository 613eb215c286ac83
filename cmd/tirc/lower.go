package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"tirc/internal/driver"
	"tirc/internal/observ"
)

var lowerCmd = &cobra.Command{
	Use:   "lower [flags] <unit.toml>",
	Short: "Lower a checked unit to TIR",
	Long: `Lower every class of a checked unit to TIR and print the module.
Diagnostics go to stderr; the exit status is 1 when any error was reported.`,
	Args: cobra.ExactArgs(1),
	RunE: runLower,
}

func init() {
	addPipelineFlags(lowerCmd)
	lowerCmd.Flags().String("emit", "text", "output format (text|json|msgpack)")
	lowerCmd.Flags().StringP("out", "o", "", "write the module to a file instead of stdout")
	lowerCmd.Flags().Bool("watch", false, "lower again whenever the unit changes")
	lowerCmd.Flags().String("ui", "off", "show progress view (auto|on|off)")
	lowerCmd.Flags().Bool("with-notes", false, "include diagnostic notes")
}

func runLower(cmd *cobra.Command, args []string) error {
	s, err := loadSettings(cmd, args[0])
	if err != nil {
		return err
	}
	outPath, err := cmd.Flags().GetString("out")
	if err != nil {
		return fmt.Errorf("failed to get out flag: %w", err)
	}
	watch, err := cmd.Flags().GetBool("watch")
	if err != nil {
		return fmt.Errorf("failed to get watch flag: %w", err)
	}
	uiFlag, err := cmd.Flags().GetString("ui")
	if err != nil {
		return fmt.Errorf("failed to get ui flag: %w", err)
	}
	mode, err := parseToggle("ui", uiFlag)
	if err != nil {
		return err
	}
	withNotes, err := cmd.Flags().GetBool("with-notes")
	if err != nil {
		return fmt.Errorf("failed to get with-notes flag: %w", err)
	}
	if f, ok := cmd.OutOrStdout().(*os.File); ok && s.emit == emitMsgpack && outPath == "" && isTerminal(f) {
		return fmt.Errorf("refusing to write msgpack to a terminal; use --out")
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

	var uiOut io.Writer
	if !s.quiet && !watch && mode.enabledFor(os.Stderr) {
		uiOut = os.Stderr
	}

	once := func(ctx context.Context) error {
		if s.timings {
			s.opts.Timer = observ.NewTimer()
		}
		res, err := lowerOnce(ctx, s, uiOut)
		if err != nil {
			return fmt.Errorf("lowering failed: %w", err)
		}
		if err := printDiagnostics(cmd, cmd.ErrOrStderr(), res, diagOptions{withNotes: withNotes}); err != nil {
			return err
		}
		printTimings(cmd.ErrOrStderr(), s)
		if res.Failed() {
			return &exitCodeError{code: 1}
		}
		if err := writeModule(cmd.OutOrStdout(), outPath, res, s); err != nil {
			return err
		}
		if res.Cached && !s.quiet {
			fmt.Fprintf(cmd.ErrOrStderr(), "%s: cached\n", s.path)
		}
		return nil
	}

	if !watch {
		err = once(cmd.Context())
		failed = err != nil
		return err
	}

	return driver.Watch(cmd.Context(), s.path, 150*time.Millisecond, func(ctx context.Context) error {
		err := once(ctx)
		var exit *exitCodeError
		switch {
		case err == nil:
			if !s.quiet {
				fmt.Fprintf(cmd.ErrOrStderr(), "%s: ok (%s)\n", s.path, time.Now().Format(time.TimeOnly))
			}
			return nil
		case errors.As(err, &exit):
			// Compile errors were printed; wait for the next change.
			return nil
		default:
			fmt.Fprintf(cmd.ErrOrStderr(), "%v\n", err)
			return nil
		}
	})
}

func writeModule(stdout io.Writer, outPath string, res *driver.Result, s *runSettings) error {
	if outPath == "" {
		return emitResult(stdout, res, s)
	}
	f, err := os.Create(outPath)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	if err := emitResult(f, res, s); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
