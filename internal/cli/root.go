// Package cli implements the visualgate command line.
package cli

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/kamilpajak/visualgate/internal/browser"
	"github.com/kamilpajak/visualgate/internal/config"
	"github.com/kamilpajak/visualgate/internal/judge"
	"github.com/kamilpajak/visualgate/internal/logger"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// Exit statuses.
const (
	ExitOK          = 0
	ExitFailure     = 1
	ExitUsage       = 2
	ExitNeedsReview = 3
)

// ArgumentError reports invalid command-line input. It is printed together
// with the command's usage and exits with ExitUsage.
type ArgumentError struct {
	Msg string
}

func (e *ArgumentError) Error() string {
	return e.Msg
}

func argErrorf(format string, args ...any) error {
	return &ArgumentError{Msg: fmt.Sprintf(format, args...)}
}

// ExitError carries a non-zero exit status whose output was already
// written.
type ExitError struct {
	Code int
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("exit status %d", e.Code)
}

// jsonErrors marks commands whose stdout is a JSON document; their setup
// errors are reported as {"error": ...} there too.
const jsonErrors = "json-errors"

// app holds state shared by all subcommands, populated before each run.
// launch and judge are built from the config unless already set.
type app struct {
	configPath string
	cfg        *config.Config
	log        zerolog.Logger
	launch     browser.Launcher
	judge      judge.Judge
}

func newRootCmd() *cobra.Command {
	return newRootCmdWith(&app{})
}

func newRootCmdWith(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "visualgate",
		Short: "Visual verification of rendered UI components",
		Long: `visualgate compares rendered UI components against design screenshots.

A pixel diff decides clear passes and failures; results in the gray zone
between the thresholds can be escalated to a vision model.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			err := a.init(cmd.ErrOrStderr())
			if err != nil && cmd.Annotations[jsonErrors] != "" {
				fmt.Fprintf(cmd.ErrOrStderr(), "Error: %v\n", err)
				writeErrorJSON(cmd.OutOrStdout(), err)
				return &ExitError{Code: ExitFailure}
			}
			return err
		},
	}
	cmd.PersistentFlags().StringVar(&a.configPath, "config", "", "Config file (default: $VISUALGATE_CONFIG or ./visualgate.yaml)")
	cmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return &ArgumentError{Msg: err.Error()}
	})

	cmd.AddCommand(newCompareCmd(a))
	cmd.AddCommand(newVerifyCmd(a))
	cmd.AddCommand(newSmokeCmd(a))
	cmd.AddCommand(newServeCmd(a))
	cmd.AddCommand(newMCPCmd(a))
	cmd.AddCommand(newMigrateCmd(a))
	cmd.AddCommand(newInstallBrowsersCmd())
	cmd.AddCommand(newVersionCmd())
	return cmd
}

func (a *app) init(stderr io.Writer) error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}
	log, err := logger.New(cfg.Log, stderr)
	if err != nil {
		return err
	}
	a.cfg = cfg
	a.log = log
	return nil
}

// Run executes the command line args and returns the process exit status.
func Run(args []string, stdout, stderr io.Writer) int {
	return run(newRootCmd(), args, stdout, stderr)
}

func run(cmd *cobra.Command, args []string, stdout, stderr io.Writer) int {
	cmd.SetArgs(args)
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)

	executed, err := cmd.ExecuteC()
	if err == nil {
		return ExitOK
	}
	if executed == nil {
		executed = cmd
	}

	var argErr *ArgumentError
	var exitErr *ExitError
	switch {
	case errors.As(err, &argErr):
		fmt.Fprintf(stderr, "Error: %s\n\n", argErr.Msg)
		fmt.Fprint(stderr, executed.UsageString())
		return ExitUsage
	case errors.As(err, &exitErr):
		return exitErr.Code
	default:
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return ExitFailure
	}
}

// Execute runs the CLI with the process arguments.
func Execute() int {
	return Run(os.Args[1:], os.Stdout, os.Stderr)
}

func exactArgs(n int) cobra.PositionalArgs {
	return func(_ *cobra.Command, args []string) error {
		if len(args) != n {
			return argErrorf("accepts %d arg(s), received %d", n, len(args))
		}
		return nil
	}
}

func noArgs(_ *cobra.Command, args []string) error {
	if len(args) > 0 {
		return argErrorf("unknown argument %q", args[0])
	}
	return nil
}

func newVersionCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  noArgs,
		Run: func(cmd *cobra.Command, args []string) {
			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "visualgate %s\n", version)
			fmt.Fprintf(w, "  commit: %s\n", commit)
			fmt.Fprintf(w, "  built:  %s\n", date)
		},
	}
	skipConfig(cmd)
	return cmd
}

// skipConfig lets cmd run without loading the config file.
func skipConfig(cmd *cobra.Command) {
	cmd.PersistentPreRunE = func(*cobra.Command, []string) error { return nil }
}
