package cli

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/dshills/codefox/internal/config"
	"github.com/dshills/codefox/internal/diag"
	"github.com/dshills/codefox/internal/gitctx"
	"github.com/dshills/codefox/internal/providers"
)

const version = "0.3.0"

// Exit codes
const (
	ExitSuccess      = 0
	ExitFindings     = 1
	ExitUsageError   = 2
	ExitAuthError    = 3
	ExitRuntimeError = 4
)

var (
	flagVerbose bool
	flagConfig  string
)

var rootCmd = &cobra.Command{
	Use:   "codefox",
	Short: "Context-aware AI code review CLI",
	Long:  "CodeFox reviews git diffs with an LLM, using the rest of the codebase as context.",
}

// Run executes the root command and returns an exit code.
func Run() int {
	rootCmd.AddCommand(scanCmd)
	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(modelsCmd)
	rootCmd.AddCommand(hookCmd)
	rootCmd.AddCommand(versionCmd)

	if err := rootCmd.Execute(); err != nil {
		// Cobra already prints the error
		return ExitUsageError
	}

	return exitCode
}

// exitCode is set by command handlers to control the process exit code.
var exitCode = ExitSuccess

// exitCodeFor maps an error to the exit code it should produce.
func exitCodeFor(err error) int {
	var verr *config.ValidationError
	switch {
	case err == nil:
		return ExitSuccess
	case errors.As(err, &verr), errors.Is(err, config.ErrNotFound):
		return ExitUsageError
	case providers.IsAuthError(err):
		return ExitAuthError
	default:
		return ExitRuntimeError
	}
}

// fail reports err on stderr and records its exit code.
func fail(cmd *cobra.Command, err error) {
	fmt.Fprintf(cmd.ErrOrStderr(), "Error: %v\n", err)
	exitCode = exitCodeFor(err)
}

func newLogger(cmd *cobra.Command) diag.Logger {
	return diag.NewConsole(cmd.ErrOrStderr(), flagVerbose)
}

// repoRoot returns the top level of the enclosing git repository, or the
// working directory outside of one.
func repoRoot(ctx context.Context) (string, error) {
	if meta, err := gitctx.GetRepoMeta(ctx, ""); err == nil && meta.Root != "" {
		return meta.Root, nil
	}
	return os.Getwd()
}

// loadConfig reads the configuration for the repository at dir.
func loadConfig(dir string, overrides map[string]string) (config.Config, error) {
	return config.Load(config.LoadOptions{
		Dir:       dir,
		File:      flagConfig,
		Overrides: overrides,
	})
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print codefox version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "codefox version %s\n", version)
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "Print diagnostics to stderr")
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "Config file path (default: <repo>/.codefox.yml)")
}
