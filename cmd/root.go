// Package cmd wires the cobra command tree: flag parsing and config assembly
// only, no reconciliation logic of its own. Every subcommand builds a
// pkg/config.Config and a clients bundle, then hands off to
// internal/orchestrator.
package cmd

import (
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/canonical/discourse-gatekeeper/pkg/buildinfo"
	"github.com/canonical/discourse-gatekeeper/pkg/exitcode"
	"github.com/canonical/discourse-gatekeeper/pkg/logger"
)

// newRootCommand creates a fresh root command instance. The factory pattern
// lets tests build their own command trees instead of using the package-level
// rootCmd; the reconcile and migrate subcommands are shared package-level
// values (see registerSubcommands).
func newRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "gatekeeper",
		Short: "Reconcile charm documentation between a git repository and Discourse",
		Long: `gatekeeper keeps a charm's docs/ tree and its Discourse documentation
topics in sync: it reads the local docs directory and the Discourse
navigation table, computes the actions needed to reconcile them, and
applies them.

Examples:
   gatekeeper reconcile     # sync docs/ with the configured Discourse category
   gatekeeper migrate       # bootstrap docs/ from an existing Discourse index`,
		PersistentPreRun: func(cmd *cobra.Command, _ []string) {
			initializeLogger(cmd)
		},
	}

	cmd.PersistentFlags().String("log-level", "info", "Set log level (trace|debug|info|warn|error)")
	cmd.PersistentFlags().Bool("json", false, "Output logs in JSON format")
	cmd.PersistentFlags().Bool("no-color", false, "Disable colored output")

	cmd.Version = buildinfo.BinaryVersion
	cmd.SetVersionTemplate("gatekeeper {{.Version}}\n")

	return cmd
}

// registerSubcommands adds all subcommands to the root command. Called from
// init() for production and explicitly by tests that need an isolated tree.
// Because the subcommands are shared, their flags are reset to their
// defaults and marked unchanged before they are attached.
func registerSubcommands(cmd *cobra.Command) {
	for _, sub := range []*cobra.Command{reconcileCmd, migrateCmd} {
		sub.Flags().VisitAll(func(f *pflag.Flag) {
			_ = f.Value.Set(f.DefValue)
			f.Changed = false
		})
		cmd.AddCommand(sub)
	}
}

// rootCmd is the base command executed when the binary is invoked directly.
var rootCmd = newRootCommand()

func init() {
	registerSubcommands(rootCmd)
}

// Execute runs the root command, mapping any returned error to an
// errors-package-aware process exit code. Called once by main.main.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		logger.Error("command execution failed", logger.Err(err))
		os.Exit(exitcode.ForError(err))
	}
}

func initializeLogger(cmd *cobra.Command) {
	logLevelStr, _ := cmd.Flags().GetString("log-level")
	jsonLogs, _ := cmd.Flags().GetBool("json")
	noColor, _ := cmd.Flags().GetBool("no-color")

	var logLevel logger.Level
	switch strings.ToLower(logLevelStr) {
	case "trace":
		logLevel = logger.TraceLevel
	case "debug":
		logLevel = logger.DebugLevel
	case "warn":
		logLevel = logger.WarnLevel
	case "error":
		logLevel = logger.ErrorLevel
	default:
		logLevel = logger.InfoLevel
	}

	config := logger.Config{
		Level:     logLevel,
		UseColor:  !noColor,
		JSON:      jsonLogs,
		Component: "gatekeeper",
	}

	if err := logger.Initialize(config); err != nil {
		if _, writeErr := os.Stderr.WriteString("failed to initialize logger: " + err.Error() + "\n"); writeErr != nil {
			_ = writeErr
		}
		os.Exit(exitcode.GeneralError)
	}
}
