package cmd

import (
	"testing"

	"github.com/spf13/cobra"
)

func TestInitializeLoggerDefaultLevel(t *testing.T) {
	cmd := &cobra.Command{}
	cmd.Flags().String("log-level", "info", "")
	cmd.Flags().Bool("json", false, "")
	cmd.Flags().Bool("no-color", false, "")

	initializeLogger(cmd)
}

func TestInitializeLoggerInvalidLevelDefaultsToInfo(t *testing.T) {
	cmd := &cobra.Command{}
	cmd.Flags().String("log-level", "not-a-level", "")
	cmd.Flags().Bool("json", false, "")
	cmd.Flags().Bool("no-color", false, "")

	initializeLogger(cmd)
}

func TestInitializeLoggerJSONOutput(t *testing.T) {
	cmd := &cobra.Command{}
	cmd.Flags().String("log-level", "debug", "")
	cmd.Flags().Bool("json", true, "")
	cmd.Flags().Bool("no-color", true, "")

	initializeLogger(cmd)
}

func TestNewRootCommandRegistersPersistentFlags(t *testing.T) {
	cmd := newRootCommand()
	for _, name := range []string{"log-level", "json", "no-color"} {
		if cmd.PersistentFlags().Lookup(name) == nil {
			t.Errorf("root command is missing persistent flag --%s", name)
		}
	}
}

func TestRegisterSubcommandsAddsReconcileAndMigrate(t *testing.T) {
	cmd := newRootCommand()
	registerSubcommands(cmd)

	if _, _, err := cmd.Find([]string{"reconcile"}); err != nil {
		t.Errorf("expected reconcile subcommand registered, got error: %v", err)
	}
	if _, _, err := cmd.Find([]string{"migrate"}); err != nil {
		t.Errorf("expected migrate subcommand registered, got error: %v", err)
	}
}
