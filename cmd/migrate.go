package cmd

import (
	"github.com/spf13/cobra"

	"github.com/canonical/discourse-gatekeeper/pkg/config"
	"github.com/canonical/discourse-gatekeeper/pkg/logger"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Bootstrap a charm's docs/ directory from its Discourse index",
	Long: `Migrate parses the Discourse navigation table a charm's metadata
already points at, writes the equivalent docs/ tree locally, and opens a
pull request carrying it. Used once per charm, before reconcile takes over.`,
	RunE: runMigrate,
}

func init() {
	addConfigFlags(migrateCmd)
}

func runMigrate(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := config.Validate(cfg); err != nil {
		return err
	}

	meta, err := config.LoadMetadata(cfg.CharmDir)
	if err != nil {
		return err
	}

	orch, err := buildOrchestrator(cmd, cfg)
	if err != nil {
		return err
	}

	outputs, err := orch.Migrate(cmd.Context(), meta)
	if err != nil {
		logger.Error("migrate failed", logger.Err(err))
		return err
	}

	logger.Info("migrate succeeded", logger.String("pull_request_url", outputs.PullRequestURL))
	return nil
}
