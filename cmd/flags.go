package cmd

import (
	"github.com/spf13/cobra"

	"github.com/canonical/discourse-gatekeeper/pkg/config"
)

// addConfigFlags registers the flags shared by reconcile and migrate: every
// field of config.Config that a one-off invocation might want to override
// without exporting an environment variable.
func addConfigFlags(cmd *cobra.Command) {
	cmd.Flags().String("config", "", "Path to an optional .gatekeeper.toml override file")
	cmd.Flags().String("charm-dir", ".", "Path to the charm repository root")
	cmd.Flags().String("discourse-host", "", "Discourse instance base URL")
	cmd.Flags().Int("discourse-category-id", 0, "Discourse category id to post topics under")
	cmd.Flags().String("discourse-api-username", "", "Discourse API username")
	cmd.Flags().String("discourse-api-key", "", "Discourse API key")
	cmd.Flags().String("github-token", "", "GitHub access token for pull request operations")
	cmd.Flags().String("commit-sha", "", "Commit SHA the base-content tag should move to on success")
	cmd.Flags().String("base-branch", "main", "Branch reconcile/migrate operates against")
	cmd.Flags().Bool("dry-run", false, "Compute actions without executing them")
}

// loadConfig builds a config.Config from the environment/override-file layer
// via config.Load, then applies any flags the caller explicitly set on top,
// so a flag always wins over an environment variable or file default.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	overridePath, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(overridePath)
	if err != nil {
		return nil, err
	}

	flags := cmd.Flags()
	if flags.Changed("charm-dir") {
		cfg.CharmDir, _ = flags.GetString("charm-dir")
	}
	if flags.Changed("discourse-host") {
		cfg.Discourse.Hostname, _ = flags.GetString("discourse-host")
	}
	if flags.Changed("discourse-category-id") {
		cfg.Discourse.CategoryID, _ = flags.GetInt("discourse-category-id")
	}
	if flags.Changed("discourse-api-username") {
		cfg.Discourse.APIUsername, _ = flags.GetString("discourse-api-username")
	}
	if flags.Changed("discourse-api-key") {
		cfg.Discourse.APIKey, _ = flags.GetString("discourse-api-key")
	}
	if flags.Changed("github-token") {
		cfg.GithubAccessToken, _ = flags.GetString("github-token")
	}
	if flags.Changed("commit-sha") {
		cfg.CommitSHA, _ = flags.GetString("commit-sha")
	}
	if flags.Changed("base-branch") {
		cfg.BaseBranch, _ = flags.GetString("base-branch")
	}
	if flags.Changed("dry-run") {
		cfg.DryRun, _ = flags.GetBool("dry-run")
	}

	return cfg, nil
}
