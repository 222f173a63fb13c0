package cmd

import (
	"net/http"

	"github.com/spf13/cobra"

	"github.com/canonical/discourse-gatekeeper/internal/discourseclient"
	"github.com/canonical/discourse-gatekeeper/internal/hostclient"
	"github.com/canonical/discourse-gatekeeper/internal/orchestrator"
	"github.com/canonical/discourse-gatekeeper/pkg/config"
	"github.com/canonical/discourse-gatekeeper/pkg/logger"
)

var reconcileCmd = &cobra.Command{
	Use:   "reconcile",
	Short: "Sync a charm's docs/ directory with its Discourse documentation",
	Long: `Reconcile reads the charm's local docs/ tree and the Discourse
navigation table it is currently published under, computes the actions
(create, update, delete, noop) needed to bring the server in line with the
repository, and applies them.`,
	RunE: runReconcile,
}

func init() {
	addConfigFlags(reconcileCmd)
	reconcileCmd.Flags().Bool("delete-topics", false, "Allow deleting Discourse topics for content removed locally")
	reconcileCmd.Flags().Bool("ignore-server-ahead", false, "Suppress the server-ahead check for this run")
}

func buildOrchestrator(cmd *cobra.Command, cfg *config.Config) (*orchestrator.Orchestrator, error) {
	repo, err := hostclient.Open(cfg.CharmDir)
	if err != nil {
		return nil, err
	}

	discourse := &discourseclient.HTTPClient{
		BaseURL:  cfg.Discourse.Hostname,
		Category: cfg.Discourse.CategoryID,
		APIKey:   cfg.Discourse.APIKey,
		APIUser:  cfg.Discourse.APIUsername,
	}

	pullRequests := &hostclient.PullRequestClient{
		BaseURL: cfg.Discourse.Hostname,
		Token:   cfg.GithubAccessToken,
	}

	deleteTopics := cfg.DeleteTopics
	ignoreServerAhead := cfg.IgnoreServerAhead
	if cmd.Flags().Changed("delete-topics") {
		deleteTopics, _ = cmd.Flags().GetBool("delete-topics")
	}
	if cmd.Flags().Changed("ignore-server-ahead") {
		ignoreServerAhead, _ = cmd.Flags().GetBool("ignore-server-ahead")
	}

	clients := orchestrator.Clients{
		Discourse:    discourse,
		Repository:   repo,
		PullRequests: pullRequests,
		Liveness:     http.DefaultClient,
	}
	opts := orchestrator.Options{
		DryRun:            cfg.DryRun,
		DeleteTopics:      deleteTopics,
		IgnoreServerAhead: ignoreServerAhead,
		BaseBranch:        cfg.BaseBranch,
		CommitSHA:         cfg.CommitSHA,
		CharmDir:          cfg.CharmDir,
	}
	return orchestrator.New(clients, opts), nil
}

func runReconcile(cmd *cobra.Command, _ []string) error {
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

	outputs, err := orch.Reconcile(cmd.Context(), meta)
	if err != nil {
		logger.Error("reconcile failed", logger.Err(err))
		return err
	}

	logger.Info("reconcile succeeded", logger.String("index_url", outputs.IndexURL))
	return nil
}
