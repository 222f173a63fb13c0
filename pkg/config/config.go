// Package config assembles the gatekeeper's run configuration: environment
// and flag-sourced inputs (mirroring the original's UserInputs/
// UserInputsDiscourse), the charm's metadata.yaml/charmcraft.yaml, and an
// optional local override file, loaded the way the teacher's pkg/config
// loads FormatConfig/SecurityConfig — viper defaults plus AutomaticEnv, with
// schema validation as a final gate rather than ad hoc field checks.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/viper"
)

// DiscourseConfig mirrors UserInputsDiscourse: the credentials and category
// used for every Discourse API call.
type DiscourseConfig struct {
	Hostname    string `mapstructure:"hostname" json:"hostname"`
	CategoryID  int    `mapstructure:"category_id" json:"category_id"`
	APIUsername string `mapstructure:"api_username" json:"api_username"`
	APIKey      string `mapstructure:"api_key" json:"api_key"`
}

// Config mirrors UserInputs: the full set of configurable run inputs.
type Config struct {
	Discourse DiscourseConfig `mapstructure:"discourse" json:"discourse"`
	DryRun    bool            `mapstructure:"dry_run" json:"dry_run"`
	// DeleteTopics gates whether a reconcile run is allowed to delete
	// Discourse topics for content removed locally. Named delete_topics per
	// the external interface; the original Python called the same input
	// delete_pages.
	DeleteTopics bool `mapstructure:"delete_topics" json:"delete_topics"`

	GithubAccessToken string `mapstructure:"github_access_token" json:"github_access_token,omitempty"`
	CommitSHA         string `mapstructure:"commit_sha" json:"commit_sha"`
	BaseBranch        string `mapstructure:"base_branch" json:"base_branch"`
	CharmDir          string `mapstructure:"charm_dir" json:"charm_dir"`

	// IgnoreServerAhead is the Open Question 1 resolution: the legacy
	// discourse-ahead-ok tag is honored only when this is explicitly set.
	IgnoreServerAhead bool `mapstructure:"ignore_server_ahead" json:"ignore_server_ahead"`
}

// EnvPrefix is the prefix viper binds environment variables under, e.g.
// GATEKEEPER_DISCOURSE_API_KEY for discourse.api_key.
const EnvPrefix = "GATEKEEPER"

var defaultConfig = Config{
	DryRun:       false,
	DeleteTopics: false,
	BaseBranch:   "main",
	CharmDir:     ".",
}

// Load builds a Config from defaults, environment variables, and an optional
// override file. overridePath, when non-empty, is decoded directly with
// pelletier/go-toml/v2 after viper's own sources are applied, for a
// local-development convenience layer the CI action environment does not
// need (CI always sets every field via environment variables).
func Load(overridePath string) (*Config, error) {
	v := viper.New()

	v.SetDefault("dry_run", defaultConfig.DryRun)
	v.SetDefault("delete_topics", defaultConfig.DeleteTopics)
	v.SetDefault("base_branch", defaultConfig.BaseBranch)
	v.SetDefault("charm_dir", defaultConfig.CharmDir)
	v.SetDefault("ignore_server_ahead", false)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Bind every field explicitly: AutomaticEnv alone does not see nested
	// keys that were never Set or SetDefault, so discourse.* needs an
	// explicit BindEnv per key.
	bindings := map[string]string{
		"discourse.hostname":     "DISCOURSE_HOST",
		"discourse.category_id":  "DISCOURSE_CATEGORY_ID",
		"discourse.api_username": "DISCOURSE_API_USERNAME",
		"discourse.api_key":      "DISCOURSE_API_KEY",
		"github_access_token":    "GITHUB_TOKEN",
		"commit_sha":             "COMMIT_SHA",
		"base_branch":            "BASE_BRANCH",
		"charm_dir":              "CHARM_DIR",
		"dry_run":                "DRY_RUN",
		"delete_topics":          "DELETE_TOPICS",
		"ignore_server_ahead":    "IGNORE_SERVER_AHEAD",
	}
	for key, env := range bindings {
		if err := v.BindEnv(key, EnvPrefix+"_"+env); err != nil {
			return nil, fmt.Errorf("failed to bind env var for %s: %w", key, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if overridePath != "" {
		if err := applyOverrideFile(&cfg, overridePath); err != nil {
			return nil, err
		}
	}

	return &cfg, nil
}

// applyOverrideFile decodes a .gatekeeper.toml override directly (not
// through viper) and merges any non-zero field it sets onto cfg, so a
// developer can keep real credentials out of the file and still override
// behavioral flags like dry_run or base_branch for a local run.
func applyOverrideFile(cfg *Config, path string) error {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to read override file %s: %w", path, err)
	}

	var override struct {
		DryRun            *bool   `toml:"dry_run"`
		DeleteTopics      *bool   `toml:"delete_topics"`
		BaseBranch        *string `toml:"base_branch"`
		CharmDir          *string `toml:"charm_dir"`
		IgnoreServerAhead *bool   `toml:"ignore_server_ahead"`
	}
	if err := toml.Unmarshal(data, &override); err != nil {
		return fmt.Errorf("failed to parse override file %s: %w", path, err)
	}

	if override.DryRun != nil {
		cfg.DryRun = *override.DryRun
	}
	if override.DeleteTopics != nil {
		cfg.DeleteTopics = *override.DeleteTopics
	}
	if override.BaseBranch != nil {
		cfg.BaseBranch = *override.BaseBranch
	}
	if override.CharmDir != nil {
		cfg.CharmDir = *override.CharmDir
	}
	if override.IgnoreServerAhead != nil {
		cfg.IgnoreServerAhead = *override.IgnoreServerAhead
	}
	return nil
}
