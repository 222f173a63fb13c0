package cmd

import "testing"

func TestLoadConfigAppliesChangedFlagsOverDefaults(t *testing.T) {
	cmd := newRootCommand()
	registerSubcommands(cmd)

	reconcile, _, err := cmd.Find([]string{"reconcile"})
	if err != nil {
		t.Fatalf("failed to find reconcile subcommand: %v", err)
	}
	if err := reconcile.ParseFlags([]string{
		"--charm-dir", "/tmp/some-charm",
		"--discourse-host", "https://discourse.example.com",
		"--discourse-category-id", "7",
		"--base-branch", "develop",
		"--dry-run",
	}); err != nil {
		t.Fatalf("failed to parse flags: %v", err)
	}

	cfg, err := loadConfig(reconcile)
	if err != nil {
		t.Fatalf("loadConfig failed: %v", err)
	}

	if cfg.CharmDir != "/tmp/some-charm" {
		t.Errorf("CharmDir = %q, expected /tmp/some-charm", cfg.CharmDir)
	}
	if cfg.Discourse.Hostname != "https://discourse.example.com" {
		t.Errorf("Discourse.Hostname = %q, expected https://discourse.example.com", cfg.Discourse.Hostname)
	}
	if cfg.Discourse.CategoryID != 7 {
		t.Errorf("Discourse.CategoryID = %d, expected 7", cfg.Discourse.CategoryID)
	}
	if cfg.BaseBranch != "develop" {
		t.Errorf("BaseBranch = %q, expected develop", cfg.BaseBranch)
	}
	if !cfg.DryRun {
		t.Errorf("DryRun = false, expected true")
	}
}

func TestLoadConfigLeavesUnchangedFlagsAtDefault(t *testing.T) {
	cmd := newRootCommand()
	registerSubcommands(cmd)
	reconcile, _, err := cmd.Find([]string{"reconcile"})
	if err != nil {
		t.Fatalf("failed to find reconcile subcommand: %v", err)
	}

	cfg, err := loadConfig(reconcile)
	if err != nil {
		t.Fatalf("loadConfig failed: %v", err)
	}
	if cfg.BaseBranch != "main" {
		t.Errorf("BaseBranch = %q, expected default main", cfg.BaseBranch)
	}
	if cfg.CharmDir != "." {
		t.Errorf("CharmDir = %q, expected default .", cfg.CharmDir)
	}
}
