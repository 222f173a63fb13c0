package exitcode

import (
	"testing"

	"github.com/canonical/discourse-gatekeeper/internal/errors"
)

func TestExitCodeConstants(t *testing.T) {
	if Success != 0 {
		t.Errorf("Success = %v, expected 0", Success)
	}
	if InputError != 2 {
		t.Errorf("InputError = %v, expected 2", InputError)
	}
	if ContentError != 3 {
		t.Errorf("ContentError = %v, expected 3", ContentError)
	}
	if ReconcilliationError != 6 {
		t.Errorf("ReconcilliationError = %v, expected 6", ReconcilliationError)
	}
}

func TestString(t *testing.T) {
	tests := []struct {
		code     int
		expected string
	}{
		{Success, "Success"},
		{InputError, "Input error"},
		{ContentError, "Content merge conflict"},
		{ServerError, "Discourse server error"},
		{RepositoryClientError, "Repository client error"},
		{ReconcilliationError, "Reconciliation error"},
		{MigrationError, "Migration error"},
		{TaggingNotAllowedError, "Tagging not allowed"},
		{NavigationTableError, "Navigation table parse error"},
		{PagePermissionError, "Page permission error"},
		{999, "General error"},
	}

	for _, tt := range tests {
		if got := String(tt.code); got != tt.expected {
			t.Errorf("String(%d) = %q, expected %q", tt.code, got, tt.expected)
		}
	}
}

func TestForError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected int
	}{
		{"input", errors.NewInput("bad input"), InputError},
		{"content", errors.NewContent("conflict"), ContentError},
		{"server", errors.WrapServer("server down", nil), ServerError},
		{"repository client", errors.WrapRepositoryClient("git failed", nil), RepositoryClientError},
		{"repository tag not found", &errors.RepositoryTagNotFoundError{Tag: "v1"}, RepositoryClientError},
		{"reconcilliation", errors.NewReconcilliation("failed"), ReconcilliationError},
		{"migration", errors.NewMigration("failed"), MigrationError},
		{"tagging not allowed", &errors.TaggingNotAllowedError{Branch: "feature"}, TaggingNotAllowedError},
		{"navigation table", errors.NewNavigationTableParse("bad table"), NavigationTableError},
		{"page permission", &errors.PagePermissionError{URL: "https://example.com"}, PagePermissionError},
		{"unknown", &struct{ error }{}, GeneralError},
	}

	for _, tt := range tests {
		if got := ForError(tt.err); got != tt.expected {
			t.Errorf("%s: ForError() = %v, expected %v", tt.name, got, tt.expected)
		}
	}
}
