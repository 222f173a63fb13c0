// Package migration builds a local docs/ tree from a Discourse navigation
// table and index page, and opens the pull request carrying it, for the
// one-time bootstrap of a charm that has no docs directory yet.
//
// Grounded on migration.py's _extract_docs_from_table_rows walk (row-level
// tracking, gitkeep synthesis for directories that end up with no document)
// and repository.py's create_pull_request/update_pull_request branch-and-PR
// flow, collapsed onto hostclient.Client.CommitBranch + PullRequestClient
// instead of GitPython branch checkout plus PyGithub.
package migration

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/aymerick/raymond"
	"github.com/go-git/go-git/v5/plumbing/object"

	"github.com/canonical/discourse-gatekeeper/internal/discourseclient"
	"github.com/canonical/discourse-gatekeeper/internal/errors"
	"github.com/canonical/discourse-gatekeeper/internal/hostclient"
	"github.com/canonical/discourse-gatekeeper/internal/model"
)

// EmptyDirReason is recorded on the report for a directory that received a
// synthesized .gitkeep rather than real content.
const EmptyDirReason = "<created due to empty directory>"

// GitkeepFile is the placeholder file synthesized into an otherwise-empty
// directory so git (which does not track empty directories) preserves it.
const GitkeepFile = ".gitkeep"

// IndexFileName is the local filename the index page content is written to.
const IndexFileName = "index.md"

// BranchPrefix namespaces every branch this tool creates.
const BranchPrefix = "discourse-gatekeeper"

// BranchName is the fixed branch every migration run pushes to; a second run
// before the first PR merges updates the same branch rather than opening a
// second one.
const BranchName = BranchPrefix + "/migrate"

// PullRequestTitle and pullRequestBodyTemplate seed a freshly opened
// migration PR; pullRequestBodyTemplate is rendered with aymerick/raymond so
// a future revision can add charm-specific detail without touching Go code.
const PullRequestTitle = "[discourse-gatekeeper] Migrate charm docs"

var pullRequestBodyTemplate = strings.TrimSpace(`
This pull request was autogenerated by discourse-gatekeeper to migrate
existing documentation for {{charmName}} from Discourse into the git
repository.
`)

// CommitAuthorName and CommitAuthorEmail identify the bot account the
// migration commit is attributed to.
const (
	CommitAuthorName  = "discourse-gatekeeper-docs-bot"
	CommitAuthorEmail = "discourse-gatekeeper-bot@users.noreply.github.com"
)

// Kind classifies a planned migration file.
type Kind int

const (
	// KindDocument is a page's content written to its migrated path.
	KindDocument Kind = iota
	// KindGitkeep is an empty placeholder for a directory with no document.
	KindGitkeep
	// KindIndex is the top-level index.md content.
	KindIndex
)

// FileMeta is one file the migration plan will write under docs/.
type FileMeta struct {
	Kind Kind
	Path string // slash-separated, relative to the docs directory
	Link string // Discourse topic URL, set for KindDocument only
	Row  *model.TableRow
}

// Plan walks tableRows (in navigation-table, i.e. hierarchy, order) and
// produces the file list a migration run writes: the index page first, then
// one entry per document row, with a .gitkeep synthesized for every
// directory that ends up containing no document, mirroring
// _extract_docs_from_table_rows' empty-directory detection.
func Plan(tableRows []model.TableRow, indexContent string) ([]FileMeta, error) {
	if err := validateRowLevels(tableRows); err != nil {
		return nil, err
	}

	metas := []FileMeta{{Kind: KindIndex, Path: IndexFileName}}

	level := 0
	lastDirHasFile := true
	var lastDirRow *model.TableRow
	var cwd []string

	flushGitkeep := func() {
		if !lastDirHasFile && lastDirRow != nil {
			row := lastDirRow
			metas = append(metas, FileMeta{
				Kind: KindGitkeep,
				Path: strings.Join(append(append([]string{}, cwd...), GitkeepFile), "/"),
				Row:  row,
			})
		}
	}

	for i := range tableRows {
		row := tableRows[i]
		if row.Level <= level {
			flushGitkeep()
			for row.Level <= level {
				level--
				if len(cwd) > 0 {
					cwd = cwd[:len(cwd)-1]
				}
			}
		}

		if row.Navlink.Link == "" {
			lastDirHasFile = false
			lastDirRow = &row
			cwd = append(cwd, lastSegment(row.Path))
			level = row.Level
		} else {
			lastDirHasFile = true
			fileName := fileNameForRow(cwd, row.Path)
			metas = append(metas, FileMeta{
				Kind: KindDocument,
				Path: strings.Join(append(append([]string{}, cwd...), fileName+".md"), "/"),
				Link: row.Navlink.Link,
				Row:  &row,
			})
		}
	}
	flushGitkeep()

	return metas, nil
}

// validateRowLevels mirrors _validate_row_levels: every row's level must be
// positive, a level can increase by at most one step at a time, and a level
// increase must follow a directory row (one with no link), never a file.
func validateRowLevels(rows []model.TableRow) error {
	level := 0
	for i, row := range rows {
		if row.Level <= 0 {
			return errors.NewMigration(fmt.Sprintf("invalid level %d in table row %s", row.Level, row.Path))
		}
		if row.Level > level && row.Level-level > 1 {
			return errors.NewMigration(fmt.Sprintf("level difference of %d encountered at table row %s", row.Level-level, row.Path))
		}
		if row.Level > level && i > 0 && rows[i-1].Navlink.Link != "" {
			return errors.NewMigration(fmt.Sprintf("invalid parent row for table row %s", row.Path))
		}
		level = row.Level
	}
	return nil
}

func lastSegment(path model.TablePath) string {
	if len(path) == 0 {
		return ""
	}
	return path[len(path)-1]
}

// fileNameForRow strips the current directory's table-path prefix off row's
// full table path, leaving just the file's own segment, mirroring
// _calculate_file_name.
func fileNameForRow(cwd []string, rowPath model.TablePath) string {
	joined := rowPath.String()
	prefix := strings.Join(cwd, "-")
	if prefix == "" {
		return joined
	}
	return strings.TrimPrefix(joined, prefix+"-")
}

// Run executes a migration plan, retrieving document content from Discourse
// and staging every file (including gitkeeps and the index) into staged,
// producing one ActionReport per planned file.
func Run(ctx context.Context, metas []FileMeta, discourse discourseclient.Client, indexContent string, staged *hostclient.StagedTree) []model.ActionReport {
	reports := make([]model.ActionReport, 0, len(metas))
	for _, meta := range metas {
		reports = append(reports, runOne(ctx, meta, discourse, indexContent, staged))
	}
	return reports
}

func runOne(ctx context.Context, meta FileMeta, discourse discourseclient.Client, indexContent string, staged *hostclient.StagedTree) model.ActionReport {
	switch meta.Kind {
	case KindGitkeep:
		if err := staged.WriteFile(meta.Path, nil); err != nil {
			return model.ActionReport{Result: model.ResultFail, Reason: err.Error()}
		}
		return model.ActionReport{Location: meta.Path, Result: model.ResultSuccess, Reason: EmptyDirReason}
	case KindIndex:
		if err := staged.WriteFile(meta.Path, []byte(indexContent)); err != nil {
			return model.ActionReport{Result: model.ResultFail, Reason: err.Error()}
		}
		return model.ActionReport{Location: meta.Path, Result: model.ResultSuccess}
	default:
		content, err := discourse.RetrieveTopic(ctx, meta.Link)
		if err != nil {
			return model.ActionReport{Location: meta.Link, Result: model.ResultFail, Reason: err.Error()}
		}
		if err := staged.WriteFile(meta.Path, []byte(content)); err != nil {
			return model.ActionReport{Location: meta.Path, Result: model.ResultFail, Reason: err.Error()}
		}
		return model.ActionReport{Location: meta.Path, Result: model.ResultSuccess}
	}
}

// OpenPullRequest commits the staged tree to BranchName off baseBranch and
// opens or updates the migration pull request, returning model.MigrateOutputs.
// A staged tree with no files commits nothing and returns PullRequestNone,
// matching create_pull_request's refusal to open an empty PR.
func OpenPullRequest(ctx context.Context, repo *hostclient.Client, pr *hostclient.PullRequestClient, staged *hostclient.StagedTree, baseBranch, charmName string) (model.MigrateOutputs, error) {
	if len(staged.Files()) == 0 {
		return model.MigrateOutputs{Action: model.PullRequestNone}, nil
	}

	author := object.Signature{Name: CommitAuthorName, Email: CommitAuthorEmail, When: time.Now()}
	commitMessage := "migrate docs from server"
	if err := repo.CommitBranch(staged, BranchName, baseBranch, commitMessage, author); err != nil {
		return model.MigrateOutputs{}, err
	}

	body, err := raymond.Render(pullRequestBodyTemplate, map[string]string{"charmName": charmName})
	if err != nil {
		return model.MigrateOutputs{}, errors.WrapInput("failed to render pull request body", err)
	}

	action, url, err := pr.OpenOrUpdate(ctx, BranchName, baseBranch, PullRequestTitle, body)
	if err != nil {
		return model.MigrateOutputs{}, err
	}
	return model.MigrateOutputs{Action: action, PullRequestURL: url}, nil
}
