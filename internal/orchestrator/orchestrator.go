// Package orchestrator drives a full run: choose reconcile vs migrate mode,
// assemble the local and server-side index views, plan and execute the
// action stream, and gate the base-content tag move on the outcome.
//
// Grounded on the top-level run()/_run_reconcile()/_run_migrate() dispatch
// in src/__init__.py and index.py's get()/contents_from_page(), collapsed
// onto the single Orchestrator type so a CLI command only needs to build a
// Clients bundle and call Reconcile or Migrate.
package orchestrator

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/canonical/discourse-gatekeeper/internal/checker"
	"github.com/canonical/discourse-gatekeeper/internal/contents"
	"github.com/canonical/discourse-gatekeeper/internal/discourseclient"
	"github.com/canonical/discourse-gatekeeper/internal/docstree"
	"github.com/canonical/discourse-gatekeeper/internal/errors"
	"github.com/canonical/discourse-gatekeeper/internal/executor"
	"github.com/canonical/discourse-gatekeeper/internal/hostclient"
	"github.com/canonical/discourse-gatekeeper/internal/migration"
	"github.com/canonical/discourse-gatekeeper/internal/model"
	"github.com/canonical/discourse-gatekeeper/internal/navtable"
	"github.com/canonical/discourse-gatekeeper/internal/reconcile"
	"github.com/canonical/discourse-gatekeeper/internal/report"
	"github.com/canonical/discourse-gatekeeper/internal/sorter"
	"github.com/canonical/discourse-gatekeeper/pkg/config"
	"github.com/canonical/discourse-gatekeeper/pkg/logger"
)

var titleCaser = cases.Title(language.Und)

// IndexFileName is the local index page filename, relative to the docs
// directory.
const IndexFileName = "index.md"

// LegacyAheadOkTag is the pre-rename tag whose presence on the current
// commit historically suppressed the server-ahead check. Kept only as an
// input to EvaluateAheadOkSuppression: honoring it now requires the
// operator to also set Config.IgnoreServerAhead, resolving the standing
// question of whether the tag alone should silently suppress the check.
const LegacyAheadOkTag = "upload-charm-docs/discourse-ahead-ok"

// RepositoryClient is the git-hosting surface the orchestrator needs beyond
// what reconcile.RepositoryClient already covers.
type RepositoryClient interface {
	reconcile.RepositoryClient
	CurrentCommit() (string, error)
	CurrentBranch() (string, error)
	IsOnBaseBranch(baseBranch string) (bool, error)
	TagExists(tagName string) (bool, error)
	MoveTag(tagName, commitSHA string) error
	DiffSummary(fromRef, toRef string) (model.DiffSummary, error)
}

// Clients bundles every external collaborator a run needs.
type Clients struct {
	Discourse    discourseclient.Client
	Repository   RepositoryClient
	PullRequests *hostclient.PullRequestClient
	Liveness     checker.LivenessChecker
}

// Options mirrors the run-time behavior flags from Config that are not
// collaborators.
type Options struct {
	DryRun            bool
	DeleteTopics      bool
	IgnoreServerAhead bool
	BaseBranch        string
	CommitSHA         string
	CharmDir          string
}

// Orchestrator runs a full reconcile or migrate pass.
type Orchestrator struct {
	Clients Clients
	Options Options
}

// New builds an Orchestrator.
func New(clients Clients, opts Options) *Orchestrator {
	return &Orchestrator{Clients: clients, Options: opts}
}

// docsPath returns the absolute path of the docs/ directory under CharmDir.
func (o *Orchestrator) docsPath() string {
	return filepath.Join(o.Options.CharmDir, docstree.DocumentationFolderName)
}

func readLocalIndex(docsPath string) (*string, error) {
	path := filepath.Join(docsPath, IndexFileName)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, errors.WrapInput("failed to read "+path, err)
	}
	content := string(data)
	return &content, nil
}

// loadIndex assembles the server and local views of the index page, mirroring
// index.py's get(): the server page is only fetched when the charm's
// metadata already advertises a docs URL.
func (o *Orchestrator) loadIndex(ctx context.Context, meta *config.Metadata) (model.Index, error) {
	var server *model.Page
	if meta.Docs != nil {
		content, err := o.Clients.Discourse.RetrieveTopic(ctx, *meta.Docs)
		if err != nil {
			return model.Index{}, errors.WrapServer("index page retrieval failed", err)
		}
		server = &model.Page{URL: *meta.Docs, Content: content}
	}

	localContent, err := readLocalIndex(o.docsPath())
	if err != nil {
		return model.Index{}, err
	}

	title := titleCaser.String(strings.ReplaceAll(meta.Name, "-", " ")) + " Documentation Overview"
	return model.Index{
		Server: server,
		Local:  model.IndexFile{Title: title, Content: localContent},
		Name:   meta.Name,
	}, nil
}

// buildSortedItems combines the docs-tree walk with the contents-index
// order. sorter.UsingContentsIndex only reorders on-disk PathInfo entries
// (mirroring using_contents_index in the source, which never resolved
// external references either); external references have no on-disk
// position to interleave into, so they are appended after the ordered
// docs-tree items in their document rank order. reconcile.Run only needs a
// stable, collision-free order, not an exact echo of index.md's layout.
func buildSortedItems(pathInfos []model.PathInfo, contentsItems []model.IndexContentsListItem, docsPath string) []model.ItemInfo {
	var localContents []model.IndexContentsListItem
	for _, ci := range contentsItems {
		if !ci.IsExternal() {
			localContents = append(localContents, ci)
		}
	}

	orderedPaths := sorter.UsingContentsIndex(pathInfos, localContents, docsPath)

	items := make([]model.ItemInfo, 0, len(orderedPaths)+len(contentsItems))
	for i := range orderedPaths {
		items = append(items, model.ItemInfo{Path: &orderedPaths[i]})
	}
	for i := range contentsItems {
		if contentsItems[i].IsExternal() {
			items = append(items, model.ItemInfo{Contents: &contentsItems[i]})
		}
	}
	return items
}

// Reconcile runs a full reconcile pass: plan the action stream, run
// pre-execution checks, execute it, reconcile the index page, and gate the
// base-content tag move. Any FAILed action produces a
// *errors.ReconcilliationError after the outputs have been logged, per the
// propagation policy: the executor swallows per-action failures into
// reports and continues, the orchestrator raises only after every action
// has been attempted.
func (o *Orchestrator) Reconcile(ctx context.Context, meta *config.Metadata) (model.ReconcileOutputs, error) {
	index, err := o.loadIndex(ctx, meta)
	if err != nil {
		return model.ReconcileOutputs{}, err
	}

	docsPath := o.docsPath()
	pathInfos, err := (docstree.Reader{}).Read(docsPath)
	if err != nil {
		return model.ReconcileOutputs{}, err
	}

	contentsItems, err := contents.Get(index.Local.Content, docsPath)
	if err != nil {
		return model.ReconcileOutputs{}, err
	}

	serverContent := ""
	if index.Server != nil {
		serverContent = index.Server.Content
	}
	tableRows, err := navtable.Parse(serverContent)
	if err != nil {
		return model.ReconcileOutputs{}, err
	}

	sortedItems := buildSortedItems(pathInfos, contentsItems, docsPath)

	rClients := reconcile.Clients{Discourse: o.Clients.Discourse, Repository: o.Clients.Repository, Context: ctx}
	actions, err := reconcile.Run(sortedItems, tableRows, rClients, docsPath)
	if err != nil {
		return model.ReconcileOutputs{}, err
	}

	ignoreServerAhead := o.evaluateAheadOkSuppression(ctx)
	problems, err := checker.All(ctx, actions, ignoreServerAhead, o.Clients.Liveness)
	if err != nil {
		return model.ReconcileOutputs{}, err
	}

	exec := executor.New(o.Clients.Discourse, executor.Options{DryRun: o.Options.DryRun, DeleteTopics: o.Options.DeleteTopics})
	actionReports := exec.Run(ctx, actions)

	localContentForServer := contents.GetContentForServer(index.Local.Content)
	indexAction := reconcile.IndexPage(index, tableRows, o.Clients.Discourse, localContentForServer)
	indexReport := executeIndexAction(ctx, exec, indexAction)

	topics := map[string]model.Result{}
	for _, r := range actionReports {
		if r.Location != "" {
			topics[r.Location] = r.Result
		}
	}
	if indexReport.Location != "" {
		topics[indexReport.Location] = indexReport.Result
	}

	// Executor.Run groups actions into creates/updates/deletes before
	// executing them, so its reports are not in actions' original order;
	// reorder paths the same way to keep the two aligned for the report.
	paths := pathsInExecutionOrder(actions)

	logger.Info("reconcile run finished", logger.String("summary", report.Summary(actionReports, problems)))
	if len(problems) > 0 {
		logger.Info(report.Problems(problems))
	}
	logger.Info(report.Actions(paths, actionReports))

	documentationTag := ""
	if o.moveBaseContentTag(actions, actionReports, index, indexAction, localContentForServer) {
		if err := o.Clients.Repository.MoveTag(reconcile.DocumentationTag, o.Options.CommitSHA); err != nil {
			logger.Error("failed to move base-content tag: " + err.Error())
		} else {
			documentationTag = reconcile.DocumentationTag
		}
	}

	outputs := model.ReconcileOutputs{IndexURL: indexReport.Location, Topics: topics, DocumentationTag: documentationTag}

	if hasFailure(actionReports) || indexReport.Result == model.ResultFail {
		return outputs, errors.NewReconcilliation("one or more actions failed during reconciliation, see the action report for detail")
	}
	return outputs, nil
}

func executeIndexAction(ctx context.Context, exec *executor.Executor, action model.IndexAction) model.ActionReport {
	switch action.Kind {
	case model.KindNoop:
		return model.ActionReport{Location: action.URL, Result: model.ResultSuccess}
	case model.KindCreate:
		if exec.Options.DryRun {
			return model.ActionReport{Location: executor.DryRunNavlinkLink, Result: model.ResultSkip, Reason: executor.DryRunReason}
		}
		url, err := exec.Discourse.CreateTopic(ctx, action.Title, action.Content)
		if err != nil {
			return model.ActionReport{Result: model.ResultFail, Reason: err.Error()}
		}
		return model.ActionReport{Location: url, Result: model.ResultSuccess}
	default:
		if exec.Options.DryRun {
			return model.ActionReport{Location: action.URL, Result: model.ResultSkip, Reason: executor.DryRunReason}
		}
		if err := exec.Discourse.UpdateTopic(ctx, action.URL, action.Content); err != nil {
			return model.ActionReport{Location: action.URL, Result: model.ResultFail, Reason: err.Error()}
		}
		return model.ActionReport{Location: action.URL, Result: model.ResultSuccess}
	}
}

// pathsInExecutionOrder reproduces Executor.Run's create/update/delete
// grouping over just the table paths, so the report table can zip paths
// against the reports it actually returned.
func pathsInExecutionOrder(actions []model.Action) []model.TablePath {
	var creates, updates, deletes []model.TablePath
	for _, action := range actions {
		switch action.Kind {
		case model.KindDelete:
			deletes = append(deletes, action.Path)
		case model.KindUpdate:
			updates = append(updates, action.Path)
		default:
			creates = append(creates, action.Path)
		}
	}
	return append(append(creates, updates...), deletes...)
}

func hasFailure(reports []model.ActionReport) bool {
	for _, r := range reports {
		if r.Result == model.ResultFail {
			return true
		}
	}
	return false
}

// moveBaseContentTag implements the three-condition gate from the reconcile
// index reconciler: the tag only moves when the run is on the base branch,
// no action FAILed, and the executed content now equals the server content
// (i.e. this run is exactly what the base-content tag should now record).
func (o *Orchestrator) moveBaseContentTag(actions []model.Action, actionReports []model.ActionReport, index model.Index, indexAction model.IndexAction, localContentForServer string) bool {
	if o.Options.DryRun {
		return false
	}
	onBase, err := o.Clients.Repository.IsOnBaseBranch(o.Options.BaseBranch)
	if err != nil || !onBase {
		return false
	}
	if hasFailure(actionReports) || indexAction.Kind == model.KindCreate {
		return false
	}
	return reconcile.IsSameContent(index, actions, localContentForServer)
}

// evaluateAheadOkSuppression asks the checker's ahead-ok policy whether the
// server-ahead check should be suppressed for this run, based on the
// ignore_server_ahead option and whether the legacy discourse-ahead-ok tag
// exists in the repository. The commit the tag points at is not checked.
func (o *Orchestrator) evaluateAheadOkSuppression(ctx context.Context) bool {
	present, err := o.Clients.Repository.TagExists(LegacyAheadOkTag)
	if err != nil {
		logger.Warn("failed to check legacy ahead-ok tag, ignoring", logger.Err(err))
		present = false
	}

	result, err := checker.EvaluateAheadOkSuppression(ctx, checker.AheadOkSuppressionInput{
		IgnoreServerAhead: o.Options.IgnoreServerAhead,
		LegacyTagPresent:  present,
	})
	if err != nil {
		logger.Warn("ahead-ok suppression policy evaluation failed, not suppressing", logger.Err(err))
		return false
	}
	if result.DeprecationWarning {
		logger.Warn("honoring deprecated " + LegacyAheadOkTag + " tag via ignore_server_ahead; move the check to configuration")
	}
	return result.Suppress
}

// Migrate runs a migrate pass: parse the server's navigation table, plan the
// local file set, write it, and open the pull request that carries it.
func (o *Orchestrator) Migrate(ctx context.Context, meta *config.Metadata) (model.MigrateOutputs, error) {
	if meta.Docs == nil {
		return model.MigrateOutputs{}, errors.NewInput("charm metadata has no docs url to migrate from")
	}

	serverContent, err := o.Clients.Discourse.RetrieveTopic(ctx, *meta.Docs)
	if err != nil {
		return model.MigrateOutputs{}, errors.WrapServer("index page retrieval failed", err)
	}

	tableRows, err := navtable.Parse(serverContent)
	if err != nil {
		return model.MigrateOutputs{}, err
	}

	indexContent := contents.FromPage(serverContent)
	metas, err := migration.Plan(tableRows, indexContent)
	if err != nil {
		return model.MigrateOutputs{}, err
	}

	staged := hostclient.NewStagedTree()
	reports := migration.Run(ctx, metas, o.Clients.Discourse, indexContent, staged)
	if hasFailure(reports) {
		return model.MigrateOutputs{}, errors.NewMigration("one or more files failed to migrate, see the action report for detail")
	}

	repo, ok := o.Clients.Repository.(*hostclient.Client)
	if !ok {
		return model.MigrateOutputs{}, errors.WrapRepositoryClient("migration requires a full git-hosting client", nil)
	}

	return migration.OpenPullRequest(ctx, repo, o.Clients.PullRequests, staged, o.Options.BaseBranch, meta.Name)
}

// ShouldMigrate reports whether charmDir's state calls for migrate mode:
// the charm advertises a docs URL but has no local docs directory yet.
func ShouldMigrate(charmDir string, meta *config.Metadata) bool {
	return meta.Docs != nil && !docstree.HasDocsDirectory(charmDir)
}
