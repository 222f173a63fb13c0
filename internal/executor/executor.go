// Package executor consumes a realized action stream and applies it to
// Discourse, producing an ActionReport per action.
//
// Grounded on action.py's per-role dispatch (_create_page/_update_page/
// _delete_page and their group/external-ref counterparts), collapsed onto
// the single model.Action sum type: one dispatch function keyed on
// Kind × Role instead of one function per concrete action class.
package executor

import (
	"context"

	"github.com/canonical/discourse-gatekeeper/internal/discourseclient"
	"github.com/canonical/discourse-gatekeeper/internal/merge"
	"github.com/canonical/discourse-gatekeeper/internal/model"
	"github.com/canonical/discourse-gatekeeper/pkg/logger"
)

const (
	// DryRunReason is recorded on every SKIP produced by a dry run.
	DryRunReason = "dry run"
	// NotDeleteReason is recorded on a page/group/external-ref delete SKIP
	// when delete_topics is disabled.
	NotDeleteReason = "delete_topics disabled"
	// DryRunNavlinkLink is the placeholder location recorded for a SKIPped
	// create/update in dry-run mode, standing in for the real topic URL a
	// live run would have received from Discourse.
	DryRunNavlinkLink = "(dry run)"
)

// Options controls execution-time gating.
type Options struct {
	DryRun       bool
	DeleteTopics bool
}

// Executor applies an action plan to Discourse, tracking freshly created
// URLs so that later actions (and the index render) see up-to-date links.
type Executor struct {
	Discourse discourseclient.Client
	Options   Options

	// urls caches table-path -> URL for pages/external-refs created or
	// updated during this run, keyed by Path.String().
	urls map[string]string
}

// New builds an Executor.
func New(discourse discourseclient.Client, opts Options) *Executor {
	return &Executor{Discourse: discourse, Options: opts, urls: map[string]string{}}
}

// URL returns the location recorded for a table path during this run, if
// any action touched it.
func (e *Executor) URL(path model.TablePath) (string, bool) {
	url, ok := e.urls[path.String()]
	return url, ok
}

// Run executes actions in order, creates/updates first, deletes after, so
// that a group's children are fully materialized before any stale sibling
// is torn down.
func (e *Executor) Run(ctx context.Context, actions []model.Action) []model.ActionReport {
	var creates, updates, deletes []model.Action
	for _, action := range actions {
		switch action.Kind {
		case model.KindDelete:
			deletes = append(deletes, action)
		case model.KindUpdate:
			updates = append(updates, action)
		default:
			creates = append(creates, action)
		}
	}

	var reports []model.ActionReport
	for _, action := range append(append(creates, updates...), deletes...) {
		report := e.execute(ctx, action)
		fields := []logger.Field{logger.TablePath(action.Path.String()), logger.Result(string(report.Result))}
		if report.Location != "" {
			fields = append(fields, logger.URL(report.Location))
		}
		if report.Result == model.ResultFail {
			logger.Error("action execution failed: "+report.Reason, fields...)
		} else {
			logger.Info("action executed", fields...)
		}
		reports = append(reports, report)
	}
	return reports
}

func (e *Executor) execute(ctx context.Context, action model.Action) model.ActionReport {
	switch action.Kind {
	case model.KindNoop:
		return model.ActionReport{Location: action.Navlink.Link, Result: model.ResultSuccess, Reason: "no change"}
	case model.KindCreate:
		return e.executeCreate(ctx, action)
	case model.KindUpdate:
		return e.executeUpdate(ctx, action)
	case model.KindDelete:
		return e.executeDelete(ctx, action)
	default:
		return model.ActionReport{Result: model.ResultFail, Reason: "unknown action kind"}
	}
}

func (e *Executor) executeCreate(ctx context.Context, action model.Action) model.ActionReport {
	if e.Options.DryRun {
		return model.ActionReport{Location: DryRunNavlinkLink, Result: model.ResultSkip, Reason: DryRunReason}
	}
	if action.Role == model.RoleGroup {
		e.urls[action.Path.String()] = ""
		return model.ActionReport{Result: model.ResultSuccess, Reason: "group created"}
	}

	url, err := e.Discourse.CreateTopic(ctx, action.NavlinkTitle, action.Content)
	if err != nil {
		return model.ActionReport{Result: model.ResultFail, Reason: err.Error()}
	}
	e.urls[action.Path.String()] = url
	return model.ActionReport{Location: url, Result: model.ResultSuccess}
}

func (e *Executor) executeUpdate(ctx context.Context, action model.Action) model.ActionReport {
	if e.Options.DryRun {
		return model.ActionReport{Location: DryRunNavlinkLink, Result: model.ResultSkip, Reason: DryRunReason}
	}
	if action.Role != model.RolePage {
		// group/external-ref updates only touch the navlink, realized when the
		// index page is re-rendered; nothing to send to Discourse.
		return model.ActionReport{Result: model.ResultSuccess, Reason: "navlink updated"}
	}

	url := action.NavlinkChange.Old.Link
	if action.ContentChange == nil {
		return model.ActionReport{Location: url, Result: model.ResultFail, Reason: "internal error, missing content change on page update"}
	}

	content, err := merge.MergeOrError(action.Path.String(), action.ContentChange.Base, action.ContentChange.Server, action.ContentChange.Local)
	if err != nil {
		return model.ActionReport{Location: url, Result: model.ResultFail, Reason: err.Error()}
	}

	if err := e.Discourse.UpdateTopic(ctx, url, content); err != nil {
		return model.ActionReport{Location: url, Result: model.ResultFail, Reason: err.Error()}
	}
	e.urls[action.Path.String()] = url
	return model.ActionReport{Location: url, Result: model.ResultSuccess}
}

func (e *Executor) executeDelete(ctx context.Context, action model.Action) model.ActionReport {
	if e.Options.DryRun {
		return model.ActionReport{Location: DryRunNavlinkLink, Result: model.ResultSkip, Reason: DryRunReason}
	}
	if !e.Options.DeleteTopics {
		return model.ActionReport{Location: action.Navlink.Link, Result: model.ResultSkip, Reason: NotDeleteReason}
	}
	if action.Role != model.RolePage {
		return model.ActionReport{Result: model.ResultSuccess, Reason: "removed from navigation"}
	}

	if err := e.Discourse.DeleteTopic(ctx, action.Navlink.Link); err != nil {
		return model.ActionReport{Location: action.Navlink.Link, Result: model.ResultFail, Reason: err.Error()}
	}
	return model.ActionReport{Location: action.Navlink.Link, Result: model.ResultSuccess}
}
