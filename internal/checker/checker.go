// Package checker runs pre-execution validation over a realized action
// stream: page content conflicts, logical server-ahead conflicts, and
// external-reference liveness.
//
// Grounded on check.py, generalized from a single conflicts() generator into
// three independently-callable checks: content conflicts, server-ahead, and
// external-reference liveness probing.
package checker

import (
	"context"
	"fmt"
	"net/http"

	"golang.org/x/sync/errgroup"

	"github.com/canonical/discourse-gatekeeper/internal/merge"
	"github.com/canonical/discourse-gatekeeper/internal/model"
	"github.com/canonical/discourse-gatekeeper/pkg/logger"
)

// ContentConflicts yields a Problem for each UpdatePage action whose
// three-way merge would conflict.
func ContentConflicts(actions []model.Action) []model.Problem {
	var problems []model.Problem
	for _, action := range actions {
		if action.Kind != model.KindUpdate || action.Role != model.RolePage || action.ContentChange == nil {
			continue
		}
		cc := action.ContentChange
		result, err := merge.Merge(cc.Base, cc.Server, cc.Local)
		if err != nil {
			problems = append(problems, model.Problem{Path: action.Path.String(), Description: err.Error()})
			continue
		}
		if result.BaseMissingDiverged {
			problems = append(problems, model.Problem{
				Path: action.Path.String(),
				Description: fmt.Sprintf(
					"%s was never reconciled before (no base-content tag entry) and server and local "+
						"content disagree; tag the commit matching the server content before reconciling", action.Path),
			})
			continue
		}
		if result.Conflicted {
			problems = append(problems, model.Problem{
				Path:        action.Path.String(),
				Description: fmt.Sprintf("content conflict for %s:\n%s", action.Path, result.Content),
			})
		}
	}
	return problems
}

// ServerAhead yields a Problem for every page action where the server holds
// content the base tag never recorded (server != base) while the run also
// touches at least one other non-noop page — a sign the server was edited
// out of band since the last successful reconcile.
//
// ignoreServerAhead is a deliberate, explicit opt-in standing in for the
// legacy "ahead-ok" Git tag: it must be set by configuration rather than
// inferred from the tag's presence, since honoring it silently previously
// let a server edited out of band suppress this check without the operator
// noticing.
func ServerAhead(actions []model.Action, ignoreServerAhead bool) []model.Problem {
	if ignoreServerAhead {
		return nil
	}

	nonNoopPageCount := 0
	var ahead []model.Action
	for _, action := range actions {
		if action.Role != model.RolePage {
			continue
		}
		if action.Kind != model.KindNoop {
			nonNoopPageCount++
		}
		if action.Kind == model.KindUpdate && action.ContentChange != nil &&
			action.ContentChange.Base != nil && *action.ContentChange.Base != action.ContentChange.Server {
			ahead = append(ahead, action)
		}
	}

	if nonNoopPageCount < 2 {
		return nil
	}

	var problems []model.Problem
	for _, action := range ahead {
		problems = append(problems, model.Problem{
			Path: action.Path.String(),
			Description: fmt.Sprintf(
				"server content for %s changed since the last reconcile and this run also "+
					"makes other changes; resolve manually or set ignore_server_ahead", action.Path),
		})
	}
	return problems
}

// LivenessChecker probes a URL for reachability. http.Client satisfies this
// via its Head method.
type LivenessChecker interface {
	Head(url string) (*http.Response, error)
}

// ExternalReferenceLiveness issues a HEAD request (following redirects) for
// every external-reference action and yields a Problem for any that does
// not return a 2xx status.
func ExternalReferenceLiveness(ctx context.Context, actions []model.Action, client LivenessChecker) ([]model.Problem, error) {
	targets := make([]model.Action, 0, len(actions))
	for _, action := range actions {
		if action.Role == model.RoleExternalRef && action.Kind != model.KindDelete {
			targets = append(targets, action)
		}
	}

	problems := make([]model.Problem, len(targets))
	found := make([]bool, len(targets))

	group, _ := errgroup.WithContext(ctx)
	for i, action := range targets {
		i, action := i, action
		group.Go(func() error {
			link := action.Content
			resp, err := client.Head(link)
			if err != nil {
				problems[i] = model.Problem{Path: action.Path.String(), Description: fmt.Sprintf("external reference %s unreachable: %v", link, err)}
				found[i] = true
				return nil
			}
			defer resp.Body.Close()
			if resp.StatusCode < 200 || resp.StatusCode >= 300 {
				problems[i] = model.Problem{Path: action.Path.String(), Description: fmt.Sprintf("external reference %s returned status %d", link, resp.StatusCode)}
				found[i] = true
			}
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return nil, err
	}

	var out []model.Problem
	for i, ok := range found {
		if ok {
			out = append(out, problems[i])
		}
	}
	return out, nil
}

// All runs every check and concatenates their problems.
func All(ctx context.Context, actions []model.Action, ignoreServerAhead bool, client LivenessChecker) ([]model.Problem, error) {
	var problems []model.Problem
	problems = append(problems, ContentConflicts(actions)...)
	problems = append(problems, ServerAhead(actions, ignoreServerAhead)...)

	liveness, err := ExternalReferenceLiveness(ctx, actions, client)
	if err != nil {
		return nil, err
	}
	problems = append(problems, liveness...)

	for _, problem := range problems {
		logger.Warn("pre-execution check flagged a problem", logger.TablePath(problem.Path), logger.String("description", problem.Description))
	}
	return problems, nil
}
