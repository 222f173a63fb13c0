// Package reconcile computes the action plan that reconciles a local docs
// tree (plus contents-index external references) against a navigation
// table read from Discourse.
//
// Grounded on gatekeeper/reconcile.py, generalized onto the single
// model.Action sum type instead of one struct per role-times-verb
// combination.
package reconcile

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/canonical/discourse-gatekeeper/internal/contents"
	"github.com/canonical/discourse-gatekeeper/internal/discourseclient"
	"github.com/canonical/discourse-gatekeeper/internal/errors"
	"github.com/canonical/discourse-gatekeeper/internal/model"
	"github.com/canonical/discourse-gatekeeper/internal/navtable"
)

// DocumentationTag is the tag whose target commit provides the base content
// for three-way merges.
const DocumentationTag = "discourse-gatekeeper/base-content"

// RepositoryClient is the subset of hostclient.Client the planner needs.
type RepositoryClient interface {
	GetFileContentFromTag(path, tagName string) (string, error)
}

// Clients bundles the external collaborators the planner calls out to.
type Clients struct {
	Discourse  discourseclient.Client
	Repository RepositoryClient
	Context    context.Context
}

func (c Clients) ctx() context.Context {
	if c.Context != nil {
		return c.Context
	}
	return context.Background()
}

func localOnly(item model.ItemInfo) (model.Action, error) {
	if item.Contents != nil {
		ci := item.Contents
		return model.Action{
			Kind:          model.KindCreate,
			Role:          model.RoleExternalRef,
			Level:         ci.Hierarchy,
			Path:          ci.TablePath(),
			NavlinkTitle:  ci.ReferenceTitle,
			NavlinkHidden: ci.Hidden,
			Content:       ci.ReferenceValue,
		}, nil
	}

	pi := item.Path
	if pi.IsDir {
		return model.Action{
			Kind:          model.KindCreate,
			Role:          model.RoleGroup,
			Level:         pi.Level,
			Path:          pi.TablePath,
			NavlinkTitle:  pi.NavlinkTitle,
			NavlinkHidden: pi.NavlinkHidden,
		}, nil
	}

	content, err := os.ReadFile(pi.LocalPath)
	if err != nil {
		return model.Action{}, errors.WrapInput("failed to read "+pi.LocalPath, err)
	}
	return model.Action{
		Kind:          model.KindCreate,
		Role:          model.RolePage,
		Level:         pi.Level,
		Path:          pi.TablePath,
		NavlinkTitle:  pi.NavlinkTitle,
		NavlinkHidden: pi.NavlinkHidden,
		Content:       string(content),
	}, nil
}

func getServerContent(ctx context.Context, row model.TableRow, discourse discourseclient.Client) (string, error) {
	if row.Navlink.Link == "" {
		return "", errors.NewReconcilliation(fmt.Sprintf("internal error, expecting link on table row, %+v", row))
	}
	content, err := discourse.RetrieveTopic(ctx, row.Navlink.Link)
	if err != nil {
		return "", errors.WrapServer("failed to retrieve contents of page, url="+row.Navlink.Link, err)
	}
	return strings.TrimSpace(content), nil
}

func validate(item model.ItemInfo, row model.TableRow) error {
	if item.Level() != row.Level {
		return errors.NewReconcilliation(fmt.Sprintf(
			"internal error, level mismatch, item=%+v, table_row=%+v", item, row))
	}
	if !item.TablePath().Equal(row.Path) {
		return errors.NewReconcilliation(fmt.Sprintf(
			"internal error, table path mismatch, item=%+v, table_row=%+v", item, row))
	}
	return nil
}

func dirLocalGroupServer(pi model.PathInfo, row model.TableRow) model.Action {
	if row.Navlink.Title == pi.NavlinkTitle {
		return model.Action{
			Kind: model.KindNoop, Role: model.RoleGroup,
			Level: pi.Level, Path: pi.TablePath, Navlink: row.Navlink,
		}
	}
	newNavlink := model.Navlink{Title: pi.NavlinkTitle, Link: row.Navlink.Link, Hidden: false}
	return model.Action{
		Kind: model.KindUpdate, Role: model.RoleGroup,
		Level: pi.Level, Path: pi.TablePath,
		NavlinkChange: &model.NavlinkChange{Old: row.Navlink, New: newNavlink},
	}
}

func externalRefLocalExternalRefServer(item model.IndexContentsListItem, row model.TableRow) model.Action {
	if row.Navlink.Title == item.ReferenceTitle && row.Navlink.Link == item.ReferenceValue {
		return model.Action{
			Kind: model.KindNoop, Role: model.RoleExternalRef,
			Level: item.Hierarchy, Path: item.TablePath(), Navlink: row.Navlink,
		}
	}
	newNavlink := model.Navlink{Title: item.ReferenceTitle, Link: item.ReferenceValue, Hidden: item.Hidden}
	return model.Action{
		Kind: model.KindUpdate, Role: model.RoleExternalRef,
		Level: item.Hierarchy, Path: item.TablePath(),
		NavlinkChange: &model.NavlinkChange{Old: row.Navlink, New: newNavlink},
	}
}

func dirLocalPageServer(ctx context.Context, pi model.PathInfo, row model.TableRow, clients Clients) ([]model.Action, error) {
	content, err := clients.Discourse.RetrieveTopic(ctx, row.Navlink.Link)
	if err != nil {
		return nil, errors.WrapServer("failed to retrieve contents of page, url="+row.Navlink.Link, err)
	}
	return []model.Action{
		{Kind: model.KindDelete, Role: model.RolePage, Level: pi.Level, Path: pi.TablePath, Navlink: row.Navlink, Content: content},
		{Kind: model.KindCreate, Role: model.RoleGroup, Level: pi.Level, Path: pi.TablePath, NavlinkTitle: pi.NavlinkTitle, NavlinkHidden: pi.NavlinkHidden},
	}, nil
}

func externalRefLocalPageServer(ctx context.Context, item model.IndexContentsListItem, row model.TableRow, clients Clients) ([]model.Action, error) {
	content, err := clients.Discourse.RetrieveTopic(ctx, row.Navlink.Link)
	if err != nil {
		return nil, errors.WrapServer("failed to retrieve contents of page, url="+row.Navlink.Link, err)
	}
	return []model.Action{
		{Kind: model.KindDelete, Role: model.RolePage, Level: item.Hierarchy, Path: item.TablePath(), Navlink: row.Navlink, Content: content},
		{Kind: model.KindCreate, Role: model.RoleExternalRef, Level: item.Hierarchy, Path: item.TablePath(),
			NavlinkTitle: item.ReferenceTitle, NavlinkHidden: item.Hidden, Content: item.ReferenceValue},
	}, nil
}

func fileLocalPageServer(ctx context.Context, pi model.PathInfo, row model.TableRow, clients Clients, basePath string) (model.Action, error) {
	raw, err := os.ReadFile(pi.LocalPath)
	if err != nil {
		return model.Action{}, errors.WrapInput("failed to read "+pi.LocalPath, err)
	}
	localContent := strings.TrimSpace(string(raw))

	serverContent, err := getServerContent(ctx, row, clients.Discourse)
	if err != nil {
		return model.Action{}, err
	}

	if serverContent == localContent && row.Navlink.Title == pi.NavlinkTitle && row.Navlink.Hidden == pi.NavlinkHidden {
		return model.Action{
			Kind: model.KindNoop, Role: model.RolePage,
			Level: pi.Level, Path: pi.TablePath, Navlink: row.Navlink, Content: localContent,
		}, nil
	}

	rel, err := filepath.Rel(basePath, pi.LocalPath)
	if err != nil {
		return model.Action{}, errors.WrapInput("failed to compute relative path for "+pi.LocalPath, err)
	}

	var baseContent *string
	content, tagErr := clients.Repository.GetFileContentFromTag(filepath.ToSlash(rel), DocumentationTag)
	switch tagErr.(type) {
	case nil:
		trimmed := strings.TrimSpace(content)
		baseContent = &trimmed
	case *errors.RepositoryFileNotFoundError:
		baseContent = nil
	case *errors.RepositoryTagNotFoundError:
		return model.Action{}, errors.NewReconcilliation(fmt.Sprintf(
			"tag %s not defined on the repository, please tag the commit with the content "+
				"matching discourse with the tag %q", DocumentationTag, DocumentationTag))
	default:
		return model.Action{}, errors.NewReconcilliation(fmt.Sprintf(
			"unable to retrieve content for path from tag, %s, tag_name=%s", rel, DocumentationTag))
	}

	newNavlink := model.Navlink{Title: pi.NavlinkTitle, Link: row.Navlink.Link, Hidden: pi.NavlinkHidden}
	return model.Action{
		Kind: model.KindUpdate, Role: model.RolePage,
		Level: pi.Level, Path: pi.TablePath,
		NavlinkChange: &model.NavlinkChange{Old: row.Navlink, New: newNavlink},
		ContentChange: &model.ContentChange{Base: baseContent, Server: serverContent, Local: localContent},
	}, nil
}

func dirLocal(ctx context.Context, pi model.PathInfo, row model.TableRow, clients Clients) ([]model.Action, error) {
	if row.IsGroup() {
		return []model.Action{dirLocalGroupServer(pi, row)}, nil
	}
	if row.IsExternal(clients.Discourse.Host()) {
		return []model.Action{{
			Kind: model.KindCreate, Role: model.RoleGroup,
			Level: pi.Level, Path: pi.TablePath, NavlinkTitle: pi.NavlinkTitle, NavlinkHidden: pi.NavlinkHidden,
		}}, nil
	}
	return dirLocalPageServer(ctx, pi, row, clients)
}

func fileLocal(ctx context.Context, pi model.PathInfo, row model.TableRow, clients Clients, basePath string) ([]model.Action, error) {
	if row.IsGroup() || row.IsExternal(clients.Discourse.Host()) {
		content, err := os.ReadFile(pi.LocalPath)
		if err != nil {
			return nil, errors.WrapInput("failed to read "+pi.LocalPath, err)
		}
		return []model.Action{{
			Kind: model.KindCreate, Role: model.RolePage,
			Level: pi.Level, Path: pi.TablePath, NavlinkTitle: pi.NavlinkTitle,
			NavlinkHidden: pi.NavlinkHidden, Content: string(content),
		}}, nil
	}
	action, err := fileLocalPageServer(ctx, pi, row, clients, basePath)
	if err != nil {
		return nil, err
	}
	return []model.Action{action}, nil
}

func externalRefLocal(ctx context.Context, item model.IndexContentsListItem, row model.TableRow, clients Clients) ([]model.Action, error) {
	if row.IsGroup() {
		return []model.Action{{
			Kind: model.KindCreate, Role: model.RoleExternalRef,
			Level: item.Hierarchy, Path: item.TablePath(),
			NavlinkTitle: item.ReferenceTitle, NavlinkHidden: item.Hidden, Content: item.ReferenceValue,
		}}, nil
	}
	if row.IsExternal(clients.Discourse.Host()) {
		return []model.Action{externalRefLocalExternalRefServer(item, row)}, nil
	}
	return externalRefLocalPageServer(ctx, item, row, clients)
}

func localAndServer(ctx context.Context, item model.ItemInfo, row model.TableRow, clients Clients, basePath string) ([]model.Action, error) {
	if err := validate(item, row); err != nil {
		return nil, err
	}

	if item.Path != nil && item.Path.IsDir {
		return dirLocal(ctx, *item.Path, row, clients)
	}
	if item.Path != nil {
		return fileLocal(ctx, *item.Path, row, clients, basePath)
	}
	return externalRefLocal(ctx, *item.Contents, row, clients)
}

func serverOnly(ctx context.Context, row model.TableRow, discourse discourseclient.Client) (model.Action, error) {
	if row.IsGroup() {
		return model.Action{Kind: model.KindDelete, Role: model.RoleGroup, Level: row.Level, Path: row.Path, Navlink: row.Navlink}, nil
	}
	if row.IsExternal(discourse.Host()) {
		return model.Action{Kind: model.KindDelete, Role: model.RoleExternalRef, Level: row.Level, Path: row.Path, Navlink: row.Navlink}, nil
	}
	content, err := discourse.RetrieveTopic(ctx, row.Navlink.Link)
	if err != nil {
		return model.Action{}, errors.WrapServer("failed to retrieve contents of page, url="+row.Navlink.Link, err)
	}
	return model.Action{Kind: model.KindDelete, Role: model.RolePage, Level: row.Level, Path: row.Path, Navlink: row.Navlink, Content: content}, nil
}

func calculateAction(ctx context.Context, item *model.ItemInfo, row *model.TableRow, clients Clients, basePath string) ([]model.Action, error) {
	switch {
	case item == nil && row == nil:
		return nil, errors.NewReconcilliation("internal error, both item info and table row are nil")
	case item != nil && row == nil:
		action, err := localOnly(*item)
		if err != nil {
			return nil, err
		}
		return []model.Action{action}, nil
	case item == nil && row != nil:
		action, err := serverOnly(ctx, *row, clients.Discourse)
		if err != nil {
			return nil, err
		}
		return []model.Action{action}, nil
	default:
		return localAndServer(ctx, *item, *row, clients, basePath)
	}
}

// Run reconciles sortedItems (docs-tree entries and contents-index external
// references, in display order) against tableRows (the current navigation
// table), returning the ordered action plan. Items only present in
// tableRows (server-only, i.e. deletes) are appended afterwards sorted by
// table path, since their relative order has no effect on the rendered
// navigation table.
func Run(sortedItems []model.ItemInfo, tableRows []model.TableRow, clients Clients, basePath string) ([]model.Action, error) {
	itemByKey := map[string]model.ItemInfo{}
	var orderedKeys []string
	for _, item := range sortedItems {
		key := item.TablePath().String()
		if _, exists := itemByKey[key]; !exists {
			orderedKeys = append(orderedKeys, key)
		}
		itemByKey[key] = item
	}

	rowByKey := map[string]model.TableRow{}
	for _, row := range tableRows {
		rowByKey[row.Path.String()] = row
	}

	var remainingRowKeys []string
	for key := range rowByKey {
		if _, exists := itemByKey[key]; !exists {
			remainingRowKeys = append(remainingRowKeys, key)
		}
	}
	sort.Strings(remainingRowKeys)

	keys := append(append([]string{}, orderedKeys...), remainingRowKeys...)

	ctx := clients.ctx()
	var actions []model.Action
	for _, key := range keys {
		item, hasItem := itemByKey[key]
		row, hasRow := rowByKey[key]

		var itemPtr *model.ItemInfo
		var rowPtr *model.TableRow
		if hasItem {
			itemPtr = &item
		}
		if hasRow {
			rowPtr = &row
		}

		result, err := calculateAction(ctx, itemPtr, rowPtr, clients, basePath)
		if err != nil {
			return nil, err
		}
		actions = append(actions, result...)
	}
	return actions, nil
}

// IsSameContent reports whether the action plan and the index are already
// exactly what the server holds, i.e. a run would be a pure Noop.
func IsSameContent(index model.Index, actions []model.Action, localContentForServer string) bool {
	if index.Server == nil {
		return false
	}
	for _, action := range actions {
		if action.Kind != model.KindNoop {
			return false
		}
	}
	return localContentForServer == contents.FromPage(index.Server.Content)
}

// IndexPage reconciles the index page: renders a fresh navigation table
// from tableRows, appends it to the index content with the contents-list
// section stripped, and compares against the server's current content.
func IndexPage(index model.Index, tableRows []model.TableRow, discourse discourseclient.Client, localContentForServer string) model.IndexAction {
	rendered := navtable.Render(tableRows, discourse.Host())
	localContent := strings.TrimSpace(strings.TrimSpace(localContentForServer) + "\n\n" + rendered)

	if index.Server == nil {
		return model.IndexAction{Kind: model.KindCreate, Title: index.Local.Title, Content: localContent}
	}

	serverContent := strings.TrimSpace(index.Server.Content)
	if localContent != serverContent {
		return model.IndexAction{
			Kind: model.KindUpdate, URL: index.Server.URL,
			Content: localContent, OldContent: serverContent,
		}
	}
	return model.IndexAction{Kind: model.KindNoop, URL: index.Server.URL, Content: localContent}
}
