package reconcile

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/canonical/discourse-gatekeeper/internal/errors"
	"github.com/canonical/discourse-gatekeeper/internal/model"
)

type fakeDiscourse struct {
	host    string
	topics  map[string]string
	created []string
}

func newFakeDiscourse(host string) *fakeDiscourse {
	return &fakeDiscourse{host: host, topics: map[string]string{}}
}

func (f *fakeDiscourse) Host() string { return f.host }

func (f *fakeDiscourse) RetrieveTopic(_ context.Context, url string) (string, error) {
	content, ok := f.topics[url]
	if !ok {
		return "", errors.WrapServer("topic not found: "+url, nil)
	}
	return content, nil
}

func (f *fakeDiscourse) CreateTopic(_ context.Context, title, content string) (string, error) {
	url := f.host + "/t/" + title
	f.topics[url] = content
	f.created = append(f.created, url)
	return url, nil
}

func (f *fakeDiscourse) UpdateTopic(_ context.Context, url, content string) error {
	f.topics[url] = content
	return nil
}

func (f *fakeDiscourse) DeleteTopic(_ context.Context, url string) error {
	delete(f.topics, url)
	return nil
}

func (f *fakeDiscourse) CheckPermissions(context.Context, string) error { return nil }

type fakeRepository struct {
	files map[string]string
	tag   string
}

func (f *fakeRepository) GetFileContentFromTag(path, tagName string) (string, error) {
	if tagName != f.tag {
		return "", &errors.RepositoryTagNotFoundError{Tag: tagName}
	}
	content, ok := f.files[path]
	if !ok {
		return "", &errors.RepositoryFileNotFoundError{Path: path, Tag: tagName}
	}
	return content, nil
}

func TestRunLocalOnlyCreatesGroupAndPage(t *testing.T) {
	dir := t.TempDir()
	pagePath := filepath.Join(dir, "one.md")
	require.NoError(t, os.WriteFile(pagePath, []byte("hello"), 0o644))

	items := []model.ItemInfo{
		{Path: &model.PathInfo{LocalPath: dir, IsDir: true, Level: 1, TablePath: model.TablePath{"group"}, NavlinkTitle: "Group"}},
		{Path: &model.PathInfo{LocalPath: pagePath, IsDir: false, Level: 2, TablePath: model.TablePath{"group", "one"}, NavlinkTitle: "One"}},
	}

	clients := Clients{Discourse: newFakeDiscourse("https://discourse.example.com")}
	actions, err := Run(items, nil, clients, dir)
	require.NoError(t, err)
	require.Len(t, actions, 2)
	assert.Equal(t, model.KindCreate, actions[0].Kind)
	assert.Equal(t, model.RoleGroup, actions[0].Role)
	assert.Equal(t, model.KindCreate, actions[1].Kind)
	assert.Equal(t, model.RolePage, actions[1].Role)
	assert.Equal(t, "hello", actions[1].Content)
}

func TestRunServerOnlyDeletesPage(t *testing.T) {
	discourse := newFakeDiscourse("https://discourse.example.com")
	discourse.topics["https://discourse.example.com/t/1"] = "old content"

	rows := []model.TableRow{
		{Level: 1, Path: model.TablePath{"orphan"}, Navlink: model.Navlink{Title: "Orphan", Link: "https://discourse.example.com/t/1"}},
	}

	clients := Clients{Discourse: discourse}
	actions, err := Run(nil, rows, clients, t.TempDir())
	require.NoError(t, err)
	require.Len(t, actions, 1)
	assert.Equal(t, model.KindDelete, actions[0].Kind)
	assert.Equal(t, model.RolePage, actions[0].Role)
	assert.Equal(t, "old content", actions[0].Content)
}

func TestRunFileLocalPageServerNoop(t *testing.T) {
	dir := t.TempDir()
	pagePath := filepath.Join(dir, "one.md")
	require.NoError(t, os.WriteFile(pagePath, []byte("same content"), 0o644))

	discourse := newFakeDiscourse("https://discourse.example.com")
	discourse.topics["https://discourse.example.com/t/1"] = "same content"

	items := []model.ItemInfo{
		{Path: &model.PathInfo{LocalPath: pagePath, IsDir: false, Level: 1, TablePath: model.TablePath{"one"}, NavlinkTitle: "One"}},
	}
	rows := []model.TableRow{
		{Level: 1, Path: model.TablePath{"one"}, Navlink: model.Navlink{Title: "One", Link: "https://discourse.example.com/t/1"}},
	}

	clients := Clients{Discourse: discourse, Repository: &fakeRepository{tag: DocumentationTag, files: map[string]string{}}}
	actions, err := Run(items, rows, clients, dir)
	require.NoError(t, err)
	require.Len(t, actions, 1)
	assert.Equal(t, model.KindNoop, actions[0].Kind)
}

func TestRunFileLocalPageServerUpdateWithMissingBaseTag(t *testing.T) {
	dir := t.TempDir()
	pagePath := filepath.Join(dir, "one.md")
	require.NoError(t, os.WriteFile(pagePath, []byte("local content"), 0o644))

	discourse := newFakeDiscourse("https://discourse.example.com")
	discourse.topics["https://discourse.example.com/t/1"] = "server content"

	items := []model.ItemInfo{
		{Path: &model.PathInfo{LocalPath: pagePath, IsDir: false, Level: 1, TablePath: model.TablePath{"one"}, NavlinkTitle: "One"}},
	}
	rows := []model.TableRow{
		{Level: 1, Path: model.TablePath{"one"}, Navlink: model.Navlink{Title: "One", Link: "https://discourse.example.com/t/1"}},
	}

	clients := Clients{Discourse: discourse, Repository: &fakeRepository{tag: DocumentationTag, files: map[string]string{}}}
	actions, err := Run(items, rows, clients, dir)
	require.NoError(t, err)
	require.Len(t, actions, 1)
	assert.Equal(t, model.KindUpdate, actions[0].Kind)
	require.NotNil(t, actions[0].ContentChange)
	assert.Nil(t, actions[0].ContentChange.Base)
	assert.Equal(t, "server content", actions[0].ContentChange.Server)
	assert.Equal(t, "local content", actions[0].ContentChange.Local)
}

func TestRunFileLocalPageServerErrorsWhenTagMissingEntirely(t *testing.T) {
	dir := t.TempDir()
	pagePath := filepath.Join(dir, "one.md")
	require.NoError(t, os.WriteFile(pagePath, []byte("local content"), 0o644))

	discourse := newFakeDiscourse("https://discourse.example.com")
	discourse.topics["https://discourse.example.com/t/1"] = "server content"

	items := []model.ItemInfo{
		{Path: &model.PathInfo{LocalPath: pagePath, IsDir: false, Level: 1, TablePath: model.TablePath{"one"}, NavlinkTitle: "One"}},
	}
	rows := []model.TableRow{
		{Level: 1, Path: model.TablePath{"one"}, Navlink: model.Navlink{Title: "One", Link: "https://discourse.example.com/t/1"}},
	}

	clients := Clients{Discourse: discourse, Repository: &fakeRepository{tag: "some-other-tag"}}
	_, err := Run(items, rows, clients, dir)
	require.Error(t, err)
	var reconcileErr *errors.ReconcilliationError
	require.ErrorAs(t, err, &reconcileErr)
}

func TestRunDirLocalPageServerReplacesPageWithGroup(t *testing.T) {
	dir := t.TempDir()
	discourse := newFakeDiscourse("https://discourse.example.com")
	discourse.topics["https://discourse.example.com/t/1"] = "stale page content"

	items := []model.ItemInfo{
		{Path: &model.PathInfo{LocalPath: dir, IsDir: true, Level: 1, TablePath: model.TablePath{"section"}, NavlinkTitle: "Section"}},
	}
	rows := []model.TableRow{
		{Level: 1, Path: model.TablePath{"section"}, Navlink: model.Navlink{Title: "Section", Link: "https://discourse.example.com/t/1"}},
	}

	clients := Clients{Discourse: discourse}
	actions, err := Run(items, rows, clients, dir)
	require.NoError(t, err)
	require.Len(t, actions, 2)
	assert.Equal(t, model.KindDelete, actions[0].Kind)
	assert.Equal(t, model.RolePage, actions[0].Role)
	assert.Equal(t, model.KindCreate, actions[1].Kind)
	assert.Equal(t, model.RoleGroup, actions[1].Role)
}

func TestRunExternalRefLocalNoop(t *testing.T) {
	item := model.NewIndexContentsListItem(1, "External", "https://example.com/page", 0, false, model.TablePath{"external"}, true)
	items := []model.ItemInfo{{Contents: &item}}
	rows := []model.TableRow{
		{Level: 1, Path: model.TablePath{"external"}, Navlink: model.Navlink{Title: "External", Link: "https://example.com/page"}},
	}

	clients := Clients{Discourse: newFakeDiscourse("https://discourse.example.com")}
	actions, err := Run(items, rows, clients, t.TempDir())
	require.NoError(t, err)
	require.Len(t, actions, 1)
	assert.Equal(t, model.KindNoop, actions[0].Kind)
	assert.Equal(t, model.RoleExternalRef, actions[0].Role)
}

func TestIndexPageCreateWhenNoServerPage(t *testing.T) {
	discourse := newFakeDiscourse("https://discourse.example.com")
	rows := []model.TableRow{
		{Level: 1, Path: model.TablePath{"one"}, Navlink: model.Navlink{Title: "One", Link: "https://discourse.example.com/t/1"}},
	}
	index := model.Index{Local: model.IndexFile{Title: "Docs"}}

	action := IndexPage(index, rows, discourse, "# Docs")
	assert.Equal(t, model.KindCreate, action.Kind)
	assert.Contains(t, action.Content, "# Navigation")
	assert.Contains(t, action.Content, "One")
}

func TestIndexPageNoopWhenContentMatches(t *testing.T) {
	discourse := newFakeDiscourse("https://discourse.example.com")
	rows := []model.TableRow{
		{Level: 1, Path: model.TablePath{"one"}, Navlink: model.Navlink{Title: "One", Link: "https://discourse.example.com/t/1"}},
	}
	rendered := IndexPage(model.Index{Local: model.IndexFile{Title: "Docs"}}, rows, discourse, "# Docs").Content

	index := model.Index{
		Server: &model.Page{URL: "https://discourse.example.com/t/index", Content: rendered},
		Local:  model.IndexFile{Title: "Docs"},
	}
	action := IndexPage(index, rows, discourse, "# Docs")
	assert.Equal(t, model.KindNoop, action.Kind)
}
