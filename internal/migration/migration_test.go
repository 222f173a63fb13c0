package migration

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/canonical/discourse-gatekeeper/internal/hostclient"
	"github.com/canonical/discourse-gatekeeper/internal/model"
)

func row(level int, path string, link string) model.TableRow {
	return model.TableRow{Level: level, Path: model.TablePath([]string{path}), Navlink: model.Navlink{Title: path, Link: link}}
}

func TestPlanFlatDocuments(t *testing.T) {
	rows := []model.TableRow{
		row(1, "one", "https://discourse.example.com/t/1"),
		row(1, "two", "https://discourse.example.com/t/2"),
	}
	metas, err := Plan(rows, "index content")
	require.NoError(t, err)
	require.Len(t, metas, 3)
	assert.Equal(t, KindIndex, metas[0].Kind)
	assert.Equal(t, "one.md", metas[1].Path)
	assert.Equal(t, "two.md", metas[2].Path)
}

func TestPlanSynthesizesGitkeepForEmptyDirectory(t *testing.T) {
	rows := []model.TableRow{
		{Level: 1, Path: model.TablePath{"empty-group"}, Navlink: model.Navlink{Title: "Empty Group"}},
		row(1, "sibling", "https://discourse.example.com/t/1"),
	}
	metas, err := Plan(rows, "index content")
	require.NoError(t, err)

	var gitkeeps []FileMeta
	for _, m := range metas {
		if m.Kind == KindGitkeep {
			gitkeeps = append(gitkeeps, m)
		}
	}
	require.Len(t, gitkeeps, 1)
	assert.Equal(t, "empty-group/.gitkeep", gitkeeps[0].Path)
}

func TestPlanNestedDirectoryWithDocument(t *testing.T) {
	rows := []model.TableRow{
		{Level: 1, Path: model.TablePath{"group"}, Navlink: model.Navlink{Title: "Group"}},
		{Level: 2, Path: model.TablePath{"group", "child"}, Navlink: model.Navlink{Title: "Child", Link: "https://discourse.example.com/t/1"}},
	}
	metas, err := Plan(rows, "index content")
	require.NoError(t, err)

	var docPath string
	for _, m := range metas {
		if m.Kind == KindDocument {
			docPath = m.Path
		}
	}
	assert.Equal(t, "group/child.md", docPath)
}

func TestPlanRejectsInvalidLevelJump(t *testing.T) {
	rows := []model.TableRow{
		row(1, "one", "https://discourse.example.com/t/1"),
		row(3, "one-two", "https://discourse.example.com/t/2"),
	}
	_, err := Plan(rows, "index content")
	assert.Error(t, err)
}

func TestPlanRejectsZeroLevel(t *testing.T) {
	rows := []model.TableRow{row(0, "one", "https://discourse.example.com/t/1")}
	_, err := Plan(rows, "index content")
	assert.Error(t, err)
}

type fakeDiscourse struct {
	content map[string]string
}

func (f fakeDiscourse) Host() string { return "https://discourse.example.com" }
func (f fakeDiscourse) RetrieveTopic(_ context.Context, url string) (string, error) {
	return f.content[url], nil
}
func (f fakeDiscourse) CreateTopic(context.Context, string, string) (string, error) { return "", nil }
func (f fakeDiscourse) UpdateTopic(context.Context, string, string) error           { return nil }
func (f fakeDiscourse) DeleteTopic(context.Context, string) error                   { return nil }
func (f fakeDiscourse) CheckPermissions(context.Context, string) error              { return nil }

func TestRunWritesDocumentsGitkeepsAndIndex(t *testing.T) {
	discourse := fakeDiscourse{content: map[string]string{"https://discourse.example.com/t/1": "hello"}}
	metas, err := Plan([]model.TableRow{
		{Level: 1, Path: model.TablePath{"empty"}, Navlink: model.Navlink{Title: "Empty"}},
		row(1, "one", "https://discourse.example.com/t/1"),
	}, "index content")
	require.NoError(t, err)

	staged := hostclient.NewStagedTree()
	reports := Run(context.Background(), metas, discourse, "index content", staged)

	for _, r := range reports {
		assert.Equal(t, model.ResultSuccess, r.Result)
	}
	files := staged.Files()
	assert.Contains(t, files, "index.md")
	assert.Contains(t, files, "one.md")
	assert.Contains(t, files, "empty/.gitkeep")
}

func TestOpenPullRequestNoneWhenNothingStaged(t *testing.T) {
	staged := hostclient.NewStagedTree()
	outputs, err := OpenPullRequest(context.Background(), nil, nil, staged, "main", "my-charm")
	require.NoError(t, err)
	assert.Equal(t, model.PullRequestNone, outputs.Action)
}
