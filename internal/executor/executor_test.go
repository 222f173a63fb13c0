package executor

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/canonical/discourse-gatekeeper/internal/discourseclient"
	"github.com/canonical/discourse-gatekeeper/internal/model"
)

type fakeDiscourse struct {
	host    string
	topics  map[string]string
	nextURL string
}

func (f *fakeDiscourse) Host() string { return f.host }
func (f *fakeDiscourse) RetrieveTopic(context.Context, string) (string, error)   { return "", nil }
func (f *fakeDiscourse) CreateTopic(_ context.Context, title, content string) (string, error) {
	url := f.nextURL
	if url == "" {
		url = "https://discourse.example.com/t/" + title
	}
	f.topics[url] = content
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

var _ discourseclient.Client = (*fakeDiscourse)(nil)

func TestExecuteCreatePage(t *testing.T) {
	discourse := &fakeDiscourse{host: "https://discourse.example.com", topics: map[string]string{}}
	exec := New(discourse, Options{DeleteTopics: true})

	actions := []model.Action{
		{Kind: model.KindCreate, Role: model.RolePage, Path: model.TablePath{"one"}, NavlinkTitle: "One", Content: "hello"},
	}
	reports := exec.Run(context.Background(), actions)
	require.Len(t, reports, 1)
	assert.Equal(t, model.ResultSuccess, reports[0].Result)
	url, ok := exec.URL(model.TablePath{"one"})
	require.True(t, ok)
	assert.Equal(t, "hello", discourse.topics[url])
}

func TestExecuteDryRunSkipsMutations(t *testing.T) {
	discourse := &fakeDiscourse{host: "https://discourse.example.com", topics: map[string]string{}}
	exec := New(discourse, Options{DryRun: true, DeleteTopics: true})

	actions := []model.Action{
		{Kind: model.KindCreate, Role: model.RolePage, Path: model.TablePath{"one"}, NavlinkTitle: "One", Content: "hello"},
	}
	reports := exec.Run(context.Background(), actions)
	require.Len(t, reports, 1)
	assert.Equal(t, model.ResultSkip, reports[0].Result)
	assert.Equal(t, DryRunReason, reports[0].Reason)
	assert.Equal(t, DryRunNavlinkLink, reports[0].Location)
	assert.Empty(t, discourse.topics)
}

func TestExecuteDeleteSkippedWhenDisabled(t *testing.T) {
	discourse := &fakeDiscourse{host: "https://discourse.example.com", topics: map[string]string{"https://discourse.example.com/t/1": "content"}}
	exec := New(discourse, Options{DeleteTopics: false})

	actions := []model.Action{
		{Kind: model.KindDelete, Role: model.RolePage, Path: model.TablePath{"one"}, Navlink: model.Navlink{Title: "One", Link: "https://discourse.example.com/t/1"}},
	}
	reports := exec.Run(context.Background(), actions)
	require.Len(t, reports, 1)
	assert.Equal(t, model.ResultSkip, reports[0].Result)
	assert.Equal(t, NotDeleteReason, reports[0].Reason)
	assert.Contains(t, discourse.topics, "https://discourse.example.com/t/1")
}

func TestExecuteUpdatePageMergesAndUploads(t *testing.T) {
	base := "a\nb\nc\n"
	discourse := &fakeDiscourse{host: "https://discourse.example.com", topics: map[string]string{
		"https://discourse.example.com/t/1": "a\nSERVER\nc\n",
	}}
	exec := New(discourse, Options{DeleteTopics: true})

	actions := []model.Action{
		{
			Kind: model.KindUpdate, Role: model.RolePage, Path: model.TablePath{"one"},
			NavlinkChange: &model.NavlinkChange{Old: model.Navlink{Link: "https://discourse.example.com/t/1"}},
			ContentChange: &model.ContentChange{Base: &base, Server: "a\nSERVER\nc\n", Local: "a\nb\nLOCAL\n"},
		},
	}
	reports := exec.Run(context.Background(), actions)
	require.Len(t, reports, 1)
	assert.Equal(t, model.ResultSuccess, reports[0].Result)
	assert.Contains(t, discourse.topics["https://discourse.example.com/t/1"], "SERVER")
	assert.Contains(t, discourse.topics["https://discourse.example.com/t/1"], "LOCAL")
}

func TestExecuteOrdersDeletesAfterCreatesAndUpdates(t *testing.T) {
	discourse := &fakeDiscourse{host: "https://discourse.example.com", topics: map[string]string{
		"https://discourse.example.com/t/old": "old",
	}}
	exec := New(discourse, Options{DeleteTopics: true})

	actions := []model.Action{
		{Kind: model.KindDelete, Role: model.RolePage, Path: model.TablePath{"old"}, Navlink: model.Navlink{Link: "https://discourse.example.com/t/old"}},
		{Kind: model.KindCreate, Role: model.RolePage, Path: model.TablePath{"new"}, NavlinkTitle: "New", Content: "new content"},
	}
	reports := exec.Run(context.Background(), actions)
	require.Len(t, reports, 2)
	assert.Equal(t, model.ResultSuccess, reports[0].Result) // create ran first
	assert.Equal(t, model.ResultSuccess, reports[1].Result) // delete ran second
	assert.NotContains(t, discourse.topics, "https://discourse.example.com/t/old")
}
