package discourseclient

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRetrieveTopic(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/t/5.json", r.URL.Path)
		assert.Equal(t, "key", r.Header.Get("Api-Key"))
		_ = json.NewEncoder(w).Encode(topicResponse{ID: 5, PostRaw: "# Hello"})
	}))
	defer server.Close()

	client := &HTTPClient{BaseURL: server.URL, APIKey: "key", APIUser: "bot"}
	content, err := client.RetrieveTopic(context.Background(), server.URL+"/t/5")
	require.NoError(t, err)
	assert.Equal(t, "# Hello", content)
}

func TestCreateTopic(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/posts.json", r.URL.Path)
		_ = json.NewEncoder(w).Encode(postResponse{ID: 1, TopicID: 42})
	}))
	defer server.Close()

	client := &HTTPClient{BaseURL: server.URL, APIKey: "key", APIUser: "bot"}
	url, err := client.CreateTopic(context.Background(), "Title", "content")
	require.NoError(t, err)
	assert.Equal(t, server.URL+"/t/42", url)
}

func TestUpdateTopicFailureSurfacesStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	client := &HTTPClient{BaseURL: server.URL}
	err := client.UpdateTopic(context.Background(), server.URL+"/t/1", "content")
	require.Error(t, err)
}

func TestCheckPermissionsForbidden(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer server.Close()

	client := &HTTPClient{BaseURL: server.URL}
	err := client.CheckPermissions(context.Background(), server.URL+"/t/1")
	require.Error(t, err)
}
