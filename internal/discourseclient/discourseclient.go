// Package discourseclient talks to a Discourse instance's REST API: topic
// retrieve/create/update/delete and a permission probe, plus the Client
// interface the reconciliation engine depends on so tests can substitute a
// fake.
package discourseclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/canonical/discourse-gatekeeper/internal/errors"
	"github.com/canonical/discourse-gatekeeper/pkg/buildinfo"
)

// Client is the surface the core needs from Discourse. Host is the
// configured server hostname (scheme+host, no trailing slash), used by
// TableRow.IsExternal and navtable rendering to classify links.
type Client interface {
	Host() string

	// RetrieveTopic fetches the raw markdown content of the topic at url.
	RetrieveTopic(ctx context.Context, url string) (string, error)

	// CreateTopic creates a new topic with the given title and content,
	// returning its canonical url.
	CreateTopic(ctx context.Context, title, content string) (url string, err error)

	// UpdateTopic replaces the content of the topic at url.
	UpdateTopic(ctx context.Context, url, content string) error

	// DeleteTopic removes the topic at url.
	DeleteTopic(ctx context.Context, url string) error

	// CheckPermissions verifies the configured credentials can write to url.
	CheckPermissions(ctx context.Context, url string) error
}

// HTTPClient is the default Client implementation, talking to a Discourse
// instance's `/posts`/`/t` JSON API directly over net/http (no first-party
// Discourse Go SDK exists to wrap instead).
type HTTPClient struct {
	BaseURL  string
	Category int
	APIKey   string
	APIUser  string
	HTTP     *http.Client
}

type topicResponse struct {
	ID      int    `json:"id"`
	Slug    string `json:"slug"`
	PostRaw string `json:"post_stream_raw"`
}

type postResponse struct {
	ID      int `json:"id"`
	TopicID int `json:"topic_id"`
}

// Host returns the configured base URL, used to classify links as internal
// vs. external.
func (c *HTTPClient) Host() string { return c.BaseURL }

func (c *HTTPClient) http() *http.Client {
	if c.HTTP != nil {
		return c.HTTP
	}
	return http.DefaultClient
}

func (c *HTTPClient) authorize(req *http.Request) {
	req.Header.Set("Api-Key", c.APIKey)
	req.Header.Set("Api-Username", c.APIUser)
	req.Header.Set("User-Agent", buildinfo.UserAgent())
}

func topicIDFromURL(url string) (string, error) {
	parts := strings.Split(strings.TrimSuffix(url, "/"), "/")
	if len(parts) == 0 {
		return "", errors.WrapServer("malformed topic url "+url, nil)
	}
	last := parts[len(parts)-1]
	if _, err := strconv.Atoi(last); err != nil {
		return "", errors.WrapServer("malformed topic url "+url, err)
	}
	return last, nil
}

// RetrieveTopic fetches the raw markdown of a topic's first post.
func (c *HTTPClient) RetrieveTopic(ctx context.Context, url string) (string, error) {
	topicID, err := topicIDFromURL(url)
	if err != nil {
		return "", err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fmt.Sprintf("%s/t/%s.json", c.BaseURL, topicID), nil)
	if err != nil {
		return "", errors.WrapServer("failed to build topic retrieve request", err)
	}
	c.authorize(req)

	resp, err := c.http().Do(req)
	if err != nil {
		return "", errors.WrapServer("failed to retrieve topic "+url, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", errors.WrapServer(fmt.Sprintf("retrieve topic %s failed with status %d", url, resp.StatusCode), nil)
	}

	var topic topicResponse
	if err := json.NewDecoder(resp.Body).Decode(&topic); err != nil {
		return "", errors.WrapServer("failed to decode topic response for "+url, err)
	}
	return topic.PostRaw, nil
}

// CreateTopic creates a topic in the configured category and returns its
// canonical URL.
func (c *HTTPClient) CreateTopic(ctx context.Context, title, content string) (string, error) {
	payload := map[string]any{"title": title, "raw": content, "category": c.Category}
	buf, err := json.Marshal(payload)
	if err != nil {
		return "", errors.WrapServer("failed to encode topic create payload", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/posts.json", bytes.NewReader(buf))
	if err != nil {
		return "", errors.WrapServer("failed to build topic create request", err)
	}
	req.Header.Set("Content-Type", "application/json")
	c.authorize(req)

	resp, err := c.http().Do(req)
	if err != nil {
		return "", errors.WrapServer("failed to create topic "+title, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return "", errors.WrapServer(fmt.Sprintf("create topic %q failed with status %d", title, resp.StatusCode), nil)
	}

	var post postResponse
	if err := json.NewDecoder(resp.Body).Decode(&post); err != nil {
		return "", errors.WrapServer("failed to decode topic create response for "+title, err)
	}
	return fmt.Sprintf("%s/t/%d", c.BaseURL, post.TopicID), nil
}

// UpdateTopic replaces the content of the topic's first post.
func (c *HTTPClient) UpdateTopic(ctx context.Context, url, content string) error {
	topicID, err := topicIDFromURL(url)
	if err != nil {
		return err
	}
	payload := map[string]any{"post": map[string]any{"raw": content}}
	buf, err := json.Marshal(payload)
	if err != nil {
		return errors.WrapServer("failed to encode topic update payload", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, fmt.Sprintf("%s/t/%s.json", c.BaseURL, topicID), bytes.NewReader(buf))
	if err != nil {
		return errors.WrapServer("failed to build topic update request", err)
	}
	req.Header.Set("Content-Type", "application/json")
	c.authorize(req)

	resp, err := c.http().Do(req)
	if err != nil {
		return errors.WrapServer("failed to update topic "+url, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return errors.WrapServer(fmt.Sprintf("update topic %s failed with status %d", url, resp.StatusCode), nil)
	}
	return nil
}

// DeleteTopic removes a topic.
func (c *HTTPClient) DeleteTopic(ctx context.Context, url string) error {
	topicID, err := topicIDFromURL(url)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, fmt.Sprintf("%s/t/%s.json", c.BaseURL, topicID), nil)
	if err != nil {
		return errors.WrapServer("failed to build topic delete request", err)
	}
	c.authorize(req)

	resp, err := c.http().Do(req)
	if err != nil {
		return errors.WrapServer("failed to delete topic "+url, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return errors.WrapServer(fmt.Sprintf("delete topic %s failed with status %d", url, resp.StatusCode), nil)
	}
	return nil
}

// CheckPermissions probes the configured API credentials against url by
// retrieving the topic: a 401 or 403 response is reported as a
// PagePermissionError. The probe is a read; no write is attempted.
func (c *HTTPClient) CheckPermissions(ctx context.Context, url string) error {
	topicID, err := topicIDFromURL(url)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fmt.Sprintf("%s/t/%s.json", c.BaseURL, topicID), nil)
	if err != nil {
		return errors.WrapServer("failed to build permission check request", err)
	}
	c.authorize(req)

	resp, err := c.http().Do(req)
	if err != nil {
		return errors.WrapServer("failed to check permissions for "+url, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusForbidden || resp.StatusCode == http.StatusUnauthorized {
		return &errors.PagePermissionError{URL: url}
	}
	if resp.StatusCode >= 300 {
		return errors.WrapServer(fmt.Sprintf("permission check for %s failed with status %d", url, resp.StatusCode), nil)
	}
	return nil
}

var _ Client = (*HTTPClient)(nil)
