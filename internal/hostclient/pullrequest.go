// Pull-request management talks to the forge's REST API directly over
// net/http: none of the example repos in this corpus pull in a GitHub/GitLab
// SDK, so this is the one ambient surface built on the standard library
// (recorded in DESIGN.md) rather than an ecosystem client.
package hostclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/canonical/discourse-gatekeeper/internal/errors"
	"github.com/canonical/discourse-gatekeeper/internal/model"
)

// PullRequestClient opens, updates and closes the single migration pull
// request for a repository.
type PullRequestClient struct {
	BaseURL string
	Token   string
	HTTP    *http.Client
}

type prPayload struct {
	Title string `json:"title"`
	Body  string `json:"body"`
	Head  string `json:"head"`
	Base  string `json:"base"`
	State string `json:"state,omitempty"`
}

type prResponse struct {
	Number  int    `json:"number"`
	HTMLURL string `json:"html_url"`
	State   string `json:"state"`
}

// FindOpenPullRequest returns the URL of an existing open PR from head onto
// base, if any.
func (c *PullRequestClient) FindOpenPullRequest(ctx context.Context, head, base string) (string, bool, error) {
	url := fmt.Sprintf("%s/pulls?head=%s&base=%s&state=open", c.BaseURL, head, base)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", false, errors.WrapRepositoryClient("failed to build pull request lookup", err)
	}
	c.authorize(req)

	resp, err := c.http().Do(req)
	if err != nil {
		return "", false, errors.WrapRepositoryClient("failed to look up pull request", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", false, errors.WrapRepositoryClient(fmt.Sprintf("pull request lookup failed with status %d", resp.StatusCode), nil)
	}

	var results []prResponse
	if err := json.NewDecoder(resp.Body).Decode(&results); err != nil {
		return "", false, errors.WrapRepositoryClient("failed to decode pull request lookup response", err)
	}
	if len(results) == 0 {
		return "", false, nil
	}
	return results[0].HTMLURL, true, nil
}

// OpenOrUpdate opens a new pull request from head onto base, or updates the
// body of an existing one, returning the action taken and the PR's URL.
func (c *PullRequestClient) OpenOrUpdate(ctx context.Context, head, base, title, body string) (model.PullRequestAction, string, error) {
	existingURL, found, err := c.FindOpenPullRequest(ctx, head, base)
	if err != nil {
		return model.PullRequestNone, "", err
	}

	payload := prPayload{Title: title, Body: body, Head: head, Base: base}
	buf, err := json.Marshal(payload)
	if err != nil {
		return model.PullRequestNone, "", errors.WrapRepositoryClient("failed to encode pull request payload", err)
	}

	var url, method string
	if found {
		url = existingURL
		method = http.MethodPatch
	} else {
		url = c.BaseURL + "/pulls"
		method = http.MethodPost
	}

	req, err := http.NewRequestWithContext(ctx, method, url, bytes.NewReader(buf))
	if err != nil {
		return model.PullRequestNone, "", errors.WrapRepositoryClient("failed to build pull request", err)
	}
	req.Header.Set("Content-Type", "application/json")
	c.authorize(req)

	resp, err := c.http().Do(req)
	if err != nil {
		return model.PullRequestNone, "", errors.WrapRepositoryClient("failed to open pull request", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return model.PullRequestNone, "", errors.WrapRepositoryClient(fmt.Sprintf("pull request request failed with status %d", resp.StatusCode), nil)
	}

	var result prResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return model.PullRequestNone, "", errors.WrapRepositoryClient("failed to decode pull request response", err)
	}

	if found {
		return model.PullRequestUpdated, result.HTMLURL, nil
	}
	return model.PullRequestOpened, result.HTMLURL, nil
}

// Close closes the pull request at url.
func (c *PullRequestClient) Close(ctx context.Context, url string) error {
	payload := prPayload{State: "closed"}
	buf, err := json.Marshal(payload)
	if err != nil {
		return errors.WrapRepositoryClient("failed to encode pull request close payload", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPatch, url, bytes.NewReader(buf))
	if err != nil {
		return errors.WrapRepositoryClient("failed to build pull request close", err)
	}
	req.Header.Set("Content-Type", "application/json")
	c.authorize(req)

	resp, err := c.http().Do(req)
	if err != nil {
		return errors.WrapRepositoryClient("failed to close pull request", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return errors.WrapRepositoryClient(fmt.Sprintf("pull request close failed with status %d", resp.StatusCode), nil)
	}
	return nil
}

func (c *PullRequestClient) authorize(req *http.Request) {
	if c.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.Token)
	}
}

func (c *PullRequestClient) http() *http.Client {
	if c.HTTP != nil {
		return c.HTTP
	}
	return http.DefaultClient
}
