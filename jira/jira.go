// Package jira is a small client for the JIRA REST API covering what a
// release needs: the project's versions and the issues fixed in one of them.
package jira

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"

	hverrors "github.com/hibernate/hvrelease/errors"
)

// DefaultPageSize is the number of issues requested per search page.
const DefaultPageSize = 100

// Version is a project version as returned by JIRA.
type Version struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Archived    bool   `json:"archived"`
	Released    bool   `json:"released"`
	ReleaseDate string `json:"releaseDate"`
}

// Issue is the part of a JIRA issue rendered into the changelog.
type Issue struct {
	Key        string
	Type       string
	Components []string
	Summary    string
}

type searchResponse struct {
	StartAt    int `json:"startAt"`
	MaxResults int `json:"maxResults"`
	Total      int `json:"total"`
	Issues     []struct {
		Key    string `json:"key"`
		Fields struct {
			IssueType struct {
				Name string `json:"name"`
			} `json:"issuetype"`
			Components []struct {
				Name string `json:"name"`
			} `json:"components"`
			Summary string `json:"summary"`
		} `json:"fields"`
	} `json:"issues"`
}

// Option configures a Client.
type Option func(*Client)

// WithLogger sets the logger. Retry attempts are logged through it.
// If logger is nil, logging is disabled.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithRetries sets how often a failed request is retried.
func WithRetries(n int) Option {
	return func(c *Client) {
		c.http.RetryMax = n
	}
}

// WithRetryWait sets the minimum and maximum back-off between retries.
func WithRetryWait(minWait, maxWait time.Duration) Option {
	return func(c *Client) {
		c.http.RetryWaitMin = minWait
		c.http.RetryWaitMax = maxWait
	}
}

// WithPageSize sets the issue search page size.
func WithPageSize(n int) Option {
	return func(c *Client) {
		if n > 0 {
			c.pageSize = n
		}
	}
}

// Client talks to one JIRA project.
type Client struct {
	baseURL  *url.URL
	project  string
	http     *retryablehttp.Client
	logger   *slog.Logger
	pageSize int
}

// New creates a client for project on the JIRA instance at baseURL.
func New(baseURL, project string, opts ...Option) (*Client, error) {
	u, err := url.Parse(strings.TrimSuffix(baseURL, "/"))
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, hverrors.Newf(hverrors.CodeInvalidConfig, "invalid JIRA URL %q", baseURL)
	}
	if project == "" {
		return nil, hverrors.New(hverrors.CodeInvalidConfig, "JIRA project key is required")
	}

	httpClient := retryablehttp.NewClient()
	httpClient.RetryWaitMin = 1 * time.Second
	httpClient.RetryWaitMax = 10 * time.Second
	httpClient.RetryMax = 3
	httpClient.Logger = nil

	c := &Client{
		baseURL:  u,
		project:  project,
		http:     httpClient,
		pageSize: DefaultPageSize,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger != nil {
		c.http.Logger = c.logger
	}

	return c, nil
}

// Versions lists every version of the project.
func (c *Client) Versions(ctx context.Context) ([]Version, error) {
	var versions []Version
	if err := c.get(ctx, "/rest/api/latest/project/"+url.PathEscape(c.project)+"/versions", nil, &versions); err != nil {
		return nil, err
	}
	return versions, nil
}

// Release returns the version called name. It fails with NOT_FOUND when the
// version does not exist and with INVALID_CONFIGURATION when it has not been
// released yet.
func (c *Client) Release(ctx context.Context, name string) (*Version, error) {
	versions, err := c.Versions(ctx)
	if err != nil {
		return nil, err
	}
	for i := range versions {
		v := versions[i]
		if v.Name != name {
			continue
		}
		if !v.Released {
			return nil, hverrors.Newf(hverrors.CodeInvalidConfig, "version %s is not yet released in JIRA", name)
		}
		return &v, nil
	}
	return nil, hverrors.Newf(hverrors.CodeNotFound, "version %s does not exist in JIRA", name).
		WithContext("project", c.project)
}

// Issues returns the issues fixed in version, ordered by issue type.
func (c *Client) Issues(ctx context.Context, version string) ([]Issue, error) {
	jql := fmt.Sprintf("project = %s AND fixVersion = %s ORDER BY issuetype ASC", c.project, strconv.Quote(version))

	var issues []Issue
	for startAt := 0; ; {
		q := url.Values{}
		q.Set("jql", jql)
		q.Set("startAt", strconv.Itoa(startAt))
		q.Set("maxResults", strconv.Itoa(c.pageSize))
		q.Set("fields", "issuetype,components,summary")

		var page searchResponse
		if err := c.get(ctx, "/rest/api/2/search", q, &page); err != nil {
			return nil, err
		}

		for _, raw := range page.Issues {
			issue := Issue{
				Key:     raw.Key,
				Type:    raw.Fields.IssueType.Name,
				Summary: raw.Fields.Summary,
			}
			for _, comp := range raw.Fields.Components {
				issue.Components = append(issue.Components, comp.Name)
			}
			issues = append(issues, issue)
		}

		startAt += len(page.Issues)
		if len(page.Issues) == 0 || startAt >= page.Total {
			break
		}
	}

	if c.logger != nil {
		c.logger.Debug("fetched issues", "version", version, "count", len(issues))
	}
	return issues, nil
}

func (c *Client) get(ctx context.Context, p string, query url.Values, out any) error {
	u := *c.baseURL
	u.Path = strings.TrimSuffix(u.Path, "/") + p
	u.RawQuery = query.Encode()

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return hverrors.Wrap(err, hverrors.CodeInternal, "failed to create JIRA request")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return hverrors.WrapWithContext(err, hverrors.CodeNetwork,
			"JIRA request failed", map[string]interface{}{"url": u.Redacted()})
	}
	defer resp.Body.Close()

	switch code := resp.StatusCode; {
	case code == http.StatusNotFound:
		return hverrors.Newf(hverrors.CodeNotFound, "JIRA resource %s not found", p)
	case code != http.StatusOK:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return hverrors.Newf(hverrors.CodeNetwork, "JIRA returned %s", resp.Status).
			WithContext("url", u.Redacted()).
			WithContext("body", strings.TrimSpace(string(body)))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return hverrors.WrapWithContext(err, hverrors.CodeParseFailed,
			"malformed JIRA response", map[string]interface{}{"url": u.Redacted()})
	}
	return nil
}
