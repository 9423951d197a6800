/* Copyright (c) 2025 Hamed Shams <https://hamedshams.com>
 * SPDX-License-Identifier: BSD-3-Clause */
package jira

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/sakarnDev/jira-worklog/internal/config"
	"github.com/sakarnDev/jira-worklog/internal/metrics"
)

// ErrNotConfigured reports a missing base URL or credentials. The gateway maps
// it to a 500 instead of an upstream failure.
var ErrNotConfigured = errors.New("jira: base url or credentials not configured")

type Client struct {
	baseURL  string
	email    string
	apiToken string
	pat      string
	http     *http.Client
	log      zerolog.Logger
}

func NewClient(cfg config.Config, log zerolog.Logger) *Client {
	return &Client{
		baseURL:  cfg.JiraBaseURL,
		email:    cfg.JiraEmail,
		apiToken: cfg.JiraAPIToken,
		pat:      cfg.JiraPAT,
		http:     &http.Client{Timeout: cfg.HTTPTimeout},
		log:      log,
	}
}

type User struct {
	AccountID    string `json:"accountId"`
	EmailAddress string `json:"emailAddress"`
	DisplayName  string `json:"displayName"`
}

type IssueFields struct {
	Summary string `json:"summary"`
}

type Issue struct {
	ID     string      `json:"id"`
	Key    string      `json:"key"`
	Fields IssueFields `json:"fields"`
}

type SearchResult struct {
	Issues        []Issue `json:"issues"`
	NextPageToken string  `json:"nextPageToken"`
}

type WorklogAuthor struct {
	AccountID   string `json:"accountId"`
	DisplayName string `json:"displayName"`
}

type Worklog struct {
	ID               string          `json:"id"`
	Author           WorklogAuthor   `json:"author"`
	Started          string          `json:"started"`
	TimeSpentSeconds int             `json:"timeSpentSeconds"`
	Comment          json.RawMessage `json:"comment"`
}

type WorklogList struct {
	StartAt    int       `json:"startAt"`
	MaxResults int       `json:"maxResults"`
	Total      int       `json:"total"`
	Worklogs   []Worklog `json:"worklogs"`
}

func (c *Client) apiURL(path string, q url.Values) string {
	base := strings.TrimRight(c.baseURL, "/")
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	u := base + path
	if len(q) > 0 {
		u = u + "?" + q.Encode()
	}
	return u
}

func (c *Client) doJSON(ctx context.Context, endpoint, u string, out any) error {
	if c.baseURL == "" || (c.pat == "" && (c.email == "" || c.apiToken == "")) {
		return ErrNotConfigured
	}
	var lastErr error
	for attempt := 0; attempt < 3; attempt++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
		if err != nil {
			return err
		}
		req.Header.Set("Accept", "application/json")
		if c.pat != "" {
			req.Header.Set("Authorization", "Bearer "+c.pat)
		} else {
			req.SetBasicAuth(c.email, c.apiToken)
		}
		resp, err := c.http.Do(req)
		if err != nil {
			metrics.JiraRequests.WithLabelValues(endpoint, "error").Inc()
			lastErr = err
		} else {
			metrics.JiraRequests.WithLabelValues(endpoint, strconv.Itoa(resp.StatusCode)).Inc()
			if resp.StatusCode >= 300 {
				b, _ := io.ReadAll(resp.Body)
				resp.Body.Close()
				// retry on 429/5xx
				if resp.StatusCode == 429 || resp.StatusCode >= 500 {
					lastErr = fmt.Errorf("jira api status=%d body=%s", resp.StatusCode, strings.TrimSpace(string(b)))
				} else {
					return fmt.Errorf("jira api status=%d body=%s", resp.StatusCode, strings.TrimSpace(string(b)))
				}
			} else {
				err := json.NewDecoder(resp.Body).Decode(out)
				resp.Body.Close()
				if err != nil {
					return fmt.Errorf("jira: decode %s response: %w", endpoint, err)
				}
				return nil
			}
		}
		// backoff
		time.Sleep(time.Duration(300*(1<<attempt)) * time.Millisecond)
	}
	return lastErr
}

// SearchUsers queries the user picker by email or name fragment.
func (c *Client) SearchUsers(ctx context.Context, query string, max int) ([]User, error) {
	if query == "" {
		return nil, errors.New("jira: empty user query")
	}
	q := url.Values{}
	q.Set("query", query)
	if max > 0 {
		q.Set("maxResults", strconv.Itoa(max))
	}
	var out []User
	if err := c.doJSON(ctx, "user_search", c.apiURL("/rest/api/3/user/search", q), &out); err != nil {
		return nil, err
	}
	return out, nil
}

// SearchIssues runs one page of a JQL search. Pagination is driven by the
// returned nextPageToken; an empty token means the last page.
func (c *Client) SearchIssues(ctx context.Context, jql string, max int, pageToken string) (*SearchResult, error) {
	if jql == "" {
		return nil, errors.New("jira: empty jql")
	}
	q := url.Values{}
	q.Set("jql", jql)
	q.Set("fields", "summary")
	if max > 0 {
		q.Set("maxResults", strconv.Itoa(max))
	}
	if pageToken != "" {
		q.Set("nextPageToken", pageToken)
	}
	var out SearchResult
	if err := c.doJSON(ctx, "search", c.apiURL("/rest/api/3/search/jql", q), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// IssueWorklogs lists one page of an issue's worklogs. startedAfter and
// startedBefore are epoch millis hints applied server-side; callers still
// re-filter locally.
func (c *Client) IssueWorklogs(ctx context.Context, key string, startedAfter, startedBefore int64, startAt, max int) (*WorklogList, error) {
	if key == "" {
		return nil, errors.New("jira: empty issue key")
	}
	q := url.Values{}
	if startedAfter > 0 {
		q.Set("startedAfter", strconv.FormatInt(startedAfter, 10))
	}
	if startedBefore > 0 {
		q.Set("startedBefore", strconv.FormatInt(startedBefore, 10))
	}
	if startAt > 0 {
		q.Set("startAt", strconv.Itoa(startAt))
	}
	if max > 0 {
		q.Set("maxResults", strconv.Itoa(max))
	}
	var out WorklogList
	if err := c.doJSON(ctx, "worklog", c.apiURL("/rest/api/3/issue/"+url.PathEscape(key)+"/worklog", q), &out); err != nil {
		return nil, err
	}
	return &out, nil
}
