/* Copyright (c) 2025 Hamed Shams <https://hamedshams.com>
 * SPDX-License-Identifier: BSD-3-Clause */
package services

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/sakarnDev/jira-worklog/internal/adapters/jira"
	"github.com/sakarnDev/jira-worklog/internal/config"
	"github.com/sakarnDev/jira-worklog/internal/domain"
)

type JiraClient interface {
	SearchUsers(ctx context.Context, query string, max int) ([]jira.User, error)
	SearchIssues(ctx context.Context, jql string, max int, pageToken string) (*jira.SearchResult, error)
	IssueWorklogs(ctx context.Context, key string, startedAfter, startedBefore int64, startAt, max int) (*jira.WorklogList, error)
}

type Service struct {
	cfg  config.Config
	log  zerolog.Logger
	jira JiraClient
	ids  *IdentityCache
}

func New(cfg config.Config, log zerolog.Logger, jc JiraClient, ids *IdentityCache) *Service {
	if ids == nil {
		ids = NewIdentityCache(cfg.IdentityCacheTTL)
	}
	return &Service{cfg: cfg, log: log, jira: jc, ids: ids}
}

// rawEntry carries a fetched worklog through normalization with its issue and
// unparsed comment attached.
type rawEntry struct {
	issue   domain.IssueRef
	started time.Time
	seconds int
	comment json.RawMessage
}

// AggregateWorklogs runs the whole pipeline for one request: resolve the
// identity (when an email is given), locate touched issues, fetch their
// worklogs with bounded parallelism, then normalize and total. An empty email
// aggregates for the authenticated Jira user via currentUser().
func (s *Service) AggregateWorklogs(ctx context.Context, email string, win domain.TimeWindow) (*domain.AggregateResult, error) {
	accountID := ""
	if email != "" {
		id, err := s.ResolveAccountID(ctx, email)
		if err != nil {
			return nil, err
		}
		accountID = id
	}
	issues, err := s.locateIssues(ctx, accountID, win)
	if err != nil {
		return nil, err
	}
	raw, err := s.fetchWorklogs(ctx, issues, win, accountID)
	if err != nil {
		return nil, err
	}
	res := aggregate(email, win, raw)
	s.log.Info().Str("email", email).Str("start", win.StartDate).Str("end", win.EndDate).
		Int("issues", len(issues)).Int("entries", len(res.Entries)).Int("total_seconds", res.TotalSeconds).
		Msg("worklog aggregation done")
	return res, nil
}

func worklogJQL(accountID string, win domain.TimeWindow) string {
	author := "worklogAuthor = currentUser()"
	if accountID != "" {
		author = fmt.Sprintf("worklogAuthor in (%q)", accountID)
	}
	return fmt.Sprintf("%s AND worklogDate >= %q AND worklogDate < %q", author, win.StartDate, win.EndDate)
}

// locateIssues pages through the JQL search until no continuation token is
// returned, keeping discovery order. Zero results is not an error.
func (s *Service) locateIssues(ctx context.Context, accountID string, win domain.TimeWindow) ([]domain.IssueRef, error) {
	jql := worklogJQL(accountID, win)
	var out []domain.IssueRef
	token := ""
	for {
		page, err := s.jira.SearchIssues(ctx, jql, 100, token)
		if err != nil {
			return nil, err
		}
		for _, is := range page.Issues {
			out = append(out, domain.IssueRef{Key: is.Key, Summary: is.Fields.Summary})
		}
		if page.NextPageToken == "" {
			break
		}
		token = page.NextPageToken
	}
	return out, nil
}

type fetchResult struct {
	entries []rawEntry
	err     error
}

// fetchWorklogs fans out over the issues with a bounded worker pool. The jobs
// channel distributes each issue exactly once; results merge after the pool
// drains. Any single fetch failure fails the whole aggregation.
func (s *Service) fetchWorklogs(ctx context.Context, issues []domain.IssueRef, win domain.TimeWindow, accountID string) ([]rawEntry, error) {
	if len(issues) == 0 {
		return nil, nil
	}
	workerCount := s.cfg.WorkersJira
	if workerCount <= 0 {
		workerCount = 6
	}
	if workerCount > len(issues) {
		workerCount = len(issues)
	}
	jobs := make(chan domain.IssueRef)
	results := make(chan fetchResult, len(issues))
	var wg sync.WaitGroup
	for w := 0; w < workerCount; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for ref := range jobs {
				entries, err := s.fetchIssueWorklogs(ctx, ref, win, accountID)
				results <- fetchResult{entries: entries, err: err}
			}
		}()
	}
	for _, ref := range issues {
		jobs <- ref
	}
	close(jobs)
	wg.Wait()
	close(results)

	var merged []rawEntry
	var firstErr error
	for r := range results {
		if r.err != nil {
			if firstErr == nil {
				firstErr = r.err
			}
			continue
		}
		merged = append(merged, r.entries...)
	}
	if firstErr != nil {
		return nil, firstErr
	}
	return merged, nil
}

// fetchIssueWorklogs pages one issue's worklogs. The window bounds are passed
// upstream as a courtesy filter only; entries are re-validated by the
// normalizer. When accountID is known, entries by other authors are dropped.
func (s *Service) fetchIssueWorklogs(ctx context.Context, ref domain.IssueRef, win domain.TimeWindow, accountID string) ([]rawEntry, error) {
	var out []rawEntry
	startAt := 0
	for {
		page, err := s.jira.IssueWorklogs(ctx, ref.Key, win.StartMs, win.EndMs, startAt, 100)
		if err != nil {
			return nil, err
		}
		for _, w := range page.Worklogs {
			if accountID != "" && w.Author.AccountID != accountID {
				continue
			}
			started := parseJiraTime(w.Started)
			if started == nil {
				s.log.Warn().Str("issue", ref.Key).Str("started", w.Started).Msg("worklog with unparsable start skipped")
				continue
			}
			out = append(out, rawEntry{issue: ref, started: *started, seconds: w.TimeSpentSeconds, comment: w.Comment})
		}
		if len(page.Worklogs) == 0 || page.Total == 0 {
			break
		}
		next := page.StartAt + page.MaxResults
		if next <= startAt || next >= page.Total {
			break
		}
		startAt = next
	}
	return out, nil
}

func parseJiraTime(s string) *time.Time {
	if s == "" {
		return nil
	}
	layouts := []string{"2006-01-02T15:04:05.000-0700", "2006-01-02T15:04:05-0700", time.RFC3339Nano, time.RFC3339}
	for _, l := range layouts {
		if t, err := time.Parse(l, s); err == nil {
			return &t
		}
	}
	return nil
}
