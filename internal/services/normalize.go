/* Copyright (c) 2025 Hamed Shams <https://hamedshams.com>
 * SPDX-License-Identifier: BSD-3-Clause */
package services

import (
	"encoding/json"
	"sort"
	"strings"

	"github.com/sakarnDev/jira-worklog/internal/domain"
)

// aggregate applies the authoritative window filter, recomputes end times,
// sorts chronologically (stable, ties keep fetch order) and totals the
// surviving entries. Upstream date filtering is advisory only; this is the
// correctness boundary.
func aggregate(email string, win domain.TimeWindow, raw []rawEntry) *domain.AggregateResult {
	entries := make([]domain.WorklogEntry, 0, len(raw))
	for _, r := range raw {
		startedMs := r.started.UnixMilli()
		if startedMs < win.StartMs || startedMs >= win.EndMs {
			continue
		}
		entries = append(entries, domain.WorklogEntry{
			IssueKey:         r.issue.Key,
			Summary:          r.issue.Summary,
			TimeSpentSeconds: r.seconds,
			StartedAtMs:      startedMs,
			EndedAtMs:        startedMs + int64(r.seconds)*1000,
			Comment:          commentText(r.comment),
		})
	}
	sort.SliceStable(entries, func(i, j int) bool { return entries[i].StartedAtMs < entries[j].StartedAtMs })
	total := 0
	for _, e := range entries {
		total += e.TimeSpentSeconds
	}
	return &domain.AggregateResult{
		UserEmail:    email,
		StartDate:    win.StartDate,
		EndDate:      win.EndDate,
		TotalSeconds: total,
		Entries:      entries,
	}
}

// commentText extracts plain text from a worklog comment, which may be absent,
// a plain JSON string (API v2) or a rich-document tree whose leaves carry
// "text" (API v3). Nothing extractable yields nil, never "".
func commentText(raw json.RawMessage) *string {
	if len(raw) == 0 {
		return nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		s = strings.TrimSpace(s)
		if s == "" {
			return nil
		}
		return &s
	}
	var node any
	if err := json.Unmarshal(raw, &node); err != nil {
		return nil
	}
	var parts []string
	collectText(node, &parts)
	out := strings.TrimSpace(strings.Join(parts, " "))
	if out == "" {
		return nil
	}
	return &out
}

func collectText(node any, parts *[]string) {
	switch n := node.(type) {
	case map[string]any:
		if t, ok := n["text"].(string); ok {
			if t = strings.TrimSpace(t); t != "" {
				*parts = append(*parts, t)
			}
		}
		if content, ok := n["content"].([]any); ok {
			for _, c := range content {
				collectText(c, parts)
			}
		}
	case []any:
		for _, c := range n {
			collectText(c, parts)
		}
	}
}
