/* Copyright (c) 2025 Hamed Shams <https://hamedshams.com>
 * SPDX-License-Identifier: BSD-3-Clause */
package domain

import "time"

// TimeWindow is a half-open, day-aligned aggregation range. EndDate and EndMs
// are the exclusive bound: the midnight after the last requested day.
type TimeWindow struct {
	StartDate string // YYYY-MM-DD
	EndDate   string // YYYY-MM-DD, exclusive
	StartMs   int64
	EndMs     int64
}

// Days returns the number of calendar days the window covers.
func (w TimeWindow) Days() int {
	return int((w.EndMs - w.StartMs) / (24 * 60 * 60 * 1000))
}

type IssueRef struct {
	Key     string
	Summary string
}

type WorklogEntry struct {
	IssueKey         string  `json:"issueKey"`
	Summary          string  `json:"summary"`
	TimeSpentSeconds int     `json:"timeSpentSeconds"`
	StartedAtMs      int64   `json:"startedAtMs"`
	EndedAtMs        int64   `json:"endedAtMs"`
	Comment          *string `json:"comment"`
}

// AggregateResult is the final pipeline output for one request.
// TotalSeconds is always the sum over Entries.
type AggregateResult struct {
	UserEmail    string
	StartDate    string
	EndDate      string // exclusive, mirrors the window
	TotalSeconds int
	Entries      []WorklogEntry
}

type Session struct {
	ID        string
	Email     string
	CreatedAt time.Time
	ExpiresAt time.Time
}
