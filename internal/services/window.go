/* Copyright (c) 2025 Hamed Shams <https://hamedshams.com>
 * SPDX-License-Identifier: BSD-3-Clause */
package services

import (
	"fmt"
	"time"

	"github.com/sakarnDev/jira-worklog/internal/domain"
)

const dateLayout = "2006-01-02"

// ResolveWindow turns optional calendar-date strings into a day-aligned,
// half-open window in now's location. Absent values default to today; a
// single-day request covers [day 00:00, day+1 00:00). An end date earlier
// than the start is constructed literally and yields an empty result window.
func ResolveWindow(startDate, endDate string, now time.Time) (domain.TimeWindow, error) {
	loc := now.Location()
	today := now.Format(dateLayout)
	if startDate == "" {
		startDate = today
	}
	if endDate == "" {
		endDate = today
	}
	s, err := time.ParseInLocation(dateLayout, startDate, loc)
	if err != nil {
		return domain.TimeWindow{}, fmt.Errorf("invalid start date %q", startDate)
	}
	e, err := time.ParseInLocation(dateLayout, endDate, loc)
	if err != nil {
		return domain.TimeWindow{}, fmt.Errorf("invalid end date %q", endDate)
	}
	start := time.Date(s.Year(), s.Month(), s.Day(), 0, 0, 0, 0, loc)
	endEx := time.Date(e.Year(), e.Month(), e.Day(), 0, 0, 0, 0, loc).AddDate(0, 0, 1)
	return domain.TimeWindow{
		StartDate: start.Format(dateLayout),
		EndDate:   endEx.Format(dateLayout),
		StartMs:   start.UnixMilli(),
		EndMs:     endEx.UnixMilli(),
	}, nil
}
