// Copyright ©2024 Dan Kortschak. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package filter provides interval selection by calendar span and by
// CEL expression.
package filter

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/kortschak/t/timelog"
)

// Matcher is an interval selection predicate.
type Matcher interface {
	// Match returns whether iv is selected.
	// Open intervals end at now.
	Match(iv timelog.Interval, now time.Time) (bool, error)
}

// Intervals returns the intervals in ivs selected by all the matchers.
func Intervals(ivs []timelog.Interval, now time.Time, matchers ...Matcher) ([]timelog.Interval, error) {
	if len(matchers) == 0 {
		return ivs, nil
	}
	var sel []timelog.Interval
outer:
	for _, iv := range ivs {
		for _, m := range matchers {
			ok, err := m.Match(iv, now)
			if err != nil {
				return nil, err
			}
			if !ok {
				continue outer
			}
		}
		sel = append(sel, iv)
	}
	return sel, nil
}

// Span is a calendar year or month.
type Span struct {
	Start, End time.Time
}

// ErrSpan is returned by ParseSpan for text that is not a year or month.
var ErrSpan = errors.New("only YYYY or YYYY-MM is supported")

// ParseSpan returns the Span for a YYYY year or YYYY-MM month in loc.
func ParseSpan(s string, loc *time.Location) (Span, error) {
	if loc == nil {
		loc = time.Local
	}
	year, month, isMonth := strings.Cut(s, "-")
	if len(year) != 4 || (isMonth && len(month) != 2) {
		return Span{}, ErrSpan
	}
	y, err := strconv.Atoi(year)
	if err != nil || y < 0 {
		return Span{}, fmt.Errorf("couldn't parse year: %w", ErrSpan)
	}
	if !isMonth {
		return Span{
			Start: time.Date(y, time.January, 1, 0, 0, 0, 0, loc),
			End:   time.Date(y+1, time.January, 1, 0, 0, 0, 0, loc),
		}, nil
	}
	m, err := strconv.Atoi(month)
	if err != nil || m < 1 || 12 < m {
		return Span{}, fmt.Errorf("couldn't parse month: %w", ErrSpan)
	}
	return Span{
		Start: time.Date(y, time.Month(m), 1, 0, 0, 0, 0, loc),
		End:   time.Date(y, time.Month(m)+1, 1, 0, 0, 0, 0, loc),
	}, nil
}

// Match returns whether any part of iv falls within the span.
func (s Span) Match(iv timelog.Interval, now time.Time) (bool, error) {
	return iv.Start.Time().Before(s.End) && iv.End(now).After(s.Start), nil
}

func (s Span) String() string {
	return s.Start.Format("2006-01-02") + "/" + s.End.Format("2006-01-02")
}
