// Copyright ©2024 Dan Kortschak. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package calendar partitions log intervals into day and week periods.
package calendar

import (
	"fmt"
	"iter"
	"time"

	"github.com/kortschak/t/timelog"
)

// Period is a calendar period length.
type Period int

const (
	Day  Period = 1
	Week Period = 7 // Weeks start on Sunday.
)

func (p Period) String() string {
	switch p {
	case Day:
		return "day"
	case Week:
		return "week"
	default:
		return fmt.Sprintf("Period(%d)", int(p))
	}
}

// StartOf returns the start of the period containing t in loc.
func StartOf(t time.Time, p Period, loc *time.Location) time.Time {
	t = t.In(loc)
	y, m, d := t.Date()
	if p == Week {
		d -= int(t.Weekday())
	}
	return time.Date(y, m, d, 0, 0, 0, 0, loc)
}

// Next returns the start of the period following the period starting at t.
// Days are added on the calendar so that periods spanning daylight saving
// changes are correct.
func (p Period) Next(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d+int(p), 0, 0, 0, 0, t.Location())
}

// Bucket is the set of intervals overlapping the period [Start, End).
type Bucket struct {
	Start, End time.Time
	Intervals  []timelog.Interval
}

// Partitions is an iterator over the periods spanned by a sequence of
// intervals.
type Partitions struct {
	ivs    []timelog.Interval
	period Period
	now    time.Time
	loc    *time.Location

	next    int
	start   time.Time
	pending []timelog.Interval
}

// Partition returns an iterator over the periods of length p, in loc,
// that are spanned by ivs. The intervals must be in log order. Open
// intervals are treated as ending at now. If loc is nil, the location of
// now is used.
func Partition(ivs []timelog.Interval, p Period, now time.Time, loc *time.Location) *Partitions {
	if p != Day && p != Week {
		panic(fmt.Sprintf("calendar: invalid period %d", p))
	}
	if loc == nil {
		loc = now.Location()
	}
	parts := &Partitions{
		ivs:    ivs,
		period: p,
		now:    now,
		loc:    loc,
	}
	if len(ivs) != 0 {
		parts.start = StartOf(ivs[0].Start.Time(), p, loc)
	}
	return parts
}

// Now returns the time used as the end of open intervals.
func (p *Partitions) Now() time.Time { return p.now }

// Location returns the location of the period boundaries.
func (p *Partitions) Location() *time.Location { return p.loc }

// Period returns the partition period length.
func (p *Partitions) Period() Period { return p.period }

// Next returns the next period and the intervals that overlap it. An
// interval spanning several periods is included in each. Periods without
// any activity are returned with no intervals. The last period returned
// is the last one overlapped by any interval. When no periods remain,
// ok is false.
func (p *Partitions) Next() (b Bucket, ok bool) {
	if p.next >= len(p.ivs) && len(p.pending) == 0 {
		return Bucket{}, false
	}
	start := p.start
	end := p.period.Next(start)

	cur := p.pending
	for p.next < len(p.ivs) && p.ivs[p.next].Start.Time().Before(end) {
		cur = append(cur, p.ivs[p.next])
		p.next++
	}
	p.pending = nil
	for _, iv := range cur {
		if iv.End(p.now).After(end) {
			p.pending = append(p.pending, iv)
		}
	}
	p.start = end
	return Bucket{Start: start, End: end, Intervals: cur}, true
}

// All returns an iterator over the remaining periods.
func (p *Partitions) All() iter.Seq[Bucket] {
	return func(yield func(Bucket) bool) {
		for {
			b, ok := p.Next()
			if !ok || !yield(b) {
				return
			}
		}
	}
}

// Minutes returns the number of whole minutes of iv that fall within
// [lo, hi). Open intervals end at now.
func Minutes(iv timelog.Interval, lo, hi, now time.Time) int {
	start := iv.Start.Time()
	if start.Before(lo) {
		start = lo
	}
	end := iv.End(now)
	if end.After(hi) {
		end = hi
	}
	if !end.After(start) {
		return 0
	}
	return int(end.Sub(start) / time.Minute)
}
