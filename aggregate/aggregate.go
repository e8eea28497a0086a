// Copyright ©2024 Dan Kortschak. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package aggregate computes minute totals and summary statistics for
// partitioned log intervals.
package aggregate

import (
	"math"
	"time"

	"github.com/kortschak/t/calendar"
	"github.com/kortschak/t/timelog"
)

// Summary is the work summary of a single period.
type Summary[S any] struct {
	Start time.Time
	// Minutes is the total number of minutes
	// worked in the period.
	Minutes int
	// Segments is the number of day segments
	// worked in the period. An interval that
	// spans midnight has a segment in each day.
	Segments int

	// Stats holds the distribution of segment
	// lengths. It is nil when there are fewer
	// than two segments.
	Stats *Stats[S]
}

// Stats is the distribution of segment lengths in a period.
type Stats[S any] struct {
	Min, Mean, Max int
	StdDev         int

	// Sparks holds a symbol for each segment,
	// grouped by day, for days with activity.
	Sparks [][]S
}

// Summarize returns a summary for each period in parts. Each segment length
// is represented in the summary sparkline by one of the provided symbols,
// ordered from shortest to longest.
func Summarize[S any](parts *calendar.Partitions, sparks []S) []Summary[S] {
	var sums []Summary[S]
	for b := range parts.All() {
		sums = append(sums, SummarizeBucket(b, parts.Now(), sparks))
	}
	return sums
}

// SummarizeBucket returns the summary for a single period.
func SummarizeBucket[S any](b calendar.Bucket, now time.Time, sparks []S) Summary[S] {
	days := Segments(b, now)
	var n int
	for _, d := range days {
		n += len(d)
	}
	if n < 2 {
		return Summary[S]{
			Start:    b.Start,
			Minutes:  MinutesBetween(b.Intervals, b.Start, b.End, now),
			Segments: n,
		}
	}

	var total int
	lo, hi := math.MaxInt, 0
	for _, d := range days {
		for _, m := range d {
			total += m
			lo = min(lo, m)
			hi = max(hi, m)
		}
	}
	mean := total / n
	var sumsq int
	for _, d := range days {
		for _, m := range d {
			diff := m - mean
			sumsq += diff * diff
		}
	}

	stats := &Stats[S]{
		Min:    lo,
		Mean:   mean,
		Max:    hi,
		StdDev: isqrt(sumsq / (n - 1)),
	}
	if len(sparks) != 0 {
		stats.Sparks = make([][]S, len(days))
		for i, d := range days {
			stats.Sparks[i] = make([]S, len(d))
			for j, m := range d {
				stats.Sparks[i][j] = Spark(m, hi, sparks)
			}
		}
	}
	return Summary[S]{
		Start:    b.Start,
		Minutes:  total,
		Segments: n,
		Stats:    stats,
	}
}

// Segments returns the minutes worked in each interval segment of the
// days of b that have activity, grouped by day.
func Segments(b calendar.Bucket, now time.Time) [][]int {
	if len(b.Intervals) == 0 {
		return nil
	}
	var segs [][]int
	days := calendar.Partition(b.Intervals, calendar.Day, now, b.Start.Location())
	for d := range days.All() {
		if !d.Start.Before(b.End) {
			break
		}
		if d.Start.Before(b.Start) || len(d.Intervals) == 0 {
			continue
		}
		m := make([]int, len(d.Intervals))
		for i, iv := range d.Intervals {
			m[i] = calendar.Minutes(iv, d.Start, d.End, now)
		}
		segs = append(segs, m)
	}
	return segs
}

// Daily returns the minutes worked on each day of b.
func Daily(b calendar.Bucket, now time.Time) []int {
	var days []int
	for d := b.Start; d.Before(b.End); {
		y, m, dd := d.Date()
		next := time.Date(y, m, dd+1, 0, 0, 0, 0, d.Location())
		days = append(days, MinutesBetween(b.Intervals, d, next, now))
		d = next
	}
	return days
}

// Spark returns the symbol representing m relative to max.
func Spark[S any](m, max int, sparks []S) S {
	last := len(sparks) - 1
	if max <= 0 {
		return sparks[last]
	}
	i := m * len(sparks) / max
	if i < 0 {
		i = 0
	}
	if i > last {
		i = last
	}
	return sparks[i]
}

// MinutesBetween returns the total number of minutes of ivs within
// [lo, hi). Open intervals end at now.
func MinutesBetween(ivs []timelog.Interval, lo, hi, now time.Time) int {
	var total int
	for _, iv := range ivs {
		total += calendar.Minutes(iv, lo, hi, now)
	}
	return total
}

// isqrt returns the floor of the square root of n.
func isqrt(n int) int {
	if n <= 0 {
		return 0
	}
	r := int(math.Sqrt(float64(n)))
	for r*r > n {
		r--
	}
	for (r+1)*(r+1) <= n {
		r++
	}
	return r
}
