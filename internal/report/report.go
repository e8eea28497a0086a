// Copyright ©2024 Dan Kortschak. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package report renders the t command outputs.
package report

import (
	"cmp"
	"encoding/csv"
	"fmt"
	"io"
	"maps"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/kortschak/t/aggregate"
	"github.com/kortschak/t/calendar"
	"github.com/kortschak/t/store"
	"github.com/kortschak/t/timelog"
)

// DateLayout is the layout used for dates in reports.
const DateLayout = "2006-01-02"

// DefaultSparks are the sparkline symbols used when none are configured.
var DefaultSparks = []string{"▁", "▂", "▃", "▄", "▅", "▆", "▇"}

// DefaultFullWeek is the number of minutes in a full work week.
const DefaultFullWeek = 5 * 8 * 60

// Words are the activity words used in messages.
type Words struct {
	Noun    string `toml:"noun" json:"noun,omitempty"`       // work
	Present string `toml:"present" json:"present,omitempty"` // working
	Past    string `toml:"past" json:"past,omitempty"`       // worked
}

// DefaultWords are the activity words used when none are configured.
var DefaultWords = Words{Noun: "work", Present: "working", Past: "worked"}

// Or returns w with empty fields filled from def.
func (w Words) Or(def Words) Words {
	w.Noun = cmp.Or(w.Noun, def.Noun)
	w.Present = cmp.Or(w.Present, def.Present)
	w.Past = cmp.Or(w.Past, def.Past)
	return w
}

// Start writes the result of a store.Log.Start call.
func Start(w io.Writer, words Words, elapsed int, running bool) error {
	if running {
		_, err := fmt.Fprintf(w, "You already started %s, %d minutes ago!\n", words.Present, elapsed)
		return err
	}
	_, err := fmt.Fprintf(w, "Starting %s.\n", words.Noun)
	return err
}

// Stop writes the result of a store.Log.Stop call.
func Stop(w io.Writer, words Words, stopped store.Stopped) error {
	if !stopped.Closed {
		_, err := fmt.Fprintf(w, "You haven't started %s yet!\n", words.Present)
		return err
	}
	_, err := fmt.Fprintf(w, "You just %s for %d minutes.\n", words.Past, stopped.Minutes)
	return err
}

// Status writes whether there is an open interval. If week is not nil,
// it is written as the week's total.
func Status(w io.Writer, words Words, working bool, week *int) error {
	var suffix string
	if week != nil {
		suffix = fmt.Sprintf(" (%d)", *week)
	}
	var err error
	if working {
		_, err = fmt.Fprintf(w, "%s%s\n", strings.ToUpper(words.Present), suffix)
	} else {
		_, err = fmt.Fprintf(w, "NOT %s%s\n", words.Present, suffix)
	}
	return err
}

// Since writes the number of minutes worked in a period described by desc.
func Since(w io.Writer, words Words, minutes int, desc string) error {
	var err error
	if minutes == 0 {
		_, err = fmt.Fprintf(w, "You have not %s %s.\n", words.Past, desc)
	} else {
		_, err = fmt.Fprintf(w, "You have %s for %d minutes %s.\n", words.Past, minutes, desc)
	}
	return err
}

// Legend writes a minutes legend for reports of period p.
func Legend(w io.Writer, p calendar.Period) error {
	var err error
	switch p {
	case calendar.Day:
		_, err = fmt.Fprintf(w, "8h=%dm\n", 8*60)
	case calendar.Week:
		var buf strings.Builder
		for d := 1; d <= 5; d++ {
			if d != 1 {
				buf.WriteByte(' ')
			}
			fmt.Fprintf(&buf, "%dh=%dm", d*8, d*8*60)
		}
		buf.WriteByte('\n')
		_, err = io.WriteString(w, buf.String())
	}
	return err
}

// weekSpan returns the formatted first and last day of the week starting
// at start.
func weekSpan(start time.Time) string {
	last := time.Date(start.Year(), start.Month(), start.Day()+6, 0, 0, 0, 0, start.Location())
	return start.Format(DateLayout) + " - " + last.Format(DateLayout)
}

// All writes a line for each weekly summary.
func All(w io.Writer, sums []aggregate.Summary[string]) error {
	var buf strings.Builder
	for _, s := range sums {
		fmt.Fprintf(&buf, "%s   %4d min", weekSpan(s.Start), s.Minutes)
		if s.Stats != nil {
			days := make([]string, len(s.Stats.Sparks))
			for i, d := range s.Stats.Sparks {
				days[i] = strings.Join(d, "")
			}
			fmt.Fprintf(&buf, " %4d segments  min/avg/max/stddev=%3d/%3d/%3d/%3d  %s",
				s.Segments, s.Stats.Min, s.Stats.Mean, s.Stats.Max, s.Stats.StdDev, strings.Join(days, "  "))
		}
		buf.WriteByte('\n')
	}
	_, err := io.WriteString(w, buf.String())
	return err
}

// CSV writes the total minutes of each week as comma-separated values.
func CSV(w io.Writer, parts *calendar.Partitions) error {
	cw := csv.NewWriter(w)
	for b := range parts.All() {
		err := cw.Write([]string{
			b.Start.Format(DateLayout),
			strconv.Itoa(aggregate.MinutesBetween(b.Intervals, b.Start, b.End, parts.Now())),
		})
		if err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// PTO writes the minutes worked and the paid time off taken for each week
// with work, followed by the yearly time off totals. fullWeek is the
// number of minutes in a week without time off.
func PTO(w io.Writer, words Words, parts *calendar.Partitions, fullWeek int) error {
	if fullWeek < 1 {
		fullWeek = DefaultFullWeek
	}
	var buf strings.Builder
	years := make(map[int]int)
	for b := range parts.All() {
		on := aggregate.MinutesBetween(b.Intervals, b.Start, b.End, parts.Now())
		if on == 0 {
			continue
		}
		off := max(fullWeek-on, 0)
		years[b.Start.Year()] += off
		fmt.Fprintf(&buf, "%s %s=%4d pto=%4d\n", b.Start.Format(DateLayout), words.Noun, on, off)
	}
	if len(years) != 0 {
		buf.WriteByte('\n')
	}
	for _, y := range slices.Sorted(maps.Keys(years)) {
		fmt.Fprintf(&buf, "%d total_pto=%5d days=%3d\n", y, years[y], years[y]/60/8)
	}
	_, err := io.WriteString(w, buf.String())
	return err
}

// DefaultShortStep is the number of minutes per bar in the short report
// graph.
const DefaultShortStep = 100

// Short writes, for each week, the number and total length of intervals
// no longer than limit minutes compared to all intervals in the week,
// with a bar graph where each bar is step minutes. Interval lengths are
// not clipped to the week.
func Short(w io.Writer, parts *calendar.Partitions, limit, step int) error {
	if step < 1 {
		step = DefaultShortStep
	}
	now := parts.Now()
	var buf strings.Builder
	for b := range parts.All() {
		var n, short, all, shortMinutes int
		for _, iv := range b.Intervals {
			m := int(iv.End(now).Sub(iv.Start.Time()) / time.Minute)
			if m <= 0 {
				continue
			}
			n++
			all += m
			if m <= limit {
				short++
				shortMinutes += m
			}
		}
		allBars := bars(all, step)
		shortBars := bars(shortMinutes, step)
		fmt.Fprintf(&buf, "%s   %3d/%3d  (%5d/%5d minutes)  %s%s\n",
			weekSpan(b.Start), short, n, shortMinutes, all,
			strings.Repeat(".", shortBars), strings.Repeat("|", allBars-shortBars))
	}
	_, err := io.WriteString(w, buf.String())
	return err
}

// bars returns the number of graph bars needed to show m minutes.
func bars(m, step int) int {
	if m <= 0 {
		return 0
	}
	return 1 + (m-1)/step
}

// Validation writes each validation error on its own line.
func Validation(w io.Writer, errs []*timelog.ValidationError) error {
	var buf strings.Builder
	for _, e := range errs {
		buf.WriteString(e.Error())
		buf.WriteByte('\n')
	}
	_, err := io.WriteString(w, buf.String())
	return err
}
