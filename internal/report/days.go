// Copyright ©2024 Dan Kortschak. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package report

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/kortschak/t/aggregate"
	"github.com/kortschak/t/calendar"
)

// Week is the minutes worked on each day of a week.
type Week struct {
	Start   time.Time
	Minutes [7]int
	// Starts is the time of day of the earliest
	// interval start on each day, formatted as
	// "15:04". Days with no start are empty.
	Starts [7]string
}

// Month is the weeks starting in a calendar month.
type Month struct {
	Month time.Month
	Weeks []Week
}

// Year is the months of a year with weeks starting in them.
type Year struct {
	Year   int
	Months []Month
}

// Table groups week partitions by the year and month that each week
// starts in.
func Table(parts *calendar.Partitions) []Year {
	var years []Year
	for b := range parts.All() {
		var wk Week
		wk.Start = b.Start
		copy(wk.Minutes[:], aggregate.Daily(b, parts.Now()))
		wk.Starts = starts(b)

		y, m, _ := b.Start.Date()
		if len(years) == 0 || years[len(years)-1].Year != y {
			years = append(years, Year{Year: y})
		}
		yr := &years[len(years)-1]
		if len(yr.Months) == 0 || yr.Months[len(yr.Months)-1].Month != m {
			yr.Months = append(yr.Months, Month{Month: m})
		}
		mo := &yr.Months[len(yr.Months)-1]
		mo.Weeks = append(mo.Weeks, wk)
	}
	return years
}

// Days writes the table with a line for each week, followed by monthly
// and yearly totals for each day of the week.
func Days(w io.Writer, years []Year) error {
	var buf strings.Builder
	for _, y := range years {
		var yearTotal [7]int
		for _, m := range y.Months {
			var monthTotal [7]int
			for _, wk := range m.Weeks {
				daysLine(&buf, weekSpan(wk.Start), &wk.Minutes)
				accum(&monthTotal, &wk.Minutes)
			}
			daysLine(&buf, fmt.Sprintf("%04d-%02d", y.Year, int(m.Month)), &monthTotal)
			accum(&yearTotal, &monthTotal)
		}
		daysLine(&buf, fmt.Sprintf("%04d", y.Year), &yearTotal)
	}
	_, err := io.WriteString(w, buf.String())
	return err
}

// starts returns the earliest interval start time on each day of b.
func starts(b calendar.Bucket) [7]string {
	var first [7]string
	for _, iv := range b.Intervals {
		t := iv.Start.Time().In(b.Start.Location())
		if t.Before(b.Start) || !t.Before(b.End) {
			continue
		}
		y, m, d := t.Date()
		day := time.Date(y, m, d, 0, 0, 0, 0, t.Location())
		i := int(day.Sub(b.Start).Round(time.Hour) / (24 * time.Hour))
		if i < 0 || i >= len(first) {
			continue
		}
		hm := t.Format("15:04")
		if first[i] == "" || hm < first[i] {
			first[i] = hm
		}
	}
	return first
}

// Times writes the table with a line for each week showing the earliest
// start time on each day, followed by monthly and yearly lines showing
// the earliest start on each day of the week.
func Times(w io.Writer, years []Year) error {
	var buf strings.Builder
	for _, y := range years {
		var yearFirst [7]string
		for _, m := range y.Months {
			var monthFirst [7]string
			for _, wk := range m.Weeks {
				timesLine(&buf, weekSpan(wk.Start), &wk.Starts)
				earliest(&monthFirst, &wk.Starts)
			}
			timesLine(&buf, fmt.Sprintf("%04d-%02d", y.Year, int(m.Month)), &monthFirst)
			earliest(&yearFirst, &monthFirst)
		}
		timesLine(&buf, fmt.Sprintf("%04d", y.Year), &yearFirst)
	}
	_, err := io.WriteString(w, buf.String())
	return err
}

func earliest(dst, src *[7]string) {
	for i, v := range src {
		if v != "" && (dst[i] == "" || v < dst[i]) {
			dst[i] = v
		}
	}
}

func timesLine(buf *strings.Builder, label string, starts *[7]string) {
	fmt.Fprintf(buf, "%-23s |", label)
	for _, s := range starts {
		if s == "" {
			s = "     "
		}
		fmt.Fprintf(buf, "| %s ", s)
	}
	buf.WriteString("|\n")
}

func accum(dst, src *[7]int) {
	for i, v := range src {
		dst[i] += v
	}
}

func daysLine(buf *strings.Builder, label string, minutes *[7]int) {
	fmt.Fprintf(buf, "%-23s |", label)
	var total int
	for _, m := range minutes {
		if m > 0 {
			fmt.Fprintf(buf, "| %5d ", m)
			total += m
		} else {
			buf.WriteString("|       ")
		}
	}
	fmt.Fprintf(buf, "|| %6d\n", total)
}
