// Copyright ©2024 Dan Kortschak. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package report

import (
	"fmt"
	"io"
	"math"
	"strings"
	"time"

	"github.com/kortschak/t/aggregate"
	"github.com/kortschak/t/calendar"
	"github.com/kortschak/t/timelog"
)

// MinPunchCardColumns is the narrowest punch card that will be written.
const MinPunchCardColumns = 80

// punchCardHeader is the width of the week label and total that start
// each punch card line.
const punchCardHeader = len("2006-01-02 - 2006-01-02   9999 min")

// PunchCard writes a line for each week showing when in the week work was
// done. Each day is divided into equal slots so that the line fills cols
// columns, and each slot is shown by a symbol from sparks chosen by the
// fraction of the slot that was worked. Slots without work are shown as
// a space. Days are separated by '|'.
func PunchCard(w io.Writer, parts *calendar.Partitions, sparks []string, cols int) error {
	if len(sparks) == 0 {
		sparks = DefaultSparks
	}
	// The lowest symbol is used for both the smallest
	// non-zero fraction and the first step.
	sparks = append([]string{sparks[0]}, sparks...)
	maxSpark := len(sparks) - 1

	cols = max(cols, MinPunchCardColumns)
	slots := max((cols-punchCardHeader-8)/7, 1)

	now := parts.Now()
	var buf strings.Builder
	for b := range parts.All() {
		var line strings.Builder
		for d := b.Start; d.Before(b.End); {
			y, m, dd := d.Date()
			next := time.Date(y, m, dd+1, 0, 0, 0, 0, d.Location())
			line.WriteByte('|')
			width := next.Sub(d)
			for i := range slots {
				lo := d.Add(width * time.Duration(i) / time.Duration(slots))
				hi := d.Add(width * time.Duration(i+1) / time.Duration(slots))
				worked := overlap(b.Intervals, lo, hi, now)
				if worked <= 0 {
					line.WriteByte(' ')
					continue
				}
				k := int(math.Round(float64(maxSpark) * float64(worked) / float64(hi.Sub(lo))))
				line.WriteString(sparks[min(k, maxSpark)])
			}
			d = next
		}
		line.WriteByte('|')
		total := aggregate.MinutesBetween(b.Intervals, b.Start, b.End, now)
		fmt.Fprintf(&buf, "%s   %4d min%s\n", weekSpan(b.Start), total, line.String())
	}
	_, err := io.WriteString(w, buf.String())
	return err
}

// overlap returns the total duration of ivs within [lo, hi). Open
// intervals end at now.
func overlap(ivs []timelog.Interval, lo, hi, now time.Time) time.Duration {
	var total time.Duration
	for _, iv := range ivs {
		start := iv.Start.Time()
		if start.Before(lo) {
			start = lo
		}
		end := iv.End(now)
		if end.After(hi) {
			end = hi
		}
		if end.After(start) {
			total += end.Sub(start)
		}
	}
	return total
}
