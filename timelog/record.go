// Copyright ©2024 Dan Kortschak. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package timelog implements the t work log text format.
//
// A log is a sequence of lines, each either an annotation or an interval.
// Blank lines are ignored.
//
//	record     := annotation | interval
//	annotation := "#" any-text
//	interval   := timestamp ["," timestamp]
//	timestamp  := YYYY "-" MM "-" DD " " HH ":" MM [" " ("+"|"-") HH MM]
//
// Timestamps without an offset are implied to be in the local zone and
// are written back without an offset.
package timelog

import (
	"io"
	"time"
)

// Interval is a work session. A nil Stop indicates that the interval is
// still open.
type Interval struct {
	Start Timestamp
	Stop  *Timestamp
}

// IsOpen returns whether the interval has not been stopped.
func (i Interval) IsOpen() bool {
	return i.Stop == nil
}

// End returns the time the interval ended, or now if the interval is open.
func (i Interval) End(now time.Time) time.Time {
	if i.Stop == nil {
		return now
	}
	return i.Stop.Time()
}

// String returns the log representation of the interval.
func (i Interval) String() string {
	return string(i.AppendFormat(nil))
}

// AppendFormat appends the log representation of the interval to b.
func (i Interval) AppendFormat(b []byte) []byte {
	b = i.Start.AppendFormat(b)
	if i.Stop != nil {
		b = append(b, ',')
		b = i.Stop.AppendFormat(b)
	}
	return b
}

// Record is a single log line. Exactly one of Interval and the annotation
// is meaningful; a record with a nil Interval is an annotation.
type Record struct {
	Interval *Interval
	// Note is the annotation text following the '#'.
	Note string

	// Start and End are the byte offsets of the record in
	// the log. End is past the terminating newline if there
	// is one.
	Start, End int64
}

// IsNote returns whether the record is an annotation.
func (r Record) IsNote() bool {
	return r.Interval == nil
}

// String returns the log representation of the record.
func (r Record) String() string {
	if r.Interval == nil {
		return "#" + r.Note
	}
	return r.Interval.String()
}

// Write writes the records to w, one per line.
func Write(w io.Writer, recs []Record) error {
	var b []byte
	for _, r := range recs {
		if r.Interval == nil {
			b = append(b, '#')
			b = append(b, r.Note...)
		} else {
			b = r.Interval.AppendFormat(b)
		}
		b = append(b, '\n')
	}
	_, err := w.Write(b)
	return err
}

// Intervals returns the intervals in recs in order.
func Intervals(recs []Record) []Interval {
	ivs := make([]Interval, 0, len(recs))
	for _, r := range recs {
		if r.Interval != nil {
			ivs = append(ivs, *r.Interval)
		}
	}
	return ivs
}

// Notes returns the annotations in recs in order.
func Notes(recs []Record) []string {
	var notes []string
	for _, r := range recs {
		if r.Interval == nil {
			notes = append(notes, r.Note)
		}
	}
	return notes
}

// LastInterval returns the index of the last interval record in recs, or
// -1 if there is none.
func LastInterval(recs []Record) int {
	for i := len(recs) - 1; i >= 0; i-- {
		if recs[i].Interval != nil {
			return i
		}
	}
	return -1
}
