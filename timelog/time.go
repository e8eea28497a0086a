// Copyright ©2024 Dan Kortschak. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package timelog

import (
	"fmt"
	"strconv"
	"time"
)

// Layout is the time layout of a timestamp without an offset.
const Layout = "2006-01-02 15:04"

// Zone is a source of the local timezone used to resolve timestamps
// that do not carry an explicit offset.
type Zone interface {
	Location() (*time.Location, error)
}

// Timestamp is a wall clock time with minute resolution and a UTC offset.
// If Implied is true, the offset was not present in the log and was
// obtained from a Zone; it will not be written when the Timestamp is
// formatted.
type Timestamp struct {
	Year   int
	Month  int
	Day    int
	Hour   int
	Minute int

	// Offset is the offset from UTC in minutes.
	Offset  int
	Implied bool
}

// Stamp returns an explicit Timestamp for t truncated to the minute.
func Stamp(t time.Time) Timestamp {
	_, off := t.Zone()
	return Timestamp{
		Year:   t.Year(),
		Month:  int(t.Month()),
		Day:    t.Day(),
		Hour:   t.Hour(),
		Minute: t.Minute(),
		Offset: off / 60,
	}
}

// implied returns an implied timestamp for the wall time fields, resolving
// the offset in the location provided by zone.
func implied(year, month, day, hour, minute int, zone Zone) (Timestamp, error) {
	loc := time.Local
	if zone != nil {
		var err error
		loc, err = zone.Location()
		if err != nil {
			return Timestamp{}, err
		}
	}
	_, off := time.Date(year, time.Month(month), day, hour, minute, 0, 0, loc).Zone()
	return Timestamp{
		Year:    year,
		Month:   month,
		Day:     day,
		Hour:    hour,
		Minute:  minute,
		Offset:  off / 60,
		Implied: true,
	}, nil
}

// Time returns the time.Time corresponding to the timestamp in a fixed zone.
func (t Timestamp) Time() time.Time {
	return time.Date(t.Year, time.Month(t.Month), t.Day, t.Hour, t.Minute, 0, 0, time.FixedZone("", t.Offset*60))
}

// Before returns whether t is strictly before u.
func (t Timestamp) Before(u Timestamp) bool {
	return t.Time().Before(u.Time())
}

// String returns the log representation of the timestamp.
func (t Timestamp) String() string {
	return string(t.AppendFormat(make([]byte, 0, len("2006-01-02 15:04 -0700"))))
}

// AppendFormat appends the log representation of the timestamp to b.
func (t Timestamp) AppendFormat(b []byte) []byte {
	b = appendInt(b, t.Year, 4)
	b = append(b, '-')
	b = appendInt(b, t.Month, 2)
	b = append(b, '-')
	b = appendInt(b, t.Day, 2)
	b = append(b, ' ')
	b = appendInt(b, t.Hour, 2)
	b = append(b, ':')
	b = appendInt(b, t.Minute, 2)
	if t.Implied {
		return b
	}
	off := t.Offset
	sign := byte('+')
	if off < 0 {
		sign = '-'
		off = -off
	}
	b = append(b, ' ', sign)
	b = appendInt(b, off/60, 2)
	return appendInt(b, off%60, 2)
}

// GoString implements fmt.GoStringer to make test failures readable.
func (t Timestamp) GoString() string {
	if t.Implied {
		return fmt.Sprintf("timelog.Timestamp(%s [%+d])", t, t.Offset)
	}
	return fmt.Sprintf("timelog.Timestamp(%s)", t)
}

func appendInt(b []byte, v, width int) []byte {
	var buf [8]byte
	s := strconv.AppendInt(buf[:0], int64(v), 10)
	for i := len(s); i < width; i++ {
		b = append(b, '0')
	}
	return append(b, s...)
}
