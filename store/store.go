// Copyright ©2024 Dan Kortschak. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package store provides access to a t log file.
//
// The file is the only source of truth; nothing is cached between calls.
// The only mutations are appending a new open interval and closing the
// last interval, and both act on the final bytes of the file. The store
// does not lock the file and assumes a single writer.
package store

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"time"

	"github.com/kortschak/t/timelog"
)

// AvgLineLen is the estimated mean length of a log line used to choose
// the seek point for tail reads.
const AvgLineLen = 40

// tailRecords is the number of records read when looking for the last
// interval.
const tailRecords = 8

// ErrNoInterval is returned by Stop when the log holds no interval.
var ErrNoInterval = errors.New("no interval")

// Clock is a source of the current time.
type Clock interface {
	Now() time.Time
}

// Log is a handle to a log file.
type Log struct {
	path  string
	zone  timelog.Zone
	clock Clock
	log   *slog.Logger
}

// Open returns a Log for the file at path. The file is not opened until
// it is read or written. Implied offsets are resolved with zone and new
// timestamps are taken from clock. If log is nil, no logging is done.
func Open(path string, zone timelog.Zone, clock Clock, log *slog.Logger) *Log {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &Log{
		path:  path,
		zone:  zone,
		clock: clock,
		log:   log.With(slog.String("component", "store")),
	}
}

// Path returns the path to the log file.
func (l *Log) Path() string {
	return l.path
}

// ReadAll returns all the records in the log. A missing file holds no
// records.
func (l *Log) ReadAll() ([]timelog.Record, error) {
	b, err := os.ReadFile(l.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	return timelog.Parse(b, l.zone)
}

// ReadTail returns records from the end of the log. At least n records
// are returned if the log holds that many; all the records are
// returned otherwise. More than n records may be returned.
func (l *Log) ReadTail(n int) ([]timelog.Record, error) {
	recs, _, err := l.tail(n)
	return recs, err
}

// tail returns records from the end of the log and whether the whole log
// was read.
func (l *Log) tail(n int) (recs []timelog.Record, whole bool, err error) {
	f, err := os.Open(l.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, true, nil
		}
		return nil, false, err
	}
	defer f.Close()
	fi, err := f.Stat()
	if err != nil {
		return nil, false, err
	}
	size := fi.Size()

	window := int64(max(n, 1)) * AvgLineLen
	for {
		seek := size - window
		if seek <= 0 {
			l.log.LogAttrs(context.Background(), slog.LevelDebug, "read whole log", slog.Int64("size", size))
			recs, err = parse(timelog.NewParser(io.NewSectionReader(f, 0, size), l.zone, 0))
			return recs, true, err
		}
		recs, err = l.readFrom(f, seek, size)
		if err != nil {
			return nil, false, err
		}
		l.log.LogAttrs(context.Background(), slog.LevelDebug, "tail read", slog.Int64("seek", seek), slog.Int64("size", size), slog.Int("records", len(recs)))
		if len(recs) >= n {
			return recs, false, nil
		}
		window *= 2
	}
}

// readFrom parses the records of f that start after the first record
// boundary at or after seek. seek must be greater than zero.
func (l *Log) readFrom(f *os.File, seek, size int64) ([]timelog.Record, error) {
	// Start one byte early so that a seek point that is already
	// at the start of a line is kept.
	r := bufio.NewReader(io.NewSectionReader(f, seek-1, size-seek+1))
	base := seek - 1
	for {
		b, err := r.ReadSlice('\n')
		base += int64(len(b))
		if err == nil {
			break
		}
		if err == io.EOF {
			return nil, nil
		}
		if err != bufio.ErrBufferFull {
			return nil, err
		}
	}
	return parse(timelog.NewParser(r, l.zone, base))
}

func parse(p *timelog.Parser) ([]timelog.Record, error) {
	var recs []timelog.Record
	for {
		r, err := p.Next()
		if err != nil {
			if err == io.EOF {
				return recs, nil
			}
			return nil, err
		}
		recs = append(recs, r)
	}
}

// Last returns records from the end of the log that include the last
// interval if there is one.
func (l *Log) Last() ([]timelog.Record, error) {
	for n := tailRecords; ; n *= 2 {
		recs, whole, err := l.tail(n)
		if err != nil || whole || timelog.LastInterval(recs) >= 0 {
			return recs, err
		}
	}
}

// Start opens a new interval at the current time. If the last interval is
// still open, no change is made and Start returns the number of minutes
// it has been open and running is true.
func (l *Log) Start() (elapsed int, running bool, err error) {
	recs, err := l.Last()
	if err != nil {
		return 0, false, err
	}
	now := l.clock.Now()
	i := timelog.LastInterval(recs)
	if i >= 0 && recs[i].Interval.IsOpen() {
		if i != len(recs)-1 {
			return 0, false, openNotLast(recs, i)
		}
		return minutes(recs[i].Interval.Start.Time(), now), true, nil
	}

	var off int64
	if len(recs) != 0 {
		off = recs[len(recs)-1].End
	}
	iv := timelog.Interval{Start: timelog.Stamp(now)}
	l.log.LogAttrs(context.Background(), slog.LevelDebug, "start", slog.Int64("offset", off), slog.String("interval", iv.String()))
	return 0, false, l.writeAt(off, iv)
}

// Stopped is the result of a call to Stop.
type Stopped struct {
	// Closed is whether the call closed an interval.
	Closed bool
	// Minutes is the length of the interval closed,
	// or if Closed is false, the number of minutes
	// since the last interval was closed.
	Minutes int
}

// Stop closes the last interval at the current time. If the log has no
// interval Stop returns ErrNoInterval. If the last interval is already
// closed, the log is not changed.
func (l *Log) Stop() (Stopped, error) {
	recs, err := l.Last()
	if err != nil {
		return Stopped{}, err
	}
	i := timelog.LastInterval(recs)
	if i < 0 {
		return Stopped{}, ErrNoInterval
	}
	now := l.clock.Now()
	iv := recs[i].Interval
	if !iv.IsOpen() {
		return Stopped{Minutes: minutes(iv.Stop.Time(), now)}, nil
	}
	if i != len(recs)-1 {
		return Stopped{}, openNotLast(recs, i)
	}
	if now.Before(iv.Start.Time()) {
		return Stopped{}, &timelog.ValidationError{
			Index:  i,
			Record: recs[i],
			Msg:    fmt.Sprintf("stop %s is before start", timelog.Stamp(now)),
		}
	}

	stop := timelog.Stamp(now)
	closed := timelog.Interval{Start: iv.Start, Stop: &stop}
	off, err := l.lineStart(recs[i].Start)
	if err != nil {
		return Stopped{}, err
	}
	l.log.LogAttrs(context.Background(), slog.LevelDebug, "stop", slog.Int64("offset", off), slog.String("interval", closed.String()))
	err = l.writeAt(off, closed)
	if err != nil {
		return Stopped{}, err
	}
	return Stopped{Closed: true, Minutes: minutes(iv.Start.Time(), stop.Time())}, nil
}

// lineStart returns the offset of the start of the line holding the
// record at off, skipping back over leading blanks.
func (l *Log) lineStart(off int64) (int64, error) {
	if off == 0 {
		return 0, nil
	}
	f, err := os.Open(l.path)
	if err != nil {
		return 0, err
	}
	defer f.Close()
	var c [1]byte
	for off > 0 {
		_, err = f.ReadAt(c[:], off-1)
		if err != nil {
			return 0, fmt.Errorf("read log line start: %w", err)
		}
		if c[0] != ' ' && c[0] != '\t' {
			break
		}
		off--
	}
	return off, nil
}

// writeAt writes iv as the final line of the log starting at off,
// discarding anything after it. A newline is inserted if the byte
// before off is not a newline.
func (l *Log) writeAt(off int64, iv timelog.Interval) (err error) {
	f, err := os.OpenFile(l.path, os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		return err
	}
	defer func() {
		err = errors.Join(err, f.Close())
	}()

	var b []byte
	if off > 0 {
		var prev [1]byte
		_, err = f.ReadAt(prev[:], off-1)
		if err != nil {
			return fmt.Errorf("read log terminator: %w", err)
		}
		if prev[0] != '\n' {
			b = append(b, '\n')
		}
	}
	b = iv.AppendFormat(b)
	b = append(b, '\n')
	_, err = f.WriteAt(b, off)
	if err != nil {
		return err
	}
	return f.Truncate(off + int64(len(b)))
}

func openNotLast(recs []timelog.Record, i int) error {
	return &timelog.ValidationError{
		Index:  i,
		Record: recs[i],
		Msg:    fmt.Sprintf("open interval followed by %d records", len(recs)-1-i),
	}
}

func minutes(from, to time.Time) int {
	return int(to.Sub(from) / time.Minute)
}
