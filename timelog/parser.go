// Copyright ©2024 Dan Kortschak. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package timelog

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"strconv"
	"time"
)

// ParseError is a syntax error in a log.
type ParseError struct {
	// Line and Col are relative to the point
	// the parser started reading.
	Line, Col int
	// Offset is the absolute offset of the
	// offending byte.
	Offset int64
	Msg    string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("line %d, col %d: %s", e.Line, e.Col, e.Msg)
}

// Parse returns all the records in b. Implied offsets are resolved using
// zone. If the log is malformed, no records are returned.
func Parse(b []byte, zone Zone) ([]Record, error) {
	p := NewParser(bytes.NewReader(b), zone, 0)
	var recs []Record
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

// state is a tokenizer state.
type state uint8

const (
	between   state = iota // Between records, skipping white space.
	note                   // In an annotation.
	year                   // Numeric timestamp fields.
	month                  //
	day                    //
	hour                   //
	minute                 //
	term                   // After the minutes of a timestamp.
	sign                   // Start of an explicit offset.
	offHour                // Numeric offset fields.
	offMinute              //
	offTerm                // After an explicit offset.
	stop                   // After the comma separating start and stop.

	numStates
)

// step is a state transition function. It is called with each byte read
// and returns the next state. At the end of the input, eof is true.
type step func(p *Parser, c byte, eof bool) (state, error)

// transitions is the tokenizer's dispatch table.
var transitions = [numStates]step{
	between:   (*Parser).between,
	note:      (*Parser).note,
	year:      (*Parser).number,
	month:     (*Parser).number,
	day:       (*Parser).number,
	hour:      (*Parser).number,
	minute:    (*Parser).number,
	term:      (*Parser).term,
	sign:      (*Parser).sign,
	offHour:   (*Parser).number,
	offMinute: (*Parser).number,
	offTerm:   (*Parser).offTerm,
	stop:      (*Parser).stop,
}

// fields describes the numeric states. Each reads width digits into the
// accumulator and then, if sep is not zero, requires sep before moving on.
var fields = [numStates]struct {
	width int
	sep   byte
	next  state
}{
	year:      {width: 4, sep: '-', next: month},
	month:     {width: 2, sep: '-', next: day},
	day:       {width: 2, sep: ' ', next: hour},
	hour:      {width: 2, sep: ':', next: minute},
	minute:    {width: 2, next: term},
	offHour:   {width: 2, next: offMinute},
	offMinute: {width: 2, next: offTerm},
}

// Parser is an incremental log tokenizer. Each call to Next consumes
// exactly one record, so a Parser may be started at any record boundary.
type Parser struct {
	r    *bufio.Reader
	zone Zone

	off       int64
	line, col int

	state state
	acc   int // acc is the value of the current numeric field.
	n     int // n is the number of digits in acc.
	vals  [numStates]int
	neg   bool

	rec   Record
	start *Timestamp
	text  []byte
	ready bool
}

// NewParser returns a Parser reading from r. base is the offset of the
// first byte of r in the log and is used to report record spans.
func NewParser(r io.Reader, zone Zone, base int64) *Parser {
	return &Parser{
		r:    bufio.NewReader(r),
		zone: zone,
		off:  base,
		line: 1,
	}
}

// Offset returns the offset of the next byte to be read by the parser.
// After a successful call to Next it is the End of the returned record.
func (p *Parser) Offset() int64 {
	return p.off
}

// Next returns the next record. At the end of the input, Next
// returns io.EOF. Any other error is either a *ParseError or an error
// from the underlying reader.
func (p *Parser) Next() (Record, error) {
	for {
		c, err := p.r.ReadByte()
		eof := err == io.EOF
		if err != nil && !eof {
			return Record{}, err
		}
		if !eof {
			p.off++
			if c == '\n' {
				p.line++
				p.col = 0
			} else {
				p.col++
			}
		}
		next, err := transitions[p.state](p, c, eof)
		if err != nil {
			return Record{}, err
		}
		p.state = next
		if p.ready {
			rec := p.rec
			rec.End = p.off
			p.ready = false
			p.rec = Record{}
			p.start = nil
			return rec, nil
		}
		if eof {
			return Record{}, io.EOF
		}
	}
}

func (p *Parser) between(c byte, eof bool) (state, error) {
	if eof {
		return between, nil
	}
	switch {
	case c == ' ' || c == '\t' || c == '\r' || c == '\n':
		return between, nil
	case c == '#':
		p.rec.Start = p.off - 1
		p.text = p.text[:0]
		return note, nil
	case isDigit(c):
		p.rec.Start = p.off - 1
		p.acc = int(c - '0')
		p.n = 1
		return year, nil
	default:
		return between, p.errorf("expected a digit or '#' but got %s", quote(c))
	}
}

func (p *Parser) note(c byte, eof bool) (state, error) {
	if eof || c == '\n' {
		p.rec.Note = string(p.text)
		p.ready = true
		return between, nil
	}
	p.text = append(p.text, c)
	return note, nil
}

func (p *Parser) number(c byte, eof bool) (state, error) {
	f := fields[p.state]
	if p.n < f.width {
		if eof {
			return p.state, p.errorf("expected a digit but got EOF")
		}
		if !isDigit(c) {
			return p.state, p.errorf("expected a digit but got %s", quote(c))
		}
		p.acc = p.acc*10 + int(c-'0')
		p.n++
		if p.n < f.width || f.sep != 0 {
			return p.state, nil
		}
	} else {
		if eof {
			return p.state, p.errorf("expected %s but got EOF", quote(f.sep))
		}
		if c != f.sep {
			return p.state, p.errorf("expected %s but got %s", quote(f.sep), quote(c))
		}
	}
	p.vals[p.state] = p.acc
	p.acc = 0
	p.n = 0
	return f.next, nil
}

func (p *Parser) term(c byte, eof bool) (state, error) {
	switch {
	case eof || c == '\n':
		return between, p.endStamp(true, false)
	case c == ',':
		return stop, p.endStamp(true, true)
	case c == ' ':
		return sign, nil
	default:
		return term, p.errorf("expected newline, comma, or space, but got %s", quote(c))
	}
}

func (p *Parser) sign(c byte, eof bool) (state, error) {
	switch {
	case eof:
		return sign, p.errorf("expected +/- but got EOF")
	case c == '+':
		p.neg = false
	case c == '-':
		p.neg = true
	default:
		return sign, p.errorf("expected +/- but got %s", quote(c))
	}
	return offHour, nil
}

func (p *Parser) offTerm(c byte, eof bool) (state, error) {
	switch {
	case eof || c == '\n':
		return between, p.endStamp(false, false)
	case c == ',':
		return stop, p.endStamp(false, true)
	default:
		return offTerm, p.errorf("expected newline or comma but got %s", quote(c))
	}
}

func (p *Parser) stop(c byte, eof bool) (state, error) {
	switch {
	case eof || c == '\n':
		p.rec.Interval = &Interval{Start: *p.start}
		p.ready = true
		return between, nil
	case c == ' ' || c == '\t':
		return stop, nil
	case isDigit(c):
		p.acc = int(c - '0')
		p.n = 1
		return year, nil
	default:
		return stop, p.errorf("expected a digit but got %s", quote(c))
	}
}

// endStamp completes the timestamp held in the field accumulators. If more
// is true, the timestamp was terminated by a comma.
func (p *Parser) endStamp(isImplied, more bool) error {
	v := &p.vals
	if v[month] < 1 || 12 < v[month] ||
		v[day] < 1 || daysIn(v[year], v[month]) < v[day] ||
		23 < v[hour] || 59 < v[minute] {
		return p.errorf("invalid time %04d-%02d-%02d %02d:%02d", v[year], v[month], v[day], v[hour], v[minute])
	}
	var (
		ts  Timestamp
		err error
	)
	if isImplied {
		ts, err = implied(v[year], v[month], v[day], v[hour], v[minute], p.zone)
		if err != nil {
			return err
		}
	} else {
		if 59 < v[offMinute] {
			return p.errorf("invalid offset minutes %02d", v[offMinute])
		}
		off := v[offHour]*60 + v[offMinute]
		if p.neg {
			off = -off
		}
		ts = Timestamp{Year: v[year], Month: v[month], Day: v[day], Hour: v[hour], Minute: v[minute], Offset: off}
	}

	if p.start == nil {
		p.start = &ts
		if !more {
			p.rec.Interval = &Interval{Start: ts}
			p.ready = true
		}
		return nil
	}
	if more {
		return p.errorf("unexpected comma after stop time")
	}
	p.rec.Interval = &Interval{Start: *p.start, Stop: &ts}
	p.ready = true
	return nil
}

func (p *Parser) errorf(format string, args ...any) error {
	return &ParseError{
		Line:   p.line,
		Col:    p.col,
		Offset: p.off - 1,
		Msg:    fmt.Sprintf(format, args...),
	}
}

func isDigit(c byte) bool { return '0' <= c && c <= '9' }

func quote(c byte) string { return strconv.QuoteRune(rune(c)) }

func daysIn(year, month int) int {
	return time.Date(year, time.Month(month)+1, 0, 0, 0, 0, 0, time.UTC).Day()
}
