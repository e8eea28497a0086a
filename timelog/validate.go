// Copyright ©2024 Dan Kortschak. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package timelog

import "fmt"

// ValidationError is a logically invalid record in a syntactically valid log.
type ValidationError struct {
	// Index is the index of the record in the slice
	// that was validated.
	Index  int
	Record Record
	Msg    string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("record %d at offset %d (%s): %s", e.Index, e.Record.Start, e.Record, e.Msg)
}

// Validate returns all the logical errors in recs. It reports intervals
// that stop before they start, intervals that start before the previous
// interval stopped, and open intervals that are not the last record.
func Validate(recs []Record) []*ValidationError {
	var (
		errs []*ValidationError
		last *Interval
	)
	for i, r := range recs {
		if i > 0 && recs[i-1].Interval != nil && recs[i-1].Interval.Stop == nil {
			errs = append(errs, &ValidationError{
				Index:  i - 1,
				Record: recs[i-1],
				Msg:    fmt.Sprintf("open interval followed by %s", kind(r)),
			})
		}
		iv := r.Interval
		if iv == nil {
			continue
		}
		if iv.Stop != nil && iv.Stop.Before(iv.Start) {
			errs = append(errs, &ValidationError{Index: i, Record: r, Msg: "stop is before start"})
		}
		if last != nil && last.Stop != nil && iv.Start.Before(*last.Stop) {
			errs = append(errs, &ValidationError{
				Index:  i,
				Record: r,
				Msg:    fmt.Sprintf("start is before previous stop %s", last.Stop),
			})
		}
		last = iv
	}
	return errs
}

func kind(r Record) string {
	if r.Interval == nil {
		return "annotation"
	}
	return "interval"
}
