// Copyright ©2024 Dan Kortschak. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package localtime provides sources for the current time and the local
// timezone used to resolve log timestamps without an explicit offset.
package localtime

import (
	"time"
)

// Static is a handle to obtain the runtime's static local timezone. It is safe
// for concurrent use.
type Static struct{}

// Location returns time.Local. It does not fail.
func (Static) Location() (*time.Location, error) {
	return time.Local, nil
}

// Now returns the current local time.
func (Static) Now() time.Time {
	return time.Now()
}

// Fixed is a frozen clock in a fixed location.
type Fixed struct {
	Time time.Time
}

// At returns a Fixed clock at the given wall time in a zone offset by
// offset minutes from UTC.
func At(year int, month time.Month, day, hour, minute, offset int) Fixed {
	return Fixed{Time: time.Date(year, month, day, hour, minute, 0, 0, time.FixedZone("", offset*60))}
}

// Location returns the location of the receiver's time, or time.UTC
// for the zero Fixed.
func (f Fixed) Location() (*time.Location, error) {
	if f.Time.IsZero() {
		return time.UTC, nil
	}
	return f.Time.Location(), nil
}

// Now returns the receiver's time.
func (f Fixed) Now() time.Time {
	return f.Time
}

// Clock wraps a dynamic location source with the system clock, reporting
// the current time in that location.
type Clock struct {
	Source interface {
		Location() (*time.Location, error)
	}
}

// Location returns the location of the receiver's source.
func (c Clock) Location() (*time.Location, error) {
	return c.Source.Location()
}

// Now returns the current time in the receiver's source location. If
// the location is not available, the runtime's local time is returned.
func (c Clock) Now() time.Time {
	loc, err := c.Source.Location()
	if err != nil {
		return time.Now()
	}
	return time.Now().In(loc)
}
