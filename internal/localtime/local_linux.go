// Copyright ©2024 Dan Kortschak. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

//go:build linux

package localtime

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/godbus/dbus/v5"
)

// Dynamic is a handle to obtain the current local timezone from
// systemd-timedated via the system DBus. This allows a long running
// watcher to follow timezone changes made while it is running. It is
// safe for concurrent use.
type Dynamic struct {
	mu   sync.Mutex
	conn *dbus.Conn
	last *time.Location
}

// NewDynamic returns a Dynamic connected to the system DBus.
func NewDynamic() (*Dynamic, error) {
	conn, err := dbus.ConnectSystemBus()
	if err != nil {
		return nil, err
	}
	return &Dynamic{conn: conn}, nil
}

// Location returns the current system local timezone. If the timezone
// cannot be obtained, the last successfully obtained location is
// returned, or time.Local if there is none, with a non-nil error.
func (d *Dynamic) Location() (*time.Location, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.conn == nil {
		return d.fallback(), errors.New("closed")
	}

	tz, err := property[string](d.conn, "org.freedesktop.timedate1", "/org/freedesktop/timedate1", "org.freedesktop.timedate1.Timezone")
	if err != nil {
		return d.fallback(), fmt.Errorf("could not get time zone: %w", err)
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return d.fallback(), err
	}
	d.last = loc
	return loc, nil
}

func (d *Dynamic) fallback() *time.Location {
	if d.last != nil {
		return d.last
	}
	return time.Local
}

// Close releases the connection to the system DBus.
func (d *Dynamic) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.conn == nil {
		return nil
	}
	err := d.conn.Close()
	d.conn = nil
	return err
}

func property[T any](conn *dbus.Conn, dest, path, name string) (T, error) {
	var v T
	p, err := conn.Object(dest, dbus.ObjectPath(path)).GetProperty(name)
	if err != nil {
		return v, err
	}
	v, ok := p.Value().(T)
	if !ok {
		return v, fmt.Errorf("invalid type for %s: %T", name, p.Value())
	}
	return v, nil
}
