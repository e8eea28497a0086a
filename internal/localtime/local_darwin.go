// Copyright ©2024 Dan Kortschak. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

//go:build darwin

package localtime

/*
#cgo CFLAGS: -x objective-c
#cgo LDFLAGS: -framework Foundation
#include <Foundation/Foundation.h>

char *currentTimezone()
{
	@autoreleasepool {
		CFTimeZoneResetSystem();
		CFTimeZoneRef tz = CFTimeZoneCopySystem();
		const char *id = CFStringGetCStringPtr(CFTimeZoneGetName(tz), kCFStringEncodingUTF8);
		char *name = NULL;
		if (id != NULL) {
			name = strdup(id);
		}
		CFRelease(tz);
		return name;
	}
}
*/
import "C"

import (
	"errors"
	"sync"
	"time"
	"unsafe"
)

// Dynamic is a handle to obtain the current local timezone from the
// system timezone settings. This allows a long running watcher to follow
// timezone changes made while it is running. It is safe for concurrent
// use.
type Dynamic struct {
	mu   sync.Mutex
	last *time.Location
}

// NewDynamic returns a Dynamic for the current system local timezone.
func NewDynamic() (*Dynamic, error) {
	return &Dynamic{}, nil
}

// Location returns the current system local timezone. If the timezone
// cannot be obtained, the last successfully obtained location is
// returned, or time.Local if there is none, with a non-nil error.
func (d *Dynamic) Location() (*time.Location, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	tz := C.currentTimezone()
	if tz == nil {
		return d.fallback(), errors.New("could not get current timezone")
	}
	name := C.GoString(tz)
	C.free(unsafe.Pointer(tz))
	loc, err := time.LoadLocation(name)
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

// Close is a no-op.
func (*Dynamic) Close() error {
	return nil
}
