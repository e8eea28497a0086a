// Copyright ©2024 Dan Kortschak. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

//go:build !linux && !darwin

package localtime

import (
	"errors"
	"time"
)

// Dynamic is not supported on this platform; its Location always
// returns time.Local.
type Dynamic struct{}

// NewDynamic returns an error on this platform.
func NewDynamic() (*Dynamic, error) {
	return nil, errors.New("dynamic timezone not supported")
}

// Location returns time.Local.
func (*Dynamic) Location() (*time.Location, error) {
	return time.Local, nil
}

// Close is a no-op.
func (*Dynamic) Close() error {
	return nil
}
