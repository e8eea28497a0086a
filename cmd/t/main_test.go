// Copyright ©2024 Dan Kortschak. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"flag"
	"os"
	"path/filepath"
	"testing"

	"github.com/rogpeppe/go-internal/testscript"
)

var (
	update = flag.Bool("update", false, "update tests")
	keep   = flag.Bool("keep", false, "keep $WORK directory after tests")
)

func TestMain(m *testing.M) {
	os.Exit(testscript.RunMain(m, map[string]func() int{
		"t": Main,
	}))
}

func TestScripts(t *testing.T) {
	t.Parallel()

	p := testscript.Params{
		Dir:           filepath.Join("testdata"),
		UpdateScripts: *update,
		TestWork:      *keep,
		Setup: func(e *testscript.Env) error {
			for k, v := range map[string]string{
				"HOME":            filepath.Join(e.WorkDir, "home"),
				"XDG_CONFIG_HOME": filepath.Join(e.WorkDir, "config"),
				"XDG_CONFIG_DIRS": filepath.Join(e.WorkDir, "none"),
				"XDG_STATE_HOME":  filepath.Join(e.WorkDir, "state"),
				"XDG_RUNTIME_DIR": filepath.Join(e.WorkDir, "run"),
				"T_DATA_FILE":     filepath.Join(e.WorkDir, "t.csv"),
				"T_NOW":           "2013-10-02T09:45:00Z",
				"COLUMNS":         "40",
			} {
				e.Setenv(k, v)
			}
			return nil
		},
	}
	testscript.Run(t, p)
}
