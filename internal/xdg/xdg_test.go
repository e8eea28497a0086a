// Copyright ©2023 Dan Kortschak. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package xdg

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"testing"
)

var envOrDefaultTests = []struct {
	set map[string]string

	key, def, home string

	want   string
	wantOK bool
}{
	0: {
		set: map[string]string{
			"test_HOME": "testdata/home",
			"testkey":   "testdata/home/dir",
		},
		key:  "testkey",
		def:  "testdata/global_dir",
		home: "test_HOME",

		want:   "testdata/home/dir",
		wantOK: true,
	},
	1: {
		set: map[string]string{
			"test_HOME": "testdata/home",
		},
		key:  "testkey",
		def:  "testdata/global_dir",
		home: "test_HOME",

		want:   "testdata/home/testdata/global_dir",
		wantOK: true,
	},
	2: {
		set: map[string]string{
			"test_HOME": "testdata/home",
		},
		key:  "testkey",
		def:  "",
		home: "test_HOME",

		want:   "",
		wantOK: false,
	},
	3: {
		set: map[string]string{
			"test_HOME": "testdata/home",
		},
		key:  "testkey",
		def:  "testdata/global_dir",
		home: "",

		want:   "testdata/global_dir",
		wantOK: true,
	},
	4: {
		set: map[string]string{
			"test_HOME": "testdata/home",
		},
		key:  "testkey",
		def:  "testdata/global_dir",
		home: "invalid",

		want:   "",
		wantOK: false,
	},
}

func TestEnvOrDefault(t *testing.T) {
	for i, test := range envOrDefaultTests {
		for k, v := range test.set {
			if _, ok := os.LookupEnv(k); ok {
				panic(fmt.Sprintf("already set in env: %s", k))
			}
			if k == "test_HOME" && test.home == "" {
				continue
			}
			os.Setenv(k, v)
		}

		got, gotOK := envOrDefault(test.key, test.def, test.home)
		if gotOK != test.wantOK {
			t.Errorf("unexpected ok for %d: got:%t want:%t", i, gotOK, test.wantOK)
		}
		if got != test.want {
			t.Errorf("unexpected result for %d: got:%q want:%q", i, got, test.want)
		}

		for k := range test.set {
			os.Unsetenv(k)
		}
	}
}

func TestConfig(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(home, "config"))
	t.Setenv("XDG_CONFIG_DIRS", filepath.Join(home, "global"))

	const name = "t/config.toml"
	_, err := Config(name, false)
	if !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("unexpected error for missing config: %v", err)
	}

	dir, ok := ConfigHome()
	if !ok {
		t.Fatal("no config home")
	}
	want := filepath.Join(dir, name)
	err = os.MkdirAll(filepath.Dir(want), 0o755)
	if err != nil {
		t.Fatalf("failed to make config dir: %v", err)
	}
	err = os.WriteFile(want, nil, 0o644)
	if err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	got, err := Config(name, true)
	if err != nil {
		t.Fatalf("unexpected error finding config: %v", err)
	}
	if got != want {
		t.Errorf("unexpected config path: got:%q want:%q", got, want)
	}
}
