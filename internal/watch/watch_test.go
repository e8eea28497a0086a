// Copyright ©2024 Dan Kortschak. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package watch

import (
	"bytes"
	"context"
	"crypto/sha1"
	"flag"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/kortschak/t/internal/slogext"
)

var (
	verbose = flag.Bool("verbose_log", false, "print full logging")
	lines   = flag.Bool("show_lines", false, "log source code position")
)

const (
	first  = "2013-09-04 10:45,2013-09-04 11:04\n"
	second = "2013-09-04 11:16\n"
)

var operations = []struct {
	name    string
	fn      func(path string) error
	wantOp  fsnotify.Op
	wantSum *Sum
}{
	{
		name:    "initial",
		fn:      func(string) error { return nil },
		wantOp:  fsnotify.Create,
		wantSum: sum(first),
	},
	{
		name: "append",
		fn: func(path string) error {
			f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0)
			if err != nil {
				return err
			}
			_, err = f.WriteString(second)
			if err != nil {
				f.Close()
				return err
			}
			return f.Close()
		},
		wantOp:  fsnotify.Write,
		wantSum: sum(first + second),
	},
	{
		name: "no_semantic_change",
		fn: func(path string) error {
			return os.WriteFile(path, []byte(first+second), 0o644)
		},
	},
	{
		name: "other_file",
		fn: func(path string) error {
			return os.WriteFile(filepath.Join(filepath.Dir(path), "other.csv"), []byte(first), 0o644)
		},
	},
	{
		name:   "remove",
		fn:     os.Remove,
		wantOp: fsnotify.Remove,
	},
	{
		name: "recreate",
		fn: func(path string) error {
			return os.WriteFile(path, []byte(first), 0o644)
		},
		wantOp:  fsnotify.Create,
		wantSum: sum(first),
	},
	{
		name: "replace",
		fn: func(path string) error {
			tmp := path + ".tmp"
			err := os.WriteFile(tmp, []byte(second), 0o644)
			if err != nil {
				return err
			}
			return os.Rename(tmp, path)
		},
		wantOp:  fsnotify.Create,
		wantSum: sum(second),
	},
}

func sum(s string) *Sum {
	v := Sum(sha1.Sum([]byte(s)))
	return &v
}

func TestWatcher(t *testing.T) {
	var logBuf bytes.Buffer
	log := slog.New(slogext.NewJSONHandler(&logBuf, &slogext.HandlerOptions{
		Level:     slog.LevelDebug,
		AddSource: slogext.NewAtomicBool(*lines),
	}))
	defer func() {
		if *verbose {
			t.Logf("log:\n%s\n", &logBuf)
		}
	}()

	path := filepath.Join(t.TempDir(), "t.csv")
	err := os.WriteFile(path, []byte(first), 0o644)
	if err != nil {
		t.Fatalf("failed to write log: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	stream := make(chan Change)
	w, err := New(path, stream, -1, log)
	if err != nil {
		t.Fatalf("unexpected error creating watcher: %v", err)
	}
	done := make(chan error)
	go func() {
		done <- w.Watch(ctx)
	}()

	for _, op := range operations {
		err := op.fn(path)
		if err != nil {
			t.Fatalf("unexpected error running operation %q: %v", op.name, err)
		}
		timer := time.NewTimer(200 * time.Millisecond)
		var (
			got Change
			ok  bool
		)
		select {
		case <-timer.C:
		case got = <-stream:
			ok = true
			timer.Stop()
		}
		want := op.wantOp != 0
		if ok != want {
			if ok {
				t.Errorf("unexpected %q event: %+v", op.name, got)
			} else {
				t.Errorf("did not receive %q event in time", op.name)
			}
			continue
		}
		if !ok {
			continue
		}
		if got.Err != nil {
			t.Errorf("unexpected error for %q: %v", op.name, got.Err)
		}
		if filepath.Base(got.Event.Name) != "t.csv" {
			t.Errorf("unexpected file name for %q: %s", op.name, got.Event.Name)
		}
		if !got.Event.Has(op.wantOp) {
			t.Errorf("unexpected op for %q: got:%v want:%v", op.name, got.Event.Op, op.wantOp)
		}
		var wantSum Sum
		if op.wantSum != nil {
			wantSum = *op.wantSum
		}
		if got.Sum != wantSum {
			t.Errorf("unexpected sum for %q: got:%v want:%v", op.name, got.Sum, wantSum)
		}
	}

	err = w.Close()
	if err != nil {
		t.Errorf("unexpected error closing watcher: %v", err)
	}
	select {
	case err = <-done:
		if err != nil {
			t.Errorf("unexpected error from Watch: %v", err)
		}
	case <-time.After(time.Second):
		t.Error("watcher did not stop after close")
	}
}

func TestWatchMissing(t *testing.T) {
	path := filepath.Join(t.TempDir(), "t.csv")
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	stream := make(chan Change)
	w, err := New(path, stream, -1, nil)
	if err != nil {
		t.Fatalf("unexpected error creating watcher: %v", err)
	}
	defer w.Close()
	go w.Watch(ctx)

	select {
	case got := <-stream:
		if !got.Event.Has(fsnotify.Remove) {
			t.Errorf("unexpected initial op: got:%v want:%v", got.Event.Op, fsnotify.Remove)
		}
		if got.Sum != (Sum{}) {
			t.Errorf("unexpected sum for missing file: %v", got.Sum)
		}
	case <-time.After(time.Second):
		t.Fatal("did not receive initial event")
	}

	err = os.WriteFile(path, []byte(first), 0o644)
	if err != nil {
		t.Fatalf("failed to write log: %v", err)
	}
	select {
	case got := <-stream:
		if got.Sum != *sum(first) {
			t.Errorf("unexpected sum: got:%v want:%v", got.Sum, *sum(first))
		}
	case <-time.After(time.Second):
		t.Fatal("did not receive create event")
	}
}
