// Copyright ©2024 Dan Kortschak. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package watch provides notification of semantic changes to a log file.
package watch

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/kortschak/t/internal/slogext"
)

// FileDebounce is the default duration we wait for the contents to have
// stabilised before reading the file after an event.
const FileDebounce = 10 * time.Millisecond

// Sum is the SHA-1 checksum of a file's contents.
type Sum [sha1.Size]byte

func (s Sum) String() string {
	return hex.EncodeToString(s[:])
}

// Change is a change to the watched file. Err is set if the file could
// not be read or the underlying watcher failed.
type Change struct {
	Event fsnotify.Event
	// Sum is the checksum of the file after a
	// write or create event. It is zero for
	// remove and rename events.
	Sum Sum
	Err error
}

// Watcher sends changes to a single file, filtering out events that do
// not alter the file's contents.
type Watcher struct {
	path     string
	debounce time.Duration
	watcher  *fsnotify.Watcher
	changes  chan<- Change

	seen bool
	last Sum

	log *slog.Logger
}

// New returns a Watcher for the file at path, sending change events on
// the changes channel once Watch is called. The directory holding the file
// is watched so that files replaced by rename are followed. The debounce
// parameter specifies how long to wait after an fsnotify.Event before
// reading the file. If it is less than zero, FileDebounce is used.
func New(path string, changes chan<- Change, debounce time.Duration, log *slog.Logger) (*Watcher, error) {
	path, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	if debounce < 0 {
		debounce = FileDebounce
	}
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	err = watcher.Add(filepath.Dir(path))
	if err != nil {
		watcher.Close()
		return nil, err
	}
	return &Watcher{
		path:     path,
		debounce: debounce,
		watcher:  watcher,
		changes:  changes,
		log:      log.With(slog.String("component", "watcher")),
	}, nil
}

// Watch sends the current state of the file and then each change to it
// until ctx is cancelled or the Watcher is closed. The initial state is
// sent as a Create event, or as a Remove event if the file does not
// exist.
func (w *Watcher) Watch(ctx context.Context) error {
	ev := fsnotify.Event{Name: w.path, Op: fsnotify.Create}
	_, err := os.Stat(w.path)
	if errors.Is(err, fs.ErrNotExist) {
		ev.Op = fsnotify.Remove
		if !w.send(ctx, Change{Event: ev}) {
			return nil
		}
	} else if !w.read(ctx, ev) {
		return nil
	}
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			if ev.Name != w.path {
				continue
			}
			switch {
			case ev.Op&(fsnotify.Write|fsnotify.Create) != 0:
				w.log.LogAttrs(ctx, slog.LevelDebug, "write", slog.String("name", ev.Name), slog.String("op", ev.Op.String()))
				time.Sleep(w.debounce)
				if !w.read(ctx, ev) {
					return nil
				}
			case ev.Op&(fsnotify.Remove|fsnotify.Rename) != 0:
				w.log.LogAttrs(ctx, slog.LevelDebug, "remove", slog.String("name", ev.Name), slog.String("op", ev.Op.String()))
				w.seen = false
				w.last = Sum{}
				if !w.send(ctx, Change{Event: ev}) {
					return nil
				}
			}
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			if !w.send(ctx, Change{Err: err}) {
				return nil
			}
		}
	}
}

// read reads the watched file and sends a change if its contents differ
// from the last seen contents. It returns false if ctx was cancelled.
func (w *Watcher) read(ctx context.Context, ev fsnotify.Event) bool {
	b, err := os.ReadFile(w.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			// The file was removed or renamed after
			// the event; the next event reports it.
			w.log.LogAttrs(ctx, slog.LevelDebug, "missing file", slog.String("name", w.path))
			return true
		}
		w.log.LogAttrs(ctx, slog.LevelError, "read file", slog.Any("error", err))
		return w.send(ctx, Change{Event: ev, Err: err})
	}
	sum := Sum(sha1.Sum(b))
	if w.seen && sum == w.last {
		w.log.LogAttrs(ctx, slog.LevelDebug, "no change", slog.Any("sum", slogext.Stringer{Stringer: sum}))
		return true
	}
	w.log.LogAttrs(ctx, slog.LevelDebug, "set hash", slog.Any("sum", slogext.Stringer{Stringer: sum}))
	w.seen = true
	w.last = sum
	return w.send(ctx, Change{Event: ev, Sum: sum})
}

func (w *Watcher) send(ctx context.Context, c Change) bool {
	select {
	case <-ctx.Done():
		return false
	case w.changes <- c:
		return true
	}
}

// Close closes the underlying fsnotify.Watcher, causing Watch to return.
func (w *Watcher) Close() error {
	return w.watcher.Close()
}
