// Copyright ©2024 Dan Kortschak. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package store

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"github.com/kortschak/t/internal/localtime"
	"github.com/kortschak/t/timelog"
)

var (
	at1104 = localtime.At(2013, 9, 4, 11, 4, -240)
	at1145 = localtime.At(2013, 9, 4, 11, 45, -240)
)

func newLog(t *testing.T, data string, clock localtime.Fixed) *Log {
	t.Helper()
	path := filepath.Join(t.TempDir(), "t.csv")
	if data != "" {
		err := os.WriteFile(path, []byte(data), 0o644)
		if err != nil {
			t.Fatalf("failed to write log: %v", err)
		}
	}
	return Open(path, clock, clock, nil)
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read log: %v", err)
	}
	return string(b)
}

func TestMissing(t *testing.T) {
	l := newLog(t, "", at1104)
	recs, err := l.ReadAll()
	if err != nil {
		t.Errorf("unexpected error reading all: %v", err)
	}
	if recs != nil {
		t.Errorf("unexpected records: %v", recs)
	}
	recs, err = l.ReadTail(5)
	if err != nil {
		t.Errorf("unexpected error reading tail: %v", err)
	}
	if recs != nil {
		t.Errorf("unexpected records: %v", recs)
	}
	_, err = l.Stop()
	if !errors.Is(err, ErrNoInterval) {
		t.Errorf("unexpected error stopping: got:%v want:%v", err, ErrNoInterval)
	}
	if _, err := os.Stat(l.Path()); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("unexpected log file after failed stop: %v", err)
	}
}

var mutateTests = []struct {
	name  string
	data  string
	clock localtime.Fixed
	op    string

	wantElapsed int
	wantRunning bool
	wantStopped Stopped
	wantErr     string
	want        string
}{
	{
		name:  "start_new",
		clock: at1104,
		op:    "start",
		want:  "2013-09-04 11:04 -0400\n",
	},
	{
		name:  "start_append",
		data:  "2013-09-03 09:00,2013-09-03 10:00\n",
		clock: at1104,
		op:    "start",
		want:  "2013-09-03 09:00,2013-09-03 10:00\n2013-09-04 11:04 -0400\n",
	},
	{
		name:  "start_no_final_newline",
		data:  "2013-09-03 09:00,2013-09-03 10:00",
		clock: at1104,
		op:    "start",
		want:  "2013-09-03 09:00,2013-09-03 10:00\n2013-09-04 11:04 -0400\n",
	},
	{
		name:  "start_after_note",
		data:  "2013-09-03 09:00,2013-09-03 10:00\n#done for the day",
		clock: at1104,
		op:    "start",
		want:  "2013-09-03 09:00,2013-09-03 10:00\n#done for the day\n2013-09-04 11:04 -0400\n",
	},
	{
		name:  "start_trailing_blank_lines",
		data:  "2013-09-03 09:00,2013-09-03 10:00\n\n\n",
		clock: at1104,
		op:    "start",
		want:  "2013-09-03 09:00,2013-09-03 10:00\n2013-09-04 11:04 -0400\n",
	},
	{
		name:        "start_running",
		data:        "2013-09-04 11:04 -0400\n",
		clock:       at1145,
		op:          "start",
		wantElapsed: 41,
		wantRunning: true,
		want:        "2013-09-04 11:04 -0400\n",
	},
	{
		name:    "start_open_not_last",
		data:    "2013-09-04 11:04 -0400\n#note\n",
		clock:   at1145,
		op:      "start",
		wantErr: "record 0 at offset 0 (2013-09-04 11:04 -0400): open interval followed by 1 records",
		want:    "2013-09-04 11:04 -0400\n#note\n",
	},
	{
		name:        "stop",
		data:        "2013-09-04 11:04 -0400\n",
		clock:       at1145,
		op:          "stop",
		wantStopped: Stopped{Closed: true, Minutes: 41},
		want:        "2013-09-04 11:04 -0400,2013-09-04 11:45 -0400\n",
	},
	{
		name:        "stop_implied",
		data:        "2013-09-03 09:00,2013-09-03 10:00\n2013-09-04 11:04,\n",
		clock:       at1145,
		op:          "stop",
		wantStopped: Stopped{Closed: true, Minutes: 41},
		want:        "2013-09-03 09:00,2013-09-03 10:00\n2013-09-04 11:04,2013-09-04 11:45 -0400\n",
	},
	{
		name:        "stop_trailing_blank_lines",
		data:        "2013-09-04 11:04 -0400\n\n\n",
		clock:       at1145,
		op:          "stop",
		wantStopped: Stopped{Closed: true, Minutes: 41},
		want:        "2013-09-04 11:04 -0400,2013-09-04 11:45 -0400\n",
	},
	{
		name:        "stop_no_final_newline",
		data:        "2013-09-03 09:00,2013-09-03 10:00\n2013-09-04 11:04 -0400",
		clock:       at1145,
		op:          "stop",
		wantStopped: Stopped{Closed: true, Minutes: 41},
		want:        "2013-09-03 09:00,2013-09-03 10:00\n2013-09-04 11:04 -0400,2013-09-04 11:45 -0400\n",
	},
	{
		name:        "stop_indented",
		data:        "2013-09-03 09:00,2013-09-03 10:00\n  \t2013-09-04 11:04 -0400\n",
		clock:       at1145,
		op:          "stop",
		wantStopped: Stopped{Closed: true, Minutes: 41},
		want:        "2013-09-03 09:00,2013-09-03 10:00\n2013-09-04 11:04 -0400,2013-09-04 11:45 -0400\n",
	},
	{
		name:        "stop_indented_first",
		data:        "  2013-09-04 11:04 -0400\n",
		clock:       at1145,
		op:          "stop",
		wantStopped: Stopped{Closed: true, Minutes: 41},
		want:        "2013-09-04 11:04 -0400,2013-09-04 11:45 -0400\n",
	},
	{
		name:    "stop_before_start",
		data:    "2013-09-04 11:45 -0400\n",
		clock:   at1104,
		op:      "stop",
		wantErr: "record 0 at offset 0 (2013-09-04 11:45 -0400): stop 2013-09-04 11:04 -0400 is before start",
		want:    "2013-09-04 11:45 -0400\n",
	},
	{
		name:        "stop_stopped",
		data:        "2013-09-04 10:00 -0400,2013-09-04 11:04 -0400\n",
		clock:       at1145,
		op:          "stop",
		wantStopped: Stopped{Minutes: 41},
		want:        "2013-09-04 10:00 -0400,2013-09-04 11:04 -0400\n",
	},
	{
		name:    "stop_no_interval",
		data:    "#nothing yet\n",
		clock:   at1145,
		op:      "stop",
		wantErr: ErrNoInterval.Error(),
		want:    "#nothing yet\n",
	},
	{
		name:    "stop_open_not_last",
		data:    "2013-09-04 11:04 -0400\n#note\n#another\n",
		clock:   at1145,
		op:      "stop",
		wantErr: "record 0 at offset 0 (2013-09-04 11:04 -0400): open interval followed by 2 records",
		want:    "2013-09-04 11:04 -0400\n#note\n#another\n",
	},
	{
		name:    "malformed",
		data:    "2013-09-04 11:04 -0400\nnot a record\n",
		clock:   at1145,
		op:      "stop",
		wantErr: "line 2, col 1: expected a digit or '#' but got 'n'",
		want:    "2013-09-04 11:04 -0400\nnot a record\n",
	},
}

func TestMutate(t *testing.T) {
	for _, test := range mutateTests {
		t.Run(test.name, func(t *testing.T) {
			l := newLog(t, test.data, test.clock)

			var err error
			switch test.op {
			case "start":
				var (
					elapsed int
					running bool
				)
				elapsed, running, err = l.Start()
				if elapsed != test.wantElapsed || running != test.wantRunning {
					t.Errorf("unexpected start result: got:(%d, %t) want:(%d, %t)",
						elapsed, running, test.wantElapsed, test.wantRunning)
				}
			case "stop":
				var stopped Stopped
				stopped, err = l.Stop()
				if stopped != test.wantStopped {
					t.Errorf("unexpected stop result: got:%+v want:%+v", stopped, test.wantStopped)
				}
			default:
				t.Fatalf("invalid op: %s", test.op)
			}
			if (err == nil) != (test.wantErr == "") || (err != nil && err.Error() != test.wantErr) {
				t.Errorf("unexpected error: got:%v want:%s", err, test.wantErr)
			}

			got := readFile(t, l.Path())
			if got != test.want {
				t.Errorf("unexpected log:\n--- want:\n+++ got:\n%s", cmp.Diff(test.want, got))
			}
		})
	}
}

func TestStartStop(t *testing.T) {
	path := filepath.Join(t.TempDir(), "t.csv")
	for i := range 5 {
		start := localtime.At(2013, 9, 2+i, 9, 0, 600)
		stop := localtime.At(2013, 9, 2+i, 17, 30, 600)

		_, running, err := Open(path, start, start, nil).Start()
		if err != nil {
			t.Fatalf("unexpected error starting day %d: %v", i, err)
		}
		if running {
			t.Fatalf("unexpected running interval on day %d", i)
		}
		got, err := Open(path, stop, stop, nil).Stop()
		if err != nil {
			t.Fatalf("unexpected error stopping day %d: %v", i, err)
		}
		want := Stopped{Closed: true, Minutes: 510}
		if got != want {
			t.Errorf("unexpected stop result on day %d: got:%+v want:%+v", i, got, want)
		}
	}

	recs, err := Open(path, at1104, at1104, nil).ReadAll()
	if err != nil {
		t.Fatalf("unexpected error reading log: %v", err)
	}
	if len(recs) != 5 {
		t.Errorf("unexpected number of records: got:%d want:5", len(recs))
	}
	if errs := timelog.Validate(recs); errs != nil {
		t.Errorf("unexpected validation errors: %v", errs)
	}
}

func TestReadTail(t *testing.T) {
	var buf strings.Builder
	for i := range 1000 {
		day := time.Date(2013, 1, 1+i/4, 0, 0, 0, 0, time.UTC).Format("2006-01-02")
		switch i % 4 {
		case 0:
			fmt.Fprintf(&buf, "%[1]s 09:00,%[1]s 12:00\n", day)
		case 1:
			fmt.Fprintf(&buf, "#lunch %d\n", i)
		case 2:
			fmt.Fprintf(&buf, "%[1]s 13:00 +1000,%[1]s 17:30 +1000\n", day)
		case 3:
			buf.WriteString("\n")
		}
	}
	l := newLog(t, buf.String(), at1104)

	all, err := l.ReadAll()
	if err != nil {
		t.Fatalf("unexpected error reading all: %v", err)
	}
	if len(all) != 750 {
		t.Fatalf("unexpected number of records: got:%d want:750", len(all))
	}
	for _, n := range []int{0, 1, 2, 7, 8, 100, 749, 750, 751, 2000} {
		got, err := l.ReadTail(n)
		if err != nil {
			t.Fatalf("unexpected error reading tail %d: %v", n, err)
		}
		if len(got) < min(n, len(all)) {
			t.Errorf("too few records for tail %d: %d", n, len(got))
		}
		want := all[len(all)-len(got):]
		if !cmp.Equal(want, got, cmpopts.EquateEmpty()) {
			t.Errorf("unexpected tail %d:\n--- want:\n+++ got:\n%s", n, cmp.Diff(want, got))
		}
	}
}

func TestLastAfterNotes(t *testing.T) {
	var buf strings.Builder
	buf.WriteString("2013-09-04 09:00 -0400,2013-09-04 10:00 -0400\n")
	for i := range 100 {
		fmt.Fprintf(&buf, "#note %d\n", i)
	}
	data := buf.String()
	l := newLog(t, data, at1145)

	last, err := l.Last()
	if err != nil {
		t.Fatalf("unexpected error reading last: %v", err)
	}
	if i := timelog.LastInterval(last); i < 0 {
		t.Errorf("no interval in last %d records", len(last))
	} else if last[i].Interval.IsOpen() {
		t.Errorf("unexpected open interval: %v", last[i])
	}

	got, err := l.Stop()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := Stopped{Minutes: 105}
	if got != want {
		t.Errorf("unexpected stop result: got:%+v want:%+v", got, want)
	}

	_, _, err = l.Start()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	gotLog := readFile(t, l.Path())
	wantLog := data + "2013-09-04 11:45 -0400\n"
	if gotLog != wantLog {
		t.Errorf("unexpected log:\n--- want:\n+++ got:\n%s", cmp.Diff(wantLog, gotLog))
	}
}
