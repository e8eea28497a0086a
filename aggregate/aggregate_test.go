// Copyright ©2024 Dan Kortschak. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package aggregate

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/kortschak/t/calendar"
	"github.com/kortschak/t/internal/localtime"
	"github.com/kortschak/t/timelog"
)

func date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

var summarizeTests = []struct {
	name string
	log  string
	want []Summary[int]
}{
	{
		name: "empty",
		want: nil,
	},
	{
		name: "single_day",
		log: `2013-09-04 10:45,2013-09-04 11:04
2013-09-04 11:04,2013-09-04 11:16
2013-09-04 11:16,2013-09-04 11:26
`,
		want: []Summary[int]{
			{
				Start:    date(2013, 9, 1),
				Minutes:  41,
				Segments: 3,
				Stats: &Stats[int]{
					Min: 10, Mean: 13, Max: 19, StdDev: 4,
					Sparks: [][]int{{6, 4, 3}},
				},
			},
		},
	},
	{
		name: "typical",
		log: `2013-08-01 10:45,2013-08-01 11:15
2013-08-02 10:15,2013-08-02 10:44
2013-08-11 10:45,2013-08-11 11:46
2013-08-22 10:45,2013-08-22 11:47
2013-08-22 23:49,2013-08-23 00:02
2013-08-31 10:45,2013-08-31 11:48
2013-09-04 10:45,2013-09-04 11:04
2013-09-04 11:04,2013-09-04 11:16
2013-09-04 11:16,2013-09-04 11:26
2013-09-05 11:26,2013-09-05 11:39
2013-09-05 11:39,2013-09-05 11:49
`,
		want: []Summary[int]{
			{
				Start:    date(2013, 7, 28),
				Minutes:  59,
				Segments: 2,
				Stats: &Stats[int]{
					Min: 29, Mean: 29, Max: 30, StdDev: 1,
					Sparks: [][]int{{6}, {6}},
				},
			},
			{
				Start: date(2013, 8, 4),
			},
			{
				Start:    date(2013, 8, 11),
				Minutes:  61,
				Segments: 1,
			},
			{
				// The interval spanning midnight
				// has a segment in each day.
				Start:    date(2013, 8, 18),
				Minutes:  75,
				Segments: 3,
				Stats: &Stats[int]{
					Min: 2, Mean: 25, Max: 62, StdDev: 32,
					Sparks: [][]int{{6, 1}, {0}},
				},
			},
			{
				Start:    date(2013, 8, 25),
				Minutes:  63,
				Segments: 1,
			},
			{
				Start:    date(2013, 9, 1),
				Minutes:  64,
				Segments: 5,
				Stats: &Stats[int]{
					Min: 10, Mean: 12, Max: 19, StdDev: 3,
					Sparks: [][]int{{6, 4, 3}, {4, 3}},
				},
			},
		},
	},
	{
		name: "single_segment_across_week",
		log: `2013-08-31 23:00,2013-09-01 00:30
`,
		want: []Summary[int]{
			{
				Start:    date(2013, 8, 25),
				Minutes:  60,
				Segments: 1,
			},
			{
				Start:    date(2013, 9, 1),
				Minutes:  30,
				Segments: 1,
			},
		},
	},
}

var sparks = []int{0, 1, 2, 3, 4, 5, 6}

func TestSummarize(t *testing.T) {
	for _, test := range summarizeTests {
		t.Run(test.name, func(t *testing.T) {
			recs, err := timelog.Parse([]byte(test.log), localtime.Fixed{})
			if err != nil {
				t.Fatalf("unexpected error parsing log: %v", err)
			}
			parts := calendar.Partition(timelog.Intervals(recs), calendar.Week, time.Time{}, time.UTC)
			got := Summarize(parts, sparks)
			if !cmp.Equal(test.want, got) {
				t.Errorf("unexpected result:\n--- want:\n+++ got:\n%s", cmp.Diff(test.want, got))
			}
		})
	}
}

func TestSummarizeNoSparks(t *testing.T) {
	recs, err := timelog.Parse([]byte("2013-09-04 10:45,2013-09-04 11:04\n2013-09-05 11:26,2013-09-05 11:39\n"), localtime.Fixed{})
	if err != nil {
		t.Fatalf("unexpected error parsing log: %v", err)
	}
	parts := calendar.Partition(timelog.Intervals(recs), calendar.Week, time.Time{}, time.UTC)
	got := Summarize[rune](parts, nil)
	want := []Summary[rune]{{
		Start:    date(2013, 9, 1),
		Minutes:  32,
		Segments: 2,
		Stats:    &Stats[rune]{Min: 13, Mean: 16, Max: 19, StdDev: 4},
	}}
	if !cmp.Equal(want, got) {
		t.Errorf("unexpected result:\n--- want:\n+++ got:\n%s", cmp.Diff(want, got))
	}
}

func TestSummarizeOpen(t *testing.T) {
	recs, err := timelog.Parse([]byte("2013-09-04 09:00,2013-09-04 10:00\n2013-09-04 11:04\n"), localtime.Fixed{})
	if err != nil {
		t.Fatalf("unexpected error parsing log: %v", err)
	}
	now := time.Date(2013, 9, 4, 11, 45, 0, 0, time.UTC)
	parts := calendar.Partition(timelog.Intervals(recs), calendar.Week, now, time.UTC)
	got := Summarize(parts, sparks)
	want := []Summary[int]{{
		Start:    date(2013, 9, 1),
		Minutes:  101,
		Segments: 2,
		Stats: &Stats[int]{
			Min: 41, Mean: 50, Max: 60, StdDev: 13,
			Sparks: [][]int{{6, 4}},
		},
	}}
	if !cmp.Equal(want, got) {
		t.Errorf("unexpected result:\n--- want:\n+++ got:\n%s", cmp.Diff(want, got))
	}
}

func TestSpark(t *testing.T) {
	sparks := []rune("abcdefg")
	for _, test := range []struct {
		m    int
		want rune
	}{
		{0, 'a'}, {45, 'a'},
		{46, 'b'}, {91, 'b'},
		{92, 'c'}, {137, 'c'},
		{138, 'd'}, {183, 'd'},
		{184, 'e'}, {229, 'e'},
		{230, 'f'}, {275, 'f'},
		{276, 'g'}, {321, 'g'},
		{322, 'g'},
	} {
		got := Spark(test.m, 322, sparks)
		if got != test.want {
			t.Errorf("unexpected spark for %d/322: got:%c want:%c", test.m, got, test.want)
		}
	}
}

func TestIsqrt(t *testing.T) {
	for n := range 10000 {
		got := isqrt(n)
		if got*got > n || (got+1)*(got+1) <= n {
			t.Errorf("unexpected square root of %d: %d", n, got)
		}
	}
}

func TestDaily(t *testing.T) {
	recs, err := timelog.Parse([]byte("2013-11-16 00:00,2013-11-17 09:20\n"), localtime.Fixed{})
	if err != nil {
		t.Fatalf("unexpected error parsing log: %v", err)
	}
	var got [][]int
	for b := range calendar.Partition(timelog.Intervals(recs), calendar.Week, time.Time{}, time.UTC).All() {
		got = append(got, Daily(b, time.Time{}))
	}
	want := [][]int{
		{0, 0, 0, 0, 0, 0, 1440},
		{560, 0, 0, 0, 0, 0, 0},
	}
	if !cmp.Equal(want, got) {
		t.Errorf("unexpected result:\n--- want:\n+++ got:\n%s", cmp.Diff(want, got))
	}
}
