// Copyright ©2024 Dan Kortschak. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package text provides functions for laying out text on a terminal.
package text

import (
	"os"
	"strconv"
	"strings"

	"github.com/bbrks/wrap/v2"
)

// DefaultColumns is the width used when the terminal width is not known.
const DefaultColumns = 80

// Wrap returns text broken into lines no longer than cols runes. Lines
// are broken at word boundaries where possible, and words longer than
// cols are cut. Leading and trailing space is removed from each line.
func Wrap(text string, cols int) []string {
	if cols < 1 {
		cols = DefaultColumns
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	wrapper := wrap.NewWrapper()
	wrapper.StripTrailingNewline = true
	wrapper.CutLongWords = true
	lines := strings.Split(wrapper.Wrap(text, cols), "\n")
	for i, l := range lines {
		lines[i] = strings.TrimSpace(l)
	}
	return lines
}

// Indent returns text wrapped to cols with all lines after the first
// indented by prefix. The prefix counts towards the width of the
// indented lines.
func Indent(text, prefix string, cols int) []string {
	first := Wrap(text, cols)
	if len(first) < 2 {
		return first
	}
	rest := Wrap(strings.Join(first[1:], " "), cols-len([]rune(prefix)))
	lines := make([]string, 0, 1+len(rest))
	lines = append(lines, first[0])
	for _, l := range rest {
		lines = append(lines, prefix+l)
	}
	return lines
}

// Columns returns the width of the terminal attached to f. If f is not a
// terminal, the COLUMNS environment variable is used, and if that is not
// a valid width, DefaultColumns is returned.
func Columns(f *os.File) int {
	if cols, ok := termColumns(f); ok && cols > 0 {
		return cols
	}
	cols, err := strconv.Atoi(os.Getenv("COLUMNS"))
	if err != nil || cols < 1 {
		return DefaultColumns
	}
	return cols
}
