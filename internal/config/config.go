// Copyright ©2024 Dan Kortschak. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package config provides the t configuration file loading and
// validation functions.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/kortschak/t/internal/report"
	"github.com/kortschak/t/internal/xdg"
)

// Name is the path of the configuration file relative to the XDG
// configuration directories.
const Name = "t/config.toml"

// DataFileEnv is the environment variable that overrides the configured
// data file.
const DataFileEnv = "T_DATA_FILE"

// DefaultDataFile is the data file name used relative to the user's home
// directory when no data file is configured.
const DefaultDataFile = ".t.csv"

// Config is a t configuration.
type Config struct {
	// DataFile is the path to the log file.
	DataFile string `json:"data_file,omitempty" toml:"data_file"`
	// Sparks are the sparkline symbols used by the
	// all report, from shortest to longest.
	Sparks []string `json:"sparks,omitempty" toml:"sparks"`
	// FullWeek is the number of minutes in a week
	// without paid time off.
	FullWeek int           `json:"full_week,omitempty" toml:"full_week"`
	Words    *report.Words `json:"words,omitempty" toml:"words"`
	// DynamicTimezone specifies that timestamps without
	// an offset are resolved in the system's current
	// timezone rather than the process's start-up
	// timezone.
	DynamicTimezone bool   `json:"dynamic_timezone,omitempty" toml:"dynamic_timezone"`
	LogLevel        string `json:"log_level,omitempty" toml:"log_level"`
}

// schema is the schema for a valid configuration.
const schema = `
{
	data_file?:        string & !=""
	sparks?:           [string, ...string]
	full_week?:        int & >0 & <=10080
	words?:            _#words
	dynamic_timezone?: bool
	log_level?:        _#log_level
}

_#words: {
	noun?:    string
	present?: string
	past?:    string
}

_#log_level: =~"(?i)^(?:debug|info|warn|error)$"
`

// Load reads and validates the configuration file at path. If path is
// empty, the file is looked for in the XDG configuration directories and
// a missing file results in the zero configuration.
func Load(path string) (*Config, error) {
	if path == "" {
		var err error
		path, err = xdg.Config(Name, false)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return &Config{}, nil
			}
			return nil, err
		}
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(b)
}

// Parse returns the validated configuration held in b.
func Parse(b []byte) (*Config, error) {
	var cfg Config
	md, err := toml.Decode(string(b), &cfg)
	if err != nil {
		return nil, err
	}
	if undec := md.Undecoded(); len(undec) != 0 {
		keys := make([]string, len(undec))
		for i, k := range undec {
			keys[i] = k.String()
		}
		return nil, fmt.Errorf("unknown configuration keys: %s", strings.Join(keys, ", "))
	}
	_, err = Validate(schema, &cfg)
	if err != nil {
		return nil, err
	}
	return &cfg, nil
}

// DataPath returns the path to the log file. The DataFileEnv environment
// variable takes precedence over the configured path, and a relative
// configured path is resolved against the user's home directory. If
// neither is set, DefaultDataFile in the user's home directory is used.
func (c *Config) DataPath() (string, error) {
	if path, ok := os.LookupEnv(DataFileEnv); ok && path != "" {
		return path, nil
	}
	path := c.DataFile
	if filepath.IsAbs(path) {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	if path == "" {
		path = DefaultDataFile
	}
	return filepath.Join(home, path), nil
}

// Activity returns the configured activity words with unset words taken
// from report.DefaultWords.
func (c *Config) Activity() report.Words {
	if c.Words == nil {
		return report.DefaultWords
	}
	return c.Words.Or(report.DefaultWords)
}

// Spark returns the configured sparkline symbols, or report.DefaultSparks
// if none are configured.
func (c *Config) Spark() []string {
	if len(c.Sparks) == 0 {
		return report.DefaultSparks
	}
	return c.Sparks
}
