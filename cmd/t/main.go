// Copyright ©2024 Dan Kortschak. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// The t command is a personal work-hours log.
//
// Intervals are recorded in a plain text log file, one per line, and
// reported on by day, week, month or year. The log file is located by
// the T_DATA_FILE environment variable, the data_file configuration
// option, or defaults to ~/.t.csv.
package main

import (
	"cmp"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"maps"
	"os"
	"os/signal"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/gofrs/flock"
	"golang.org/x/sys/execabs"

	"github.com/kortschak/t/aggregate"
	"github.com/kortschak/t/calendar"
	"github.com/kortschak/t/internal/config"
	"github.com/kortschak/t/internal/export"
	"github.com/kortschak/t/internal/filter"
	"github.com/kortschak/t/internal/localtime"
	"github.com/kortschak/t/internal/report"
	"github.com/kortschak/t/internal/slogext"
	"github.com/kortschak/t/internal/text"
	"github.com/kortschak/t/internal/version"
	"github.com/kortschak/t/internal/watch"
	"github.com/kortschak/t/internal/xdg"
	"github.com/kortschak/t/store"
	"github.com/kortschak/t/timelog"
)

// Exit status codes.
const (
	success       = 0
	internalError = 1 << (iota - 1)
	invocationError
)

// nowEnv is the environment variable used to fix the current time.
// It holds an RFC 3339 timestamp.
const nowEnv = "T_NOW"

func main() { os.Exit(Main()) }

func Main() int {
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), `Usage of %s:

  %[1]s [options] <command> [arguments]

Commands:
`, os.Args[0])
		for _, name := range slices.Sorted(maps.Keys(commands)) {
			fmt.Fprintf(flag.CommandLine.Output(), "  %-9s %s\n", name, commands[name].help)
		}
		fmt.Fprintln(flag.CommandLine.Output(), "\nOptions:")
		flag.PrintDefaults()
	}
	cfgPath := flag.String("config", "", "path to the configuration file (default $XDG_CONFIG_HOME/"+config.Name+")")
	logging := flag.String("log", "", "logging level (debug, info, warn or error) (default from config or warn)")
	lines := flag.Bool("lines", false, "display source line details in logs")
	celFilter := flag.String("filter", "", "CEL expression selecting intervals for reports")
	v := flag.Bool("version", false, "print version and exit")
	flag.Parse()
	if *v {
		err := version.Fprint(os.Stdout)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			return internalError
		}
		return success
	}

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		return internalError
	}

	var level slog.LevelVar
	lvl, err := slogext.ParseLevel(cmp.Or(*logging, cfg.LogLevel), slog.LevelWarn)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		flag.Usage()
		return invocationError
	}
	level.Set(lvl)

	// log is the root logger.
	log := slog.New(slogext.GoID{Handler: slogext.NewJSONHandler(os.Stderr, &slogext.HandlerOptions{
		Level:     &level,
		AddSource: slogext.NewAtomicBool(*lines),
	})})
	// mlog is the logger for main.
	mlog := log.With(slog.String("component", "t.main"))

	if flag.NArg() == 0 {
		fmt.Println("A command (start, stop, status, today, week, all, punchcard, days, times, csv, pto, short, validate, notes, path, edit, export, watch) is required.")
		return invocationError
	}
	name := flag.Arg(0)
	cmd, ok := commands[name]
	if !ok {
		fmt.Printf("Unsupported command: %s\n", name)
		return invocationError
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	path, err := cfg.DataPath()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to find data file: %v\n", err)
		return internalError
	}
	mlog.LogAttrs(ctx, slog.LevelDebug, "data file", slog.String("path", path))

	clk, err := newClock(cfg, mlog)
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid %s: %v\n", nowEnv, err)
		return invocationError
	}
	if c, ok := clk.(io.Closer); ok {
		defer c.Close()
	}

	a := &app{
		cfg:    cfg,
		words:  cfg.Activity(),
		store:  store.Open(path, clk, clk, log),
		clock:  clk,
		stdout: os.Stdout,
		log:    mlog,
		root:   log,
	}
	if *celFilter != "" {
		m, err := filter.Compile(*celFilter, log)
		if err != nil {
			fmt.Fprintf(os.Stderr, "invalid filter: %v\n", err)
			return invocationError
		}
		a.filter = m
	}

	err = cmd.run(ctx, a, flag.Args()[1:])
	if err != nil {
		var u usageError
		switch {
		case errors.As(err, &u):
			if !errors.Is(u.err, flag.ErrHelp) {
				fmt.Fprintf(os.Stderr, "%s: %v\n", name, u.err)
			}
			return invocationError
		case errors.Is(err, errReported):
		default:
			fmt.Fprintf(os.Stderr, "%s: %v\n", name, err)
		}
		return internalError
	}
	if cmd.legend != 0 {
		err = report.Legend(os.Stdout, cmd.legend)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			return internalError
		}
	}
	return success
}

// clock is the source of the current time and the local timezone.
type clock interface {
	Location() (*time.Location, error)
	Now() time.Time
}

// dynamicClock is a clock following the system timezone.
type dynamicClock struct {
	localtime.Clock
	dyn *localtime.Dynamic
}

func (c dynamicClock) Close() error { return c.dyn.Close() }

// newClock returns the clock configured by cfg and the environment.
func newClock(cfg *config.Config, log *slog.Logger) (clock, error) {
	if now, ok := os.LookupEnv(nowEnv); ok && now != "" {
		t, err := time.Parse(time.RFC3339, now)
		if err != nil {
			return nil, err
		}
		return localtime.Fixed{Time: t}, nil
	}
	if cfg.DynamicTimezone {
		dyn, err := localtime.NewDynamic()
		if err == nil {
			return dynamicClock{Clock: localtime.Clock{Source: dyn}, dyn: dyn}, nil
		}
		log.LogAttrs(context.Background(), slog.LevelWarn, "failed to get dynamic timezone, using static", slog.Any("error", err))
	}
	return localtime.Static{}, nil
}

// app holds the state shared by commands.
type app struct {
	cfg    *config.Config
	words  report.Words
	store  *store.Log
	clock  clock
	filter filter.Matcher
	stdout io.Writer

	log  *slog.Logger // log is the logger for main.
	root *slog.Logger // root is the logger passed to components.
}

// usageError is an error in command arguments.
type usageError struct {
	err error
}

func (e usageError) Error() string { return e.err.Error() }
func (e usageError) Unwrap() error { return e.err }

// errReported is returned by commands that have already written their
// failure to the user.
var errReported = errors.New("reported")

// command is a t sub-command.
type command struct {
	run  func(ctx context.Context, a *app, args []string) error
	help string
	// legend is the period of the minutes
	// legend written after the output. If it
	// is zero, no legend is written.
	legend calendar.Period
}

var commands = map[string]command{
	"start":     {run: start, help: "start an interval"},
	"stop":      {run: stop, help: "stop the open interval"},
	"status":    {run: status, help: "show whether an interval is open [-with-week]"},
	"today":     {run: since(calendar.Day), help: "show minutes logged today", legend: calendar.Day},
	"week":      {run: since(calendar.Week), help: "show minutes logged this week", legend: calendar.Week},
	"all":       {run: all, help: "show weekly summaries [YYYY|YYYY-MM]", legend: calendar.Week},
	"punchcard": {run: punchCard, help: "show when work was done in each week [YYYY|YYYY-MM]", legend: calendar.Week},
	"days":      {run: days, help: "show daily minutes by week [YYYY|YYYY-MM]", legend: calendar.Week},
	"times":     {run: times, help: "show daily start times by week [YYYY|YYYY-MM]", legend: calendar.Week},
	"csv":       {run: csvWeeks, help: "show weekly totals as CSV [YYYY|YYYY-MM]"},
	"pto":       {run: pto, help: "show weekly paid time off [full_week_minutes]", legend: calendar.Week},
	"short":     {run: short, help: "show weekly short interval counts [limit_minutes]", legend: calendar.Week},
	"validate":  {run: validate, help: "check the log for errors"},
	"notes":     {run: notes, help: "show log annotations"},
	"path":      {run: path, help: "show the log file path"},
	"edit":      {run: edit, help: "open the log file in $EDITOR"},
	"export":    {run: exportDB, help: "export the log to a database [-db name]"},
	"watch":     {run: watchLog, help: "show status on each change to the log [-n count]"},
	"version":   {run: printVersion, help: "print version"},
}

// flags returns a flag set for the named command.
func flags(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	return fs
}

// noArgs returns a usageError if args is not empty.
func noArgs(args []string) error {
	if len(args) != 0 {
		return usageError{fmt.Errorf("unexpected arguments: %q", args)}
	}
	return nil
}

// location returns the local timezone, falling back to the runtime's
// local timezone if it cannot be determined.
func (a *app) location(ctx context.Context) *time.Location {
	loc, err := a.clock.Location()
	if err != nil {
		a.log.LogAttrs(ctx, slog.LevelWarn, "failed to get location", slog.Any("error", err))
		return time.Local
	}
	return loc
}

// records returns all the records in the log. Validation errors are
// logged but do not prevent reporting.
func (a *app) records(ctx context.Context) ([]timelog.Record, error) {
	recs, err := a.store.ReadAll()
	if err != nil {
		return nil, err
	}
	for _, e := range timelog.Validate(recs) {
		a.log.LogAttrs(ctx, slog.LevelWarn, "invalid record", slog.Any("error", e))
	}
	return recs, nil
}

// matchers returns the interval selection of the configured filter and,
// if span is not empty, the YYYY or YYYY-MM span.
func (a *app) matchers(ctx context.Context, span string) ([]filter.Matcher, error) {
	var m []filter.Matcher
	if span != "" {
		s, err := filter.ParseSpan(span, a.location(ctx))
		if err != nil {
			return nil, usageError{err}
		}
		a.log.LogAttrs(ctx, slog.LevelDebug, "span", slog.Any("span", slogext.Stringer{Stringer: s}))
		m = append(m, s)
	}
	if a.filter != nil {
		m = append(m, a.filter)
	}
	return m, nil
}

// intervals returns the intervals in the log selected by a.matchers.
func (a *app) intervals(ctx context.Context, span string, now time.Time) ([]timelog.Interval, error) {
	recs, err := a.records(ctx)
	if err != nil {
		return nil, err
	}
	m, err := a.matchers(ctx, span)
	if err != nil {
		return nil, err
	}
	return filter.Intervals(timelog.Intervals(recs), now, m...)
}

// weeks returns the weekly partitions of the selected intervals using the
// optional span argument in args.
func (a *app) weeks(ctx context.Context, args []string) (*calendar.Partitions, error) {
	if len(args) > 1 {
		return nil, usageError{fmt.Errorf("unexpected arguments: %q", args[1:])}
	}
	var span string
	if len(args) != 0 {
		span = args[0]
	}
	now := a.clock.Now()
	ivs, err := a.intervals(ctx, span, now)
	if err != nil {
		return nil, err
	}
	return calendar.Partition(ivs, calendar.Week, now, a.location(ctx)), nil
}

// intArg returns the integer value of the optional single argument in
// args, or def if args is empty.
func intArg(args []string, what string, def int) (int, error) {
	switch len(args) {
	case 0:
		return def, nil
	case 1:
		v, err := strconv.Atoi(args[0])
		if err != nil || v < 1 {
			return 0, usageError{fmt.Errorf("invalid %s: %q", what, args[0])}
		}
		return v, nil
	default:
		return 0, usageError{fmt.Errorf("unexpected arguments: %q", args[1:])}
	}
}

func start(ctx context.Context, a *app, args []string) error {
	err := noArgs(args)
	if err != nil {
		return err
	}
	elapsed, running, err := a.store.Start()
	if err != nil {
		return err
	}
	return report.Start(a.stdout, a.words, elapsed, running)
}

func stop(ctx context.Context, a *app, args []string) error {
	err := noArgs(args)
	if err != nil {
		return err
	}
	stopped, err := a.store.Stop()
	if err != nil && !errors.Is(err, store.ErrNoInterval) {
		return err
	}
	return report.Stop(a.stdout, a.words, stopped)
}

func status(ctx context.Context, a *app, args []string) error {
	fs := flags("status")
	withWeek := fs.Bool("with-week", false, "include the minutes logged this week")
	err := fs.Parse(args)
	if err != nil {
		return usageError{err}
	}
	err = noArgs(fs.Args())
	if err != nil {
		return err
	}

	var (
		recs []timelog.Record
		week *int
	)
	if *withWeek {
		recs, err = a.records(ctx)
		if err != nil {
			return err
		}
		m, err := a.matchers(ctx, "")
		if err != nil {
			return err
		}
		now := a.clock.Now()
		ivs, err := filter.Intervals(timelog.Intervals(recs), now, m...)
		if err != nil {
			return err
		}
		from := calendar.StartOf(now, calendar.Week, a.location(ctx))
		total := aggregate.MinutesBetween(ivs, from, calendar.Week.Next(from), now)
		week = &total
	} else {
		recs, err = a.store.Last()
		if err != nil {
			return err
		}
	}
	i := timelog.LastInterval(recs)
	working := i >= 0 && recs[i].Interval.IsOpen()
	return report.Status(a.stdout, a.words, working, week)
}

// since returns a command reporting the minutes logged in the current
// period of length p.
func since(p calendar.Period) func(ctx context.Context, a *app, args []string) error {
	return func(ctx context.Context, a *app, args []string) error {
		err := noArgs(args)
		if err != nil {
			return err
		}
		now := a.clock.Now()
		ivs, err := a.intervals(ctx, "", now)
		if err != nil {
			return err
		}
		from := calendar.StartOf(now, p, a.location(ctx))
		m := aggregate.MinutesBetween(ivs, from, p.Next(from), now)
		desc := "today"
		if p != calendar.Day {
			desc = "since " + from.Format(report.DateLayout)
		}
		return report.Since(a.stdout, a.words, m, desc)
	}
}

func all(ctx context.Context, a *app, args []string) error {
	parts, err := a.weeks(ctx, args)
	if err != nil {
		return err
	}
	return report.All(a.stdout, aggregate.Summarize(parts, a.cfg.Spark()))
}

func days(ctx context.Context, a *app, args []string) error {
	parts, err := a.weeks(ctx, args)
	if err != nil {
		return err
	}
	return report.Days(a.stdout, report.Table(parts))
}

func punchCard(ctx context.Context, a *app, args []string) error {
	parts, err := a.weeks(ctx, args)
	if err != nil {
		return err
	}
	return report.PunchCard(a.stdout, parts, a.cfg.Spark(), text.Columns(os.Stdout))
}

func times(ctx context.Context, a *app, args []string) error {
	parts, err := a.weeks(ctx, args)
	if err != nil {
		return err
	}
	return report.Times(a.stdout, report.Table(parts))
}

func csvWeeks(ctx context.Context, a *app, args []string) error {
	parts, err := a.weeks(ctx, args)
	if err != nil {
		return err
	}
	return report.CSV(a.stdout, parts)
}

func pto(ctx context.Context, a *app, args []string) error {
	fullWeek, err := intArg(args, "full week", cmp.Or(a.cfg.FullWeek, report.DefaultFullWeek))
	if err != nil {
		return err
	}
	parts, err := a.weeks(ctx, nil)
	if err != nil {
		return err
	}
	return report.PTO(a.stdout, a.words, parts, fullWeek)
}

// defaultShort is the default maximum length of a short interval in
// minutes.
const defaultShort = 15

func short(ctx context.Context, a *app, args []string) error {
	limit, err := intArg(args, "limit", defaultShort)
	if err != nil {
		return err
	}
	parts, err := a.weeks(ctx, nil)
	if err != nil {
		return err
	}
	return report.Short(a.stdout, parts, limit, 0)
}

func validate(ctx context.Context, a *app, args []string) error {
	err := noArgs(args)
	if err != nil {
		return err
	}
	recs, err := a.store.ReadAll()
	if err != nil {
		return err
	}
	errs := timelog.Validate(recs)
	err = report.Validation(a.stdout, errs)
	if err != nil {
		return err
	}
	if len(errs) != 0 {
		return errReported
	}
	return nil
}

func notes(ctx context.Context, a *app, args []string) error {
	err := noArgs(args)
	if err != nil {
		return err
	}
	recs, err := a.records(ctx)
	if err != nil {
		return err
	}
	cols := text.Columns(os.Stdout)
	var buf strings.Builder
	for _, n := range timelog.Notes(recs) {
		for _, l := range text.Indent(strings.TrimSpace(n), "  ", cols) {
			buf.WriteString(l)
			buf.WriteByte('\n')
		}
	}
	_, err = io.WriteString(a.stdout, buf.String())
	return err
}

func path(ctx context.Context, a *app, args []string) error {
	err := noArgs(args)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(a.stdout, a.store.Path())
	return err
}

func edit(ctx context.Context, a *app, args []string) error {
	err := noArgs(args)
	if err != nil {
		return err
	}
	editor := os.Getenv("EDITOR")
	if editor == "" {
		return errors.New("EDITOR is not set")
	}
	cmd := execabs.CommandContext(ctx, editor, a.store.Path())
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	return cmd.Run()
}

func exportDB(ctx context.Context, a *app, args []string) error {
	fs := flags("export")
	name := fs.String("db", "", "database to export to; a postgres:// URL or SQLite file path (default $XDG_STATE_HOME/t/t.sqlite3)")
	err := fs.Parse(args)
	if err != nil {
		return usageError{err}
	}
	err = noArgs(fs.Args())
	if err != nil {
		return err
	}
	if *name == "" {
		dir, err := stateDir(ctx, a.log)
		if err != nil {
			return err
		}
		*name = filepath.Join(dir, "t.sqlite3")
	}

	recs, err := a.records(ctx)
	if err != nil {
		return err
	}
	db, err := export.Open(ctx, *name)
	if err != nil {
		return err
	}
	defer db.Close(ctx)
	rows := export.Rows(recs)
	err = db.Replace(ctx, rows)
	if err != nil {
		return err
	}
	a.log.LogAttrs(ctx, slog.LevelInfo, "exported", slog.Int("records", len(rows)), slog.String("db", db.Name()))
	_, err = fmt.Fprintf(a.stdout, "Exported %d records to %s.\n", len(rows), db.Name())
	return err
}

// stateDir returns the t state directory, creating it if necessary.
func stateDir(ctx context.Context, log *slog.Logger) (string, error) {
	dir, err := xdg.State("t")
	if err == nil {
		return dir, nil
	}
	if !errors.Is(err, syscall.ENOENT) {
		return "", err
	}
	home, ok := xdg.StateHome()
	if !ok {
		return "", errors.New("no xdg state directory")
	}
	dir = filepath.Join(home, "t")
	err = os.MkdirAll(dir, 0o755)
	if err != nil {
		return "", err
	}
	log.LogAttrs(ctx, slog.LevelInfo, "created state dir", slog.String("path", dir))
	return dir, nil
}

// runtimeDir returns the t runtime directory, creating it if necessary.
// If there is no runtime directory, the state directory is used.
func runtimeDir(ctx context.Context, log *slog.Logger) (string, error) {
	dir, err := xdg.Runtime("t")
	if err == nil {
		return dir, nil
	}
	if !errors.Is(err, syscall.ENOENT) {
		return "", err
	}
	base, ok := xdg.RuntimeDir()
	if !ok {
		log.LogAttrs(ctx, slog.LevelDebug, "no xdg runtime directory")
		return stateDir(ctx, log)
	}
	dir = filepath.Join(base, "t")
	err = os.MkdirAll(dir, 0o700)
	if err != nil {
		return "", err
	}
	return dir, nil
}

func watchLog(ctx context.Context, a *app, args []string) (err error) {
	fs := flags("watch")
	n := fs.Int("n", 0, "exit after reporting n changes; zero reports until interrupted")
	err = fs.Parse(args)
	if err != nil {
		return usageError{err}
	}
	err = noArgs(fs.Args())
	if err != nil {
		return err
	}

	dir, err := runtimeDir(ctx, a.log)
	if err != nil {
		return err
	}
	pidFile := filepath.Join(dir, "watch.pid")
	fl := flock.New(pidFile)
	ok, err := fl.TryLock()
	if err != nil {
		return err
	}
	if !ok {
		return errors.New("t watch is already running")
	}
	defer func() {
		err = errors.Join(err, fl.Unlock(), os.Remove(pidFile))
	}()
	err = os.WriteFile(pidFile, []byte(fmt.Sprintln(os.Getpid())), 0o600)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	changes := make(chan watch.Change)
	w, err := watch.New(a.store.Path(), changes, -1, a.root)
	if err != nil {
		return err
	}
	defer w.Close()
	done := make(chan error, 1)
	go func() {
		done <- w.Watch(ctx)
	}()

	for seen := 0; *n <= 0 || seen < *n; {
		select {
		case err := <-done:
			return err
		case c := <-changes:
			if c.Err != nil {
				a.log.LogAttrs(ctx, slog.LevelWarn, "watch error", slog.Any("error", c.Err))
				continue
			}
			a.log.LogAttrs(ctx, slog.LevelDebug, "change", slog.String("op", c.Event.Op.String()), slog.Any("sum", slogext.Stringer{Stringer: c.Sum}))
			recs, err := a.store.Last()
			if err != nil {
				a.log.LogAttrs(ctx, slog.LevelWarn, "failed to read log", slog.Any("error", err))
				continue
			}
			i := timelog.LastInterval(recs)
			err = report.Status(a.stdout, a.words, i >= 0 && recs[i].Interval.IsOpen(), nil)
			if err != nil {
				return err
			}
			seen++
		}
	}
	cancel()
	return <-done
}

func printVersion(ctx context.Context, a *app, args []string) error {
	err := noArgs(args)
	if err != nil {
		return err
	}
	return version.Fprint(a.stdout)
}
