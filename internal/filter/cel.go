// Copyright ©2024 Dan Kortschak. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package filter

import (
	"context"
	"fmt"
	"log/slog"
	"reflect"
	"time"

	"github.com/google/cel-go/cel"
	"github.com/google/cel-go/common/types"
	"github.com/google/cel-go/common/types/ref"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/kortschak/t/timelog"
)

// CEL is an interval Matcher implemented by a CEL program. The program
// must evaluate to a bool and has the following variables declared:
//
//	start   timestamp  the start of the interval
//	stop    timestamp  the end of the interval, or now if it is open
//	open    bool       whether the interval is open
//	minutes int        the length of the interval in minutes
//
// # Debug
//
// The second parameter is returned unaltered and the value is logged to
// the program's logger:
//
//	debug(<string>, <dyn>) -> <dyn>
//
// Examples:
//
//	debug("len", minutes) > 60  // return minutes > 60 and logs minutes with "len".
type CEL struct {
	src string
	prg cel.Program
}

// Compile returns a CEL Matcher for the provided source. Calls to debug
// in the program are logged to log at debug level.
func Compile(src string, log *slog.Logger) (*CEL, error) {
	env, err := cel.NewEnv(
		cel.Variable("start", cel.TimestampType),
		cel.Variable("stop", cel.TimestampType),
		cel.Variable("open", cel.BoolType),
		cel.Variable("minutes", cel.IntType),
		cel.Function("debug",
			cel.Overload(
				"debug_string_dyn",
				[]*cel.Type{cel.StringType, cel.DynType},
				cel.DynType,
				cel.BinaryBinding(debug{log: log}.value),
				cel.OverloadIsNonStrict(),
			),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create env: %w", err)
	}
	ast, iss := env.Compile(src)
	if iss.Err() != nil {
		return nil, fmt.Errorf("failed compilation: %w", iss.Err())
	}
	if !ast.OutputType().IsExactType(cel.BoolType) && !ast.OutputType().IsExactType(cel.DynType) {
		return nil, fmt.Errorf("filter must be a bool expression: got %s", ast.OutputType())
	}
	prg, err := env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("failed program instantiation: %w", err)
	}
	return &CEL{src: src, prg: prg}, nil
}

// Match returns the result of evaluating the program for iv.
func (c *CEL) Match(iv timelog.Interval, now time.Time) (bool, error) {
	start := iv.Start.Time()
	stop := iv.End(now)
	out, _, err := c.prg.Eval(map[string]any{
		"start":   start,
		"stop":    stop,
		"open":    iv.IsOpen(),
		"minutes": int64(stop.Sub(start) / time.Minute),
	})
	if err != nil {
		return false, fmt.Errorf("failed eval for %s: %w", iv, err)
	}
	ok, isBool := out.(types.Bool)
	if !isBool {
		return false, fmt.Errorf("filter result for %s is not a bool: %s", iv, out.Type())
	}
	return bool(ok), nil
}

func (c *CEL) String() string {
	return c.src
}

type debug struct {
	log *slog.Logger
}

func (d debug) value(arg0, arg1 ref.Val) ref.Val {
	tag, ok := arg0.(types.String)
	if !ok {
		return types.ValOrErr(tag, "no such overload")
	}
	if d.log == nil {
		return arg1
	}
	val, err := arg1.ConvertToNative(reflect.TypeOf((*structpb.Value)(nil)))
	if err != nil {
		d.log.LogAttrs(context.Background(), slog.LevelError, "cel debug log error", slog.String("tag", string(tag)), slog.Any("error", err))
	} else {
		d.log.LogAttrs(context.Background(), slog.LevelDebug, "cel debug log", slog.String("tag", string(tag)), slog.Any("value", val))
	}
	return arg1
}
