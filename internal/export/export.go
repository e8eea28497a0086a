// Copyright ©2024 Dan Kortschak. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package export provides export of log records to SQL databases.
//
// Records are written to a table named records with the columns
//
//	pos         the index of the record in the log
//	start_time  the start of an interval
//	stop_time   the end of an interval, null if it is open
//	minutes     the length of a closed interval
//	note        the text of an annotation
//
// Each export replaces the contents of the table.
package export

import (
	"context"
	"database/sql"
	"errors"
	"net/url"
	"time"

	"github.com/kortschak/t/timelog"
)

// Row is an exported log record. Annotations have a nil Start, Stop and
// Minutes, and intervals have a nil Note.
type Row struct {
	Pos     int64
	Start   *time.Time
	Stop    *time.Time
	Minutes *int64
	Note    *string
}

// Rows returns the export rows for recs.
func Rows(recs []timelog.Record) []Row {
	rows := make([]Row, len(recs))
	for i, r := range recs {
		rows[i].Pos = int64(i)
		if r.Interval == nil {
			note := r.Note
			rows[i].Note = &note
			continue
		}
		start := r.Interval.Start.Time()
		rows[i].Start = &start
		if r.Interval.Stop != nil {
			stop := r.Interval.Stop.Time()
			minutes := int64(stop.Sub(start) / time.Minute)
			rows[i].Stop = &stop
			rows[i].Minutes = &minutes
		}
	}
	return rows
}

// DB is an export destination.
type DB interface {
	// Replace replaces the exported records with rows.
	Replace(ctx context.Context, rows []Row) error
	// Rows returns the exported records in log order.
	Rows(ctx context.Context) ([]Row, error)
	// Name returns the name of the database with
	// any password redacted.
	Name() string
	Close(ctx context.Context) error
}

// Open opens the database with the provided name, creating the records
// table if it does not exist. Names with a postgres or postgresql URL
// scheme are opened as PostgreSQL databases and all other names are
// opened as SQLite files.
func Open(ctx context.Context, name string) (DB, error) {
	u, err := url.Parse(name)
	if err == nil {
		switch u.Scheme {
		case "postgres", "postgresql":
			return OpenPostgres(ctx, name)
		}
	}
	return OpenSQLite(ctx, name)
}

func txDone(tx *sql.Tx, err *error) {
	if *err == nil {
		*err = tx.Commit()
	} else {
		*err = errors.Join(*err, tx.Rollback())
	}
}
