// Copyright ©2024 Dan Kortschak. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package export

import (
	"context"
	"database/sql"
	"errors"
	"net/url"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

// SQLite is an SQLite export database.
type SQLite struct {
	name  string
	mu    sync.Mutex
	store *sql.DB
}

// SQLiteSchema is the SQLite export schema.
const SQLiteSchema = `
create table if not exists records (
	pos        INTEGER PRIMARY KEY,
	start_time TEXT,    -- RFC3339
	stop_time  TEXT,    -- RFC3339
	minutes    INTEGER,
	note       TEXT
) STRICT;
create index if not exists records_index_start_time ON records(start_time);
`

// OpenSQLite opens an SQLite database, creating it if necessary. See
// https://pkg.go.dev/modernc.org/sqlite#Driver.Open for name handling
// details. Any mode in the provided name will be ignored.
func OpenSQLite(ctx context.Context, name string) (*SQLite, error) {
	u, err := url.Parse(name)
	if err != nil {
		return nil, err
	}
	q, err := url.ParseQuery(u.RawQuery)
	if err != nil {
		return nil, err
	}
	u.Scheme = "file"
	// SQLite interprets a relative path left in u.Path
	// as absolute.
	if u.Opaque == "" {
		u.Opaque = u.Path
		u.Path = ""
	}
	q.Set("mode", "rwc")
	u.RawQuery = q.Encode()
	db, err := sql.Open("sqlite", u.String())
	if err != nil {
		return nil, err
	}
	_, err = db.ExecContext(ctx, SQLiteSchema)
	if err != nil {
		return nil, errors.Join(err, db.Close())
	}
	return &SQLite{name: u.Opaque, store: db}, nil
}

// Name returns the path of the database file.
func (db *SQLite) Name() string {
	if db == nil {
		return ""
	}
	return db.name
}

const (
	sqliteDelete = `delete from records`
	sqliteInsert = `insert into records(pos, start_time, stop_time, minutes, note) values (?, ?, ?, ?, ?)`
	sqliteSelect = `select pos, start_time, stop_time, minutes, note from records order by pos`
)

// Replace replaces the exported records with rows in a single transaction.
func (db *SQLite) Replace(ctx context.Context, rows []Row) (err error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	tx, err := db.store.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer txDone(tx, &err)
	_, err = tx.ExecContext(ctx, sqliteDelete)
	if err != nil {
		return err
	}
	stmt, err := tx.PrepareContext(ctx, sqliteInsert)
	if err != nil {
		return err
	}
	defer stmt.Close()
	for _, r := range rows {
		_, err = stmt.ExecContext(ctx, r.Pos, timeText(r.Start), timeText(r.Stop), r.Minutes, r.Note)
		if err != nil {
			return err
		}
	}
	return nil
}

// Rows returns the exported records in log order.
func (db *SQLite) Rows(ctx context.Context) ([]Row, error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	rows, err := db.store.QueryContext(ctx, sqliteSelect)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var recs []Row
	for rows.Next() {
		var (
			r           Row
			start, stop sql.NullString
		)
		err = rows.Scan(&r.Pos, &start, &stop, &r.Minutes, &r.Note)
		if err != nil {
			return recs, err
		}
		r.Start, err = parseTime(start)
		if err != nil {
			return recs, err
		}
		r.Stop, err = parseTime(stop)
		if err != nil {
			return recs, err
		}
		recs = append(recs, r)
	}
	return recs, rows.Err()
}

// Close closes the database.
func (db *SQLite) Close(_ context.Context) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	return db.store.Close()
}

func timeText(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.Format(time.RFC3339)
	return &s
}

func parseTime(s sql.NullString) (*time.Time, error) {
	if !s.Valid {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, s.String)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
