// Copyright ©2024 Dan Kortschak. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package export

import (
	"context"
	"errors"
	"net/url"

	"github.com/jackc/pgx/v5"
)

// Postgres is a PostgreSQL export database.
type Postgres struct {
	name  string
	store *pgx.Conn
}

// PostgresSchema is the PostgreSQL export schema.
const PostgresSchema = `
create table if not exists records (
	pos        BIGINT PRIMARY KEY,
	start_time TIMESTAMP WITH TIME ZONE,
	stop_time  TIMESTAMP WITH TIME ZONE,
	minutes    BIGINT,
	note       TEXT
);
create index if not exists records_index_start_time ON records(start_time);
`

// OpenPostgres opens a PostgreSQL database. See [pgx.Connect] for name
// handling details, including the use of $PGPASSWORD and .pgpass when the
// name has no password.
func OpenPostgres(ctx context.Context, name string) (*Postgres, error) {
	u, err := url.Parse(name)
	if err != nil {
		return nil, err
	}
	db, err := pgx.Connect(ctx, name)
	if err != nil {
		return nil, err
	}
	_, err = db.Exec(ctx, PostgresSchema)
	if err != nil {
		return nil, errors.Join(err, db.Close(ctx))
	}
	return &Postgres{name: u.Redacted(), store: db}, nil
}

// Name returns the URL of the database with the password redacted.
func (db *Postgres) Name() string {
	if db == nil {
		return ""
	}
	return db.name
}

func pgTxDone(ctx context.Context, tx pgx.Tx, err *error) {
	if *err == nil {
		*err = tx.Commit(ctx)
	} else {
		*err = errors.Join(*err, tx.Rollback(ctx))
	}
}

var pgColumns = []string{"pos", "start_time", "stop_time", "minutes", "note"}

// Replace replaces the exported records with rows in a single transaction.
func (db *Postgres) Replace(ctx context.Context, rows []Row) (err error) {
	tx, err := db.store.Begin(ctx)
	if err != nil {
		return err
	}
	defer pgTxDone(ctx, tx, &err)
	_, err = tx.Exec(ctx, `delete from records`)
	if err != nil {
		return err
	}
	_, err = tx.CopyFrom(ctx, pgx.Identifier{"records"}, pgColumns,
		pgx.CopyFromSlice(len(rows), func(i int) ([]any, error) {
			r := rows[i]
			return []any{r.Pos, r.Start, r.Stop, r.Minutes, r.Note}, nil
		}),
	)
	return err
}

// Rows returns the exported records in log order.
func (db *Postgres) Rows(ctx context.Context) ([]Row, error) {
	rows, err := db.store.Query(ctx, `select pos, start_time, stop_time, minutes, note from records order by pos`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var recs []Row
	for rows.Next() {
		var r Row
		err = rows.Scan(&r.Pos, &r.Start, &r.Stop, &r.Minutes, &r.Note)
		if err != nil {
			return recs, err
		}
		recs = append(recs, r)
	}
	return recs, rows.Err()
}

// Close closes the database connection.
func (db *Postgres) Close(ctx context.Context) error {
	return db.store.Close(ctx)
}
