// Copyright 2026 StatSync

// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at

//     http://www.apache.org/licenses/LICENSE-2.0

// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package store is the relational persistence layer. It exposes exactly three
// schema/data operations - create-table-if-absent, add-column-if-absent and
// upsert-row - over MySQL, PostgreSQL or SQLite. It never drops or renames
// existing structure.
package store

import (
	"context"
	"database/sql"
	"regexp"

	"github.com/stockparfait/errors"
	"github.com/stockparfait/logging"
)

// identifierPattern restricts table and column names to characters that are
// safe to interpolate into SQL in any supported dialect.
var identifierPattern = regexp.MustCompile(`^[A-Za-z0-9_]+$`)

// ValidateIdentifier checks that a table or column name contains only
// alphanumeric characters and underscores.
func ValidateIdentifier(ident string) error {
	if !identifierPattern.MatchString(ident) {
		return errors.Reason(
			"invalid identifier '%s': only alphanumeric characters and underscores are allowed",
			ident)
	}
	return nil
}

// DB is an open connection to the relational store. It is opened once per run
// and must be closed by the caller on all paths.
type DB struct {
	db      *sql.DB
	dialect Dialect
}

// Open connects to the store using the given driver ("mysql", "pgx" or
// "sqlite3") and DSN, and verifies the connection. A connection failure here
// is fatal for the run.
func Open(ctx context.Context, driver, dsn string) (*DB, error) {
	dialect, err := dialectFor(driver)
	if err != nil {
		return nil, err
	}
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, errors.Annotate(err, "failed to open %s database", driver)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, errors.Annotate(err, "failed to connect to %s database", driver)
	}
	logging.Debugf(ctx, "connected to %s database", driver)
	return &DB{db: db, dialect: dialect}, nil
}

// Close releases the database connection.
func (d *DB) Close() error {
	return errors.Annotate(d.db.Close(), "failed to close database")
}

// queryCount runs a query expected to return a single count.
func (d *DB) queryCount(ctx context.Context, query string, args ...interface{}) (int, error) {
	var count int
	if err := d.db.QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

// TableExists checks whether the table is present in the store.
func (d *DB) TableExists(ctx context.Context, table string) (bool, error) {
	if err := ValidateIdentifier(table); err != nil {
		return false, err
	}
	query, args := d.dialect.TableExists(table)
	count, err := d.queryCount(ctx, query, args...)
	if err != nil {
		return false, errors.Annotate(err, "failed to check table '%s'", table)
	}
	return count > 0, nil
}

// ColumnExists checks whether the column is present in the table.
func (d *DB) ColumnExists(ctx context.Context, table, column string) (bool, error) {
	if err := ValidateIdentifier(table); err != nil {
		return false, err
	}
	if err := ValidateIdentifier(column); err != nil {
		return false, err
	}
	query, args := d.dialect.ColumnExists(table, column)
	count, err := d.queryCount(ctx, query, args...)
	if err != nil {
		return false, errors.Annotate(err, "failed to check column '%s.%s'", table, column)
	}
	return count > 0, nil
}

// CreateTableIfAbsent creates the table with a single primary key column if it
// does not exist yet. It reports whether the table was created. Safe to run
// repeatedly.
func (d *DB) CreateTableIfAbsent(ctx context.Context, table, pk string) (bool, error) {
	if err := ValidateIdentifier(pk); err != nil {
		return false, err
	}
	exists, err := d.TableExists(ctx, table)
	if err != nil {
		return false, err
	}
	if exists {
		return false, nil
	}
	if _, err := d.db.ExecContext(ctx, d.dialect.CreateTable(table, pk)); err != nil {
		return false, errors.Annotate(err, "failed to create table '%s'", table)
	}
	logging.Infof(ctx, "created table '%s'", table)
	return true, nil
}

// AddColumnIfAbsent adds a nullable numeric column to the table if it does not
// exist yet. It reports whether the column was added. Safe to run repeatedly.
func (d *DB) AddColumnIfAbsent(ctx context.Context, table, column string) (bool, error) {
	exists, err := d.ColumnExists(ctx, table, column)
	if err != nil {
		return false, err
	}
	if exists {
		return false, nil
	}
	if _, err := d.db.ExecContext(ctx, d.dialect.AddColumn(table, column)); err != nil {
		return false, errors.Annotate(err, "failed to add column '%s.%s'", table, column)
	}
	logging.Infof(ctx, "added column '%s' to table '%s'", column, table)
	return true, nil
}

// UpsertRow inserts or updates the row keyed by the primary key value in a
// single statement, so a concurrent reader never observes a half-written row.
// values[i] is written to columns[i]; nil values are stored as SQL NULL.
func (d *DB) UpsertRow(ctx context.Context, table, pk string, key interface{},
	columns []string, values []interface{}) error {
	if len(columns) != len(values) {
		return errors.Reason("upsert into '%s': %d columns but %d values",
			table, len(columns), len(values))
	}
	if err := ValidateIdentifier(table); err != nil {
		return err
	}
	if err := ValidateIdentifier(pk); err != nil {
		return err
	}
	for _, c := range columns {
		if err := ValidateIdentifier(c); err != nil {
			return err
		}
	}
	args := make([]interface{}, 0, len(values)+1)
	args = append(args, key)
	args = append(args, values...)
	query := d.dialect.Upsert(table, pk, columns)
	if _, err := d.db.ExecContext(ctx, query, args...); err != nil {
		return errors.Annotate(err, "failed to upsert row %v into '%s'", key, table)
	}
	return nil
}

// QueryRow exposes a single-row query on the underlying connection, primarily
// for run verification and tests.
func (d *DB) QueryRow(ctx context.Context, query string, args ...interface{}) *sql.Row {
	return d.db.QueryRowContext(ctx, query, args...)
}
