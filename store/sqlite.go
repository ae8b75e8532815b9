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

package store

import (
	"fmt"
	"strings"

	_ "github.com/mattn/go-sqlite3" // registers the "sqlite3" driver
)

// SQLite dialect, used for local runs and in tests.
type SQLite struct{}

var _ Dialect = SQLite{}

func (SQLite) Driver() string { return "sqlite3" }

func sqliteQuote(ident string) string { return `"` + ident + `"` }

func (SQLite) TableExists(table string) (string, []interface{}) {
	return `SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = ?`,
		[]interface{}{table}
}

func (SQLite) ColumnExists(table, column string) (string, []interface{}) {
	return `SELECT COUNT(*) FROM pragma_table_info(?) WHERE name = ?`,
		[]interface{}{table, column}
}

func (SQLite) CreateTable(table, pk string) string {
	return fmt.Sprintf("CREATE TABLE %s (%s INTEGER NOT NULL, PRIMARY KEY (%s))",
		sqliteQuote(table), sqliteQuote(pk), sqliteQuote(pk))
}

func (SQLite) AddColumn(table, column string) string {
	return fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s REAL",
		sqliteQuote(table), sqliteQuote(column))
}

func (SQLite) Upsert(table, pk string, columns []string) string {
	if len(columns) == 0 {
		return fmt.Sprintf(
			"INSERT INTO %s (%s) VALUES (?) ON CONFLICT (%s) DO NOTHING",
			sqliteQuote(table), sqliteQuote(pk), sqliteQuote(pk))
	}
	quoted := make([]string, len(columns))
	updates := make([]string, len(columns))
	for i, c := range columns {
		quoted[i] = sqliteQuote(c)
		updates[i] = fmt.Sprintf("%s = excluded.%s", quoted[i], quoted[i])
	}
	return fmt.Sprintf(
		"INSERT INTO %s (%s, %s) VALUES (?%s) ON CONFLICT (%s) DO UPDATE SET %s",
		sqliteQuote(table), sqliteQuote(pk), strings.Join(quoted, ", "),
		strings.Repeat(", ?", len(columns)), sqliteQuote(pk),
		strings.Join(updates, ", "))
}
