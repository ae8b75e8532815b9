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

	_ "github.com/go-sql-driver/mysql" // registers the "mysql" driver
)

// MySQL is the dialect of the production target database.
type MySQL struct{}

var _ Dialect = MySQL{}

func (MySQL) Driver() string { return "mysql" }

func mysqlQuote(ident string) string { return "`" + ident + "`" }

func (MySQL) TableExists(table string) (string, []interface{}) {
	query := `SELECT COUNT(*) FROM information_schema.tables
		WHERE table_schema = DATABASE() AND table_name = ?`
	return query, []interface{}{table}
}

func (MySQL) ColumnExists(table, column string) (string, []interface{}) {
	query := `SELECT COUNT(*) FROM information_schema.columns
		WHERE table_schema = DATABASE() AND table_name = ? AND column_name = ?`
	return query, []interface{}{table, column}
}

func (MySQL) CreateTable(table, pk string) string {
	return fmt.Sprintf("CREATE TABLE %s (%s BIGINT NOT NULL, PRIMARY KEY (%s))",
		mysqlQuote(table), mysqlQuote(pk), mysqlQuote(pk))
}

func (MySQL) AddColumn(table, column string) string {
	return fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s DOUBLE NULL",
		mysqlQuote(table), mysqlQuote(column))
}

func (MySQL) Upsert(table, pk string, columns []string) string {
	if len(columns) == 0 {
		// No period columns yet; the no-op assignment keeps the statement
		// valid when the row already exists.
		return fmt.Sprintf(
			"INSERT INTO %s (%s) VALUES (?) ON DUPLICATE KEY UPDATE %s = %s",
			mysqlQuote(table), mysqlQuote(pk), mysqlQuote(pk), mysqlQuote(pk))
	}
	quoted := make([]string, len(columns))
	updates := make([]string, len(columns))
	for i, c := range columns {
		quoted[i] = mysqlQuote(c)
		updates[i] = fmt.Sprintf("%s = VALUES(%s)", quoted[i], quoted[i])
	}
	return fmt.Sprintf(
		"INSERT INTO %s (%s, %s) VALUES (?%s) ON DUPLICATE KEY UPDATE %s",
		mysqlQuote(table), mysqlQuote(pk), strings.Join(quoted, ", "),
		strings.Repeat(", ?", len(columns)), strings.Join(updates, ", "))
}
