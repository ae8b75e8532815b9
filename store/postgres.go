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

	_ "github.com/jackc/pgx/v5/stdlib" // registers the "pgx" driver
)

// Postgres dialect, served through the pgx stdlib driver.
type Postgres struct{}

var _ Dialect = Postgres{}

func (Postgres) Driver() string { return "pgx" }

func pgQuote(ident string) string { return `"` + ident + `"` }

func (Postgres) TableExists(table string) (string, []interface{}) {
	query := `SELECT COUNT(*) FROM information_schema.tables
		WHERE table_schema = current_schema() AND table_name = $1`
	return query, []interface{}{table}
}

func (Postgres) ColumnExists(table, column string) (string, []interface{}) {
	query := `SELECT COUNT(*) FROM information_schema.columns
		WHERE table_schema = current_schema() AND table_name = $1 AND column_name = $2`
	return query, []interface{}{table, column}
}

func (Postgres) CreateTable(table, pk string) string {
	return fmt.Sprintf("CREATE TABLE %s (%s BIGINT NOT NULL, PRIMARY KEY (%s))",
		pgQuote(table), pgQuote(pk), pgQuote(pk))
}

func (Postgres) AddColumn(table, column string) string {
	return fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s DOUBLE PRECISION",
		pgQuote(table), pgQuote(column))
}

func (Postgres) Upsert(table, pk string, columns []string) string {
	if len(columns) == 0 {
		return fmt.Sprintf(
			"INSERT INTO %s (%s) VALUES ($1) ON CONFLICT (%s) DO NOTHING",
			pgQuote(table), pgQuote(pk), pgQuote(pk))
	}
	quoted := make([]string, len(columns))
	places := make([]string, len(columns))
	updates := make([]string, len(columns))
	for i, c := range columns {
		quoted[i] = pgQuote(c)
		places[i] = fmt.Sprintf("$%d", i+2)
		updates[i] = fmt.Sprintf("%s = EXCLUDED.%s", quoted[i], quoted[i])
	}
	return fmt.Sprintf(
		"INSERT INTO %s (%s, %s) VALUES ($1, %s) ON CONFLICT (%s) DO UPDATE SET %s",
		pgQuote(table), pgQuote(pk), strings.Join(quoted, ", "),
		strings.Join(places, ", "), pgQuote(pk), strings.Join(updates, ", "))
}
