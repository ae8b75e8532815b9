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
	"github.com/stockparfait/errors"
)

// Dialect generates the SQL for one database engine. Identifiers interpolated
// into the generated statements are pre-validated by DB against
// identifierPattern.
type Dialect interface {
	// Driver is the database/sql driver name this dialect pairs with.
	Driver() string
	// TableExists returns a query counting tables with the given name.
	TableExists(table string) (string, []interface{})
	// ColumnExists returns a query counting matching columns.
	ColumnExists(table, column string) (string, []interface{})
	// CreateTable returns DDL creating the table with a single primary key
	// column holding the vector identifier.
	CreateTable(table, pk string) string
	// AddColumn returns DDL adding a nullable numeric column.
	AddColumn(table, column string) string
	// Upsert returns an insert-or-update statement. Bind arguments are the
	// primary key value followed by one value per column.
	Upsert(table, pk string, columns []string) string
}

// dialectFor maps a driver name to its dialect.
func dialectFor(driver string) (Dialect, error) {
	switch driver {
	case "mysql":
		return MySQL{}, nil
	case "pgx", "postgres":
		return Postgres{}, nil
	case "sqlite3":
		return SQLite{}, nil
	}
	return nil, errors.Reason("unsupported database driver '%s'", driver)
}
