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

// Package etl drives the load: it reconciles the relational schema with the
// canonical structure and upserts the observations, then reports a run
// summary. Schema changes are additive only; nothing is ever dropped or
// renamed.
package etl

import (
	"context"

	"github.com/statsync/statsync/normalize"
	"github.com/statsync/statsync/store"
	"github.com/stockparfait/errors"
	"github.com/stockparfait/logging"
)

// VectorColumn is the primary key column of every product table.
const VectorColumn = "vector_id"

// TableName derives the relational table name for a product. It is a pure
// concatenation with a fixed prefix, so distinct products always map to
// distinct table names, stable across runs. The product ID itself must be a
// valid identifier; anything else fails schema synchronization for that
// product.
func TableName(productID string) string {
	return "table_" + productID
}

// SchemaResult is the outcome of schema synchronization.
type SchemaResult struct {
	TablesCreated int
	ColumnsAdded  int
	// Failed maps a product ID to the error that excluded it from this run.
	// Upserts for these products are skipped.
	Failed map[string]string
}

// syncProduct ensures the product's table exists and has a column for every
// observed period.
func syncProduct(ctx context.Context, db *store.DB, product string,
	periods []normalize.Period, res *SchemaResult) error {
	if err := store.ValidateIdentifier(product); err != nil {
		return errors.Annotate(err, "invalid product ID")
	}
	table := TableName(product)
	created, err := db.CreateTableIfAbsent(ctx, table, VectorColumn)
	if err != nil {
		return err
	}
	if created {
		res.TablesCreated++
	}
	for _, p := range periods {
		added, err := db.AddColumnIfAbsent(ctx, table, p.Column())
		if err != nil {
			return err
		}
		if added {
			res.ColumnsAdded++
		}
	}
	return nil
}

// SyncSchema reconciles the store against the canonical structure: one table
// per product, one column per observed period, creating only what is missing.
// Re-running with the same or a subset of periods performs zero schema
// changes. A failure for one product is recorded and does not abort the
// others.
func SyncSchema(ctx context.Context, db *store.DB, data normalize.Data) *SchemaResult {
	res := &SchemaResult{Failed: make(map[string]string)}
	for _, product := range data.Products() {
		if err := syncProduct(ctx, db, product, data.Periods(product), res); err != nil {
			res.Failed[product] = err.Error()
			logging.Errorf(ctx, "schema sync failed for product %s, skipping its upserts: %s",
				product, err.Error())
		}
	}
	logging.Infof(ctx, "schema sync: %d tables created, %d columns added, %d products failed",
		res.TablesCreated, res.ColumnsAdded, len(res.Failed))
	return res
}
