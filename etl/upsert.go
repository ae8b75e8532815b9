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

package etl

import (
	"context"
	"fmt"

	"github.com/statsync/statsync/normalize"
	"github.com/statsync/statsync/store"
	"github.com/stockparfait/logging"
)

// UpsertResult is the outcome of the upsert stage.
type UpsertResult struct {
	RowsWritten  int
	CellsWritten int
	CellsFailed  int
	Errors       []string
}

// Upsert writes every (vector, period, value) triple of the canonical
// structure into the store: one row per vector, one cell per period column,
// in a single insert-or-update statement per vector so each row is written
// atomically. Missing values are written as NULL. Products listed in skip
// (failed schema sync) are not touched. A failed write is recorded and does
// not abort the remaining upserts.
func Upsert(ctx context.Context, db *store.DB, data normalize.Data,
	skip map[string]string) *UpsertResult {
	res := &UpsertResult{}
	for _, product := range data.Products() {
		if _, ok := skip[product]; ok {
			continue
		}
		table := TableName(product)
		for _, vector := range data.Vectors(product) {
			series := data[product][vector]
			columns := make([]string, 0, len(series))
			values := make([]interface{}, 0, len(series))
			// Periods of the product, restricted to this vector's
			// observations; absent periods never trigger a write.
			for _, p := range data.Periods(product) {
				v, ok := series[p]
				if !ok {
					continue
				}
				columns = append(columns, p.Column())
				if v.Missing {
					values = append(values, nil)
				} else {
					values = append(values, v.Float)
				}
			}
			err := db.UpsertRow(ctx, table, VectorColumn, vector, columns, values)
			if err != nil {
				res.CellsFailed += len(columns)
				msg := fmt.Sprintf("failed to upsert v%d into %s: %s",
					vector, table, err.Error())
				res.Errors = append(res.Errors, msg)
				logging.Errorf(ctx, msg)
				continue
			}
			res.RowsWritten++
			res.CellsWritten += len(columns)
		}
	}
	logging.Infof(ctx, "upsert: %d rows, %d cells written, %d cells failed",
		res.RowsWritten, res.CellsWritten, res.CellsFailed)
	return res
}
