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

// Package normalize converts raw Web Data Service payloads into the canonical
// in-memory structure: product -> vector -> period -> value. The canonical
// structure is the sole hand-off between fetching and persistence, and is
// fully built before any schema or upsert work begins.
package normalize

import (
	"context"
	"fmt"
	"sort"

	"github.com/statsync/statsync/catalog"
	"github.com/statsync/statsync/wds"
	"github.com/stockparfait/logging"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

// Value is a single observation value. Missing marks an explicit "no data"
// observation; it is never conflated with zero.
type Value struct {
	Float   float64
	Missing bool
}

// Data is the canonical structure: product ID -> vector ID -> period -> value.
// Keys are unique within each level; insertion order is irrelevant.
type Data map[string]map[int64]map[Period]Value

// Products returns the product IDs in sorted order.
func (d Data) Products() []string {
	products := maps.Keys(d)
	slices.Sort(products)
	return products
}

// Vectors returns the vector IDs of a product in sorted order.
func (d Data) Vectors(product string) []int64 {
	vectors := maps.Keys(d[product])
	slices.Sort(vectors)
	return vectors
}

// Periods returns all periods observed for a product in chronological order.
func (d Data) Periods(product string) []Period {
	seen := make(map[Period]bool)
	for _, series := range d[product] {
		for p := range series {
			seen[p] = true
		}
	}
	periods := maps.Keys(seen)
	sort.Slice(periods, func(i, j int) bool { return periods[i].Before(periods[j]) })
	return periods
}

// NumVectors counts the distinct vectors across all products.
func (d Data) NumVectors() int {
	n := 0
	for _, vectors := range d {
		n += len(vectors)
	}
	return n
}

// Result of normalization. Vectors absent from the raw payloads are simply
// absent from Data; they are not an error here.
type Result struct {
	Data           Data
	DroppedSeries  int     // series with no catalog definition
	DroppedRecords int     // malformed observation records
	FailedVectors  []int64 // vectors whose records all failed to parse
	Warnings       []string
}

func (r *Result) warnf(ctx context.Context, format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	r.Warnings = append(r.Warnings, msg)
	logging.Warningf(ctx, msg)
}

// Normalize builds the canonical structure from raw per-vector payloads,
// resolving each vector against the catalog. Series without a catalog
// definition are dropped and reported. Malformed records are skipped with a
// warning; a vector whose records all fail to parse is flagged as failed, and
// the remaining vectors are still processed.
func Normalize(ctx context.Context, results []wds.SeriesResult, cat *catalog.Catalog) *Result {
	res := &Result{Data: make(Data)}
	for _, r := range results {
		if r.Series == nil {
			continue // reported by the fetch stage
		}
		s := r.Series
		def, ok := cat.Resolve(s.VectorID)
		if !ok {
			res.DroppedSeries++
			res.warnf(ctx, "dropping vector v%d: not in the catalog", s.VectorID)
			continue
		}
		series := make(map[Period]Value)
		for _, dp := range s.DataPoints {
			raw := dp.RefPerRaw
			if raw == "" {
				raw = dp.RefPer
			}
			if raw == "" {
				res.DroppedRecords++
				res.warnf(ctx, "dropping record of v%d: no reference period", s.VectorID)
				continue
			}
			period, err := ParsePeriod(raw)
			if err != nil {
				res.DroppedRecords++
				res.warnf(ctx, "dropping record of v%d: %s", s.VectorID, err.Error())
				continue
			}
			if dp.Value == nil {
				series[period] = Value{Missing: true}
			} else {
				series[period] = Value{Float: *dp.Value}
			}
		}
		if len(s.DataPoints) > 0 && len(series) == 0 {
			res.FailedVectors = append(res.FailedVectors, s.VectorID)
			res.warnf(ctx, "vector v%d failed: no records parsed", s.VectorID)
			continue
		}
		vectors, ok := res.Data[def.ProductID]
		if !ok {
			vectors = make(map[int64]map[Period]Value)
			res.Data[def.ProductID] = vectors
		}
		vectors[s.VectorID] = series
	}
	logging.Infof(ctx, "normalized %d vectors into %d products",
		res.Data.NumVectors(), len(res.Data))
	return res
}
