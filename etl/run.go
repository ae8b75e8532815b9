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

	"github.com/statsync/statsync/catalog"
	"github.com/statsync/statsync/normalize"
	"github.com/statsync/statsync/store"
	"github.com/statsync/statsync/wds"
	"github.com/stockparfait/errors"
	"github.com/stockparfait/logging"
)

// Config of a single run.
type Config struct {
	Months          int    // number of most recent periods to fetch; must be > 0
	VectorsFile     string // path to the vector list
	DefinitionsFile string // path to the definitions CSV
	Driver          string // database driver: mysql, pgx or sqlite3
	DSN             string // database connection string
	CubeTitles      bool   // resolve product titles from the service
}

// Summary of a completed run. Non-fatal failures are accumulated here rather
// than raised individually.
type Summary struct {
	VectorsRequested int
	VectorsLoaded    int
	VectorsFailed    int
	SeriesDropped    int // fetched series with no catalog definition
	RecordsDropped   int // malformed observation records
	TablesCreated    int
	ColumnsAdded     int
	ProductsFailed   int // products skipped due to schema sync failures
	RowsWritten      int
	CellsWritten     int
	CellsFailed      int
	Warnings         []string
}

// Log writes the closing summary block.
func (s *Summary) Log(ctx context.Context) {
	logging.Infof(ctx, "=-=-=-=-= Run Summary =-=-=-=-=")
	logging.Infof(ctx, "Vectors Requested:  %d", s.VectorsRequested)
	logging.Infof(ctx, "Vectors Loaded:     %d", s.VectorsLoaded)
	logging.Infof(ctx, "Vectors Failed:     %d", s.VectorsFailed)
	logging.Infof(ctx, "Series Dropped:     %d", s.SeriesDropped)
	logging.Infof(ctx, "Records Dropped:    %d", s.RecordsDropped)
	logging.Infof(ctx, "Tables Created:     %d", s.TablesCreated)
	logging.Infof(ctx, "Columns Added:      %d", s.ColumnsAdded)
	logging.Infof(ctx, "Products Failed:    %d", s.ProductsFailed)
	logging.Infof(ctx, "Rows Written:       %d", s.RowsWritten)
	logging.Infof(ctx, "Cells Written:      %d", s.CellsWritten)
	logging.Infof(ctx, "Cells Failed:       %d", s.CellsFailed)
	logging.Infof(ctx, "=-=-=-=-=-=- End -=-=-=-=-=-=-=")
}

// Run executes the full pipeline: catalog load, fetch, normalize, schema sync,
// upsert, strictly in that order. The canonical structure is fully built
// before any schema or upsert work starts. Only a broken catalog, a failed
// database connection or an invalid months parameter abort the run; all other
// failures degrade to entries in the Summary. The database connection is
// released on all paths.
func Run(ctx context.Context, cfg *Config) (*Summary, error) {
	if cfg.Months <= 0 {
		return nil, errors.Reason("months of history %d must be positive", cfg.Months)
	}

	cat, err := catalog.Load(ctx, cfg.VectorsFile, cfg.DefinitionsFile)
	if err != nil {
		return nil, errors.Annotate(err, "failed to load the vector catalog")
	}

	db, err := store.Open(ctx, cfg.Driver, cfg.DSN)
	if err != nil {
		return nil, errors.Annotate(err, "failed to open the database")
	}
	defer db.Close()

	summary := &Summary{VectorsRequested: len(cat.Vectors)}

	if cfg.CubeTitles {
		cubes, err := wds.CubeList(ctx)
		if err != nil {
			logging.Warningf(ctx, "failed to resolve product titles: %s", err.Error())
			summary.Warnings = append(summary.Warnings,
				"failed to resolve product titles: "+err.Error())
		} else {
			cat.MergeCubeTitles(cubes)
		}
	}

	logging.Infof(ctx, "fetching %d months of history for %d vectors...",
		cfg.Months, len(cat.Vectors))
	results, err := wds.LatestPeriods(ctx, cat.Vectors, cfg.Months)
	if err != nil {
		return nil, errors.Annotate(err, "failed to fetch vector data")
	}

	norm := normalize.Normalize(ctx, results, cat)
	summary.VectorsLoaded = norm.Data.NumVectors()
	summary.VectorsFailed = summary.VectorsRequested - summary.VectorsLoaded
	summary.SeriesDropped = norm.DroppedSeries
	summary.RecordsDropped = norm.DroppedRecords
	summary.Warnings = append(summary.Warnings, norm.Warnings...)

	for _, product := range norm.Data.Products() {
		if title := cat.ProductTitle(product); title != "" {
			logging.Infof(ctx, "loading product %s: %s", product, title)
		}
	}

	schema := SyncSchema(ctx, db, norm.Data)
	summary.TablesCreated = schema.TablesCreated
	summary.ColumnsAdded = schema.ColumnsAdded
	summary.ProductsFailed = len(schema.Failed)
	for product, msg := range schema.Failed {
		summary.Warnings = append(summary.Warnings,
			"product "+product+" skipped: "+msg)
	}

	upserts := Upsert(ctx, db, norm.Data, schema.Failed)
	summary.RowsWritten = upserts.RowsWritten
	summary.CellsWritten = upserts.CellsWritten
	summary.CellsFailed = upserts.CellsFailed
	summary.Warnings = append(summary.Warnings, upserts.Errors...)

	summary.Log(ctx)
	return summary, nil
}
