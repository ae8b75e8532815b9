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
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/statsync/statsync/store"
	"github.com/statsync/statsync/wds"
	"github.com/stockparfait/testutil"

	. "github.com/smartystreets/goconvey/convey"
)

// wdsServer is a fake Web Data Service answering every latest-N request with a
// canned JSON response.
type wdsServer struct {
	server   *httptest.Server
	response string
}

func newWDSServer() *wdsServer {
	s := &wdsServer{}
	s.server = httptest.NewServer(http.HandlerFunc(
		func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(s.response))
		}))
	return s
}

func floatPtr(f float64) *float64 { return &f }

func point(refPer string, v *float64) wds.DataPoint {
	return wds.DataPoint{RefPer: refPer + "-01", RefPerRaw: refPer, Value: v}
}

func series(vector int64, points ...wds.DataPoint) wds.SeriesData {
	return wds.SeriesData{VectorID: vector, DataPoints: points}
}

// failedItem appends a FAILED item, as the service reports unknown vectors,
// to an otherwise successful response.
func failedItem(response string, msg string) string {
	var items []json.RawMessage
	if err := json.Unmarshal([]byte(response), &items); err != nil {
		panic(err)
	}
	failed, err := json.Marshal(map[string]interface{}{
		"status": wds.StatusFailed,
		"object": msg,
	})
	if err != nil {
		panic(err)
	}
	items = append(items, failed)
	b, err := json.Marshal(items)
	if err != nil {
		panic(err)
	}
	return string(b)
}

func TestRun(t *testing.T) {
	tmpdir, tmpdirErr := os.MkdirTemp("", "testrun")
	defer os.RemoveAll(tmpdir)

	Convey("Test setup succeeded", t, func() {
		So(tmpdirErr, ShouldBeNil)
	})

	server := newWDSServer()
	defer server.server.Close()
	defaultURL := wds.URL
	defer func() { wds.URL = defaultURL }()
	wds.URL = server.server.URL

	vectorsPath := filepath.Join(tmpdir, "vectors.txt")
	defsPath := filepath.Join(tmpdir, "definitions.csv")

	Convey("Fixture files are written", t, func() {
		So(testutil.WriteFile(vectorsPath, "v1\nv2\nv3\n"), ShouldBeNil)
		So(testutil.WriteFile(defsPath, `v1,P100,Label one
v2,P100,Label two
v3,P200,Label three
`), ShouldBeNil)
	})

	// config builds a run config with its own fresh database, so that Convey
	// branches re-running the enclosing block stay isolated.
	config := func() *Config {
		f, err := os.CreateTemp(tmpdir, "run-*.db")
		So(err, ShouldBeNil)
		So(f.Close(), ShouldBeNil)
		return &Config{
			Months:          2,
			VectorsFile:     vectorsPath,
			DefinitionsFile: defsPath,
			Driver:          "sqlite3",
			DSN:             f.Name(),
		}
	}

	Convey("Full pipeline over two products", t, func() {
		ctx := wds.UseClient(context.Background(), nil)
		var err error
		server.response, err = wds.TestLatestNResponse(
			series(1, point("2024-02", floatPtr(1.1)), point("2024-03", floatPtr(1.2))),
			series(2, point("2024-02", floatPtr(2.1)), point("2024-03", nil)),
			series(3, point("2024-03", floatPtr(3.2))),
		)
		So(err, ShouldBeNil)

		cfg := config()
		summary, err := Run(ctx, cfg)
		So(err, ShouldBeNil)
		So(summary.VectorsRequested, ShouldEqual, 3)
		So(summary.VectorsLoaded, ShouldEqual, 3)
		So(summary.VectorsFailed, ShouldEqual, 0)
		So(summary.TablesCreated, ShouldEqual, 2)
		So(summary.ColumnsAdded, ShouldEqual, 3)
		So(summary.RowsWritten, ShouldEqual, 3)
		So(summary.CellsWritten, ShouldEqual, 5)

		db, err := store.Open(ctx, "sqlite3", cfg.DSN)
		So(err, ShouldBeNil)
		defer db.Close()

		var rows int
		So(db.QueryRow(ctx, `SELECT COUNT(*) FROM "table_P100"`).Scan(&rows),
			ShouldBeNil)
		So(rows, ShouldEqual, 2)
		So(db.QueryRow(ctx, `SELECT COUNT(*) FROM "table_P200"`).Scan(&rows),
			ShouldBeNil)
		So(rows, ShouldEqual, 1)

		var feb, mar sql.NullFloat64
		err = db.QueryRow(ctx,
			`SELECT "m2024_02", "m2024_03" FROM "table_P100" WHERE "vector_id" = 2`).
			Scan(&feb, &mar)
		So(err, ShouldBeNil)
		So(feb.Float64, ShouldEqual, 2.1)
		So(mar.Valid, ShouldBeFalse)

		Convey("second identical run performs zero schema changes", func() {
			summary, err := Run(ctx, cfg)
			So(err, ShouldBeNil)
			So(summary.TablesCreated, ShouldEqual, 0)
			So(summary.ColumnsAdded, ShouldEqual, 0)
			So(summary.RowsWritten, ShouldEqual, 3)

			var rows int
			So(db.QueryRow(ctx, `SELECT COUNT(*) FROM "table_P100"`).Scan(&rows),
				ShouldBeNil)
			So(rows, ShouldEqual, 2)
		})

		Convey("a new period only adds columns, prior values survive", func() {
			server.response, err = wds.TestLatestNResponse(
				series(1, point("2024-03", floatPtr(1.2)), point("2024-04", floatPtr(1.3))),
				series(2, point("2024-03", floatPtr(2.2)), point("2024-04", floatPtr(2.3))),
				series(3, point("2024-04", floatPtr(3.3))),
			)
			So(err, ShouldBeNil)

			summary, err := Run(ctx, cfg)
			So(err, ShouldBeNil)
			So(summary.TablesCreated, ShouldEqual, 0)
			So(summary.ColumnsAdded, ShouldEqual, 2) // m2024_04 in both tables

			var feb, apr sql.NullFloat64
			err = db.QueryRow(ctx,
				`SELECT "m2024_02", "m2024_04" FROM "table_P100" WHERE "vector_id" = 1`).
				Scan(&feb, &apr)
			So(err, ShouldBeNil)
			So(feb.Valid, ShouldBeTrue) // untouched by the new run
			So(feb.Float64, ShouldEqual, 1.1)
			So(apr.Float64, ShouldEqual, 1.3)
		})
	})

	Convey("A failed vector leaves no row behind", t, func() {
		ctx := wds.UseClient(context.Background(), nil)
		resp, err := wds.TestLatestNResponse(
			series(1, point("2024-02", floatPtr(1.1))),
			series(3, point("2024-02", floatPtr(3.1))),
		)
		So(err, ShouldBeNil)
		server.response = failedItem(resp, "Vector not found: v2")

		cfg := config()
		summary, err := Run(ctx, cfg)
		So(err, ShouldBeNil)
		So(summary.VectorsLoaded, ShouldEqual, 2)
		So(summary.VectorsFailed, ShouldEqual, 1)
		So(summary.RowsWritten, ShouldEqual, 2)

		db, err := store.Open(ctx, "sqlite3", cfg.DSN)
		So(err, ShouldBeNil)
		defer db.Close()

		var rows int
		So(db.QueryRow(ctx, `SELECT COUNT(*) FROM "table_P100"`).Scan(&rows),
			ShouldBeNil)
		So(rows, ShouldEqual, 1) // only v1; no NULL-filled row for v2
		err = db.QueryRow(ctx,
			`SELECT COUNT(*) FROM "table_P100" WHERE "vector_id" = 2`).Scan(&rows)
		So(err, ShouldBeNil)
		So(rows, ShouldEqual, 0)
	})

	Convey("Fatal configuration errors", t, func() {
		ctx := wds.UseClient(context.Background(), nil)

		Convey("non-positive months", func() {
			cfg := config()
			cfg.Months = 0
			_, err := Run(ctx, cfg)
			So(err, ShouldNotBeNil)
		})

		Convey("missing vector list", func() {
			cfg := config()
			cfg.VectorsFile = filepath.Join(tmpdir, "no-such-file.txt")
			_, err := Run(ctx, cfg)
			So(err, ShouldNotBeNil)
		})

		Convey("unknown database driver", func() {
			cfg := config()
			cfg.Driver = "oracle"
			_, err := Run(ctx, cfg)
			So(err, ShouldNotBeNil)
		})
	})
}
