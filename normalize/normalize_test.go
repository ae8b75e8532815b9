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

package normalize

import (
	"context"
	"math/rand"
	"testing"

	"github.com/statsync/statsync/catalog"
	"github.com/statsync/statsync/wds"

	. "github.com/smartystreets/goconvey/convey"
)

func testCatalog() *catalog.Catalog {
	return &catalog.Catalog{
		Vectors: []int64{1, 2, 3},
		Defs: map[int64]catalog.Vector{
			1: {ID: 1, ProductID: "P100", Label: "one"},
			2: {ID: 2, ProductID: "P100", Label: "two"},
			3: {ID: 3, ProductID: "P200", Label: "three"},
		},
		Products: make(map[string]string),
	}
}

func success(s wds.SeriesData) wds.SeriesResult {
	return wds.SeriesResult{Status: wds.StatusSuccess, Series: &s}
}

func floatPtr(f float64) *float64 { return &f }

func point(refPer string, v *float64) wds.DataPoint {
	return wds.DataPoint{RefPer: refPer, RefPerRaw: refPer, Value: v}
}

func TestNormalize(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	Convey("Normalize", t, func() {
		cat := testCatalog()

		Convey("builds the canonical structure", func() {
			results := []wds.SeriesResult{
				success(wds.SeriesData{VectorID: 1, DataPoints: []wds.DataPoint{
					point("2024-02-01", floatPtr(1.1)),
					point("2024-03-01", floatPtr(1.2)),
				}}),
				success(wds.SeriesData{VectorID: 2, DataPoints: []wds.DataPoint{
					point("2024-02-01", floatPtr(2.1)),
					point("2024-03-01", nil),
				}}),
				success(wds.SeriesData{VectorID: 3, DataPoints: []wds.DataPoint{
					point("2024-03-01", floatPtr(3.2)),
				}}),
			}
			res := Normalize(ctx, results, cat)
			So(res.Data, ShouldResemble, Data{
				"P100": {
					1: {
						NewPeriod(2024, 2): Value{Float: 1.1},
						NewPeriod(2024, 3): Value{Float: 1.2},
					},
					2: {
						NewPeriod(2024, 2): Value{Float: 2.1},
						NewPeriod(2024, 3): Value{Missing: true},
					},
				},
				"P200": {
					3: {NewPeriod(2024, 3): Value{Float: 3.2}},
				},
			})
			So(res.DroppedSeries, ShouldEqual, 0)
			So(res.DroppedRecords, ShouldEqual, 0)
			So(res.FailedVectors, ShouldBeNil)
		})

		Convey("never conflates zero with missing", func() {
			// Generated values, including explicit zeros and nulls.
			rnd := rand.New(rand.NewSource(42))
			points := make([]wds.DataPoint, 0, 24)
			expectMissing := make(map[Period]bool)
			for month := 1; month <= 12; month++ {
				p := NewPeriod(2023, uint8(month))
				var v *float64
				switch rnd.Intn(3) {
				case 0:
					v = nil
					expectMissing[p] = true
				case 1:
					v = floatPtr(0)
				default:
					v = floatPtr(rnd.NormFloat64())
				}
				points = append(points, point(p.String(), v))
			}
			res := Normalize(ctx, []wds.SeriesResult{
				success(wds.SeriesData{VectorID: 1, DataPoints: points}),
			}, cat)
			series := res.Data["P100"][1]
			So(len(series), ShouldEqual, 12)
			for p, v := range series {
				So(v.Missing, ShouldEqual, expectMissing[p])
				if v.Missing {
					So(v.Float, ShouldEqual, 0.0)
				}
			}
		})

		Convey("drops series not in the catalog", func() {
			results := []wds.SeriesResult{
				success(wds.SeriesData{VectorID: 99, DataPoints: []wds.DataPoint{
					point("2024-03-01", floatPtr(9.9)),
				}}),
				success(wds.SeriesData{VectorID: 1, DataPoints: []wds.DataPoint{
					point("2024-03-01", floatPtr(1.2)),
				}}),
			}
			res := Normalize(ctx, results, cat)
			So(res.DroppedSeries, ShouldEqual, 1)
			So(len(res.Warnings), ShouldEqual, 1)
			So(res.Data.Products(), ShouldResemble, []string{"P100"})
		})

		Convey("skips malformed records but keeps the vector", func() {
			res := Normalize(ctx, []wds.SeriesResult{
				success(wds.SeriesData{VectorID: 1, DataPoints: []wds.DataPoint{
					point("garbage", floatPtr(1.0)),
					{Value: floatPtr(2.0)}, // no reference period at all
					point("2024-03-01", floatPtr(3.0)),
				}}),
			}, cat)
			So(res.DroppedRecords, ShouldEqual, 2)
			So(res.FailedVectors, ShouldBeNil)
			So(res.Data["P100"][1], ShouldResemble, map[Period]Value{
				NewPeriod(2024, 3): {Float: 3.0},
			})
		})

		Convey("flags a vector whose records all fail, keeps the rest", func() {
			res := Normalize(ctx, []wds.SeriesResult{
				success(wds.SeriesData{VectorID: 1, DataPoints: []wds.DataPoint{
					point("garbage", floatPtr(1.0)),
				}}),
				success(wds.SeriesData{VectorID: 3, DataPoints: []wds.DataPoint{
					point("2024-03-01", floatPtr(3.0)),
				}}),
			}, cat)
			So(res.FailedVectors, ShouldResemble, []int64{1})
			So(res.Data.Products(), ShouldResemble, []string{"P200"})
		})

		Convey("ignores failed fetch results", func() {
			res := Normalize(ctx, []wds.SeriesResult{
				{Status: wds.StatusFailed},
				success(wds.SeriesData{VectorID: 2, DataPoints: []wds.DataPoint{
					point("2024-03-01", floatPtr(2.0)),
				}}),
			}, cat)
			So(res.Data.NumVectors(), ShouldEqual, 1)
		})
	})

	Convey("Data accessors are sorted and deterministic", t, func() {
		d := Data{
			"P200": {3: {NewPeriod(2024, 3): Value{}}},
			"P100": {
				2: {NewPeriod(2024, 2): Value{}},
				1: {NewPeriod(2024, 3): Value{}, NewPeriod(2023, 12): Value{}},
			},
		}
		So(d.Products(), ShouldResemble, []string{"P100", "P200"})
		So(d.Vectors("P100"), ShouldResemble, []int64{1, 2})
		So(d.Periods("P100"), ShouldResemble, []Period{
			NewPeriod(2023, 12), NewPeriod(2024, 2), NewPeriod(2024, 3),
		})
		So(d.NumVectors(), ShouldEqual, 3)
	})
}
