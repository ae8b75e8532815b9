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

// Package catalog loads the list of vectors to fetch and their definitions:
// the product each vector belongs to and a human-readable label.
package catalog

import (
	"bufio"
	"context"
	"encoding/csv"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/statsync/statsync/wds"
	"github.com/stockparfait/errors"
	"github.com/stockparfait/logging"
)

// Vector is one catalog entry: a series identifier, the product (table) it
// belongs to, and its label. Immutable once loaded.
type Vector struct {
	ID        int64
	ProductID string
	Label     string
}

// Catalog is the set of vectors to fetch together with their definitions.
type Catalog struct {
	Vectors  []int64          // requested vector IDs, in file order, deduped
	Defs     map[int64]Vector // vector ID -> definition
	Products map[string]string
}

// Resolve returns the definition for a vector ID, if the catalog has one.
func (c *Catalog) Resolve(id int64) (Vector, bool) {
	v, ok := c.Defs[id]
	return v, ok
}

// ProductTitle returns the title of a product, or an empty string.
func (c *Catalog) ProductTitle(productID string) string {
	return c.Products[productID]
}

// MergeCubeTitles fills in product titles from the service's cube list for
// products present in the catalog. Existing titles are not overwritten.
func (c *Catalog) MergeCubeTitles(cubes []wds.Cube) {
	known := make(map[string]bool)
	for _, v := range c.Defs {
		known[v.ProductID] = true
	}
	for _, cube := range cubes {
		id := strconv.FormatInt(cube.ProductID, 10)
		if known[id] && c.Products[id] == "" {
			c.Products[id] = cube.CubeTitleEn
		}
	}
}

// parseVectorID parses a vector token, with or without the 'v' prefix.
func parseVectorID(token string) (int64, error) {
	s := strings.TrimSpace(token)
	if len(s) > 0 && (s[0] == 'v' || s[0] == 'V') {
		s = s[1:]
	}
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, errors.Annotate(err, "invalid vector ID '%s'", token)
	}
	return id, nil
}

// ReadVectorList reads vector IDs, one per line. The 'v' prefix is optional;
// blank lines and '#' comments are skipped. Any other unparsable line is an
// error: a broken vector list aborts the run.
func ReadVectorList(r io.Reader) ([]int64, error) {
	var vectors []int64
	seen := make(map[int64]bool)
	scanner := bufio.NewScanner(r)
	line := 0
	for scanner.Scan() {
		line++
		s := strings.TrimSpace(scanner.Text())
		if s == "" || strings.HasPrefix(s, "#") {
			continue
		}
		id, err := parseVectorID(s)
		if err != nil {
			return nil, errors.Annotate(err, "malformed vector list at line %d", line)
		}
		if seen[id] {
			continue
		}
		seen[id] = true
		vectors = append(vectors, id)
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Annotate(err, "failed to read vector list")
	}
	return vectors, nil
}

// ReadDefinitions reads the definitions CSV with rows of the form
// "vector,product,label". Malformed rows are skipped with a warning.
func ReadDefinitions(ctx context.Context, r io.Reader) (map[int64]Vector, error) {
	csvReader := csv.NewReader(r)
	csvReader.FieldsPerRecord = -1
	rows, err := csvReader.ReadAll()
	if err != nil {
		return nil, errors.Annotate(err, "failed to read definitions CSV")
	}
	defs := make(map[int64]Vector)
	for i, row := range rows {
		if len(row) != 3 {
			logging.Warningf(ctx, "skipping definitions row %d: expected 3 fields, got %d",
				i+1, len(row))
			continue
		}
		id, err := parseVectorID(row[0])
		if err != nil {
			logging.Warningf(ctx, "skipping definitions row %d: %s", i+1, err.Error())
			continue
		}
		defs[id] = Vector{
			ID:        id,
			ProductID: strings.TrimSpace(row[1]),
			Label:     strings.TrimSpace(row[2]),
		}
	}
	return defs, nil
}

// Load reads the vector list and the definitions CSV from the given files.
// An unreadable or malformed vector list is fatal; vectors without a
// definition are reported and will be dropped during normalization.
func Load(ctx context.Context, vectorsPath, defsPath string) (*Catalog, error) {
	vf, err := os.Open(vectorsPath)
	if err != nil {
		return nil, errors.Annotate(err, "failed to open vector list '%s'", vectorsPath)
	}
	defer vf.Close()
	vectors, err := ReadVectorList(vf)
	if err != nil {
		return nil, errors.Annotate(err, "failed to parse vector list '%s'", vectorsPath)
	}
	if len(vectors) == 0 {
		return nil, errors.Reason("vector list '%s' contains no vectors", vectorsPath)
	}

	df, err := os.Open(defsPath)
	if err != nil {
		return nil, errors.Annotate(err, "failed to open definitions '%s'", defsPath)
	}
	defer df.Close()
	defs, err := ReadDefinitions(ctx, df)
	if err != nil {
		return nil, errors.Annotate(err, "failed to parse definitions '%s'", defsPath)
	}

	undefined := 0
	for _, id := range vectors {
		if _, ok := defs[id]; !ok {
			undefined++
			logging.Warningf(ctx, "vector v%d has no definition", id)
		}
	}
	logging.Infof(ctx, "catalog: %d vectors, %d definitions, %d undefined",
		len(vectors), len(defs), undefined)
	return &Catalog{
		Vectors:  vectors,
		Defs:     defs,
		Products: make(map[string]string),
	}, nil
}
