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

package wds

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"runtime"

	"github.com/stockparfait/errors"
	"github.com/stockparfait/fetch"
	"github.com/stockparfait/iterator"
	"github.com/stockparfait/logging"
)

type contextKey int

const (
	clientContextKey contextKey = iota
)

// URL is the default base URL of the service. It may be overwritten in tests
// before creating a new client.
var URL = "https://www150.statcan.gc.ca/t1/wds/rest"

// maxBatchSize is the maximum number of vectors the service accepts in a
// single latest-N request.
const maxBatchSize = 300

// Client for querying the Web Data Service.
type Client struct {
	baseURL    string
	httpClient *http.Client // used for POST endpoints
}

// newClient creates a new client.
func newClient(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{
		baseURL:    baseURL,
		httpClient: httpClient,
	}
}

// GetClient extracts the Client from the context, if any.
func GetClient(ctx context.Context) *Client {
	c, ok := ctx.Value(clientContextKey).(*Client)
	if !ok {
		return nil
	}
	return c
}

// UseClient creates a new client and injects it into the context. A nil
// httpClient defaults to http.DefaultClient.
func UseClient(ctx context.Context, httpClient *http.Client) context.Context {
	return context.WithValue(ctx, clientContextKey, newClient(URL, httpClient))
}

// Series status values as returned by the service.
const (
	StatusSuccess = "SUCCESS"
	StatusFailed  = "FAILED"
)

// DataPoint is a single observation of a series. A nil Value is an explicit
// "no data" marker, distinct from zero.
type DataPoint struct {
	RefPer     string   `json:"refPer"`
	RefPerRaw  string   `json:"refPerRaw"`
	Value      *float64 `json:"value"`
	Decimals   int      `json:"decimals"`
	StatusCode int      `json:"statusCode"`
	ReleaseTT  string   `json:"releaseTime"`
}

// SeriesData is the payload of one successfully fetched vector.
type SeriesData struct {
	VectorID   int64       `json:"vectorId"`
	ProductID  int64       `json:"productId"`
	Coordinate string      `json:"coordinate"`
	DataPoints []DataPoint `json:"vectorDataPoint"`
}

// SeriesResult is one item of a latest-N response. Series is non-nil only when
// Status is StatusSuccess and the payload decoded cleanly.
type SeriesResult struct {
	Status string
	Series *SeriesData
}

// seriesItem is the wire format of one response item. Object is kept raw
// because the service returns a plain string in it for failed vectors.
type seriesItem struct {
	Status string          `json:"status"`
	Object json.RawMessage `json:"object"`
}

// latestNRequest is one element of the request payload.
type latestNRequest struct {
	VectorID int64 `json:"vectorId"`
	LatestN  int   `json:"latestN"`
}

// TestLatestNResponse generates the JSON string in the format returned by the
// latest-N API for the given successful series. For use in tests.
func TestLatestNResponse(series ...SeriesData) (string, error) {
	items := make([]seriesItem, len(series))
	for i, s := range series {
		obj, err := json.Marshal(s)
		if err != nil {
			return "", err
		}
		items[i] = seriesItem{Status: StatusSuccess, Object: obj}
	}
	b, err := json.Marshal(items)
	return string(b), err
}

// postJSON issues a POST request with a JSON payload and decodes the JSON
// response into result.
func (c *Client) postJSON(ctx context.Context, path string, payload, result interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return errors.Annotate(err, "failed to encode request payload")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return errors.Annotate(err, "failed to create request for '%s'", path)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return errors.Annotate(err, "request to '%s' failed", path)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return errors.Reason("request to '%s' returned status %s", path, resp.Status)
	}
	if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
		return errors.Annotate(err, "failed to decode response from '%s'", path)
	}
	return nil
}

// fetchBatch requests the latest n periods for a single batch of vectors.
func (c *Client) fetchBatch(ctx context.Context, vectors []int64, n int) ([]SeriesResult, error) {
	payload := make([]latestNRequest, len(vectors))
	for i, v := range vectors {
		payload[i] = latestNRequest{VectorID: v, LatestN: n}
	}
	var items []seriesItem
	err := c.postJSON(ctx, "/getDataFromVectorsAndLatestNPeriods", payload, &items)
	if err != nil {
		return nil, errors.Annotate(err, "failed to fetch batch of %d vectors", len(vectors))
	}
	results := make([]SeriesResult, len(items))
	for i, item := range items {
		results[i].Status = item.Status
		if item.Status != StatusSuccess {
			continue
		}
		var s SeriesData
		if err := json.Unmarshal(item.Object, &s); err != nil {
			logging.Warningf(ctx, "skipping undecodable series object: %s", err.Error())
			continue
		}
		results[i].Series = &s
	}
	return results, nil
}

// batchResult carries one batch's outcome through the parallel map.
type batchResult struct {
	Results []SeriesResult
	Err     error
}

// batchVectors splits vectors into request-sized batches.
func batchVectors(vectors []int64, size int) [][]int64 {
	var batches [][]int64
	for len(vectors) > size {
		batches = append(batches, vectors[:size])
		vectors = vectors[size:]
	}
	if len(vectors) > 0 {
		batches = append(batches, vectors)
	}
	return batches
}

// LatestPeriods fetches the latest n observations for each of the given
// vectors. A failed batch degrades its vectors to absent from the result with
// a logged warning; only an empty client context or a non-positive n is an
// error. The order of results is unspecified.
func LatestPeriods(ctx context.Context, vectors []int64, n int) ([]SeriesResult, error) {
	client := GetClient(ctx)
	if client == nil {
		return nil, errors.Reason("LatestPeriods: no client in context")
	}
	if n <= 0 {
		return nil, errors.Reason("LatestPeriods: number of periods %d must be positive", n)
	}
	if len(vectors) == 0 {
		return nil, nil
	}
	f := func(batch []int64) batchResult {
		rs, err := client.fetchBatch(ctx, batch, n)
		return batchResult{Results: rs, Err: err}
	}
	pm := iterator.ParallelMap(ctx, 2*runtime.NumCPU(),
		iterator.FromSlice(batchVectors(vectors, maxBatchSize)), f)
	defer pm.Close()

	results := iterator.Reduce[batchResult, []SeriesResult](pm, []SeriesResult{},
		func(r batchResult, acc []SeriesResult) []SeriesResult {
			if r.Err != nil {
				logging.Warningf(ctx, "dropping failed batch: %s", r.Err.Error())
				return acc
			}
			return append(acc, r.Results...)
		})
	logging.Infof(ctx, "Web Data Service: fetched %d of %d vectors",
		len(results), len(vectors))
	return results, nil
}

// Cube is the product metadata returned by the cube list API.
type Cube struct {
	ProductID   int64  `json:"productId"`
	CubeTitleEn string `json:"cubeTitleEn"`
	CubeTitleFr string `json:"cubeTitleFr"`
	Archived    string `json:"archived"`
}

// CubeList fetches the lightweight list of all cubes (products).
func CubeList(ctx context.Context) ([]Cube, error) {
	client := GetClient(ctx)
	if client == nil {
		return nil, errors.Reason("CubeList: no client in context")
	}
	var cubes []Cube
	uri := client.baseURL + "/getAllCubesListLite"
	if err := fetch.FetchJSON(ctx, uri, &cubes, make(url.Values), nil); err != nil {
		return nil, errors.Annotate(err, "failed to fetch cube list")
	}
	return cubes, nil
}
