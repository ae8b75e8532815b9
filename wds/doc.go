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

// Package wds implements a client for the Statistics Canada Web Data Service.
//
// Official documentation is at https://www.statcan.gc.ca/en/developers/wds .
//
// Time series ("vectors") are fetched in batches through the POST endpoint
// getDataFromVectorsAndLatestNPeriods, which returns the latest N observations
// for each requested vector. Each item of the response carries its own status;
// a failed vector does not fail the batch. Batches are issued concurrently,
// capped at the service's per-request vector limit.
//
// Product ("cube") metadata is available through the GET endpoint
// getAllCubesListLite and is used to resolve human-readable product titles.
package wds
