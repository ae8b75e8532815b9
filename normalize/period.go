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
	"fmt"
	"time"

	"github.com/stockparfait/errors"
)

// Period is a reference period normalized to a calendar month. The struct is
// designed to fit into 4 bytes.
type Period struct {
	YearVal  uint16
	MonthVal uint8
}

// NewPeriod is the constructor for Period.
func NewPeriod(year uint16, month uint8) Period {
	return Period{YearVal: year, MonthVal: month}
}

// ParsePeriod converts the service's reference period representation into the
// canonical Period. It is a pure function: the same input always yields the
// same Period. Accepted forms are "2006-01-02" and "2006-01".
func ParsePeriod(s string) (Period, error) {
	formats := []string{"2006-01-02", "2006-01"}
	var err error
	for _, f := range formats {
		var tm time.Time
		tm, err = time.Parse(f, s)
		if err == nil {
			return Period{YearVal: uint16(tm.Year()), MonthVal: uint8(tm.Month())}, nil
		}
	}
	return Period{}, errors.Annotate(err, "failed to parse reference period '%s'", s)
}

func (p Period) Year() uint16 { return p.YearVal }
func (p Period) Month() uint8 { return p.MonthVal }

// String representation of the period.
func (p Period) String() string {
	return fmt.Sprintf("%04d-%02d", p.Year(), p.Month())
}

// Column is the relational column name for the period. It is a valid SQL
// identifier in all supported dialects, and distinct periods always map to
// distinct column names.
func (p Period) Column() string {
	return fmt.Sprintf("m%04d_%02d", p.Year(), p.Month())
}

// Before compares two periods chronologically.
func (p Period) Before(p2 Period) bool {
	if p.Year() != p2.Year() {
		return p.Year() < p2.Year()
	}
	return p.Month() < p2.Month()
}
