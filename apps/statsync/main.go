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

package main

import (
	"context"
	"flag"
	"os"

	"github.com/statsync/statsync/etl"
	"github.com/statsync/statsync/wds"
	"github.com/stockparfait/errors"
	"github.com/stockparfait/logging"

	toml "github.com/pelletier/go-toml/v2"
)

type Flags struct {
	Conf     string // config file path
	Months   int    // months of history to fetch
	LogLevel logging.Level
}

func parseFlags(args []string) (*Flags, error) {
	var flags Flags
	fs := flag.NewFlagSet("statsync", flag.ExitOnError)
	fs.StringVar(&flags.Conf, "conf", "statsync.toml", "configuration file")
	fs.IntVar(&flags.Months, "months", 12, "months of history to fetch")
	flags.LogLevel = logging.Info
	fs.Var(&flags.LogLevel, "log-level", "Log level: debug, info, warning, error")

	err := fs.Parse(args)
	return &flags, err
}

type Config struct {
	Vectors     string `toml:"vectors"`     // path to the vector list
	Definitions string `toml:"definitions"` // path to the definitions CSV
	Driver      string `toml:"driver"`      // mysql, pgx or sqlite3
	DSN         string `toml:"dsn"`         // database connection string
	CubeTitles  bool   `toml:"cube_titles"` // resolve product titles
}

func parseConfig(filePath string) (*Config, error) {
	if _, err := os.Stat(filePath); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			sample := `vectors = "vectors.txt"
definitions = "definitions.csv"
driver = "mysql"
dsn = "user:password@tcp(localhost:3306)/statsync"
cube_titles = true
`
			err = errors.Annotate(err,
				"config file '%s' does not exist.\nPlease create config file containing:\n%s",
				filePath, sample)
			return nil, err
		} else {
			return nil, errors.Annotate(err,
				"cannot check config file for existence: '%s'", filePath)
		}
	}
	f, err := os.Open(filePath)
	if err != nil {
		return nil, errors.Annotate(err, "failed to open config file %s", filePath)
	}
	defer f.Close()

	d := toml.NewDecoder(f)
	var c Config
	if err := d.Decode(&c); err != nil {
		return nil, errors.Annotate(err, "failed to read config file %s", filePath)
	}
	if c.Vectors == "" || c.Definitions == "" {
		return nil, errors.Reason(
			"config file %s must set both 'vectors' and 'definitions'", filePath)
	}
	if c.Driver == "" || c.DSN == "" {
		return nil, errors.Reason(
			"config file %s must set both 'driver' and 'dsn'", filePath)
	}
	return &c, nil
}

func sync(ctx context.Context, flags *Flags) error {
	config, err := parseConfig(flags.Conf)
	if err != nil {
		return errors.Annotate(err, "failed to parse config")
	}

	ctx = wds.UseClient(ctx, nil)
	_, err = etl.Run(ctx, &etl.Config{
		Months:          flags.Months,
		VectorsFile:     config.Vectors,
		DefinitionsFile: config.Definitions,
		Driver:          config.Driver,
		DSN:             config.DSN,
		CubeTitles:      config.CubeTitles,
	})
	if err != nil {
		return errors.Annotate(err, "failed to sync vector data")
	}
	return nil
}

func main() {
	ctx := context.Background()
	flags, err := parseFlags(os.Args[1:])
	if err != nil {
		ctx = logging.Use(ctx, logging.DefaultGoLogger(logging.Info))
		logging.Errorf(ctx, "failed to parse flags: %s", err.Error())
		os.Exit(1)
	}
	ctx = logging.Use(ctx, logging.DefaultGoLogger(flags.LogLevel))

	if err := sync(ctx, flags); err != nil {
		logging.Errorf(ctx, err.Error())
		os.Exit(1)
	}
}
