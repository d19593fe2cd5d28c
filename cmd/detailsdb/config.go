// Copyright 2025 The go-ethereum Authors
// This file is part of the go-ethereum library.
//
// The go-ethereum library is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// The go-ethereum library is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with the go-ethereum library. If not, see <http://www.gnu.org/licenses/>.


package main

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"unicode"

	"github.com/ethereum/go-ethereum/log"
	"github.com/naoina/toml"
	"github.com/sunyihoo/go-contractdb/core/details"
	"github.com/sunyihoo/go-contractdb/internal/flags"
	"github.com/sunyihoo/go-contractdb/pool"
	"github.com/urfave/cli/v2"
)

var (
	configFileFlag = &cli.StringFlag{
		Name:     "config",
		Usage:    "TOML configuration file",
		Category: flags.MiscCategory,
	}
	dataDirFlag = &flags.DirectoryFlag{
		Name:     "datadir",
		Usage:    "Data directory holding the account store and the contract data sources",
		Value:    flags.DirectoryString(defaultDataDir()),
		EnvVars:  []string{"CONTRACTDB_DATADIR"},
		Category: flags.DataCategory,
	}
	dbEngineFlag = &cli.StringFlag{
		Name:     "db.engine",
		Usage:    "Backend of the data sources (pebble|leveldb|memory)",
		Value:    pool.PebbleBackend,
		Category: flags.DataCategory,
	}
	cacheFlag = &cli.IntFlag{
		Name:     "cache",
		Usage:    "Megabytes of memory allocated to each data source",
		Value:    16,
		Category: flags.DataCategory,
	}
	handlesFlag = &cli.IntFlag{
		Name:     "handles",
		Usage:    "Number of file handles allocated to each data source",
		Value:    16,
		Category: flags.DataCategory,
	}
	storageLimitFlag = &cli.IntFlag{
		Name:     "storage.limit",
		Usage:    "Number of storage keys a contract keeps embedded under the above-limit policy",
		Value:    details.Defaults.MemoryStorageLimit,
		Category: flags.StorageCategory,
	}
	storagePolicyFlag = &cli.StringFlag{
		Name:     "storage.policy",
		Usage:    "When contract storage moves into its own data source (always|above-limit)",
		Value:    policyAlways,
		Category: flags.StorageCategory,
	}
	recordCacheFlag = &cli.IntFlag{
		Name:     "cache.records",
		Usage:    "Megabytes of memory allocated to the encoded record cache",
		Value:    details.Defaults.RecordCache,
		Category: flags.StorageCategory,
	}
	trieCacheFlag = &cli.IntFlag{
		Name:     "cache.trie",
		Usage:    "Megabytes of memory allocated to the clean node cache of each storage data source",
		Value:    details.Defaults.TrieCleanCache,
		Category: flags.StorageCategory,
	}
)

const (
	policyAlways     = "always"
	policyAboveLimit = "above-limit"
)

// These settings ensure that TOML keys use the same names as Go struct fields.
var tomlSettings = toml.Config{
	NormFieldName: func(rt reflect.Type, key string) string {
		return key
	},
	FieldToKey: func(rt reflect.Type, field string) string {
		return field
	},
	MissingField: func(rt reflect.Type, field string) error {
		var link string
		if unicode.IsUpper(rune(rt.Name()[0])) && rt.PkgPath() != "main" {
			link = fmt.Sprintf(", see https://godoc.org/%s#%s for available fields", rt.PkgPath(), rt.Name())
		}
		return fmt.Errorf("field '%s' is not defined in %s%s", field, rt.String(), link)
	},
}

type dataSourceConfig struct {
	Engine  string
	Cache   int
	Handles int
}

type detailsdbConfig struct {
	DataDir       string
	StoragePolicy string
	DataSource    dataSourceConfig
	Details       details.Config
}

func defaultDataDir() string {
	if home := flags.HomeDir(); home != "" {
		return filepath.Join(home, ".contractdb")
	}
	return ""
}

func defaultConfig() detailsdbConfig {
	return detailsdbConfig{
		DataDir:       defaultDataDir(),
		StoragePolicy: policyAlways,
		DataSource: dataSourceConfig{
			Engine:  pool.PebbleBackend,
			Cache:   16,
			Handles: 16,
		},
		Details: details.Defaults,
	}
}

func loadConfig(file string, cfg *detailsdbConfig) error {
	f, err := os.Open(file)
	if err != nil {
		return err
	}
	defer f.Close()

	err = tomlSettings.NewDecoder(bufio.NewReader(f)).Decode(cfg)
	// Add file name to errors that have a line number.
	if _, ok := err.(*toml.LineError); ok {
		err = errors.New(file + ", " + err.Error())
	}
	return err
}

// makeConfig loads the configuration from the defaults, the config file and
// the command line flags, in this order of precedence.
func makeConfig(ctx *cli.Context) (detailsdbConfig, error) {
	cfg := defaultConfig()
	if file := ctx.String(configFileFlag.Name); file != "" {
		if err := loadConfig(file, &cfg); err != nil {
			return cfg, err
		}
	}
	if ctx.IsSet(dataDirFlag.Name) {
		cfg.DataDir = ctx.String(dataDirFlag.Name)
	}
	if ctx.IsSet(dbEngineFlag.Name) {
		cfg.DataSource.Engine = ctx.String(dbEngineFlag.Name)
	}
	if ctx.IsSet(cacheFlag.Name) {
		cfg.DataSource.Cache = ctx.Int(cacheFlag.Name)
	}
	if ctx.IsSet(handlesFlag.Name) {
		cfg.DataSource.Handles = ctx.Int(handlesFlag.Name)
	}
	if ctx.IsSet(storagePolicyFlag.Name) {
		cfg.StoragePolicy = ctx.String(storagePolicyFlag.Name)
	}
	if ctx.IsSet(storageLimitFlag.Name) {
		cfg.Details.MemoryStorageLimit = ctx.Int(storageLimitFlag.Name)
	}
	if ctx.IsSet(recordCacheFlag.Name) {
		cfg.Details.RecordCache = ctx.Int(recordCacheFlag.Name)
	}
	if ctx.IsSet(trieCacheFlag.Name) {
		cfg.Details.TrieCleanCache = ctx.Int(trieCacheFlag.Name)
	}
	switch cfg.StoragePolicy {
	case policyAlways, "":
		cfg.Details.Externalize = details.AlwaysExternalize
	case policyAboveLimit:
		cfg.Details.Externalize = details.ExternalizeAboveLimit
	default:
		return cfg, fmt.Errorf("unknown storage policy %q", cfg.StoragePolicy)
	}
	if cfg.DataDir == "" && cfg.DataSource.Engine != pool.MemoryBackend {
		return cfg, errors.New("no data directory configured")
	}
	log.Debug("Loaded configuration", "datadir", cfg.DataDir, "engine", cfg.DataSource.Engine, "policy", cfg.StoragePolicy)
	return cfg, nil
}

// dumpConfig is the dumpconfig command.
func dumpConfig(ctx *cli.Context) error {
	cfg, err := makeConfig(ctx)
	if err != nil {
		return err
	}
	out, err := tomlSettings.Marshal(&cfg)
	if err != nil {
		return err
	}
	dump := os.Stdout
	if ctx.NArg() > 0 {
		dump, err = os.OpenFile(ctx.Args().Get(0), os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0644)
		if err != nil {
			return err
		}
		defer dump.Close()
	}
	dump.WriteString("# Note: the storage policy function is selected by StoragePolicy.\n\n")
	dump.Write(out)
	return nil
}
