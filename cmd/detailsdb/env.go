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
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/ethereum/go-ethereum/ethdb"
	"github.com/ethereum/go-ethereum/log"
	"github.com/gofrs/flock"
	"github.com/sunyihoo/go-contractdb/core/details"
	"github.com/sunyihoo/go-contractdb/pool"
)

// accountsSource is the name of the data source holding the encoded contract
// details records.
const accountsSource = "accounts"

var errDataDirUsed = errors.New("datadir already used by another process")

// environment bundles the opened storage layer of a data directory.
type environment struct {
	lock     *flock.Flock // nil for the memory backend
	pool     *pool.Pool
	accounts ethdb.KeyValueStore
	db       *details.Database
	store    *details.DataStore
}

// openEnvironment locks the data directory and opens the account store and
// the contract details cache over it.
// openEnvironment 锁定数据目录，并在其上打开账户存储和合约详情缓存。
func openEnvironment(cfg detailsdbConfig) (*environment, error) {
	var (
		env = new(environment)
		err error
	)
	if cfg.DataSource.Engine != pool.MemoryBackend {
		env.lock = flock.New(filepath.Join(cfg.DataDir, "LOCK"))
		if err := os.MkdirAll(cfg.DataDir, 0700); err != nil {
			return nil, err
		}
		locked, err := env.lock.TryLock()
		if err != nil {
			return nil, err
		}
		if !locked {
			return nil, fmt.Errorf("%w: %s", errDataDirUsed, cfg.DataDir)
		}
	}
	opener, err := pool.NewOpener(cfg.DataSource.Engine, cfg.DataDir, cfg.DataSource.Cache, cfg.DataSource.Handles)
	if err != nil {
		env.unlock()
		return nil, err
	}
	env.pool = pool.New(opener)
	if env.accounts, err = env.pool.Acquire(accountsSource); err != nil {
		env.pool.Close()
		env.unlock()
		return nil, err
	}
	env.db = details.NewDatabase(env.pool, &cfg.Details)
	env.store = details.NewDataStore(env.db, env.accounts)

	log.Debug("Opened contract details environment", "datadir", cfg.DataDir, "engine", cfg.DataSource.Engine)
	return env, nil
}

// close flushes pending changes and releases every data source.
func (env *environment) close() error {
	errs := []error{env.store.Flush(), env.store.Close(), env.pool.Close()}
	env.unlock()
	return errors.Join(errs...)
}

func (env *environment) unlock() {
	if env.lock != nil {
		env.lock.Unlock()
	}
}
