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

package details

import (
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/sunyihoo/go-contractdb/core/rawdb"
	"github.com/sunyihoo/go-contractdb/pool"
	"github.com/sunyihoo/go-contractdb/storagetrie"
)

// Database creates contract details and resolves their externally stored
// storage tries through the data source pool.
//
// Database 创建合约详情，并通过数据源池解析其外部存储的 trie。
type Database struct {
	pool   *pool.Pool
	config *Config

	stores map[string]*storagetrie.Store // node stores over currently open data sources
	lock   sync.Mutex
}

// NewDatabase creates a contract details database sharing data sources through
// the given pool. A nil config selects the defaults.
// NewDatabase 创建一个通过给定池共享数据源的合约详情数据库，config 为 nil 时使用默认配置。
func NewDatabase(p *pool.Pool, config *Config) *Database {
	if config == nil {
		config = &Defaults
	}
	return &Database{
		pool:   p,
		config: config.sanitize(),
		stores: make(map[string]*storagetrie.Store),
	}
}

// Pool returns the data source pool of the database.
func (db *Database) Pool() *pool.Pool {
	return db.pool
}

// Config returns the sanitized configuration of the database.
func (db *Database) Config() Config {
	return *db.config
}

// New creates contract details for addr whose storage starts out empty and
// embedded in a fresh in-memory store.
// New 为 addr 创建合约详情，其存储初始为空并内嵌在一个全新的内存存储中。
func (db *Database) New(addr common.Address, code []byte) *ContractDetails {
	return db.NewWithTrie(addr, storagetrie.New(storagetrie.NewMemoryStore()), code)
}

// NewWithTrie creates contract details for addr owning the given embedded
// storage trie.
func (db *Database) NewWithTrie(addr common.Address, tr storagetrie.Trie, code []byte) *ContractDetails {
	if tr == nil {
		tr = storagetrie.New(storagetrie.NewMemoryStore())
	}
	return newContractDetails(db, addr, tr, code)
}

// acquire opens, or joins, the data source holding the external storage of
// addr and returns a node store over it.
func (db *Database) acquire(addr common.Address) (*storagetrie.Store, error) {
	name := rawdb.DetailsDataSourceName(addr)
	disk, err := db.pool.Acquire(name)
	if err != nil {
		return nil, err
	}
	db.lock.Lock()
	defer db.lock.Unlock()

	// A store is only reused while it wraps the very same open data source,
	// a physically reopened source gets a fresh one.
	if store, ok := db.stores[name]; ok && store.Disk() == disk {
		return store, nil
	}
	store := storagetrie.NewStore(disk, db.config.TrieCleanCache*1024*1024)
	db.stores[name] = store
	return store, nil
}

// reserve registers one more holder of the open data source of addr.
func (db *Database) reserve(addr common.Address) error {
	return db.pool.Reserve(rawdb.DetailsDataSourceName(addr))
}

// release drops one holder of the data source of addr.
func (db *Database) release(addr common.Address) error {
	name := rawdb.DetailsDataSourceName(addr)
	if err := db.pool.Release(name); err != nil {
		return err
	}
	if db.pool.Refs(name) == 0 {
		db.lock.Lock()
		delete(db.stores, name)
		db.lock.Unlock()
	}
	return nil
}
