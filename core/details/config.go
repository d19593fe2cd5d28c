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
	"runtime"

	"github.com/ethereum/go-ethereum/log"
)

// ExternalizePolicy decides, after a mutation, whether a contract's storage
// trie should move into a data source of its own. size is the number of known
// storage keys and limit the configured in-memory storage limit.
//
// ExternalizePolicy 在每次修改后决定合约的存储 trie 是否应迁移到独立的数据源中。
// size 是已知存储键的数量，limit 是配置的内存存储上限。
type ExternalizePolicy func(size int, limit int) bool

// AlwaysExternalize moves the storage out on the first mutation, whatever the
// limit. This is the behaviour of the deployed network.
// AlwaysExternalize 在第一次修改时即迁移存储，与上限无关，这是已部署网络的行为。
func AlwaysExternalize(size int, limit int) bool {
	return true
}

// ExternalizeAboveLimit keeps the storage embedded while it holds no more than
// limit keys.
// ExternalizeAboveLimit 在键数量不超过 limit 时保持存储内嵌。
func ExternalizeAboveLimit(size int, limit int) bool {
	return size > limit
}

// Config contains the settings of the contract details layer.
// Config 包含合约详情层的设置。
type Config struct {
	MemoryStorageLimit int // Number of storage keys allowed to stay embedded, see ExternalizePolicy
	TrieCleanCache     int // Memory allowance (MB) of the clean node cache of each storage data source
	RecordCache        int // Memory allowance (MB) of the encoded record cache in front of the account store
	FlushConcurrency   int // Number of contracts synced in parallel during a flush, 0 for GOMAXPROCS

	Externalize ExternalizePolicy `toml:"-"` // Storage mode policy, nil for AlwaysExternalize
}

// Defaults contains the default settings.
var Defaults = Config{
	MemoryStorageLimit: 1000,
	TrieCleanCache:     0,
	RecordCache:        16,
	FlushConcurrency:   0,
	Externalize:        AlwaysExternalize,
}

// sanitize checks the provided user configurations and changes anything that's
// unreasonable or unworkable.
func (c *Config) sanitize() *Config {
	conf := *c
	if conf.MemoryStorageLimit < 0 {
		log.Warn("Sanitizing invalid memory storage limit", "provided", conf.MemoryStorageLimit, "updated", 0)
		conf.MemoryStorageLimit = 0
	}
	if conf.TrieCleanCache < 0 {
		conf.TrieCleanCache = 0
	}
	if conf.RecordCache < 0 {
		conf.RecordCache = 0
	}
	if conf.FlushConcurrency <= 0 {
		conf.FlushConcurrency = runtime.GOMAXPROCS(0)
	}
	if conf.Externalize == nil {
		conf.Externalize = AlwaysExternalize
	}
	return &conf
}
