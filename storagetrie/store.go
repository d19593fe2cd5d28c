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

package storagetrie

import (
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/rawdb"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethdb"
	"github.com/ethereum/go-ethereum/ethdb/memorydb"
	"github.com/ethereum/go-ethereum/log"
	"github.com/ethereum/go-ethereum/trie"
	"github.com/ethereum/go-ethereum/triedb"
	"github.com/ethereum/go-ethereum/triedb/hashdb"
)

// ErrMissingRoot is returned when a trie is requested by a root hash whose node
// is not present in the store.
// ErrMissingRoot 在按根哈希请求 trie 但存储中不存在该根节点时返回。
var ErrMissingRoot = errors.New("missing trie root")

// Store keeps the nodes of storage tries in one key-value data source, keyed
// by node hash (the legacy hash scheme). Several tries, and several versions of
// the same trie, can share a store.
//
// Store 将存储 trie 的节点保存在一个键值数据源中，以节点哈希为键（传统哈希方案）。
// 多个 trie 以及同一 trie 的多个版本可以共享一个存储。
type Store struct {
	disk ethdb.KeyValueStore
	db   *triedb.Database
}

// NewStore wraps disk as a trie node store. cleanCache is the size in bytes of
// the clean node cache kept in front of the data source; zero disables it.
func NewStore(disk ethdb.KeyValueStore, cleanCache int) *Store {
	config := &triedb.Config{
		HashDB: &hashdb.Config{CleanCacheSize: cleanCache},
	}
	return &Store{
		disk: disk,
		db:   triedb.NewDatabase(rawdb.NewDatabase(disk), config),
	}
}

// NewMemoryStore returns a store over a fresh in-memory data source.
// NewMemoryStore 返回一个基于全新内存数据源的存储。
func NewMemoryStore() *Store {
	return NewStore(memorydb.New(), 0)
}

// Disk returns the data source backing the store.
func (s *Store) Disk() ethdb.KeyValueStore {
	return s.disk
}

// Has reports whether the node with the given hash is stored.
func (s *Store) Has(hash common.Hash) bool {
	return rawdb.HasLegacyTrieNode(s.disk, hash)
}

// Retrieve opens the trie with the given root. The empty root always resolves.
// Retrieve 打开具有给定根的 trie，空根总是可以解析。
func (s *Store) Retrieve(root common.Hash) (Trie, error) {
	if root == (common.Hash{}) {
		root = types.EmptyRootHash
	}
	if root != types.EmptyRootHash && !s.Has(root) {
		return nil, fmt.Errorf("%w %x", ErrMissingRoot, root)
	}
	tr, err := trie.New(trie.TrieID(root), s.db)
	if err != nil {
		return nil, err
	}
	return &storageTrie{store: s, tr: tr, root: root}, nil
}

// CopyFrom copies every node reachable from root in src into this store.
// CopyFrom 将 src 中从 root 可达的每个节点复制到此存储中。
func (s *Store) CopyFrom(src *Store, root common.Hash) error {
	t, err := src.Retrieve(root)
	if err != nil {
		return err
	}
	it, err := t.(*storageTrie).tr.NodeIterator(nil)
	if err != nil {
		return err
	}
	var (
		batch = s.disk.NewBatch()
		nodes int
	)
	for it.Next(true) {
		hash := it.Hash()
		if hash == (common.Hash{}) {
			continue // embedded in its parent
		}
		rawdb.WriteLegacyTrieNode(batch, hash, it.NodeBlob())
		nodes++

		if batch.ValueSize() >= ethdb.IdealBatchSize {
			if err := batch.Write(); err != nil {
				return err
			}
			batch.Reset()
		}
	}
	if err := it.Error(); err != nil {
		return err
	}
	if err := batch.Write(); err != nil {
		return err
	}
	log.Trace("Copied storage trie nodes", "root", root, "nodes", nodes)
	return nil
}
