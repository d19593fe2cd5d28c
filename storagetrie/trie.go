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

// Package storagetrie exposes contract storage tries on top of the Merkle
// Patricia trie, with deferred persistence into a node store and historical
// views by root hash.
//
// Package storagetrie 在 Merkle Patricia trie 之上提供合约存储 trie，
// 支持延迟持久化到节点存储以及按根哈希访问历史视图。
package storagetrie

//go:generate mockgen -source trie.go -destination trie_mocks.go -package storagetrie

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/trie"
	"github.com/ethereum/go-ethereum/trie/trienode"
)

// Trie is a content-addressed map from storage slot to value. Mutations stay in
// memory until Save writes them into the backing store.
//
// Trie 是从存储槽到值的内容寻址映射。修改保留在内存中，直到 Save 将其写入后端存储。
type Trie interface {
	// Get returns the value stored under key, nil if there is none.
	// Get 返回 key 下存储的值，不存在时返回 nil。
	Get(key []byte) ([]byte, error)

	// Put associates key with value. An empty value deletes the key.
	// Put 将 key 与 value 关联，空值会删除该键。
	Put(key, value []byte) error

	// Delete removes key from the trie.
	// Delete 从 trie 中删除 key。
	Delete(key []byte) error

	// Hash returns the root hash of the trie, including unsaved mutations.
	// Hash 返回 trie 的根哈希，包括尚未保存的修改。
	Hash() common.Hash

	// Save writes all pending nodes into the backing store. It is a no-op for
	// tries without a store.
	// Save 将所有待写入的节点写入后端存储，对于没有存储的 trie 不执行任何操作。
	Save() error

	// SnapshotTo opens an independent view of the trie at the given root,
	// sharing the backing store.
	// SnapshotTo 打开 trie 在给定根处的独立视图，共享后端存储。
	SnapshotTo(root common.Hash) (Trie, error)

	// HasStore reports whether the trie is backed by a node store.
	HasStore() bool

	// Store returns the backing node store, nil if there is none.
	Store() *Store

	// Serialize returns the self-contained form of the trie: its root and every
	// node reachable from it.
	// Serialize 返回 trie 的自包含形式：根以及从根可达的所有节点。
	Serialize() ([]byte, error)
}

// storageTrie implements Trie over a go-ethereum trie and a Store.
type storageTrie struct {
	store *Store // nil for detached tries
	tr    *trie.Trie
	root  common.Hash // root of the last saved version
}

// New creates an empty trie in store. A nil store yields a detached trie
// which lives in memory only.
// New 在 store 中创建一个空 trie，nil store 会产生一个仅存在于内存中的独立 trie。
func New(store *Store) Trie {
	t := &storageTrie{store: store, root: types.EmptyRootHash}
	if store != nil {
		t.tr = trie.NewEmpty(store.db)
	} else {
		t.tr = trie.NewEmpty(nil)
	}
	return t
}

func (t *storageTrie) Get(key []byte) ([]byte, error) {
	return t.tr.Get(key)
}

func (t *storageTrie) Put(key, value []byte) error {
	return t.tr.Update(key, value)
}

func (t *storageTrie) Delete(key []byte) error {
	return t.tr.Delete(key)
}

func (t *storageTrie) Hash() common.Hash {
	return t.tr.Hash()
}

func (t *storageTrie) HasStore() bool {
	return t.store != nil
}

func (t *storageTrie) Store() *Store {
	return t.store
}

// Save commits the dirty nodes into the node store and flushes them to disk.
// A committed go-ethereum trie is no longer usable, so it is reopened at the
// new root afterwards.
func (t *storageTrie) Save() error {
	if t.store == nil {
		return nil
	}
	root, nodes := t.tr.Commit(false)
	if nodes != nil {
		if err := t.store.db.Update(root, t.root, 0, trienode.NewWithNodeSet(nodes), nil); err != nil {
			return err
		}
		if err := t.store.db.Commit(root, false); err != nil {
			return err
		}
	}
	tr, err := trie.New(trie.TrieID(root), t.store.db)
	if err != nil {
		return err
	}
	t.tr, t.root = tr, root
	return nil
}

func (t *storageTrie) SnapshotTo(root common.Hash) (Trie, error) {
	if t.store == nil {
		if root == t.Hash() {
			return &storageTrie{tr: t.tr.Copy(), root: t.root}, nil
		}
		return nil, ErrMissingRoot
	}
	return t.store.Retrieve(root)
}

func (t *storageTrie) Serialize() ([]byte, error) {
	return serialize(t)
}
