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
	"bytes"
	"fmt"
	"sort"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/rawdb"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/rlp"
	"github.com/ethereum/go-ethereum/trie/trienode"
)

// embeddedTrie is the self-contained encoding of a trie, used when the trie is
// stored inline with its owner instead of in a data source of its own.
// embeddedTrie 是 trie 的自包含编码，用于 trie 内联存储在其所有者中而非独立数据源中的情况。
type embeddedTrie struct {
	Root  common.Hash
	Nodes [][]byte // sorted by node hash
}

type hashedNode struct {
	hash common.Hash
	blob []byte
}

func serialize(t *storageTrie) ([]byte, error) {
	var nodes []hashedNode
	if t.store == nil {
		// Everything of a detached trie is dirty, a commit on a copy yields
		// all of its nodes without touching the original.
		_, set := t.tr.Copy().Commit(false)
		if set != nil {
			set.ForEachWithOrder(func(path string, n *trienode.Node) {
				if !n.IsDeleted() {
					nodes = append(nodes, hashedNode{n.Hash, n.Blob})
				}
			})
		}
	} else {
		if err := t.Save(); err != nil {
			return nil, err
		}
		it, err := t.tr.NodeIterator(nil)
		if err != nil {
			return nil, err
		}
		for it.Next(true) {
			if hash := it.Hash(); hash != (common.Hash{}) {
				nodes = append(nodes, hashedNode{hash, it.NodeBlob()})
			}
		}
		if err := it.Error(); err != nil {
			return nil, err
		}
	}
	sort.Slice(nodes, func(i, j int) bool {
		return bytes.Compare(nodes[i].hash[:], nodes[j].hash[:]) < 0
	})
	enc := embeddedTrie{Root: t.Hash(), Nodes: make([][]byte, len(nodes))}
	for i, n := range nodes {
		enc.Nodes[i] = n.blob
	}
	return rlp.EncodeToBytes(&enc)
}

// Deserialize rebuilds a trie from its self-contained encoding into a fresh
// in-memory store.
// Deserialize 将自包含编码的 trie 重建到一个全新的内存存储中。
func Deserialize(blob []byte) (Trie, error) {
	var dec embeddedTrie
	if err := rlp.DecodeBytes(blob, &dec); err != nil {
		return nil, fmt.Errorf("invalid embedded trie: %w", err)
	}
	store := NewMemoryStore()
	batch := store.disk.NewBatch()
	for _, node := range dec.Nodes {
		rawdb.WriteLegacyTrieNode(batch, crypto.Keccak256Hash(node), node)
	}
	if err := batch.Write(); err != nil {
		return nil, err
	}
	return store.Retrieve(dec.Root)
}
