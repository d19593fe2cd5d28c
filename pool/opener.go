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

package pool

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/ethdb"
	"github.com/ethereum/go-ethereum/ethdb/leveldb"
	"github.com/ethereum/go-ethereum/ethdb/memorydb"
	"github.com/ethereum/go-ethereum/ethdb/pebble"
	"github.com/syndtr/goleveldb/leveldb/opt"
)

const (
	// Supported backend kinds.
	// 支持的后端类型。
	MemoryBackend  = "memory"
	LevelDBBackend = "leveldb"
	PebbleBackend  = "pebble"

	// minCache and minHandles are the lower bounds applied per data source,
	// mirroring the defaults of the node's own databases.
	minCache   = 16
	minHandles = 16
)

// keepOpen shields an in-memory store from being wiped by Close, so a source
// released by every holder can be reopened with its content intact.
// keepOpen 防止内存存储被 Close 清空，使所有持有者都释放后的数据源在重新打开时内容保持不变。
type keepOpen struct {
	ethdb.KeyValueStore
}

func (keepOpen) Close() error { return nil }

// MemoryOpener returns an opener backed by named in-memory databases. A name
// always maps to the same database for the lifetime of the opener.
// MemoryOpener 返回一个基于命名内存数据库的打开器，在打开器生命周期内同一名称总是映射到同一数据库。
func MemoryOpener() Opener {
	var (
		lock sync.Mutex
		dbs  = make(map[string]*memorydb.Database)
	)
	return func(name string) (ethdb.KeyValueStore, error) {
		lock.Lock()
		defer lock.Unlock()

		db, ok := dbs[name]
		if !ok {
			db = memorydb.New()
			dbs[name] = db
		}
		return keepOpen{db}, nil
	}
}

// LevelDBOpener returns an opener creating one leveldb database per name below
// dir.
func LevelDBOpener(dir string, cache int, handles int) Opener {
	cache, handles = max(cache, minCache), max(handles, minHandles)
	return func(name string) (ethdb.KeyValueStore, error) {
		path, err := sourcePath(dir, name)
		if err != nil {
			return nil, err
		}
		return leveldb.NewCustom(path, namespace(name), func(options *opt.Options) {
			options.OpenFilesCacheCapacity = handles
			options.BlockCacheCapacity = cache / 2 * opt.MiB
			options.WriteBuffer = cache / 4 * opt.MiB
		})
	}
}

// PebbleOpener returns an opener creating one pebble database per name below
// dir.
func PebbleOpener(dir string, cache int, handles int) Opener {
	cache, handles = max(cache, minCache), max(handles, minHandles)
	return func(name string) (ethdb.KeyValueStore, error) {
		path, err := sourcePath(dir, name)
		if err != nil {
			return nil, err
		}
		return pebble.New(path, cache, handles, namespace(name), false)
	}
}

// NewOpener selects an opener by backend kind. The directory is ignored by the
// memory backend.
// NewOpener 按后端类型选择打开器，内存后端忽略目录参数。
func NewOpener(kind string, dir string, cache int, handles int) (Opener, error) {
	switch kind {
	case MemoryBackend:
		return MemoryOpener(), nil
	case LevelDBBackend:
		return LevelDBOpener(dir, cache, handles), nil
	case PebbleBackend, "":
		return PebbleOpener(dir, cache, handles), nil
	default:
		return nil, fmt.Errorf("unknown data source backend %q", kind)
	}
}

// sourcePath maps a data source name to a directory below root, refusing names
// escaping it.
func sourcePath(root string, name string) (string, error) {
	path := filepath.Join(root, filepath.FromSlash(name))
	if rel, err := filepath.Rel(root, path); err != nil || rel == "." || strings.HasPrefix(rel, "..") {
		return "", fmt.Errorf("invalid data source name %q", name)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return "", err
	}
	return path, nil
}

// namespace derives the metrics namespace of a data source.
func namespace(name string) string {
	return "pool/" + strings.ReplaceAll(name, "/", "-") + "/"
}
