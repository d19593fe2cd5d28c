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

// Package pool implements a process-wide registry of named key-value data
// sources shared by reference count.
// Package pool 实现了一个进程范围内按名称注册、按引用计数共享的键值数据源池。
package pool

import (
	"errors"
	"fmt"
	"sync"

	"github.com/ethereum/go-ethereum/ethdb"
	"github.com/ethereum/go-ethereum/log"
	"github.com/ethereum/go-ethereum/metrics"
)

var (
	// ErrNotOpen is returned when reserving or releasing a data source which
	// has no live holder in the pool.
	// ErrNotOpen 在预留或释放一个池中没有持有者的数据源时返回。
	ErrNotOpen = errors.New("data source not open")

	// errPoolClosed is returned if the pool was already shut down.
	errPoolClosed = errors.New("pool closed")
)

var (
	openGauge     = metrics.NewRegisteredGauge("pool/open", nil)
	acquireMeter  = metrics.NewRegisteredMeter("pool/acquire", nil)
	releaseMeter  = metrics.NewRegisteredMeter("pool/release", nil)
	physOpenMeter = metrics.NewRegisteredMeter("pool/physical/open", nil)
)

// Opener physically opens the data source registered under name.
// Opener 物理打开以 name 注册的数据源。
type Opener func(name string) (ethdb.KeyValueStore, error)

// source is a physically open data source along with its holder count.
type source struct {
	db   ethdb.KeyValueStore
	refs int
}

// Pool hands out shared handles to named data sources. The first Acquire of a
// name opens it, every Acquire or Reserve adds a holder and every Release drops
// one. The data source is physically closed when the last holder releases it,
// and reopened transparently by the next Acquire.
//
// Pool 对外提供按名称共享的数据源句柄。某个名称的首次 Acquire 会打开数据源，
// 每次 Acquire 或 Reserve 增加一个持有者，每次 Release 减少一个。
// 最后一个持有者释放时数据源被物理关闭，下一次 Acquire 会透明地重新打开它。
type Pool struct {
	opener  Opener
	sources map[string]*source
	closed  bool
	lock    sync.Mutex
}

// New creates an empty pool opening data sources through opener.
func New(opener Opener) *Pool {
	return &Pool{
		opener:  opener,
		sources: make(map[string]*source),
	}
}

// Acquire returns the data source registered under name, opening it if no one
// holds it yet, and registers the caller as a holder.
// Acquire 返回以 name 注册的数据源（若尚无持有者则打开它），并将调用者登记为持有者。
func (p *Pool) Acquire(name string) (ethdb.KeyValueStore, error) {
	p.lock.Lock()
	defer p.lock.Unlock()

	if p.closed {
		return nil, errPoolClosed
	}
	if src, ok := p.sources[name]; ok {
		src.refs++
		acquireMeter.Mark(1)
		return src.db, nil
	}
	db, err := p.opener(name)
	if err != nil {
		return nil, fmt.Errorf("failed to open data source %q: %w", name, err)
	}
	p.sources[name] = &source{db: db, refs: 1}
	openGauge.Update(int64(len(p.sources)))
	physOpenMeter.Mark(1)
	acquireMeter.Mark(1)

	log.Trace("Opened pooled data source", "name", name)
	return db, nil
}

// Reserve registers one more holder of an already open data source without
// handing out the handle. It is used to share a source with a snapshot.
// Reserve 为一个已打开的数据源再登记一个持有者而不返回句柄，用于与快照共享数据源。
func (p *Pool) Reserve(name string) error {
	p.lock.Lock()
	defer p.lock.Unlock()

	src, ok := p.sources[name]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotOpen, name)
	}
	src.refs++
	acquireMeter.Mark(1)
	return nil
}

// Release drops one holder of the named data source and physically closes it
// once nobody holds it anymore.
// Release 移除命名数据源的一个持有者，当不再有持有者时将其物理关闭。
func (p *Pool) Release(name string) error {
	p.lock.Lock()
	defer p.lock.Unlock()

	src, ok := p.sources[name]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotOpen, name)
	}
	releaseMeter.Mark(1)
	if src.refs--; src.refs > 0 {
		return nil
	}
	delete(p.sources, name)
	openGauge.Update(int64(len(p.sources)))

	log.Trace("Closing pooled data source", "name", name)
	return src.db.Close()
}

// Refs returns the number of holders of the named data source, zero if it is
// not open.
func (p *Pool) Refs(name string) int {
	p.lock.Lock()
	defer p.lock.Unlock()

	if src, ok := p.sources[name]; ok {
		return src.refs
	}
	return 0
}

// Len returns the number of physically open data sources.
func (p *Pool) Len() int {
	p.lock.Lock()
	defer p.lock.Unlock()

	return len(p.sources)
}

// Close force-closes every open data source regardless of its holders. Any
// further Acquire fails.
// Close 强制关闭所有已打开的数据源而不考虑持有者，此后任何 Acquire 都会失败。
func (p *Pool) Close() error {
	p.lock.Lock()
	defer p.lock.Unlock()

	var errs []error
	for name, src := range p.sources {
		if src.refs > 0 {
			log.Debug("Force closing held data source", "name", name, "refs", src.refs)
		}
		if err := src.db.Close(); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", name, err))
		}
	}
	p.sources = make(map[string]*source)
	p.closed = true
	openGauge.Update(0)
	return errors.Join(errs...)
}
