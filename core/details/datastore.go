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
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/VictoriaMetrics/fastcache"
	mapset "github.com/deckarep/golang-set/v2"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethdb"
	"github.com/ethereum/go-ethereum/log"
	"github.com/sunyihoo/go-contractdb/core/rawdb"
	"golang.org/x/sync/errgroup"
)

// maxCachedRecord is the largest record kept in the record cache, fastcache
// silently drops bigger entries.
const maxCachedRecord = 64*1024 - 64

// DataStore is a write-back cache of contract details in front of the account
// store. Entries stay cached after a flush until evicted.
//
// DataStore 是位于账户存储之前的合约详情回写缓存。刷新后条目仍保留在缓存中，直到被驱逐。
type DataStore struct {
	db   *Database
	disk ethdb.KeyValueStore // account store holding the encoded records

	records *fastcache.Cache // encoded records known to be persisted, nil if disabled

	entries  map[common.Address]*ContractDetails
	removed  mapset.Set[common.Address] // removed since the last flush
	lock     sync.Mutex
	flushing sync.Mutex // serializes flushes
}

// NewDataStore creates a contract details cache over the given account store.
// NewDataStore 在给定的账户存储之上创建合约详情缓存。
func NewDataStore(db *Database, disk ethdb.KeyValueStore) *DataStore {
	var records *fastcache.Cache
	if size := db.config.RecordCache; size > 0 {
		records = fastcache.New(size * 1024 * 1024)
	}
	return &DataStore{
		db:      db,
		disk:    disk,
		records: records,
		entries: make(map[common.Address]*ContractDetails),
		removed: mapset.NewThreadUnsafeSet[common.Address](),
	}
}

// Get returns the contract details of addr, loading them from the account
// store if not cached. Nil is returned for unknown or removed addresses.
//
// Get 返回 addr 的合约详情，未缓存时从账户存储加载。未知或已删除的地址返回 nil。
func (s *DataStore) Get(addr common.Address) (*ContractDetails, error) {
	s.lock.Lock()
	if s.removed.Contains(addr) {
		s.lock.Unlock()
		return nil, nil
	}
	if details, ok := s.entries[addr]; ok {
		s.lock.Unlock()
		cacheHitMeter.Mark(1)
		return details, nil
	}
	s.lock.Unlock()
	cacheMissMeter.Mark(1)

	blob, err := s.readRecord(addr)
	if err != nil {
		return nil, fmt.Errorf("failed to read contract details %x: %w", addr, err)
	}
	if len(blob) == 0 {
		return nil, nil
	}
	details, err := s.db.Decode(blob)
	if err != nil {
		return nil, fmt.Errorf("failed to decode contract details %x: %w", addr, err)
	}
	s.lock.Lock()
	defer s.lock.Unlock()

	// Someone else may have loaded, updated or removed the entry meanwhile, the
	// freshly decoded copy loses in every case.
	if s.removed.Contains(addr) {
		details.Close()
		return nil, nil
	}
	if existing, ok := s.entries[addr]; ok {
		details.Close()
		return existing, nil
	}
	s.entries[addr] = details
	return details, nil
}

func (s *DataStore) readRecord(addr common.Address) ([]byte, error) {
	if s.records != nil {
		if blob, found := s.records.HasGet(nil, addr[:]); found {
			recordHitMeter.Mark(1)
			return blob, nil
		}
	}
	return rawdb.ReadContractDetails(s.disk, addr)
}

// Update caches details as the contract details of addr and marks them dirty.
// An earlier removal of addr is cancelled.
// Update 将 details 缓存为 addr 的合约详情并标记为脏，之前对 addr 的删除会被取消。
func (s *DataStore) Update(addr common.Address, details *ContractDetails) {
	details.SetDirty(true)

	s.lock.Lock()
	defer s.lock.Unlock()

	s.entries[addr] = details
	s.removed.Remove(addr)
}

// Remove drops the contract details of addr. The persisted record is deleted
// on the next flush.
// Remove 丢弃 addr 的合约详情，持久化的记录将在下一次刷新时删除。
func (s *DataStore) Remove(addr common.Address) {
	s.lock.Lock()
	defer s.lock.Unlock()

	delete(s.entries, addr)
	s.removed.Add(addr)
}

// Flush syncs and persists every dirty cached contract, and deletes the records
// of contracts removed since the last flush, all in one batch. Contracts are
// synced concurrently to one another.
//
// Flush 同步并持久化每个脏的缓存合约，并删除自上次刷新以来被移除的合约记录，全部在一个批次中完成。
// 合约之间并发同步。
func (s *DataStore) Flush() error {
	s.flushing.Lock()
	defer s.flushing.Unlock()

	start := time.Now()

	// Take a snapshot of the membership, entities are synced without holding
	// the cache lock.
	s.lock.Lock()
	var (
		addrs   = make([]common.Address, 0, len(s.entries))
		entries = make([]*ContractDetails, 0, len(s.entries))
		removed = s.removed.ToSlice()
	)
	for addr, details := range s.entries {
		addrs = append(addrs, addr)
		entries = append(entries, details)
	}
	s.lock.Unlock()

	var (
		encoded = make([][]byte, len(entries))
		workers errgroup.Group
	)
	workers.SetLimit(s.db.config.FlushConcurrency)
	for i, details := range entries {
		workers.Go(func() error {
			enc, err := details.commit()
			if err != nil {
				return fmt.Errorf("failed to flush contract details %x: %w", addrs[i], err)
			}
			encoded[i] = enc
			return nil
		})
	}
	err := workers.Wait()

	// The membership may have changed while committing. The cache lock is held
	// until the batch is written, so no removal can slip in between.
	s.lock.Lock()
	if err == nil {
		for i, enc := range encoded {
			if enc != nil && (s.removed.Contains(addrs[i]) || s.entries[addrs[i]] != entries[i]) {
				log.Trace("Skipping stale contract details", "address", addrs[i])
				encoded[i] = nil
			}
		}
		err = s.write(addrs, encoded, removed)
	}
	if err != nil {
		s.lock.Unlock()

		// Nothing reached the account store, everything committed so far has
		// to be written again next time.
		for i, enc := range encoded {
			if enc != nil {
				entries[i].SetDirty(true)
			}
		}
		return err
	}
	var written int
	for i, enc := range encoded {
		if enc == nil {
			continue
		}
		written++
		if s.records != nil {
			if len(enc) > maxCachedRecord {
				s.records.Del(addrs[i][:])
			} else {
				s.records.Set(addrs[i][:], enc)
			}
		}
	}
	for _, addr := range removed {
		s.removed.Remove(addr)
		if s.records != nil {
			s.records.Del(addr[:])
		}
	}
	s.lock.Unlock()

	flushRecordsMeter.Mark(int64(written))
	flushRemovesMeter.Mark(int64(len(removed)))
	flushTimer.UpdateSince(start)

	log.Debug("Flushed contract details", "records", written, "removed", len(removed), "cached", len(entries), "elapsed", common.PrettyDuration(time.Since(start)))
	return nil
}

func (s *DataStore) write(addrs []common.Address, encoded [][]byte, removed []common.Address) error {
	batch := s.disk.NewBatch()
	for _, addr := range removed {
		if err := rawdb.DeleteContractDetails(batch, addr); err != nil {
			return err
		}
	}
	for i, enc := range encoded {
		if enc == nil {
			continue
		}
		if err := rawdb.WriteContractDetails(batch, addrs[i], enc); err != nil {
			return err
		}
	}
	if err := batch.Write(); err != nil {
		log.Error("Failed to write contract details", "err", err)
		return err
	}
	return nil
}

// commit syncs and encodes dirty contract details and clears the dirty flag.
// Nil is returned for clean contract details.
func (d *ContractDetails) commit() ([]byte, error) {
	d.lock.Lock()
	defer d.lock.Unlock()

	if !d.dirty {
		return nil, nil
	}
	// Encoding saves the trie and carries out a pending move, the sync after
	// it only releases the data source.
	enc, err := d.encode()
	if err != nil {
		return nil, err
	}
	if err := d.syncStorage(); err != nil {
		return nil, err
	}
	d.dirty = false
	return enc, nil
}

// Evict drops the cached contract details of addr if they have no unflushed
// changes, releasing their data source. It reports whether the entry is gone.
//
// Evict 在 addr 的缓存合约详情没有未刷新的修改时将其丢弃，并释放其数据源。返回条目是否已不在缓存中。
func (s *DataStore) Evict(addr common.Address) bool {
	s.lock.Lock()
	details, ok := s.entries[addr]
	s.lock.Unlock()
	if !ok {
		return true
	}
	details.lock.Lock()
	defer details.lock.Unlock()

	if details.dirty {
		return false
	}
	s.lock.Lock()
	if s.entries[addr] != details {
		s.lock.Unlock()
		return false
	}
	delete(s.entries, addr)
	s.lock.Unlock()

	if err := details.close(); err != nil {
		log.Warn("Failed to close evicted contract details", "address", addr, "err", err)
	}
	return true
}

// Len returns the number of cached contract details.
func (s *DataStore) Len() int {
	s.lock.Lock()
	defer s.lock.Unlock()

	return len(s.entries)
}

// Close releases the data sources held by every cached contract and empties
// the cache. Unflushed changes are lost.
// Close 释放所有缓存合约持有的数据源并清空缓存，未刷新的修改将丢失。
func (s *DataStore) Close() error {
	s.lock.Lock()
	entries := s.entries
	s.entries = make(map[common.Address]*ContractDetails)
	s.lock.Unlock()

	var errs []error
	for _, details := range entries {
		if err := details.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if s.records != nil {
		s.records.Reset()
	}
	return errors.Join(errs...)
}
