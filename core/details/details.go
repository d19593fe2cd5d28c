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

// Package details implements the per-account contract storage layer: contract
// details owning a storage trie and code, and a cache persisting them into the
// account store in batches.
//
// Records of externally stored contracts carry the external flag and the
// storage root. Contracts still stored inline, such as code-only contracts
// under the default policy, are written with an empty flag and the serialized
// trie instead, so their bytes differ from records that always carry the flag.
// Any non-empty flag is read as external.
//
// Package details 实现了按账户划分的合约存储层：持有存储 trie 和代码的合约详情，
// 以及将其批量持久化到账户存储中的缓存。
package details

import (
	"bytes"
	"fmt"
	"sort"
	"sync"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/log"
	"github.com/holiman/uint256"
	"github.com/sunyihoo/go-contractdb/storagetrie"
)

// 合约存储可以内嵌在账户记录中（Embedded），也可以迁移到以地址命名的独立数据源中（External）。
// 迁移是一次性的：Embedded -> External 的转换在下一次 SyncStorage 时复制所有节点。

// StorageMode tells where the nodes of a contract's storage trie live.
// StorageMode 表示合约存储 trie 的节点存放位置。
type StorageMode uint8

const (
	// Embedded storage is serialized inline with the contract details record.
	Embedded StorageMode = iota

	// External storage lives in a pooled data source named after the address.
	External
)

func (m StorageMode) String() string {
	switch m {
	case Embedded:
		return "embedded"
	case External:
		return "external"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(m))
	}
}

// ContractDetails holds the code and storage trie of one contract. All methods
// are safe for concurrent use; operations on the same contract are serialized.
//
// ContractDetails 持有单个合约的代码和存储 trie。所有方法都可以并发调用，
// 对同一合约的操作是串行执行的。
type ContractDetails struct {
	db *Database

	address common.Address
	code    []byte
	trie    storagetrie.Trie
	keys    mapset.Set[common.Hash] // storage slots written through this instance

	dirty   bool
	deleted bool

	mode         StorageMode
	originalMode StorageMode // mode at decoding time, detects a pending promotion

	closed bool  // the data source reservation was released, reopen before use
	held   bool  // a data source reservation is held
	fault  error // sticky consistency failure

	lock sync.Mutex
}

func newContractDetails(db *Database, addr common.Address, tr storagetrie.Trie, code []byte) *ContractDetails {
	return &ContractDetails{
		db:      db,
		address: addr,
		code:    common.CopyBytes(code),
		trie:    tr,
		keys:    mapset.NewThreadUnsafeSet[common.Hash](),
	}
}

// Put stores a storage word. A zero (or nil) value deletes the slot.
// Put 存储一个存储字，零值（或 nil）会删除该槽位。
func (d *ContractDetails) Put(key common.Hash, value *uint256.Int) error {
	d.lock.Lock()
	defer d.lock.Unlock()

	log.Trace("Put contract storage word", "address", d.address, "key", key)
	if err := d.ready(); err != nil {
		return err
	}
	if value == nil || value.IsZero() {
		return d.put(key, nil)
	}
	return d.put(key, value.Bytes())
}

// PutBytes stores raw bytes in a storage slot. A nil or empty value deletes
// the slot.
// PutBytes 在存储槽中存储原始字节，nil 或空值会删除该槽位。
func (d *ContractDetails) PutBytes(key common.Hash, value []byte) error {
	d.lock.Lock()
	defer d.lock.Unlock()

	log.Trace("Put contract storage bytes", "address", d.address, "key", key)
	if err := d.ready(); err != nil {
		return err
	}
	return d.put(key, value)
}

// put is the lock-free version of PutBytes, the entity must be ready.
func (d *ContractDetails) put(key common.Hash, value []byte) error {
	if len(value) == 0 {
		if err := d.trie.Delete(key[:]); err != nil {
			return err
		}
		d.keys.Remove(key)
	} else {
		if err := d.trie.Put(key[:], common.CopyBytes(value)); err != nil {
			return err
		}
		d.keys.Add(key)
	}
	d.dirty = true
	d.checkExternalStorage()
	return nil
}

// Get retrieves a storage word, nil if the slot is empty.
// Get 检索一个存储字，槽位为空时返回 nil。
func (d *ContractDetails) Get(key common.Hash) (*uint256.Int, error) {
	d.lock.Lock()
	defer d.lock.Unlock()

	log.Trace("Get contract storage word", "address", d.address, "key", key)
	if err := d.ready(); err != nil {
		return nil, err
	}
	return d.get(key)
}

func (d *ContractDetails) get(key common.Hash) (*uint256.Int, error) {
	value, err := d.trie.Get(key[:])
	if err != nil {
		return nil, err
	}
	if len(value) == 0 {
		return nil, nil
	}
	if len(value) > 32 {
		value = value[len(value)-32:]
	}
	return new(uint256.Int).SetBytes(value), nil
}

// GetBytes retrieves the raw bytes of a storage slot, nil if the slot is empty.
// A failed lookup is retried once after forcing the data source to reopen; a
// second failure is returned to the caller.
//
// GetBytes 检索存储槽的原始字节，槽位为空时返回 nil。
// 查找失败时会在强制重新打开数据源后重试一次，第二次失败将返回给调用者。
func (d *ContractDetails) GetBytes(key common.Hash) ([]byte, error) {
	d.lock.Lock()
	defer d.lock.Unlock()

	log.Trace("Get contract storage bytes", "address", d.address, "key", key)
	if err := d.ready(); err != nil {
		return nil, err
	}
	value, err := d.trie.Get(key[:])
	if err != nil {
		log.Error("Failed to read contract storage, retrying", "address", d.address, "key", key, "err", err)
		retryMeter.Mark(1)

		if err := d.forceReopen(); err != nil {
			return nil, err
		}
		if value, err = d.trie.Get(key[:]); err != nil {
			return nil, err
		}
	}
	if len(value) == 0 {
		return nil, nil
	}
	return common.CopyBytes(value), nil
}

// Code returns a copy of the contract code.
func (d *ContractDetails) Code() []byte {
	d.lock.Lock()
	defer d.lock.Unlock()

	return common.CopyBytes(d.code)
}

// SetCode replaces the contract code with a copy of code.
func (d *ContractDetails) SetCode(code []byte) {
	d.lock.Lock()
	defer d.lock.Unlock()

	d.code = common.CopyBytes(code)
}

// StorageHash persists the pending storage mutations and returns the storage
// root, which also identifies the version for SnapshotTo.
// StorageHash 持久化待处理的存储修改并返回存储根，该根也用于 SnapshotTo 标识版本。
func (d *ContractDetails) StorageHash() (common.Hash, error) {
	d.lock.Lock()
	defer d.lock.Unlock()

	if err := d.ready(); err != nil {
		return common.Hash{}, err
	}
	if err := d.trie.Save(); err != nil {
		return common.Hash{}, err
	}
	root := d.trie.Hash()
	log.Trace("Contract storage hash", "address", d.address, "root", root)
	return root, nil
}

// StorageSize returns the number of known storage keys.
func (d *ContractDetails) StorageSize() int {
	d.lock.Lock()
	defer d.lock.Unlock()

	return d.keys.Cardinality()
}

// StorageKeys returns the known storage keys in ascending order.
// StorageKeys 按升序返回已知的存储键。
func (d *ContractDetails) StorageKeys() []common.Hash {
	d.lock.Lock()
	defer d.lock.Unlock()

	return d.sortedKeys()
}

func (d *ContractDetails) sortedKeys() []common.Hash {
	keys := d.keys.ToSlice()
	sort.Slice(keys, func(i, j int) bool {
		return bytes.Compare(keys[i][:], keys[j][:]) < 0
	})
	return keys
}

// Storage resolves the given storage keys, or every known key if keys is nil.
// Empty slots are left out of the result.
// Storage 解析给定的存储键（keys 为 nil 时解析所有已知键），空槽位不包含在结果中。
func (d *ContractDetails) Storage(keys []common.Hash) (map[common.Hash]*uint256.Int, error) {
	d.lock.Lock()
	defer d.lock.Unlock()

	if err := d.ready(); err != nil {
		return nil, err
	}
	if keys == nil {
		keys = d.keys.ToSlice()
	}
	storage := make(map[common.Hash]*uint256.Int, len(keys))
	for _, key := range keys {
		value, err := d.get(key)
		if err != nil {
			return nil, err
		}
		if value != nil {
			storage[key] = value
		}
	}
	return storage, nil
}

// SetStorage puts every key with the value at the same position. Slots written
// before a failure stay written.
// SetStorage 将每个键与相同位置的值写入，失败前已写入的槽位保持不变。
func (d *ContractDetails) SetStorage(keys []common.Hash, values []*uint256.Int) error {
	if len(keys) != len(values) {
		return fmt.Errorf("%w: %d keys, %d values", errLengthMismatch, len(keys), len(values))
	}
	d.lock.Lock()
	defer d.lock.Unlock()

	if err := d.ready(); err != nil {
		return err
	}
	for i, key := range keys {
		var value []byte
		if values[i] != nil && !values[i].IsZero() {
			value = values[i].Bytes()
		}
		if err := d.put(key, value); err != nil {
			return err
		}
	}
	return nil
}

// SetStorageMap puts every key/value pair of storage.
func (d *ContractDetails) SetStorageMap(storage map[common.Hash]*uint256.Int) error {
	keys := make([]common.Hash, 0, len(storage))
	values := make([]*uint256.Int, 0, len(storage))
	for key, value := range storage {
		keys = append(keys, key)
		values = append(values, value)
	}
	return d.SetStorage(keys, values)
}

// SyncStorage persists the storage trie. A pending move to external storage is
// carried out by copying every node into the data source named after the
// address. Externally stored contracts release their data source afterwards
// and reopen it on next access.
//
// SyncStorage 持久化存储 trie。待执行的外部存储迁移会将所有节点复制到以地址命名的数据源中。
// 外部存储的合约随后释放其数据源，并在下次访问时重新打开。
func (d *ContractDetails) SyncStorage() error {
	d.lock.Lock()
	defer d.lock.Unlock()

	return d.syncStorage()
}

func (d *ContractDetails) syncStorage() error {
	if d.fault != nil {
		return fmt.Errorf("%w: %w", ErrFaulted, d.fault)
	}
	if d.closed {
		// Released right after the last sync and untouched since, any
		// mutation would have reopened it.
		return nil
	}
	log.Trace("Syncing contract storage", "address", d.address, "root", d.trie.Hash(), "size", d.keys.Cardinality(), "mode", d.mode)

	if d.trie.HasStore() {
		if err := d.trie.Save(); err != nil {
			return err
		}
	}
	if d.mode == External && d.originalMode == Embedded {
		if err := d.promote(); err != nil {
			return err
		}
	}
	if d.mode == External && d.held {
		log.Trace("Closing contract details data source", "address", d.address, "root", d.trie.Hash())
		d.held, d.closed = false, true
		return d.db.release(d.address)
	}
	return nil
}

// promote copies the embedded storage trie into the data source of the
// contract and swaps the trie handle over to the copy.
func (d *ContractDetails) promote() error {
	if d.trie.HasStore() {
		if err := d.trie.Save(); err != nil {
			return err
		}
	}
	root := d.trie.Hash()
	log.Trace("Switching contract storage to data source", "address", d.address, "root", root)

	src := d.trie.Store()
	if src == nil {
		blob, err := d.trie.Serialize()
		if err != nil {
			return err
		}
		tr, err := storagetrie.Deserialize(blob)
		if err != nil {
			return err
		}
		src = tr.Store()
	}
	store, err := d.db.acquire(d.address)
	if err != nil {
		return err
	}
	if err := store.CopyFrom(src, root); err != nil {
		d.releaseQuietly()
		return fmt.Errorf("failed to copy storage of %x: %w", d.address, err)
	}
	tr, err := store.Retrieve(root)
	if err != nil {
		d.releaseQuietly()
		log.Error("Error switching contract storage to data source", "address", d.address, "root", root, "err", err)
		d.fault = &ConsistencyError{Address: d.address, Root: root, Err: err}
		return d.fault
	}
	d.trie, d.held = tr, true
	d.originalMode = External
	promoteMeter.Mark(1)
	return nil
}

// SnapshotTo returns contract details viewing the storage as of root. The
// snapshot shares code, known keys and storage mode with d at the time of the
// call, but reads and writes its own trie. A held data source is reserved once
// more on behalf of the snapshot.
//
// SnapshotTo 返回查看 root 时刻存储的合约详情。快照在调用时与 d 共享代码、已知键和存储模式，
// 但读写自己的 trie。已持有的数据源会为快照再预留一次。
func (d *ContractDetails) SnapshotTo(root common.Hash) (*ContractDetails, error) {
	d.lock.Lock()
	defer d.lock.Unlock()

	if err := d.ready(); err != nil {
		return nil, err
	}
	if err := d.trie.Save(); err != nil {
		return nil, err
	}
	tr, err := d.trie.SnapshotTo(root)
	if err != nil {
		return nil, err
	}
	snap := newContractDetails(d.db, d.address, tr, d.code)
	snap.keys = d.keys.Clone()
	snap.mode, snap.originalMode = d.mode, d.originalMode

	if d.held {
		if err := d.db.reserve(d.address); err != nil {
			return nil, err
		}
		snap.held = true
	}
	log.Trace("Contract details snapshot", "address", d.address, "root", root, "size", snap.keys.Cardinality(), "mode", snap.mode)
	return snap, nil
}

// Close releases the data source reservation held by the contract details, if
// any. The details stay usable and reopen the data source on next access.
// Close 释放合约详情持有的数据源预留（如果有），合约详情仍可使用并会在下次访问时重新打开数据源。
func (d *ContractDetails) Close() error {
	d.lock.Lock()
	defer d.lock.Unlock()

	return d.close()
}

func (d *ContractDetails) close() error {
	if !d.held {
		return nil
	}
	// The reopened trie is retrieved by its current root, so pending
	// mutations have to reach the data source first.
	if err := d.trie.Save(); err != nil {
		return err
	}
	d.held, d.closed = false, true
	return d.db.release(d.address)
}

// IsNullObject reports whether the contract has neither code nor storage keys.
func (d *ContractDetails) IsNullObject() bool {
	d.lock.Lock()
	defer d.lock.Unlock()

	return len(d.code) == 0 && d.keys.Cardinality() == 0
}

// Address returns the address of the contract.
func (d *ContractDetails) Address() common.Address {
	d.lock.Lock()
	defer d.lock.Unlock()

	return d.address
}

// SetAddress changes the address of the contract. The external data source
// name follows the address, so it is meant to be set before storage moves out.
func (d *ContractDetails) SetAddress(addr common.Address) {
	d.lock.Lock()
	defer d.lock.Unlock()

	d.address = addr
}

// Dirty reports whether the contract details have changes not yet flushed to
// the account store.
func (d *ContractDetails) Dirty() bool {
	d.lock.Lock()
	defer d.lock.Unlock()

	return d.dirty
}

// SetDirty sets the unflushed changes flag.
func (d *ContractDetails) SetDirty(dirty bool) {
	d.lock.Lock()
	defer d.lock.Unlock()

	d.dirty = dirty
}

// Deleted reports whether the contract has been marked as deleted.
func (d *ContractDetails) Deleted() bool {
	d.lock.Lock()
	defer d.lock.Unlock()

	return d.deleted
}

// SetDeleted marks the contract as deleted or not. The flag is kept in memory
// only and is left to the owner of the contract details.
func (d *ContractDetails) SetDeleted(deleted bool) {
	d.lock.Lock()
	defer d.lock.Unlock()

	d.deleted = deleted
}

// Mode returns the current storage mode.
func (d *ContractDetails) Mode() StorageMode {
	d.lock.Lock()
	defer d.lock.Unlock()

	return d.mode
}

// Trie returns the storage trie currently owned by the contract details.
func (d *ContractDetails) Trie() storagetrie.Trie {
	d.lock.Lock()
	defer d.lock.Unlock()

	return d.trie
}

// checkExternalStorage applies the storage mode policy after a mutation.
func (d *ContractDetails) checkExternalStorage() {
	if d.mode == External {
		return
	}
	if d.db.config.Externalize(d.keys.Cardinality(), d.db.config.MemoryStorageLimit) {
		d.mode = External
	}
}

// ready fails on faulted contract details and reopens a released data source.
func (d *ContractDetails) ready() error {
	if d.fault != nil {
		return fmt.Errorf("%w: %w", ErrFaulted, d.fault)
	}
	if !d.closed || d.mode != External {
		return nil
	}
	log.Trace("Reopening contract details data source", "address", d.address)
	return d.reopen()
}

// reopen acquires the data source of the contract and retrieves the current
// storage root from it. The contract details are left untouched on failure.
func (d *ContractDetails) reopen() error {
	root := d.trie.Hash()
	store, err := d.db.acquire(d.address)
	if err != nil {
		return err
	}
	tr, err := store.Retrieve(root)
	if err != nil {
		d.releaseQuietly()
		return err
	}
	d.trie, d.held, d.closed = tr, true, false
	reopenMeter.Mark(1)
	return nil
}

// forceReopen replaces the trie handle of an externally stored contract with
// one retrieved from the physically reopened data source. Tries not backed by
// the pool are left as they are.
func (d *ContractDetails) forceReopen() error {
	if d.mode != External || (!d.held && !d.closed) {
		return nil
	}
	if d.held {
		if err := d.trie.Save(); err != nil {
			return err
		}
		d.held, d.closed = false, true
		if err := d.db.release(d.address); err != nil {
			log.Debug("Failed to release contract details data source", "address", d.address, "err", err)
		}
	}
	// On failure the old handle stays, the saved root is retrieved again on
	// next access.
	return d.reopen()
}

// releaseQuietly drops a reservation taken on an error path, the original
// error is the one reported.
func (d *ContractDetails) releaseQuietly() {
	if err := d.db.release(d.address); err != nil {
		log.Debug("Failed to release contract details data source", "address", d.address, "err", err)
	}
}
