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
	"sync"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethdb"
	"github.com/ethereum/go-ethereum/ethdb/memorydb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/sunyihoo/go-contractdb/core/rawdb"
	"github.com/sunyihoo/go-contractdb/storagetrie"
)

func newTestDataStore() (*DataStore, *Database, ethdb.KeyValueStore) {
	db, _ := newTestDatabase(nil)
	disk := memorydb.New()
	return NewDataStore(db, disk), db, disk
}

// newTestDetails creates the contract of the reference scenario: code
// 60606060 and slot 0x11 holding 0xaa.
func newTestDetails(t *testing.T, db *Database, addr common.Address) *ContractDetails {
	t.Helper()
	d := db.New(addr, testCode)
	require.NoError(t, d.Put(key(0x11), word(0xaa)))
	return d
}

func encoded(t *testing.T, d *ContractDetails) []byte {
	t.Helper()
	enc, err := d.Encoded()
	require.NoError(t, err)
	return enc
}

func readRecord(t *testing.T, disk ethdb.KeyValueReader, addr common.Address) []byte {
	t.Helper()
	blob, err := rawdb.ReadContractDetails(disk, addr)
	require.NoError(t, err)
	return blob
}

func TestDataStoreUpdateFlushGet(t *testing.T) {
	store, db, disk := newTestDataStore()
	d := newTestDetails(t, db, common.HexToAddress("0xdeadbeef"))

	store.Update(testAddr, d)
	have, err := store.Get(testAddr)
	require.NoError(t, err)
	want := encoded(t, d)
	require.Equal(t, want, encoded(t, have))

	require.NoError(t, store.Flush())
	have, err = store.Get(testAddr)
	require.NoError(t, err)
	require.Equal(t, want, encoded(t, have))
	require.False(t, have.Dirty())
	require.Equal(t, want, readRecord(t, disk, testAddr))

	// A fresh cache loads the same contract from the account store.
	fresh := NewDataStore(db, disk)
	have, err = fresh.Get(testAddr)
	require.NoError(t, err)
	require.NotNil(t, have)
	require.Equal(t, want, encoded(t, have))
	v, err := have.Get(key(0x11))
	require.NoError(t, err)
	require.Equal(t, word(0xaa), v)
}

func TestDataStoreRemove(t *testing.T) {
	store, db, disk := newTestDataStore()
	d := newTestDetails(t, db, testAddr)

	store.Update(testAddr, d)
	have, err := store.Get(testAddr)
	require.NoError(t, err)
	require.Equal(t, encoded(t, d), encoded(t, have))

	store.Remove(testAddr)
	have, err = store.Get(testAddr)
	require.NoError(t, err)
	require.Nil(t, have)

	require.NoError(t, store.Flush())
	have, err = store.Get(testAddr)
	require.NoError(t, err)
	require.Nil(t, have)
	require.False(t, rawdb.HasContractDetails(disk, testAddr))
}

func TestDataStoreRemoveReadd(t *testing.T) {
	store, db, _ := newTestDataStore()
	d := newTestDetails(t, db, testAddr)

	store.Update(testAddr, d)
	want := encoded(t, d)

	store.Remove(testAddr)
	store.Update(testAddr, d)
	have, err := store.Get(testAddr)
	require.NoError(t, err)
	require.Equal(t, want, encoded(t, have))

	require.NoError(t, store.Flush())
	have, err = store.Get(testAddr)
	require.NoError(t, err)
	require.Equal(t, want, encoded(t, have))
}

func TestDataStoreUnknownAddress(t *testing.T) {
	store, _, _ := newTestDataStore()

	have, err := store.Get(testAddr)
	require.NoError(t, err)
	require.Nil(t, have)
	require.Zero(t, store.Len())
}

func TestDataStoreRemovalHidesPersisted(t *testing.T) {
	store, db, disk := newTestDataStore()
	store.Update(testAddr, newTestDetails(t, db, testAddr))
	require.NoError(t, store.Flush())
	require.True(t, rawdb.HasContractDetails(disk, testAddr))

	// The removal wins over the persisted record, before and after the flush.
	store.Remove(testAddr)
	have, err := store.Get(testAddr)
	require.NoError(t, err)
	require.Nil(t, have)

	require.NoError(t, store.Flush())
	require.False(t, rawdb.HasContractDetails(disk, testAddr))
	have, err = store.Get(testAddr)
	require.NoError(t, err)
	require.Nil(t, have)
}

func TestDataStoreFlushIdempotent(t *testing.T) {
	store, db, disk := newTestDataStore()
	store.Update(testAddr, newTestDetails(t, db, testAddr))

	require.NoError(t, store.Flush())
	first := readRecord(t, disk, testAddr)
	require.NoError(t, store.Flush())
	require.Equal(t, first, readRecord(t, disk, testAddr))
	require.Equal(t, 1, store.Len())
}

func TestDataStoreEvict(t *testing.T) {
	store, db, _ := newTestDataStore()
	d := newTestDetails(t, db, testAddr)
	store.Update(testAddr, d)
	want := encoded(t, d)

	// Unflushed changes pin the entry.
	require.False(t, store.Evict(testAddr))
	require.Equal(t, 1, store.Len())

	require.NoError(t, store.Flush())
	require.True(t, store.Evict(testAddr))
	require.Zero(t, store.Len())
	require.Zero(t, db.Pool().Len())
	require.True(t, store.Evict(testAddr))

	have, err := store.Get(testAddr)
	require.NoError(t, err)
	require.NotSame(t, d, have)
	require.Equal(t, want, encoded(t, have))
	require.NoError(t, store.Close())
	require.Zero(t, db.Pool().Len())
}

func TestDataStoreConcurrentFlush(t *testing.T) {
	store, db, disk := newTestDataStore()

	var (
		wg    sync.WaitGroup
		addrs = make([]common.Address, 16)
	)
	for i := range addrs {
		addrs[i] = common.BytesToAddress([]byte{0x10, byte(i)})
		store.Update(addrs[i], db.New(addrs[i], testCode))
	}
	for i, addr := range addrs {
		wg.Add(2)
		go func() {
			defer wg.Done()
			d, err := store.Get(addr)
			if !assert.NoError(t, err) || !assert.NotNil(t, d) {
				return
			}
			for j := 0; j < 8; j++ {
				assert.NoError(t, d.Put(key(byte(j)), word(uint64(i*8+j+1))))
				store.Update(addr, d)
			}
		}()
		go func() {
			defer wg.Done()
			assert.NoError(t, store.Flush())
		}()
	}
	wg.Wait()
	require.NoError(t, store.Flush())

	fresh := NewDataStore(db, disk)
	for i, addr := range addrs {
		d, err := fresh.Get(addr)
		require.NoError(t, err)
		require.NotNil(t, d)
		for j := 0; j < 8; j++ {
			v, err := d.Get(key(byte(j)))
			require.NoError(t, err)
			require.Equal(t, word(uint64(i*8+j+1)), v)
		}
	}
}

// failingStore refuses every batch write while fail is set.
type failingStore struct {
	ethdb.KeyValueStore
	fail *bool
}

type failingBatch struct {
	ethdb.Batch
	fail *bool
}

func (s failingStore) NewBatch() ethdb.Batch {
	return failingBatch{s.KeyValueStore.NewBatch(), s.fail}
}

func (b failingBatch) Write() error {
	if *b.fail {
		return errors.New("disk full")
	}
	return b.Batch.Write()
}

func TestDataStoreFlushFailureKeepsDirty(t *testing.T) {
	db, _ := newTestDatabase(nil)
	fail := true
	disk := failingStore{memorydb.New(), &fail}
	store := NewDataStore(db, disk)

	d := newTestDetails(t, db, testAddr)
	store.Update(testAddr, d)
	require.Error(t, store.Flush())
	require.True(t, d.Dirty())
	require.False(t, rawdb.HasContractDetails(disk, testAddr))

	fail = false
	require.NoError(t, store.Flush())
	require.False(t, d.Dirty())
	require.True(t, rawdb.HasContractDetails(disk, testAddr))
}

// unreadableStore fails every read of a stored record.
type unreadableStore struct {
	ethdb.KeyValueStore
}

var errDiskRead = errors.New("disk read failure")

func (s unreadableStore) Get(key []byte) ([]byte, error) {
	return nil, errDiskRead
}

func TestDataStoreReadFailure(t *testing.T) {
	store, db, disk := newTestDataStore()
	store.Update(testAddr, newTestDetails(t, db, testAddr))
	require.NoError(t, store.Flush())

	// A failing account store is reported, not mistaken for a missing contract.
	broken := NewDataStore(db, unreadableStore{disk})
	have, err := broken.Get(testAddr)
	require.ErrorIs(t, err, errDiskRead)
	require.Nil(t, have)
	require.Zero(t, broken.Len())

	// Unknown contracts stay absent.
	have, err = broken.Get(common.HexToAddress("0x99"))
	require.NoError(t, err)
	require.Nil(t, have)
}

// gatedTrie holds up serialization until released, to interleave cache
// operations with a running flush.
type gatedTrie struct {
	storagetrie.Trie
	entered chan struct{}
	release chan struct{}
	once    sync.Once
}

func newGatedTrie() *gatedTrie {
	return &gatedTrie{
		Trie:    storagetrie.New(nil),
		entered: make(chan struct{}),
		release: make(chan struct{}),
	}
}

func (t *gatedTrie) Serialize() ([]byte, error) {
	t.once.Do(func() { close(t.entered) })
	<-t.release
	return t.Trie.Serialize()
}

func TestDataStoreRemoveDuringFlush(t *testing.T) {
	store, db, disk := newTestDataStore()
	tr := newGatedTrie()
	store.Update(testAddr, db.NewWithTrie(testAddr, tr, testCode))

	errc := make(chan error, 1)
	go func() { errc <- store.Flush() }()
	<-tr.entered
	store.Remove(testAddr)
	close(tr.release)
	require.NoError(t, <-errc)

	// The removed contract is neither written nor served.
	require.False(t, rawdb.HasContractDetails(disk, testAddr))
	have, err := store.Get(testAddr)
	require.NoError(t, err)
	require.Nil(t, have)

	require.NoError(t, store.Flush())
	require.False(t, rawdb.HasContractDetails(disk, testAddr))
	have, err = NewDataStore(db, disk).Get(testAddr)
	require.NoError(t, err)
	require.Nil(t, have)
}

func TestDataStoreReplaceDuringFlush(t *testing.T) {
	store, db, disk := newTestDataStore()
	tr := newGatedTrie()
	store.Update(testAddr, db.NewWithTrie(testAddr, tr, nil))

	errc := make(chan error, 1)
	go func() { errc <- store.Flush() }()
	<-tr.entered
	replacement := newTestDetails(t, db, testAddr)
	store.Update(testAddr, replacement)
	close(tr.release)
	require.NoError(t, <-errc)

	// Only the replacement is persisted, on the next flush.
	require.False(t, rawdb.HasContractDetails(disk, testAddr))
	require.True(t, replacement.Dirty())
	require.NoError(t, store.Flush())
	require.Equal(t, encoded(t, replacement), readRecord(t, disk, testAddr))
}
