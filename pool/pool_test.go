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
	"bytes"
	"errors"
	"sync"
	"testing"

	"github.com/ethereum/go-ethereum/ethdb"
	"github.com/ethereum/go-ethereum/ethdb/memorydb"
)

// countingStore records how often it got physically closed.
type countingStore struct {
	ethdb.KeyValueStore
	closes *int
}

func (s countingStore) Close() error {
	*s.closes++
	return nil
}

func newCountingPool() (*Pool, map[string]int, *int) {
	var (
		opens  = make(map[string]int)
		closes = new(int)
	)
	p := New(func(name string) (ethdb.KeyValueStore, error) {
		opens[name]++
		return countingStore{memorydb.New(), closes}, nil
	})
	return p, opens, closes
}

func TestAcquireRelease(t *testing.T) {
	p, opens, closes := newCountingPool()

	a, err := p.Acquire("details-storage/aa")
	if err != nil {
		t.Fatalf("acquire failed: %v", err)
	}
	b, err := p.Acquire("details-storage/aa")
	if err != nil {
		t.Fatalf("acquire failed: %v", err)
	}
	if a != b {
		t.Fatal("holders of the same name got different handles")
	}
	if opens["details-storage/aa"] != 1 {
		t.Fatalf("physical opens mismatch: have %d, want 1", opens["details-storage/aa"])
	}
	if refs := p.Refs("details-storage/aa"); refs != 2 {
		t.Fatalf("refs mismatch: have %d, want 2", refs)
	}
	if err := p.Release("details-storage/aa"); err != nil {
		t.Fatalf("release failed: %v", err)
	}
	if *closes != 0 {
		t.Fatal("data source closed while still held")
	}
	if err := p.Release("details-storage/aa"); err != nil {
		t.Fatalf("release failed: %v", err)
	}
	if *closes != 1 {
		t.Fatalf("data source not closed after last release: closes %d", *closes)
	}
	if p.Len() != 0 {
		t.Fatalf("pool not empty: %d", p.Len())
	}
	// Reopening after the last release is transparent.
	if _, err := p.Acquire("details-storage/aa"); err != nil {
		t.Fatalf("reacquire failed: %v", err)
	}
	if opens["details-storage/aa"] != 2 {
		t.Fatalf("physical opens mismatch: have %d, want 2", opens["details-storage/aa"])
	}
}

func TestReserve(t *testing.T) {
	p, _, closes := newCountingPool()

	if err := p.Reserve("missing"); !errors.Is(err, ErrNotOpen) {
		t.Fatalf("reserve of unopened source: have %v, want %v", err, ErrNotOpen)
	}
	if err := p.Release("missing"); !errors.Is(err, ErrNotOpen) {
		t.Fatalf("release of unopened source: have %v, want %v", err, ErrNotOpen)
	}
	if _, err := p.Acquire("shared"); err != nil {
		t.Fatal(err)
	}
	if err := p.Reserve("shared"); err != nil {
		t.Fatalf("reserve failed: %v", err)
	}
	// The original holder leaves, the reservation keeps the source alive.
	if err := p.Release("shared"); err != nil {
		t.Fatal(err)
	}
	if *closes != 0 || p.Refs("shared") != 1 {
		t.Fatalf("reserved source closed early: closes %d refs %d", *closes, p.Refs("shared"))
	}
	if err := p.Release("shared"); err != nil {
		t.Fatal(err)
	}
	if *closes != 1 {
		t.Fatalf("closes mismatch: have %d, want 1", *closes)
	}
}

func TestPoolClose(t *testing.T) {
	p, _, closes := newCountingPool()
	for _, name := range []string{"a", "b", "c"} {
		if _, err := p.Acquire(name); err != nil {
			t.Fatal(err)
		}
	}
	if err := p.Close(); err != nil {
		t.Fatalf("close failed: %v", err)
	}
	if *closes != 3 {
		t.Fatalf("closes mismatch: have %d, want 3", *closes)
	}
	if _, err := p.Acquire("a"); err == nil {
		t.Fatal("acquire succeeded on closed pool")
	}
}

func TestConcurrentAcquireRelease(t *testing.T) {
	p, opens, closes := newCountingPool()

	// Keep one holder for the whole test so the source never closes.
	if _, err := p.Acquire("busy"); err != nil {
		t.Fatal(err)
	}
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				if _, err := p.Acquire("busy"); err != nil {
					t.Error(err)
					return
				}
				if err := p.Release("busy"); err != nil {
					t.Error(err)
					return
				}
			}
		}()
	}
	wg.Wait()

	if refs := p.Refs("busy"); refs != 1 {
		t.Fatalf("refs mismatch: have %d, want 1", refs)
	}
	if opens["busy"] != 1 || *closes != 0 {
		t.Fatalf("unexpected physical churn: opens %d closes %d", opens["busy"], *closes)
	}
}

func TestMemoryOpenerSurvivesClose(t *testing.T) {
	p := New(MemoryOpener())

	db, err := p.Acquire("details-storage/01")
	if err != nil {
		t.Fatal(err)
	}
	if err := db.Put([]byte("key"), []byte("value")); err != nil {
		t.Fatal(err)
	}
	if err := p.Release("details-storage/01"); err != nil {
		t.Fatal(err)
	}
	db, err = p.Acquire("details-storage/01")
	if err != nil {
		t.Fatal(err)
	}
	have, err := db.Get([]byte("key"))
	if err != nil {
		t.Fatalf("value lost across reopen: %v", err)
	}
	if !bytes.Equal(have, []byte("value")) {
		t.Fatalf("value mismatch: have %x, want %x", have, []byte("value"))
	}
}

func TestDiskOpeners(t *testing.T) {
	for _, kind := range []string{LevelDBBackend, PebbleBackend} {
		t.Run(kind, func(t *testing.T) {
			opener, err := NewOpener(kind, t.TempDir(), 0, 0)
			if err != nil {
				t.Fatal(err)
			}
			p := New(opener)

			db, err := p.Acquire("details-storage/0a0b")
			if err != nil {
				t.Fatalf("open failed: %v", err)
			}
			if err := db.Put([]byte{1}, []byte{2}); err != nil {
				t.Fatal(err)
			}
			if err := p.Release("details-storage/0a0b"); err != nil {
				t.Fatalf("close failed: %v", err)
			}
			db, err = p.Acquire("details-storage/0a0b")
			if err != nil {
				t.Fatalf("reopen failed: %v", err)
			}
			if have, err := db.Get([]byte{1}); err != nil || !bytes.Equal(have, []byte{2}) {
				t.Fatalf("value mismatch after reopen: have %x, err %v", have, err)
			}
			if err := p.Close(); err != nil {
				t.Fatal(err)
			}
		})
	}
}

func TestOpenerRejectsEscapingNames(t *testing.T) {
	opener := LevelDBOpener(t.TempDir(), 0, 0)
	for _, name := range []string{"../outside", "", "."} {
		if _, err := opener(name); err == nil {
			t.Errorf("name %q accepted", name)
		}
	}
	if _, err := NewOpener("rocksdb", "", 0, 0); err == nil {
		t.Fatal("unknown backend accepted")
	}
}
