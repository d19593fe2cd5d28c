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
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/require"
)

func slot(n byte) []byte {
	return common.BytesToHash([]byte{n}).Bytes()
}

// fill writes n slots with distinct values so the trie grows beyond a single
// embedded node.
func fill(t *testing.T, tr Trie, n int) {
	t.Helper()
	for i := 1; i <= n; i++ {
		require.NoError(t, tr.Put(slot(byte(i)), []byte{byte(i), 0xaa}))
	}
}

func TestPutGetDelete(t *testing.T) {
	tr := New(NewMemoryStore())
	require.Equal(t, types.EmptyRootHash, tr.Hash())

	require.NoError(t, tr.Put(slot(1), []byte{0xaa}))
	have, err := tr.Get(slot(1))
	require.NoError(t, err)
	require.Equal(t, []byte{0xaa}, have)

	require.NoError(t, tr.Delete(slot(1)))
	have, err = tr.Get(slot(1))
	require.NoError(t, err)
	require.Empty(t, have)
	require.Equal(t, types.EmptyRootHash, tr.Hash())

	// An empty value deletes as well.
	require.NoError(t, tr.Put(slot(2), []byte{1}))
	require.NoError(t, tr.Put(slot(2), nil))
	require.Equal(t, types.EmptyRootHash, tr.Hash())
}

func TestSaveAndRetrieve(t *testing.T) {
	store := NewMemoryStore()
	tr := New(store)
	fill(t, tr, 32)

	root := tr.Hash()
	require.False(t, store.Has(root), "nodes persisted before save")
	require.NoError(t, tr.Save())
	require.True(t, store.Has(root))
	require.Equal(t, root, tr.Hash(), "save changed the root")

	// The trie stays usable after saving.
	require.NoError(t, tr.Put(slot(100), []byte{1}))
	require.NoError(t, tr.Save())

	old, err := store.Retrieve(root)
	require.NoError(t, err)
	have, err := old.Get(slot(100))
	require.NoError(t, err)
	require.Empty(t, have, "historical view sees later write")

	have, err = old.Get(slot(7))
	require.NoError(t, err)
	require.Equal(t, []byte{7, 0xaa}, have)
}

func TestRetrieveMissingRoot(t *testing.T) {
	store := NewMemoryStore()
	_, err := store.Retrieve(common.HexToHash("0xdeadbeef"))
	require.True(t, errors.Is(err, ErrMissingRoot), "unexpected error %v", err)

	tr, err := store.Retrieve(common.Hash{})
	require.NoError(t, err)
	require.Equal(t, types.EmptyRootHash, tr.Hash())
}

func TestSnapshotIsolation(t *testing.T) {
	tr := New(NewMemoryStore())
	fill(t, tr, 8)
	require.NoError(t, tr.Save())

	snap, err := tr.SnapshotTo(tr.Hash())
	require.NoError(t, err)

	require.NoError(t, tr.Put(slot(1), []byte{0xff}))
	require.NoError(t, snap.Put(slot(2), []byte{0xee}))

	have, err := snap.Get(slot(1))
	require.NoError(t, err)
	require.Equal(t, []byte{1, 0xaa}, have)

	have, err = tr.Get(slot(2))
	require.NoError(t, err)
	require.Equal(t, []byte{2, 0xaa}, have)
}

func TestCopyFrom(t *testing.T) {
	src := New(NewMemoryStore())
	fill(t, src, 64)
	require.NoError(t, src.Save())

	dst := NewMemoryStore()
	require.NoError(t, dst.CopyFrom(src.Store(), src.Hash()))

	cpy, err := dst.Retrieve(src.Hash())
	require.NoError(t, err)
	for i := 1; i <= 64; i++ {
		have, err := cpy.Get(slot(byte(i)))
		require.NoError(t, err)
		require.Equal(t, []byte{byte(i), 0xaa}, have)
	}
	// Copying an unknown root fails instead of producing an empty store.
	require.Error(t, NewMemoryStore().CopyFrom(dst, common.HexToHash("0x01")))
}

func TestSerializeRoundTrip(t *testing.T) {
	for _, store := range []*Store{NewMemoryStore(), nil} {
		tr := New(store)
		fill(t, tr, 20)

		blob, err := tr.Serialize()
		require.NoError(t, err)

		dec, err := Deserialize(blob)
		require.NoError(t, err)
		require.Equal(t, tr.Hash(), dec.Hash())
		require.True(t, dec.HasStore())

		have, err := dec.Get(slot(13))
		require.NoError(t, err)
		require.Equal(t, []byte{13, 0xaa}, have)

		again, err := dec.Serialize()
		require.NoError(t, err)
		require.Equal(t, blob, again, "serialization not deterministic")
	}
}

func TestSerializeEmpty(t *testing.T) {
	blob, err := New(nil).Serialize()
	require.NoError(t, err)

	dec, err := Deserialize(blob)
	require.NoError(t, err)
	require.Equal(t, types.EmptyRootHash, dec.Hash())

	_, err = Deserialize([]byte{0x01, 0x02})
	require.Error(t, err)
}

func TestDetachedTrie(t *testing.T) {
	tr := New(nil)
	require.False(t, tr.HasStore())
	require.Nil(t, tr.Store())
	fill(t, tr, 4)
	require.NoError(t, tr.Save())

	snap, err := tr.SnapshotTo(tr.Hash())
	require.NoError(t, err)
	have, err := snap.Get(slot(3))
	require.NoError(t, err)
	require.Equal(t, []byte{3, 0xaa}, have)

	_, err = tr.SnapshotTo(common.HexToHash("0x01"))
	require.ErrorIs(t, err, ErrMissingRoot)
}
