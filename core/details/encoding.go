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
	"fmt"
	"io"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/log"
	"github.com/ethereum/go-ethereum/rlp"
	"github.com/sunyihoo/go-contractdb/storagetrie"
)

// externalFlag marks a record whose storage field carries a root hash.
var externalFlag = []byte{1}

// detailsRLP is the persisted form of contract details.
// detailsRLP 是合约详情的持久化形式。
type detailsRLP struct {
	Address  []byte
	External []byte // any non-empty value means external storage
	Storage  []byte // root hash if external, embedded trie blob otherwise
	Code     []byte
	Keys     [][]byte
}

// storageRef is the decoded storage field, either an embedded trie blob or the
// root of a trie in the contract's data source.
type storageRef interface {
	open(db *Database, addr common.Address) (storagetrie.Trie, error)
}

type (
	embeddedStorage []byte
	externalStorage common.Hash
)

func (s embeddedStorage) open(db *Database, addr common.Address) (storagetrie.Trie, error) {
	tr, err := storagetrie.Deserialize(s)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedRecord, err)
	}
	return tr, nil
}

func (s externalStorage) open(db *Database, addr common.Address) (storagetrie.Trie, error) {
	store, err := db.acquire(addr)
	if err != nil {
		return nil, err
	}
	tr, err := store.Retrieve(common.Hash(s))
	if err != nil {
		if err := db.release(addr); err != nil {
			log.Debug("Failed to release contract details data source", "address", addr, "err", err)
		}
		return nil, err
	}
	return tr, nil
}

// Encoded returns the persisted form of the contract details. A pending move to
// external storage is carried out first, so that the encoded root can always be
// resolved from the data source of the contract. Carrying out the move, or
// encoding a closed contract, leaves a reservation of the data source held
// until the next SyncStorage or Close.
//
// Encoded 返回合约详情的持久化形式。待执行的外部存储迁移会先被执行，
// 以保证编码的根总能从合约的数据源中解析。执行迁移或编码已关闭的合约会持有数据源的预留，
// 直到下一次 SyncStorage 或 Close。
func (d *ContractDetails) Encoded() ([]byte, error) {
	d.lock.Lock()
	defer d.lock.Unlock()

	return d.encode()
}

// EncodeRLP implements rlp.Encoder.
func (d *ContractDetails) EncodeRLP(w io.Writer) error {
	enc, err := d.Encoded()
	if err != nil {
		return err
	}
	_, err = w.Write(enc)
	return err
}

func (d *ContractDetails) encode() ([]byte, error) {
	if err := d.ready(); err != nil {
		return nil, err
	}
	enc := detailsRLP{
		Address: d.address.Bytes(),
		Code:    d.code,
	}
	if d.mode == External && d.originalMode == Embedded {
		if err := d.promote(); err != nil {
			return nil, err
		}
	}
	if d.mode == External {
		if err := d.trie.Save(); err != nil {
			return nil, err
		}
		root := d.trie.Hash()
		enc.External, enc.Storage = externalFlag, root[:]
	} else {
		blob, err := d.trie.Serialize()
		if err != nil {
			return nil, err
		}
		enc.Storage = blob
	}
	keys := d.sortedKeys()
	enc.Keys = make([][]byte, len(keys))
	for i := range keys {
		enc.Keys[i] = keys[i][:]
	}
	return rlp.EncodeToBytes(&enc)
}

// Decode rebuilds contract details from their persisted form. Externally stored
// contract details hold a reservation of their data source until synced or
// closed.
//
// Decode 从持久化形式重建合约详情。外部存储的合约详情在同步或关闭之前持有其数据源的预留。
func (db *Database) Decode(blob []byte) (*ContractDetails, error) {
	var dec detailsRLP
	if err := rlp.DecodeBytes(blob, &dec); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedRecord, err)
	}
	if len(dec.Address) != common.AddressLength {
		return nil, fmt.Errorf("%w: address length %d", ErrMalformedRecord, len(dec.Address))
	}
	keys := mapset.NewThreadUnsafeSetWithSize[common.Hash](len(dec.Keys))
	for _, key := range dec.Keys {
		if len(key) > common.HashLength {
			return nil, fmt.Errorf("%w: storage key length %d", ErrMalformedRecord, len(key))
		}
		keys.Add(common.BytesToHash(key))
	}
	var (
		addr = common.BytesToAddress(dec.Address)
		ref  storageRef
		mode = Embedded
	)
	if len(dec.External) > 0 {
		if len(dec.Storage) != common.HashLength {
			return nil, fmt.Errorf("%w: storage root length %d", ErrMalformedRecord, len(dec.Storage))
		}
		ref, mode = externalStorage(common.BytesToHash(dec.Storage)), External
	} else {
		ref = embeddedStorage(dec.Storage)
	}
	tr, err := ref.open(db, addr)
	if err != nil {
		return nil, err
	}
	d := newContractDetails(db, addr, tr, dec.Code)
	d.keys = keys
	d.mode, d.originalMode = mode, mode
	d.held = mode == External

	log.Trace("Decoded contract details", "address", addr, "root", tr.Hash(), "size", keys.Cardinality(), "mode", mode)
	return d, nil
}
