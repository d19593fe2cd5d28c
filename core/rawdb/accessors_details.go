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


package rawdb

import (
	"bytes"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethdb"
)

// ReadContractDetails retrieves the encoded contract details of the given
// address, nil if there is none. Failures of the database are returned, a
// missing record is not one.
// ReadContractDetails 检索给定地址的已编码合约详情，不存在时返回 nil。数据库故障会被返回，记录缺失不算故障。
func ReadContractDetails(db ethdb.KeyValueReader, addr common.Address) ([]byte, error) {
	key := contractDetailsKey(addr)
	ok, err := db.Has(key)
	if err != nil || !ok {
		return nil, err
	}
	return db.Get(key)
}

// HasContractDetails checks if the contract details of the address exist.
func HasContractDetails(db ethdb.KeyValueReader, addr common.Address) bool {
	ok, _ := db.Has(contractDetailsKey(addr))
	return ok
}

// WriteContractDetails stores the encoded contract details of the address.
// WriteContractDetails 存储该地址的已编码合约详情。
func WriteContractDetails(db ethdb.KeyValueWriter, addr common.Address, blob []byte) error {
	return db.Put(contractDetailsKey(addr), blob)
}

// DeleteContractDetails removes the contract details record of the address.
// DeleteContractDetails 删除该地址的合约详情记录。
func DeleteContractDetails(db ethdb.KeyValueWriter, addr common.Address) error {
	return db.Delete(contractDetailsKey(addr))
}

// IterateContractDetails calls fn for every stored contract details record in
// key order, until fn returns false.
// IterateContractDetails 按键顺序对每条已存储的合约详情记录调用 fn，直到 fn 返回 false。
func IterateContractDetails(db ethdb.Iteratee, fn func(addr common.Address, blob []byte) bool) error {
	it := db.NewIterator(contractDetailsPrefix, nil)
	defer it.Release()

	for it.Next() {
		key := it.Key()
		if len(key) != len(contractDetailsPrefix)+common.AddressLength || !bytes.HasPrefix(key, contractDetailsPrefix) {
			continue
		}
		if !fn(common.BytesToAddress(key[len(contractDetailsPrefix):]), common.CopyBytes(it.Value())) {
			break
		}
	}
	return it.Error()
}
