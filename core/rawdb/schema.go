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


// Package rawdb contains a collection of low level database accessors for
// contract details records.
// Package rawdb 包含一组用于合约详情记录的底层数据库访问器。
package rawdb

import (
	"github.com/ethereum/go-ethereum/common"
)

// The fields below define the low level database schema prefixing.
// 以下字段定义了底层数据库模式的前缀。
var (
	// contractDetailsPrefix + address -> RLP encoded contract details
	contractDetailsPrefix = []byte("D")
)

// DetailsStoragePrefix is the name prefix of the pooled data source holding
// the externally stored storage trie of one contract.
// DetailsStoragePrefix 是保存单个合约外部存储 trie 的池化数据源的名称前缀。
const DetailsStoragePrefix = "details-storage/"

// contractDetailsKey = contractDetailsPrefix + address
func contractDetailsKey(addr common.Address) []byte {
	key := make([]byte, 0, len(contractDetailsPrefix)+common.AddressLength)
	key = append(key, contractDetailsPrefix...)
	return append(key, addr.Bytes()...)
}

// DetailsDataSourceName returns the pooled data source name of the storage trie
// owned by addr: the prefix followed by the lowercase hex address.
func DetailsDataSourceName(addr common.Address) string {
	return DetailsStoragePrefix + common.Bytes2Hex(addr.Bytes())
}
