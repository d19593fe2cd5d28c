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

	"github.com/ethereum/go-ethereum/common"
)

var (
	// ErrMalformedRecord is returned when a persisted contract details record
	// does not have the expected shape.
	// ErrMalformedRecord 在持久化的合约详情记录不符合预期格式时返回。
	ErrMalformedRecord = errors.New("malformed contract details record")

	// ErrFaulted is returned by every operation on contract details which hit
	// a consistency failure before.
	// ErrFaulted 由之前发生过一致性故障的合约详情上的所有操作返回。
	ErrFaulted = errors.New("contract details faulted")

	errLengthMismatch = errors.New("storage keys and values differ in length")
)

// ConsistencyError reports that a storage trie copied into its own data source
// could not be resolved by its root afterwards. The contract's storage can not
// be trusted anymore and processing must stop.
//
// ConsistencyError 表示复制到独立数据源中的存储 trie 之后无法通过其根解析。
// 该合约的存储不再可信，必须停止处理。
type ConsistencyError struct {
	Address common.Address
	Root    common.Hash
	Err     error
}

func (e *ConsistencyError) Error() string {
	return fmt.Sprintf("error switching to data source, hash %x, address %x: %v", e.Root, e.Address, e.Err)
}

func (e *ConsistencyError) Unwrap() error {
	return e.Err
}
