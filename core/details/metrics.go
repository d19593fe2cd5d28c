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

import "github.com/ethereum/go-ethereum/metrics"

var (
	cacheHitMeter  = metrics.NewRegisteredMeter("details/cache/hit", nil)
	cacheMissMeter = metrics.NewRegisteredMeter("details/cache/miss", nil)
	recordHitMeter = metrics.NewRegisteredMeter("details/record/hit", nil)

	flushTimer        = metrics.NewRegisteredTimer("details/flush/time", nil)
	flushRecordsMeter = metrics.NewRegisteredMeter("details/flush/records", nil)
	flushRemovesMeter = metrics.NewRegisteredMeter("details/flush/removes", nil)

	promoteMeter = metrics.NewRegisteredMeter("details/promote", nil)
	retryMeter   = metrics.NewRegisteredMeter("details/read/retry", nil)
	reopenMeter  = metrics.NewRegisteredMeter("details/reopen", nil)
)
