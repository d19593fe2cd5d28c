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


// detailsdb is a command line tool for inspecting and maintaining the contract
// details of a node's account store.
package main

import (
	"fmt"
	"os"
	"slices"

	"github.com/sunyihoo/go-contractdb/internal/debug"
	"github.com/sunyihoo/go-contractdb/internal/flags"
	"github.com/urfave/cli/v2"
)

var app = flags.NewApp("the contract details storage tool")

var (
	dataFlags = []cli.Flag{
		configFileFlag,
		dataDirFlag,
		dbEngineFlag,
		cacheFlag,
		handlesFlag,
	}
	storageFlags = []cli.Flag{
		storagePolicyFlag,
		storageLimitFlag,
		recordCacheFlag,
		trieCacheFlag,
	}
)

func init() {
	app.Commands = []*cli.Command{
		inspectCommand,
		dumpCommand,
		statsCommand,
		setCommand,
		removeCommand,
		dumpConfigCommand,
	}
	app.Flags = slices.Concat(dataFlags, storageFlags, debug.Flags)

	app.Before = func(ctx *cli.Context) error {
		return debug.Setup(ctx)
	}
	app.After = func(ctx *cli.Context) error {
		debug.Exit()
		return nil
	}
}

func main() {
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
