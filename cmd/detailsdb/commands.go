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


package main

import (
	"errors"
	"fmt"
	"io"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/ethdb"
	"github.com/ethereum/go-ethereum/log"
	"github.com/holiman/uint256"
	"github.com/sunyihoo/go-contractdb/core/details"
	"github.com/sunyihoo/go-contractdb/core/rawdb"
	"github.com/urfave/cli/v2"
)

var (
	showStorageFlag = &cli.BoolFlag{
		Name:  "storage",
		Usage: "Print every known storage slot",
	}
	codeFlag = &cli.StringFlag{
		Name:  "code",
		Usage: "Hex encoded code of a contract created by the command",
	}

	inspectCommand = &cli.Command{
		Action:    inspect,
		Name:      "inspect",
		Usage:     "Print the contract details of an address",
		ArgsUsage: "<address>",
		Flags:     []cli.Flag{showStorageFlag},
	}
	dumpCommand = &cli.Command{
		Action: dump,
		Name:   "dump",
		Usage:  "Print a summary line for every persisted contract",
	}
	statsCommand = &cli.Command{
		Action: stats,
		Name:   "stats",
		Usage:  "Print statistics of the persisted contracts and the account store",
	}
	setCommand = &cli.Command{
		Action:    set,
		Name:      "set",
		Usage:     "Write a storage slot of a contract, creating the contract if unknown",
		ArgsUsage: "<address> <key> <value>",
		Flags:     []cli.Flag{codeFlag},
		Description: `
Writes the 256 bit word value into the storage slot key of the contract and
flushes the change. A zero value deletes the slot.`,
	}
	removeCommand = &cli.Command{
		Action:    remove,
		Name:      "remove",
		Usage:     "Delete the persisted contract details of an address",
		ArgsUsage: "<address>",
	}
	dumpConfigCommand = &cli.Command{
		Action:    dumpConfig,
		Name:      "dumpconfig",
		Usage:     "Export configuration values in a TOML format",
		ArgsUsage: "<dumpfile (optional)>",
	}
)

// withEnvironment runs fn over the opened environment of the configured data
// directory and closes it afterwards.
func withEnvironment(ctx *cli.Context, fn func(env *environment) error) (err error) {
	cfg, err := makeConfig(ctx)
	if err != nil {
		return err
	}
	env, err := openEnvironment(cfg)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := env.close(); err == nil {
			err = cerr
		}
	}()
	return fn(env)
}

func parseAddress(s string) (common.Address, error) {
	if !common.IsHexAddress(s) {
		return common.Address{}, fmt.Errorf("invalid address %q", s)
	}
	return common.HexToAddress(s), nil
}

func inspect(ctx *cli.Context) error {
	if ctx.NArg() != 1 {
		return errors.New("expected exactly one address")
	}
	addr, err := parseAddress(ctx.Args().First())
	if err != nil {
		return err
	}
	return withEnvironment(ctx, func(env *environment) error {
		d, err := env.store.Get(addr)
		if err != nil {
			return err
		}
		if d == nil {
			return fmt.Errorf("no contract details for %s", addr)
		}
		root, err := d.StorageHash()
		if err != nil {
			return err
		}
		out := ctx.App.Writer
		fmt.Fprintf(out, "Address:      %s\n", d.Address())
		fmt.Fprintf(out, "Storage mode: %s\n", d.Mode())
		fmt.Fprintf(out, "Storage root: %s\n", root.Hex())
		fmt.Fprintf(out, "Storage keys: %d\n", d.StorageSize())
		fmt.Fprintf(out, "Code:         %s\n", hexutil.Encode(d.Code()))

		if ctx.Bool(showStorageFlag.Name) {
			return printStorage(out, d)
		}
		return nil
	})
}

func printStorage(out io.Writer, d *details.ContractDetails) error {
	keys := d.StorageKeys()
	storage, err := d.Storage(keys)
	if err != nil {
		return err
	}
	for _, key := range keys {
		if value, ok := storage[key]; ok {
			fmt.Fprintf(out, "  %s: %s\n", key.Hex(), value.Hex())
		}
	}
	return nil
}

// eachContract visits every persisted contract, evicting it from the cache
// after the visit so that at most one data source is open at a time.
func eachContract(env *environment, fn func(addr common.Address, d *details.ContractDetails) error) error {
	var addrs []common.Address
	err := rawdb.IterateContractDetails(env.accounts, func(addr common.Address, blob []byte) bool {
		addrs = append(addrs, addr)
		return true
	})
	if err != nil {
		return err
	}
	for _, addr := range addrs {
		d, err := env.store.Get(addr)
		if err != nil {
			return err
		}
		if d == nil {
			continue
		}
		if err := fn(addr, d); err != nil {
			return err
		}
		env.store.Evict(addr)
	}
	return nil
}

func dump(ctx *cli.Context) error {
	return withEnvironment(ctx, func(env *environment) error {
		return eachContract(env, func(addr common.Address, d *details.ContractDetails) error {
			root, err := d.StorageHash()
			if err != nil {
				return err
			}
			fmt.Fprintf(ctx.App.Writer, "%s %-8s keys=%-6d code=%-6d root=%s\n", addr, d.Mode(), d.StorageSize(), len(d.Code()), root.Hex())
			return nil
		})
	})
}

func stats(ctx *cli.Context) error {
	return withEnvironment(ctx, func(env *environment) error {
		var (
			contracts, external, keys int
			code                      int
		)
		err := eachContract(env, func(addr common.Address, d *details.ContractDetails) error {
			contracts++
			if d.Mode() == details.External {
				external++
			}
			keys += d.StorageSize()
			code += len(d.Code())
			return nil
		})
		if err != nil {
			return err
		}
		out := ctx.App.Writer
		fmt.Fprintf(out, "Contracts:        %d\n", contracts)
		fmt.Fprintf(out, "External storage: %d\n", external)
		fmt.Fprintf(out, "Storage keys:     %d\n", keys)
		fmt.Fprintf(out, "Code size:        %s\n", common.StorageSize(code))
		showDBStats(out, env.accounts)
		return nil
	})
}

func showDBStats(out io.Writer, db ethdb.KeyValueStater) {
	stats, err := db.Stat()
	if err != nil {
		log.Warn("Failed to read database stats", "error", err)
		return
	}
	fmt.Fprintln(out, stats)
}

func set(ctx *cli.Context) error {
	if ctx.NArg() != 3 {
		return errors.New("expected address, key and value")
	}
	addr, err := parseAddress(ctx.Args().Get(0))
	if err != nil {
		return err
	}
	key, err := hexutil.Decode(ctx.Args().Get(1))
	if err != nil || len(key) > common.HashLength {
		return fmt.Errorf("invalid storage key %q", ctx.Args().Get(1))
	}
	value, err := uint256.FromHex(ctx.Args().Get(2))
	if err != nil {
		return fmt.Errorf("invalid storage value %q: %v", ctx.Args().Get(2), err)
	}
	var code []byte
	if ctx.IsSet(codeFlag.Name) {
		if code, err = hexutil.Decode(ctx.String(codeFlag.Name)); err != nil {
			return fmt.Errorf("invalid code: %v", err)
		}
	}
	return withEnvironment(ctx, func(env *environment) error {
		d, err := env.store.Get(addr)
		if err != nil {
			return err
		}
		if d == nil {
			d = env.db.New(addr, code)
		} else if code != nil {
			d.SetCode(code)
		}
		if err := d.Put(common.BytesToHash(key), value); err != nil {
			return err
		}
		env.store.Update(addr, d)
		if err := env.store.Flush(); err != nil {
			return err
		}
		log.Info("Updated contract storage", "address", addr, "key", common.BytesToHash(key), "value", value.Hex())
		return nil
	})
}

func remove(ctx *cli.Context) error {
	if ctx.NArg() != 1 {
		return errors.New("expected exactly one address")
	}
	addr, err := parseAddress(ctx.Args().First())
	if err != nil {
		return err
	}
	return withEnvironment(ctx, func(env *environment) error {
		env.store.Remove(addr)
		if err := env.store.Flush(); err != nil {
			return err
		}
		log.Info("Removed contract details", "address", addr)
		return nil
	})
}
