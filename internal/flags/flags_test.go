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


package flags

import (
	"flag"
	"os"
	"runtime"
	"testing"
)

func TestPathExpansion(t *testing.T) {
	home := HomeDir()
	tests := map[string]string{
		"/home/someuser/tmp": "/home/someuser/tmp",
		"~/tmp":              home + "/tmp",
		"~thisOtherUser/b/":  "~thisOtherUser/b",
		"$DDDXXX/a/b":        "/tmp/a/b",
		"/a/b/":              "/a/b",
		"/a/./b/../c":        "/a/c",
	}
	if runtime.GOOS == "windows" {
		t.Skip("unix paths only")
	}
	os.Setenv("DDDXXX", "/tmp")
	defer os.Unsetenv("DDDXXX")

	for test, expected := range tests {
		if got := expandPath(test); got != expected {
			t.Errorf("test %s, got %s, expected %s\n", test, got, expected)
		}
	}
}

func TestDirectoryFlag(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("unix paths only")
	}
	t.Setenv("CONTRACTDB_TEST_DIR", "/var/lib/../contractdb/")

	f := &DirectoryFlag{Name: "datadir", Aliases: []string{"d"}, EnvVars: []string{"CONTRACTDB_TEST_DIR"}}
	set := flag.NewFlagSet("test", flag.ContinueOnError)
	if err := f.Apply(set); err != nil {
		t.Fatal(err)
	}
	if !f.IsSet() || f.GetValue() != "/var/contractdb" {
		t.Fatalf("environment not applied: set %v, value %q", f.IsSet(), f.GetValue())
	}
	if err := set.Parse([]string{"-d", "/srv/./data"}); err != nil {
		t.Fatal(err)
	}
	if f.GetValue() != "/srv/data" {
		t.Fatalf("alias not applied: %q", f.GetValue())
	}
}
