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


package version

import (
	"runtime/debug"
	"testing"
)

func TestWithCommit(t *testing.T) {
	if have := WithCommit("", ""); have != WithMeta {
		t.Fatalf("bare version mismatch: have %q, want %q", have, WithMeta)
	}
	want := WithMeta + "-0123abcd-20250301"
	if have := WithCommit("0123abcdef45", "20250301"); have != want {
		t.Fatalf("version mismatch: have %q, want %q", have, want)
	}
}

func TestBuildInfoVCS(t *testing.T) {
	info := &debug.BuildInfo{Settings: []debug.BuildSetting{
		{Key: "vcs.revision", Value: "0123abcdef45"},
		{Key: "vcs.time", Value: "2025-03-01T10:11:12Z"},
		{Key: "vcs.modified", Value: "true"},
	}}
	vcs, ok := buildInfoVCS(info)
	if !ok {
		t.Fatal("expected complete vcs info")
	}
	if vcs.Commit != "0123abcdef45" || vcs.Date != "20250301" || !vcs.Dirty {
		t.Fatalf("unexpected vcs info: %+v", vcs)
	}
	if _, ok := buildInfoVCS(&debug.BuildInfo{}); ok {
		t.Fatal("expected incomplete vcs info")
	}
}
